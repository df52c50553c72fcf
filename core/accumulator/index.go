package accumulator

import (
	"go.dedis.ch/tct/core/digest"
)

// index maps the witnessable commitments to their position, relative to the
// element that owns the map.
type index map[digest.Commitment]Position

// indexMut is the destination of the index writes made while inserting into
// an open child. The map belongs to the level that received the call, and the
// prefix is the position of the child in that level's frame, so a kept leaf is
// written exactly once, in the right frame, whatever the depth.
type indexMut struct {
	into   index
	prefix Position
}

// within returns the destination for the insertions into the child at the
// given position, relative to the current prefix.
func (m indexMut) within(child Position) indexMut {
	return indexMut{
		into:   m.into,
		prefix: m.prefix | child,
	}
}

// record writes the position of the commitment and returns the position it
// replaced, if any.
func (m indexMut) record(c digest.Commitment, offset Position) (Position, bool) {
	prev, found := m.into[c]
	m.into[c] = m.prefix | offset

	return prev, found
}

// merge records every entry of a child index and returns the positions that
// were replaced.
func (m indexMut) merge(child index) []Position {
	var replaced []Position

	for c, pos := range child {
		prev, found := m.record(c, pos)
		if found {
			replaced = append(replaced, prev)
		}
	}

	return replaced
}
