// Package accumulator implements the tiered commitment tree: an append-only
// accumulator of up to 2^48 commitments that produces a root after every
// mutation and can prove the membership of selected commitments.
//
// The tree has three levels of tiers. An Accumulator holds up to 65,536
// epochs, an Epoch holds up to 65,536 blocks and a Block holds up to 65,536
// commitments. Only the last element of every level is open for insertions.
//
//	Accumulator ── epoch 0 ── block 0 ── commitments
//	            │          └─ block 1 ── ...
//	            └─ epoch 1 (open) ── block 0 (open) ── ... (open slot)
//
// A commitment inserted with Keep is recorded in an index and can be witnessed
// until it is forgotten. A commitment inserted with Discard contributes to the
// root but is never indexed. Forgetting drops the data needed to witness a
// commitment without changing any hash, so the root is unaffected.
//
// Blocks and epochs can be built independently and inserted all at once, or
// replaced by their root when only the hash is known.
package accumulator

import (
	"fmt"

	"go.dedis.ch/tct/core/digest"
	"go.dedis.ch/tct/core/tier"
)

const (
	blockShift = tier.Width
	epochShift = 2 * tier.Width

	blockHeight    = tier.Height
	epochHeight    = 2 * tier.Height
	eternityHeight = 3 * tier.Height
)

type blockTier = tier.Tier[tier.Leaf]
type epochTier = tier.Tier[*blockTier]
type eternityTier = tier.Tier[*epochTier]

// Mode tells whether an inserted commitment must remain witnessable.
type Mode int

const (
	// Keep inserts the commitment so that it can be witnessed.
	Keep Mode = iota
	// Discard inserts only the hash of the commitment.
	Discard
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case Keep:
		return "keep"
	case Discard:
		return "discard"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Level identifies one of the three levels of the tree.
type Level int

const (
	// LevelBlock is the level of the blocks, which hold commitments.
	LevelBlock Level = iota
	// LevelEpoch is the level of the epochs, which hold blocks.
	LevelEpoch
	// LevelEternity is the top level, which holds epochs.
	LevelEternity
)

// String implements fmt.Stringer.
func (l Level) String() string {
	switch l {
	case LevelBlock:
		return "block"
	case LevelEpoch:
		return "epoch"
	case LevelEternity:
		return "eternity"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// child returns the level of the elements held at this level.
func (l Level) child() Level {
	return l - 1
}

// Position is the coordinate of a commitment in the tree. The 48 lowest bits
// are used: 16 bits for the epoch, 16 for the block and 16 for the offset in
// the block. Positions are assigned in increasing order and never reused.
//
// Inside a standalone block or epoch, the upper fields are zero.
type Position uint64

// NewPosition returns the position of the given coordinates.
func NewPosition(epoch, block, offset uint16) Position {
	return Position(epoch)<<epochShift | Position(block)<<blockShift | Position(offset)
}

// Epoch returns the index of the epoch.
func (p Position) Epoch() uint16 {
	return uint16(p >> epochShift)
}

// Block returns the index of the block inside its epoch.
func (p Position) Block() uint16 {
	return uint16(p >> blockShift)
}

// Offset returns the index of the commitment inside its block.
func (p Position) Offset() uint16 {
	return uint16(p)
}

// String implements fmt.Stringer.
func (p Position) String() string {
	return fmt.Sprintf("%d/%d/%d", p.Epoch(), p.Block(), p.Offset())
}

// Root is the root hash of an accumulator.
type Root digest.Hash

// String implements fmt.Stringer.
func (r Root) String() string {
	return digest.Hash(r).String()
}

// MarshalText implements encoding.TextMarshaler.
func (r Root) MarshalText() ([]byte, error) {
	return digest.Hash(r).MarshalText()
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Root) UnmarshalText(text []byte) error {
	return (*digest.Hash)(r).UnmarshalText(text)
}

// EpochRoot is the root hash of an epoch.
type EpochRoot digest.Hash

// String implements fmt.Stringer.
func (r EpochRoot) String() string {
	return digest.Hash(r).String()
}

// BlockRoot is the root hash of a block.
type BlockRoot digest.Hash

// String implements fmt.Stringer.
func (r BlockRoot) String() string {
	return digest.Hash(r).String()
}
