// Package tier implements the fixed-capacity, append-only hashing container
// that every level of the commitment tree is built from.
//
// A tier holds up to 65,536 slots. Each slot is either a full element, which
// can still be witnessed, or the summary hash of an element that was
// forgotten. Tiers nest: a tier of leaves is a block, a tier of blocks is an
// epoch and a tier of epochs is the whole tree.
//
//                        Tier (root, height 8)
//                     /      |      |      \
//                  ...      ...    ...     ...      quaternary levels
//                 /  |  \   \
//             slot slot slot slot ...               Full(T) | Summary(Hash)
//
// Internally the slots are the leaves of a quaternary tree of height 8. The
// hashes of that tree are cached and recomputed lazily, starting at the first
// slot that changed since the last computation. A node whose range lies past
// the last slot hashes to digest.Empty, so only the filled prefix of the tree
// is ever stored. A slot never hashes to digest.Empty: an empty tier hashes to
// digest.Vacant and summaries of the padding hash are refused, so appending a
// slot always changes the root.
package tier

import (
	"go.dedis.ch/tct/core/digest"
	"golang.org/x/xerrors"
)

const (
	// Width is the number of position bits indexing the slots of a tier.
	Width = 16

	// Capacity is the maximum number of slots of a tier.
	Capacity = 1 << Width

	// Height is the number of quaternary levels above the slots of a tier.
	Height = Width / 2
)

var (
	// ErrFull is returned when inserting into a tier that has no capacity
	// left.
	ErrFull = xerrors.New("tier is full")

	// ErrPadding is returned when inserting a summary of the padding hash.
	ErrPadding = xerrors.New("summary is the padding hash")
)

// Siblings are the hashes of the other children of a node on an
// authentication path, in order.
type Siblings [digest.Arity - 1]digest.Hash

// Element is the constraint satisfied by the items that a tier can hold, which
// are either leaves or other tiers.
type Element interface {
	// Hash returns the digest of the element.
	Hash() digest.Hash

	// bits returns the number of position bits addressed inside the element.
	// It must not depend on the receiver so that it can be called on the zero
	// value.
	bits() uint

	// size returns the number of leaf positions the element occupies.
	size() uint64

	// forgotten returns true when nothing below the element can be witnessed
	// anymore.
	forgotten() bool

	witness(pos uint64) ([]Siblings, digest.Hash, bool)

	forget(pos uint64) bool
}
