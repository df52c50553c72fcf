package accumulator

import (
	"go.dedis.ch/tct/core/digest"
	"go.dedis.ch/tct/core/tier"
)

// Block is a standalone sequence of up to 65,536 commitments that can be built
// independently and then inserted into an epoch or into the accumulator.
// Positions in a block only have an offset.
type Block struct {
	index index
	inner *blockTier
}

// NewBlock creates a new empty block.
func NewBlock() *Block {
	return &Block{
		index: make(index),
		inner: tier.New[tier.Leaf](),
	}
}

// Insert appends the commitment to the block. It returns an *InsertError when
// the block is full.
func (b *Block) Insert(mode Mode, c digest.Commitment) error {
	replaced, found, err := insertLeaf(b.inner, indexMut{into: b.index}, mode, c)
	if err != nil {
		return &InsertError{
			CapacityError: *err,
			Commitment:    c,
		}
	}

	if found {
		mustForget(b.inner, replaced)
	}

	return nil
}

// Root returns the root of the block.
func (b *Block) Root() BlockRoot {
	return BlockRoot(b.inner.Hash())
}

// Witness returns a proof of membership of the commitment in the block, or
// false if it is not witnessed.
func (b *Block) Witness(c digest.Commitment) (BlockProof, bool) {
	proof, ok := witness(b.inner, b.index, c)

	return BlockProof(proof), ok
}

// Forget drops the data needed to witness the commitment. It returns false if
// the commitment was not witnessed. The root does not change.
func (b *Block) Forget(c digest.Commitment) bool {
	return forget(b.inner, b.index, c)
}

// Len returns the number of commitments in the block.
func (b *Block) Len() int {
	return b.inner.Len()
}

// IsEmpty returns true if the block has no commitment.
func (b *Block) IsEmpty() bool {
	return b.inner.IsEmpty()
}

// Witnessed returns the number of commitments that can be witnessed.
func (b *Block) Witnessed() int {
	return len(b.index)
}

// insertLeaf appends the commitment to the tier of a block and records it in
// the index when it is kept. It returns the position that was replaced in the
// index, if any.
func insertLeaf(t *blockTier, idx indexMut, mode Mode, c digest.Commitment) (Position, bool, *CapacityError) {
	offset := Position(t.Len())

	slot := tier.Summary[tier.Leaf](digest.Of(c))
	if mode == Keep {
		slot = tier.Full(tier.NewLeaf(c))
	}

	err := t.Insert(slot)
	if err != nil {
		return 0, false, &CapacityError{Level: LevelBlock, Err: ErrFull}
	}

	if mode != Keep {
		return 0, false, nil
	}

	prev, found := idx.record(c, offset)

	return prev, found, nil
}
