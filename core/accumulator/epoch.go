package accumulator

import (
	"go.dedis.ch/tct/core/digest"
	"go.dedis.ch/tct/core/tier"
)

// Epoch is a standalone sequence of up to 65,536 blocks that can be built
// independently and then inserted into the accumulator. Positions in an epoch
// have a block index and an offset.
type Epoch struct {
	index index
	inner *epochTier
}

// NewEpoch creates a new empty epoch.
func NewEpoch() *Epoch {
	return &Epoch{
		index: make(index),
		inner: tier.New[*blockTier](),
	}
}

// Insert appends the commitment to the most recent block of the epoch, which
// is opened if the epoch is empty. It returns an *InsertError when the block
// cannot receive the commitment.
func (e *Epoch) Insert(mode Mode, c digest.Commitment) error {
	replaced, found, err := insertIntoEpoch(e.inner, indexMut{into: e.index}, mode, c)
	if err != nil {
		return &InsertError{
			CapacityError: *err,
			Commitment:    c,
		}
	}

	if found {
		mustForget(e.inner, replaced)
	}

	return nil
}

// InsertBlock closes the most recent block and appends the given one. The
// witnessed commitments of the block are witnessed in the epoch afterwards. It
// returns an *InsertBlockError with the block when the epoch is full. The block
// must not be used after a successful insertion.
func (e *Epoch) InsertBlock(b *Block) error {
	replaced, err := insertBlockIntoEpoch(e.inner, indexMut{into: e.index}, tier.Full(b.inner), b.index)
	if err != nil {
		return &InsertBlockError{
			CapacityError: *err,
			Block:         b,
		}
	}

	for _, pos := range replaced {
		mustForget(e.inner, pos)
	}

	return nil
}

// InsertBlockRoot closes the most recent block and appends a block known only
// by its root. No commitment of such a block can be witnessed, and nothing can
// be inserted into the epoch until another block is opened. It returns a
// CapacityError when the epoch is full, or ErrPaddingRoot.
func (e *Epoch) InsertBlockRoot(root BlockRoot) error {
	if digest.Hash(root) == digest.Empty {
		return ErrPaddingRoot
	}

	_, err := insertBlockIntoEpoch(e.inner, indexMut{into: e.index}, tier.Summary[*blockTier](digest.Hash(root)), nil)
	if err != nil {
		return *err
	}

	return nil
}

// Root returns the root of the epoch.
func (e *Epoch) Root() EpochRoot {
	return EpochRoot(e.inner.Hash())
}

// Witness returns a proof of membership of the commitment in the epoch, or
// false if it is not witnessed.
func (e *Epoch) Witness(c digest.Commitment) (EpochProof, bool) {
	proof, ok := witness(e.inner, e.index, c)

	return EpochProof(proof), ok
}

// Forget drops the data needed to witness the commitment. It returns false if
// the commitment was not witnessed. The root does not change.
func (e *Epoch) Forget(c digest.Commitment) bool {
	return forget(e.inner, e.index, c)
}

// Len returns the number of commitment positions used by the epoch. A block
// inserted by its root counts as a full block.
func (e *Epoch) Len() uint64 {
	return e.inner.Size()
}

// IsEmpty returns true if no block has been opened.
func (e *Epoch) IsEmpty() bool {
	return e.inner.IsEmpty()
}

// Witnessed returns the number of commitments that can be witnessed.
func (e *Epoch) Witnessed() int {
	return len(e.index)
}

// insertIntoEpoch appends the commitment to the open block of the epoch tier,
// opening one if the tier is empty.
func insertIntoEpoch(t *epochTier, idx indexMut, mode Mode, c digest.Commitment) (Position, bool, *CapacityError) {
	if t.IsEmpty() {
		err := t.Insert(tier.Full(tier.New[tier.Leaf]()))
		if err != nil {
			return 0, false, &CapacityError{Level: LevelEpoch, Err: ErrFull}
		}
	}

	block := Position(t.Len()-1) << blockShift

	var replaced Position
	var found bool
	var cerr *CapacityError

	t.Update(func(b *blockTier, ok bool) bool {
		if !ok {
			cerr = &CapacityError{Level: LevelEpoch, Err: ErrChildForgotten}
			return false
		}

		var err *CapacityError
		replaced, found, err = insertLeaf(b, idx.within(block), mode, c)
		if err != nil {
			cerr = &CapacityError{Level: LevelEpoch, Err: ErrChildFull}
			return false
		}

		return true
	})

	return replaced, found, cerr
}

// insertBlockIntoEpoch appends the block slot to the epoch tier and merges the
// index of the block, if any. It returns the positions that were replaced.
func insertBlockIntoEpoch(t *epochTier, idx indexMut, slot tier.Retained[*blockTier],
	local index) ([]Position, *CapacityError) {

	block := Position(t.Len()) << blockShift

	err := t.Insert(slot)
	if err != nil {
		return nil, &CapacityError{Level: LevelEpoch, Err: ErrFull}
	}

	return idx.within(block).merge(local), nil
}
