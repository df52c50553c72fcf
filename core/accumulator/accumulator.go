package accumulator

import (
	"fmt"

	"github.com/rs/zerolog"
	"go.dedis.ch/tct"
	"go.dedis.ch/tct/core/digest"
	"go.dedis.ch/tct/core/tier"
)

// Accumulator is the whole commitment tree. Commitments are appended to the
// most recent block of the most recent epoch, and EndBlock and EndEpoch open
// new ones.
//
// Mutations must be serialized by the caller. Root, Witness and Len can be
// called concurrently with each other.
type Accumulator struct {
	index  index
	inner  *eternityTier
	logger zerolog.Logger
}

// Option is the type of the options to create an accumulator.
type Option func(*Accumulator)

// WithLogger is an option to use a different logger than the global one.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Accumulator) {
		a.logger = logger
	}
}

// New creates a new empty accumulator.
func New(opts ...Option) *Accumulator {
	return newAccumulator(tier.New[*epochTier](), make(index), opts...)
}

func newAccumulator(inner *eternityTier, idx index, opts ...Option) *Accumulator {
	a := &Accumulator{
		index:  idx,
		inner:  inner,
		logger: tct.Logger.With().Str("component", "accumulator").Logger(),
	}

	for _, opt := range opts {
		opt(a)
	}

	promWitnessed.Set(float64(len(a.index)))

	return a
}

// Root returns the root of the tree.
func (a *Accumulator) Root() Root {
	return Root(a.inner.Hash())
}

// Insert appends the commitment to the most recent block of the most recent
// epoch, opening them if the tree is empty. A kept commitment that was already
// witnessed is only witnessed at its new position afterwards.
//
// It returns an *InsertError when the commitment cannot be appended, in which
// case the tree is unchanged.
func (a *Accumulator) Insert(mode Mode, c digest.Commitment) error {
	a.openEpoch()

	epoch := Position(a.inner.Len()-1) << epochShift

	var replaced Position
	var found bool
	var cerr *CapacityError

	a.inner.Update(func(e *epochTier, ok bool) bool {
		if !ok {
			cerr = &CapacityError{Level: LevelEternity, Err: ErrChildForgotten}
			return false
		}

		replaced, found, cerr = insertIntoEpoch(e, indexMut{into: a.index}.within(epoch), mode, c)

		return cerr == nil
	})

	if cerr != nil {
		a.reject(*cerr)

		return &InsertError{
			CapacityError: *cerr,
			Commitment:    c,
		}
	}

	promInserts.WithLabelValues(mode.String()).Inc()

	if found {
		a.evict(replaced)
	}

	a.updateGauge()

	return nil
}

// InsertBlock closes the most recent block and appends the given one to the
// most recent epoch. The witnessed commitments of the block are witnessed in
// the tree afterwards. The block must not be used after a successful
// insertion.
//
// It returns an *InsertBlockError with the block when it cannot be appended.
func (a *Accumulator) InsertBlock(b *Block) error {
	err := a.insertBlock(tier.Full(b.inner), b.index)
	if err != nil {
		return &InsertBlockError{
			CapacityError: *err,
			Block:         b,
		}
	}

	return nil
}

// InsertBlockRoot closes the most recent block and appends a block known only
// by its root. It returns a CapacityError when the block cannot be appended,
// or ErrPaddingRoot.
func (a *Accumulator) InsertBlockRoot(root BlockRoot) error {
	if digest.Hash(root) == digest.Empty {
		return ErrPaddingRoot
	}

	err := a.insertBlock(tier.Summary[*blockTier](digest.Hash(root)), nil)
	if err != nil {
		return *err
	}

	return nil
}

// EndBlock closes the most recent block by opening an empty one.
func (a *Accumulator) EndBlock() error {
	return a.InsertBlock(NewBlock())
}

// InsertEpoch closes the most recent epoch and appends the given one. The
// witnessed commitments of the epoch are witnessed in the tree afterwards. The
// epoch must not be used after a successful insertion.
//
// It returns an *InsertEpochError with the epoch when the tree is full.
func (a *Accumulator) InsertEpoch(e *Epoch) error {
	err := a.insertEpoch(tier.Full(e.inner), e.index)
	if err != nil {
		return &InsertEpochError{
			CapacityError: *err,
			Epoch:         e,
		}
	}

	return nil
}

// InsertEpochRoot closes the most recent epoch and appends an epoch known only
// by its root. Nothing can be inserted afterwards until another epoch is
// opened. It returns a CapacityError when the tree is full, or ErrPaddingRoot.
func (a *Accumulator) InsertEpochRoot(root EpochRoot) error {
	if digest.Hash(root) == digest.Empty {
		return ErrPaddingRoot
	}

	err := a.insertEpoch(tier.Summary[*epochTier](digest.Hash(root)), nil)
	if err != nil {
		return *err
	}

	return nil
}

// EndEpoch closes the most recent epoch by opening an empty one.
func (a *Accumulator) EndEpoch() error {
	return a.InsertEpoch(NewEpoch())
}

// Witness returns a proof of membership of the commitment, or false if it is
// not witnessed.
func (a *Accumulator) Witness(c digest.Commitment) (Proof, bool) {
	return witness(a.inner, a.index, c)
}

// Forget drops the data needed to witness the commitment. It returns false if
// the commitment was not witnessed. The root does not change.
func (a *Accumulator) Forget(c digest.Commitment) bool {
	pos, found := a.index[c]
	if !found {
		return false
	}

	forget(a.inner, a.index, c)

	a.logger.Trace().Stringer("position", pos).Msg("commitment forgotten")

	promForgets.Inc()
	a.updateGauge()

	return true
}

// Len returns the number of commitment positions used by the tree. Blocks and
// epochs inserted by their root count as full, so the length never decreases.
func (a *Accumulator) Len() uint64 {
	return a.inner.Size()
}

// IsEmpty returns true if nothing has been inserted.
func (a *Accumulator) IsEmpty() bool {
	return a.inner.IsEmpty()
}

// Witnessed returns the number of commitments that can be witnessed.
func (a *Accumulator) Witnessed() int {
	return len(a.index)
}

// Position returns the position of a witnessed commitment.
func (a *Accumulator) Position(c digest.Commitment) (Position, bool) {
	pos, found := a.index[c]
	return pos, found
}

// openEpoch opens the first epoch of an empty tree.
func (a *Accumulator) openEpoch() {
	if a.inner.IsEmpty() {
		// An empty tier always accepts a slot.
		_ = a.inner.Insert(tier.Full(tier.New[*blockTier]()))
	}
}

func (a *Accumulator) insertBlock(slot tier.Retained[*blockTier], local index) *CapacityError {
	a.openEpoch()

	epoch := Position(a.inner.Len()-1) << epochShift

	var replaced []Position
	var cerr *CapacityError

	a.inner.Update(func(e *epochTier, ok bool) bool {
		if !ok {
			cerr = &CapacityError{Level: LevelEternity, Err: ErrChildForgotten}
			return false
		}

		var err *CapacityError
		replaced, err = insertBlockIntoEpoch(e, indexMut{into: a.index}.within(epoch), slot, local)
		if err != nil {
			cerr = &CapacityError{Level: LevelEternity, Err: ErrChildFull}
			return false
		}

		return true
	})

	if cerr != nil {
		a.reject(*cerr)
		return cerr
	}

	a.logger.Debug().
		Int("witnessed", len(local)).
		Int("replaced", len(replaced)).
		Msg("block inserted")

	for _, pos := range replaced {
		a.evict(pos)
	}

	a.updateGauge()

	return nil
}

func (a *Accumulator) insertEpoch(slot tier.Retained[*epochTier], local index) *CapacityError {
	epoch := Position(a.inner.Len()) << epochShift

	err := a.inner.Insert(slot)
	if err != nil {
		cerr := CapacityError{Level: LevelEternity, Err: ErrFull}
		a.reject(cerr)

		return &cerr
	}

	replaced := indexMut{into: a.index}.within(epoch).merge(local)

	a.logger.Debug().
		Int("witnessed", len(local)).
		Int("replaced", len(replaced)).
		Msg("epoch inserted")

	for _, pos := range replaced {
		a.evict(pos)
	}

	a.updateGauge()

	return nil
}

// evict forgets the older position of a commitment that was inserted again.
func (a *Accumulator) evict(pos Position) {
	mustForget(a.inner, pos)

	a.logger.Trace().Stringer("position", pos).Msg("older position evicted")

	promEvictions.Inc()
}

func (a *Accumulator) reject(err CapacityError) {
	a.logger.Debug().Err(err).Msg("insertion rejected")

	promInsertFailures.WithLabelValues(err.Level.String(), err.reason()).Inc()
}

func (a *Accumulator) updateGauge() {
	promWitnessed.Set(float64(len(a.index)))
}

// witness returns the proof of a commitment of the index, in the frame of the
// tier.
func witness[T tier.Element](t *tier.Tier[T], idx index, c digest.Commitment) (Proof, bool) {
	pos, found := idx[c]
	if !found {
		return Proof{}, false
	}

	path, _, ok := t.Witness(uint64(pos))
	if !ok {
		return Proof{}, false
	}

	return Proof{
		Position:   pos,
		AuthPath:   path,
		Commitment: c,
	}, true
}

// forget drops the commitment from the index and forgets its position in the
// tier.
func forget[T tier.Element](t *tier.Tier[T], idx index, c digest.Commitment) bool {
	pos, found := idx[c]
	if !found {
		return false
	}

	mustForget(t, pos)
	delete(idx, c)

	return true
}

// mustForget forgets a position that is known to be witnessable because it is
// in an index.
func mustForget[T tier.Element](t *tier.Tier[T], pos Position) {
	if !t.Forget(uint64(pos)) {
		panic(fmt.Sprintf("indexed position %v is not witnessable", pos))
	}
}
