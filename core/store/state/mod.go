// Package state implements the persistent storage of the commitment tree. It
// stores the latest snapshot of the tree and the history of its roots, called
// anchors, to a key/value database.
package state

import (
	"encoding/binary"
	"sync"

	"github.com/rs/zerolog"
	"go.dedis.ch/tct"
	"go.dedis.ch/tct/core/accumulator"
	"go.dedis.ch/tct/core/digest"
	"go.dedis.ch/tct/core/store/kv"
	"golang.org/x/xerrors"
)

var snapshotKey = []byte("latest")

// Anchor is the root of the tree at a given height.
type Anchor struct {
	Height uint64
	Root   accumulator.Root
}

// Store is the persistent storage of a commitment tree.
type Store struct {
	sync.Mutex

	db        kv.DB
	snapshots []byte
	anchors   []byte
	logger    zerolog.Logger
}

// Option is the type of the options to create a store.
type Option func(*Store)

// WithLogger is an option to use a different logger than the global one.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a new store on top of the database.
func NewStore(db kv.DB, opts ...Option) *Store {
	s := &Store{
		db:        db,
		snapshots: []byte("snapshots"),
		anchors:   []byte("anchors"),
		logger:    tct.Logger.With().Str("component", "store").Logger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Load reads the latest snapshot of the tree. It returns an empty tree if
// nothing was saved yet.
func (s *Store) Load(opts ...accumulator.Option) (*accumulator.Accumulator, error) {
	s.Lock()
	defer s.Unlock()

	var acc *accumulator.Accumulator

	err := s.db.View(func(tx kv.ReadableTx) error {
		bucket := tx.GetBucket(s.snapshots)
		if bucket == nil {
			return nil
		}

		data := bucket.Get(snapshotKey)
		if data == nil {
			return nil
		}

		var err error
		acc, err = accumulator.Deserialize(data, opts...)
		if err != nil {
			return xerrors.Errorf("malformed snapshot: %v", err)
		}

		return nil
	})

	if err != nil {
		return nil, xerrors.Errorf("failed to read snapshot: %v", err)
	}

	if acc == nil {
		acc = accumulator.New(opts...)
	}

	return acc, nil
}

// Save writes the snapshot of the tree.
func (s *Store) Save(acc *accumulator.Accumulator) error {
	data, err := acc.Serialize()
	if err != nil {
		return xerrors.Errorf("failed to serialize: %v", err)
	}

	s.Lock()
	defer s.Unlock()

	err = s.db.Update(func(tx kv.WritableTx) error {
		return s.writeSnapshot(tx, data)
	})

	if err != nil {
		return xerrors.Errorf("failed to write snapshot: %v", err)
	}

	return nil
}

// Commit writes the snapshot of the tree and appends its root to the anchors
// at the next height, in a single transaction. It returns the new anchor.
func (s *Store) Commit(acc *accumulator.Accumulator) (Anchor, error) {
	data, err := acc.Serialize()
	if err != nil {
		return Anchor{}, xerrors.Errorf("failed to serialize: %v", err)
	}

	s.Lock()
	defer s.Unlock()

	var anchor Anchor

	err = s.db.Update(func(tx kv.WritableTx) error {
		last, found, err := s.readLastAnchor(tx)
		if err != nil {
			return err
		}

		anchor = Anchor{Root: acc.Root()}
		if found {
			anchor.Height = last.Height + 1
		}

		err = s.writeSnapshot(tx, data)
		if err != nil {
			return err
		}

		return s.writeAnchor(tx, anchor)
	})

	if err != nil {
		return Anchor{}, xerrors.Errorf("failed to commit: %v", err)
	}

	return anchor, nil
}

// PutAnchor stores the root at the given height. Heights must be strictly
// increasing.
func (s *Store) PutAnchor(height uint64, root accumulator.Root) error {
	s.Lock()
	defer s.Unlock()

	err := s.db.Update(func(tx kv.WritableTx) error {
		last, found, err := s.readLastAnchor(tx)
		if err != nil {
			return err
		}

		if found && height <= last.Height {
			return xerrors.Errorf("height %d is not after %d", height, last.Height)
		}

		return s.writeAnchor(tx, Anchor{Height: height, Root: root})
	})

	if err != nil {
		return xerrors.Errorf("failed to store anchor: %v", err)
	}

	return nil
}

// GetAnchor returns the root stored at the given height.
func (s *Store) GetAnchor(height uint64) (accumulator.Root, error) {
	var root accumulator.Root

	err := s.db.View(func(tx kv.ReadableTx) error {
		bucket := tx.GetBucket(s.anchors)
		if bucket == nil {
			return xerrors.Errorf("anchor %d not found", height)
		}

		value := bucket.Get(makeKey(height))
		if value == nil {
			return xerrors.Errorf("anchor %d not found", height)
		}

		var err error
		root, err = parseRoot(value)

		return err
	})

	if err != nil {
		return root, xerrors.Errorf("failed to read anchor: %v", err)
	}

	return root, nil
}

// LastAnchor returns the anchor with the highest height, or false if there is
// none.
func (s *Store) LastAnchor() (Anchor, bool, error) {
	var anchor Anchor
	var found bool

	err := s.db.View(func(tx kv.ReadableTx) error {
		var err error
		anchor, found, err = s.readLastAnchor(tx)

		return err
	})

	if err != nil {
		return anchor, false, xerrors.Errorf("failed to read anchors: %v", err)
	}

	return anchor, found, nil
}

// ForEachAnchor calls the function with every anchor by increasing height. The
// iteration stops at the first error.
func (s *Store) ForEachAnchor(fn func(Anchor) error) error {
	return s.db.View(func(tx kv.ReadableTx) error {
		bucket := tx.GetBucket(s.anchors)
		if bucket == nil {
			return nil
		}

		return bucket.ForEach(func(key, value []byte) error {
			anchor, err := parseAnchor(key, value)
			if err != nil {
				return err
			}

			return fn(anchor)
		})
	})
}

func (s *Store) writeSnapshot(tx kv.WritableTx, data []byte) error {
	bucket, err := tx.GetBucketOrCreate(s.snapshots)
	if err != nil {
		return xerrors.Errorf("bucket failed: %v", err)
	}

	err = bucket.Set(snapshotKey, data)
	if err != nil {
		return xerrors.Errorf("while writing: %v", err)
	}

	return nil
}

func (s *Store) writeAnchor(tx kv.WritableTx, anchor Anchor) error {
	bucket, err := tx.GetBucketOrCreate(s.anchors)
	if err != nil {
		return xerrors.Errorf("bucket failed: %v", err)
	}

	err = bucket.Set(makeKey(anchor.Height), anchor.Root[:])
	if err != nil {
		return xerrors.Errorf("while writing: %v", err)
	}

	tx.OnCommit(func() {
		s.logger.Debug().
			Uint64("height", anchor.Height).
			Stringer("root", anchor.Root).
			Msg("anchor stored")
	})

	return nil
}

// readLastAnchor returns the anchor of the greatest key, which is the highest
// height as the keys are big-endian.
func (s *Store) readLastAnchor(tx kv.ReadableTx) (Anchor, bool, error) {
	bucket := tx.GetBucket(s.anchors)
	if bucket == nil {
		return Anchor{}, false, nil
	}

	key, value := bucket.Last()
	if key == nil {
		return Anchor{}, false, nil
	}

	anchor, err := parseAnchor(key, value)
	if err != nil {
		return Anchor{}, false, xerrors.Errorf("last anchor: %v", err)
	}

	return anchor, true, nil
}

func makeKey(height uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, height)

	return key
}

func parseAnchor(key, value []byte) (Anchor, error) {
	if len(key) != 8 {
		return Anchor{}, xerrors.Errorf("malformed key of length %d", len(key))
	}

	root, err := parseRoot(value)
	if err != nil {
		return Anchor{}, err
	}

	return Anchor{Height: binary.BigEndian.Uint64(key), Root: root}, nil
}

func parseRoot(value []byte) (accumulator.Root, error) {
	var root accumulator.Root

	if len(value) != digest.Size {
		return root, xerrors.Errorf("malformed root of length %d", len(value))
	}

	copy(root[:], value)

	return root, nil
}
