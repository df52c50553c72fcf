package fake

import (
	"sort"

	"go.dedis.ch/tct/core/store/kv"
)

// DB is a fake implementation of kv.DB backed by a single in-memory bucket
// per name. Errors can be injected on the transactions and on the buckets.
//
// - implements kv.DB
type DB struct {
	buckets   map[string]*Bucket
	ErrView   error
	ErrUpdate error
	ErrCreate error
	// ErrSet is returned by every bucket on Set.
	ErrSet error
}

// NewDB returns a new empty fake database.
func NewDB() *DB {
	return &DB{buckets: make(map[string]*Bucket)}
}

// NewBadDB returns a database that fails on every transaction.
func NewBadDB() *DB {
	db := NewDB()
	db.ErrView = fakeErr
	db.ErrUpdate = fakeErr

	return db
}

// View implements kv.DB.
func (db *DB) View(fn func(kv.ReadableTx) error) error {
	if db.ErrView != nil {
		return db.ErrView
	}

	return fn(tx{db: db})
}

// Update implements kv.DB.
func (db *DB) Update(fn func(kv.WritableTx) error) error {
	if db.ErrUpdate != nil {
		return db.ErrUpdate
	}

	return fn(tx{db: db})
}

// Close implements kv.DB.
func (db *DB) Close() error {
	return nil
}

type tx struct {
	db *DB
}

func (t tx) GetBucket(name []byte) kv.Bucket {
	b, found := t.db.buckets[string(name)]
	if !found {
		return nil
	}

	return b
}

func (t tx) GetBucketOrCreate(name []byte) (kv.Bucket, error) {
	if t.db.ErrCreate != nil {
		return nil, t.db.ErrCreate
	}

	b, found := t.db.buckets[string(name)]
	if !found {
		b = &Bucket{values: make(map[string][]byte), db: t.db}
		t.db.buckets[string(name)] = b
	}

	return b, nil
}

func (t tx) OnCommit(fn func()) {
	fn()
}

// Bucket is a fake implementation of kv.Bucket.
//
// - implements kv.Bucket
type Bucket struct {
	kv.Bucket
	values map[string][]byte
	db     *DB
}

// Get implements kv.Bucket.
func (b *Bucket) Get(key []byte) []byte {
	return b.values[string(key)]
}

// Set implements kv.Bucket.
func (b *Bucket) Set(key, value []byte) error {
	if b.db.ErrSet != nil {
		return b.db.ErrSet
	}

	b.values[string(key)] = value

	return nil
}

// ForEach implements kv.Bucket. The keys are visited in lexicographic order.
func (b *Bucket) ForEach(fn func(key, value []byte) error) error {
	for _, key := range b.keys() {
		err := fn([]byte(key), b.values[key])
		if err != nil {
			return err
		}
	}

	return nil
}

// Last implements kv.Bucket.
func (b *Bucket) Last() ([]byte, []byte) {
	keys := b.keys()
	if len(keys) == 0 {
		return nil, nil
	}

	key := keys[len(keys)-1]

	return []byte(key), b.values[key]
}

func (b *Bucket) keys() []string {
	keys := make([]string, 0, len(b.values))
	for key := range b.values {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}
