// Package kv defines the key/value database the tree is persisted to, and an
// implementation on top of bbolt (https://github.com/etcd-io/bbolt).
//
// Keys are ordered as byte strings. A caller that needs numeric order, like the
// heights of the anchors, encodes its keys in big-endian so that ForEach and
// Last follow it.
package kv

import "go.dedis.ch/tct/core/store"

// Bucket is a named collection of keys inside a transaction. Slices returned
// by a bucket are only valid during the transaction.
type Bucket interface {
	// Get returns the value of the key, or nil if it is not set.
	Get(key []byte) []byte

	// Set assigns the value to the key. It fails in a read-only transaction.
	Set(key, value []byte) error

	// ForEach calls the function with every pair by increasing key. It stops
	// and returns the first error of the function.
	ForEach(fn func(key, value []byte) error) error

	// Last returns the pair with the greatest key, or nil keys when the bucket
	// is empty.
	Last() (key, value []byte)
}

// ReadableTx is a read-only transaction.
type ReadableTx interface {
	// GetBucket returns the bucket, or nil if it was never created.
	GetBucket(name []byte) Bucket
}

// WritableTx is a transaction that can create buckets and write to them. The
// callbacks registered with OnCommit run once the writes are durable.
type WritableTx interface {
	store.Transaction

	ReadableTx

	// GetBucketOrCreate returns the bucket, creating it when necessary.
	GetBucketOrCreate(name []byte) (Bucket, error)
}

// DB is a key/value database. A transaction is committed when its function
// returns nil and rolled back otherwise.
type DB interface {
	View(fn func(ReadableTx) error) error

	Update(fn func(WritableTx) error) error

	// Close releases the database. Transactions fail afterwards.
	Close() error
}
