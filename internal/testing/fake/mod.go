// Package fake provides fake implementations for interfaces commonly used in
// the repository.
// The implementations offer configuration to return errors when it is needed by
// the unit test.
package fake

import (
	"hash"

	"go.dedis.ch/tct/crypto"
	"golang.org/x/xerrors"
)

var fakeErr = xerrors.New("fake error")

// GetError returns the fake error.
func GetError() error {
	return fakeErr
}

// Err returns the expected error message produced when wrapping the fake
// error with the given prefix.
func Err(msg string) string {
	return msg + ": " + fakeErr.Error()
}

// Hash is a fake implementation of hash.Hash. Its sum is always empty.
//
// - implements hash.Hash
type Hash struct {
	hash.Hash
	err error
}

// NewBadHash returns a hash that fails on every write.
func NewBadHash() *Hash {
	return &Hash{err: fakeErr}
}

// Write implements hash.Hash.
func (h *Hash) Write([]byte) (int, error) {
	return 0, h.err
}

// Sum implements hash.Hash.
func (h *Hash) Sum([]byte) []byte {
	return nil
}

// HashFactory is a fake implementation of crypto.HashFactory.
//
// - implements crypto.HashFactory
type HashFactory struct {
	hash *Hash
}

// NewHashFactory returns a factory that always returns the given hash.
func NewHashFactory(h *Hash) HashFactory {
	return HashFactory{hash: h}
}

// New implements crypto.HashFactory.
func (f HashFactory) New() hash.Hash {
	return f.hash
}

var _ crypto.HashFactory = HashFactory{}
