package crypto

import (
	"crypto/sha256"
	"hash"

	"golang.org/x/crypto/sha3"
	"golang.org/x/xerrors"
)

// HashAlgorithm is the identifier of a supported hash algorithm.
type HashAlgorithm int

const (
	// Sha256 is the SHA2-256 algorithm.
	Sha256 HashAlgorithm = iota
	// Sha3_256 is the SHA3-256 algorithm.
	Sha3_256
)

var algorithmNames = map[string]HashAlgorithm{
	"sha256":   Sha256,
	"sha3-256": Sha3_256,
}

// ParseHashAlgorithm returns the algorithm associated with the name, as it
// appears in a configuration file.
func ParseHashAlgorithm(name string) (HashAlgorithm, error) {
	algo, found := algorithmNames[name]
	if !found {
		return 0, xerrors.Errorf("unknown hash algorithm '%s'", name)
	}

	return algo, nil
}

// hashFactory is a hash factory that is using SHA algorithms.
//
// - implements crypto.HashFactory
type hashFactory struct {
	hashType HashAlgorithm
}

// NewSha256Factory returns a new instance of the factory.
func NewSha256Factory() HashFactory {
	return hashFactory{Sha256}
}

// NewHashFactory returns a new instance of the factory.
func NewHashFactory(a HashAlgorithm) HashFactory {
	return hashFactory{a}
}

// New implements crypto.HashFactory. It returns a new Hash instance. Both
// algorithms produce 32-byte digests.
func (f hashFactory) New() hash.Hash {
	switch f.hashType {
	case Sha256:
		return sha256.New()
	case Sha3_256:
		return sha3.New256()
	default:
		panic("unknown hash type")
	}
}
