// Package crypto defines the hash primitives used to derive commitments from
// arbitrary payloads before they are accumulated.
//
// The tree itself hashes with a fixed primitive defined in core/digest; the
// factories of this package only decide how a caller turns its data into a
// 32-byte commitment.
package crypto

import "hash"

// HashFactory is an interface to produce a hash digest.
type HashFactory interface {
	New() hash.Hash
}
