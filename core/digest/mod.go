// Package digest defines the fixed-width values accumulated by the tree and
// the hash primitive combining them.
//
// Leaves and interior nodes are hashed with BLAKE2b-256 under distinct domain
// tags, and interior nodes also commit to their height so that a subtree can
// never be mistaken for a node of another level.
package digest

import (
	"encoding/hex"

	"go.dedis.ch/tct/crypto"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/xerrors"
)

// Size is the length in bytes of a hash and of a commitment.
const Size = 32

// Arity is the number of children of an interior node.
const Arity = 4

const (
	leafDomain byte = iota
	nodeDomain
)

// Hash is the digest of a leaf or of a subtree.
type Hash [Size]byte

// Commitment is the opaque value of a leaf.
type Commitment [Size]byte

// Empty is the hash of a slot that has never been filled. It is reserved for
// padding and no element ever hashes to it.
var Empty = Hash{}

// Vacant is the hash of a tier that was opened but holds nothing yet. It is a
// node hash at height 0, which no interior node uses.
var Vacant = Combine(0, [Arity]Hash{})

// Of returns the leaf hash of the commitment.
func Of(c Commitment) Hash {
	var data [1 + Size]byte
	data[0] = leafDomain
	copy(data[1:], c[:])

	return blake2b.Sum256(data[:])
}

// Combine returns the hash of an interior node at the given height from the
// hashes of its children, in order.
func Combine(height uint8, children [Arity]Hash) Hash {
	var data [2 + Arity*Size]byte
	data[0] = nodeDomain
	data[1] = height

	for i, child := range children {
		copy(data[2+i*Size:], child[:])
	}

	return blake2b.Sum256(data[:])
}

// Derive returns the commitment of an arbitrary payload, using the factory to
// produce the digest.
func Derive(fac crypto.HashFactory, data []byte) (Commitment, error) {
	h := fac.New()

	_, err := h.Write(data)
	if err != nil {
		return Commitment{}, xerrors.Errorf("failed to write: %v", err)
	}

	sum := h.Sum(nil)
	if len(sum) != Size {
		return Commitment{}, xerrors.Errorf("digest has size %d != %d", len(sum), Size)
	}

	var c Commitment
	copy(c[:], sum)

	return c, nil
}

// String implements fmt.Stringer. It returns the hexadecimal form.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// MarshalText implements encoding.TextMarshaler.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(text []byte) error {
	return decodeHex((*[Size]byte)(h), text)
}

// String implements fmt.Stringer. It returns the hexadecimal form.
func (c Commitment) String() string {
	return hex.EncodeToString(c[:])
}

// MarshalText implements encoding.TextMarshaler.
func (c Commitment) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Commitment) UnmarshalText(text []byte) error {
	return decodeHex((*[Size]byte)(c), text)
}

// ParseHash decodes a hash from its hexadecimal form.
func ParseHash(s string) (Hash, error) {
	var h Hash

	err := h.UnmarshalText([]byte(s))
	if err != nil {
		return h, err
	}

	return h, nil
}

// ParseCommitment decodes a commitment from its hexadecimal form.
func ParseCommitment(s string) (Commitment, error) {
	var c Commitment

	err := c.UnmarshalText([]byte(s))
	if err != nil {
		return c, err
	}

	return c, nil
}

func decodeHex(dst *[Size]byte, text []byte) error {
	if hex.DecodedLen(len(text)) != Size {
		return xerrors.Errorf("invalid length %d != %d", hex.DecodedLen(len(text)), Size)
	}

	_, err := hex.Decode(dst[:], text)
	if err != nil {
		return xerrors.Errorf("malformed hex: %v", err)
	}

	return nil
}
