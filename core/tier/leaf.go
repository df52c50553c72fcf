package tier

import "go.dedis.ch/tct/core/digest"

// Leaf is the innermost element of the tree. It holds a commitment.
//
// - implements tier.Element
type Leaf struct {
	commitment digest.Commitment
}

// NewLeaf returns the leaf of the commitment.
func NewLeaf(c digest.Commitment) Leaf {
	return Leaf{commitment: c}
}

// Commitment returns the commitment of the leaf.
func (l Leaf) Commitment() digest.Commitment {
	return l.commitment
}

// Hash implements tier.Element. It returns the leaf hash of the commitment.
func (l Leaf) Hash() digest.Hash {
	return digest.Of(l.commitment)
}

func (l Leaf) bits() uint {
	return 0
}

func (l Leaf) size() uint64 {
	return 1
}

func (l Leaf) forgotten() bool {
	return false
}

func (l Leaf) witness(pos uint64) ([]Siblings, digest.Hash, bool) {
	if pos != 0 {
		return nil, digest.Hash{}, false
	}

	return make([]Siblings, 0, 3*Height), l.Hash(), true
}

// Forgetting a leaf is done by the tier holding it, which replaces the slot by
// its summary.
func (l Leaf) forget(pos uint64) bool {
	return pos == 0
}
