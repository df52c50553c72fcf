package tier

import "go.dedis.ch/tct/core/digest"

// Retained is a slot of a tier. It either holds a full element that can still
// be witnessed, or only the hash of an element that has been forgotten. Both
// forms contribute the same hash to the tier.
type Retained[T Element] struct {
	item T
	hash digest.Hash
	kept bool
}

// Full returns a slot holding the whole element.
func Full[T Element](item T) Retained[T] {
	return Retained[T]{item: item, kept: true}
}

// Summary returns a slot holding only the hash of an element.
func Summary[T Element](hash digest.Hash) Retained[T] {
	return Retained[T]{hash: hash}
}

// Get returns the element and true if the slot is full, otherwise the zero
// value and false.
func (r Retained[T]) Get() (T, bool) {
	return r.item, r.kept
}

// IsFull returns true if the element of the slot is materialized.
func (r Retained[T]) IsFull() bool {
	return r.kept
}

// Hash returns the hash contributed by the slot.
func (r Retained[T]) Hash() digest.Hash {
	if r.kept {
		return r.item.Hash()
	}

	return r.hash
}
