package tier

import "go.dedis.ch/tct/core/digest"

// Climb recomputes the hash at the top of an authentication path. The path is
// ordered from the leaf upward and the position tells, for every level, the
// place of the running hash among its siblings. It uses the same combination
// as the tiers, so the result is the root of the tree the path was extracted
// from.
func Climb(pos uint64, leaf digest.Hash, path []Siblings) digest.Hash {
	curr := leaf

	for k, siblings := range path {
		which := int(pos>>(2*k)) & (digest.Arity - 1)

		var children [digest.Arity]digest.Hash
		j := 0

		for m := range children {
			if m == which {
				children[m] = curr
				continue
			}

			children[m] = siblings[j]
			j++
		}

		curr = digest.Combine(uint8(k+1), children)
	}

	return curr
}
