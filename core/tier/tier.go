package tier

import (
	"sync"

	"go.dedis.ch/tct/core/digest"
)

// Tier is an append-only sequence of up to 65,536 slots. Only the last slot is
// open: it is the only one whose element can still change through Update.
//
// Mutations require an exclusive access to the tier. Reads can run
// concurrently because the hash cache is populated under an internal lock.
//
// - implements tier.Element
type Tier[T Element] struct {
	slots []Retained[T]
	// kept is the number of full slots.
	kept int

	mu sync.Mutex
	// fresh is the number of leading slots whose hashes, and the hashes of
	// their ancestors, are cached.
	fresh  int
	levels [Height + 1][]digest.Hash
}

// New creates a new empty tier.
func New[T Element]() *Tier[T] {
	return &Tier[T]{}
}

// Len returns the number of slots.
func (t *Tier[T]) Len() int {
	return len(t.slots)
}

// IsEmpty returns true if no slot has been appended.
func (t *Tier[T]) IsEmpty() bool {
	return len(t.slots) == 0
}

// Size returns the number of leaf positions covered by the tier. A summary
// slot is counted as if its element was full because its real occupancy is
// unknown, which keeps the size monotonic.
func (t *Tier[T]) Size() uint64 {
	return t.size()
}

// Focus returns the open slot, or false if the tier is empty.
func (t *Tier[T]) Focus() (Retained[T], bool) {
	if len(t.slots) == 0 {
		return Retained[T]{}, false
	}

	return t.slots[len(t.slots)-1], true
}

// Insert appends the slot and closes the previous one. It returns ErrFull if
// the tier has no capacity left, or ErrPadding if the slot is a summary of
// digest.Empty, in which case the tier is untouched.
func (t *Tier[T]) Insert(slot Retained[T]) error {
	n := len(t.slots)
	if n >= Capacity {
		return ErrFull
	}

	if !slot.kept && slot.hash == digest.Empty {
		return ErrPadding
	}

	if n > 0 {
		prev := &t.slots[n-1]

		if prev.kept && t.childBits() > 0 && prev.item.forgotten() {
			t.collapse(n - 1)
		}
	}

	t.slots = append(t.slots, slot)

	if slot.kept {
		t.kept++
	}

	return nil
}

// Update calls the function with the element of the open slot and true when
// the slot is full, otherwise with the zero value and false. When the function
// returns true, the open slot is considered modified and its hash will be
// recomputed. The element is only modified in place when T is a pointer.
func (t *Tier[T]) Update(fn func(item T, ok bool) bool) {
	n := len(t.slots)

	if n == 0 || !t.slots[n-1].kept {
		var zero T
		fn(zero, false)
		return
	}

	if fn(t.slots[n-1].item, true) {
		t.mu.Lock()
		if t.fresh > n-1 {
			t.fresh = n - 1
		}
		t.mu.Unlock()
	}
}

// Hash implements tier.Element. It returns the root of the tier, computing
// the hashes that changed since the last call.
func (t *Tier[T]) Hash() digest.Hash {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.refresh()

	if len(t.slots) == 0 {
		return digest.Vacant
	}

	return t.levels[Height][0]
}

// Witness returns the authentication path from the leaf at the position to
// the root of the tier, and the hash of that leaf. It returns false if the
// position is not filled or if a summary lies on the path.
func (t *Tier[T]) Witness(pos uint64) ([]Siblings, digest.Hash, bool) {
	return t.witness(pos)
}

// Forget replaces the leaf at the position by its summary. Child tiers left
// without any witnessable leaf are summarized as well, unless they are open.
// It returns true if the leaf was witnessable. No hash is ever changed.
func (t *Tier[T]) Forget(pos uint64) bool {
	return t.forget(pos)
}

// ForEach calls the function with every slot in order. The iteration stops at
// the first error which is then returned.
func (t *Tier[T]) ForEach(fn func(Retained[T]) error) error {
	for _, slot := range t.slots {
		err := fn(slot)
		if err != nil {
			return err
		}
	}

	return nil
}

func (t *Tier[T]) bits() uint {
	return Width + t.childBits()
}

func (t *Tier[T]) childBits() uint {
	var child T
	return child.bits()
}

func (t *Tier[T]) size() uint64 {
	n := len(t.slots)
	if n == 0 {
		return 0
	}

	cb := t.childBits()
	last := t.slots[n-1]

	tail := uint64(1) << cb
	if last.kept {
		tail = last.item.size()
	}

	return uint64(n-1)<<cb + tail
}

func (t *Tier[T]) forgotten() bool {
	switch t.kept {
	case 0:
		return true
	case 1:
		last := t.slots[len(t.slots)-1]
		return last.kept && t.childBits() > 0 && last.item.forgotten()
	default:
		return false
	}
}

func (t *Tier[T]) witness(pos uint64) ([]Siblings, digest.Hash, bool) {
	i, inner, ok := t.locate(pos)
	if !ok || !t.slots[i].kept {
		return nil, digest.Hash{}, false
	}

	path, leaf, ok := t.slots[i].item.witness(inner)
	if !ok {
		return nil, digest.Hash{}, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.refresh()

	for k := 0; k < Height; k++ {
		path = append(path, t.siblings(k, i>>(2*k)))
	}

	return path, leaf, true
}

func (t *Tier[T]) forget(pos uint64) bool {
	i, inner, ok := t.locate(pos)
	if !ok || !t.slots[i].kept {
		return false
	}

	if t.childBits() == 0 {
		t.collapse(i)
		return true
	}

	slot := t.slots[i]

	if !slot.item.forget(inner) {
		return false
	}

	if i != len(t.slots)-1 && slot.item.forgotten() {
		t.collapse(i)
	}

	return true
}

// locate splits the position into the slot index and the position inside the
// element of that slot.
func (t *Tier[T]) locate(pos uint64) (int, uint64, bool) {
	cb := t.childBits()

	if pos>>(cb+Width) != 0 {
		return 0, 0, false
	}

	i := int(pos >> cb)
	if i >= len(t.slots) {
		return 0, 0, false
	}

	return i, pos & (uint64(1)<<cb - 1), true
}

func (t *Tier[T]) collapse(i int) {
	t.slots[i] = Summary[T](t.slots[i].item.Hash())
	t.kept--
}

// refresh recomputes the cached hashes of the slots that changed and of their
// ancestors. The lock must be held.
func (t *Tier[T]) refresh() {
	n := len(t.slots)
	if t.fresh >= n {
		return
	}

	from := t.fresh

	t.levels[0] = grow(t.levels[0], n)
	for i := from; i < n; i++ {
		t.levels[0][i] = t.slots[i].Hash()
	}

	base := uint8(t.childBits() / 2)
	width := n

	for k := 1; k <= Height; k++ {
		from >>= 2
		width = (width + digest.Arity - 1) / digest.Arity

		below := t.levels[k-1]
		t.levels[k] = grow(t.levels[k], width)

		for j := from; j < width; j++ {
			var children [digest.Arity]digest.Hash

			for m := range children {
				c := j*digest.Arity + m
				if c < len(below) {
					children[m] = below[c]
				} else {
					children[m] = digest.Empty
				}
			}

			t.levels[k][j] = digest.Combine(base+uint8(k), children)
		}
	}

	t.fresh = n
}

// siblings returns the hashes of the other children of the parent of the node
// at the given level and index. The lock must be held and the cache fresh.
func (t *Tier[T]) siblings(level, index int) Siblings {
	var res Siblings

	first := index &^ (digest.Arity - 1)
	nodes := t.levels[level]
	j := 0

	for m := 0; m < digest.Arity; m++ {
		if first+m == index {
			continue
		}

		if first+m < len(nodes) {
			res[j] = nodes[first+m]
		} else {
			res[j] = digest.Empty
		}
		j++
	}

	return res
}

func grow(s []digest.Hash, n int) []digest.Hash {
	if cap(s) >= n {
		return s[:n]
	}

	return append(s[:cap(s)], make([]digest.Hash, n-cap(s))...)
}
