package accumulator

import (
	"encoding/json"

	"go.dedis.ch/tct/core/digest"
	"go.dedis.ch/tct/core/tier"
	"golang.org/x/xerrors"
)

// SnapshotVersion is the version of the snapshot format.
const SnapshotVersion = 1

// SlotJSON is the JSON message of a slot of a tier. Exactly one field is set:
// the hash of a forgotten element, a kept commitment, or a nested tier.
type SlotJSON struct {
	Summary *digest.Hash       `json:",omitempty"`
	Leaf    *digest.Commitment `json:",omitempty"`
	Tier    *TierJSON          `json:",omitempty"`
}

// TierJSON is the JSON message of a tier.
type TierJSON struct {
	Slots []SlotJSON
}

// SnapshotJSON is the JSON message of a whole accumulator. The root is stored
// to detect a corrupted snapshot.
type SnapshotJSON struct {
	Version int
	Root    Root
	Tier    TierJSON
}

// Serialize returns the snapshot of the accumulator. Forgotten elements are
// stored by their hash only, and the index is not stored as it can be
// recovered from the kept commitments.
func (a *Accumulator) Serialize() ([]byte, error) {
	m := SnapshotJSON{
		Version: SnapshotVersion,
		Root:    a.Root(),
		Tier:    encodeTier(a.inner, encodeEpoch),
	}

	data, err := json.Marshal(m)
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal: %v", err)
	}

	return data, nil
}

// Deserialize restores an accumulator from its snapshot.
func Deserialize(data []byte, opts ...Option) (*Accumulator, error) {
	var m SnapshotJSON

	err := json.Unmarshal(data, &m)
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal: %v", err)
	}

	if m.Version != SnapshotVersion {
		return nil, xerrors.Errorf("unsupported version %d", m.Version)
	}

	inner, err := decodeTier(m.Tier, decodeEpoch)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode tree: %v", err)
	}

	root := Root(inner.Hash())
	if root != m.Root {
		return nil, xerrors.Errorf("root mismatch: %v != %v", root, m.Root)
	}

	idx := make(index)

	err = indexTier(inner, 0, epochShift, idx, indexEpoch)
	if err != nil {
		return nil, xerrors.Errorf("failed to index: %v", err)
	}

	return newAccumulator(inner, idx, opts...), nil
}

// Serialize returns the snapshot of the epoch.
func (e *Epoch) Serialize() ([]byte, error) {
	data, err := json.Marshal(encodeTier(e.inner, encodeBlock))
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal: %v", err)
	}

	return data, nil
}

// DeserializeEpoch restores an epoch from its snapshot.
func DeserializeEpoch(data []byte) (*Epoch, error) {
	var m TierJSON

	err := json.Unmarshal(data, &m)
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal: %v", err)
	}

	inner, err := decodeTier(m, decodeBlock)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode epoch: %v", err)
	}

	idx := make(index)

	err = indexEpoch(inner, 0, idx)
	if err != nil {
		return nil, xerrors.Errorf("failed to index: %v", err)
	}

	return &Epoch{index: idx, inner: inner}, nil
}

// Serialize returns the snapshot of the block.
func (b *Block) Serialize() ([]byte, error) {
	data, err := json.Marshal(encodeTier(b.inner, encodeLeaf))
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal: %v", err)
	}

	return data, nil
}

// DeserializeBlock restores a block from its snapshot.
func DeserializeBlock(data []byte) (*Block, error) {
	var m TierJSON

	err := json.Unmarshal(data, &m)
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal: %v", err)
	}

	inner, err := decodeTier(m, decodeLeaf)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode block: %v", err)
	}

	idx := make(index)

	err = indexBlock(inner, 0, idx)
	if err != nil {
		return nil, xerrors.Errorf("failed to index: %v", err)
	}

	return &Block{index: idx, inner: inner}, nil
}

func encodeTier[T tier.Element](t *tier.Tier[T], encode func(T) SlotJSON) TierJSON {
	m := TierJSON{Slots: make([]SlotJSON, 0, t.Len())}

	t.ForEach(func(slot tier.Retained[T]) error {
		item, ok := slot.Get()
		if !ok {
			hash := slot.Hash()
			m.Slots = append(m.Slots, SlotJSON{Summary: &hash})
		} else {
			m.Slots = append(m.Slots, encode(item))
		}

		return nil
	})

	return m
}

func encodeLeaf(leaf tier.Leaf) SlotJSON {
	c := leaf.Commitment()

	return SlotJSON{Leaf: &c}
}

func encodeBlock(b *blockTier) SlotJSON {
	m := encodeTier(b, encodeLeaf)

	return SlotJSON{Tier: &m}
}

func encodeEpoch(e *epochTier) SlotJSON {
	m := encodeTier(e, encodeBlock)

	return SlotJSON{Tier: &m}
}

func decodeTier[T tier.Element](m TierJSON, decode func(SlotJSON) (T, error)) (*tier.Tier[T], error) {
	if len(m.Slots) > tier.Capacity {
		return nil, xerrors.Errorf("too many slots: %d > %d", len(m.Slots), tier.Capacity)
	}

	t := tier.New[T]()

	for i, slot := range m.Slots {
		if slot.fields() > 1 {
			return nil, xerrors.Errorf("slot %d: more than one field set", i)
		}

		var retained tier.Retained[T]

		if slot.Summary != nil {
			retained = tier.Summary[T](*slot.Summary)
		} else {
			item, err := decode(slot)
			if err != nil {
				return nil, xerrors.Errorf("slot %d: %v", i, err)
			}

			retained = tier.Full(item)
		}

		err := t.Insert(retained)
		if err != nil {
			return nil, xerrors.Errorf("slot %d: %v", i, err)
		}
	}

	return t, nil
}

func (m SlotJSON) fields() int {
	n := 0

	if m.Summary != nil {
		n++
	}
	if m.Leaf != nil {
		n++
	}
	if m.Tier != nil {
		n++
	}

	return n
}

func decodeLeaf(m SlotJSON) (tier.Leaf, error) {
	if m.Leaf == nil {
		return tier.Leaf{}, xerrors.New("commitment expected")
	}

	return tier.NewLeaf(*m.Leaf), nil
}

func decodeBlock(m SlotJSON) (*blockTier, error) {
	if m.Tier == nil {
		return nil, xerrors.New("block expected")
	}

	return decodeTier(*m.Tier, decodeLeaf)
}

func decodeEpoch(m SlotJSON) (*epochTier, error) {
	if m.Tier == nil {
		return nil, xerrors.New("epoch expected")
	}

	return decodeTier(*m.Tier, decodeBlock)
}

// indexTier walks the full slots of the tier and calls the function with the
// position of each of them.
func indexTier[T tier.Element](t *tier.Tier[T], prefix Position, shift uint, idx index,
	fn func(T, Position, index) error) error {

	i := 0

	return t.ForEach(func(slot tier.Retained[T]) error {
		pos := prefix | Position(i)<<shift
		i++

		item, ok := slot.Get()
		if !ok {
			return nil
		}

		return fn(item, pos, idx)
	})
}

func indexEpoch(e *epochTier, prefix Position, idx index) error {
	return indexTier(e, prefix, blockShift, idx, indexBlock)
}

func indexBlock(b *blockTier, prefix Position, idx index) error {
	return indexTier(b, prefix, 0, idx, func(leaf tier.Leaf, pos Position, idx index) error {
		_, found := idx[leaf.Commitment()]
		if found {
			return xerrors.Errorf("commitment %v is kept twice", leaf.Commitment())
		}

		idx[leaf.Commitment()] = pos

		return nil
	})
}
