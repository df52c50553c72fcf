package accumulator

import (
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/tct/core/digest"
)

func TestMode_String(t *testing.T) {
	require.Equal(t, "keep", Keep.String())
	require.Equal(t, "discard", Discard.String())
	require.Equal(t, "Mode(5)", Mode(5).String())
}

func TestLevel_String(t *testing.T) {
	require.Equal(t, "block", LevelBlock.String())
	require.Equal(t, "epoch", LevelEpoch.String())
	require.Equal(t, "eternity", LevelEternity.String())
	require.Equal(t, "Level(-1)", Level(-1).String())
}

func TestPosition(t *testing.T) {
	f := func(epoch, block, offset uint16) bool {
		pos := NewPosition(epoch, block, offset)

		return pos.Epoch() == epoch && pos.Block() == block && pos.Offset() == offset &&
			uint64(pos)>>48 == 0
	}

	err := quick.Check(f, nil)
	require.NoError(t, err)

	require.Equal(t, "1/2/3", NewPosition(1, 2, 3).String())
}

func TestRoot_Text(t *testing.T) {
	root := Root(digest.Of(makeCommitment(1)))

	data, err := root.MarshalText()
	require.NoError(t, err)
	require.Equal(t, root.String(), string(data))

	var other Root
	require.NoError(t, other.UnmarshalText(data))
	require.Equal(t, root, other)

	require.Error(t, other.UnmarshalText([]byte("zz")))

	require.Equal(t, digest.Hash(root).String(), EpochRoot(root).String())
	require.Equal(t, digest.Hash(root).String(), BlockRoot(root).String())
}

func TestCapacityError_Error(t *testing.T) {
	require.EqualError(t, CapacityError{Level: LevelBlock, Err: ErrFull}, "block is full")
	require.EqualError(t, CapacityError{Level: LevelEpoch, Err: ErrChildFull},
		"most recent block of epoch is full")
	require.EqualError(t, CapacityError{Level: LevelEternity, Err: ErrChildForgotten},
		"most recent epoch of eternity was forgotten")
}

func TestIndexMut(t *testing.T) {
	idx := make(index)
	c := makeCommitment(1)

	m := indexMut{into: idx}.within(NewPosition(1, 0, 0)).within(NewPosition(0, 2, 0))

	_, found := m.record(c, 3)
	require.False(t, found)
	require.Equal(t, NewPosition(1, 2, 3), idx[c])

	prev, found := m.record(c, 4)
	require.True(t, found)
	require.Equal(t, NewPosition(1, 2, 3), prev)

	replaced := indexMut{into: idx}.within(NewPosition(2, 0, 0)).merge(index{
		c:                 NewPosition(0, 1, 1),
		makeCommitment(2): NewPosition(0, 0, 0),
	})

	require.Equal(t, []Position{NewPosition(1, 2, 4)}, replaced)
	require.Equal(t, NewPosition(2, 1, 1), idx[c])
	require.Equal(t, NewPosition(2, 0, 0), idx[makeCommitment(2)])
}
