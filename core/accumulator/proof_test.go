package accumulator

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

func TestProof_Verify(t *testing.T) {
	acc := New()

	require.NoError(t, acc.Insert(Keep, makeCommitment(1)))
	require.NoError(t, acc.EndEpoch())
	require.NoError(t, acc.Insert(Discard, makeCommitment(2)))
	require.NoError(t, acc.Insert(Keep, makeCommitment(3)))

	root := acc.Root()

	proof, ok := acc.Witness(makeCommitment(3))
	require.True(t, ok)

	verified, err := proof.Verify(root)
	require.NoError(t, err)
	require.Equal(t, root, verified.Root())
	require.Equal(t, makeCommitment(3), verified.Commitment())
	require.Equal(t, NewPosition(1, 0, 1), verified.Position())
	require.Equal(t, proof, verified.Proof())
}

func TestProof_Verify_Malformed(t *testing.T) {
	acc := New()
	require.NoError(t, acc.Insert(Keep, makeCommitment(1)))

	proof, _ := acc.Witness(makeCommitment(1))

	short := proof
	short.AuthPath = proof.AuthPath[:len(proof.AuthPath)-1]

	_, err := short.Verify(acc.Root())
	require.True(t, xerrors.Is(err, ErrMalformedProof))
	require.EqualError(t, err, "malformed proof: expected 24 sibling sets but got 23")

	block := BlockProof(proof)
	block.AuthPath = proof.AuthPath[:8]
	block.Position = 1 << 16

	err = block.Verify(BlockRoot{})
	require.EqualError(t, err, "malformed proof: position 0/1/0 is out of range")

	var verifyErr *VerifyError
	require.True(t, xerrors.As(err, &verifyErr))
	require.Equal(t, ErrMalformedProof, verifyErr.Err)
}

func TestProof_Verify_Mismatch(t *testing.T) {
	acc := New()
	require.NoError(t, acc.Insert(Keep, makeCommitment(1)))
	require.NoError(t, acc.Insert(Keep, makeCommitment(2)))

	root := acc.Root()

	proof, _ := acc.Witness(makeCommitment(1))

	wrong := proof
	wrong.Commitment = makeCommitment(2)

	_, err := wrong.Verify(root)
	require.True(t, xerrors.Is(err, ErrRootMismatch))

	moved := proof
	moved.Position = NewPosition(0, 0, 1)

	_, err = moved.Verify(root)
	require.True(t, xerrors.Is(err, ErrRootMismatch))

	// Verification does not alter the tree.
	require.Equal(t, root, acc.Root())
	require.Equal(t, 2, acc.Witnessed())
}
