package accumulator

import (
	"fmt"

	"go.dedis.ch/tct/core/digest"
	"go.dedis.ch/tct/core/tier"
)

// Proof is a proof of membership of a commitment in the accumulator. The
// authentication path goes from the leaf to the root, one set of siblings per
// level of the tree.
type Proof struct {
	Position   Position
	AuthPath   []tier.Siblings
	Commitment digest.Commitment
}

// EpochProof is a proof of membership of a commitment in an epoch.
type EpochProof Proof

// BlockProof is a proof of membership of a commitment in a block.
type BlockProof Proof

// Verify checks the proof against the root of an accumulator. It returns a
// *VerifyError if the proof is malformed or leads to another root.
func (p Proof) Verify(root Root) (VerifiedProof, error) {
	err := verify(p, eternityHeight, digest.Hash(root))
	if err != nil {
		return VerifiedProof{}, err
	}

	return VerifiedProof{proof: p, root: root}, nil
}

// Verify checks the proof against the root of an epoch.
func (p EpochProof) Verify(root EpochRoot) error {
	return verify(Proof(p), epochHeight, digest.Hash(root))
}

// Verify checks the proof against the root of a block.
func (p BlockProof) Verify(root BlockRoot) error {
	return verify(Proof(p), blockHeight, digest.Hash(root))
}

// VerifiedProof is a proof that has been checked against a root.
type VerifiedProof struct {
	proof Proof
	root  Root
}

// Proof returns the proof that was verified.
func (v VerifiedProof) Proof() Proof {
	return v.proof
}

// Root returns the root the proof was verified against.
func (v VerifiedProof) Root() Root {
	return v.root
}

// Commitment returns the commitment proven to be in the tree.
func (v VerifiedProof) Commitment() digest.Commitment {
	return v.proof.Commitment
}

// Position returns the position of the commitment.
func (v VerifiedProof) Position() Position {
	return v.proof.Position
}

func verify(p Proof, height int, root digest.Hash) error {
	if len(p.AuthPath) != height {
		return &VerifyError{
			Err:    ErrMalformedProof,
			Reason: fmt.Sprintf("expected %d sibling sets but got %d", height, len(p.AuthPath)),
		}
	}

	if uint64(p.Position)>>(2*height) != 0 {
		return &VerifyError{
			Err:    ErrMalformedProof,
			Reason: fmt.Sprintf("position %v is out of range", p.Position),
		}
	}

	computed := tier.Climb(uint64(p.Position), digest.Of(p.Commitment), p.AuthPath)
	if computed != root {
		return &VerifyError{
			Err:    ErrRootMismatch,
			Reason: fmt.Sprintf("computed %v but expected %v", computed, root),
		}
	}

	return nil
}
