package accumulator

import (
	"fmt"

	"go.dedis.ch/tct/core/digest"
	"golang.org/x/xerrors"
)

var (
	// ErrFull is the reason of a rejected insertion when the level has no
	// capacity left.
	ErrFull = xerrors.New("full")

	// ErrChildFull is the reason of a rejected insertion when the open child of
	// the level has no capacity left. A new child must be opened first.
	ErrChildFull = xerrors.New("child is full")

	// ErrChildForgotten is the reason of a rejected insertion when the open
	// child of the level was inserted as a root only. A new child must be
	// opened first.
	ErrChildForgotten = xerrors.New("child was forgotten")

	// ErrPaddingRoot is returned when inserting a block or an epoch by a root
	// equal to the padding hash, which no block or epoch can have.
	ErrPaddingRoot = xerrors.New("root is the padding hash")

	// ErrMalformedProof is the reason of a failed verification when the proof
	// does not have the shape of a proof for the tree.
	ErrMalformedProof = xerrors.New("malformed proof")

	// ErrRootMismatch is the reason of a failed verification when the proof is
	// well-formed but does not lead to the expected root.
	ErrRootMismatch = xerrors.New("root mismatch")
)

// CapacityError describes why an insertion was rejected at a level of the
// tree. Err is one of ErrFull, ErrChildFull or ErrChildForgotten.
type CapacityError struct {
	Level Level
	Err   error
}

// Error implements error. It returns a message such as "most recent block of
// epoch is full".
func (e CapacityError) Error() string {
	switch e.Err {
	case ErrChildFull:
		return fmt.Sprintf("most recent %v of %v is full", e.Level.child(), e.Level)
	case ErrChildForgotten:
		return fmt.Sprintf("most recent %v of %v was forgotten", e.Level.child(), e.Level)
	default:
		return fmt.Sprintf("%v is full", e.Level)
	}
}

// Unwrap returns the reason of the error.
func (e CapacityError) Unwrap() error {
	return e.Err
}

// reason returns the label of the reason used by the metrics.
func (e CapacityError) reason() string {
	switch e.Err {
	case ErrChildFull:
		return "child_full"
	case ErrChildForgotten:
		return "child_forgotten"
	default:
		return "full"
	}
}

// InsertError is returned when a commitment could not be inserted. The tree is
// left unchanged.
type InsertError struct {
	CapacityError
	Commitment digest.Commitment
}

// Error implements error.
func (e *InsertError) Error() string {
	return fmt.Sprintf("failed to insert %v: %v", e.Commitment, e.CapacityError.Error())
}

// InsertBlockError is returned when a block could not be inserted. The block
// is handed back untouched.
type InsertBlockError struct {
	CapacityError
	Block *Block
}

// Error implements error.
func (e *InsertBlockError) Error() string {
	return fmt.Sprintf("failed to insert block: %v", e.CapacityError.Error())
}

// InsertEpochError is returned when an epoch could not be inserted. The epoch
// is handed back untouched.
type InsertEpochError struct {
	CapacityError
	Epoch *Epoch
}

// Error implements error.
func (e *InsertEpochError) Error() string {
	return fmt.Sprintf("failed to insert epoch: %v", e.CapacityError.Error())
}

// VerifyError is returned when a proof does not verify against a root.
type VerifyError struct {
	// Err is either ErrMalformedProof or ErrRootMismatch.
	Err    error
	Reason string
}

// Error implements error.
func (e *VerifyError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Reason)
}

// Unwrap returns the kind of failure.
func (e *VerifyError) Unwrap() error {
	return e.Err
}
