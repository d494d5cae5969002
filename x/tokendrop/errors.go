package tokendrop

import (
	"github.com/iov-one/weave/errors"
)

var (
	// ErrGatingFailed is returned when the claimant does not satisfy the
	// eligibility policy configured on the drop.
	ErrGatingFailed = errors.Register(1100, "gating requirement not met")

	// ErrAlreadyClaimed is returned when a claim receipt for the claimant
	// already exists.
	ErrAlreadyClaimed = errors.Register(1101, "already claimed")

	// ErrNotTerminal is returned when an operation requires the drop to be
	// expired or exhausted.
	ErrNotTerminal = errors.Register(1102, "drop is still active")

	// ErrUnderfunded is returned when the paid amount does not cover the
	// required fees and storage rent.
	ErrUnderfunded = errors.Register(1103, "insufficient payment")
)
