package harness

import (
	"errors"
	"fmt"
)

var (
	// ErrInvariantViolation is matched by every *InvariantViolation.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrNilSystem is returned when Run is called without a system.
	ErrNilSystem = errors.New("system under test is nil")
)

// InvariantViolation reports a prediction generated for a different query
// than the one it was requested for.
type InvariantViolation struct {
	System            string
	QueryID           string
	PredictionQueryID string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation: system %q returned a prediction for query %q while evaluating %q",
		e.System, e.PredictionQueryID, e.QueryID)
}

// Is lets errors.Is(err, ErrInvariantViolation) match.
func (e *InvariantViolation) Is(target error) bool {
	return target == ErrInvariantViolation
}
