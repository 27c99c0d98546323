package invoicing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/lorrybill/lorrybill/internal/platform/db"
)

var (
	// ErrInvalidInput reports malformed, empty or duplicate ids, bad dates or notes.
	ErrInvalidInput = errors.New("invoicing: invalid input")
	// ErrStaleReference reports transactions that are missing, foreign or already invoiced.
	ErrStaleReference = errors.New("invoicing: stale or foreign transaction reference")
	// ErrMixedGroup reports transactions spanning more than one buyer, site or item.
	ErrMixedGroup = errors.New("invoicing: transactions span more than one buyer, site or item")
	// ErrInvalidAmount reports a billable amount that is not positive or too large to store.
	ErrInvalidAmount = errors.New("invoicing: billable amount out of range")
	// ErrCalculation reports an amount that cannot be computed from stored values.
	ErrCalculation = errors.New("invoicing: amount calculation failed")
	// ErrNotFound reports an absent invoice or dependent master record.
	ErrNotFound = errors.New("invoicing: not found")
	// ErrCommitFailed reports an atomic unit that did not complete and left no
	// changes. CommitError.Retryable tells whether a retry can succeed.
	ErrCommitFailed = errors.New("invoicing: commit failed")
	// ErrInvalidStateTransition reports an operation not allowed in the invoice's status.
	ErrInvalidStateTransition = errors.New("invoicing: invalid state transition")
)

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func calculationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCalculation, fmt.Sprintf(format, args...))
}

// StaleReferenceError lists the requested transaction ids that could not be claimed.
type StaleReferenceError struct {
	IDs []uuid.UUID
}

func (e *StaleReferenceError) Error() string {
	ids := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		ids[i] = id.String()
	}
	return fmt.Sprintf("%s: %s", ErrStaleReference.Error(), strings.Join(ids, ", "))
}

// Is matches ErrStaleReference.
func (e *StaleReferenceError) Is(target error) bool {
	return target == ErrStaleReference
}

// MixedGroupError names the first transaction that disagrees with the group.
type MixedGroupError struct {
	TransactionID uuid.UUID
	Field         string
}

func (e *MixedGroupError) Error() string {
	return fmt.Sprintf("%s: transaction %s has a different %s", ErrMixedGroup.Error(), e.TransactionID, e.Field)
}

// Is matches ErrMixedGroup.
func (e *MixedGroupError) Is(target error) bool {
	return target == ErrMixedGroup
}

// CommitError wraps the cause of a failed atomic unit.
type CommitError struct {
	Op    string
	Cause error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrCommitFailed.Error(), e.Op, e.Cause)
}

// Is matches ErrCommitFailed.
func (e *CommitError) Is(target error) bool {
	return target == ErrCommitFailed
}

// Unwrap exposes the underlying cause.
func (e *CommitError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether running the operation again can succeed. Units
// that rejected their own input, or that the schema refused, fail the same
// way every time.
func (e *CommitError) Retryable() bool {
	switch {
	case errors.Is(e.Cause, ErrInvalidInput), errors.Is(e.Cause, ErrStaleReference),
		errors.Is(e.Cause, ErrMixedGroup), errors.Is(e.Cause, ErrInvalidAmount),
		errors.Is(e.Cause, ErrCalculation), errors.Is(e.Cause, ErrNotFound),
		errors.Is(e.Cause, ErrInvalidStateTransition):
		return false
	case db.IsCheckViolation(e.Cause), db.IsNumericOutOfRange(e.Cause):
		return false
	}
	return true
}

// outcome labels an operation result for metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrCommitFailed):
		var ce *CommitError
		if errors.As(err, &ce) && !ce.Retryable() {
			return "commit_rejected"
		}
		return "commit_failed"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrStaleReference):
		return "stale_reference"
	case errors.Is(err, ErrMixedGroup):
		return "mixed_group"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrCalculation):
		return "calculation_error"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidStateTransition):
		return "invalid_state"
	default:
		return "error"
	}
}
