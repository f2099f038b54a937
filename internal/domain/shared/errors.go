// Package shared holds types that cross component boundaries: the error
// taxonomy every service speaks, raw statement rows, and the messages
// exchanged over Kafka.
package shared

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ValidationError indicates malformed input. It is surfaced to the caller
// and never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// Is matches any ValidationError when the target carries no field, so callers
// can write errors.Is(err, shared.ValidationError{}).
func (e ValidationError) Is(target error) bool {
	t, ok := target.(ValidationError)
	if !ok {
		return false
	}
	return t.Field == "" || t.Field == e.Field
}

// NotFoundError indicates an unknown id, or one that exists outside the
// caller's organization. Cross-organization access deliberately reports
// not-found rather than forbidden so ids do not leak.
type NotFoundError struct {
	Resource string
	ID       uuid.UUID
}

func (e NotFoundError) Error() string {
	return e.Resource + " not found: " + e.ID.String()
}

func (e NotFoundError) Is(target error) bool {
	t, ok := target.(NotFoundError)
	if !ok {
		return false
	}
	if t.Resource != "" && t.Resource != e.Resource {
		return false
	}
	return t.ID == uuid.Nil || t.ID == e.ID
}

// InvalidStateError indicates an operation that is illegal in the entity's
// current state, such as importing into a completed statement or reversing
// a voided transaction.
type InvalidStateError struct {
	Resource string
	ID       uuid.UUID
	State    string
	Reason   string
}

func (e InvalidStateError) Error() string {
	return fmt.Sprintf("%s %s is %s: %s", e.Resource, e.ID, e.State, e.Reason)
}

func (e InvalidStateError) Is(target error) bool {
	t, ok := target.(InvalidStateError)
	if !ok {
		return false
	}
	if t.Resource != "" && t.Resource != e.Resource {
		return false
	}
	return t.ID == uuid.Nil || t.ID == e.ID
}

// ReconciliationMismatchError reports a failed completion balance check.
// The statement stays IN_PROGRESS; the caller may keep matching and retry.
type ReconciliationMismatchError struct {
	StatementID       uuid.UUID
	ReconciledBalance decimal.Decimal
	EndingBalance     decimal.Decimal
	Difference        decimal.Decimal
}

func (e ReconciliationMismatchError) Error() string {
	return fmt.Sprintf("statement %s does not reconcile: reconciled %s, ending %s, difference %s",
		e.StatementID, e.ReconciledBalance.StringFixed(2), e.EndingBalance.StringFixed(2), e.Difference.StringFixed(2))
}

func (e ReconciliationMismatchError) Is(target error) bool {
	t, ok := target.(ReconciliationMismatchError)
	if !ok {
		return false
	}
	return t.StatementID == uuid.Nil || t.StatementID == e.StatementID
}

// TransientError wraps store contention or timeout failures. The whole
// atomic operation is safe to retry.
type TransientError struct {
	Cause error
}

func (e TransientError) Error() string {
	return "transient store failure: " + e.Cause.Error()
}

func (e TransientError) Unwrap() error { return e.Cause }

func (e TransientError) Is(target error) bool {
	_, ok := target.(TransientError)
	return ok
}
