package guardrails

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrReconciliation matches any *ReconciliationError via errors.Is
	ErrReconciliation = errors.New("guardrail reconciliation failed")

	// ErrViolation matches any *ViolationError via errors.Is
	ErrViolation = errors.New("guardrail violation")
)

// ReconciliationError lists every enabled custom guardrail type that has no
// implementation. It is only returned at construction time.
type ReconciliationError struct {
	Missing []string
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("missing guardrail implementations for types: %s", strings.Join(e.Missing, ", "))
}

func (e *ReconciliationError) Is(target error) bool {
	return target == ErrReconciliation
}

// ViolationError carries the failing outcome that escalated to an error
type ViolationError struct {
	Outcome Outcome
}

func (e *ViolationError) Error() string {
	msg := e.Outcome.Message
	if msg == "" {
		msg = "validation failed"
	}
	return fmt.Sprintf("guardrail %s violated: %s", e.Outcome.ValidatorType, msg)
}

func (e *ViolationError) Is(target error) bool {
	return target == ErrViolation
}

// UnresolvedError is returned by the direct evaluation path when a
// descriptor names a type that is neither built-in nor supplied
type UnresolvedError struct {
	Type string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("no implementation for guardrail type %q", e.Type)
}

func (e *UnresolvedError) Is(target error) bool {
	return target == ErrReconciliation
}
