package prompt

import (
	"errors"
	"fmt"
)

var (
	// ErrRender matches any *RenderError via errors.Is
	ErrRender = errors.New("render failed")

	// ErrValidation matches any *VariableError via errors.Is
	ErrValidation = errors.New("variable validation failed")
)

// RenderErrorKind classifies rendering failures
type RenderErrorKind string

const (
	ErrKindUndefined     RenderErrorKind = "undefined_placeholder"
	ErrKindDepthExceeded RenderErrorKind = "depth_exceeded"
	ErrKindSyntax        RenderErrorKind = "invalid_syntax"
)

// RenderError reports why a template could not be rendered
type RenderError struct {
	Kind        RenderErrorKind
	Placeholder string // set for ErrKindUndefined
	Passes      int    // set for ErrKindDepthExceeded
	Syntax      string // set for ErrKindSyntax
}

func (e *RenderError) Error() string {
	switch e.Kind {
	case ErrKindUndefined:
		return fmt.Sprintf("undefined placeholder %q", e.Placeholder)
	case ErrKindDepthExceeded:
		return fmt.Sprintf("fragment expansion exceeded %d passes (possible cycle)", e.Passes)
	case ErrKindSyntax:
		return fmt.Sprintf("invalid placeholder syntax %q: must contain %q", e.Syntax, syntaxSentinel)
	default:
		return "render failed"
	}
}

func (e *RenderError) Is(target error) bool {
	return target == ErrRender
}

// Variable validation rules named in VariableError.Rule
const (
	RuleRequired  = "required"
	RuleType      = "type"
	RulePattern   = "pattern"
	RuleMinLength = "min_length"
	RuleMaxLength = "max_length"
	RuleMinimum   = "minimum"
	RuleMaximum   = "maximum"
	RuleEnum      = "enum"
)

// VariableError names the variable and the rule it violated. Expected holds
// the declared bound or type and Actual the offending value or its type.
type VariableError struct {
	Variable string
	Rule     string
	Expected any
	Actual   any
	Message  string
}

func (e *VariableError) Error() string {
	return fmt.Sprintf("variable %q: %s", e.Variable, e.Message)
}

func (e *VariableError) Is(target error) bool {
	return target == ErrValidation
}
