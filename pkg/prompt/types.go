package prompt

import (
	"github.com/killallgit/promptspec/pkg/guardrails"
)

// Variable types accepted in a VariableDescriptor
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeObject  = "object"
	TypeArray   = "array"
)

// Spec is a declarative prompt specification as loaded from YAML or JSON
type Spec struct {
	Name        string               `json:"name" yaml:"name"`
	Version     string               `json:"version,omitempty" yaml:"version,omitempty"`
	Description string               `json:"description,omitempty" yaml:"description,omitempty"`
	Template    string               `json:"template" yaml:"template"`
	Fragments   map[string]string    `json:"fragments,omitempty" yaml:"fragments,omitempty"`
	Variables   []VariableDescriptor `json:"variables,omitempty" yaml:"variables,omitempty"`
	Messages    []MessageDefinition  `json:"messages,omitempty" yaml:"messages,omitempty"`
	Guardrails  []GuardrailSpec      `json:"guardrails,omitempty" yaml:"guardrails,omitempty"`
	Tools       *ToolPolicy          `json:"tools,omitempty" yaml:"tools,omitempty"`
}

// VariableDescriptor declares one caller-supplied template variable
type VariableDescriptor struct {
	Name        string           `json:"name" yaml:"name"`
	Type        string           `json:"type" yaml:"type"`
	Required    bool             `json:"required,omitempty" yaml:"required,omitempty"`
	Default     any              `json:"default,omitempty" yaml:"default,omitempty"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty"`
	Example     any              `json:"example,omitempty" yaml:"example,omitempty"`
	Validation  *ValidationRules `json:"validation,omitempty" yaml:"validation,omitempty"`
}

// ValidationRules are the optional constraints on a variable value.
// Nil pointers mean the rule is not declared.
type ValidationRules struct {
	Pattern   string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	MinLength *int     `json:"min_length,omitempty" yaml:"min_length,omitempty"`
	MaxLength *int     `json:"max_length,omitempty" yaml:"max_length,omitempty"`
	Minimum   *float64 `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Maximum   *float64 `json:"maximum,omitempty" yaml:"maximum,omitempty"`
	Enum      []any    `json:"enum,omitempty" yaml:"enum,omitempty"`
}

// MessageDefinition defines a message in a chat form of the prompt
type MessageDefinition struct {
	Role     string `json:"role" yaml:"role"` // system, human, ai, or any generic role
	Template string `json:"template" yaml:"template"`
}

// GuardrailSpec is the file form of a guardrail descriptor. Enabled and
// FailOnViolation default to true when omitted.
type GuardrailSpec struct {
	Type            string         `json:"type" yaml:"type"`
	Enabled         *bool          `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	FailOnViolation *bool          `json:"fail_on_violation,omitempty" yaml:"fail_on_violation,omitempty"`
	Params          map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// Descriptor converts the file form into a guardrails.Descriptor
func (g GuardrailSpec) Descriptor() guardrails.Descriptor {
	return guardrails.Descriptor{
		Type:            g.Type,
		Enabled:         boolOr(g.Enabled, true),
		FailOnViolation: boolOr(g.FailOnViolation, true),
		Params:          g.Params,
	}
}

// GuardrailDescriptors converts every declared guardrail, preserving order
func (s *Spec) GuardrailDescriptors() []guardrails.Descriptor {
	out := make([]guardrails.Descriptor, 0, len(s.Guardrails))
	for _, g := range s.Guardrails {
		out = append(out, g.Descriptor())
	}
	return out
}

// ToolPolicy is the tool governance block of a spec
type ToolPolicy struct {
	Allowed   []string `json:"allowed,omitempty" yaml:"allowed,omitempty"`
	MaxRounds int      `json:"max_rounds,omitempty" yaml:"max_rounds,omitempty"`
	MaxCalls  int      `json:"max_calls,omitempty" yaml:"max_calls,omitempty"`
}

// RenderOptions control placeholder resolution
type RenderOptions struct {
	// Syntax is the placeholder pattern containing the sentinel "variable",
	// e.g. "{{variable}}"
	Syntax string

	// AllowUndefined leaves unknown placeholders untouched instead of failing
	AllowUndefined bool

	// MaxPasses caps fragment expansion passes
	MaxPasses int
}

// RenderContext is built fresh for each render call
type RenderContext struct {
	Variables map[string]any
	Fragments map[string]string
	Options   RenderOptions
}

func boolOr(b *bool, fallback bool) bool {
	if b == nil {
		return fallback
	}
	return *b
}
