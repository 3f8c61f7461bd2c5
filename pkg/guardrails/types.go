package guardrails

// Built-in guardrail type tags. These resolve without a caller implementation.
const (
	TypeBannedPhrases = "banned_phrases"
	TypeMaxLength     = "max_length"
	TypeMinLength     = "min_length"
	TypePatternMatch  = "pattern_match"
)

// Descriptor declares one guardrail required by a prompt specification
type Descriptor struct {
	Type            string         `json:"type" yaml:"type"`
	Enabled         bool           `json:"enabled" yaml:"enabled"`
	FailOnViolation bool           `json:"fail_on_violation" yaml:"fail_on_violation"`
	Params          map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// Outcome is the result of evaluating a single guardrail against a response
type Outcome struct {
	Passed        bool           `json:"passed" yaml:"passed"`
	ValidatorType string         `json:"validator_type" yaml:"validator_type"`
	Message       string         `json:"message,omitempty" yaml:"message,omitempty"`
	Details       map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
}

// Func is a caller-supplied guardrail implementation. It must be pure:
// the same response and descriptor always yield the same outcome.
type Func func(response string, d Descriptor) Outcome

// Report aggregates the outcomes of one pipeline run
type Report struct {
	RunID    string    `json:"run_id" yaml:"run_id"`
	Passed   bool      `json:"passed" yaml:"passed"`
	Outcomes []Outcome `json:"outcomes" yaml:"outcomes"`
	Failed   []Outcome `json:"failed" yaml:"failed"`
}

// IsBuiltin reports whether the type tag is handled by the core without
// a caller-supplied implementation
func IsBuiltin(validatorType string) bool {
	_, ok := builtins[validatorType]
	return ok
}

// BuiltinTypes returns the built-in type tags in a stable order
func BuiltinTypes() []string {
	return []string{TypeBannedPhrases, TypeMaxLength, TypeMinLength, TypePatternMatch}
}
