package guardrails

import (
	"github.com/killallgit/promptspec/pkg/logger"
)

// Registry is the reconciled set of guardrails for one prompt. It is
// immutable once built and safe for concurrent use.
type Registry struct {
	enabled []Descriptor
	custom  map[string]Func
}

// NewRegistry reconciles the declared descriptors against the supplied
// implementations. Disabled descriptors are dropped. Every enabled type that
// is neither built-in nor supplied is collected and reported in a single
// *ReconciliationError. A nil Func counts as not supplied.
func NewRegistry(descriptors []Descriptor, impls map[string]Func) (*Registry, error) {
	var (
		enabled []Descriptor
		missing []string
		seen    = make(map[string]bool)
	)

	for _, d := range descriptors {
		if !d.Enabled {
			continue
		}
		enabled = append(enabled, d)

		if fn := impls[d.Type]; fn != nil || IsBuiltin(d.Type) {
			continue
		}
		if !seen[d.Type] {
			seen[d.Type] = true
			missing = append(missing, d.Type)
		}
	}

	if len(missing) > 0 {
		logger.Debug("Guardrail reconciliation failed, missing: %v", missing)
		return nil, &ReconciliationError{Missing: missing}
	}

	custom := make(map[string]Func, len(impls))
	for name, fn := range impls {
		if fn == nil {
			continue
		}
		custom[name] = fn
	}

	logger.Debug("Reconciled %d enabled guardrails (%d custom implementations)", len(enabled), len(custom))

	return &Registry{
		enabled: enabled,
		custom:  custom,
	}, nil
}

// Enabled returns a copy of the enabled descriptors in declaration order
func (r *Registry) Enabled() []Descriptor {
	out := make([]Descriptor, len(r.enabled))
	copy(out, r.enabled)
	return out
}

// HasCustom reports whether a caller implementation is registered for the type
func (r *Registry) HasCustom(validatorType string) bool {
	_, ok := r.custom[validatorType]
	return ok
}

// evaluate runs one descriptor. A custom implementation takes precedence
// over a built-in of the same type tag.
func (r *Registry) evaluate(response string, d Descriptor) (Outcome, error) {
	return evaluate(response, d, r.custom)
}

func evaluate(response string, d Descriptor, custom map[string]Func) (Outcome, error) {
	if fn := custom[d.Type]; fn != nil {
		outcome := fn(response, d)
		if outcome.ValidatorType == "" {
			outcome.ValidatorType = d.Type
		}
		return outcome, nil
	}

	if kind, ok := builtins[d.Type]; ok {
		return evaluateBuiltin(kind, response, d), nil
	}

	return Outcome{}, &UnresolvedError{Type: d.Type}
}
