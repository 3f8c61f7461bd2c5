package guardrails

import (
	"github.com/google/uuid"
	"github.com/killallgit/promptspec/pkg/logger"
)

// Pipeline runs a reconciled guardrail set against model responses
type Pipeline struct {
	registry       *Registry
	throwOnFailure bool
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithThrowOnFailure makes Run return a *ViolationError when a failing
// outcome belongs to a descriptor with FailOnViolation set
func WithThrowOnFailure(throw bool) Option {
	return func(p *Pipeline) {
		p.throwOnFailure = throw
	}
}

// NewPipeline reconciles the descriptors and returns a reusable pipeline.
// Reconciliation happens here and never again.
func NewPipeline(descriptors []Descriptor, impls map[string]Func, opts ...Option) (*Pipeline, error) {
	registry, err := NewRegistry(descriptors, impls)
	if err != nil {
		return nil, err
	}
	return NewPipelineFromRegistry(registry, opts...), nil
}

// NewPipelineFromRegistry wraps an already reconciled registry
func NewPipelineFromRegistry(registry *Registry, opts ...Option) *Pipeline {
	p := &Pipeline{registry: registry}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ThrowOnFailure reports the pipeline's throw mode
func (p *Pipeline) ThrowOnFailure() bool {
	return p.throwOnFailure
}

// Registry returns the reconciled registry backing the pipeline
func (p *Pipeline) Registry() *Registry {
	return p.registry
}

// Run evaluates every enabled guardrail in declaration order and returns the
// full report. In throw mode the report is still returned together with a
// *ViolationError for the first failure whose descriptor has FailOnViolation.
func (p *Pipeline) Run(response string) (*Report, error) {
	report := &Report{
		RunID:  uuid.NewString(),
		Passed: true,
	}

	var qualifying *Outcome
	for _, d := range p.registry.enabled {
		outcome, err := p.registry.evaluate(response, d)
		if err != nil {
			// unreachable after reconciliation
			return nil, err
		}

		report.Outcomes = append(report.Outcomes, outcome)
		if outcome.Passed {
			continue
		}

		report.Passed = false
		report.Failed = append(report.Failed, outcome)
		if d.FailOnViolation && qualifying == nil {
			o := outcome
			qualifying = &o
		}
	}

	logger.Debug("Guardrail run %s: %d outcomes, %d failed", report.RunID, len(report.Outcomes), len(report.Failed))

	if p.throwOnFailure && qualifying != nil {
		logger.Warn("Guardrail run %s violated %s: %s", report.RunID, qualifying.ValidatorType, qualifying.Message)
		return report, &ViolationError{Outcome: *qualifying}
	}

	return report, nil
}

// Evaluate runs a single descriptor outside any pipeline, with the same
// custom-before-built-in precedence
func Evaluate(response string, d Descriptor, impls map[string]Func) (Outcome, error) {
	return evaluate(response, d, impls)
}

// EvaluateAll is the direct batch path. Unlike Pipeline.Run it stops at the
// first failing descriptor with FailOnViolation and returns the outcomes
// gathered so far together with a *ViolationError. Disabled descriptors are
// skipped.
func EvaluateAll(response string, descriptors []Descriptor, impls map[string]Func) ([]Outcome, error) {
	var outcomes []Outcome
	for _, d := range descriptors {
		if !d.Enabled {
			continue
		}

		outcome, err := evaluate(response, d, impls)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, outcome)

		if !outcome.Passed && d.FailOnViolation {
			return outcomes, &ViolationError{Outcome: outcome}
		}
	}
	return outcomes, nil
}
