package prompt

import (
	"fmt"

	"github.com/killallgit/promptspec/pkg/guardrails"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"
)

var _ prompts.FormatPrompter = (*Prompt)(nil)

// Prompt binds a loaded Spec to its renderer and guardrail pipeline. Both
// are built once in NewPrompt; a Prompt is immutable and safe for
// concurrent use.
type Prompt struct {
	spec     *Spec
	renderer *Renderer
	pipeline *guardrails.Pipeline
}

type promptOptions struct {
	render         RenderOptions
	impls          map[string]guardrails.Func
	throwOnFailure bool
}

// Option is a functional option for configuring a Prompt
type Option func(*promptOptions)

// WithRenderOptions sets the placeholder syntax, pass cap and undefined policy
func WithRenderOptions(opts RenderOptions) Option {
	return func(o *promptOptions) {
		o.render = opts
	}
}

// WithGuardrails supplies custom guardrail implementations by type tag
func WithGuardrails(impls map[string]guardrails.Func) Option {
	return func(o *promptOptions) {
		if o.impls == nil {
			o.impls = make(map[string]guardrails.Func, len(impls))
		}
		for name, fn := range impls {
			o.impls[name] = fn
		}
	}
}

// WithThrowOnFailure makes Check return a *guardrails.ViolationError for
// qualifying failures
func WithThrowOnFailure(throw bool) Option {
	return func(o *promptOptions) {
		o.throwOnFailure = throw
	}
}

// NewPrompt compiles the renderer and reconciles the guardrails. A spec
// requiring a custom guardrail with no implementation fails here.
func NewPrompt(spec *Spec, opts ...Option) (*Prompt, error) {
	if spec == nil {
		return nil, fmt.Errorf("spec is required")
	}

	o := &promptOptions{}
	for _, opt := range opts {
		opt(o)
	}

	renderer, err := NewRenderer(o.render)
	if err != nil {
		return nil, fmt.Errorf("prompt %s: %w", spec.Name, err)
	}

	pipeline, err := guardrails.NewPipeline(
		spec.GuardrailDescriptors(),
		o.impls,
		guardrails.WithThrowOnFailure(o.throwOnFailure),
	)
	if err != nil {
		return nil, fmt.Errorf("prompt %s: %w", spec.Name, err)
	}

	return &Prompt{
		spec:     spec,
		renderer: renderer,
		pipeline: pipeline,
	}, nil
}

// Name returns the spec name
func (p *Prompt) Name() string {
	return p.spec.Name
}

// Spec returns the underlying specification. Callers must not modify it.
func (p *Prompt) Spec() *Spec {
	return p.spec
}

// Renderer returns the compiled renderer
func (p *Prompt) Renderer() *Renderer {
	return p.renderer
}

// Pipeline returns the reconciled guardrail pipeline
func (p *Prompt) Pipeline() *guardrails.Pipeline {
	return p.pipeline
}

// Validate applies defaults and checks values against the declared variables
func (p *Prompt) Validate(values map[string]any) (map[string]any, error) {
	return ValidateVariables(p.spec.Variables, values)
}

// Format validates the values and renders the main template
func (p *Prompt) Format(values map[string]any) (string, error) {
	resolved, err := p.Validate(values)
	if err != nil {
		return "", err
	}
	return p.renderer.Render(p.spec.Template, p.spec.Fragments, resolved)
}

// FormatPrompt formats the template as a langchaingo prompt value
func (p *Prompt) FormatPrompt(values map[string]any) (llms.PromptValue, error) {
	text, err := p.Format(values)
	if err != nil {
		return nil, err
	}
	return prompts.StringPromptValue(text), nil
}

// GetInputVariables returns declared variables followed by any other
// placeholder the fragment-expanded template references
func (p *Prompt) GetInputVariables() []string {
	names := make([]string, 0, len(p.spec.Variables))
	seen := make(map[string]bool)
	for _, v := range p.spec.Variables {
		seen[v.Name] = true
		names = append(names, v.Name)
	}

	sources := []string{p.spec.Template}
	for _, m := range p.spec.Messages {
		sources = append(sources, m.Template)
	}

	for _, src := range sources {
		expanded, err := p.renderer.ExpandFragments(src, p.spec.Fragments)
		if err != nil {
			expanded = src
		}
		for _, name := range p.renderer.Placeholders(expanded) {
			if _, isFragment := p.spec.Fragments[name]; isFragment || seen[name] {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}
	}

	return names
}

// Check runs the guardrail pipeline over a model response
func (p *Prompt) Check(response string) (*guardrails.Report, error) {
	return p.pipeline.Run(response)
}
