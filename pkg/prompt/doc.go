// Package prompt renders declarative prompt specifications.
//
// This package offers:
//   - Spec loading from YAML/JSON files, an fs.FS, or in-memory strings
//   - Variable validation with defaults, types and constraints
//   - Fragment expansion and variable substitution
//   - Chat message output compatible with LangChain-Go
//   - A registry for compiled prompts
//
// Basic Usage:
//
//	spec, _ := prompt.NewFileLoader("./prompts").Load("support.yaml")
//	p, err := prompt.NewPrompt(spec)
//
//	text, err := p.Format(map[string]any{
//	    "role":    "agent",
//	    "company": "Acme",
//	})
//
// Placeholders:
//
// The placeholder syntax is a string containing the sentinel "variable"
// (default "{{variable}}"). Names are identifiers: a letter or underscore
// followed by letters, digits or underscores. Fragments and variables share
// one namespace; fragments are expanded first, for at most MaxPasses passes
// (default 10). If the last pass still expands something the render fails
// with a depth error, so fragment nesting must stay below the pass cap.
//
// Guardrails:
//
//	p, err := prompt.NewPrompt(spec,
//	    prompt.WithGuardrails(map[string]guardrails.Func{"tone": checkTone}),
//	    prompt.WithThrowOnFailure(true),
//	)
//	report, err := p.Check(modelResponse)
package prompt
