// Package guardrails reconciles and runs lexical checks on model responses.
//
// A prompt declares the guardrails it needs as Descriptors. Four types are
// built in (banned_phrases, max_length, min_length, pattern_match); anything
// else must be supplied by the caller as a Func. NewPipeline verifies this
// once, up front, and reports every missing type in one error:
//
//	pipeline, err := guardrails.NewPipeline(descriptors, map[string]guardrails.Func{
//	    "no_urls": func(response string, d guardrails.Descriptor) guardrails.Outcome {
//	        return guardrails.Outcome{Passed: !strings.Contains(response, "http")}
//	    },
//	}, guardrails.WithThrowOnFailure(true))
//
//	report, err := pipeline.Run(response)
//
// Run always evaluates every enabled guardrail before deciding whether to
// return a *ViolationError. EvaluateAll is the unwrapped path and stops at
// the first failure marked FailOnViolation.
package guardrails
