package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/killallgit/promptspec/pkg/config"
	"github.com/killallgit/promptspec/pkg/display"
	"github.com/killallgit/promptspec/pkg/guardrails"
	"github.com/killallgit/promptspec/pkg/logger"
	"github.com/killallgit/promptspec/pkg/prompt"
	"github.com/killallgit/promptspec/pkg/tokens"
	"github.com/spf13/cobra"
	"github.com/tmc/langchaingo/llms"
)

type renderFlags struct {
	vars           []string
	varsFile       string
	syntax         string
	allowUndefined bool
	messages       bool
	showTokens     bool
	highlight      bool
}

func newRenderCmd() *cobra.Command {
	flags := &renderFlags{}

	cmd := &cobra.Command{
		Use:   "render SPEC",
		Short: "Render a prompt specification",
		Long: `Validate the supplied variables against the spec and render its template,
or its chat messages with --messages.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], flags, cmd.Flags().Changed("allow-undefined"))
		},
	}

	cmd.Flags().StringArrayVar(&flags.vars, "var", nil, "variable as key=value (repeatable)")
	cmd.Flags().StringVarP(&flags.varsFile, "vars-file", "f", "", "YAML or JSON file of variables")
	cmd.Flags().StringVar(&flags.syntax, "syntax", "", "placeholder syntax containing \"variable\" (overrides render.syntax)")
	cmd.Flags().BoolVar(&flags.allowUndefined, "allow-undefined", false, "leave unknown placeholders untouched")
	cmd.Flags().BoolVar(&flags.messages, "messages", false, "render chat messages instead of the template")
	cmd.Flags().BoolVar(&flags.showTokens, "tokens", false, "report the token count on stderr")
	cmd.Flags().BoolVar(&flags.highlight, "highlight", false, "syntax highlight the output")

	return cmd
}

func runRender(out, errOut io.Writer, specPath string, flags *renderFlags, allowUndefinedSet bool) error {
	spec, err := loadSpec(specPath)
	if err != nil {
		return err
	}

	opts := renderOptions()
	if flags.syntax != "" {
		opts.Syntax = flags.syntax
	}
	if allowUndefinedSet {
		opts.AllowUndefined = flags.allowUndefined
	}

	p, err := prompt.NewPrompt(spec, prompt.WithRenderOptions(opts), prompt.WithGuardrails(passthroughGuardrails(spec)))
	if err != nil {
		return err
	}

	values, err := readVariables(flags.varsFile, flags.vars)
	if err != nil {
		return err
	}

	f := display.NewFormatter()

	if flags.messages {
		messages, err := p.FormatMessages(values)
		if err != nil {
			return err
		}
		for i, m := range messages {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintln(out, f.Role(roleOf(m)))
			fmt.Fprintln(out, maybeHighlight(f, m.GetContent(), flags.highlight))
		}

		if flags.showTokens {
			reportTokens(errOut, f, toTokenMessages(messages), "")
		}
		logger.Debug("Rendered %d messages for %s", len(messages), p.Name())
		return nil
	}

	text, err := p.Format(values)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, maybeHighlight(f, text, flags.highlight))

	if flags.showTokens {
		reportTokens(errOut, f, nil, text)
	}
	logger.Debug("Rendered template for %s (%d chars)", p.Name(), len(text))
	return nil
}

// passthroughGuardrails stands in for every custom guardrail type the spec
// declares. The CLI has no way to load caller implementations.
func passthroughGuardrails(spec *prompt.Spec) map[string]guardrails.Func {
	impls := make(map[string]guardrails.Func)
	for _, d := range spec.GuardrailDescriptors() {
		if !guardrails.IsBuiltin(d.Type) {
			impls[d.Type] = skipGuardrail
		}
	}
	return impls
}

func skipGuardrail(response string, d guardrails.Descriptor) guardrails.Outcome {
	return guardrails.Outcome{
		Passed:  true,
		Message: "skipped: no implementation available",
		Details: map[string]any{"skipped": true},
	}
}

func roleOf(m llms.ChatMessage) string {
	if g, ok := m.(llms.GenericChatMessage); ok {
		return g.Role
	}
	return string(m.GetType())
}

func toTokenMessages(messages []llms.ChatMessage) []tokens.Message {
	out := make([]tokens.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, tokens.Message{Role: roleOf(m), Content: m.GetContent()})
	}
	return out
}

// reportTokens prints an exact count when the tokenizer is available and
// the character estimate otherwise
func reportTokens(w io.Writer, f *display.Formatter, messages []tokens.Message, text string) {
	model := config.Get().Tokens.Model

	estimate := tokens.EstimateTokens(text)
	for _, m := range messages {
		estimate += tokens.EstimateTokens(m.Content)
	}

	counter, err := tokens.NewTokenCounter(model)
	if err != nil {
		logger.Warn("Tokenizer for %s unavailable, using estimate: %v", model, err)
		fmt.Fprintln(w, f.Field("tokens (estimated)", estimate))
		return
	}

	exact := counter.CountTokens(text)
	if messages != nil {
		exact = counter.CountMessages(messages)
	}
	fmt.Fprintln(w, f.Field("tokens ("+model+")", exact))
	fmt.Fprintln(w, f.Dim(fmt.Sprintf("estimate: %d", estimate)))
}

func maybeHighlight(f *display.Formatter, text string, highlight bool) string {
	if !highlight {
		return text
	}
	return strings.TrimRight(f.Highlight(text, "markdown"), "\n")
}
