package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/killallgit/promptspec/pkg/config"
	"github.com/killallgit/promptspec/pkg/display"
	"github.com/killallgit/promptspec/pkg/guardrails"
	"github.com/killallgit/promptspec/pkg/logger"
	"github.com/killallgit/promptspec/pkg/prompt"
	"github.com/spf13/cobra"
)

type checkFlags struct {
	response   string
	strict     bool
	jsonOutput bool
	skipCustom bool
}

func newCheckCmd() *cobra.Command {
	flags := &checkFlags{}

	cmd := &cobra.Command{
		Use:   "check SPEC",
		Short: "Run a spec's guardrails over a model response",
		Long: `Evaluate every enabled guardrail of the spec against a response and print
the report. With --strict a failure on a fail_on_violation guardrail exits
with status 2.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.response, "response", "r", "-", "response file, or - for stdin")
	cmd.Flags().BoolVar(&flags.strict, "strict", false, "exit 2 on a fail_on_violation failure (overrides guardrails.throw_on_failure)")
	cmd.Flags().BoolVar(&flags.jsonOutput, "json", false, "print the report as JSON")
	cmd.Flags().BoolVar(&flags.skipCustom, "skip-custom", false, "pass custom guardrail types instead of failing reconciliation")

	return cmd
}

func runCheck(cmd *cobra.Command, specPath string, flags *checkFlags) error {
	spec, err := loadSpec(specPath)
	if err != nil {
		return err
	}

	throw := config.Get().Guardrails.ThrowOnFailure
	if cmd.Flags().Changed("strict") {
		throw = flags.strict
	}

	opts := []prompt.Option{
		prompt.WithRenderOptions(renderOptions()),
		prompt.WithThrowOnFailure(throw),
	}
	if flags.skipCustom {
		opts = append(opts, prompt.WithGuardrails(passthroughGuardrails(spec)))
	}

	p, err := prompt.NewPrompt(spec, opts...)
	if err != nil {
		return err
	}

	response, err := readResponse(flags.response, cmd.InOrStdin())
	if err != nil {
		return err
	}

	report, runErr := p.Check(response)
	if report == nil {
		return runErr
	}

	out := cmd.OutOrStdout()
	if flags.jsonOutput {
		if err := writeReportJSON(out, report); err != nil {
			return err
		}
	} else {
		writeReport(out, display.NewFormatter(), p.Name(), report)
	}

	var violation *guardrails.ViolationError
	if errors.As(runErr, &violation) {
		logger.Info("Guardrail run %s failed on %s", report.RunID, violation.Outcome.ValidatorType)
		return &exitCodeError{code: exitViolation, err: runErr}
	}
	return runErr
}

func writeReportJSON(w io.Writer, report *guardrails.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func writeReport(w io.Writer, f *display.Formatter, name string, report *guardrails.Report) {
	fmt.Fprintf(w, "%s %s\n", f.Status(report.Passed), f.Header(name))
	fmt.Fprintln(w, f.Dim("run "+report.RunID))

	for _, o := range report.Outcomes {
		line := fmt.Sprintf("  %s %s", f.Status(o.Passed), o.ValidatorType)
		if o.Message != "" {
			line += ": " + o.Message
		}
		fmt.Fprintln(w, line)

		if !o.Passed {
			for _, k := range sortedKeys(o.Details) {
				fmt.Fprintf(w, "      %s\n", f.Field(k, o.Details[k]))
			}
		}
	}

	fmt.Fprintln(w, f.Field("failed", fmt.Sprintf("%d/%d", len(report.Failed), len(report.Outcomes))))
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
