package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/killallgit/promptspec/pkg/display"
	"github.com/killallgit/promptspec/pkg/guardrails"
	"github.com/killallgit/promptspec/pkg/prompt"
	"github.com/killallgit/promptspec/pkg/tools/acl"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	var (
		highlight bool
		available []string
	)

	cmd := &cobra.Command{
		Use:   "inspect SPEC",
		Short: "Describe a prompt specification",
		Long: `Print the variables, fragments, placeholders, messages, guardrails and tool
policy of a spec without rendering it. With --tools, the tool allow-list is
reconciled against the named host tools and each one is reported as allowed
or denied.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.OutOrStdout(), args[0], highlight, available)
		},
	}

	cmd.Flags().BoolVar(&highlight, "highlight", false, "print the highlighted source document")
	cmd.Flags().StringSliceVar(&available, "tools", nil, "tool names the host provides, checked against the allow-list")

	return cmd
}

func runInspect(out io.Writer, specPath string, highlight bool, available []string) error {
	spec, err := loadSpec(specPath)
	if err != nil {
		return err
	}

	p, err := prompt.NewPrompt(spec,
		prompt.WithRenderOptions(renderOptions()),
		prompt.WithGuardrails(passthroughGuardrails(spec)),
	)
	if err != nil {
		return err
	}

	f := display.NewFormatter()

	fmt.Fprintln(out, f.Header(spec.Name))
	if spec.Version != "" {
		fmt.Fprintln(out, f.Field("version", spec.Version))
	}
	if spec.Description != "" {
		fmt.Fprintln(out, f.Field("description", spec.Description))
	}
	fmt.Fprintln(out, f.Field("syntax", p.Renderer().Options().Syntax))

	fmt.Fprintln(out, f.Header("Variables"))
	fmt.Fprintln(out, f.List(describeVariables(spec.Variables)))

	fmt.Fprintln(out, f.Header("Inputs"))
	fmt.Fprintln(out, f.List(p.GetInputVariables()))

	if len(spec.Fragments) > 0 {
		fmt.Fprintln(out, f.Header("Fragments"))
		fmt.Fprintln(out, f.List(sortedFragmentNames(spec.Fragments)))
	}

	if len(spec.Messages) > 0 {
		fmt.Fprintln(out, f.Header("Messages"))
		roles := make([]string, 0, len(spec.Messages))
		for _, m := range spec.Messages {
			roles = append(roles, m.Role)
		}
		fmt.Fprintln(out, f.List(roles))
	}

	fmt.Fprintln(out, f.Header("Guardrails"))
	fmt.Fprintln(out, f.List(describeGuardrails(spec.GuardrailDescriptors())))

	if spec.Tools != nil {
		fmt.Fprintln(out, f.Header("Tools"))
		fmt.Fprintln(out, f.List(spec.Tools.Allowed))
		fmt.Fprintln(out, f.Field("max_rounds", limitText(spec.Tools.MaxRounds)))
		fmt.Fprintln(out, f.Field("max_calls", limitText(spec.Tools.MaxCalls)))

		if len(available) > 0 {
			writeToolReport(out, f, acl.NewPermissionManager(spec.Tools.Allowed), available)
		}
	}

	if highlight {
		data, err := os.ReadFile(specPath)
		if err != nil {
			return fmt.Errorf("failed to read spec file: %w", err)
		}
		language := "yaml"
		if strings.HasSuffix(strings.ToLower(specPath), ".json") {
			language = "json"
		}
		fmt.Fprintln(out, f.Box(strings.TrimRight(f.Highlight(string(data), language), "\n")))
	}

	return nil
}

// writeToolReport reconciles the allow-list against the host's tools and
// marks each host tool as allowed or denied
func writeToolReport(out io.Writer, f *display.Formatter, pm *acl.PermissionManager, available []string) {
	var missing *acl.MissingToolsError
	if err := pm.ReconcileNames(available); errors.As(err, &missing) {
		fmt.Fprintln(out, f.Field("unavailable", strings.Join(missing.Missing, ", ")))
	}

	lines := make([]string, 0, len(available))
	for _, name := range available {
		verdict := "denied"
		if pm.Permits(name) {
			verdict = "allowed"
		}
		lines = append(lines, name+": "+verdict)
	}
	fmt.Fprintln(out, f.List(lines))
}

func describeVariables(vars []prompt.VariableDescriptor) []string {
	out := make([]string, 0, len(vars))
	for _, v := range vars {
		line := v.Name
		if v.Type != "" {
			line += " (" + v.Type + ")"
		}
		if v.Required {
			line += " required"
		}
		if v.Default != nil {
			line += " default=" + prompt.FormatValue(v.Default)
		}
		if v.Description != "" {
			line += ": " + v.Description
		}
		out = append(out, line)
	}
	return out
}

func describeGuardrails(descriptors []guardrails.Descriptor) []string {
	out := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		kind := "custom"
		if guardrails.IsBuiltin(d.Type) {
			kind = "built-in"
		}

		var flags []string
		if !d.Enabled {
			flags = append(flags, "disabled")
		}
		if !d.FailOnViolation {
			flags = append(flags, "soft")
		}

		line := fmt.Sprintf("%s (%s)", d.Type, kind)
		if len(flags) > 0 {
			line += " " + strings.Join(flags, ", ")
		}
		out = append(out, line)
	}
	return out
}

func sortedFragmentNames(fragments map[string]string) []string {
	names := make([]string, 0, len(fragments))
	for name := range fragments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func limitText(n int) string {
	if n <= 0 {
		return "unlimited"
	}
	return fmt.Sprint(n)
}
