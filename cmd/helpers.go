package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/killallgit/promptspec/pkg/config"
	"github.com/killallgit/promptspec/pkg/prompt"
	"gopkg.in/yaml.v3"
)

// loadSpec reads a spec file relative to the working directory
func loadSpec(path string) (*prompt.Spec, error) {
	spec, err := prompt.NewFileLoader("").Load(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return spec, nil
}

// renderOptions starts from the configured defaults
func renderOptions() prompt.RenderOptions {
	cfg := config.Get()
	return prompt.RenderOptions{
		Syntax:         cfg.Render.Syntax,
		MaxPasses:      cfg.Render.MaxPasses,
		AllowUndefined: cfg.Render.AllowUndefined,
	}
}

// readVariables merges a YAML/JSON variables file with key=value pairs.
// Pairs win over the file. Pair values that read as YAML numbers or
// booleans keep that type; everything else stays a string.
func readVariables(varsFile string, pairs []string) (map[string]any, error) {
	values := make(map[string]any)

	if varsFile != "" {
		data, err := os.ReadFile(varsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read variables file: %w", err)
		}
		if err := yaml.Unmarshal(data, &values); err != nil {
			return nil, fmt.Errorf("failed to parse variables file: %w", err)
		}
		if values == nil {
			values = make(map[string]any)
		}
	}

	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid variable %q: expected key=value", pair)
		}
		values[key] = decodeScalar(raw)
	}

	return values, nil
}

func decodeScalar(raw string) any {
	if raw == "" {
		return ""
	}

	var value any
	if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
		return raw
	}
	switch value.(type) {
	case bool, int, float64:
		return value
	default:
		return raw
	}
}

// readResponse reads the model response from a file, or stdin for "-"
func readResponse(path string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	return string(data), nil
}
