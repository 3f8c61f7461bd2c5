package prompt

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func mustRenderer(t *testing.T, opts RenderOptions) *Renderer {
	t.Helper()
	r, err := NewRenderer(opts)
	require.NoError(t, err)
	return r
}

// fragmentChain builds f1 -> f2 -> ... -> fN -> "end"
func fragmentChain(depth int) map[string]string {
	fragments := make(map[string]string, depth)
	for i := 1; i < depth; i++ {
		fragments[fmt.Sprintf("f%d", i)] = fmt.Sprintf("{{f%d}}", i+1)
	}
	fragments[fmt.Sprintf("f%d", depth)] = "end"
	return fragments
}

func TestRender(t *testing.T) {
	t.Run("substitutes variables", func(t *testing.T) {
		result, err := Render("You are a {{role}} for {{company}}.", RenderContext{
			Variables: map[string]any{"role": "agent", "company": "Acme"},
		})

		require.NoError(t, err)
		assert.Equal(t, "You are a agent for Acme.", result)
	})

	t.Run("expands fragments before variables", func(t *testing.T) {
		r := mustRenderer(t, RenderOptions{})

		result, err := r.Render(
			"{{header}}\n{{body}}",
			map[string]string{
				"header": "Company: {{company}}",
				"body":   "{{rules}} Be {{tone}}.",
				"rules":  "Follow policy.",
			},
			map[string]any{"company": "Acme", "tone": "kind"},
		)

		require.NoError(t, err)
		assert.Equal(t, "Company: Acme\nFollow policy. Be kind.", result)
		assert.NotContains(t, result, "{{")
	})

	t.Run("does not rescan substituted values", func(t *testing.T) {
		r := mustRenderer(t, RenderOptions{})

		result, err := r.Render("Say {{text}}", nil, map[string]any{
			"text":  "{{other}}",
			"other": "nope",
		})

		require.NoError(t, err)
		assert.Equal(t, "Say {{other}}", result)
	})

	t.Run("undefined placeholder fails and names it", func(t *testing.T) {
		r := mustRenderer(t, RenderOptions{})

		result, err := r.Render("Hello {{name}} from {{place}}", nil, map[string]any{"name": "Ada"})

		require.Error(t, err)
		assert.Empty(t, result)
		assert.True(t, errors.Is(err, ErrRender))

		var renderErr *RenderError
		require.ErrorAs(t, err, &renderErr)
		assert.Equal(t, ErrKindUndefined, renderErr.Kind)
		assert.Equal(t, "place", renderErr.Placeholder)
		assert.Contains(t, err.Error(), "place")
	})

	t.Run("allow undefined leaves placeholder text", func(t *testing.T) {
		r := mustRenderer(t, RenderOptions{AllowUndefined: true})

		result, err := r.Render("Hello {{name}} from {{place}}", nil, map[string]any{"name": "Ada"})

		require.NoError(t, err)
		assert.Equal(t, "Hello Ada from {{place}}", result)
	})

	t.Run("ignores tokens that are not identifiers", func(t *testing.T) {
		r := mustRenderer(t, RenderOptions{})

		result, err := r.Render("{{ spaced }} {{1abc}} {{a-b}} {{_ok}}", nil, map[string]any{"_ok": "yes"})

		require.NoError(t, err)
		assert.Equal(t, "{{ spaced }} {{1abc}} {{a-b}} yes", result)
	})
}

func TestRenderSyntax(t *testing.T) {
	tests := []struct {
		name     string
		syntax   string
		template string
	}{
		{"angle brackets", "<<variable>>", "Hi <<name>>!"},
		{"dollar braces", "${variable}", "Hi ${name}!"},
		{"square brackets", "[[variable]]", "Hi [[name]]!"},
		{"regex metacharacters", "(*variable*)", "Hi (*name*)!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := mustRenderer(t, RenderOptions{Syntax: tt.syntax})

			result, err := r.Render(tt.template, nil, map[string]any{"name": "Ada"})

			require.NoError(t, err)
			assert.Equal(t, "Hi Ada!", result)
		})
	}

	t.Run("syntax without sentinel", func(t *testing.T) {
		_, err := NewRenderer(RenderOptions{Syntax: "{{name}}"})

		var renderErr *RenderError
		require.ErrorAs(t, err, &renderErr)
		assert.Equal(t, ErrKindSyntax, renderErr.Kind)
	})
}

func TestExpandFragmentsPassCap(t *testing.T) {
	t.Run("self reference fails after the default cap", func(t *testing.T) {
		r := mustRenderer(t, RenderOptions{})

		_, err := r.Render("{{loop}}", map[string]string{"loop": "again {{loop}}"}, nil)

		var renderErr *RenderError
		require.ErrorAs(t, err, &renderErr)
		assert.Equal(t, ErrKindDepthExceeded, renderErr.Kind)
		assert.Equal(t, 10, renderErr.Passes)
	})

	t.Run("transitive cycle fails after a custom cap", func(t *testing.T) {
		r := mustRenderer(t, RenderOptions{MaxPasses: 3})

		_, err := r.Render("{{a}}", map[string]string{"a": "{{b}}", "b": "{{a}}"}, nil)

		var renderErr *RenderError
		require.ErrorAs(t, err, &renderErr)
		assert.Equal(t, 3, renderErr.Passes)
	})

	t.Run("nesting one below the cap resolves", func(t *testing.T) {
		r := mustRenderer(t, RenderOptions{})

		result, err := r.Render("{{f1}}", fragmentChain(9), nil)

		require.NoError(t, err)
		assert.Equal(t, "end", result)
	})

	t.Run("nesting at the cap is reported as a cycle", func(t *testing.T) {
		r := mustRenderer(t, RenderOptions{})

		_, err := r.Render("{{f1}}", fragmentChain(10), nil)

		var renderErr *RenderError
		require.ErrorAs(t, err, &renderErr)
		assert.Equal(t, ErrKindDepthExceeded, renderErr.Kind)
	})

	t.Run("two pass cap allows flat fragments", func(t *testing.T) {
		r := mustRenderer(t, RenderOptions{MaxPasses: 2})

		result, err := r.Render("{{a}} {{b}}", map[string]string{"a": "A", "b": "B"}, nil)

		require.NoError(t, err)
		assert.Equal(t, "A B", result)
	})
}

func TestFormatValue(t *testing.T) {
	type point struct {
		X int `json:"x"`
		Y int `json:"y"`
	}
	n := 7

	tests := []struct {
		name     string
		value    any
		expected string
	}{
		{"string", "plain", "plain"},
		{"int", 42, "42"},
		{"negative int64", int64(-3), "-3"},
		{"uint", uint(9), "9"},
		{"integral float", 3.0, "3"},
		{"fractional float", 1.5, "1.5"},
		{"bool", true, "true"},
		{"nil", nil, ""},
		{"map sorted", map[string]any{"b": "x", "a": 1}, `{"a":1,"b":"x"}`},
		{"struct", point{X: 1, Y: 2}, `{"x":1,"y":2}`},
		{"map with markup", map[string]any{"tag": "<b>&"}, `{"tag":"<b>&"}`},
		{"slice", []any{"a", 2, true}, "a,2,true"},
		{"nested slice", []any{[]int{1, 2}, "c"}, "1,2,c"},
		{"pointer", &n, "7"},
		{"bytes", []byte("raw"), "raw"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatValue(tt.value))
		})
	}
}

func TestRenderObjectWithMarkup(t *testing.T) {
	out, err := Render("ctx={{ctx}}", RenderContext{
		Variables: map[string]any{"ctx": map[string]any{"tag": "<b>&"}},
	})

	require.NoError(t, err)
	assert.Equal(t, `ctx={"tag":"<b>&"}`, out)
}

func TestExtractPlaceholders(t *testing.T) {
	names, err := ExtractPlaceholders("{{b}} {{a}} {{b}} {{c_1}}", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c_1"}, names)

	_, err = ExtractPlaceholders("x", "no sentinel")
	assert.Error(t, err)
}

func TestRenderProperties(t *testing.T) {
	r := mustRenderer(t, RenderOptions{})
	tolerant := mustRenderer(t, RenderOptions{AllowUndefined: true})

	t.Run("fully resolved text is a fixed point", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			text := rapid.String().Draw(t, "text")
			if len(r.Placeholders(text)) > 0 {
				t.Skip("text contains placeholders")
			}

			out, err := r.Render(text, map[string]string{}, map[string]any{})
			if err != nil {
				t.Fatalf("render error: %v", err)
			}
			if out != text {
				t.Fatalf("expected %q, got %q", text, out)
			}
		})
	})

	t.Run("tolerant render with no inputs is a no-op", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			text := rapid.String().Draw(t, "text")

			out, err := tolerant.Render(text, nil, nil)
			if err != nil {
				t.Fatalf("render error: %v", err)
			}
			if out != text {
				t.Fatalf("expected %q, got %q", text, out)
			}
		})
	})

	t.Run("every placeholder resolves when all names are supplied", func(t *testing.T) {
		name := rapid.StringMatching(`[A-Za-z_][A-Za-z0-9_]{0,8}`)

		rapid.Check(t, func(t *rapid.T) {
			names := rapid.SliceOfN(name, 1, 6).Draw(t, "names")
			values := rapid.SliceOfN(rapid.StringMatching(`[a-z ]{0,10}`), len(names), len(names)).Draw(t, "values")

			vars := make(map[string]any, len(names))
			parts := make([]string, 0, len(names))
			for i, n := range names {
				vars[n] = values[i]
				parts = append(parts, "{{"+n+"}}")
			}

			out, err := r.Render(strings.Join(parts, " - "), nil, vars)
			if err != nil {
				t.Fatalf("render error: %v", err)
			}
			if len(r.Placeholders(out)) != 0 {
				t.Fatalf("unresolved placeholders in %q", out)
			}
		})
	})
}
