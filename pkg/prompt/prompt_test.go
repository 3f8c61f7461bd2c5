package prompt

import (
	"errors"
	"strings"
	"testing"

	"github.com/killallgit/promptspec/pkg/guardrails"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func supportSpec(t *testing.T) *Spec {
	t.Helper()
	spec, err := ParseSpec([]byte(supportAgentYAML), "yaml")
	require.NoError(t, err)
	return spec
}

func TestPromptFormat(t *testing.T) {
	p, err := NewPrompt(supportSpec(t))
	require.NoError(t, err)

	t.Run("renders with defaults applied", func(t *testing.T) {
		text, err := p.Format(map[string]any{"role": "agent", "company": "Acme"})

		require.NoError(t, err)
		assert.Equal(t, "You are a agent for Acme. Respond in a friendly tone.", text)
	})

	t.Run("validation runs before rendering", func(t *testing.T) {
		_, err := p.Format(map[string]any{"role": "agent", "company": "A"})

		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrValidation))
		assert.False(t, errors.Is(err, ErrRender))
	})

	t.Run("format prompt returns a string prompt value", func(t *testing.T) {
		value, err := p.FormatPrompt(map[string]any{"role": "agent", "company": "Acme", "tone": "formal"})

		require.NoError(t, err)
		assert.Equal(t, "You are a agent for Acme. Respond in a formal tone.", value.String())
		require.Len(t, value.Messages(), 1)
	})
}

func TestPromptFormatMessages(t *testing.T) {
	t.Run("renders each message with its role", func(t *testing.T) {
		p, err := NewPrompt(supportSpec(t))
		require.NoError(t, err)

		messages, err := p.FormatMessages(map[string]any{
			"role":     "agent",
			"company":  "Acme",
			"question": "Where is my order?",
		})

		require.NoError(t, err)
		require.Len(t, messages, 2)
		assert.Equal(t, llms.ChatMessageTypeSystem, messages[0].GetType())
		assert.Equal(t, "You are a agent for Acme.", messages[0].GetContent())
		assert.Equal(t, llms.ChatMessageTypeHuman, messages[1].GetType())
		assert.Equal(t, "Where is my order?", messages[1].GetContent())
	})

	t.Run("names the failing message", func(t *testing.T) {
		p, err := NewPrompt(supportSpec(t))
		require.NoError(t, err)

		_, err = p.FormatMessages(map[string]any{"role": "agent", "company": "Acme"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "message 1 (human)")
		var renderErr *RenderError
		require.ErrorAs(t, err, &renderErr)
		assert.Equal(t, "question", renderErr.Placeholder)
	})

	t.Run("template only spec yields one system message", func(t *testing.T) {
		p, err := NewPrompt(&Spec{Name: "plain", Template: "Hi {{name}}"})
		require.NoError(t, err)

		messages, err := p.FormatMessages(map[string]any{"name": "Ada"})

		require.NoError(t, err)
		require.Len(t, messages, 1)
		assert.Equal(t, llms.ChatMessageTypeSystem, messages[0].GetType())
		assert.Equal(t, "Hi Ada", messages[0].GetContent())
	})

	t.Run("maps roles onto message types", func(t *testing.T) {
		p, err := NewPrompt(&Spec{Name: "roles", Messages: []MessageDefinition{
			{Role: "user", Template: "u"},
			{Role: "assistant", Template: "a"},
			{Role: "ai", Template: "b"},
			{Role: "tool_result", Template: "g"},
		}})
		require.NoError(t, err)

		messages, err := p.FormatMessages(nil)

		require.NoError(t, err)
		require.Len(t, messages, 4)
		assert.Equal(t, llms.ChatMessageTypeHuman, messages[0].GetType())
		assert.Equal(t, llms.ChatMessageTypeAI, messages[1].GetType())
		assert.Equal(t, llms.ChatMessageTypeAI, messages[2].GetType())
		assert.Equal(t, llms.ChatMessageTypeGeneric, messages[3].GetType())
		assert.Equal(t, "tool_result", messages[3].(llms.GenericChatMessage).Role)
	})
}

func TestPromptGetInputVariables(t *testing.T) {
	spec := &Spec{
		Name:      "inputs",
		Template:  "{{intro}} {{topic}} {{extra}}",
		Fragments: map[string]string{"intro": "Hello {{user}}."},
		Variables: []VariableDescriptor{{Name: "topic"}},
		Messages:  []MessageDefinition{{Role: "human", Template: "{{question}} {{topic}}"}},
	}
	p, err := NewPrompt(spec)
	require.NoError(t, err)

	assert.Equal(t, []string{"topic", "user", "extra", "question"}, p.GetInputVariables())
}

func TestPromptOptions(t *testing.T) {
	t.Run("custom syntax and allow undefined", func(t *testing.T) {
		p, err := NewPrompt(
			&Spec{Name: "custom", Template: "<<greeting>>, <<name>>! {{untouched}}"},
			WithRenderOptions(RenderOptions{Syntax: "<<variable>>", AllowUndefined: true}),
		)
		require.NoError(t, err)

		text, err := p.Format(map[string]any{"greeting": "Hi"})

		require.NoError(t, err)
		assert.Equal(t, "Hi, <<name>>! {{untouched}}", text)
		assert.Equal(t, "<<variable>>", p.Renderer().Options().Syntax)
	})

	t.Run("invalid syntax fails construction", func(t *testing.T) {
		_, err := NewPrompt(
			&Spec{Name: "bad", Template: "x"},
			WithRenderOptions(RenderOptions{Syntax: "%%"}),
		)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "prompt bad")
	})

	t.Run("nil spec", func(t *testing.T) {
		_, err := NewPrompt(nil)
		assert.Error(t, err)
	})
}

func TestPromptCheck(t *testing.T) {
	t.Run("reports built-in failures", func(t *testing.T) {
		p, err := NewPrompt(supportSpec(t))
		require.NoError(t, err)

		report, err := p.Check("Sure, a Refund Guaranteed for everyone.")

		require.NoError(t, err)
		assert.False(t, report.Passed)
		require.Len(t, report.Outcomes, 2)
		require.Len(t, report.Failed, 1)
		assert.Equal(t, guardrails.TypeBannedPhrases, report.Failed[0].ValidatorType)
	})

	t.Run("custom guardrail must be supplied", func(t *testing.T) {
		spec := &Spec{Name: "toned", Template: "x", Guardrails: []GuardrailSpec{
			{Type: "tone"},
			{Type: "profanity", Enabled: boolPtr(false)},
		}}

		_, err := NewPrompt(spec)
		require.Error(t, err)
		assert.True(t, errors.Is(err, guardrails.ErrReconciliation))
		assert.Contains(t, err.Error(), "tone")
		assert.NotContains(t, err.Error(), "profanity")

		p, err := NewPrompt(spec, WithGuardrails(map[string]guardrails.Func{
			"tone": func(response string, d guardrails.Descriptor) guardrails.Outcome {
				return guardrails.Outcome{Passed: !strings.Contains(response, "!")}
			},
		}))
		require.NoError(t, err)

		report, err := p.Check("calm reply")
		require.NoError(t, err)
		assert.True(t, report.Passed)
		assert.Equal(t, "tone", report.Outcomes[0].ValidatorType)
	})

	t.Run("throw on failure returns report and violation", func(t *testing.T) {
		p, err := NewPrompt(supportSpec(t), WithThrowOnFailure(true))
		require.NoError(t, err)

		report, err := p.Check("refund guaranteed")

		require.Error(t, err)
		assert.True(t, errors.Is(err, guardrails.ErrViolation))
		require.NotNil(t, report)
		assert.Len(t, report.Outcomes, 2)
		assert.True(t, p.Pipeline().ThrowOnFailure())
	})
}
