package prompt

import (
	"fmt"

	"github.com/tmc/langchaingo/llms"
)

// FormatMessages validates the values once and renders each message of the
// spec into a langchaingo chat message. A spec without messages yields a
// single system message holding the rendered template.
func (p *Prompt) FormatMessages(values map[string]any) ([]llms.ChatMessage, error) {
	resolved, err := p.Validate(values)
	if err != nil {
		return nil, err
	}

	defs := p.spec.Messages
	if len(defs) == 0 {
		defs = []MessageDefinition{{Role: "system", Template: p.spec.Template}}
	}

	messages := make([]llms.ChatMessage, 0, len(defs))
	for i, def := range defs {
		content, err := p.renderer.Render(def.Template, p.spec.Fragments, resolved)
		if err != nil {
			return nil, fmt.Errorf("message %d (%s): %w", i, def.Role, err)
		}
		messages = append(messages, newChatMessage(def.Role, content))
	}

	return messages, nil
}

// newChatMessage maps a spec role onto a langchaingo message type
func newChatMessage(role, content string) llms.ChatMessage {
	switch role {
	case "system":
		return llms.SystemChatMessage{Content: content}
	case "human", "user":
		return llms.HumanChatMessage{Content: content}
	case "ai", "assistant":
		return llms.AIChatMessage{Content: content}
	default:
		return llms.GenericChatMessage{Role: role, Content: content}
	}
}
