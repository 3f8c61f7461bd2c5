package tokens

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// CharsPerToken is the ratio used by EstimateTokens
const CharsPerToken = 4

// TokenCounter provides methods for counting tokens in text
type TokenCounter struct {
	encoder *tiktoken.Tiktoken
	mu      sync.RWMutex
}

// NewTokenCounter creates a new token counter with the specified model
func NewTokenCounter(modelName string) (*TokenCounter, error) {
	encodingName := getEncodingForModel(modelName)

	encoder, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		// Fallback to cl100k_base for most modern models
		encoder, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}

	return &TokenCounter{
		encoder: encoder,
	}, nil
}

// CountTokens counts the number of tokens in the given text
func (tc *TokenCounter) CountTokens(text string) int {
	tc.mu.RLock()
	defer tc.mu.RUnlock()

	if tc.encoder == nil {
		return EstimateTokens(text)
	}

	return len(tc.encoder.Encode(text, nil, nil))
}

// CountMessages counts tokens for a conversation with role-based messages
func (tc *TokenCounter) CountMessages(messages []Message) int {
	totalTokens := 0
	for _, msg := range messages {
		totalTokens += tc.countSingleMessage(msg)
	}

	// Every reply is primed with assistant
	totalTokens += 3

	return totalTokens
}

func (tc *TokenCounter) countSingleMessage(msg Message) int {
	tokens := tc.CountTokens(msg.Role)
	tokens += tc.CountTokens(msg.Content)

	// <|start|>role<|end|> type markers
	tokens += 4

	return tokens
}

// Message represents a chat message with role and content
type Message struct {
	Role    string
	Content string
}

// getEncodingForModel returns the appropriate encoding for a model
func getEncodingForModel(modelName string) string {
	modelLower := strings.ToLower(modelName)

	if strings.Contains(modelLower, "gpt-4o") || strings.HasPrefix(modelLower, "o1") || strings.HasPrefix(modelLower, "o3") {
		return "o200k_base"
	}

	if strings.Contains(modelLower, "gpt-4") || strings.Contains(modelLower, "gpt-3.5") {
		return "cl100k_base"
	}

	if strings.Contains(modelLower, "davinci") || strings.Contains(modelLower, "curie") {
		return "p50k_base"
	}

	return "cl100k_base"
}

// EstimateTokens approximates a token count as the character count divided
// by CharsPerToken, rounded up. Length guardrails rely on this exact formula.
func EstimateTokens(text string) int {
	chars := utf8.RuneCountInString(text)
	return (chars + CharsPerToken - 1) / CharsPerToken
}
