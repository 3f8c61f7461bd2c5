package acl

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/killallgit/promptspec/pkg/logger"
	"github.com/tmc/langchaingo/tools"
)

// ErrPermissionDenied matches any denied tool invocation via errors.Is
var ErrPermissionDenied = errors.New("permission denied")

// MissingToolsError lists allow-list entries that name no available tool
type MissingToolsError struct {
	Missing []string
}

func (e *MissingToolsError) Error() string {
	return fmt.Sprintf("allow-list names unavailable tools: %s", strings.Join(e.Missing, ", "))
}

// PermissionManager handles tool access control based on allow-list patterns.
// Patterns take the form Tool(matcher); a bare Tool is the same as Tool(*).
// The tool part may end in * to match a name prefix.
type PermissionManager struct {
	allowedPatterns []string
	bypassEnabled   bool
}

// NewPermissionManager creates a permission manager over explicit patterns
func NewPermissionManager(patterns []string) *PermissionManager {
	return NewPermissionManagerWithBypass(patterns, false)
}

// NewPermissionManagerWithBypass creates a permission manager with optional bypass
func NewPermissionManagerWithBypass(patterns []string, bypass bool) *PermissionManager {
	allowed := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			allowed = append(allowed, p)
		}
	}
	return &PermissionManager{
		allowedPatterns: allowed,
		bypassEnabled:   bypass,
	}
}

// Patterns returns a copy of the configured patterns
func (pm *PermissionManager) Patterns() []string {
	out := make([]string, len(pm.allowedPatterns))
	copy(out, pm.allowedPatterns)
	return out
}

// Validate checks if a tool operation is permitted
func (pm *PermissionManager) Validate(toolName string, input string) error {
	if pm.IsAllowed(toolName, input) {
		return nil
	}

	logger.Debug("Denied tool call %s(%s)", toolName, input)
	return fmt.Errorf("%w: %s(%s) not allowed by ACL", ErrPermissionDenied, toolName, input)
}

// IsAllowed checks if the tool operation matches any allowed pattern
func (pm *PermissionManager) IsAllowed(toolName string, input string) bool {
	if pm.bypassEnabled {
		return true
	}

	for _, pattern := range pm.allowedPatterns {
		if matchesPattern(toolName, input, pattern) {
			return true
		}
	}

	return false
}

// Permits reports whether any pattern admits the tool at all, whatever its input
func (pm *PermissionManager) Permits(toolName string) bool {
	if pm.bypassEnabled {
		return true
	}

	for _, pattern := range pm.allowedPatterns {
		tool, _ := splitPattern(pattern)
		if matchesToolName(toolName, tool) {
			return true
		}
	}
	return false
}

// Reconcile checks the allow-list against the available tools and reports
// every entry that names no available tool in one error
func (pm *PermissionManager) Reconcile(available []tools.Tool) error {
	names := make([]string, 0, len(available))
	for _, t := range available {
		names = append(names, t.Name())
	}
	return pm.ReconcileNames(names)
}

// ReconcileNames is Reconcile over bare tool names
func (pm *PermissionManager) ReconcileNames(available []string) error {
	var missing []string
	seen := make(map[string]bool)

	for _, pattern := range pm.allowedPatterns {
		tool, _ := splitPattern(pattern)
		if seen[tool] {
			continue
		}
		seen[tool] = true

		found := false
		for _, name := range available {
			if matchesToolName(name, tool) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, tool)
		}
	}

	if len(missing) > 0 {
		return &MissingToolsError{Missing: missing}
	}
	return nil
}

// Filter returns the available tools the allow-list admits, in input order
func (pm *PermissionManager) Filter(available []tools.Tool) []tools.Tool {
	out := make([]tools.Tool, 0, len(available))
	for _, t := range available {
		if pm.Permits(t.Name()) {
			out = append(out, t)
		}
	}
	return out
}

// Guard wraps a tool so every call is checked against the allow-list and
// counted on the turn counter. A nil counter skips counting.
func (pm *PermissionManager) Guard(tool tools.Tool, counter *TurnCounter) tools.Tool {
	return &guardedTool{tool: tool, pm: pm, counter: counter}
}

type guardedTool struct {
	tool    tools.Tool
	pm      *PermissionManager
	counter *TurnCounter
}

func (g *guardedTool) Name() string {
	return g.tool.Name()
}

func (g *guardedTool) Description() string {
	return g.tool.Description()
}

func (g *guardedTool) Call(ctx context.Context, input string) (string, error) {
	if err := g.pm.Validate(g.tool.Name(), input); err != nil {
		return "", err
	}
	if g.counter != nil {
		if err := g.counter.RecordCall(); err != nil {
			return "", err
		}
	}
	return g.tool.Call(ctx, input)
}

// splitPattern separates Tool(matcher) into its parts
func splitPattern(pattern string) (tool, matcher string) {
	start := strings.Index(pattern, "(")
	end := strings.LastIndex(pattern, ")")
	if start == -1 || end < start {
		return pattern, "*"
	}
	return pattern[:start], pattern[start+1 : end]
}

func matchesToolName(name, tool string) bool {
	if strings.HasSuffix(tool, "*") {
		return strings.HasPrefix(name, strings.TrimSuffix(tool, "*"))
	}
	return name == tool
}

func matchesPattern(toolName, input, pattern string) bool {
	tool, matcher := splitPattern(pattern)
	if !matchesToolName(toolName, tool) {
		return false
	}

	switch {
	case matcher == "*":
		return true
	case strings.HasSuffix(matcher, ":*"):
		// "status:*" matches "status", "status --short" and "status:all"
		prefix := strings.TrimSuffix(matcher, ":*")
		return input == prefix || strings.HasPrefix(input, prefix+" ") || strings.HasPrefix(input, prefix+":")
	case strings.HasPrefix(matcher, "*."):
		return strings.HasSuffix(input, matcher[1:])
	case strings.HasSuffix(matcher, "/*"):
		dir := strings.TrimSuffix(matcher, "/*")
		return strings.HasPrefix(input, dir+"/")
	case strings.HasSuffix(matcher, "*"):
		return strings.HasPrefix(input, strings.TrimSuffix(matcher, "*"))
	default:
		return input == matcher
	}
}
