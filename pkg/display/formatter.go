package display

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/killallgit/promptspec/pkg/logger"
)

// Formatter styles CLI output for terminals. Color is dropped automatically
// when the output is not a TTY.
type Formatter struct {
	headerStyle lipgloss.Style
	roleStyle   lipgloss.Style
	labelStyle  lipgloss.Style
	passStyle   lipgloss.Style
	failStyle   lipgloss.Style
	dimStyle    lipgloss.Style
	boxStyle    lipgloss.Style

	chromaFormatter chroma.Formatter
	chromaStyle     string
}

// NewFormatter creates a formatter with the default palette
func NewFormatter() *Formatter {
	formatter := formatters.Get("terminal16m")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	return &Formatter{
		chromaFormatter: formatter,
		chromaStyle:     "monokai",

		headerStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6347")), // Tomato

		roleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFD700")), // Gold

		labelStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")),

		passStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#98FB98")), // Pale green

		failStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF5555")),

		dimStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")),

		boxStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#555555")).
			Padding(0, 1),
	}
}

// Header renders a section title
func (f *Formatter) Header(content string) string {
	return f.headerStyle.Render(content)
}

// Role renders a chat role tag such as [system]
func (f *Formatter) Role(role string) string {
	return f.roleStyle.Render("[" + role + "]")
}

// Field renders a "label: value" line
func (f *Formatter) Field(label string, value any) string {
	return f.labelStyle.Render(label+":") + " " + fmt.Sprint(value)
}

// Status renders PASS or FAIL
func (f *Formatter) Status(passed bool) string {
	if passed {
		return f.passStyle.Render("PASS")
	}
	return f.failStyle.Render("FAIL")
}

// Dim renders secondary text
func (f *Formatter) Dim(content string) string {
	return f.dimStyle.Render(content)
}

// Box wraps content in a rounded border
func (f *Formatter) Box(content string) string {
	return f.boxStyle.Render(content)
}

// List renders items one per line with a bullet
func (f *Formatter) List(items []string) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, "  - "+item)
	}
	return strings.Join(lines, "\n")
}

// Highlight applies syntax highlighting for the given language, guessing
// from the content when the language is empty or unknown. On any
// highlighting failure the content is returned unchanged.
func (f *Formatter) Highlight(content, language string) string {
	if content == "" {
		return ""
	}

	var lexer chroma.Lexer
	if language != "" {
		lexer = lexers.Get(language)
	}
	if lexer == nil {
		lexer = lexers.Analyse(content)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}

	iterator, err := lexer.Tokenise(nil, content)
	if err != nil {
		logger.Debug("Failed to tokenize content, using plain text: %v", err)
		return content
	}

	var buf strings.Builder
	if err := f.chromaFormatter.Format(&buf, styles.Get(f.chromaStyle), iterator); err != nil {
		logger.Debug("Failed to format content, using plain text: %v", err)
		return content
	}

	return buf.String()
}
