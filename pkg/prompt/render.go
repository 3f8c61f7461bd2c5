package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/killallgit/promptspec/pkg/config"
	"github.com/killallgit/promptspec/pkg/logger"
)

const (
	syntaxSentinel   = "variable"
	identifierGroup  = `([A-Za-z_][A-Za-z0-9_]*)`
	DefaultSyntax    = config.DefaultSyntax
	DefaultMaxPasses = config.DefaultMaxPasses
)

// Renderer resolves fragments and variables for one placeholder syntax.
// It holds no per-call state and is safe for concurrent use.
type Renderer struct {
	opts    RenderOptions
	pattern *regexp.Regexp
	prefix  string
	suffix  string
}

// NewRenderer compiles the placeholder pattern for the given options
func NewRenderer(opts RenderOptions) (*Renderer, error) {
	opts = opts.withDefaults()

	idx := strings.Index(opts.Syntax, syntaxSentinel)
	if idx < 0 {
		return nil, &RenderError{Kind: ErrKindSyntax, Syntax: opts.Syntax}
	}
	prefix := opts.Syntax[:idx]
	suffix := opts.Syntax[idx+len(syntaxSentinel):]

	pattern, err := regexp.Compile(regexp.QuoteMeta(prefix) + identifierGroup + regexp.QuoteMeta(suffix))
	if err != nil {
		return nil, fmt.Errorf("failed to compile placeholder pattern: %w", err)
	}

	return &Renderer{
		opts:    opts,
		pattern: pattern,
		prefix:  prefix,
		suffix:  suffix,
	}, nil
}

// Render is a convenience wrapper building a Renderer from the context options
func Render(template string, rc RenderContext) (string, error) {
	r, err := NewRenderer(rc.Options)
	if err != nil {
		return "", err
	}
	return r.Render(template, rc.Fragments, rc.Variables)
}

// Options returns the effective options, defaults applied
func (r *Renderer) Options() RenderOptions {
	return r.opts
}

// Render expands fragments, then substitutes variables. On error no
// partial output is returned.
func (r *Renderer) Render(template string, fragments map[string]string, variables map[string]any) (string, error) {
	expanded, err := r.ExpandFragments(template, fragments)
	if err != nil {
		return "", err
	}
	return r.SubstituteVariables(expanded, variables)
}

// ExpandFragments replaces fragment placeholders pass by pass until a pass
// makes no replacement. If the final allowed pass still replaced something
// the expansion is treated as a cycle.
func (r *Renderer) ExpandFragments(text string, fragments map[string]string) (string, error) {
	if len(fragments) == 0 {
		return text, nil
	}

	for pass := 1; pass <= r.opts.MaxPasses; pass++ {
		replaced := false
		text = r.pattern.ReplaceAllStringFunc(text, func(match string) string {
			fragment, ok := fragments[r.nameOf(match)]
			if !ok {
				return match
			}
			replaced = true
			return fragment
		})

		if !replaced {
			return text, nil
		}
	}

	logger.Debug("Fragment expansion still replacing after %d passes", r.opts.MaxPasses)
	return "", &RenderError{Kind: ErrKindDepthExceeded, Passes: r.opts.MaxPasses}
}

// SubstituteVariables replaces every remaining placeholder in a single scan.
// Substituted values are not rescanned.
func (r *Renderer) SubstituteVariables(text string, variables map[string]any) (string, error) {
	var undefined string

	out := r.pattern.ReplaceAllStringFunc(text, func(match string) string {
		if undefined != "" {
			return match
		}

		name := r.nameOf(match)
		value, ok := variables[name]
		if !ok {
			if !r.opts.AllowUndefined {
				undefined = name
			}
			return match
		}
		return FormatValue(value)
	})

	if undefined != "" {
		return "", &RenderError{Kind: ErrKindUndefined, Placeholder: undefined}
	}
	return out, nil
}

// Placeholders lists the placeholder names in text, first occurrence first
func (r *Renderer) Placeholders(text string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range r.pattern.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// ExtractPlaceholders lists placeholder names for the given syntax
func ExtractPlaceholders(text, syntax string) ([]string, error) {
	r, err := NewRenderer(RenderOptions{Syntax: syntax})
	if err != nil {
		return nil, err
	}
	return r.Placeholders(text), nil
}

func (r *Renderer) nameOf(match string) string {
	return match[len(r.prefix) : len(match)-len(r.suffix)]
}

func (o RenderOptions) withDefaults() RenderOptions {
	if o.Syntax == "" {
		o.Syntax = DefaultSyntax
	}
	if o.MaxPasses <= 0 {
		o.MaxPasses = DefaultMaxPasses
	}
	return o
}

// FormatValue returns the canonical text of a variable value: strings as-is,
// numbers and booleans as literals, maps and structs as JSON with sorted keys,
// slices as their elements joined by commas.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case bool:
		return strconv.FormatBool(v)
	case json.Number:
		return v.String()
	}

	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return ""
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64)
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			parts[i] = FormatValue(rv.Index(i).Interface())
		}
		return strings.Join(parts, ",")
	case reflect.Map:
		return marshalCanonical(rv.Interface())
	case reflect.Struct:
		if s, ok := rv.Interface().(fmt.Stringer); ok {
			return s.String()
		}
		return marshalCanonical(rv.Interface())
	default:
		return fmt.Sprint(rv.Interface())
	}
}

// marshalCanonical relies on encoding/json sorting map keys. Markup is
// left unescaped so values reach the model as written.
func marshalCanonical(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
