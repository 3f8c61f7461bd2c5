package guardrails

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/killallgit/promptspec/pkg/tokens"
)

type builtinKind int

const (
	kindBannedPhrases builtinKind = iota
	kindMaxLength
	kindMinLength
	kindPatternMatch
)

var builtins = map[string]builtinKind{
	TypeBannedPhrases: kindBannedPhrases,
	TypeMaxLength:     kindMaxLength,
	TypeMinLength:     kindMinLength,
	TypePatternMatch:  kindPatternMatch,
}

// evaluateBuiltin dispatches to the evaluator for a built-in kind
func evaluateBuiltin(kind builtinKind, response string, d Descriptor) Outcome {
	switch kind {
	case kindBannedPhrases:
		return checkBannedPhrases(response, d)
	case kindMaxLength:
		return checkMaxLength(response, d)
	case kindMinLength:
		return checkMinLength(response, d)
	case kindPatternMatch:
		return checkPatternMatch(response, d)
	default:
		return Outcome{
			Passed:        false,
			ValidatorType: d.Type,
			Message:       fmt.Sprintf("unknown built-in guardrail kind %d", kind),
		}
	}
}

func checkBannedPhrases(response string, d Descriptor) Outcome {
	var matched []string
	for _, phrase := range stringListParam(d.Params, "words") {
		if phrase == "" {
			continue
		}
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(phrase) + `\b`)
		if re.MatchString(response) {
			matched = append(matched, phrase)
		}
	}

	if len(matched) == 0 {
		return Outcome{Passed: true, ValidatorType: d.Type}
	}

	return Outcome{
		Passed:        false,
		ValidatorType: d.Type,
		Message:       fmt.Sprintf("Response contains banned phrases: %s", strings.Join(matched, ", ")),
		Details:       map[string]any{"matched_phrases": matched},
	}
}

func checkMaxLength(response string, d Descriptor) Outcome {
	length := utf8.RuneCountInString(response)

	if limit, ok := numberParam(d.Params, "max_characters"); ok && float64(length) > limit {
		return Outcome{
			Passed:        false,
			ValidatorType: d.Type,
			Message:       fmt.Sprintf("Response length %d exceeds maximum of %s characters", length, formatNumber(limit)),
			Details:       map[string]any{"length": length, "max_characters": normalizeNumber(limit)},
		}
	}

	if limit, ok := numberParam(d.Params, "max_tokens"); ok {
		estimated := tokens.EstimateTokens(response)
		if float64(estimated) > limit {
			return Outcome{
				Passed:        false,
				ValidatorType: d.Type,
				Message:       fmt.Sprintf("Response has an estimated %d tokens, exceeding maximum of %s", estimated, formatNumber(limit)),
				Details:       map[string]any{"estimated_tokens": estimated, "max_tokens": normalizeNumber(limit)},
			}
		}
	}

	return Outcome{Passed: true, ValidatorType: d.Type}
}

func checkMinLength(response string, d Descriptor) Outcome {
	length := utf8.RuneCountInString(response)

	if limit, ok := numberParam(d.Params, "min_characters"); ok && float64(length) < limit {
		return Outcome{
			Passed:        false,
			ValidatorType: d.Type,
			Message:       fmt.Sprintf("Response length %d is below minimum of %s characters", length, formatNumber(limit)),
			Details:       map[string]any{"length": length, "min_characters": normalizeNumber(limit)},
		}
	}

	if limit, ok := numberParam(d.Params, "min_tokens"); ok {
		estimated := tokens.EstimateTokens(response)
		if float64(estimated) < limit {
			return Outcome{
				Passed:        false,
				ValidatorType: d.Type,
				Message:       fmt.Sprintf("Response has an estimated %d tokens, below minimum of %s", estimated, formatNumber(limit)),
				Details:       map[string]any{"estimated_tokens": estimated, "min_tokens": normalizeNumber(limit)},
			}
		}
	}

	return Outcome{Passed: true, ValidatorType: d.Type}
}

func checkPatternMatch(response string, d Descriptor) Outcome {
	pattern, _ := d.Params["pattern"].(string)
	mustMatch := true
	if v, ok := d.Params["must_match"].(bool); ok {
		mustMatch = v
	}

	if pattern == "" {
		return Outcome{
			Passed:        false,
			ValidatorType: d.Type,
			Message:       "pattern_match guardrail requires a pattern parameter",
			Details:       map[string]any{"error": "missing pattern"},
		}
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return Outcome{
			Passed:        false,
			ValidatorType: d.Type,
			Message:       fmt.Sprintf("Invalid pattern %q", pattern),
			Details:       map[string]any{"pattern": pattern, "error": err.Error()},
		}
	}

	matched := re.MatchString(response)
	switch {
	case mustMatch && !matched:
		return Outcome{
			Passed:        false,
			ValidatorType: d.Type,
			Message:       fmt.Sprintf("Response does not match required pattern %q", pattern),
			Details:       map[string]any{"pattern": pattern, "must_match": true},
		}
	case !mustMatch && matched:
		return Outcome{
			Passed:        false,
			ValidatorType: d.Type,
			Message:       fmt.Sprintf("Response matches forbidden pattern %q", pattern),
			Details:       map[string]any{"pattern": pattern, "must_match": false},
		}
	}

	return Outcome{Passed: true, ValidatorType: d.Type}
}

// stringListParam reads a list of strings from decoded YAML/JSON params
func stringListParam(params map[string]any, key string) []string {
	switch v := params[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{v}
	default:
		return nil
	}
}

// numberParam reads a numeric bound regardless of the decoder's numeric type
func numberParam(params map[string]any, key string) (float64, bool) {
	switch v := params[key].(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// normalizeNumber reports integral bounds as int so details read naturally
func normalizeNumber(f float64) any {
	if f == math.Trunc(f) && math.Abs(f) < math.MaxInt32 {
		return int(f)
	}
	return f
}

func formatNumber(f float64) string {
	return fmt.Sprint(normalizeNumber(f))
}
