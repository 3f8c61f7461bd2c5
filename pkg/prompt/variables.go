package prompt

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"unicode/utf8"
)

// ValidateVariables applies defaults and checks values against the declared
// variables in declaration order. It stops at the first violation. The
// returned map is a copy of values plus applied defaults; undeclared keys
// pass through untouched.
func ValidateVariables(descriptors []VariableDescriptor, values map[string]any) (map[string]any, error) {
	resolved := make(map[string]any, len(values)+len(descriptors))
	for k, v := range values {
		resolved[k] = v
	}

	for _, d := range descriptors {
		value, exists := resolved[d.Name]

		// A null value (e.g. `note: ~` in a vars file) carries no data
		if exists && value == nil {
			delete(resolved, d.Name)
			exists = false
		}

		// Defaults only apply when the key is absent, not when it holds a zero value
		if !exists && d.Default != nil {
			value = d.Default
			exists = true
			resolved[d.Name] = value
		}

		if !exists {
			if d.Required {
				return nil, &VariableError{
					Variable: d.Name,
					Rule:     RuleRequired,
					Message:  "missing required variable",
				}
			}
			continue
		}

		if err := checkType(d, value); err != nil {
			return nil, err
		}

		if d.Validation != nil {
			if err := checkRules(d, value); err != nil {
				return nil, err
			}
		}
	}

	return resolved, nil
}

func checkType(d VariableDescriptor, value any) error {
	actual := typeOf(value)
	if d.Type == "" || actual == d.Type {
		return nil
	}
	return &VariableError{
		Variable: d.Name,
		Rule:     RuleType,
		Expected: d.Type,
		Actual:   actual,
		Message:  fmt.Sprintf("expected type %s, got %s", d.Type, actual),
	}
}

func checkRules(d VariableDescriptor, value any) error {
	rules := d.Validation

	if s, ok := value.(string); ok {
		if rules.Pattern != "" {
			re, err := regexp.Compile(rules.Pattern)
			if err != nil {
				return &VariableError{
					Variable: d.Name,
					Rule:     RulePattern,
					Expected: rules.Pattern,
					Actual:   s,
					Message:  fmt.Sprintf("invalid pattern %q: %v", rules.Pattern, err),
				}
			}
			if !re.MatchString(s) {
				return &VariableError{
					Variable: d.Name,
					Rule:     RulePattern,
					Expected: rules.Pattern,
					Actual:   s,
					Message:  fmt.Sprintf("value %q does not match pattern %q", s, rules.Pattern),
				}
			}
		}

		length := utf8.RuneCountInString(s)
		if rules.MinLength != nil && length < *rules.MinLength {
			return &VariableError{
				Variable: d.Name,
				Rule:     RuleMinLength,
				Expected: *rules.MinLength,
				Actual:   length,
				Message:  fmt.Sprintf("length %d is below minimum length %d", length, *rules.MinLength),
			}
		}
		if rules.MaxLength != nil && length > *rules.MaxLength {
			return &VariableError{
				Variable: d.Name,
				Rule:     RuleMaxLength,
				Expected: *rules.MaxLength,
				Actual:   length,
				Message:  fmt.Sprintf("length %d exceeds maximum length %d", length, *rules.MaxLength),
			}
		}
	}

	if n, ok := toFloat(value); ok {
		if rules.Minimum != nil && n < *rules.Minimum {
			return &VariableError{
				Variable: d.Name,
				Rule:     RuleMinimum,
				Expected: *rules.Minimum,
				Actual:   value,
				Message:  fmt.Sprintf("value %v is below minimum %v", value, *rules.Minimum),
			}
		}
		if rules.Maximum != nil && n > *rules.Maximum {
			return &VariableError{
				Variable: d.Name,
				Rule:     RuleMaximum,
				Expected: *rules.Maximum,
				Actual:   value,
				Message:  fmt.Sprintf("value %v exceeds maximum %v", value, *rules.Maximum),
			}
		}
	}

	if len(rules.Enum) > 0 && !inEnum(value, rules.Enum) {
		return &VariableError{
			Variable: d.Name,
			Rule:     RuleEnum,
			Expected: rules.Enum,
			Actual:   value,
			Message:  fmt.Sprintf("value %v is not one of %v", value, rules.Enum),
		}
	}

	return nil
}

// typeOf maps a Go value onto the declared type vocabulary
func typeOf(value any) string {
	if value == nil {
		return "null"
	}
	if _, ok := value.(json.Number); ok {
		return TypeNumber
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String:
		return TypeString
	case reflect.Bool:
		return TypeBoolean
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return TypeNumber
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return "null"
		}
		return TypeArray
	case reflect.Map:
		if rv.IsNil() {
			return "null"
		}
		return TypeObject
	case reflect.Struct:
		return TypeObject
	case reflect.Pointer:
		if rv.IsNil() {
			return "null"
		}
		return typeOf(rv.Elem().Interface())
	default:
		return rv.Kind().String()
	}
}

func toFloat(value any) (float64, bool) {
	if n, ok := value.(json.Number); ok {
		f, err := n.Float64()
		return f, err == nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}

// inEnum compares numbers numerically so 1 (int) matches 1.0 (float64)
func inEnum(value any, allowed []any) bool {
	n, isNumber := toFloat(value)
	for _, candidate := range allowed {
		if isNumber {
			if c, ok := toFloat(candidate); ok && c == n {
				return true
			}
			continue
		}
		if reflect.DeepEqual(value, candidate) {
			return true
		}
	}
	return false
}
