package prompt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func floatPtr(f float64) *float64 { return &f }

func boolPtr(b bool) *bool { return &b }

func TestValidateVariables(t *testing.T) {
	t.Run("applies default when key is absent", func(t *testing.T) {
		descriptors := []VariableDescriptor{
			{Name: "tone", Type: TypeString, Default: "friendly"},
		}

		resolved, err := ValidateVariables(descriptors, map[string]any{})

		require.NoError(t, err)
		assert.Equal(t, "friendly", resolved["tone"])
	})

	t.Run("keeps supplied zero value over default", func(t *testing.T) {
		descriptors := []VariableDescriptor{
			{Name: "tone", Type: TypeString, Default: "friendly"},
		}

		resolved, err := ValidateVariables(descriptors, map[string]any{"tone": ""})

		require.NoError(t, err)
		assert.Equal(t, "", resolved["tone"])
	})

	t.Run("null value is treated as absent", func(t *testing.T) {
		descriptors := []VariableDescriptor{
			{Name: "note", Type: TypeString},
			{Name: "tone", Type: TypeString, Default: "friendly"},
		}

		resolved, err := ValidateVariables(descriptors, map[string]any{"note": nil, "tone": nil})

		require.NoError(t, err)
		assert.NotContains(t, resolved, "note")
		assert.Equal(t, "friendly", resolved["tone"])
	})

	t.Run("null required variable is missing", func(t *testing.T) {
		descriptors := []VariableDescriptor{
			{Name: "company", Type: TypeString, Required: true},
		}

		_, err := ValidateVariables(descriptors, map[string]any{"company": nil})

		var varErr *VariableError
		require.ErrorAs(t, err, &varErr)
		assert.Equal(t, RuleRequired, varErr.Rule)
		assert.Contains(t, err.Error(), "missing required variable")
	})

	t.Run("does not mutate the input map", func(t *testing.T) {
		descriptors := []VariableDescriptor{{Name: "tone", Default: "friendly"}}
		values := map[string]any{"other": 1}

		resolved, err := ValidateVariables(descriptors, values)

		require.NoError(t, err)
		assert.NotContains(t, values, "tone")
		assert.Equal(t, 1, resolved["other"])
	})

	t.Run("missing required variable", func(t *testing.T) {
		descriptors := []VariableDescriptor{
			{Name: "company", Type: TypeString, Required: true},
		}

		_, err := ValidateVariables(descriptors, nil)

		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrValidation))

		var varErr *VariableError
		require.ErrorAs(t, err, &varErr)
		assert.Equal(t, "company", varErr.Variable)
		assert.Equal(t, RuleRequired, varErr.Rule)
	})

	t.Run("optional variable may be absent", func(t *testing.T) {
		descriptors := []VariableDescriptor{{Name: "note", Type: TypeString}}

		resolved, err := ValidateVariables(descriptors, nil)

		require.NoError(t, err)
		assert.NotContains(t, resolved, "note")
	})

	t.Run("fails fast on the first declared violation", func(t *testing.T) {
		descriptors := []VariableDescriptor{
			{Name: "first", Type: TypeString, Required: true},
			{Name: "second", Type: TypeNumber, Required: true},
		}

		_, err := ValidateVariables(descriptors, map[string]any{"second": "nope"})

		var varErr *VariableError
		require.ErrorAs(t, err, &varErr)
		assert.Equal(t, "first", varErr.Variable)
	})

	t.Run("undeclared keys pass through", func(t *testing.T) {
		resolved, err := ValidateVariables(nil, map[string]any{"extra": true})

		require.NoError(t, err)
		assert.Equal(t, true, resolved["extra"])
	})
}

func TestValidateVariableTypes(t *testing.T) {
	tests := []struct {
		name     string
		declared string
		value    any
		valid    bool
		actual   string
	}{
		{"string ok", TypeString, "x", true, ""},
		{"int is number", TypeNumber, 3, true, ""},
		{"float is number", TypeNumber, 2.5, true, ""},
		{"bool ok", TypeBoolean, false, true, ""},
		{"map is object", TypeObject, map[string]any{"a": 1}, true, ""},
		{"slice is array", TypeArray, []any{1, 2}, true, ""},
		{"string as number", TypeNumber, "3", false, TypeString},
		{"number as boolean", TypeBoolean, 1, false, TypeNumber},
		{"array as object", TypeObject, []string{"a"}, false, TypeArray},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			descriptors := []VariableDescriptor{{Name: "v", Type: tt.declared}}

			_, err := ValidateVariables(descriptors, map[string]any{"v": tt.value})

			if tt.valid {
				assert.NoError(t, err)
				return
			}

			var varErr *VariableError
			require.ErrorAs(t, err, &varErr)
			assert.Equal(t, RuleType, varErr.Rule)
			assert.Equal(t, tt.declared, varErr.Expected)
			assert.Equal(t, tt.actual, varErr.Actual)
		})
	}
}

func TestValidateVariableRules(t *testing.T) {
	tests := []struct {
		name  string
		desc  VariableDescriptor
		value any
		rule  string
	}{
		{
			name:  "pattern mismatch",
			desc:  VariableDescriptor{Name: "v", Type: TypeString, Validation: &ValidationRules{Pattern: `^[A-Z]+$`}},
			value: "abc",
			rule:  RulePattern,
		},
		{
			name:  "invalid pattern",
			desc:  VariableDescriptor{Name: "v", Type: TypeString, Validation: &ValidationRules{Pattern: `([`}},
			value: "abc",
			rule:  RulePattern,
		},
		{
			name:  "too short",
			desc:  VariableDescriptor{Name: "v", Type: TypeString, Validation: &ValidationRules{MinLength: intPtr(3)}},
			value: "ab",
			rule:  RuleMinLength,
		},
		{
			name:  "too long counts runes",
			desc:  VariableDescriptor{Name: "v", Type: TypeString, Validation: &ValidationRules{MaxLength: intPtr(3)}},
			value: "héllo",
			rule:  RuleMaxLength,
		},
		{
			name:  "below minimum",
			desc:  VariableDescriptor{Name: "v", Type: TypeNumber, Validation: &ValidationRules{Minimum: floatPtr(1)}},
			value: 0,
			rule:  RuleMinimum,
		},
		{
			name:  "above maximum",
			desc:  VariableDescriptor{Name: "v", Type: TypeNumber, Validation: &ValidationRules{Maximum: floatPtr(10)}},
			value: 10.5,
			rule:  RuleMaximum,
		},
		{
			name:  "not in enum",
			desc:  VariableDescriptor{Name: "v", Type: TypeString, Validation: &ValidationRules{Enum: []any{"low", "high"}}},
			value: "medium",
			rule:  RuleEnum,
		},
		{
			name:  "pattern checked before length",
			desc:  VariableDescriptor{Name: "v", Type: TypeString, Validation: &ValidationRules{Pattern: `^\d+$`, MinLength: intPtr(5)}},
			value: "ab",
			rule:  RulePattern,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateVariables([]VariableDescriptor{tt.desc}, map[string]any{"v": tt.value})

			var varErr *VariableError
			require.ErrorAs(t, err, &varErr)
			assert.Equal(t, tt.rule, varErr.Rule)
			assert.Contains(t, err.Error(), `variable "v"`)
		})
	}

	t.Run("values within bounds pass", func(t *testing.T) {
		descriptors := []VariableDescriptor{
			{Name: "code", Type: TypeString, Validation: &ValidationRules{Pattern: `^[A-Z]{3}$`, MinLength: intPtr(3), MaxLength: intPtr(3)}},
			{Name: "count", Type: TypeNumber, Validation: &ValidationRules{Minimum: floatPtr(1), Maximum: floatPtr(5)}},
			{Name: "level", Type: TypeNumber, Validation: &ValidationRules{Enum: []any{1.0, 2.0}}},
		}

		_, err := ValidateVariables(descriptors, map[string]any{
			"code":  "ABC",
			"count": 5,
			"level": 2,
		})

		assert.NoError(t, err)
	})

	t.Run("default is validated too", func(t *testing.T) {
		descriptors := []VariableDescriptor{
			{Name: "tone", Type: TypeString, Default: "shouty", Validation: &ValidationRules{Enum: []any{"calm"}}},
		}

		_, err := ValidateVariables(descriptors, nil)

		var varErr *VariableError
		require.ErrorAs(t, err, &varErr)
		assert.Equal(t, RuleEnum, varErr.Rule)
	})
}
