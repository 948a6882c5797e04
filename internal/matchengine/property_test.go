package matchengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchProperty_ExactCoercion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		properties map[string]any
		filter     PropertyFilter
		want       bool
	}{
		{
			name:       "string-stored numeric equals list-wrapped int",
			properties: map[string]any{"Organizer Id": "307"},
			filter:     PropertyFilter{Key: "Organizer Id", Operator: OperatorExact, Value: []any{307}},
			want:       true,
		},
		{
			name:       "stored int equals numeric string",
			properties: map[string]any{"plan_tier": 3},
			filter:     PropertyFilter{Key: "plan_tier", Operator: OperatorExact, Value: "3"},
			want:       true,
		},
		{
			name:       "boolean property equals string true",
			properties: map[string]any{"enabled": true},
			filter:     PropertyFilter{Key: "enabled", Operator: OperatorExact, Value: []any{"true"}},
			want:       true,
		},
		{
			name:       "string False equals boolean false",
			properties: map[string]any{"beta": "False"},
			filter:     PropertyFilter{Key: "beta", Operator: OperatorExact, Value: false},
			want:       true,
		},
		{
			name:       "boolean-like never equals a plain string",
			properties: map[string]any{"enabled": true},
			filter:     PropertyFilter{Key: "enabled", Operator: OperatorExact, Value: "yes"},
			want:       false,
		},
		{
			name:       "plain strings compare case-sensitively",
			properties: map[string]any{"email": "Test@example.com"},
			filter:     PropertyFilter{Key: "email", Operator: OperatorExact, Value: "test@example.com"},
			want:       false,
		},
		{
			name:       "list value means any-of",
			properties: map[string]any{"region": "eu-west"},
			filter:     PropertyFilter{Key: "region", Operator: OperatorExact, Value: []any{"us-east", "eu-west"}},
			want:       true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := MatchProperty(tt.filter, tt.properties)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchProperty_AbsenceAsymmetry(t *testing.T) {
	t.Parallel()

	// Person has no "email" property at all.
	properties := map[string]any{"name": "someone"}

	t.Run("is_not on a missing key matches", func(t *testing.T) {
		got, err := MatchProperty(PropertyFilter{Key: "email", Operator: OperatorIsNot, Value: "x@y.com"}, properties)
		require.NoError(t, err)
		assert.True(t, got)
	})

	t.Run("is_not_set on a missing key matches", func(t *testing.T) {
		got, err := MatchProperty(PropertyFilter{Key: "email", Operator: OperatorIsNotSet}, properties)
		require.NoError(t, err)
		assert.True(t, got)
	})

	t.Run("exact on a missing key signals missing property", func(t *testing.T) {
		got, err := MatchProperty(PropertyFilter{Key: "email", Operator: OperatorExact, Value: "x@y.com"}, properties)
		require.ErrorIs(t, err, ErrPropertyMissing)
		assert.False(t, got)
	})

	t.Run("is_set on a missing key signals missing property", func(t *testing.T) {
		got, err := MatchProperty(PropertyFilter{Key: "email", Operator: OperatorIsSet}, properties)
		require.ErrorIs(t, err, ErrPropertyMissing)
		assert.False(t, got)
	})

	t.Run("is_not on a present but different value matches", func(t *testing.T) {
		got, err := MatchProperty(PropertyFilter{Key: "name", Operator: OperatorIsNot, Value: "other"}, properties)
		require.NoError(t, err)
		assert.True(t, got)
	})

	t.Run("is_not_set on a present key does not match", func(t *testing.T) {
		got, err := MatchProperty(PropertyFilter{Key: "name", Operator: OperatorIsNotSet}, properties)
		require.NoError(t, err)
		assert.False(t, got)
	})
}

func TestMatchProperty_StringOperators(t *testing.T) {
	t.Parallel()

	properties := map[string]any{"email": "Alice@Example.com", "version": "2.14.0"}

	t.Run("icontains is case-insensitive", func(t *testing.T) {
		got, err := MatchProperty(PropertyFilter{Key: "email", Operator: OperatorIContains, Value: "example"}, properties)
		require.NoError(t, err)
		assert.True(t, got)
	})

	t.Run("not_icontains inverts", func(t *testing.T) {
		got, err := MatchProperty(PropertyFilter{Key: "email", Operator: OperatorNotIContains, Value: "gmail"}, properties)
		require.NoError(t, err)
		assert.True(t, got)
	})

	t.Run("regex matches string-coerced value", func(t *testing.T) {
		got, err := MatchProperty(PropertyFilter{Key: "version", Operator: OperatorRegex, Value: `^2\.\d+\.\d+$`}, properties)
		require.NoError(t, err)
		assert.True(t, got)
	})

	t.Run("not_regex inverts", func(t *testing.T) {
		got, err := MatchProperty(PropertyFilter{Key: "version", Operator: OperatorNotRegex, Value: `^3\.`}, properties)
		require.NoError(t, err)
		assert.True(t, got)
	})

	t.Run("invalid regex is a definitional error", func(t *testing.T) {
		_, err := MatchProperty(PropertyFilter{Key: "version", Operator: OperatorRegex, Value: `([`}, properties)
		require.Error(t, err)
	})

	t.Run("icontains coerces numeric properties to strings", func(t *testing.T) {
		got, err := MatchProperty(PropertyFilter{Key: "code", Operator: OperatorIContains, Value: "30"}, map[string]any{"code": 307})
		require.NoError(t, err)
		assert.True(t, got)
	})
}

func TestMatchProperty_Ordering(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		props  map[string]any
		filter PropertyFilter
		want   bool
	}{
		{"gt numeric", map[string]any{"age": 30}, PropertyFilter{Key: "age", Operator: OperatorGT, Value: 18}, true},
		{"gt numeric string vs number", map[string]any{"age": "30"}, PropertyFilter{Key: "age", Operator: OperatorGT, Value: 18}, true},
		{"gte equal bound", map[string]any{"age": 18}, PropertyFilter{Key: "age", Operator: OperatorGTE, Value: 18}, true},
		{"lt excludes equal", map[string]any{"age": 18}, PropertyFilter{Key: "age", Operator: OperatorLT, Value: 18}, false},
		{"lte includes equal", map[string]any{"age": 18}, PropertyFilter{Key: "age", Operator: OperatorLTE, Value: 18}, true},
		{"non-numeric falls back to string order", map[string]any{"tier": "gold"}, PropertyFilter{Key: "tier", Operator: OperatorGT, Value: "bronze"}, true},
		{"list-wrapped bound uses first element", map[string]any{"age": 30}, PropertyFilter{Key: "age", Operator: OperatorGT, Value: []any{18}}, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := MatchProperty(tt.filter, tt.props)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchProperty_UnknownOperator(t *testing.T) {
	t.Parallel()

	_, err := MatchProperty(
		PropertyFilter{Key: "email", Operator: Operator("is_date_before"), Value: "2020-01-01"},
		map[string]any{"email": "a@b.com"},
	)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPropertyMissing)
}
