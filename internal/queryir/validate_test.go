package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOperator(t *testing.T) {
	tests := []struct {
		in   string
		want Operator
	}{
		{"=", OpEquals},
		{"<>", OpNotEqualsAlt},
		{"like", OpLike},
		{"not   like", OpNotLike},
		{" Not In ", OpNotIn},
		{"is not null", OpIsNotNull},
		{"global in", OpGlobalIn},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			op, err := ParseOperator(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, op)
		})
	}
}

func TestParseOperator_Invalid(t *testing.T) {
	for _, in := range []string{"", "==", "contains", "~"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseOperator(in)
			require.Error(t, err)
			assert.True(t, IsInvalidArgument(err))
		})
	}
}

func TestNegate(t *testing.T) {
	tests := []struct {
		op   Operator
		want Operator
	}{
		{OpEquals, OpNotEquals},
		{OpNotEqualsAlt, OpEquals},
		{OpLess, OpGreaterEqual},
		{OpGreater, OpLessEqual},
		{OpLessEqual, OpGreater},
		{OpGreaterEqual, OpLess},
		{OpIn, OpNotIn},
		{OpLike, OpNotLike},
		{OpBetween, OpNotBetween},
		{OpIsNull, OpIsNotNull},
	}

	for _, tc := range tests {
		t.Run(string(tc.op), func(t *testing.T) {
			got, ok := tc.op.Negate()
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNegate_NotEqualsAltNormalizes(t *testing.T) {
	n, ok := OpNotEqualsAlt.Negate()
	require.True(t, ok)
	assert.Equal(t, OpEquals, n)

	back, ok := n.Negate()
	require.True(t, ok)
	assert.Equal(t, OpNotEquals, back)
}

func TestNegate_Involution(t *testing.T) {
	for op := range validOperators {
		// <> normalizes to !=; covered by TestNegate_NotEqualsAltNormalizes.
		if op == OpNotEqualsAlt {
			continue
		}
		n, ok := op.Negate()
		require.True(t, ok, "operator %s has no inverse", op)
		back, ok := n.Negate()
		require.True(t, ok)
		assert.Equal(t, op, back, "negate(negate(%s))", op)
	}
}

func TestNegate_Unknown(t *testing.T) {
	_, ok := Operator("=~").Negate()
	assert.False(t, ok)
}

func TestValidatePredicate(t *testing.T) {
	tests := []struct {
		name    string
		pred    Predicate
		wantErr bool
	}{
		{"basic", Predicate{Column: "a", Operator: OpEquals, Value: 1}, false},
		{"raw", Predicate{Column: Raw("1 = 1")}, false},
		{"unknown operator", Predicate{Column: "a", Operator: "~~", Value: 1}, true},
		{"between pair", Predicate{Column: "a", Operator: OpBetween, Value: []any{1, 2}}, false},
		{"between single", Predicate{Column: "a", Operator: OpBetween, Value: []any{1}}, true},
		{"in list", Predicate{Column: "a", Operator: OpIn, Value: []any{1, 2}}, false},
		{"in subquery", Predicate{Column: "a", Operator: OpIn, Value: Raw("SELECT 1")}, false},
		{"in scalar", Predicate{Column: "a", Operator: OpIn, Value: 3}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePredicate(tc.pred)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, IsInvalidArgument(err))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("desc")
	require.NoError(t, err)
	assert.Equal(t, Desc, d)

	d, err = ParseDirection(" ASC")
	require.NoError(t, err)
	assert.Equal(t, Asc, d)

	_, err = ParseDirection("sideways")
	assert.True(t, IsInvalidArgument(err))
}
