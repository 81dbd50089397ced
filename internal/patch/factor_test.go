package patch

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScale_RoundingBoundaries(t *testing.T) {
	tests := []struct {
		name   string
		old    int64
		factor float64
		want   int64
	}{
		{name: "3 at 150% rounds half away from zero", old: 3, factor: 1.50, want: 5},
		{name: "10 at 125% rounds half away from zero", old: 10, factor: 1.25, want: 13},
		{name: "1 at 50% rounds up", old: 1, factor: 0.50, want: 1},
		{name: "3 at 50%", old: 3, factor: 0.50, want: 2},
		{name: "7 at 75%", old: 7, factor: 0.75, want: 5},
		{name: "zero stays zero", old: 0, factor: 2.50, want: 0},
		{name: "identity", old: 14, factor: 1.00, want: 14},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Scale(tt.old, tt.factor)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScale_Overflow(t *testing.T) {
	_, ok := Scale(math.MaxInt64/2+1, 2.5)
	assert.False(t, ok)
}

// round(round(x*f)*f/f) == round(x*f) for the factors that matter most.
func TestScale_StableUnderReapplication(t *testing.T) {
	for _, f := range []float64{1.00, 2.00} {
		for _, x := range []int64{1, 3, 10} {
			once, ok := Scale(x, f)
			require.True(t, ok)
			twice, ok := Scale(once, f)
			require.True(t, ok)
			back, ok := Scale(twice, 1/f)
			require.True(t, ok)
			assert.Equal(t, once, back, "x=%d f=%v", x, f)
		}
	}
}

func TestFactorTable_Lookup(t *testing.T) {
	table := DefaultFactors()

	f, err := table.Lookup("150%")
	require.NoError(t, err)
	assert.Equal(t, 1.5, f.Value)

	f, err = table.Lookup(" 225 ")
	require.NoError(t, err)
	assert.Equal(t, "225%", f.Label)

	_, err = table.Lookup("130%")
	require.ErrorIs(t, err, ErrUnknownFactor)
	assert.Contains(t, err.Error(), "50%, 75%")
}

func TestFactorTable_Validate(t *testing.T) {
	require.NoError(t, DefaultFactors().Validate())

	tests := []struct {
		name  string
		table FactorTable
	}{
		{name: "empty", table: FactorTable{}},
		{name: "zero multiplier", table: FactorTable{{"0%", 0}}},
		{name: "negative multiplier", table: FactorTable{{"-50%", -0.5}}},
		{name: "unlabelled", table: FactorTable{{"", 1}}},
		{name: "duplicate", table: FactorTable{{"100%", 1}, {"100%", 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.table.Validate())
		})
	}
}

func TestNewEngine(t *testing.T) {
	e, err := NewEngine("", 1.25)
	require.NoError(t, err)
	assert.Equal(t, DefaultField, e.Field)

	_, err = NewEngine(DefaultField, math.NaN())
	assert.Error(t, err)
}
