package aqi_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airsight/airsight/internal/aqi"
)

func TestClassifyBands(t *testing.T) {
	tests := []struct {
		name     string
		value    int
		want     aqi.CategoryName
		severity int
		color    string
	}{
		{"zero", 0, aqi.Good, 0, "green"},
		{"mid good", 25, aqi.Good, 0, "green"},
		{"good upper bound", 50, aqi.Good, 0, "green"},
		{"moderate lower bound", 51, aqi.Moderate, 1, "yellow"},
		{"moderate upper bound", 100, aqi.Moderate, 1, "yellow"},
		{"sensitive lower bound", 101, aqi.UnhealthySensitive, 2, "orange"},
		{"sensitive upper bound", 150, aqi.UnhealthySensitive, 2, "orange"},
		{"unhealthy lower bound", 151, aqi.Unhealthy, 3, "red"},
		{"unhealthy upper bound", 200, aqi.Unhealthy, 3, "red"},
		{"very unhealthy lower bound", 201, aqi.VeryUnhealthy, 4, "purple"},
		{"very unhealthy upper bound", 300, aqi.VeryUnhealthy, 4, "purple"},
		{"hazardous lower bound", 301, aqi.Hazardous, 5, "brown"},
		{"hazardous extreme", 999, aqi.Hazardous, 5, "brown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat, err := aqi.Classify(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cat.Name)
			assert.Equal(t, tt.severity, cat.Severity)
			assert.Equal(t, tt.color, cat.Color)
		})
	}
}

func TestClassifyEveryBandValue(t *testing.T) {
	// Exhaustive sweep over the bounded region of the scale.
	for v := 0; v <= 400; v++ {
		cat, err := aqi.Classify(v)
		require.NoError(t, err, "value %d", v)
		assert.GreaterOrEqual(t, v, cat.MinAQI, "value %d below band min", v)
		if cat.MaxAQI >= 0 {
			assert.LessOrEqual(t, v, cat.MaxAQI, "value %d above band max", v)
		}
	}
}

func TestClassifyNegative(t *testing.T) {
	_, err := aqi.Classify(-1)
	require.Error(t, err)
	assert.ErrorIs(t, err, aqi.ErrInvalidValue)

	_, err = aqi.Classify(-500)
	assert.ErrorIs(t, err, aqi.ErrInvalidValue)
}

func TestCategoriesPartitionScale(t *testing.T) {
	cats := aqi.Categories()
	require.Len(t, cats, 6)

	assert.Equal(t, 0, cats[0].MinAQI)
	assert.Equal(t, -1, cats[len(cats)-1].MaxAQI)

	for i := 1; i < len(cats); i++ {
		assert.Equal(t, cats[i-1].MaxAQI+1, cats[i].MinAQI,
			"gap or overlap between %s and %s", cats[i-1].Name, cats[i].Name)
		assert.Equal(t, i, cats[i].Severity)
	}
}

func TestCategoriesReturnsCopy(t *testing.T) {
	cats := aqi.Categories()
	cats[0].Color = "mutated"

	fresh := aqi.Categories()
	assert.Equal(t, "green", fresh[0].Color)
}
