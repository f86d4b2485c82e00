// Package aqi maps EPA Air Quality Index values to their categories.
package aqi

import (
	"errors"
	"fmt"
)

// ErrInvalidValue is returned when an AQI value is negative.
var ErrInvalidValue = errors.New("aqi value must be non-negative")

// CategoryName identifies an EPA AQI category.
type CategoryName string

const (
	Good               CategoryName = "Good"
	Moderate           CategoryName = "Moderate"
	UnhealthySensitive CategoryName = "UnhealthySensitive"
	Unhealthy          CategoryName = "Unhealthy"
	VeryUnhealthy      CategoryName = "VeryUnhealthy"
	Hazardous          CategoryName = "Hazardous"
)

// Category describes one band of the EPA AQI scale.
type Category struct {
	Name CategoryName `json:"name"`

	// Severity ranks categories from 0 (Good) to 5 (Hazardous).
	Severity int `json:"severity"`

	// MinAQI and MaxAQI bound the band. MaxAQI is -1 for the open-ended
	// Hazardous band.
	MinAQI int `json:"minAqi"`
	MaxAQI int `json:"maxAqi"`

	// Color is the display token, Hex the EPA color code.
	Color string `json:"color"`
	Hex   string `json:"hex"`

	Description string `json:"description"`
}

// categories partitions [0, inf) with no gaps or overlaps. Order matters:
// Classify scans it front to back and severity equals the index.
var categories = []Category{
	{Good, 0, 0, 50, "green", "#00E400", "Air quality is satisfactory and poses little or no risk."},
	{Moderate, 1, 51, 100, "yellow", "#FFFF00", "Acceptable air quality; some pollutants may affect unusually sensitive people."},
	{UnhealthySensitive, 2, 101, 150, "orange", "#FF7E00", "Members of sensitive groups may experience health effects."},
	{Unhealthy, 3, 151, 200, "red", "#FF0000", "Everyone may begin to experience health effects."},
	{VeryUnhealthy, 4, 201, 300, "purple", "#8F3F97", "Health alert: the risk of health effects is increased for everyone."},
	{Hazardous, 5, 301, -1, "brown", "#7E0023", "Health warning of emergency conditions: everyone is more likely to be affected."},
}

// Classify returns the category for an AQI value.
// Negative input fails with ErrInvalidValue.
func Classify(value int) (Category, error) {
	if value < 0 {
		return Category{}, fmt.Errorf("classify %d: %w", value, ErrInvalidValue)
	}
	for _, c := range categories {
		if c.MaxAQI < 0 || value <= c.MaxAQI {
			return c, nil
		}
	}
	// Unreachable: the last band is open-ended.
	return categories[len(categories)-1], nil
}

// Categories returns the full scale in ascending severity order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}
