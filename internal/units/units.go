// Package units provides shared constants and conversion for the length
// and mass units used in readouts.
package units

import (
	"fmt"
	"math"
)

// Unit systems
const (
	Metric   = "metric"
	Imperial = "imperial"
)

// Length and mass units
const (
	M  = "m"
	CM = "cm"
	FT = "ft"
	IN = "in"
	KG = "kg"
	LB = "lb"
)

const (
	metersPerFoot = 0.3048
	metersPerInch = 0.0254
	poundsPerKg   = 2.20462262185
)

// ValidSystems contains all valid unit systems
var ValidSystems = []string{Metric, Imperial}

// IsValidSystem checks if the given unit system is supported
func IsValidSystem(system string) bool {
	for _, s := range ValidSystems {
		if system == s {
			return true
		}
	}
	return false
}

// GetValidSystemsString returns a comma-separated string of valid systems for error messages
func GetValidSystemsString() string {
	return "metric, imperial"
}

// ConvertLength converts a length in metres to the target unit.
// Unknown units return metres unchanged.
func ConvertLength(meters float64, target string) float64 {
	switch target {
	case CM:
		return meters * 100
	case FT:
		return meters / metersPerFoot
	case IN:
		return meters / metersPerInch
	default:
		return meters
	}
}

// ConvertMass converts a mass in kilograms to the target unit.
// Unknown units return kilograms unchanged.
func ConvertMass(kg float64, target string) float64 {
	switch target {
	case LB:
		return kg * poundsPerKg
	default:
		return kg
	}
}

// FeetInches splits a length in metres into whole feet and remaining inches.
func FeetInches(meters float64) (int, float64) {
	totalInches := ConvertLength(meters, IN)
	feet := math.Floor(totalInches / 12)
	return int(feet), totalInches - feet*12
}

// FormatHeight renders a height for display in the given unit system.
func FormatHeight(meters float64, system string) string {
	if system == Imperial {
		ft, in := FeetInches(meters)
		return fmt.Sprintf("%d ft %.1f in", ft, in)
	}
	return fmt.Sprintf("%.2f m", meters)
}

// FormatWeight renders a weight for display in the given unit system.
func FormatWeight(kg float64, system string) string {
	if system == Imperial {
		return fmt.Sprintf("%.1f lb", ConvertMass(kg, LB))
	}
	return fmt.Sprintf("%.1f kg", kg)
}
