package measure

import (
	"github.com/banshee-data/stature/internal/landmark"
)

// FrameMeasurement is the result of measuring one frame. Nil fields are
// absent: a gate failed or an upstream value was missing.
type FrameMeasurement struct {
	ScaleFactor  *float64   `json:"scale_factor,omitempty"` // metres per pixel
	Height       *float64   `json:"height_m,omitempty"`     // metres
	HeightPixels *float64   `json:"height_px,omitempty"`    // nose-to-heel span
	BodyType     *BodyClass `json:"body_type,omitempty"`    // label + assumed BMI
	Weight       *float64   `json:"weight_kg,omitempty"`    // derived from BodyType
}

// Complete reports whether every stage produced a value.
func (m FrameMeasurement) Complete() bool {
	return m.ScaleFactor != nil && m.Height != nil && m.BodyType != nil && m.Weight != nil
}

// Measure runs the full chain for one frame: scale, height, body type,
// weight. Each stage only runs when its inputs are present. Height is only
// reported for a positive pixel span.
func Measure(set *landmark.Set, size landmark.FrameSize, p Params) FrameMeasurement {
	var m FrameMeasurement
	if set == nil || !size.Valid() {
		return m
	}

	scale, ok := ScaleFactor(set, size, p)
	if !ok {
		return m
	}
	m.ScaleFactor = &scale

	meters, pixels, ok := Height(set, size, scale, p)
	if !ok || pixels <= 0 {
		return m
	}
	m.Height = &meters
	m.HeightPixels = &pixels

	class, ok := BodyType(set, size, pixels, p)
	if !ok {
		return m
	}
	m.BodyType = &class

	w := Weight(class, meters)
	m.Weight = &w
	return m
}
