package measure

import (
	"github.com/banshee-data/stature/internal/config"
	"github.com/banshee-data/stature/internal/landmark"
)

// BodyLabel is the coarse body-type classification.
type BodyLabel string

const (
	Thin    BodyLabel = "Thin"
	Average BodyLabel = "Average"
	Heavy   BodyLabel = "Heavy/Obese"
)

// BodyClass pairs a body-type label with the BMI assumed for it.
type BodyClass struct {
	Label BodyLabel `json:"label"`
	BMI   float64   `json:"bmi"`
}

// Params holds the calibration constants and gates.
type Params struct {
	ReferenceShoulderWidth float64 // metres
	HeightCorrection       float64 // nose-to-crown multiplier

	ShoulderVisibility float64
	NoseVisibility     float64
	HeelVisibility     float64

	ThinRatio    float64 // ratio < ThinRatio → Thin
	AverageRatio float64 // ratio < AverageRatio → Average, else Heavy

	ThinBMI    float64
	AverageBMI float64
	HeavyBMI   float64
}

// DefaultParams returns the built-in calibration.
func DefaultParams() Params {
	return ParamsFromConfig(config.EmptyConfig())
}

// ParamsFromConfig builds Params from a loaded Config.
func ParamsFromConfig(cfg *config.Config) Params {
	return Params{
		ReferenceShoulderWidth: cfg.GetReferenceShoulderWidthM(),
		HeightCorrection:       cfg.GetHeightCorrection(),
		ShoulderVisibility:     cfg.GetShoulderVisibility(),
		NoseVisibility:         cfg.GetNoseVisibility(),
		HeelVisibility:         cfg.GetHeelVisibility(),
		ThinRatio:              cfg.GetThinRatio(),
		AverageRatio:           cfg.GetAverageRatio(),
		ThinBMI:                cfg.GetThinBMI(),
		AverageBMI:             cfg.GetAverageBMI(),
		HeavyBMI:               cfg.GetHeavyBMI(),
	}
}

// shoulderSpan returns the shoulder pixel distance when both shoulders pass
// the visibility gate.
func shoulderSpan(set *landmark.Set, size landmark.FrameSize, p Params) (float64, bool) {
	left := set.Get(landmark.LeftShoulder)
	right := set.Get(landmark.RightShoulder)
	if !left.Visible(p.ShoulderVisibility) || !right.Visible(p.ShoulderVisibility) {
		return 0, false
	}
	return size.Distance(left, right), true
}

// ScaleFactor returns the frame's metres-per-pixel scale derived from the
// shoulder span. Absent when either shoulder is below its gate or the span
// is zero.
func ScaleFactor(set *landmark.Set, size landmark.FrameSize, p Params) (float64, bool) {
	span, ok := shoulderSpan(set, size, p)
	if !ok || span <= 0 {
		return 0, false
	}
	return p.ReferenceShoulderWidth / span, true
}

// Height returns the estimated height in metres and the nose-to-heel span in
// pixels. The lower of the two heels is used. A non-positive pixel span
// (nose at or below the heels) is returned as computed; callers must treat
// it as invalid.
func Height(set *landmark.Set, size landmark.FrameSize, scale float64, p Params) (meters, pixels float64, ok bool) {
	nose := set.Get(landmark.Nose)
	leftHeel := set.Get(landmark.LeftHeel)
	rightHeel := set.Get(landmark.RightHeel)

	if !nose.Visible(p.NoseVisibility) ||
		!leftHeel.Visible(p.HeelVisibility) ||
		!rightHeel.Visible(p.HeelVisibility) {
		return 0, 0, false
	}

	heelY := size.Pixel(leftHeel).Y
	if y := size.Pixel(rightHeel).Y; y > heelY {
		heelY = y
	}
	pixels = heelY - size.Pixel(nose).Y
	meters = pixels * scale * p.HeightCorrection
	return meters, pixels, true
}

// BodyType classifies the body from the shoulder-width-to-height ratio.
// Absent when either shoulder is below its gate or heightPixels is not
// positive.
func BodyType(set *landmark.Set, size landmark.FrameSize, heightPixels float64, p Params) (BodyClass, bool) {
	if heightPixels <= 0 {
		return BodyClass{}, false
	}
	span, ok := shoulderSpan(set, size, p)
	if !ok {
		return BodyClass{}, false
	}

	ratio := span / heightPixels
	switch {
	case ratio < p.ThinRatio:
		return BodyClass{Label: Thin, BMI: p.ThinBMI}, true
	case ratio < p.AverageRatio:
		return BodyClass{Label: Average, BMI: p.AverageBMI}, true
	default:
		return BodyClass{Label: Heavy, BMI: p.HeavyBMI}, true
	}
}

// Weight back-computes a display weight in kilograms from the assumed BMI.
// It is not a measurement.
func Weight(class BodyClass, heightMeters float64) float64 {
	return class.BMI * heightMeters * heightMeters
}
