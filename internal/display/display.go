// Package display turns a smoothed snapshot into the values an overlay or
// terminal shows: rounded figures, a height category and its colour.
package display

import (
	"fmt"
	"math"
	"time"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/banshee-data/stature/internal/aggregate"
	"github.com/banshee-data/stature/internal/config"
	"github.com/banshee-data/stature/internal/units"
)

// Tone is the qualitative colour slot of a height category.
type Tone string

const (
	ToneHigh    Tone = "high"
	ToneLow     Tone = "low"
	ToneAverage Tone = "average"
)

// Height category labels.
const (
	LabelTall    = "Tall person"
	LabelShort   = "Short person"
	LabelAverage = "Average height"
)

// Default category boundaries in meters.
const (
	DefaultTallThreshold  = 1.80
	DefaultShortThreshold = 1.60
)

var toneColors = map[Tone]colorful.Color{
	ToneHigh:    {R: 0, G: 1, B: 0},
	ToneLow:     {R: 1, G: 0, B: 0},
	ToneAverage: {R: 1, G: 1, B: 0},
}

// Color returns the tone's display colour.
func (t Tone) Color() colorful.Color {
	return toneColors[t]
}

// Hex returns the tone's colour as "#rrggbb".
func (t Tone) Hex() string {
	return t.Color().Hex()
}

// HeightClass is a height category with its tone.
type HeightClass struct {
	Label string `json:"label"`
	Tone  Tone   `json:"tone"`
	Color string `json:"color"`
}

// Thresholds bound the height categories. Both comparisons are strict.
type Thresholds struct {
	Tall  float64
	Short float64
}

// DefaultThresholds returns the built-in category boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{Tall: DefaultTallThreshold, Short: DefaultShortThreshold}
}

// ThresholdsFromConfig reads the boundaries from cfg.
func ThresholdsFromConfig(cfg *config.Config) Thresholds {
	return Thresholds{Tall: cfg.GetTallThresholdM(), Short: cfg.GetShortThresholdM()}
}

// ClassifyHeight returns the category of a height in meters.
func (th Thresholds) ClassifyHeight(m float64) HeightClass {
	var c HeightClass
	switch {
	case m > th.Tall:
		c = HeightClass{Label: LabelTall, Tone: ToneHigh}
	case m < th.Short:
		c = HeightClass{Label: LabelShort, Tone: ToneLow}
	default:
		c = HeightClass{Label: LabelAverage, Tone: ToneAverage}
	}
	c.Color = c.Tone.Hex()
	return c
}

// ClassifyHeight classifies m against the default thresholds.
func ClassifyHeight(m float64) HeightClass {
	return DefaultThresholds().ClassifyHeight(m)
}

// Options carries the context stamped onto a Readout.
type Options struct {
	SessionID  string
	Frame      int
	Timestamp  time.Time
	Thresholds Thresholds
}

// Readout is one displayable state. Nil pointers are values that could not
// be computed yet.
type Readout struct {
	SessionID   string       `json:"session_id,omitempty"`
	Frame       int          `json:"frame"`
	Timestamp   time.Time    `json:"timestamp"`
	Height      *float64     `json:"height_m,omitempty"`
	HeightClass *HeightClass `json:"height_class,omitempty"`
	BodyType    *string      `json:"body_type,omitempty"`
	Weight      *float64     `json:"weight_kg,omitempty"`
	Fill        int          `json:"fill"`
	Capacity    int          `json:"capacity"`
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// NewReadout rounds the snapshot for display. Height is kept to two
// decimals and weight to one. Zero thresholds fall back to the defaults.
func NewReadout(snap aggregate.Snapshot, opts Options) Readout {
	th := opts.Thresholds
	if th.Tall == 0 && th.Short == 0 {
		th = DefaultThresholds()
	}

	r := Readout{
		SessionID: opts.SessionID,
		Frame:     opts.Frame,
		Timestamp: opts.Timestamp,
		Fill:      snap.Fill,
		Capacity:  snap.Capacity,
	}
	if snap.Height != nil {
		h := round(*snap.Height, 2)
		r.Height = &h
		class := th.ClassifyHeight(*snap.Height)
		r.HeightClass = &class
	}
	if snap.BodyType != nil {
		b := string(*snap.BodyType)
		r.BodyType = &b
	}
	if snap.Weight != nil {
		w := round(*snap.Weight, 1)
		r.Weight = &w
	}
	return r
}

// HasHeight reports whether the readout carries a height.
func (r Readout) HasHeight() bool { return r.Height != nil }

// Lines returns the overlay text in the given unit system. Nothing is shown
// until a height exists.
func (r Readout) Lines(system string) []string {
	if r.Height == nil {
		return nil
	}
	lines := []string{"Estimated height: " + units.FormatHeight(*r.Height, system)}
	if r.HeightClass != nil {
		lines = append(lines, r.HeightClass.Label)
	}
	if r.BodyType != nil {
		lines = append(lines, "Body type: "+*r.BodyType)
	}
	if r.Weight != nil {
		lines = append(lines, "Estimated weight: "+units.FormatWeight(*r.Weight, system))
	}
	lines = append(lines, fmt.Sprintf("Frames averaged: %d/%d", r.Fill, r.Capacity))
	return lines
}
