package display

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/stature/internal/aggregate"
	"github.com/banshee-data/stature/internal/config"
	"github.com/banshee-data/stature/internal/measure"
	"github.com/banshee-data/stature/internal/units"
)

func ptr[T any](v T) *T { return &v }

func TestClassifyHeight(t *testing.T) {
	t.Parallel()

	tests := []struct {
		m     float64
		label string
		tone  Tone
		color string
	}{
		{1.95, LabelTall, ToneHigh, "#00ff00"},
		{1.81, LabelTall, ToneHigh, "#00ff00"},
		{1.80, LabelAverage, ToneAverage, "#ffff00"},
		{1.70, LabelAverage, ToneAverage, "#ffff00"},
		{1.60, LabelAverage, ToneAverage, "#ffff00"},
		{1.59, LabelShort, ToneLow, "#ff0000"},
		{1.20, LabelShort, ToneLow, "#ff0000"},
	}
	for _, tt := range tests {
		got := ClassifyHeight(tt.m)
		assert.Equal(t, tt.label, got.Label, "height %v", tt.m)
		assert.Equal(t, tt.tone, got.Tone, "height %v", tt.m)
		assert.Equal(t, tt.color, got.Color, "height %v", tt.m)
	}
}

func TestThresholdsFromConfig(t *testing.T) {
	t.Parallel()

	cfg := config.EmptyConfig()
	assert.Equal(t, DefaultThresholds(), ThresholdsFromConfig(cfg))

	tall, short := 1.9, 1.5
	cfg.TallThresholdM = &tall
	cfg.ShortThresholdM = &short
	th := ThresholdsFromConfig(cfg)
	assert.Equal(t, LabelAverage, th.ClassifyHeight(1.85).Label)
	assert.Equal(t, LabelAverage, th.ClassifyHeight(1.55).Label)
	assert.Equal(t, LabelTall, th.ClassifyHeight(1.91).Label)
}

func TestNewReadout(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC)
	label := measure.Heavy
	snap := aggregate.Snapshot{
		Height:   ptr(1.8349),
		BodyType: &label,
		Weight:   ptr(90.8861),
		Fill:     7,
		Capacity: 10,
	}
	got := NewReadout(snap, Options{SessionID: "s1", Frame: 42, Timestamp: at})

	want := Readout{
		SessionID:   "s1",
		Frame:       42,
		Timestamp:   at,
		Height:      ptr(1.83),
		HeightClass: &HeightClass{Label: LabelTall, Tone: ToneHigh, Color: "#00ff00"},
		BodyType:    ptr("Heavy/Obese"),
		Weight:      ptr(90.9),
		Fill:        7,
		Capacity:    10,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("NewReadout() mismatch (-want +got):\n%s", diff)
	}
}

func TestNewReadout_ClassifiesUnroundedHeight(t *testing.T) {
	t.Parallel()

	// 1.8004 rounds to 1.80 for display but is still above the boundary
	got := NewReadout(aggregate.Snapshot{Height: ptr(1.8004), Fill: 1, Capacity: 10}, Options{})
	require.NotNil(t, got.HeightClass)
	assert.Equal(t, 1.80, *got.Height)
	assert.Equal(t, LabelTall, got.HeightClass.Label)
}

func TestNewReadout_Absent(t *testing.T) {
	t.Parallel()

	got := NewReadout(aggregate.Snapshot{Capacity: 10}, Options{Frame: 3})
	assert.False(t, got.HasHeight())
	assert.Nil(t, got.HeightClass)
	assert.Nil(t, got.BodyType)
	assert.Nil(t, got.Weight)
	assert.Equal(t, 10, got.Capacity)
	assert.Empty(t, got.Lines(units.Metric))
}

func TestReadoutLines(t *testing.T) {
	t.Parallel()

	label := measure.Average
	r := NewReadout(aggregate.Snapshot{
		Height:   ptr(1.75),
		BodyType: &label,
		Weight:   ptr(67.375),
		Fill:     7,
		Capacity: 10,
	}, Options{})

	t.Run("metric", func(t *testing.T) {
		t.Parallel()
		want := []string{
			"Estimated height: 1.75 m",
			"Average height",
			"Body type: Average",
			"Estimated weight: 67.4 kg",
			"Frames averaged: 7/10",
		}
		if diff := cmp.Diff(want, r.Lines(units.Metric)); diff != "" {
			t.Errorf("Lines() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("imperial", func(t *testing.T) {
		t.Parallel()
		lines := r.Lines(units.Imperial)
		require.Len(t, lines, 5)
		assert.Equal(t, "Estimated height: 5 ft 8.9 in", lines[0])
		assert.Equal(t, "Estimated weight: 148.6 lb", lines[3])
	})

	t.Run("height only", func(t *testing.T) {
		t.Parallel()
		h := NewReadout(aggregate.Snapshot{Height: ptr(1.5), Fill: 1, Capacity: 10}, Options{})
		want := []string{"Estimated height: 1.50 m", "Short person", "Frames averaged: 1/10"}
		if diff := cmp.Diff(want, h.Lines(units.Metric)); diff != "" {
			t.Errorf("Lines() mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestToneColor(t *testing.T) {
	t.Parallel()

	r, g, b := ToneHigh.Color().RGB255()
	assert.Equal(t, [3]uint8{0, 255, 0}, [3]uint8{r, g, b})
	assert.Equal(t, "#ff0000", ToneLow.Hex())
}
