package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/stature/internal/db"
	"github.com/banshee-data/stature/internal/display"
)

func ptr[T any](v T) *T { return &v }

func sampleTrace() *Trace {
	t := NewTrace("abc")
	_ = t.Consume(display.Readout{Frame: 0})
	_ = t.Consume(display.Readout{Frame: 1, Height: ptr(1.71), Weight: ptr(64.3)})
	_ = t.Consume(display.Readout{Frame: 2, Height: ptr(1.73)})
	_ = t.Consume(display.Readout{Frame: 3, Height: ptr(1.72), Weight: ptr(65.1)})
	return t
}

func TestFromReadouts(t *testing.T) {
	t.Parallel()

	rows := []db.ReadoutRow{
		{SessionID: "s", Frame: 4, Height: ptr(1.8)},
		{SessionID: "s", Frame: 5, Height: ptr(1.81), Weight: ptr(80.0)},
	}
	tr := FromReadouts("s", rows)
	want := []Point{
		{Frame: 4, Height: ptr(1.8)},
		{Frame: 5, Height: ptr(1.81), Weight: ptr(80.0)},
	}
	if diff := cmp.Diff(want, tr.Points()); diff != "" {
		t.Errorf("Points() mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, tr.HasHeights())
	assert.False(t, NewTrace("x").HasHeights())
}

func TestWritePNG(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "trace.png")
	require.NoError(t, WritePNG(path, sampleTrace(), display.DefaultThresholds()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")))
}

func TestWritePNG_HeightsOnly(t *testing.T) {
	t.Parallel()

	tr := NewTrace("h")
	_ = tr.Consume(display.Readout{Frame: 0, Height: ptr(1.6)})
	_ = tr.Consume(display.Readout{Frame: 1, Height: ptr(1.62)})
	path := filepath.Join(t.TempDir(), "h.png")
	assert.NoError(t, WritePNG(path, tr, display.Thresholds{}))
}

func TestWritePNG_Empty(t *testing.T) {
	t.Parallel()

	tr := NewTrace("e")
	_ = tr.Consume(display.Readout{Frame: 0})
	err := WritePNG(filepath.Join(t.TempDir(), "e.png"), tr, display.DefaultThresholds())
	assert.ErrorIs(t, err, ErrEmptyTrace)
}

func TestWritePNG_BadPath(t *testing.T) {
	t.Parallel()

	err := WritePNG(filepath.Join(t.TempDir(), "missing", "x.png"), sampleTrace(), display.DefaultThresholds())
	assert.Error(t, err)
}

func TestRenderHTML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, sampleTrace()))
	html := buf.String()
	assert.True(t, strings.Contains(html, "Smoothed Height"))
	assert.True(t, strings.Contains(html, "Smoothed Weight"))
	assert.True(t, strings.Contains(html, "session=abc frames=4"))
	assert.Contains(t, html, "echarts")
}

func TestRenderHTML_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	assert.ErrorIs(t, RenderHTML(&buf, NewTrace("none")), ErrEmptyTrace)
}
