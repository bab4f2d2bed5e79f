// Package report charts how a session's smoothed estimates evolved.
package report

import (
	"errors"
	"sync"

	"github.com/banshee-data/stature/internal/db"
	"github.com/banshee-data/stature/internal/display"
)

// ErrEmptyTrace is returned when a trace has no heights to draw.
var ErrEmptyTrace = errors.New("report: trace has no heights")

// Point is one frame's smoothed values. Nil values were absent.
type Point struct {
	Frame  int
	Height *float64
	Weight *float64
}

// Trace is the series of smoothed values for one session. It can be filled
// from stored rows or used directly as a session sink.
type Trace struct {
	SessionID string

	mu     sync.Mutex
	points []Point
}

// NewTrace returns an empty trace.
func NewTrace(sessionID string) *Trace {
	return &Trace{SessionID: sessionID}
}

// FromReadouts builds a trace from stored rows.
func FromReadouts(sessionID string, rows []db.ReadoutRow) *Trace {
	t := NewTrace(sessionID)
	for _, r := range rows {
		t.points = append(t.points, Point{Frame: r.Frame, Height: r.Height, Weight: r.Weight})
	}
	return t
}

// Consume appends a live readout.
func (t *Trace) Consume(r display.Readout) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.points = append(t.points, Point{Frame: r.Frame, Height: r.Height, Weight: r.Weight})
	return nil
}

// Points returns a copy of the trace.
func (t *Trace) Points() []Point {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Point, len(t.points))
	copy(out, t.points)
	return out
}

// HasHeights reports whether any point carries a height.
func (t *Trace) HasHeights() bool {
	for _, p := range t.Points() {
		if p.Height != nil {
			return true
		}
	}
	return false
}
