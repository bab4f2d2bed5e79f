// Package aggregate smooths per-frame measurements over a fixed number of
// recent frames.
//
// An Aggregator keeps three bounded first-in-first-out windows (heights,
// body types, weights). Each frame contributes only the values it actually
// produced, so the windows may fill at different rates. A Snapshot averages
// the numeric windows and takes a majority vote over the body types.
//
// An Aggregator is owned by a single session and is not safe for concurrent
// use.
package aggregate

import (
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/stature/internal/measure"
)

// DefaultCapacity is the window length used when none is given.
const DefaultCapacity = 10

// window is a bounded FIFO: pushing onto a full window evicts the oldest
// entry.
type window[T any] struct {
	items []T
	limit int
}

func newWindow[T any](limit int) window[T] {
	return window[T]{items: make([]T, 0, limit), limit: limit}
}

func (w *window[T]) push(v T) {
	w.items = append(w.items, v)
	if len(w.items) > w.limit {
		w.items = w.items[len(w.items)-w.limit:]
	}
}

func (w *window[T]) len() int { return len(w.items) }

func (w *window[T]) reset() { w.items = w.items[:0] }

// Aggregator holds the rolling windows for one session.
type Aggregator struct {
	capacity int
	heights  window[float64]
	bodies   window[measure.BodyClass]
	weights  window[float64]
}

// New returns an Aggregator whose windows hold capacity frames each.
// A non-positive capacity falls back to DefaultCapacity.
func New(capacity int) *Aggregator {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Aggregator{
		capacity: capacity,
		heights:  newWindow[float64](capacity),
		bodies:   newWindow[measure.BodyClass](capacity),
		weights:  newWindow[float64](capacity),
	}
}

// Update appends each non-nil value to its window. Nil values are skipped.
func (a *Aggregator) Update(height *float64, body *measure.BodyClass, weight *float64) {
	if height != nil {
		a.heights.push(*height)
	}
	if body != nil {
		a.bodies.push(*body)
	}
	if weight != nil {
		a.weights.push(*weight)
	}
}

// UpdateMeasurement feeds one frame's measurement into the windows.
func (a *Aggregator) UpdateMeasurement(m measure.FrameMeasurement) {
	a.Update(m.Height, m.BodyType, m.Weight)
}

// Snapshot is the smoothed state over the current windows. Nil fields are
// absent.
type Snapshot struct {
	Height   *float64           `json:"height_m,omitempty"`
	BodyType *measure.BodyLabel `json:"body_type,omitempty"`
	Weight   *float64           `json:"weight_kg,omitempty"`
	Fill     int                `json:"fill"`
	Capacity int                `json:"capacity"`
}

// Snapshot returns the mean height, the most frequent body type and the
// mean weight. Height is the primary signal: while the height window is
// empty every value is absent regardless of the other windows.
func (a *Aggregator) Snapshot() Snapshot {
	snap := Snapshot{Fill: a.heights.len(), Capacity: a.capacity}
	if a.heights.len() == 0 {
		return snap
	}

	h := stat.Mean(a.heights.items, nil)
	snap.Height = &h

	if label, ok := mode(a.bodies.items); ok {
		snap.BodyType = &label
	}

	if a.weights.len() > 0 {
		w := stat.Mean(a.weights.items, nil)
		snap.Weight = &w
	}
	return snap
}

// mode returns the most frequent label. Counts are kept in first-seen
// order and the leader only changes on a strictly higher count, so on a tie
// the label that reached the winning count first wins.
func mode(classes []measure.BodyClass) (measure.BodyLabel, bool) {
	if len(classes) == 0 {
		return "", false
	}

	var (
		labels []measure.BodyLabel
		counts []int
		best   measure.BodyLabel
		top    int
	)
	for _, c := range classes {
		i := indexOf(labels, c.Label)
		if i < 0 {
			labels = append(labels, c.Label)
			counts = append(counts, 0)
			i = len(labels) - 1
		}
		counts[i]++
		if counts[i] > top {
			top = counts[i]
			best = c.Label
		}
	}
	return best, true
}

func indexOf(labels []measure.BodyLabel, l measure.BodyLabel) int {
	for i, v := range labels {
		if v == l {
			return i
		}
	}
	return -1
}

// Len returns the number of heights currently held.
func (a *Aggregator) Len() int { return a.heights.len() }

// Cap returns the window capacity.
func (a *Aggregator) Cap() int { return a.capacity }

// Heights returns a copy of the height window, oldest first.
func (a *Aggregator) Heights() []float64 {
	out := make([]float64, a.heights.len())
	copy(out, a.heights.items)
	return out
}

// Reset empties every window, keeping the capacity.
func (a *Aggregator) Reset() {
	a.heights.reset()
	a.bodies.reset()
	a.weights.reset()
}
