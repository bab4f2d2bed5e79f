// Package session runs the per-frame measuring loop for one person in front
// of one input.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/stature/internal/aggregate"
	"github.com/banshee-data/stature/internal/display"
	"github.com/banshee-data/stature/internal/measure"
	"github.com/banshee-data/stature/internal/monitoring"
	"github.com/banshee-data/stature/internal/pose"
	"github.com/banshee-data/stature/internal/source"
	"github.com/banshee-data/stature/internal/timeutil"
)

// Sink receives every readout a session produces.
type Sink interface {
	Consume(r display.Readout) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(r display.Readout) error

// Consume calls f(r).
func (f SinkFunc) Consume(r display.Readout) error { return f(r) }

// Options configure a Session. Zero values take defaults: a fresh ID, the
// default window capacity, default measurement parameters and the real clock.
type Options struct {
	ID         string
	Source     string
	Capacity   int
	Params     *measure.Params
	Thresholds display.Thresholds
	Clock      timeutil.Clock
	Detector   pose.Detector
	Sinks      []Sink
}

// Session owns one aggregator. ProcessFrame and Run must be called from a
// single goroutine; Latest may be called from any.
type Session struct {
	id         string
	source     string
	agg        *aggregate.Aggregator
	params     measure.Params
	thresholds display.Thresholds
	clock      timeutil.Clock
	detector   pose.Detector
	sinks      []Sink
	started    time.Time

	mu       sync.RWMutex
	latest   display.Readout
	hasFrame bool
	frames   int
}

// New creates a Session.
func New(opts Options) *Session {
	s := &Session{
		id:         opts.ID,
		source:     opts.Source,
		agg:        aggregate.New(opts.Capacity),
		thresholds: opts.Thresholds,
		clock:      opts.Clock,
		detector:   opts.Detector,
		sinks:      opts.Sinks,
	}
	if s.id == "" {
		s.id = uuid.New().String()
	}
	if opts.Params != nil {
		s.params = *opts.Params
	} else {
		s.params = measure.DefaultParams()
	}
	if s.clock == nil {
		s.clock = timeutil.RealClock{}
	}
	s.started = s.clock.Now()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Source returns the input label the session was created with.
func (s *Session) Source() string { return s.source }

// Capacity returns the smoothing window length.
func (s *Session) Capacity() int { return s.agg.Cap() }

// StartedAt returns when the session was created.
func (s *Session) StartedAt() time.Time { return s.started }

// AddSink appends a sink. It must not be called while Run is active.
func (s *Session) AddSink(sink Sink) {
	s.sinks = append(s.sinks, sink)
}

// ProcessFrame measures one frame, folds it into the windows and publishes
// the smoothed readout. A frame without a person still produces a readout of
// the current smoothed state. Sink failures are logged, not returned.
func (s *Session) ProcessFrame(ctx context.Context, f source.Frame) (display.Readout, error) {
	start := s.clock.Now()

	set, detected := f.Landmarks, f.Detected
	if f.NeedsDetection() {
		if s.detector == nil {
			return display.Readout{}, pose.ErrNoDetector
		}
		found, ok, err := s.detector.Detect(ctx, f.Image)
		if err != nil {
			return display.Readout{}, fmt.Errorf("frame %d: %w", f.Index, err)
		}
		set, detected = &found, ok
	}

	if detected && set != nil {
		s.agg.UpdateMeasurement(measure.Measure(set, f.Size, s.params))
	}

	r := display.NewReadout(s.agg.Snapshot(), display.Options{
		SessionID:  s.id,
		Frame:      f.Index,
		Timestamp:  start,
		Thresholds: s.thresholds,
	})

	s.mu.Lock()
	s.latest = r
	s.hasFrame = true
	s.frames++
	s.mu.Unlock()

	for _, sink := range s.sinks {
		if err := sink.Consume(r); err != nil {
			monitoring.Logf("session %s: sink error on frame %d: %v", s.id, f.Index, err)
		}
	}
	monitoring.Debugf("session %s: frame %d processed in %v", s.id, f.Index, s.clock.Since(start))
	return r, nil
}

// Run processes frames until src is exhausted or ctx is cancelled, and
// returns the last readout. src is closed on every exit path. Per-frame
// detection failures are logged and skipped; any other source error ends
// the run.
func (s *Session) Run(ctx context.Context, src source.Source) (display.Readout, error) {
	defer func() {
		if err := src.Close(); err != nil {
			monitoring.Logf("session %s: closing %s: %v", s.id, src.Name(), err)
		}
	}()

	for {
		f, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return s.lastReadout(), fmt.Errorf("read frame: %w", err)
		}

		if _, err := s.ProcessFrame(ctx, f); err != nil {
			if errors.Is(err, pose.ErrNoDetector) || ctx.Err() != nil {
				return s.lastReadout(), err
			}
			monitoring.Logf("session %s: skipping frame: %v", s.id, err)
		}
	}
	return s.lastReadout(), nil
}

func (s *Session) lastReadout() display.Readout {
	r, _ := s.Latest()
	return r
}

// Latest returns a copy of the most recent readout. The bool is false until
// the first frame has been processed.
func (s *Session) Latest() (display.Readout, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.hasFrame
}

// Frames returns how many frames have been processed.
func (s *Session) Frames() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frames
}

// PrinterSink writes each readout that has a height as one terminal line.
type PrinterSink struct {
	W      io.Writer
	System string
}

// Consume prints r.
func (p PrinterSink) Consume(r display.Readout) error {
	lines := r.Lines(p.System)
	if len(lines) == 0 {
		return nil
	}
	_, err := fmt.Fprintf(p.W, "[frame %d] %s\n", r.Frame, strings.Join(lines, " | "))
	return err
}
