// Package pose finds body landmarks, either by running a pose model over an
// image or by decoding landmarks that an external process already found.
package pose

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"

	"github.com/banshee-data/stature/internal/landmark"
)

// ErrNoDetector is returned when pixels need detecting but no Detector is
// configured.
var ErrNoDetector = errors.New("pose: no detector configured")

// Detector finds the landmarks of one person in an image. The bool result is
// false when nobody was detected; that is not an error.
type Detector interface {
	Detect(ctx context.Context, img image.Image) (landmark.Set, bool, error)
}

// Record is one frame of a recorded landmark stream, one JSON object per line.
// A record without landmarks means nobody was detected in that frame.
type Record struct {
	Frame     int                          `json:"frame"`
	Width     int                          `json:"width"`
	Height    int                          `json:"height"`
	Landmarks map[string]landmark.Landmark `json:"landmarks,omitempty"`
}

// Size returns the frame size the landmarks were normalised against.
func (r Record) Size() landmark.FrameSize {
	return landmark.FrameSize{Width: r.Width, Height: r.Height}
}

// Set converts the named landmarks into a Set. Landmarks not named stay at
// zero visibility, so they fail every gate. The bool is false when the record
// carries no landmarks.
func (r Record) Set() (landmark.Set, bool, error) {
	var s landmark.Set
	if len(r.Landmarks) == 0 {
		return s, false, nil
	}
	for key, l := range r.Landmarks {
		n, err := landmark.ParseName(key)
		if err != nil {
			return s, false, fmt.Errorf("frame %d: %w", r.Frame, err)
		}
		s[n] = l
	}
	return s, true, nil
}

// DecodeRecord parses one JSON line.
func DecodeRecord(line []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(line, &r); err != nil {
		return r, fmt.Errorf("decode landmark record: %w", err)
	}
	if _, _, err := r.Set(); err != nil {
		return r, err
	}
	return r, nil
}

// NewRecord builds a Record from a detected set, keeping only landmarks with
// some visibility.
func NewRecord(frame int, size landmark.FrameSize, set *landmark.Set) Record {
	r := Record{Frame: frame, Width: size.Width, Height: size.Height}
	if set == nil {
		return r
	}
	r.Landmarks = make(map[string]landmark.Landmark)
	for i, l := range set {
		if l.Visibility > 0 {
			r.Landmarks[landmark.Name(i).String()] = l
		}
	}
	return r
}
