// Package source yields frames to a measuring session: decoded images that
// still need pose detection, or landmarks detected by an external process.
package source

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/banshee-data/stature/internal/landmark"
)

// ErrUnsupported is returned by Open for paths no Source can read, such as
// encoded video containers.
var ErrUnsupported = errors.New("source: unsupported input")

// Frame is one unit of input: either pixels for a detector or landmarks
// already found upstream. Detected reports whether Landmarks holds a person;
// image frames leave it false until a detector has run.
type Frame struct {
	Index     int
	Size      landmark.FrameSize
	Image     image.Image
	Landmarks *landmark.Set
	Detected  bool
}

// NeedsDetection reports whether the frame carries pixels to run through a
// pose detector.
func (f Frame) NeedsDetection() bool {
	return f.Image != nil && f.Landmarks == nil
}

// Source produces frames in order. Next returns io.EOF after the last frame.
type Source interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
	// Name describes the input for logs and session records.
	Name() string
}

var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
}

var recordingExts = map[string]bool{
	".jsonl":  true,
	".ndjson": true,
	".json":   true,
}

// IsImage reports whether path has a decodable image extension.
func IsImage(path string) bool {
	return imageExts[strings.ToLower(filepath.Ext(path))]
}

// Open picks a Source for path. An empty path or "-" reads a landmark stream
// from stdin, a directory is an image sequence, .jsonl/.ndjson/.json files
// are recordings and image files are single stills.
func Open(path string, stdin io.Reader) (Source, error) {
	if path == "" || path == "-" {
		return NewRecording("stdin", io.NopCloser(stdin)), nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	if info.IsDir() {
		return NewImageSequence(path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case recordingExts[ext]:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open recording: %w", err)
		}
		return NewRecording(path, f), nil
	case imageExts[ext]:
		return NewStill(path), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
}
