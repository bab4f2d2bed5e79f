package source

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/banshee-data/stature/internal/pose"
)

const maxRecordLine = 1 << 20

// Recording reads a JSON-lines landmark stream. Blank lines are skipped.
type Recording struct {
	name    string
	rc      io.ReadCloser
	scanner *bufio.Scanner
	line    int
}

// NewRecording wraps rc. The Recording owns rc and closes it.
func NewRecording(name string, rc io.ReadCloser) *Recording {
	sc := bufio.NewScanner(rc)
	sc.Buffer(make([]byte, 64*1024), maxRecordLine)
	return &Recording{name: name, rc: rc, scanner: sc}
}

// Next decodes the next record.
func (r *Recording) Next(ctx context.Context) (Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Frame{}, err
		}
		if !r.scanner.Scan() {
			if err := r.scanner.Err(); err != nil {
				return Frame{}, fmt.Errorf("read %s: %w", r.name, err)
			}
			return Frame{}, io.EOF
		}
		r.line++
		line := bytes.TrimSpace(r.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		rec, err := pose.DecodeRecord(line)
		if err != nil {
			return Frame{}, fmt.Errorf("%s line %d: %w", r.name, r.line, err)
		}
		set, ok, err := rec.Set()
		if err != nil {
			return Frame{}, fmt.Errorf("%s line %d: %w", r.name, r.line, err)
		}
		f := Frame{Index: rec.Frame, Size: rec.Size(), Detected: ok}
		if ok {
			f.Landmarks = &set
		}
		return f, nil
	}
}

// Close closes the underlying reader.
func (r *Recording) Close() error { return r.rc.Close() }

// Name returns the recording's label.
func (r *Recording) Name() string { return r.name }
