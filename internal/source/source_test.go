package source

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/stature/internal/landmark"
)

const recording = `{"frame":0,"width":800,"height":800,"landmarks":{"nose":{"x":0.3125,"y":0.125,"z":0,"visibility":0.9}}}

{"frame":1,"width":800,"height":800}
{"frame":2,"width":800,"height":800,"landmarks":{"left_heel":{"x":0.25,"y":0.7,"z":0,"visibility":0.8}}}
`

func writeImage(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.NRGBA{R: 200, A: 255})
	require.NoError(t, imaging.Save(img, path))
}

func drain(t *testing.T, src Source) []Frame {
	t.Helper()
	var frames []Frame
	for {
		f, err := src.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return frames
		}
		require.NoError(t, err)
		frames = append(frames, f)
	}
}

func TestRecording(t *testing.T) {
	t.Parallel()

	src := NewRecording("test", io.NopCloser(strings.NewReader(recording)))
	defer src.Close()

	frames := drain(t, src)
	require.Len(t, frames, 3)

	assert.True(t, frames[0].Detected)
	require.NotNil(t, frames[0].Landmarks)
	assert.Equal(t, 0.9, frames[0].Landmarks.Get(landmark.Nose).Visibility)
	assert.Equal(t, landmark.FrameSize{Width: 800, Height: 800}, frames[0].Size)
	assert.False(t, frames[0].NeedsDetection())

	assert.Equal(t, 1, frames[1].Index)
	assert.False(t, frames[1].Detected)
	assert.Nil(t, frames[1].Landmarks)

	assert.Equal(t, 2, frames[2].Index)
	assert.Equal(t, "test", src.Name())
}

func TestRecording_BadLine(t *testing.T) {
	t.Parallel()

	src := NewRecording("bad", io.NopCloser(strings.NewReader("{\"frame\":0}\nnot json\n")))
	_, err := src.Next(context.Background())
	require.NoError(t, err)
	_, err = src.Next(context.Background())
	assert.ErrorContains(t, err, "bad line 2")
}

func TestRecording_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := NewRecording("r", io.NopCloser(strings.NewReader(recording)))
	_, err := src.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func TestRecording_ClosesReader(t *testing.T) {
	t.Parallel()

	rc := &closeTracker{Reader: strings.NewReader("")}
	src := NewRecording("r", rc)
	require.NoError(t, src.Close())
	assert.True(t, rc.closed)
}

func TestImageSequence(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeImage(t, filepath.Join(dir, "002.png"), 40, 30)
	writeImage(t, filepath.Join(dir, "001.bmp"), 20, 10)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.png"), 0o755))

	seq, err := NewImageSequence(dir)
	require.NoError(t, err)
	defer seq.Close()
	assert.Equal(t, 2, seq.Len())

	frames := drain(t, seq)
	require.Len(t, frames, 2)
	assert.Equal(t, 0, frames[0].Index)
	assert.Equal(t, landmark.FrameSize{Width: 20, Height: 10}, frames[0].Size)
	assert.Equal(t, 1, frames[1].Index)
	assert.Equal(t, landmark.FrameSize{Width: 40, Height: 30}, frames[1].Size)
	for _, f := range frames {
		assert.True(t, f.NeedsDetection())
		assert.False(t, f.Detected)
	}
}

func TestImageSequence_Empty(t *testing.T) {
	t.Parallel()

	_, err := NewImageSequence(t.TempDir())
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestImageSequence_SkipsEscapingSymlink(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dir := filepath.Join(root, "frames")
	require.NoError(t, os.Mkdir(dir, 0o755))
	writeImage(t, filepath.Join(dir, "000.png"), 8, 8)
	outside := filepath.Join(root, "private.png")
	writeImage(t, outside, 16, 16)
	require.NoError(t, os.Symlink(outside, filepath.Join(dir, "001.png")))

	seq, err := NewImageSequence(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, seq.Len())
}

func TestStill(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "person.jpg")
	writeImage(t, path, 64, 48)

	src := NewStill(path)
	frames := drain(t, src)
	require.Len(t, frames, 1)
	assert.Equal(t, landmark.FrameSize{Width: 64, Height: 48}, frames[0].Size)
	assert.Equal(t, path, src.Name())
}

func TestStill_Corrupt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.png")
	require.NoError(t, os.WriteFile(path, []byte("not a png"), 0o644))
	_, err := NewStill(path).Next(context.Background())
	assert.ErrorContains(t, err, "decode")
}

func TestOpen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rec := filepath.Join(dir, "walk.jsonl")
	require.NoError(t, os.WriteFile(rec, []byte(recording), 0o644))
	still := filepath.Join(dir, "still.png")
	writeImage(t, still, 8, 8)
	video := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(video, []byte{0}, 0o644))

	t.Run("stdin", func(t *testing.T) {
		for _, p := range []string{"", "-"} {
			src, err := Open(p, strings.NewReader(recording))
			require.NoError(t, err)
			assert.IsType(t, &Recording{}, src)
			assert.Len(t, drain(t, src), 3)
		}
	})

	t.Run("recording file", func(t *testing.T) {
		src, err := Open(rec, nil)
		require.NoError(t, err)
		defer src.Close()
		assert.IsType(t, &Recording{}, src)
	})

	t.Run("directory", func(t *testing.T) {
		src, err := Open(dir, nil)
		require.NoError(t, err)
		assert.IsType(t, &ImageSequence{}, src)
	})

	t.Run("still", func(t *testing.T) {
		src, err := Open(still, nil)
		require.NoError(t, err)
		assert.IsType(t, &Still{}, src)
	})

	t.Run("video unsupported", func(t *testing.T) {
		_, err := Open(video, nil)
		assert.ErrorIs(t, err, ErrUnsupported)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := Open(filepath.Join(dir, "nope.png"), nil)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestDecode(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "x.png")
	writeImage(t, path, 5, 7)
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	img, err := Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 5, img.Bounds().Dx())

	_, err = Decode(strings.NewReader("garbage"))
	assert.Error(t, err)
}
