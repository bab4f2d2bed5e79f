package source

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/banshee-data/stature/internal/landmark"
	"github.com/banshee-data/stature/internal/monitoring"
	"github.com/banshee-data/stature/internal/security"
)

func loadImage(path string) (Frame, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return Frame{}, fmt.Errorf("decode %s: %w", path, err)
	}
	b := img.Bounds()
	return Frame{
		Size:  landmark.FrameSize{Width: b.Dx(), Height: b.Dy()},
		Image: img,
	}, nil
}

// ImageSequence reads the image files of a directory in lexical order.
type ImageSequence struct {
	dir   string
	files []string
	next  int
}

// NewImageSequence lists the images in dir. Other files are ignored, as are
// symlinks that resolve outside dir.
func NewImageSequence(dir string) (*ImageSequence, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read image directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !IsImage(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := security.ValidatePathWithinDirectory(path, dir); err != nil {
			monitoring.Logf("skipping %s: %v", path, err)
			continue
		}
		files = append(files, path)
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no images in %s", ErrUnsupported, dir)
	}
	return &ImageSequence{dir: dir, files: files}, nil
}

// Next decodes the next image.
func (s *ImageSequence) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if s.next >= len(s.files) {
		return Frame{}, io.EOF
	}
	f, err := loadImage(s.files[s.next])
	if err != nil {
		return Frame{}, err
	}
	f.Index = s.next
	s.next++
	return f, nil
}

// Len returns the number of images in the sequence.
func (s *ImageSequence) Len() int { return len(s.files) }

func (s *ImageSequence) Close() error { return nil }

func (s *ImageSequence) Name() string { return s.dir }

// Still yields a single image once.
type Still struct {
	path string
	done bool
}

// NewStill returns a Source for one image file. The file is read on Next.
func NewStill(path string) *Still {
	return &Still{path: path}
}

// Next decodes the image on the first call and returns io.EOF afterwards.
func (s *Still) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if s.done {
		return Frame{}, io.EOF
	}
	s.done = true
	return loadImage(s.path)
}

func (s *Still) Close() error { return nil }

func (s *Still) Name() string { return s.path }

// Decode reads an image from r, for callers holding bytes rather than a file.
func Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}
