package pose

import (
	"context"
	"fmt"
	"image"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/banshee-data/stature/internal/landmark"
	"github.com/banshee-data/stature/internal/monitoring"
)

// BlazePose full-body landmark model geometry.
const (
	InputSize        = 256
	modelLandmarks   = 39
	valuesPerPoint   = 5
	landmarkOutput   = "Identity"
	presenceOutput   = "Identity_1"
	inputTensorName  = "input_1"
	DefaultMinScore  = 0.5
	landmarkValueLen = modelLandmarks * valuesPerPoint
)

// InitRuntime loads the onnxruntime shared library. It must be called once
// before NewONNXDetector; DestroyRuntime undoes it.
func InitRuntime(libPath string) error {
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnxruntime: %w", err)
	}
	return nil
}

// DestroyRuntime releases the onnxruntime environment.
func DestroyRuntime() error {
	return ort.DestroyEnvironment()
}

// ONNXDetector runs the BlazePose landmark model. Detect may be called from
// several goroutines; runs are serialised over the shared tensors.
type ONNXDetector struct {
	mu       sync.Mutex
	session  *ort.AdvancedSession
	input    *ort.Tensor[float32]
	points   *ort.Tensor[float32]
	presence *ort.Tensor[float32]
	minScore float64
}

// NewONNXDetector loads the model at modelPath. Frames whose pose presence
// score is below minScore report no person.
func NewONNXDetector(modelPath string, minScore float64) (*ONNXDetector, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("error creating session options: %w", err)
	}
	defer options.Destroy()

	options.SetIntraOpNumThreads(runtime.NumCPU())

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, InputSize, InputSize, 3))
	if err != nil {
		return nil, fmt.Errorf("error creating input tensor: %w", err)
	}
	points, err := ort.NewEmptyTensor[float32](ort.NewShape(1, landmarkValueLen))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("error creating landmark tensor: %w", err)
	}
	presence, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		input.Destroy()
		points.Destroy()
		return nil, fmt.Errorf("error creating presence tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{inputTensorName},
		[]string{landmarkOutput, presenceOutput},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{points, presence},
		options,
	)
	if err != nil {
		input.Destroy()
		points.Destroy()
		presence.Destroy()
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	return &ONNXDetector{
		session:  session,
		input:    input,
		points:   points,
		presence: presence,
		minScore: minScore,
	}, nil
}

// Detect runs the model on img. Coordinates come back normalised to the
// original frame: the frame is stretched to the square input, so dividing by
// the input size undoes the resize on both axes.
func (d *ONNXDetector) Detect(ctx context.Context, img image.Image) (landmark.Set, bool, error) {
	if err := ctx.Err(); err != nil {
		return landmark.Set{}, false, err
	}

	start := time.Now()
	resized := imaging.Resize(img, InputSize, InputSize, imaging.Linear)

	d.mu.Lock()
	defer d.mu.Unlock()

	prepareInput(resized, d.input.GetData())
	if err := d.session.Run(); err != nil {
		return landmark.Set{}, false, fmt.Errorf("model inference: %w", err)
	}
	set, ok, err := decodeLandmarks(d.points.GetData(), d.presence.GetData()[0], d.minScore)
	monitoring.Debugf("pose inference took %v (person=%v)", time.Since(start), ok)
	return set, ok, err
}

// Close releases the session and its tensors.
func (d *ONNXDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session != nil {
		d.session.Destroy()
		d.session = nil
	}
	if d.input != nil {
		d.input.Destroy()
		d.input = nil
	}
	if d.points != nil {
		d.points.Destroy()
		d.points = nil
	}
	if d.presence != nil {
		d.presence.Destroy()
		d.presence = nil
	}
	return nil
}

// prepareInput writes img into dst as interleaved RGB scaled to [0,1].
func prepareInput(img image.Image, dst []float32) {
	b := img.Bounds()
	i := 0
	for y := b.Min.Y; y < b.Min.Y+InputSize; y++ {
		for x := b.Min.X; x < b.Min.X+InputSize; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			dst[i] = float32(r>>8) / 255.0
			dst[i+1] = float32(g>>8) / 255.0
			dst[i+2] = float32(bl>>8) / 255.0
			i += 3
		}
	}
}

func sigmoid(v float32) float64 {
	return 1 / (1 + math.Exp(-float64(v)))
}

// decodeLandmarks converts the raw landmark tensor into a Set. The model
// emits 39 points of {x, y, z, visibility, presence} in input pixels; the
// first landmark.Count are the body landmarks, the rest are auxiliary.
func decodeLandmarks(raw []float32, score float32, minScore float64) (landmark.Set, bool, error) {
	var s landmark.Set
	if len(raw) != landmarkValueLen {
		return s, false, fmt.Errorf("unexpected landmark tensor length: got %d, want %d", len(raw), landmarkValueLen)
	}
	if float64(score) < minScore {
		return s, false, nil
	}
	for i := 0; i < landmark.Count; i++ {
		p := raw[i*valuesPerPoint:]
		s[i] = landmark.Landmark{
			X:          float64(p[0]) / InputSize,
			Y:          float64(p[1]) / InputSize,
			Z:          float64(p[2]) / InputSize,
			Visibility: sigmoid(p[3]),
		}
	}
	return s, true, nil
}
