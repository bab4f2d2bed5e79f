// Package landmark defines the body landmarks reported by a pose detector.
//
// Positions are normalised to the frame: X and Y are in [0,1] relative to
// the frame width and height, with (0,0) at the top-left corner and Y
// increasing downward. Visibility is the detector's confidence in [0,1]
// that the landmark is present and unoccluded.
package landmark

import (
	"fmt"
	"math"
)

// Name identifies a landmark slot. Values follow the 33-point BlazePose
// topology so detector output can be copied into a Set without remapping.
type Name int

const (
	Nose Name = iota
	LeftEyeInner
	LeftEye
	LeftEyeOuter
	RightEyeInner
	RightEye
	RightEyeOuter
	LeftEar
	RightEar
	MouthLeft
	MouthRight
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftPinky
	RightPinky
	LeftIndex
	RightIndex
	LeftThumb
	RightThumb
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
	LeftHeel
	RightHeel
	LeftFootIndex
	RightFootIndex
)

// Count is the number of slots in a Set.
const Count = int(RightFootIndex) + 1

var names = [Count]string{
	"nose",
	"left_eye_inner", "left_eye", "left_eye_outer",
	"right_eye_inner", "right_eye", "right_eye_outer",
	"left_ear", "right_ear",
	"mouth_left", "mouth_right",
	"left_shoulder", "right_shoulder",
	"left_elbow", "right_elbow",
	"left_wrist", "right_wrist",
	"left_pinky", "right_pinky",
	"left_index", "right_index",
	"left_thumb", "right_thumb",
	"left_hip", "right_hip",
	"left_knee", "right_knee",
	"left_ankle", "right_ankle",
	"left_heel", "right_heel",
	"left_foot_index", "right_foot_index",
}

// String returns the snake_case name used in recorded landmark streams.
func (n Name) String() string {
	if n < 0 || int(n) >= Count {
		return fmt.Sprintf("landmark(%d)", int(n))
	}
	return names[n]
}

// ParseName resolves a snake_case landmark name.
func ParseName(s string) (Name, error) {
	for i, name := range names {
		if name == s {
			return Name(i), nil
		}
	}
	return 0, fmt.Errorf("unknown landmark %q", s)
}

// Landmark is a single detected body point.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"` // relative depth, unused by the measurement core
	Visibility float64 `json:"visibility"`
}

// Visible reports whether the landmark confidence reaches threshold.
func (l Landmark) Visible(threshold float64) bool {
	return l.Visibility >= threshold
}

// Set holds one frame's landmarks indexed by Name. Slots the detector did
// not fill keep the zero Landmark, whose visibility never passes a gate.
type Set [Count]Landmark

// Get returns the landmark in slot n.
func (s *Set) Get(n Name) Landmark {
	return s[n]
}

// FrameSize is the pixel size of the frame the landmarks were detected in.
type FrameSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Valid reports whether both dimensions are positive.
func (f FrameSize) Valid() bool {
	return f.Width > 0 && f.Height > 0
}

// Point is a position in pixel space.
type Point struct {
	X float64
	Y float64
}

// Pixel projects a landmark's normalised position into pixel space.
func (f FrameSize) Pixel(l Landmark) Point {
	return Point{X: l.X * float64(f.Width), Y: l.Y * float64(f.Height)}
}

// Distance returns the Euclidean pixel distance between two landmarks.
func (f FrameSize) Distance(a, b Landmark) float64 {
	pa, pb := f.Pixel(a), f.Pixel(b)
	return math.Hypot(pb.X-pa.X, pb.Y-pa.Y)
}
