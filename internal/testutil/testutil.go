// Package testutil holds landmark fixtures and HTTP helpers shared by the
// package tests.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/banshee-data/stature/internal/landmark"
)

// Frame800 is the frame size the standing fixtures are laid out for.
var Frame800 = landmark.FrameSize{Width: 800, Height: 800}

// StandingSet returns a pose whose spans are exact on Frame800: shoulders
// 100 px apart and nose-to-lower-heel 450 px. With default parameters it
// measures 2.07 m, Average build, 94.2678 kg.
func StandingSet() *landmark.Set {
	var s landmark.Set
	s[landmark.Nose] = landmark.Landmark{X: 0.3125, Y: 0.125, Visibility: 0.9}
	s[landmark.LeftShoulder] = landmark.Landmark{X: 0.25, Y: 0.25, Visibility: 0.9}
	s[landmark.RightShoulder] = landmark.Landmark{X: 0.375, Y: 0.25, Visibility: 0.9}
	s[landmark.LeftHeel] = landmark.Landmark{X: 0.28125, Y: 0.6875, Visibility: 0.8}
	s[landmark.RightHeel] = landmark.Landmark{X: 0.34375, Y: 0.625, Visibility: 0.8}
	return &s
}

// HiddenShouldersSet returns StandingSet with both shoulders below any
// sensible visibility gate, so no scale can be derived.
func HiddenShouldersSet() *landmark.Set {
	s := StandingSet()
	s[landmark.LeftShoulder].Visibility = 0.1
	s[landmark.RightShoulder].Visibility = 0.1
	return s
}

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// NewJSONRequest creates a test HTTP request carrying a JSON body.
func NewJSONRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewTestRecorder creates a test response recorder.
func NewTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}
