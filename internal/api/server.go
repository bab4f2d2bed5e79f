// Package api serves single-image estimates, the live session readout and
// stored session history over HTTP.
package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/banshee-data/stature/internal/aggregate"
	"github.com/banshee-data/stature/internal/db"
	"github.com/banshee-data/stature/internal/display"
	"github.com/banshee-data/stature/internal/httputil"
	"github.com/banshee-data/stature/internal/landmark"
	"github.com/banshee-data/stature/internal/measure"
	"github.com/banshee-data/stature/internal/pose"
	"github.com/banshee-data/stature/internal/report"
	"github.com/banshee-data/stature/internal/source"
	"github.com/banshee-data/stature/internal/timeutil"
	"github.com/banshee-data/stature/internal/units"
)

const maxUploadBytes = 10 << 20

// Live is the running session as seen by the live endpoint.
type Live interface {
	Latest() (display.Readout, bool)
}

// Options configure a Server. DB, Live and Detector are optional; the routes
// that need a missing one answer 503.
type Options struct {
	DB         *db.DB
	Live       Live
	Detector   pose.Detector
	Params     measure.Params
	Thresholds display.Thresholds
	Units      string
	Clock      timeutil.Clock
}

type Server struct {
	opts Options
}

func NewServer(opts Options) *Server {
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	if opts.Units == "" {
		opts.Units = units.Metric
	}
	if opts.Params == (measure.Params{}) {
		opts.Params = measure.DefaultParams()
	}
	return &Server{opts: opts}
}

// Router returns the API routes, with the database debug pages under
// /debug/ when a database is configured.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(LoggingMiddleware)
	r.HandleFunc("/api/estimate", s.handleEstimate).Methods(http.MethodPost)
	r.HandleFunc("/api/live", s.handleLive).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions", s.handleSessions).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions/{id}", s.handleSession).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions/{id}/readouts", s.handleReadouts).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions/{id}/chart", s.handleChart).Methods(http.MethodGet)

	if s.opts.DB != nil {
		debug := http.NewServeMux()
		s.opts.DB.AttachAdminRoutes(debug)
		r.PathPrefix("/debug/").Handler(debug)
	}
	return r
}

// ErrorResponse is the body of every non-2xx JSON answer.
type ErrorResponse = httputil.ErrorResponse

func (s *Server) unitSystem(r *http.Request) string {
	if u := r.URL.Query().Get("units"); units.IsValidSystem(u) {
		return u
	}
	return s.opts.Units
}

// EstimateRequest is the JSON form of an estimate: a base64 image, or
// landmarks already detected by the caller.
type EstimateRequest struct {
	Image     string       `json:"image,omitempty"`
	Landmarks *pose.Record `json:"landmarks,omitempty"`
}

// EstimateResponse is a single-frame result.
type EstimateResponse struct {
	Detected    bool                     `json:"detected"`
	Measurement measure.FrameMeasurement `json:"measurement"`
	Readout     display.Readout          `json:"readout"`
	Lines       []string                 `json:"lines"`
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	contentType := r.Header.Get("Content-Type")

	var (
		set      landmark.Set
		size     landmark.FrameSize
		detected bool
		imgBytes []byte
		err      error
	)

	switch {
	case strings.HasPrefix(contentType, "application/json"):
		var req EstimateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		if req.Landmarks != nil {
			set, detected, err = req.Landmarks.Set()
			if err != nil {
				httputil.WriteError(w, "invalid_landmarks", err.Error(), http.StatusBadRequest)
				return
			}
			size = req.Landmarks.Size()
			break
		}
		imgBytes, err = base64.StdEncoding.DecodeString(req.Image)
	case strings.HasPrefix(contentType, "multipart/form-data"):
		imgBytes, err = readMultipart(r)
	default:
		imgBytes, err = io.ReadAll(r.Body)
	}
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	if imgBytes != nil {
		if s.opts.Detector == nil {
			httputil.WriteError(w, "no_detector", pose.ErrNoDetector.Error(), http.StatusServiceUnavailable)
			return
		}
		img, err := source.Decode(bytes.NewReader(imgBytes))
		if err != nil {
			httputil.WriteError(w, "invalid_image", "Failed to decode image", http.StatusBadRequest)
			return
		}
		b := img.Bounds()
		size = landmark.FrameSize{Width: b.Dx(), Height: b.Dy()}
		set, detected, err = s.opts.Detector.Detect(r.Context(), img)
		if err != nil {
			httputil.InternalServerError(w, "processing_error", err.Error())
			return
		}
	}

	resp := EstimateResponse{Detected: detected}
	agg := aggregate.New(1)
	if detected {
		resp.Measurement = measure.Measure(&set, size, s.opts.Params)
		agg.UpdateMeasurement(resp.Measurement)
	}
	resp.Readout = display.NewReadout(agg.Snapshot(), display.Options{
		Timestamp:  s.opts.Clock.Now(),
		Thresholds: s.opts.Thresholds,
	})
	resp.Lines = resp.Readout.Lines(s.unitSystem(r))
	if resp.Lines == nil {
		resp.Lines = []string{}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func readMultipart(r *http.Request) ([]byte, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, err
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

// LiveResponse wraps the latest readout with its rendered lines.
type LiveResponse struct {
	Readout display.Readout `json:"readout"`
	Lines   []string        `json:"lines"`
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	if s.opts.Live == nil {
		httputil.WriteError(w, "no_session", "no live session", http.StatusServiceUnavailable)
		return
	}
	readout, ok := s.opts.Live.Latest()
	if !ok {
		httputil.NotFound(w, "no frame processed yet")
		return
	}
	lines := readout.Lines(s.unitSystem(r))
	if lines == nil {
		lines = []string{}
	}
	httputil.WriteJSON(w, http.StatusOK, LiveResponse{Readout: readout, Lines: lines})
}

func (s *Server) requireDB(w http.ResponseWriter) bool {
	if s.opts.DB == nil {
		httputil.WriteError(w, "no_database", "no database configured", http.StatusServiceUnavailable)
		return false
	}
	return true
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			httputil.BadRequest(w, fmt.Sprintf("invalid limit %q", v))
			return
		}
		limit = n
	}
	sessions, err := s.opts.DB.Sessions(limit)
	if err != nil {
		httputil.InternalServerError(w, "db_error", err.Error())
		return
	}
	if sessions == nil {
		sessions = []db.SessionRecord{}
	}
	httputil.WriteJSON(w, http.StatusOK, sessions)
}

// lookupSession answers 404 itself when the session is missing.
func (s *Server) lookupSession(w http.ResponseWriter, r *http.Request) (db.SessionRecord, bool) {
	if !s.requireDB(w) {
		return db.SessionRecord{}, false
	}
	rec, err := s.opts.DB.Session(mux.Vars(r)["id"])
	if errors.Is(err, db.ErrNotFound) {
		httputil.NotFound(w, err.Error())
		return rec, false
	}
	if err != nil {
		httputil.InternalServerError(w, "db_error", err.Error())
		return rec, false
	}
	return rec, true
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if rec, ok := s.lookupSession(w, r); ok {
		httputil.WriteJSON(w, http.StatusOK, rec)
	}
}

func (s *Server) handleReadouts(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	rows, err := s.opts.DB.Readouts(rec.ID)
	if err != nil {
		httputil.InternalServerError(w, "db_error", err.Error())
		return
	}
	if rows == nil {
		rows = []db.ReadoutRow{}
	}
	httputil.WriteJSON(w, http.StatusOK, rows)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	rows, err := s.opts.DB.Readouts(rec.ID)
	if err != nil {
		httputil.InternalServerError(w, "db_error", err.Error())
		return
	}

	var buf bytes.Buffer
	if err := report.RenderHTML(&buf, report.FromReadouts(rec.ID, rows)); err != nil {
		if errors.Is(err, report.ErrEmptyTrace) {
			httputil.NotFound(w, "session has no readouts")
			return
		}
		httputil.InternalServerError(w, "render_error", err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
