package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/banshee-data/stature/internal/monitoring"
)

const (
	ansiCyan      = "\033[36m"
	ansiYellow    = "\033[33m"
	ansiBoldGreen = "\033[1;32m"
	ansiBoldRed   = "\033[1;31m"
	ansiReset     = "\033[0m"
)

// statusWriter remembers the status and body size of a response.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	n, err := sw.ResponseWriter.Write(b)
	sw.bytes += n
	return n, err
}

func colorStatus(status int) string {
	s := strconv.Itoa(status)
	switch {
	case status >= 400:
		return ansiBoldRed + s + ansiReset
	case status >= 300:
		return ansiYellow + s + ansiReset
	case status >= 200:
		return ansiBoldGreen + s + ansiReset
	default:
		return s
	}
}

// routeName prefers the matched route template so that requests for
// different session IDs log under one name.
func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

// LoggingMiddleware logs status, method, route, response size and duration.
// Router installs it, so unmatched paths are not logged.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		monitoring.Logf("[%s] %s %s%s%s %dB %.1fms",
			colorStatus(sw.status), r.Method,
			ansiCyan, routeName(r), ansiReset,
			sw.bytes, float64(time.Since(start).Microseconds())/1000)
	})
}
