// Package httpapi is the local JSON bridge between the browser UI and the
// billing engine. Every route maps onto one engine operation.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmynk/billbook/internal/apperror"
	"github.com/mmynk/billbook/internal/billing"
)

// Exporter is a billing.Exporter that knows its download format.
type Exporter interface {
	billing.Exporter
	ContentType() string
	Extension() string
}

// Server serves the bridge routes and the UI's static files.
type Server struct {
	engine    *billing.Engine
	exporters map[string]Exporter
	staticDir string
}

// Option configures a Server.
type Option func(*Server)

// WithExporter registers exp under its extension, e.g. GET /api/export/pdf.
func WithExporter(exp Exporter) Option {
	return func(s *Server) { s.exporters[exp.Extension()] = exp }
}

// WithStaticDir serves the UI from dir. Unknown paths fall back to index.html.
func WithStaticDir(dir string) Option {
	return func(s *Server) { s.staticDir = dir }
}

// New creates a Server for engine.
func New(engine *billing.Engine, opts ...Option) *Server {
	s := &Server{engine: engine, exporters: make(map[string]Exporter)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routes wrapped with logging and CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/state", s.getState)

	mux.HandleFunc("POST /api/items", s.addItem)
	mux.HandleFunc("PUT /api/items/{id}", s.updateItem)
	mux.HandleFunc("DELETE /api/items/{id}", s.removeItem)
	mux.HandleFunc("POST /api/items/{id}/edit", s.beginEdit)
	mux.HandleFunc("DELETE /api/edit", s.cancelEdit)
	mux.HandleFunc("POST /api/items/{id}/move", s.moveItem)

	mux.HandleFunc("PUT /api/header", s.updateHeader)
	mux.HandleFunc("PUT /api/company", s.updateCompany)
	mux.HandleFunc("PUT /api/discount", s.applyDiscount)
	mux.HandleFunc("PUT /api/gst", s.applyGST)

	mux.HandleFunc("POST /api/undo", s.undo)
	mux.HandleFunc("POST /api/redo", s.redo)

	mux.HandleFunc("POST /api/mode/switch", s.switchMode)
	mux.HandleFunc("PUT /api/mode", s.setMode)
	mux.HandleFunc("PUT /api/view", s.setView)
	mux.HandleFunc("POST /api/view/rate", s.toggleRate)

	mux.HandleFunc("GET /api/archive", s.listArchive)
	mux.HandleFunc("POST /api/archive", s.saveArchive)
	mux.HandleFunc("POST /api/archive/{id}/load", s.loadArchive)
	mux.HandleFunc("DELETE /api/archive/{id}", s.removeArchive)
	mux.HandleFunc("POST /api/clear", s.clearAll)

	mux.HandleFunc("GET /api/theme", s.getTheme)
	mux.HandleFunc("PUT /api/theme", s.setTheme)
	mux.HandleFunc("POST /api/theme/cycle", s.cycleTheme)

	mux.HandleFunc("GET /api/export/{format}", s.export)

	mux.Handle("GET /metrics", promhttp.Handler())

	if s.staticDir != "" {
		mux.HandleFunc("GET /", s.serveStatic)
	}

	return loggingMiddleware(corsMiddleware(mux))
}

func (s *Server) serveStatic(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		http.NotFound(w, r)
		return
	}

	urlPath := r.URL.Path
	if urlPath == "/" {
		urlPath = "/index.html"
	}
	filePath := filepath.Join(s.staticDir, filepath.Clean(urlPath))
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.ServeFile(w, r, filepath.Join(s.staticDir, "index.html"))
		return
	}
	http.ServeFile(w, r, filePath)
}

// stateResponse is returned by every mutating route.
// Warning is set when the change applied but could not be saved.
type stateResponse struct {
	State   billing.State `json:"state"`
	Warning string        `json:"warning,omitempty"`

	// Changed reports whether undo/redo/archive-save did anything.
	Changed *bool `json:"changed,omitempty"`
}

type errorResponse struct {
	Error *apperror.AppError `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write response", "error", err)
	}
}

// writeState replies with the engine state after a mutation. Storage failures
// are reported as a warning since the change itself was applied.
func (s *Server) writeState(w http.ResponseWriter, err error, changed *bool) {
	if err != nil && !apperror.IsStorageUnavailable(err) {
		writeError(w, err)
		return
	}
	resp := stateResponse{State: s.engine.State(), Changed: changed}
	if err != nil {
		resp.Warning = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		slog.Error("Internal error", "error", err)
		appErr = &apperror.AppError{Code: "INTERNAL", Message: "internal error"}
	}
	writeJSON(w, statusFor(appErr.Code), errorResponse{Error: appErr})
}

func statusFor(code string) int {
	switch code {
	case apperror.CodeValidation:
		return http.StatusBadRequest
	case apperror.CodeNotFound:
		return http.StatusNotFound
	case apperror.CodeNotEditing:
		return http.StatusConflict
	case apperror.CodeStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decode reads a JSON body into v, rejecting unknown fields.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, apperror.NewValidation("invalid request body: "+err.Error()))
		return false
	}
	return true
}
