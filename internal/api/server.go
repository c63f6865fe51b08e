// File path: internal/api/server.go
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nicodishanthj/codelens/internal/assistant"
	"github.com/nicodishanthj/codelens/internal/common"
	"github.com/nicodishanthj/codelens/internal/common/telemetry"
)

const maxJSONBodyBytes = 1 << 20

type Server struct {
	router    chi.Router
	assistant *assistant.Service
	cfg       Config
}

// Config controls request limits and where uploaded archives are staged.
type Config struct {
	UploadRoot     string
	MaxUploadBytes int64
}

// DefaultConfig returns the limits used when no overrides are provided.
func DefaultConfig() Config {
	return Config{
		UploadRoot:     filepath.Join(os.TempDir(), "codelens_uploads"),
		MaxUploadBytes: 100 << 20,
	}
}

// Merge overlays non-zero values from override.
func (c Config) Merge(override Config) Config {
	result := c
	if strings.TrimSpace(override.UploadRoot) != "" {
		result.UploadRoot = strings.TrimSpace(override.UploadRoot)
	}
	if override.MaxUploadBytes > 0 {
		result.MaxUploadBytes = override.MaxUploadBytes
	}
	return result
}

func NewServer(svc *assistant.Service, cfg *Config) (*Server, error) {
	logger := common.Logger()
	if svc == nil {
		return nil, fmt.Errorf("assistant service required")
	}
	configuration := DefaultConfig()
	if cfg != nil {
		configuration = configuration.Merge(*cfg)
	}
	if err := os.MkdirAll(configuration.UploadRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create upload root: %w", err)
	}
	srv := &Server{
		router:    chi.NewRouter(),
		assistant: svc,
		cfg:       configuration,
	}
	srv.routes()
	logger.Info("api: server ready", "upload_root", configuration.UploadRoot, "max_upload_bytes", configuration.MaxUploadBytes, "provider", svc.ProviderName())
	return srv, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/debug/vars", telemetry.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/upload", s.handleUpload)
		r.Post("/question", s.handleQuestion)
		r.Post("/ask", s.handleQuestion)
		r.Post("/refactor", s.handleRefactor)
		r.Get("/history/{sessionID}", s.handleHistory)
		r.Get("/codebases", s.handleCodebases)
		r.Get("/codebases/{id}", s.handleCodebase)
		r.Delete("/codebases/{id}", s.handleDeleteCodebase)
		r.Get("/codebases/{id}/history", s.handleCodebaseHistory)
		r.Get("/codebases/{id}/files/*", s.handleFile)
		r.Get("/logs", s.handleLogs)
	})
}

func requestLogger(next http.Handler) http.Handler {
	logger := common.Logger()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.Debug("api: request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"dur", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
			"remote", r.RemoteAddr)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logger := common.Logger()
	if status >= http.StatusInternalServerError {
		logger.Error("api: request failed", "status", status, "error", err)
	} else {
		logger.Warn("api: request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge), errors.Is(err, assistant.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, assistant.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, assistant.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, assistant.ErrLLM):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err)
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return fmt.Errorf("%w: malformed JSON body: %v", assistant.ErrInvalidInput, err)
	}
	return nil
}
