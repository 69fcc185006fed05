// Package api serves the Catalog and Attempt services over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/crypto/bcrypt"

	"github.com/p-n-ai/pai-classroom/internal/attempt"
	"github.com/p-n-ai/pai-classroom/internal/curriculum"
	"github.com/p-n-ai/pai-classroom/internal/platform/errs"
	"github.com/p-n-ai/pai-classroom/internal/wire"
)

// maxDocumentSize caps evaluated document uploads.
const maxDocumentSize = 32 << 20

// ReadyCheck reports whether a dependency (database, cache) is reachable.
type ReadyCheck func(ctx context.Context) error

// Options configures the router.
type Options struct {
	Catalog  curriculum.Catalog
	Attempts attempt.Service

	// TokenHash is a bcrypt hash of the bearer token required on /api routes.
	// Empty disables authentication.
	TokenHash      string
	AllowedOrigins []string
	ReadyChecks    map[string]ReadyCheck
}

// NewRouter builds the HTTP handler.
func NewRouter(opts Options) http.Handler {
	h := &handlers{catalog: opts.Catalog, attempts: opts.Attempts}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", handleHealthz)
	r.Get("/readyz", handleReadyz(opts.ReadyChecks))

	r.Route("/api", func(ar chi.Router) {
		ar.Use(requireToken(opts.TokenHash))

		ar.Get("/curriculums", h.listCurriculums)
		ar.Get("/curriculums/{curriculumID}/tree", h.topicTree)
		ar.Get("/topics/{topicID}/exams", h.listExams)

		ar.Get("/attempts", h.listAttempts)
		ar.Get("/attempts/{attemptID}", h.getAttempt)
		ar.Post("/attempts/{attemptID}/finalize", h.finalize)
		ar.Post("/attempts/{attemptID}/document", h.uploadDocument)
		ar.Put("/responses/{responseID}/grade", h.setGrade)
	})
	return r
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleReadyz(checks map[string]ReadyCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				slog.Warn("readiness check failed", "check", name, "error", err)
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "check": name})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// requireToken checks the bearer token against a bcrypt hash.
func requireToken(hash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if hash == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				writeErr(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)); err != nil {
				writeErr(w, http.StatusUnauthorized, "invalid token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, wire.ErrorResponse{Error: msg})
}

// writeServiceErr maps the error taxonomy onto HTTP status codes.
func writeServiceErr(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errs.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errs.ErrLocked):
		status = http.StatusConflict
	case errors.Is(err, errs.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, errs.ErrDataIntegrity):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeErr(w, status, "internal error")
		return
	}
	writeErr(w, status, err.Error())
}
