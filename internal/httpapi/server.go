// Package httpapi exposes the feed over a small JSON API.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/danhigham/otpfeed/internal/domain"
)

// RefreshTimeout bounds a forced check triggered over HTTP.
const RefreshTimeout = 30 * time.Second

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Service is the feed surface the API serves.
type Service interface {
	Snapshot() domain.Snapshot
	ForceCheck(ctx context.Context) int
	ClearAll()
	Diagnostics() domain.Diagnostics
}

type Server struct {
	svc    Service
	logger *zap.Logger
}

func New(svc Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{svc: svc, logger: logger}
}

// Routes returns a chi.Router with every endpoint mounted.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.healthz)
	r.Route("/api", func(r chi.Router) {
		r.Get("/messages", s.messages)
		r.Get("/refresh", s.refresh)
		r.Post("/refresh", s.refresh)
		r.Get("/clear", s.clear)
		r.Post("/clear", s.clear)
		r.Get("/debug", s.debug)
	})
	return r
}

type statusResponse struct {
	Status string `json:"status"`
	Count  *int   `json:"count,omitempty"`
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) messages(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.svc.Snapshot())
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), RefreshTimeout)
	defer cancel()
	count := s.svc.ForceCheck(ctx)
	s.writeJSON(w, http.StatusOK, statusResponse{Status: "ok", Count: &count})
}

func (s *Server) clear(w http.ResponseWriter, r *http.Request) {
	s.svc.ClearAll()
	s.writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) debug(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.svc.Diagnostics())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encode response", zap.Error(err))
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Info("http request",
				zap.String("id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("took", time.Since(start)),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
