// Package server exposes the QR and card renderers over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"qrcard/internal/render"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
)

// CacheControl is sent with every rendered image.
const CacheControl = "public, max-age=31536000"

type Options struct {
	Primary render.Backend

	// Fallback is tried when Primary fails. nil disables it.
	Fallback render.Backend

	// RedirectFallback answers failed QR renders with a redirect to the
	// public qrserver image instead of a 500.
	RedirectFallback bool

	// QRServer overrides the redirect endpoint.
	QRServer string

	Logger *slog.Logger
}

type Server struct {
	opts   Options
	router chi.Router
}

func New(opts Options) (*Server, error) {
	if opts.Primary == nil {
		return nil, errors.New("primary backend is required")
	}

	if opts.Fallback != nil && opts.Fallback.Name() == opts.Primary.Name() {
		opts.Fallback = nil
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		opts:   opts,
		router: chi.NewRouter(),
	}

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.GetHead)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         86400,
	}))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/generate-qr", s.handleQR)
		r.Get("/generate-image", s.handleCard)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{
		"status":  "ok",
		"backend": s.opts.Primary.Name(),
	}

	if s.opts.Fallback != nil {
		body["fallback"] = s.opts.Fallback.Name()
	}

	writeJSON(w, http.StatusOK, body)
}

// render tries the primary backend and then the fallback. An empty result
// counts as a failure. The returned error only names the backends and the
// kind of failure; details go to the log.
func (s *Server) render(ctx context.Context, req *render.Request) (*render.Result, error) {
	var failures []string

	for _, b := range []render.Backend{s.opts.Primary, s.opts.Fallback} {
		if b == nil {
			continue
		}

		started := time.Now()
		res, err := b.Render(ctx, req)
		if err == nil && (res == nil || len(res.Data) == 0) {
			err = render.ErrEmptyImage
		}

		if err == nil {
			s.opts.Logger.DebugContext(ctx, "rendered", "backend", b.Name(), "kind", req.Kind, "bytes", len(res.Data), "duration", time.Since(started))
			return res, nil
		}

		s.opts.Logger.WarnContext(ctx, "render failed", "backend", b.Name(), "kind", req.Kind, "error", err, "request_id", middleware.GetReqID(ctx))
		failures = append(failures, b.Name()+": "+reason(err))
	}

	return nil, errors.New("render failed (" + strings.Join(failures, "; ") + ")")
}

func reason(err error) string {
	switch {
	case errors.Is(err, render.ErrUnsupported):
		return "unsupported"
	case errors.Is(err, render.ErrEmptyImage):
		return "empty image"
	case errors.Is(err, render.ErrNotImage):
		return "not an image"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}

	return "failed"
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(middleware.RequestIDHeader)

		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set(middleware.RequestIDHeader, id)

		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()

		defer func() {
			s.opts.Logger.InfoContext(r.Context(), "http_request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(started),
				"remote", r.RemoteAddr,
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
