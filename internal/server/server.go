// Package server exposes the aggregated payloads, the cached assets, and
// the validating image proxy over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/andrejche/coinfly-v2/internal/logging"
	"github.com/andrejche/coinfly-v2/internal/store"
)

const payloadCacheControl = "public, s-maxage=900, stale-while-revalidate=3600"

type Config struct {
	Addr         string
	AllowedHosts []string
	ProxyTimeout time.Duration

	// StaticDir and PublicPrefix configure asset serving for the local
	// backend: StaticDir is the directory holding the cached assets and is
	// served under PublicPrefix. Both empty when assets live on a remote
	// store.
	StaticDir    string
	PublicPrefix string
}

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

func New(cfg Config, st store.Store, logger *slog.Logger) *Server {
	logger = logging.Default(logger).With("component", "server")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/api/prices", payloadHandler(st, "prices.json", logger))
	r.Get("/api/news", payloadHandler(st, "news.json", logger))
	r.Get("/api/news-img", newProxy(cfg.AllowedHosts, cfg.ProxyTimeout, logger).ServeHTTP)

	if cfg.StaticDir != "" {
		fs := http.StripPrefix(cfg.PublicPrefix, http.FileServer(http.Dir(cfg.StaticDir)))
		r.Get(cfg.PublicPrefix+"/*", fs.ServeHTTP)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// payloadHandler serves the latest published payload. A payload that has
// never been published yet is a 503: the first refresh run has not finished.
func payloadHandler(st store.Store, name string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := st.ReadPublished(r.Context(), name)
		if err != nil {
			logger.Debug("payload not available", "name", name, "error", err)
			http.Error(w, "payload not ready", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", payloadCacheControl)
		w.Write(data)
	}
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server stopping")
	return s.httpServer.Shutdown(ctx)
}
