// Package polyserv serves the translation pipeline over HTTP.
package polyserv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/bosley/polyglot/pipeline"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/gorilla/mux"
)

const (
	defaultMaxUploadBytes = 10 << 20
	defaultRequestTimeout = 60 * time.Second
	defaultMaxConcurrent  = 8
	defaultRateWindow     = time.Minute
	shutdownTimeout       = 10 * time.Second
)

type Config struct {
	// HTTP server address
	Addr string

	// Certificate files for TLS, plain HTTP when empty
	CertFile string
	KeyFile  string

	// Origins allowed to call the API and open the feed
	AllowedOrigins []string

	MaxUploadBytes int64
	RequestTimeout time.Duration

	// Translations processed at once
	MaxConcurrent int

	// Requests per RateWindow per client IP, zero disables
	RateLimit  int
	RateWindow time.Duration
}

// Processor runs one uploaded clip through the pipeline.
type Processor interface {
	Process(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

type Server struct {
	cfg       Config
	processor Processor
	hub       *Hub
	slots     chan struct{}
	server    *http.Server
}

func New(cfg Config, processor Processor) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaultMaxConcurrent
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = defaultRateWindow
	}

	return &Server{
		cfg:       cfg,
		processor: processor,
		hub:       NewHub(OriginChecker(cfg.AllowedOrigins)),
		slots:     make(chan struct{}, cfg.MaxConcurrent),
	}
}

// Hub returns the translation feed.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(requestID, recoverer)

	var translate http.Handler = http.HandlerFunc(s.handleTranslate)
	if s.cfg.RateLimit > 0 {
		translate = httprate.Limit(s.cfg.RateLimit, s.cfg.RateWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				writeError(w, http.StatusTooManyRequests, "Too many requests")
			}),
		)(translate)
	}

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/languages", s.handleLanguages).Methods(http.MethodGet)
	api.Handle("/translate", translate).Methods(http.MethodPost)

	router.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	router.Handle("/ws/translations", s.hub).Methods(http.MethodGet)

	if len(s.cfg.AllowedOrigins) == 0 {
		return router
	}
	if slices.Contains(s.cfg.AllowedOrigins, "*") {
		slog.Warn("CORS allows every origin, restrict AllowedOrigins in production")
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	})(router)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if s.cfg.CertFile != "" {
			err = s.server.ListenAndServeTLS(s.cfg.CertFile, s.cfg.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	slog.Info("HTTP server listening",
		"address", s.cfg.Addr,
		"tls", s.cfg.CertFile != "",
		"maxConcurrent", s.cfg.MaxConcurrent)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Debug("HTTP server shutting down")
	s.hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}
	return nil
}
