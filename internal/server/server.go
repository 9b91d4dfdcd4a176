package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/mnplowfinder/plowfinder/internal/dev"
	"github.com/mnplowfinder/plowfinder/internal/errors"
	"github.com/mnplowfinder/plowfinder/internal/fallback"
	"github.com/mnplowfinder/plowfinder/internal/metrics"
	"github.com/mnplowfinder/plowfinder/internal/registry"
	"github.com/mnplowfinder/plowfinder/internal/route"
)

const tracerName = "github.com/mnplowfinder/plowfinder/internal/server"

// Options configures the server.
type Options struct {
	// Address is the listen address (e.g., "localhost:3000").
	Address string

	// Registry is the initial snapshot.
	Registry *registry.Registry

	// SiteURL is the origin used for canonical URLs.
	SiteURL string

	// SiteName is used in page titles. Default: fallback.SiteName.
	SiteName string

	// Root is the export directory served from disk. Optional.
	Root string

	// Reserved names are withheld from provider slugs, as the exporter
	// withholds the top-level asset names under Root.
	Reserved []string

	// Shell is the path of the app shell used for fallback responses. It
	// is re-read on every Swap.
	Shell string

	// Hub enables live reload when set.
	Hub *dev.Hub

	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// Tracer is used for request spans. Default: the global provider.
	Tracer trace.Tracer

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 10 seconds.
	ShutdownTimeout time.Duration

	// ReadHeaderTimeout bounds request header reads.
	// Default: 10 seconds.
	ReadHeaderTimeout time.Duration
}

// Snapshot is an immutable view of the data the server resolves against.
type Snapshot struct {
	Registry   *registry.Registry
	Classifier *route.Classifier
	Resolver   *fallback.Resolver
	Shell      []byte
	LoadedAt   time.Time
}

// Server is the runtime HTTP server.
type Server struct {
	options  Options
	logger   *slog.Logger
	tracer   trace.Tracer
	snapshot atomic.Pointer[Snapshot]
	router   chi.Router
}

// New creates a server. The shell must be readable.
func New(options Options) (*Server, error) {
	if options.Registry == nil {
		return nil, fmt.Errorf("server: Options.Registry is required")
	}
	if options.ShutdownTimeout == 0 {
		options.ShutdownTimeout = 10 * time.Second
	}
	if options.ReadHeaderTimeout == 0 {
		options.ReadHeaderTimeout = 10 * time.Second
	}

	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := options.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	s := &Server{
		options: options,
		logger:  logger.With("component", "server"),
		tracer:  tracer,
	}

	shell, err := s.readShell()
	if err != nil {
		return nil, err
	}
	s.snapshot.Store(s.newSnapshot(options.Registry, shell))
	s.router = s.routes()

	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.options.Metrics.Handler())
	r.Get("/api/resolve", s.handleResolve)
	if s.options.Hub != nil {
		r.Get(dev.ReloadPath, s.options.Hub.ServeHTTP)
	}
	r.Get("/*", s.handleSite)
	r.Head("/*", s.handleSite)

	return r
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Snapshot returns the current snapshot.
func (s *Server) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

// Swap installs a new registry. The shell is re-read; if that fails the
// previous shell is kept.
func (s *Server) Swap(reg *registry.Registry) error {
	if reg == nil {
		return fmt.Errorf("server: nil registry")
	}

	shell, err := s.readShell()
	if err != nil {
		s.logger.Warn("keeping previous shell", "error", err)
		shell = s.snapshot.Load().Shell
	}

	s.snapshot.Store(s.newSnapshot(reg, shell))
	return nil
}

func (s *Server) newSnapshot(reg *registry.Registry, shell []byte) *Snapshot {
	classifier := route.NewClassifier(reg, route.WithReserved(s.options.Reserved...))
	return &Snapshot{
		Registry:   reg,
		Classifier: classifier,
		Resolver:   fallback.New(classifier, s.options.SiteURL).WithSiteName(s.options.SiteName),
		Shell:      shell,
		LoadedAt:   time.Now(),
	}
}

func (s *Server) readShell() ([]byte, error) {
	data, err := os.ReadFile(s.options.Shell)
	if err != nil {
		return nil, errors.New("E110").
			WithDetail(fmt.Sprintf("Could not read %s", s.options.Shell)).
			Wrap(err)
	}
	return data, nil
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.options.Address,
		Handler:           s.router,
		ReadHeaderTimeout: s.options.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", s.options.Address)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil

	case <-ctx.Done():
		s.logger.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.options.ShutdownTimeout)
		defer cancel()

		if s.options.Hub != nil {
			s.options.Hub.Close()
		}
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
		s.logger.Info("server shutdown complete")
		return nil
	}
}
