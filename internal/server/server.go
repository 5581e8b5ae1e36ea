// Package server exposes the sandbox over HTTP.
//
// Routes:
//
//	GET  /           example picker and editor (?file=<name>)
//	POST /post-pdf   renders the upload-area field and streams the PDF
//	POST /post-logs  renders the upload-area field and returns its diagnostics
//	GET  /help       usage notes and registered font families
//	GET  /healthz    JSON status
//	GET  /metrics    Prometheus metrics
//
// Every route shares one injected Renderer. The server never alters the
// submitted document.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/alnah/go-pdfsandbox"
	"github.com/alnah/go-pdfsandbox/internal/examples"
	"github.com/alnah/go-pdfsandbox/internal/logger"
)

//go:embed templates
var templateFS embed.FS

// DefaultMaxBodyBytes bounds request bodies when Options.MaxBodyBytes is zero.
const DefaultMaxBodyBytes int64 = 4 << 20

// ErrMissingDependency indicates New was called without a required option.
var ErrMissingDependency = errors.New("missing server dependency")

// Renderer renders one document. *pdfsandbox.Renderer satisfies it.
type Renderer interface {
	Render(ctx context.Context, req pdfsandbox.Request) error
}

// statsRenderer is implemented by renderers that can report pool and
// font cache state for /healthz.
type statsRenderer interface {
	PoolSize() int
	FontCache() *pdfsandbox.FontCache
}

// Options configures a Server.
type Options struct {
	Renderer     Renderer                // required
	Examples     *examples.Store         // required
	DefaultFile  string                  // default: examples.DefaultFile
	Fonts        []pdfsandbox.FontSource // listed on /help
	FontDir      string                  // shown on /help
	MissingFonts []string                // families whose file failed to load
	MaxBodyBytes int64                   // default: DefaultMaxBodyBytes
	Logger       *zap.Logger             // default: no-op
}

// Server holds the route handlers and their shared dependencies.
type Server struct {
	renderer    Renderer
	examples    *examples.Store
	defaultFile string
	logger      *zap.Logger
	startPage   *template.Template
	helpPage    []byte
	metrics     *Metrics
	router      *gin.Engine
}

// New builds a Server and its router.
func New(opts Options) (*Server, error) {
	if opts.Renderer == nil {
		return nil, fmt.Errorf("%w: renderer", ErrMissingDependency)
	}
	if opts.Examples == nil {
		return nil, fmt.Errorf("%w: example store", ErrMissingDependency)
	}
	if opts.DefaultFile == "" {
		opts.DefaultFile = examples.DefaultFile
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	startPage, err := template.ParseFS(templateFS, "templates/start.html")
	if err != nil {
		return nil, fmt.Errorf("parsing start page: %w", err)
	}
	missing := make(map[string]bool, len(opts.MissingFonts))
	for _, family := range opts.MissingFonts {
		missing[family] = true
	}
	helpPage, err := renderHelp(fontInfo{sources: opts.Fonts, dir: opts.FontDir, unavailable: missing})
	if err != nil {
		return nil, err
	}

	s := &Server{
		renderer:    opts.Renderer,
		examples:    opts.Examples,
		defaultFile: opts.DefaultFile,
		logger:      opts.Logger,
		startPage:   startPage,
		helpPage:    helpPage,
		metrics:     NewMetrics(opts.Renderer),
	}
	s.router = s.routes(opts.MaxBodyBytes)
	return s, nil
}

func (s *Server) routes(maxBodyBytes int64) *gin.Engine {
	router := gin.New()
	router.Use(
		logger.RequestID(),
		logger.Recovery(s.logger),
		logger.GinMiddleware(s.logger),
		BodyLimit(maxBodyBytes),
	)

	router.GET("/", s.handleIndex)
	router.POST("/post-pdf", s.handlePostPDF)
	router.POST("/post-logs", s.handlePostLogs)
	router.GET("/help", s.handleHelp)
	router.GET("/healthz", s.handleHealthz)
	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	return router
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.router
}

// defaultShutdownTimeout applies when ServeConfig.ShutdownTimeout is zero.
const defaultShutdownTimeout = 30 * time.Second

// ServeConfig holds listener timeouts.
type ServeConfig struct {
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully, waiting up to ShutdownTimeout for in-flight requests.
func (s *Server) Serve(ctx context.Context, ln net.Listener, cfg ServeConfig) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}
