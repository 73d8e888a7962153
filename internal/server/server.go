package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"audioconv/internal/api"
	"audioconv/internal/config"
	"audioconv/internal/logging"
	"audioconv/internal/services"
)

// multipartMemory is the part of a multipart body kept in memory; the rest
// spills to temporary files.
const multipartMemory = 32 << 20

// StatusFunc builds the operator status report.
type StatusFunc func(ctx context.Context) api.ServiceStatus

// Server serves the conversion pipeline over HTTP.
type Server struct {
	cfg     *config.Config
	svc     *api.ConversionService
	outputs *api.OutputsService
	status  StatusFunc
	logger  *slog.Logger
	handler http.Handler
}

// Option customizes a Server.
type Option func(*Server)

// WithOutputs enables /api/conversions and catalog stats in /api/status.
func WithOutputs(outputs *api.OutputsService) Option {
	return func(s *Server) {
		s.outputs = outputs
	}
}

// WithStatusFunc replaces the default status report.
func WithStatusFunc(fn StatusFunc) Option {
	return func(s *Server) {
		if fn != nil {
			s.status = fn
		}
	}
}

// New builds the handler tree for svc.
func New(cfg *config.Config, svc *api.ConversionService, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		svc:    svc,
		logger: logging.NewComponentLogger(logger, "http"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.status == nil {
		s.status = s.defaultStatus
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/{$}", s.handleIndex)
	mux.HandleFunc("/upload", s.handleUpload)
	mux.HandleFunc("/download/{filename}", s.handleDownload)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/conversions", s.handleConversions)

	s.handler = withRequestID(withAccessLog(s.logger, withCORS(mux)))
	return s
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Run acquires the instance lock, listens on the configured bind address and
// serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	lock := flock.New(s.cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return services.Wrap(services.ErrConfiguration, "serve", "acquire lock",
			fmt.Sprintf("another audioconv server is using %s (lock %s)", s.cfg.Paths.UploadDir, s.cfg.LockPath()), nil)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			s.logger.Warn("failed to release instance lock", logging.Error(err))
		}
	}()

	listener, err := net.Listen("tcp", s.cfg.Server.Bind)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Server.Bind, err)
	}
	return s.Serve(ctx, listener)
}

// Serve handles connections on listener until ctx is cancelled, then shuts
// down gracefully within the configured timeout.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout(),
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()
	s.logger.Info("http server listening",
		logging.String("address", listener.Addr().String()),
		logging.String("upload_dir", s.cfg.Paths.UploadDir),
		logging.String(logging.FieldEventType, "server_started"),
	)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout())
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	<-errCh
	s.logger.Info("http server stopped", logging.String(logging.FieldEventType, "server_stopped"))
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) defaultStatus(ctx context.Context) api.ServiceStatus {
	status, err := api.CollectStatus(ctx, s.cfg, s.outputs)
	if err != nil {
		s.logger.Warn("catalog stats unavailable", logging.Error(err))
	}
	return status
}

func trimmedValues(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}
