package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spiffe/go-spiffe/v2/spiffetls/tlsconfig"
	"github.com/spiffe/go-spiffe/v2/workloadapi"
)

// Server serves the discovery API over HTTP, or over mTLS when created
// with NewMTLSServer.
type Server struct {
	server     *http.Server
	x509Source *workloadapi.X509Source
	logger     *slog.Logger
	listener   net.Listener
}

// ServerOption configures a Server
type ServerOption func(*Server)

// WithServerLogger sets a structured logger for the server
// If logger is nil, uses io.Discard for silent operation
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		} else {
			s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		}
	}
}

// NewServer creates a plain HTTP server for handler.
func NewServer(addr string, handler http.Handler, opts ...ServerOption) (*Server, error) {
	if addr == "" {
		return nil, fmt.Errorf("address is required")
	}
	if handler == nil {
		return nil, fmt.Errorf("handler is required")
	}

	s := &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			// Discovery fans out to many hosts; leave room for slow fetches
			WriteTimeout: 2 * time.Minute,
			IdleTimeout:  120 * time.Second,
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewMTLSServer creates a server that authenticates clients with X.509 SVIDs
// from the Workload API at socketPath. The authorizer is from go-spiffe and
// performs identity verification only.
func NewMTLSServer(ctx context.Context, addr, socketPath string, authorizer tlsconfig.Authorizer, handler http.Handler, opts ...ServerOption) (*Server, error) {
	if socketPath == "" {
		return nil, fmt.Errorf("socket path is required")
	}
	if authorizer == nil {
		return nil, fmt.Errorf("authorizer is required")
	}
	s, err := NewServer(addr, handler, opts...)
	if err != nil {
		return nil, err
	}

	// Create X.509 source from the Workload API
	// This handles automatic SVID rotation
	x509Source, err := workloadapi.NewX509Source(
		ctx,
		workloadapi.WithClientOptions(
			workloadapi.WithAddr(socketPath),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create X509Source: %w", err)
	}

	// - Server presents its SVID to clients
	// - Clients must present valid SVIDs
	// - Authorizer verifies client identity (authentication only)
	s.server.TLSConfig = tlsconfig.MTLSServerConfig(
		x509Source,
		x509Source,
		authorizer,
	)
	s.x509Source = x509Source
	return s, nil
}

// Start binds the listen address and serves in the background.
// Bind errors are returned immediately.
func (s *Server) Start(ctx context.Context) error {
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}
	s.listener = ln

	go func() {
		var err error
		if s.server.TLSConfig != nil {
			// Empty strings for certFile and keyFile because TLSConfig provides them
			err = s.server.ServeTLS(ln, "", "")
		} else {
			err = s.server.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server stopped", slog.String("error", err.Error()))
		}
	}()

	s.logger.Info("http server listening",
		slog.String("addr", ln.Addr().String()),
		slog.Bool("mtls", s.server.TLSConfig != nil))
	return nil
}

// Addr returns the bound address after Start, or the configured address before
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.server.Addr
}

// Stop gracefully shuts down the server and releases resources.
func (s *Server) Stop(ctx context.Context) error {
	// Close X509Source (stops SVID fetching and rotation)
	if s.x509Source != nil {
		if err := s.x509Source.Close(); err != nil {
			s.logger.Warn("error closing X509Source", slog.String("error", err.Error()))
		}
	}

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
