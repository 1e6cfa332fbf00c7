package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"go-accessory-hub/internal/infrastructure/logger"
)

type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type HTTPServer struct {
	config  Config
	handler http.Handler
	logger  logger.Logger

	mu  sync.Mutex
	srv *http.Server
	ln  net.Listener
}

var _ Server = (*HTTPServer)(nil)

func NewHTTPServer(config Config, handler http.Handler, logger logger.Logger) *HTTPServer {
	return &HTTPServer{
		config:  config,
		handler: handler,
		logger:  logger.WithField("component", "http"),
	}
}

// Start listens on the configured address and serves until Stop is called.
func (h *HTTPServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", h.config.Addr)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.ln = ln
	h.srv = &http.Server{
		Handler:      h.handler,
		ReadTimeout:  h.config.ReadTimeout,
		WriteTimeout: h.config.WriteTimeout,
		IdleTimeout:  h.config.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}
	srv := h.srv
	h.mu.Unlock()

	h.logger.Infof("HTTP server listening on %s", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the bound address once Start is listening.
func (h *HTTPServer) Addr() net.Addr {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ln == nil {
		return nil
	}
	return h.ln.Addr()
}

func (h *HTTPServer) Stop(ctx context.Context) error {
	h.mu.Lock()
	srv := h.srv
	h.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
