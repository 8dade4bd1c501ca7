// Package server assembles the HTTP API on top of the platform.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger/v2"
	"golang.org/x/sync/errgroup"

	"github.com/swipetherapy/swipe-therapy/internal/apidocs"
	"github.com/swipetherapy/swipe-therapy/pkg/generator"
	apihttp "github.com/swipetherapy/swipe-therapy/pkg/http"
	"github.com/swipetherapy/swipe-therapy/pkg/platform"
	"github.com/swipetherapy/swipe-therapy/pkg/session"
)

// Version is set at build time.
var Version = "dev"

// API route paths.
const (
	PathCards      = "/api/v1/cards"
	PathSession    = "/api/v1/session"
	PathStats      = "/api/v1/stats/generations"
	PathFailures   = "/api/v1/stats/generations/failures"
	PathLiveness   = "/healthz"
	PathReadiness  = "/readyz"
	PathSwaggerDoc = "/swagger/"
)

// Server serves the HTTP API for a platform.
type Server struct {
	platform *platform.Platform
	handler  http.Handler
}

// New builds the route table and middleware chain.
func New(p *platform.Platform) *Server {
	apidocs.SwaggerInfo.Version = Version

	mux := http.NewServeMux()
	mux.Handle(PathCards, generator.NewHandler(p.Generator()))
	mux.Handle(PathSession, session.NewHandler(p.Sessions(), p.Logger()))
	mux.Handle(PathStats, newStatsHandler(p.AuditQuerier()))
	mux.Handle(PathFailures, newFailuresHandler(p.AuditQuerier()))
	mux.Handle(PathLiveness, p.Health().LivenessHandler())
	mux.Handle(PathReadiness, p.Health().ReadinessHandler())
	mux.Handle(PathSwaggerDoc, httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	return &Server{
		platform: p,
		handler: apihttp.Chain(mux,
			apihttp.RequestID(),
			apihttp.Logging(p.Logger()),
			apihttp.CORS(),
		),
	}
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.platform.Config().Server.Address)
	if err != nil {
		return fmt.Errorf("listening: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve starts the platform, serves on ln until ctx is cancelled, then
// drains in-flight requests and stops the platform.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	cfg := s.platform.Config().Server
	logger := s.platform.Logger()

	if err := s.platform.Start(ctx); err != nil {
		_ = ln.Close()
		return err
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", "address", ln.Addr().String(), "version", Version)
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.platform.Health().SetDraining()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http server: %w", err)
		}
		return nil
	})
	serveErr := g.Wait()

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
	defer cancel()
	if err := s.platform.Stop(stopCtx); err != nil {
		serveErr = errors.Join(serveErr, err)
	}
	logger.Info("http server stopped")
	return serveErr
}
