// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/tomtom215/filmledger/internal/logging"
)

// StatusAPIConfig configures the status API listener.
type StatusAPIConfig struct {
	// Addr is the host:port to bind. Port 0 picks a free port; Addr reports it.
	Addr            string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// StatusAPIService serves the status API router under supervision.
//
// Every Serve call binds its own listener and builds a fresh *http.Server,
// because a server that has been shut down cannot be started again and
// suture restarts services after failures.
type StatusAPIService struct {
	handler http.Handler
	cfg     StatusAPIConfig

	mu    sync.Mutex
	bound string
}

// NewStatusAPIService creates the service for handler. A non-positive
// ShutdownTimeout becomes 10s and a non-positive RequestTimeout 30s.
func NewStatusAPIService(handler http.Handler, cfg StatusAPIConfig) *StatusAPIService {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	return &StatusAPIService{handler: handler, cfg: cfg}
}

// Addr returns the address the API is listening on, or "" when it is not
// serving.
func (s *StatusAPIService) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bound
}

func (s *StatusAPIService) setAddr(addr string) {
	s.mu.Lock()
	s.bound = addr
	s.mu.Unlock()
}

func (s *StatusAPIService) newServer() *http.Server {
	return &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.RequestTimeout,
		WriteTimeout:      s.cfg.RequestTimeout,
		IdleTimeout:       2 * time.Minute,
	}
}

// Serve implements suture.Service. A bind failure is returned at once so the
// supervisor can back off and retry.
func (s *StatusAPIService) Serve(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("status api: listen %s: %w", s.cfg.Addr, err)
	}
	addr := ln.Addr().String()
	s.setAddr(addr)
	defer s.setAddr("")

	server := s.newServer()
	errCh := make(chan error, 1)
	go func() { errCh <- server.Serve(ln) }()
	logging.Info().Str("addr", addr).Msg("Status API listening")

	select {
	case err := <-errCh:
		return fmt.Errorf("status api: serve %s: %w", addr, err)

	case <-ctx.Done():
		// ctx is already done; draining needs its own deadline.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			_ = server.Close()
			<-errCh
			return fmt.Errorf("status api: shutdown %s: %w", addr, err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Warn().Err(err).Str("addr", addr).Msg("Status API stopped with error")
		}
		logging.Info().Str("addr", addr).Msg("Status API stopped")
		return ctx.Err()
	}
}

func (s *StatusAPIService) String() string {
	return "status-api"
}
