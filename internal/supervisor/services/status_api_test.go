// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

package services

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

var _ suture.Service = (*StatusAPIService)(nil)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok "+r.URL.Path)
	})
}

// startService runs svc.Serve in the background and waits until it is bound.
func startService(t *testing.T, svc *StatusAPIService) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for svc.Addr() == "" {
		select {
		case err := <-errCh:
			cancel()
			t.Fatalf("Serve() returned early: %v", err)
		default:
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("status API did not bind")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cancel, errCh
}

func get(t *testing.T, addr, path string) string {
	t.Helper()
	resp, err := http.Get("http://" + addr + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func waitErr(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
		return nil
	}
}

func TestNewStatusAPIService_Defaults(t *testing.T) {
	svc := NewStatusAPIService(okHandler(), StatusAPIConfig{Addr: "127.0.0.1:0"})
	if svc.cfg.ShutdownTimeout != 10*time.Second || svc.cfg.RequestTimeout != 30*time.Second {
		t.Errorf("cfg = %+v", svc.cfg)
	}
	if svc.String() != "status-api" {
		t.Errorf("String() = %q", svc.String())
	}
	if svc.Addr() != "" {
		t.Errorf("Addr() = %q before Serve", svc.Addr())
	}
}

func TestStatusAPIService_ServesUntilCancelled(t *testing.T) {
	svc := NewStatusAPIService(okHandler(), StatusAPIConfig{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second})
	cancel, errCh := startService(t, svc)
	addr := svc.Addr()

	if got := get(t, addr, "/healthz"); got != "ok /healthz" {
		t.Errorf("body = %q", got)
	}

	cancel()
	if err := waitErr(t, errCh); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}
	if svc.Addr() != "" {
		t.Errorf("Addr() = %q after stop", svc.Addr())
	}
	if _, err := net.DialTimeout("tcp", addr, time.Second); err == nil {
		t.Error("listener still accepting after stop")
	}
}

func TestStatusAPIService_RestartsWithFreshServer(t *testing.T) {
	svc := NewStatusAPIService(okHandler(), StatusAPIConfig{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second})

	for i := 0; i < 2; i++ {
		cancel, errCh := startService(t, svc)
		if got := get(t, svc.Addr(), "/api/v1/runs/last"); !strings.HasPrefix(got, "ok ") {
			t.Errorf("serve %d: body = %q", i, got)
		}
		cancel()
		if err := waitErr(t, errCh); !errors.Is(err, context.Canceled) {
			t.Errorf("serve %d: Serve() = %v", i, err)
		}
	}
}

func TestStatusAPIService_BindFailure(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer taken.Close()

	svc := NewStatusAPIService(okHandler(), StatusAPIConfig{Addr: taken.Addr().String()})
	err = svc.Serve(context.Background())
	if err == nil || !strings.Contains(err.Error(), "listen") {
		t.Errorf("Serve() = %v, want listen error", err)
	}
	if svc.Addr() != "" {
		t.Errorf("Addr() = %q after bind failure", svc.Addr())
	}
}

func TestStatusAPIService_ShutdownDeadline(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
	})

	svc := NewStatusAPIService(slow, StatusAPIConfig{Addr: "127.0.0.1:0", ShutdownTimeout: 50 * time.Millisecond})
	cancel, errCh := startService(t, svc)

	go func() {
		if resp, err := http.Get("http://" + svc.Addr() + "/slow"); err == nil {
			resp.Body.Close()
		}
	}()
	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("request did not reach the handler")
	}

	cancel()
	if err := waitErr(t, errCh); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() = %v, want shutdown deadline exceeded", err)
	}
}
