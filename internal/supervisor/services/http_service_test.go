// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

package services

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

// waitForAddr polls until the service has bound its listener.
func waitForAddr(t *testing.T, svc *HTTPServerService) string {
	t.Helper()
	for i := 0; i < 100; i++ {
		if addr := svc.Addr(); addr != "" {
			return addr
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("server did not bind in time")
	return ""
}

func TestHTTPServerService_Interface(t *testing.T) {
	var _ suture.Service = (*HTTPServerService)(nil)
	var _ HTTPServer = (*http.Server)(nil)
}

func TestHTTPServerService_ServesAndShutsDown(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "pong")
	})
	svc := NewHTTPServerService(&http.Server{Handler: mux, ReadHeaderTimeout: time.Second}, "127.0.0.1:0", time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	addr := waitForAddr(t, svc)
	resp, err := http.Get("http://" + addr + "/ping")
	if err != nil {
		t.Fatalf("GET /ping error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "pong" {
		t.Errorf("body = %q, want pong", body)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	if svc.Addr() != "" {
		t.Errorf("Addr() = %q after shutdown, want empty", svc.Addr())
	}
}

func TestHTTPServerService_ListenError(t *testing.T) {
	svc := NewHTTPServerService(&http.Server{}, "127.0.0.1:0", time.Second)
	svc.listen = func(string, string) (net.Listener, error) {
		return nil, errors.New("address already in use")
	}

	err := svc.Serve(context.Background())
	if err == nil {
		t.Fatal("expected listen error")
	}
}

// failingServer returns an error from Serve immediately.
type failingServer struct{ err error }

func (f failingServer) Serve(net.Listener) error { return f.err }
func (f failingServer) Shutdown(context.Context) error { return nil }

func TestHTTPServerService_ServerError(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"crash", errors.New("accept failed")},
		{"closed externally", http.ErrServerClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewHTTPServerService(failingServer{err: tt.err}, "127.0.0.1:0", time.Second)
			if err := svc.Serve(context.Background()); err == nil {
				t.Error("expected an error so suture restarts the service")
			}
		})
	}
}

func TestHTTPServerService_DefaultShutdownTimeout(t *testing.T) {
	svc := NewHTTPServerService(&http.Server{}, ":0", 0)
	if svc.shutdownTimeout != 10*time.Second {
		t.Errorf("shutdownTimeout = %v, want 10s", svc.shutdownTimeout)
	}
	if svc.String() != "http-server" {
		t.Errorf("String() = %q", svc.String())
	}
}
