package visualization

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func startServer(t *testing.T) *Server {
	t.Helper()
	srv := NewServer("run-1", testResult())
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-errCh
	})

	waitForServer(t, srv, 2*time.Second)
	return srv
}

func TestServer_ServesHTML(t *testing.T) {
	srv := startServer(t)

	resp, err := http.Get("http://" + srv.Addr() + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET / status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q, want text/html; charset=utf-8", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "/chart.csv") {
		t.Error("served report should link to the CSV endpoint")
	}
}

func TestServer_Endpoints(t *testing.T) {
	srv := startServer(t)

	tests := []struct {
		path        string
		contentType string
		contains    string
	}{
		{"/chart.svg", "image/svg+xml", "<polyline"},
		{"/chart.csv", "text/csv; charset=utf-8", "time,paternal,maternal"},
		{"/api/run", "application/json", `"id":"run-1"`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get("http://" + srv.Addr() + tt.path)
			if err != nil {
				t.Fatalf("GET %s: %v", tt.path, err)
			}
			defer resp.Body.Close()
			if ct := resp.Header.Get("Content-Type"); ct != tt.contentType {
				t.Errorf("Content-Type = %q, want %q", ct, tt.contentType)
			}
			body, _ := io.ReadAll(resp.Body)
			if !strings.Contains(string(body), tt.contains) {
				t.Errorf("GET %s body missing %q", tt.path, tt.contains)
			}
		})
	}
}

func TestServer_RunJSON(t *testing.T) {
	srv := startServer(t)

	resp, err := http.Get("http://" + srv.Addr() + "/api/run")
	if err != nil {
		t.Fatalf("GET /api/run: %v", err)
	}
	defer resp.Body.Close()

	var payload struct {
		ID     string `json:"id"`
		Result struct {
			Population int `json:"population"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.ID != "run-1" || payload.Result.Population != 3 {
		t.Errorf("payload = %+v", payload)
	}
}

func TestServer_NotFound(t *testing.T) {
	srv := startServer(t)

	resp, err := http.Get("http://" + srv.Addr() + "/missing")
	if err != nil {
		t.Fatalf("GET /missing: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestServer_GracefulShutdown(t *testing.T) {
	srv := NewServer("run-1", testResult())
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx) }()

	waitForServer(t, srv, 2*time.Second)

	// Cancel context to trigger shutdown
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("unexpected error on shutdown: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down within 3 seconds")
	}
}

func TestServer_RequiresResult(t *testing.T) {
	if err := NewServer("x", nil).ListenAndServe(context.Background()); err == nil {
		t.Error("ListenAndServe() without a result should fail")
	}
}

// waitForServer polls the server until it's ready or the timeout is reached.
func waitForServer(t *testing.T, srv *Server, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		addr := srv.Addr()
		if addr == "" {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		resp, err := http.Get("http://" + addr + "/")
		if err == nil {
			resp.Body.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("server did not start within timeout")
}
