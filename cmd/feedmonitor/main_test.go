package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rajasatyajit/FeedMonitor/config"
	"github.com/rajasatyajit/FeedMonitor/internal/api"
	"github.com/rajasatyajit/FeedMonitor/internal/broadcast"
	"github.com/rajasatyajit/FeedMonitor/internal/logger"
	"github.com/rajasatyajit/FeedMonitor/internal/models"
	"github.com/rajasatyajit/FeedMonitor/internal/monitor"
	"github.com/rajasatyajit/FeedMonitor/internal/store"
)

// getFreePort returns an available TCP port
func getFreePort(t *testing.T) int {
	l, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			ReadTimeout: 5 * time.Second,
			CORSOrigins: []string{"*"},
		},
		Capture:     config.CaptureConfig{Mode: config.CaptureModeSynthetic, SegmentSeconds: 15},
		Recognition: config.RecognitionConfig{Mode: config.TranscribeModeSynthetic},
		Monitor:     config.MonitorConfig{SyntheticInterval: time.Millisecond},
	}
}

func TestStartMetricsServer_Smoke(t *testing.T) {
	// Initialize logger to avoid nil logger panics
	logger.Init("error", "text")
	port := getFreePort(t)
	srv := startMetricsServer(port, "/metrics")
	defer srv.Close()
	url := fmt.Sprintf("http://localhost:%d/metrics", port)

	deadline := time.Now().Add(3 * time.Second)
	var lastErr error
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			// NoOp handler returns 404 Not Found
			if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusOK {
				return
			}
		}
		lastErr = err
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("metrics server not reachable: %v", lastErr)
}

type noopController struct{}

func (noopController) Start(ctx context.Context, feedID int64) error { return nil }
func (noopController) Stop(ctx context.Context, feedID int64) error  { return nil }

func TestNewRouter_Middleware(t *testing.T) {
	logger.Init("error", "text")
	st := store.NewInMemoryStore()
	h := api.NewHandler(st, noopController{}, broadcast.New(time.Second), "v", "b", "c")
	r := newRouter(testConfig(), h)

	req := httptest.NewRequest("GET", "/v1/health", nil)
	req.Header.Set("Origin", "https://dash.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("Expected security headers, got X-Content-Type-Options=%q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://dash.example" {
		t.Errorf("Expected CORS origin echoed, got %q", got)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/v1/ws", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected plain GET on websocket route to be rejected, got %d", w.Code)
	}
}

func TestRunCheck(t *testing.T) {
	logger.Init("error", "text")

	t.Run("synthetic passes", func(t *testing.T) {
		var out bytes.Buffer
		if err := runCheck(&out, testConfig()); err != nil {
			t.Fatalf("Expected synthetic tools to pass, got %v", err)
		}
		if strings.Contains(out.String(), "failed") {
			t.Errorf("Expected no failed rows, got:\n%s", out.String())
		}
	})

	t.Run("missing whisper is reported per problem", func(t *testing.T) {
		cfg := testConfig()
		cfg.Recognition.Mode = config.TranscribeModeWhisper
		cfg.Recognition.WhisperBin = filepath.Join(t.TempDir(), "whisper-cli")
		cfg.Recognition.WhisperModel = ""

		var out bytes.Buffer
		err := runCheck(&out, cfg)
		if !errors.Is(err, errCheckFailed) {
			t.Fatalf("Expected errCheckFailed, got %v", err)
		}
		if n := strings.Count(out.String(), "failed"); n != 2 {
			t.Errorf("Expected 2 failed rows, got %d:\n%s", n, out.String())
		}
	})
}

func TestListFeeds(t *testing.T) {
	ctx := context.Background()
	st := store.NewInMemoryStore()

	var out bytes.Buffer
	if err := listFeeds(ctx, &out, st); err != nil {
		t.Fatalf("listFeeds: %v", err)
	}
	if !strings.Contains(out.String(), "No feeds found.") {
		t.Errorf("Expected empty message, got %q", out.String())
	}

	a, _ := st.CreateFeed(ctx, &models.Feed{Name: "Engine Co 5", URL: "https://example.test/a", Category: "Fire", City: "Chicago, IL"})
	st.CreateFeed(ctx, &models.Feed{Name: "County EMS", URL: "https://example.test/b", Category: "EMS"})
	st.SetFeedStatus(ctx, a.ID, models.StatusActive)

	out.Reset()
	if err := listFeeds(ctx, &out, st); err != nil {
		t.Fatalf("listFeeds: %v", err)
	}
	for _, want := range []string{"Engine Co 5", "County EMS", "Chicago, IL", "2 feeds: 1 active, 1 inactive, 0 error"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out.String())
		}
	}
}

func TestServe_SyntheticEndToEnd(t *testing.T) {
	logger.Init("error", "text")
	os.Unsetenv("DATABASE_URL")

	cfg := testConfig()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = getFreePort(t)
	cfg.Server.GracefulShutdownTimeout = 5 * time.Second
	cfg.Broadcast.SendTimeout = time.Second
	cfg.Recognition.MaxConcurrent = 1
	cfg.Monitor.ResumeActive = true

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg) }()

	url := fmt.Sprintf("http://127.0.0.1:%d/v1/health", cfg.Server.Port)
	deadline := time.Now().Add(3 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server not reachable: %v", err)
		}
		time.Sleep(50 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected clean shutdown, got %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not return after cancellation")
	}
}

var _ api.Controller = (*monitor.Supervisor)(nil)
