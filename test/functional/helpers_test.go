//go:build functional

// Package functional provides functional tests for the inventory server.
package functional

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mkravets/inventory-tracker/internal/assist"
	"github.com/mkravets/inventory-tracker/internal/config"
	"github.com/mkravets/inventory-tracker/internal/inventory"
	"github.com/mkravets/inventory-tracker/internal/media"
	"github.com/mkravets/inventory-tracker/internal/model"
	"github.com/mkravets/inventory-tracker/internal/server"
	"github.com/mkravets/inventory-tracker/internal/store"
)

// Environment variable names for test configuration.
const (
	EnvTestServerHost = "TEST_SERVER_HOST"
	EnvTestServerPort = "TEST_SERVER_PORT"
)

// Default test configuration values.
const (
	DefaultTestHost        = "localhost"
	DefaultTestPort        = 0 // 0 means auto-assign
	DefaultTestTimeout     = 30 * time.Second
	DefaultRequestTimeout  = 5 * time.Second
	DefaultShutdownTimeout = 5 * time.Second
	DefaultTestPlaceholder = "http://localhost/images/placeholder.png"
	DefaultTestLongPress   = 100 * time.Millisecond
)

// TestServer wraps an in-process server on memory backends.
type TestServer struct {
	Server   *server.Server
	Store    *store.MemoryStore
	Service  *inventory.Service
	BaseURL  string
	WSURL    string
	Port     int
	listener net.Listener
	t        *testing.T
	mu       sync.Mutex
	started  bool
}

// NewTestServer creates a new test server instance.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	host := os.Getenv(EnvTestServerHost)
	if host == "" {
		host = DefaultTestHost
	}
	port := DefaultTestPort
	if portStr := os.Getenv(EnvTestServerPort); portStr != "" {
		if p, err := strconv.Atoi(portStr); err == nil {
			port = p
		}
	}

	// Find an available port
	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		t.Fatalf("Failed to find available port: %v", err)
	}

	port = listener.Addr().(*net.TCPAddr).Port

	cfg := &config.Config{
		ServerPort:          port,
		LogLevel:            "error",
		ShutdownTimeout:     DefaultShutdownTimeout,
		MetricsEnabled:      false,
		StoreBackend:        "memory",
		PlaceholderImageURL: DefaultTestPlaceholder,
		LongPressDelay:      DefaultTestLongPress,
	}

	// Use nop logger for tests to reduce noise
	logger := zap.NewNop()

	itemStore := store.NewMemoryStore()
	uploader := media.NewMemoryUploader(fmt.Sprintf("http://%s:%d", host, port))
	svc := inventory.New(itemStore, uploader, cfg.PlaceholderImageURL, logger)
	assistant := assist.New(nil, logger)

	srv := server.New(cfg, logger, svc, assistant)

	return &TestServer{
		Server:   srv,
		Store:    itemStore,
		Service:  svc,
		BaseURL:  fmt.Sprintf("http://%s:%d", host, port),
		WSURL:    fmt.Sprintf("ws://%s:%d", host, port),
		Port:     port,
		listener: listener,
		t:        t,
	}
}

// Start starts the test server.
func (ts *TestServer) Start() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.started {
		return
	}

	// Close the listener we used to find the port
	ts.listener.Close()

	// Start server in goroutine
	go func() {
		if err := ts.Server.Start(); err != nil && err != http.ErrServerClosed {
			ts.t.Logf("Server error: %v", err)
		}
	}()

	// Wait for server to be ready
	ts.waitForReady()
	ts.started = true
}

// waitForReady waits for the server to be ready to accept connections.
func (ts *TestServer) waitForReady() {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTestTimeout)
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ts.t.Fatalf("Server did not become ready within timeout")
		case <-ticker.C:
			resp, err := http.Get(ts.BaseURL + "/health")
			if err == nil {
				resp.Body.Close()
				if resp.StatusCode == http.StatusOK {
					return
				}
			}
		}
	}
}

// Stop stops the test server.
func (ts *TestServer) Stop() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if !ts.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()

	if err := ts.Server.Shutdown(ctx); err != nil {
		ts.t.Logf("Server shutdown error: %v", err)
	}

	ts.started = false
}

// httpClient returns an HTTP client with a test timeout.
func httpClient() *http.Client {
	return &http.Client{Timeout: DefaultRequestTimeout}
}

// postForm sends a multipart form to the given path and returns the response.
func postForm(t *testing.T, method, url string, fields map[string]string) *http.Response {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("WriteField(%q) error: %v", key, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := httpClient().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

// decodeItems decodes an inventory snapshot response body.
func decodeItems(t *testing.T, r io.Reader) []model.InventoryItem {
	t.Helper()

	var resp model.APIResponse[[]model.InventoryItem]
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return resp.Data
}

// findItem returns the item with the given name, or nil.
func findItem(items []model.InventoryItem, name string) *model.InventoryItem {
	for i := range items {
		if items[i].Name == name {
			return &items[i]
		}
	}
	return nil
}
