package jupyter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nbgate/nbgate/pkg/api"
)

func TestReadyLatches(t *testing.T) {
	var pings atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/status" {
			t.Errorf("path = %q, want /api/status", r.URL.Path)
		}
		pings.Add(1)
		w.Write([]byte(`{"started":"2026-01-01T00:00:00Z"}`))
	}))
	defer server.Close()

	s := NewSessionsClient(server.URL, "")
	ctx := context.Background()

	if err := s.Ready(ctx); err != nil {
		t.Fatalf("Ready() error = %v", err)
	}
	if err := s.Ready(ctx); err != nil {
		t.Fatalf("second Ready() error = %v", err)
	}
	if got := pings.Load(); got != 1 {
		t.Errorf("status pings = %d, want 1 (gate must latch)", got)
	}
}

func TestReadyRetriesUntilUp(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "starting", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	s := NewSessionsClient(server.URL, "")
	if err := s.Ready(context.Background()); err != nil {
		t.Fatalf("Ready() error = %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("status pings = %d, want 3", got)
	}
}

func TestReadyTimesOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "never up", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	s := NewSessionsClient(server.URL, "")
	s.readyTimeout = 300 * time.Millisecond

	if err := s.Ready(context.Background()); err == nil {
		t.Fatal("Ready() error = nil, want timeout")
	}
}

func TestReadyHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "never up", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	s := NewSessionsClient(server.URL, "")
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := s.Ready(ctx)
	if err == nil {
		t.Fatal("Ready() error = nil, want context error")
	}
}

func TestFindByPathNoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "s1", "name": "other.ipynb", "path": "bob/other.ipynb", "type": "notebook",
				"kernel": map[string]any{"id": "", "name": "python3"}},
		})
	}))
	defer server.Close()

	s := NewSessionsClient(server.URL, "")
	sess, err := s.FindByPath(context.Background(), "alice/conv.ipynb")
	if err != nil {
		t.Fatalf("FindByPath() error = %v", err)
	}
	if sess != nil {
		t.Errorf("session = %v, want nil", sess)
	}
}

func TestFindByPathMatchWithoutKernel(t *testing.T) {
	// A matching session whose kernel is gone attaches no kernel; the
	// driver rejects it before submitting code.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "s1", "name": "conv.ipynb", "path": "alice/conv.ipynb", "type": "notebook",
				"kernel": map[string]any{"id": "", "name": "python3"}},
		})
	}))
	defer server.Close()

	s := NewSessionsClient(server.URL, "")
	sess, err := s.FindByPath(context.Background(), "alice/conv.ipynb")
	if err != nil {
		t.Fatalf("FindByPath() error = %v", err)
	}
	if sess == nil {
		t.Fatal("session = nil, want match")
	}
	if sess.ID() != "s1" || sess.Path() != "alice/conv.ipynb" {
		t.Errorf("session = %q at %q", sess.ID(), sess.Path())
	}
	if sess.Kernel() != nil {
		t.Error("Kernel() must be nil when the backend reports no kernel")
	}
}

func TestStartNewRequestShape(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/sessions" {
			t.Errorf("call = %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"id": "s-new", "name": "conv.ipynb", "path": "alice/conv.ipynb", "type": "notebook",
			"kernel": map[string]any{"id": "", "name": "python3"},
		})
	}))
	defer server.Close()

	s := NewSessionsClient(server.URL, "")
	sess, err := s.StartNew(context.Background(), api.SessionSpec{
		UserID: "alice", Name: "conv.ipynb", Path: "alice/conv.ipynb", KernelName: "python3",
	})
	if err != nil {
		t.Fatalf("StartNew() error = %v", err)
	}
	if sess.ID() != "s-new" {
		t.Errorf("session ID = %q", sess.ID())
	}

	if gotBody["path"] != "alice/conv.ipynb" || gotBody["name"] != "conv.ipynb" || gotBody["type"] != "notebook" {
		t.Errorf("body = %v", gotBody)
	}
	kernel, _ := gotBody["kernel"].(map[string]any)
	if kernel["name"] != "python3" {
		t.Errorf("kernel = %v", kernel)
	}
}

// kernelBackend serves the sessions list plus the kernel channels socket,
// counting dials and currently open connections.
type kernelBackend struct {
	dials atomic.Int32
	open  atomic.Int32
}

func (b *kernelBackend) handler() http.Handler {
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/sessions", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "s1", "name": "conv.ipynb", "path": "alice/conv.ipynb", "type": "notebook",
				"kernel": map[string]any{"id": "k1", "name": "python3"}},
		})
	})
	mux.HandleFunc("/api/kernels/k1/channels", func(w http.ResponseWriter, r *http.Request) {
		b.dials.Add(1)
		b.open.Add(1)
		defer b.open.Add(-1)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	return mux
}

func TestFindByPathReusesKernelConnection(t *testing.T) {
	backend := &kernelBackend{}
	server := httptest.NewServer(backend.handler())
	defer server.Close()

	s := NewSessionsClient(server.URL, "")
	ctx := context.Background()

	var kernels []any
	for range 5 {
		sess, err := s.FindByPath(ctx, "alice/conv.ipynb")
		if err != nil {
			t.Fatalf("FindByPath() error = %v", err)
		}
		if sess.Kernel() == nil {
			t.Fatal("session has no kernel")
		}
		kernels = append(kernels, sess.Kernel())
	}

	if got := backend.dials.Load(); got != 1 {
		t.Errorf("channel dials = %d, want 1 across repeated lookups", got)
	}
	if got := backend.open.Load(); got != 1 {
		t.Errorf("open connections = %d, want 1", got)
	}
	for i := 1; i < len(kernels); i++ {
		if kernels[i] != kernels[0] {
			t.Fatalf("lookup %d returned a different kernel connection", i)
		}
	}
}

func TestFindByPathReplacesDeadConnection(t *testing.T) {
	backend := &kernelBackend{}
	server := httptest.NewServer(backend.handler())
	defer server.Close()

	s := NewSessionsClient(server.URL, "")
	ctx := context.Background()

	sess, err := s.FindByPath(ctx, "alice/conv.ipynb")
	if err != nil {
		t.Fatalf("FindByPath() error = %v", err)
	}
	first := sess.Kernel().(*KernelConnection)
	first.Close()

	sess, err = s.FindByPath(ctx, "alice/conv.ipynb")
	if err != nil {
		t.Fatalf("second FindByPath() error = %v", err)
	}
	second := sess.Kernel().(*KernelConnection)
	if second == first {
		t.Error("closed connection was handed out again")
	}
	if got := backend.dials.Load(); got != 2 {
		t.Errorf("channel dials = %d, want 2 after replacement", got)
	}
}

func TestToWebsocketURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"http://backend:8888", "ws://backend:8888"},
		{"https://backend", "wss://backend"},
		{"ws://already", "ws://already"},
	}
	for _, tt := range tests {
		if got := toWebsocketURL(tt.in); got != tt.want {
			t.Errorf("toWebsocketURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
