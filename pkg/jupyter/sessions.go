package jupyter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nbgate/nbgate/pkg/api"
	"github.com/nbgate/nbgate/pkg/debug"
	"github.com/nbgate/nbgate/pkg/interpreter"
)

// Ensure SessionsClient implements the interpreter's registry contract.
var _ interpreter.SessionRegistry = (*SessionsClient)(nil)

// sessionModel is the sessions API wire shape.
type sessionModel struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Path   string      `json:"path"`
	Type   string      `json:"type"`
	Kernel kernelModel `json:"kernel"`
}

type kernelModel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SessionsClient talks to the backend's sessions REST API and connects to
// kernels over the channels WebSocket.
type SessionsClient struct {
	baseURL      string
	wsBaseURL    string
	token        string
	httpClient   *http.Client
	readyTimeout time.Duration

	// clientSessionID identifies this process on kernel sockets.
	clientSessionID string

	mu    sync.Mutex
	ready bool

	// kernelMu guards kernels, the channels connection cache. One
	// connection per kernel is dialed and reused across executions;
	// dead connections are replaced on the next lookup.
	kernelMu sync.Mutex
	kernels  map[string]*KernelConnection
}

// NewSessionsClient creates a sessions client for the backend at baseURL.
func NewSessionsClient(baseURL, token string) *SessionsClient {
	baseURL = strings.TrimRight(baseURL, "/")
	return &SessionsClient{
		baseURL:   baseURL,
		wsBaseURL: toWebsocketURL(baseURL),
		token:     token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		readyTimeout:    30 * time.Second,
		clientSessionID: uuid.NewString(),
		kernels:         make(map[string]*KernelConnection),
	}
}

// toWebsocketURL rewrites an http(s) base URL to its ws(s) equivalent.
func toWebsocketURL(baseURL string) string {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://")
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://")
	default:
		return baseURL
	}
}

// Ready blocks until the backend answers its status endpoint. The gate
// latches on success: later calls return immediately without a round trip.
func (s *SessionsClient) Ready(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}

	deadline := time.After(s.readyTimeout)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		if err := s.ping(ctx); err == nil {
			s.ready = true
			debug.Log("jupyter", "session registry ready", "url", s.baseURL)
			return nil
		} else {
			debug.Log("jupyter", "waiting for session registry", "error", err.Error())
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for session registry: %w", ctx.Err())
		case <-deadline:
			return fmt.Errorf("session registry not ready after %s", s.readyTimeout)
		case <-ticker.C:
		}
	}
}

// ping performs one status round trip.
func (s *SessionsClient) ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/status", nil)
	if err != nil {
		return err
	}
	if s.token != "" {
		req.Header.Set("Authorization", "token "+s.token)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status endpoint returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// FindByPath returns the live session bound to path, or nil if the
// registry has none.
func (s *SessionsClient) FindByPath(ctx context.Context, path string) (interpreter.Session, error) {
	var models []sessionModel
	if err := s.do(ctx, http.MethodGet, s.baseURL+"/api/sessions", nil, &models); err != nil {
		return nil, err
	}
	for _, m := range models {
		if m.Path == path {
			return s.connect(ctx, m)
		}
	}
	return nil, nil
}

// StartNew starts the session described by spec and attaches to its kernel.
func (s *SessionsClient) StartNew(ctx context.Context, spec api.SessionSpec) (interpreter.Session, error) {
	body := map[string]any{
		"path": spec.Path,
		"name": spec.Name,
		"type": api.TypeNotebook,
		"kernel": map[string]any{
			"name": spec.KernelName,
		},
	}
	var m sessionModel
	if err := s.do(ctx, http.MethodPost, s.baseURL+"/api/sessions", body, &m); err != nil {
		return nil, fmt.Errorf("starting session for %q: %w", spec.Path, err)
	}
	debug.Log("jupyter", "session started",
		"session_id", m.ID, "path", m.Path, "kernel_id", m.Kernel.ID, "user_id", spec.UserID)
	return s.connect(ctx, m)
}

// connect attaches to the session's kernel channels socket. A session
// whose kernel has gone away is returned without a kernel; the driver
// rejects it before submitting code.
func (s *SessionsClient) connect(ctx context.Context, m sessionModel) (*Session, error) {
	if m.Kernel.ID == "" {
		return &Session{model: m}, nil
	}
	kernel, err := s.kernelFor(ctx, m.Kernel.ID)
	if err != nil {
		return nil, fmt.Errorf("connecting to kernel %q: %w", m.Kernel.ID, err)
	}
	return &Session{model: m, kernel: kernel}, nil
}

// kernelFor returns the cached channels connection for the kernel,
// dialing one on first use. A connection whose socket has failed is
// closed and replaced.
func (s *SessionsClient) kernelFor(ctx context.Context, kernelID string) (*KernelConnection, error) {
	s.kernelMu.Lock()
	defer s.kernelMu.Unlock()

	if k, ok := s.kernels[kernelID]; ok && !k.closed() {
		return k, nil
	}

	k, err := s.connectKernel(ctx, kernelID)
	if err != nil {
		return nil, err
	}
	s.kernels[kernelID] = k
	return k, nil
}

// do performs one round trip against the sessions API.
func (s *SessionsClient) do(ctx context.Context, method, rawURL string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "token "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sessions request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sessions API returned HTTP %d: %s", resp.StatusCode, debug.Truncate(string(respBody), 512))
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// Session is a live binding to a backend session and its kernel.
type Session struct {
	model  sessionModel
	kernel *KernelConnection
}

// ID returns the registry's session identifier.
func (s *Session) ID() string { return s.model.ID }

// Path returns the notebook path the session is bound to.
func (s *Session) Path() string { return s.model.Path }

// Kernel returns the attached kernel connection, or nil if the session
// has none.
func (s *Session) Kernel() interpreter.Kernel {
	if s.kernel == nil {
		return nil
	}
	return s.kernel
}
