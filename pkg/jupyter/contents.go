package jupyter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/nbgate/nbgate/pkg/api"
	"github.com/nbgate/nbgate/pkg/debug"
	"github.com/nbgate/nbgate/pkg/interpreter"
)

// Ensure ContentsClient implements the interpreter's store contract.
var _ interpreter.ContentsAPI = (*ContentsClient)(nil)

// ContentsClient talks to the backend's contents REST API.
type ContentsClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewContentsClient creates a contents client for the backend at baseURL.
// token is the backend's opaque API token; empty disables the header.
func NewContentsClient(baseURL, token string) *ContentsClient {
	return &ContentsClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// List returns the entries of the directory at dirPath ("" is the root).
func (c *ContentsClient) List(ctx context.Context, dirPath string) ([]api.Entry, error) {
	var listing struct {
		Content []api.Entry `json:"content"`
	}
	if err := c.do(ctx, http.MethodGet, c.contentsURL(dirPath)+"?content=1", nil, &listing); err != nil {
		return nil, err
	}
	return listing.Content, nil
}

// GetNotebook fetches the notebook at nbPath including its cells.
func (c *ContentsClient) GetNotebook(ctx context.Context, nbPath string) (*api.Document, error) {
	var doc api.Document
	if err := c.do(ctx, http.MethodGet, c.contentsURL(nbPath)+"?content=1&type=notebook", nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// CreateDirectory creates a directory named name inside parent. The
// contents API cannot create a named directory directly: an untitled one
// is created first, then renamed into place.
func (c *ContentsClient) CreateDirectory(ctx context.Context, parent, name string) error {
	var created api.Entry
	if err := c.do(ctx, http.MethodPost, c.contentsURL(parent), map[string]any{"type": api.TypeDirectory}, &created); err != nil {
		return fmt.Errorf("creating untitled directory in %q: %w", parent, err)
	}

	target := path.Join(parent, name)
	if err := c.do(ctx, http.MethodPatch, c.contentsURL(created.Path), map[string]any{"path": target}, nil); err != nil {
		return fmt.Errorf("renaming %q to %q: %w", created.Path, target, err)
	}
	debug.Log("jupyter", "created directory", "path", target)
	return nil
}

// Save overwrites the notebook at nbPath wholesale. No version check is
// performed; the last writer wins.
func (c *ContentsClient) Save(ctx context.Context, nbPath string, doc *api.Document) error {
	body := map[string]any{
		"type":    api.TypeNotebook,
		"format":  "json",
		"content": doc.Content,
	}
	return c.do(ctx, http.MethodPut, c.contentsURL(nbPath), body, nil)
}

// contentsURL builds the API URL for a contents path, escaping each
// segment individually so slashes keep their meaning.
func (c *ContentsClient) contentsURL(p string) string {
	u := c.baseURL + "/api/contents"
	p = strings.Trim(p, "/")
	if p == "" {
		return u
	}
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return u + "/" + strings.Join(segments, "/")
}

// do performs one round trip against the contents API, decoding the
// response into out when non-nil. HTTP 404 surfaces as ErrNotFound.
func (c *ContentsClient) do(ctx context.Context, method, rawURL string, body, out any) error {
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
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("contents request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", rawURL, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("contents API returned HTTP %d: %s", resp.StatusCode, debug.Truncate(string(respBody), 512))
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
