// Package extract is the HTTP client for the document-extraction service.
// Only the wire contract lives here; the service's parsing internals are a
// black box to us.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dfedorov/statement-desk/internal/domain"
)

// DefaultFileTimeout is the per-file ceiling. It is deliberately long:
// documents can run to hundreds of pages and the service processes them
// synchronously.
const DefaultFileTimeout = 2 * time.Minute

// UploadResult is the extraction service's response for one file. MockMode
// means the service returned canned data instead of a real extraction; it is
// surfaced to the user, never treated as an error.
type UploadResult struct {
	Statements []domain.StatementResult `json:"statements"`
	MockMode   bool                     `json:"mock_mode"`
	Usage      *domain.UsageSnapshot    `json:"usage"`
}

// UploadOptions carries the category context for a submission: either inline
// seeds or a saved group id. When both are set the group id wins.
type UploadOptions struct {
	Categories []domain.CategorySeed
	GroupID    string
}

// Client talks to the extraction service.
type Client struct {
	baseURL     string
	token       string
	httpClient  *http.Client
	fileTimeout time.Duration
	log         zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token attached to every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithFileTimeout overrides the per-file ceiling.
func WithFileTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.fileTimeout = d
		}
	}
}

// WithHTTPClient substitutes the underlying transport, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates an extraction client for the given base URL.
func NewClient(baseURL string, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:     baseURL,
		httpClient:  &http.Client{},
		fileTimeout: DefaultFileTimeout,
		log:         log,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// UploadStatement submits one file and blocks until the service responds or
// the per-file timeout fires. The context bounds the whole call, so a
// caller-side cancel still tears the request down.
func (c *Client) UploadStatement(ctx context.Context, filename string, content io.Reader, opts UploadOptions) (*UploadResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.fileTimeout)
	defer cancel()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreateFormFile("files", filename)
	if err != nil {
		return nil, fmt.Errorf("upload %s: create form file: %w", filename, err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("upload %s: read content: %w", filename, err)
	}

	if opts.GroupID != "" {
		if err := form.WriteField("group_id", opts.GroupID); err != nil {
			return nil, fmt.Errorf("upload %s: write group_id: %w", filename, err)
		}
	} else if len(opts.Categories) > 0 {
		cats, err := json.Marshal(opts.Categories)
		if err != nil {
			return nil, fmt.Errorf("upload %s: encode categories: %w", filename, err)
		}
		if err := form.WriteField("categories", string(cats)); err != nil {
			return nil, fmt.Errorf("upload %s: write categories: %w", filename, err)
		}
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("upload %s: close form: %w", filename, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/upload", &body)
	if err != nil {
		return nil, fmt.Errorf("upload %s: build request: %w", filename, err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", filename, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, domain.ErrSessionExpired
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("upload %s: %s", filename, readReason(resp))
	}

	var result UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("upload %s: decode response: %w", filename, err)
	}

	c.log.Debug().
		Str("filename", filename).
		Int("statements", len(result.Statements)).
		Bool("mock_mode", result.MockMode).
		Dur("duration", time.Since(start)).
		Msg("Statement uploaded")

	return &result, nil
}

// FetchUsage retrieves the current usage snapshot. Callers treat failures as
// best-effort: the last known value stays on screen.
func (c *Client) FetchUsage(ctx context.Context) (*domain.UsageSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/usage", nil)
	if err != nil {
		return nil, fmt.Errorf("fetch usage: build request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch usage: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, domain.ErrSessionExpired
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch usage: %s", readReason(resp))
	}

	var usage domain.UsageSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&usage); err != nil {
		return nil, fmt.Errorf("fetch usage: decode response: %w", err)
	}
	return &usage, nil
}

// readReason pulls the machine-readable reason string out of a non-2xx body.
func readReason(resp *http.Response) string {
	var payload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Detail != "" {
			return payload.Detail
		}
	}
	return resp.Status
}
