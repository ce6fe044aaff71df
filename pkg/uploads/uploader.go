// Package uploads implements the attachment pipeline: request a signed
// upload target, transfer the bytes, and hand back the public URL.
package uploads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stackpad/stackpad/pkg/logger"
)

// Attachment is a pending upload: raw bytes plus their content type
type Attachment struct {
	Data        []byte
	ContentType string
}

// SignResponse is the service's reply to a sign request
type SignResponse struct {
	UploadURL string `json:"upload_url"`
	URL       string `json:"url"`
}

// Client talks to the upload service
type Client struct {
	baseURL     string
	token       string
	httpClient  *http.Client
	concurrency int
	log         *logger.Logger
}

// Option configures a Client
type Option func(*Client)

// WithConcurrency bounds the upload fan-out
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithTimeout sets the per-request HTTP timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// NewClient creates an upload client for the given service
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:     baseURL,
		token:       token,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		concurrency: 4,
		log:         logger.WithComponent("uploads"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Upload pushes one attachment through the two-step pipeline and returns
// its public URL
func (c *Client) Upload(ctx context.Context, att Attachment) (string, error) {
	signed, err := c.sign(ctx, att.ContentType)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, signed.UploadURL, bytes.NewReader(att.Data))
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", att.ContentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload transfer failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("upload transfer failed with status %d", resp.StatusCode)
	}

	c.log.Debug("attachment uploaded", "url", signed.URL, "bytes", len(att.Data))
	return signed.URL, nil
}

// UploadAll uploads independent attachments with bounded fan-out and
// joins their completions, preserving input order in the result. Any
// failure aborts the batch; already-successful uploads elsewhere are
// unaffected by a failed sibling.
func (c *Client) UploadAll(ctx context.Context, atts []Attachment) ([]string, error) {
	urls := make([]string, len(atts))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(c.concurrency)
	for i, att := range atts {
		i, att := i, att
		group.Go(func() error {
			url, err := c.Upload(groupCtx, att)
			if err != nil {
				return err
			}
			urls[i] = url
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}

func (c *Client) sign(ctx context.Context, contentType string) (SignResponse, error) {
	body, err := json.Marshal(map[string]string{"content_type": contentType})
	if err != nil {
		return SignResponse{}, fmt.Errorf("failed to marshal sign request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/uploads/sign", bytes.NewReader(body))
	if err != nil {
		return SignResponse{}, fmt.Errorf("failed to create sign request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return SignResponse{}, fmt.Errorf("sign request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return SignResponse{}, fmt.Errorf("sign request failed with status %d", resp.StatusCode)
	}

	var signed SignResponse
	if err := json.NewDecoder(resp.Body).Decode(&signed); err != nil {
		return SignResponse{}, fmt.Errorf("failed to parse sign response: %w", err)
	}
	if signed.UploadURL == "" || signed.URL == "" {
		return SignResponse{}, fmt.Errorf("sign response missing upload target")
	}
	return signed, nil
}
