// Package extractor provides a client for the external report extraction
// service. The service accepts a PDF and returns the structured extraction
// payload; everything downstream of that payload lives in this repo, the
// service itself is a black box.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client defines the extraction service operations.
type Client interface {
	// ProcessPDF uploads a PDF and returns the structured extraction.
	ProcessPDF(ctx context.Context, filename string, pdf io.Reader) (*Result, error)
	// Health checks service availability.
	Health(ctx context.Context) error
}

// Result is the parsed service response.
type Result struct {
	Success       bool           `json:"success"`
	Filename      string         `json:"filename"`
	Data          map[string]any `json:"data"`
	RawTextLength int            `json:"raw_text_length"`
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps requests per minute. Extraction is slow and the
// service is shared; the default keeps batch ingestion polite.
func WithRateLimit(perMinute int) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 1)
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an extraction service client for the given base URL.
func NewClient(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL: baseURL,
		http: &http.Client{
			// Extraction runs OCR and model calls server-side; requests
			// routinely take minutes.
			Timeout: 5 * time.Minute,
		},
		limiter: rate.NewLimiter(rate.Limit(10.0/60.0), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) ProcessPDF(ctx context.Context, filename string, pdf io.Reader) (*Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "extractor: rate limit wait")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, eris.Wrap(err, "extractor: create form file")
	}
	if _, err := io.Copy(part, pdf); err != nil {
		return nil, eris.Wrapf(err, "extractor: read pdf %s", filename)
	}
	if err := writer.Close(); err != nil {
		return nil, eris.Wrap(err, "extractor: close multipart writer")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/process-pdf", &body)
	if err != nil {
		return nil, eris.Wrap(err, "extractor: build request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "extractor: POST /process-pdf %s", filename)
	}
	defer resp.Body.Close() //nolint:errcheck

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "extractor: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("extractor: %s returned HTTP %d: %s", filename, resp.StatusCode, truncate(payload, 200))
	}

	var result Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, eris.Wrapf(err, "extractor: decode response for %s", filename)
	}
	if !result.Success {
		return nil, eris.Errorf("extractor: service reported failure for %s", filename)
	}
	return &result, nil
}

func (c *httpClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return eris.Wrap(err, "extractor: build health request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "extractor: health check")
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("extractor: health check returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
