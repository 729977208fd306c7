package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"taskdeck/domain"
)

const (
	headerRequestID  = "X-Request-ID"
	maxResponseBytes = 8 << 20
)

// Client issues JSON requests against the task service.
type Client struct {
	BaseURL string
	Bearer  string
	HTTP    *http.Client
	Logger  *log.Logger
}

// New creates a Client for baseURL. An empty bearer sends unauthenticated
// requests, which only login accepts.
func New(baseURL, bearer string, timeout time.Duration, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Bearer:  bearer,
		HTTP:    &http.Client{Timeout: timeout},
		Logger:  logger,
	}
}

// WithBearer returns a copy of c authenticating with token.
func (c *Client) WithBearer(token string) *Client {
	cp := *c
	cp.Bearer = token
	return &cp
}

// GetJSON issues a GET request and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, route, path string, out any) error {
	return c.do(ctx, http.MethodGet, route, path, nil, out)
}

// PostJSON issues a POST request with a JSON body and decodes the response.
func (c *Client) PostJSON(ctx context.Context, route, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, route, path, body, out)
}

// PutJSON issues a PUT request with a JSON body and decodes the response.
func (c *Client) PutJSON(ctx context.Context, route, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, route, path, body, out)
}

// Delete issues a DELETE request and discards the response body.
func (c *Client) Delete(ctx context.Context, route, path string) error {
	return c.do(ctx, http.MethodDelete, route, path, nil, nil)
}

// do sends a single request. route is the path template used for metrics,
// path the concrete path appended to BaseURL.
func (c *Client) do(ctx context.Context, method, route, path string, body, out any) (err error) {
	requestID := uuid.NewString()
	metrics, ctx := newRequestMetrics(ctx, c.Logger, method, route, requestID)
	status := 0
	defer func() {
		metrics.Log(status, err)
	}()

	var reader io.Reader
	if body != nil {
		payload, encErr := sonic.Marshal(body)
		if encErr != nil {
			metrics.SetErrorStage("encode_request")
			return fmt.Errorf("encode %s %s: %w", method, path, encErr)
		}
		metrics.ObserveRequestBytes(len(payload))
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		metrics.SetErrorStage("build_request")
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerRequestID, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.Bearer)
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, doErr := httpClient.Do(req)
	if doErr != nil {
		metrics.SetErrorStage("transport")
		return &domain.NetworkError{Op: method + " " + path, Err: doErr}
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if readErr != nil {
		metrics.SetErrorStage("read_response")
		return &domain.NetworkError{Op: method + " " + path, Err: readErr}
	}
	metrics.ObserveResponseBytes(len(data))

	if status < 200 || status > 299 {
		metrics.SetErrorStage("status")
		return classify(status, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if decErr := sonic.Unmarshal(data, out); decErr != nil {
		metrics.SetErrorStage("decode_response")
		return fmt.Errorf("decode %s %s: %w", method, path, decErr)
	}
	return nil
}
