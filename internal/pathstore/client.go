package pathstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go/v4"
)

// Client communicates with the pathstore HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	attempts uint
	delay    time.Duration
}

// RetryConfig controls how often a failed request is retried. Only
// transport errors, 429 and 5xx responses are retried.
type RetryConfig struct {
	Attempts int
	Delay    time.Duration
}

func NewClient(baseURL, apiKey string, rc RetryConfig) *Client {
	if rc.Attempts <= 0 {
		rc.Attempts = 1
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		attempts: uint(rc.Attempts),
		delay:    rc.Delay,
	}
}

// StatusError is a non-success HTTP response.
type StatusError struct {
	Op   string
	Key  string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Op, e.Key, e.Code, e.Body)
}

// Temporary reports whether the request may succeed when repeated.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

func retryable(err error) bool {
	if !retry.IsRecoverable(err) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.RetryIf(retryable),
		retry.LastErrorOnly(true),
	)
}

// NodeRequest is the body for PUT /kv/{key}.
type NodeRequest struct {
	Value     any    `json:"value"`
	MergeMode string `json:"merge_mode,omitempty"`
	Source    string `json:"source,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// NodeResponse is the response from GET /kv/{key}.
type NodeResponse struct {
	Key   string          `json:"key_path"`
	Value json.RawMessage `json:"value"`
}

// PutNode stores or updates a node at the given path.
func (c *Client) PutNode(ctx context.Context, key string, req NodeRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal node: %w", err)
	}
	return c.withRetry(ctx, func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/kv/"+key, bytes.NewReader(body))
		if err != nil {
			return retry.Unrecoverable(fmt.Errorf("create request: %w", err))
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return fmt.Errorf("put node: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
			return statusError(resp, "put node", key)
		}
		return nil
	})
}

// GetNode retrieves a node by key. A missing node is (nil, nil).
func (c *Client) GetNode(ctx context.Context, key string) (*NodeResponse, error) {
	var node *NodeResponse
	err := c.withRetry(ctx, func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/kv/"+key, nil)
		if err != nil {
			return retry.Unrecoverable(fmt.Errorf("create request: %w", err))
		}
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return fmt.Errorf("get node: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			node = nil
			return nil
		}
		if resp.StatusCode != http.StatusOK {
			return statusError(resp, "get node", key)
		}

		var n NodeResponse
		if err := json.NewDecoder(resp.Body).Decode(&n); err != nil {
			return retry.Unrecoverable(fmt.Errorf("decode node: %w", err))
		}
		node = &n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// ListChildrenResponse is a single node from a prefix scan.
type ListChildrenResponse struct {
	Key   string          `json:"key_path"`
	Value json.RawMessage `json:"value"`
}

// ListChildren does a prefix scan under the given key.
func (c *Client) ListChildren(ctx context.Context, key string, limit int) ([]ListChildrenResponse, error) {
	u := c.baseURL + "/kv/" + key + "/*"
	if limit > 0 {
		u += "?limit=" + url.QueryEscape(fmt.Sprintf("%d", limit))
	}

	var nodes []ListChildrenResponse
	err := c.withRetry(ctx, func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return retry.Unrecoverable(fmt.Errorf("create request: %w", err))
		}
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return fmt.Errorf("list children: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return statusError(resp, "list children", key)
		}

		var result struct {
			Nodes []ListChildrenResponse `json:"nodes"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return retry.Unrecoverable(fmt.Errorf("decode children: %w", err))
		}
		nodes = result.Nodes
		return nil
	})
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

func statusError(resp *http.Response, op, key string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return &StatusError{Op: op, Key: key, Code: resp.StatusCode, Body: string(body)}
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
