// Package client is a small GraphQL client for the mnemo API, used by the
// CLI. It decodes coded errors back into *apperr.Error, retries transport
// failures and keeps a normalized cache of the entities it has seen.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/lazypower/mnemo/internal/apperr"
)

const (
	defaultServerURL = "http://127.0.0.1:4000"
	httpTimeout      = 10 * time.Second
)

// Client talks to a mnemo server.
type Client struct {
	http      *http.Client
	serverURL string
	token     string
	cache     *Cache
}

// New creates a client for serverURL. An empty URL falls back to MNEMO_URL
// and then to the default local address.
func New(serverURL string) *Client {
	if serverURL == "" {
		serverURL = os.Getenv("MNEMO_URL")
	}
	if serverURL == "" {
		serverURL = defaultServerURL
	}
	return &Client{
		http:      &http.Client{Timeout: httpTimeout},
		serverURL: serverURL,
		cache:     NewCache(),
	}
}

// WithToken returns a copy of c that sends token as a bearer credential.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// TransportError is a failure to reach the server or read its reply. It is
// the only kind of error Retry retries.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type responseError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []responseError `json:"errors"`
}

// Do runs a GraphQL document and decodes its data into out. The first error
// in the response is returned as an *apperr.Error carrying its code.
func (c *Client) Do(ctx context.Context, query string, vars map[string]any, out any) error {
	body, err := json.Marshal(request{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+"/graphql", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Err: fmt.Errorf("POST /graphql: %w", err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Err: fmt.Errorf("read response: %w", err)}
	}

	var decoded response
	if err := json.Unmarshal(data, &decoded); err != nil {
		if resp.StatusCode >= 500 {
			return &TransportError{Err: fmt.Errorf("POST /graphql: status %d: %s", resp.StatusCode, data)}
		}
		return fmt.Errorf("POST /graphql: status %d: decode response: %w", resp.StatusCode, err)
	}
	if len(decoded.Errors) > 0 {
		e := decoded.Errors[0]
		code := apperr.Code(e.Extensions.Code)
		if code == "" {
			code = apperr.Internal
		}
		return &apperr.Error{Code: code, Message: e.Message}
	}
	if resp.StatusCode >= 500 {
		return &TransportError{Err: fmt.Errorf("POST /graphql: status %d", resp.StatusCode)}
	}
	if out != nil && len(decoded.Data) > 0 {
		if err := json.Unmarshal(decoded.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}

// Healthy checks if the server is reachable.
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serverURL+"/api/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
