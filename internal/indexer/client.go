// Package indexer calls the remote indexing pipeline. The remote function's
// accepted request shape is ambiguous/versioned, so every call tries an
// ordered list of candidate payload shapes and records each attempt.
package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client invokes remote indexer functions over HTTP.
type Client struct {
	client  *resty.Client
	baseURL string
}

// Config holds configuration for the indexer client.
type Config struct {
	BaseURL    string
	ServiceKey string
	Timeout    time.Duration
}

// Attempt records one payload-shape attempt against the remote function.
type Attempt struct {
	PayloadKeys []string    `json:"payloadKeys"`
	Status      int         `json:"status"`
	Body        interface{} `json:"body"`
}

// Result is the outcome of a multi-shape invocation. On failure Status and
// Body reflect the last attempt; Attempts always holds the full trail.
type Result struct {
	OK       bool        `json:"ok"`
	Status   int         `json:"status"`
	Body     interface{} `json:"body"`
	Attempts []Attempt   `json:"attempts"`
}

// NewClient creates a new indexer client.
// Parameters:
//   - cfg: base URL, bearer service credential, and request timeout.
// Returns:
//   - *Client: initialized client.
func NewClient(cfg *Config) *Client {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.ServiceKey)
	client.SetHeader("apikey", cfg.ServiceKey)
	client.SetHeader("Content-Type", "application/json")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	client.SetTimeout(timeout)

	return &Client{
		client:  client,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// Invoke posts each candidate payload in order until one returns 2xx.
// Attempts are sequential, not parallel: duplicate side effects on the remote
// side would be worse than a slow fallback. A non-2xx response moves on to
// the next candidate; a transport failure aborts with an error.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - functionName: remote function to call, appended to the base URL.
//   - payloads: ordered candidate request bodies.
// Returns:
//   - *Result: invocation outcome with the full attempt trail.
//   - error: non-nil only on transport failure.
func (c *Client) Invoke(ctx context.Context, functionName string, payloads []map[string]interface{}) (*Result, error) {
	url := fmt.Sprintf("%s/functions/v1/%s", c.baseURL, functionName)

	attempts := make([]Attempt, 0, len(payloads))

	for _, payload := range payloads {
		resp, err := c.client.R().
			SetContext(ctx).
			SetBody(payload).
			Post(url)
		if err != nil {
			return nil, fmt.Errorf("failed to call indexer function %s: %w", functionName, err)
		}

		attempts = append(attempts, Attempt{
			PayloadKeys: payloadKeys(payload),
			Status:      resp.StatusCode(),
			Body:        parseBody(resp.Body()),
		})

		last := attempts[len(attempts)-1]
		if resp.StatusCode() >= 200 && resp.StatusCode() < 300 {
			return &Result{
				OK:       true,
				Status:   last.Status,
				Body:     last.Body,
				Attempts: attempts,
			}, nil
		}
	}

	result := &Result{OK: false, Status: 500, Attempts: attempts}
	if len(attempts) > 0 {
		last := attempts[len(attempts)-1]
		result.Status = last.Status
		result.Body = last.Body
	}
	return result, nil
}

// parseBody decodes a response body as JSON, falling back to the raw string
// when it is not valid JSON.
func parseBody(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	var parsed interface{}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return string(raw)
	}
	return parsed
}

func payloadKeys(payload map[string]interface{}) []string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
