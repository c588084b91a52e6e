// Package remote talks to the json-server compatible transactions
// collection over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"dtmoney/internal/core"
	"dtmoney/internal/log"
	"dtmoney/internal/middleware/trace"
)

const (
	transactionsPath = "/transactions"
	maxErrorBody     = 512
	DefaultTimeout   = 10 * time.Second
)

// Client is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default client (and its timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds every request, including reading the body.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l.WithComponent(log.ComponentRemote) }
}

// New returns a client for the collection rooted at baseURL,
// e.g. http://localhost:3333.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL:    strings.TrimRight(u.String(), "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// List fetches the collection sorted by creation time ascending. A non-empty
// query is forwarded as the full-text q parameter.
func (c *Client) List(ctx context.Context, query string) ([]core.Transaction, error) {
	params := url.Values{}
	params.Set("_sort", "createdAt")
	if query != "" {
		params.Set("q", query)
	}
	endpoint := c.baseURL + transactionsPath + "?" + params.Encode()

	var txs []core.Transaction
	if err := c.do(ctx, "list transactions", http.MethodGet, endpoint, nil, &txs); err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	return txs, nil
}

// Create posts a new record and returns the server's echo, id included.
func (c *Client) Create(ctx context.Context, nt core.NewTransaction) (core.Transaction, error) {
	body, err := json.Marshal(nt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("encode transaction: %w", err)
	}

	var created core.Transaction
	if err := c.do(ctx, "create transaction", http.MethodPost, c.baseURL+transactionsPath, body, &created); err != nil {
		return core.Transaction{}, err
	}
	return created, nil
}

// Delete removes the record with the given id. A missing record yields an
// error matching core.ErrNotFound.
func (c *Client) Delete(ctx context.Context, id int64) error {
	endpoint := c.baseURL + transactionsPath + "/" + strconv.FormatInt(id, 10)
	return c.do(ctx, "delete transaction", http.MethodDelete, endpoint, nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, endpoint string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	requestID := uuid.NewString()
	req.Header.Set(trace.HeaderRequestID, requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "Request failed", "op", op, "request_id", requestID, "error", err)
		return &core.NetworkError{Op: op, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "Request completed",
		"op", op,
		"method", method,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &core.StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		// a body cut short by the transport is still a network failure
		if ctx.Err() != nil {
			return &core.NetworkError{Op: op, URL: endpoint, Err: err}
		}
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
