// Package api provides the client for the agent workflow backend.
package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
	"github.com/tidwall/gjson"

	apierrors "github.com/diogo/agentchat/internal/errors"
	"github.com/diogo/agentchat/internal/models"
)

// maxBodySize caps how much of a response body is read
const maxBodySize = 4 << 20

// Operation names reported in network errors
const (
	opFetchHistory  = "Failed to fetch conversation history"
	opSendMessage   = "Failed to send message"
	opStartWorkflow = "Failed to start workflow"
	opConfirm       = "Failed to confirm action"
	opEndChat       = "Failed to end chat"
)

// HTTPDoer is the subset of tls_client.HttpClient the client needs
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// AgentClientInterface is implemented by Client and MockClient
type AgentClientInterface interface {
	GetConversationHistory(ctx context.Context) (models.Conversation, error)
	SendMessage(ctx context.Context, prompt string) (string, error)
	Confirm(ctx context.Context) (string, error)
	StartWorkflow(ctx context.Context) (string, error)
	EndChat(ctx context.Context) (string, error)
	BaseURL() string
	Close()
}

// Client talks to the agent backend over HTTP
type Client struct {
	baseURL    string
	httpClient HTTPDoer
	timeout    time.Duration
	logger     *slog.Logger
	mu         sync.RWMutex
	closed     bool
}

// ClientOption is a function that configures the client
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying transport
func WithHTTPClient(doer HTTPDoer) ClientOption {
	return func(c *Client) {
		c.httpClient = doer
	}
}

// WithTimeout bounds each request
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger used for request tracing
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a new Client for the backend at baseURL
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid API URL %q: must be http(s)://host[:port]", baseURL)
	}

	client := &Client{
		baseURL: baseURL,
		timeout: 10 * time.Second,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.httpClient == nil {
		options := []tls_client.HttpClientOption{
			tls_client.WithTimeoutSeconds(int(client.timeout / time.Second)),
			tls_client.WithClientProfile(profiles.Chrome_120),
			tls_client.WithNotFollowRedirects(),
		}

		httpClient, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP client: %w", err)
		}
		client.httpClient = httpClient
	}

	return client, nil
}

// BaseURL returns the backend base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Close marks the client closed; later calls fail with ErrClientClosed
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// IsClosed returns whether the client is closed
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// GetConversationHistory fetches the current conversation
func (c *Client) GetConversationHistory(ctx context.Context) (models.Conversation, error) {
	body, err := c.do(ctx, http.MethodGet, models.EndpointHistory, nil, opFetchHistory)
	if err != nil {
		return nil, err
	}
	return models.ParseHistory(body)
}

// SendMessage posts a user prompt to the workflow
func (c *Client) SendMessage(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", apierrors.NewValidationError(apierrors.ErrEmptyMessage)
	}
	query := url.Values{"prompt": {prompt}}
	return c.post(ctx, models.EndpointSendPrompt, query, opSendMessage)
}

// Confirm approves the tool call the agent proposed
func (c *Client) Confirm(ctx context.Context) (string, error) {
	return c.post(ctx, models.EndpointConfirm, nil, opConfirm)
}

// StartWorkflow starts a new conversation
func (c *Client) StartWorkflow(ctx context.Context) (string, error) {
	return c.post(ctx, models.EndpointStartWorkflow, nil, opStartWorkflow)
}

// EndChat asks the workflow to finish
func (c *Client) EndChat(ctx context.Context) (string, error) {
	return c.post(ctx, models.EndpointEndChat, nil, opEndChat)
}

func (c *Client) post(ctx context.Context, endpoint string, query url.Values, op string) (string, error) {
	body, err := c.do(ctx, http.MethodPost, endpoint, query, op)
	if err != nil {
		return "", err
	}
	return gjson.GetBytes(body, "message").String(), nil
}

// do performs a request and returns the body of a 2xx response
func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, op string) ([]byte, error) {
	if c.IsClosed() {
		return nil, apierrors.ErrClientClosed
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqURL := c.baseURL + endpoint
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range models.DefaultHeaders() {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", method, "endpoint", endpoint, "err", err)
		return nil, apierrors.NewNetworkError(op, endpoint, err)
	}
	defer func() {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, apierrors.NewNetworkError(op, endpoint, err)
	}

	c.logger.Debug("request done",
		"method", method,
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"elapsed", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apierrors.NewAPIError(resp.StatusCode, endpoint, errorMessage(body))
	}

	return body, nil
}

// errorMessage extracts a human message from an error body.
// FastAPI style backends use "detail", which may be a list of objects.
func errorMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	if msg := gjson.GetBytes(body, "message"); msg.Type == gjson.String {
		return msg.String()
	}
	detail := gjson.GetBytes(body, "detail")
	switch {
	case detail.Type == gjson.String:
		return detail.String()
	case detail.IsArray():
		return detail.Get("0.msg").String()
	}
	return ""
}
