package api

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	http "github.com/bogdanfinn/fhttp"

	apierrors "github.com/diogo/agentchat/internal/errors"
	"github.com/diogo/agentchat/internal/models"
)

// mockHTTPClient implements HTTPDoer for testing
type mockHTTPClient struct {
	doFunc   func(req *http.Request) (*http.Response, error)
	requests []*http.Request
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.requests = append(m.requests, req)
	if m.doFunc != nil {
		return m.doFunc(req)
	}
	return respond(200, `{}`), nil
}

func respond(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func newTestClient(t *testing.T, doer HTTPDoer) *Client {
	t.Helper()
	c, err := NewClient("http://127.0.0.1:8000/", WithHTTPClient(doer))
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	return c
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"default", "http://127.0.0.1:8000", false},
		{"trailing slash", "http://localhost:8000/", false},
		{"https", "https://agent.example.com", false},
		{"no scheme", "localhost:8000", true},
		{"ftp", "ftp://host", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(tt.url, WithHTTPClient(&mockHTTPClient{}))
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if strings.HasSuffix(c.BaseURL(), "/") {
				t.Errorf("BaseURL() kept trailing slash: %s", c.BaseURL())
			}
		})
	}
}

func TestGetConversationHistory(t *testing.T) {
	mock := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			return respond(200, `{"messages":[{"actor":"user","response":"hi"},{"actor":"agent","response":{"response":"hello","next":"question"}}]}`), nil
		},
	}
	c := newTestClient(t, mock)

	conv, err := c.GetConversationHistory(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(conv) != 2 {
		t.Fatalf("len = %d, want 2", len(conv))
	}
	if conv[1].Text() != "hello" {
		t.Errorf("agent text = %q", conv[1].Text())
	}

	req := mock.requests[0]
	if req.Method != http.MethodGet {
		t.Errorf("method = %s", req.Method)
	}
	if req.URL.String() != "http://127.0.0.1:8000"+models.EndpointHistory {
		t.Errorf("url = %s", req.URL.String())
	}
}

func TestGetConversationHistoryNotFound(t *testing.T) {
	mock := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			return respond(404, `{"detail":"Workflow worker unavailable or not found."}`), nil
		},
	}
	c := newTestClient(t, mock)

	_, err := c.GetConversationHistory(context.Background())
	if !apierrors.IsNotFound(err) {
		t.Fatalf("expected 404, got %v", err)
	}

	var apiErr *apierrors.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Message != "Workflow worker unavailable or not found." {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestSendMessage(t *testing.T) {
	mock := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			return respond(200, `{"message":"Prompt 'book a flight' sent to workflow agent-workflow."}`), nil
		},
	}
	c := newTestClient(t, mock)

	msg, err := c.SendMessage(context.Background(), "book a flight")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(msg, "book a flight") {
		t.Errorf("message = %q", msg)
	}

	req := mock.requests[0]
	if req.Method != http.MethodPost {
		t.Errorf("method = %s", req.Method)
	}
	if req.URL.Path != models.EndpointSendPrompt {
		t.Errorf("path = %s", req.URL.Path)
	}
	if got := req.URL.Query().Get("prompt"); got != "book a flight" {
		t.Errorf("prompt query = %q", got)
	}
	if ct := req.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestSendMessageEmpty(t *testing.T) {
	mock := &mockHTTPClient{}
	c := newTestClient(t, mock)

	for _, prompt := range []string{"", "   ", "\n\t"} {
		_, err := c.SendMessage(context.Background(), prompt)
		if !errors.Is(err, apierrors.ErrEmptyMessage) {
			t.Errorf("SendMessage(%q) error = %v, want ErrEmptyMessage", prompt, err)
		}
		if apierrors.GetHTTPStatus(err) != 400 {
			t.Errorf("status = %d, want 400", apierrors.GetHTTPStatus(err))
		}
	}
	if len(mock.requests) != 0 {
		t.Errorf("empty prompt should not hit the network, got %d requests", len(mock.requests))
	}
}

func TestPostEndpoints(t *testing.T) {
	tests := []struct {
		name     string
		call     func(c *Client) (string, error)
		endpoint string
	}{
		{"confirm", func(c *Client) (string, error) { return c.Confirm(context.Background()) }, models.EndpointConfirm},
		{"start", func(c *Client) (string, error) { return c.StartWorkflow(context.Background()) }, models.EndpointStartWorkflow},
		{"end", func(c *Client) (string, error) { return c.EndChat(context.Background()) }, models.EndpointEndChat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockHTTPClient{
				doFunc: func(req *http.Request) (*http.Response, error) {
					return respond(200, `{"message":"ok"}`), nil
				},
			}
			c := newTestClient(t, mock)

			msg, err := tt.call(c)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if msg != "ok" {
				t.Errorf("message = %q", msg)
			}
			req := mock.requests[0]
			if req.Method != http.MethodPost || req.URL.Path != tt.endpoint {
				t.Errorf("request = %s %s", req.Method, req.URL.Path)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"message field", 500, `{"message":"boom"}`, "boom"},
		{"detail string", 500, `{"detail":"Temporal client not initialized"}`, "Temporal client not initialized"},
		{"detail list", 422, `{"detail":[{"loc":["query","prompt"],"msg":"field required"}]}`, "field required"},
		{"not json", 502, `<html>bad gateway</html>`, apierrors.DefaultErrorMessage},
		{"empty", 500, ``, apierrors.DefaultErrorMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockHTTPClient{
				doFunc: func(req *http.Request) (*http.Response, error) {
					return respond(tt.status, tt.body), nil
				},
			}
			c := newTestClient(t, mock)

			_, err := c.Confirm(context.Background())
			var apiErr *apierrors.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d", apiErr.StatusCode)
			}
			if apiErr.Message != tt.want {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.want)
			}
		})
	}
}

func TestNetworkFailure(t *testing.T) {
	mock := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			return nil, errors.New("dial tcp: connection refused")
		},
	}
	c := newTestClient(t, mock)

	_, err := c.StartWorkflow(context.Background())
	if !apierrors.IsNetworkError(err) {
		t.Fatalf("expected network error, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "Failed to start workflow") {
		t.Errorf("Error() = %q", err.Error())
	}
	if apierrors.GetHTTPStatus(err) != 500 {
		t.Errorf("status = %d, want 500", apierrors.GetHTTPStatus(err))
	}
}

func TestRequestCarriesDeadline(t *testing.T) {
	var hadDeadline bool
	mock := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			_, hadDeadline = req.Context().Deadline()
			return respond(200, `{}`), nil
		},
	}
	c, err := NewClient("http://localhost:1", WithHTTPClient(mock), WithTimeout(2*time.Second))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := c.Confirm(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !hadDeadline {
		t.Error("request context should carry a deadline")
	}
}

func TestClosedClient(t *testing.T) {
	mock := &mockHTTPClient{}
	c := newTestClient(t, mock)
	c.Close()

	if !c.IsClosed() {
		t.Error("IsClosed() should be true")
	}
	if _, err := c.GetConversationHistory(context.Background()); !errors.Is(err, apierrors.ErrClientClosed) {
		t.Errorf("expected ErrClientClosed, got %v", err)
	}
	if len(mock.requests) != 0 {
		t.Error("closed client should not send requests")
	}
}
