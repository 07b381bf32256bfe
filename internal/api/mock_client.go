package api

import (
	"context"
	"sync"

	"github.com/diogo/agentchat/internal/models"
)

// MockClient is a mock implementation of AgentClientInterface for testing
type MockClient struct {
	mu sync.Mutex

	// Mock return values
	URL            string
	HistoryVal     models.Conversation
	HistoryErr     error
	SendMessageVal string
	SendMessageErr error
	ConfirmVal     string
	ConfirmErr     error
	StartVal       string
	StartErr       error
	EndChatVal     string
	EndChatErr     error

	// Call counters/recorders
	HistoryCalls int
	SendCalls    int
	ConfirmCalls int
	StartCalls   int
	EndChatCalls int
	LastPrompt   string
	CloseCalled  bool
}

// Ensure MockClient implements AgentClientInterface
var _ AgentClientInterface = (*MockClient)(nil)

func (m *MockClient) GetConversationHistory(ctx context.Context) (models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HistoryCalls++
	return m.HistoryVal, m.HistoryErr
}

func (m *MockClient) SendMessage(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendCalls++
	m.LastPrompt = prompt
	return m.SendMessageVal, m.SendMessageErr
}

func (m *MockClient) Confirm(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ConfirmCalls++
	return m.ConfirmVal, m.ConfirmErr
}

func (m *MockClient) StartWorkflow(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StartCalls++
	return m.StartVal, m.StartErr
}

func (m *MockClient) EndChat(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EndChatCalls++
	return m.EndChatVal, m.EndChatErr
}

func (m *MockClient) BaseURL() string {
	if m.URL == "" {
		return "http://mock"
	}
	return m.URL
}

func (m *MockClient) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloseCalled = true
}
