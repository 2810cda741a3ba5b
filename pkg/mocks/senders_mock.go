package mocks

import (
	"context"

	"github.com/dukex/automation/pkg/models"
	"github.com/dukex/automation/pkg/senders/email"
	"github.com/dukex/automation/pkg/senders/sms"
	"github.com/stretchr/testify/mock"
)

// MockBotClient is a mock implementation of chat.BotClient.
type MockBotClient struct {
	mock.Mock
}

func (m *MockBotClient) SendMessage(ctx context.Context, token, chatID, text string) (string, error) {
	args := m.Called(ctx, token, chatID, text)

	return args.String(0), args.Error(1)
}

// MockPersonalClient is a mock implementation of chat.PersonalClient.
type MockPersonalClient struct {
	mock.Mock
}

func (m *MockPersonalClient) SendMessage(ctx context.Context, accountID, recipient, text string) (string, error) {
	args := m.Called(ctx, accountID, recipient, text)

	return args.String(0), args.Error(1)
}

// MockEmailProvider is a mock implementation of email.Provider.
type MockEmailProvider struct {
	mock.Mock
}

func (m *MockEmailProvider) Name() string {
	return "mock"
}

func (m *MockEmailProvider) Send(ctx context.Context, msg email.Email) (email.Result, error) {
	args := m.Called(ctx, msg)

	return args.Get(0).(email.Result), args.Error(1)
}

// MockSMSSender is a mock implementation of actions.SMSSender.
type MockSMSSender struct {
	mock.Mock
}

func (m *MockSMSSender) Available(tenant *models.Tenant, explicit string) bool {
	args := m.Called(tenant, explicit)

	return args.Bool(0)
}

func (m *MockSMSSender) Send(ctx context.Context, tenant *models.Tenant, explicit, to, text string) (sms.Result, error) {
	args := m.Called(ctx, tenant, explicit, to, text)

	return args.Get(0).(sms.Result), args.Error(1)
}

// MockStatusNotifier is a mock implementation of actions.StatusNotifier.
type MockStatusNotifier struct {
	mock.Mock
}

func (m *MockStatusNotifier) MessageStatusChanged(ctx context.Context, message *models.Message) error {
	args := m.Called(ctx, message)

	return args.Error(0)
}
