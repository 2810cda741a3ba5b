package mocks

import (
	"context"
	"time"

	"github.com/dukex/automation/pkg/models"
	"github.com/dukex/automation/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockRuleRepository is a mock implementation of persistence.RuleRepository interface.
type MockRuleRepository struct {
	mock.Mock
}

func (m *MockRuleRepository) ActiveByEvent(ctx context.Context, tenantID, event string) ([]*models.Rule, error) {
	args := m.Called(ctx, tenantID, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Rule), args.Error(1)
}

func (m *MockRuleRepository) GetByID(ctx context.Context, tenantID, id string) (*models.Rule, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Rule), args.Error(1)
}

func (m *MockRuleRepository) Save(ctx context.Context, rule *models.Rule) error {
	args := m.Called(ctx, rule)

	return args.Error(0)
}

func (m *MockRuleRepository) UpdateSchedule(ctx context.Context, tenantID, ruleID string, scheduledFor *time.Time, jobHandle string) error {
	args := m.Called(ctx, tenantID, ruleID, scheduledFor, jobHandle)

	return args.Error(0)
}

// MockMessageRepository is a mock implementation of persistence.MessageRepository interface.
type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Create(ctx context.Context, message *models.Message) error {
	args := m.Called(ctx, message)

	return args.Error(0)
}

func (m *MockMessageRepository) Update(ctx context.Context, message *models.Message) error {
	args := m.Called(ctx, message)

	return args.Error(0)
}

func (m *MockMessageRepository) GetByID(ctx context.Context, id string) (*models.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockMessageRepository) List(ctx context.Context, opts persistence.ListMessagesOptions) (*persistence.MessageListResult, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*persistence.MessageListResult), args.Error(1)
}

// MockPersistence overrides the rule and message repositories and the health check.
// Every other repository is served by the embedded Persistence, which may be nil when
// a test never reaches it.
type MockPersistence struct {
	persistence.Persistence

	mock.Mock

	RuleRepo    *MockRuleRepository
	MessageRepo *MockMessageRepository
}

func NewMockPersistence(fallback persistence.Persistence) *MockPersistence {
	return &MockPersistence{
		Persistence: fallback,
		RuleRepo:    &MockRuleRepository{},
		MessageRepo: &MockMessageRepository{},
	}
}

func (m *MockPersistence) Rules() persistence.RuleRepository {
	return m.RuleRepo
}

func (m *MockPersistence) Messages() persistence.MessageRepository {
	return m.MessageRepo
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
