package mocks

import (
	"context"
	"time"

	"github.com/dukex/automation/pkg/scheduler"
	"github.com/stretchr/testify/mock"
)

// MockQueue is a mock implementation of scheduler.Queue.
type MockQueue struct {
	mock.Mock
}

func (m *MockQueue) Schedule(ctx context.Context, runAt time.Time, job scheduler.Job) (string, error) {
	args := m.Called(ctx, runAt, job)

	return args.String(0), args.Error(1)
}

func (m *MockQueue) Cancel(ctx context.Context, handle string) error {
	args := m.Called(ctx, handle)

	return args.Error(0)
}

func (m *MockQueue) Start(ctx context.Context, handler scheduler.Handler) error {
	args := m.Called(ctx, handler)

	return args.Error(0)
}
