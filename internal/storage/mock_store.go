package storage

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of relay.SeenStore for testing.
type MockStore struct {
	mock.Mock
}

// HasSeen is the mock implementation of the HasSeen method.
func (m *MockStore) HasSeen(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// MarkSeen is the mock implementation of the MarkSeen method.
func (m *MockStore) MarkSeen(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0) //nolint:wrapcheck
}

// Count is the mock implementation of the Count method.
func (m *MockStore) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1) //nolint:forcetypeassert
}

// Close is the mock implementation of the Close method.
func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0) //nolint:wrapcheck
}
