package services

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockSweepLocker struct {
	mock.Mock
}

func (m *MockSweepLocker) Acquire(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockSweepLocker) Release(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}
