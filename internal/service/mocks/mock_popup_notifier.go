package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockPopupNotifier is a mock implementation of PopupNotifier
type MockPopupNotifier struct {
	mock.Mock
}

func (m *MockPopupNotifier) OpenPopup(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockPopupNotifier) UpdateBadge(ctx context.Context, count int, shouldClose bool) error {
	args := m.Called(ctx, count, shouldClose)
	return args.Error(0)
}
