package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockAccountLister is a mock implementation of AccountLister
type MockAccountLister struct {
	mock.Mock
}

func (m *MockAccountLister) ListAccountAddresses(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
