package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/subwallet/dapp-authorization-api/internal/models"
)

// MockChainRegistry is a mock implementation of ChainRegistry
type MockChainRegistry struct {
	mock.Mock
}

func (m *MockChainRegistry) ListChains(ctx context.Context) ([]models.ChainInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ChainInfo), args.Error(1)
}
