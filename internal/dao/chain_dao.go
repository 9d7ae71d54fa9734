package dao

import (
	"context"
	"fmt"

	"github.com/subwallet/dapp-authorization-api/internal/database"
	"github.com/subwallet/dapp-authorization-api/internal/models"
)

// ChainDAO reads the chain registry
type ChainDAO struct {
	db *database.DB
}

// NewChainDAO creates a new ChainDAO instance
func NewChainDAO(db *database.DB) *ChainDAO {
	return &ChainDAO{db: db}
}

// ListChains returns the registry in display order
func (dao *ChainDAO) ListChains(ctx context.Context) ([]models.ChainInfo, error) {
	query := `
		SELECT SLUG, NAME, IS_EVM_COMPATIBLE, IS_ENABLED
		FROM CHAIN_INFO
		ORDER BY SORT_ORDER ASC, SLUG ASC
	`

	chains := []models.ChainInfo{}
	if err := dao.db.SelectContext(ctx, &chains, query); err != nil {
		return nil, fmt.Errorf("failed to list chains: %w", err)
	}

	return chains, nil
}
