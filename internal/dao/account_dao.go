package dao

import (
	"context"
	"fmt"

	"github.com/subwallet/dapp-authorization-api/internal/database"
)

// AccountDAO reads the keyring's account list
type AccountDAO struct {
	db *database.DB
}

// NewAccountDAO creates a new AccountDAO instance
func NewAccountDAO(db *database.DB) *AccountDAO {
	return &AccountDAO{db: db}
}

// ListAccountAddresses returns every known wallet account address
func (dao *AccountDAO) ListAccountAddresses(ctx context.Context) ([]string, error) {
	query := `SELECT ADDRESS FROM WALLET_ACCOUNT ORDER BY CREATED_TIME ASC, ADDRESS ASC`

	addresses := []string{}
	if err := dao.db.SelectContext(ctx, &addresses, query); err != nil {
		return nil, fmt.Errorf("failed to list account addresses: %w", err)
	}

	return addresses, nil
}
