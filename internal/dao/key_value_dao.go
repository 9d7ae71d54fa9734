package dao

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/subwallet/dapp-authorization-api/internal/database"
	"github.com/subwallet/dapp-authorization-api/pkg/utils"
)

// ErrKeyNotFound is returned when the store holds no value for a key
var ErrKeyNotFound = errors.New("key not found")

// KeyValueDAO persists serialized wallet state blobs keyed by name
type KeyValueDAO struct {
	db *database.DB
}

// NewKeyValueDAO creates a new KeyValueDAO instance
func NewKeyValueDAO(db *database.DB) *KeyValueDAO {
	return &KeyValueDAO{db: db}
}

// Get returns the raw value stored under key
func (dao *KeyValueDAO) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT STORE_VALUE FROM WALLET_KV_STORE WHERE STORE_KEY = ?`

	var value string
	err := dao.db.GetContext(ctx, &value, query, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
		}
		return nil, fmt.Errorf("failed to get value for key %s: %w", key, err)
	}

	return []byte(value), nil
}

// Set inserts or replaces the value stored under key
func (dao *KeyValueDAO) Set(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO WALLET_KV_STORE (STORE_KEY, STORE_VALUE, UPDATED_TIME)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE STORE_VALUE = VALUES(STORE_VALUE), UPDATED_TIME = VALUES(UPDATED_TIME)
	`

	_, err := dao.db.ExecContext(ctx, query, key, string(value), utils.GetCurrentTimeMillis())
	if err != nil {
		return fmt.Errorf("failed to set value for key %s: %w", key, err)
	}

	return nil
}

// Delete removes the value stored under key
func (dao *KeyValueDAO) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM WALLET_KV_STORE WHERE STORE_KEY = ?`

	result, err := dao.db.ExecContext(ctx, query, key)
	if err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	return nil
}
