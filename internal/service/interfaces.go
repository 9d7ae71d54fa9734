package service

import (
	"context"

	"github.com/subwallet/dapp-authorization-api/internal/models"
)

// KeyValueStore is the durable store holding serialized wallet state.
// Get returns dao.ErrKeyNotFound when the key was never written.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// AccountLister enumerates the wallet's known account addresses
type AccountLister interface {
	ListAccountAddresses(ctx context.Context) ([]string, error)
}

// ChainRegistry lists the chains known to the wallet
type ChainRegistry interface {
	ListChains(ctx context.Context) ([]models.ChainInfo, error)
}

// PopupNotifier drives the extension UI: the approval popup and the badge counter
type PopupNotifier interface {
	OpenPopup(ctx context.Context) error
	UpdateBadge(ctx context.Context, count int, shouldClose bool) error
}
