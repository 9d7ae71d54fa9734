package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/subwallet/dapp-authorization-api/internal/dao"
	"github.com/subwallet/dapp-authorization-api/internal/models"
)

// PermissionStore keeps the origin -> record map in two tiers: the durable
// KeyValueStore and an in-memory copy loaded on first read.
//
// Once loaded, the cache is the source of truth for reads. Set writes the
// durable tier first and replaces the cache only after that write succeeds,
// so a failed write leaves both tiers unchanged.
type PermissionStore struct {
	store  KeyValueStore
	key    string
	logger *logrus.Logger

	mu     sync.Mutex
	cache  models.AuthURLs
	loaded bool
}

// NewPermissionStore creates a new PermissionStore over the given key
func NewPermissionStore(store KeyValueStore, key string, logger *logrus.Logger) *PermissionStore {
	return &PermissionStore{
		store:  store,
		key:    key,
		logger: logger,
	}
}

// Get returns a copy of the full origin map
func (p *PermissionStore) Get(ctx context.Context) (models.AuthURLs, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.loaded {
		p.logger.WithField("store_key", p.key).Debug("Permission cache hit")
		return p.cache.Clone(), nil
	}

	p.logger.WithField("store_key", p.key).Debug("Permission cache miss, loading from store")

	raw, err := p.store.Get(ctx, p.key)
	if err != nil && !errors.Is(err, dao.ErrKeyNotFound) {
		return nil, fmt.Errorf("failed to load authorized urls: %w", err)
	}

	authURLs := models.AuthURLs{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &authURLs); err != nil {
			return nil, fmt.Errorf("failed to decode authorized urls: %w", err)
		}
		if authURLs == nil {
			authURLs = models.AuthURLs{}
		}
	}

	p.cache = authURLs
	p.loaded = true

	return p.cache.Clone(), nil
}

// Set persists the full origin map, then refreshes the cache
func (p *PermissionStore) Set(ctx context.Context, authURLs models.AuthURLs) error {
	if authURLs == nil {
		authURLs = models.AuthURLs{}
	}

	raw, err := json.Marshal(authURLs)
	if err != nil {
		return fmt.Errorf("failed to encode authorized urls: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.store.Set(ctx, p.key, raw); err != nil {
		return fmt.Errorf("failed to persist authorized urls: %w", err)
	}

	p.cache = authURLs.Clone()
	p.loaded = true

	p.logger.WithFields(logrus.Fields{
		"store_key":    p.key,
		"origin_count": len(authURLs),
	}).Debug("Authorized urls persisted")

	return nil
}

// Invalidate drops the in-memory copy; the next Get reloads from the durable store
func (p *PermissionStore) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache = nil
	p.loaded = false
}
