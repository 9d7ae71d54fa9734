package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/subwallet/dapp-authorization-api/internal/broadcast"
	"github.com/subwallet/dapp-authorization-api/internal/config"
	"github.com/subwallet/dapp-authorization-api/internal/models"
	"github.com/subwallet/dapp-authorization-api/pkg/utils"
)

// AuthorizationService arbitrates dApp access to wallet accounts.
//
// A single mutex serializes every check-then-act sequence: the duplicate
// check with registration, and the record read with merge and write. Callers
// waiting for a user decision block on their own channel outside the lock.
type AuthorizationService struct {
	store    *PermissionStore
	pending  *PendingRegistry
	accounts AccountLister
	chains   ChainRegistry
	popup    PopupNotifier
	cfg      config.AuthorizationConfig
	logger   *logrus.Logger

	mu       sync.Mutex
	disposed bool

	authURLStream    *broadcast.Stream[models.AuthURLs]
	evmNetworkStream *broadcast.Stream[models.EvmNetworkChange]
	pendingStream    *broadcast.Stream[[]models.PendingSummary]
}

// NewAuthorizationService creates a new AuthorizationService
func NewAuthorizationService(
	store KeyValueStore,
	accounts AccountLister,
	chains ChainRegistry,
	popup PopupNotifier,
	cfg config.AuthorizationConfig,
	logger *logrus.Logger,
) *AuthorizationService {
	if cfg.StoreKey == "" {
		cfg.StoreKey = config.DefaultStoreKey
	}
	if cfg.PopupOpenThreshold < 1 {
		cfg.PopupOpenThreshold = config.DefaultPopupOpenThreshold
	}
	if cfg.DefaultAccountAuthType == "" {
		cfg.DefaultAccountAuthType = config.DefaultAccountAuthType
	}

	return &AuthorizationService{
		store:            NewPermissionStore(store, cfg.StoreKey, logger),
		pending:          NewPendingRegistry(),
		accounts:         accounts,
		chains:           chains,
		popup:            popup,
		cfg:              cfg,
		logger:           logger,
		authURLStream:    broadcast.NewReplayStream[models.AuthURLs](),
		evmNetworkStream: broadcast.NewReplayStream[models.EvmNetworkChange](),
		pendingStream:    broadcast.NewPushStream[[]models.PendingSummary](),
	}
}

// Init loads the stored decisions and publishes them to subscribers
func (s *AuthorizationService) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return ErrServiceDisposed
	}

	authURLs, err := s.store.Get(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load authorized urls")
		return fmt.Errorf("failed to initialize authorization service: %w", err)
	}

	s.authURLStream.Publish(authURLs)

	s.logger.WithField("origin_count", len(authURLs)).Info("Authorization service initialized")
	return nil
}

// Dispose fails every pending request with ErrServiceDisposed and closes all streams
func (s *AuthorizationService) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return
	}
	s.disposed = true

	drained := s.pending.Drain()
	for _, entry := range drained {
		entry.complete(false, ErrServiceDisposed)
	}

	s.authURLStream.Close()
	s.evmNetworkStream.Close()
	s.pendingStream.Close()

	s.logger.WithField("pending_count", len(drained)).Info("Authorization service disposed")
}

// RequestAuthorization asks for access to wallet accounts on behalf of url.
//
// It returns (false, nil) when an existing decision already covers the request
// and no prompt was shown. Otherwise it blocks until the user resolves the
// prompt: (true, nil) on approval, ErrUserRejected on denial and
// ErrUserCancelled when the prompt is dismissed or ctx is done.
func (s *AuthorizationService) RequestAuthorization(ctx context.Context, url string, req models.AuthorizeRequest) (bool, error) {
	idStr, err := utils.StripURL(url)
	if err != nil {
		return false, err
	}

	if req.AccountAuthType == "" {
		req.AccountAuthType = models.AccountAuthType(s.cfg.DefaultAccountAuthType)
	}
	if _, err := models.ParseAccountAuthType(string(req.AccountAuthType)); err != nil {
		return false, err
	}

	logger := s.logger.WithFields(logrus.Fields{
		"origin":            idStr,
		"account_auth_type": req.AccountAuthType,
	})

	s.mu.Lock()

	if s.disposed {
		s.mu.Unlock()
		return false, ErrServiceDisposed
	}

	if s.pending.HasPendingFor(idStr) {
		s.mu.Unlock()
		logger.Warn("Rejected duplicate authorization request")
		return false, fmt.Errorf("%w: %s", ErrDuplicatePendingRequest, idStr)
	}

	authURLs, err := s.store.Get(ctx)
	if err != nil {
		s.mu.Unlock()
		return false, err
	}

	if record, exists := authURLs[idStr]; exists {
		if !record.IsAllowed {
			s.mu.Unlock()
			logger.Warn("Rejected authorization request from denied origin")
			return false, fmt.Errorf("%w: %s", ErrOriginDenied, url)
		}

		req.AllowedAccounts = record.AllowedAddresses()
		usable := filterAddressesByAuthType(req.AllowedAccounts, req.AccountAuthType)

		if record.AccountAuthType.Covers(req.AccountAuthType) && !req.ReConfirm && len(usable) > 0 {
			s.mu.Unlock()
			logger.Debug("Origin already authorized, no prompt needed")
			return false, nil
		}
	}

	request := &models.AuthorizationRequest{
		ID:              utils.GenerateRequestID(),
		IDStr:           idStr,
		URL:             url,
		AccountAuthType: req.AccountAuthType,
		Request:         req,
		CreatedTime:     utils.GetCurrentTimeMillis(),
	}
	entry := newPendingEntry(request)

	pendingBefore := s.pending.Count()
	s.pending.Add(entry)
	s.publishPendingLocked()
	pendingAfter := s.pending.Count()

	s.mu.Unlock()

	logger.WithFields(logrus.Fields{
		"request_id":    request.ID,
		"pending_count": pendingAfter,
	}).Info("Authorization request pending user decision")

	s.updateBadge(ctx, pendingAfter, false)
	if pendingBefore < s.cfg.PopupOpenThreshold {
		s.openPopup(ctx)
	}

	select {
	case result := <-entry.resultCh:
		return result.approved, result.err
	case <-ctx.Done():
		return s.abandon(entry, ctx.Err())
	}
}

// abandon cancels a request whose caller stopped waiting. If a decision
// landed first, that decision is returned instead.
func (s *AuthorizationService) abandon(entry *pendingEntry, cause error) (bool, error) {
	s.mu.Lock()
	_, removed := s.pending.Remove(entry.request.ID)
	count := s.pending.Count()
	if removed {
		s.publishPendingLocked()
	}
	s.mu.Unlock()

	if !removed {
		select {
		case result := <-entry.resultCh:
			return result.approved, result.err
		default:
			return false, ErrServiceDisposed
		}
	}

	s.logger.WithFields(logrus.Fields{
		"request_id": entry.request.ID,
		"origin":     entry.request.IDStr,
	}).Info("Authorization request abandoned by caller")

	s.updateBadge(context.Background(), count, true)
	return false, fmt.Errorf("%w: %v", ErrUserCancelled, cause)
}

// ResolveAuthorization applies the user's decision to the pending request id.
//
// A cancellation removes the request without touching stored decisions. An
// approval or denial is merged into the origin's record and persisted before
// the request is removed; when persisting fails the request stays pending.
func (s *AuthorizationService) ResolveAuthorization(ctx context.Context, id string, decision models.ResolveDecision) error {
	s.mu.Lock()

	if s.disposed {
		s.mu.Unlock()
		return ErrServiceDisposed
	}

	entry, ok := s.pending.Get(id)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrRequestNotFound, id)
	}

	logger := s.logger.WithFields(logrus.Fields{
		"request_id":        id,
		"origin":            entry.request.IDStr,
		"account_auth_type": entry.request.AccountAuthType,
	})

	if decision.Cancelled {
		s.pending.Remove(id)
		entry.complete(false, ErrUserCancelled)
		s.publishPendingLocked()
		count := s.pending.Count()
		s.mu.Unlock()

		logger.Info("Authorization request cancelled")
		s.updateBadge(ctx, count, true)
		return nil
	}

	authURLs, err := s.mergeDecisionLocked(ctx, entry.request, decision)
	if err != nil {
		s.mu.Unlock()
		logger.WithError(err).Error("Failed to resolve authorization request")
		return err
	}

	s.pending.Remove(id)
	if decision.Approved {
		entry.complete(true, nil)
	} else {
		entry.complete(false, ErrUserRejected)
	}
	s.authURLStream.Publish(authURLs)
	s.publishPendingLocked()
	count := s.pending.Count()
	s.mu.Unlock()

	logger.WithFields(logrus.Fields{
		"approved":      decision.Approved,
		"pending_count": count,
	}).Info("Authorization decision persisted")

	s.updateBadge(ctx, count, true)
	return nil
}

// mergeDecisionLocked builds the new record for the request's origin and persists the map
func (s *AuthorizationService) mergeDecisionLocked(ctx context.Context, request *models.AuthorizationRequest, decision models.ResolveDecision) (models.AuthURLs, error) {
	addresses, err := s.accounts.ListAccountAddresses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	authURLs, err := s.store.Get(ctx)
	if err != nil {
		return nil, err
	}

	existing, exists := authURLs[request.IDStr]

	isAllowedMap := make(map[string]bool, len(addresses))
	for _, address := range addresses {
		isAllowedMap[address] = false
	}

	if decision.Approved {
		granted := slices.Clone(decision.Accounts)
		// Grants of the type not being requested survive this decision.
		if exists && request.AccountAuthType != models.AccountAuthTypeBoth {
			keepEvm := request.AccountAuthType != models.AccountAuthTypeEvm
			granted = append(granted, utils.FilterEthereumAddresses(existing.AllowedAddresses(), keepEvm)...)
		}

		for _, address := range granted {
			if _, known := isAllowedMap[address]; !known {
				s.logger.WithFields(logrus.Fields{
					"request_id": request.ID,
					"address":    address,
				}).Warn("Ignoring grant for unknown account")
				continue
			}
			isAllowedMap[address] = true
		}
	}

	authType := request.AccountAuthType
	networkKey := ""
	originName := request.Request.OriginName
	if exists {
		authType = existing.AccountAuthType.Widen(request.AccountAuthType)
		networkKey = existing.CurrentEvmNetworkKey
		if originName == "" {
			originName = existing.OriginName
		}
	}

	if networkKey == "" && authType.IncludesEvm() {
		networkKey = s.defaultEvmNetwork(ctx)
	}

	authURLs[request.IDStr] = models.AuthorizationRecord{
		ID:                   request.IDStr,
		URL:                  request.URL,
		OriginName:           originName,
		IsAllowed:            decision.Approved,
		IsAllowedMap:         isAllowedMap,
		AccountAuthType:      authType,
		CurrentEvmNetworkKey: networkKey,
		Count:                0,
	}

	if err := s.store.Set(ctx, authURLs); err != nil {
		return nil, err
	}

	return authURLs, nil
}

// defaultEvmNetwork picks the first enabled EVM-compatible chain, or "" when none exists
func (s *AuthorizationService) defaultEvmNetwork(ctx context.Context) string {
	chains, err := s.chains.ListChains(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to list chains, leaving EVM network unset")
		return ""
	}

	for _, chain := range chains {
		if chain.IsEvmCompatible && chain.IsEnabled {
			return chain.Slug
		}
	}
	return ""
}

// EnsureAuthorized checks that url has a stored decision granting at least one account
func (s *AuthorizationService) EnsureAuthorized(ctx context.Context, url string) (bool, error) {
	idStr, err := utils.StripURL(url)
	if err != nil {
		return false, err
	}

	authURLs, err := s.loadAuthURLs(ctx)
	if err != nil {
		return false, err
	}

	record, exists := authURLs[idStr]
	if !exists {
		return false, fmt.Errorf("%w: the source %s has not been enabled yet", ErrNotYetAuthorized, url)
	}

	if !record.IsAllowed || !record.HasConnectedAccount() {
		return false, fmt.Errorf("%w: the source %s is not allowed to interact with this extension", ErrNotYetAuthorized, url)
	}

	return true, nil
}

// GetPendingCount returns the number of requests awaiting a decision
func (s *AuthorizationService) GetPendingCount() int {
	return s.pending.Count()
}

// ListPendingRequests returns a snapshot of the pending requests
func (s *AuthorizationService) ListPendingRequests() []models.PendingSummary {
	return s.pending.ListSummaries()
}

// AuthURLUpdates streams the full origin map; new subscribers receive the latest map.
// Published maps are shared between subscribers and must not be modified.
func (s *AuthorizationService) AuthURLUpdates() broadcast.Subscribable[models.AuthURLs] {
	return s.authURLStream
}

// EvmNetworkUpdates streams EVM network switches; new subscribers receive the latest switch
func (s *AuthorizationService) EvmNetworkUpdates() broadcast.Subscribable[models.EvmNetworkChange] {
	return s.evmNetworkStream
}

// PendingUpdates streams the pending request list after every change
func (s *AuthorizationService) PendingUpdates() broadcast.Subscribable[[]models.PendingSummary] {
	return s.pendingStream
}

// GetAuthList returns every stored decision
func (s *AuthorizationService) GetAuthList(ctx context.Context) (models.AuthURLs, error) {
	return s.loadAuthURLs(ctx)
}

// GetAuthRecord returns the stored decision for a url or canonical origin
func (s *AuthorizationService) GetAuthRecord(ctx context.Context, urlOrOrigin string) (*models.AuthorizationRecord, error) {
	origin, err := canonicalOrigin(urlOrOrigin)
	if err != nil {
		return nil, err
	}

	authURLs, err := s.loadAuthURLs(ctx)
	if err != nil {
		return nil, err
	}

	record, exists := authURLs[origin]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrSiteNotFound, origin)
	}
	return &record, nil
}

// ForgetSite deletes the stored decision for an origin, lifting a denial
func (s *AuthorizationService) ForgetSite(ctx context.Context, urlOrOrigin string) error {
	origin, err := canonicalOrigin(urlOrOrigin)
	if err != nil {
		return err
	}

	return s.mutate(ctx, func(authURLs models.AuthURLs) error {
		if _, exists := authURLs[origin]; !exists {
			return fmt.Errorf("%w: %s", ErrSiteNotFound, origin)
		}
		delete(authURLs, origin)
		s.logger.WithField("origin", origin).Info("Forgot authorized site")
		return nil
	})
}

// ForgetAllSites deletes every stored decision
func (s *AuthorizationService) ForgetAllSites(ctx context.Context) error {
	return s.mutate(ctx, func(authURLs models.AuthURLs) error {
		s.logger.WithField("origin_count", len(authURLs)).Info("Forgot all authorized sites")
		clear(authURLs)
		return nil
	})
}

// ChangeAuthorizationPerAccount connects or disconnects one wallet account for an origin.
// A denied origin cannot be connected here; it has to be forgotten and asked again.
func (s *AuthorizationService) ChangeAuthorizationPerAccount(ctx context.Context, urlOrOrigin, address string, connect bool) error {
	origin, err := canonicalOrigin(urlOrOrigin)
	if err != nil {
		return err
	}

	addresses, err := s.accounts.ListAccountAddresses(ctx)
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	if !slices.Contains(addresses, address) {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, address)
	}

	return s.mutate(ctx, func(authURLs models.AuthURLs) error {
		record, exists := authURLs[origin]
		if !exists {
			return fmt.Errorf("%w: %s", ErrSiteNotFound, origin)
		}
		if connect && !record.IsAllowed {
			return fmt.Errorf("%w: %s", ErrOriginDenied, origin)
		}
		if record.IsAllowedMap == nil {
			record.IsAllowedMap = map[string]bool{}
		}
		record.IsAllowedMap[address] = connect
		authURLs[origin] = record

		s.logger.WithFields(logrus.Fields{
			"origin":    origin,
			"address":   address,
			"connected": connect,
		}).Info("Changed account authorization")
		return nil
	})
}

// ChangeAuthorizationAll connects or disconnects every account on every allowed origin.
// Denied origins are left untouched.
func (s *AuthorizationService) ChangeAuthorizationAll(ctx context.Context, connect bool) error {
	return s.mutate(ctx, func(authURLs models.AuthURLs) error {
		for origin, record := range authURLs {
			if !record.IsAllowed {
				continue
			}
			for address := range record.IsAllowedMap {
				record.IsAllowedMap[address] = connect
			}
			authURLs[origin] = record
		}
		s.logger.WithField("connected", connect).Info("Changed authorization for all sites")
		return nil
	})
}

// SwitchEvmNetwork sets the EVM network an origin interacts with
func (s *AuthorizationService) SwitchEvmNetwork(ctx context.Context, urlOrOrigin, networkKey string) error {
	origin, err := canonicalOrigin(urlOrOrigin)
	if err != nil {
		return err
	}

	chains, err := s.chains.ListChains(ctx)
	if err != nil {
		return fmt.Errorf("failed to list chains: %w", err)
	}

	valid := false
	for _, chain := range chains {
		if chain.Slug == networkKey && chain.IsEvmCompatible && chain.IsEnabled {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%w: %s", ErrInvalidNetwork, networkKey)
	}

	err = s.mutate(ctx, func(authURLs models.AuthURLs) error {
		record, exists := authURLs[origin]
		if !exists {
			return fmt.Errorf("%w: %s", ErrSiteNotFound, origin)
		}
		record.CurrentEvmNetworkKey = networkKey
		authURLs[origin] = record
		return nil
	})
	if err != nil {
		return err
	}

	s.evmNetworkStream.Publish(models.EvmNetworkChange{Origin: origin, NetworkKey: networkKey})

	s.logger.WithFields(logrus.Fields{
		"origin":      origin,
		"network_key": networkKey,
	}).Info("Switched EVM network")
	return nil
}

// mutate applies fn to the stored map under the service lock, persists and publishes it
func (s *AuthorizationService) mutate(ctx context.Context, fn func(models.AuthURLs) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return ErrServiceDisposed
	}

	authURLs, err := s.store.Get(ctx)
	if err != nil {
		return err
	}

	if err := fn(authURLs); err != nil {
		return err
	}

	if err := s.store.Set(ctx, authURLs); err != nil {
		s.logger.WithError(err).Error("Failed to persist authorized urls")
		return err
	}

	s.authURLStream.Publish(authURLs)
	return nil
}

func (s *AuthorizationService) loadAuthURLs(ctx context.Context) (models.AuthURLs, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return nil, ErrServiceDisposed
	}
	return s.store.Get(ctx)
}

func (s *AuthorizationService) publishPendingLocked() {
	s.pendingStream.Publish(s.pending.ListSummaries())
}

func (s *AuthorizationService) updateBadge(ctx context.Context, count int, shouldClose bool) {
	if err := s.popup.UpdateBadge(ctx, count, shouldClose); err != nil {
		s.logger.WithError(err).WithField("pending_count", count).Warn("Failed to update badge")
	}
}

func (s *AuthorizationService) openPopup(ctx context.Context) {
	if err := s.popup.OpenPopup(ctx); err != nil {
		s.logger.WithError(err).Warn("Failed to open authorization popup")
		return
	}
	s.logger.Debug("Authorization popup opened")
}

// filterAddressesByAuthType keeps the addresses a request of authType may use
func filterAddressesByAuthType(addresses []string, authType models.AccountAuthType) []string {
	switch authType {
	case models.AccountAuthTypeEvm:
		return utils.FilterEthereumAddresses(addresses, true)
	case models.AccountAuthTypeSubstrate:
		return utils.FilterEthereumAddresses(addresses, false)
	default:
		return addresses
	}
}

// canonicalOrigin accepts either a full url or an already stripped origin
func canonicalOrigin(urlOrOrigin string) (string, error) {
	if urlOrOrigin == "" {
		return "", errors.New("origin is required")
	}
	if utils.IsAcceptedScheme(urlOrOrigin) {
		return utils.StripURL(urlOrOrigin)
	}
	return urlOrOrigin, nil
}
