package service

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/subwallet/dapp-authorization-api/internal/config"
	"github.com/subwallet/dapp-authorization-api/internal/dao"
	"github.com/subwallet/dapp-authorization-api/internal/models"
	"github.com/subwallet/dapp-authorization-api/internal/service/mocks"
)

const (
	substrateA = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
	substrateB = "5FHneW46xGXgs5mUiveU4sbTyGBzmstUspZC92UhjJM694ty"
	evmC       = "0x1111111111111111111111111111111111111111"
	evmD       = "0x2222222222222222222222222222222222222222"
)

// memoryStore is an in-memory KeyValueStore whose writes can be made to fail
type memoryStore struct {
	mu       sync.Mutex
	data     map[string][]byte
	setErr   error
	setCalls int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string][]byte)}
}

func (m *memoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.data[key]
	if !ok {
		return nil, dao.ErrKeyNotFound
	}
	return append([]byte(nil), value...), nil
}

func (m *memoryStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls++
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memoryStore) failWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setErr = err
}

func (m *memoryStore) writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setCalls
}

func (m *memoryStore) raw() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data[config.DefaultStoreKey]...)
}

// TestSetup contains common test dependencies
type TestSetup struct {
	Store        *memoryStore
	MockAccounts *mocks.MockAccountLister
	MockChains   *mocks.MockChainRegistry
	MockPopup    *mocks.MockPopupNotifier
	Service      *AuthorizationService
	Logger       *logrus.Logger

	popupsOpened atomic.Int32
}

var defaultTestChains = []models.ChainInfo{
	{Slug: "polkadot", Name: "Polkadot", IsEvmCompatible: false, IsEnabled: true},
	{Slug: "moonbeam", Name: "Moonbeam", IsEvmCompatible: true, IsEnabled: false},
	{Slug: "ethereum", Name: "Ethereum", IsEvmCompatible: true, IsEnabled: true},
}

// NewTestSetup creates an arbiter over an in-memory store seeded with records
func NewTestSetup(t *testing.T, records ...models.AuthorizationRecord) *TestSetup {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	ts := &TestSetup{
		Store:        newMemoryStore(),
		MockAccounts: &mocks.MockAccountLister{},
		MockChains:   &mocks.MockChainRegistry{},
		MockPopup:    &mocks.MockPopupNotifier{},
		Logger:       logger,
	}

	if len(records) > 0 {
		authURLs := models.AuthURLs{}
		for _, record := range records {
			authURLs[record.ID] = record
		}
		raw, err := json.Marshal(authURLs)
		require.NoError(t, err)
		ts.Store.data[config.DefaultStoreKey] = raw
	}

	ts.MockAccounts.On("ListAccountAddresses", mock.Anything).
		Return([]string{substrateA, substrateB, evmC, evmD}, nil)
	ts.MockChains.On("ListChains", mock.Anything).Return(defaultTestChains, nil)
	ts.MockPopup.On("OpenPopup", mock.Anything).
		Run(func(mock.Arguments) { ts.popupsOpened.Add(1) }).
		Return(nil)
	ts.MockPopup.On("UpdateBadge", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	ts.Service = NewAuthorizationService(
		ts.Store,
		ts.MockAccounts,
		ts.MockChains,
		ts.MockPopup,
		config.DefaultAuthorizationConfig(),
		logger,
	)
	t.Cleanup(ts.Service.Dispose)

	return ts
}

type requestOutcome struct {
	approved bool
	err      error
}

// startRequest runs RequestAuthorization in the background and waits until it is pending
func (ts *TestSetup) startRequest(t *testing.T, ctx context.Context, url string, req models.AuthorizeRequest) <-chan requestOutcome {
	t.Helper()

	before := ts.Service.GetPendingCount()
	done := make(chan requestOutcome, 1)
	go func() {
		approved, err := ts.Service.RequestAuthorization(ctx, url, req)
		done <- requestOutcome{approved: approved, err: err}
	}()

	require.Eventually(t, func() bool {
		return ts.Service.GetPendingCount() == before+1
	}, 2*time.Second, 5*time.Millisecond, "request for %s never became pending", url)

	return done
}

// pendingID returns the id of the pending request for url
func (ts *TestSetup) pendingID(t *testing.T, url string) string {
	t.Helper()
	for _, summary := range ts.Service.ListPendingRequests() {
		if summary.URL == url {
			return summary.ID
		}
	}
	t.Fatalf("no pending request for %s", url)
	return ""
}

// stored decodes the durable blob
func (ts *TestSetup) stored(t *testing.T) models.AuthURLs {
	t.Helper()
	authURLs := models.AuthURLs{}
	raw := ts.Store.raw()
	if len(raw) == 0 {
		return authURLs
	}
	require.NoError(t, json.Unmarshal(raw, &authURLs))
	return authURLs
}

func awaitOutcome(t *testing.T, done <-chan requestOutcome) requestOutcome {
	t.Helper()
	select {
	case outcome := <-done:
		return outcome
	case <-time.After(2 * time.Second):
		t.Fatal("request did not complete")
		return requestOutcome{}
	}
}

func record(origin string, allowed bool, authType models.AccountAuthType, granted map[string]bool) models.AuthorizationRecord {
	return models.AuthorizationRecord{
		ID:              origin,
		URL:             "https://" + origin + "/",
		IsAllowed:       allowed,
		IsAllowedMap:    granted,
		AccountAuthType: authType,
	}
}
