package authorization

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/subwallet/dapp-authorization-api/internal/config"
	"github.com/subwallet/dapp-authorization-api/internal/dao"
	"github.com/subwallet/dapp-authorization-api/internal/database"
	client "github.com/subwallet/dapp-authorization-api/internal/extension-client"
	"github.com/subwallet/dapp-authorization-api/internal/router"
	"github.com/subwallet/dapp-authorization-api/internal/service"
)

const (
	testSubstrateAddress = "5FHneW46xGXgs5mUiveU4sbTyGBzmstUspZC92UhjJM694ty"
	testEvmAddress       = "0x9999999999999999999999999999999999999999"
	testEvmChain         = "itest-evm"
)

// TestAuthorizationAPIEnvironment holds test dependencies for API tests
type TestAuthorizationAPIEnvironment struct {
	Router   http.Handler
	Service  *service.AuthorizationService
	KeyValue *dao.KeyValueDAO
	DB       *database.DB
	StoreKey string
}

// setupAuthorizationAPITestEnvironment wires the API against the wallet database.
// Each test gets its own store key so stored records never leak between tests.
func setupAuthorizationAPITestEnvironment(t *testing.T) *TestAuthorizationAPIEnvironment {
	t.Helper()

	cfg, err := config.Load("../../../configs/config.yaml")
	require.NoError(t, err, "Failed to load config")

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	db, err := database.Initialize(&cfg.Database.Wallet, logger)
	if err != nil {
		t.Skipf("wallet database unavailable: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	seedWalletData(t, db)

	keyValueDAO := dao.NewKeyValueDAO(db)
	storeKey := fmt.Sprintf("itest-%s-%d", t.Name(), time.Now().UnixNano())
	t.Cleanup(func() {
		_ = keyValueDAO.Delete(context.Background(), storeKey)
	})

	authCfg := cfg.Authorization
	authCfg.StoreKey = storeKey

	// No base URL: popup and badge calls are skipped
	extensionClient := client.NewExtensionClient(&config.ExtensionConfig{}, logger)
	t.Cleanup(extensionClient.Close)

	authorizationService := service.NewAuthorizationService(
		keyValueDAO,
		dao.NewAccountDAO(db),
		dao.NewChainDAO(db),
		extensionClient,
		authCfg,
		logger,
	)
	require.NoError(t, authorizationService.Init(context.Background()))
	t.Cleanup(authorizationService.Dispose)

	return &TestAuthorizationAPIEnvironment{
		Router:   router.SetupRouter(authorizationService, config.CORSConfig{}, logger),
		Service:  authorizationService,
		KeyValue: keyValueDAO,
		DB:       db,
		StoreKey: storeKey,
	}
}

func seedWalletData(t *testing.T, db *database.DB) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UnixMilli()

	for _, address := range []string{testSubstrateAddress, testEvmAddress} {
		_, err := db.ExecContext(ctx,
			"INSERT IGNORE INTO WALLET_ACCOUNT (ADDRESS, NAME, CREATED_TIME) VALUES (?, ?, ?)",
			address, "integration", now)
		require.NoError(t, err, "Failed to seed account")
	}

	_, err := db.ExecContext(ctx,
		`INSERT IGNORE INTO CHAIN_INFO (SLUG, NAME, IS_EVM_COMPATIBLE, IS_ENABLED, SORT_ORDER)
		 VALUES (?, ?, TRUE, TRUE, ?)`,
		testEvmChain, "Integration EVM", -1000)
	require.NoError(t, err, "Failed to seed chain")

	t.Cleanup(func() {
		_, _ = db.ExecContext(ctx, "DELETE FROM WALLET_ACCOUNT WHERE ADDRESS IN (?, ?)", testSubstrateAddress, testEvmAddress)
		_, _ = db.ExecContext(ctx, "DELETE FROM CHAIN_INFO WHERE SLUG = ?", testEvmChain)
	})
}

func (env *TestAuthorizationAPIEnvironment) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	recorder := httptest.NewRecorder()
	env.Router.ServeHTTP(recorder, req)
	return recorder
}

// startRequest posts an authorization request in the background and waits until it is pending
func (env *TestAuthorizationAPIEnvironment) startRequest(t *testing.T, body any) <-chan *httptest.ResponseRecorder {
	t.Helper()
	before := env.Service.GetPendingCount()

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- env.do(http.MethodPost, "/api/v1/authorizations", body)
	}()

	require.Eventually(t, func() bool {
		return env.Service.GetPendingCount() > before
	}, 2*time.Second, 10*time.Millisecond, "request never became pending")
	return done
}

func awaitResponse(t *testing.T, done <-chan *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	t.Helper()
	select {
	case recorder := <-done:
		return recorder
	case <-time.After(2 * time.Second):
		t.Fatal("authorization request did not settle")
		return nil
	}
}
