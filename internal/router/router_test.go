package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/subwallet/dapp-authorization-api/internal/config"
	"github.com/subwallet/dapp-authorization-api/internal/dao"
	"github.com/subwallet/dapp-authorization-api/internal/models"
	"github.com/subwallet/dapp-authorization-api/internal/service"
	"github.com/subwallet/dapp-authorization-api/internal/service/mocks"
)

const (
	substrateAddress = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
	evmAddress       = "0x1111111111111111111111111111111111111111"
)

type testServer struct {
	router  *gin.Engine
	service *service.AuthorizationService
	kv      *mocks.MockKeyValueStore
}

func setupTestServer(t *testing.T, stored string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	kv := &mocks.MockKeyValueStore{}
	if stored == "" {
		kv.On("Get", mock.Anything, config.DefaultStoreKey).Return(nil, dao.ErrKeyNotFound)
	} else {
		kv.On("Get", mock.Anything, config.DefaultStoreKey).Return([]byte(stored), nil)
	}
	kv.On("Set", mock.Anything, config.DefaultStoreKey, mock.Anything).Return(nil)

	accounts := &mocks.MockAccountLister{}
	accounts.On("ListAccountAddresses", mock.Anything).Return([]string{substrateAddress, evmAddress}, nil)

	chains := &mocks.MockChainRegistry{}
	chains.On("ListChains", mock.Anything).Return([]models.ChainInfo{
		{Slug: "ethereum", Name: "Ethereum", IsEvmCompatible: true, IsEnabled: true},
	}, nil)

	popup := &mocks.MockPopupNotifier{}
	popup.On("OpenPopup", mock.Anything).Return(nil)
	popup.On("UpdateBadge", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	svc := service.NewAuthorizationService(kv, accounts, chains, popup, config.DefaultAuthorizationConfig(), logger)
	require.NoError(t, svc.Init(context.Background()))
	t.Cleanup(svc.Dispose)

	return &testServer{
		router:  SetupRouter(svc, config.CORSConfig{}, logger),
		service: svc,
		kv:      kv,
	}
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var errResp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	return errResp
}

func TestHealth(t *testing.T) {
	s := setupTestServer(t, "")

	w := s.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestRequestAuthorization_ApprovedThroughPopup(t *testing.T) {
	s := setupTestServer(t, "")

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- s.do(http.MethodPost, "/api/v1/authorizations", models.AuthorizeAPIRequest{
			URL:             "https://dapp.example/page",
			Origin:          "Example dApp",
			AccountAuthType: "evm",
		})
	}()

	require.Eventually(t, func() bool { return s.service.GetPendingCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	w := s.do(http.MethodGet, "/api/v1/authorizations/requests/count", nil)
	assert.JSONEq(t, `{"count":1}`, w.Body.String())

	w = s.do(http.MethodGet, "/api/v1/authorizations/requests", nil)
	var summaries []models.PendingSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "Example dApp", summaries[0].Request.OriginName)

	w = s.do(http.MethodPost, "/api/v1/authorizations/requests/"+summaries[0].ID+"/approve", models.ApproveAPIRequest{Accounts: []string{evmAddress}})
	assert.Equal(t, http.StatusNoContent, w.Code)

	select {
	case w = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("authorization request did not complete")
	}
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"promptShown":true,"approved":true}`, w.Body.String())

	w = s.do(http.MethodGet, "/api/v1/auth-urls/dapp.example", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var record models.AuthorizationRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &record))
	assert.True(t, record.IsAllowedMap[evmAddress])
	assert.Equal(t, "ethereum", record.CurrentEvmNetworkKey)
}

func TestRequestAuthorization_RejectedThroughPopup(t *testing.T) {
	s := setupTestServer(t, "")

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- s.do(http.MethodPost, "/api/v1/authorizations", models.AuthorizeAPIRequest{URL: "https://dapp.example"})
	}()
	require.Eventually(t, func() bool { return s.service.GetPendingCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	id := s.service.ListPendingRequests()[0].ID
	assert.Equal(t, http.StatusNoContent, s.do(http.MethodPost, "/api/v1/authorizations/requests/"+id+"/reject", nil).Code)

	w := <-done
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, models.ErrCodeRequestRejected, decodeError(t, w).Code)

	w = s.do(http.MethodPost, "/api/v1/authorizations", models.AuthorizeAPIRequest{URL: "https://dapp.example/again"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, models.ErrCodeOriginDenied, decodeError(t, w).Code)
}

func TestRequestAuthorization_AlreadyAuthorized(t *testing.T) {
	s := setupTestServer(t, `{"dapp.example":{"id":"dapp.example","url":"https://dapp.example","isAllowed":true,"isAllowedMap":{"`+substrateAddress+`":true},"accountAuthType":"substrate","count":0}}`)

	w := s.do(http.MethodPost, "/api/v1/authorizations", models.AuthorizeAPIRequest{URL: "https://dapp.example/x"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"promptShown":false,"approved":true}`, w.Body.String())

	w = s.do(http.MethodGet, "/api/v1/authorizations/ensure?url=https://dapp.example/x", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"authorized":true}`, w.Body.String())
}

func TestRequestAuthorization_BadInput(t *testing.T) {
	s := setupTestServer(t, "")

	w := s.do(http.MethodPost, "/api/v1/authorizations", map[string]string{"origin": "no url"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/v1/authorizations", models.AuthorizeAPIRequest{URL: "https://dapp.example", AccountAuthType: "solana"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, models.ErrCodeValidationError, decodeError(t, w).Code)

	w = s.do(http.MethodPost, "/api/v1/authorizations", models.AuthorizeAPIRequest{URL: "file:///etc/passwd"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, models.ErrCodeInvalidURLScheme, decodeError(t, w).Code)
}

func TestEnsureAuthorized_Unknown(t *testing.T) {
	s := setupTestServer(t, "")

	w := s.do(http.MethodGet, "/api/v1/authorizations/ensure?url=https://unknown.example", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, models.ErrCodeNotYetAuthorized, decodeError(t, w).Code)

	w = s.do(http.MethodGet, "/api/v1/authorizations/ensure", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResolve_UnknownRequest(t *testing.T) {
	s := setupTestServer(t, "")

	w := s.do(http.MethodPost, "/api/v1/authorizations/requests/AUTHREQ-nope/cancel", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, models.ErrCodeRequestNotFound, decodeError(t, w).Code)
}

func TestAuthURLAdministration(t *testing.T) {
	s := setupTestServer(t, `{"dapp.example":{"id":"dapp.example","url":"https://dapp.example","isAllowed":true,"isAllowedMap":{"`+evmAddress+`":true},"accountAuthType":"evm","count":0}}`)

	w := s.do(http.MethodGet, "/api/v1/auth-urls", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "dapp.example")

	w = s.do(http.MethodPut, "/api/v1/auth-urls/dapp.example/accounts/"+evmAddress, models.ConnectAPIRequest{Connected: false})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(http.MethodPut, "/api/v1/auth-urls/accounts", models.ConnectAPIRequest{Connected: true})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(http.MethodPut, "/api/v1/auth-urls/dapp.example/evm-network", models.SwitchNetworkAPIRequest{NetworkKey: "ethereum"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(http.MethodPut, "/api/v1/auth-urls/dapp.example/evm-network", models.SwitchNetworkAPIRequest{NetworkKey: "polkadot"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodDelete, "/api/v1/auth-urls/dapp.example", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(http.MethodDelete, "/api/v1/auth-urls/dapp.example", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, models.ErrCodeSiteNotFound, decodeError(t, w).Code)

	w = s.do(http.MethodDelete, "/api/v1/auth-urls", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	s.kv.AssertCalled(t, "Set", mock.Anything, config.DefaultStoreKey, mock.Anything)
}

func TestConfigureCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	svc := service.NewAuthorizationService(nil, nil, nil, nil, config.DefaultAuthorizationConfig(), logger)
	r := SetupRouter(svc, config.CORSConfig{Enabled: true, AllowedOrigins: []string{"chrome-extension://wallet"}}, logger)

	req := httptest.NewRequest(http.MethodOptions, "/health", nil)
	req.Header.Set("Origin", "chrome-extension://wallet")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "chrome-extension://wallet", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestChangeAccountAuthorization_Guards(t *testing.T) {
	s := setupTestServer(t, `{"denied.example":{"id":"denied.example","url":"https://denied.example","isAllowed":false,"isAllowedMap":{"`+substrateAddress+`":false},"accountAuthType":"substrate","count":0}}`)

	w := s.do(http.MethodPut, "/api/v1/auth-urls/denied.example/accounts/"+substrateAddress, models.ConnectAPIRequest{Connected: true})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, models.ErrCodeOriginDenied, decodeError(t, w).Code)

	w = s.do(http.MethodPut, "/api/v1/auth-urls/denied.example/accounts/ghost", models.ConnectAPIRequest{Connected: true})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, models.ErrCodeAccountNotFound, decodeError(t, w).Code)

	s.kv.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
}
