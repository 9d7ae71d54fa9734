package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  wallet:
    hostname: db.local
    database: wallet_db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9446, cfg.Server.Port)
	assert.Equal(t, "substrate", cfg.Authorization.DefaultAccountAuthType)
	assert.Equal(t, 2, cfg.Authorization.PopupOpenThreshold)
	assert.Equal(t, "authUrls", cfg.Authorization.StoreKey)
	assert.Equal(t, "/popup/open", cfg.Extension.Endpoints.OpenPopup)
	assert.False(t, cfg.Extension.IsEnabled())
}

func TestLoad_RejectsInvalidAuthType(t *testing.T) {
	path := writeConfig(t, `
database:
  wallet:
    hostname: db.local
    database: wallet_db
authorization:
  default_account_auth_type: solana
`)

	cfg, err := Load(path)
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid default account auth type")
}

func TestLoad_RequiresDatabase(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database hostname is required")
}

func TestAuthorizationConfig_Validate(t *testing.T) {
	cfg := DefaultAuthorizationConfig()
	assert.NoError(t, cfg.Validate())

	cfg.PopupOpenThreshold = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultAuthorizationConfig()
	cfg.StoreKey = ""
	assert.Error(t, cfg.Validate())
}

func TestDatabaseConfig_GetDSN(t *testing.T) {
	d := DatabaseConfig{User: "u", Password: "p", Hostname: "h", Port: 3306, Database: "d"}
	assert.Equal(t, "u:p@tcp(h:3306)/d?parseTime=true&multiStatements=true", d.GetDSN())
}
