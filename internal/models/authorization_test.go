package models

import (
	"encoding/json"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountAuthType_Widen(t *testing.T) {
	tests := []struct {
		existing AccountAuthType
		incoming AccountAuthType
		expected AccountAuthType
	}{
		{"", AccountAuthTypeSubstrate, AccountAuthTypeSubstrate},
		{AccountAuthTypeSubstrate, AccountAuthTypeSubstrate, AccountAuthTypeSubstrate},
		{AccountAuthTypeSubstrate, AccountAuthTypeEvm, AccountAuthTypeBoth},
		{AccountAuthTypeEvm, AccountAuthTypeSubstrate, AccountAuthTypeBoth},
		{AccountAuthTypeBoth, AccountAuthTypeEvm, AccountAuthTypeBoth},
		{AccountAuthTypeBoth, AccountAuthTypeSubstrate, AccountAuthTypeBoth},
		{AccountAuthTypeEvm, AccountAuthTypeBoth, AccountAuthTypeBoth},
	}

	for _, tt := range tests {
		t.Run(string(tt.existing)+"->"+string(tt.incoming), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.existing.Widen(tt.incoming))
		})
	}
}

func TestAccountAuthType_Covers(t *testing.T) {
	assert.True(t, AccountAuthTypeBoth.Covers(AccountAuthTypeEvm))
	assert.True(t, AccountAuthTypeBoth.Covers(AccountAuthTypeSubstrate))
	assert.True(t, AccountAuthTypeEvm.Covers(AccountAuthTypeEvm))
	assert.False(t, AccountAuthTypeSubstrate.Covers(AccountAuthTypeEvm))
	assert.False(t, AccountAuthTypeEvm.Covers(AccountAuthTypeBoth))
}

func TestParseAccountAuthType(t *testing.T) {
	for _, raw := range []string{"", "substrate", "evm", "both"} {
		got, err := ParseAccountAuthType(raw)
		require.NoError(t, err)
		assert.Equal(t, AccountAuthType(raw), got)
	}

	_, err := ParseAccountAuthType("bitcoin")
	assert.Error(t, err)
}

func TestAuthorizationRecord_AllowedAddresses(t *testing.T) {
	record := AuthorizationRecord{
		IsAllowedMap: map[string]bool{"A": true, "B": false, "C": true},
	}

	allowed := record.AllowedAddresses()
	sort.Strings(allowed)
	assert.Equal(t, []string{"A", "C"}, allowed)
	assert.True(t, record.HasConnectedAccount())

	record.IsAllowedMap = map[string]bool{"A": false}
	assert.False(t, record.HasConnectedAccount())
	assert.Empty(t, record.AllowedAddresses())
}

func TestAuthURLs_CloneIsDeep(t *testing.T) {
	original := AuthURLs{
		"dapp.example": {ID: "dapp.example", IsAllowedMap: map[string]bool{"A": true}},
	}

	clone := original.Clone()
	clone["dapp.example"].IsAllowedMap["A"] = false

	assert.True(t, original["dapp.example"].IsAllowedMap["A"])
}

func TestAuthorizationRecord_JSONShape(t *testing.T) {
	record := AuthorizationRecord{
		ID:              "dapp.example",
		URL:             "https://dapp.example/page1",
		IsAllowed:       true,
		IsAllowedMap:    map[string]bool{"A": true},
		AccountAuthType: AccountAuthTypeSubstrate,
	}

	raw, err := json.Marshal(record)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "dapp.example",
		"url": "https://dapp.example/page1",
		"isAllowed": true,
		"isAllowedMap": {"A": true},
		"accountAuthType": "substrate",
		"count": 0
	}`, string(raw))
}
