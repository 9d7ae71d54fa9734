package models

import (
	"fmt"
	"maps"
)

// AccountAuthType names the account universe a dApp wants to see
type AccountAuthType string

const (
	AccountAuthTypeSubstrate AccountAuthType = "substrate"
	AccountAuthTypeEvm       AccountAuthType = "evm"
	AccountAuthTypeBoth      AccountAuthType = "both"
)

// ParseAccountAuthType validates a raw account auth type. Empty input returns empty output.
func ParseAccountAuthType(raw string) (AccountAuthType, error) {
	switch t := AccountAuthType(raw); t {
	case "", AccountAuthTypeSubstrate, AccountAuthTypeEvm, AccountAuthTypeBoth:
		return t, nil
	default:
		return "", fmt.Errorf("invalid account auth type: %s", raw)
	}
}

// Covers reports whether a record of this type already serves a request of the other type
func (t AccountAuthType) Covers(requested AccountAuthType) bool {
	return t == AccountAuthTypeBoth || t == requested
}

// IncludesEvm reports whether EVM accounts are part of this type
func (t AccountAuthType) IncludesEvm() bool {
	return t == AccountAuthTypeEvm || t == AccountAuthTypeBoth
}

// Widen merges an incoming type into an existing one. Differing types become both.
func (t AccountAuthType) Widen(incoming AccountAuthType) AccountAuthType {
	if t == "" || t == incoming {
		return incoming
	}
	return AccountAuthTypeBoth
}

// AuthorizationRecord is the durable decision for one canonical origin
type AuthorizationRecord struct {
	ID                   string          `json:"id"`
	URL                  string          `json:"url"`
	OriginName           string          `json:"origin,omitempty"`
	IsAllowed            bool            `json:"isAllowed"`
	IsAllowedMap         map[string]bool `json:"isAllowedMap"`
	AccountAuthType      AccountAuthType `json:"accountAuthType"`
	CurrentEvmNetworkKey string          `json:"currentEvmNetworkKey,omitempty"`
	Count                int             `json:"count"`
}

// AllowedAddresses returns the addresses marked true in IsAllowedMap
func (r *AuthorizationRecord) AllowedAddresses() []string {
	allowed := make([]string, 0, len(r.IsAllowedMap))
	for address, ok := range r.IsAllowedMap {
		if ok {
			allowed = append(allowed, address)
		}
	}
	return allowed
}

// HasConnectedAccount reports whether at least one account is granted
func (r *AuthorizationRecord) HasConnectedAccount() bool {
	for _, ok := range r.IsAllowedMap {
		if ok {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the record
func (r AuthorizationRecord) Clone() AuthorizationRecord {
	r.IsAllowedMap = maps.Clone(r.IsAllowedMap)
	if r.IsAllowedMap == nil {
		r.IsAllowedMap = map[string]bool{}
	}
	return r
}

// AuthURLs is the whole origin -> record map, persisted as one blob
type AuthURLs map[string]AuthorizationRecord

// Clone returns a deep copy of the map
func (a AuthURLs) Clone() AuthURLs {
	clone := make(AuthURLs, len(a))
	for origin, record := range a {
		clone[origin] = record.Clone()
	}
	return clone
}

// AuthorizeRequest is what a dApp sends when asking for accounts
type AuthorizeRequest struct {
	OriginName      string          `json:"origin,omitempty"`
	AccountAuthType AccountAuthType `json:"accountAuthType,omitempty"`
	AllowedAccounts []string        `json:"allowedAccounts,omitempty"`
	ReConfirm       bool            `json:"reConfirm,omitempty"`
}

// AuthorizationRequest is an in-flight prompt awaiting the user's decision
type AuthorizationRequest struct {
	ID              string           `json:"id"`
	IDStr           string           `json:"idStr"`
	URL             string           `json:"url"`
	AccountAuthType AccountAuthType  `json:"accountAuthType"`
	Request         AuthorizeRequest `json:"request"`
	CreatedTime     int64            `json:"createdTime"`
}

// ResolveDecision is the popup's answer to a pending request
type ResolveDecision struct {
	Approved  bool     `json:"approved"`
	Accounts  []string `json:"accounts,omitempty"`
	Cancelled bool     `json:"cancelled,omitempty"`
}

// PendingSummary is the badge/subscription view of a pending request
type PendingSummary struct {
	ID      string           `json:"id"`
	Request AuthorizeRequest `json:"request"`
	URL     string           `json:"url"`
}

// EvmNetworkChange is published when an origin switches its EVM network
type EvmNetworkChange struct {
	Origin     string `json:"origin"`
	NetworkKey string `json:"networkKey"`
}

// ChainInfo is the subset of chain registry data the arbiter needs
type ChainInfo struct {
	Slug            string `db:"SLUG" json:"slug"`
	Name            string `db:"NAME" json:"name"`
	IsEvmCompatible bool   `db:"IS_EVM_COMPATIBLE" json:"isEvmCompatible"`
	IsEnabled       bool   `db:"IS_ENABLED" json:"isEnabled"`
}
