package models

// AuthorizeAPIRequest is the body of POST /authorizations
type AuthorizeAPIRequest struct {
	URL             string   `json:"url" binding:"required"`
	Origin          string   `json:"origin,omitempty"`
	AccountAuthType string   `json:"accountAuthType,omitempty"`
	AllowedAccounts []string `json:"allowedAccounts,omitempty"`
	ReConfirm       bool     `json:"reConfirm,omitempty"`
}

// ToAuthorizeRequest converts the API payload to the service request
func (r *AuthorizeAPIRequest) ToAuthorizeRequest() (*AuthorizeRequest, error) {
	authType, err := ParseAccountAuthType(r.AccountAuthType)
	if err != nil {
		return nil, err
	}
	return &AuthorizeRequest{
		OriginName:      r.Origin,
		AccountAuthType: authType,
		AllowedAccounts: r.AllowedAccounts,
		ReConfirm:       r.ReConfirm,
	}, nil
}

// AuthorizeAPIResponse is returned once a request settles
type AuthorizeAPIResponse struct {
	// PromptShown is false when an existing record already covered the request
	PromptShown bool `json:"promptShown"`
	Approved    bool `json:"approved"`
}

// ApproveAPIRequest is the body of POST /authorizations/requests/:id/approve
type ApproveAPIRequest struct {
	Accounts []string `json:"accounts,omitempty"`
}

// ConnectAPIRequest toggles account connections
type ConnectAPIRequest struct {
	Connected bool `json:"connected"`
}

// SwitchNetworkAPIRequest is the body of PUT /auth-urls/:origin/evm-network
type SwitchNetworkAPIRequest struct {
	NetworkKey string `json:"networkKey" binding:"required"`
}

// PendingCountResponse is returned by GET /authorizations/requests/count
type PendingCountResponse struct {
	Count int `json:"count"`
}

// EnsureAuthorizedResponse is returned by GET /authorizations/ensure
type EnsureAuthorizedResponse struct {
	Authorized bool `json:"authorized"`
}
