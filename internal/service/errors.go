package service

import (
	"errors"

	"github.com/subwallet/dapp-authorization-api/pkg/utils"
)

// Arbiter errors. Callers match them with errors.Is.
var (
	ErrInvalidURLScheme        = utils.ErrInvalidURLScheme
	ErrDuplicatePendingRequest = errors.New("pending authorization request already exists for this origin")
	ErrOriginDenied            = errors.New("origin is not allowed to interact with this wallet")
	ErrNotYetAuthorized        = errors.New("origin has not been authorized")
	ErrUserCancelled           = errors.New("cancelled")
	ErrUserRejected            = errors.New("rejected by user")
	ErrRequestNotFound         = errors.New("authorization request not found")
	ErrServiceDisposed         = errors.New("authorization service disposed")
	ErrSiteNotFound            = errors.New("authorized site not found")
	ErrAccountNotFound         = errors.New("account not found in wallet")
	ErrInvalidNetwork          = errors.New("network is not an enabled EVM chain")
)
