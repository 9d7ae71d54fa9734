package utils

import (
	"errors"

	"github.com/subwallet/dapp-authorization-api/internal/models"
	"github.com/subwallet/dapp-authorization-api/internal/service"
)

// ErrorCodeFor maps an arbiter error to its API error code and message
func ErrorCodeFor(err error) (code string, message string) {
	switch {
	case errors.Is(err, service.ErrInvalidURLScheme):
		return models.ErrCodeInvalidURLScheme, "Unsupported url scheme"
	case errors.Is(err, service.ErrDuplicatePendingRequest):
		return models.ErrCodeDuplicatePendingRequest, "An authorization request for this origin is already pending"
	case errors.Is(err, service.ErrOriginDenied):
		return models.ErrCodeOriginDenied, "Origin is not allowed to interact with this wallet"
	case errors.Is(err, service.ErrNotYetAuthorized):
		return models.ErrCodeNotYetAuthorized, "Origin is not authorized"
	case errors.Is(err, service.ErrUserCancelled):
		return models.ErrCodeRequestCancelled, "Authorization request cancelled"
	case errors.Is(err, service.ErrUserRejected):
		return models.ErrCodeRequestRejected, "Authorization request rejected"
	case errors.Is(err, service.ErrRequestNotFound):
		return models.ErrCodeRequestNotFound, "Authorization request not found"
	case errors.Is(err, service.ErrSiteNotFound):
		return models.ErrCodeSiteNotFound, "Authorized site not found"
	case errors.Is(err, service.ErrAccountNotFound):
		return models.ErrCodeAccountNotFound, "Account not found in wallet"
	case errors.Is(err, service.ErrInvalidNetwork):
		return models.ErrCodeValidationError, "Validation failed"
	case errors.Is(err, service.ErrServiceDisposed):
		return models.ErrCodeServiceUnavailable, "Authorization service is shutting down"
	default:
		return models.ErrCodeInternalError, "Internal server error"
	}
}
