package models

import (
	"net/http"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// NewErrorResponse creates a new error response
func NewErrorResponse(code, message, details string) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Common error codes
const (
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeDatabaseError      = "DATABASE_ERROR"
	ErrCodeValidationError    = "VALIDATION_ERROR"
	ErrCodeExtensionError     = "EXTENSION_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"

	// Authorization arbiter error codes
	ErrCodeInvalidURLScheme        = "INVALID_URL_SCHEME"
	ErrCodeDuplicatePendingRequest = "DUPLICATE_PENDING_REQUEST"
	ErrCodeOriginDenied            = "ORIGIN_DENIED"
	ErrCodeNotYetAuthorized        = "NOT_YET_AUTHORIZED"
	ErrCodeRequestCancelled        = "REQUEST_CANCELLED"
	ErrCodeRequestRejected         = "REQUEST_REJECTED"
	ErrCodeRequestNotFound         = "REQUEST_NOT_FOUND"
	ErrCodeSiteNotFound            = "SITE_NOT_FOUND"
	ErrCodeAccountNotFound         = "ACCOUNT_NOT_FOUND"
)

// HTTPStatusForErrorCode returns the appropriate HTTP status code for an error code
func HTTPStatusForErrorCode(code string) int {
	switch code {
	case ErrCodeBadRequest, ErrCodeValidationError, ErrCodeInvalidURLScheme:
		return http.StatusBadRequest
	case ErrCodeUnauthorized, ErrCodeNotYetAuthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden, ErrCodeOriginDenied, ErrCodeRequestRejected:
		return http.StatusForbidden
	case ErrCodeNotFound, ErrCodeRequestNotFound, ErrCodeSiteNotFound, ErrCodeAccountNotFound:
		return http.StatusNotFound
	case ErrCodeConflict, ErrCodeDuplicatePendingRequest, ErrCodeRequestCancelled:
		return http.StatusConflict
	case ErrCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case ErrCodeInternalError, ErrCodeDatabaseError, ErrCodeExtensionError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// SuccessResponse represents a standard success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewSuccessResponse creates a new success response
func NewSuccessResponse(message string, data interface{}) *SuccessResponse {
	return &SuccessResponse{
		Message: message,
		Data:    data,
	}
}
