package utils

import (
	"fmt"
	"strings"
)

// ValidateRequestID validates authorization request ID format
func ValidateRequestID(requestID string) error {
	if requestID == "" {
		return fmt.Errorf("request ID cannot be empty")
	}
	if len(requestID) > 255 {
		return fmt.Errorf("request ID too long (max 255 characters)")
	}
	return nil
}

// ValidateAddress validates an account address
func ValidateAddress(address string) error {
	if strings.TrimSpace(address) == "" {
		return fmt.Errorf("address cannot be empty")
	}
	if len(address) > 128 {
		return fmt.Errorf("address too long (max 128 characters)")
	}
	return nil
}

// ValidateNetworkKey validates a chain slug
func ValidateNetworkKey(networkKey string) error {
	if networkKey == "" {
		return fmt.Errorf("network key cannot be empty")
	}
	if len(networkKey) > 64 {
		return fmt.Errorf("network key too long (max 64 characters)")
	}
	if !IsSlug(networkKey) {
		return fmt.Errorf("invalid network key: %s", networkKey)
	}
	return nil
}

// SanitizeString removes dangerous characters from user input
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")
	// Trim whitespace
	input = strings.TrimSpace(input)
	return input
}

// ValidateRequired validates that a field is not empty
func ValidateRequired(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ValidateMaxLength validates maximum string length
func ValidateMaxLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%s exceeds maximum length of %d characters", fieldName, maxLength)
	}
	return nil
}

// IsSlug checks if a string contains only lowercase alphanumerics, '_' and '-'
func IsSlug(s string) bool {
	if s == "" {
		return false
	}
	for _, char := range s {
		if !((char >= 'a' && char <= 'z') || (char >= '0' && char <= '9') || char == '_' || char == '-') {
			return false
		}
	}
	return true
}
