package utils

import (
	"github.com/google/uuid"
)

// GenerateID generates a new UUID
func GenerateID() string {
	return uuid.New().String()
}

// GenerateRequestID generates a unique authorization request ID
func GenerateRequestID() string {
	return "AUTHREQ-" + uuid.New().String()
}
