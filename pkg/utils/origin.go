package utils

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidURLScheme is returned when a request URL uses a scheme the wallet does not serve
var ErrInvalidURLScheme = errors.New("invalid url scheme")

// AcceptedSchemes lists the URL schemes dApps may connect from
var AcceptedSchemes = []string{"http:", "https:", "ipfs:", "ipns:"}

// IsAcceptedScheme reports whether the URL starts with one of the accepted schemes
func IsAcceptedScheme(url string) bool {
	for _, scheme := range AcceptedSchemes {
		if strings.HasPrefix(url, scheme) {
			return true
		}
	}
	return false
}

// StripURL returns the canonical origin of a request URL: the host segment
// ("https://dapp.example/page" -> "dapp.example").
func StripURL(url string) (string, error) {
	if !IsAcceptedScheme(url) {
		return "", fmt.Errorf("%w: %s", ErrInvalidURLScheme, url)
	}

	parts := strings.Split(url, "/")
	if len(parts) < 3 || parts[2] == "" {
		return "", fmt.Errorf("%w: missing host in %s", ErrInvalidURLScheme, url)
	}

	return parts[2], nil
}
