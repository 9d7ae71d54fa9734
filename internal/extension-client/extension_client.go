package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/subwallet/dapp-authorization-api/internal/config"
)

// ExtensionClient talks to the browser extension UI bridge, which owns the
// approval popup window and the toolbar badge
type ExtensionClient struct {
	httpClient *http.Client
	config     *config.ExtensionConfig
	logger     *logrus.Logger
}

// ExtensionResponse represents the response from the UI bridge
type ExtensionResponse struct {
	Success      bool   `json:"success"`
	ErrorCode    string `json:"errorCode,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// NewExtensionClient creates a new extension client instance
func NewExtensionClient(cfg *config.ExtensionConfig, logger *logrus.Logger) *ExtensionClient {
	timeout := 5 * time.Second
	if cfg.Timeout > 0 {
		timeout = cfg.Timeout
	}

	return &ExtensionClient{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		config: cfg,
		logger: logger,
	}
}

// CallExtension makes an HTTP POST request to a UI bridge endpoint
func (c *ExtensionClient) CallExtension(ctx context.Context, endpoint string, payload any) (*ExtensionResponse, error) {
	url := c.config.GetExtensionURL(endpoint)

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)

	if err != nil {
		c.logger.WithError(err).WithField("duration", duration).Error("UI bridge call failed")
		return nil, fmt.Errorf("extension call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"url":         url,
		"status_code": resp.StatusCode,
		"duration":    duration,
	}).Debug("UI bridge response received")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("extension returned status %d: %s", resp.StatusCode, string(body))
	}

	extResponse := &ExtensionResponse{Success: true}
	if len(bytes.TrimSpace(body)) == 0 {
		return extResponse, nil
	}
	if err := json.Unmarshal(body, extResponse); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return extResponse, nil
}

// IsExtensionEnabled checks if the UI bridge is configured
func (c *ExtensionClient) IsExtensionEnabled() bool {
	return c.config.IsEnabled()
}

// Close closes the HTTP client connections
func (c *ExtensionClient) Close() {
	if c.httpClient != nil {
		c.httpClient.CloseIdleConnections()
	}
}
