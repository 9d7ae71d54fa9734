package client

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/subwallet/dapp-authorization-api/pkg/utils"
)

// OpenPopupRequest asks the UI bridge to show the approval window
type OpenPopupRequest struct {
	RequestID string `json:"requestId"`
}

// UpdateBadgeRequest sets the toolbar badge to the pending request count
type UpdateBadgeRequest struct {
	RequestID   string `json:"requestId"`
	Count       int    `json:"count"`
	Text        string `json:"text"`
	ShouldClose bool   `json:"shouldClose"`
}

// OpenPopup opens the approval popup. It is a no-op when the bridge is not configured.
func (c *ExtensionClient) OpenPopup(ctx context.Context) error {
	endpoint := c.config.Endpoints.OpenPopup
	if !c.IsExtensionEnabled() || endpoint == "" {
		c.logger.Debug("UI bridge not configured, skipping open popup")
		return nil
	}

	resp, err := c.CallExtension(ctx, endpoint, &OpenPopupRequest{RequestID: utils.GenerateID()})
	if err != nil {
		return fmt.Errorf("failed to open popup: %w", err)
	}

	return checkResponse(resp)
}

// UpdateBadge renders count on the badge; an empty badge with shouldClose
// lets the bridge close the popup
func (c *ExtensionClient) UpdateBadge(ctx context.Context, count int, shouldClose bool) error {
	endpoint := c.config.Endpoints.UpdateBadge
	if !c.IsExtensionEnabled() || endpoint == "" {
		c.logger.Debug("UI bridge not configured, skipping badge update")
		return nil
	}

	text := ""
	if count > 0 {
		text = strconv.Itoa(count)
	}

	request := &UpdateBadgeRequest{
		RequestID:   utils.GenerateID(),
		Count:       count,
		Text:        text,
		ShouldClose: shouldClose && count == 0,
	}

	c.logger.WithFields(logrus.Fields{
		"pending_count": count,
		"should_close":  request.ShouldClose,
	}).Debug("Updating badge")

	resp, err := c.CallExtension(ctx, endpoint, request)
	if err != nil {
		return fmt.Errorf("failed to update badge: %w", err)
	}

	return checkResponse(resp)
}

func checkResponse(resp *ExtensionResponse) error {
	if resp.Success {
		return nil
	}
	return fmt.Errorf("extension rejected call: %s: %s", resp.ErrorCode, resp.ErrorMessage)
}
