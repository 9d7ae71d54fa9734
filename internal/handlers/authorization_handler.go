package handlers

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/subwallet/dapp-authorization-api/internal/broadcast"
	handlerutils "github.com/subwallet/dapp-authorization-api/internal/handlers/utils"
	"github.com/subwallet/dapp-authorization-api/internal/models"
	"github.com/subwallet/dapp-authorization-api/internal/service"
	"github.com/subwallet/dapp-authorization-api/internal/utils"
	pkgutils "github.com/subwallet/dapp-authorization-api/pkg/utils"
)

const maxURLLength = 2048

// AuthorizationHandler handles dApp authorization HTTP requests
type AuthorizationHandler struct {
	service *service.AuthorizationService
	logger  *logrus.Logger
}

// NewAuthorizationHandler creates a new authorization handler instance
func NewAuthorizationHandler(authorizationService *service.AuthorizationService, logger *logrus.Logger) *AuthorizationHandler {
	return &AuthorizationHandler{
		service: authorizationService,
		logger:  logger,
	}
}

// RequestAuthorization handles POST /authorizations.
// The call is held open until the user answers the prompt.
func (h *AuthorizationHandler) RequestAuthorization(c *gin.Context) {
	var apiRequest models.AuthorizeAPIRequest
	if err := c.ShouldBindJSON(&apiRequest); err != nil {
		utils.SendBadRequestError(c, "Invalid request body", err.Error())
		return
	}

	if err := pkgutils.ValidateMaxLength("url", apiRequest.URL, maxURLLength); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}
	apiRequest.Origin = pkgutils.SanitizeString(apiRequest.Origin)

	request, err := apiRequest.ToAuthorizeRequest()
	if err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}

	// Denials and cancellations come back as errors, so a nil error always means access.
	// The boolean only tells whether the user had to answer a prompt for it.
	promptShown, err := h.service.RequestAuthorization(c.Request.Context(), apiRequest.URL, *request)
	if err != nil {
		h.sendServiceError(c, err)
		return
	}

	utils.SendOKResponse(c, models.AuthorizeAPIResponse{
		PromptShown: promptShown,
		Approved:    true,
	})
}

// EnsureAuthorized handles GET /authorizations/ensure?url=
func (h *AuthorizationHandler) EnsureAuthorized(c *gin.Context) {
	url := c.Query("url")
	if err := pkgutils.ValidateRequired("url", url); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}

	authorized, err := h.service.EnsureAuthorized(c.Request.Context(), url)
	if err != nil {
		h.sendServiceError(c, err)
		return
	}

	utils.SendOKResponse(c, models.EnsureAuthorizedResponse{Authorized: authorized})
}

// ListPendingRequests handles GET /authorizations/requests
func (h *AuthorizationHandler) ListPendingRequests(c *gin.Context) {
	utils.SendOKResponse(c, h.service.ListPendingRequests())
}

// GetPendingCount handles GET /authorizations/requests/count
func (h *AuthorizationHandler) GetPendingCount(c *gin.Context) {
	utils.SendOKResponse(c, models.PendingCountResponse{Count: h.service.GetPendingCount()})
}

// ApproveRequest handles POST /authorizations/requests/:id/approve
func (h *AuthorizationHandler) ApproveRequest(c *gin.Context) {
	var body models.ApproveAPIRequest
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		utils.SendBadRequestError(c, "Invalid request body", err.Error())
		return
	}

	for _, address := range body.Accounts {
		if err := pkgutils.ValidateAddress(address); err != nil {
			utils.SendValidationError(c, err.Error())
			return
		}
	}

	h.resolve(c, models.ResolveDecision{Approved: true, Accounts: body.Accounts})
}

// RejectRequest handles POST /authorizations/requests/:id/reject
func (h *AuthorizationHandler) RejectRequest(c *gin.Context) {
	h.resolve(c, models.ResolveDecision{Approved: false})
}

// CancelRequest handles POST /authorizations/requests/:id/cancel
func (h *AuthorizationHandler) CancelRequest(c *gin.Context) {
	h.resolve(c, models.ResolveDecision{Cancelled: true})
}

func (h *AuthorizationHandler) resolve(c *gin.Context, decision models.ResolveDecision) {
	id := c.Param("id")
	if err := pkgutils.ValidateRequestID(id); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}

	if err := h.service.ResolveAuthorization(c.Request.Context(), id, decision); err != nil {
		h.sendServiceError(c, err)
		return
	}

	utils.SendNoContentResponse(c)
}

// StreamPendingRequests handles GET /authorizations/requests/stream
func (h *AuthorizationHandler) StreamPendingRequests(c *gin.Context) {
	streamUpdates(c, h.service.PendingUpdates(), "pending")
}

// GetAuthList handles GET /auth-urls
func (h *AuthorizationHandler) GetAuthList(c *gin.Context) {
	authURLs, err := h.service.GetAuthList(c.Request.Context())
	if err != nil {
		h.sendServiceError(c, err)
		return
	}
	utils.SendOKResponse(c, authURLs)
}

// GetAuthRecord handles GET /auth-urls/:origin
func (h *AuthorizationHandler) GetAuthRecord(c *gin.Context) {
	record, err := h.service.GetAuthRecord(c.Request.Context(), c.Param("origin"))
	if err != nil {
		h.sendServiceError(c, err)
		return
	}
	utils.SendOKResponse(c, record)
}

// StreamAuthURLs handles GET /auth-urls/stream
func (h *AuthorizationHandler) StreamAuthURLs(c *gin.Context) {
	streamUpdates(c, h.service.AuthURLUpdates(), "authUrls")
}

// StreamEvmNetwork handles GET /auth-urls/evm-network/stream
func (h *AuthorizationHandler) StreamEvmNetwork(c *gin.Context) {
	streamUpdates(c, h.service.EvmNetworkUpdates(), "evmNetwork")
}

// ForgetSite handles DELETE /auth-urls/:origin
func (h *AuthorizationHandler) ForgetSite(c *gin.Context) {
	if err := h.service.ForgetSite(c.Request.Context(), c.Param("origin")); err != nil {
		h.sendServiceError(c, err)
		return
	}
	utils.SendNoContentResponse(c)
}

// ForgetAllSites handles DELETE /auth-urls
func (h *AuthorizationHandler) ForgetAllSites(c *gin.Context) {
	if err := h.service.ForgetAllSites(c.Request.Context()); err != nil {
		h.sendServiceError(c, err)
		return
	}
	utils.SendNoContentResponse(c)
}

// ChangeAccountAuthorization handles PUT /auth-urls/:origin/accounts/:address
func (h *AuthorizationHandler) ChangeAccountAuthorization(c *gin.Context) {
	address := c.Param("address")
	if err := pkgutils.ValidateAddress(address); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}

	var body models.ConnectAPIRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.SendBadRequestError(c, "Invalid request body", err.Error())
		return
	}

	if err := h.service.ChangeAuthorizationPerAccount(c.Request.Context(), c.Param("origin"), address, body.Connected); err != nil {
		h.sendServiceError(c, err)
		return
	}
	utils.SendNoContentResponse(c)
}

// ChangeAllAuthorization handles PUT /auth-urls/accounts
func (h *AuthorizationHandler) ChangeAllAuthorization(c *gin.Context) {
	var body models.ConnectAPIRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.SendBadRequestError(c, "Invalid request body", err.Error())
		return
	}

	if err := h.service.ChangeAuthorizationAll(c.Request.Context(), body.Connected); err != nil {
		h.sendServiceError(c, err)
		return
	}
	utils.SendNoContentResponse(c)
}

// SwitchEvmNetwork handles PUT /auth-urls/:origin/evm-network
func (h *AuthorizationHandler) SwitchEvmNetwork(c *gin.Context) {
	var body models.SwitchNetworkAPIRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.SendBadRequestError(c, "Invalid request body", err.Error())
		return
	}

	if err := pkgutils.ValidateNetworkKey(body.NetworkKey); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}

	if err := h.service.SwitchEvmNetwork(c.Request.Context(), c.Param("origin"), body.NetworkKey); err != nil {
		h.sendServiceError(c, err)
		return
	}
	utils.SendNoContentResponse(c)
}

func (h *AuthorizationHandler) sendServiceError(c *gin.Context, err error) {
	code, message := handlerutils.ErrorCodeFor(err)

	entry := h.logger.WithError(err).WithFields(logrus.Fields{
		"path":       c.FullPath(),
		"error_code": code,
	})
	if code == models.ErrCodeInternalError {
		entry.Error("Authorization request failed")
	} else {
		entry.Debug("Authorization request refused")
	}

	utils.SendCodedError(c, code, message, err.Error())
}

// streamUpdates relays a broadcast stream to the client as server-sent events
func streamUpdates[T any](c *gin.Context, source broadcast.Subscribable[T], event string) {
	updates, unsubscribe := source.Subscribe(0)
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	c.Stream(func(w io.Writer) bool {
		select {
		case value, ok := <-updates:
			if !ok {
				return false
			}
			c.SSEvent(event, value)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
