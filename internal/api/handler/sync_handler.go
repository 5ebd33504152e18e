// Package handler contains the gin handlers for the sync API.
package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/qonto-ledger-sync/internal/api/middleware"
	"github.com/qonto-ledger-sync/internal/api/service"
	"github.com/qonto-ledger-sync/internal/domain/mapping"
	"github.com/qonto-ledger-sync/internal/qonto"
)

// SyncHandler serves the manual trigger and status endpoints
type SyncHandler struct {
	logger  *slog.Logger
	trigger service.TriggerService
	status  service.StatusService
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(logger *slog.Logger, trigger service.TriggerService, status service.StatusService) *SyncHandler {
	return &SyncHandler{
		logger:  logger,
		trigger: trigger,
		status:  status,
	}
}

// TriggerFullSync handles POST /api/v1/sync
func (h *SyncHandler) TriggerFullSync(c *gin.Context) {
	trigger, err := h.trigger.TriggerFullSync(c.Request.Context(), middleware.GetCorrelationID(c))
	if err != nil {
		if errors.Is(err, service.ErrSyncInProgress) {
			RespondConflict(c, "A sync run is already in progress")
			return
		}
		h.logger.Error("Failed to trigger sync", "error", err)
		RespondInternalError(c)
		return
	}

	RespondAccepted(c, newTriggerResponse(trigger))
}

// TriggerAccountSync handles POST /api/v1/sync/accounts/:id
func (h *SyncHandler) TriggerAccountSync(c *gin.Context) {
	externalAccountID := c.Param("id")
	if externalAccountID == "" {
		RespondBadRequest(c, "Account id is required")
		return
	}

	trigger, err := h.trigger.TriggerAccountSync(c.Request.Context(), externalAccountID, middleware.GetCorrelationID(c))
	if err != nil {
		var notFound mapping.ErrMappingNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, notFound.Error())
			return
		}
		h.logger.Error("Failed to trigger account sync",
			"external_account_id", externalAccountID,
			"error", err)
		RespondInternalError(c)
		return
	}

	RespondAccepted(c, newTriggerResponse(trigger))
}

// Status handles GET /api/v1/sync/status
func (h *SyncHandler) Status(c *gin.Context) {
	status, err := h.status.Status(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to build sync status", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, status)
}

// Mappings handles GET /api/v1/sync/mappings
func (h *SyncHandler) Mappings(c *gin.Context) {
	mappings, err := h.status.Mappings(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list mappings", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mappings)
}

// TestConnection handles POST /api/v1/connection/test
func (h *SyncHandler) TestConnection(c *gin.Context) {
	state, err := h.status.TestConnection(c.Request.Context())
	if err != nil {
		var authErr *qonto.AuthError
		if errors.As(err, &authErr) {
			RespondUnauthorized(c, "Qonto rejected the configured credentials")
			return
		}
		h.logger.Error("Connection test failed", "error", err)
		RespondBadGateway(c, "Could not reach the Qonto API")
		return
	}

	RespondOK(c, &ConnectionResponse{
		Connected:        state.Connected,
		OrganizationID:   state.OrganizationID,
		OrganizationName: state.OrganizationName,
	})
}

// BankAccounts handles GET /api/v1/accounts
func (h *SyncHandler) BankAccounts(c *gin.Context) {
	accounts, err := h.status.BankAccounts(c.Request.Context())
	if err != nil {
		var authErr *qonto.AuthError
		if errors.As(err, &authErr) {
			RespondUnauthorized(c, "Qonto rejected the configured credentials")
			return
		}
		h.logger.Error("Failed to list bank accounts", "error", err)
		RespondBadGateway(c, "Could not reach the Qonto API")
		return
	}

	RespondOK(c, accounts)
}
