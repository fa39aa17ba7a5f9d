package handler

import (
	"deposit-ledger/internal/adapter/http/dto"
	"deposit-ledger/internal/core/domain"
	"deposit-ledger/internal/core/ports"
	"deposit-ledger/pkg/apperror"
	"deposit-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DepositHandler handles deposit lifecycle endpoints.
type DepositHandler struct {
	depositSvc ports.DepositStatusService
}

// NewDepositHandler creates a new DepositHandler.
func NewDepositHandler(depositSvc ports.DepositStatusService) *DepositHandler {
	return &DepositHandler{depositSvc: depositSvc}
}

// ChangeStatus handles POST /api/v1/deposits/:id/status.
// The response is always the full result envelope: failed operations
// report success=false with warnings rather than an error status,
// mirroring how the engine itself never raises past its boundary.
func (h *DepositHandler) ChangeStatus(c *gin.Context) {
	depositID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid deposit id"))
		return
	}

	var req dto.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	adminID, err := uuid.Parse(req.AdminID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid admin id"))
		return
	}

	result := h.depositSvc.ChangeStatus(c.Request.Context(), depositID,
		domain.DepositStatus(req.NewStatus), ports.ChangeStatusOptions{
			AdminID:        adminID,
			AdminEmail:     req.AdminEmail,
			Reason:         req.Reason,
			Notes:          req.Notes,
			IdempotencyKey: c.GetHeader("X-Idempotency-Key"),
		})

	response.OK(c, result)
}

// GetAuditHistory handles GET /api/v1/deposits/:id/audit.
func (h *DepositHandler) GetAuditHistory(c *gin.Context) {
	depositID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid deposit id"))
		return
	}

	history, err := h.depositSvc.GetAuditHistory(c.Request.Context(), depositID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, history)
}
