package handler

import (
	"strconv"

	"deposit-ledger/internal/adapter/http/dto"
	"deposit-ledger/internal/core/ports"
	"deposit-ledger/pkg/apperror"
	"deposit-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WalletHandler handles wallet-related endpoints.
type WalletHandler struct {
	depositSvc ports.DepositStatusService
	walletTxs  ports.WalletTransactionRepository
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(depositSvc ports.DepositStatusService, walletTxs ports.WalletTransactionRepository) *WalletHandler {
	return &WalletHandler{depositSvc: depositSvc, walletTxs: walletTxs}
}

// Reconcile handles POST /api/v1/wallets/:id/reconcile.
func (h *WalletHandler) Reconcile(c *gin.Context) {
	walletID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet id"))
		return
	}

	var req dto.ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	adminID, err := uuid.Parse(req.AdminID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid admin id"))
		return
	}

	result, err := h.depositSvc.ReconcileWallet(c.Request.Context(), walletID, adminID)
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.ReconcileResponse{
		IsBalanced:      result.IsBalanced,
		ExpectedBalance: result.ExpectedBalance,
		ActualBalance:   result.ActualBalance,
		Discrepancy:     result.Discrepancy,
	}
	if result.Entry != nil {
		id := result.Entry.ID.String()
		resp.EntryID = &id
	}
	response.OK(c, resp)
}

// ListTransactions handles GET /api/v1/wallets/:id/transactions.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	walletID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet id"))
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			response.Error(c, apperror.Validation("limit must be between 1 and 500"))
			return
		}
		limit = n
	}

	entries, err := h.walletTxs.ListByWallet(c.Request.Context(), walletID, limit)
	if err != nil {
		response.Error(c, apperror.ErrPersistence(err))
		return
	}

	response.OK(c, entries)
}
