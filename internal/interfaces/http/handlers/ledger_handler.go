package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"settlement-core.backend/internal/domain/entities"
	domainerrors "settlement-core.backend/internal/domain/errors"
	"settlement-core.backend/internal/interfaces/http/response"
	"settlement-core.backend/pkg/utils"
)

type LedgerService interface {
	PostCredit(ctx context.Context, walletID uuid.UUID, input *entities.PostCreditInput) (*entities.CreditResult, error)
	Debit(ctx context.Context, walletID uuid.UUID, input *entities.DebitInput) (*entities.DebitResult, error)
	Balance(ctx context.Context, walletID uuid.UUID) (*entities.Balance, error)
	Entries(ctx context.Context, walletID uuid.UUID, pagination utils.PaginationParams) ([]*entities.LedgerEntry, int64, error)
	Verify(ctx context.Context, walletID uuid.UUID) (*entities.LedgerVerification, error)
	ReleaseHold(ctx context.Context, jobPaymentID uuid.UUID, reason entities.ReleaseReason) (*entities.HoldRelease, error)
	RequestWithdrawal(ctx context.Context, walletID uuid.UUID, input *entities.WithdrawalInput) (*entities.WithdrawalRequest, error)
	WithdrawalCallback(ctx context.Context, id uuid.UUID, input *entities.WithdrawalCallbackInput) (*entities.WithdrawalRequest, error)
	ListWithdrawals(ctx context.Context, walletID uuid.UUID) ([]*entities.WithdrawalRequest, error)
}

// LedgerHandler exposes wallet postings, balances and withdrawals.
type LedgerHandler struct {
	service LedgerService
}

func NewLedgerHandler(service LedgerService) *LedgerHandler {
	return &LedgerHandler{service: service}
}

type releaseHoldRequest struct {
	Reason entities.ReleaseReason `json:"reason" binding:"required"`
}

// Credit posts a credit, optionally splitting part of it into a warranty hold.
// POST /api/v1/ledger/:walletId/credit
func (h *LedgerHandler) Credit(c *gin.Context) {
	walletID, ok := parseUUIDParam(c, "walletId", "wallet ID")
	if !ok {
		return
	}
	var input entities.PostCreditInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	result, err := h.service.PostCredit(c.Request.Context(), walletID, &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, result)
}

// POST /api/v1/ledger/:walletId/debit
func (h *LedgerHandler) Debit(c *gin.Context) {
	walletID, ok := parseUUIDParam(c, "walletId", "wallet ID")
	if !ok {
		return
	}
	var input entities.DebitInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	result, err := h.service.Debit(c.Request.Context(), walletID, &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, result)
}

// GET /api/v1/ledger/:walletId/balance
func (h *LedgerHandler) Balance(c *gin.Context) {
	walletID, ok := parseUUIDParam(c, "walletId", "wallet ID")
	if !ok {
		return
	}
	balance, err := h.service.Balance(c.Request.Context(), walletID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"balance": balance})
}

// GET /api/v1/ledger/:walletId/entries
func (h *LedgerHandler) Entries(c *gin.Context) {
	walletID, ok := parseUUIDParam(c, "walletId", "wallet ID")
	if !ok {
		return
	}
	pagination := paginationFromQuery(c)

	entries, total, err := h.service.Entries(c.Request.Context(), walletID, pagination)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, "entries", entries, total, pagination)
}

// Verify replays a wallet's entries and compares them with the cached balance.
// GET /api/v1/ledger/:walletId/verify
func (h *LedgerHandler) Verify(c *gin.Context) {
	walletID, ok := parseUUIDParam(c, "walletId", "wallet ID")
	if !ok {
		return
	}
	report, err := h.service.Verify(c.Request.Context(), walletID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"verification": report})
}

// ReleaseHold moves a job's held funds to available.
// POST /api/v1/ledger/holds/:jobPaymentId/release
func (h *LedgerHandler) ReleaseHold(c *gin.Context) {
	jobPaymentID, ok := parseUUIDParam(c, "jobPaymentId", "job payment ID")
	if !ok {
		return
	}
	var req releaseHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	release, err := h.service.ReleaseHold(c.Request.Context(), jobPaymentID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"release": release})
}

// RequestWithdrawal debits available funds and queues a bank payout.
// POST /api/v1/ledger/:walletId/withdrawals
func (h *LedgerHandler) RequestWithdrawal(c *gin.Context) {
	walletID, ok := parseUUIDParam(c, "walletId", "wallet ID")
	if !ok {
		return
	}
	var input entities.WithdrawalInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	withdrawal, err := h.service.RequestWithdrawal(c.Request.Context(), walletID, &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"withdrawal": withdrawal})
}

// GET /api/v1/ledger/:walletId/withdrawals
func (h *LedgerHandler) ListWithdrawals(c *gin.Context) {
	walletID, ok := parseUUIDParam(c, "walletId", "wallet ID")
	if !ok {
		return
	}
	items, err := h.service.ListWithdrawals(c.Request.Context(), walletID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"withdrawals": items})
}

// WithdrawalCallback records the bank's verdict. FAILED refunds the wallet.
// POST /api/v1/withdrawals/:id/callback
func (h *LedgerHandler) WithdrawalCallback(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", "withdrawal ID")
	if !ok {
		return
	}
	var input entities.WithdrawalCallbackInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	withdrawal, err := h.service.WithdrawalCallback(c.Request.Context(), id, &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"withdrawal": withdrawal})
}
