package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"settlement-core.backend/internal/domain/entities"
	domainerrors "settlement-core.backend/internal/domain/errors"
	"settlement-core.backend/internal/interfaces/http/response"
	"settlement-core.backend/pkg/utils"
)

type SettlementService interface {
	Create(ctx context.Context, input *entities.CreateSettlementInput) (*entities.Settlement, bool, error)
	Get(ctx context.Context, id uuid.UUID) (*entities.Settlement, error)
	List(ctx context.Context, filter entities.SettlementFilter, pagination utils.PaginationParams) ([]*entities.Settlement, int64, error)
	Approve(ctx context.Context, id uuid.UUID) (*entities.Settlement, error)
	Hold(ctx context.Context, id uuid.UUID, reason string) (*entities.Settlement, error)
	Release(ctx context.Context, id uuid.UUID) (*entities.Settlement, error)
	MarkPaid(ctx context.Context, id uuid.UUID, paymentReference string) (*entities.Settlement, error)
}

// SettlementHandler serves seller settlement batches and their lifecycle.
type SettlementHandler struct {
	service SettlementService
}

func NewSettlementHandler(service SettlementService) *SettlementHandler {
	return &SettlementHandler{service: service}
}

type holdSettlementRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type markPaidRequest struct {
	PaymentReference string `json:"paymentReference" binding:"required"`
}

// Create builds the batch for a seller and period. An existing batch for the
// same period is returned with 200 instead of 201.
// POST /api/v1/settlements
func (h *SettlementHandler) Create(c *gin.Context) {
	var input entities.CreateSettlementInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	settlement, created, err := h.service.Create(c.Request.Context(), &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	response.Success(c, status, gin.H{"settlement": settlement, "created": created})
}

// GET /api/v1/settlements/:id
func (h *SettlementHandler) Get(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", "settlement ID")
	if !ok {
		return
	}
	settlement, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"settlement": settlement})
}

// List filters by sellerId and status.
// GET /api/v1/settlements?sellerId=S1&status=PENDING
func (h *SettlementHandler) List(c *gin.Context) {
	filter := entities.SettlementFilter{
		SellerID: c.Query("sellerId"),
		Status:   entities.SettlementStatus(strings.ToUpper(c.Query("status"))),
	}
	pagination := paginationFromQuery(c)

	items, total, err := h.service.List(c.Request.Context(), filter, pagination)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, "settlements", items, total, pagination)
}

// POST /api/v1/settlements/:id/approve
func (h *SettlementHandler) Approve(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", "settlement ID")
	if !ok {
		return
	}
	h.respond(c, func(ctx context.Context) (*entities.Settlement, error) {
		return h.service.Approve(ctx, id)
	})
}

// POST /api/v1/settlements/:id/hold
func (h *SettlementHandler) Hold(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", "settlement ID")
	if !ok {
		return
	}
	var req holdSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}
	h.respond(c, func(ctx context.Context) (*entities.Settlement, error) {
		return h.service.Hold(ctx, id, req.Reason)
	})
}

// POST /api/v1/settlements/:id/release
func (h *SettlementHandler) Release(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", "settlement ID")
	if !ok {
		return
	}
	h.respond(c, func(ctx context.Context) (*entities.Settlement, error) {
		return h.service.Release(ctx, id)
	})
}

// POST /api/v1/settlements/:id/mark-paid
func (h *SettlementHandler) MarkPaid(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", "settlement ID")
	if !ok {
		return
	}
	var req markPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}
	h.respond(c, func(ctx context.Context) (*entities.Settlement, error) {
		return h.service.MarkPaid(ctx, id, req.PaymentReference)
	})
}

func (h *SettlementHandler) respond(c *gin.Context, action func(context.Context) (*entities.Settlement, error)) {
	settlement, err := action(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"settlement": settlement})
}
