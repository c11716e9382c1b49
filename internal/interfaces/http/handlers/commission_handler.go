package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"settlement-core.backend/internal/domain/entities"
	domainerrors "settlement-core.backend/internal/domain/errors"
	"settlement-core.backend/internal/interfaces/http/middleware"
	"settlement-core.backend/internal/interfaces/http/response"
	"settlement-core.backend/pkg/utils"
)

type CommissionService interface {
	Resolve(ctx context.Context, c entities.CommissionContext) (*entities.CommissionResolution, error)
	CreateRule(ctx context.Context, input *entities.CreateCommissionRuleInput) (*entities.CommissionRule, error)
	GetRule(ctx context.Context, id uuid.UUID) (*entities.CommissionRule, error)
	ListRules(ctx context.Context, activeOnly bool, pagination utils.PaginationParams) ([]*entities.CommissionRule, int64, error)
	DeactivateRule(ctx context.Context, id uuid.UUID) (*entities.CommissionRule, error)
}

// CommissionHandler serves commission resolution and rule administration.
type CommissionHandler struct {
	service CommissionService
}

func NewCommissionHandler(service CommissionService) *CommissionHandler {
	return &CommissionHandler{service: service}
}

// Resolve picks the winning rule for a job context.
// POST /api/v1/commission/resolve
func (h *CommissionHandler) Resolve(c *gin.Context) {
	var input entities.CommissionContext
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	resolution, err := h.service.Resolve(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"resolution": resolution})
}

// CreateRule adds a commission rule.
// POST /api/v1/commission/rules
func (h *CommissionHandler) CreateRule(c *gin.Context) {
	var input entities.CreateCommissionRuleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}
	if subject, ok := middleware.GetSubject(c); ok {
		input.CreatedBy = subject
	}

	rule, err := h.service.CreateRule(c.Request.Context(), &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"rule": rule})
}

// ListRules lists rules, newest first.
// GET /api/v1/commission/rules?active=true
func (h *CommissionHandler) ListRules(c *gin.Context) {
	activeOnly := false
	if raw := c.Query("active"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, domainerrors.BadRequest("active must be a boolean"))
			return
		}
		activeOnly = v
	}
	pagination := paginationFromQuery(c)

	rules, total, err := h.service.ListRules(c.Request.Context(), activeOnly, pagination)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, "rules", rules, total, pagination)
}

// GET /api/v1/commission/rules/:id
func (h *CommissionHandler) GetRule(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", "rule ID")
	if !ok {
		return
	}
	rule, err := h.service.GetRule(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"rule": rule})
}

// DeactivateRule soft-disables a rule. Deactivating twice is a no-op.
// POST /api/v1/commission/rules/:id/deactivate
func (h *CommissionHandler) DeactivateRule(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", "rule ID")
	if !ok {
		return
	}
	rule, err := h.service.DeactivateRule(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"rule": rule})
}
