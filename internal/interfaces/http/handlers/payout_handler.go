package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"settlement-core.backend/internal/domain/entities"
	domainerrors "settlement-core.backend/internal/domain/errors"
	"settlement-core.backend/internal/interfaces/http/response"
)

type PayoutService interface {
	SettleJob(ctx context.Context, input *entities.JobPayoutInput) (*entities.JobPayoutResult, error)
}

// PayoutHandler turns completed jobs into wallet credits.
type PayoutHandler struct {
	service PayoutService
}

func NewPayoutHandler(service PayoutService) *PayoutHandler {
	return &PayoutHandler{service: service}
}

// SettleJob pays out a completed job. Replays for the same job answer 200 with the original payment.
// POST /api/v1/jobs/:jobId/payout
func (h *PayoutHandler) SettleJob(c *gin.Context) {
	var input entities.JobPayoutInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}
	input.JobID = c.Param("jobId")

	result, err := h.service.SettleJob(c.Request.Context(), &input)
	if err != nil {
		response.Error(c, err)
		return
	}

	status := http.StatusCreated
	if result.Existing {
		status = http.StatusOK
	}
	response.Success(c, status, gin.H{"payout": result})
}
