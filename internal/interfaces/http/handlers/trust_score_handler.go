package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"settlement-core.backend/internal/domain/entities"
	"settlement-core.backend/internal/interfaces/http/response"
)

type TrustScoreService interface {
	Score(ctx context.Context, role entities.PartyType, partyID string) (*entities.TrustScore, error)
}

type TrustScoreHandler struct {
	service TrustScoreService
}

func NewTrustScoreHandler(service TrustScoreService) *TrustScoreHandler {
	return &TrustScoreHandler{service: service}
}

// GetScore returns a party's trust score. Lookup or computation failures still
// answer 200 with the baseline score and fallback set.
// GET /api/v1/trust-score/:partyId?role=TECHNICIAN
func (h *TrustScoreHandler) GetScore(c *gin.Context) {
	role := entities.PartyType(strings.ToUpper(c.DefaultQuery("role", string(entities.PartyTechnician))))

	score, err := h.service.Score(c.Request.Context(), role, c.Param("partyId"))
	if score == nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"trustScore": score})
}
