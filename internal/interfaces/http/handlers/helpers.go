package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	domainerrors "settlement-core.backend/internal/domain/errors"
	"settlement-core.backend/internal/interfaces/http/response"
	"settlement-core.backend/pkg/utils"
)

// parseUUIDParam reads a path parameter as a UUID and writes a 400 when it is malformed.
func parseUUIDParam(c *gin.Context, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("Invalid "+label))
		return uuid.Nil, false
	}
	return id, true
}

func paginationFromQuery(c *gin.Context) utils.PaginationParams {
	return utils.ParsePagination(c.Query("page"), c.Query("limit"))
}
