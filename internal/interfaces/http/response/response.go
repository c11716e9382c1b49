package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	domainerrors "settlement-core.backend/internal/domain/errors"
	"settlement-core.backend/pkg/logger"
	"settlement-core.backend/pkg/utils"
)

// Success sends a success response
func Success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// Paginated sends a list with pagination metadata
func Paginated(c *gin.Context, key string, items interface{}, total int64, pagination utils.PaginationParams) {
	c.JSON(http.StatusOK, gin.H{
		key:          items,
		"pagination": utils.CalculateMeta(total, pagination.Page, pagination.Limit),
	})
}

// Error sends an error response. Domain errors are mapped to their HTTP status and code.
func Error(c *gin.Context, err error) {
	appErr := domainerrors.FromDomain(err)
	if appErr == nil {
		appErr = domainerrors.InternalServerError("unknown error")
	}
	if appErr.Status >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), "Request failed", zap.Error(err))
	}

	c.JSON(appErr.Status, gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
		"error":   appErr.Message, // Backward compatibility
	})
}
