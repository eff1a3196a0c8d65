package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lmoretti/finquery/internal/domain/dto"
	"github.com/lmoretti/finquery/internal/logger"
)

// ErrorHandler converts errors attached to the Gin context into the
// standardized JSON error envelope. Handlers that write their own response
// are left untouched.
var ErrorHandler gin.HandlerFunc = func(c *gin.Context) {
	c.Next()

	if len(c.Errors) == 0 || c.Writer.Written() {
		return
	}

	err := c.Errors.Last().Err
	logger.L().Error().Err(err).Str("path", c.Request.URL.Path).Msg("unhandled request error")
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("Internal server error", err))
}

// AbortWithError writes the standardized error envelope with the given status
// and stops the handler chain.
func AbortWithError(c *gin.Context, status int, message string, err error) {
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(message, err))
}
