package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorBody is the error shape of every user-facing endpoint.
type ErrorBody struct {
	Error string `json:"error"`
}

// Error returns an error response body
func Error(message string) ErrorBody {
	return ErrorBody{Error: message}
}

// ErrorJSON sends an error JSON response
func ErrorJSON(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Error(message))
}

// AbortWithError sends an error JSON response and stops the handler chain
func AbortWithError(c *gin.Context, statusCode int, message string) {
	c.AbortWithStatusJSON(statusCode, Error(message))
}

// Unauthorized sends the uniform 401 body
func Unauthorized(c *gin.Context) {
	AbortWithError(c, http.StatusUnauthorized, "Unauthorized")
}
