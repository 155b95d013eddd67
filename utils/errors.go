package utils

import (
	"github.com/gin-gonic/gin"

	"lockchun-chatbot/models"
)

// RespondWithError sends the fixed {"error": message} body the chat widget
// expects for every failure class.
func RespondWithError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, models.ErrorResponse{Error: message})
}
