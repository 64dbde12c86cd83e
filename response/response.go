package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Envelope is the body of every error response.
type Envelope struct {
	Status  string `json:"status"`
	Code    Code   `json:"code,omitempty"`
	Message string `json:"message"`
}

// OK writes {status:"ok"} merged with fields.
func OK(c *gin.Context, fields gin.H) {
	body := gin.H{"status": StatusOK}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// Fail writes the envelope for code with its default message.
func Fail(c *gin.Context, code Code) {
	FailWithMessage(c, code, code.Message())
}

// FailWithMessage writes the envelope for code with a custom message. The
// message must never carry internal error text.
func FailWithMessage(c *gin.Context, code Code, message string) {
	c.AbortWithStatusJSON(code.Status(), Envelope{
		Status:  StatusError,
		Code:    code,
		Message: message,
	})
}
