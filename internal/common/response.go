package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Fail writes the error envelope used by every endpoint: {"code": n, "error": msg}.
func Fail(c *gin.Context, httpStatus int, code int, msg string) {
	c.AbortWithStatusJSON(httpStatus, gin.H{
		"code":  code,
		"error": msg,
	})
}

// Error maps err through the error taxonomy and writes the matching envelope.
func Error(c *gin.Context, err error) {
	status := StatusFor(err)
	Fail(c, status, codeFor(status), MessageFor(err))
}

func codeFor(status int) int {
	switch status {
	case http.StatusBadRequest:
		return 40001
	case http.StatusNotFound:
		return 40401
	default:
		return 50001
	}
}
