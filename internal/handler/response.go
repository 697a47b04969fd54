package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/mappasalud/citas-api/internal/validator"
	"github.com/mappasalud/citas-api/pkg/apperror"
)

// OK writes a success payload. Extra keys are merged alongside the
// success flag.
func OK(c *gin.Context, payload gin.H) {
	body := gin.H{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// Error resolves the HTTP status and caller-safe message from the error
// taxonomy. Internal detail is logged, never returned.
func Error(c *gin.Context, err error) {
	status := apperror.StatusCode(err)
	if status >= http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("path", c.Request.URL.Path).
			Str("method", c.Request.Method).
			Msg("request failed")
	}
	c.JSON(status, gin.H{"success": false, "message": apperror.Message(err)})
}

// BindError translates a binding failure into a 400 response.
func BindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": validator.Message(err)})
}

// Fail writes an explicit failure with the given status.
func Fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

// InvalidAction is the fallback for an unknown action parameter.
func InvalidAction(c *gin.Context) {
	Fail(c, http.StatusBadRequest, "Acción no válida")
}
