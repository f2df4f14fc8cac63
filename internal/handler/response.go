package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"wagerescrow/internal/engine"
)

type apiResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
		Meta:    meta,
	})
}

func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, apiResponse{
		Code:    status,
		Message: message,
		Meta:    meta,
	})
}

// EngineError maps an engine failure to its HTTP status. Authorization
// failures keep the generic message of the underlying error.
func EngineError(c *gin.Context, err error) {
	kind := engine.Kind(err)
	status := http.StatusInternalServerError
	switch kind {
	case engine.KindPolicy, engine.KindInvalid:
		status = http.StatusBadRequest
	case engine.KindState, engine.KindFunds:
		status = http.StatusConflict
	case engine.KindAuthorization:
		status = http.StatusForbidden
	case engine.KindNotFound:
		status = http.StatusNotFound
	}
	msg := err.Error()
	if kind == engine.KindInternal {
		msg = "internal error"
		_ = c.Error(err)
	}
	Error(c, status, msg, map[string]any{"kind": string(kind)})
}

var errBadRequest = errors.New("bad request")
