package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hardik-0129/backend/internal/ledger"
	"github.com/hardik-0129/backend/internal/logger"
)

type ErrorResponse struct {
	Error   string      `json:"error" example:"something went wrong"`
	Details interface{} `json:"details,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message" example:"ok"`
}

type HealthResponse struct {
	Status string            `json:"status" example:"ok"`
	Checks map[string]string `json:"checks,omitempty"`
}

// StatusFor maps a service error to an HTTP status.
func StatusFor(err error) int {
	if errors.Is(err, ledger.ErrInvalidSignature) {
		return http.StatusBadRequest
	}
	switch ledger.ClassOf(err) {
	case ledger.ClassValidation, ledger.ClassFunds:
		return http.StatusBadRequest
	case ledger.ClassConflict:
		return http.StatusConflict
	case ledger.ClassNotFound:
		return http.StatusNotFound
	case ledger.ClassExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Fail writes err as a JSON error body. Internal errors are logged and masked.
func Fail(c *gin.Context, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.WithError(err).Error("request failed", "method", c.Request.Method, "path", c.FullPath())
		c.JSON(status, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Details: ledger.Details(err)})
}

func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

// Page reads limit and offset query parameters. limit is clamped to [1, 200].
func Page(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// ParamID parses a positive int64 path parameter.
func ParamID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		BadRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}
