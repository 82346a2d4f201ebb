package router

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/auth"
	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/publishing/model"
	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/publishing/service"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, model.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, model.ErrConcurrentModification):
		return http.StatusConflict, "concurrent_modification"
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, service.ErrExportDisabled):
		return http.StatusServiceUnavailable, "export_disabled"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeError(c *gin.Context, err error) {
	status, kind := statusFor(err)
	resp := errorResponse{Error: kind, Message: err.Error()}

	var verr *model.ValidationError
	if errors.As(err, &verr) {
		resp.Field = verr.Field
	}

	if status == http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"error", err,
		)
		resp.Message = "internal server error"
	} else {
		slog.WarnContext(c.Request.Context(), "request rejected",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"error", err,
		)
	}
	c.AbortWithStatusJSON(status, resp)
}

// bindJSON decodes the request body into dst, reporting failures as validation errors.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, model.NewValidationError("", "invalid request body: "+err.Error()))
		return false
	}
	return true
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		writeError(c, model.NewValidationError(name, "must be a valid UUID"))
		return uuid.Nil, false
	}
	return id, true
}

func queryUUID(c *gin.Context, name string) (*uuid.UUID, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, model.NewValidationError(name, "must be a valid UUID")
	}
	return &id, nil
}

func queryInt(c *gin.Context, name string) (*int, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, model.NewValidationError(name, fmt.Sprintf("invalid '%s' query parameter, must be an integer", name))
	}
	return &v, nil
}

// pagination reads the offset and limit query parameters.
func pagination(c *gin.Context) (offset, limit *int, err error) {
	if offset, err = queryInt(c, "offset"); err != nil {
		return nil, nil, err
	}
	if limit, err = queryInt(c, "limit"); err != nil {
		return nil, nil, err
	}
	return offset, limit, nil
}
