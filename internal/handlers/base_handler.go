package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/lms-registry/internal/events"
	"github.com/SAP-F-2025/lms-registry/internal/services"
	"github.com/SAP-F-2025/lms-registry/internal/utils"
)

type ErrorResponse struct {
	Message string      `json:"message"`
	Kind    string      `json:"kind,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	utils.GetLogger(c, h.logger).Info(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	utils.GetLogger(c, h.logger).Error(msg, append(args, "error", err)...)
}

// requestContext carries the request id into service calls so published
// events can be correlated with the request that caused them.
func (h *BaseHandler) requestContext(c *gin.Context) context.Context {
	ctx := c.Request.Context()
	if rid := c.GetString("request_id"); rid != "" {
		ctx = events.WithRequestID(ctx, rid)
	}
	return ctx
}

func (h *BaseHandler) parseIDParam(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Kind:    string(services.KindInvalidArgument),
			Details: err.Error(),
		})
		return 0, false
	}
	return uint(id), true
}

func (h *BaseHandler) parseIndexParam(c *gin.Context, param string) (int, bool) {
	index, err := strconv.Atoi(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Kind:    string(services.KindInvalidArgument),
			Details: err.Error(),
		})
		return 0, false
	}
	return index, true
}

func (h *BaseHandler) parseIntQuery(c *gin.Context, param string, defaultValue int) int {
	value, err := strconv.Atoi(c.Query(param))
	if err != nil || value < 0 {
		return defaultValue
	}
	return value
}

// handleServiceError maps registry error kinds onto HTTP statuses
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	kind := string(services.KindOf(err))

	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Kind:    kind,
			Details: validationErrors,
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Kind:    kind,
			Details: map[string]interface{}{
				"resource": permissionError.Resource,
				"action":   permissionError.Action,
				"reason":   permissionError.Reason,
			},
		})
		return
	}

	var conflictError *services.ConflictError
	if errors.As(err, &conflictError) {
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Identity already registered",
			Kind:    kind,
			Details: map[string]interface{}{
				"owned_courses": conflictError.OwnedCourses,
				"reason":        conflictError.Reason,
			},
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrCourseNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Course not found", Kind: kind})
	case errors.Is(err, services.ErrExamNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Exam not found", Kind: kind})
	case errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "User not found", Kind: kind})
	case errors.Is(err, services.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid argument", Kind: kind, Details: err.Error()})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusForbidden, ErrorResponse{Message: "Access denied", Kind: kind})
	case errors.Is(err, services.ErrAlreadyRegisteredConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Identity already registered", Kind: kind})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Message: "Request cancelled before it was queued"})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
			Details: err.Error(),
		})
	}
}
