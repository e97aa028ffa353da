// Package handlers provides HTTP request handlers.
package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"outletstock/internal/core/apperror"
	"outletstock/internal/core/types"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct {
	now func() time.Time
}

// NewBaseHandler creates a base handler reading the wall clock.
func NewBaseHandler() BaseHandler {
	return BaseHandler{now: time.Now}
}

// Today is the business date in the server's local time zone.
func (h *BaseHandler) Today() types.Date {
	if h.now == nil {
		return types.DateOf(time.Now())
	}
	return types.DateOf(h.now())
}

// BindJSON binds the request body, registering a validation error on failure.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.HandleError(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// BindQuery binds query parameters, registering a validation error on failure.
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		h.HandleError(c, apperror.NewValidation("invalid query parameters").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// HandleError registers err on the context and aborts. The response is
// written by middleware.ErrorHandler.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ParseIntQuery parses an integer query parameter with a default.
func (h *BaseHandler) ParseIntQuery(c *gin.Context, key string, defaultVal int) int {
	val := c.Query(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}
