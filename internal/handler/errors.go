package handler

import (
	"errors"
	"io"
	"log"
	"net/http"

	"procurement/internal/middleware"
	"procurement/internal/service"
	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
)

// respondError maps service sentinels to status codes. Unknown errors are
// logged with the request id and answered with a generic 500.
func respondError(c *gin.Context, err error) {
	code, class := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, service.ErrValidation):
		code, class = http.StatusBadRequest, "validation_error"
	case errors.Is(err, service.ErrInvalidTransition):
		code, class = http.StatusBadRequest, "invalid_transition"
	case errors.Is(err, service.ErrAlreadyDecided):
		code, class = http.StatusBadRequest, "already_decided"
	case errors.Is(err, service.ErrUnauthenticated):
		code, class = http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, service.ErrPermissionDenied):
		code, class = http.StatusForbidden, "permission_denied"
	case errors.Is(err, service.ErrNotFound):
		code, class = http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrConflict):
		code, class = http.StatusConflict, "conflict"
	}

	if code == http.StatusInternalServerError {
		log.Printf("request %s %s %s failed: %v", middleware.RequestID(c), c.Request.Method, c.FullPath(), err)
		_ = c.Error(err)
		c.JSON(code, response.Error(code, class, "An internal error occurred"))
		return
	}
	c.JSON(code, response.Error(code, class, err.Error()))
}

// bindJSON decodes the body into req, answering 400 on failure
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "validation_error", "Invalid request payload: "+err.Error()))
		return false
	}
	return true
}

// bindOptionalJSON is bindJSON for endpoints whose body may be empty
func bindOptionalJSON(c *gin.Context, req interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "validation_error", "Invalid request payload: "+err.Error()))
		return false
	}
	return true
}

// actorOf returns the principal set by middleware.RequireAuth
func actorOf(c *gin.Context) service.Actor {
	return middleware.Actor(c)
}
