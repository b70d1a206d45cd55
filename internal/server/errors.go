package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	accountdomain "github.com/smallbiznis/mesa/internal/account/domain"
	cfdomain "github.com/smallbiznis/mesa/internal/customfield/domain"
	itemdomain "github.com/smallbiznis/mesa/internal/item/domain"
	orderdomain "github.com/smallbiznis/mesa/internal/order/domain"
	roomdomain "github.com/smallbiznis/mesa/internal/room/domain"
	tabledomain "github.com/smallbiznis/mesa/internal/table/domain"
	"github.com/smallbiznis/mesa/pkg/filter"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

// ErrorHandlingMiddleware converts errors recorded on the context into one
// JSON error response after the handler chain runs.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

var notFoundErrors = []error{
	accountdomain.ErrNotFound,
	cfdomain.ErrNotFound,
	itemdomain.ErrNotFound,
	roomdomain.ErrNotFound,
	tabledomain.ErrNotFound,
	orderdomain.ErrNotFound,
	gorm.ErrRecordNotFound,
}

var conflictErrors = []error{
	accountdomain.ErrConflict,
	cfdomain.ErrConflict,
	itemdomain.ErrConflict,
	roomdomain.ErrConflict,
	tabledomain.ErrConflict,
}

var badRequestErrors = []error{
	accountdomain.ErrInvalidID,
	accountdomain.ErrInvalidName,
	cfdomain.ErrInvalidID,
	cfdomain.ErrInvalidLabel,
	cfdomain.ErrInvalidFieldType,
	cfdomain.ErrInvalidTargetModel,
	itemdomain.ErrInvalidID,
	itemdomain.ErrInvalidName,
	itemdomain.ErrInvalidItemType,
	itemdomain.ErrInvalidTag,
	roomdomain.ErrInvalidID,
	roomdomain.ErrInvalidName,
	tabledomain.ErrInvalidID,
	tabledomain.ErrInvalidName,
	tabledomain.ErrInvalidRoom,
	tabledomain.ErrInvalidGeometry,
	orderdomain.ErrInvalidID,
	orderdomain.ErrInvalidTable,
	orderdomain.ErrInvalidItem,
	orderdomain.ErrInvalidQuantity,
	orderdomain.ErrInvalidStatus,
	orderdomain.ErrInvalidTransition,
	orderdomain.ErrOrderLocked,
}

var unauthorizedErrors = []error{
	cfdomain.ErrInvalidAccount,
	itemdomain.ErrInvalidAccount,
	roomdomain.ErrInvalidAccount,
	tabledomain.ErrInvalidAccount,
	orderdomain.ErrInvalidAccount,
}

func matchesAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func mapError(err error) (int, errorPayload) {
	var vErrs *ValidationErrors
	if errors.As(err, &vErrs) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErrs.Errors,
		}
	}

	var optErr *cfdomain.InvalidOptionError
	if errors.As(err, &optErr) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{Field: optErr.Field, Code: "invalid_option", Message: optErr.Error()},
			},
		}
	}

	var keyErr *filter.UnknownKeyError
	if errors.As(err, &keyErr) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{Field: keyErr.Key, Code: "unknown_filter_key", Message: keyErr.Error()},
			},
		}
	}

	switch {
	case matchesAny(err, unauthorizedErrors):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "account context required",
		}
	case matchesAny(err, notFoundErrors):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "resource not found",
		}
	case matchesAny(err, conflictErrors):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case matchesAny(err, badRequestErrors):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{Field: "request", Code: err.Error(), Message: err.Error()},
			},
		}
	}

	return http.StatusInternalServerError, errorPayload{
		Type:    "internal_error",
		Message: "internal server error",
	}
}
