package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	clientdomain "github.com/smallbiznis/quotedesk/internal/client/domain"
	companydomain "github.com/smallbiznis/quotedesk/internal/company/domain"
	draftdomain "github.com/smallbiznis/quotedesk/internal/draft/domain"
	"github.com/smallbiznis/quotedesk/internal/numbering"
	quotedomain "github.com/smallbiznis/quotedesk/internal/quote/domain"
	"github.com/smallbiznis/quotedesk/internal/realtime"
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

var (
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

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

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var dup *numbering.DuplicateError
	switch {
	case errors.As(err, &dup):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: dup.Error(),
			Errors: []ValidationError{{
				Field:   "number",
				Code:    numbering.ErrDuplicate.Error(),
				Message: dup.Error(),
			}},
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, numbering.ErrDuplicate):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(err, code),
				},
			},
		}
	}

	switch {
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, realtime.ErrHubUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds error_type/error_code into the request log.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

var validationErrors = []error{
	ErrInvalidRequest,
	numbering.ErrInvalidNumber,
	numbering.ErrInvalidYear,
	quotedomain.ErrInvalidID,
	quotedomain.ErrInvalidUnit,
	quotedomain.ErrInvalidLine,
	quotedomain.ErrInvalidDiscount,
	quotedomain.ErrInvalidCursor,
	draftdomain.ErrInvalidID,
	draftdomain.ErrInvalidOperation,
	draftdomain.ErrInvalidAge,
	clientdomain.ErrInvalidName,
	clientdomain.ErrInvalidEmail,
	clientdomain.ErrInvalidID,
	companydomain.ErrInvalidSettings,
	realtime.ErrInvalidTopic,
}

func isValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, quotedomain.ErrNotFound),
		errors.Is(err, draftdomain.ErrNotFound),
		errors.Is(err, draftdomain.ErrSessionNotFound),
		errors.Is(err, clientdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return err.Error()
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case numbering.ErrInvalidNumber.Error():
		return "number"
	case numbering.ErrInvalidYear.Error():
		return "year"
	case quotedomain.ErrInvalidCursor.Error():
		return "page_token"
	case companydomain.ErrInvalidSettings.Error():
		return "settings"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

// validationErrorMessage keeps detail wrapped around a sentinel, e.g. the failing
// settings fields.
func validationErrorMessage(err error, code string) string {
	if msg := err.Error(); msg != code {
		return msg
	}
	switch code {
	case "invalid_request":
		return "invalid request"
	default:
		return "invalid value"
	}
}
