package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	bookingsyncdomain "github.com/smallbiznis/bookingsync/internal/bookingsync/domain"
	scheduledomain "github.com/smallbiznis/bookingsync/internal/schedule/domain"
	"github.com/smallbiznis/bookingsync/internal/stripe"
	subscriptiondomain "github.com/smallbiznis/bookingsync/internal/subscription/domain"
)

// ValidationError describes one rejected request field.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string { return "validation error" }

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
	ErrRateLimited        = errors.New("rate_limited")
)

// ErrorHandlingMiddleware renders the last handler error as the JSON error
// envelope unless a response was already written.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}
		status, payload := mapError(last.Err)
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
	return &ValidationErrors{Errors: []ValidationError{{Field: field, Code: code, Message: message}}}
}

// fieldRule maps a domain validation sentinel onto a request field.
type fieldRule struct {
	err     error
	field   string
	message string
}

var fieldRules = []fieldRule{
	{scheduledomain.ErrInvalidSubscriptionID, "subscription_id", "subscription id is invalid"},
	{bookingsyncdomain.ErrInvalidSubscriptionID, "subscription_id", "subscription id is invalid"},
	{subscriptiondomain.ErrInvalidID, "subscription_id", "subscription id is invalid"},
	{scheduledomain.ErrInvalidDays, "days", "at least one valid weekday is required"},
	{scheduledomain.ErrInvalidTimeWindow, "start_time", "start and end must be HH:MM and end must follow start"},
	{scheduledomain.ErrInvalidLocation, "location", "location is required"},
	{scheduledomain.ErrInvalidUnits, "dogs", "dogs must be at least 1"},
	{scheduledomain.ErrInvalidServiceCode, "service_code", "unknown service code"},
	{bookingsyncdomain.ErrInvalidHorizon, "horizon_days", "horizon_days must be between 0 and 730"},
}

// statusRule maps any of errs onto a response.
type statusRule struct {
	errs    []error
	status  int
	typ     string
	message string
}

var statusRules = []statusRule{
	{
		errs:   []error{stripe.ErrInvalidSignature, stripe.ErrInvalidPayload, ErrInvalidRequest},
		status: http.StatusBadRequest, typ: "invalid_request", message: "invalid request",
	},
	{
		errs:   []error{ErrUnauthorized},
		status: http.StatusUnauthorized, typ: "unauthorized", message: "unauthorized",
	},
	{
		errs:   []error{ErrRateLimited},
		status: http.StatusTooManyRequests, typ: "rate_limited", message: "too many sync requests",
	},
	{
		errs:   []error{ErrConflict, bookingsyncdomain.ErrLockUnavailable},
		status: http.StatusConflict, typ: "conflict", message: "subscription is being synced",
	},
	{
		errs:   []error{ErrNotFound, subscriptiondomain.ErrNotFound},
		status: http.StatusNotFound, typ: "not_found", message: "not found",
	},
	{
		errs:   []error{scheduledomain.ErrMetadataPush, subscriptiondomain.ErrRejected},
		status: http.StatusBadGateway, typ: "upstream_error", message: "subscription source rejected the request",
	},
	{
		errs:   []error{ErrServiceUnavailable, subscriptiondomain.ErrSourceUnavailable},
		status: http.StatusServiceUnavailable, typ: "service_unavailable", message: "service unavailable",
	},
}

var internalError = errorPayload{Type: "internal_error", Message: "internal server error"}

// mapError resolves request validation first, then domain sentinels, then
// sync error categories.
func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, internalError
	}

	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return http.StatusBadRequest, validationPayload(vErr.Errors...)
	}
	if rule, ok := matchFieldRule(err); ok {
		return http.StatusBadRequest, validationPayload(ValidationError{
			Field:   rule.field,
			Code:    rule.err.Error(),
			Message: rule.message,
		})
	}
	for _, rule := range statusRules {
		for _, target := range rule.errs {
			if errors.Is(err, target) {
				return rule.status, errorPayload{Type: rule.typ, Message: rule.message}
			}
		}
	}
	if category, ok := bookingsyncdomain.CategoryOf(err); ok {
		return mapSyncCategory(category)
	}
	return http.StatusInternalServerError, internalError
}

func matchFieldRule(err error) (fieldRule, bool) {
	for _, rule := range fieldRules {
		if errors.Is(err, rule.err) {
			return rule, true
		}
	}
	return fieldRule{}, false
}

func validationPayload(errs ...ValidationError) errorPayload {
	return errorPayload{Type: "validation_error", Message: "validation error", Errors: errs}
}

func mapSyncCategory(category bookingsyncdomain.Category) (int, errorPayload) {
	switch category {
	case bookingsyncdomain.CategoryValidation:
		return http.StatusBadRequest, validationPayload()
	case bookingsyncdomain.CategoryAccountUnresolved:
		return http.StatusUnprocessableEntity, errorPayload{Type: "account_unresolved", Message: "no local account for subscription customer"}
	case bookingsyncdomain.CategoryExternalSource:
		return http.StatusServiceUnavailable, errorPayload{Type: "service_unavailable", Message: "subscription source unavailable"}
	default:
		return http.StatusInternalServerError, internalError
	}
}

// classifyErrorForLog returns the response type and a stable code for logs.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	if rule, ok := matchFieldRule(err); ok {
		return payload.Type, rule.err.Error()
	}
	if category, ok := bookingsyncdomain.CategoryOf(err); ok {
		return payload.Type, string(category)
	}
	return payload.Type, payload.Type
}
