package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"progress-engine/services"
)

// APIError carries the status and machine code a service error maps to.
type APIError struct {
	Status int
	Code   string
	Err    error
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	return fmt.Sprintf("api error (%d)", e.Status)
}

func (e *APIError) Unwrap() error { return e.Err }

func toAPIError(err error) *APIError {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, services.ErrUnauthenticated):
		return &APIError{Status: fiber.StatusUnauthorized, Code: "unauthenticated", Err: err}
	case errors.Is(err, services.ErrTrackNotFound):
		return &APIError{Status: fiber.StatusNotFound, Code: "track_not_found", Err: err}
	case errors.Is(err, services.ErrNotFound):
		return &APIError{Status: fiber.StatusNotFound, Code: "not_found", Err: err}
	case errors.Is(err, services.ErrValidation):
		return &APIError{Status: fiber.StatusBadRequest, Code: "validation_error", Err: err}
	case errors.Is(err, services.ErrTransactionFailure):
		return &APIError{Status: fiber.StatusServiceUnavailable, Code: "transaction_failure", Err: err}
	default:
		return &APIError{Status: fiber.StatusInternalServerError, Code: "internal_error", Err: err}
	}
}

func writeError(c *fiber.Ctx, err error) error {
	apiErr := toAPIError(err)
	if apiErr.Status == fiber.StatusServiceUnavailable {
		c.Set(fiber.HeaderRetryAfter, "1")
	}
	body := fiber.Map{
		"error": apiErr.Code,
		"cause": apiErr.Error(),
	}
	var vErr *services.ValidationError
	if errors.As(err, &vErr) {
		body["field"] = vErr.Field
	}
	return c.Status(apiErr.Status).JSON(body)
}
