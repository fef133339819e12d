package utils

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// ErrorResponse is the JSON body of every API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Code    int    `json:"code"`
}

// SendErrorResponse sends a standardized error response
func SendErrorResponse(c *fiber.Ctx, httpCode int, message string, details string) error {
	return c.Status(httpCode).JSON(ErrorResponse{
		Error:   message,
		Details: details,
		Code:    httpCode,
	})
}

// SendNotFoundError sends a 404 naming what was missing, e.g. "Movie not found"
func SendNotFoundError(c *fiber.Ctx, details string) error {
	return SendErrorResponse(c, http.StatusNotFound, "Resource not found", details)
}

// SendInternalServerError sends a 500 without leaking the underlying error
func SendInternalServerError(c *fiber.Ctx, message string) error {
	return SendErrorResponse(c, http.StatusInternalServerError, "Internal server error", message)
}

// FiberErrorHandler renders errors that escape handlers, including fiber's own
// 404/405 for unknown routes, in the ErrorResponse shape.
func FiberErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	switch code {
	case fiber.StatusNotFound:
		return SendNotFoundError(c, "Route not found")
	case fiber.StatusInternalServerError:
		return SendInternalServerError(c, "An unexpected error occurred")
	default:
		return SendErrorResponse(c, code, http.StatusText(code), err.Error())
	}
}
