package http

import (
	"errors"
	"log/slog"

	"github.com/KotFed0t/finplan/internal/service"
	"github.com/gofiber/fiber/v2"
)

// Response is the envelope of every API reply.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func ok(c *fiber.Ctx, data any) error {
	return c.JSON(Response{Success: true, Data: data})
}

func created(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(Response{Success: true, Data: data})
}

func done(c *fiber.Ctx, message string) error {
	return c.JSON(Response{Success: true, Message: message})
}

func statusOf(err error) int {
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	case errors.Is(err, service.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, service.ErrCouponInvalid), errors.Is(err, service.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrInvalidTransition), errors.Is(err, service.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler turns handler errors into the failure envelope. Internal
// errors are logged and hidden from the caller.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status := statusOf(err)
	message := err.Error()
	if status == fiber.StatusInternalServerError {
		slog.Error(
			"request failed",
			slog.String("rqID", requestID(c)),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("err", err.Error()),
		)
		message = "internal error"
	}
	return c.Status(status).JSON(Response{Success: false, Message: message})
}
