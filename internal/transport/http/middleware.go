package http

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"time"

	"github.com/KotFed0t/finplan/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	headerRequestID = "X-Request-ID"
	headerUserID    = "X-User-ID"
	headerAdminKey  = "X-Admin-Key"

	localRequestID = "rqID"
)

func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rqID := c.Get(headerRequestID)
		if rqID == "" {
			rqID = uuid.NewString()
		}

		c.Locals(localRequestID, rqID)
		c.Set(headerRequestID, rqID)

		return c.Next()
	}
}

func Logger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = statusOf(err)
		}

		slog.Info(
			"request finished",
			slog.String("rqID", requestID(c)),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
		)

		return err
	}
}

// AdminOnly lets through requests carrying the configured admin key.
func AdminOnly(adminKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get(headerAdminKey)
		if adminKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(adminKey)) != 1 {
			return fiber.NewError(fiber.StatusUnauthorized, "admin key required")
		}
		return c.Next()
	}
}

func requestID(c *fiber.Ctx) string {
	rqID, _ := c.Locals(localRequestID).(string)
	return rqID
}

func requestCtx(c *fiber.Ctx) context.Context {
	return utils.WithRequestID(c.UserContext(), requestID(c))
}

// currentUser reads the caller identity set by the upstream gateway.
func currentUser(c *fiber.Ctx) (uuid.UUID, error) {
	raw := c.Get(headerUserID)
	if raw == "" {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "user id required")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "invalid user id")
	}
	return userID, nil
}
