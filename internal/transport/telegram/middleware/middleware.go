package middleware

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	tele "gopkg.in/telebot.v4"
)

// Logger tags every update with a request id and logs how long it took.
func Logger() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			now := time.Now()

			rqID := uuid.NewString()
			c.Set("rqID", rqID)

			var chatID int64
			if chat := c.Chat(); chat != nil {
				chatID = chat.ID
			}

			slog.Info("start request", slog.String("rqID", rqID), slog.Int64("chatID", chatID))

			err := next(c)

			attrs := []any{
				slog.String("rqID", rqID),
				slog.Int64("chatID", chatID),
				slog.Duration("duration", time.Since(now)),
			}
			if err != nil {
				attrs = append(attrs, slog.String("err", err.Error()))
			}
			slog.Info("request finished", attrs...)

			return err
		}
	}
}
