package logger

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/Par123456/selfcursor/internal/text"
)

// Middleware logs every Bot API update before and after it is handled.
// Message text is logged as a short preview only.
func Middleware(log *slog.Logger) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			startTime := time.Now()

			logEntry := log.With("update_id", update.ID)

			var updateType string
			switch {
			case update.Message != nil:
				updateType = "message"
				logEntry = withMessage(logEntry, update.Message)
			case update.BusinessMessage != nil:
				updateType = "business_message"
				logEntry = withMessage(logEntry, update.BusinessMessage).
					With("business_connection_id", update.BusinessMessage.BusinessConnectionID)
			case update.EditedBusinessMessage != nil:
				updateType = "edited_business_message"
				logEntry = withMessage(logEntry, update.EditedBusinessMessage)
			case update.BusinessConnection != nil:
				updateType = "business_connection"
				logEntry = logEntry.With(
					"business_connection_id", update.BusinessConnection.ID,
					"user_id", update.BusinessConnection.User.ID,
					"enabled", update.BusinessConnection.IsEnabled,
				)
			default:
				updateType = "other"
			}
			logEntry = logEntry.With("update_type", updateType)

			logEntry.DebugContext(ctx, "Processing update")

			next(ctx, b, update)

			logEntry.DebugContext(ctx, "Finished processing update", "duration", time.Since(startTime))
		}
	}
}

func withMessage(log *slog.Logger, msg *models.Message) *slog.Logger {
	var userID int64
	if msg.From != nil {
		userID = msg.From.ID
	}
	return log.With(
		"message_id", msg.ID,
		"chat_id", msg.Chat.ID,
		"user_id", userID,
		"text_preview", text.Truncate(msg.Text, 50),
	)
}
