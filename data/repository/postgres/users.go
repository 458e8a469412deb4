package postgres

import (
	"context"

	"github.com/KotFed0t/finplan/internal/converter/dbConverter"
	"github.com/KotFed0t/finplan/internal/model"
	"github.com/KotFed0t/finplan/internal/model/dbModel"
	"github.com/google/uuid"
)

// LinkChat attaches a Telegram chat to the user, creating the user row on first use.
func (p *Postgres) LinkChat(ctx context.Context, userID uuid.UUID, chatID int64) (err error) {
	op := "Postgres.LinkChat"
	query := `
		INSERT INTO users (id, chat_id) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET chat_id = EXCLUDED.chat_id
		`
	done := logQuery(ctx, op, query, map[string]any{"userID": userID, "chatID": chatID})
	defer func() { done(err) }()

	_, err = p.txOrDb(ctx).ExecContext(ctx, query, userID, chatID)
	return mapErr(err)
}

func (p *Postgres) GetUserByChatID(ctx context.Context, chatID int64) (user model.User, err error) {
	op := "Postgres.GetUserByChatID"
	query := `SELECT id, chat_id, created_at FROM users WHERE chat_id = $1`
	done := logQuery(ctx, op, query, map[string]any{"chatID": chatID})
	defer func() { done(err) }()

	var row dbModel.User
	if err = p.txOrDb(ctx).GetContext(ctx, &row, query, chatID); err != nil {
		return model.User{}, mapErr(err)
	}

	return dbConverter.ConvertUser(row), nil
}
