package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID `json:"id"`
	ChatID    *int64    `json:"chat_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
