package model

import "github.com/google/uuid"

type State int

const (
	DefaultState State = iota
	ExpectingInvestmentChoice
	ExpectingPrice
)

// Session is the per-chat state of the Telegram price-update wizard.
type Session struct {
	State         State       `json:"state"`
	UserID        uuid.UUID   `json:"user_id"`
	InvestmentIDs []uuid.UUID `json:"investment_ids,omitempty"`
	InvestmentID  uuid.UUID   `json:"investment_id"`
}
