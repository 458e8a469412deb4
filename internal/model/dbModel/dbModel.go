package dbModel

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type User struct {
	ID        uuid.UUID     `db:"id"`
	ChatID    sql.NullInt64 `db:"chat_id"`
	CreatedAt time.Time     `db:"created_at"`
}

type Portfolio struct {
	ID          uuid.UUID `db:"id"`
	UserID      uuid.UUID `db:"user_id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	RiskLevel   string    `db:"risk_level"`
	Currency    string    `db:"currency"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type Investment struct {
	ID                 uuid.UUID       `db:"id"`
	PortfolioID        uuid.UUID       `db:"portfolio_id"`
	UserID             uuid.UUID       `db:"user_id"`
	Name               string          `db:"name"`
	Symbol             string          `db:"symbol"`
	Type               string          `db:"type"`
	Units              decimal.Decimal `db:"units"`
	AverageCost        decimal.Decimal `db:"average_cost"`
	CurrentPrice       decimal.Decimal `db:"current_price"`
	TotalInvested      decimal.Decimal `db:"total_invested"`
	CurrentValue       decimal.Decimal `db:"current_value"`
	GainLoss           decimal.Decimal `db:"gain_loss"`
	GainLossPercentage decimal.Decimal `db:"gain_loss_percentage"`
	DividendEarned     decimal.Decimal `db:"dividend_earned"`
	Platform           string          `db:"platform"`
	PurchaseDate       time.Time       `db:"purchase_date"`
	Status             string          `db:"status"`
	CreatedAt          time.Time       `db:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at"`
}

type PricePoint struct {
	InvestmentID uuid.UUID       `db:"investment_id"`
	Price        decimal.Decimal `db:"price"`
	RecordedOn   time.Time       `db:"recorded_on"`
	CreatedAt    time.Time       `db:"created_at"`
}

type Transaction struct {
	ID              uuid.UUID       `db:"id"`
	InvestmentID    uuid.UUID       `db:"investment_id"`
	PortfolioID     uuid.UUID       `db:"portfolio_id"`
	UserID          uuid.UUID       `db:"user_id"`
	TemplateID      uuid.NullUUID   `db:"template_id"`
	Type            string          `db:"type"`
	Units           decimal.Decimal `db:"units"`
	PricePerUnit    decimal.Decimal `db:"price_per_unit"`
	TotalAmount     decimal.Decimal `db:"total_amount"`
	BrokerageFee    decimal.Decimal `db:"brokerage_fee"`
	TaxAmount       decimal.Decimal `db:"tax_amount"`
	OtherCharges    decimal.Decimal `db:"other_charges"`
	NetAmount       decimal.Decimal `db:"net_amount"`
	TransactionDate time.Time       `db:"transaction_date"`
	Platform        string          `db:"platform"`
	Notes           string          `db:"notes"`
	CreatedAt       time.Time       `db:"created_at"`
}

type Template struct {
	ID                  uuid.UUID       `db:"id"`
	UserID              uuid.NullUUID   `db:"user_id"`
	Name                string          `db:"name"`
	Description         string          `db:"description"`
	IsGlobal            bool            `db:"is_global"`
	PortfolioID         uuid.NullUUID   `db:"portfolio_id"`
	InvestmentID        uuid.NullUUID   `db:"investment_id"`
	InvestmentType      string          `db:"investment_type"`
	AmountPerInvestment decimal.Decimal `db:"amount_per_investment"`
	Frequency           string          `db:"frequency"`
	IntervalValue       int             `db:"interval_value"`
	StartDate           time.Time       `db:"start_date"`
	EndDate             sql.NullTime    `db:"end_date"`
	NextExecution       time.Time       `db:"next_execution"`
	TotalExecuted       int             `db:"total_executed"`
	TotalInvested       decimal.Decimal `db:"total_invested"`
	UsageCount          int             `db:"usage_count"`
	AutoExecute         bool            `db:"auto_execute"`
	Status              string          `db:"status"`
	CreatedAt           time.Time       `db:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at"`
}

type Coupon struct {
	ID                uuid.UUID           `db:"id"`
	Code              string              `db:"code"`
	Description       string              `db:"description"`
	DiscountType      string              `db:"discount_type"`
	Value             decimal.Decimal     `db:"value"`
	MaxUses           sql.NullInt32       `db:"max_uses"`
	MaxUsesPerUser    sql.NullInt32       `db:"max_uses_per_user"`
	UsedCount         int                 `db:"used_count"`
	ExpiresAt         sql.NullTime        `db:"expires_at"`
	MinOrderAmount    decimal.NullDecimal `db:"min_order_amount"`
	MaxDiscountAmount decimal.NullDecimal `db:"max_discount_amount"`
	IsActive          bool                `db:"is_active"`
	CreatedAt         time.Time           `db:"created_at"`
}

type Payment struct {
	ID              uuid.UUID       `db:"id"`
	UserID          uuid.UUID       `db:"user_id"`
	PlanID          uuid.UUID       `db:"plan_id"`
	PaymentMethod   string          `db:"payment_method"`
	CouponID        uuid.NullUUID   `db:"coupon_id"`
	CouponCode      string          `db:"coupon_code"`
	BaseAmount      decimal.Decimal `db:"base_amount"`
	DiscountAmount  decimal.Decimal `db:"discount_amount"`
	FinalAmount     decimal.Decimal `db:"final_amount"`
	Currency        string          `db:"currency"`
	Status          string          `db:"status"`
	Reference       string          `db:"reference"`
	AdminNotes      string          `db:"admin_notes"`
	RejectionReason string          `db:"rejection_reason"`
	SubmittedAt     sql.NullTime    `db:"submitted_at"`
	VerifiedAt      sql.NullTime    `db:"verified_at"`
	ApprovedAt      sql.NullTime    `db:"approved_at"`
	RejectedAt      sql.NullTime    `db:"rejected_at"`
	ExpiredAt       sql.NullTime    `db:"expired_at"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

type SubscriptionPlan struct {
	ID           uuid.UUID       `db:"id"`
	Name         string          `db:"name"`
	Price        decimal.Decimal `db:"price"`
	Currency     string          `db:"currency"`
	DurationDays int             `db:"duration_days"`
	IsActive     bool            `db:"is_active"`
}

type Subscription struct {
	UserID    uuid.UUID `db:"user_id"`
	PlanID    uuid.UUID `db:"plan_id"`
	StartsAt  time.Time `db:"starts_at"`
	ExpiresAt time.Time `db:"expires_at"`
}
