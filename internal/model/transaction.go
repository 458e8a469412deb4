package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeBuy      TransactionType = "buy"
	TransactionTypeSell     TransactionType = "sell"
	TransactionTypeDividend TransactionType = "dividend"
)

func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case TransactionTypeBuy, TransactionTypeSell, TransactionTypeDividend:
		return t, nil
	}
	return "", fmt.Errorf("%w: invalid transaction type %q", ErrValidation, s)
}

// Transaction is a ledger entry. Amount fields are always derived from units,
// price and fees through ComputeAmounts.
type Transaction struct {
	ID              uuid.UUID       `json:"id"`
	InvestmentID    uuid.UUID       `json:"investment_id"`
	PortfolioID     uuid.UUID       `json:"portfolio_id"`
	UserID          uuid.UUID       `json:"user_id"`
	TemplateID      *uuid.UUID      `json:"template_id,omitempty"`
	Type            TransactionType `json:"type"`
	Units           decimal.Decimal `json:"units"`
	PricePerUnit    decimal.Decimal `json:"price_per_unit"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	BrokerageFee    decimal.Decimal `json:"brokerage_fee"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	OtherCharges    decimal.Decimal `json:"other_charges"`
	NetAmount       decimal.Decimal `json:"net_amount"`
	TransactionDate time.Time       `json:"transaction_date"`
	Platform        string          `json:"platform,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

func (t *Transaction) ComputeAmounts() {
	t.TotalAmount = t.Units.Mul(t.PricePerUnit)
	t.NetAmount = t.TotalAmount.Sub(t.Fees())
}

func (t Transaction) Fees() decimal.Decimal {
	return t.BrokerageFee.Add(t.TaxAmount).Add(t.OtherCharges)
}

type TransactionInput struct {
	InvestmentID    uuid.UUID        `json:"investment_id"`
	Type            string           `json:"type"`
	Units           decimal.Decimal  `json:"units"`
	PricePerUnit    decimal.Decimal  `json:"price_per_unit"`
	BrokerageFee    *decimal.Decimal `json:"brokerage_fee"`
	TaxAmount       *decimal.Decimal `json:"tax_amount"`
	OtherCharges    *decimal.Decimal `json:"other_charges"`
	TransactionDate *time.Time       `json:"transaction_date"`
	Platform        string           `json:"platform"`
	Notes           string           `json:"notes"`
}

// NewTransaction builds a ledger entry against inv. Omitted fees count as zero.
func NewTransaction(in TransactionInput, inv Investment, today time.Time) (Transaction, error) {
	txType, err := ParseTransactionType(in.Type)
	if err != nil {
		return Transaction{}, err
	}

	tx := Transaction{
		ID:              uuid.New(),
		InvestmentID:    inv.ID,
		PortfolioID:     inv.PortfolioID,
		UserID:          inv.UserID,
		Type:            txType,
		Units:           in.Units,
		PricePerUnit:    in.PricePerUnit,
		BrokerageFee:    valueOrZero(in.BrokerageFee),
		TaxAmount:       valueOrZero(in.TaxAmount),
		OtherCharges:    valueOrZero(in.OtherCharges),
		TransactionDate: DateOf(today),
		Platform:        strings.TrimSpace(in.Platform),
		Notes:           strings.TrimSpace(in.Notes),
	}
	if in.TransactionDate != nil {
		tx.TransactionDate = DateOf(*in.TransactionDate)
	}
	if tx.Platform == "" {
		tx.Platform = inv.Platform
	}

	if err = tx.validate(); err != nil {
		return Transaction{}, err
	}

	tx.ComputeAmounts()
	return tx, nil
}

func (t Transaction) validate() error {
	if t.Type == TransactionTypeDividend && !t.Units.IsPositive() {
		return fmt.Errorf("%w: dividend units must be the positive number of units held, got %s", ErrValidation, t.Units)
	}
	if !t.Units.IsPositive() {
		return fmt.Errorf("%w: units must be positive, got %s", ErrValidation, t.Units)
	}
	if t.PricePerUnit.IsNegative() {
		return fmt.Errorf("%w: price per unit must not be negative, got %s", ErrValidation, t.PricePerUnit)
	}
	if t.BrokerageFee.IsNegative() || t.TaxAmount.IsNegative() || t.OtherCharges.IsNegative() {
		return fmt.Errorf("%w: fees must not be negative", ErrValidation)
	}
	return nil
}

type TransactionPatch struct {
	Units           *decimal.Decimal `json:"units"`
	PricePerUnit    *decimal.Decimal `json:"price_per_unit"`
	BrokerageFee    *decimal.Decimal `json:"brokerage_fee"`
	TaxAmount       *decimal.Decimal `json:"tax_amount"`
	OtherCharges    *decimal.Decimal `json:"other_charges"`
	TransactionDate *time.Time       `json:"transaction_date"`
	Platform        *string          `json:"platform"`
	Notes           *string          `json:"notes"`
}

func (p TransactionPatch) AffectsAmounts() bool {
	return p.Units != nil || p.PricePerUnit != nil || p.BrokerageFee != nil || p.TaxAmount != nil || p.OtherCharges != nil
}

// ApplyPatch updates the transaction in place and recomputes its amounts when
// any amount-affecting field changed.
func (t *Transaction) ApplyPatch(p TransactionPatch) error {
	updated := *t
	if p.Units != nil {
		updated.Units = *p.Units
	}
	if p.PricePerUnit != nil {
		updated.PricePerUnit = *p.PricePerUnit
	}
	if p.BrokerageFee != nil {
		updated.BrokerageFee = *p.BrokerageFee
	}
	if p.TaxAmount != nil {
		updated.TaxAmount = *p.TaxAmount
	}
	if p.OtherCharges != nil {
		updated.OtherCharges = *p.OtherCharges
	}
	if p.TransactionDate != nil {
		updated.TransactionDate = DateOf(*p.TransactionDate)
	}
	if p.Platform != nil {
		updated.Platform = strings.TrimSpace(*p.Platform)
	}
	if p.Notes != nil {
		updated.Notes = strings.TrimSpace(*p.Notes)
	}

	if err := updated.validate(); err != nil {
		return err
	}

	if p.AffectsAmounts() {
		updated.ComputeAmounts()
	}

	*t = updated
	return nil
}

type TransactionFilter struct {
	UserID       uuid.UUID
	InvestmentID *uuid.UUID
	PortfolioID  *uuid.UUID
	Types        []TransactionType
	From         *time.Time
	To           *time.Time
	Platform     string
	Limit        int
}
