package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InvestmentType string

const (
	InvestmentTypeStock        InvestmentType = "stock"
	InvestmentTypeMutualFund   InvestmentType = "mutual_fund"
	InvestmentTypeETF          InvestmentType = "etf"
	InvestmentTypeBond         InvestmentType = "bond"
	InvestmentTypeFixedDeposit InvestmentType = "fixed_deposit"
	InvestmentTypeGold         InvestmentType = "gold"
	InvestmentTypeCrypto       InvestmentType = "crypto"
	InvestmentTypeRealEstate   InvestmentType = "real_estate"
	InvestmentTypePPF          InvestmentType = "ppf"
	InvestmentTypeOther        InvestmentType = "other"
)

func ParseInvestmentType(s string) (InvestmentType, error) {
	t := InvestmentType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case InvestmentTypeStock, InvestmentTypeMutualFund, InvestmentTypeETF, InvestmentTypeBond,
		InvestmentTypeFixedDeposit, InvestmentTypeGold, InvestmentTypeCrypto, InvestmentTypeRealEstate,
		InvestmentTypePPF, InvestmentTypeOther:
		return t, nil
	}
	return "", fmt.Errorf("%w: invalid investment type %q", ErrValidation, s)
}

type InvestmentStatus string

const (
	InvestmentStatusActive InvestmentStatus = "active"
	InvestmentStatusClosed InvestmentStatus = "closed"
)

type Investment struct {
	ID                 uuid.UUID        `json:"id"`
	PortfolioID        uuid.UUID        `json:"portfolio_id"`
	UserID             uuid.UUID        `json:"user_id"`
	Name               string           `json:"name"`
	Symbol             string           `json:"symbol,omitempty"`
	Type               InvestmentType   `json:"type"`
	Units              decimal.Decimal  `json:"units"`
	AverageCost        decimal.Decimal  `json:"average_cost"`
	CurrentPrice       decimal.Decimal  `json:"current_price"`
	TotalInvested      decimal.Decimal  `json:"total_invested"`
	CurrentValue       decimal.Decimal  `json:"current_value"`
	GainLoss           decimal.Decimal  `json:"gain_loss"`
	GainLossPercentage decimal.Decimal  `json:"gain_loss_percentage"`
	DividendEarned     decimal.Decimal  `json:"dividend_earned"`
	Platform           string           `json:"platform,omitempty"`
	PurchaseDate       time.Time        `json:"purchase_date"`
	Status             InvestmentStatus `json:"status"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

type InvestmentInput struct {
	PortfolioID  uuid.UUID       `json:"portfolio_id"`
	Name         string          `json:"name"`
	Symbol       string          `json:"symbol"`
	Type         string          `json:"type"`
	Units        decimal.Decimal `json:"units"`
	AverageCost  decimal.Decimal `json:"average_cost"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	PurchaseDate *time.Time      `json:"purchase_date"`
	Platform     string          `json:"platform"`
}

type InvestmentPatch struct {
	Name     *string `json:"name"`
	Symbol   *string `json:"symbol"`
	Platform *string `json:"platform"`
}

// NewInvestment validates the input and builds an active investment with
// derived totals filled in. purchaseDate defaults to today.
func NewInvestment(in InvestmentInput, userID uuid.UUID, today time.Time) (Investment, error) {
	invType, err := ParseInvestmentType(in.Type)
	if err != nil {
		return Investment{}, err
	}
	if in.PortfolioID == uuid.Nil {
		return Investment{}, fmt.Errorf("%w: portfolio is required", ErrValidation)
	}
	if strings.TrimSpace(in.Name) == "" {
		return Investment{}, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if !in.Units.IsPositive() {
		return Investment{}, fmt.Errorf("%w: units must be positive, got %s", ErrValidation, in.Units)
	}
	if in.AverageCost.IsNegative() || in.CurrentPrice.IsNegative() {
		return Investment{}, fmt.Errorf("%w: prices must not be negative", ErrValidation)
	}

	purchaseDate := DateOf(today)
	if in.PurchaseDate != nil {
		purchaseDate = DateOf(*in.PurchaseDate)
	}

	inv := Investment{
		ID:           uuid.New(),
		PortfolioID:  in.PortfolioID,
		UserID:       userID,
		Name:         strings.TrimSpace(in.Name),
		Symbol:       strings.ToUpper(strings.TrimSpace(in.Symbol)),
		Type:         invType,
		Units:        in.Units,
		AverageCost:  in.AverageCost,
		CurrentPrice: in.CurrentPrice,
		Platform:     strings.TrimSpace(in.Platform),
		PurchaseDate: purchaseDate,
		Status:       InvestmentStatusActive,
	}
	inv.Recalculate()

	return inv, nil
}

// Recalculate refreshes the derived fields from units, average cost and current
// price. CurrentValue - TotalInvested == GainLoss always holds afterwards.
func (i *Investment) Recalculate() {
	i.TotalInvested = i.Units.Mul(i.AverageCost)
	i.CurrentValue = i.Units.Mul(i.CurrentPrice)
	i.GainLoss = i.CurrentValue.Sub(i.TotalInvested)
	i.GainLossPercentage = Percentage(i.GainLoss, i.TotalInvested)
}

func (i *Investment) UpdatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative, got %s", ErrValidation, price)
	}
	i.CurrentPrice = price
	i.Recalculate()
	return nil
}

func (i *Investment) ApplyPatch(p InvestmentPatch) error {
	if p.Name != nil {
		if strings.TrimSpace(*p.Name) == "" {
			return fmt.Errorf("%w: name is required", ErrValidation)
		}
		i.Name = strings.TrimSpace(*p.Name)
	}
	if p.Symbol != nil {
		i.Symbol = strings.ToUpper(strings.TrimSpace(*p.Symbol))
	}
	if p.Platform != nil {
		i.Platform = strings.TrimSpace(*p.Platform)
	}
	i.Recalculate()
	return nil
}

// SyncWithLedger re-projects units, average cost and dividends from the
// investment's transaction history.
func (i *Investment) SyncWithLedger(cb CostBasis) {
	i.Units = cb.CurrentUnits
	i.AverageCost = cb.AverageCost
	i.DividendEarned = cb.TotalDividends
	i.Recalculate()
}

// SeedTransaction is the opening buy recorded when an investment is created.
func (i Investment) SeedTransaction() Transaction {
	tx := Transaction{
		ID:              uuid.New(),
		InvestmentID:    i.ID,
		PortfolioID:     i.PortfolioID,
		UserID:          i.UserID,
		Type:            TransactionTypeBuy,
		Units:           i.Units,
		PricePerUnit:    i.AverageCost,
		TransactionDate: i.PurchaseDate,
		Platform:        i.Platform,
		Notes:           "initial purchase",
	}
	tx.ComputeAmounts()
	return tx
}

type PricePoint struct {
	InvestmentID uuid.UUID       `json:"investment_id"`
	Price        decimal.Decimal `json:"price"`
	RecordedOn   time.Time       `json:"recorded_on"`
	CreatedAt    time.Time       `json:"created_at"`
}

type CostBasis struct {
	UnitsBought      decimal.Decimal `json:"units_bought"`
	UnitsSold        decimal.Decimal `json:"units_sold"`
	CurrentUnits     decimal.Decimal `json:"current_units"`
	TotalInvested    decimal.Decimal `json:"total_invested"`
	AverageCost      decimal.Decimal `json:"average_cost"`
	TotalDividends   decimal.Decimal `json:"total_dividends"`
	TransactionCount int             `json:"transaction_count"`
}

// CalculateCostBasis folds a transaction history into its cost basis.
func CalculateCostBasis(txs []Transaction) CostBasis {
	cb := CostBasis{
		UnitsBought:    decimal.Zero,
		UnitsSold:      decimal.Zero,
		TotalInvested:  decimal.Zero,
		TotalDividends: decimal.Zero,
	}

	for _, tx := range txs {
		cb.TransactionCount++
		switch tx.Type {
		case TransactionTypeBuy:
			cb.UnitsBought = cb.UnitsBought.Add(tx.Units)
			cb.TotalInvested = cb.TotalInvested.Add(tx.NetAmount)
		case TransactionTypeSell:
			cb.UnitsSold = cb.UnitsSold.Add(tx.Units)
		case TransactionTypeDividend:
			cb.TotalDividends = cb.TotalDividends.Add(tx.NetAmount)
		}
	}

	cb.CurrentUnits = cb.UnitsBought.Sub(cb.UnitsSold)
	if cb.UnitsBought.IsPositive() {
		cb.AverageCost = cb.TotalInvested.Div(cb.UnitsBought)
	} else {
		cb.AverageCost = decimal.Zero
	}

	return cb
}
