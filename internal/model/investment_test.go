package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNewInvestment_DerivedFields(t *testing.T) {
	inv, err := NewInvestment(InvestmentInput{
		PortfolioID:  uuid.New(),
		Name:         "Nifty Index",
		Symbol:       "nifty",
		Type:         "mutual_fund",
		Units:        dec("100"),
		AverageCost:  dec("50"),
		CurrentPrice: dec("60"),
	}, uuid.New(), date(2024, 3, 15))
	require.NoError(t, err)

	assert.True(t, dec("5000").Equal(inv.TotalInvested))
	assert.True(t, dec("6000").Equal(inv.CurrentValue))
	assert.True(t, dec("1000").Equal(inv.GainLoss))
	assert.True(t, dec("20").Equal(inv.GainLossPercentage))
	assert.Equal(t, "NIFTY", inv.Symbol)
	assert.Equal(t, InvestmentStatusActive, inv.Status)
	assert.True(t, date(2024, 3, 15).Equal(inv.PurchaseDate))
	assert.True(t, inv.CurrentValue.Sub(inv.TotalInvested).Equal(inv.GainLoss))
}

func TestNewInvestment_Validation(t *testing.T) {
	base := InvestmentInput{
		PortfolioID: uuid.New(),
		Name:        "x",
		Type:        "stock",
		Units:       dec("1"),
	}

	bad := base
	bad.Type = "tulips"
	_, err := NewInvestment(bad, uuid.New(), date(2024, 1, 1))
	assert.ErrorIs(t, err, ErrValidation)

	bad = base
	bad.Units = decimal.Zero
	_, err = NewInvestment(bad, uuid.New(), date(2024, 1, 1))
	assert.ErrorIs(t, err, ErrValidation)

	bad = base
	bad.CurrentPrice = dec("-1")
	_, err = NewInvestment(bad, uuid.New(), date(2024, 1, 1))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestInvestment_ZeroInvested(t *testing.T) {
	inv := Investment{Units: dec("10"), AverageCost: decimal.Zero, CurrentPrice: dec("5")}
	inv.Recalculate()

	assert.True(t, decimal.Zero.Equal(inv.GainLossPercentage))
	assert.True(t, dec("50").Equal(inv.GainLoss))
}

func TestInvestment_UpdatePrice(t *testing.T) {
	inv := Investment{Units: dec("100"), AverageCost: dec("50")}
	inv.Recalculate()

	require.NoError(t, inv.UpdatePrice(dec("40")))
	assert.True(t, dec("-1000").Equal(inv.GainLoss))
	assert.True(t, dec("-20").Equal(inv.GainLossPercentage))

	assert.ErrorIs(t, inv.UpdatePrice(dec("-1")), ErrValidation)
}

func TestCalculateCostBasis(t *testing.T) {
	txs := []Transaction{
		{Type: TransactionTypeBuy, Units: dec("10"), PricePerUnit: dec("100"), BrokerageFee: dec("10")},
		{Type: TransactionTypeBuy, Units: dec("10"), PricePerUnit: dec("120")},
		{Type: TransactionTypeSell, Units: dec("5"), PricePerUnit: dec("130")},
		{Type: TransactionTypeDividend, Units: dec("1"), PricePerUnit: dec("40")},
	}
	for i := range txs {
		txs[i].ComputeAmounts()
	}

	cb := CalculateCostBasis(txs)

	assert.True(t, dec("20").Equal(cb.UnitsBought))
	assert.True(t, dec("5").Equal(cb.UnitsSold))
	assert.True(t, dec("15").Equal(cb.CurrentUnits))
	assert.True(t, dec("2190").Equal(cb.TotalInvested))
	assert.True(t, dec("109.5").Equal(cb.AverageCost))
	assert.True(t, dec("40").Equal(cb.TotalDividends))
	assert.Equal(t, 4, cb.TransactionCount)

	inv := Investment{CurrentPrice: dec("110")}
	inv.SyncWithLedger(cb)
	assert.True(t, dec("15").Equal(inv.Units))
	assert.True(t, dec("1642.5").Equal(inv.TotalInvested))
	assert.True(t, dec("1650").Equal(inv.CurrentValue))
}

func TestCalculateCostBasis_Empty(t *testing.T) {
	cb := CalculateCostBasis(nil)
	assert.True(t, decimal.Zero.Equal(cb.AverageCost))
	assert.True(t, decimal.Zero.Equal(cb.CurrentUnits))
}

func TestSeedTransaction(t *testing.T) {
	inv, err := NewInvestment(InvestmentInput{
		PortfolioID: uuid.New(), Name: "Gold", Type: "gold",
		Units: dec("2"), AverageCost: dec("5000"), CurrentPrice: dec("5100"),
	}, uuid.New(), date(2024, 5, 1))
	require.NoError(t, err)

	tx := inv.SeedTransaction()
	assert.Equal(t, TransactionTypeBuy, tx.Type)
	assert.Equal(t, inv.ID, tx.InvestmentID)
	assert.True(t, dec("10000").Equal(tx.NetAmount))
	assert.True(t, inv.PurchaseDate.Equal(tx.TransactionDate))
}
