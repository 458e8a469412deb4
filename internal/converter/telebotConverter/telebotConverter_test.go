package telebotConverter

import (
	"testing"
	"time"

	"github.com/KotFed0t/finplan/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPortfoliosResponse(t *testing.T) {
	assert.Equal(t, "You have no portfolios yet.", PortfoliosResponse(nil))

	text := PortfoliosResponse([]model.PortfolioSummary{{
		Portfolio:             model.Portfolio{Name: "Main", Currency: "INR"},
		TotalInvested:         decimal.NewFromInt(1000),
		CurrentValue:          decimal.NewFromInt(1150),
		TotalGainLoss:         decimal.NewFromInt(150),
		TotalReturnPercentage: decimal.NewFromInt(15),
		InvestmentCount:       2,
	}})
	assert.Contains(t, text, "📊 Main (INR)")
	assert.Contains(t, text, "Gain/loss: 150.00 (15.00%)")
	assert.Contains(t, text, "Investments: 2")
}

func TestDueTemplatesResponse(t *testing.T) {
	text := DueTemplatesResponse([]model.Template{{
		Name:                "Index",
		AmountPerInvestment: decimal.NewFromInt(500),
		Frequency:           model.FrequencyMonthly,
		NextExecution:       time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}})
	assert.Equal(t, "⏰ Due SIPs:\n\n1. Index: 500.00 monthly, due 2024-03-01", text)
}

func TestInvestmentChoiceResponse(t *testing.T) {
	text := InvestmentChoiceResponse([]model.Investment{
		{Name: "Sber", Symbol: "SBER", CurrentPrice: decimal.NewFromInt(300)},
		{Name: "Gold", CurrentPrice: decimal.RequireFromString("61.5")},
	})
	assert.Contains(t, text, "1. Sber [SBER], price 300.00\n2. Gold, price 61.50")
}
