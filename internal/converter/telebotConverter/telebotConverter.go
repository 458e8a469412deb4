package telebotConverter

import (
	"fmt"
	"strings"

	"github.com/KotFed0t/finplan/internal/model"
	"github.com/KotFed0t/finplan/internal/model/moexModel"
	"github.com/shopspring/decimal"
)

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func PortfoliosResponse(summaries []model.PortfolioSummary) string {
	if len(summaries) == 0 {
		return "You have no portfolios yet."
	}

	var sb strings.Builder
	for _, s := range summaries {
		sb.WriteString(fmt.Sprintf("📊 %s (%s)\n", s.Name, s.Currency))
		sb.WriteString(fmt.Sprintf("   ▸ Invested: %s\n", money(s.TotalInvested)))
		sb.WriteString(fmt.Sprintf("   ▸ Value: %s\n", money(s.CurrentValue)))
		sb.WriteString(fmt.Sprintf("   ▸ Gain/loss: %s (%s%%)\n", money(s.TotalGainLoss), s.TotalReturnPercentage.StringFixed(2)))
		sb.WriteString(fmt.Sprintf("   ▸ Investments: %d\n\n", s.InvestmentCount))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func DueTemplatesResponse(templates []model.Template) string {
	if len(templates) == 0 {
		return "No SIPs are due today."
	}

	var sb strings.Builder
	sb.WriteString("⏰ Due SIPs:\n\n")
	for i, t := range templates {
		sb.WriteString(fmt.Sprintf("%d. %s: %s %s, due %s\n",
			i+1, t.Name, money(t.AmountPerInvestment), t.Frequency, t.NextExecution.Format(model.DateLayout)))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// InvestmentChoiceResponse numbers investments from 1, matching the index the
// user replies with.
func InvestmentChoiceResponse(investments []model.Investment) string {
	var sb strings.Builder
	sb.WriteString("Reply with the number of the investment to update:\n\n")
	for i, inv := range investments {
		sb.WriteString(fmt.Sprintf("%d. %s", i+1, inv.Name))
		if inv.Symbol != "" {
			sb.WriteString(fmt.Sprintf(" [%s]", inv.Symbol))
		}
		sb.WriteString(fmt.Sprintf(", price %s\n", money(inv.CurrentPrice)))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func PriceUpdatedResponse(inv model.Investment) string {
	return fmt.Sprintf("✅ %s\n   ▸ Price: %s\n   ▸ Value: %s\n   ▸ Gain/loss: %s (%s%%)",
		inv.Name,
		money(inv.CurrentPrice),
		money(inv.CurrentValue),
		money(inv.GainLoss),
		inv.GainLossPercentage.StringFixed(2),
	)
}

func QuoteResponse(q moexModel.Quote) string {
	return fmt.Sprintf("💹 %s (%s): %s %s", q.Symbol, q.Shortname, q.Price.String(), q.Currency)
}
