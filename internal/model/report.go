package model

import (
	"time"

	"github.com/google/uuid"
)

type PortfolioReport struct {
	Summary      PortfolioSummary
	Investments  []Investment
	Transactions []Transaction
}

type Report struct {
	UserID      uuid.UUID
	GeneratedAt time.Time
	Portfolios  []PortfolioReport
}

// BuildReport groups active investments and all ledger entries under their
// active portfolios, keeping the input order of each.
func BuildReport(userID uuid.UUID, portfolios []Portfolio, investments []Investment, txs []Transaction, at time.Time) Report {
	r := Report{UserID: userID, GeneratedAt: at, Portfolios: make([]PortfolioReport, 0, len(portfolios))}

	for _, p := range portfolios {
		if !p.IsActive {
			continue
		}
		pr := PortfolioReport{Summary: Summarize(p, investments)}
		for _, inv := range investments {
			if inv.PortfolioID == p.ID && inv.Status == InvestmentStatusActive {
				pr.Investments = append(pr.Investments, inv)
			}
		}
		for _, tx := range txs {
			if tx.PortfolioID == p.ID {
				pr.Transactions = append(pr.Transactions, tx)
			}
		}
		r.Portfolios = append(r.Portfolios, pr)
	}

	return r
}
