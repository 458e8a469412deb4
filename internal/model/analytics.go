package model

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const (
	RiskLow      = "low"
	RiskModerate = "moderate"
	RiskHigh     = "high"
)

// risk weight on a 1..10 scale per investment type
var riskWeights = map[InvestmentType]int64{
	InvestmentTypeFixedDeposit: 1,
	InvestmentTypePPF:          1,
	InvestmentTypeBond:         3,
	InvestmentTypeGold:         4,
	InvestmentTypeETF:          5,
	InvestmentTypeRealEstate:   5,
	InvestmentTypeOther:        5,
	InvestmentTypeMutualFund:   6,
	InvestmentTypeStock:        8,
	InvestmentTypeCrypto:       10,
}

type RiskAssessment struct {
	Score decimal.Decimal `json:"score"`
	Level string          `json:"level"`
}

// AssessRisk computes the current-value weighted average risk weight of the
// active investments.
func AssessRisk(investments []Investment) RiskAssessment {
	weighted := decimal.Zero
	total := decimal.Zero

	for _, inv := range investments {
		if inv.Status != InvestmentStatusActive {
			continue
		}
		weight, ok := riskWeights[inv.Type]
		if !ok {
			weight = riskWeights[InvestmentTypeOther]
		}
		weighted = weighted.Add(inv.CurrentValue.Mul(decimal.NewFromInt(weight)))
		total = total.Add(inv.CurrentValue)
	}

	if !total.IsPositive() {
		return RiskAssessment{Score: decimal.Zero, Level: RiskLow}
	}

	score := weighted.Div(total).Round(2)
	level := RiskHigh
	switch {
	case score.LessThanOrEqual(decimal.NewFromInt(3)):
		level = RiskLow
	case score.LessThanOrEqual(decimal.NewFromInt(6)):
		level = RiskModerate
	}

	return RiskAssessment{Score: score, Level: level}
}

// DiversificationScore is round((1 - HHI) * 100) over the current-value shares
// of the active investments. A single holding or an empty book scores zero.
func DiversificationScore(investments []Investment) int {
	total := decimal.Zero
	values := make([]decimal.Decimal, 0, len(investments))
	for _, inv := range investments {
		if inv.Status != InvestmentStatusActive || !inv.CurrentValue.IsPositive() {
			continue
		}
		values = append(values, inv.CurrentValue)
		total = total.Add(inv.CurrentValue)
	}

	if len(values) < 2 {
		return 0
	}

	hhi := decimal.Zero
	for _, v := range values {
		share := v.Div(total)
		hhi = hhi.Add(share.Mul(share))
	}

	return int(decimal.NewFromInt(1).Sub(hhi).Mul(hundred).Round(0).IntPart())
}

// RankByPerformance returns the active investments ordered by gain/loss
// percentage, best first.
func RankByPerformance(investments []Investment) []Investment {
	ranked := make([]Investment, 0, len(investments))
	for _, inv := range investments {
		if inv.Status == InvestmentStatusActive {
			ranked = append(ranked, inv)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if !ranked[i].GainLossPercentage.Equal(ranked[j].GainLossPercentage) {
			return ranked[i].GainLossPercentage.GreaterThan(ranked[j].GainLossPercentage)
		}
		return ranked[i].Name < ranked[j].Name
	})

	return ranked
}

type TrendPoint struct {
	Month      string          `json:"month"`
	Invested   decimal.Decimal `json:"invested"`
	Cumulative decimal.Decimal `json:"cumulative"`
}

// InvestmentTrend buckets buy net amounts by month for the given number of
// months ending with end's month. Cumulative includes buys before the window.
func InvestmentTrend(txs []Transaction, end time.Time, months int) []TrendPoint {
	if months < 1 {
		return nil
	}

	y, m, _ := end.Date()
	windowStart := time.Date(y, m-time.Month(months-1), 1, 0, 0, 0, 0, time.UTC)
	windowEnd := time.Date(y, m+1, 1, 0, 0, 0, 0, time.UTC)

	byMonth := make(map[string]decimal.Decimal, months)
	before := decimal.Zero
	for _, tx := range txs {
		if tx.Type != TransactionTypeBuy {
			continue
		}
		date := DateOf(tx.TransactionDate)
		switch {
		case date.Before(windowStart):
			before = before.Add(tx.NetAmount)
		case date.Before(windowEnd):
			key := date.Format("2006-01")
			byMonth[key] = byMonth[key].Add(tx.NetAmount)
		}
	}

	points := make([]TrendPoint, 0, months)
	cumulative := before
	for i := 0; i < months; i++ {
		key := windowStart.AddDate(0, i, 0).Format("2006-01")
		invested := byMonth[key]
		cumulative = cumulative.Add(invested)
		points = append(points, TrendPoint{Month: key, Invested: invested, Cumulative: cumulative})
	}

	return points
}

type Dashboard struct {
	Portfolios            []PortfolioSummary `json:"portfolios"`
	TotalInvested         decimal.Decimal    `json:"total_invested"`
	CurrentValue          decimal.Decimal    `json:"current_value"`
	TotalGainLoss         decimal.Decimal    `json:"total_gain_loss"`
	TotalReturnPercentage decimal.Decimal    `json:"total_return_percentage"`
	Allocation            []AllocationSlice  `json:"allocation"`
	Trend                 []TrendPoint       `json:"trend"`
	Risk                  RiskAssessment     `json:"risk"`
	DiversificationScore  int                `json:"diversification_score"`
	TopPerformers         []Investment       `json:"top_performers"`
	MonthlySIP            decimal.Decimal    `json:"monthly_sip_contribution"`
	ActiveTemplates       int                `json:"active_templates"`
	DueTemplates          int                `json:"due_templates"`
	RecentTransactions    []Transaction      `json:"recent_transactions"`
}

// BuildDashboard is a pure projection over already fetched rows.
func BuildDashboard(portfolios []Portfolio, investments []Investment, txs []Transaction, templates []Template, today time.Time, topN int) Dashboard {
	d := Dashboard{
		Portfolios:    make([]PortfolioSummary, 0, len(portfolios)),
		TotalInvested: decimal.Zero,
		CurrentValue:  decimal.Zero,
		TotalGainLoss: decimal.Zero,
	}

	active := make([]Investment, 0, len(investments))
	activePortfolios := make(map[string]struct{}, len(portfolios))
	for _, p := range portfolios {
		if !p.IsActive {
			continue
		}
		activePortfolios[p.ID.String()] = struct{}{}
		s := Summarize(p, investments)
		d.Portfolios = append(d.Portfolios, s)
		d.TotalInvested = d.TotalInvested.Add(s.TotalInvested)
		d.CurrentValue = d.CurrentValue.Add(s.CurrentValue)
		d.TotalGainLoss = d.TotalGainLoss.Add(s.TotalGainLoss)
	}
	for _, inv := range investments {
		if _, ok := activePortfolios[inv.PortfolioID.String()]; ok && inv.Status == InvestmentStatusActive {
			active = append(active, inv)
		}
	}

	d.TotalReturnPercentage = Percentage(d.TotalGainLoss, d.TotalInvested)
	d.Allocation = AssetAllocation(active)
	d.Trend = InvestmentTrend(txs, today, 12)
	d.Risk = AssessRisk(active)
	d.DiversificationScore = DiversificationScore(active)

	ranked := RankByPerformance(active)
	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	d.TopPerformers = ranked

	d.MonthlySIP = MonthlySIPContribution(templates)
	for _, t := range templates {
		if t.IsActive() {
			d.ActiveTemplates++
		}
		if t.IsDue(today) {
			d.DueTemplates++
		}
	}

	recent := make([]Transaction, len(txs))
	copy(recent, txs)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].TransactionDate.After(recent[j].TransactionDate)
	})
	if len(recent) > 10 {
		recent = recent[:10]
	}
	d.RecentTransactions = recent

	return d
}
