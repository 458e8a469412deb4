package model

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RiskLevel string

const (
	RiskLevelConservative RiskLevel = "conservative"
	RiskLevelModerate     RiskLevel = "moderate"
	RiskLevelAggressive   RiskLevel = "aggressive"
)

const DefaultCurrency = "INR"

type Portfolio struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	RiskLevel   RiskLevel `json:"risk_level"`
	Currency    string    `json:"currency"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type PortfolioInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	RiskLevel   string `json:"risk_level"`
	Currency    string `json:"currency"`
}

type PortfolioPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	RiskLevel   *string `json:"risk_level"`
}

func ParseRiskLevel(s string) (RiskLevel, error) {
	r := RiskLevel(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case "":
		return RiskLevelModerate, nil
	case RiskLevelConservative, RiskLevelModerate, RiskLevelAggressive:
		return r, nil
	}
	return "", fmt.Errorf("%w: invalid risk level %q", ErrValidation, s)
}

func NewPortfolio(in PortfolioInput, userID uuid.UUID) (Portfolio, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Portfolio{}, fmt.Errorf("%w: name is required", ErrValidation)
	}

	risk, err := ParseRiskLevel(in.RiskLevel)
	if err != nil {
		return Portfolio{}, err
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = DefaultCurrency
	}

	return Portfolio{
		ID:          uuid.New(),
		UserID:      userID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		RiskLevel:   risk,
		Currency:    currency,
		IsActive:    true,
	}, nil
}

func (p *Portfolio) ApplyPatch(patch PortfolioPatch) error {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return fmt.Errorf("%w: name is required", ErrValidation)
		}
		p.Name = name
	}
	if patch.Description != nil {
		p.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.RiskLevel != nil {
		risk, err := ParseRiskLevel(*patch.RiskLevel)
		if err != nil {
			return err
		}
		p.RiskLevel = risk
	}
	return nil
}

// PortfolioSummary holds the totals derived from member investments. None of
// these figures are stored.
type PortfolioSummary struct {
	Portfolio
	TotalInvested         decimal.Decimal `json:"total_invested"`
	CurrentValue          decimal.Decimal `json:"current_value"`
	TotalGainLoss         decimal.Decimal `json:"total_gain_loss"`
	TotalReturnPercentage decimal.Decimal `json:"total_return_percentage"`
	InvestmentCount       int             `json:"investment_count"`
}

// Summarize sums the active members of p.
func Summarize(p Portfolio, investments []Investment) PortfolioSummary {
	s := PortfolioSummary{
		Portfolio:     p,
		TotalInvested: decimal.Zero,
		CurrentValue:  decimal.Zero,
		TotalGainLoss: decimal.Zero,
	}

	for _, inv := range investments {
		if inv.PortfolioID != p.ID || inv.Status != InvestmentStatusActive {
			continue
		}
		s.InvestmentCount++
		s.TotalInvested = s.TotalInvested.Add(inv.TotalInvested)
		s.CurrentValue = s.CurrentValue.Add(inv.CurrentValue)
		s.TotalGainLoss = s.TotalGainLoss.Add(inv.GainLoss)
	}

	s.TotalReturnPercentage = Percentage(s.TotalGainLoss, s.TotalInvested)
	return s
}

type AllocationSlice struct {
	Type       InvestmentType  `json:"type"`
	Value      decimal.Decimal `json:"value"`
	Percentage decimal.Decimal `json:"percentage"`
	Count      int             `json:"count"`
}

// AssetAllocation returns the current-value share of each investment type,
// largest first. Closed investments are ignored.
func AssetAllocation(investments []Investment) []AllocationSlice {
	byType := make(map[InvestmentType]*AllocationSlice)
	total := decimal.Zero

	for _, inv := range investments {
		if inv.Status != InvestmentStatusActive {
			continue
		}
		slice, ok := byType[inv.Type]
		if !ok {
			slice = &AllocationSlice{Type: inv.Type, Value: decimal.Zero}
			byType[inv.Type] = slice
		}
		slice.Value = slice.Value.Add(inv.CurrentValue)
		slice.Count++
		total = total.Add(inv.CurrentValue)
	}

	res := make([]AllocationSlice, 0, len(byType))
	for _, slice := range byType {
		slice.Percentage = Percentage(slice.Value, total)
		res = append(res, *slice)
	}

	sort.Slice(res, func(i, j int) bool {
		if !res[i].Value.Equal(res[j].Value) {
			return res[i].Value.GreaterThan(res[j].Value)
		}
		return res[i].Type < res[j].Type
	})

	return res
}

type PortfolioPerformance struct {
	PortfolioSummary
	Allocation          []AllocationSlice `json:"allocation"`
	MonthlySIP          decimal.Decimal   `json:"monthly_sip_contribution"`
	ActiveTemplateCount int               `json:"active_template_count"`
	Investments         []Investment      `json:"investments"`
}

// BuildPerformance assembles the full performance view of one portfolio.
func BuildPerformance(p Portfolio, investments []Investment, templates []Template) PortfolioPerformance {
	members := make([]Investment, 0, len(investments))
	for _, inv := range investments {
		if inv.PortfolioID == p.ID && inv.Status == InvestmentStatusActive {
			members = append(members, inv)
		}
	}

	perf := PortfolioPerformance{
		PortfolioSummary: Summarize(p, members),
		Allocation:       AssetAllocation(members),
		MonthlySIP:       MonthlySIPContribution(templates),
		Investments:      members,
	}
	for _, t := range templates {
		if t.IsActive() {
			perf.ActiveTemplateCount++
		}
	}

	return perf
}
