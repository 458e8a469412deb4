package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TemplateStatus string

const (
	TemplateStatusActive  TemplateStatus = "active"
	TemplateStatusPaused  TemplateStatus = "paused"
	TemplateStatusDeleted TemplateStatus = "deleted"
)

// Template is a recurring investment (SIP) plan. Global templates have no owner
// and are read-only for every user.
type Template struct {
	ID                  uuid.UUID       `json:"id"`
	UserID              *uuid.UUID      `json:"user_id,omitempty"`
	Name                string          `json:"name"`
	Description         string          `json:"description,omitempty"`
	IsGlobal            bool            `json:"is_global"`
	PortfolioID         *uuid.UUID      `json:"portfolio_id,omitempty"`
	InvestmentID        *uuid.UUID      `json:"investment_id,omitempty"`
	InvestmentType      InvestmentType  `json:"investment_type"`
	AmountPerInvestment decimal.Decimal `json:"amount_per_investment"`
	Frequency           Frequency       `json:"frequency"`
	IntervalValue       int             `json:"interval_value"`
	StartDate           time.Time       `json:"start_date"`
	EndDate             *time.Time      `json:"end_date,omitempty"`
	NextExecution       time.Time       `json:"next_execution"`
	TotalExecuted       int             `json:"total_executed"`
	TotalInvested       decimal.Decimal `json:"total_invested"`
	UsageCount          int             `json:"usage_count"`
	AutoExecute         bool            `json:"auto_execute"`
	Status              TemplateStatus  `json:"status"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

type TemplateInput struct {
	Name                string          `json:"name"`
	Description         string          `json:"description"`
	PortfolioID         *uuid.UUID      `json:"portfolio_id"`
	InvestmentID        *uuid.UUID      `json:"investment_id"`
	InvestmentType      string          `json:"investment_type"`
	AmountPerInvestment decimal.Decimal `json:"amount_per_investment"`
	Frequency           string          `json:"frequency"`
	IntervalValue       int             `json:"interval_value"`
	StartDate           *time.Time      `json:"start_date"`
	EndDate             *time.Time      `json:"end_date"`
	AutoExecute         bool            `json:"auto_execute"`
}

type TemplatePatch struct {
	Name                *string          `json:"name"`
	Description         *string          `json:"description"`
	PortfolioID         *uuid.UUID       `json:"portfolio_id"`
	InvestmentID        *uuid.UUID       `json:"investment_id"`
	AmountPerInvestment *decimal.Decimal `json:"amount_per_investment"`
	Frequency           *string          `json:"frequency"`
	IntervalValue       *int             `json:"interval_value"`
	StartDate           *time.Time       `json:"start_date"`
	EndDate             *time.Time       `json:"end_date"`
	ClearEndDate        bool             `json:"clear_end_date"`
	AutoExecute         *bool            `json:"auto_execute"`
}

func NewTemplate(in TemplateInput, userID uuid.UUID, today time.Time) (Template, error) {
	freq, err := ParseFrequency(in.Frequency)
	if err != nil {
		return Template{}, err
	}

	invType := InvestmentTypeMutualFund
	if in.InvestmentType != "" {
		if invType, err = ParseInvestmentType(in.InvestmentType); err != nil {
			return Template{}, err
		}
	}

	interval := in.IntervalValue
	if interval == 0 {
		interval = 1
	}

	start := DateOf(today)
	if in.StartDate != nil {
		start = DateOf(*in.StartDate)
	}

	owner := userID
	t := Template{
		ID:                  uuid.New(),
		UserID:              &owner,
		Name:                strings.TrimSpace(in.Name),
		Description:         strings.TrimSpace(in.Description),
		PortfolioID:         in.PortfolioID,
		InvestmentID:        in.InvestmentID,
		InvestmentType:      invType,
		AmountPerInvestment: in.AmountPerInvestment,
		Frequency:           freq,
		IntervalValue:       interval,
		StartDate:           start,
		TotalInvested:       decimal.Zero,
		AutoExecute:         in.AutoExecute,
		Status:              TemplateStatusActive,
	}
	if in.EndDate != nil {
		end := DateOf(*in.EndDate)
		t.EndDate = &end
	}

	if err = t.validate(); err != nil {
		return Template{}, err
	}
	if err = t.Reschedule(); err != nil {
		return Template{}, err
	}

	return t, nil
}

func (t Template) validate() error {
	if t.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if !t.AmountPerInvestment.IsPositive() {
		return fmt.Errorf("%w: amount per investment must be positive, got %s", ErrValidation, t.AmountPerInvestment)
	}
	if t.IntervalValue < 1 {
		return fmt.Errorf("%w: invalid interval %d", ErrValidation, t.IntervalValue)
	}
	if t.EndDate != nil && t.EndDate.Before(t.StartDate) {
		return fmt.Errorf("%w: end date %s is before start date %s", ErrValidation,
			t.EndDate.Format(DateLayout), t.StartDate.Format(DateLayout))
	}
	return nil
}

// Reschedule recomputes NextExecution from the start date.
func (t *Template) Reschedule() error {
	next, err := NextExecution(t.StartDate, t.Frequency, t.IntervalValue)
	if err != nil {
		return err
	}
	t.NextExecution = next
	return nil
}

func (t Template) IsActive() bool { return t.Status == TemplateStatusActive }

func (t Template) IsDeleted() bool { return t.Status == TemplateStatusDeleted }

// OwnedBy reports whether userID may modify the template.
func (t Template) OwnedBy(userID uuid.UUID) bool {
	return !t.IsGlobal && t.UserID != nil && *t.UserID == userID
}

// VisibleTo reports whether userID may read the template.
func (t Template) VisibleTo(userID uuid.UUID) bool {
	return !t.IsDeleted() && (t.IsGlobal || t.OwnedBy(userID))
}

func (t Template) Ended(today time.Time) bool {
	return t.EndDate != nil && DateOf(today).After(*t.EndDate)
}

// IsDue reports whether an external scheduler should execute the template today.
func (t Template) IsDue(today time.Time) bool {
	today = DateOf(today)
	return t.IsActive() && t.AutoExecute && !t.NextExecution.After(today) && !t.Ended(today)
}

func (t *Template) ApplyPatch(p TemplatePatch) error {
	updated := *t
	reschedule := false

	if p.Name != nil {
		updated.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		updated.Description = strings.TrimSpace(*p.Description)
	}
	if p.PortfolioID != nil {
		updated.PortfolioID = p.PortfolioID
	}
	if p.InvestmentID != nil {
		updated.InvestmentID = p.InvestmentID
		if p.PortfolioID == nil {
			// refilled from the new investment
			updated.PortfolioID = nil
		}
	}
	if p.AmountPerInvestment != nil {
		updated.AmountPerInvestment = *p.AmountPerInvestment
	}
	if p.Frequency != nil {
		freq, err := ParseFrequency(*p.Frequency)
		if err != nil {
			return err
		}
		reschedule = reschedule || freq != updated.Frequency
		updated.Frequency = freq
	}
	if p.IntervalValue != nil {
		reschedule = reschedule || *p.IntervalValue != updated.IntervalValue
		updated.IntervalValue = *p.IntervalValue
	}
	if p.StartDate != nil {
		start := DateOf(*p.StartDate)
		reschedule = reschedule || !start.Equal(updated.StartDate)
		updated.StartDate = start
	}
	switch {
	case p.ClearEndDate:
		updated.EndDate = nil
	case p.EndDate != nil:
		end := DateOf(*p.EndDate)
		updated.EndDate = &end
	}
	if p.AutoExecute != nil {
		updated.AutoExecute = *p.AutoExecute
	}

	if err := updated.validate(); err != nil {
		return err
	}
	if reschedule {
		if err := updated.Reschedule(); err != nil {
			return err
		}
	}

	*t = updated
	return nil
}

// Toggle flips an active template to paused and back.
func (t *Template) Toggle() error {
	switch t.Status {
	case TemplateStatusActive:
		t.Status = TemplateStatusPaused
	case TemplateStatusPaused:
		t.Status = TemplateStatusActive
	default:
		return fmt.Errorf("%w: template is %s", ErrInvalidTransition, t.Status)
	}
	return nil
}

// RecordExecution advances the schedule from today and bumps the counters.
func (t *Template) RecordExecution(today time.Time, amount decimal.Decimal) error {
	next, err := NextExecution(today, t.Frequency, t.IntervalValue)
	if err != nil {
		return err
	}
	t.NextExecution = next
	t.TotalExecuted++
	t.TotalInvested = t.TotalInvested.Add(amount)
	return nil
}

// Duplicate clones the configuration into a new template owned by userID that
// starts today with fresh counters.
func (t Template) Duplicate(userID uuid.UUID, today time.Time) (Template, error) {
	owner := userID
	clone := t
	clone.ID = uuid.New()
	clone.UserID = &owner
	clone.IsGlobal = false
	clone.Name = t.Name + " (copy)"
	clone.StartDate = DateOf(today)
	clone.TotalExecuted = 0
	clone.TotalInvested = decimal.Zero
	clone.UsageCount = 0
	clone.Status = TemplateStatusActive
	clone.CreatedAt = time.Time{}
	clone.UpdatedAt = time.Time{}
	if clone.EndDate != nil && clone.EndDate.Before(clone.StartDate) {
		clone.EndDate = nil
	}
	if t.IsGlobal {
		clone.PortfolioID = nil
		clone.InvestmentID = nil
	}

	if err := clone.Reschedule(); err != nil {
		return Template{}, err
	}
	return clone, nil
}

func (t Template) MonthlyEquivalent() decimal.Decimal {
	return t.Frequency.MonthlyEquivalent(t.AmountPerInvestment)
}

// MonthlySIPContribution sums the monthly equivalents of the active templates.
func MonthlySIPContribution(templates []Template) decimal.Decimal {
	total := decimal.Zero
	for _, t := range templates {
		if t.IsActive() {
			total = total.Add(t.MonthlyEquivalent())
		}
	}
	return total
}
