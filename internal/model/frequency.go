package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyBiweekly  Frequency = "biweekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

// monthly multipliers for a 30-day month
var monthlyFactors = map[Frequency]decimal.Decimal{
	FrequencyDaily:    decimal.NewFromInt(30),
	FrequencyWeekly:   decimal.RequireFromString("4.33"),
	FrequencyBiweekly: decimal.RequireFromString("2.17"),
	FrequencyMonthly:  decimal.NewFromInt(1),
}

// monthly divisors for frequencies longer than a month
var monthlyDivisors = map[Frequency]decimal.Decimal{
	FrequencyQuarterly: decimal.NewFromInt(3),
	FrequencyYearly:    decimal.NewFromInt(12),
}

func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", fmt.Errorf("%w: invalid frequency %q", ErrValidation, s)
	}
	return f, nil
}

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return true
	}
	return false
}

// NextExecution advances base by interval periods of freq. The result is a
// calendar date; month based frequencies clamp to the end of the month.
func NextExecution(base time.Time, freq Frequency, interval int) (time.Time, error) {
	if interval < 1 {
		return time.Time{}, fmt.Errorf("%w: invalid interval %d", ErrValidation, interval)
	}

	base = DateOf(base)

	switch freq {
	case FrequencyDaily:
		return base.AddDate(0, 0, interval), nil
	case FrequencyWeekly:
		return base.AddDate(0, 0, 7*interval), nil
	case FrequencyBiweekly:
		return base.AddDate(0, 0, 14*interval), nil
	case FrequencyMonthly:
		return AddMonths(base, interval), nil
	case FrequencyQuarterly:
		return AddMonths(base, 3*interval), nil
	case FrequencyYearly:
		return AddMonths(base, 12*interval), nil
	default:
		return time.Time{}, fmt.Errorf("%w: invalid frequency %q", ErrValidation, string(freq))
	}
}

// MonthlyEquivalent converts an amount paid once per freq period into its
// 30-day-month equivalent using fixed factors. The template interval is not
// part of the conversion.
func (f Frequency) MonthlyEquivalent(amount decimal.Decimal) decimal.Decimal {
	if factor, ok := monthlyFactors[f]; ok {
		return amount.Mul(factor)
	}
	if divisor, ok := monthlyDivisors[f]; ok {
		return amount.Div(divisor)
	}
	return decimal.Zero
}
