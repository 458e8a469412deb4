package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

type Coupon struct {
	ID                uuid.UUID        `json:"id"`
	Code              string           `json:"code"`
	Description       string           `json:"description,omitempty"`
	DiscountType      DiscountType     `json:"discount_type"`
	Value             decimal.Decimal  `json:"value"`
	MaxUses           *int             `json:"max_uses,omitempty"`
	MaxUsesPerUser    *int             `json:"max_uses_per_user,omitempty"`
	UsedCount         int              `json:"used_count"`
	ExpiresAt         *time.Time       `json:"expires_at,omitempty"`
	MinOrderAmount    *decimal.Decimal `json:"min_order_amount,omitempty"`
	MaxDiscountAmount *decimal.Decimal `json:"max_discount_amount,omitempty"`
	IsActive          bool             `json:"is_active"`
	CreatedAt         time.Time        `json:"created_at"`
}

type CouponInput struct {
	Code              string           `json:"code"`
	Description       string           `json:"description"`
	DiscountType      string           `json:"discount_type"`
	Value             decimal.Decimal  `json:"value"`
	MaxUses           *int             `json:"max_uses"`
	MaxUsesPerUser    *int             `json:"max_uses_per_user"`
	ExpiresAt         *time.Time       `json:"expires_at"`
	MinOrderAmount    *decimal.Decimal `json:"min_order_amount"`
	MaxDiscountAmount *decimal.Decimal `json:"max_discount_amount"`
}

func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func NewCoupon(in CouponInput) (Coupon, error) {
	code := NormalizeCouponCode(in.Code)
	if code == "" {
		return Coupon{}, fmt.Errorf("%w: code is required", ErrValidation)
	}

	discountType := DiscountType(strings.ToLower(strings.TrimSpace(in.DiscountType)))
	switch discountType {
	case DiscountTypePercentage:
		if in.Value.GreaterThan(hundred) {
			return Coupon{}, fmt.Errorf("%w: percentage above 100: %s", ErrValidation, in.Value)
		}
	case DiscountTypeFixed:
	default:
		return Coupon{}, fmt.Errorf("%w: invalid discount type %q", ErrValidation, in.DiscountType)
	}

	if !in.Value.IsPositive() {
		return Coupon{}, fmt.Errorf("%w: value must be positive, got %s", ErrValidation, in.Value)
	}
	if in.MaxUses != nil && *in.MaxUses < 1 {
		return Coupon{}, fmt.Errorf("%w: max uses must be positive, got %d", ErrValidation, *in.MaxUses)
	}
	if in.MaxUsesPerUser != nil && *in.MaxUsesPerUser < 1 {
		return Coupon{}, fmt.Errorf("%w: max uses per user must be positive, got %d", ErrValidation, *in.MaxUsesPerUser)
	}

	return Coupon{
		ID:                uuid.New(),
		Code:              code,
		Description:       strings.TrimSpace(in.Description),
		DiscountType:      discountType,
		Value:             in.Value,
		MaxUses:           in.MaxUses,
		MaxUsesPerUser:    in.MaxUsesPerUser,
		ExpiresAt:         in.ExpiresAt,
		MinOrderAmount:    in.MinOrderAmount,
		MaxDiscountAmount: in.MaxDiscountAmount,
		IsActive:          true,
	}, nil
}

// Validate checks the coupon's own state at now: active, not expired and not
// used up. Expiry is checked first so an expired coupon is always invalid.
func (c Coupon) Validate(now time.Time) error {
	if c.ExpiresAt != nil && !now.Before(*c.ExpiresAt) {
		return ErrCouponExpired
	}
	if !c.IsActive {
		return ErrCouponInactive
	}
	if c.MaxUses != nil && c.UsedCount >= *c.MaxUses {
		return ErrCouponExhausted
	}
	return nil
}

func (c Coupon) CheckOrder(amount decimal.Decimal) error {
	if c.MinOrderAmount != nil && amount.LessThan(*c.MinOrderAmount) {
		return fmt.Errorf("%w: minimum is %s", ErrCouponMinOrder, c.MinOrderAmount)
	}
	return nil
}

// Discount returns the discount the coupon grants on amount.
func (c Coupon) Discount(amount decimal.Decimal) decimal.Decimal {
	switch c.DiscountType {
	case DiscountTypePercentage:
		discount := amount.Mul(c.Value).Div(hundred)
		if c.MaxDiscountAmount != nil && discount.GreaterThan(*c.MaxDiscountAmount) {
			discount = *c.MaxDiscountAmount
		}
		return discount
	case DiscountTypeFixed:
		return c.Value
	}
	return decimal.Zero
}

// FinalPrice never goes below zero.
func FinalPrice(price, discount decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, price.Sub(discount))
}

type CouponQuote struct {
	Code           string          `json:"code"`
	BaseAmount     decimal.Decimal `json:"base_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
}

func (c Coupon) Quote(amount decimal.Decimal) CouponQuote {
	discount := c.Discount(amount)
	return CouponQuote{
		Code:           c.Code,
		BaseAmount:     amount,
		DiscountAmount: discount,
		FinalAmount:    FinalPrice(amount, discount),
	}
}
