package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSubmitted PaymentStatus = "submitted"
	PaymentStatusVerified  PaymentStatus = "verified"
	PaymentStatusApproved  PaymentStatus = "approved"
	PaymentStatusRejected  PaymentStatus = "rejected"
	PaymentStatusExpired   PaymentStatus = "expired"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:   {PaymentStatusSubmitted, PaymentStatusExpired},
	PaymentStatusSubmitted: {PaymentStatusVerified, PaymentStatusRejected, PaymentStatusExpired},
	PaymentStatusVerified:  {PaymentStatusApproved, PaymentStatusRejected},
}

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	st := PaymentStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case PaymentStatusPending, PaymentStatusSubmitted, PaymentStatusVerified,
		PaymentStatusApproved, PaymentStatusRejected, PaymentStatusExpired:
		return st, nil
	}
	return "", fmt.Errorf("%w: invalid payment status %q", ErrValidation, s)
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s PaymentStatus) IsTerminal() bool {
	return len(paymentTransitions[s]) == 0
}

type PaymentMethod string

const (
	PaymentMethodUPI          PaymentMethod = "upi"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCrypto       PaymentMethod = "crypto"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case PaymentMethodUPI, PaymentMethodBankTransfer, PaymentMethodCrypto:
		return m, nil
	}
	return "", fmt.Errorf("%w: invalid payment method %q", ErrValidation, s)
}

type Payment struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"user_id"`
	PlanID          uuid.UUID       `json:"plan_id"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	CouponID        *uuid.UUID      `json:"coupon_id,omitempty"`
	CouponCode      string          `json:"coupon_code,omitempty"`
	BaseAmount      decimal.Decimal `json:"base_amount"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	FinalAmount     decimal.Decimal `json:"final_amount"`
	Currency        string          `json:"currency"`
	Status          PaymentStatus   `json:"status"`
	Reference       string          `json:"reference,omitempty"`
	AdminNotes      string          `json:"admin_notes,omitempty"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	SubmittedAt     *time.Time      `json:"submitted_at,omitempty"`
	VerifiedAt      *time.Time      `json:"verified_at,omitempty"`
	ApprovedAt      *time.Time      `json:"approved_at,omitempty"`
	RejectedAt      *time.Time      `json:"rejected_at,omitempty"`
	ExpiredAt       *time.Time      `json:"expired_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type PaymentInput struct {
	PlanID        uuid.UUID `json:"plan_id"`
	PaymentMethod string    `json:"payment_method"`
	CouponCode    string    `json:"coupon_code"`
}

type StatusChange struct {
	Status          string `json:"status"`
	AdminNotes      string `json:"admin_notes"`
	RejectionReason string `json:"rejection_reason"`
}

// Transition moves the payment to next, stamping the matching timestamp.
// Terminal states never change again.
func (p *Payment) Transition(next PaymentStatus, at time.Time, notes, reason string) error {
	if !p.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, next)
	}

	ts := at
	switch next {
	case PaymentStatusSubmitted:
		p.SubmittedAt = &ts
	case PaymentStatusVerified:
		p.VerifiedAt = &ts
	case PaymentStatusApproved:
		p.ApprovedAt = &ts
	case PaymentStatusRejected:
		p.RejectedAt = &ts
		p.RejectionReason = strings.TrimSpace(reason)
	case PaymentStatusExpired:
		p.ExpiredAt = &ts
	}

	if notes = strings.TrimSpace(notes); notes != "" {
		p.AdminNotes = notes
	}
	p.Status = next
	return nil
}

type SubscriptionPlan struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
	DurationDays int             `json:"duration_days"`
	IsActive     bool            `json:"is_active"`
}

type Subscription struct {
	UserID    uuid.UUID `json:"user_id"`
	PlanID    uuid.UUID `json:"plan_id"`
	StartsAt  time.Time `json:"starts_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ExtendSubscription adds the plan duration to the current subscription, or
// starts a new one at now when there is none or it has already lapsed.
func ExtendSubscription(current *Subscription, userID uuid.UUID, plan SubscriptionPlan, now time.Time) Subscription {
	duration := time.Duration(plan.DurationDays) * 24 * time.Hour
	if current == nil || !current.ExpiresAt.After(now) {
		return Subscription{UserID: userID, PlanID: plan.ID, StartsAt: now, ExpiresAt: now.Add(duration)}
	}
	return Subscription{UserID: userID, PlanID: plan.ID, StartsAt: current.StartsAt, ExpiresAt: current.ExpiresAt.Add(duration)}
}
