package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayment_Lifecycle(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	p := Payment{ID: uuid.New(), Status: PaymentStatusPending}

	require.NoError(t, p.Transition(PaymentStatusSubmitted, now, "", ""))
	require.NoError(t, p.Transition(PaymentStatusVerified, now.Add(time.Hour), "utr matched", ""))
	require.NoError(t, p.Transition(PaymentStatusApproved, now.Add(2*time.Hour), "", ""))

	assert.Equal(t, PaymentStatusApproved, p.Status)
	assert.NotNil(t, p.SubmittedAt)
	assert.NotNil(t, p.VerifiedAt)
	assert.NotNil(t, p.ApprovedAt)
	assert.Equal(t, "utr matched", p.AdminNotes)

	err := p.Transition(PaymentStatusRejected, now.Add(3*time.Hour), "", "late")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, PaymentStatusApproved, p.Status)
	assert.Nil(t, p.RejectedAt)
}

func TestPayment_Reject(t *testing.T) {
	p := Payment{Status: PaymentStatusSubmitted}
	require.NoError(t, p.Transition(PaymentStatusRejected, time.Now(), "", " wrong amount "))
	assert.Equal(t, "wrong amount", p.RejectionReason)
	assert.True(t, p.Status.IsTerminal())
}

func TestPaymentStatus_Transitions(t *testing.T) {
	assert.True(t, PaymentStatusPending.CanTransitionTo(PaymentStatusExpired))
	assert.False(t, PaymentStatusPending.CanTransitionTo(PaymentStatusApproved))
	assert.False(t, PaymentStatusVerified.CanTransitionTo(PaymentStatusExpired))
	assert.False(t, PaymentStatusExpired.CanTransitionTo(PaymentStatusPending))

	for _, s := range []PaymentStatus{PaymentStatusApproved, PaymentStatusRejected, PaymentStatusExpired} {
		assert.True(t, s.IsTerminal(), s)
	}
}

func TestExtendSubscription(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	userID := uuid.New()
	plan := SubscriptionPlan{ID: uuid.New(), DurationDays: 30}

	fresh := ExtendSubscription(nil, userID, plan, now)
	assert.True(t, now.AddDate(0, 0, 30).Equal(fresh.ExpiresAt))

	extended := ExtendSubscription(&fresh, userID, plan, now.AddDate(0, 0, 10))
	assert.True(t, now.AddDate(0, 0, 60).Equal(extended.ExpiresAt))
	assert.True(t, now.Equal(extended.StartsAt))

	lapsed := ExtendSubscription(&fresh, userID, plan, now.AddDate(0, 0, 40))
	assert.True(t, now.AddDate(0, 0, 70).Equal(lapsed.ExpiresAt))
}
