package billingService

import (
	"context"
	"testing"
	"time"

	"github.com/KotFed0t/finplan/config"
	"github.com/KotFed0t/finplan/data/repository"
	"github.com/KotFed0t/finplan/internal/events"
	"github.com/KotFed0t/finplan/internal/model"
	"github.com/KotFed0t/finplan/internal/service"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	coupons       map[string]model.Coupon
	plans         map[uuid.UUID]model.SubscriptionPlan
	payments      map[uuid.UUID]model.Payment
	subscriptions map[uuid.UUID]model.Subscription
	userUses      int
	staleCutoff   time.Time
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		coupons:       make(map[string]model.Coupon),
		plans:         make(map[uuid.UUID]model.SubscriptionPlan),
		payments:      make(map[uuid.UUID]model.Payment),
		subscriptions: make(map[uuid.UUID]model.Subscription),
	}
}

func (r *fakeRepo) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	coupons := make(map[string]model.Coupon, len(r.coupons))
	for k, v := range r.coupons {
		coupons[k] = v
	}
	subs := make(map[uuid.UUID]model.Subscription, len(r.subscriptions))
	for k, v := range r.subscriptions {
		subs[k] = v
	}
	if err := fn(ctx); err != nil {
		r.coupons, r.subscriptions = coupons, subs
		return err
	}
	return nil
}

func (r *fakeRepo) InsertCoupon(_ context.Context, c model.Coupon) (model.Coupon, error) {
	if _, ok := r.coupons[c.Code]; ok {
		return model.Coupon{}, repository.ErrAlreadyExists
	}
	r.coupons[c.Code] = c
	return c, nil
}

func (r *fakeRepo) GetCouponByCode(_ context.Context, code string) (model.Coupon, error) {
	c, ok := r.coupons[code]
	if !ok {
		return model.Coupon{}, repository.ErrNotFound
	}
	return c, nil
}

func (r *fakeRepo) ListCoupons(_ context.Context) ([]model.Coupon, error) {
	res := make([]model.Coupon, 0, len(r.coupons))
	for _, c := range r.coupons {
		res = append(res, c)
	}
	return res, nil
}

func (r *fakeRepo) SetCouponActive(_ context.Context, id uuid.UUID, active bool) error {
	for code, c := range r.coupons {
		if c.ID == id {
			c.IsActive = active
			r.coupons[code] = c
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeRepo) RedeemCoupon(_ context.Context, id uuid.UUID) error {
	for code, c := range r.coupons {
		if c.ID == id {
			if c.MaxUses != nil && c.UsedCount >= *c.MaxUses {
				return model.ErrCouponExhausted
			}
			c.UsedCount++
			r.coupons[code] = c
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeRepo) CountUserCouponUses(_ context.Context, _, _ uuid.UUID) (int, error) {
	return r.userUses, nil
}

func (r *fakeRepo) GetPlan(_ context.Context, id uuid.UUID) (model.SubscriptionPlan, error) {
	p, ok := r.plans[id]
	if !ok {
		return model.SubscriptionPlan{}, repository.ErrNotFound
	}
	return p, nil
}

func (r *fakeRepo) ListPlans(_ context.Context) ([]model.SubscriptionPlan, error) {
	res := make([]model.SubscriptionPlan, 0, len(r.plans))
	for _, p := range r.plans {
		res = append(res, p)
	}
	return res, nil
}

func (r *fakeRepo) InsertPayment(_ context.Context, p model.Payment) (model.Payment, error) {
	r.payments[p.ID] = p
	return p, nil
}

func (r *fakeRepo) GetPayment(_ context.Context, id uuid.UUID) (model.Payment, error) {
	p, ok := r.payments[id]
	if !ok {
		return model.Payment{}, repository.ErrNotFound
	}
	return p, nil
}

func (r *fakeRepo) ListPayments(_ context.Context, userID *uuid.UUID, status *model.PaymentStatus) ([]model.Payment, error) {
	var res []model.Payment
	for _, p := range r.payments {
		if userID != nil && p.UserID != *userID {
			continue
		}
		if status != nil && p.Status != *status {
			continue
		}
		res = append(res, p)
	}
	return res, nil
}

func (r *fakeRepo) ListStalePayments(_ context.Context, cutoff time.Time) ([]model.Payment, error) {
	r.staleCutoff = cutoff
	var res []model.Payment
	for _, p := range r.payments {
		if (p.Status == model.PaymentStatusPending || p.Status == model.PaymentStatusSubmitted) && p.CreatedAt.Before(cutoff) {
			res = append(res, p)
		}
	}
	return res, nil
}

func (r *fakeRepo) UpdatePaymentStatus(_ context.Context, p model.Payment, prev model.PaymentStatus) error {
	stored, ok := r.payments[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Status != prev {
		return repository.ErrConflict
	}
	r.payments[p.ID] = p
	return nil
}

func (r *fakeRepo) GetSubscription(_ context.Context, userID uuid.UUID) (model.Subscription, error) {
	s, ok := r.subscriptions[userID]
	if !ok {
		return model.Subscription{}, repository.ErrNotFound
	}
	return s, nil
}

func (r *fakeRepo) UpsertSubscription(_ context.Context, sub model.Subscription) error {
	r.subscriptions[sub.UserID] = sub
	return nil
}

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newService(repo *fakeRepo) *BillingService {
	cfg := &config.Config{Payments: config.Payments{PendingTTL: 72 * time.Hour}}
	return New(cfg, repo, events.NopPublisher{}, clockwork.NewFakeClockAt(now))
}

func ptr[T any](v T) *T { return &v }

func addPlan(repo *fakeRepo, price int64, days int) model.SubscriptionPlan {
	plan := model.SubscriptionPlan{
		ID:           uuid.New(),
		Name:         "pro",
		Price:        decimal.NewFromInt(price),
		Currency:     "INR",
		DurationDays: days,
		IsActive:     true,
	}
	repo.plans[plan.ID] = plan
	return plan
}

func TestValidateCoupon(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.CreateCoupon(ctx, model.CouponInput{
		Code:              " save20 ",
		DiscountType:      "percentage",
		Value:             decimal.NewFromInt(20),
		MaxDiscountAmount: ptr(decimal.NewFromInt(500)),
		MinOrderAmount:    ptr(decimal.NewFromInt(1000)),
		MaxUsesPerUser:    ptr(1),
	})
	require.NoError(t, err)

	quote, err := svc.ValidateCoupon(ctx, userID, "Save20", decimal.NewFromInt(4000))
	require.NoError(t, err)
	assert.Equal(t, "SAVE20", quote.Code)
	assert.True(t, quote.DiscountAmount.Equal(decimal.NewFromInt(500)))
	assert.True(t, quote.FinalAmount.Equal(decimal.NewFromInt(3500)))

	_, err = svc.ValidateCoupon(ctx, userID, "SAVE20", decimal.NewFromInt(999))
	assert.ErrorIs(t, err, service.ErrCouponInvalid)
	assert.ErrorIs(t, err, model.ErrCouponMinOrder)

	_, err = svc.ValidateCoupon(ctx, userID, "NOPE", decimal.NewFromInt(4000))
	assert.ErrorIs(t, err, service.ErrCouponInvalid)

	repo.userUses = 1
	_, err = svc.ValidateCoupon(ctx, userID, "SAVE20", decimal.NewFromInt(4000))
	assert.ErrorIs(t, err, service.ErrCouponInvalid)
}

func TestValidateCoupon_ExpiredEvenIfActive(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)

	_, err := svc.CreateCoupon(context.Background(), model.CouponInput{
		Code:         "OLD",
		DiscountType: "fixed",
		Value:        decimal.NewFromInt(100),
		ExpiresAt:    ptr(now.Add(-time.Hour)),
	})
	require.NoError(t, err)

	_, err = svc.ValidateCoupon(context.Background(), uuid.New(), "old", decimal.NewFromInt(500))
	assert.ErrorIs(t, err, model.ErrCouponExpired)
}

func TestCreatePayment_WithCoupon(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)
	ctx := context.Background()
	plan := addPlan(repo, 2999, 365)

	_, err := svc.CreateCoupon(ctx, model.CouponInput{Code: "FLAT", DiscountType: "fixed", Value: decimal.NewFromInt(500), MaxUses: ptr(1)})
	require.NoError(t, err)

	p, err := svc.CreatePayment(ctx, uuid.New(), model.PaymentInput{PlanID: plan.ID, PaymentMethod: "upi", CouponCode: "flat"})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPending, p.Status)
	assert.True(t, p.FinalAmount.Equal(decimal.NewFromInt(2499)))
	assert.Equal(t, "FLAT", p.CouponCode)
	assert.Equal(t, 1, repo.coupons["FLAT"].UsedCount)

	_, err = svc.CreatePayment(ctx, uuid.New(), model.PaymentInput{PlanID: plan.ID, PaymentMethod: "upi", CouponCode: "FLAT"})
	assert.ErrorIs(t, err, model.ErrCouponExhausted)
	assert.Len(t, repo.payments, 1)
}

func TestCreatePayment_Validation(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)
	plan := addPlan(repo, 299, 30)

	_, err := svc.CreatePayment(context.Background(), uuid.New(), model.PaymentInput{PlanID: plan.ID, PaymentMethod: "cheque"})
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = svc.CreatePayment(context.Background(), uuid.New(), model.PaymentInput{PlanID: uuid.New(), PaymentMethod: "upi"})
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestPaymentLifecycle_ApprovalExtendsSubscription(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)
	ctx := context.Background()
	userID := uuid.New()
	plan := addPlan(repo, 299, 30)

	p, err := svc.CreatePayment(ctx, userID, model.PaymentInput{PlanID: plan.ID, PaymentMethod: "bank_transfer"})
	require.NoError(t, err)

	_, err = svc.Submit(ctx, uuid.New(), p.ID, "UTR1")
	assert.ErrorIs(t, err, service.ErrForbidden)

	p, err = svc.Submit(ctx, userID, p.ID, " UTR123 ")
	require.NoError(t, err)
	assert.Equal(t, "UTR123", p.Reference)
	require.NotNil(t, p.SubmittedAt)

	_, err = svc.ChangeStatus(ctx, p.ID, model.StatusChange{Status: "verified"})
	require.NoError(t, err)
	p, err = svc.ChangeStatus(ctx, p.ID, model.StatusChange{Status: "approved", AdminNotes: "ok"})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusApproved, p.Status)
	assert.Equal(t, "ok", p.AdminNotes)

	sub, err := svc.GetSubscription(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, now.Add(30*24*time.Hour), sub.ExpiresAt)

	_, err = svc.ChangeStatus(ctx, p.ID, model.StatusChange{Status: "rejected"})
	assert.ErrorIs(t, err, service.ErrInvalidTransition)
	assert.Equal(t, model.PaymentStatusApproved, repo.payments[p.ID].Status)
}

func TestChangeStatus_AdminCannotSubmit(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)
	plan := addPlan(repo, 299, 30)
	p, err := svc.CreatePayment(context.Background(), uuid.New(), model.PaymentInput{PlanID: plan.ID, PaymentMethod: "upi"})
	require.NoError(t, err)

	_, err = svc.ChangeStatus(context.Background(), p.ID, model.StatusChange{Status: "submitted"})
	assert.ErrorIs(t, err, service.ErrInvalidTransition)
}

func TestExpireStale(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)

	old := now.Add(-100 * time.Hour)
	fresh := now.Add(-time.Hour)
	payments := []model.Payment{
		{ID: uuid.New(), Status: model.PaymentStatusPending, CreatedAt: old},
		{ID: uuid.New(), Status: model.PaymentStatusSubmitted, CreatedAt: old},
		{ID: uuid.New(), Status: model.PaymentStatusVerified, CreatedAt: old},
		{ID: uuid.New(), Status: model.PaymentStatusPending, CreatedAt: fresh},
	}
	for _, p := range payments {
		repo.payments[p.ID] = p
	}

	expired, err := svc.ExpireStale(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, expired)
	assert.Equal(t, now.Add(-72*time.Hour), repo.staleCutoff)

	assert.Equal(t, model.PaymentStatusExpired, repo.payments[payments[0].ID].Status)
	assert.NotNil(t, repo.payments[payments[1].ID].ExpiredAt)
	assert.Equal(t, model.PaymentStatusVerified, repo.payments[payments[2].ID].Status)
	assert.Equal(t, model.PaymentStatusPending, repo.payments[payments[3].ID].Status)
}

func TestListPayments_StatusFilter(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)
	userID := uuid.New()
	repo.payments[uuid.New()] = model.Payment{UserID: userID, Status: model.PaymentStatusPending}
	repo.payments[uuid.New()] = model.Payment{UserID: userID, Status: model.PaymentStatusApproved}

	list, err := svc.ListPayments(context.Background(), &userID, "approved")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.ListPayments(context.Background(), nil, "lost")
	assert.ErrorIs(t, err, service.ErrValidation)
}
