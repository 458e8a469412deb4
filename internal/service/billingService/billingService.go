package billingService

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/KotFed0t/finplan/config"
	"github.com/KotFed0t/finplan/data/repository"
	"github.com/KotFed0t/finplan/internal/events"
	"github.com/KotFed0t/finplan/internal/metrics"
	"github.com/KotFed0t/finplan/internal/model"
	"github.com/KotFed0t/finplan/internal/service"
	"github.com/KotFed0t/finplan/utils"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
)

type Repository interface {
	WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error
	InsertCoupon(ctx context.Context, c model.Coupon) (model.Coupon, error)
	GetCouponByCode(ctx context.Context, code string) (model.Coupon, error)
	ListCoupons(ctx context.Context) ([]model.Coupon, error)
	SetCouponActive(ctx context.Context, id uuid.UUID, active bool) error
	RedeemCoupon(ctx context.Context, id uuid.UUID) error
	CountUserCouponUses(ctx context.Context, couponID, userID uuid.UUID) (int, error)
	GetPlan(ctx context.Context, id uuid.UUID) (model.SubscriptionPlan, error)
	ListPlans(ctx context.Context) ([]model.SubscriptionPlan, error)
	InsertPayment(ctx context.Context, payment model.Payment) (model.Payment, error)
	GetPayment(ctx context.Context, id uuid.UUID) (model.Payment, error)
	ListPayments(ctx context.Context, userID *uuid.UUID, status *model.PaymentStatus) ([]model.Payment, error)
	ListStalePayments(ctx context.Context, cutoff time.Time) ([]model.Payment, error)
	UpdatePaymentStatus(ctx context.Context, payment model.Payment, prev model.PaymentStatus) error
	GetSubscription(ctx context.Context, userID uuid.UUID) (model.Subscription, error)
	UpsertSubscription(ctx context.Context, sub model.Subscription) error
}

type BillingService struct {
	repo       Repository
	publisher  events.Publisher
	clock      clockwork.Clock
	pendingTTL time.Duration
}

func New(cfg *config.Config, repo Repository, publisher events.Publisher, clock clockwork.Clock) *BillingService {
	return &BillingService{
		repo:       repo,
		publisher:  publisher,
		clock:      clock,
		pendingTTL: cfg.Payments.PendingTTL,
	}
}

func (s *BillingService) CreateCoupon(ctx context.Context, in model.CouponInput) (model.Coupon, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "BillingService.CreateCoupon"

	c, err := model.NewCoupon(in)
	if err != nil {
		return model.Coupon{}, err
	}

	c, err = s.repo.InsertCoupon(ctx, c)
	if err != nil {
		slog.Error("got error from repo.InsertCoupon", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Coupon{}, service.FromRepo(err)
	}

	slog.Info("coupon created", slog.String("rqID", rqID), slog.String("op", op), slog.String("code", c.Code))
	return c, nil
}

func (s *BillingService) ListCoupons(ctx context.Context) ([]model.Coupon, error) {
	coupons, err := s.repo.ListCoupons(ctx)
	if err != nil {
		slog.Error("got error from repo.ListCoupons", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("err", err.Error()))
		return nil, err
	}
	return coupons, nil
}

func (s *BillingService) SetCouponActive(ctx context.Context, id uuid.UUID, active bool) error {
	if err := s.repo.SetCouponActive(ctx, id, active); err != nil {
		slog.Error("got error from repo.SetCouponActive", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("err", err.Error()))
		return service.FromRepo(err)
	}
	return nil
}

// ValidateCoupon prices amount with the coupon as the user would be charged,
// enforcing expiry, activity, the global and per-user caps and the minimum
// order amount.
func (s *BillingService) ValidateCoupon(ctx context.Context, userID uuid.UUID, code string, amount decimal.Decimal) (model.CouponQuote, error) {
	_, quote, err := s.quote(ctx, userID, code, amount)
	return quote, err
}

func (s *BillingService) quote(ctx context.Context, userID uuid.UUID, code string, amount decimal.Decimal) (model.Coupon, model.CouponQuote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "BillingService.quote"

	code = model.NormalizeCouponCode(code)
	if code == "" {
		return model.Coupon{}, model.CouponQuote{}, fmt.Errorf("%w: coupon code is required", service.ErrValidation)
	}

	c, err := s.repo.GetCouponByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Coupon{}, model.CouponQuote{}, fmt.Errorf("%w: unknown code %q", service.ErrCouponInvalid, code)
		}
		slog.Error("got error from repo.GetCouponByCode", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Coupon{}, model.CouponQuote{}, err
	}

	if err = c.Validate(s.clock.Now()); err != nil {
		return model.Coupon{}, model.CouponQuote{}, fmt.Errorf("%w: %w", service.ErrCouponInvalid, err)
	}
	if err = c.CheckOrder(amount); err != nil {
		return model.Coupon{}, model.CouponQuote{}, fmt.Errorf("%w: %w", service.ErrCouponInvalid, err)
	}

	if c.MaxUsesPerUser != nil {
		used, err := s.repo.CountUserCouponUses(ctx, c.ID, userID)
		if err != nil {
			slog.Error("got error from repo.CountUserCouponUses", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return model.Coupon{}, model.CouponQuote{}, err
		}
		if used >= *c.MaxUsesPerUser {
			return model.Coupon{}, model.CouponQuote{}, fmt.Errorf("%w: per-user limit of %d reached", service.ErrCouponInvalid, *c.MaxUsesPerUser)
		}
	}

	return c, c.Quote(amount), nil
}

func (s *BillingService) ListPlans(ctx context.Context) ([]model.SubscriptionPlan, error) {
	plans, err := s.repo.ListPlans(ctx)
	if err != nil {
		slog.Error("got error from repo.ListPlans", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("err", err.Error()))
		return nil, err
	}
	return plans, nil
}

// CreatePayment opens a pending manual payment for a plan. The coupon, when
// given, is redeemed in the same database transaction as the insert.
func (s *BillingService) CreatePayment(ctx context.Context, userID uuid.UUID, in model.PaymentInput) (payment model.Payment, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "BillingService.CreatePayment"

	slog.Debug("CreatePayment start", slog.String("rqID", rqID), slog.String("op", op), slog.String("planID", in.PlanID.String()))
	defer func() {
		slog.Debug("CreatePayment finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("paymentID", payment.ID.String()))
	}()

	method, err := model.ParsePaymentMethod(in.PaymentMethod)
	if err != nil {
		return model.Payment{}, err
	}

	plan, err := s.repo.GetPlan(ctx, in.PlanID)
	if err != nil {
		return model.Payment{}, service.FromRepo(err)
	}
	if !plan.IsActive {
		return model.Payment{}, fmt.Errorf("%w: plan %s is not available", service.ErrValidation, plan.Name)
	}

	payment = model.Payment{
		ID:             uuid.New(),
		UserID:         userID,
		PlanID:         plan.ID,
		PaymentMethod:  method,
		BaseAmount:     plan.Price,
		DiscountAmount: decimal.Zero,
		FinalAmount:    plan.Price,
		Currency:       plan.Currency,
		Status:         model.PaymentStatusPending,
	}

	withCoupon := strings.TrimSpace(in.CouponCode) != ""

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		if withCoupon {
			c, quote, err := s.quote(ctx, userID, in.CouponCode, plan.Price)
			if err != nil {
				return err
			}
			if err = s.repo.RedeemCoupon(ctx, c.ID); err != nil {
				if errors.Is(err, model.ErrCouponExhausted) {
					return fmt.Errorf("%w: %w", service.ErrCouponInvalid, err)
				}
				slog.Error("got error from repo.RedeemCoupon", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
				return err
			}

			couponID := c.ID
			payment.CouponID = &couponID
			payment.CouponCode = c.Code
			payment.DiscountAmount = quote.DiscountAmount
			payment.FinalAmount = quote.FinalAmount
		}

		created, err := s.repo.InsertPayment(ctx, payment)
		if err != nil {
			slog.Error("got error from repo.InsertPayment", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return service.FromRepo(err)
		}
		payment = created
		return nil
	})
	if err != nil {
		return model.Payment{}, err
	}

	if withCoupon {
		metrics.RecordCouponRedemption()
	}
	return payment, nil
}

// Submit is the user's pending -> submitted step, carrying the transfer
// reference.
func (s *BillingService) Submit(ctx context.Context, userID, id uuid.UUID, reference string) (model.Payment, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return model.Payment{}, fmt.Errorf("%w: payment reference is required", service.ErrValidation)
	}

	return s.transition(ctx, id, "BillingService.Submit", func(p *model.Payment) error {
		if p.UserID != userID {
			return service.ErrForbidden
		}
		if err := p.Transition(model.PaymentStatusSubmitted, s.clock.Now(), "", ""); err != nil {
			return err
		}
		p.Reference = reference
		return nil
	})
}

// ChangeStatus applies an admin transition. Approval extends the user's
// subscription by the plan duration in the same database transaction.
func (s *BillingService) ChangeStatus(ctx context.Context, id uuid.UUID, change model.StatusChange) (model.Payment, error) {
	next, err := model.ParsePaymentStatus(change.Status)
	if err != nil {
		return model.Payment{}, err
	}
	if next == model.PaymentStatusSubmitted {
		return model.Payment{}, fmt.Errorf("%w: only the payer submits a payment", service.ErrInvalidTransition)
	}

	return s.transition(ctx, id, "BillingService.ChangeStatus", func(p *model.Payment) error {
		now := s.clock.Now()
		if err := p.Transition(next, now, change.AdminNotes, change.RejectionReason); err != nil {
			return err
		}
		if next == model.PaymentStatusApproved {
			return s.extendSubscription(ctx, *p, now)
		}
		return nil
	})
}

func (s *BillingService) transition(ctx context.Context, id uuid.UUID, op string, apply func(p *model.Payment) error) (payment model.Payment, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	var prev model.PaymentStatus
	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		payment, err = s.repo.GetPayment(ctx, id)
		if err != nil {
			return service.FromRepo(err)
		}
		prev = payment.Status

		if err = apply(&payment); err != nil {
			return err
		}

		if err = s.repo.UpdatePaymentStatus(ctx, payment, prev); err != nil {
			slog.Error("got error from repo.UpdatePaymentStatus", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return service.FromRepo(err)
		}
		return nil
	})
	if err != nil {
		return model.Payment{}, err
	}

	slog.Info("payment status changed",
		slog.String("rqID", rqID),
		slog.String("op", op),
		slog.String("paymentID", id.String()),
		slog.String("from", string(prev)),
		slog.String("to", string(payment.Status)),
	)
	metrics.RecordPaymentTransition(string(prev), string(payment.Status))
	events.Emit(ctx, s.publisher, events.PaymentStatusChanged, payment.UserID, payment)

	return payment, nil
}

func (s *BillingService) extendSubscription(ctx context.Context, p model.Payment, now time.Time) error {
	plan, err := s.repo.GetPlan(ctx, p.PlanID)
	if err != nil {
		return service.FromRepo(err)
	}

	var current *model.Subscription
	sub, err := s.repo.GetSubscription(ctx, p.UserID)
	switch {
	case err == nil:
		current = &sub
	case !errors.Is(err, repository.ErrNotFound):
		return err
	}

	return s.repo.UpsertSubscription(ctx, model.ExtendSubscription(current, p.UserID, plan, now))
}

func (s *BillingService) GetPayment(ctx context.Context, userID *uuid.UUID, id uuid.UUID) (model.Payment, error) {
	p, err := s.repo.GetPayment(ctx, id)
	if err != nil {
		return model.Payment{}, service.FromRepo(err)
	}
	if userID != nil && p.UserID != *userID {
		return model.Payment{}, service.ErrForbidden
	}
	return p, nil
}

// ListPayments lists payments of one user, or of everyone when userID is nil.
func (s *BillingService) ListPayments(ctx context.Context, userID *uuid.UUID, status string) ([]model.Payment, error) {
	var filter *model.PaymentStatus
	if status != "" {
		st, err := model.ParsePaymentStatus(status)
		if err != nil {
			return nil, err
		}
		filter = &st
	}

	payments, err := s.repo.ListPayments(ctx, userID, filter)
	if err != nil {
		slog.Error("got error from repo.ListPayments", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("err", err.Error()))
		return nil, err
	}
	return payments, nil
}

func (s *BillingService) GetSubscription(ctx context.Context, userID uuid.UUID) (model.Subscription, error) {
	sub, err := s.repo.GetSubscription(ctx, userID)
	if err != nil {
		return model.Subscription{}, service.FromRepo(err)
	}
	return sub, nil
}

// ExpireStale moves pending and submitted payments older than the pending TTL
// to expired. Payments changed concurrently are skipped.
func (s *BillingService) ExpireStale(ctx context.Context) (expired int, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "BillingService.ExpireStale"

	slog.Debug("ExpireStale start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("ExpireStale finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int("expired", expired))
	}()

	now := s.clock.Now()
	stale, err := s.repo.ListStalePayments(ctx, now.Add(-s.pendingTTL))
	if err != nil {
		slog.Error("got error from repo.ListStalePayments", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return 0, err
	}

	for _, p := range stale {
		prev := p.Status
		if err = p.Transition(model.PaymentStatusExpired, now, "", ""); err != nil {
			slog.Warn("payment can not expire", slog.String("rqID", rqID), slog.String("op", op), slog.String("paymentID", p.ID.String()), slog.String("err", err.Error()))
			continue
		}
		if err = s.repo.UpdatePaymentStatus(ctx, p, prev); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				continue
			}
			slog.Error("got error from repo.UpdatePaymentStatus", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return expired, err
		}
		metrics.RecordPaymentTransition(string(prev), string(p.Status))
		events.Emit(ctx, s.publisher, events.PaymentStatusChanged, p.UserID, p)
		expired++
	}

	return expired, nil
}
