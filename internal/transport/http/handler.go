package http

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/KotFed0t/finplan/internal/model"
	"github.com/KotFed0t/finplan/internal/service/analyticsService"
	"github.com/KotFed0t/finplan/internal/service/investmentService"
	"github.com/KotFed0t/finplan/internal/service/sipService"
	"github.com/KotFed0t/finplan/internal/service/transactionService"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PortfolioService interface {
	Create(ctx context.Context, userID uuid.UUID, in model.PortfolioInput) (model.Portfolio, error)
	Get(ctx context.Context, userID, id uuid.UUID) (model.PortfolioSummary, error)
	List(ctx context.Context, userID uuid.UUID) ([]model.PortfolioSummary, error)
	Update(ctx context.Context, userID, id uuid.UUID, patch model.PortfolioPatch) (model.Portfolio, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Performance(ctx context.Context, userID, id uuid.UUID) (model.PortfolioPerformance, error)
}

type InvestmentService interface {
	Create(ctx context.Context, userID uuid.UUID, in model.InvestmentInput) (investmentService.CreateResult, error)
	Get(ctx context.Context, userID, id uuid.UUID) (model.Investment, error)
	List(ctx context.Context, userID uuid.UUID, includeClosed bool) ([]model.Investment, error)
	Update(ctx context.Context, userID, id uuid.UUID, patch model.InvestmentPatch) (model.Investment, error)
	UpdatePrice(ctx context.Context, userID, id uuid.UUID, price decimal.Decimal) (model.Investment, error)
	Close(ctx context.Context, userID, id uuid.UUID) error
	CostBasis(ctx context.Context, userID, id uuid.UUID) (model.CostBasis, error)
	PriceHistory(ctx context.Context, userID, id uuid.UUID, limit int) ([]model.PricePoint, error)
}

type TransactionService interface {
	Create(ctx context.Context, userID uuid.UUID, in model.TransactionInput) (transactionService.Result, error)
	Update(ctx context.Context, userID, id uuid.UUID, patch model.TransactionPatch) (transactionService.Result, error)
	List(ctx context.Context, filter model.TransactionFilter) ([]model.Transaction, error)
}

type SIPService interface {
	Create(ctx context.Context, userID uuid.UUID, in model.TemplateInput) (model.Template, error)
	Get(ctx context.Context, userID, id uuid.UUID) (model.Template, error)
	List(ctx context.Context, userID uuid.UUID) ([]model.Template, error)
	Update(ctx context.Context, userID, id uuid.UUID, patch model.TemplatePatch) (model.Template, error)
	Toggle(ctx context.Context, userID, id uuid.UUID) (model.Template, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Duplicate(ctx context.Context, userID, id uuid.UUID) (model.Template, error)
	Due(ctx context.Context, userID *uuid.UUID) ([]model.Template, error)
	Execute(ctx context.Context, userID, id uuid.UUID) (sipService.Execution, error)
}

type BillingService interface {
	CreateCoupon(ctx context.Context, in model.CouponInput) (model.Coupon, error)
	ListCoupons(ctx context.Context) ([]model.Coupon, error)
	SetCouponActive(ctx context.Context, id uuid.UUID, active bool) error
	ValidateCoupon(ctx context.Context, userID uuid.UUID, code string, amount decimal.Decimal) (model.CouponQuote, error)
	ListPlans(ctx context.Context) ([]model.SubscriptionPlan, error)
	CreatePayment(ctx context.Context, userID uuid.UUID, in model.PaymentInput) (model.Payment, error)
	Submit(ctx context.Context, userID, id uuid.UUID, reference string) (model.Payment, error)
	ChangeStatus(ctx context.Context, id uuid.UUID, change model.StatusChange) (model.Payment, error)
	GetPayment(ctx context.Context, userID *uuid.UUID, id uuid.UUID) (model.Payment, error)
	ListPayments(ctx context.Context, userID *uuid.UUID, status string) ([]model.Payment, error)
	GetSubscription(ctx context.Context, userID uuid.UUID) (model.Subscription, error)
}

type AnalyticsService interface {
	Dashboard(ctx context.Context, userID uuid.UUID) (model.Dashboard, error)
	ExportReport(ctx context.Context, userID uuid.UUID) (analyticsService.ReportLink, error)
}

type Services struct {
	Portfolios   PortfolioService
	Investments  InvestmentService
	Transactions TransactionService
	SIP          SIPService
	Billing      BillingService
	Analytics    AnalyticsService
}

type Handler struct {
	portfolios   PortfolioService
	investments  InvestmentService
	transactions TransactionService
	sip          SIPService
	billing      BillingService
	analytics    AnalyticsService
}

func NewHandler(s Services) *Handler {
	return &Handler{
		portfolios:   s.Portfolios,
		investments:  s.Investments,
		transactions: s.Transactions,
		sip:          s.SIP,
		billing:      s.Billing,
		analytics:    s.Analytics,
	}
}

func paramID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func bind(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return nil
}

// userAndID resolves the caller and the :id route param.
func userAndID(c *fiber.Ctx) (uuid.UUID, uuid.UUID, error) {
	userID, err := currentUser(c)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	id, err := paramID(c)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return userID, id, nil
}

func queryUUID(c *fiber.Ctx, key string) (*uuid.UUID, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+key)
	}
	return &id, nil
}

func queryDate(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	d, err := model.ParseDate(raw)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+key+", expected YYYY-MM-DD")
	}
	return &d, nil
}

func queryInt(c *fiber.Ctx, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+key)
	}
	return n, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			res = append(res, p)
		}
	}
	return res
}
