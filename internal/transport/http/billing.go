package http

import (
	"github.com/KotFed0t/finplan/internal/model"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type couponCheckRequest struct {
	Code   string          `json:"code"`
	Amount decimal.Decimal `json:"amount"`
}

type submitRequest struct {
	Reference string `json:"reference"`
}

type couponStateRequest struct {
	IsActive bool `json:"is_active"`
}

func (h *Handler) ListPlans(c *fiber.Ctx) error {
	plans, err := h.billing.ListPlans(requestCtx(c))
	if err != nil {
		return err
	}
	return ok(c, plans)
}

func (h *Handler) ValidateCoupon(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req couponCheckRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	quote, err := h.billing.ValidateCoupon(requestCtx(c), userID, req.Code, req.Amount)
	if err != nil {
		return err
	}
	return ok(c, quote)
}

func (h *Handler) CreatePayment(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var in model.PaymentInput
	if err := bind(c, &in); err != nil {
		return err
	}

	p, err := h.billing.CreatePayment(requestCtx(c), userID, in)
	if err != nil {
		return err
	}
	return created(c, p)
}

func (h *Handler) SubmitPayment(c *fiber.Ctx) error {
	userID, id, err := userAndID(c)
	if err != nil {
		return err
	}
	var req submitRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	p, err := h.billing.Submit(requestCtx(c), userID, id, req.Reference)
	if err != nil {
		return err
	}
	return ok(c, p)
}

func (h *Handler) GetPayment(c *fiber.Ctx) error {
	userID, id, err := userAndID(c)
	if err != nil {
		return err
	}

	p, err := h.billing.GetPayment(requestCtx(c), &userID, id)
	if err != nil {
		return err
	}
	return ok(c, p)
}

func (h *Handler) ListPayments(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	list, err := h.billing.ListPayments(requestCtx(c), &userID, c.Query("status"))
	if err != nil {
		return err
	}
	return ok(c, list)
}

func (h *Handler) GetSubscription(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	sub, err := h.billing.GetSubscription(requestCtx(c), userID)
	if err != nil {
		return err
	}
	return ok(c, sub)
}

func (h *Handler) AdminCreateCoupon(c *fiber.Ctx) error {
	var in model.CouponInput
	if err := bind(c, &in); err != nil {
		return err
	}

	coupon, err := h.billing.CreateCoupon(requestCtx(c), in)
	if err != nil {
		return err
	}
	return created(c, coupon)
}

func (h *Handler) AdminListCoupons(c *fiber.Ctx) error {
	list, err := h.billing.ListCoupons(requestCtx(c))
	if err != nil {
		return err
	}
	return ok(c, list)
}

func (h *Handler) AdminSetCouponActive(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var req couponStateRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.billing.SetCouponActive(requestCtx(c), id, req.IsActive); err != nil {
		return err
	}
	return done(c, "coupon updated")
}

// AdminListPayments accepts optional status and user_id filters.
func (h *Handler) AdminListPayments(c *fiber.Ctx) error {
	userID, err := queryUUID(c, "user_id")
	if err != nil {
		return err
	}

	list, err := h.billing.ListPayments(requestCtx(c), userID, c.Query("status"))
	if err != nil {
		return err
	}
	return ok(c, list)
}

func (h *Handler) AdminGetPayment(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}

	p, err := h.billing.GetPayment(requestCtx(c), nil, id)
	if err != nil {
		return err
	}
	return ok(c, p)
}

func (h *Handler) AdminChangePaymentStatus(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var change model.StatusChange
	if err := bind(c, &change); err != nil {
		return err
	}

	p, err := h.billing.ChangeStatus(requestCtx(c), id, change)
	if err != nil {
		return err
	}
	return ok(c, p)
}
