package http

import (
	"github.com/KotFed0t/finplan/internal/model"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

const defaultHistoryLimit = 100

type priceRequest struct {
	Price decimal.Decimal `json:"price"`
}

func (h *Handler) CreateInvestment(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var in model.InvestmentInput
	if err := bind(c, &in); err != nil {
		return err
	}

	res, err := h.investments.Create(requestCtx(c), userID, in)
	if err != nil {
		return err
	}
	return created(c, res)
}

func (h *Handler) ListInvestments(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	list, err := h.investments.List(requestCtx(c), userID, c.QueryBool("include_closed"))
	if err != nil {
		return err
	}
	return ok(c, list)
}

func (h *Handler) GetInvestment(c *fiber.Ctx) error {
	userID, id, err := userAndID(c)
	if err != nil {
		return err
	}

	inv, err := h.investments.Get(requestCtx(c), userID, id)
	if err != nil {
		return err
	}
	return ok(c, inv)
}

func (h *Handler) UpdateInvestment(c *fiber.Ctx) error {
	userID, id, err := userAndID(c)
	if err != nil {
		return err
	}
	var patch model.InvestmentPatch
	if err := bind(c, &patch); err != nil {
		return err
	}

	inv, err := h.investments.Update(requestCtx(c), userID, id, patch)
	if err != nil {
		return err
	}
	return ok(c, inv)
}

func (h *Handler) UpdateInvestmentPrice(c *fiber.Ctx) error {
	userID, id, err := userAndID(c)
	if err != nil {
		return err
	}
	var req priceRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	inv, err := h.investments.UpdatePrice(requestCtx(c), userID, id, req.Price)
	if err != nil {
		return err
	}
	return ok(c, inv)
}

func (h *Handler) CloseInvestment(c *fiber.Ctx) error {
	userID, id, err := userAndID(c)
	if err != nil {
		return err
	}

	if err := h.investments.Close(requestCtx(c), userID, id); err != nil {
		return err
	}
	return done(c, "investment closed")
}

func (h *Handler) InvestmentCostBasis(c *fiber.Ctx) error {
	userID, id, err := userAndID(c)
	if err != nil {
		return err
	}

	basis, err := h.investments.CostBasis(requestCtx(c), userID, id)
	if err != nil {
		return err
	}
	return ok(c, basis)
}

func (h *Handler) InvestmentPriceHistory(c *fiber.Ctx) error {
	userID, id, err := userAndID(c)
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit", defaultHistoryLimit)
	if err != nil {
		return err
	}

	history, err := h.investments.PriceHistory(requestCtx(c), userID, id, limit)
	if err != nil {
		return err
	}
	return ok(c, history)
}
