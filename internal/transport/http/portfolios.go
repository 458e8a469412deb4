package http

import (
	"github.com/KotFed0t/finplan/internal/model"
	"github.com/gofiber/fiber/v2"
)

func (h *Handler) CreatePortfolio(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var in model.PortfolioInput
	if err := bind(c, &in); err != nil {
		return err
	}

	p, err := h.portfolios.Create(requestCtx(c), userID, in)
	if err != nil {
		return err
	}
	return created(c, p)
}

func (h *Handler) ListPortfolios(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	summaries, err := h.portfolios.List(requestCtx(c), userID)
	if err != nil {
		return err
	}
	return ok(c, summaries)
}

func (h *Handler) GetPortfolio(c *fiber.Ctx) error {
	userID, id, err := userAndID(c)
	if err != nil {
		return err
	}

	summary, err := h.portfolios.Get(requestCtx(c), userID, id)
	if err != nil {
		return err
	}
	return ok(c, summary)
}

func (h *Handler) UpdatePortfolio(c *fiber.Ctx) error {
	userID, id, err := userAndID(c)
	if err != nil {
		return err
	}
	var patch model.PortfolioPatch
	if err := bind(c, &patch); err != nil {
		return err
	}

	p, err := h.portfolios.Update(requestCtx(c), userID, id, patch)
	if err != nil {
		return err
	}
	return ok(c, p)
}

func (h *Handler) DeletePortfolio(c *fiber.Ctx) error {
	userID, id, err := userAndID(c)
	if err != nil {
		return err
	}

	if err := h.portfolios.Delete(requestCtx(c), userID, id); err != nil {
		return err
	}
	return done(c, "portfolio deleted")
}

func (h *Handler) PortfolioPerformance(c *fiber.Ctx) error {
	userID, id, err := userAndID(c)
	if err != nil {
		return err
	}

	perf, err := h.portfolios.Performance(requestCtx(c), userID, id)
	if err != nil {
		return err
	}
	return ok(c, perf)
}
