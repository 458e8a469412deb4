package http

import (
	"github.com/KotFed0t/finplan/internal/model"
	"github.com/gofiber/fiber/v2"
)

func (h *Handler) CreateTransaction(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var in model.TransactionInput
	if err := bind(c, &in); err != nil {
		return err
	}

	res, err := h.transactions.Create(requestCtx(c), userID, in)
	if err != nil {
		return err
	}
	return created(c, res)
}

func (h *Handler) UpdateTransaction(c *fiber.Ctx) error {
	userID, id, err := userAndID(c)
	if err != nil {
		return err
	}
	var patch model.TransactionPatch
	if err := bind(c, &patch); err != nil {
		return err
	}

	res, err := h.transactions.Update(requestCtx(c), userID, id, patch)
	if err != nil {
		return err
	}
	return ok(c, res)
}

// ListTransactions supports investment_id, portfolio_id, type (comma
// separated), from, to, platform and limit query filters.
func (h *Handler) ListTransactions(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	filter, err := transactionFilter(c)
	if err != nil {
		return err
	}
	filter.UserID = userID

	list, err := h.transactions.List(requestCtx(c), filter)
	if err != nil {
		return err
	}
	return ok(c, list)
}

func transactionFilter(c *fiber.Ctx) (f model.TransactionFilter, err error) {
	if f.InvestmentID, err = queryUUID(c, "investment_id"); err != nil {
		return f, err
	}
	if f.PortfolioID, err = queryUUID(c, "portfolio_id"); err != nil {
		return f, err
	}
	if f.From, err = queryDate(c, "from"); err != nil {
		return f, err
	}
	if f.To, err = queryDate(c, "to"); err != nil {
		return f, err
	}
	if f.Limit, err = queryInt(c, "limit", 0); err != nil {
		return f, err
	}
	for _, raw := range splitList(c.Query("type")) {
		txType, err := model.ParseTransactionType(raw)
		if err != nil {
			return f, err
		}
		f.Types = append(f.Types, txType)
	}
	f.Platform = c.Query("platform")
	return f, nil
}
