package http

import "github.com/gofiber/fiber/v2"

func (h *Handler) Dashboard(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	d, err := h.analytics.Dashboard(requestCtx(c), userID)
	if err != nil {
		return err
	}
	return ok(c, d)
}

func (h *Handler) ExportReport(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	link, err := h.analytics.ExportReport(requestCtx(c), userID)
	if err != nil {
		return err
	}
	return created(c, link)
}
