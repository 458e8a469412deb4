package http

import (
	"github.com/KotFed0t/finplan/internal/model"
	"github.com/gofiber/fiber/v2"
)

func (h *Handler) CreateTemplate(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var in model.TemplateInput
	if err := bind(c, &in); err != nil {
		return err
	}

	t, err := h.sip.Create(requestCtx(c), userID, in)
	if err != nil {
		return err
	}
	return created(c, t)
}

func (h *Handler) ListTemplates(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	list, err := h.sip.List(requestCtx(c), userID)
	if err != nil {
		return err
	}
	return ok(c, list)
}

func (h *Handler) DueTemplates(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	list, err := h.sip.Due(requestCtx(c), &userID)
	if err != nil {
		return err
	}
	return ok(c, list)
}

func (h *Handler) GetTemplate(c *fiber.Ctx) error {
	userID, id, err := userAndID(c)
	if err != nil {
		return err
	}

	t, err := h.sip.Get(requestCtx(c), userID, id)
	if err != nil {
		return err
	}
	return ok(c, t)
}

func (h *Handler) UpdateTemplate(c *fiber.Ctx) error {
	userID, id, err := userAndID(c)
	if err != nil {
		return err
	}
	var patch model.TemplatePatch
	if err := bind(c, &patch); err != nil {
		return err
	}

	t, err := h.sip.Update(requestCtx(c), userID, id, patch)
	if err != nil {
		return err
	}
	return ok(c, t)
}

func (h *Handler) ToggleTemplate(c *fiber.Ctx) error {
	userID, id, err := userAndID(c)
	if err != nil {
		return err
	}

	t, err := h.sip.Toggle(requestCtx(c), userID, id)
	if err != nil {
		return err
	}
	return ok(c, t)
}

func (h *Handler) DeleteTemplate(c *fiber.Ctx) error {
	userID, id, err := userAndID(c)
	if err != nil {
		return err
	}

	if err := h.sip.Delete(requestCtx(c), userID, id); err != nil {
		return err
	}
	return done(c, "template deleted")
}

func (h *Handler) DuplicateTemplate(c *fiber.Ctx) error {
	userID, id, err := userAndID(c)
	if err != nil {
		return err
	}

	t, err := h.sip.Duplicate(requestCtx(c), userID, id)
	if err != nil {
		return err
	}
	return created(c, t)
}

func (h *Handler) ExecuteTemplate(c *fiber.Ctx) error {
	userID, id, err := userAndID(c)
	if err != nil {
		return err
	}

	res, err := h.sip.Execute(requestCtx(c), userID, id)
	if err != nil {
		return err
	}
	return created(c, res)
}

// AdminDueTemplates lists due templates across all users, for the external
// auto-execution runner.
func (h *Handler) AdminDueTemplates(c *fiber.Ctx) error {
	list, err := h.sip.Due(requestCtx(c), nil)
	if err != nil {
		return err
	}
	return ok(c, list)
}
