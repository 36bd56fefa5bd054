package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"timetable/internal/core"
)

func (h *Handler) settingsBody() fiber.Map {
	return fiber.Map{"grades": h.svc.ListGrades(), "subjects": h.svc.ListSubjects()}
}

func (h *Handler) getSettings(c *fiber.Ctx) error {
	return c.JSON(h.settingsBody())
}

func (h *Handler) toggleGrade(c *fiber.Ctx) error {
	grade, ok, err := h.gradeParam(c)
	if !ok {
		return err
	}
	updated, res, err := h.svc.ToggleGrade(c.UserContext(), grade)
	if err != nil {
		return h.fail(c, "toggle_grade", err)
	}
	return c.JSON(fiber.Map{"grade": updated, "changed": res.Changed()})
}

func (h *Handler) setClassCount(c *fiber.Ctx) error {
	grade, ok, err := h.gradeParam(c)
	if !ok {
		return err
	}
	var req classCountRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}
	updated, res, err := h.svc.SetClassCount(c.UserContext(), grade, *req.ClassCount)
	if err != nil {
		return h.fail(c, "set_class_count", err)
	}
	return c.JSON(fiber.Map{"grade": updated, "changed": res.Changed()})
}

func (h *Handler) addSubject(c *fiber.Ctx) error {
	var req subjectRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}
	created, _, err := h.svc.AddSubject(c.UserContext(), req.Name, req.Color)
	if err != nil {
		return h.fail(c, "add_subject", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"subject": created})
}

func (h *Handler) updateSubject(c *fiber.Ctx) error {
	var req subjectPatch
	if ok, err := h.bind(c, &req); !ok {
		return err
	}
	updated, res, err := h.svc.UpdateSubject(c.UserContext(), c.Params("id"), func(s *core.Subject) {
		if req.Name != nil {
			s.Name = *req.Name
		}
		if req.Color != nil {
			s.Color = *req.Color
		}
	})
	if err != nil {
		return h.fail(c, "update_subject", err)
	}
	return c.JSON(fiber.Map{"subject": updated, "changed": res.Changed()})
}

func (h *Handler) removeSubject(c *fiber.Ctx) error {
	if _, err := h.svc.RemoveSubject(c.UserContext(), c.Params("id")); err != nil {
		return h.fail(c, "remove_subject", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) resetSettings(c *fiber.Ctx) error {
	if _, err := h.svc.ResetSettings(c.UserContext()); err != nil {
		return h.fail(c, "reset_settings", err)
	}
	return c.JSON(h.settingsBody())
}
