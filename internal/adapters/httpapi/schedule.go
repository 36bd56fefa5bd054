package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"timetable/internal/core"
	"timetable/pkg/domain"
)

// entryView is a lesson plus the kind of the first conflict it belongs to,
// which drives cell highlighting.
type entryView struct {
	core.ScheduleEntry
	ConflictType domain.ConflictType `json:"conflict_type,omitempty"`
}

func (h *Handler) entryViews(entries []core.ScheduleEntry) []entryView {
	out := make([]entryView, 0, len(entries))
	for _, e := range entries {
		kind, _ := h.svc.ConflictTypeForEntry(e.ID)
		out = append(out, entryView{ScheduleEntry: e, ConflictType: kind})
	}
	return out
}

// listSchedule filters by teacher_id, then grade, then grade+class, then the
// exact grade+class+day+period slot.
func (h *Handler) listSchedule(c *fiber.Ctx) error {
	grade, hasGrade, err := optionalInt(c, "grade")
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "grade must be an integer")
	}
	class, hasClass, err := optionalInt(c, "class")
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "class must be an integer")
	}
	period, hasPeriod, err := optionalInt(c, "period")
	if err != nil || (hasPeriod && !domain.Period(period).Valid()) {
		return writeError(c, fiber.StatusBadRequest, "period must be between 1 and 6")
	}
	day := domain.Day(c.Query("day"))
	hasDay := day != ""
	if hasDay && !day.Valid() {
		return writeError(c, fiber.StatusBadRequest, "day must be one of Mon Tue Wed Thu Fri")
	}
	slot := hasDay || hasPeriod

	var entries []core.ScheduleEntry
	switch teacherID := c.Query("teacher_id"); {
	case teacherID != "":
		entries = h.svc.EntriesByTeacher(teacherID)
	case slot && !(hasGrade && hasClass && hasDay && hasPeriod):
		return writeError(c, fiber.StatusBadRequest, "slot filter requires grade, class, day, and period")
	case slot:
		entries = h.svc.EntriesAt(domain.Grade(grade), class, day, domain.Period(period))
	case hasGrade && hasClass:
		entries = h.svc.EntriesByClass(domain.Grade(grade), class)
	case hasGrade:
		entries = h.svc.EntriesByGrade(domain.Grade(grade))
	case hasClass:
		return writeError(c, fiber.StatusBadRequest, "class filter requires grade")
	default:
		entries = h.svc.ListSchedule()
	}
	return c.JSON(fiber.Map{"entries": h.entryViews(entries)})
}

func (h *Handler) addEntry(c *fiber.Ctx) error {
	var req entryRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}
	created, res, err := h.svc.AddEntry(c.UserContext(), req.entry())
	if err != nil {
		return h.fail(c, "add_entry", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"entry":     created,
		"conflicts": conflictsFor(res.Conflicts, created.ID),
	})
}

func (h *Handler) updateEntry(c *fiber.Ctx) error {
	var req entryPatch
	if ok, err := h.bind(c, &req); !ok {
		return err
	}
	updated, res, err := h.svc.UpdateEntry(c.UserContext(), c.Params("id"), req.apply)
	if err != nil {
		return h.fail(c, "update_entry", err)
	}
	return c.JSON(fiber.Map{
		"entry":     updated,
		"changed":   res.Changed(),
		"conflicts": conflictsFor(res.Conflicts, updated.ID),
	})
}

func (h *Handler) removeEntry(c *fiber.Ctx) error {
	if _, err := h.svc.RemoveEntry(c.UserContext(), c.Params("id")); err != nil {
		return h.fail(c, "remove_entry", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) clearSchedule(c *fiber.Ctx) error {
	removed, _, err := h.svc.ClearSchedule(c.UserContext())
	if err != nil {
		return h.fail(c, "clear_schedule", err)
	}
	return c.JSON(fiber.Map{"removed": removed})
}

// checkSlot is advisory; an occupied slot is still a 200.
func (h *Handler) checkSlot(c *fiber.Ctx) error {
	var req slotRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}
	check := h.svc.CheckSlot(domain.Grade(req.Grade), req.ClassNumber, domain.Day(req.Day), domain.Period(req.Period))
	return c.JSON(check)
}

func (h *Handler) listConflicts(c *fiber.Ctx) error {
	var conflicts []core.Conflict
	switch entryID, teacherID := c.Query("entry_id"), c.Query("teacher_id"); {
	case entryID != "":
		conflicts = h.svc.ConflictsForEntry(entryID)
	case teacherID != "":
		conflicts = h.svc.TeacherConflicts(teacherID)
	default:
		conflicts = h.svc.Conflicts()
	}
	return c.JSON(fiber.Map{"conflicts": conflicts})
}

func (h *Handler) dashboard(c *fiber.Ctx) error {
	return c.JSON(h.svc.Dashboard())
}
