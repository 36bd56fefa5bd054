package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"timetable/internal/core"
	"timetable/pkg/domain"
)

func (h *Handler) listTeachers(c *fiber.Ctx) error {
	grade, hasGrade, err := optionalInt(c, "grade")
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "grade must be an integer")
	}
	var teachers []core.Teacher
	switch subjectID := c.Query("subject_id"); {
	case hasGrade:
		teachers = h.svc.TeachersByGrade(domain.Grade(grade))
	case subjectID != "":
		teachers = h.svc.TeachersBySubject(subjectID)
	default:
		teachers = h.svc.ListTeachers()
	}
	return c.JSON(fiber.Map{"teachers": teachers})
}

func (h *Handler) addTeacher(c *fiber.Ctx) error {
	var req teacherRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}
	created, _, err := h.svc.AddTeacher(c.UserContext(), req.Name)
	if err != nil {
		return h.fail(c, "add_teacher", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"teacher": created})
}

func (h *Handler) getTeacher(c *fiber.Ctx) error {
	id := c.Params("id")
	teacher, ok := h.svc.Teacher(id)
	if !ok {
		return h.fail(c, "get_teacher", core.ErrNotFound{Entity: domain.EntityTeacher, ID: id})
	}
	options, err := h.svc.ClassOptions(id)
	if err != nil {
		return h.fail(c, "get_teacher", err)
	}
	return c.JSON(fiber.Map{
		"teacher":       teacher,
		"class_options": options,
		"entries":       h.entryViews(h.svc.EntriesByTeacher(id)),
		"conflicts":     h.svc.TeacherConflicts(id),
		"overloaded":    h.overloadedSlots(id),
	})
}

// overloadedSlots lists the slots where the teacher holds more than one lesson.
func (h *Handler) overloadedSlots(teacherID string) []domain.Slot {
	out := []domain.Slot{}
	for _, day := range domain.Days() {
		for _, period := range domain.Periods() {
			if h.svc.TeacherSlotOverloaded(teacherID, day, period) {
				out = append(out, domain.Slot{Day: day, Period: period})
			}
		}
	}
	return out
}

func (h *Handler) renameTeacher(c *fiber.Ctx) error {
	var req teacherRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}
	updated, res, err := h.svc.UpdateTeacherName(c.UserContext(), c.Params("id"), req.Name)
	if err != nil {
		return h.fail(c, "update_teacher_name", err)
	}
	return c.JSON(fiber.Map{"teacher": updated, "changed": res.Changed()})
}

func (h *Handler) removeTeacher(c *fiber.Ctx) error {
	removed, res, err := h.svc.RemoveTeacherCascade(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, "remove_teacher", err)
	}
	return c.JSON(fiber.Map{"removed_entries": removed, "conflicts": res.Conflicts})
}

func (h *Handler) teacherSubjects(c *fiber.Ctx) error {
	grade, has, err := optionalInt(c, "grade")
	if err != nil || !has || !domain.Grade(grade).Valid() {
		return writeError(c, fiber.StatusBadRequest, "grade must be between 1 and 6")
	}
	subjects, err := h.svc.SubjectsFor(c.Params("id"), domain.Grade(grade))
	if err != nil {
		return h.fail(c, "subjects_for", err)
	}
	return c.JSON(fiber.Map{"subjects": subjects})
}

func (h *Handler) addAssignment(c *fiber.Ctx) error {
	var req assignmentRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}
	updated, res, err := h.svc.AddAssignment(c.UserContext(), c.Params("id"), domain.Grade(req.Grade), req.SubjectID)
	if err != nil {
		return h.fail(c, "add_assignment", err)
	}
	return c.JSON(fiber.Map{"teacher": updated, "changed": res.Changed()})
}

func (h *Handler) removeAssignment(c *fiber.Ctx) error {
	var req assignmentRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}
	updated, res, err := h.svc.RemoveAssignment(c.UserContext(), c.Params("id"), domain.Grade(req.Grade), req.SubjectID)
	if err != nil {
		return h.fail(c, "remove_assignment", err)
	}
	return c.JSON(fiber.Map{"teacher": updated, "changed": res.Changed()})
}
