package httpapi

import (
	"timetable/internal/core"
	"timetable/pkg/domain"
)

type classCountRequest struct {
	ClassCount *int `json:"class_count" validate:"required"`
}

type subjectRequest struct {
	Name  string `json:"name" validate:"required"`
	Color string `json:"color" validate:"required,hexcolor"`
}

type subjectPatch struct {
	Name  *string `json:"name" validate:"omitempty,min=1"`
	Color *string `json:"color" validate:"omitempty,hexcolor"`
}

type teacherRequest struct {
	Name string `json:"name" validate:"required"`
}

type assignmentRequest struct {
	Grade     int    `json:"grade" validate:"min=1,max=6"`
	SubjectID string `json:"subject_id" validate:"required"`
}

type slotRequest struct {
	Grade       int    `json:"grade" validate:"min=1,max=6"`
	ClassNumber int    `json:"class_number" validate:"min=1"`
	Day         string `json:"day" validate:"oneof=Mon Tue Wed Thu Fri"`
	Period      int    `json:"period" validate:"min=1,max=6"`
}

type entryRequest struct {
	slotRequest
	TeacherID string `json:"teacher_id" validate:"required"`
	SubjectID string `json:"subject_id" validate:"required"`
}

func (r entryRequest) entry() core.ScheduleEntry {
	return core.ScheduleEntry{
		TeacherID:   r.TeacherID,
		Grade:       domain.Grade(r.Grade),
		ClassNumber: r.ClassNumber,
		Day:         domain.Day(r.Day),
		Period:      domain.Period(r.Period),
		SubjectID:   r.SubjectID,
	}
}

type entryPatch struct {
	TeacherID   *string `json:"teacher_id" validate:"omitempty,min=1"`
	Grade       *int    `json:"grade" validate:"omitempty,min=1,max=6"`
	ClassNumber *int    `json:"class_number" validate:"omitempty,min=1"`
	Day         *string `json:"day" validate:"omitempty,oneof=Mon Tue Wed Thu Fri"`
	Period      *int    `json:"period" validate:"omitempty,min=1,max=6"`
	SubjectID   *string `json:"subject_id" validate:"omitempty,min=1"`
}

func (p entryPatch) apply(e *core.ScheduleEntry) {
	if p.TeacherID != nil {
		e.TeacherID = *p.TeacherID
	}
	if p.Grade != nil {
		e.Grade = domain.Grade(*p.Grade)
	}
	if p.ClassNumber != nil {
		e.ClassNumber = *p.ClassNumber
	}
	if p.Day != nil {
		e.Day = domain.Day(*p.Day)
	}
	if p.Period != nil {
		e.Period = domain.Period(*p.Period)
	}
	if p.SubjectID != nil {
		e.SubjectID = *p.SubjectID
	}
}

type exportRequest struct {
	Format      string `json:"format" validate:"required"`
	RequestedBy string `json:"requested_by"`
}
