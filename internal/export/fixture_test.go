package export

import (
	"timetable/pkg/domain"
)

const (
	teacherLee  = "이영희"
	teacherKim  = "김철수"
	teacherPark = "박민수"
)

// sampleSnapshot holds a class clash on Mon 1 for 3-1 and a teacher clash on
// Mon 1 for teacherLee. teacherPark has no lessons.
func sampleSnapshot() Snapshot {
	return Snapshot{
		Teachers: []domain.Teacher{
			{ID: "t1", Name: teacherLee},
			{ID: "t2", Name: teacherKim},
			{ID: "t3", Name: teacherPark},
		},
		Subjects: []domain.Subject{
			{ID: "music", Name: "Music", Color: "#3b82f6"},
			{ID: "art", Name: "Art", Color: "#10b981"},
		},
		Grades: []domain.GradeSettings{
			{Grade: 3, Enabled: true, ClassCount: 2},
			{Grade: 5, Enabled: true, ClassCount: 1},
		},
		Schedule: []domain.ScheduleEntry{
			{ID: "e1", TeacherID: "t1", Grade: 3, ClassNumber: 1, Day: domain.DayMon, Period: 1, SubjectID: "music"},
			{ID: "e2", TeacherID: "t1", Grade: 3, ClassNumber: 2, Day: domain.DayMon, Period: 1, SubjectID: "music"},
			{ID: "e3", TeacherID: "t2", Grade: 3, ClassNumber: 1, Day: domain.DayMon, Period: 1, SubjectID: "art"},
			{ID: "e4", TeacherID: "t2", Grade: 5, ClassNumber: 1, Day: domain.DayTue, Period: 2, SubjectID: "art"},
			{ID: "e5", TeacherID: "t1", Grade: 5, ClassNumber: 1, Day: domain.DayFri, Period: 6, SubjectID: "music"},
		},
	}
}

type captureLogger struct {
	errors []string
	warns  []string
}

func (l *captureLogger) Debug(string, ...any)       {}
func (l *captureLogger) Info(string, ...any)        {}
func (l *captureLogger) Warn(msg string, _ ...any)  { l.warns = append(l.warns, msg) }
func (l *captureLogger) Error(msg string, _ ...any) { l.errors = append(l.errors, msg) }
