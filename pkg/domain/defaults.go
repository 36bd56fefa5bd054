package domain

// DefaultClassCount is the number of classes each grade starts with.
const DefaultClassCount = 3

// DefaultGrades returns the starting grade settings: grades 1 and 2 disabled,
// grades 3 through 6 enabled, each with DefaultClassCount classes.
func DefaultGrades() []GradeSettings {
	out := make([]GradeSettings, 0, int(MaxGrade))
	for _, g := range Grades() {
		out = append(out, GradeSettings{
			Grade:      g,
			Enabled:    g >= 3,
			ClassCount: DefaultClassCount,
		})
	}
	return out
}

// DefaultSubjects returns the starter subject set.
func DefaultSubjects() []Subject {
	return []Subject{
		{ID: "science", Name: "Science", Color: "#10B981"},
		{ID: "pe", Name: "PE", Color: "#F97316"},
		{ID: "english", Name: "English", Color: "#3B82F6"},
	}
}
