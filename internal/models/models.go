package models

// AllModels lists every entity migrated at boot
func AllModels() []any {
	return []any{
		&Exam{},
		&Group{},
		&UserGroupMembership{},
		&ExamGroupSlot{},
		&Question{},
		&TestCase{},
		&ExamAssignment{},
		&MalpracticeEvent{},
		&Submission{},
	}
}
