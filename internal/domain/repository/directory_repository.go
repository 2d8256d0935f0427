package repository

import (
	"context"

	"schoolmsg/internal/domain/entity"
)

// Read-only views over records owned by other parts of the school system.

type EnrollmentDirectory interface {
	GetEnrollment(ctx context.Context, enrollmentID string) (*entity.Enrollment, error)
}

type StudentDirectory interface {
	GetStudent(ctx context.Context, studentID string) (*entity.Student, error)
}

type TeacherAssignmentDirectory interface {
	// GetAssignments returns an empty list for unknown teachers.
	GetAssignments(ctx context.Context, teacherID string) ([]entity.ClassAssignment, error)
}
