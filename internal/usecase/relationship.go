package usecase

import (
	"context"
	"strings"

	"schoolmsg/internal/domain/entity"
	"schoolmsg/pkg/errors"
	"schoolmsg/pkg/logger"
)

// threadBinding is everything a new thread is pinned to once the enrollment,
// the parent link and the teacher assignment have been checked.
type threadBinding struct {
	TeacherID  string
	ParentID   string
	StudentID  string
	Enrollment entity.Enrollment
}

// resolveParties applies the caller's role to the supplied ids. Teachers and
// parents always act as themselves; admins act on the supplied ids.
func (uc *ThreadUseCase) resolveParties(caller entity.Identity, input GetOrCreateThreadInput) (string, string, error) {
	teacherID, parentID := input.TeacherID, input.ParentID

	switch {
	case caller.Role == entity.RoleTeacher:
		teacherID = caller.UID
	case caller.Role == entity.RoleParent:
		parentID = caller.UID
	case caller.Role.IsAdmin():
	default:
		return "", "", uc.deny(caller, "getOrCreateThread", "Only teachers, parents and administrators can open threads")
	}

	return teacherID, parentID, nil
}

// bindThread validates the enrollment, the parent–student link and the
// teacher's class assignment. Class and year always come from the enrollment;
// caller-supplied values are only a fallback for enrollments that lack them.
func (uc *ThreadUseCase) bindThread(ctx context.Context, caller entity.Identity, teacherID, parentID, enrollmentID string, input GetOrCreateThreadInput) (*threadBinding, error) {
	enrollment, err := uc.enrollments.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		logger.Info("getOrCreateThread: enrollment %s lookup failed: %v", enrollmentID, err)
		return nil, err
	}
	if enrollment.Deleted {
		return nil, errors.Validation("Invalid or missing enrollment")
	}
	if enrollment.StudentID != "" && enrollment.StudentID != input.StudentID {
		return nil, errors.Validation("Enrollment does not belong to this student")
	}

	student, err := uc.students.GetStudent(ctx, input.StudentID)
	if err != nil {
		return nil, err
	}
	if student.ParentUID != parentID {
		return nil, uc.deny(caller, "getOrCreateThread", "Parent is not linked to this student")
	}

	classID := pickAuthoritative(enrollment.ClassID, input.ClassID, "classId", enrollmentID)
	academicYear := pickAuthoritative(enrollment.AcademicYear, input.AcademicYear, "academicYear", enrollmentID)
	if classID == "" || academicYear == "" {
		return nil, errors.Validation("Enrollment missing classId/academicYear")
	}

	assignments, err := uc.assignments.GetAssignments(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	if !entity.HasAssignment(assignments, classID, academicYear) {
		return nil, uc.deny(caller, "getOrCreateThread", "Teacher is not assigned to this class for the academic year")
	}

	return &threadBinding{
		TeacherID: teacherID,
		ParentID:  parentID,
		StudentID: input.StudentID,
		Enrollment: entity.Enrollment{
			ID:           enrollmentID,
			ClassID:      classID,
			AcademicYear: academicYear,
			StudentID:    input.StudentID,
		},
	}, nil
}

func pickAuthoritative(fromEnrollment, fromCaller, field, enrollmentID string) string {
	if fromEnrollment == "" {
		return fromCaller
	}
	if fromCaller != "" && fromCaller != fromEnrollment {
		logger.Debug("Ignoring caller %s=%q for enrollment %s, using %q", field, fromCaller, enrollmentID, fromEnrollment)
	}
	return fromEnrollment
}

// resolveListOwner decides whose threads a caller may list. Callers with the
// owning role always get their own; admins may name anyone; everyone else
// may only name themselves.
func (uc *ThreadUseCase) resolveListOwner(caller entity.Identity, ownerRole entity.Role, requested, operation string) (string, error) {
	switch {
	case caller.Role == ownerRole:
		return caller.UID, nil
	case requested == "":
		return caller.UID, nil
	case caller.Role.IsAdmin(), requested == caller.UID:
		return requested, nil
	}
	return "", uc.deny(caller, operation, "You can only list your own threads")
}

// deny logs an authorization failure and returns it as a Forbidden error.
func (uc *ThreadUseCase) deny(caller entity.Identity, operation, reason string) error {
	logger.Authz(caller.UID, operation, reason)
	return errors.Forbidden(reason, nil)
}

// auditForbidden logs Forbidden errors raised below the use case, for example
// by a store transaction re-checking participation.
func auditForbidden(caller entity.Identity, operation string, err error) error {
	if appErr, ok := errors.AsAppError(err); ok && appErr.Code == errors.CodeForbidden {
		logger.Authz(caller.UID, operation, appErr.Message)
	}
	return err
}

func requireID(name, value string) error {
	if value == "" {
		return errors.Validation(name + " is required")
	}
	if strings.Contains(value, "/") {
		return errors.Validation(name + " must not contain '/'")
	}
	return nil
}
