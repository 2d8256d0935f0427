package repository

import (
	"context"

	"cloud.google.com/go/firestore"

	"schoolmsg/internal/domain/entity"
	"schoolmsg/internal/domain/repository"
	"schoolmsg/pkg/errors"
)

// firestoreDirectory reads the enrollments, students and teachers collections
// maintained by the school administration functions.
type firestoreDirectory struct {
	client *firestore.Client
}

type teacherDoc struct {
	Classes []entity.ClassAssignment `firestore:"classes"`
}

type FirestoreDirectory interface {
	repository.EnrollmentDirectory
	repository.StudentDirectory
	repository.TeacherAssignmentDirectory
}

func NewFirestoreDirectory(client *firestore.Client) FirestoreDirectory {
	return &firestoreDirectory{
		client: client,
	}
}

func (r *firestoreDirectory) GetEnrollment(ctx context.Context, enrollmentID string) (*entity.Enrollment, error) {
	doc, err := r.client.Collection("enrollments").Doc(enrollmentID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.NotFound("Enrollment", nil)
		}
		return nil, storeError("Failed to get enrollment", err)
	}

	var enrollment entity.Enrollment
	if err := doc.DataTo(&enrollment); err != nil {
		return nil, errors.Internal("Failed to parse enrollment data", err)
	}
	enrollment.ID = doc.Ref.ID
	return &enrollment, nil
}

func (r *firestoreDirectory) GetStudent(ctx context.Context, studentID string) (*entity.Student, error) {
	doc, err := r.client.Collection("students").Doc(studentID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.NotFound("Student", nil)
		}
		return nil, storeError("Failed to get student", err)
	}

	var student entity.Student
	if err := doc.DataTo(&student); err != nil {
		return nil, errors.Internal("Failed to parse student data", err)
	}
	student.ID = doc.Ref.ID
	return &student, nil
}

func (r *firestoreDirectory) GetAssignments(ctx context.Context, teacherID string) ([]entity.ClassAssignment, error) {
	doc, err := r.client.Collection("teachers").Doc(teacherID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, storeError("Failed to get teacher assignments", err)
	}

	var teacher teacherDoc
	if err := doc.DataTo(&teacher); err != nil {
		return nil, errors.Internal("Failed to parse teacher data", err)
	}
	return teacher.Classes, nil
}
