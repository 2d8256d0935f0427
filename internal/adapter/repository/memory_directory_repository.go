package repository

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"schoolmsg/internal/domain/entity"
	"schoolmsg/pkg/errors"
)

// MemoryDirectory serves enrollments, students and teacher assignments from
// memory. It backs STORE_DRIVER=memory and the use case tests.
type MemoryDirectory struct {
	mu          sync.RWMutex
	enrollments map[string]entity.Enrollment
	students    map[string]entity.Student
	assignments map[string][]entity.ClassAssignment
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		enrollments: make(map[string]entity.Enrollment),
		students:    make(map[string]entity.Student),
		assignments: make(map[string][]entity.ClassAssignment),
	}
}

// directorySeed is the YAML layout accepted by LoadDirectorySeed:
//
//	enrollments:
//	  2025-2026_S1: {classId: KG1-A, academicYear: 2025-2026, studentId: S1}
//	students:
//	  S1: {parentUID: P1}
//	teachers:
//	  T1: [{classId: KG1-A, academicYear: 2025-2026}]
type directorySeed struct {
	Enrollments map[string]struct {
		ClassID      string `yaml:"classId"`
		AcademicYear string `yaml:"academicYear"`
		StudentID    string `yaml:"studentId"`
		Deleted      bool   `yaml:"deleted"`
	} `yaml:"enrollments"`
	Students map[string]struct {
		ParentUID string `yaml:"parentUID"`
	} `yaml:"students"`
	Teachers map[string][]struct {
		ClassID      string `yaml:"classId"`
		AcademicYear string `yaml:"academicYear"`
	} `yaml:"teachers"`
}

func LoadDirectorySeed(path string) (*MemoryDirectory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseDirectorySeed(raw)
}

func ParseDirectorySeed(raw []byte) (*MemoryDirectory, error) {
	var seed directorySeed
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	d := NewMemoryDirectory()
	for id, e := range seed.Enrollments {
		d.PutEnrollment(entity.Enrollment{ID: id, ClassID: e.ClassID, AcademicYear: e.AcademicYear, StudentID: e.StudentID, Deleted: e.Deleted})
	}
	for id, s := range seed.Students {
		d.PutStudent(entity.Student{ID: id, ParentUID: s.ParentUID})
	}
	for teacherID, classes := range seed.Teachers {
		assignments := make([]entity.ClassAssignment, 0, len(classes))
		for _, c := range classes {
			assignments = append(assignments, entity.ClassAssignment{ClassID: c.ClassID, AcademicYear: c.AcademicYear})
		}
		d.PutAssignments(teacherID, assignments...)
	}
	return d, nil
}

func (d *MemoryDirectory) PutEnrollment(e entity.Enrollment) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enrollments[e.ID] = e
}

func (d *MemoryDirectory) PutStudent(s entity.Student) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.students[s.ID] = s
}

func (d *MemoryDirectory) PutAssignments(teacherID string, assignments ...entity.ClassAssignment) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.assignments[teacherID] = append([]entity.ClassAssignment(nil), assignments...)
}

func (d *MemoryDirectory) GetEnrollment(ctx context.Context, enrollmentID string) (*entity.Enrollment, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	e, ok := d.enrollments[enrollmentID]
	if !ok {
		return nil, errors.NotFound("Enrollment", nil)
	}
	return &e, nil
}

func (d *MemoryDirectory) GetStudent(ctx context.Context, studentID string) (*entity.Student, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s, ok := d.students[studentID]
	if !ok {
		return nil, errors.NotFound("Student", nil)
	}
	return &s, nil
}

func (d *MemoryDirectory) GetAssignments(ctx context.Context, teacherID string) ([]entity.ClassAssignment, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return append([]entity.ClassAssignment(nil), d.assignments[teacherID]...), nil
}
