package entity

type Enrollment struct {
	ID           string `json:"id" firestore:"-"`
	ClassID      string `json:"class_id" firestore:"classId"`
	AcademicYear string `json:"academic_year" firestore:"academicYear"`
	StudentID    string `json:"student_id" firestore:"studentId"`
	Deleted      bool   `json:"deleted" firestore:"deleted"`
}

type Student struct {
	ID        string `json:"id" firestore:"-"`
	ParentUID string `json:"parent_uid" firestore:"parentUID"`
}

// ClassAssignment is one (class, year) a teacher is assigned to.
type ClassAssignment struct {
	ClassID      string `json:"class_id" firestore:"classId"`
	AcademicYear string `json:"academic_year" firestore:"academicYear"`
}

// DeriveEnrollmentID is the enrollment key used when the caller supplies only a year.
func DeriveEnrollmentID(academicYear, studentID string) string {
	return academicYear + "_" + studentID
}

func HasAssignment(assignments []ClassAssignment, classID, academicYear string) bool {
	for _, a := range assignments {
		if a.ClassID == classID && a.AcademicYear == academicYear {
			return true
		}
	}
	return false
}
