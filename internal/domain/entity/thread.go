package entity

import "time"

type ThreadStatus string

const (
	ThreadStatusActive ThreadStatus = "active"
	// ThreadStatusArchived is reserved. Nothing transitions a thread into it yet.
	ThreadStatusArchived ThreadStatus = "archived"
)

type ParticipantState struct {
	Unread     int        `json:"unread" firestore:"unread"`
	LastReadAt *time.Time `json:"last_read_at" firestore:"lastReadAt"`
	Muted      bool       `json:"muted" firestore:"muted"`
}

type MessageSnapshot struct {
	Text      string    `json:"text" firestore:"text"`
	SenderID  string    `json:"sender_id" firestore:"senderId"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
}

// Thread is a conversation between one teacher and one parent about one enrollment.
// Per-participant state lives in two fixed slots rather than a map keyed by uid.
type Thread struct {
	ID           string           `json:"id" firestore:"threadId"`
	AcademicYear string           `json:"academic_year" firestore:"academicYear"`
	ClassID      string           `json:"class_id" firestore:"classId"`
	StudentID    string           `json:"student_id" firestore:"studentId"`
	EnrollmentID string           `json:"enrollment_id" firestore:"enrollmentId"`
	TeacherID    string           `json:"teacher_id" firestore:"teacherId"`
	ParentID     string           `json:"parent_id" firestore:"parentId"`
	Participants []string         `json:"participants" firestore:"participantsUids"`
	TeacherState ParticipantState `json:"teacher_state" firestore:"teacherState"`
	ParentState  ParticipantState `json:"parent_state" firestore:"parentState"`
	LastMessage  *MessageSnapshot `json:"last_message" firestore:"lastMessage"`
	MessageCount int64            `json:"message_count" firestore:"messageCount"`
	Status       ThreadStatus     `json:"status" firestore:"status"`
	CreatedAt    time.Time        `json:"created_at" firestore:"createdAt"`
	UpdatedAt    time.Time        `json:"updated_at" firestore:"updatedAt"`
}

// BuildThreadID is the deterministic key for a (teacher, enrollment) pair.
func BuildThreadID(teacherID, enrollmentID string) string {
	return teacherID + "_" + enrollmentID
}

func NewThread(teacherID, parentID string, enrollment *Enrollment, studentID string, now time.Time) *Thread {
	return &Thread{
		ID:           BuildThreadID(teacherID, enrollment.ID),
		AcademicYear: enrollment.AcademicYear,
		ClassID:      enrollment.ClassID,
		StudentID:    studentID,
		EnrollmentID: enrollment.ID,
		TeacherID:    teacherID,
		ParentID:     parentID,
		Participants: []string{teacherID, parentID},
		Status:       ThreadStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (t *Thread) IsParticipant(uid string) bool {
	return uid != "" && (uid == t.TeacherID || uid == t.ParentID)
}

// StateOf returns the slot belonging to uid, or nil when uid is not a participant.
func (t *Thread) StateOf(uid string) *ParticipantState {
	switch {
	case uid == "":
		return nil
	case uid == t.TeacherID:
		return &t.TeacherState
	case uid == t.ParentID:
		return &t.ParentState
	}
	return nil
}

// Counterpart returns the other participant, or "" when uid is not a participant.
func (t *Thread) Counterpart(uid string) string {
	switch {
	case uid == "":
		return ""
	case uid == t.TeacherID:
		return t.ParentID
	case uid == t.ParentID:
		return t.TeacherID
	}
	return ""
}

// UnreadFor is 0 for non-participants.
func (t *Thread) UnreadFor(uid string) int {
	if s := t.StateOf(uid); s != nil {
		return s.Unread
	}
	return 0
}

// ApplyMessage records msg on the thread header: bumps the receiver's unread
// counter, replaces the last-message snapshot and advances the sequence.
// The sender's counter is untouched.
func (t *Thread) ApplyMessage(msg *Message) {
	if receiver := t.StateOf(t.Counterpart(msg.SenderID)); receiver != nil {
		receiver.Unread++
	}
	t.LastMessage = &MessageSnapshot{
		Text:      msg.Text,
		SenderID:  msg.SenderID,
		CreatedAt: msg.CreatedAt,
	}
	t.MessageCount = msg.Seq
	t.UpdatedAt = msg.CreatedAt
}

// MarkRead zeroes uid's counter and stamps its read time. Returns false for non-participants.
func (t *Thread) MarkRead(uid string, now time.Time) bool {
	s := t.StateOf(uid)
	if s == nil {
		return false
	}
	s.Unread = 0
	readAt := now
	s.LastReadAt = &readAt
	return true
}

// NextMessageTime clamps now so message timestamps never go backwards within a thread.
func (t *Thread) NextMessageTime(now time.Time) time.Time {
	if t.LastMessage != nil && now.Before(t.LastMessage.CreatedAt) {
		return t.LastMessage.CreatedAt
	}
	return now
}

// Clone returns a deep copy, so callers never share pointer fields with a store.
func (t *Thread) Clone() *Thread {
	c := *t
	c.Participants = append([]string(nil), t.Participants...)
	c.TeacherState = t.TeacherState.clone()
	c.ParentState = t.ParentState.clone()
	if t.LastMessage != nil {
		lm := *t.LastMessage
		c.LastMessage = &lm
	}
	return &c
}

func (s ParticipantState) clone() ParticipantState {
	if s.LastReadAt != nil {
		at := *s.LastReadAt
		s.LastReadAt = &at
	}
	return s
}
