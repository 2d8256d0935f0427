package usecase

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"schoolmsg/internal/domain/entity"
	"schoolmsg/internal/domain/repository"
	"schoolmsg/pkg/errors"
	"schoolmsg/pkg/logger"
)

const (
	DefaultThreadLimit  = 20
	MaxThreadLimit      = 50
	DefaultMessageLimit = 30
	MaxMessageLimit     = 100
	MaxMessageLength    = 5000
)

type ThreadUseCase struct {
	threadRepo  repository.ThreadRepository
	enrollments repository.EnrollmentDirectory
	students    repository.StudentDirectory
	assignments repository.TeacherAssignmentDirectory
	now         func() time.Time
}

func NewThreadUseCase(
	threadRepo repository.ThreadRepository,
	enrollments repository.EnrollmentDirectory,
	students repository.StudentDirectory,
	assignments repository.TeacherAssignmentDirectory,
) *ThreadUseCase {
	return &ThreadUseCase{
		threadRepo:  threadRepo,
		enrollments: enrollments,
		students:    students,
		assignments: assignments,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

type FirstMessageInput struct {
	Text  string
	Title string
}

type GetOrCreateThreadInput struct {
	TeacherID    string
	ParentID     string
	StudentID    string
	AcademicYear string
	EnrollmentID string
	ClassID      string
	FirstMessage *FirstMessageInput
}

type SendMessageInput struct {
	ThreadID       string
	Text           string
	Title          string
	IdempotencyKey string
}

type ListThreadsInput struct {
	OwnerID      string
	AcademicYear string
	Limit        int
}

type ListMessagesInput struct {
	ThreadID  string
	Limit     int
	Direction string
}

func (uc *ThreadUseCase) GetOrCreateThread(ctx context.Context, caller entity.Identity, input GetOrCreateThreadInput) (*entity.Thread, error) {
	teacherID, parentID, err := uc.resolveParties(caller, input)
	if err != nil {
		return nil, err
	}

	if teacherID == "" || parentID == "" || input.StudentID == "" {
		return nil, errors.Validation("teacherId, parentId and studentId are required")
	}
	if teacherID == parentID {
		return nil, errors.Validation("teacherId and parentId must differ")
	}

	enrollmentID := input.EnrollmentID
	if enrollmentID == "" {
		if input.AcademicYear == "" {
			return nil, errors.Validation("academicYear or enrollmentId is required")
		}
		enrollmentID = entity.DeriveEnrollmentID(input.AcademicYear, input.StudentID)
	}

	for _, id := range [][2]string{
		{"teacherId", teacherID},
		{"parentId", parentID},
		{"studentId", input.StudentID},
		{"enrollmentId", enrollmentID},
	} {
		if err := requireID(id[0], id[1]); err != nil {
			return nil, err
		}
	}

	first := input.FirstMessage
	hasFirst := first != nil && (strings.TrimSpace(first.Text) != "" || strings.TrimSpace(first.Title) != "")
	if hasFirst {
		if caller.UID != teacherID && caller.UID != parentID {
			return nil, uc.deny(caller, "getOrCreateThread", "Only a participant can send the first message")
		}
		if err := validateMessageBody(first.Text, first.Title); err != nil {
			return nil, err
		}
	}

	binding, err := uc.bindThread(ctx, caller, teacherID, parentID, enrollmentID, input)
	if err != nil {
		return nil, err
	}

	candidate := entity.NewThread(binding.TeacherID, binding.ParentID, &binding.Enrollment, binding.StudentID, uc.now())
	thread, created, err := uc.threadRepo.Create(ctx, candidate)
	if err != nil {
		logger.Error("getOrCreateThread: failed to create thread %s: %v", candidate.ID, err)
		return nil, err
	}
	if created {
		logger.Info("Thread %s created by %s (%s)", thread.ID, caller.UID, caller.Role)
	} else if thread.TeacherID != binding.TeacherID || thread.EnrollmentID != binding.Enrollment.ID {
		// Ids joined with "_" can collide across different (teacher, enrollment) pairs.
		logger.Error("getOrCreateThread: thread %s belongs to teacher %s enrollment %s, not %s/%s",
			thread.ID, thread.TeacherID, thread.EnrollmentID, binding.TeacherID, binding.Enrollment.ID)
		return nil, errors.Internal("Thread id conflicts with an existing thread", nil)
	}

	if !hasFirst {
		return thread, nil
	}

	if _, err := uc.appendMessage(ctx, caller, "getOrCreateThread", thread.ID, first.Text, first.Title, ""); err != nil {
		return nil, err
	}
	return uc.threadRepo.GetByID(ctx, thread.ID)
}

func (uc *ThreadUseCase) SendMessage(ctx context.Context, caller entity.Identity, input SendMessageInput) (*entity.SendReceipt, error) {
	if err := requireID("threadId", input.ThreadID); err != nil {
		return nil, err
	}
	if err := validateMessageBody(input.Text, input.Title); err != nil {
		return nil, err
	}

	thread, err := uc.threadRepo.GetByID(ctx, input.ThreadID)
	if err != nil {
		return nil, err
	}
	if !thread.IsParticipant(caller.UID) {
		return nil, uc.deny(caller, "sendMessage", "User is not a participant in this thread")
	}

	return uc.appendMessage(ctx, caller, "sendMessage", thread.ID, input.Text, input.Title, input.IdempotencyKey)
}

func (uc *ThreadUseCase) appendMessage(ctx context.Context, caller entity.Identity, operation, threadID, text, title, idempotencyKey string) (*entity.SendReceipt, error) {
	msg := &entity.Message{
		ID:             entity.MessageID(threadID, caller.UID, idempotencyKey),
		SenderID:       caller.UID,
		Text:           text,
		Title:          strings.TrimSpace(title),
		IdempotencyKey: idempotencyKey,
	}

	stored, duplicate, err := uc.threadRepo.AppendMessage(ctx, threadID, msg)
	if err != nil {
		logger.Error("%s: failed to append message to thread %s: %v", operation, threadID, err)
		return nil, auditForbidden(caller, operation, err)
	}
	if duplicate {
		logger.Info("%s: replayed idempotency key on thread %s, message %s already stored", operation, threadID, stored.ID)
	}

	return &entity.SendReceipt{
		ThreadID:  threadID,
		MessageID: stored.ID,
		CreatedAt: stored.CreatedAt,
		Duplicate: duplicate,
	}, nil
}

func (uc *ThreadUseCase) MarkThreadRead(ctx context.Context, caller entity.Identity, threadID string) (*entity.ReadReceipt, error) {
	if err := requireID("threadId", threadID); err != nil {
		return nil, err
	}

	thread, err := uc.threadRepo.MarkRead(ctx, threadID, caller.UID)
	if err != nil {
		return nil, auditForbidden(caller, "markThreadRead", err)
	}

	receipt := &entity.ReadReceipt{ThreadID: thread.ID, ParticipantID: caller.UID}
	if state := thread.StateOf(caller.UID); state != nil && state.LastReadAt != nil {
		receipt.LastReadAt = *state.LastReadAt
	}
	return receipt, nil
}

func (uc *ThreadUseCase) ListThreadsForTeacher(ctx context.Context, caller entity.Identity, input ListThreadsInput) ([]*entity.Thread, error) {
	teacherID, err := uc.resolveListOwner(caller, entity.RoleTeacher, input.OwnerID, "listThreadsForTeacher")
	if err != nil {
		return nil, err
	}
	if teacherID == "" || input.AcademicYear == "" {
		return nil, errors.Validation("teacherId and academicYear are required")
	}

	return uc.threadRepo.ListByTeacher(ctx, teacherID, input.AcademicYear, clampLimit(input.Limit, DefaultThreadLimit, MaxThreadLimit))
}

func (uc *ThreadUseCase) ListThreadsForParent(ctx context.Context, caller entity.Identity, input ListThreadsInput) ([]*entity.Thread, error) {
	parentID, err := uc.resolveListOwner(caller, entity.RoleParent, input.OwnerID, "listThreadsForParent")
	if err != nil {
		return nil, err
	}
	if parentID == "" || input.AcademicYear == "" {
		return nil, errors.Validation("parentId and academicYear are required")
	}

	return uc.threadRepo.ListByParent(ctx, parentID, input.AcademicYear, clampLimit(input.Limit, DefaultThreadLimit, MaxThreadLimit))
}

func (uc *ThreadUseCase) ListMessages(ctx context.Context, caller entity.Identity, input ListMessagesInput) ([]*entity.Message, error) {
	thread, err := uc.GetThread(ctx, caller, input.ThreadID)
	if err != nil {
		return nil, err
	}

	return uc.threadRepo.ListMessages(ctx, thread.ID, clampLimit(input.Limit, DefaultMessageLimit, MaxMessageLimit), entity.ParseSortDirection(input.Direction))
}

// GetThread returns a single thread to one of its participants.
func (uc *ThreadUseCase) GetThread(ctx context.Context, caller entity.Identity, threadID string) (*entity.Thread, error) {
	if err := requireID("threadId", threadID); err != nil {
		return nil, err
	}

	thread, err := uc.threadRepo.GetByID(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if !thread.IsParticipant(caller.UID) {
		return nil, uc.deny(caller, "readThread", "User is not a participant in this thread")
	}
	return thread, nil
}

func validateMessageBody(text, title string) error {
	if strings.TrimSpace(text) == "" && strings.TrimSpace(title) == "" {
		return errors.Validation("text or title is required")
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return errors.Validation("text is too long")
	}
	return nil
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
