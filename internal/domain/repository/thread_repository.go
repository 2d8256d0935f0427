package repository

import (
	"context"

	"schoolmsg/internal/domain/entity"
)

// ThreadRepository stores thread headers and their message logs. Every mutating
// method is a single atomic unit of work scoped to one thread id.
type ThreadRepository interface {
	// Create inserts thread only if no record exists at thread.ID. It returns the
	// stored record and whether this call created it; a losing concurrent
	// creator gets the winner's record and created=false.
	Create(ctx context.Context, thread *entity.Thread) (*entity.Thread, bool, error)
	GetByID(ctx context.Context, id string) (*entity.Thread, error)
	ListByTeacher(ctx context.Context, teacherID, academicYear string, limit int) ([]*entity.Thread, error)
	ListByParent(ctx context.Context, parentID, academicYear string, limit int) ([]*entity.Thread, error)

	// AppendMessage re-reads the thread, appends msg (msg.ID must be set) and
	// updates the receiver's unread counter and the last-message snapshot in one
	// transaction. If a message with msg.ID already exists nothing is written and
	// the stored message is returned with duplicate=true.
	AppendMessage(ctx context.Context, threadID string, msg *entity.Message) (stored *entity.Message, duplicate bool, err error)

	// MarkRead zeroes uid's unread counter and stamps its lastReadAt in one transaction.
	MarkRead(ctx context.Context, threadID, uid string) (*entity.Thread, error)

	ListMessages(ctx context.Context, threadID string, limit int, direction entity.SortDirection) ([]*entity.Message, error)
}
