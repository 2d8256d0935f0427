package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"schoolmsg/internal/domain/entity"
	"schoolmsg/internal/domain/repository"
	"schoolmsg/pkg/errors"
	"schoolmsg/pkg/logger"
)

const (
	threadsCollection  = "threads"
	messagesCollection = "messages"
)

type firestoreThreadRepository struct {
	client *firestore.Client
}

func NewFirestoreThreadRepository(client *firestore.Client) repository.ThreadRepository {
	return &firestoreThreadRepository{
		client: client,
	}
}

func (r *firestoreThreadRepository) threadRef(id string) *firestore.DocumentRef {
	return r.client.Collection(threadsCollection).Doc(id)
}

func (r *firestoreThreadRepository) Create(ctx context.Context, thread *entity.Thread) (*entity.Thread, bool, error) {
	_, err := r.threadRef(thread.ID).Create(ctx, thread)
	if err == nil {
		return thread, true, nil
	}
	if status.Code(err) != codes.AlreadyExists {
		return nil, false, storeError("Failed to create thread", err)
	}

	logger.Debug("Thread %s already exists, returning stored record", thread.ID)
	existing, err := r.GetByID(ctx, thread.ID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *firestoreThreadRepository) GetByID(ctx context.Context, id string) (*entity.Thread, error) {
	doc, err := r.threadRef(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.NotFound("Thread", nil)
		}
		return nil, storeError("Failed to get thread", err)
	}
	return decodeThread(doc)
}

func (r *firestoreThreadRepository) ListByTeacher(ctx context.Context, teacherID, academicYear string, limit int) ([]*entity.Thread, error) {
	return r.listBy(ctx, "teacherId", teacherID, academicYear, limit)
}

func (r *firestoreThreadRepository) ListByParent(ctx context.Context, parentID, academicYear string, limit int) ([]*entity.Thread, error) {
	return r.listBy(ctx, "parentId", parentID, academicYear, limit)
}

func (r *firestoreThreadRepository) listBy(ctx context.Context, field, uid, academicYear string, limit int) ([]*entity.Thread, error) {
	iter := r.client.Collection(threadsCollection).
		Where(field, "==", uid).
		Where("academicYear", "==", academicYear).
		OrderBy("updatedAt", firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	threads := make([]*entity.Thread, 0, limit)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Error("Firestore error while listing threads by %s=%s: %v", field, uid, err)
			return nil, storeError("Failed to list threads", err)
		}

		thread, err := decodeThread(doc)
		if err != nil {
			logger.Warn("Skipping unreadable thread %s: %v", doc.Ref.ID, err)
			continue
		}
		threads = append(threads, thread)
	}

	return threads, nil
}

func (r *firestoreThreadRepository) AppendMessage(ctx context.Context, threadID string, msg *entity.Message) (*entity.Message, bool, error) {
	var (
		stored    *entity.Message
		duplicate bool
	)

	threadRef := r.threadRef(threadID)
	msgRef := threadRef.Collection(messagesCollection).Doc(msg.ID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		stored, duplicate = nil, false

		threadDoc, err := tx.Get(threadRef)
		if err != nil {
			if isNotFound(err) {
				return errors.NotFound("Thread", nil)
			}
			return err
		}

		msgDoc, err := tx.Get(msgRef)
		switch {
		case err == nil:
			var existing entity.Message
			if err := msgDoc.DataTo(&existing); err != nil {
				return errors.Internal("Failed to parse message data", err)
			}
			stored, duplicate = &existing, true
			return nil
		case !isNotFound(err):
			return err
		}

		thread, err := decodeThread(threadDoc)
		if err != nil {
			return err
		}
		if !thread.IsParticipant(msg.SenderID) {
			return errors.Forbidden("Sender is not a participant in this thread", nil)
		}

		m := *msg
		m.ThreadID = threadID
		m.Seq = thread.MessageCount + 1
		m.CreatedAt = thread.NextMessageTime(time.Now().UTC())
		thread.ApplyMessage(&m)

		if err := tx.Create(msgRef, &m); err != nil {
			return err
		}
		if err := tx.Update(threadRef, []firestore.Update{
			{Path: "teacherState.unread", Value: thread.TeacherState.Unread},
			{Path: "parentState.unread", Value: thread.ParentState.Unread},
			{Path: "lastMessage", Value: thread.LastMessage},
			{Path: "messageCount", Value: thread.MessageCount},
			{Path: "updatedAt", Value: thread.UpdatedAt},
		}); err != nil {
			return err
		}

		stored = &m
		return nil
	})
	if err != nil {
		return nil, false, storeError("Failed to append message", err)
	}

	return stored, duplicate, nil
}

func (r *firestoreThreadRepository) MarkRead(ctx context.Context, threadID, uid string) (*entity.Thread, error) {
	var updated *entity.Thread
	threadRef := r.threadRef(threadID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(threadRef)
		if err != nil {
			if isNotFound(err) {
				return errors.NotFound("Thread", nil)
			}
			return err
		}

		thread, err := decodeThread(doc)
		if err != nil {
			return err
		}

		slot := slotField(thread, uid)
		if !thread.MarkRead(uid, time.Now().UTC()) {
			return errors.Forbidden("User is not a participant in this thread", nil)
		}
		state := thread.StateOf(uid)

		// Only the caller's slot is written so a racing send's counter update on
		// the other slot is never clobbered.
		if err := tx.Update(threadRef, []firestore.Update{
			{Path: slot + ".unread", Value: 0},
			{Path: slot + ".lastReadAt", Value: *state.LastReadAt},
		}); err != nil {
			return err
		}

		updated = thread
		return nil
	})
	if err != nil {
		return nil, storeError("Failed to mark thread as read", err)
	}

	return updated, nil
}

func (r *firestoreThreadRepository) ListMessages(ctx context.Context, threadID string, limit int, direction entity.SortDirection) ([]*entity.Message, error) {
	dir := firestore.Asc
	if direction == entity.SortDesc {
		dir = firestore.Desc
	}

	iter := r.threadRef(threadID).Collection(messagesCollection).
		OrderBy("seq", dir).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	messages := make([]*entity.Message, 0, limit)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Error("Firestore error while iterating messages for thread %s: %v", threadID, err)
			return nil, storeError("Failed to list messages", err)
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			return nil, errors.Internal("Failed to parse message data", err)
		}
		if message.ID == "" {
			message.ID = doc.Ref.ID
		}
		messages = append(messages, &message)
	}

	return messages, nil
}

func decodeThread(doc *firestore.DocumentSnapshot) (*entity.Thread, error) {
	var thread entity.Thread
	if err := doc.DataTo(&thread); err != nil {
		return nil, errors.Internal("Failed to parse thread data", err)
	}
	if thread.ID == "" {
		thread.ID = doc.Ref.ID
	}
	return &thread, nil
}

func slotField(thread *entity.Thread, uid string) string {
	if uid == thread.TeacherID {
		return "teacherState"
	}
	return "parentState"
}
