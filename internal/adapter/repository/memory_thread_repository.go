package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"schoolmsg/internal/domain/entity"
	"schoolmsg/internal/domain/repository"
	"schoolmsg/pkg/errors"
)

// memoryThreadRepository keeps threads in process. Each thread has its own
// mutex, so writes to one thread are linearized while different threads
// proceed in parallel. Intended for local development and tests.
type memoryThreadRepository struct {
	mu      sync.RWMutex
	threads map[string]*threadRecord
	now     func() time.Time
}

type threadRecord struct {
	mu       sync.Mutex
	thread   *entity.Thread
	messages []*entity.Message
	byID     map[string]*entity.Message
}

func NewMemoryThreadRepository() repository.ThreadRepository {
	return &memoryThreadRepository{
		threads: make(map[string]*threadRecord),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *memoryThreadRepository) Create(ctx context.Context, thread *entity.Thread) (*entity.Thread, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if rec, ok := r.threads[thread.ID]; ok {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return rec.thread.Clone(), false, nil
	}

	r.threads[thread.ID] = &threadRecord{
		thread: thread.Clone(),
		byID:   make(map[string]*entity.Message),
	}
	return thread.Clone(), true, nil
}

func (r *memoryThreadRepository) record(id string) (*threadRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.threads[id]
	if !ok {
		return nil, errors.NotFound("Thread", nil)
	}
	return rec, nil
}

func (r *memoryThreadRepository) GetByID(ctx context.Context, id string) (*entity.Thread, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec, err := r.record(id)
	if err != nil {
		return nil, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.thread.Clone(), nil
}

func (r *memoryThreadRepository) ListByTeacher(ctx context.Context, teacherID, academicYear string, limit int) ([]*entity.Thread, error) {
	return r.listWhere(ctx, limit, func(t *entity.Thread) bool {
		return t.TeacherID == teacherID && t.AcademicYear == academicYear
	})
}

func (r *memoryThreadRepository) ListByParent(ctx context.Context, parentID, academicYear string, limit int) ([]*entity.Thread, error) {
	return r.listWhere(ctx, limit, func(t *entity.Thread) bool {
		return t.ParentID == parentID && t.AcademicYear == academicYear
	})
}

func (r *memoryThreadRepository) listWhere(ctx context.Context, limit int, match func(*entity.Thread) bool) ([]*entity.Thread, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	records := make([]*threadRecord, 0, len(r.threads))
	for _, rec := range r.threads {
		records = append(records, rec)
	}
	r.mu.RUnlock()

	var threads []*entity.Thread
	for _, rec := range records {
		rec.mu.Lock()
		if match(rec.thread) {
			threads = append(threads, rec.thread.Clone())
		}
		rec.mu.Unlock()
	}

	sort.SliceStable(threads, func(i, j int) bool {
		if threads[i].UpdatedAt.Equal(threads[j].UpdatedAt) {
			return threads[i].ID < threads[j].ID
		}
		return threads[i].UpdatedAt.After(threads[j].UpdatedAt)
	})
	if limit > 0 && len(threads) > limit {
		threads = threads[:limit]
	}
	return threads, nil
}

func (r *memoryThreadRepository) AppendMessage(ctx context.Context, threadID string, msg *entity.Message) (*entity.Message, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	rec, err := r.record(threadID)
	if err != nil {
		return nil, false, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if existing, ok := rec.byID[msg.ID]; ok {
		m := *existing
		return &m, true, nil
	}
	if !rec.thread.IsParticipant(msg.SenderID) {
		return nil, false, errors.Forbidden("Sender is not a participant in this thread", nil)
	}

	// Work on a copy so a failure part-way leaves the record untouched.
	thread := rec.thread.Clone()
	m := *msg
	m.ThreadID = threadID
	m.Seq = thread.MessageCount + 1
	m.CreatedAt = thread.NextMessageTime(r.now())
	thread.ApplyMessage(&m)

	stored := m
	rec.thread = thread
	rec.messages = append(rec.messages, &stored)
	rec.byID[stored.ID] = &stored

	return &m, false, nil
}

func (r *memoryThreadRepository) MarkRead(ctx context.Context, threadID, uid string) (*entity.Thread, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec, err := r.record(threadID)
	if err != nil {
		return nil, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if !rec.thread.MarkRead(uid, r.now()) {
		return nil, errors.Forbidden("User is not a participant in this thread", nil)
	}
	return rec.thread.Clone(), nil
}

func (r *memoryThreadRepository) ListMessages(ctx context.Context, threadID string, limit int, direction entity.SortDirection) ([]*entity.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec, err := r.record(threadID)
	if err != nil {
		return nil, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	n := len(rec.messages)
	if limit > 0 && limit < n {
		n = limit
	}

	messages := make([]*entity.Message, 0, n)
	for i := 0; i < n; i++ {
		idx := i
		if direction == entity.SortDesc {
			idx = len(rec.messages) - 1 - i
		}
		m := *rec.messages[idx]
		messages = append(messages, &m)
	}
	return messages, nil
}
