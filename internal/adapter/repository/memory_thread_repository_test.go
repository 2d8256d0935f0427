package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolmsg/internal/domain/entity"
	"schoolmsg/pkg/errors"
)

func seedThread(teacherID, parentID, year string) *entity.Thread {
	enrollment := &entity.Enrollment{ID: year + "_S-" + parentID, ClassID: "KG1-A", AcademicYear: year}
	return entity.NewThread(teacherID, parentID, enrollment, "S-"+parentID, time.Now().UTC())
}

func TestMemoryCreateIsInsertIfAbsent(t *testing.T) {
	repo := NewMemoryThreadRepository()
	ctx := context.Background()

	first := seedThread("T1", "P1", "2025-2026")
	stored, created, err := repo.Create(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)

	second := seedThread("T1", "P1", "2025-2026")
	second.ClassID = "overwritten"
	stored2, created2, err := repo.Create(ctx, second)
	require.NoError(t, err)
	assert.False(t, created2)
	assert.Equal(t, "KG1-A", stored2.ClassID)
	assert.Equal(t, stored.CreatedAt, stored2.CreatedAt)
}

func TestMemoryConcurrentCreateConverges(t *testing.T) {
	repo := NewMemoryThreadRepository()
	ctx := context.Background()

	const callers = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	createdCount := 0

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := repo.Create(ctx, seedThread("T1", "P1", "2025-2026"))
			assert.NoError(t, err)
			if created {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, createdCount)
	threads, err := repo.ListByTeacher(ctx, "T1", "2025-2026", 50)
	require.NoError(t, err)
	assert.Len(t, threads, 1)
}

func TestMemoryConcurrentAppendsKeepEveryIncrement(t *testing.T) {
	repo := NewMemoryThreadRepository()
	ctx := context.Background()
	thread, _, err := repo.Create(ctx, seedThread("T1", "P1", "2025-2026"))
	require.NoError(t, err)

	const perSide = 50
	var wg sync.WaitGroup
	for i := 0; i < perSide; i++ {
		for _, sender := range []string{"T1", "P1"} {
			wg.Add(1)
			go func(sender string, i int) {
				defer wg.Done()
				_, _, err := repo.AppendMessage(ctx, thread.ID, &entity.Message{
					ID:       entity.MessageID(thread.ID, sender, ""),
					SenderID: sender,
					Text:     fmt.Sprintf("%s-%d", sender, i),
				})
				assert.NoError(t, err)
			}(sender, i)
		}
	}
	wg.Wait()

	got, err := repo.GetByID(ctx, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, perSide, got.UnreadFor("T1"))
	assert.Equal(t, perSide, got.UnreadFor("P1"))
	assert.Equal(t, int64(2*perSide), got.MessageCount)

	messages, err := repo.ListMessages(ctx, thread.ID, 0, entity.SortAsc)
	require.NoError(t, err)
	require.Len(t, messages, 2*perSide)
	for i := 1; i < len(messages); i++ {
		assert.Equal(t, messages[i-1].Seq+1, messages[i].Seq)
		assert.False(t, messages[i].CreatedAt.Before(messages[i-1].CreatedAt))
	}
}

func TestMemoryMarkReadRacingSendsNeverTouchesOtherSlot(t *testing.T) {
	repo := NewMemoryThreadRepository()
	ctx := context.Background()
	thread, _, err := repo.Create(ctx, seedThread("T1", "P1", "2025-2026"))
	require.NoError(t, err)

	const sends = 40
	var wg sync.WaitGroup
	for i := 0; i < sends; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _, err := repo.AppendMessage(ctx, thread.ID, &entity.Message{ID: entity.MessageID(thread.ID, "P1", ""), SenderID: "P1", Text: "hi"})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := repo.MarkRead(ctx, thread.ID, "P1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := repo.GetByID(ctx, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, sends, got.UnreadFor("T1"))
	assert.Equal(t, 0, got.UnreadFor("P1"))
	assert.NotNil(t, got.ParentState.LastReadAt)
}

func TestMemoryAppendDuplicateIDIsNoop(t *testing.T) {
	repo := NewMemoryThreadRepository()
	ctx := context.Background()
	thread, _, err := repo.Create(ctx, seedThread("T1", "P1", "2025-2026"))
	require.NoError(t, err)

	id := entity.MessageID(thread.ID, "T1", "retry-1")
	first, dup, err := repo.AppendMessage(ctx, thread.ID, &entity.Message{ID: id, SenderID: "T1", Text: "Hello"})
	require.NoError(t, err)
	assert.False(t, dup)

	again, dup, err := repo.AppendMessage(ctx, thread.ID, &entity.Message{ID: id, SenderID: "T1", Text: "Hello"})
	require.NoError(t, err)
	assert.True(t, dup)
	assert.Equal(t, first.CreatedAt, again.CreatedAt)

	got, err := repo.GetByID(ctx, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.UnreadFor("P1"))
	assert.Equal(t, int64(1), got.MessageCount)
}

func TestMemoryAppendRejectsStranger(t *testing.T) {
	repo := NewMemoryThreadRepository()
	ctx := context.Background()
	thread, _, err := repo.Create(ctx, seedThread("T1", "P1", "2025-2026"))
	require.NoError(t, err)

	_, _, err = repo.AppendMessage(ctx, thread.ID, &entity.Message{ID: "m1", SenderID: "X", Text: "hi"})
	assert.True(t, errors.Is(err, errors.CodeForbidden))

	messages, err := repo.ListMessages(ctx, thread.ID, 10, entity.SortAsc)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestMemoryMissingThread(t *testing.T) {
	repo := NewMemoryThreadRepository()
	ctx := context.Background()

	_, err := repo.GetByID(ctx, "nope")
	assert.True(t, errors.Is(err, errors.CodeNotFound))
	_, _, err = repo.AppendMessage(ctx, "nope", &entity.Message{ID: "m", SenderID: "T1"})
	assert.True(t, errors.Is(err, errors.CodeNotFound))
	_, err = repo.MarkRead(ctx, "nope", "T1")
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestMemoryListOrdersAndLimits(t *testing.T) {
	repo := NewMemoryThreadRepository()
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		th, _, err := repo.Create(ctx, seedThread("T1", fmt.Sprintf("P%d", i), "2025-2026"))
		require.NoError(t, err)
		ids = append(ids, th.ID)
	}
	_, _, err := repo.Create(ctx, seedThread("T1", "P9", "2024-2025"))
	require.NoError(t, err)

	// Touch the first thread last so it sorts to the top.
	time.Sleep(2 * time.Millisecond)
	_, _, err = repo.AppendMessage(ctx, ids[0], &entity.Message{ID: "m1", SenderID: "T1", Text: "bump"})
	require.NoError(t, err)

	threads, err := repo.ListByTeacher(ctx, "T1", "2025-2026", 2)
	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.Equal(t, ids[0], threads[0].ID)

	parents, err := repo.ListByParent(ctx, "P9", "2024-2025", 10)
	require.NoError(t, err)
	assert.Len(t, parents, 1)
}

func TestMemoryListMessagesDirection(t *testing.T) {
	repo := NewMemoryThreadRepository()
	ctx := context.Background()
	thread, _, err := repo.Create(ctx, seedThread("T1", "P1", "2025-2026"))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, _, err := repo.AppendMessage(ctx, thread.ID, &entity.Message{ID: fmt.Sprintf("m%d", i), SenderID: "T1", Text: fmt.Sprintf("%d", i)})
		require.NoError(t, err)
	}

	asc, err := repo.ListMessages(ctx, thread.ID, 2, entity.SortAsc)
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1"}, []string{asc[0].Text, asc[1].Text})

	desc, err := repo.ListMessages(ctx, thread.ID, 2, entity.SortDesc)
	require.NoError(t, err)
	assert.Equal(t, []string{"4", "3"}, []string{desc[0].Text, desc[1].Text})
}

func TestMemoryCancelledContext(t *testing.T) {
	repo := NewMemoryThreadRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := repo.Create(ctx, seedThread("T1", "P1", "2025-2026"))
	assert.ErrorIs(t, err, context.Canceled)
}
