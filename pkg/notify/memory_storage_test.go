package notify_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/notify"
)

func newRecord(priority notify.Priority) notify.Notification {
	return notify.Notification{
		ID:              uuid.New(),
		RecipientUserID: "user-1",
		Type:            notify.TypeTeamUpdate,
		Channel:         notify.ChannelInApp,
		Message:         "something happened",
		Status:          notify.StatusPending,
		Priority:        priority,
		Scope:           notify.ScopeUser,
		MaxAttempts:     3,
		ScheduledAt:     time.Now().Add(-time.Minute),
		CreatedAt:       time.Now(),
	}
}

func TestMemoryStorage_CreateBatch(t *testing.T) {
	t.Parallel()

	t.Run("persists all records", func(t *testing.T) {
		t.Parallel()
		storage := notify.NewMemoryStorage()

		batch := []notify.Notification{newRecord(5), newRecord(5), newRecord(5)}
		require.NoError(t, storage.CreateBatch(context.Background(), batch))

		for _, rec := range batch {
			got, err := storage.Get(context.Background(), rec.ID)
			require.NoError(t, err)
			assert.Equal(t, rec.ID, got.ID)
		}
	})

	t.Run("rejects duplicate IDs without partial writes", func(t *testing.T) {
		t.Parallel()
		storage := notify.NewMemoryStorage()

		dup := newRecord(5)
		require.NoError(t, storage.CreateBatch(context.Background(), []notify.Notification{dup}))

		fresh := newRecord(5)
		err := storage.CreateBatch(context.Background(), []notify.Notification{fresh, dup})
		require.ErrorIs(t, err, notify.ErrAlreadyExists)

		_, err = storage.Get(context.Background(), fresh.ID)
		assert.ErrorIs(t, err, notify.ErrNotFound)
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		t.Parallel()
		storage := notify.NewMemoryStorage()
		require.NoError(t, storage.CreateBatch(context.Background(), nil))
	})
}

func TestMemoryStorage_ClaimBatch(t *testing.T) {
	t.Parallel()

	t.Run("claims by priority with creation-order tie-break", func(t *testing.T) {
		t.Parallel()
		storage := notify.NewMemoryStorage()
		workerID := uuid.New()

		low := newRecord(7)
		urgent := newRecord(1)
		mid := newRecord(4)
		require.NoError(t, storage.CreateBatch(context.Background(), []notify.Notification{low, urgent, mid}))

		claimed, err := storage.ClaimBatch(context.Background(), workerID, 2, 5*time.Minute)
		require.NoError(t, err)
		require.Len(t, claimed, 2)

		assert.Equal(t, urgent.ID, claimed[0].ID)
		assert.Equal(t, mid.ID, claimed[1].ID)
		for _, rec := range claimed {
			assert.Equal(t, notify.StatusProcessing, rec.Status)
			require.NotNil(t, rec.LockedUntil)
			require.NotNil(t, rec.LockedBy)
			assert.Equal(t, workerID, *rec.LockedBy)
		}
	})

	t.Run("oldest record wins within a priority tier", func(t *testing.T) {
		t.Parallel()
		storage := notify.NewMemoryStorage()

		first := newRecord(5)
		second := newRecord(5)
		require.NoError(t, storage.CreateBatch(context.Background(), []notify.Notification{first, second}))

		claimed, err := storage.ClaimBatch(context.Background(), uuid.New(), 1, time.Minute)
		require.NoError(t, err)
		require.Len(t, claimed, 1)
		assert.Equal(t, first.ID, claimed[0].ID)
	})

	t.Run("skips future-scheduled and processing records", func(t *testing.T) {
		t.Parallel()
		storage := notify.NewMemoryStorage()

		future := newRecord(1)
		future.Status = notify.StatusScheduled
		future.ScheduledAt = time.Now().Add(time.Hour)
		ready := newRecord(5)
		require.NoError(t, storage.CreateBatch(context.Background(), []notify.Notification{future, ready}))

		claimed, err := storage.ClaimBatch(context.Background(), uuid.New(), 10, time.Minute)
		require.NoError(t, err)
		require.Len(t, claimed, 1)
		assert.Equal(t, ready.ID, claimed[0].ID)

		// The claimed record must not be claimable again.
		claimed, err = storage.ClaimBatch(context.Background(), uuid.New(), 10, time.Minute)
		require.NoError(t, err)
		assert.Empty(t, claimed)
	})

	t.Run("due scheduled records become claimable", func(t *testing.T) {
		t.Parallel()
		storage := notify.NewMemoryStorage()

		due := newRecord(5)
		due.Status = notify.StatusScheduled
		due.ScheduledAt = time.Now().Add(-time.Second)
		require.NoError(t, storage.CreateBatch(context.Background(), []notify.Notification{due}))

		claimed, err := storage.ClaimBatch(context.Background(), uuid.New(), 1, time.Minute)
		require.NoError(t, err)
		require.Len(t, claimed, 1)
		assert.Equal(t, due.ID, claimed[0].ID)
	})

	t.Run("expired locks are reclaimed", func(t *testing.T) {
		t.Parallel()
		storage := notify.NewMemoryStorage()

		rec := newRecord(5)
		require.NoError(t, storage.CreateBatch(context.Background(), []notify.Notification{rec}))

		claimed, err := storage.ClaimBatch(context.Background(), uuid.New(), 1, 10*time.Millisecond)
		require.NoError(t, err)
		require.Len(t, claimed, 1)

		time.Sleep(25 * time.Millisecond)

		secondWorker := uuid.New()
		reclaimed, err := storage.ClaimBatch(context.Background(), secondWorker, 1, time.Minute)
		require.NoError(t, err)
		require.Len(t, reclaimed, 1)
		assert.Equal(t, rec.ID, reclaimed[0].ID)
		assert.Equal(t, notify.StatusProcessing, reclaimed[0].Status)
		require.NotNil(t, reclaimed[0].LockedBy)
		assert.Equal(t, secondWorker, *reclaimed[0].LockedBy)

		// The reclaiming worker owns the record; it can finish it.
		require.NoError(t, storage.MarkSent(context.Background(), rec.ID, false))
	})

	t.Run("concurrent claims never overlap", func(t *testing.T) {
		t.Parallel()
		storage := notify.NewMemoryStorage()

		const total = 40
		batch := make([]notify.Notification, 0, total)
		for i := 0; i < total; i++ {
			batch = append(batch, newRecord(5))
		}
		require.NoError(t, storage.CreateBatch(context.Background(), batch))

		var mu sync.Mutex
		seen := make(map[uuid.UUID]int)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					claimed, err := storage.ClaimBatch(context.Background(), uuid.New(), 5, time.Minute)
					if !assert.NoError(t, err) || len(claimed) == 0 {
						return
					}
					mu.Lock()
					for _, rec := range claimed {
						seen[rec.ID]++
					}
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Len(t, seen, total)
		for id, count := range seen {
			assert.Equalf(t, 1, count, "record %s claimed %d times", id, count)
		}
	})
}

func TestMemoryStorage_Transitions(t *testing.T) {
	t.Parallel()

	claimOne := func(t *testing.T, storage *notify.MemoryStorage) notify.Notification {
		t.Helper()
		require.NoError(t, storage.CreateBatch(context.Background(), []notify.Notification{newRecord(5)}))
		claimed, err := storage.ClaimBatch(context.Background(), uuid.New(), 1, time.Minute)
		require.NoError(t, err)
		require.Len(t, claimed, 1)
		return claimed[0]
	}

	t.Run("mark sent", func(t *testing.T) {
		t.Parallel()
		storage := notify.NewMemoryStorage()
		rec := claimOne(t, storage)

		require.NoError(t, storage.MarkSent(context.Background(), rec.ID, false))

		got, err := storage.Get(context.Background(), rec.ID)
		require.NoError(t, err)
		assert.Equal(t, notify.StatusSent, got.Status)
		assert.EqualValues(t, 1, got.Attempts)
		assert.NotNil(t, got.SentAt)
		assert.Nil(t, got.LockedUntil)
		assert.Nil(t, got.LockedBy)
	})

	t.Run("mark delivered", func(t *testing.T) {
		t.Parallel()
		storage := notify.NewMemoryStorage()
		rec := claimOne(t, storage)

		require.NoError(t, storage.MarkSent(context.Background(), rec.ID, true))

		got, err := storage.Get(context.Background(), rec.ID)
		require.NoError(t, err)
		assert.Equal(t, notify.StatusDelivered, got.Status)
	})

	t.Run("fail records the reason", func(t *testing.T) {
		t.Parallel()
		storage := notify.NewMemoryStorage()
		rec := claimOne(t, storage)

		require.NoError(t, storage.Fail(context.Background(), rec.ID, "mailbox gone"))

		got, err := storage.Get(context.Background(), rec.ID)
		require.NoError(t, err)
		assert.Equal(t, notify.StatusFailed, got.Status)
		require.NotNil(t, got.LastError)
		assert.Equal(t, "mailbox gone", *got.LastError)
		assert.EqualValues(t, 1, got.Attempts)
	})

	t.Run("release schedules the retry", func(t *testing.T) {
		t.Parallel()
		storage := notify.NewMemoryStorage()
		rec := claimOne(t, storage)

		retryAt := time.Now().Add(30 * time.Second)
		require.NoError(t, storage.Release(context.Background(), rec.ID, "timeout", retryAt))

		got, err := storage.Get(context.Background(), rec.ID)
		require.NoError(t, err)
		assert.Equal(t, notify.StatusPending, got.Status)
		assert.Equal(t, retryAt.Unix(), got.ScheduledAt.Unix())
		require.NotNil(t, got.LastError)
		assert.Equal(t, "timeout", *got.LastError)
	})

	t.Run("transitions require processing status", func(t *testing.T) {
		t.Parallel()
		storage := notify.NewMemoryStorage()

		rec := newRecord(5)
		require.NoError(t, storage.CreateBatch(context.Background(), []notify.Notification{rec}))

		assert.ErrorIs(t, storage.MarkSent(context.Background(), rec.ID, false), notify.ErrNotClaimable)
		assert.ErrorIs(t, storage.Fail(context.Background(), rec.ID, "x"), notify.ErrNotClaimable)
		assert.ErrorIs(t, storage.Release(context.Background(), rec.ID, "x", time.Now()), notify.ErrNotClaimable)
	})

	t.Run("unknown id", func(t *testing.T) {
		t.Parallel()
		storage := notify.NewMemoryStorage()
		assert.ErrorIs(t, storage.MarkSent(context.Background(), uuid.New(), false), notify.ErrNotFound)
	})
}

func TestMemoryStorage_Requeue(t *testing.T) {
	t.Parallel()

	t.Run("resets a failed record", func(t *testing.T) {
		t.Parallel()
		storage := notify.NewMemoryStorage()

		rec := newRecord(5)
		require.NoError(t, storage.CreateBatch(context.Background(), []notify.Notification{rec}))
		claimed, err := storage.ClaimBatch(context.Background(), uuid.New(), 1, time.Minute)
		require.NoError(t, err)
		require.NoError(t, storage.Fail(context.Background(), claimed[0].ID, "gone"))

		require.NoError(t, storage.Requeue(context.Background(), rec.ID))

		got, err := storage.Get(context.Background(), rec.ID)
		require.NoError(t, err)
		assert.Equal(t, notify.StatusPending, got.Status)
		assert.EqualValues(t, 0, got.Attempts)
		assert.Nil(t, got.LastError)
	})

	t.Run("rejects non-failed records", func(t *testing.T) {
		t.Parallel()
		storage := notify.NewMemoryStorage()

		rec := newRecord(5)
		require.NoError(t, storage.CreateBatch(context.Background(), []notify.Notification{rec}))

		assert.ErrorIs(t, storage.Requeue(context.Background(), rec.ID), notify.ErrNotFailed)
	})

	t.Run("unknown id", func(t *testing.T) {
		t.Parallel()
		storage := notify.NewMemoryStorage()
		assert.ErrorIs(t, storage.Requeue(context.Background(), uuid.New()), notify.ErrNotFound)
	})
}

func TestMemoryStorage_List(t *testing.T) {
	t.Parallel()

	storage := notify.NewMemoryStorage()

	first := newRecord(5)
	second := newRecord(5)
	second.Channel = notify.ChannelEmail
	third := newRecord(5)
	third.Type = notify.TypeLevelUp
	require.NoError(t, storage.CreateBatch(context.Background(), []notify.Notification{first, second, third}))

	t.Run("newest first", func(t *testing.T) {
		t.Parallel()
		records, err := storage.List(context.Background(), notify.Filter{})
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, third.ID, records[0].ID)
		assert.Equal(t, first.ID, records[2].ID)
	})

	t.Run("channel filter", func(t *testing.T) {
		t.Parallel()
		records, err := storage.List(context.Background(), notify.Filter{Channel: notify.ChannelEmail})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, second.ID, records[0].ID)
	})

	t.Run("type filter", func(t *testing.T) {
		t.Parallel()
		records, err := storage.List(context.Background(), notify.Filter{Type: notify.TypeLevelUp})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, third.ID, records[0].ID)
	})

	t.Run("offset and limit", func(t *testing.T) {
		t.Parallel()
		records, err := storage.List(context.Background(), notify.Filter{Offset: 1, Limit: 1})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, second.ID, records[0].ID)
	})

	t.Run("offset past the end", func(t *testing.T) {
		t.Parallel()
		records, err := storage.List(context.Background(), notify.Filter{Offset: 10})
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

func TestMemoryStorage_Stats(t *testing.T) {
	t.Parallel()

	storage := notify.NewMemoryStorage()

	a := newRecord(5)
	b := newRecord(5)
	b.Channel = notify.ChannelEmail
	c := newRecord(5)
	c.Type = notify.TypeLevelUp
	require.NoError(t, storage.CreateBatch(context.Background(), []notify.Notification{a, b, c}))

	stats, err := storage.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 3, stats.ByStatus[notify.StatusPending])
	assert.Equal(t, 2, stats.ByChannel[notify.ChannelInApp])
	assert.Equal(t, 1, stats.ByChannel[notify.ChannelEmail])
	assert.Equal(t, 2, stats.ByType[notify.TypeTeamUpdate])
	assert.Equal(t, 1, stats.ByType[notify.TypeLevelUp])
}
