package job

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hairizuan-noorazman/repair-desk/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMySQLStore_Create(t *testing.T) {
	_, store := setupTestStore(t)
	ctx := context.Background()

	t.Run("successfully create job", func(t *testing.T) {
		j := newTestJob("Jane Doe")
		err := store.Create(ctx, j)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, j.ID)
		assert.False(t, j.CreatedAt.IsZero())
		assert.Equal(t, StatusReceived, j.Status)
	})

	t.Run("store overrides caller supplied id", func(t *testing.T) {
		preset := uuid.New()
		j := newTestJob("John Roe")
		j.ID = preset
		require.NoError(t, store.Create(ctx, j))
		assert.NotEqual(t, preset, j.ID)
	})

	t.Run("missing required fields returns validation error", func(t *testing.T) {
		j := &Job{DeviceType: DeviceLaptop, Status: StatusReceived}
		err := store.Create(ctx, j)

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.ElementsMatch(t, []string{"customer_name", "phone", "device_model", "serial_number", "problem"}, verr.Fields)
	})

	t.Run("invalid status returns error", func(t *testing.T) {
		j := newTestJob("Bad Status")
		j.Status = Status("Lost")
		err := store.Create(ctx, j)
		assert.ErrorIs(t, err, ErrInvalidStatus)
	})
}

func TestMySQLStore_GetByID(t *testing.T) {
	_, store := setupTestStore(t)
	ctx := context.Background()

	t.Run("retrieve existing job", func(t *testing.T) {
		j := newTestJob("Jane Doe")
		require.NoError(t, store.Create(ctx, j))

		retrieved, err := store.GetByID(ctx, j.ID)
		require.NoError(t, err)
		assert.Equal(t, j.ID, retrieved.ID)
		assert.Equal(t, "JOB-2026001", retrieved.Number)
		assert.Equal(t, "XPS 13", retrieved.DeviceModel)
		assert.Equal(t, StatusReceived, retrieved.Status)
	})

	t.Run("non-existent job returns error", func(t *testing.T) {
		_, err := store.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrJobNotFound)
	})
}

func TestMySQLStore_List(t *testing.T) {
	_, store := setupTestStore(t)
	ctx := context.Background()

	names := []string{"first", "second", "third"}
	for _, n := range names {
		require.NoError(t, store.Create(ctx, newTestJob(n)))
	}

	jobs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, "third", jobs[0].CustomerName)
	assert.Equal(t, "second", jobs[1].CustomerName)
	assert.Equal(t, "first", jobs[2].CustomerName)
	assert.True(t, jobs[0].CreatedAt.After(jobs[1].CreatedAt))
}

func TestMySQLStore_CreatedAtIsMonotonic(t *testing.T) {
	db, _ := setupTestStore(t)
	ctx := context.Background()

	frozen := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMySQLStore(db, NewFeed(), logger.NewTestLogger(), WithClock(func() time.Time { return frozen }))

	a := newTestJob("a")
	b := newTestJob("b")
	require.NoError(t, store.Create(ctx, a))
	require.NoError(t, store.Create(ctx, b))
	assert.True(t, b.CreatedAt.After(a.CreatedAt))
}

func TestMySQLStore_NumberExists(t *testing.T) {
	_, store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newTestJob("Jane Doe")))

	exists, err := store.NumberExists(ctx, "JOB-2026001")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.NumberExists(ctx, "JOB-2026999")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMySQLStore_UpdateStatus(t *testing.T) {
	_, store := setupTestStore(t)
	ctx := context.Background()

	t.Run("update status", func(t *testing.T) {
		j := newTestJob("Jane Doe")
		require.NoError(t, store.Create(ctx, j))

		require.NoError(t, store.UpdateStatus(ctx, j.ID, StatusCompleted))

		retrieved, err := store.GetByID(ctx, j.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, retrieved.Status)
		assert.Equal(t, j.CustomerName, retrieved.CustomerName)
	})

	t.Run("any status can move to any other", func(t *testing.T) {
		j := newTestJob("Back And Forth")
		require.NoError(t, store.Create(ctx, j))

		require.NoError(t, store.UpdateStatus(ctx, j.ID, StatusCollected))
		require.NoError(t, store.UpdateStatus(ctx, j.ID, StatusReceived))

		retrieved, err := store.GetByID(ctx, j.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusReceived, retrieved.Status)
	})

	t.Run("update with invalid status returns error", func(t *testing.T) {
		j := newTestJob("Jane Doe")
		require.NoError(t, store.Create(ctx, j))

		err := store.UpdateStatus(ctx, j.ID, Status("Lost"))
		assert.ErrorIs(t, err, ErrInvalidStatus)
	})

	t.Run("update non-existent returns error", func(t *testing.T) {
		err := store.UpdateStatus(ctx, uuid.New(), StatusCompleted)
		assert.ErrorIs(t, err, ErrJobNotFound)
	})
}

func TestMySQLStore_Delete(t *testing.T) {
	_, store := setupTestStore(t)
	ctx := context.Background()

	t.Run("delete existing job", func(t *testing.T) {
		j := newTestJob("Jane Doe")
		require.NoError(t, store.Create(ctx, j))

		require.NoError(t, store.Delete(ctx, j.ID))

		_, err := store.GetByID(ctx, j.ID)
		assert.ErrorIs(t, err, ErrJobNotFound)
	})

	t.Run("delete non-existent returns not found", func(t *testing.T) {
		err := store.Delete(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrJobNotFound)
	})
}

func TestMySQLStore_StoreUnavailable(t *testing.T) {
	db, store := setupTestStore(t)
	ctx := context.Background()

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	err = store.Create(ctx, newTestJob("Jane Doe"))
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	err = store.UpdateStatus(ctx, uuid.New(), StatusCompleted)
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = store.List(ctx)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

// snapshotRecorder collects snapshots delivered to a subscriber.
type snapshotRecorder struct {
	mu        sync.Mutex
	snapshots [][]*Job
}

func (r *snapshotRecorder) record(jobs []*Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, jobs)
}

func (r *snapshotRecorder) last() []*Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snapshots) == 0 {
		return nil
	}
	return r.snapshots[len(r.snapshots)-1]
}

func (r *snapshotRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

func TestMySQLStore_Subscribe(t *testing.T) {
	_, store := setupTestStore(t)
	ctx := context.Background()

	existing := newTestJob("Existing")
	require.NoError(t, store.Create(ctx, existing))

	rec := &snapshotRecorder{}
	unsubscribe, err := store.Subscribe(ctx, rec.record)
	require.NoError(t, err)

	t.Run("initial snapshot is delivered", func(t *testing.T) {
		require.Eventually(t, func() bool {
			last := rec.last()
			return len(last) == 1 && last[0].ID == existing.ID
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("create pushes ordered list", func(t *testing.T) {
		fresh := newTestJob("Fresh")
		require.NoError(t, store.Create(ctx, fresh))

		require.Eventually(t, func() bool {
			last := rec.last()
			return len(last) == 2 && last[0].ID == fresh.ID && last[1].ID == existing.ID
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("status update pushes new state", func(t *testing.T) {
		require.NoError(t, store.UpdateStatus(ctx, existing.ID, StatusWaitingParts))

		require.Eventually(t, func() bool {
			for _, j := range rec.last() {
				if j.ID == existing.ID {
					return j.Status == StatusWaitingParts
				}
			}
			return false
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("delete pushes shorter list", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, existing.ID))

		require.Eventually(t, func() bool {
			return len(rec.last()) == 1
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("unsubscribe stops delivery", func(t *testing.T) {
		unsubscribe()
		unsubscribe()
		before := rec.count()

		require.NoError(t, store.Create(ctx, newTestJob("After")))
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, before, rec.count())
	})
}
