package lifecycle

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hairizuan-noorazman/repair-desk/job"
	"github.com/hairizuan-noorazman/repair-desk/logger"
	"github.com/hairizuan-noorazman/repair-desk/notify"
	"github.com/hairizuan-noorazman/repair-desk/shop"
	"github.com/hairizuan-noorazman/repair-desk/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (s *recordingSender) Send(ctx context.Context, msg notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return s.err
}

func (s *recordingSender) attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

// failingStore fails status updates while still serving reads.
type failingStore struct {
	job.Store
	err error
}

func (s *failingStore) UpdateStatus(ctx context.Context, id uuid.UUID, status job.Status) error {
	return s.err
}

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func setupController(t *testing.T, opts ...Option) (*Controller, *job.MySQLStore, *recordingSender) {
	db := testutil.SetupTestDB(t)
	testutil.AutoMigrate(t, db, &job.Job{})

	feed := job.NewFeed()
	t.Cleanup(feed.Close)

	log := logger.NewTestLogger()
	store := job.NewMySQLStore(db, feed, log)
	sender := &recordingSender{}
	dispatcher := notify.NewDispatcher(sender, log)

	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return NewController(store, dispatcher, shop.DefaultProfile(), log, opts...), store, sender
}

func janeIntake() Intake {
	return Intake{
		CustomerName: "Jane Doe",
		Phone:        "0771234567",
		Email:        "jane@x.com",
		DeviceModel:  "XPS 13",
		SerialNumber: "SN001",
		Problem:      "Won't boot",
	}
}

func TestCreateJob(t *testing.T) {
	c, store, sender := setupController(t)
	ctx := context.Background()

	result, err := c.CreateJob(ctx, janeIntake())
	require.NoError(t, err)

	assert.Equal(t, job.StatusReceived, result.Job.Status)
	assert.Equal(t, job.DeviceLaptop, result.Job.DeviceType)
	assert.Equal(t, "2026-03-14", result.Job.ReceivedDate)
	assert.Regexp(t, regexp.MustCompile(`^JOB-2026\d{3}$`), result.Job.Number)
	assert.NotEqual(t, uuid.Nil, result.Job.ID)

	assert.Equal(t, 1, sender.attempts())
	require.NotNil(t, result.Notice)
	assert.Equal(t, notify.MethodServer, result.Notice.Method)
	assert.Contains(t, sender.sent[0].Subject, "Repair Job Received - #"+result.Job.Number)

	stored, err := store.GetByID(ctx, result.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", stored.CustomerName)
}

func TestCreateJob_WithoutEmailSendsNothing(t *testing.T) {
	c, _, sender := setupController(t)

	in := janeIntake()
	in.Email = ""
	result, err := c.CreateJob(context.Background(), in)
	require.NoError(t, err)

	assert.Nil(t, result.Notice)
	assert.Equal(t, 0, sender.attempts())
}

func TestCreateJob_ValidationError(t *testing.T) {
	c, store, sender := setupController(t)
	ctx := context.Background()

	_, err := c.CreateJob(ctx, Intake{CustomerName: "Jane Doe", Email: "not-an-address"})

	var verr *job.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ElementsMatch(t, []string{"phone", "device_model", "serial_number", "problem", "email"}, verr.Fields)

	jobs, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs)
	assert.Equal(t, 0, sender.attempts())
}

func TestCreateJob_NotificationFailureKeepsJob(t *testing.T) {
	c, store, sender := setupController(t)
	sender.err = errors.New("network down")
	ctx := context.Background()

	result, err := c.CreateJob(ctx, janeIntake())
	require.NoError(t, err)
	require.True(t, result.Notice.Fallback())
	assert.Contains(t, result.Notice.Compose.URL, "mailto:jane@x.com")

	_, err = store.GetByID(ctx, result.Job.ID)
	assert.NoError(t, err)
}

func TestCreateJob_RetriesTakenNumbers(t *testing.T) {
	numbers := []string{"JOB-2026001", "JOB-2026001", "JOB-2026002"}
	var calls int
	gen := func(prefix string, now time.Time) string {
		n := numbers[calls]
		calls++
		return n
	}
	c, _, _ := setupController(t, WithNumberGenerator(gen))
	ctx := context.Background()

	first, err := c.CreateJob(ctx, janeIntake())
	require.NoError(t, err)
	second, err := c.CreateJob(ctx, janeIntake())
	require.NoError(t, err)

	assert.Equal(t, "JOB-2026001", first.Job.Number)
	assert.Equal(t, "JOB-2026002", second.Job.Number)
	assert.Equal(t, 3, calls)
}

func TestCreateJob_AcceptsDuplicateAfterMaxAttempts(t *testing.T) {
	gen := func(prefix string, now time.Time) string { return "JOB-2026777" }
	c, _, _ := setupController(t, WithNumberGenerator(gen))
	ctx := context.Background()

	_, err := c.CreateJob(ctx, janeIntake())
	require.NoError(t, err)
	second, err := c.CreateJob(ctx, janeIntake())
	require.NoError(t, err)
	assert.Equal(t, "JOB-2026777", second.Job.Number)

	log := c.logger.(*logger.TestLogger)
	assert.True(t, log.Has("warn", "job number already in use, accepting duplicate"))
}

func TestStageStatusChange(t *testing.T) {
	c, _, _ := setupController(t)
	id := uuid.New()

	_, ok := c.Staged(id)
	assert.False(t, ok)

	c.StageStatusChange(id, job.StatusInProgress)
	c.StageStatusChange(id, job.StatusCompleted)

	status, ok := c.Staged(id)
	require.True(t, ok)
	assert.Equal(t, job.StatusCompleted, status)
	assert.Equal(t, map[uuid.UUID]job.Status{id: job.StatusCompleted}, c.StagedChanges())

	c.DiscardStaged(id)
	assert.Empty(t, c.StagedChanges())
}

func TestCommitStatusChange_NoEmail(t *testing.T) {
	c, store, sender := setupController(t)
	ctx := context.Background()

	in := janeIntake()
	in.Email = ""
	created, err := c.CreateJob(ctx, in)
	require.NoError(t, err)

	c.StageStatusChange(created.Job.ID, job.StatusCompleted)
	result, err := c.CommitStatusChange(ctx, created.Job.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Nil(t, result.Notice)

	stored, err := store.GetByID(ctx, created.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.StatusCompleted, stored.Status)
	assert.Equal(t, 0, sender.attempts())

	_, staged := c.Staged(created.Job.ID)
	assert.False(t, staged)
}

func TestCommitStatusChange_SameStatusIsNoop(t *testing.T) {
	c, _, sender := setupController(t)
	ctx := context.Background()

	created, err := c.CreateJob(ctx, janeIntake())
	require.NoError(t, err)
	require.Equal(t, 1, sender.attempts())

	c.StageStatusChange(created.Job.ID, job.StatusReceived)
	result, err := c.CommitStatusChange(ctx, created.Job.ID)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 1, sender.attempts())
}

func TestCommitStatusChange_NothingStaged(t *testing.T) {
	c, _, _ := setupController(t)

	result, err := c.CommitStatusChange(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestCommitStatusChange_RejectsInvalidStatus(t *testing.T) {
	c, store, _ := setupController(t)
	ctx := context.Background()

	created, err := c.CreateJob(ctx, janeIntake())
	require.NoError(t, err)

	c.StageStatusChange(created.Job.ID, job.Status("Lost"))
	_, err = c.CommitStatusChange(ctx, created.Job.ID)
	assert.ErrorIs(t, err, job.ErrInvalidStatus)

	stored, err := store.GetByID(ctx, created.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.StatusReceived, stored.Status)
}

func TestCommitStatusChange_SendsUpdate(t *testing.T) {
	c, _, sender := setupController(t)
	ctx := context.Background()

	created, err := c.CreateJob(ctx, janeIntake())
	require.NoError(t, err)

	c.StageStatusChange(created.Job.ID, job.StatusWaitingParts)
	result, err := c.CommitStatusChange(ctx, created.Job.ID)
	require.NoError(t, err)

	assert.Equal(t, job.StatusWaitingParts, result.Job.Status)
	assert.Equal(t, notify.MethodServer, result.Notice.Method)
	require.Equal(t, 2, sender.attempts())
	assert.Equal(t, "Update on Repair Job #"+created.Job.Number+" - Waiting parts", sender.sent[1].Subject)
}

func TestCommitStatusChange_NotifierFailureFallsBack(t *testing.T) {
	c, store, sender := setupController(t)
	ctx := context.Background()

	created, err := c.CreateJob(ctx, janeIntake())
	require.NoError(t, err)
	sender.err = errors.New("network down")

	c.StageStatusChange(created.Job.ID, job.StatusCompleted)
	result, err := c.CommitStatusChange(ctx, created.Job.ID)
	require.NoError(t, err)

	require.True(t, result.Notice.Fallback())
	require.NotNil(t, result.Notice.Compose)
	assert.Equal(t, "jane@x.com", result.Notice.Compose.To)
	assert.Equal(t, 2, sender.attempts())

	stored, err := store.GetByID(ctx, created.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.StatusCompleted, stored.Status)
}

func TestCommitStatusChange_StoreFailureKeepsStaged(t *testing.T) {
	c, store, sender := setupController(t)
	ctx := context.Background()

	created, err := c.CreateJob(ctx, janeIntake())
	require.NoError(t, err)

	c.store = &failingStore{Store: store, err: job.ErrStoreUnavailable}
	c.StageStatusChange(created.Job.ID, job.StatusCompleted)

	_, err = c.CommitStatusChange(ctx, created.Job.ID)
	assert.ErrorIs(t, err, job.ErrStoreUnavailable)

	status, ok := c.Staged(created.Job.ID)
	assert.True(t, ok)
	assert.Equal(t, job.StatusCompleted, status)
	assert.Equal(t, 1, sender.attempts())
}

func TestDeleteJob(t *testing.T) {
	c, store, _ := setupController(t)
	ctx := context.Background()

	created, err := c.CreateJob(ctx, janeIntake())
	require.NoError(t, err)
	c.StageStatusChange(created.Job.ID, job.StatusCollected)

	err = c.DeleteJob(ctx, created.Job.ID, NotConfirmed)
	assert.ErrorIs(t, err, ErrDeleteNotConfirmed)

	require.NoError(t, c.DeleteJob(ctx, created.Job.ID, Confirmed))
	_, err = store.GetByID(ctx, created.Job.ID)
	assert.ErrorIs(t, err, job.ErrJobNotFound)
	assert.Empty(t, c.StagedChanges())
}

func TestDeleteJob_MissingIsSuccess(t *testing.T) {
	c, _, _ := setupController(t)

	err := c.DeleteJob(context.Background(), uuid.New(), Confirmed)
	assert.NoError(t, err)
}

func TestNotify(t *testing.T) {
	c, _, sender := setupController(t)
	ctx := context.Background()

	created, err := c.CreateJob(ctx, janeIntake())
	require.NoError(t, err)

	result, err := c.Notify(ctx, created.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, notify.MethodServer, result.Notice.Method)
	assert.Equal(t, 2, sender.attempts())

	in := janeIntake()
	in.Email = ""
	quiet, err := c.CreateJob(ctx, in)
	require.NoError(t, err)
	_, err = c.Notify(ctx, quiet.Job.ID)
	assert.ErrorIs(t, err, ErrNoEmail)

	_, err = c.Notify(ctx, uuid.New())
	assert.ErrorIs(t, err, job.ErrJobNotFound)
}

func TestDispatch_UnknownKindStillComposes(t *testing.T) {
	c, _, sender := setupController(t)
	j := &job.Job{
		ID:           uuid.New(),
		Number:       "JOB-2026042",
		CustomerName: "Jane Doe",
		Email:        "jane@x.com",
		Status:       job.StatusCompleted,
	}

	delivery := c.dispatch(context.Background(), notify.Kind("reminder"), j)

	assert.Equal(t, notify.MethodFallback, delivery.Method)
	assert.NotEmpty(t, delivery.Cause)
	require.NotNil(t, delivery.Compose)
	assert.Equal(t, "jane@x.com", delivery.Compose.To)
	assert.Contains(t, delivery.Compose.Subject, "JOB-2026042")
	assert.Contains(t, delivery.Compose.Body, "Dear Jane Doe,")
	assert.Equal(t, 0, sender.attempts())
}
