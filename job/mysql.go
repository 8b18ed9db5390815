package job

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hairizuan-noorazman/repair-desk/logger"
	"gorm.io/gorm"
)

// MySQLStore implements Store with GORM. It runs against MySQL in production
// and SQLite in tests and single-machine installs.
type MySQLStore struct {
	db     *gorm.DB
	feed   *Feed
	logger logger.Logger
	now    func() time.Time

	// writeMu orders each mutation with the snapshot published after it.
	writeMu     sync.Mutex
	lastCreated time.Time
}

// Option configures a MySQLStore.
type Option func(*MySQLStore)

// WithClock replaces the clock used to stamp CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *MySQLStore) {
		s.now = now
	}
}

// NewMySQLStore creates a new GORM-backed job store publishing to feed.
func NewMySQLStore(db *gorm.DB, feed *Feed, log logger.Logger, opts ...Option) *MySQLStore {
	s := &MySQLStore{
		db:     db,
		feed:   feed,
		logger: log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// nextCreatedAt returns a timestamp strictly after the previous one handed out.
// Callers hold writeMu.
func (s *MySQLStore) nextCreatedAt() time.Time {
	now := s.now().UTC().Truncate(time.Microsecond)
	if !now.After(s.lastCreated) {
		now = s.lastCreated.Add(time.Microsecond)
	}
	s.lastCreated = now
	return now
}

// Create creates a new job in the database.
func (s *MySQLStore) Create(ctx context.Context, j *Job) error {
	if err := j.Validate(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	j.ID = uuid.New()
	j.CreatedAt = s.nextCreatedAt()

	if err := s.db.WithContext(ctx).Create(j).Error; err != nil {
		s.logger.Error(ctx, "failed to create job", map[string]interface{}{
			"error":      err.Error(),
			"job_number": j.Number,
		})
		return unavailable(err)
	}

	s.logger.Info(ctx, "job created", map[string]interface{}{
		"id":         j.ID.String(),
		"job_number": j.Number,
	})

	s.publish(ctx)
	return nil
}

// GetByID retrieves a job by its ID.
func (s *MySQLStore) GetByID(ctx context.Context, id uuid.UUID) (*Job, error) {
	var j Job
	err := s.db.WithContext(ctx).
		Where("id = ?", id).
		First(&j).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		s.logger.Error(ctx, "failed to get job by ID", map[string]interface{}{
			"error": err.Error(),
			"id":    id.String(),
		})
		return nil, unavailable(err)
	}

	return &j, nil
}

// List returns all jobs, newest first.
func (s *MySQLStore) List(ctx context.Context) ([]*Job, error) {
	var jobs []*Job
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&jobs).Error

	if err != nil {
		s.logger.Error(ctx, "failed to list jobs", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, unavailable(err)
	}

	return jobs, nil
}

// NumberExists reports whether a job number is already in use.
func (s *MySQLStore) NumberExists(ctx context.Context, number string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&Job{}).
		Where("job_number = ?", number).
		Count(&count).Error

	if err != nil {
		s.logger.Error(ctx, "failed to check job number", map[string]interface{}{
			"error":      err.Error(),
			"job_number": number,
		})
		return false, unavailable(err)
	}

	return count > 0, nil
}

// UpdateStatus changes the status column of a single job.
func (s *MySQLStore) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	if !status.IsValid() {
		return ErrInvalidStatus
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res := s.db.WithContext(ctx).
		Model(&Job{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": s.now().UTC(),
		})

	if res.Error != nil {
		s.logger.Error(ctx, "failed to update job status", map[string]interface{}{
			"error":  res.Error.Error(),
			"id":     id.String(),
			"status": string(status),
		})
		return unavailable(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrJobNotFound
	}

	s.logger.Info(ctx, "job status updated", map[string]interface{}{
		"id":     id.String(),
		"status": string(status),
	})

	s.publish(ctx)
	return nil
}

// Delete permanently removes a job.
func (s *MySQLStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res := s.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&Job{})

	if res.Error != nil {
		s.logger.Error(ctx, "failed to delete job", map[string]interface{}{
			"error": res.Error.Error(),
			"id":    id.String(),
		})
		return unavailable(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrJobNotFound
	}

	s.logger.Info(ctx, "job deleted", map[string]interface{}{
		"id": id.String(),
	})

	s.publish(ctx)
	return nil
}

// Subscribe loads the current list and registers fn on the feed.
func (s *MySQLStore) Subscribe(ctx context.Context, fn SnapshotFunc) (func(), error) {
	// Holding writeMu keeps a mutation from slipping between the initial
	// load and the registration.
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	jobs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.feed.Subscribe(fn, jobs), nil
}

// publish pushes the post-write list to subscribers. Callers hold writeMu.
func (s *MySQLStore) publish(ctx context.Context) {
	// The write already happened; a cancelled request must not suppress the snapshot.
	jobs, err := s.List(context.WithoutCancel(ctx))
	if err != nil {
		s.logger.Warn(ctx, "snapshot skipped after write", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	s.feed.Publish(jobs)
}
