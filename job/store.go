package job

import (
	"context"

	"github.com/google/uuid"
)

// SnapshotFunc receives the full job list ordered by creation time, newest first.
type SnapshotFunc func(jobs []*Job)

// Store defines the persistence operations for repair jobs.
type Store interface {
	// Create persists a new job. The store assigns ID and CreatedAt.
	Create(ctx context.Context, job *Job) error

	// GetByID retrieves a single job.
	GetByID(ctx context.Context, id uuid.UUID) (*Job, error)

	// List returns every job ordered by CreatedAt descending.
	List(ctx context.Context) ([]*Job, error)

	// NumberExists reports whether any job already carries the given job number.
	NumberExists(ctx context.Context, number string) (bool, error)

	// UpdateStatus changes only the status column.
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error

	// Delete permanently removes a job.
	Delete(ctx context.Context, id uuid.UUID) error

	// Subscribe registers fn for the initial snapshot and one snapshot after
	// every mutation. The returned function stops delivery.
	Subscribe(ctx context.Context, fn SnapshotFunc) (func(), error)
}
