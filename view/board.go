package view

import (
	"context"
	"errors"
	"sync"

	"github.com/hairizuan-noorazman/repair-desk/job"
)

// ErrBoardClosed is returned when waiting on a board that was closed.
var ErrBoardClosed = errors.New("board closed")

// Board keeps the latest job snapshot for one session together with the
// active filter. Filtered views are derived on every read.
type Board struct {
	mu          sync.RWMutex
	jobs        []*job.Job
	filter      Filter
	ready       chan struct{}
	readyOnce   sync.Once
	closed      chan struct{}
	closeOnce   sync.Once
	unsubscribe func()
}

// NewBoard subscribes to store. The first snapshot arrives asynchronously;
// use WaitReady before the first read when it matters.
func NewBoard(ctx context.Context, store job.Store) (*Board, error) {
	b := &Board{
		filter: Filter{Status: StatusAll},
		ready:  make(chan struct{}),
		closed: make(chan struct{}),
	}

	unsubscribe, err := store.Subscribe(ctx, b.update)
	if err != nil {
		return nil, err
	}
	b.unsubscribe = unsubscribe
	return b, nil
}

func (b *Board) update(jobs []*job.Job) {
	b.mu.Lock()
	b.jobs = jobs
	b.mu.Unlock()
	b.readyOnce.Do(func() { close(b.ready) })
}

// WaitReady blocks until the first snapshot is in.
func (b *Board) WaitReady(ctx context.Context) error {
	select {
	case <-b.ready:
		return nil
	case <-b.closed:
		return ErrBoardClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetFilter replaces the active filter.
func (b *Board) SetFilter(f Filter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filter = f
}

// Filter returns the active filter.
func (b *Board) Filter() Filter {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.filter
}

// Jobs returns the full latest snapshot, newest first.
func (b *Board) Jobs() []*job.Job {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*job.Job, len(b.jobs))
	copy(out, b.jobs)
	return out
}

// Visible returns the snapshot narrowed by the active filter.
func (b *Board) Visible() []*job.Job {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Apply(b.jobs, b.filter)
}

// Stats counts over the full snapshot regardless of the filter.
func (b *Board) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return ComputeStats(b.jobs)
}

// Close stops the live subscription. Safe to call more than once.
func (b *Board) Close() {
	b.closeOnce.Do(func() {
		close(b.closed)
		if b.unsubscribe != nil {
			b.unsubscribe()
		}
	})
}
