package job

import (
	"sync"
)

// Feed fans job snapshots out to subscribers. Each subscriber runs on its own
// goroutine, so its callback never runs concurrently with itself, and only
// the most recent undelivered snapshot is kept for it.
type Feed struct {
	mu     sync.Mutex
	subs   map[uint64]*subscriber
	nextID uint64
	closed bool
}

type subscriber struct {
	fn      SnapshotFunc
	mu      sync.Mutex
	pending []*Job
	has     bool
	wake    chan struct{}
	done    chan struct{}
	stopped sync.Once
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{subs: make(map[uint64]*subscriber)}
}

// Subscribe registers fn and queues initial as its first snapshot.
// The returned function is safe to call more than once.
func (f *Feed) Subscribe(fn SnapshotFunc, initial []*Job) func() {
	sub := &subscriber{
		fn:   fn,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return func() {}
	}
	id := f.nextID
	f.nextID++
	f.subs[id] = sub
	f.mu.Unlock()

	sub.offer(initial)
	go sub.run()

	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
		sub.stop()
	}
}

// Publish queues snapshot for every subscriber.
func (f *Feed) Publish(snapshot []*Job) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subs {
		sub.offer(snapshot)
	}
}

// Len returns the number of live subscribers.
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Close stops every subscriber. Later subscriptions are ignored.
func (f *Feed) Close() {
	f.mu.Lock()
	subs := f.subs
	f.subs = make(map[uint64]*subscriber)
	f.closed = true
	f.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}
}

func (s *subscriber) offer(snapshot []*Job) {
	s.mu.Lock()
	s.pending = snapshot
	s.has = true
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) stop() {
	s.stopped.Do(func() {
		close(s.done)
	})
}

func (s *subscriber) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}

		s.mu.Lock()
		snapshot, has := s.pending, s.has
		s.pending, s.has = nil, false
		s.mu.Unlock()

		if !has {
			continue
		}
		select {
		case <-s.done:
			return
		default:
		}
		s.fn(copyJobs(snapshot))
	}
}

// copyJobs gives each subscriber its own job values so callbacks cannot
// mutate each other's view.
func copyJobs(jobs []*Job) []*Job {
	out := make([]*Job, len(jobs))
	for i, j := range jobs {
		c := *j
		out[i] = &c
	}
	return out
}
