// Package scheduler holds the time-ordered work queue that wakes suspended
// executions. Wake-ups live only in memory; a lost entry is recovered by
// re-running the execution from its persisted cursor.
package scheduler

import (
	"container/heap"
	"context"
	"log/slog"
	"sync"
	"time"
)

// Handler receives due wake-ups. Bound after construction to break the
// construction cycle with the execution manager.
type Handler interface {
	HandleResume(ctx context.Context, projectID, executionID string) error
	HandleTimeout(ctx context.Context, projectID, executionID, nodeID, action string) error
}

type entry struct {
	at          time.Time
	seq         int64
	projectID   string
	executionID string

	// Timeout entries carry the node and its policy; resume entries leave
	// them empty.
	timeout bool
	nodeID  string
	action  string
}

// queue is a min-heap ordered by due time, sequence-numbered for a stable
// order between equal times.
type queue []*entry

func (q queue) Len() int { return len(q) }

func (q queue) Less(i, j int) bool {
	if q[i].at.Equal(q[j].at) {
		return q[i].seq < q[j].seq
	}

	return q[i].at.Before(q[j].at)
}

func (q queue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *queue) Push(x any) { *q = append(*q, x.(*entry)) }

func (q *queue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]

	return e
}

// Scheduler drains the queue with a single timer worker. No worker thread
// ever sleeps on behalf of one execution.
type Scheduler struct {
	mu      sync.Mutex
	entries queue
	seq     int64
	wake    chan struct{}
	handler Handler
	logger  *slog.Logger
	now     func() time.Time
}

func NewScheduler(logger *slog.Logger) *Scheduler {
	s := &Scheduler{
		wake:   make(chan struct{}, 1),
		logger: logger.With("module", "scheduler"),
		now:    func() time.Time { return time.Now().UTC() },
	}

	heap.Init(&s.entries)

	return s
}

// Bind attaches the handler that receives due wake-ups. Must be called
// before Start.
func (s *Scheduler) Bind(h Handler) {
	s.handler = h
}

// ScheduleResume enqueues an unconditional wake-up.
func (s *Scheduler) ScheduleResume(projectID, executionID string, at time.Time) {
	s.push(&entry{at: at, projectID: projectID, executionID: executionID})
}

// ScheduleTimeout enqueues a timeout-policy wake-up.
func (s *Scheduler) ScheduleTimeout(projectID, executionID, nodeID, action string, at time.Time) {
	s.push(&entry{
		at:          at,
		projectID:   projectID,
		executionID: executionID,
		timeout:     true,
		nodeID:      nodeID,
		action:      action,
	})
}

func (s *Scheduler) push(e *entry) {
	s.mu.Lock()
	s.seq++
	e.seq = s.seq
	heap.Push(&s.entries, e)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Start runs the timer worker until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("scheduler started")

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		s.dispatchDue(ctx)

		wait := s.untilNext()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}

		timer.Reset(wait)

		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")

			return
		case <-s.wake:
		case <-timer.C:
		}
	}
}

func (s *Scheduler) untilNext() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) == 0 {
		return time.Hour
	}

	wait := s.entries[0].at.Sub(s.now())
	if wait < 0 {
		wait = 0
	}

	return wait
}

// dispatchDue pops and handles every entry whose time has come. Returns the
// number dispatched.
func (s *Scheduler) dispatchDue(ctx context.Context) int {
	dispatched := 0

	for {
		s.mu.Lock()

		if len(s.entries) == 0 || s.entries[0].at.After(s.now()) {
			s.mu.Unlock()

			return dispatched
		}

		e := heap.Pop(&s.entries).(*entry)
		s.mu.Unlock()

		s.dispatch(ctx, e)
		dispatched++
	}
}

func (s *Scheduler) dispatch(ctx context.Context, e *entry) {
	if s.handler == nil {
		s.logger.Error("no handler bound, dropping wake-up", "execution_id", e.executionID)

		return
	}

	var err error

	if e.timeout {
		err = s.handler.HandleTimeout(ctx, e.projectID, e.executionID, e.nodeID, e.action)
	} else {
		err = s.handler.HandleResume(ctx, e.projectID, e.executionID)
	}

	if err != nil {
		s.logger.Error("wake-up handling failed",
			"execution_id", e.executionID, "timeout", e.timeout, "error", err)
	}
}

// Pending returns the number of queued wake-ups.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}
