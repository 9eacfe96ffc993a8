package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu       sync.Mutex
	resumes  []string
	timeouts []string
	actions  []string
}

func (h *recordingHandler) HandleResume(_ context.Context, _, executionID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.resumes = append(h.resumes, executionID)

	return nil
}

func (h *recordingHandler) HandleTimeout(_ context.Context, _, executionID, _, action string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.timeouts = append(h.timeouts, executionID)
	h.actions = append(h.actions, action)

	return nil
}

func TestScheduler_DispatchesInTimeOrder(t *testing.T) {
	s := NewScheduler(slog.Default())
	handler := &recordingHandler{}
	s.Bind(handler)

	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	s.ScheduleResume("proj", "exec-later", base.Add(2*time.Minute))
	s.ScheduleResume("proj", "exec-sooner", base.Add(time.Minute))
	s.ScheduleResume("proj", "exec-future", base.Add(time.Hour))

	s.now = func() time.Time { return base.Add(5 * time.Minute) }

	dispatched := s.dispatchDue(context.Background())

	assert.Equal(t, 2, dispatched)
	assert.Equal(t, []string{"exec-sooner", "exec-later"}, handler.resumes)
	assert.Equal(t, 1, s.Pending())
}

func TestScheduler_TimeoutEntriesCarryPolicy(t *testing.T) {
	s := NewScheduler(slog.Default())
	handler := &recordingHandler{}
	s.Bind(handler)

	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	s.ScheduleTimeout("proj", "exec-1", "wait-1", "end", base)

	s.now = func() time.Time { return base.Add(time.Second) }

	require.Equal(t, 1, s.dispatchDue(context.Background()))
	assert.Equal(t, []string{"exec-1"}, handler.timeouts)
	assert.Equal(t, []string{"end"}, handler.actions)
	assert.Empty(t, handler.resumes)
}

func TestScheduler_NothingDueLeavesQueueIntact(t *testing.T) {
	s := NewScheduler(slog.Default())
	s.Bind(&recordingHandler{})

	s.ScheduleResume("proj", "exec-1", time.Now().UTC().Add(time.Hour))

	assert.Equal(t, 0, s.dispatchDue(context.Background()))
	assert.Equal(t, 1, s.Pending())
}

func TestScheduler_StableOrderForEqualTimes(t *testing.T) {
	s := NewScheduler(slog.Default())
	handler := &recordingHandler{}
	s.Bind(handler)

	at := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	s.ScheduleResume("proj", "first", at)
	s.ScheduleResume("proj", "second", at)
	s.ScheduleResume("proj", "third", at)

	s.now = func() time.Time { return at }

	require.Equal(t, 3, s.dispatchDue(context.Background()))
	assert.Equal(t, []string{"first", "second", "third"}, handler.resumes)
}

func TestScheduler_WorkerDispatchesDueEntries(t *testing.T) {
	s := NewScheduler(slog.Default())
	handler := &recordingHandler{}
	s.Bind(handler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.Start(ctx)

	s.ScheduleResume("proj", "exec-1", time.Now().UTC().Add(20*time.Millisecond))

	require.Eventually(t, func() bool {
		handler.mu.Lock()
		defer handler.mu.Unlock()

		return len(handler.resumes) == 1
	}, time.Second, 5*time.Millisecond)
}
