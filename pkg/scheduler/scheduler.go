// Package scheduler converts Event Bus handlers into bounded, isolated task
// executions. It exists so a bus handler can return in O(1) work while the
// actual LLM/DB work it triggers runs concurrently under its own timeout and
// a fresh database session.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/codeready-toolchain/docuchat/pkg/config"
	"github.com/codeready-toolchain/docuchat/pkg/models"
)

// Task is a unit of scheduled work. It receives a dedicated session (a
// fresh DB connection checked out for the task's duration) and the event
// that triggered it. The session is guaranteed closed on every exit path —
// success, error, panic recovery, or timeout/cancellation.
type Task func(ctx context.Context, sess *Session, ev models.Event) error

// SessionOpener opens a fresh per-task database session. The conversation
// and document Engines implement it; scheduler depends only on this narrow
// interface to stay decoupled from the ORM.
type SessionOpener interface {
	Open(ctx context.Context) (*Session, error)
}

// Session wraps a per-task resource (an ent client/transaction, in
// practice) that must be released when the task finishes.
type Session struct {
	// Ent is the underlying client/transaction handle, typed as any so
	// this package does not import the generated ent client.
	Ent    any
	Closer func() error
}

func (s *Session) close() {
	if s.Closer == nil {
		return
	}
	if err := s.Closer(); err != nil {
		slog.Warn("failed to close scheduler session", "error", err)
	}
}

type scheduledTask struct {
	task Task
	ev   models.Event
}

// Scheduler pops tasks off a FIFO and runs each as a tracked, isolated
// goroutine under a deadline. Mirrors the teacher's WorkerPool/Worker split
// (fixed background worker consuming a queue, an active-task registry used
// for graceful shutdown) generalized from "one session-processing worker
// pool" to "one bus-task worker pool".
type Scheduler struct {
	opener  SessionOpener
	timeout time.Duration

	queue chan scheduledTask

	mu      sync.Mutex
	active  map[string]context.CancelFunc
	nextID  uint64
	started bool
	stopCh  chan struct{}
	stopped sync.Once
	wg      sync.WaitGroup
}

// New creates a Scheduler backed by the given session opener, with the
// given per-task deadline and FIFO capacity.
func New(opener SessionOpener, cfg *config.SchedulerConfig) *Scheduler {
	capacity := cfg.QueueCapacity
	if capacity <= 0 {
		capacity = 1024
	}
	return &Scheduler{
		opener:  opener,
		timeout: cfg.TaskTimeout,
		queue:   make(chan scheduledTask, capacity),
		active:  make(map[string]context.CancelFunc),
		stopCh:  make(chan struct{}),
	}
}

// Start spawns the background worker that pops tasks off the FIFO.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(ctx)
}

// Schedule is the O(1) adapter a bus handler calls: it pushes (task, event)
// onto the FIFO and returns immediately without running anything. Once
// Shutdown has been called, Schedule becomes a no-op.
func (s *Scheduler) Schedule(task Task, ev models.Event) {
	select {
	case <-s.stopCh:
		return
	default:
	}

	select {
	case s.queue <- scheduledTask{task: task, ev: ev}:
	case <-s.stopCh:
	}
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case st := <-s.queue:
			s.spawn(ctx, st)
		}
	}
}

func (s *Scheduler) spawn(parentCtx context.Context, st scheduledTask) {
	s.mu.Lock()
	s.nextID++
	id := fmt.Sprintf("task-%d", s.nextID)
	taskCtx, cancel := context.WithTimeout(parentCtx, s.timeout)
	s.active[id] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			cancel()
			s.mu.Lock()
			delete(s.active, id)
			s.mu.Unlock()
		}()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("scheduler: task panicked",
					"task_id", id, "event_type", st.ev.Type, "document_id", st.ev.DocumentID, "panic", r)
			}
		}()

		sess, err := s.opener.Open(taskCtx)
		if err != nil {
			slog.Error("scheduler: failed to open task session", "task_id", id, "error", err)
			return
		}
		defer sess.close()

		if err := st.task(taskCtx, sess, st.ev); err != nil {
			slog.Error("scheduler: task failed",
				"task_id", id, "event_type", st.ev.Type, "document_id", st.ev.DocumentID, "error", err)
		}
	}()
}

// Shutdown stops accepting new tasks, cancels every active task, and waits
// (up to ctx) for all in-flight goroutines to exit.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.stopped.Do(func() { close(s.stopCh) })

	s.mu.Lock()
	for _, cancel := range s.active {
		cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ActiveCount returns the number of tasks currently in flight.
func (s *Scheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}
