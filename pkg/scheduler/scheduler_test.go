package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/codeready-toolchain/docuchat/pkg/config"
	"github.com/codeready-toolchain/docuchat/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubOpener struct {
	closed atomic.Int32
	failOn func() bool
}

func (o *stubOpener) Open(ctx context.Context) (*Session, error) {
	if o.failOn != nil && o.failOn() {
		return nil, errors.New("open failed")
	}
	return &Session{Closer: func() error {
		o.closed.Add(1)
		return nil
	}}, nil
}

func newTestScheduler(opener SessionOpener) *Scheduler {
	cfg := config.DefaultSchedulerConfig()
	cfg.TaskTimeout = time.Second
	return New(opener, cfg)
}

func TestScheduler_ScheduleRunsTaskAndClosesSession(t *testing.T) {
	opener := &stubOpener{}
	s := newTestScheduler(opener)
	s.Start(context.Background())
	defer s.Shutdown(context.Background())

	done := make(chan struct{})
	s.Schedule(func(ctx context.Context, sess *Session, ev models.Event) error {
		close(done)
		return nil
	}, models.Event{Type: "question.ready"})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task never ran")
	}

	require.Eventually(t, func() bool { return opener.closed.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestScheduler_TaskFaultDoesNotStopWorker(t *testing.T) {
	opener := &stubOpener{}
	s := newTestScheduler(opener)
	s.Start(context.Background())
	defer s.Shutdown(context.Background())

	s.Schedule(func(ctx context.Context, sess *Session, ev models.Event) error {
		return errors.New("boom")
	}, models.Event{Type: "a"})

	done := make(chan struct{})
	s.Schedule(func(ctx context.Context, sess *Session, ev models.Event) error {
		close(done)
		return nil
	}, models.Event{Type: "b"})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker stopped processing after a task fault")
	}
}

func TestScheduler_TaskRespectsTimeout(t *testing.T) {
	opener := &stubOpener{}
	cfg := config.DefaultSchedulerConfig()
	cfg.TaskTimeout = 20 * time.Millisecond
	s := New(opener, cfg)
	s.Start(context.Background())
	defer s.Shutdown(context.Background())

	var sawDeadlineExceeded atomic.Bool
	done := make(chan struct{})
	s.Schedule(func(ctx context.Context, sess *Session, ev models.Event) error {
		<-ctx.Done()
		sawDeadlineExceeded.Store(errors.Is(ctx.Err(), context.DeadlineExceeded))
		close(done)
		return nil
	}, models.Event{Type: "slow"})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task context never expired")
	}
	assert.True(t, sawDeadlineExceeded.Load())
}

func TestScheduler_ShutdownCancelsActiveTasksAndStopsAcceptingNewOnes(t *testing.T) {
	opener := &stubOpener{}
	s := newTestScheduler(opener)
	s.Start(context.Background())

	started := make(chan struct{})
	var cancelled atomic.Bool
	s.Schedule(func(ctx context.Context, sess *Session, ev models.Event) error {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
		return nil
	}, models.Event{Type: "long"})

	<-started
	require.NoError(t, s.Shutdown(context.Background()))
	assert.True(t, cancelled.Load())

	ran := make(chan struct{})
	s.Schedule(func(ctx context.Context, sess *Session, ev models.Event) error {
		close(ran)
		return nil
	}, models.Event{Type: "after-shutdown"})

	select {
	case <-ran:
		t.Fatal("task scheduled after Shutdown must not run")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestScheduler_SessionOpenFailureIsLoggedNotPanicked(t *testing.T) {
	opener := &stubOpener{failOn: func() bool { return true }}
	s := newTestScheduler(opener)
	s.Start(context.Background())
	defer s.Shutdown(context.Background())

	assert.NotPanics(t, func() {
		s.Schedule(func(ctx context.Context, sess *Session, ev models.Event) error {
			t.Fatal("task must not run when session open fails")
			return nil
		}, models.Event{Type: "x"})
		time.Sleep(50 * time.Millisecond)
	})
}
