// internal/sched/scheduler.go
package sched

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	ErrArenaFull = errors.New("sched: task arena full")
	ErrRunning   = errors.New("sched: scheduler already running")
)

type task struct {
	name    string
	fn      Func
	state   atomic.Int32
	resumes atomic.Uint64

	mu        sync.Mutex
	lastError string
	exited    time.Time
}

// Scheduler multiplexes tasks onto a single execution token.
// A task body runs only while it holds the token and gives it up only at
// suspension points (Await, Sleep, Yield). At most one body runs at a time.
type Scheduler struct {
	log *zap.Logger
	cpu chan struct{}

	holder atomic.Pointer[task]

	mu      sync.Mutex
	tasks   []*task
	running bool
}

// New creates a scheduler with a fixed task arena.
func New(capacity int, log *zap.Logger) *Scheduler {
	if capacity <= 0 {
		capacity = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		log:   log,
		cpu:   make(chan struct{}, 1),
		tasks: make([]*task, 0, capacity),
	}
}

// Spawn registers a task. Tasks start when Run is called.
func (s *Scheduler) Spawn(name string, fn Func) error {
	if fn == nil {
		return fmt.Errorf("sched: task %q has no body", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrRunning
	}
	if len(s.tasks) == cap(s.tasks) {
		return fmt.Errorf("%w: cannot spawn %q (capacity %d)", ErrArenaFull, name, cap(s.tasks))
	}

	s.tasks = append(s.tasks, &task{name: name, fn: fn})
	return nil
}

// Run starts every spawned task and blocks until all of them return.
// Cancelling ctx is the only way to make device tasks return.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrRunning
	}
	s.running = true
	tasks := s.tasks
	s.mu.Unlock()

	// token starts free
	s.cpu <- struct{}{}

	var wg sync.WaitGroup
	for _, t := range tasks {
		wg.Add(1)
		go s.run(ctx, t, &wg)
	}
	wg.Wait()

	return ctx.Err()
}

// run is the failure boundary of one task.
func (s *Scheduler) run(ctx context.Context, t *task, wg *sync.WaitGroup) {
	defer wg.Done()

	s.acquire(t)
	defer s.release()

	defer func() {
		t.state.Store(int32(TaskExited))
		t.mu.Lock()
		t.exited = time.Now()
		t.mu.Unlock()
	}()

	defer func() {
		p := recover()
		if p == nil {
			return
		}
		msg := fmt.Sprintf("panic: %v", p)
		t.setError(msg)
		s.log.Error("task panicked",
			zap.String("task", t.name),
			zap.Any("value", p),
			zap.ByteString("stack", debug.Stack()),
		)
	}()

	err := t.fn(ctx)
	switch {
	case err == nil:
		s.log.Warn("task returned", zap.String("task", t.name))
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		s.log.Debug("task stopped", zap.String("task", t.name))
	default:
		t.setError(err.Error())
		s.log.Error("task failed", zap.String("task", t.name), zap.Error(err))
	}
}

// acquire blocks until the token is free. It ignores cancellation: a task
// must hold the token to unwind.
func (s *Scheduler) acquire(t *task) {
	<-s.cpu
	s.holder.Store(t)
	t.state.Store(int32(TaskRunning))
	t.resumes.Add(1)
}

func (s *Scheduler) release() {
	s.holder.Store(nil)
	s.cpu <- struct{}{}
}

// Await parks the calling task while fn blocks and resumes it afterwards.
// It must be called from a task body. Outside Run it calls fn directly.
func (s *Scheduler) Await(ctx context.Context, fn func(context.Context) error) error {
	t := s.holder.Load()
	if t == nil {
		return fn(ctx)
	}

	t.state.Store(int32(TaskSuspended))
	s.release()

	// reacquire even if fn panics so the task unwinds holding the token
	defer s.acquire(t)
	return fn(ctx)
}

// Sleep implements Timer.
func (s *Scheduler) Sleep(ctx context.Context, d time.Duration) error {
	return s.Await(ctx, func(ctx context.Context) error {
		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	})
}

// Yield gives every other runnable task a chance to run.
func (s *Scheduler) Yield(ctx context.Context) error {
	return s.Await(ctx, func(ctx context.Context) error {
		return ctx.Err()
	})
}

// Snapshot reports every task in spawn order.
func (s *Scheduler) Snapshot() []TaskStatus {
	s.mu.Lock()
	tasks := s.tasks
	s.mu.Unlock()

	out := make([]TaskStatus, 0, len(tasks))
	for _, t := range tasks {
		t.mu.Lock()
		st := TaskStatus{
			Name:      t.name,
			State:     TaskState(t.state.Load()).String(),
			Resumes:   t.resumes.Load(),
			LastError: t.lastError,
			Exited:    t.exited,
		}
		t.mu.Unlock()
		out = append(out, st)
	}
	return out
}

func (t *task) setError(msg string) {
	t.mu.Lock()
	t.lastError = msg
	t.mu.Unlock()
}
