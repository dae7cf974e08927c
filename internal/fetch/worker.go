// internal/fetch/worker.go

// Package fetch performs one bounded HTTP GET per fetch intent.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/buttonfetch/internal/config"
	"github.com/tamzrod/buttonfetch/internal/sched"
)

// Intent is the consumer side of the intent signal.
type Intent interface {
	Wait(ctx context.Context) (bool, error)
	Reset()
}

// Sink receives each fetched body. body is only valid during the call.
type Sink interface {
	Emit(ctx context.Context, body []byte) error
}

// Observer sees state changes and fetch outcomes. May be nil.
type Observer interface {
	FetchState(s State)
	FetchDone(bytes int, err error)
}

// State is the fetch pipeline state.
type State int32

const (
	StateIdle State = iota
	StateAwaitingSignal
	StateAwaitingLink
	StateRequestBuilding
	StateRequestSent
	StateReadingBody
	StateReporting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingSignal:
		return "awaiting-signal"
	case StateAwaitingLink:
		return "awaiting-link"
	case StateRequestBuilding:
		return "request-building"
	case StateRequestSent:
		return "request-sent"
	case StateReadingBody:
		return "reading-body"
	case StateReporting:
		return "reporting"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Config is the minimal runtime config the worker needs.
type Config struct {
	URL      string
	LinkPoll time.Duration
	Timeout  time.Duration
	PoolSize int // M
}

// Worker is the fetch task. It owns the fetch buffer.
type Worker struct {
	cfg    Config
	stack  Stack
	intent Intent
	sink   Sink
	exec   sched.Executor
	obs    Observer
	log    *zap.Logger

	buf [config.FetchBufferSize]byte

	state atomic.Int32

	mu         sync.Mutex
	fetches    uint64
	failures   uint64
	lastBytes  int
	lastStatus int
	lastError  string
	lastFailed bool
}

// New creates a worker. A pool larger than the stack table is refused here,
// before the first fetch.
func New(cfg Config, stack Stack, intent Intent, sink Sink, exec sched.Executor, obs Observer, log *zap.Logger) (*Worker, error) {
	if cfg.URL == "" {
		return nil, errors.New("fetch: url required")
	}
	if cfg.LinkPoll <= 0 || cfg.Timeout <= 0 {
		return nil, errors.New("fetch: link poll and timeout must be > 0")
	}
	if stack == nil || intent == nil || sink == nil || exec == nil {
		return nil, errors.New("fetch: stack, intent, sink and executor are required")
	}
	if cfg.PoolSize <= 0 {
		return nil, fmt.Errorf("fetch: client pool size must be > 0 (got %d)", cfg.PoolSize)
	}
	if cfg.PoolSize > stack.Sockets() {
		return nil, fmt.Errorf("%w: %d > %d", ErrPoolExceedsStack, cfg.PoolSize, stack.Sockets())
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{
		cfg:    cfg,
		stack:  stack,
		intent: intent,
		sink:   sink,
		exec:   exec,
		obs:    obs,
		log:    log,
	}, nil
}

// Run loops forever. It returns only when ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if err := w.Step(ctx); err != nil {
			return err
		}
	}
}

// Step waits for one intent, performs at most one fetch and resets the
// intent whatever the outcome. The returned error is non-nil only on
// cancellation.
func (w *Worker) Step(ctx context.Context) error {
	w.setState(StateAwaitingSignal)

	var requested bool
	err := w.exec.Await(ctx, func(ctx context.Context) error {
		var err error
		requested, err = w.intent.Wait(ctx)
		return err
	})
	if err != nil {
		return err
	}

	if requested {
		w.log.Info("access web task")
		n, err := w.fetch(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.record(n, err)
	}

	// a press that landed during the fetch is stale
	w.intent.Reset()
	w.setState(StateIdle)
	return nil
}

func (w *Worker) fetch(ctx context.Context) (int, error) {
	w.setState(StateAwaitingLink)
	for !w.stack.IsLinkUp() {
		if err := w.exec.Sleep(ctx, w.cfg.LinkPoll); err != nil {
			return 0, err
		}
	}

	w.setState(StateRequestBuilding)
	w.log.Debug("setting up request", zap.String("url", w.cfg.URL))

	state, err := NewClientState(w.stack, w.cfg.PoolSize)
	if err != nil {
		return 0, err
	}
	defer state.Close()
	client := state.Client(w.cfg.Timeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.cfg.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("fetch: build request: %w", err)
	}

	w.setState(StateRequestSent)
	w.log.Debug("sending request, reading response")

	var resp *http.Response
	err = w.exec.Await(ctx, func(context.Context) error {
		var err error
		resp, err = client.Do(req)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("fetch: request: %w", err)
	}
	defer resp.Body.Close()

	w.mu.Lock()
	w.lastStatus = resp.StatusCode
	w.mu.Unlock()

	w.setState(StateReadingBody)
	var n int
	err = w.exec.Await(ctx, func(context.Context) error {
		var err error
		n, err = ReadBody(resp.Body, w.buf[:])
		return err
	})
	if err != nil {
		return n, err
	}

	w.setState(StateReporting)
	body := w.buf[:n]
	if err := CheckText(body); err != nil {
		return n, err
	}

	w.log.Info("http body received",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", n),
	)
	err = w.exec.Await(ctx, func(ctx context.Context) error {
		return w.sink.Emit(ctx, body)
	})
	if err != nil {
		return n, fmt.Errorf("fetch: emit: %w", err)
	}
	return n, nil
}

func (w *Worker) record(n int, err error) {
	w.mu.Lock()
	w.fetches++
	w.lastBytes = n
	w.lastFailed = err != nil
	if err != nil {
		w.failures++
		w.lastError = err.Error()
	}
	w.mu.Unlock()

	if err != nil {
		w.log.Warn("fetch failed", zap.Error(err))
	}
	if w.obs != nil {
		w.obs.FetchDone(n, err)
	}
}

func (w *Worker) setState(s State) {
	if State(w.state.Swap(int32(s))) != s && w.obs != nil {
		w.obs.FetchState(s)
	}
}

// State returns the current pipeline state.
func (w *Worker) State() State {
	return State(w.state.Load())
}

// Status is a point-in-time view of the worker.
type Status struct {
	State      string `json:"state"`
	URL        string `json:"url"`
	Fetches    uint64 `json:"fetches"`
	Failures   uint64 `json:"failures"`
	LastBytes  int    `json:"last_bytes"`
	LastStatus int    `json:"last_status,omitempty"`
	LastError  string `json:"last_error,omitempty"`
	LastFailed bool   `json:"last_failed"`
}

func (w *Worker) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Status{
		State:      w.State().String(),
		URL:        w.cfg.URL,
		Fetches:    w.fetches,
		Failures:   w.failures,
		LastBytes:  w.lastBytes,
		LastStatus: w.lastStatus,
		LastError:  w.lastError,
		LastFailed: w.lastFailed,
	}
}
