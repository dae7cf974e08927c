// internal/link/manager_test.go
package link

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tamzrod/buttonfetch/internal/sched"
)

// ---- fakes ----

type fakeRadio struct {
	mu         sync.Mutex
	started    bool
	statusErr  error
	setErr     error
	startErr   error
	connectErr []error // consumed per Connect; nil entries succeed
	drop       chan struct{}

	applied  []ClientConfig
	starts   int
	connects int
}

func (r *fakeRadio) IsStarted(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started, r.statusErr
}

func (r *fakeRadio) SetConfiguration(cfg ClientConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applied = append(r.applied, cfg)
	return r.setErr
}

func (r *fakeRadio) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts++
	if r.startErr != nil {
		return r.startErr
	}
	r.started = true
	return nil
}

func (r *fakeRadio) Connect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connects++
	if len(r.connectErr) == 0 {
		return nil
	}
	err := r.connectErr[0]
	r.connectErr = r.connectErr[1:]
	return err
}

func (r *fakeRadio) WaitForDisconnect(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.drop:
		return nil
	}
}

func (r *fakeRadio) counts() (starts, connects int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.starts, r.connects
}

// slowStatusRadio answers IsStarted only after delay.
type slowStatusRadio struct {
	*fakeRadio
	delay time.Duration
}

func (r *slowStatusRadio) IsStarted(ctx context.Context) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-time.After(r.delay):
		return true, nil
	}
}

type fakeExec struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (e *fakeExec) Await(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func (e *fakeExec) Sleep(ctx context.Context, d time.Duration) error {
	e.mu.Lock()
	e.sleeps = append(e.sleeps, d)
	e.mu.Unlock()
	return ctx.Err()
}

func (e *fakeExec) slept() []time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]time.Duration(nil), e.sleeps...)
}

type recorder struct {
	mu     sync.Mutex
	states []State
	oks    int
	errs   int
}

func (r *recorder) LinkState(s State) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
}

func (r *recorder) LinkAttempt(err error) {
	r.mu.Lock()
	if err == nil {
		r.oks++
	} else {
		r.errs++
	}
	r.mu.Unlock()
}

func newManager(t *testing.T, password string, radio *fakeRadio, exec *fakeExec, obs Observer) *Manager {
	t.Helper()
	creds, err := NewCredentials("office", password)
	require.NoError(t, err)

	m, err := New(Config{Credentials: creds, Backoff: 5 * time.Second}, radio, exec, obs, zaptest.NewLogger(t))
	require.NoError(t, err)
	return m
}

// runUntil runs the manager in the background until cond holds.
func runUntil(t *testing.T, m *Manager, cond func() bool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.Eventually(t, cond, 2*time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

// ---- tests ----

func TestManager_FailsThreeTimesThenAssociates(t *testing.T) {
	boom := errors.New("ap not found")
	radio := &fakeRadio{
		connectErr: []error{boom, boom, boom},
		drop:       make(chan struct{}),
	}
	exec := &fakeExec{}
	rec := &recorder{}
	m := newManager(t, "hunter22", radio, exec, rec)

	runUntil(t, m, func() bool { return m.State() == StateAssociated })

	st := m.Status()
	assert.Equal(t, uint64(4), st.Attempts)
	assert.Equal(t, uint64(3), st.Failures)
	assert.Equal(t, uint64(3), st.Backoffs)
	assert.Equal(t, "ap not found", st.LastError)
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second, 5 * time.Second}, exec.slept())

	starts, connects := radio.counts()
	assert.Equal(t, 1, starts, "started radio is not reconfigured")
	assert.Equal(t, 4, connects)
	assert.Equal(t, 1, rec.oks)
	assert.Equal(t, 3, rec.errs)
}

func TestManager_NeverStopsRetrying(t *testing.T) {
	errs := make([]error, 50)
	for i := range errs {
		errs[i] = errors.New("auth rejected")
	}
	radio := &fakeRadio{connectErr: errs, drop: make(chan struct{})}
	m := newManager(t, "hunter22", radio, &fakeExec{}, nil)

	runUntil(t, m, func() bool { return m.State() == StateAssociated })
	assert.Equal(t, uint64(51), m.Status().Attempts)
}

func TestManager_OpenNetworkWhenPasswordEmpty(t *testing.T) {
	radio := &fakeRadio{drop: make(chan struct{})}
	m := newManager(t, "", radio, &fakeExec{}, nil)

	runUntil(t, m, func() bool { return m.State() == StateAssociated })

	radio.mu.Lock()
	defer radio.mu.Unlock()
	require.Len(t, radio.applied, 1)
	assert.Equal(t, AuthOpen, radio.applied[0].Auth)
	assert.Empty(t, radio.applied[0].Password)
	assert.Equal(t, "open", m.Status().Auth)
}

func TestManager_PSKWhenPasswordSet(t *testing.T) {
	radio := &fakeRadio{drop: make(chan struct{})}
	m := newManager(t, "hunter22", radio, &fakeExec{}, nil)

	runUntil(t, m, func() bool { return m.State() == StateAssociated })

	radio.mu.Lock()
	defer radio.mu.Unlock()
	assert.Equal(t, AuthWPA2Personal, radio.applied[0].Auth)
}

func TestManager_SetConfigurationErrorIsNotFatal(t *testing.T) {
	radio := &fakeRadio{setErr: errors.New("bad country code"), drop: make(chan struct{})}
	m := newManager(t, "hunter22", radio, &fakeExec{}, nil)

	runUntil(t, m, func() bool { return m.State() == StateAssociated })
	assert.Zero(t, m.Status().Failures)
}

func TestManager_StartFailureBacksOff(t *testing.T) {
	radio := &fakeRadio{startErr: errors.New("firmware not loaded")}
	exec := &fakeExec{}
	m := newManager(t, "", radio, exec, nil)

	require.NoError(t, m.Step(context.Background()))

	st := m.Status()
	assert.Equal(t, "starting", st.State)
	assert.Equal(t, uint64(0), st.Attempts)
	assert.Equal(t, uint64(1), st.Backoffs)
	assert.True(t, strings.HasPrefix(st.LastError, "start:"))
	assert.Len(t, exec.slept(), 1)
}

func TestManager_ReassociatesAfterDrop(t *testing.T) {
	radio := &fakeRadio{drop: make(chan struct{})}
	rec := &recorder{}
	m := newManager(t, "hunter22", radio, &fakeExec{}, rec)

	runUntil(t, m, func() bool { return m.State() == StateAssociated })

	// a drop sends the manager back to starting, then on to associated
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.Eventually(t, func() bool { return m.Status().Attempts == 2 }, 2*time.Second, time.Millisecond)
	radio.drop <- struct{}{}
	require.Eventually(t, func() bool { return m.Status().Attempts == 3 }, 2*time.Second, time.Millisecond)

	cancel()
	<-done

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Contains(t, rec.states, StateStarting)
	assert.Equal(t, 3, rec.oks)
}

func TestManager_RetryWithRadioOnPassesThroughStarted(t *testing.T) {
	radio := &fakeRadio{
		started:    true,
		connectErr: []error{errors.New("ap not found")},
		drop:       make(chan struct{}),
	}
	rec := &recorder{}
	m := newManager(t, "hunter22", radio, &fakeExec{}, rec)

	runUntil(t, m, func() bool { return m.State() == StateAssociated })

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []State{
		StateStarting, StateStarted, StateAssociating,
		StateStarting, StateStarted, StateAssociating, StateAssociated,
	}, rec.states)

	starts, _ := radio.counts()
	assert.Zero(t, starts, "a running radio is not started again")
}

func TestManager_StatusQueryReleasesToken(t *testing.T) {
	s := sched.New(2, zaptest.NewLogger(t))

	creds, err := NewCredentials("office", "hunter22")
	require.NoError(t, err)
	radio := &slowStatusRadio{fakeRadio: &fakeRadio{drop: make(chan struct{})}, delay: 300 * time.Millisecond}
	m, err := New(Config{Credentials: creds, Backoff: time.Second}, radio, s, nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	var ticks atomic.Int32
	require.NoError(t, s.Spawn("link", m.Run))
	require.NoError(t, s.Spawn("ticker", func(ctx context.Context) error {
		for {
			if err := s.Sleep(ctx, 10*time.Millisecond); err != nil {
				return err
			}
			ticks.Add(1)
		}
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Run(ctx), context.DeadlineExceeded)

	// the ticker keeps running while the radio status query is outstanding
	assert.GreaterOrEqual(t, ticks.Load(), int32(10))
}

func TestNewCredentials_Limits(t *testing.T) {
	_, err := NewCredentials(strings.Repeat("s", MaxSSIDLen+1), "")
	assert.ErrorIs(t, err, ErrSSIDTooLong)

	_, err = NewCredentials("ok", strings.Repeat("p", MaxPasswordLen+1))
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	_, err = NewCredentials("", "x")
	assert.ErrorIs(t, err, ErrSSIDEmpty)

	c, err := NewCredentials(strings.Repeat("s", MaxSSIDLen), strings.Repeat("p", MaxPasswordLen))
	require.NoError(t, err)
	assert.Equal(t, AuthWPA2Personal, c.Auth())
}

func TestNew_Validation(t *testing.T) {
	creds, _ := NewCredentials("x", "")
	_, err := New(Config{Credentials: creds}, &fakeRadio{}, &fakeExec{}, nil, nil)
	assert.Error(t, err)

	_, err = New(Config{Backoff: time.Second}, &fakeRadio{}, &fakeExec{}, nil, nil)
	assert.Error(t, err)
}
