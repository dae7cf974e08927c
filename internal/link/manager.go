// internal/link/manager.go

// Package link keeps the radio associated to the configured access point.
package link

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/buttonfetch/internal/sched"
)

// Controller is the radio control capability.
type Controller interface {
	IsStarted(ctx context.Context) (bool, error)
	SetConfiguration(cfg ClientConfig) error
	Start(ctx context.Context) error
	Connect(ctx context.Context) error
	// WaitForDisconnect blocks while associated and returns once the
	// access point drops the link.
	WaitForDisconnect(ctx context.Context) error
}

// Observer sees every state change and attempt outcome. May be nil.
type Observer interface {
	LinkState(s State)
	LinkAttempt(err error)
}

// State is the link state machine.
type State int32

const (
	StateIdle State = iota
	StateStarting
	StateStarted
	StateAssociating
	StateAssociated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateStarted:
		return "started"
	case StateAssociating:
		return "associating"
	case StateAssociated:
		return "associated"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Config is the minimal runtime config the manager needs.
type Config struct {
	Credentials Credentials
	Backoff     time.Duration
}

// Manager owns the radio. It never gives up.
type Manager struct {
	cfg  Config
	ctl  Controller
	exec sched.Executor
	obs  Observer
	log  *zap.Logger

	mu        sync.Mutex
	state     State
	attempts  uint64
	failures  uint64
	backoffs  uint64
	lastError string
	changedAt time.Time
}

// New creates a manager with immutable config.
func New(cfg Config, ctl Controller, exec sched.Executor, obs Observer, log *zap.Logger) (*Manager, error) {
	if cfg.Credentials.SSID() == "" {
		return nil, errors.New("link: credentials required")
	}
	if cfg.Backoff <= 0 {
		return nil, errors.New("link: backoff must be > 0")
	}
	if ctl == nil || exec == nil {
		return nil, errors.New("link: controller and executor are required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		cfg:       cfg,
		ctl:       ctl,
		exec:      exec,
		obs:       obs,
		log:       log,
		state:     StateIdle,
		changedAt: time.Now(),
	}, nil
}

// Run loops forever. It returns only when ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	m.log.Info("waiting for link", zap.String("ssid", m.cfg.Credentials.SSID()))

	for {
		if err := m.Step(ctx); err != nil {
			return err
		}
	}
}

// Step runs one pass: ensure started, associate, then either hold the
// association until it drops or back off after a failure. Every pass
// goes Starting, Started, Associating whether or not the radio was
// already on.
// The returned error is non-nil only on cancellation.
func (m *Manager) Step(ctx context.Context) error {
	m.setState(StateStarting)

	var started bool
	err := m.exec.Await(ctx, func(ctx context.Context) error {
		var err error
		started, err = m.ctl.IsStarted(ctx)
		return err
	})
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		m.log.Debug("radio status query failed", zap.Error(err))
	}

	if !started {
		cc := m.cfg.Credentials.ClientConfig()
		err := m.exec.Await(ctx, func(context.Context) error {
			return m.ctl.SetConfiguration(cc)
		})
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			// non-fatal: the radio may still start with its previous config
			m.log.Warn("radio set configuration failed", zap.Error(err))
		} else {
			m.log.Info("radio configured",
				zap.String("ssid", cc.SSID),
				zap.Stringer("auth", cc.Auth),
			)
		}

		m.log.Info("starting radio")
		if err := m.exec.Await(ctx, m.ctl.Start); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.fail(fmt.Errorf("start: %w", err))
			return m.backoff(ctx)
		}
		m.log.Info("radio started")
	}
	m.setState(StateStarted)

	m.setState(StateAssociating)
	m.mu.Lock()
	m.attempts++
	m.mu.Unlock()

	if err := m.exec.Await(ctx, m.ctl.Connect); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.fail(err)
		return m.backoff(ctx)
	}

	m.setState(StateAssociated)
	m.log.Info("link associated")
	if m.obs != nil {
		m.obs.LinkAttempt(nil)
	}

	err = m.exec.Await(ctx, m.ctl.WaitForDisconnect)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		m.log.Warn("disconnect watch failed", zap.Error(err))
	} else {
		m.log.Warn("link dropped")
	}
	m.setState(StateStarting)
	return nil
}

func (m *Manager) fail(err error) {
	m.mu.Lock()
	m.failures++
	m.lastError = err.Error()
	m.mu.Unlock()

	m.log.Warn("failed to associate",
		zap.Error(err),
		zap.Duration("retry_in", m.cfg.Backoff),
	)
	if m.obs != nil {
		m.obs.LinkAttempt(err)
	}
}

// backoff waits the fixed retry interval. No growth, no cap.
func (m *Manager) backoff(ctx context.Context) error {
	m.setState(StateStarting)
	m.mu.Lock()
	m.backoffs++
	m.mu.Unlock()
	return m.exec.Sleep(ctx, m.cfg.Backoff)
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	changed := m.state != s
	if changed {
		m.state = s
		m.changedAt = time.Now()
	}
	m.mu.Unlock()

	if changed && m.obs != nil {
		m.obs.LinkState(s)
	}
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Status is a point-in-time view of the manager.
type Status struct {
	State     string    `json:"state"`
	SSID      string    `json:"ssid"`
	Auth      string    `json:"auth"`
	Attempts  uint64    `json:"attempts"`
	Failures  uint64    `json:"failures"`
	Backoffs  uint64    `json:"backoffs"`
	LastError string    `json:"last_error,omitempty"`
	Since     time.Time `json:"since"`
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		State:     m.state.String(),
		SSID:      m.cfg.Credentials.SSID(),
		Auth:      m.cfg.Credentials.Auth().String(),
		Attempts:  m.attempts,
		Failures:  m.failures,
		Backoffs:  m.backoffs,
		LastError: m.lastError,
		Since:     m.changedAt,
	}
}
