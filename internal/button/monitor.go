// internal/button/monitor.go

// Package button turns falling edges on a digital input into debounced
// fetch intents.
package button

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/buttonfetch/internal/sched"
)

// Pin is the GPIO capability: an input with pull resistor already applied.
type Pin interface {
	WaitForFallingEdge(ctx context.Context) error
	IsLow() (bool, error)
}

// Intent receives confirmed presses.
type Intent interface {
	Signal(v bool)
}

// Observer is notified of every debounce outcome. May be nil.
type Observer interface {
	ButtonOutcome(o Outcome)
}

// State is the debounce state.
type State int32

const (
	StateWaitingForEdge State = iota
	StateDebouncing
)

func (s State) String() string {
	switch s {
	case StateWaitingForEdge:
		return "waiting-for-edge"
	case StateDebouncing:
		return "debouncing"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Outcome is the result of one edge.
type Outcome int

const (
	Confirmed Outcome = iota
	Bounced
	PinError
)

func (o Outcome) String() string {
	switch o {
	case Confirmed:
		return "confirmed"
	case Bounced:
		return "bounced"
	case PinError:
		return "pin-error"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Config is the minimal runtime config the monitor needs.
type Config struct {
	Debounce time.Duration
}

// Monitor is the button task.
type Monitor struct {
	cfg    Config
	pin    Pin
	intent Intent
	exec   sched.Executor
	obs    Observer
	log    *zap.Logger

	state     atomic.Int32
	confirmed atomic.Uint64
	bounced   atomic.Uint64
}

// New creates a monitor with immutable config.
func New(cfg Config, pin Pin, intent Intent, exec sched.Executor, obs Observer, log *zap.Logger) (*Monitor, error) {
	if cfg.Debounce <= 0 {
		return nil, errors.New("button: debounce must be > 0")
	}
	if pin == nil || intent == nil || exec == nil {
		return nil, errors.New("button: pin, intent and executor are required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Monitor{
		cfg:    cfg,
		pin:    pin,
		intent: intent,
		exec:   exec,
		obs:    obs,
		log:    log,
	}, nil
}

// Run loops forever. It returns only when ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	for {
		if _, err := m.Step(ctx); err != nil {
			return err
		}
	}
}

// Step handles exactly one edge: wait, debounce, re-sample.
// The returned error is non-nil only on cancellation.
func (m *Monitor) Step(ctx context.Context) (Outcome, error) {
	m.state.Store(int32(StateWaitingForEdge))

	err := m.exec.Await(ctx, m.pin.WaitForFallingEdge)
	if ctx.Err() != nil {
		return PinError, ctx.Err()
	}
	if err != nil {
		m.log.Warn("edge wait failed", zap.Error(err))
		m.report(PinError)
		// pace the retry so a dead pin cannot spin
		return PinError, m.exec.Sleep(ctx, m.cfg.Debounce)
	}

	m.state.Store(int32(StateDebouncing))
	if err := m.exec.Sleep(ctx, m.cfg.Debounce); err != nil {
		return PinError, err
	}

	var low bool
	err = m.exec.Await(ctx, func(context.Context) error {
		var err error
		low, err = m.pin.IsLow()
		return err
	})
	m.state.Store(int32(StateWaitingForEdge))
	if ctx.Err() != nil {
		return PinError, ctx.Err()
	}
	if err != nil {
		m.log.Warn("pin sample failed", zap.Error(err))
		m.report(PinError)
		return PinError, nil
	}

	if !low {
		m.bounced.Add(1)
		m.log.Debug("edge discarded as bounce")
		m.report(Bounced)
		return Bounced, nil
	}

	m.confirmed.Add(1)
	m.log.Info("button pressed after debounce")
	m.intent.Signal(true)
	m.report(Confirmed)
	return Confirmed, nil
}

func (m *Monitor) report(o Outcome) {
	if m.obs != nil {
		m.obs.ButtonOutcome(o)
	}
}

// Status is a point-in-time view of the monitor.
type Status struct {
	State     string `json:"state"`
	Confirmed uint64 `json:"confirmed"`
	Bounced   uint64 `json:"bounced"`
}

func (m *Monitor) Status() Status {
	return Status{
		State:     State(m.state.Load()).String(),
		Confirmed: m.confirmed.Load(),
		Bounced:   m.bounced.Load(),
	}
}
