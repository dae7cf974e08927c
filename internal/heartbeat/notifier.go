// internal/heartbeat/notifier.go

// Package heartbeat prints the periodic user prompt.
package heartbeat

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/buttonfetch/internal/sched"
)

// Observer is told about every beat. May be nil.
type Observer interface {
	Beat()
}

type Config struct {
	Period  time.Duration
	Message string
}

// Notifier emits Message, then sleeps Period, forever.
type Notifier struct {
	cfg   Config
	out   io.Writer
	timer sched.Timer
	obs   Observer
	log   *zap.Logger

	beats atomic.Uint64
}

func New(cfg Config, out io.Writer, timer sched.Timer, obs Observer, log *zap.Logger) (*Notifier, error) {
	if cfg.Period <= 0 {
		return nil, errors.New("heartbeat: period must be > 0")
	}
	if out == nil || timer == nil {
		return nil, errors.New("heartbeat: writer and timer are required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{cfg: cfg, out: out, timer: timer, obs: obs, log: log}, nil
}

func (n *Notifier) Run(ctx context.Context) error {
	for {
		n.Beat()
		if err := n.timer.Sleep(ctx, n.cfg.Period); err != nil {
			return err
		}
	}
}

// Beat emits the message once. A write error is logged and the beat counted.
func (n *Notifier) Beat() {
	if _, err := io.WriteString(n.out, n.cfg.Message+"\n"); err != nil {
		n.log.Warn("heartbeat write failed", zap.Error(err))
	}
	n.beats.Add(1)
	if n.obs != nil {
		n.obs.Beat()
	}
}

// Beats returns how many beats were emitted.
func (n *Notifier) Beats() uint64 {
	return n.beats.Load()
}
