// internal/publish/publisher.go
package publish

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/buttonfetch/internal/status"
)

// Source returns an assessed snapshot.
type Source func() status.Snapshot

// Publisher pushes the status block on a fixed period.
type Publisher struct {
	source Source
	mirror *Mirror
	period time.Duration
	log    *zap.Logger
}

func NewPublisher(source Source, mirror *Mirror, period time.Duration, log *zap.Logger) (*Publisher, error) {
	if source == nil || mirror == nil {
		return nil, errors.New("publish: source and mirror are required")
	}
	if period <= 0 {
		return nil, errors.New("publish: period must be > 0")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{source: source, mirror: mirror, period: period, log: log}, nil
}

// Run writes once immediately, then on every tick. Write failures are
// logged and retried on the next tick.
func (p *Publisher) Run(ctx context.Context) error {
	t := time.NewTicker(p.period)
	defer t.Stop()

	for {
		p.publish()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (p *Publisher) publish() {
	s := p.source()
	if err := p.mirror.Write(s.Block); err != nil {
		p.log.Warn("status publish failed", zap.Error(err))
	}
}
