// internal/netstack/driver.go
package netstack

import (
	"context"

	"go.uber.org/zap"

	"github.com/tamzrod/buttonfetch/internal/sched"
)

// Engine is the packet engine capability: a pump that never returns under
// normal operation.
type Engine interface {
	Run(ctx context.Context) error
}

// Driver is the network task. It must be spawned alongside every task that
// touches sockets or their I/O stalls silently.
type Driver struct {
	engine Engine
	exec   sched.Suspender
	log    *zap.Logger
}

func NewDriver(engine Engine, exec sched.Suspender, log *zap.Logger) *Driver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{engine: engine, exec: exec, log: log}
}

// Run hands the engine its own suspension point for as long as it runs.
func (d *Driver) Run(ctx context.Context) error {
	d.log.Info("network stack running")
	return d.exec.Await(ctx, d.engine.Run)
}
