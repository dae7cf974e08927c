// internal/gpio/virtual.go

// Package gpio holds host-side implementations of the digital input capability.
package gpio

import (
	"context"
	"sync"
	"time"
)

// VirtualPin is a software input with a pull-up: it idles high and a press
// pulls it low. Edges are only seen by waiters parked when they happen.
type VirtualPin struct {
	mu   sync.Mutex
	low  bool
	edge chan struct{} // closed on the next falling edge
}

// NewVirtualPin returns a released (high) pin.
func NewVirtualPin() *VirtualPin {
	return &VirtualPin{edge: make(chan struct{})}
}

// WaitForFallingEdge blocks until the pin goes from high to low.
func (p *VirtualPin) WaitForFallingEdge(ctx context.Context) error {
	p.mu.Lock()
	ch := p.edge
	p.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsLow samples the current level.
func (p *VirtualPin) IsLow() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.low, nil
}

// Set drives the level. Going low from high fires a falling edge.
func (p *VirtualPin) Set(low bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if low && !p.low {
		close(p.edge)
		p.edge = make(chan struct{})
	}
	p.low = low
}

// Press holds the pin low for hold, then releases it.
func (p *VirtualPin) Press(hold time.Duration) {
	p.Set(true)
	time.AfterFunc(hold, func() { p.Set(false) })
}
