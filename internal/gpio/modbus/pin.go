// internal/gpio/modbus/pin.go

// Package modbus exposes a Modbus discrete input as a button pin.
// The input is sampled on a fixed clock; an edge is a change between two
// consecutive samples.
package modbus

import (
	"context"
	"errors"
	"time"
)

// Reader abstracts the single Modbus operation the pin needs.
type Reader interface {
	ReadDiscreteInputs(addr, qty uint16) ([]bool, error) // FC 2
}

// PinConfig is the minimal runtime config the pin needs.
type PinConfig struct {
	Address  uint16
	Interval time.Duration
	// Invert is set when the input reads 1 while the button is pressed.
	// The default assumes a pulled-up contact that reads 0 when pressed.
	Invert bool
}

// Pin is a dumb, clock-driven input sampler.
type Pin struct {
	cfg    PinConfig
	reader Reader
}

// NewPin creates a pin with immutable config.
func NewPin(cfg PinConfig, reader Reader) (*Pin, error) {
	if reader == nil {
		return nil, errors.New("gpio modbus: reader required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("gpio modbus: interval must be > 0")
	}
	return &Pin{cfg: cfg, reader: reader}, nil
}

// IsLow performs exactly one read.
func (p *Pin) IsLow() (bool, error) {
	bits, err := p.reader.ReadDiscreteInputs(p.cfg.Address, 1)
	if err != nil {
		return false, err
	}
	if len(bits) == 0 {
		return false, errors.New("gpio modbus: empty response")
	}
	return bits[0] == p.cfg.Invert, nil
}

// WaitForFallingEdge samples on every tick until a high sample is followed
// by a low one. Any read failure aborts the wait.
func (p *Pin) WaitForFallingEdge(ctx context.Context) error {
	prevLow, err := p.IsLow()
	if err != nil {
		return err
	}

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			low, err := p.IsLow()
			if err != nil {
				return err
			}
			if low && !prevLow {
				return nil
			}
			prevLow = low
		}
	}
}
