// internal/publish/mirror.go

// Package publish mirrors the device status block into external memory.
package publish

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/buttonfetch/internal/status"
)

// RegisterWriter is the single operation the mirror needs.
type RegisterWriter interface {
	WriteRegisters(addr uint16, regs []uint16) error
}

// Mirror writes status blocks verbatim. It writes the full block on first
// use and after any failure, and only the changed slots otherwise.
type Mirror struct {
	base     uint16
	w        RegisterWriter
	needFull bool
	last     []uint16
}

func NewMirror(base uint16, w RegisterWriter) (*Mirror, error) {
	if w == nil {
		return nil, errors.New("publish: register writer required")
	}
	return &Mirror{
		base:     base,
		w:        w,
		needFull: true,
		last:     make([]uint16, status.SlotsPerDevice),
	}, nil
}

// Write delivers one block.
func (m *Mirror) Write(block []uint16) error {
	if len(block) != status.SlotsPerDevice {
		return fmt.Errorf("publish: block has %d slots, want %d", len(block), status.SlotsPerDevice)
	}

	// ------------------------------------------------------------
	// Full block write (re-assert)
	// ------------------------------------------------------------
	if m.needFull {
		if err := m.w.WriteRegisters(m.base, block); err != nil {
			return fmt.Errorf("publish: full block write failed: %w", err)
		}
		copy(m.last, block)
		m.needFull = false
		return nil
	}

	var errs []string
	for slot, v := range block {
		if m.last[slot] == v {
			continue
		}
		if err := m.w.WriteRegisters(m.base+uint16(slot), []uint16{v}); err != nil {
			errs = append(errs, fmt.Sprintf("slot%d write failed: %v", slot, err))
			continue
		}
		m.last[slot] = v
	}

	if len(errs) > 0 {
		// partial failure: re-assert on next success
		m.needFull = true
		return errors.New("publish: " + strings.Join(errs, " | "))
	}
	return nil
}
