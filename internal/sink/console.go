// internal/sink/console.go

// Package sink delivers fetched bodies to their consumers.
package sink

import (
	"context"
	"io"
	"sync"

	"go.uber.org/zap/zapcore"
)

const consoleHeader = "Http body:\n"

// Terminal is an output stream shared by several writers. Each Write is
// applied whole, never interleaved with another.
type Terminal struct {
	zapcore.WriteSyncer
}

// NewTerminal wraps w. An existing *Terminal is returned as is.
func NewTerminal(w io.Writer) *Terminal {
	if t, ok := w.(*Terminal); ok {
		return t
	}
	return &Terminal{WriteSyncer: zapcore.Lock(zapcore.AddSync(w))}
}

// Console writes each body to a terminal under a fixed header line.
type Console struct {
	term *Terminal

	mu     sync.Mutex
	record []byte
}

func NewConsole(w io.Writer) *Console {
	return &Console{term: NewTerminal(w)}
}

// Emit writes header, body and a trailing newline as one record.
func (c *Console) Emit(_ context.Context, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.record = append(c.record[:0], consoleHeader...)
	c.record = append(c.record, body...)
	if len(body) == 0 || body[len(body)-1] != '\n' {
		c.record = append(c.record, '\n')
	}
	_, err := c.term.Write(c.record)
	return err
}
