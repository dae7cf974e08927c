// internal/sink/multi.go
package sink

import (
	"context"
	"errors"
)

// Sink is one body consumer.
type Sink interface {
	Emit(ctx context.Context, body []byte) error
}

// Multi delivers to every sink in order. A failing sink does not stop the
// ones after it; all errors are joined.
type Multi []Sink

func (m Multi) Emit(ctx context.Context, body []byte) error {
	var errs []error
	for _, s := range m {
		if err := s.Emit(ctx, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
