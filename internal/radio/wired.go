// internal/radio/wired.go

// Package radio holds host-side implementations of the link controller.
package radio

import (
	"context"

	"github.com/tamzrod/buttonfetch/internal/link"
)

// Wired is a controller for hosts whose uplink needs no association.
// It is always started, associates at once and never drops.
type Wired struct{}

func (Wired) IsStarted(context.Context) (bool, error)  { return true, nil }
func (Wired) SetConfiguration(link.ClientConfig) error { return nil }
func (Wired) Start(context.Context) error              { return nil }
func (Wired) Connect(context.Context) error            { return nil }

func (Wired) WaitForDisconnect(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}
