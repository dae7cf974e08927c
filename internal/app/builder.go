// internal/app/builder.go
package app

import (
	"fmt"
	"io"

	"github.com/tamzrod/buttonfetch/internal/button"
	"github.com/tamzrod/buttonfetch/internal/config"
	"github.com/tamzrod/buttonfetch/internal/gpio"
	gpiomodbus "github.com/tamzrod/buttonfetch/internal/gpio/modbus"
	"github.com/tamzrod/buttonfetch/internal/link"
	"github.com/tamzrod/buttonfetch/internal/radio"
	"github.com/tamzrod/buttonfetch/internal/sink"
)

// buildPin constructs the button input. The virtual pin doubles as the
// admin presser; presser is nil for hardware inputs.
func buildPin(cfg config.ButtonConfig) (pin button.Pin, presser *gpio.VirtualPin, closeFn func(), err error) {
	switch cfg.Backend {
	case config.ButtonBackendVirtual:
		v := gpio.NewVirtualPin()
		return v, v, func() {}, nil

	case config.ButtonBackendModbus:
		client, err := gpiomodbus.NewClient(gpiomodbus.Config{
			Endpoint: cfg.Modbus.Endpoint,
			UnitID:   cfg.Modbus.UnitID,
			Timeout:  config.Millis(cfg.Modbus.TimeoutMs),
			BaudRate: cfg.Modbus.BaudRate,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		p, err := gpiomodbus.NewPin(gpiomodbus.PinConfig{
			Address:  cfg.Modbus.Address,
			Interval: config.Millis(cfg.Modbus.PollMs),
			Invert:   cfg.Modbus.Invert,
		}, client)
		if err != nil {
			client.Close()
			return nil, nil, nil, err
		}
		return p, nil, func() { client.Close() }, nil

	default:
		return nil, nil, nil, fmt.Errorf("app: unknown button backend %q", cfg.Backend)
	}
}

// buildController constructs the link controller.
func buildController(cfg config.LinkConfig, linkPoll int) (link.Controller, error) {
	switch cfg.Backend {
	case config.LinkBackendWired:
		return radio.Wired{}, nil
	case config.LinkBackendNMCLI:
		return radio.NewNMCLI(radio.NMCLIConfig{
			Interface:  cfg.Interface,
			WatchEvery: config.Millis(linkPoll),
		}, radio.ExecRunner)
	default:
		return nil, fmt.Errorf("app: unknown link backend %q", cfg.Backend)
	}
}

// buildSink constructs the body consumers in a fixed order: console, redis.
func buildSink(cfg config.SinkConfig, out io.Writer) (sink.Multi, func(), error) {
	var sinks sink.Multi
	closeFn := func() {}

	if cfg.ConsoleEnabled() {
		sinks = append(sinks, sink.NewConsole(out))
	}
	if cfg.Redis.Addr != "" {
		r, err := sink.NewRedis(cfg.Redis.Addr, cfg.Redis.Channel)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, r)
		closeFn = func() { r.Close() }
	}
	if len(sinks) == 0 {
		return nil, nil, fmt.Errorf("app: no sink enabled")
	}
	return sinks, closeFn, nil
}
