// internal/config/validate.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration and expects a normalized Config.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil config")
	}

	// ------------------------------------------------------------
	// SOCKET POOLS
	// ------------------------------------------------------------

	if err := ValidatePools(StackSockets, ClientSockets); err != nil {
		return err
	}

	// ------------------------------------------------------------
	// TIMINGS
	// ------------------------------------------------------------

	timings := []struct {
		name string
		ms   int
	}{
		{"link.retry_ms", cfg.Link.RetryMs},
		{"button.debounce_ms", cfg.Button.DebounceMs},
		{"network.probe_ms", cfg.Network.ProbeMs},
		{"fetch.link_poll_ms", cfg.Fetch.LinkPollMs},
		{"fetch.timeout_ms", cfg.Fetch.TimeoutMs},
		{"heartbeat.period_ms", cfg.Heartbeat.PeriodMs},
	}
	for _, t := range timings {
		if t.ms <= 0 {
			return fmt.Errorf("config: %s must be > 0 (got %d)", t.name, t.ms)
		}
	}

	// ------------------------------------------------------------
	// LINK
	// ------------------------------------------------------------

	switch cfg.Link.Backend {
	case LinkBackendWired:
	case LinkBackendNMCLI:
		if cfg.Link.Interface == "" {
			return errors.New("config: link.interface is required for the nmcli backend")
		}
	default:
		return fmt.Errorf("config: unknown link.backend %q", cfg.Link.Backend)
	}

	// ------------------------------------------------------------
	// BUTTON
	// ------------------------------------------------------------

	switch cfg.Button.Backend {
	case ButtonBackendVirtual:
	case ButtonBackendModbus:
		m := cfg.Button.Modbus
		if m.Endpoint == "" {
			return errors.New("config: button.modbus.endpoint is required for the modbus backend")
		}
		if !strings.HasPrefix(m.Endpoint, "tcp://") && !strings.HasPrefix(m.Endpoint, "rtu://") {
			return fmt.Errorf("config: button.modbus.endpoint %q must start with tcp:// or rtu://", m.Endpoint)
		}
		if m.PollMs <= 0 || m.TimeoutMs <= 0 {
			return errors.New("config: button.modbus poll_ms and timeout_ms must be > 0")
		}
		// Edge detection needs at least two samples inside one debounce window.
		if 2*m.PollMs > cfg.Button.DebounceMs {
			return fmt.Errorf(
				"config: button.modbus.poll_ms=%d is too slow for debounce_ms=%d",
				m.PollMs,
				cfg.Button.DebounceMs,
			)
		}
	default:
		return fmt.Errorf("config: unknown button.backend %q", cfg.Button.Backend)
	}

	// ------------------------------------------------------------
	// FETCH
	// ------------------------------------------------------------

	u, err := url.Parse(cfg.Fetch.URL)
	if err != nil {
		return fmt.Errorf("config: fetch.url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("config: fetch.url scheme must be http or https (got %q)", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("config: fetch.url has no host")
	}

	// ------------------------------------------------------------
	// SINK
	// ------------------------------------------------------------

	if !cfg.Sink.ConsoleEnabled() && cfg.Sink.Redis.Addr == "" {
		return errors.New("config: at least one sink must be enabled")
	}
	if cfg.Sink.Redis.Addr != "" && cfg.Sink.Redis.Channel == "" {
		return errors.New("config: sink.redis.channel is required when sink.redis.addr is set")
	}

	// ------------------------------------------------------------
	// STATUS
	// ------------------------------------------------------------

	if sm := cfg.Status.Modbus; sm.Endpoint != "" {
		if !strings.HasPrefix(sm.Endpoint, "tcp://") {
			return fmt.Errorf("config: status.modbus.endpoint %q must start with tcp://", sm.Endpoint)
		}
		if sm.PeriodMs <= 0 || sm.TimeoutMs <= 0 {
			return errors.New("config: status.modbus period_ms and timeout_ms must be > 0")
		}
	}

	// ------------------------------------------------------------
	// LOG
	// ------------------------------------------------------------

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log.level %q", cfg.Log.Level)
	}

	return nil
}

// ValidatePools enforces M <= N for the engine socket table (n) and the
// HTTP client pool (m). Both must be positive.
func ValidatePools(n, m int) error {
	if n <= 0 || m <= 0 {
		return fmt.Errorf("config: socket pools must be > 0 (stack=%d client=%d)", n, m)
	}
	if m > n {
		return fmt.Errorf("config: client pool %d exceeds stack socket table %d", m, n)
	}
	return nil
}

// Millis converts a *_ms field into a duration.
func Millis(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

func ms(d time.Duration) int {
	return int(d / time.Millisecond)
}
