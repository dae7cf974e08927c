// internal/config/normalize.go
package config

import "strings"

// Backend names.
const (
	LinkBackendWired = "wired"
	LinkBackendNMCLI = "nmcli"

	ButtonBackendVirtual = "virtual"
	ButtonBackendModbus  = "modbus"
)

// Normalize fills unset fields with the build-time defaults.
// It is allowed to mutate configuration and is idempotent.
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	// ---- link ----
	cfg.Link.Backend = strings.ToLower(strings.TrimSpace(cfg.Link.Backend))
	if cfg.Link.Backend == "" {
		cfg.Link.Backend = LinkBackendWired
	}
	if cfg.Link.RetryMs == 0 {
		cfg.Link.RetryMs = ms(DefaultRetryBackoff)
	}

	// ---- button ----
	cfg.Button.Backend = strings.ToLower(strings.TrimSpace(cfg.Button.Backend))
	if cfg.Button.Backend == "" {
		cfg.Button.Backend = ButtonBackendVirtual
	}
	if cfg.Button.DebounceMs == 0 {
		cfg.Button.DebounceMs = ms(DefaultDebounce)
	}
	if cfg.Button.Modbus.PollMs == 0 {
		cfg.Button.Modbus.PollMs = ms(DefaultModbusPoll)
	}
	if cfg.Button.Modbus.TimeoutMs == 0 {
		cfg.Button.Modbus.TimeoutMs = ms(DefaultModbusTimeout)
	}
	if cfg.Button.Modbus.BaudRate == 0 {
		cfg.Button.Modbus.BaudRate = 19200
	}

	// ---- network ----
	if cfg.Network.ProbeMs == 0 {
		cfg.Network.ProbeMs = ms(DefaultNetworkProbe)
	}

	// ---- fetch ----
	if cfg.Fetch.URL == "" {
		cfg.Fetch.URL = DefaultTargetURL
	}
	if cfg.Fetch.LinkPollMs == 0 {
		cfg.Fetch.LinkPollMs = ms(DefaultLinkPoll)
	}
	if cfg.Fetch.TimeoutMs == 0 {
		cfg.Fetch.TimeoutMs = ms(DefaultFetchTimeout)
	}

	// ---- heartbeat ----
	if cfg.Heartbeat.PeriodMs == 0 {
		cfg.Heartbeat.PeriodMs = ms(DefaultHeartbeatPeriod)
	}
	if cfg.Heartbeat.Message == "" {
		cfg.Heartbeat.Message = DefaultHeartbeatMessage
	}

	// ---- sink ----
	if cfg.Sink.Redis.Addr != "" && cfg.Sink.Redis.Channel == "" {
		cfg.Sink.Redis.Channel = DefaultRedisChannel
	}

	// ---- status ----
	if cfg.Status.Modbus.Endpoint != "" {
		if cfg.Status.Modbus.PeriodMs == 0 {
			cfg.Status.Modbus.PeriodMs = ms(DefaultStatusPeriod)
		}
		if cfg.Status.Modbus.TimeoutMs == 0 {
			cfg.Status.Modbus.TimeoutMs = ms(DefaultModbusTimeout)
		}
	}

	// ---- log ----
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
