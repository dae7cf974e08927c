// internal/config/config.go
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Link      LinkConfig      `yaml:"link"`
	Button    ButtonConfig    `yaml:"button"`
	Network   NetworkConfig   `yaml:"network"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Heartbeat HeartbeatConfig `yaml:"heartbeat"`
	Sink      SinkConfig      `yaml:"sink"`
	Status    StatusConfig    `yaml:"status"`
	Admin     AdminConfig     `yaml:"admin"`
	Log       LogConfig       `yaml:"log"`
}

// ---- LINK ----

// LinkConfig carries radio tuning only. The identity (SSID/password) is
// build-time and never read from the file.
type LinkConfig struct {
	Backend   string `yaml:"backend"`   // "wired" | "nmcli"
	Interface string `yaml:"interface"` // nmcli device, e.g. wlan0
	RetryMs   int    `yaml:"retry_ms"`
}

// ---- BUTTON ----

type ButtonConfig struct {
	Backend    string       `yaml:"backend"` // "virtual" | "modbus"
	DebounceMs int          `yaml:"debounce_ms"`
	Modbus     ModbusConfig `yaml:"modbus"`
}

type ModbusConfig struct {
	Endpoint  string `yaml:"endpoint"` // tcp://host:502 or rtu:///dev/ttyUSB0
	UnitID    uint8  `yaml:"unit_id"`
	Address   uint16 `yaml:"address"`
	Invert    bool   `yaml:"invert"` // true when the input reads 1 while pressed
	PollMs    int    `yaml:"poll_ms"`
	TimeoutMs int    `yaml:"timeout_ms"`
	BaudRate  int    `yaml:"baud_rate"`
}

// ---- NETWORK ----

type NetworkConfig struct {
	Interface string `yaml:"interface"` // empty: any non-loopback interface
	ProbeMs   int    `yaml:"probe_ms"`
}

// ---- FETCH ----

type FetchConfig struct {
	URL        string `yaml:"url"`
	LinkPollMs int    `yaml:"link_poll_ms"`
	TimeoutMs  int    `yaml:"timeout_ms"`
}

// ---- HEARTBEAT ----

type HeartbeatConfig struct {
	PeriodMs int    `yaml:"period_ms"`
	Message  string `yaml:"message"`
}

// ---- SINK ----

type SinkConfig struct {
	Console *bool       `yaml:"console"` // nil => enabled
	Redis   RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr    string `yaml:"addr"` // empty => disabled
	Channel string `yaml:"channel"`
}

// ---- STATUS ----

type StatusConfig struct {
	Modbus StatusModbusConfig `yaml:"modbus"`
}

// StatusModbusConfig mirrors the status block into holding registers of a
// Modbus TCP server (PLC, HMI, gateway memory).
type StatusModbusConfig struct {
	Endpoint  string `yaml:"endpoint"` // tcp://host:502; empty => disabled
	UnitID    uint8  `yaml:"unit_id"`
	Address   uint16 `yaml:"address"` // first holding register of the block
	PeriodMs  int    `yaml:"period_ms"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// ---- ADMIN ----

type AdminConfig struct {
	Listen string `yaml:"listen"` // empty => disabled
}

// ---- LOG ----

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns a normalized configuration without reading any file.
func Default() *Config {
	cfg := &Config{}
	Normalize(cfg)
	return cfg
}

// Load reads a YAML file. Unknown keys are rejected.
// The result is NOT normalized or validated.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes YAML bytes. An empty document yields a zero Config.
func Parse(raw []byte) (*Config, error) {
	cfg := &Config{}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return cfg, nil
}

// ConsoleEnabled reports whether the stdout sink is on.
func (s SinkConfig) ConsoleEnabled() bool {
	return s.Console == nil || *s.Console
}
