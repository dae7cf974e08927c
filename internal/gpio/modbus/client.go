// internal/gpio/modbus/client.go
package modbus

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

// Client is one Modbus connection (TCP or RTU) to the I/O module that carries
// the button input. It serializes requests.
type Client struct {
	mu     sync.Mutex
	closer interface{ Close() error }
	client modbus.Client
}

// Config is minimal transport config.
type Config struct {
	Endpoint string // tcp://host:port or rtu:///dev/ttyUSB0
	UnitID   uint8
	Timeout  time.Duration
	BaudRate int // RTU only
}

// NewClient dials the endpoint once (fail fast at startup).
// The underlying handler reconnects lazily after transport errors.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("gpio modbus: endpoint required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Second
	}

	switch {
	case strings.HasPrefix(cfg.Endpoint, "tcp://"):
		h := modbus.NewTCPClientHandler(strings.TrimPrefix(cfg.Endpoint, "tcp://"))
		h.Timeout = cfg.Timeout
		h.SlaveId = cfg.UnitID
		if err := h.Connect(); err != nil {
			return nil, fmt.Errorf("gpio modbus: connect %s: %w", cfg.Endpoint, err)
		}
		return &Client{closer: h, client: modbus.NewClient(h)}, nil

	case strings.HasPrefix(cfg.Endpoint, "rtu://"):
		h := modbus.NewRTUClientHandler(strings.TrimPrefix(cfg.Endpoint, "rtu://"))
		h.BaudRate = cfg.BaudRate
		h.DataBits = 8
		h.Parity = "N"
		h.StopBits = 1
		h.Timeout = cfg.Timeout
		h.SlaveId = cfg.UnitID
		if err := h.Connect(); err != nil {
			return nil, fmt.Errorf("gpio modbus: open %s: %w", cfg.Endpoint, err)
		}
		return &Client{closer: h, client: modbus.NewClient(h)}, nil

	default:
		return nil, fmt.Errorf("gpio modbus: unsupported endpoint %q", cfg.Endpoint)
	}
}

// Close releases the transport.
func (c *Client) Close() error {
	if c == nil || c.closer == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closer.Close()
}

// ReadDiscreteInputs implements Reader (FC 2).
func (c *Client) ReadDiscreteInputs(addr, qty uint16) ([]bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := c.client.ReadDiscreteInputs(addr, qty)
	if err != nil {
		return nil, err
	}
	return unpackBits(raw, int(qty)), nil
}

// unpackBits expands LSB-first packed coil/input bytes.
func unpackBits(raw []byte, qty int) []bool {
	out := make([]bool, qty)
	for i := 0; i < qty; i++ {
		if i/8 >= len(raw) {
			break
		}
		out[i] = raw[i/8]&(1<<uint(i%8)) != 0
	}
	return out
}
