// internal/publish/modbus/client.go
package modbus

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

// RegisterClient is a single TCP connection to one Modbus server holding
// the status mirror. It serializes requests.
type RegisterClient struct {
	mu      sync.Mutex
	handler *modbus.TCPClientHandler
	client  modbus.Client
}

type Config struct {
	Endpoint string // tcp://host:port
	UnitID   uint8
	Timeout  time.Duration
}

func NewRegisterClient(cfg Config) (*RegisterClient, error) {
	if !strings.HasPrefix(cfg.Endpoint, "tcp://") {
		return nil, fmt.Errorf("publish modbus: endpoint %q must start with tcp://", cfg.Endpoint)
	}
	addr := strings.TrimPrefix(cfg.Endpoint, "tcp://")
	if addr == "" {
		return nil, errors.New("publish modbus: endpoint required")
	}

	h := modbus.NewTCPClientHandler(addr)
	h.Timeout = cfg.Timeout
	h.SlaveId = cfg.UnitID

	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("publish modbus: connect %s: %w", cfg.Endpoint, err)
	}

	return &RegisterClient{
		handler: h,
		client:  modbus.NewClient(h),
	}, nil
}

func (c *RegisterClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler.Close()
}

// WriteRegisters writes regs starting at addr (FC 16).
func (c *RegisterClient) WriteRegisters(addr uint16, regs []uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.client.WriteMultipleRegisters(addr, uint16(len(regs)), packRegisters(regs))
	return err
}

func packRegisters(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		out[2*i] = byte(r >> 8)
		out[2*i+1] = byte(r)
	}
	return out
}
