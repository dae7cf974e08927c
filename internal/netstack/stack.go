// internal/netstack/stack.go

// Package netstack is the packet engine seen by the device tasks: a fixed
// socket table, a link-up flag and a perpetual pump that keeps both current.
package netstack

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

var ErrNoSocket = errors.New("netstack: socket table exhausted")

// Prober reports whether the host has a usable address on the uplink.
type Prober func() (bool, error)

// Config is static stack configuration.
type Config struct {
	Sockets   int           // socket table size (N)
	Interface string        // empty: any non-loopback interface
	Probe     time.Duration // pump period
}

// Stack is the host packet engine.
type Stack struct {
	cfg     Config
	log     *zap.Logger
	sockets *semaphore.Weighted
	inUse   atomic.Int64
	linkUp  atomic.Bool
	probe   Prober
	dialer  net.Dialer
}

// New builds a stack with a fixed socket table. A nil prober inspects the
// host interfaces for a DHCP/static unicast address.
func New(cfg Config, probe Prober, log *zap.Logger) (*Stack, error) {
	if cfg.Sockets <= 0 {
		return nil, errors.New("netstack: socket table size must be > 0")
	}
	if cfg.Probe <= 0 {
		return nil, errors.New("netstack: probe period must be > 0")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if probe == nil {
		probe = InterfaceProber(cfg.Interface)
	}

	return &Stack{
		cfg:     cfg,
		log:     log,
		sockets: semaphore.NewWeighted(int64(cfg.Sockets)),
		probe:   probe,
		dialer:  net.Dialer{Resolver: &net.Resolver{}},
	}, nil
}

// Run pumps the engine forever: it refreshes link-up on every period.
func (s *Stack) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Probe)
	defer ticker.Stop()

	for {
		s.pump()

		select {
		case <-ctx.Done():
			s.linkUp.Store(false)
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Stack) pump() {
	up, err := s.probe()
	if err != nil {
		s.log.Debug("link probe failed", zap.Error(err))
		up = false
	}
	if prev := s.linkUp.Swap(up); prev != up {
		if up {
			s.log.Info("link up")
		} else {
			s.log.Warn("link down")
		}
	}
}

// IsLinkUp reports whether the uplink has a usable address.
func (s *Stack) IsLinkUp() bool {
	return s.linkUp.Load()
}

// Sockets returns the socket table size.
func (s *Stack) Sockets() int {
	return s.cfg.Sockets
}

// InUse returns the number of open sockets.
func (s *Stack) InUse() int {
	return int(s.inUse.Load())
}

// DialContext opens a connection on a free socket. It never waits for a
// slot: a full table fails at once.
func (s *Stack) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if !s.sockets.TryAcquire(1) {
		return nil, fmt.Errorf("%w (%d in use)", ErrNoSocket, s.cfg.Sockets)
	}

	conn, err := s.dialer.DialContext(ctx, network, address)
	if err != nil {
		s.sockets.Release(1)
		return nil, err
	}

	s.inUse.Add(1)
	return &socket{Conn: conn, release: func() {
		s.inUse.Add(-1)
		s.sockets.Release(1)
	}}, nil
}

// socket returns its table slot on the first Close.
type socket struct {
	net.Conn
	once    sync.Once
	release func()
}

// Close closes the connection once. Later calls return nil.
func (c *socket) Close() error {
	var err error
	c.once.Do(func() {
		err = c.Conn.Close()
		c.release()
	})
	return err
}

// InterfaceProber reports link-up when the named interface (or, if name is
// empty, any interface that is up and not loopback) has a global unicast
// address.
func InterfaceProber(name string) Prober {
	return func() (bool, error) {
		ifaces, err := net.Interfaces()
		if err != nil {
			return false, err
		}
		for _, ifc := range ifaces {
			if name != "" && ifc.Name != name {
				continue
			}
			if ifc.Flags&net.FlagUp == 0 || ifc.Flags&net.FlagLoopback != 0 {
				continue
			}
			addrs, err := ifc.Addrs()
			if err != nil {
				continue
			}
			for _, a := range addrs {
				if ipn, ok := a.(*net.IPNet); ok && ipn.IP.IsGlobalUnicast() {
					return true, nil
				}
			}
		}
		return false, nil
	}
}
