// internal/fetch/client_state.go
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

var (
	ErrPoolExceedsStack = errors.New("fetch: client pool exceeds stack socket table")
	ErrPoolExhausted    = errors.New("fetch: client pool exhausted")
)

// Stack is the packet engine surface the fetch pipeline uses.
type Stack interface {
	IsLinkUp() bool
	Sockets() int
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// ClientState is a per-fetch connection pool of fixed size drawing its
// sockets from the stack table. It is built fresh for every fetch.
type ClientState struct {
	stack Stack
	size  int
	slots *semaphore.Weighted
	tr    *http.Transport
}

// NewClientState refuses a pool larger than the stack socket table.
func NewClientState(stack Stack, size int) (*ClientState, error) {
	if stack == nil {
		return nil, errors.New("fetch: stack required")
	}
	if size <= 0 {
		return nil, fmt.Errorf("fetch: client pool size must be > 0 (got %d)", size)
	}
	if n := stack.Sockets(); size > n {
		return nil, fmt.Errorf("%w: %d > %d", ErrPoolExceedsStack, size, n)
	}
	return &ClientState{
		stack: stack,
		size:  size,
		slots: semaphore.NewWeighted(int64(size)),
	}, nil
}

// DialContext opens a pooled connection through the stack.
func (cs *ClientState) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if !cs.slots.TryAcquire(1) {
		return nil, fmt.Errorf("%w (%d connections)", ErrPoolExhausted, cs.size)
	}
	conn, err := cs.stack.DialContext(ctx, network, address)
	if err != nil {
		cs.slots.Release(1)
		return nil, err
	}
	return &pooledConn{Conn: conn, release: func() { cs.slots.Release(1) }}, nil
}

// Client returns a fresh HTTP client bound to this pool.
func (cs *ClientState) Client(timeout time.Duration) *http.Client {
	cs.tr = &http.Transport{
		DialContext:           cs.DialContext,
		MaxConnsPerHost:       cs.size,
		MaxIdleConns:          cs.size,
		DisableKeepAlives:     true,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
	}
	return &http.Client{Transport: cs.tr, Timeout: timeout}
}

// Close drops any idle connection held by the client.
func (cs *ClientState) Close() {
	if cs.tr != nil {
		cs.tr.CloseIdleConnections()
	}
}

type pooledConn struct {
	net.Conn
	once    sync.Once
	release func()
}

// Close closes the connection once. Later calls return nil.
func (c *pooledConn) Close() error {
	var err error
	c.once.Do(func() {
		err = c.Conn.Close()
		c.release()
	})
	return err
}
