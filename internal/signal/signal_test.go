// internal/signal/signal_test.go
package signal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWait_ReturnsLatest(t *testing.T) {
	s := New[int]()
	s.Signal(1)
	s.Signal(2)

	v, err := s.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestWait_LeavesCellOccupied(t *testing.T) {
	s := New[bool]()
	s.Signal(true)

	_, err := s.Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, s.Pending())

	s.Reset()
	assert.False(t, s.Pending())
}

func TestSignal_NoQueueing(t *testing.T) {
	s := New[bool]()
	s.Signal(true)
	s.Signal(true)

	ctx := context.Background()
	_, err := s.Wait(ctx)
	require.NoError(t, err)
	s.Reset()

	// the second signal must not produce another wakeup
	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = s.Wait(short)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWait_WakesParkedWaiter(t *testing.T) {
	s := New[string]()
	got := make(chan string, 1)

	go func() {
		v, err := s.Wait(context.Background())
		if err == nil {
			got <- v
		}
	}()

	time.Sleep(5 * time.Millisecond)
	s.Signal("go")

	select {
	case v := <-got:
		assert.Equal(t, "go", v)
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken")
	}
}

func TestReset_EmptyIsNoop(t *testing.T) {
	s := New[bool]()
	assert.NotPanics(t, func() {
		s.Reset()
		s.Reset()
	})
	assert.False(t, s.Pending())
}

func TestReset_ClearsValue(t *testing.T) {
	s := New[int]()
	s.Signal(7)
	s.Reset()

	v, ok := s.Peek()
	assert.False(t, ok)
	assert.Zero(t, v)
}

func TestWait_Cancelled(t *testing.T) {
	s := New[bool]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSignal_DoesNotAllocate(t *testing.T) {
	s := New[bool]()
	allocs := testing.AllocsPerRun(100, func() {
		s.Signal(true)
		s.Reset()
	})
	assert.Zero(t, allocs)
}
