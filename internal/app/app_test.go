// internal/app/app_test.go
package app

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tamzrod/buttonfetch/internal/config"
	"github.com/tamzrod/buttonfetch/internal/gpio"
	"github.com/tamzrod/buttonfetch/internal/link"
	"github.com/tamzrod/buttonfetch/internal/status"
)

// ---- fakes ----

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// flakyRadio refuses the first failures connects.
type flakyRadio struct {
	failures   int32
	connects   atomic.Int32
	associated atomic.Bool
}

func (r *flakyRadio) IsStarted(context.Context) (bool, error)  { return true, nil }
func (r *flakyRadio) SetConfiguration(link.ClientConfig) error { return nil }
func (r *flakyRadio) Start(context.Context) error              { return nil }

func (r *flakyRadio) Connect(context.Context) error {
	if r.connects.Add(1) <= r.failures {
		return errors.New("no access point")
	}
	r.associated.Store(true)
	return nil
}

func (r *flakyRadio) WaitForDisconnect(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (r *flakyRadio) probe() (bool, error) {
	return r.associated.Load(), nil
}

// ---- helpers ----

func testConfig(url string) *config.Config {
	cfg := config.Default()
	cfg.Fetch.URL = url
	cfg.Button.DebounceMs = 20
	cfg.Link.RetryMs = 5
	cfg.Network.ProbeMs = 2
	cfg.Fetch.LinkPollMs = 2
	cfg.Fetch.TimeoutMs = 2000
	cfg.Heartbeat.PeriodMs = 25
	return cfg
}

type rig struct {
	app   *App
	pin   *gpio.VirtualPin
	radio *flakyRadio
	out   *syncBuffer
	hits  *atomic.Int32
	stop  func()
}

func start(t *testing.T, page string, failures int32) *rig {
	t.Helper()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Write([]byte(page))
	}))
	t.Cleanup(srv.Close)

	r := &rig{
		pin:   gpio.NewVirtualPin(),
		radio: &flakyRadio{failures: failures},
		out:   &syncBuffer{},
		hits:  &hits,
	}
	cfg := testConfig(srv.URL)
	require.NoError(t, config.Validate(cfg))

	a, err := New(Options{
		Config:     cfg,
		SSID:       "home",
		Password:   "secret",
		Out:        r.out,
		Log:        zaptest.NewLogger(t),
		Pin:        r.pin,
		Controller: r.radio,
		Prober:     r.radio.probe,
	})
	require.NoError(t, err)
	r.app = a

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	r.stop = func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("app did not stop")
		}
		a.Close()
	}
	t.Cleanup(func() {
		if r.stop != nil {
			r.stop()
		}
	})
	return r
}

func (r *rig) associated() bool {
	return r.app.Status().Link.State == link.StateAssociated.String()
}

// press repeats a press of length hold until the monitor has seen one
// edge, so a press cannot be lost before the button task parks.
func (r *rig) press(t *testing.T, hold time.Duration) {
	t.Helper()
	require.Eventually(t, func() bool {
		b := r.app.Status().Button
		if b.Confirmed+b.Bounced > 0 {
			return true
		}
		r.pin.Press(hold)
		return false
	}, 3*time.Second, hold+50*time.Millisecond)
}

// ---- tests ----

func TestPressFetchesAndPrints(t *testing.T) {
	r := start(t, "<html>hello</html>", 0)

	require.Eventually(t, r.associated, 2*time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return r.app.Status().Network.LinkUp }, 2*time.Second, time.Millisecond)

	r.press(t, 100*time.Millisecond)

	require.Eventually(t, func() bool {
		return strings.Contains(r.out.String(), "Http body:\n<html>hello</html>\n")
	}, 3*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), r.hits.Load())

	s := r.app.Status()
	assert.Equal(t, uint64(1), s.Button.Confirmed)
	assert.Equal(t, uint64(1), s.Fetch.Fetches)
	assert.Equal(t, status.HealthOK, s.Health)
	assert.Len(t, s.Tasks, 5)
}

func TestHeartbeatRunsWithoutPresses(t *testing.T) {
	r := start(t, "x", 0)

	require.Eventually(t, func() bool {
		return strings.Count(r.out.String(), config.DefaultHeartbeatMessage+"\n") >= 3
	}, 2*time.Second, 5*time.Millisecond)
	assert.Zero(t, r.hits.Load())
}

func TestBounceDoesNotFetch(t *testing.T) {
	r := start(t, "x", 0)
	require.Eventually(t, r.associated, 2*time.Second, time.Millisecond)

	r.press(t, time.Millisecond)

	assert.Equal(t, uint64(1), r.app.Status().Button.Bounced)
	assert.Never(t, func() bool { return r.hits.Load() > 0 }, 100*time.Millisecond, 5*time.Millisecond)
}

func TestPressBeforeLinkWaitsForAssociation(t *testing.T) {
	r := start(t, "late", 5)

	r.press(t, 100*time.Millisecond)

	require.Eventually(t, func() bool {
		return strings.Contains(r.out.String(), "Http body:\nlate\n")
	}, 3*time.Second, 5*time.Millisecond)

	s := r.app.Status()
	assert.GreaterOrEqual(t, s.Link.Backoffs, uint64(5))
	assert.Equal(t, int32(1), r.hits.Load())
}

func TestOversizeBodyRecovers(t *testing.T) {
	r := start(t, strings.Repeat("z", config.FetchBufferSize+1), 0)
	require.Eventually(t, r.associated, 2*time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return r.app.Status().Network.LinkUp }, 2*time.Second, time.Millisecond)

	r.press(t, 100*time.Millisecond)
	require.Eventually(t, func() bool { return r.app.Status().Fetch.Failures == 1 }, 3*time.Second, 5*time.Millisecond)

	s := r.app.Status()
	assert.Equal(t, status.HealthStale, s.Health)
	assert.Equal(t, status.ErrorFetchFailed, s.LastErrorCode)
	assert.NotContains(t, r.out.String(), "Http body:")
	assert.False(t, r.app.Intent().Pending())
}

func TestNew_RejectsBadCredentials(t *testing.T) {
	cfg := testConfig("http://example.com")

	_, err := New(Options{Config: cfg, SSID: ""})
	assert.ErrorIs(t, err, link.ErrSSIDEmpty)

	_, err = New(Options{Config: cfg, SSID: strings.Repeat("s", 33)})
	assert.ErrorIs(t, err, link.ErrSSIDTooLong)

	_, err = New(Options{Config: cfg, SSID: "ok", Password: strings.Repeat("p", 65)})
	assert.ErrorIs(t, err, link.ErrPasswordTooLong)
}

func TestNew_ConfigBackends(t *testing.T) {
	cfg := testConfig("http://example.com")
	a, err := New(Options{Config: cfg, SSID: "open-net", Out: &syncBuffer{}})
	require.NoError(t, err)
	a.Close()
	a.Close()
	assert.Equal(t, "open", a.Status().Link.Auth)

	bad := testConfig("http://example.com")
	bad.Button.Backend = config.ButtonBackendModbus
	bad.Button.Modbus.Endpoint = "tcp://127.0.0.1:1"
	_, err = New(Options{Config: bad, SSID: "x"})
	assert.Error(t, err)

	mirror := testConfig("http://example.com")
	mirror.Status.Modbus.Endpoint = "tcp://127.0.0.1:1"
	config.Normalize(mirror)
	require.NoError(t, config.Validate(mirror))
	_, err = New(Options{Config: mirror, SSID: "x", Out: &syncBuffer{}})
	assert.Error(t, err, "unreachable status mirror fails fast")

	_, err = New(Options{})
	assert.Error(t, err)
}
