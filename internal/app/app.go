// internal/app/app.go

// Package app wires the device tasks together and runs them.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tamzrod/buttonfetch/internal/admin"
	"github.com/tamzrod/buttonfetch/internal/button"
	"github.com/tamzrod/buttonfetch/internal/config"
	"github.com/tamzrod/buttonfetch/internal/fetch"
	"github.com/tamzrod/buttonfetch/internal/heartbeat"
	"github.com/tamzrod/buttonfetch/internal/link"
	"github.com/tamzrod/buttonfetch/internal/metrics"
	"github.com/tamzrod/buttonfetch/internal/netstack"
	"github.com/tamzrod/buttonfetch/internal/publish"
	pubmodbus "github.com/tamzrod/buttonfetch/internal/publish/modbus"
	"github.com/tamzrod/buttonfetch/internal/sched"
	"github.com/tamzrod/buttonfetch/internal/signal"
	"github.com/tamzrod/buttonfetch/internal/sink"
	"github.com/tamzrod/buttonfetch/internal/status"
)

// Task names, in spawn order.
const (
	TaskLink      = "link"
	TaskNet       = "net"
	TaskButton    = "button"
	TaskFetch     = "fetch"
	TaskHeartbeat = "heartbeat"
)

// Options carries everything New needs. Config must be normalized and
// validated. The hardware fields override the config backends when set.
type Options struct {
	Config   *config.Config
	SSID     string
	Password string
	Out      io.Writer // console sink and heartbeat; nil => stdout
	Log      *zap.Logger

	Pin        button.Pin
	Controller link.Controller
	Prober     netstack.Prober
}

// App owns the scheduler and every task.
type App struct {
	cfg *config.Config
	log *zap.Logger

	sched   *sched.Scheduler
	intent  *signal.Signal[bool]
	monitor *button.Monitor
	manager *link.Manager
	stack   *netstack.Stack
	worker  *fetch.Worker
	notify  *heartbeat.Notifier
	metrics *metrics.Collectors
	tracker *status.Tracker
	admin   *admin.Server
	publish *publish.Publisher

	closers []func()
}

// New builds every component. Nothing runs until Run.
func New(opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("app: config required")
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	var out io.Writer = os.Stdout
	if opts.Out != nil {
		out = opts.Out
	}
	// console sink and heartbeat share the terminal
	out = sink.NewTerminal(out)

	creds, err := link.NewCredentials(opts.SSID, opts.Password)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	a := &App{
		cfg:     cfg,
		log:     log,
		sched:   sched.New(config.TaskArenaSize, log.Named("sched")),
		intent:  signal.New[bool](),
		metrics: metrics.New(),
		tracker: status.NewTracker(),
	}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	// ---- button ----
	pin := opts.Pin
	var presser admin.Presser
	if pin == nil {
		p, virtual, closeFn, err := buildPin(cfg.Button)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, closeFn)
		pin = p
		if virtual != nil {
			presser = virtual
		}
	}
	a.monitor, err = button.New(button.Config{
		Debounce: config.Millis(cfg.Button.DebounceMs),
	}, pin, a.intent, a.sched, a.metrics, log.Named("button"))
	if err != nil {
		return nil, err
	}

	// ---- link ----
	ctl := opts.Controller
	if ctl == nil {
		ctl, err = buildController(cfg.Link, cfg.Fetch.LinkPollMs)
		if err != nil {
			return nil, err
		}
	}
	a.manager, err = link.New(link.Config{
		Credentials: creds,
		Backoff:     config.Millis(cfg.Link.RetryMs),
	}, ctl, a.sched, a.metrics, log.Named("link"))
	if err != nil {
		return nil, err
	}

	// ---- network ----
	a.stack, err = netstack.New(netstack.Config{
		Sockets:   config.StackSockets,
		Interface: cfg.Network.Interface,
		Probe:     config.Millis(cfg.Network.ProbeMs),
	}, opts.Prober, log.Named("net"))
	if err != nil {
		return nil, err
	}
	a.metrics.GaugeFunc("netstack", "sockets_in_use", "Open sockets in the stack table.", func() float64 {
		return float64(a.stack.InUse())
	})

	// ---- fetch ----
	sinks, closeSinks, err := buildSink(cfg.Sink, out)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeSinks)
	a.worker, err = fetch.New(fetch.Config{
		URL:      cfg.Fetch.URL,
		LinkPoll: config.Millis(cfg.Fetch.LinkPollMs),
		Timeout:  config.Millis(cfg.Fetch.TimeoutMs),
		PoolSize: config.ClientSockets,
	}, a.stack, a.intent, sinks, a.sched, a.metrics, log.Named("fetch"))
	if err != nil {
		return nil, err
	}

	// ---- heartbeat ----
	a.notify, err = heartbeat.New(heartbeat.Config{
		Period:  config.Millis(cfg.Heartbeat.PeriodMs),
		Message: cfg.Heartbeat.Message,
	}, out, a.sched, a.metrics, log.Named("heartbeat"))
	if err != nil {
		return nil, err
	}

	// ---- tasks ----
	tasks := []struct {
		name string
		fn   sched.Func
	}{
		{TaskLink, a.manager.Run},
		{TaskNet, netstack.NewDriver(a.stack, a.sched, log.Named("net")).Run},
		{TaskButton, a.monitor.Run},
		{TaskFetch, a.worker.Run},
		{TaskHeartbeat, a.notify.Run},
	}
	for _, t := range tasks {
		if err := a.sched.Spawn(t.name, t.fn); err != nil {
			return nil, fmt.Errorf("app: spawn %s: %w", t.name, err)
		}
	}

	// ---- admin ----
	if cfg.Admin.Listen != "" {
		h := admin.NewHandler(admin.Deps{
			Gatherer: a.metrics.Registry(),
			Status:   a.Status,
			Presser:  presser,
			Log:      log.Named("admin"),
		})
		a.admin = admin.NewServer(cfg.Admin.Listen, h, log.Named("admin"))
	}

	// ---- status mirror ----
	if sm := cfg.Status.Modbus; sm.Endpoint != "" {
		client, err := pubmodbus.NewRegisterClient(pubmodbus.Config{
			Endpoint: sm.Endpoint,
			UnitID:   sm.UnitID,
			Timeout:  config.Millis(sm.TimeoutMs),
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { client.Close() })

		mirror, err := publish.NewMirror(sm.Address, client)
		if err != nil {
			return nil, err
		}
		a.publish, err = publish.NewPublisher(a.Status, mirror, config.Millis(sm.PeriodMs), log.Named("publish"))
		if err != nil {
			return nil, err
		}
	}

	ok = true
	return a, nil
}

// Run drives the scheduler, plus the admin server and status mirror when
// configured, until ctx is done.
func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting",
		zap.String("version", config.Version),
		zap.String("ssid", a.manager.Status().SSID),
		zap.String("url", a.cfg.Fetch.URL),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.sched.Run(ctx) })
	if a.admin != nil {
		g.Go(func() error { return a.admin.ListenAndServe(ctx) })
	}
	if a.publish != nil {
		g.Go(func() error { return a.publish.Run(ctx) })
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Intent exposes the fetch intent, mainly for tests and the admin surface.
func (a *App) Intent() *signal.Signal[bool] {
	return a.intent
}

// Metrics returns the collectors.
func (a *App) Metrics() *metrics.Collectors {
	return a.metrics
}

// Status assembles and assesses a snapshot.
func (a *App) Status() status.Snapshot {
	s := status.Snapshot{
		Version:       config.Version,
		Tasks:         a.sched.Snapshot(),
		Link:          a.manager.Status(),
		Button:        a.monitor.Status(),
		IntentPending: a.intent.Pending(),
		Fetch:         a.worker.Status(),
		Network: status.Network{
			LinkUp:  a.stack.IsLinkUp(),
			Sockets: a.stack.Sockets(),
			InUse:   a.stack.InUse(),
		},
		Heartbeats: a.notify.Beats(),
	}
	a.tracker.Assess(&s, time.Now())
	return s
}

// Close releases hardware and sink connections. Safe to call twice.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
