// internal/config/build.go
package config

import "time"

// Link identity is fixed at build time:
//
//	go build -ldflags "-X github.com/tamzrod/buttonfetch/internal/config.SSID=home \
//	                   -X github.com/tamzrod/buttonfetch/internal/config.Password=secret"
//
// An empty Password selects an open network.
var (
	SSID     = ""
	Password = ""
)

// Version is stamped by the release build.
var Version = "dev"

// ---- SOCKET POOLS ----

// StackSockets is the size of the packet engine socket table (N).
const StackSockets = 3

// ClientSockets is the size of the per-fetch HTTP connection pool (M).
const ClientSockets = 3

// The client pool draws from the engine socket table. A pool larger than the
// table corrupts socket allocation, so the build fails instead:
// the constant below underflows uint when ClientSockets > StackSockets.
const _ uint = StackSockets - ClientSockets

// ---- BUFFERS ----

// FetchBufferSize bounds the largest response body a fetch accepts.
const FetchBufferSize = 2560

// TaskArenaSize is the number of task slots in the scheduler.
const TaskArenaSize = 8

// ---- TIMING DEFAULTS ----

const (
	DefaultDebounce        = 100 * time.Millisecond
	DefaultLinkPoll        = 500 * time.Millisecond
	DefaultRetryBackoff    = 5 * time.Second
	DefaultHeartbeatPeriod = 3 * time.Second
	DefaultFetchTimeout    = 10 * time.Second
	DefaultNetworkProbe    = 1 * time.Second
	DefaultModbusPoll      = 10 * time.Millisecond
	DefaultModbusTimeout   = 1 * time.Second
	DefaultStatusPeriod    = 1 * time.Second
)

// ---- TARGET ----

const (
	DefaultTargetURL        = "http://example.com"
	DefaultHeartbeatMessage = "Press button to access web page!"
	DefaultRedisChannel     = "buttonfetch:body"
)
