// internal/status/constants.go
package status

import "fmt"

// Device status block layout constants.
// These values define the block and MUST NOT be configurable.

// ---- BLOCK GEOMETRY ----

// SlotsPerDevice is the fixed number of slots in a status block.
const SlotsPerDevice = 8

// ---- SLOT INDICES ----

// SlotHealthCode holds the device health state.
const SlotHealthCode = 0

// SlotLastErrorCode holds the last error code.
const SlotLastErrorCode = 1

// SlotSecondsInError holds the duration (in seconds) the device has been unhealthy.
const SlotSecondsInError = 2

// SlotLinkState holds the link manager state.
const SlotLinkState = 3

// SlotSocketsInUse holds the number of open stack sockets.
const SlotSocketsInUse = 4

// Slots 5-7 are reserved.
const SlotReservedStart = 5
const SlotReservedEnd = 7

// ---- HEALTH CODES ----

// Health is the overall device health.
type Health uint16

const (
	HealthUnknown Health = 0 // boot, nothing assessed yet
	HealthOK      Health = 1
	HealthError   Health = 2 // a task has exited
	HealthStale   Health = 3 // link down or last fetch failed
)

func (h Health) String() string {
	switch h {
	case HealthUnknown:
		return "unknown"
	case HealthOK:
		return "ok"
	case HealthError:
		return "error"
	case HealthStale:
		return "stale"
	default:
		return fmt.Sprintf("Health(%d)", uint16(h))
	}
}

func (h Health) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// ---- ERROR CODES ----

const (
	ErrorNone        uint16 = 0
	ErrorTaskExited  uint16 = 1
	ErrorLinkDown    uint16 = 2
	ErrorFetchFailed uint16 = 3
)
