// internal/status/snapshot.go
package status

import (
	"github.com/tamzrod/buttonfetch/internal/button"
	"github.com/tamzrod/buttonfetch/internal/fetch"
	"github.com/tamzrod/buttonfetch/internal/link"
	"github.com/tamzrod/buttonfetch/internal/sched"
)

// Network is the stack view included in a snapshot.
type Network struct {
	LinkUp  bool `json:"link_up"`
	Sockets int  `json:"sockets"`
	InUse   int  `json:"in_use"`
}

// Snapshot is what /status reports. Health fields are filled by a Tracker.
type Snapshot struct {
	Health         Health `json:"health"`
	LastErrorCode  uint16 `json:"last_error_code"`
	SecondsInError uint16 `json:"seconds_in_error"`

	Version       string             `json:"version"`
	Tasks         []sched.TaskStatus `json:"tasks"`
	Link          link.Status        `json:"link"`
	Button        button.Status      `json:"button"`
	IntentPending bool               `json:"intent_pending"`
	Fetch         fetch.Status       `json:"fetch"`
	Network       Network            `json:"network"`
	Heartbeats    uint64             `json:"heartbeats"`

	Block []uint16 `json:"block"`
}
