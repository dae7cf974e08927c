// internal/status/tracker.go
package status

import (
	"math"
	"sync"
	"time"

	"github.com/tamzrod/buttonfetch/internal/link"
	"github.com/tamzrod/buttonfetch/internal/sched"
)

// Tracker derives health from successive snapshots. It remembers when the
// device first became unhealthy.
type Tracker struct {
	mu         sync.Mutex
	errorSince time.Time
	lastCode   uint16
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Assess fills the health fields and the block of s.
func (t *Tracker) Assess(s *Snapshot, now time.Time) {
	health, code := classify(s)

	t.mu.Lock()
	if health == HealthOK {
		t.errorSince = time.Time{}
	} else if t.errorSince.IsZero() {
		t.errorSince = now
	}
	if code != ErrorNone {
		t.lastCode = code
	}
	since := t.errorSince
	s.LastErrorCode = t.lastCode
	t.mu.Unlock()

	s.Health = health
	s.SecondsInError = 0
	if !since.IsZero() {
		s.SecondsInError = saturate(now.Sub(since).Seconds())
	}
	s.Block = Encode(*s)
}

func classify(s *Snapshot) (Health, uint16) {
	for _, task := range s.Tasks {
		if task.State == sched.TaskExited.String() {
			return HealthError, ErrorTaskExited
		}
	}
	if s.Link.State != link.StateAssociated.String() || !s.Network.LinkUp {
		return HealthStale, ErrorLinkDown
	}
	if s.Fetch.LastFailed {
		return HealthStale, ErrorFetchFailed
	}
	return HealthOK, ErrorNone
}

func saturate(secs float64) uint16 {
	if secs >= math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(secs)
}
