package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Snapshot records one applied refresh cycle.
type Snapshot struct {
	Cycle     uint64    `json:"cycle"`
	AppliedAt time.Time `json:"applied_at"`
	Stale     bool      `json:"stale"`
	Reports   []Report  `json:"reports"`
}

var snapshotClock = clockwork.NewRealClock()

// SetSnapshotClock replaces the clock that stamps AppliedAt. nil restores
// real time.
func SetSnapshotClock(c clockwork.Clock) {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	snapshotClock = c
}

// NewSnapshot stamps a snapshot with the current time.
func NewSnapshot(cycle uint64, stale bool, reports []Report) Snapshot {
	return Snapshot{
		Cycle:     cycle,
		AppliedAt: snapshotClock.Now().UTC(),
		Stale:     stale,
		Reports:   reports,
	}
}
