package websocket

import (
	"sync"

	"github.com/rocketscienceinc/tictactoe-variants/internal/entity"
)

// snapshotFeed holds back the snapshots of a session while the seat loads the
// stored state, then applies them in arrival order.
type snapshotFeed struct {
	apply func(*entity.Snapshot)

	mu      sync.Mutex
	open    bool
	backlog []*entity.Snapshot
}

func newSnapshotFeed(apply func(*entity.Snapshot)) *snapshotFeed {
	return &snapshotFeed{apply: apply}
}

func (that *snapshotFeed) push(snapshot *entity.Snapshot) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if !that.open {
		that.backlog = append(that.backlog, snapshot)
		return
	}

	that.apply(snapshot)
}

// forget drops the held snapshots. Everything published before the stored
// session is read is already part of it.
func (that *snapshotFeed) forget() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.backlog = nil
}

// release applies the held snapshots and lets the next ones straight through.
func (that *snapshotFeed) release() {
	that.mu.Lock()
	defer that.mu.Unlock()

	for _, snapshot := range that.backlog {
		that.apply(snapshot)
	}

	that.backlog = nil
	that.open = true
}
