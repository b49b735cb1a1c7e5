package service

import (
	"sync"

	"github.com/rocketscienceinc/tictactoe-match/internal/entity"
)

// EventSynced is dispatched by a Replica after it took a snapshot.
const EventSynced = "replica:sync"

// Replica is a read-only mirror of a match. It only moves forward through Sync and Apply,
// and notifies its listeners after each event it applies.
type Replica struct {
	*Dispatcher

	mu     sync.RWMutex
	player entity.Player
	match  *entity.Match
}

func NewReplica() *Replica {
	return &Replica{
		Dispatcher: NewDispatcher(),
		match:      entity.NewMatch(""),
	}
}

// Assign records the seat the host gave this participant.
func (that *Replica) Assign(player entity.Player) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.player = player
}

// Sync replaces the mirror with a snapshot from the host. A snapshot of the same match that is older
// than the mirror is ignored and false is returned.
func (that *Replica) Sync(match *entity.Match) bool {
	that.mu.Lock()
	if that.match.ID == match.ID && match.Seq < that.match.Seq {
		that.mu.Unlock()
		return false
	}
	that.match = match.Clone()
	that.mu.Unlock()

	that.Dispatch(entity.Event{Seq: match.Seq, Kind: EventSynced, LineIndex: -1})

	return true
}

// Apply projects one event and dispatches it if it moved the mirror forward.
// Duplicates are dropped, a gap returns entity.ErrEventOutOfOrder and the caller should resync.
func (that *Replica) Apply(event entity.Event) error {
	that.mu.Lock()
	before := that.match.Seq
	err := that.match.Project(event)
	advanced := that.match.Seq > before
	that.mu.Unlock()

	if err != nil {
		return err
	}

	if advanced {
		that.Dispatch(event)
	}

	return nil
}

func (that *Replica) GetLocalPlayerAssignment() entity.PlayerType {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.player.Mark
}

func (that *Replica) PlayerID() string {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.player.ID
}

func (that *Replica) GetCurrentTurn() entity.PlayerType {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.match.GetCurrentTurn()
}

func (that *Replica) GetScores() (int, int) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.match.GetScores()
}

// Snapshot returns a copy of the mirrored state.
func (that *Replica) Snapshot() *entity.Match {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.match.Clone()
}
