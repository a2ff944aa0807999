package grid

import "github.com/vovakirdan/snek-arena/internal/core"

// SnakeState is the loggable summary of one snake.
type SnakeState struct {
	ID        core.PlayerID
	Head      core.Coord
	Len       int
	Direction core.Direction
}

// Snapshot captures the engine state for determinism checks and logs.
type Snapshot struct {
	Tick     uint64
	Occupied int
	Snakes   []SnakeState // ascending id
}

// Snapshot returns the current engine summary.
func (e *Engine) Snapshot() Snapshot {
	snap := Snapshot{Tick: e.ticks}
	for _, id := range e.IDs() {
		s := e.byID[id]
		snap.Occupied += s.Len()
		snap.Snakes = append(snap.Snakes, SnakeState{
			ID:        s.ID,
			Head:      s.Head,
			Len:       s.Len(),
			Direction: s.Direction,
		})
	}
	return snap
}
