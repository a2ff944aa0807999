package grid

import (
	"github.com/vovakirdan/snek-arena/internal/core"
)

// Kind classifies what happened to a snake during a tick.
type Kind uint8

const (
	Advanced Kind = iota
	WallCollision
	PlayerCollision
)

// String returns a human-readable name for the outcome kind.
func (k Kind) String() string {
	switch k {
	case Advanced:
		return "advanced"
	case WallCollision:
		return "wall"
	case PlayerCollision:
		return "player"
	default:
		return "unknown"
	}
}

// Outcome is one snake's result for a tick. Other is set for PlayerCollision.
type Outcome struct {
	ID    core.PlayerID
	Kind  Kind
	Other core.PlayerID
}

// Dead reports whether the snake was removed by this tick.
func (o Outcome) Dead() bool {
	return o.Kind != Advanced
}

// Tick advances every live snake by one cell.
//
// Collisions are judged against the pre-tick board: a candidate head outside
// the grid or on the snake's own cells is a wall collision, one on another
// snake's cells is a player collision with that snake. Two snakes whose
// candidates land on the same empty cell both die, each naming the other.
// Dead snakes are removed after all candidates are evaluated, so iteration
// order never changes the outcome. Outcomes follow insertion order.
func (e *Engine) Tick() []Outcome {
	e.ticks++

	outcomes := make([]Outcome, len(e.snakes))
	candidates := make([]core.Coord, len(e.snakes))
	claims := make(map[int]int, len(e.snakes)) // cell index -> snake position

	for i, s := range e.snakes {
		cand := s.Head.Step(s.Direction)
		candidates[i] = cand
		outcomes[i] = Outcome{ID: s.ID, Kind: Advanced}

		if !e.bounds.Contains(cand) {
			outcomes[i].Kind = WallCollision
			continue
		}

		idx := e.bounds.Index(cand)
		switch occ := e.cells[idx]; {
		case occ == s.ID:
			outcomes[i].Kind = WallCollision
		case occ != core.InvalidID:
			outcomes[i] = Outcome{ID: s.ID, Kind: PlayerCollision, Other: occ}
		default:
			if j, taken := claims[idx]; taken {
				outcomes[i] = Outcome{ID: s.ID, Kind: PlayerCollision, Other: e.snakes[j].ID}
				if !outcomes[j].Dead() {
					outcomes[j] = Outcome{ID: e.snakes[j].ID, Kind: PlayerCollision, Other: s.ID}
				}
				continue
			}
			claims[idx] = i
		}
	}

	survivors := make([]*Snake, 0, len(e.snakes))
	for i, s := range e.snakes {
		if outcomes[i].Dead() {
			e.evict(s)
			continue
		}
		e.advance(s, candidates[i])
		survivors = append(survivors, s)
	}
	e.snakes = survivors

	return outcomes
}

// advance translates the snake one cell: the new head is marked, the old tail
// is cleared and the body shifts by one.
func (e *Engine) advance(s *Snake, head core.Coord) {
	e.occupy(head, s.ID)

	if n := len(s.Body); n == 0 {
		e.vacate(s.Head)
	} else {
		e.vacate(s.Body[n-1])
		copy(s.Body[1:], s.Body[:n-1])
		s.Body[0] = s.Head
	}

	s.Head = head
	s.Committed = s.Direction
}
