package multiplayer

import (
	"github.com/vovakirdan/snek-arena/internal/core"
	"github.com/vovakirdan/snek-arena/internal/grid"
)

// Steerer supplies the local player's intended direction. It stands in for
// keyboard input; the client samples it on every move interval.
type Steerer interface {
	Steer(g *grid.Engine, self PlayerID) core.Direction
}

// Straight never turns.
type Straight struct{}

// Steer returns the snake's current heading.
func (Straight) Steer(g *grid.Engine, self PlayerID) core.Direction {
	s, ok := g.Snake(self)
	if !ok {
		return core.DirInvalid
	}
	return s.Direction
}

// Autopilot keeps its heading while the cell ahead is free and otherwise
// turns toward the side with the longer free run. Lookahead bounds how far
// each run is measured.
type Autopilot struct {
	Lookahead int
}

// NewAutopilot creates an autopilot with a sensible lookahead.
func NewAutopilot() *Autopilot {
	return &Autopilot{Lookahead: 8}
}

// Steer picks the next heading.
func (a *Autopilot) Steer(g *grid.Engine, self PlayerID) core.Direction {
	s, ok := g.Snake(self)
	if !ok {
		return core.DirInvalid
	}

	if g.Free(s.Head.Step(s.Direction)) {
		return s.Direction
	}

	best, bestRun := s.Direction, 0
	for _, d := range core.Directions {
		if d == s.Direction || d.IsOpposite(s.Direction) || d.IsOpposite(s.Committed) {
			continue
		}
		if run := a.freeRun(g, s.Head, d); run > bestRun {
			best, bestRun = d, run
		}
	}
	return best
}

// freeRun counts free cells from head in direction d, up to Lookahead.
func (a *Autopilot) freeRun(g *grid.Engine, head core.Coord, d core.Direction) int {
	limit := a.Lookahead
	if limit < 1 {
		limit = 1
	}
	run := 0
	for c := head.Step(d); run < limit && g.Free(c); c = c.Step(d) {
		run++
	}
	return run
}
