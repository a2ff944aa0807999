// Package grid is the spatial simulation shared by the server and every client
// mirror. It owns the occupancy grid and all live snakes and advances them one
// discrete step per Tick.
package grid

import (
	"errors"
	"fmt"
	"slices"

	"github.com/vovakirdan/snek-arena/internal/core"
)

// MaxPlayers is the size of the spawn table.
const MaxPlayers = 4

var (
	ErrCapacity      = errors.New("grid: session is full")
	ErrDuplicate     = errors.New("grid: snake already spawned")
	ErrUnknownSnake  = errors.New("grid: unknown snake")
	ErrSpawnBlocked  = errors.New("grid: spawn cells are occupied")
	ErrBadDimensions = errors.New("grid: dimensions cannot fit the spawn table")
)

// Snake is one player's entity. Body is ordered head-to-tail and never
// contains Head.
type Snake struct {
	ID        core.PlayerID
	Head      core.Coord
	Body      []core.Coord
	Direction core.Direction
	// Committed is the direction of the last step actually taken.
	Committed core.Direction
}

// Len returns the number of cells the snake occupies.
func (s *Snake) Len() int {
	return len(s.Body) + 1
}

func (s *Snake) clone() Snake {
	c := *s
	c.Body = slices.Clone(s.Body)
	return c
}

// Engine is the occupancy grid plus the live snake collection.
// It is not safe for concurrent use; one goroutine owns it.
type Engine struct {
	bounds   core.Bounds
	length   int
	capacity int

	cells  []core.PlayerID
	snakes []*Snake // insertion order
	byID   map[core.PlayerID]*Snake
	ticks  uint64
}

// New creates an empty grid. snakeLength counts the head.
func New(bounds core.Bounds, snakeLength, capacity int) (*Engine, error) {
	if snakeLength < 1 {
		return nil, fmt.Errorf("%w: snake length %d", ErrBadDimensions, snakeLength)
	}
	if bounds.W < 2*snakeLength || bounds.H < 2 {
		return nil, fmt.Errorf("%w: %dx%d with length %d", ErrBadDimensions, bounds.W, bounds.H, snakeLength)
	}
	if capacity < 1 || capacity > MaxPlayers {
		return nil, fmt.Errorf("%w: capacity %d outside 1..%d", ErrCapacity, capacity, MaxPlayers)
	}

	return &Engine{
		bounds:   bounds,
		length:   snakeLength,
		capacity: capacity,
		cells:    make([]core.PlayerID, bounds.Area()),
		byID:     make(map[core.PlayerID]*Snake, capacity),
	}, nil
}

// Bounds returns the grid size.
func (e *Engine) Bounds() core.Bounds { return e.bounds }

// Capacity returns the maximum number of live snakes.
func (e *Engine) Capacity() int { return e.capacity }

// Ticks returns the number of Tick calls so far.
func (e *Engine) Ticks() uint64 { return e.ticks }

// Len returns the number of live snakes.
func (e *Engine) Len() int { return len(e.snakes) }

// At returns the player occupying c, or InvalidID if c is empty or outside the grid.
func (e *Engine) At(c core.Coord) core.PlayerID {
	if !e.bounds.Contains(c) {
		return core.InvalidID
	}
	return e.cells[e.bounds.Index(c)]
}

// Free reports whether c is inside the grid and unoccupied.
func (e *Engine) Free(c core.Coord) bool {
	return e.bounds.Contains(c) && e.cells[e.bounds.Index(c)] == core.InvalidID
}

// Alive reports whether the snake is live.
func (e *Engine) Alive(id core.PlayerID) bool {
	_, ok := e.byID[id]
	return ok
}

// Snake returns a copy of a live snake.
func (e *Engine) Snake(id core.PlayerID) (Snake, bool) {
	s, ok := e.byID[id]
	if !ok {
		return Snake{}, false
	}
	return s.clone(), true
}

// IDs returns the live snake ids in ascending order.
func (e *Engine) IDs() []core.PlayerID {
	ids := make([]core.PlayerID, 0, len(e.snakes))
	for _, s := range e.snakes {
		ids = append(ids, s.ID)
	}
	slices.Sort(ids)
	return ids
}

// Spawn places a snake using the layout for its id (id 1..4 map to the four
// spawn slots). Nothing is mutated when an error is returned.
func (e *Engine) Spawn(id core.PlayerID) error {
	if _, ok := e.byID[id]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicate, id)
	}
	if len(e.snakes) >= e.capacity {
		return fmt.Errorf("%w: %d of %d seats taken", ErrCapacity, len(e.snakes), e.capacity)
	}
	slot := int(id) - 1
	if slot < 0 || slot >= MaxPlayers {
		return fmt.Errorf("%w: no spawn slot for id %d", ErrCapacity, id)
	}

	s := e.layout(id, slot)
	if !e.Free(s.Head) {
		return fmt.Errorf("%w: id %d at %v", ErrSpawnBlocked, id, s.Head)
	}
	for _, c := range s.Body {
		if !e.Free(c) {
			return fmt.Errorf("%w: id %d at %v", ErrSpawnBlocked, id, c)
		}
	}

	e.occupy(s.Head, id)
	for _, c := range s.Body {
		e.occupy(c, id)
	}
	e.snakes = append(e.snakes, s)
	e.byID[id] = s
	return nil
}

// layout computes the spawn row for a slot. Slots 0 and 1 start on the west
// edge heading east (top and bottom rows); slots 2 and 3 mirror them on the east edge.
func (e *Engine) layout(id core.PlayerID, slot int) *Snake {
	w, h, l := e.bounds.W, e.bounds.H, e.length

	y := 0
	if slot%2 == 1 {
		y = h - 1
	}

	s := &Snake{ID: id, Body: make([]core.Coord, 0, l-1)}
	if slot < 2 {
		s.Head = core.Coord{X: l - 1, Y: y}
		for x := l - 2; x >= 0; x-- {
			s.Body = append(s.Body, core.Coord{X: x, Y: y})
		}
		s.Direction = core.DirEast
	} else {
		s.Head = core.Coord{X: w - l, Y: y}
		for x := w - l + 1; x < w; x++ {
			s.Body = append(s.Body, core.Coord{X: x, Y: y})
		}
		s.Direction = core.DirWest
	}
	s.Committed = s.Direction
	return s
}

// SetDirection changes a snake's heading for the next tick. Unknown snakes,
// DirInvalid and reversals (against either the pending or the last committed
// heading) are ignored. It returns true if the heading was applied.
func (e *Engine) SetDirection(id core.PlayerID, d core.Direction) bool {
	s, ok := e.byID[id]
	if !ok || d == core.DirInvalid {
		return false
	}
	if d.IsOpposite(s.Direction) || d.IsOpposite(s.Committed) {
		return false
	}
	s.Direction = d
	return true
}

// Remove clears every cell the snake occupies and drops it from the live set.
func (e *Engine) Remove(id core.PlayerID) error {
	s, ok := e.byID[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownSnake, id)
	}
	e.evict(s)
	e.snakes = slices.DeleteFunc(e.snakes, func(other *Snake) bool { return other.ID == id })
	return nil
}

// evict clears the snake's cells and its id. The caller owns e.snakes.
func (e *Engine) evict(s *Snake) {
	e.vacate(s.Head)
	for _, c := range s.Body {
		e.vacate(c)
	}
	delete(e.byID, s.ID)
}

func (e *Engine) occupy(c core.Coord, id core.PlayerID) {
	e.cells[e.bounds.Index(c)] = id
}

func (e *Engine) vacate(c core.Coord) {
	e.cells[e.bounds.Index(c)] = core.InvalidID
}
