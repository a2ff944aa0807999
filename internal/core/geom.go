// Package core provides the fundamental types shared by the grid engine, the
// wire codec and both protocol peers. It has no external dependencies.
package core

import "fmt"

// Coord is a cell position on the grid. X grows east, Y grows south.
type Coord struct {
	X, Y int
}

// String returns the coordinate as "(x, y)".
func (c Coord) String() string {
	return fmt.Sprintf("(%d, %d)", c.X, c.Y)
}

// Step returns the neighbouring coordinate in the given direction.
// DirInvalid returns c unchanged.
func (c Coord) Step(d Direction) Coord {
	switch d {
	case DirNorth:
		return Coord{X: c.X, Y: c.Y - 1}
	case DirSouth:
		return Coord{X: c.X, Y: c.Y + 1}
	case DirEast:
		return Coord{X: c.X + 1, Y: c.Y}
	case DirWest:
		return Coord{X: c.X - 1, Y: c.Y}
	default:
		return c
	}
}

// Bounds is the playable area of a grid, anchored at the origin.
type Bounds struct {
	W, H int
}

// NewBounds creates bounds of the given width and height.
func NewBounds(w, h int) Bounds {
	return Bounds{W: w, H: h}
}

// Contains returns true if c lies inside [0,W)x[0,H).
func (b Bounds) Contains(c Coord) bool {
	return c.X >= 0 && c.X < b.W && c.Y >= 0 && c.Y < b.H
}

// Area returns the number of cells inside the bounds.
func (b Bounds) Area() int {
	return b.W * b.H
}

// Index converts a coordinate to its 1-D row-major cell index.
// The caller must check Contains first.
func (b Bounds) Index(c Coord) int {
	return c.X + c.Y*b.W
}
