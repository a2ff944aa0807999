package core

// PlayerID identifies a snake for the lifetime of a session.
// IDs are assigned sequentially from 1 and never reused while the session is open.
type PlayerID uint8

// InvalidID is the reserved "no player" value (also used for an empty grid cell).
const InvalidID PlayerID = 0

// Valid reports whether id refers to a real player.
func (id PlayerID) Valid() bool {
	return id != InvalidID
}

// Direction is a snake heading. Values are the wire encoding and must not change.
type Direction uint8

const (
	DirInvalid Direction = 0
	DirNorth   Direction = 1
	DirSouth   Direction = 2
	DirEast    Direction = 3
	DirWest    Direction = 4
)

// ParseDirection converts a wire byte into a Direction.
// Unknown bytes map to DirInvalid with ok == false.
func ParseDirection(b byte) (Direction, bool) {
	d := Direction(b)
	switch d {
	case DirNorth, DirSouth, DirEast, DirWest:
		return d, true
	default:
		return DirInvalid, false
	}
}

// Opposite returns the reverse heading. DirInvalid has no opposite.
func (d Direction) Opposite() Direction {
	switch d {
	case DirNorth:
		return DirSouth
	case DirSouth:
		return DirNorth
	case DirEast:
		return DirWest
	case DirWest:
		return DirEast
	default:
		return DirInvalid
	}
}

// IsOpposite checks if two directions are opposite.
func (d Direction) IsOpposite(other Direction) bool {
	return d != DirInvalid && d.Opposite() == other
}

// String returns a human-readable name for the direction.
func (d Direction) String() string {
	switch d {
	case DirNorth:
		return "north"
	case DirSouth:
		return "south"
	case DirEast:
		return "east"
	case DirWest:
		return "west"
	default:
		return "invalid"
	}
}

// Directions lists the four playable headings in wire order.
var Directions = [...]Direction{DirNorth, DirSouth, DirEast, DirWest}
