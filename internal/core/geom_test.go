package core

import "testing"

func TestBoundsContains(t *testing.T) {
	b := NewBounds(10, 5)

	tests := []struct {
		name     string
		c        Coord
		expected bool
	}{
		{name: "origin", c: Coord{0, 0}, expected: true},
		{name: "far corner", c: Coord{9, 4}, expected: true},
		{name: "x at width", c: Coord{10, 0}, expected: false},
		{name: "y at height", c: Coord{0, 5}, expected: false},
		{name: "negative x", c: Coord{-1, 2}, expected: false},
		{name: "negative y", c: Coord{3, -1}, expected: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := b.Contains(tc.c); got != tc.expected {
				t.Errorf("Contains(%v) = %v, expected %v", tc.c, got, tc.expected)
			}
		})
	}
}

func TestBoundsIndex(t *testing.T) {
	b := NewBounds(35, 35)

	if got := b.Index(Coord{0, 0}); got != 0 {
		t.Errorf("Index(0,0) = %d, expected 0", got)
	}
	if got := b.Index(Coord{3, 2}); got != 73 {
		t.Errorf("Index(3,2) = %d, expected 73", got)
	}
	if got := b.Index(Coord{34, 34}); got != b.Area()-1 {
		t.Errorf("Index(34,34) = %d, expected %d", got, b.Area()-1)
	}
}

func TestCoordStep(t *testing.T) {
	c := Coord{5, 5}

	tests := []struct {
		dir      Direction
		expected Coord
	}{
		{DirNorth, Coord{5, 4}},
		{DirSouth, Coord{5, 6}},
		{DirEast, Coord{6, 5}},
		{DirWest, Coord{4, 5}},
		{DirInvalid, Coord{5, 5}},
	}

	for _, tc := range tests {
		t.Run(tc.dir.String(), func(t *testing.T) {
			if got := c.Step(tc.dir); got != tc.expected {
				t.Errorf("Step(%v) = %v, expected %v", tc.dir, got, tc.expected)
			}
		})
	}
}

func TestDirectionOpposite(t *testing.T) {
	pairs := [][2]Direction{
		{DirNorth, DirSouth},
		{DirEast, DirWest},
	}
	for _, p := range pairs {
		if !p[0].IsOpposite(p[1]) || !p[1].IsOpposite(p[0]) {
			t.Errorf("%v and %v should be opposite", p[0], p[1])
		}
	}

	if DirNorth.IsOpposite(DirEast) {
		t.Error("north and east are not opposite")
	}
	if DirInvalid.IsOpposite(DirInvalid) {
		t.Error("invalid has no opposite")
	}
}

func TestParseDirection(t *testing.T) {
	for _, d := range Directions {
		got, ok := ParseDirection(byte(d))
		if !ok || got != d {
			t.Errorf("ParseDirection(%d) = %v, %v", d, got, ok)
		}
	}

	for _, b := range []byte{0, 5, 42, 255} {
		if _, ok := ParseDirection(b); ok {
			t.Errorf("ParseDirection(%d) should fail", b)
		}
	}
}
