package multiplayer

import (
	"testing"
	"time"

	"github.com/vovakirdan/snek-arena/internal/core"
	"github.com/vovakirdan/snek-arena/internal/grid"
)

func TestAutopilotTurnsBeforeWall(t *testing.T) {
	g, err := grid.New(core.NewBounds(6, 4), 3, 1)
	if err != nil {
		t.Fatalf("grid.New() failed: %v", err)
	}
	_ = g.Spawn(1) // head (2,0) heading east

	a := NewAutopilot()
	if d := a.Steer(g, 1); d != core.DirEast {
		t.Fatalf("open road: Steer() = %v, expected east", d)
	}

	g.Tick()
	g.Tick()
	g.Tick() // head (5,0), wall ahead

	if d := a.Steer(g, 1); d != core.DirSouth {
		t.Errorf("at the wall: Steer() = %v, expected south", d)
	}
	if d := (Straight{}).Steer(g, 1); d != core.DirEast {
		t.Errorf("Straight.Steer() = %v, expected east", d)
	}
	if d := a.Steer(g, 9); d != core.DirInvalid {
		t.Errorf("unknown snake: Steer() = %v, expected invalid", d)
	}
}

func TestSchedulerPollInterval(t *testing.T) {
	s := NewScheduler(30*time.Millisecond, time.Second, 20*time.Millisecond)
	if got := s.PollInterval(); got != 20*time.Millisecond {
		t.Errorf("PollInterval() = %v, expected 20ms", got)
	}

	now := time.Unix(0, 0)
	if !s.MoveDue(now) {
		t.Error("first move sample should be due")
	}
	if s.MoveDue(now.Add(29 * time.Millisecond)) {
		t.Error("move sample inside the interval")
	}
	if !s.MoveDue(now.Add(30 * time.Millisecond)) {
		t.Error("move sample at the interval should be due")
	}

	s.Sent(now)
	if s.HeartbeatDue(now.Add(500*time.Millisecond), false) {
		t.Error("lobby heartbeat is once per second")
	}
	if !s.HeartbeatDue(now.Add(20*time.Millisecond), true) {
		t.Error("playing heartbeat should be due after 20ms")
	}
}
