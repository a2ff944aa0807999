package multiplayer

import (
	"testing"
	"time"

	"github.com/vovakirdan/snek-arena/internal/core"
	"github.com/vovakirdan/snek-arena/internal/wire"
)

func newClient(t *testing.T, w, h, length int) *Client {
	t.Helper()
	cfg := ClientConfig{Bounds: core.NewBounds(w, h), SnakeLength: length, NoticeBuffer: 16}
	sched := NewScheduler(30*time.Millisecond, time.Second, 30*time.Millisecond)
	c, err := NewClient(cfg, Straight{}, sched, nil)
	if err != nil {
		t.Fatalf("NewClient() failed: %v", err)
	}
	return c
}

func drain(c *Client) []Notice {
	var out []Notice
	for {
		select {
		case n := <-c.Notices():
			out = append(out, n)
		default:
			return out
		}
	}
}

func TestClientLobby(t *testing.T) {
	c := newClient(t, 35, 35, 10)

	c.Handle(wire.AssignID(2))
	if c.ID() != 2 {
		t.Fatalf("ID() = %d, expected 2", c.ID())
	}
	c.Handle(wire.AssignID(3))
	if c.ID() != 2 {
		t.Error("a second assign_id must not change the id")
	}

	c.Handle(wire.BroadcastIDs([]core.PlayerID{1, 2}))
	if !c.Grid().Alive(1) || !c.Grid().Alive(2) {
		t.Fatal("both snakes should be mirrored")
	}
	if c.Grid().Len() != 2 {
		t.Errorf("mirror has %d snakes, expected 2", c.Grid().Len())
	}

	if c.Started() {
		t.Fatal("not started yet")
	}
	c.Handle(wire.Start())
	if !c.Started() {
		t.Error("Start should flip the started flag")
	}

	notices := drain(c)
	if len(notices) != 3 {
		t.Fatalf("expected 3 notices, got %d: %#v", len(notices), notices)
	}
	if _, ok := notices[0].(AssignedNotice); !ok {
		t.Errorf("notice 0 = %#v", notices[0])
	}
	if _, ok := notices[2].(StartedNotice); !ok {
		t.Errorf("notice 2 = %#v", notices[2])
	}
}

func TestClientPollCadence(t *testing.T) {
	c := newClient(t, 35, 35, 10)
	now := time.Unix(100, 0)

	// In the lobby only heartbeats go out, once per second.
	if msgs := c.Poll(now); len(msgs) != 1 || msgs[0].Type != wire.TypeHeartbeat {
		t.Fatalf("lobby poll = %+v", msgs)
	}
	if msgs := c.Poll(now.Add(500 * time.Millisecond)); len(msgs) != 0 {
		t.Fatalf("lobby poll inside interval = %+v", msgs)
	}

	c.Handle(wire.AssignID(1))
	c.Handle(wire.BroadcastIDs([]core.PlayerID{1, 2}))
	c.Handle(wire.Start())

	now = now.Add(2 * time.Second)
	msgs := c.Poll(now)
	if len(msgs) != 1 || msgs[0].Type != wire.TypeMove {
		t.Fatalf("first playing poll = %+v", msgs)
	}
	id, dir, _ := wire.ParseClientMove(msgs[0])
	if id != 1 || dir != byte(core.DirEast) {
		t.Errorf("move = %d %d, expected 1 east", id, dir)
	}

	if msgs := c.Poll(now.Add(10 * time.Millisecond)); len(msgs) != 0 {
		t.Errorf("poll inside move interval = %+v", msgs)
	}

	// Same heading again: no move, but the link is quiet so a heartbeat goes out.
	msgs = c.Poll(now.Add(30 * time.Millisecond))
	if len(msgs) != 1 || msgs[0].Type != wire.TypeHeartbeat {
		t.Errorf("unchanged heading poll = %+v", msgs)
	}
}

// In a 6x3 grid snake 1 runs along row 0 and snake 2, turning north from
// row 2, hits its body on the second tick.
func TestClientDeathReport(t *testing.T) {
	c := newClient(t, 6, 3, 3)
	c.Handle(wire.AssignID(2))
	c.Handle(wire.BroadcastIDs([]core.PlayerID{1, 2}))
	c.Handle(wire.Start())
	drain(c)

	moves := wire.ServerMove([]wire.MovePair{{ID: 1, Dir: core.DirEast}, {ID: 2, Dir: core.DirNorth}})
	c.Handle(moves)
	if !c.Grid().Alive(2) {
		t.Fatal("snake 2 should survive the first tick")
	}
	c.Handle(moves)
	if c.Grid().Alive(2) {
		t.Fatal("snake 2 should have hit snake 1")
	}

	now := time.Unix(200, 0)
	msgs := c.Poll(now)
	if len(msgs) != 1 || msgs[0].Type != wire.TypeDeath {
		t.Fatalf("poll after death = %+v", msgs)
	}
	if alive := wire.ParseIDs(msgs[0]); len(alive) != 1 || alive[0] != 1 {
		t.Errorf("death report = %v, expected [1]", alive)
	}

	msgs = c.Poll(now.Add(time.Second))
	if len(msgs) != 1 || msgs[0].Type != wire.TypeHeartbeat {
		t.Errorf("death must be reported once, got %+v", msgs)
	}

	c.Handle(wire.End(wire.ResultLoss, 1))
	result, winner, ended := c.Result()
	if !ended || result != wire.ResultLoss || winner != 1 {
		t.Errorf("Result() = %v %d %v", result, winner, ended)
	}
	if msgs := c.Poll(now.Add(2 * time.Second)); len(msgs) != 0 {
		t.Errorf("ended client should stay quiet, got %+v", msgs)
	}

	notices := drain(c)
	var kinds []string
	for _, n := range notices {
		switch n.(type) {
		case TickNotice:
			kinds = append(kinds, "tick")
		case DeathReportedNotice:
			kinds = append(kinds, "death")
		case EndedNotice:
			kinds = append(kinds, "end")
		}
	}
	want := []string{"tick", "tick", "death", "end"}
	if len(kinds) != len(want) {
		t.Fatalf("notices = %v, expected %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("notice %d = %s, expected %s", i, kinds[i], want[i])
		}
	}
}

func TestClientIgnoresMovesBeforeStart(t *testing.T) {
	c := newClient(t, 35, 35, 10)
	c.Handle(wire.AssignID(1))
	c.Handle(wire.ServerMove([]wire.MovePair{{ID: 1, Dir: core.DirSouth}}))
	if c.Grid().Ticks() != 0 {
		t.Error("moves before Start must not tick the mirror")
	}
}

func TestClientNoticesDropOldest(t *testing.T) {
	cfg := ClientConfig{Bounds: core.NewBounds(35, 35), SnakeLength: 10, NoticeBuffer: 1}
	c, err := NewClient(cfg, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewClient() failed: %v", err)
	}
	c.Handle(wire.AssignID(1))
	c.Handle(wire.Start())

	notices := drain(c)
	if len(notices) != 1 {
		t.Fatalf("expected 1 buffered notice, got %d", len(notices))
	}
	if _, ok := notices[0].(StartedNotice); !ok {
		t.Errorf("newest notice should win, got %#v", notices[0])
	}
}

func TestClientRosterDropsFreedSeat(t *testing.T) {
	c := newClient(t, 35, 35, 10)
	c.Handle(wire.AssignID(1))
	c.Handle(wire.BroadcastIDs([]core.PlayerID{1, 2, 3}))
	c.Handle(wire.Start())

	c.Handle(wire.BroadcastIDs([]core.PlayerID{1, 3}))
	if c.Grid().Alive(2) {
		t.Error("snake 2 should be dropped from the mirror")
	}
	if !c.Grid().Alive(1) || !c.Grid().Alive(3) {
		t.Error("listed snakes must stay")
	}
	if c.Grid().Len() != 2 {
		t.Errorf("mirror has %d snakes, expected 2", c.Grid().Len())
	}

	// A roster that omits the client itself never removes its own snake.
	c.Handle(wire.BroadcastIDs([]core.PlayerID{3}))
	if !c.Grid().Alive(1) {
		t.Error("own snake must not be dropped")
	}
}
