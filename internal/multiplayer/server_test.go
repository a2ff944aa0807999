package multiplayer

import (
	"context"
	"testing"
	"time"

	"github.com/vovakirdan/snek-arena/internal/core"
	"github.com/vovakirdan/snek-arena/internal/grid"
	"github.com/vovakirdan/snek-arena/internal/transport"
	"github.com/vovakirdan/snek-arena/internal/wire"
)

func runServer(t *testing.T, n *transport.Network, cfg SessionConfig) (*Server, context.CancelFunc, <-chan error) {
	t.Helper()
	ep, err := n.Listen("server")
	if err != nil {
		t.Fatalf("Listen() failed: %v", err)
	}
	t.Cleanup(func() { ep.Close() })

	session, err := NewSession(cfg, nil, nil)
	if err != nil {
		t.Fatalf("NewSession() failed: %v", err)
	}
	srv := NewServer(session, ep, 5*time.Millisecond, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	return srv, cancel, done
}

func recvMessage(t *testing.T, conn *transport.Conn) wire.Message {
	t.Helper()
	for {
		select {
		case ev := <-conn.Events():
			pkt, ok := ev.(transport.Packet)
			if !ok {
				continue
			}
			msg, err := wire.Decode(pkt.Data)
			if err != nil {
				t.Fatalf("Decode() failed: %v", err)
			}
			return msg
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for a message")
		}
	}
}

func TestServerSurvivesGarbage(t *testing.T) {
	n := transport.NewNetwork(32)
	_, cancel, done := runServer(t, n, DefaultSessionConfig())
	defer cancel()

	conn, err := n.Dial("client", "server")
	if err != nil {
		t.Fatalf("Dial() failed: %v", err)
	}
	defer conn.Close()

	_ = conn.Send(wire.StreamEvent, []byte("GET / HTTP/1.1"))
	_ = conn.Send(wire.StreamEvent, []byte{42})
	_ = conn.Send(wire.StreamEvent, []byte{42, 99})
	_ = conn.Send(wire.StreamEvent, wire.Join().Bytes())

	msg := recvMessage(t, conn)
	if msg.Type != wire.TypeAssignID {
		t.Fatalf("expected assign_id, got %v", msg.Type)
	}
	if id, _ := wire.ParseAssignID(msg); id != 1 {
		t.Errorf("assigned %d, expected 1", id)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() returned %v", err)
	}
}

// Two straight-running clients on a small grid hit the east wall on the same
// tick, both report a tie and both receive End(Tie).
func TestServerClientsPlayToTie(t *testing.T) {
	bounds := core.NewBounds(12, 4)
	cfg := SessionConfig{Bounds: bounds, SnakeLength: 3, MaxPlayers: 2, TimeoutPolicy: TimeoutLog}

	n := transport.NewNetwork(256)
	srv, cancel, done := runServer(t, n, cfg)
	defer cancel()

	results := make(chan *Client, 2)
	errs := make(chan error, 2)
	for _, addr := range []transport.Addr{"c1", "c2"} {
		conn, err := n.Dial(addr, "server")
		if err != nil {
			t.Fatalf("Dial(%s) failed: %v", addr, err)
		}
		defer conn.Close()

		client, err := NewClient(
			ClientConfig{Bounds: bounds, SnakeLength: 3},
			Straight{},
			NewScheduler(2*time.Millisecond, 50*time.Millisecond, 10*time.Millisecond),
			nil,
		)
		if err != nil {
			t.Fatalf("NewClient() failed: %v", err)
		}
		go func() {
			ctx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			if err := client.Run(ctx, conn); err != nil {
				errs <- err
				return
			}
			results <- client
		}()
	}

	for range 2 {
		select {
		case c := <-results:
			result, winner, ended := c.Result()
			if !ended || result != wire.ResultTie || winner != core.InvalidID {
				t.Errorf("client %d: Result() = %v %d %v", c.ID(), result, winner, ended)
			}
		case err := <-errs:
			t.Fatalf("client Run() failed: %v", err)
		}
	}

	cancel()
	<-done

	summary, ok := srv.Session().Summary()
	if !ok {
		t.Fatal("session should have a summary")
	}
	if summary.Result != wire.ResultTie || len(summary.Players) != 2 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.Broadcasts < 10 {
		t.Errorf("expected at least 10 broadcasts before the wall, got %d", summary.Broadcasts)
	}
}

// heading steers toward one fixed direction while the snake lives.
type heading core.Direction

func (h heading) Steer(g *grid.Engine, self PlayerID) core.Direction {
	if !g.Alive(self) {
		return core.DirInvalid
	}
	return core.Direction(h)
}

func playClient(t *testing.T, n *transport.Network, addr transport.Addr, bounds core.Bounds, steer Steerer) (*Client, <-chan error) {
	t.Helper()
	conn, err := n.Dial(addr, "server")
	if err != nil {
		t.Fatalf("Dial(%s) failed: %v", addr, err)
	}
	t.Cleanup(func() { conn.Close() })

	client, err := NewClient(
		ClientConfig{Bounds: bounds, SnakeLength: 3},
		steer,
		NewScheduler(2*time.Millisecond, 50*time.Millisecond, 10*time.Millisecond),
		nil,
	)
	if err != nil {
		t.Fatalf("NewClient() failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		ctx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		done <- client.Run(ctx, conn)
	}()
	return client, done
}

func awaitAssigned(t *testing.T, c *Client) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case n := <-c.Notices():
			if _, ok := n.(AssignedNotice); ok {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for assign_id")
		}
	}
}

// On a 40x3 grid snake 1 turns south from row 0 and runs into the body of
// snake 2, which travels east along row 2. Client 1 reports Death([2]); the
// server answers End(Loss,2) to it and End(Win,2) to client 2.
func TestServerClientsPlayToWin(t *testing.T) {
	// Wide enough that snake 2 stays clear of the east wall until End.
	bounds := core.NewBounds(40, 3)
	cfg := SessionConfig{Bounds: bounds, SnakeLength: 3, MaxPlayers: 2, TimeoutPolicy: TimeoutLog}

	n := transport.NewNetwork(256)
	srv, cancel, done := runServer(t, n, cfg)
	defer cancel()

	first, firstDone := playClient(t, n, "c1", bounds, heading(core.DirSouth))
	awaitAssigned(t, first)
	second, secondDone := playClient(t, n, "c2", bounds, Straight{})

	for _, ch := range []<-chan error{firstDone, secondDone} {
		if err := <-ch; err != nil {
			t.Fatalf("client Run() failed: %v", err)
		}
	}

	if first.ID() != 1 || second.ID() != 2 {
		t.Fatalf("ids = %d, %d, expected 1, 2", first.ID(), second.ID())
	}
	if result, winner, ended := first.Result(); !ended || result != wire.ResultLoss || winner != 2 {
		t.Errorf("client 1: Result() = %v %d %v, expected loss to 2", result, winner, ended)
	}
	if result, winner, ended := second.Result(); !ended || result != wire.ResultWin || winner != 2 {
		t.Errorf("client 2: Result() = %v %d %v, expected win", result, winner, ended)
	}
	if first.Grid().Alive(1) || !first.Grid().Alive(2) {
		t.Error("client 1 mirror should hold only snake 2")
	}

	cancel()
	<-done

	summary, ok := srv.Session().Summary()
	if !ok {
		t.Fatal("session should have a summary")
	}
	if summary.Result != wire.ResultWin || summary.Winner != 2 || summary.Reason != EndReasonDeathReport {
		t.Errorf("summary = %+v", summary)
	}
	if summary.Broadcasts < 2 {
		t.Errorf("expected at least 2 broadcasts before the collision, got %d", summary.Broadcasts)
	}
}
