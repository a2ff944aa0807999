package multiplayer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/snek-arena/internal/core"
	"github.com/vovakirdan/snek-arena/internal/grid"
	"github.com/vovakirdan/snek-arena/internal/transport"
	"github.com/vovakirdan/snek-arena/internal/wire"
)

// ErrServerLost is returned by Client.Run when the transport reports the
// server idle or disconnected before the game ended.
var ErrServerLost = errors.New("multiplayer: lost connection to server")

// Conn is the client's view of a transport bound to the server.
type Conn interface {
	Send(stream wire.Stream, data []byte) error
	Events() <-chan transport.Event
}

// ClientConfig holds configuration for a client.
type ClientConfig struct {
	Bounds      core.Bounds
	SnakeLength int
	// NoticeBuffer sizes the Notices channel.
	NoticeBuffer int
}

// DefaultClientConfig matches DefaultSessionConfig.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Bounds:       core.NewBounds(35, 35),
		SnakeLength:  10,
		NoticeBuffer: 64,
	}
}

// Client mirrors the server's grid and reacts to its events.
// Like Session, Handle and Poll only compute messages; Run does the I/O.
type Client struct {
	cfg     ClientConfig
	logger  *log.Logger
	steerer Steerer
	sched   *Scheduler
	grid    *grid.Engine
	notices chan Notice

	self     PlayerID
	started  bool
	reported bool // own death reported
	ended    bool
	result   wire.Result
	winner   PlayerID
	lastSent core.Direction
}

// NewClient creates a client. sched and logger may be nil.
func NewClient(cfg ClientConfig, steerer Steerer, sched *Scheduler, logger *log.Logger) (*Client, error) {
	engine, err := grid.New(cfg.Bounds, cfg.SnakeLength, grid.MaxPlayers)
	if err != nil {
		return nil, fmt.Errorf("multiplayer: cannot create grid: %w", err)
	}
	if steerer == nil {
		steerer = Straight{}
	}
	if sched == nil {
		sched = DefaultScheduler()
	}
	if logger == nil {
		logger = discardLogger()
	}
	if cfg.NoticeBuffer < 1 {
		cfg.NoticeBuffer = 64
	}
	return &Client{
		cfg:     cfg,
		logger:  logger,
		steerer: steerer,
		sched:   sched,
		grid:    engine,
		notices: make(chan Notice, cfg.NoticeBuffer),
	}, nil
}

// ID returns the id the server assigned, or InvalidID before AssignId.
func (c *Client) ID() PlayerID { return c.self }

// Started reports whether Start was received.
func (c *Client) Started() bool { return c.started }

// Ended reports whether the server sent End.
func (c *Client) Ended() bool { return c.ended }

// Result returns the End verdict.
func (c *Client) Result() (wire.Result, PlayerID, bool) {
	return c.result, c.winner, c.ended
}

// Grid returns the local mirror.
func (c *Client) Grid() *grid.Engine { return c.grid }

// Notices returns progress notifications. Old notices are dropped when the
// reader falls behind.
func (c *Client) Notices() <-chan Notice { return c.notices }

// Join returns the message that opens the session.
func (c *Client) Join() wire.Message { return wire.Join() }

// Handle applies one server message to the local state.
func (c *Client) Handle(msg wire.Message) {
	switch msg.Type {
	case wire.TypeAssignID:
		c.handleAssign(msg)
	case wire.TypeBroadcastIDs:
		c.handleRoster(msg)
	case wire.TypeStart:
		if !c.started {
			c.started = true
			c.logger.Info("game started", "id", c.self)
			c.notify(StartedNotice{})
		}
	case wire.TypeMove:
		c.handleMoves(msg)
	case wire.TypeEnd:
		c.handleEnd(msg)
	case wire.TypeHeartbeat:
		// keepalive only
	default:
		c.logger.Debug("ignoring client-to-server message", "type", msg.Type)
	}
}

func (c *Client) handleAssign(msg wire.Message) {
	id, err := wire.ParseAssignID(msg)
	if err != nil {
		c.logger.Warn("bad assign_id", "err", err)
		return
	}
	if c.self.Valid() {
		c.logger.Debug("already assigned", "id", c.self, "again", id)
		return
	}
	c.self = id
	if err := c.grid.Spawn(id); err != nil {
		c.logger.Warn("cannot spawn own snake", "id", id, "err", err)
	}
	c.logger.Info("assigned id", "id", id)
	c.notify(AssignedNotice{ID: id})
}

// handleRoster mirrors every listed snake. Mid-game the server resends the
// roster when a seat is freed, so mirrored snakes it no longer lists go away.
func (c *Client) handleRoster(msg wire.Message) {
	ids := wire.ParseIDs(msg)
	for _, id := range c.grid.IDs() {
		if id == c.self || slices.Contains(ids, id) {
			continue
		}
		if err := c.grid.Remove(id); err != nil {
			c.logger.Warn("cannot drop snake", "id", id, "err", err)
			continue
		}
		c.logger.Info("seat freed", "id", id)
	}
	for _, id := range ids {
		if id == c.self || c.grid.Alive(id) {
			continue
		}
		if err := c.grid.Spawn(id); err != nil {
			c.logger.Warn("cannot mirror snake", "id", id, "err", err)
		}
	}
	c.logger.Info("roster", "ids", ids)
	c.notify(RosterNotice{IDs: ids})
}

// handleMoves applies one server fan-out and advances the mirror one tick.
func (c *Client) handleMoves(msg wire.Message) {
	if !c.started || c.ended {
		return
	}
	for _, p := range wire.ParseServerMove(msg) {
		c.grid.SetDirection(p.ID, p.Dir)
	}
	outcomes := c.grid.Tick()
	for _, o := range outcomes {
		if o.Dead() {
			c.logger.Info("snek died", "id", o.ID, "cause", o.Kind, "other", o.Other)
		}
	}
	c.notify(TickNotice{Tick: c.grid.Ticks(), Outcomes: outcomes, Snapshot: c.grid.Snapshot()})
}

func (c *Client) handleEnd(msg wire.Message) {
	result, winner, err := wire.ParseEnd(msg)
	if err != nil {
		c.logger.Warn("bad end", "err", err)
		return
	}
	if c.ended {
		return
	}
	c.ended = true
	c.result, c.winner = result, winner
	c.logger.Info("game over", "result", result, "winner", winner)
	c.notify(EndedNotice{Result: result, Winner: winner})
}

// Poll returns what the client should send at now: an edge-triggered Move
// when the intended heading changed, a Death report once its own snake is
// gone, and a Heartbeat when the link has otherwise been quiet.
func (c *Client) Poll(now time.Time) []wire.Message {
	var out []wire.Message

	if c.started && !c.ended && !c.reported && c.sched.MoveDue(now) {
		if !c.grid.Alive(c.self) {
			alive := c.grid.IDs()
			c.reported = true
			out = append(out, wire.Death(alive))
			c.logger.Info("reporting death", "alive", alive)
			c.notify(DeathReportedNotice{Alive: alive})
		} else if intent := c.steerer.Steer(c.grid, c.self); intent != core.DirInvalid && intent != c.lastSent {
			c.lastSent = intent
			out = append(out, wire.ClientMove(c.self, intent))
		}
	}

	if len(out) == 0 && !c.ended && c.sched.HeartbeatDue(now, c.started) {
		out = append(out, wire.Heartbeat())
	}
	if len(out) > 0 {
		c.sched.Sent(now)
	}
	return out
}

// Run joins through conn and plays until End arrives or ctx is cancelled.
func (c *Client) Run(ctx context.Context, conn Conn) error {
	c.send(conn, c.Join())

	ticker := time.NewTicker(c.sched.PollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-conn.Events():
			if !ok {
				return transport.ErrClosed
			}
			switch e := ev.(type) {
			case transport.Packet:
				msg, err := wire.Decode(e.Data)
				if err != nil {
					c.logger.Debug("dropping packet", "err", err)
					continue
				}
				c.Handle(msg)
				if c.ended {
					return nil
				}
			case transport.Connected:
				c.logger.Debug("connected", "addr", e.Addr)
			case transport.Timeout:
				return fmt.Errorf("%w: %s", ErrServerLost, e.Addr)
			}
		case now := <-ticker.C:
			for _, msg := range c.Poll(now) {
				c.send(conn, msg)
			}
		}
	}
}

func (c *Client) send(conn Conn, msg wire.Message) {
	if err := conn.Send(msg.Type.Stream(), msg.Bytes()); err != nil {
		c.logger.Warn("send failed", "type", msg.Type, "err", err)
	}
}

// notify delivers a notice without blocking.
// If the buffer is full, the oldest notice is dropped.
func (c *Client) notify(n Notice) {
	select {
	case c.notices <- n:
	default:
		select {
		case <-c.notices:
		default:
		}
		select {
		case c.notices <- n:
		default:
		}
	}
}
