package multiplayer

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/vovakirdan/snek-arena/internal/core"
	"github.com/vovakirdan/snek-arena/internal/grid"
	"github.com/vovakirdan/snek-arena/internal/metrics"
	"github.com/vovakirdan/snek-arena/internal/transport"
	"github.com/vovakirdan/snek-arena/internal/wire"
)

// SessionConfig holds configuration for a session.
type SessionConfig struct {
	Bounds        core.Bounds
	SnakeLength   int
	MaxPlayers    int
	TimeoutPolicy TimeoutPolicy
}

// DefaultSessionConfig returns the classic two-player 35x35 game.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Bounds:        core.NewBounds(35, 35),
		SnakeLength:   10,
		MaxPlayers:    2,
		TimeoutPolicy: TimeoutLog,
	}
}

// Session is the server's authoritative lobby and game state.
//
// It is a pure state machine: Handle, Tick and Timeout return the messages to
// send and never touch the network. One goroutine owns it; it does no locking.
type Session struct {
	id      string
	cfg     SessionConfig
	logger  *log.Logger
	metrics *metrics.Metrics
	saver   ResultSaver // Optional, can be nil
	now     func() time.Time

	phase  Phase
	order  []PlayerID // join order of seated players
	addrs  map[PlayerID]transport.Addr
	ids    map[transport.Addr]PlayerID
	moves  map[PlayerID]core.Direction // absent = no move yet
	nextID PlayerID

	grid       *grid.Engine
	broadcasts uint64
	startedAt  time.Time
	summary    *Summary
}

// NewSession creates an empty session in the waiting phase.
// logger and m may be nil.
func NewSession(cfg SessionConfig, logger *log.Logger, m *metrics.Metrics) (*Session, error) {
	if cfg.TimeoutPolicy == "" {
		cfg.TimeoutPolicy = TimeoutLog
	}
	if _, err := ParseTimeoutPolicy(string(cfg.TimeoutPolicy)); err != nil {
		return nil, err
	}
	engine, err := grid.New(cfg.Bounds, cfg.SnakeLength, cfg.MaxPlayers)
	if err != nil {
		return nil, fmt.Errorf("multiplayer: cannot create grid: %w", err)
	}
	if logger == nil {
		logger = discardLogger()
	}

	id := uuid.NewString()
	return &Session{
		id:      id,
		cfg:     cfg,
		logger:  logger.With("session", id[:8]),
		metrics: m,
		now:     time.Now,
		phase:   PhaseWaiting,
		addrs:   make(map[PlayerID]transport.Addr, cfg.MaxPlayers),
		ids:     make(map[transport.Addr]PlayerID, cfg.MaxPlayers),
		moves:   make(map[PlayerID]core.Direction, cfg.MaxPlayers),
		nextID:  1,
		grid:    engine,
	}, nil
}

// SetResultSaver sets the optional result saver.
func (s *Session) SetResultSaver(saver ResultSaver) {
	s.saver = saver
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Phase returns the current lifecycle phase.
func (s *Session) Phase() Phase { return s.phase }

// Players returns the seated players in join order.
func (s *Session) Players() []PlayerID { return slices.Clone(s.order) }

// PlayerAt returns the id linked to addr.
func (s *Session) PlayerAt(addr transport.Addr) (PlayerID, bool) {
	id, ok := s.ids[addr]
	return id, ok
}

// AddrOf returns the address linked to id.
func (s *Session) AddrOf(id PlayerID) (transport.Addr, bool) {
	addr, ok := s.addrs[id]
	return addr, ok
}

// Move returns the latest move recorded for id, if any.
func (s *Session) Move(id PlayerID) (core.Direction, bool) {
	d, ok := s.moves[id]
	return d, ok
}

// Snapshot returns the server's grid mirror.
func (s *Session) Snapshot() grid.Snapshot { return s.grid.Snapshot() }

// Summary returns the finished game record once the session has ended.
func (s *Session) Summary() (Summary, bool) {
	if s.summary == nil {
		return Summary{}, false
	}
	return *s.summary, true
}

// Handle processes one decoded message from addr.
func (s *Session) Handle(from transport.Addr, msg wire.Message) []Outbound {
	switch msg.Type {
	case wire.TypeJoin:
		return s.handleJoin(from)
	case wire.TypeHeartbeat:
		return []Outbound{{To: from, Msg: wire.Heartbeat()}}
	case wire.TypeMove:
		return s.handleMove(from, msg)
	case wire.TypeDeath:
		return s.handleDeath(from, msg)
	default:
		s.reject("server_only_type", "ignoring server-to-client message", "addr", from, "type", msg.Type)
		return nil
	}
}

func (s *Session) handleJoin(from transport.Addr) []Outbound {
	if s.phase != PhaseWaiting {
		s.reject("join_not_waiting", "join outside lobby", "addr", from, "phase", s.phase)
		return nil
	}
	if id, ok := s.ids[from]; ok {
		s.reject("join_duplicate", "duplicate join", "addr", from, "id", id)
		return nil
	}
	if len(s.order) >= s.cfg.MaxPlayers {
		s.reject("join_full", "join while full", "addr", from)
		return nil
	}

	id := s.nextID
	if err := s.grid.Spawn(id); err != nil {
		s.reject("join_no_spawn", "join refused", "addr", from, "id", id, "err", err)
		return nil
	}
	s.nextID++
	s.order = append(s.order, id)
	s.addrs[id] = from
	s.ids[from] = id
	s.metrics.Joined()
	s.metrics.SetPlayers(len(s.order))
	s.logger.Info("snek joined", "id", id, "addr", from, "seated", len(s.order), "capacity", s.cfg.MaxPlayers)

	out := []Outbound{{To: from, Msg: wire.AssignID(id)}}
	if len(s.order) == s.cfg.MaxPlayers {
		out = append(out, s.start()...)
	}
	return out
}

// start moves the lobby into play and announces the roster.
func (s *Session) start() []Outbound {
	s.phase = PhaseInProgress
	s.startedAt = s.now()
	s.logger.Info("game started", "players", s.order)

	roster := wire.BroadcastIDs(s.order)
	out := s.broadcast(roster)
	return append(out, s.broadcast(wire.Start())...)
}

func (s *Session) handleMove(from transport.Addr, msg wire.Message) []Outbound {
	if s.phase != PhaseInProgress {
		s.reject("move_not_playing", "move outside game", "addr", from, "phase", s.phase)
		return nil
	}
	id, ok := s.ids[from]
	if !ok {
		s.reject("move_unknown_addr", "move from unseated address", "addr", from)
		return nil
	}
	claimed, raw, err := wire.ParseClientMove(msg)
	if err != nil {
		s.reject("move_malformed", "malformed move", "addr", from, "err", err)
		return nil
	}
	if claimed != id {
		s.reject("move_id_mismatch", "move id mismatch", "addr", from, "claimed", claimed, "id", id)
		return nil
	}
	// A byte outside N/S/E/W is not stored: the slot keeps the last valid
	// move, so the fan-out never carries a direction clients cannot apply.
	dir, ok := core.ParseDirection(raw)
	if !ok {
		s.reject("move_bad_direction", "move with unknown direction", "addr", from, "id", id, "dir", raw)
		return nil
	}

	s.moves[id] = dir
	s.logger.Debug("move recorded", "id", id, "dir", dir)
	return []Outbound{{To: from, Msg: wire.Heartbeat()}}
}

func (s *Session) handleDeath(from transport.Addr, msg wire.Message) []Outbound {
	if s.phase != PhaseInProgress {
		s.reject("death_not_playing", "death outside game", "addr", from, "phase", s.phase)
		return nil
	}
	reporter, ok := s.ids[from]
	if !ok {
		s.reject("death_unknown_addr", "death from unseated address", "addr", from)
		return nil
	}

	alive := wire.ParseIDs(msg)
	switch len(alive) {
	case 0:
		s.logger.Info("death report: tie", "reporter", reporter)
		return s.finish(wire.ResultTie, core.InvalidID, EndReasonDeathReport)
	case 1:
		winner := alive[0]
		if _, seated := s.addrs[winner]; !seated {
			s.logger.Warn("death report names unseated winner", "reporter", reporter, "winner", winner)
		}
		s.logger.Info("death report: winner", "reporter", reporter, "winner", winner)
		return s.finish(wire.ResultWin, winner, EndReasonDeathReport)
	default:
		s.logger.Info("death report", "reporter", reporter, "alive", alive)
		return nil
	}
}

// Tick is the server's lockstep barrier. While any seated player has not
// submitted a move it does nothing; otherwise it fans out every player's
// latest move and advances the grid mirror. Moves persist between ticks.
func (s *Session) Tick() []Outbound {
	if s.phase != PhaseInProgress || len(s.order) == 0 {
		return nil
	}

	pairs := make([]wire.MovePair, 0, len(s.order))
	for _, id := range s.order {
		dir, ok := s.moves[id]
		if !ok {
			s.metrics.BarrierWait()
			s.logger.Debug("waiting for move", "id", id)
			return nil
		}
		pairs = append(pairs, wire.MovePair{ID: id, Dir: dir})
	}

	s.broadcasts++
	s.metrics.Broadcast()

	for _, p := range pairs {
		s.grid.SetDirection(p.ID, p.Dir)
	}
	for _, o := range s.grid.Tick() {
		if o.Dead() {
			s.logger.Info("snek died", "id", o.ID, "cause", o.Kind, "other", o.Other, "tick", s.grid.Ticks())
		}
	}

	return s.broadcast(wire.ServerMove(pairs))
}

// Timeout applies the configured policy to an idle peer.
func (s *Session) Timeout(addr transport.Addr) []Outbound {
	s.metrics.TimedOut()
	id, seated := s.ids[addr]
	if !seated {
		s.logger.Debug("peer timed out", "addr", addr)
		return nil
	}
	s.logger.Warn("player timed out", "id", id, "addr", addr, "phase", s.phase, "policy", s.cfg.TimeoutPolicy)

	if s.phase == PhaseEnded {
		return nil
	}

	switch s.cfg.TimeoutPolicy {
	case TimeoutFreeSeat:
		s.unseat(id)
		if s.phase != PhaseInProgress || len(s.order) == 0 {
			return nil
		}
		// Clients drop mirrored snakes missing from the new roster.
		return s.broadcast(wire.BroadcastIDs(s.order))
	case TimeoutAbort:
		s.unseat(id)
		if s.phase != PhaseInProgress {
			return nil
		}
		return s.finish(wire.ResultTie, core.InvalidID, EndReasonTimeout)
	default:
		return nil
	}
}

// unseat removes every trace of a player. Its id is not reused.
func (s *Session) unseat(id PlayerID) {
	addr := s.addrs[id]
	delete(s.addrs, id)
	delete(s.ids, addr)
	delete(s.moves, id)
	s.order = slices.DeleteFunc(s.order, func(other PlayerID) bool { return other == id })
	if err := s.grid.Remove(id); err != nil && !errors.Is(err, grid.ErrUnknownSnake) {
		s.logger.Error("cannot remove snake", "id", id, "err", err)
	}
	s.metrics.SetPlayers(len(s.order))
	s.logger.Info("seat freed", "id", id, "seated", len(s.order))
}

// finish sends End to every seated player and closes the session.
func (s *Session) finish(result wire.Result, winner PlayerID, reason EndReason) []Outbound {
	out := make([]Outbound, 0, len(s.order))
	for _, id := range s.order {
		r := result
		if result != wire.ResultTie && id != winner {
			r = wire.ResultLoss
		}
		out = append(out, Outbound{To: s.addrs[id], Msg: wire.End(r, winner)})
	}

	s.phase = PhaseEnded
	summary := Summary{
		SessionID:  s.id,
		Players:    slices.Clone(s.order),
		Result:     result,
		Winner:     winner,
		Reason:     reason,
		Broadcasts: s.broadcasts,
		Ticks:      s.grid.Ticks(),
		StartedAt:  s.startedAt,
		EndedAt:    s.now(),
	}
	s.summary = &summary

	outcome := result.String()
	s.metrics.GameEnded(outcome)
	s.logger.Info("game ended", "result", outcome, "winner", winner, "reason", reason,
		"broadcasts", s.broadcasts, "duration", summary.Duration().Round(time.Millisecond))

	if s.saver != nil {
		if err := s.saver.SaveSummary(summary); err != nil {
			s.logger.Error("cannot save game", "err", err)
		}
	}
	return out
}

func (s *Session) broadcast(msg wire.Message) []Outbound {
	out := make([]Outbound, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, Outbound{To: s.addrs[id], Msg: msg})
	}
	return out
}

func (s *Session) reject(reason, msg string, keyvals ...any) {
	s.metrics.Rejected(reason)
	s.logger.Debug(msg, keyvals...)
}
