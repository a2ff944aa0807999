package multiplayer

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/snek-arena/internal/metrics"
	"github.com/vovakirdan/snek-arena/internal/transport"
	"github.com/vovakirdan/snek-arena/internal/wire"
)

// DefaultTickInterval is the move broadcast cadence.
const DefaultTickInterval = 120 * time.Millisecond

// Server runs a Session against a transport. All session mutation happens on
// the Run goroutine; the transport's own pump is the only other goroutine.
type Server struct {
	session   *Session
	transport transport.Transport
	tick      time.Duration
	logger    *log.Logger
	metrics   *metrics.Metrics
}

// NewServer wires a session to a transport. logger and m may be nil.
func NewServer(session *Session, t transport.Transport, tick time.Duration, logger *log.Logger, m *metrics.Metrics) *Server {
	if tick <= 0 {
		tick = DefaultTickInterval
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &Server{
		session:   session,
		transport: t,
		tick:      tick,
		logger:    logger,
		metrics:   m,
	}
}

// Session returns the session the server drives.
func (s *Server) Session() *Session { return s.session }

// Run processes transport events and ticks until ctx is cancelled.
// Per-message problems are logged and never end the loop.
func (s *Server) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	s.logger.Info("server loop started", "session", s.session.ID(), "tick", s.tick)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("server loop stopped", "phase", s.session.Phase())
			return nil
		case ev, ok := <-s.transport.Events():
			if !ok {
				return transport.ErrClosed
			}
			s.handleEvent(ev)
		case <-ticker.C:
			s.deliver(s.session.Tick())
		}
	}
}

func (s *Server) handleEvent(ev transport.Event) {
	switch e := ev.(type) {
	case transport.Packet:
		msg, err := wire.Decode(e.Data)
		if err != nil {
			s.metrics.Dropped(dropReason(err))
			s.logger.Debug("dropping packet", "addr", e.From, "err", err)
			return
		}
		s.metrics.Received(msg.Type.String(), len(e.Data))
		s.deliver(s.session.Handle(e.From, msg))
	case transport.Connected:
		s.logger.Debug("peer connected", "addr", e.Addr)
	case transport.Timeout:
		s.deliver(s.session.Timeout(e.Addr))
	}
}

func (s *Server) deliver(out []Outbound) {
	for _, o := range out {
		data := o.Msg.Bytes()
		if err := s.transport.Send(o.To, o.Msg.Type.Stream(), data); err != nil {
			s.metrics.Dropped("send_failed")
			s.logger.Warn("send failed", "addr", o.To, "type", o.Msg.Type, "err", err)
			continue
		}
		s.metrics.Sent(o.Msg.Type.String(), len(data))
	}
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, wire.ErrBadMagic):
		return "bad_magic"
	case errors.Is(err, wire.ErrShort):
		return "short"
	case errors.Is(err, wire.ErrUnknownType):
		return "unknown_type"
	default:
		return "decode"
	}
}
