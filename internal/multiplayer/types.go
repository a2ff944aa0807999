// Package multiplayer implements the snek session protocol: the server-side
// lobby state machine and lockstep move barrier, the client protocol handler
// and the schedulers that pace both.
package multiplayer

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/snek-arena/internal/core"
	"github.com/vovakirdan/snek-arena/internal/transport"
	"github.com/vovakirdan/snek-arena/internal/wire"
)

// PlayerID is an alias to core.PlayerID for convenience.
type PlayerID = core.PlayerID

// Phase is the lobby lifecycle: Waiting -> InProgress -> Ended.
type Phase uint8

const (
	PhaseWaiting Phase = iota
	PhaseInProgress
	PhaseEnded
)

// String returns a human-readable name for the phase.
func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhaseInProgress:
		return "in_progress"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// TimeoutPolicy decides what the session does when a seated peer goes idle.
type TimeoutPolicy string

const (
	// TimeoutLog only logs the timeout.
	TimeoutLog TimeoutPolicy = "log"
	// TimeoutFreeSeat unlinks the player and drops it from the move barrier.
	// Its id is never reused.
	TimeoutFreeSeat TimeoutPolicy = "free-seat"
	// TimeoutAbort ends a running game as a tie for the remaining players.
	TimeoutAbort TimeoutPolicy = "abort"
)

// ParseTimeoutPolicy validates a policy name.
func ParseTimeoutPolicy(s string) (TimeoutPolicy, error) {
	switch p := TimeoutPolicy(s); p {
	case TimeoutLog, TimeoutFreeSeat, TimeoutAbort:
		return p, nil
	default:
		return "", fmt.Errorf("multiplayer: unknown timeout policy %q", s)
	}
}

// Outbound is a message the session wants delivered to one address.
type Outbound struct {
	To  transport.Addr
	Msg wire.Message
}

// EndReason describes why a game finished.
type EndReason string

const (
	EndReasonDeathReport EndReason = "death-report"
	EndReasonTimeout     EndReason = "timeout"
)

// Summary is the record of one finished game.
type Summary struct {
	SessionID  string
	Players    []PlayerID // join order
	Result     wire.Result
	Winner     PlayerID // InvalidID on a tie
	Reason     EndReason
	Broadcasts uint64
	Ticks      uint64
	StartedAt  time.Time
	EndedAt    time.Time
}

// Duration returns how long the game ran.
func (s Summary) Duration() time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}

// ResultSaver is an interface for saving finished games.
// This allows the session to save results without depending on the storage package.
type ResultSaver interface {
	SaveSummary(summary Summary) error
}

func discardLogger() *log.Logger {
	return log.New(io.Discard)
}
