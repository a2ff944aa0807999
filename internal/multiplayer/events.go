package multiplayer

import (
	"github.com/vovakirdan/snek-arena/internal/grid"
	"github.com/vovakirdan/snek-arena/internal/wire"
)

// Notice reports client-side progress to whoever drives the client.
type Notice interface {
	clientNotice()
}

// AssignedNotice is sent when the server assigns our id.
type AssignedNotice struct {
	ID PlayerID
}

func (AssignedNotice) clientNotice() {}

// RosterNotice lists every seated player once the lobby is full.
type RosterNotice struct {
	IDs []PlayerID
}

func (RosterNotice) clientNotice() {}

// StartedNotice is sent when the game begins.
type StartedNotice struct{}

func (StartedNotice) clientNotice() {}

// TickNotice is sent after each broadcast move set is applied locally.
type TickNotice struct {
	Tick     uint64
	Outcomes []grid.Outcome
	Snapshot grid.Snapshot
}

func (TickNotice) clientNotice() {}

// DeathReportedNotice is sent when our snake died and we told the server
// which snakes we still see.
type DeathReportedNotice struct {
	Alive []PlayerID
}

func (DeathReportedNotice) clientNotice() {}

// EndedNotice carries the server's verdict.
type EndedNotice struct {
	Result wire.Result
	Winner PlayerID
}

func (EndedNotice) clientNotice() {}
