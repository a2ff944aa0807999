package wire

import (
	"errors"
	"fmt"

	"github.com/vovakirdan/snek-arena/internal/core"
)

// ErrPayload is returned by the typed parsers when a payload has the wrong shape.
var ErrPayload = errors.New("wire: malformed payload")

// Result is the outcome carried by an End message.
type Result byte

const (
	ResultWin  Result = 0
	ResultTie  Result = 1
	ResultLoss Result = 2
)

// String returns a human-readable name for the result.
func (r Result) String() string {
	switch r {
	case ResultWin:
		return "win"
	case ResultTie:
		return "tie"
	case ResultLoss:
		return "loss"
	default:
		return "unknown"
	}
}

// MovePair is one (player, direction) entry of a server Move broadcast.
type MovePair struct {
	ID  core.PlayerID
	Dir core.Direction
}

// Join builds a join request.
func Join() Message { return New(TypeJoin) }

// Start builds a game start event.
func Start() Message { return New(TypeStart) }

// Heartbeat builds a keepalive.
func Heartbeat() Message { return New(TypeHeartbeat) }

// AssignID builds the reply to an admitted join.
func AssignID(id core.PlayerID) Message {
	return New(TypeAssignID, byte(id))
}

// BroadcastIDs lists every seated player in join order.
func BroadcastIDs(ids []core.PlayerID) Message {
	return New(TypeBroadcastIDs, idBytes(ids)...)
}

// ClientMove is the single-player move a client submits.
func ClientMove(id core.PlayerID, dir core.Direction) Message {
	return New(TypeMove, byte(id), byte(dir))
}

// ServerMove is the fan-out of every player's latest move.
func ServerMove(pairs []MovePair) Message {
	payload := make([]byte, 0, 2*len(pairs))
	for _, p := range pairs {
		payload = append(payload, byte(p.ID), byte(p.Dir))
	}
	return New(TypeMove, payload...)
}

// Death reports the snakes the sender still sees alive.
// Zero ids means a tie, one id names the winner.
func Death(alive []core.PlayerID) Message {
	return New(TypeDeath, idBytes(alive)...)
}

// End tells a player how the game finished.
func End(result Result, id core.PlayerID) Message {
	return New(TypeEnd, byte(result), byte(id))
}

// ParseAssignID extracts the assigned id.
func ParseAssignID(m Message) (core.PlayerID, error) {
	if len(m.Payload) < 1 {
		return core.InvalidID, fmt.Errorf("%w: assign_id needs 1 byte", ErrPayload)
	}
	id := core.PlayerID(m.Payload[0])
	if !id.Valid() {
		return core.InvalidID, fmt.Errorf("%w: assign_id carries invalid id", ErrPayload)
	}
	return id, nil
}

// ParseIDs reads a BroadcastIDs or Death payload.
func ParseIDs(m Message) []core.PlayerID {
	ids := make([]core.PlayerID, len(m.Payload))
	for i, b := range m.Payload {
		ids[i] = core.PlayerID(b)
	}
	return ids
}

// ParseClientMove reads the [id, dir] payload a client sends.
// The direction byte is returned raw so the server can relay it untouched.
func ParseClientMove(m Message) (core.PlayerID, byte, error) {
	if len(m.Payload) < 2 {
		return core.InvalidID, 0, fmt.Errorf("%w: move needs 2 bytes, got %d", ErrPayload, len(m.Payload))
	}
	return core.PlayerID(m.Payload[0]), m.Payload[1], nil
}

// ParseServerMove reads the pairs of a server broadcast.
// A trailing odd byte is ignored; pairs with an unknown direction keep DirInvalid.
func ParseServerMove(m Message) []MovePair {
	pairs := make([]MovePair, 0, len(m.Payload)/2)
	for i := 0; i+1 < len(m.Payload); i += 2 {
		dir, _ := core.ParseDirection(m.Payload[i+1])
		pairs = append(pairs, MovePair{ID: core.PlayerID(m.Payload[i]), Dir: dir})
	}
	return pairs
}

// ParseEnd reads the [result, id] payload.
func ParseEnd(m Message) (Result, core.PlayerID, error) {
	if len(m.Payload) < 2 {
		return 0, core.InvalidID, fmt.Errorf("%w: end needs 2 bytes", ErrPayload)
	}
	r := Result(m.Payload[0])
	if r > ResultLoss {
		return 0, core.InvalidID, fmt.Errorf("%w: unknown result %d", ErrPayload, m.Payload[0])
	}
	return r, core.PlayerID(m.Payload[1]), nil
}

func idBytes(ids []core.PlayerID) []byte {
	b := make([]byte, len(ids))
	for i, id := range ids {
		b[i] = byte(id)
	}
	return b
}
