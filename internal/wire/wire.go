// Package wire implements the snek envelope: every datagram is
// [Magic, MessageType, payload...]. Integer values of every enum here are
// part of the wire format and are fixed explicitly.
package wire

import (
	"errors"
	"fmt"
)

// Magic prefixes every packet. Anything else on the socket is dropped.
const Magic byte = 42

// HeaderSize is the number of bytes before the payload.
const HeaderSize = 2

var (
	ErrShort       = errors.New("wire: packet shorter than header")
	ErrBadMagic    = errors.New("wire: bad magic byte")
	ErrUnknownType = errors.New("wire: unknown message type")
)

// MessageType is the second byte of every packet.
type MessageType byte

const (
	TypeJoin         MessageType = 0 // C->S []
	TypeAssignID     MessageType = 1 // S->C [id]
	TypeBroadcastIDs MessageType = 2 // S->C [id1, id2, ...]
	TypeStart        MessageType = 3 // S->C []
	TypeMove         MessageType = 4 // C->S [id, dir]; S->C [id1, dir1, id2, dir2, ...]
	TypeDeath        MessageType = 5 // C->S [alive ids...]
	TypeEnd          MessageType = 6 // S->C [result, id]
	TypeHeartbeat    MessageType = 7 // both []
)

// Valid reports whether t is one of the known message types.
func (t MessageType) Valid() bool {
	return t <= TypeHeartbeat
}

// String returns a human-readable name for the message type.
func (t MessageType) String() string {
	switch t {
	case TypeJoin:
		return "join"
	case TypeAssignID:
		return "assign_id"
	case TypeBroadcastIDs:
		return "broadcast_ids"
	case TypeStart:
		return "start"
	case TypeMove:
		return "move"
	case TypeDeath:
		return "death"
	case TypeEnd:
		return "end"
	case TypeHeartbeat:
		return "heartbeat"
	default:
		return fmt.Sprintf("unknown(%d)", byte(t))
	}
}

// Stream is the logical ordered channel a message travels on.
// Ordering is guaranteed within a stream, not across streams.
type Stream uint8

const (
	StreamHeartbeat Stream = 0
	StreamEvent     Stream = 1
	StreamMove      Stream = 2

	// StreamCount is the number of channels a transport must provide.
	StreamCount = 3
)

// Stream returns the channel a message of this type is sent on.
func (t MessageType) Stream() Stream {
	switch t {
	case TypeHeartbeat:
		return StreamHeartbeat
	case TypeMove:
		return StreamMove
	default:
		return StreamEvent
	}
}

// Message is a decoded packet. Payload aliases the decoded buffer.
type Message struct {
	Type    MessageType
	Payload []byte
}

// New creates a message of the given type.
func New(t MessageType, payload ...byte) Message {
	return Message{Type: t, Payload: payload}
}

// Encode prepends the magic byte and message type to the payload.
func Encode(t MessageType, payload []byte) []byte {
	buf := make([]byte, 0, HeaderSize+len(payload))
	buf = append(buf, Magic, byte(t))
	return append(buf, payload...)
}

// Bytes encodes the message.
func (m Message) Bytes() []byte {
	return Encode(m.Type, m.Payload)
}

// Decode splits a packet into its type and payload.
// Payload length is not validated; see the typed parsers in payload.go.
func Decode(data []byte) (Message, error) {
	if len(data) < HeaderSize {
		return Message{}, ErrShort
	}
	if data[0] != Magic {
		return Message{}, ErrBadMagic
	}
	t := MessageType(data[1])
	if !t.Valid() {
		return Message{}, fmt.Errorf("%w: %d", ErrUnknownType, data[1])
	}
	return Message{Type: t, Payload: data[HeaderSize:]}, nil
}
