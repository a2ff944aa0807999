package wire

import (
	"bytes"
	"errors"
	"testing"

	"github.com/vovakirdan/snek-arena/internal/core"
)

func TestEncodeLayout(t *testing.T) {
	got := Encode(TypeEnd, []byte{byte(ResultLoss), 2})
	want := []byte{42, 6, 2, 2}
	if !bytes.Equal(got, want) {
		t.Errorf("Encode() = %v, expected %v", got, want)
	}
}

func TestRoundTripEveryType(t *testing.T) {
	messages := []Message{
		Join(),
		AssignID(3),
		BroadcastIDs([]core.PlayerID{1, 2, 3, 4}),
		Start(),
		ClientMove(1, core.DirNorth),
		ServerMove([]MovePair{{1, core.DirEast}, {2, core.DirWest}}),
		Death(nil),
		Death([]core.PlayerID{2}),
		End(ResultTie, core.InvalidID),
		Heartbeat(),
		New(TypeMove, 0xff, 0x00, 0x7f),
	}

	for _, m := range messages {
		t.Run(m.Type.String(), func(t *testing.T) {
			decoded, err := Decode(m.Bytes())
			if err != nil {
				t.Fatalf("Decode() failed: %v", err)
			}
			if decoded.Type != m.Type {
				t.Errorf("type = %v, expected %v", decoded.Type, m.Type)
			}
			if !bytes.Equal(decoded.Payload, m.Payload) {
				t.Errorf("payload = %v, expected %v", decoded.Payload, m.Payload)
			}
		})
	}
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		err  error
	}{
		{name: "empty", data: nil, err: ErrShort},
		{name: "one byte", data: []byte{42}, err: ErrShort},
		{name: "foreign magic", data: []byte{7, 0}, err: ErrBadMagic},
		{name: "text", data: []byte("hi"), err: ErrBadMagic},
		{name: "unknown type", data: []byte{42, 8}, err: ErrUnknownType},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.data)
			if !errors.Is(err, tc.err) {
				t.Errorf("Decode() error = %v, expected %v", err, tc.err)
			}
		})
	}
}

func TestStreams(t *testing.T) {
	if TypeHeartbeat.Stream() != StreamHeartbeat {
		t.Error("heartbeat should travel on the heartbeat stream")
	}
	if TypeMove.Stream() != StreamMove {
		t.Error("move should travel on the move stream")
	}
	for _, typ := range []MessageType{TypeJoin, TypeAssignID, TypeBroadcastIDs, TypeStart, TypeDeath, TypeEnd} {
		if typ.Stream() != StreamEvent {
			t.Errorf("%v should travel on the event stream", typ)
		}
	}
}

func TestParsers(t *testing.T) {
	id, err := ParseAssignID(AssignID(2))
	if err != nil || id != 2 {
		t.Errorf("ParseAssignID() = %v, %v", id, err)
	}
	if _, err := ParseAssignID(New(TypeAssignID)); !errors.Is(err, ErrPayload) {
		t.Errorf("empty assign_id should fail, got %v", err)
	}
	if _, err := ParseAssignID(New(TypeAssignID, 0)); !errors.Is(err, ErrPayload) {
		t.Errorf("assign_id 0 should fail, got %v", err)
	}

	sender, dir, err := ParseClientMove(ClientMove(1, core.DirSouth))
	if err != nil || sender != 1 || dir != byte(core.DirSouth) {
		t.Errorf("ParseClientMove() = %v, %v, %v", sender, dir, err)
	}
	if _, _, err := ParseClientMove(New(TypeMove, 1)); !errors.Is(err, ErrPayload) {
		t.Errorf("short move should fail, got %v", err)
	}

	pairs := ParseServerMove(New(TypeMove, 1, 3, 2, 9, 5))
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(pairs))
	}
	if pairs[0] != (MovePair{1, core.DirEast}) {
		t.Errorf("pair 0 = %+v", pairs[0])
	}
	if pairs[1] != (MovePair{2, core.DirInvalid}) {
		t.Errorf("pair 1 = %+v", pairs[1])
	}

	result, winner, err := ParseEnd(End(ResultWin, 2))
	if err != nil || result != ResultWin || winner != 2 {
		t.Errorf("ParseEnd() = %v, %v, %v", result, winner, err)
	}
	if _, _, err := ParseEnd(New(TypeEnd, 9, 1)); !errors.Is(err, ErrPayload) {
		t.Errorf("unknown result should fail, got %v", err)
	}

	ids := ParseIDs(BroadcastIDs([]core.PlayerID{1, 2}))
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Errorf("ParseIDs() = %v", ids)
	}
}
