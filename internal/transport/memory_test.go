package transport

import (
	"errors"
	"testing"

	"github.com/vovakirdan/snek-arena/internal/wire"
)

func TestNetworkDelivery(t *testing.T) {
	n := NewNetwork(8)
	server, err := n.Listen("server")
	if err != nil {
		t.Fatalf("Listen() failed: %v", err)
	}
	defer server.Close()

	client, err := n.Dial("client", "server")
	if err != nil {
		t.Fatalf("Dial() failed: %v", err)
	}
	defer client.Close()

	if ev := <-server.Events(); ev != (Connected{Addr: "client"}) {
		t.Fatalf("expected Connected event, got %#v", ev)
	}

	payload := []byte{42, 0}
	if err := client.Send(wire.StreamEvent, payload); err != nil {
		t.Fatalf("Send() failed: %v", err)
	}
	payload[1] = 7

	pkt, ok := (<-server.Events()).(Packet)
	if !ok {
		t.Fatal("expected a Packet")
	}
	if pkt.From != "client" || pkt.Stream != wire.StreamEvent {
		t.Errorf("packet = %+v", pkt)
	}
	if pkt.Data[1] != 0 {
		t.Error("delivered data must not alias the sender's buffer")
	}

	if err := server.Send("client", wire.StreamHeartbeat, []byte{42, 7}); err != nil {
		t.Fatalf("reply failed: %v", err)
	}
	if _, ok := (<-client.Events()).(Packet); !ok {
		t.Error("client should receive the reply")
	}
}

func TestNetworkErrors(t *testing.T) {
	n := NewNetwork(1)
	a, _ := n.Listen("a")
	b, _ := n.Listen("b")

	if _, err := n.Listen("a"); !errors.Is(err, ErrAddrInUse) {
		t.Errorf("duplicate Listen() error = %v, expected ErrAddrInUse", err)
	}
	if err := a.Send("nowhere", wire.StreamEvent, nil); !errors.Is(err, ErrUnknownPeer) {
		t.Errorf("Send() to unknown error = %v, expected ErrUnknownPeer", err)
	}

	if err := a.Send("b", wire.StreamEvent, []byte{1}); err != nil {
		t.Fatalf("first Send() failed: %v", err)
	}
	if err := a.Send("b", wire.StreamEvent, []byte{2}); !errors.Is(err, ErrQueueFull) {
		t.Errorf("second Send() error = %v, expected ErrQueueFull", err)
	}

	b.Close()
	if err := a.Send("b", wire.StreamEvent, nil); !errors.Is(err, ErrUnknownPeer) {
		t.Errorf("Send() to closed endpoint error = %v, expected ErrUnknownPeer", err)
	}
	a.Close()
	if err := a.Send("b", wire.StreamEvent, nil); !errors.Is(err, ErrClosed) {
		t.Errorf("Send() from closed endpoint error = %v, expected ErrClosed", err)
	}
	if _, ok := <-a.Events(); ok {
		t.Error("events channel should be closed")
	}
}

func TestNetworkExpire(t *testing.T) {
	n := NewNetwork(4)
	server, _ := n.Listen("server")
	defer server.Close()

	if err := n.Expire("server", "client"); err != nil {
		t.Fatalf("Expire() failed: %v", err)
	}
	if ev := <-server.Events(); ev != (Timeout{Addr: "client"}) {
		t.Errorf("expected Timeout, got %#v", ev)
	}
}
