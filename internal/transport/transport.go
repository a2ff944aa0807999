// Package transport carries snek packets between peers. The protocol only
// needs "send bytes to an address on a stream" and "receive a packet or a
// timeout"; ENet, WebSocket and in-memory implementations provide that.
package transport

import (
	"errors"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/snek-arena/internal/wire"
)

var (
	ErrClosed      = errors.New("transport: closed")
	ErrQueueFull   = errors.New("transport: send queue full")
	ErrUnknownPeer = errors.New("transport: unknown peer")
	ErrAddrInUse   = errors.New("transport: address already in use")
)

// Addr identifies a remote peer, usually "host:port".
type Addr string

// Event is delivered on a transport's event channel.
type Event interface {
	transportEvent()
}

// Packet is a payload received from a peer.
type Packet struct {
	From   Addr
	Stream wire.Stream
	Data   []byte
}

func (Packet) transportEvent() {}

// Connected is emitted when a peer completes its handshake.
type Connected struct {
	Addr Addr
}

func (Connected) transportEvent() {}

// Timeout is emitted when a peer has been idle past the configured limit
// or its connection was lost. The peer is forgotten afterwards.
type Timeout struct {
	Addr Addr
}

func (Timeout) transportEvent() {}

// Transport is a packet endpoint that may talk to many peers.
type Transport interface {
	// Send queues data for delivery on the given stream. It never blocks.
	Send(to Addr, stream wire.Stream, data []byte) error
	// Events returns the channel of received packets and peer events.
	Events() <-chan Event
	// Close releases the endpoint. Further sends return ErrClosed.
	Close() error
}

// Conn binds a transport to a single remote peer, as a client uses it.
type Conn struct {
	t      Transport
	remote Addr
}

// NewConn wraps t so every send goes to remote.
func NewConn(t Transport, remote Addr) *Conn {
	return &Conn{t: t, remote: remote}
}

// Remote returns the peer this connection talks to.
func (c *Conn) Remote() Addr { return c.remote }

// Send queues data for the remote peer.
func (c *Conn) Send(stream wire.Stream, data []byte) error {
	return c.t.Send(c.remote, stream, data)
}

// Events returns the underlying event channel.
func (c *Conn) Events() <-chan Event { return c.t.Events() }

// Close closes the underlying transport.
func (c *Conn) Close() error { return c.t.Close() }

// Options configure every transport implementation.
type Options struct {
	// IdleTimeout is how long a peer may stay silent before a Timeout event.
	IdleTimeout time.Duration
	// Buffer sizes the event channel and per-peer send queues.
	Buffer int
	// MaxPeers bounds concurrent connections on a listening endpoint.
	MaxPeers int
	Logger   *log.Logger
}

// DefaultOptions returns the options used when fields are left zero.
func DefaultOptions() Options {
	return Options{
		IdleTimeout: 5 * time.Second,
		Buffer:      100,
		MaxPeers:    32,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = d.IdleTimeout
	}
	if o.Buffer < 1 {
		o.Buffer = d.Buffer
	}
	if o.MaxPeers < 1 {
		o.MaxPeers = d.MaxPeers
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	return o
}
