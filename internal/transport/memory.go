package transport

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/vovakirdan/snek-arena/internal/wire"
)

// Network is an in-process packet fabric. Endpoints attached to the same
// network deliver to each other in order, without loss, until their buffer
// fills. It is used to run servers and clients without sockets.
type Network struct {
	mu        sync.RWMutex
	endpoints map[Addr]*Endpoint
	buffer    int
}

// NewNetwork creates an empty network whose endpoints buffer up to buffer events.
func NewNetwork(buffer int) *Network {
	if buffer < 1 {
		buffer = DefaultOptions().Buffer
	}
	return &Network{
		endpoints: make(map[Addr]*Endpoint),
		buffer:    buffer,
	}
}

// Listen attaches an endpoint at addr.
func (n *Network) Listen(addr Addr) (*Endpoint, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.endpoints[addr]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAddrInUse, addr)
	}
	e := &Endpoint{
		addr:   addr,
		net:    n,
		events: make(chan Event, n.buffer),
		done:   make(chan struct{}),
	}
	n.endpoints[addr] = e
	return e, nil
}

// Dial attaches an endpoint at local and binds it to remote.
// The remote endpoint receives a Connected event.
func (n *Network) Dial(local, remote Addr) (*Conn, error) {
	e, err := n.Listen(local)
	if err != nil {
		return nil, err
	}
	if dst := n.lookup(remote); dst != nil {
		_ = dst.deliver(Connected{Addr: local})
	}
	return NewConn(e, remote), nil
}

// Expire delivers a Timeout about peer to the endpoint at addr, as a real
// transport would after an idle period.
func (n *Network) Expire(addr, peer Addr) error {
	e := n.lookup(addr)
	if e == nil {
		return fmt.Errorf("%w: %s", ErrUnknownPeer, addr)
	}
	return e.deliver(Timeout{Addr: peer})
}

func (n *Network) lookup(addr Addr) *Endpoint {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.endpoints[addr]
}

func (n *Network) detach(addr Addr) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.endpoints, addr)
}

// Endpoint is one address on a Network. It implements Transport.
type Endpoint struct {
	addr   Addr
	net    *Network
	events chan Event

	mu        sync.Mutex // serialises deliveries against Close
	done      chan struct{}
	closeOnce sync.Once
}

var _ Transport = (*Endpoint)(nil)

// Addr returns the endpoint address.
func (e *Endpoint) Addr() Addr { return e.addr }

// Send delivers a copy of data to the endpoint at to.
func (e *Endpoint) Send(to Addr, stream wire.Stream, data []byte) error {
	select {
	case <-e.done:
		return ErrClosed
	default:
	}

	dst := e.net.lookup(to)
	if dst == nil {
		return fmt.Errorf("%w: %s", ErrUnknownPeer, to)
	}
	return dst.deliver(Packet{From: e.addr, Stream: stream, Data: bytes.Clone(data)})
}

// Events returns the receive channel. It is closed by Close.
func (e *Endpoint) Events() <-chan Event { return e.events }

// Close detaches the endpoint from the network.
func (e *Endpoint) Close() error {
	e.closeOnce.Do(func() {
		e.net.detach(e.addr)
		e.mu.Lock()
		close(e.done)
		close(e.events)
		e.mu.Unlock()
	})
	return nil
}

func (e *Endpoint) deliver(ev Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	select {
	case <-e.done:
		return ErrClosed
	default:
	}

	select {
	case e.events <- ev:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrQueueFull, e.addr)
	}
}
