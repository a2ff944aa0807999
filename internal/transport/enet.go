package transport

import (
	"bytes"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/codecat/go-enet"

	"github.com/vovakirdan/snek-arena/internal/wire"
)

const (
	// serviceTimeout is how long one host.Service call may wait, in milliseconds.
	serviceTimeout = 5
	sweepInterval  = 250 * time.Millisecond
)

var enetInit sync.Once

type outbound struct {
	to     Addr
	stream wire.Stream
	data   []byte
}

// ENet is a Transport over UDP using ENet's reliable sequenced packets.
// Each wire stream maps to its own ENet channel. The ENet host is not safe
// for concurrent use, so every host call happens on the pump goroutine;
// Send only enqueues.
type ENet struct {
	opts Options
	host enet.Host

	// client mode: upstream is the dialled server, nil until connected.
	dialing  bool
	upstream enet.Peer

	peers  map[Addr]enet.Peer // pump goroutine only
	idle   *IdleTracker       // pump goroutine only
	out    chan outbound
	events chan Event

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

var _ Transport = (*ENet)(nil)

// ListenENet binds an ENet host on all interfaces at port.
func ListenENet(port uint16, opts Options) (*ENet, error) {
	opts = opts.withDefaults()
	enetInit.Do(func() { enet.Initialize() })

	host, err := enet.NewHost(enet.NewListenAddress(port), uint64(opts.MaxPeers), wire.StreamCount, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("transport: cannot bind enet port %d: %w", port, err)
	}

	t := newENet(host, opts)
	opts.Logger.Info("enet listening", "port", port)
	t.start()
	return t, nil
}

// DialENet connects to an ENet server at "host:port". Sends are held until
// the handshake completes.
func DialENet(address string, opts Options) (*Conn, error) {
	opts = opts.withDefaults()
	hostname, port, err := splitHostPort(address)
	if err != nil {
		return nil, err
	}
	enetInit.Do(func() { enet.Initialize() })

	host, err := enet.NewHost(nil, 1, wire.StreamCount, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("transport: cannot create enet client host: %w", err)
	}
	if _, err := host.Connect(enet.NewAddress(hostname, port), wire.StreamCount, 0); err != nil {
		host.Destroy()
		return nil, fmt.Errorf("transport: cannot connect to %s: %w", address, err)
	}

	t := newENet(host, opts)
	t.dialing = true
	t.start()
	return NewConn(t, Addr(address)), nil
}

func newENet(host enet.Host, opts Options) *ENet {
	return &ENet{
		opts:   opts,
		host:   host,
		peers:  make(map[Addr]enet.Peer),
		idle:   NewIdleTracker(opts.IdleTimeout),
		out:    make(chan outbound, opts.Buffer),
		events: make(chan Event, opts.Buffer),
		done:   make(chan struct{}),
	}
}

func (t *ENet) start() {
	t.wg.Add(1)
	go t.pump()
}

// Send enqueues data for the pump. On a dialled connection the destination
// is always the server.
func (t *ENet) Send(to Addr, stream wire.Stream, data []byte) error {
	select {
	case <-t.done:
		return ErrClosed
	default:
	}

	select {
	case t.out <- outbound{to: to, stream: stream, data: bytes.Clone(data)}:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrQueueFull, to)
	}
}

// Events returns the receive channel. It is closed when the pump exits.
func (t *ENet) Events() <-chan Event { return t.events }

// Close disconnects every peer and destroys the host.
func (t *ENet) Close() error {
	t.closeOnce.Do(func() {
		close(t.done)
	})
	t.wg.Wait()
	return nil
}

func (t *ENet) pump() {
	defer t.wg.Done()
	defer close(t.events)
	defer t.host.Destroy()

	sweep := time.NewTicker(sweepInterval)
	defer sweep.Stop()

	for {
		select {
		case <-t.done:
			t.flush()
			for _, p := range t.peers {
				p.DisconnectNow(0)
			}
			return
		case now := <-sweep.C:
			t.expire(now)
		default:
		}

		t.flush()
		t.dispatch(t.host.Service(serviceTimeout))
	}
}

// flush hands every queued packet to ENet.
func (t *ENet) flush() {
	if t.dialing {
		return
	}
	for {
		select {
		case o := <-t.out:
			peer := t.upstream
			if peer == nil {
				peer = t.peers[o.to]
			}
			if peer == nil {
				t.opts.Logger.Debug("dropping packet for unknown peer", "addr", o.to)
				continue
			}
			if err := peer.SendBytes(o.data, uint8(o.stream), enet.PacketFlagReliable); err != nil {
				t.opts.Logger.Warn("enet send failed", "addr", o.to, "err", err)
			}
		default:
			return
		}
	}
}

func (t *ENet) dispatch(ev enet.Event) {
	switch ev.GetType() {
	case enet.EventNone:
		return

	case enet.EventConnect:
		peer := ev.GetPeer()
		addr := Addr(peer.GetAddress().String())
		t.peers[addr] = peer
		t.idle.Touch(addr, time.Now())
		if t.dialing {
			t.dialing = false
			t.upstream = peer
		}
		t.opts.Logger.Debug("enet peer connected", "addr", addr)
		t.emit(Connected{Addr: addr})

	case enet.EventDisconnect:
		addr := Addr(ev.GetPeer().GetAddress().String())
		t.forget(addr)
		t.opts.Logger.Debug("enet peer disconnected", "addr", addr)
		t.emit(Timeout{Addr: addr})

	case enet.EventReceive:
		packet := ev.GetPacket()
		data := bytes.Clone(packet.GetData())
		packet.Destroy()

		addr := Addr(ev.GetPeer().GetAddress().String())
		t.idle.Touch(addr, time.Now())
		t.emit(Packet{From: addr, Stream: wire.Stream(ev.GetChannelID()), Data: data})
	}
}

// expire drops peers that have been silent past the idle timeout.
func (t *ENet) expire(now time.Time) {
	for _, addr := range t.idle.Expired(now) {
		if p, ok := t.peers[addr]; ok {
			p.DisconnectNow(0)
		}
		t.forget(addr)
		t.opts.Logger.Debug("enet peer idle", "addr", addr)
		t.emit(Timeout{Addr: addr})
	}
}

func (t *ENet) forget(addr Addr) {
	if p, ok := t.peers[addr]; ok && p == t.upstream {
		t.upstream = nil
	}
	delete(t.peers, addr)
	t.idle.Forget(addr)
}

// emit blocks until the logic loop takes the event or the transport closes.
func (t *ENet) emit(ev Event) {
	select {
	case t.events <- ev:
	case <-t.done:
	}
}

func splitHostPort(address string) (string, uint16, error) {
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return "", 0, fmt.Errorf("transport: bad address %q: %w", address, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return "", 0, fmt.Errorf("transport: bad port in %q: %w", address, err)
	}
	if host == "" {
		host = "127.0.0.1"
	}
	return host, uint16(port), nil
}
