package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vovakirdan/snek-arena/internal/wire"
)

// WebSocketPath is the endpoint clients upgrade on.
const WebSocketPath = "/snek"

const (
	writeWait      = 2 * time.Second
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WebSocket is a Transport over binary WebSocket frames. Each frame is the
// stream tag followed by the snek packet. Ordering holds across all streams
// since a WebSocket is a single ordered pipe.
type WebSocket struct {
	opts   Options
	events chan Event
	server *http.Server

	mu    sync.RWMutex
	peers map[Addr]*wsPeer

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

var _ Transport = (*WebSocket)(nil)

type wsPeer struct {
	addr Addr
	conn *websocket.Conn
	send chan []byte

	quit     chan struct{}
	quitOnce sync.Once
}

func newWebSocket(opts Options) *WebSocket {
	return &WebSocket{
		opts:   opts,
		events: make(chan Event, opts.Buffer),
		peers:  make(map[Addr]*wsPeer),
		done:   make(chan struct{}),
	}
}

// NewWebSocketHandler returns a transport whose peers arrive through the
// returned handler. The caller owns the HTTP server.
func NewWebSocketHandler(opts Options) (*WebSocket, http.Handler) {
	t := newWebSocket(opts.withDefaults())
	return t, http.HandlerFunc(t.serveWS)
}

// ListenWebSocket serves the upgrade endpoint on addr (":8080").
func ListenWebSocket(addr string, opts Options) (*WebSocket, error) {
	t, handler := NewWebSocketHandler(opts)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: cannot bind websocket %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle(WebSocketPath, handler)
	t.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if err := t.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.opts.Logger.Error("websocket server stopped", "err", err)
		}
	}()
	t.opts.Logger.Info("websocket listening", "addr", ln.Addr().String(), "path", WebSocketPath)
	return t, nil
}

// DialWebSocket connects to a snek server at "host:port".
func DialWebSocket(ctx context.Context, address string, opts Options) (*Conn, error) {
	opts = opts.withDefaults()
	url := "ws://" + address + WebSocketPath

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: cannot dial %s: %w", url, err)
	}

	t := newWebSocket(opts)
	remote := Addr(address)
	if !t.attach(remote, conn) {
		conn.Close()
		return nil, ErrClosed
	}
	return NewConn(t, remote), nil
}

func (t *WebSocket) serveWS(w http.ResponseWriter, r *http.Request) {
	t.mu.RLock()
	full := len(t.peers) >= t.opts.MaxPeers
	t.mu.RUnlock()
	if full {
		http.Error(w, "server full", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		t.opts.Logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	if !t.attach(Addr(conn.RemoteAddr().String()), conn) {
		conn.Close()
	}
}

// attach registers the connection and starts its pumps.
func (t *WebSocket) attach(addr Addr, conn *websocket.Conn) bool {
	p := &wsPeer{
		addr: addr,
		conn: conn,
		send: make(chan []byte, t.opts.Buffer),
		quit: make(chan struct{}),
	}

	t.mu.Lock()
	select {
	case <-t.done:
		t.mu.Unlock()
		return false
	default:
	}
	t.peers[addr] = p
	t.wg.Add(2)
	t.mu.Unlock()

	t.emit(Connected{Addr: addr})
	go t.readPump(p)
	go t.writePump(p)
	return true
}

// Send frames data with its stream tag and queues it on the peer.
func (t *WebSocket) Send(to Addr, stream wire.Stream, data []byte) error {
	select {
	case <-t.done:
		return ErrClosed
	default:
	}

	t.mu.RLock()
	p, ok := t.peers[to]
	t.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPeer, to)
	}

	frame := make([]byte, 0, len(data)+1)
	frame = append(frame, byte(stream))
	frame = append(frame, data...)

	select {
	case p.send <- frame:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrQueueFull, to)
	}
}

// Events returns the receive channel. Upgrades may still race with Close,
// so the channel is never closed; stop reading once Close is called.
func (t *WebSocket) Events() <-chan Event { return t.events }

// Close stops the HTTP server, if any, and every peer connection.
func (t *WebSocket) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.mu.Lock()
		close(t.done)
		for _, p := range t.peers {
			p.conn.Close()
		}
		t.mu.Unlock()

		if t.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			err = t.server.Shutdown(ctx)
			cancel()
		}
		t.wg.Wait()
	})
	return err
}

// readPump turns frames into Packet events. Any read error, including a
// missed read deadline, ends the peer with a Timeout event.
func (t *WebSocket) readPump(p *wsPeer) {
	defer t.wg.Done()
	defer func() {
		t.detach(p)
		t.emit(Timeout{Addr: p.addr})
	}()

	p.conn.SetReadLimit(maxMessageSize)
	_ = p.conn.SetReadDeadline(time.Now().Add(t.opts.IdleTimeout))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(t.opts.IdleTimeout))
	})

	for {
		kind, frame, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				t.opts.Logger.Debug("websocket read error", "addr", p.addr, "err", err)
			}
			return
		}
		_ = p.conn.SetReadDeadline(time.Now().Add(t.opts.IdleTimeout))

		if kind != websocket.BinaryMessage || len(frame) < 1 {
			t.opts.Logger.Debug("dropping non-binary frame", "addr", p.addr)
			continue
		}
		t.emit(Packet{From: p.addr, Stream: wire.Stream(frame[0]), Data: frame[1:]})
	}
}

func (t *WebSocket) writePump(p *wsPeer) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.opts.IdleTimeout * 9 / 10)
	defer func() {
		ticker.Stop()
		p.conn.Close()
	}()

	for {
		select {
		case frame := <-p.send:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				t.opts.Logger.Debug("websocket write error", "addr", p.addr, "err", err)
				return
			}
		case <-ticker.C:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-p.quit:
			return
		case <-t.done:
			_ = p.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}

func (t *WebSocket) detach(p *wsPeer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.peers[p.addr]; ok && cur == p {
		delete(t.peers, p.addr)
	}
	p.quitOnce.Do(func() { close(p.quit) })
	p.conn.Close()
}

func (t *WebSocket) emit(ev Event) {
	select {
	case t.events <- ev:
	case <-t.done:
	}
}
