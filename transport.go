package main

import (
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufSize    = 256
	recvBufSize    = 256
	acceptBufSize  = 16
)

// Channel is the duplex byte-message boundary the core talks through. Both
// operations are non-blocking: TrySend drops when the outbound buffer is full
// (the next tick's update supersedes it anyway) and TryReceive returns
// whatever has been buffered since the last call, possibly nothing. No
// ordering or delivery guarantee is assumed beyond intact messages.
type Channel interface {
	TrySend(msg []byte) bool
	TryReceive() [][]byte
	Close() error
	Closed() bool
}

// Listener accepts inbound channels without blocking the tick loop
type Listener interface {
	TryAccept() []Channel
	Addr() string
	Close() error
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsChannel adapts a WebSocket connection to the Channel contract. Read and
// write pumps run on their own goroutines; the tick thread only touches the
// bounded channels between them.
type wsChannel struct {
	conn *websocket.Conn
	send chan []byte
	recv chan []byte
	done chan struct{}
	once sync.Once
}

func newWSChannel(conn *websocket.Conn) *wsChannel {
	c := &wsChannel{
		conn: conn,
		send: make(chan []byte, sendBufSize),
		recv: make(chan []byte, recvBufSize),
		done: make(chan struct{}),
	}
	go c.readPump()
	go c.writePump()
	return c
}

func (c *wsChannel) readPump() {
	defer c.Close()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("transport: read error: %v", err)
			}
			return
		}
		select {
		case c.recv <- message:
		default:
			// Receiver is behind a full buffer; the message is lost, which
			// the protocol already tolerates.
		}
	}
}

func (c *wsChannel) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.BinaryMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

func (c *wsChannel) TrySend(msg []byte) bool {
	if c.Closed() {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *wsChannel) TryReceive() [][]byte {
	var msgs [][]byte
	for {
		select {
		case m := <-c.recv:
			msgs = append(msgs, m)
		default:
			return msgs
		}
	}
}

func (c *wsChannel) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *wsChannel) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// wsListener serves /ws upgrades and queues the resulting channels for the
// tick loop to accept.
type wsListener struct {
	server   *http.Server
	ln       net.Listener
	accepted chan Channel
}

// ListenWS starts a WebSocket listener on addr. The returned listener's
// TryAccept never blocks.
func ListenWS(addr string) (Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	l := &wsListener{
		ln:       ln,
		accepted: make(chan Channel, acceptBufSize),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", l.handleWS)
	l.server = &http.Server{Handler: mux}
	go func() {
		if err := l.server.Serve(ln); err != http.ErrServerClosed {
			log.Printf("transport: serve: %v", err)
		}
	}()
	return l, nil
}

func (l *wsListener) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("transport: upgrade error: %v", err)
		return
	}
	ch := newWSChannel(conn)
	select {
	case l.accepted <- ch:
	default:
		log.Printf("transport: accept queue full, refusing connection")
		ch.Close()
	}
}

func (l *wsListener) TryAccept() []Channel {
	var chans []Channel
	for {
		select {
		case ch := <-l.accepted:
			chans = append(chans, ch)
		default:
			return chans
		}
	}
}

func (l *wsListener) Addr() string {
	return l.ln.Addr().String()
}

func (l *wsListener) Close() error {
	return l.server.Close()
}

// DialWS connects to a host's /ws endpoint and returns the channel
func DialWS(url string) (Channel, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return newWSChannel(conn), nil
}

// pipeChannel is an in-process Channel used by tests: two cross-wired
// bounded buffers with the same lossy non-blocking semantics as the wire.
type pipeChannel struct {
	out  chan []byte
	in   chan []byte
	done chan struct{}
	once *sync.Once // shared: closing either end closes the connection
}

// NewPipe returns two connected in-memory channels
func NewPipe() (Channel, Channel) {
	ab := make(chan []byte, recvBufSize)
	ba := make(chan []byte, recvBufSize)
	done := make(chan struct{})
	once := new(sync.Once)
	a := &pipeChannel{out: ab, in: ba, done: done, once: once}
	b := &pipeChannel{out: ba, in: ab, done: done, once: once}
	return a, b
}

func (p *pipeChannel) TrySend(msg []byte) bool {
	if p.Closed() {
		return false
	}
	cp := make([]byte, len(msg))
	copy(cp, msg)
	select {
	case p.out <- cp:
		return true
	default:
		return false
	}
}

func (p *pipeChannel) TryReceive() [][]byte {
	var msgs [][]byte
	for {
		select {
		case m := <-p.in:
			msgs = append(msgs, m)
		default:
			return msgs
		}
	}
}

func (p *pipeChannel) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}

func (p *pipeChannel) Closed() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}
