package relay

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

type ConnState int32

const (
	StateConnecting ConnState = iota
	StateOpen
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

// Conn is one real-time client, device or observer. Rooms hold it by
// pointer; the registry owns the membership back-references.
type Conn struct {
	id    string
	ws    *websocket.Conn
	send  chan []byte
	done  chan struct{}
	state atomic.Int32

	writeTimeout time.Duration
	closeOnce    sync.Once
	log          *zap.Logger
}

func newConn(id string, ws *websocket.Conn, queueSize int, writeTimeout time.Duration, log *zap.Logger) *Conn {
	return &Conn{
		id:           id,
		ws:           ws,
		send:         make(chan []byte, queueSize),
		done:         make(chan struct{}),
		writeTimeout: writeTimeout,
		log:          log.With(zap.String("conn_id", id)),
	}
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) State() ConnState { return ConnState(c.state.Load()) }

func (c *Conn) markOpen() bool {
	return c.state.CompareAndSwap(int32(StateConnecting), int32(StateOpen))
}

// markClosed reports true only for the caller that moved the conn to Closed.
func (c *Conn) markClosed() bool {
	for {
		cur := c.state.Load()
		if cur == int32(StateClosed) {
			return false
		}
		if c.state.CompareAndSwap(cur, int32(StateClosed)) {
			return true
		}
	}
}

// Send enqueues frame without blocking. It returns false when the conn is
// closed or its queue is full; the frame is dropped in both cases.
func (c *Conn) Send(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Close stops further sends and tells the write pump to hang up.
// Safe to call repeatedly and from any goroutine.
func (c *Conn) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// sendError reports err to the peer. Store failures are reported without
// their driver detail, which stays in the server log.
func (c *Conn) sendError(event string, err error) {
	msg := err.Error()
	if errors.Is(err, ErrPersistence) {
		msg = ErrPersistence.Error()
	}
	frame, encErr := encode(EventError, errorPayload{Event: event, Message: msg})
	if encErr != nil {
		c.log.Error("failed to encode error envelope", zap.Error(encErr))
		return
	}
	if !c.Send(frame) {
		c.log.Debug("error envelope dropped", zap.String("event", event))
	}
}

// writePump drains the send queue to the socket and keeps the peer alive with pings.
// It exits when the conn is closed or a write fails, and always closes the
// socket on the way out so the read side unblocks.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
		_ = c.ws.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.log.Debug("write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.Debug("ping failed", zap.Error(err))
				return
			}
		case <-c.done:
			deadline := time.Now().Add(c.writeTimeout)
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), deadline)
			return
		}
	}
}
