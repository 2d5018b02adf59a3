package relay

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prudhvinik1/spectramonitor/internal/metrics"
	"go.uber.org/zap"
)

type Options struct {
	SendQueue       int           // outbound frames buffered per connection
	WriteTimeout    time.Duration // per-frame write deadline
	MaxMessageBytes int64         // inbound frame size limit
}

// Server accepts websocket connections and owns each one from open to close.
type Server struct {
	registry   *Registry
	dispatcher *Dispatcher
	upgrader   websocket.Upgrader
	opts       Options
	log        *zap.Logger
	metrics    *metrics.Relay
}

func NewServer(reg *Registry, d *Dispatcher, opts Options, log *zap.Logger, m *metrics.Relay) *Server {
	return &Server{
		registry:   reg,
		dispatcher: d,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Origin checks belong to the surrounding infrastructure.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		opts:    opts,
		log:     log.Named("conn"),
		metrics: m,
	}
}

// ServeHTTP upgrades the request and runs the connection until it closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := newConn(uuid.NewString(), ws, s.opts.SendQueue, s.opts.WriteTimeout, s.log)
	s.open(c)
	c.log.Info("client connected", zap.String("remote_addr", r.RemoteAddr))

	go c.writePump()
	s.readPump(ctx, c)
	s.close(ctx, c)
}

func (s *Server) open(c *Conn) {
	s.registry.Register(c)
	c.markOpen()
	s.metrics.ConnOpened()
}

// close evicts c from every room before anything else. Idempotent.
func (s *Server) close(ctx context.Context, c *Conn) {
	if !c.markClosed() {
		return
	}
	s.registry.Unregister(c)
	c.Close()
	s.dispatcher.Disconnected(ctx, c)
	s.metrics.ConnClosed()
	c.log.Info("client disconnected")
}

// readPump processes frames in arrival order until the peer goes away.
func (s *Server) readPump(ctx context.Context, c *Conn) {
	c.ws.SetReadLimit(s.opts.MaxMessageBytes)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.log.Warn("connection closed unexpectedly", zap.Error(err))
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		s.dispatcher.Dispatch(ctx, c, data)
	}
}
