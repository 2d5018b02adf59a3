package relay

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type received struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// newTestConn returns an open conn with no socket, registered on reg.
func newTestConn(t *testing.T, reg *Registry) *Conn {
	t.Helper()
	c := newConn(uuid.NewString(), nil, 16, time.Second, zap.NewNop())
	reg.Register(c)
	require.True(t, c.markOpen())
	return c
}

// closeTestConn mirrors Server.close for socketless conns.
func closeTestConn(reg *Registry, c *Conn) {
	if c.markClosed() {
		reg.Unregister(c)
		c.Close()
	}
}

// drain returns every frame queued on c without blocking.
func drain(t *testing.T, c *Conn) []received {
	t.Helper()
	var out []received
	for {
		select {
		case frame := <-c.send:
			var r received
			require.NoError(t, json.Unmarshal(frame, &r))
			out = append(out, r)
		default:
			return out
		}
	}
}

type broadcastCall struct {
	Room  string // empty for BroadcastAll
	Event string
	Data  any
}

// recordingBroadcaster captures broadcasts instead of delivering them.
type recordingBroadcaster struct {
	mu    sync.Mutex
	calls []broadcastCall
}

func (b *recordingBroadcaster) Broadcast(room, event string, data any) {
	b.mu.Lock()
	b.calls = append(b.calls, broadcastCall{Room: room, Event: event, Data: data})
	b.mu.Unlock()
}

func (b *recordingBroadcaster) BroadcastAll(event string, data any) {
	b.Broadcast("", event, data)
}

func (b *recordingBroadcaster) Calls() []broadcastCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]broadcastCall(nil), b.calls...)
}
