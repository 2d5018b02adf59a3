package relay

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prudhvinik1/spectramonitor/internal/models"
	"github.com/prudhvinik1/spectramonitor/internal/repositories/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type wsFixture struct {
	store *memstore.Store
	relay *Relay
	url   string
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	store := memstore.New()
	r := New(Deps{
		Devices:  store.Devices(),
		Logs:     store.Logs(),
		Presence: store.Presence(),
		Options: Options{
			SendQueue:       32,
			WriteTimeout:    time.Second,
			MaxMessageBytes: 1 << 20,
		},
		Log: zap.NewNop(),
	})
	srv := httptest.NewServer(r.Server)
	t.Cleanup(srv.Close)
	return &wsFixture{store: store, relay: r, url: "ws" + strings.TrimPrefix(srv.URL, "http")}
}

func (f *wsFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(f.url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func send(t *testing.T, ws *websocket.Conn, event string, data any) {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"event": event, "data": data})
	require.NoError(t, err)
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, raw))
}

// next reads frames until one with the wanted event arrives.
func next(t *testing.T, ws *websocket.Conn, event string) received {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, raw, err := ws.ReadMessage()
		require.NoError(t, err)
		var r received
		require.NoError(t, json.Unmarshal(raw, &r))
		if r.Event == event {
			return r
		}
	}
}

// waitMembers blocks until room has n members; joins are processed asynchronously.
func (f *wsFixture) waitMembers(t *testing.T, room string, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return f.relay.Registry.Members(room) == n
	}, 3*time.Second, 10*time.Millisecond)
}

// TestServer_LogReachesSessionObserver tests the observer flow over real sockets
func TestServer_LogReachesSessionObserver(t *testing.T) {
	f := newWSFixture(t)
	observer := f.dial(t)
	device := f.dial(t)

	send(t, observer, EventJoinSession, "d1")
	f.waitMembers(t, SessionRoom("d1"), 1)

	// ACT
	send(t, device, EventDeviceLog, map[string]string{"deviceId": "d1", "level": "error", "message": "boom"})

	// ASSERT
	got := next(t, observer, EventLogNew)
	var entry models.LogEntry
	require.NoError(t, json.Unmarshal(got.Data, &entry))
	assert.True(t, entry.IsAnomaly)
	assert.Equal(t, "d1", entry.DeviceID)
	assert.Equal(t, "boom", entry.Message)

	stored := f.store.LogsFor("d1")
	require.Len(t, stored, 1)
	assert.Equal(t, entry.ID, stored[0].ID)
}

// TestServer_ScreenFrameReachesObserver tests frame relay over real sockets
func TestServer_ScreenFrameReachesObserver(t *testing.T) {
	f := newWSFixture(t)
	observer := f.dial(t)
	device := f.dial(t)

	send(t, observer, EventJoinSession, map[string]string{"deviceId": "d1"})
	f.waitMembers(t, SessionRoom("d1"), 1)

	send(t, device, EventScreenFrame, map[string]string{"deviceId": "d1", "imageBase64": "AAAA"})

	got := next(t, observer, EventFrameOut)
	assert.JSONEq(t, `"AAAA"`, string(got.Data))
}

// TestServer_DisconnectEvictsAndMarksOffline tests cleanup when a socket goes away
func TestServer_DisconnectEvictsAndMarksOffline(t *testing.T) {
	f := newWSFixture(t)
	observer := f.dial(t)
	device := f.dial(t)

	// Joining any room proves the observer is registered.
	send(t, observer, EventJoinSession, "d0")
	f.waitMembers(t, SessionRoom("d0"), 1)

	send(t, device, EventDeviceConnect, map[string]string{"id": "d1", "appId": "a1"})
	online := next(t, observer, EventDeviceUpdate)
	assert.JSONEq(t, `{"id":"d1","status":"online"}`, string(online.Data))

	send(t, device, EventJoinSession, "d1")
	f.waitMembers(t, SessionRoom("d1"), 1)

	// ACT
	require.NoError(t, device.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	_ = device.Close()

	// ASSERT
	offline := next(t, observer, EventDeviceUpdate)
	assert.JSONEq(t, `{"id":"d1","status":"offline"}`, string(offline.Data))
	assert.Equal(t, 0, f.relay.Registry.Members(SessionRoom("d1")))

	d, err := f.store.Devices().GetByID(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, models.DeviceOffline, d.Status)
}

// TestServer_InvalidPayloadKeepsConnection tests that errors are reported, not fatal
func TestServer_InvalidPayloadKeepsConnection(t *testing.T) {
	f := newWSFixture(t)
	ws := f.dial(t)

	send(t, ws, EventDeviceLog, map[string]string{"deviceId": "d1"})
	errFrame := next(t, ws, EventError)
	assert.Contains(t, string(errFrame.Data), "level is required")

	// Still usable afterwards.
	send(t, ws, EventJoinSession, "d1")
	f.waitMembers(t, SessionRoom("d1"), 1)
}
