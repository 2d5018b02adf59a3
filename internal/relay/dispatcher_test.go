package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/prudhvinik1/spectramonitor/internal/metrics"
	"github.com/prudhvinik1/spectramonitor/internal/models"
	"github.com/prudhvinik1/spectramonitor/internal/repositories/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type dispatchFixture struct {
	store *memstore.Store
	reg   *Registry
	d     *Dispatcher
}

func newDispatchFixture() *dispatchFixture {
	return newMeteredDispatchFixture(nil)
}

func newMeteredDispatchFixture(m *metrics.Relay) *dispatchFixture {
	store := memstore.New()
	r := New(Deps{
		Devices:  store.Devices(),
		Logs:     store.Logs(),
		Presence: store.Presence(),
		Options:  Options{SendQueue: 16},
		Log:      zap.NewNop(),
		Metrics:  m,
	})
	return &dispatchFixture{store: store, reg: r.Registry, d: r.Dispatcher}
}

func (f *dispatchFixture) dispatch(c *Conn, raw string) {
	f.d.Dispatch(context.Background(), c, []byte(raw))
}

// TestDispatcher_JoinThenLog tests that an observer sees logs for its session
func TestDispatcher_JoinThenLog(t *testing.T) {
	f := newDispatchFixture()
	observer := newTestConn(t, f.reg)
	device := newTestConn(t, f.reg)

	f.dispatch(observer, `{"event":"join_device_session","data":"d1"}`)
	f.dispatch(device, `{"event":"device:log","data":{"deviceId":"d1","level":"error","message":"boom"}}`)

	got := drain(t, observer)
	require.Len(t, got, 1)
	assert.Equal(t, EventLogNew, got[0].Event)
	var entry models.LogEntry
	require.NoError(t, json.Unmarshal(got[0].Data, &entry))
	assert.True(t, entry.IsAnomaly)
	assert.Equal(t, "boom", entry.Message)

	assert.Empty(t, drain(t, device), "the sender did not join the session")
	assert.Len(t, f.store.LogsFor("d1"), 1)
}

// TestDispatcher_LeaveStopsDelivery tests leave_device_session
func TestDispatcher_LeaveStopsDelivery(t *testing.T) {
	f := newDispatchFixture()
	observer := newTestConn(t, f.reg)

	f.dispatch(observer, `{"event":"join_device_session","data":{"deviceId":"d1"}}`)
	f.dispatch(observer, `{"event":"leave_device_session","data":"d1"}`)
	f.dispatch(observer, `{"event":"device:screen_frame","data":{"deviceId":"d1","imageBase64":"AAAA"}}`)

	assert.Empty(t, drain(t, observer))
}

// TestDispatcher_ConnectBroadcastsToEveryone tests device:connect fan-out
func TestDispatcher_ConnectBroadcastsToEveryone(t *testing.T) {
	f := newDispatchFixture()
	device := newTestConn(t, f.reg)
	bystander := newTestConn(t, f.reg)

	f.dispatch(device, `{"event":"device:connect","data":{"id":"d1","appId":"a1","model":"Pixel 8"}}`)

	for _, c := range []*Conn{device, bystander} {
		got := drain(t, c)
		require.Len(t, got, 1)
		assert.Equal(t, EventDeviceUpdate, got[0].Event)
		assert.JSONEq(t, `{"id":"d1","status":"online"}`, string(got[0].Data))
	}
}

// TestDispatcher_ValidationErrorIsReported tests the error envelope
func TestDispatcher_ValidationErrorIsReported(t *testing.T) {
	f := newDispatchFixture()
	c := newTestConn(t, f.reg)

	f.dispatch(c, `{"event":"device:log","data":{"deviceId":"d1"}}`)

	got := drain(t, c)
	require.Len(t, got, 1)
	assert.Equal(t, EventError, got[0].Event)
	var payload errorPayload
	require.NoError(t, json.Unmarshal(got[0].Data, &payload))
	assert.Equal(t, EventDeviceLog, payload.Event)
	assert.Contains(t, payload.Message, "level is required")
	assert.Equal(t, StateOpen, c.State(), "errors never close the connection")
	assert.Empty(t, f.store.LogsFor("d1"))
}

// TestDispatcher_ProtocolErrorsAreSilent tests malformed and unknown frames
func TestDispatcher_ProtocolErrorsAreSilent(t *testing.T) {
	f := newDispatchFixture()
	c := newTestConn(t, f.reg)

	f.dispatch(c, `{{{`)
	f.dispatch(c, `{"event":"device:reboot","data":{}}`)

	assert.Empty(t, drain(t, c))
	assert.Equal(t, StateOpen, c.State())
}

// TestDispatcher_PersistenceErrorIsReported tests a failing store during ingest
func TestDispatcher_PersistenceErrorIsReported(t *testing.T) {
	f := newDispatchFixture()
	observer := newTestConn(t, f.reg)
	device := newTestConn(t, f.reg)
	f.dispatch(observer, `{"event":"join_device_session","data":"d1"}`)
	f.store.FailWrites(errors.New("db down"))

	f.dispatch(device, `{"event":"device:log","data":{"deviceId":"d1","level":"error","message":"boom"}}`)

	assert.Empty(t, drain(t, observer), "nothing is relayed unless stored")
	got := drain(t, device)
	require.Len(t, got, 1)
	assert.Equal(t, EventError, got[0].Event)

	var payload errorPayload
	require.NoError(t, json.Unmarshal(got[0].Data, &payload))
	assert.Equal(t, EventDeviceLog, payload.Event)
	assert.Equal(t, ErrPersistence.Error(), payload.Message)
	assert.NotContains(t, payload.Message, "db down", "store errors stay in the log")
}

// TestDispatcher_UnknownEventsShareOneMetricLabel tests that client event names cannot grow series
func TestDispatcher_UnknownEventsShareOneMetricLabel(t *testing.T) {
	m := metrics.NewRelay(prometheus.NewRegistry())
	f := newMeteredDispatchFixture(m)
	c := newTestConn(t, f.reg)

	for i := 0; i < 500; i++ {
		f.dispatch(c, fmt.Sprintf(`{"event":"junk-%d","data":{}}`, i))
	}
	assert.Equal(t, 1, testutil.CollectAndCount(m.FramesReceived))
	assert.Equal(t, float64(500), testutil.ToFloat64(m.FramesReceived.WithLabelValues(unknownEventLabel)))

	f.dispatch(c, `{"event":"join_device_session","data":"d1"}`)
	assert.Equal(t, 2, testutil.CollectAndCount(m.FramesReceived))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.FramesReceived.WithLabelValues(EventJoinSession)))
}

// TestDispatcher_IgnoresClosedConn tests that frames after close are dropped
func TestDispatcher_IgnoresClosedConn(t *testing.T) {
	f := newDispatchFixture()
	c := newTestConn(t, f.reg)
	closeTestConn(f.reg, c)

	f.dispatch(c, `{"event":"device:log","data":{"deviceId":"d1","level":"info","message":"late"}}`)

	assert.Empty(t, f.store.LogsFor("d1"))
}

// TestDispatcher_DisconnectedMarksOffline tests presence cleanup on close
func TestDispatcher_DisconnectedMarksOffline(t *testing.T) {
	f := newDispatchFixture()
	device := newTestConn(t, f.reg)
	observer := newTestConn(t, f.reg)
	f.dispatch(device, `{"event":"device:connect","data":{"id":"d1","appId":"a1"}}`)
	drain(t, observer)

	closeTestConn(f.reg, device)
	f.d.Disconnected(context.Background(), device)

	got := drain(t, observer)
	require.Len(t, got, 1)
	assert.JSONEq(t, `{"id":"d1","status":"offline"}`, string(got[0].Data))

	d, err := f.store.Devices().GetByID(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, models.DeviceOffline, d.Status)
}
