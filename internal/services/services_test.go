package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prudhvinik1/spectramonitor/internal/models"
	"github.com/prudhvinik1/spectramonitor/internal/relay"
	"github.com/prudhvinik1/spectramonitor/internal/repositories"
	"github.com/prudhvinik1/spectramonitor/internal/repositories/memstore"
	"github.com/prudhvinik1/spectramonitor/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type call struct {
	Room  string
	Event string
	Data  any
}

type fakeBroadcaster struct {
	mu    sync.Mutex
	calls []call
}

func (b *fakeBroadcaster) Broadcast(room, event string, data any) {
	b.mu.Lock()
	b.calls = append(b.calls, call{room, event, data})
	b.mu.Unlock()
}

func (b *fakeBroadcaster) BroadcastAll(event string, data any) { b.Broadcast("", event, data) }

func (b *fakeBroadcaster) Calls() []call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]call(nil), b.calls...)
}

// TestAppService_Create tests that the key is returned once and only its hash is kept
func TestAppService_Create(t *testing.T) {
	store := memstore.New()
	svc := NewAppService(store.Apps())
	ctx := context.Background()

	app, err := svc.Create(ctx, CreateAppRequest{Name: "Shop", Platform: "ios"})

	require.NoError(t, err)
	assert.Regexp(t, `^app_\d+$`, app.ID)
	assert.Regexp(t, `^sk_live_[0-9a-f]{24}$`, app.APIKey)

	stored, err := store.Apps().GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.APIKey)
	assert.True(t, utils.CheckAPIKey(stored.APIKeyHash, app.APIKey))

	apps, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, apps, 1)
}

// TestAppService_CreateRequiresName tests input validation
func TestAppService_CreateRequiresName(t *testing.T) {
	_, err := NewAppService(memstore.New().Apps()).Create(context.Background(), CreateAppRequest{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func newDeviceService(store *memstore.Store, b relay.Broadcaster) *DeviceService {
	presence := relay.NewPresenceReconciler(store.Devices(), store.Presence(), b, zap.NewNop())
	return NewDeviceService(store.Devices(), store.Presence(), presence)
}

// TestDeviceService_Create tests defaults and the online broadcast
func TestDeviceService_Create(t *testing.T) {
	store := memstore.New()
	b := &fakeBroadcaster{}
	svc := newDeviceService(store, b)
	ctx := context.Background()

	d, err := svc.Create(ctx, "app_1", CreateDeviceRequest{})

	require.NoError(t, err)
	assert.Regexp(t, `^device_\d+$`, d.ID)
	assert.Equal(t, "app_1", d.AppID)
	assert.Equal(t, "Unknown", d.Model)
	assert.Equal(t, "Test User", d.UserName)
	assert.Equal(t, models.DeviceOnline, d.Status)

	calls := b.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, relay.EventDeviceUpdate, calls[0].Event)
	assert.Empty(t, calls[0].Room)

	listed, err := svc.ListByApp(ctx, "app_1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, d.ID, listed[0].ID)

	p, err := svc.Presence(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DeviceOnline, p.Status)
}

// TestDeviceService_GetMissing tests that absent devices surface ErrNotFound
func TestDeviceService_GetMissing(t *testing.T) {
	svc := newDeviceService(memstore.New(), &fakeBroadcaster{})
	_, err := svc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

// TestDeviceService_PresenceWithoutCache tests the fallback to the device record
func TestDeviceService_PresenceWithoutCache(t *testing.T) {
	store := memstore.New()
	presence := relay.NewPresenceReconciler(store.Devices(), nil, &fakeBroadcaster{}, zap.NewNop())
	svc := NewDeviceService(store.Devices(), nil, presence)
	ctx := context.Background()

	_, err := svc.Create(ctx, "app_1", CreateDeviceRequest{ID: "d1"})
	require.NoError(t, err)

	p, err := svc.Presence(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "app_1", p.AppID)
	assert.Equal(t, models.DeviceOnline, p.Status)

	_, err = svc.Presence(ctx, "missing")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

// TestDeviceService_PresenceByApp tests the bulk lookup and its offline default
func TestDeviceService_PresenceByApp(t *testing.T) {
	store := memstore.New()
	svc := newDeviceService(store, &fakeBroadcaster{})
	ctx := context.Background()

	_, err := svc.Create(ctx, "app_1", CreateDeviceRequest{ID: "d1"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "app_1", CreateDeviceRequest{ID: "d2"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "app_2", CreateDeviceRequest{ID: "d3"})
	require.NoError(t, err)

	// d2's cache entry has expired.
	require.NoError(t, store.Presence().DeletePresence(ctx, "d2"))

	// ACT
	got, err := svc.PresenceByApp(ctx, "app_1")

	// ASSERT
	require.NoError(t, err)
	byID := make(map[string]*models.Presence, len(got))
	for _, p := range got {
		byID[p.DeviceID] = p
	}
	require.Len(t, byID, 2)
	assert.Equal(t, models.DeviceOnline, byID["d1"].Status)
	assert.Equal(t, models.DeviceOffline, byID["d2"].Status)
	assert.Equal(t, "app_1", byID["d2"].AppID)

	empty, err := svc.PresenceByApp(ctx, "app_9")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

// TestDeviceService_PresenceByAppWithoutCache tests the fallback to device records
func TestDeviceService_PresenceByAppWithoutCache(t *testing.T) {
	store := memstore.New()
	presence := relay.NewPresenceReconciler(store.Devices(), nil, &fakeBroadcaster{}, zap.NewNop())
	svc := NewDeviceService(store.Devices(), nil, presence)
	ctx := context.Background()

	_, err := svc.Create(ctx, "app_1", CreateDeviceRequest{ID: "d1"})
	require.NoError(t, err)

	got, err := svc.PresenceByApp(ctx, "app_1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "d1", got[0].DeviceID)
	assert.Equal(t, models.DeviceOnline, got[0].Status)
}

// TestLogService_AddAndHistory tests REST ingestion and the history window
func TestLogService_AddAndHistory(t *testing.T) {
	store := memstore.New()
	b := &fakeBroadcaster{}
	svc := NewLogService(store.Logs(), relay.NewLogIngestor(store.Logs(), b, zap.NewNop(), nil), 2)
	ctx := context.Background()

	for _, msg := range []string{"one", "two", "IllegalStateException"} {
		_, err := svc.Add(ctx, "d1", AddLogRequest{Message: msg})
		require.NoError(t, err)
	}

	calls := b.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, relay.SessionRoom("d1"), calls[0].Room)
	assert.True(t, calls[2].Data.(*models.LogEntry).IsAnomaly)
	assert.Equal(t, "info", calls[0].Data.(*models.LogEntry).Level)

	logs, err := svc.History(ctx, "d1", 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "two", logs[0].Message)
	assert.Equal(t, "IllegalStateException", logs[1].Message)

	logs, err = svc.History(ctx, "d1", 10)
	require.NoError(t, err)
	assert.Len(t, logs, 3)

	logs, err = svc.History(ctx, "other", 10)
	require.NoError(t, err)
	assert.NotNil(t, logs)
	assert.Empty(t, logs)
}

// TestLogService_AddRequiresMessage tests input validation
func TestLogService_AddRequiresMessage(t *testing.T) {
	store := memstore.New()
	b := &fakeBroadcaster{}
	svc := NewLogService(store.Logs(), relay.NewLogIngestor(store.Logs(), b, zap.NewNop(), nil), 100)

	_, err := svc.Add(context.Background(), "d1", AddLogRequest{Level: "error"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, b.Calls())
}

// TestFlagService_CreateAndUpdate tests partial updates and their broadcasts
func TestFlagService_CreateAndUpdate(t *testing.T) {
	store := memstore.New()
	b := &fakeBroadcaster{}
	svc := NewFlagService(store.Flags(), b)
	ctx := context.Background()

	flag, err := svc.Create(ctx, &models.FeatureFlag{Key: "dark_mode", Name: "Dark mode", RolloutPercentage: 10})
	require.NoError(t, err)
	assert.NotEmpty(t, flag.ID)

	enabled := true
	pct := 50
	updated, err := svc.Update(ctx, flag.ID, models.FeatureFlagPatch{Enabled: &enabled, RolloutPercentage: &pct})
	require.NoError(t, err)
	assert.True(t, updated.Enabled)
	assert.Equal(t, 50, updated.RolloutPercentage)
	assert.Equal(t, "Dark mode", updated.Name, "untouched fields survive")

	calls := b.Calls()
	require.Len(t, calls, 2)
	for _, c := range calls {
		assert.Equal(t, relay.EventFlagUpdated, c.Event)
		assert.Empty(t, c.Room)
	}

	flags, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, flags, 1)
	assert.True(t, flags[0].Enabled)
}

// TestFlagService_Errors tests validation and missing flags
func TestFlagService_Errors(t *testing.T) {
	store := memstore.New()
	b := &fakeBroadcaster{}
	svc := NewFlagService(store.Flags(), b)
	ctx := context.Background()

	_, err := svc.Create(ctx, &models.FeatureFlag{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(ctx, &models.FeatureFlag{Key: "k", RolloutPercentage: 101})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Update(ctx, "missing", models.FeatureFlagPatch{})
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	flag, err := svc.Create(ctx, &models.FeatureFlag{ID: "f1", Key: "k"})
	require.NoError(t, err)
	bad := -1
	_, err = svc.Update(ctx, flag.ID, models.FeatureFlagPatch{RolloutPercentage: &bad})
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Len(t, b.Calls(), 1)
}

// TestCrashService_Create tests defaults and the crash broadcast
func TestCrashService_Create(t *testing.T) {
	store := memstore.New()
	b := &fakeBroadcaster{}
	svc := NewCrashService(store.Crashes(), b)
	ctx := context.Background()

	crash, err := svc.Create(ctx, "d1", CreateCrashRequest{AppID: "app_1", Title: "NPE in checkout"})
	require.NoError(t, err)
	assert.Regexp(t, `^crash_\d+$`, crash.ID)
	assert.Equal(t, "Exception", crash.Type)
	assert.Equal(t, 1, crash.EventsCount)
	assert.Equal(t, 1, crash.UsersCount)
	assert.Equal(t, "d1", crash.DeviceID)

	calls := b.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, relay.EventCrashNew, calls[0].Event)

	crashes, err := svc.ListByDevice(ctx, "d1")
	require.NoError(t, err)
	assert.Len(t, crashes, 1)

	crashes, err = svc.ListByDevice(ctx, "d2")
	require.NoError(t, err)
	assert.Empty(t, crashes)
}

// TestCrashService_StoreFailure tests that nothing is broadcast unless stored
func TestCrashService_StoreFailure(t *testing.T) {
	store := memstore.New()
	store.FailWrites(errors.New("db down"))
	b := &fakeBroadcaster{}

	_, err := NewCrashService(store.Crashes(), b).Create(context.Background(), "d1", CreateCrashRequest{Title: "x"})

	assert.Error(t, err)
	assert.Empty(t, b.Calls())
}
