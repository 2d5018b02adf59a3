package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prudhvinik1/spectramonitor/internal/services"
	"go.uber.org/zap"
)

type Deps struct {
	Apps    *services.AppService
	Devices *services.DeviceService
	Logs    *services.LogService
	Flags   *services.FlagService
	Crashes *services.CrashService

	Realtime http.Handler // websocket endpoint
	Metrics  http.Handler // optional

	CORSAllowedOrigins []string
	Log                *zap.Logger
}

// NewRouter wires every HTTP route, the websocket endpoint included.
func NewRouter(d Deps) http.Handler {
	log := d.Log.Named("http")

	apps := &AppHandler{svc: d.Apps, log: log}
	devices := &DeviceHandler{svc: d.Devices, log: log}
	logs := &LogHandler{svc: d.Logs, log: log}
	flags := &FlagHandler{svc: d.Flags, log: log}
	crashes := &CrashHandler{svc: d.Crashes, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(audit(log))
	r.Use(newCORS(d.CORSAllowedOrigins).Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}
	if d.Realtime != nil {
		r.Method(http.MethodGet, "/ws", d.Realtime)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/apps", apps.List)
		r.Post("/apps", apps.Create)
		r.Get("/apps/{appId}/devices", devices.ListByApp)
		r.Post("/apps/{appId}/devices", devices.Create)
		r.Get("/apps/{appId}/presence", devices.PresenceByApp)

		r.Get("/devices/{deviceId}", devices.Get)
		r.Get("/devices/{deviceId}/presence", devices.Presence)
		r.Get("/devices/{deviceId}/logs", logs.History)
		r.Post("/devices/{deviceId}/logs", logs.Add)
		r.Get("/devices/{deviceId}/crashes", crashes.List)
		r.Post("/devices/{deviceId}/crashes", crashes.Create)

		r.Get("/flags", flags.List)
		r.Post("/flags", flags.Create)
		r.Put("/flags/{id}", flags.Update)
	})

	return r
}
