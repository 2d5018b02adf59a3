package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prudhvinik1/spectramonitor/internal/services"
	"go.uber.org/zap"
)

type DeviceHandler struct {
	svc *services.DeviceService
	log *zap.Logger
}

func (h *DeviceHandler) ListByApp(w http.ResponseWriter, r *http.Request) {
	devices, err := h.svc.ListByApp(r.Context(), chi.URLParam(r, "appId"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

func (h *DeviceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateDeviceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	device, err := h.svc.Create(r.Context(), chi.URLParam(r, "appId"), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, device)
}

func (h *DeviceHandler) Get(w http.ResponseWriter, r *http.Request) {
	device, err := h.svc.Get(r.Context(), chi.URLParam(r, "deviceId"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, device)
}

func (h *DeviceHandler) Presence(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Presence(r.Context(), chi.URLParam(r, "deviceId"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *DeviceHandler) PresenceByApp(w http.ResponseWriter, r *http.Request) {
	presence, err := h.svc.PresenceByApp(r.Context(), chi.URLParam(r, "appId"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, presence)
}
