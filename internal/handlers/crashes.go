package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prudhvinik1/spectramonitor/internal/services"
	"go.uber.org/zap"
)

type CrashHandler struct {
	svc *services.CrashService
	log *zap.Logger
}

func (h *CrashHandler) List(w http.ResponseWriter, r *http.Request) {
	crashes, err := h.svc.ListByDevice(r.Context(), chi.URLParam(r, "deviceId"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, crashes)
}

func (h *CrashHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateCrashRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	crash, err := h.svc.Create(r.Context(), chi.URLParam(r, "deviceId"), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, crash)
}
