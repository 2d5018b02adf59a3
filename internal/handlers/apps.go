package handlers

import (
	"net/http"

	"github.com/prudhvinik1/spectramonitor/internal/services"
	"go.uber.org/zap"
)

type AppHandler struct {
	svc *services.AppService
	log *zap.Logger
}

func (h *AppHandler) List(w http.ResponseWriter, r *http.Request) {
	apps, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, apps)
}

func (h *AppHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateAppRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	app, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}
