package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prudhvinik1/spectramonitor/internal/services"
	"go.uber.org/zap"
)

type LogHandler struct {
	svc *services.LogService
	log *zap.Logger
}

// History serves ?limit=N, newest N entries in chronological order.
func (h *LogHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	logs, err := h.svc.History(r.Context(), chi.URLParam(r, "deviceId"), limit)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (h *LogHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req services.AddLogRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	entry, err := h.svc.Add(r.Context(), chi.URLParam(r, "deviceId"), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}
