package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prudhvinik1/spectramonitor/internal/models"
	"github.com/prudhvinik1/spectramonitor/internal/services"
	"go.uber.org/zap"
)

type FlagHandler struct {
	svc *services.FlagService
	log *zap.Logger
}

func (h *FlagHandler) List(w http.ResponseWriter, r *http.Request) {
	flags, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, flags)
}

func (h *FlagHandler) Create(w http.ResponseWriter, r *http.Request) {
	var flag models.FeatureFlag
	if !decodeJSON(w, r, &flag) {
		return
	}
	saved, err := h.svc.Create(r.Context(), &flag)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (h *FlagHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch models.FeatureFlagPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	flag, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, flag)
}
