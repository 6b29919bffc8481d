package handlers

import (
	"log"
	"net/http"

	"github.com/kozaktomas/face-registry/internal/config"
	"github.com/kozaktomas/face-registry/internal/engine"
)

// ToolsHandler handles the administrative endpoints.
type ToolsHandler struct {
	config *config.Config
	engine *engine.Engine
}

// NewToolsHandler creates a new tools handler.
func NewToolsHandler(cfg *config.Config, eng *engine.Engine) *ToolsHandler {
	return &ToolsHandler{config: cfg, engine: eng}
}

// Info reports the index state and the active face model.
func (h *ToolsHandler) Info(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.Stats(r.Context())
	if err != nil {
		respondEngineError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"index":     stats,
		"model":     h.config.Face.Model,
		"detector":  h.config.Face.Detector,
		"dimension": h.config.Dimension(),
	})
}

// Clear wipes every registered identity. Destructive, so it refuses to run
// without confirm=true.
func (h *ToolsHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		respondError(w, http.StatusConflict, "pass confirm=true to clear all identities")
		return
	}

	if err := h.engine.Clear(r.Context()); err != nil {
		respondEngineError(w, err)
		return
	}

	log.Printf("cleared all registered identities")
	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
