package handlers

import (
	"net/http"
	"time"

	"github.com/kozaktomas/face-registry/internal/engine"
)

// IdentitiesHandler handles identity metadata lookups.
type IdentitiesHandler struct {
	engine *engine.Engine
}

// NewIdentitiesHandler creates a new identities handler.
func NewIdentitiesHandler(eng *engine.Engine) *IdentitiesHandler {
	return &IdentitiesHandler{engine: eng}
}

type identityResponse struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	RegistrationNumber string    `json:"registration_number"`
	CreatedAt          time.Time `json:"created_at"`
}

// List returns identities matching the name query parameter. Embeddings
// never leave the index.
func (h *IdentitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		respondError(w, http.StatusBadRequest, "name query parameter is required")
		return
	}

	recs, err := h.engine.FindByName(r.Context(), name)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	identities := make([]identityResponse, 0, len(recs))
	for _, rec := range recs {
		identities = append(identities, identityResponse{
			ID:                 rec.ID,
			Name:               rec.Name,
			RegistrationNumber: rec.RegistrationNumber,
			CreatedAt:          rec.CreatedAt,
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"identities": identities,
		"count":      len(identities),
	})
}
