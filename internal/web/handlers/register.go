package handlers

import (
	"log"
	"net/http"

	"github.com/kozaktomas/face-registry/internal/engine"
)

// RegisterHandler handles identity registration.
type RegisterHandler struct {
	engine *engine.Engine
}

// NewRegisterHandler creates a new register handler.
func NewRegisterHandler(eng *engine.Engine) *RegisterHandler {
	return &RegisterHandler{engine: eng}
}

type registeredUser struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	RegistrationNumber string `json:"registration_number"`
}

type registerResponse struct {
	Status string         `json:"status"`
	User   registeredUser `json:"user"`
}

// Register handles a multipart registration request with name,
// registration_number and an image file.
func (h *RegisterHandler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	name := r.FormValue("name")
	registrationNumber := r.FormValue("registration_number")

	image, err := readImageFile(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.engine.Register(r.Context(), name, registrationNumber, image)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	log.Printf("registered identity %s (%s)", sanitizeForLog(rec.RegistrationNumber), sanitizeForLog(rec.Name))
	respondJSON(w, http.StatusCreated, registerResponse{
		Status: "registered",
		User: registeredUser{
			ID:                 rec.ID,
			Name:               rec.Name,
			RegistrationNumber: rec.RegistrationNumber,
		},
	})
}
