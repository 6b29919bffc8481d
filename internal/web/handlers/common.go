package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/kozaktomas/face-registry/internal/embedder"
	"github.com/kozaktomas/face-registry/internal/index"
	"github.com/kozaktomas/face-registry/internal/registry"
)

// maxUploadSize bounds the multipart form size for image uploads.
const maxUploadSize = 10 << 20 // 10 MB

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondEngineError maps engine errors to HTTP statuses. Input problems are
// the caller's fault, unavailability and timeouts are retryable and say so
// via Retry-After, and integrity faults surface as plain server errors
// after being logged in full.
func respondEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, embedder.ErrImageDecode),
		errors.Is(err, embedder.ErrNoFaceDetected),
		errors.Is(err, registry.ErrInvalidName),
		errors.Is(err, registry.ErrInvalidRegistrationNumber):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, registry.ErrDuplicateRegistration):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, embedder.ErrExtractionTimeout),
		errors.Is(err, index.ErrUnavailable):
		w.Header().Set("Retry-After", "5")
		respondError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, index.ErrInconsistent):
		log.Printf("index integrity fault: %v", err)
		respondError(w, http.StatusInternalServerError, "index inconsistent")
	default:
		log.Printf("internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// readImageFile pulls the uploaded image out of a parsed multipart form.
func readImageFile(r *http.Request) ([]byte, error) {
	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, errors.New("image file is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", sanitizeForLog(header.Filename), err)
	}
	if len(data) == 0 {
		return nil, errors.New("image file is empty")
	}
	return data, nil
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
