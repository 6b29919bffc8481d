package handlers

import (
	"net/http"
	"strconv"

	"github.com/kozaktomas/face-registry/internal/engine"
)

// SearchHandler handles face similarity search.
type SearchHandler struct {
	engine *engine.Engine
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(eng *engine.Engine) *SearchHandler {
	return &SearchHandler{engine: eng}
}

// Search handles a multipart search request with an image file and optional
// top_k and threshold parameters.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	topK, err := parseTopK(r.FormValue("top_k"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	threshold, err := parseThreshold(r.FormValue("threshold"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	image, err := readImageFile(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.engine.Search(r.Context(), image, topK, threshold)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// parseTopK parses the top_k form value. Zero means use the server default.
func parseTopK(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	k, err := strconv.Atoi(s)
	if err != nil || k < 1 || k > 100 {
		return 0, errInvalidTopK
	}
	return k, nil
}

// parseThreshold parses the threshold form value. An omitted value returns
// -1 so the engine falls back to the server default; an explicit 0 stays 0
// and admits every candidate within top_k.
func parseThreshold(s string) (float64, error) {
	if s == "" {
		return -1, nil
	}
	t, err := strconv.ParseFloat(s, 64)
	if err != nil || t < 0 || t > 1 {
		return 0, errInvalidThreshold
	}
	return t, nil
}

var (
	errInvalidTopK      = &paramError{"top_k must be an integer between 1 and 100"}
	errInvalidThreshold = &paramError{"threshold must be a number between 0 and 1"}
)

type paramError struct{ msg string }

func (e *paramError) Error() string { return e.msg }
