package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-registry/internal/config"
	"github.com/kozaktomas/face-registry/internal/embedder"
	"github.com/kozaktomas/face-registry/internal/engine"
	"github.com/kozaktomas/face-registry/internal/index/mock"
	"github.com/kozaktomas/face-registry/internal/registry"
)

// fakeExtractor returns a canned embedding keyed by the image bytes.
type fakeExtractor struct {
	embeddings map[string][]float32
	err        error
}

func (f *fakeExtractor) Extract(ctx context.Context, data []byte) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	emb, ok := f.embeddings[string(data)]
	if !ok {
		return nil, embedder.ErrNoFaceDetected
	}
	return emb, nil
}

func (f *fakeExtractor) Dimension() int { return 4 }

// testConfig creates a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Face: config.FaceConfig{
			Model:    "Facenet512",
			Detector: "opencv",
		},
		Server: config.ServerConfig{APIKey: "test-key"},
	}
}

// testEngine wires an engine over a mock index and a fake extractor.
func testEngine(ext engine.Extractor) (*engine.Engine, *mock.Index) {
	idx := mock.New()
	reg := registry.New(idx)
	eng := engine.New(ext, reg, idx, engine.Options{TopK: 5, SimilarityThreshold: 0.5})
	return eng, idx
}

// multipartRequest builds a multipart request with form fields and an
// optional image file.
func multipartRequest(t *testing.T, path string, fields map[string]string, image []byte) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("failed to write field %s: %v", key, err)
		}
	}
	if image != nil {
		part, err := writer.CreateFormFile("image", "face.jpg")
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := part.Write(image); err != nil {
			t.Fatalf("failed to write image: %v", err)
		}
	}
	writer.Close()

	req := httptest.NewRequest("POST", path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
