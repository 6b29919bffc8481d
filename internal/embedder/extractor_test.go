package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/face-registry/internal/index"
)

const testDim = 4

// testImage returns a small valid PNG.
func testImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{uint8(x * 30), uint8(y * 30), 100, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

// faceServer creates a mock face embedding server returning the given response.
func faceServer(t *testing.T, resp FaceResponse) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed/face" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func newTestExtractor(serverURL string) *Extractor {
	client := NewClient(serverURL, "Facenet512", "opencv")
	return NewExtractor(client, testDim, 0.5, 0, 2)
}

func TestExtractRejectsUndecodableImage(t *testing.T) {
	e := newTestExtractor("http://localhost:1") // must not be reached

	_, err := e.Extract(context.Background(), []byte("not an image"))
	if !errors.Is(err, ErrImageDecode) {
		t.Fatalf("expected ErrImageDecode, got %v", err)
	}
}

func TestExtractNoFaceDetected(t *testing.T) {
	server := faceServer(t, FaceResponse{FacesCount: 0})
	defer server.Close()

	e := newTestExtractor(server.URL)
	_, err := e.Extract(context.Background(), testImage(t))
	if !errors.Is(err, ErrNoFaceDetected) {
		t.Fatalf("expected ErrNoFaceDetected, got %v", err)
	}
}

func TestExtractFiltersLowConfidenceFaces(t *testing.T) {
	server := faceServer(t, FaceResponse{
		FacesCount: 1,
		Faces: []FaceDetection{
			{FaceIndex: 0, Dim: testDim, Embedding: []float32{1, 0, 0, 0}, BBox: []float64{0, 0, 100, 100}, DetScore: 0.2},
		},
	})
	defer server.Close()

	e := newTestExtractor(server.URL)
	_, err := e.Extract(context.Background(), testImage(t))
	if !errors.Is(err, ErrNoFaceDetected) {
		t.Fatalf("expected ErrNoFaceDetected for low-confidence face, got %v", err)
	}
}

func TestExtractPicksLargestFace(t *testing.T) {
	server := faceServer(t, FaceResponse{
		FacesCount: 3,
		Faces: []FaceDetection{
			{FaceIndex: 0, Dim: testDim, Embedding: []float32{1, 0, 0, 0}, BBox: []float64{0, 0, 50, 50}, DetScore: 0.9},
			{FaceIndex: 1, Dim: testDim, Embedding: []float32{0, 1, 0, 0}, BBox: []float64{0, 0, 200, 200}, DetScore: 0.9},
			{FaceIndex: 2, Dim: testDim, Embedding: []float32{0, 0, 1, 0}, BBox: []float64{0, 0, 100, 100}, DetScore: 0.9},
		},
	})
	defer server.Close()

	e := newTestExtractor(server.URL)
	emb, err := e.Extract(context.Background(), testImage(t))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	// Face index 1 has the largest bounding box.
	if emb[1] != 1 {
		t.Errorf("expected embedding of largest face, got %v", emb)
	}
}

func TestExtractTieKeepsLowestIndex(t *testing.T) {
	server := faceServer(t, FaceResponse{
		FacesCount: 2,
		Faces: []FaceDetection{
			{FaceIndex: 0, Dim: testDim, Embedding: []float32{1, 0, 0, 0}, BBox: []float64{0, 0, 100, 100}, DetScore: 0.9},
			{FaceIndex: 1, Dim: testDim, Embedding: []float32{0, 1, 0, 0}, BBox: []float64{50, 50, 150, 150}, DetScore: 0.9},
		},
	})
	defer server.Close()

	e := newTestExtractor(server.URL)
	emb, err := e.Extract(context.Background(), testImage(t))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if emb[0] != 1 {
		t.Errorf("expected first face on equal areas, got %v", emb)
	}
}

func TestExtractNormalizesEmbedding(t *testing.T) {
	server := faceServer(t, FaceResponse{
		FacesCount: 1,
		Faces: []FaceDetection{
			{FaceIndex: 0, Dim: testDim, Embedding: []float32{3, 4, 0, 0}, BBox: []float64{0, 0, 100, 100}, DetScore: 0.9},
		},
	})
	defer server.Close()

	e := newTestExtractor(server.URL)
	emb, err := e.Extract(context.Background(), testImage(t))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	var norm float64
	for _, x := range emb {
		norm += float64(x) * float64(x)
	}
	if math.Abs(norm-1) > 1e-6 {
		t.Errorf("embedding norm^2 = %f, want 1", norm)
	}
}

func TestExtractDeterministic(t *testing.T) {
	server := faceServer(t, FaceResponse{
		FacesCount: 1,
		Faces: []FaceDetection{
			{FaceIndex: 0, Dim: testDim, Embedding: []float32{0.5, 0.5, 0.5, 0.5}, BBox: []float64{0, 0, 100, 100}, DetScore: 0.9},
		},
	})
	defer server.Close()

	e := newTestExtractor(server.URL)
	img := testImage(t)

	first, err := e.Extract(context.Background(), img)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	second, err := e.Extract(context.Background(), img)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("extraction not deterministic: %v vs %v", first, second)
		}
	}
}

func TestExtractDimensionMismatch(t *testing.T) {
	server := faceServer(t, FaceResponse{
		FacesCount: 1,
		Faces: []FaceDetection{
			{FaceIndex: 0, Dim: 2, Embedding: []float32{1, 0}, BBox: []float64{0, 0, 100, 100}, DetScore: 0.9},
		},
	})
	defer server.Close()

	e := newTestExtractor(server.URL)
	_, err := e.Extract(context.Background(), testImage(t))
	if !errors.Is(err, index.ErrInconsistent) {
		t.Fatalf("expected ErrInconsistent for wrong dimension, got %v", err)
	}
}

func TestExtractTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(server.URL, "Facenet512", "opencv")
	e := NewExtractor(client, testDim, 0.5, 20*time.Millisecond, 2)

	_, err := e.Extract(context.Background(), testImage(t))
	if !errors.Is(err, ErrExtractionTimeout) {
		t.Fatalf("expected ErrExtractionTimeout, got %v", err)
	}
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"gif", []byte("GIF89a"), "image/gif"},
		{"bmp", []byte{0x42, 0x4D, 0x00, 0x00}, "image/bmp"},
		{"webp", []byte{0x52, 0x49, 0x46, 0x46, 0, 0, 0, 0, 0x57, 0x45, 0x42, 0x50}, "image/webp"},
		{"unknown", []byte{0x00, 0x01}, "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectMIMEType(tt.data); got != tt.want {
				t.Errorf("detectMIMEType() = %q, want %q", got, tt.want)
			}
		})
	}
}
