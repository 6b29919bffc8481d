package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-registry/internal/config"
	"github.com/kozaktomas/face-registry/internal/embedder"
	"github.com/kozaktomas/face-registry/internal/engine"
	"github.com/kozaktomas/face-registry/internal/index/mock"
	"github.com/kozaktomas/face-registry/internal/registry"
)

type staticExtractor struct{}

func (staticExtractor) Extract(ctx context.Context, data []byte) ([]float32, error) {
	return nil, embedder.ErrNoFaceDetected
}

func (staticExtractor) Dimension() int { return 4 }

func newTestServer() *Server {
	cfg := &config.Config{
		Server: config.ServerConfig{APIKey: "test-key"},
	}
	idx := mock.New()
	eng := engine.New(staticExtractor{}, registry.New(idx), idx, engine.Options{TopK: 5, SimilarityThreshold: 0.5})
	return NewServer(cfg, eng, 8080, "127.0.0.1")
}

func TestHealthRequiresNoAuth(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", rec.Code)
	}
}

func TestAPIRoutesRequireAuth(t *testing.T) {
	s := newTestServer()

	routes := []struct{ method, path string }{
		{"POST", "/api/v1/register"},
		{"POST", "/api/v1/search"},
		{"GET", "/api/v1/identities"},
		{"GET", "/api/v1/info"},
		{"DELETE", "/api/v1/clear"},
	}

	for _, rt := range routes {
		req := httptest.NewRequest(rt.method, rt.path, nil)
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without key: status = %d, want 401", rt.method, rt.path, rec.Code)
		}
	}
}

func TestAuthorizedRequestReachesHandler(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest("GET", "/api/v1/info", nil)
	req.Header.Set("Authorization", "Bearer test-key")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("info status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}
}
