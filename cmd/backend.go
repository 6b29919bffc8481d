package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-registry/internal/config"
	"github.com/kozaktomas/face-registry/internal/embedder"
	"github.com/kozaktomas/face-registry/internal/engine"
	"github.com/kozaktomas/face-registry/internal/index"
	"github.com/kozaktomas/face-registry/internal/index/local"
	"github.com/kozaktomas/face-registry/internal/index/postgres"
	"github.com/kozaktomas/face-registry/internal/registry"
)

// buildIndex creates the configured index backend. Local mode loads the
// file-backed HNSW index, remote mode connects to PostgreSQL/pgvector.
func buildIndex(ctx context.Context, cfg *config.Config) (index.Index, error) {
	if cfg.Index.IsLocalMode() {
		idx, err := local.New(cfg.Dimension(), cfg.Index.LocalPath)
		if err != nil {
			return nil, fmt.Errorf("opening local index %s: %w", cfg.Index.LocalPath, err)
		}
		return idx, nil
	}

	if cfg.Index.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required in remote mode")
	}
	pool, err := postgres.NewPool(&cfg.Index)
	if err != nil {
		return nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
	}
	idx, err := postgres.New(ctx, pool, cfg.Dimension())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("initializing pgvector index: %w", err)
	}
	return idx, nil
}

// buildEngine wires the extractor, registry and index into an engine.
// The caller owns the returned index and must Close it.
func buildEngine(ctx context.Context, cfg *config.Config) (*engine.Engine, index.Index, error) {
	idx, err := buildIndex(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	client := embedder.NewClient(cfg.Face.URL, cfg.Face.Model, cfg.Face.Detector)
	extractor := embedder.NewExtractor(client, cfg.Dimension(), cfg.Face.MinScore, cfg.Face.Timeout, cfg.Engine.MaxExtractions)
	reg := registry.New(idx)

	eng := engine.New(extractor, reg, idx, engine.Options{
		TopK:                cfg.Engine.TopK,
		SimilarityThreshold: cfg.Engine.SimilarityThreshold,
	})
	return eng, idx, nil
}
