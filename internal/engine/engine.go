// Package engine ties face extraction, the identity registry and the
// similarity index into the two top-level operations: registering an
// identity from a photo and searching a photo against the stored set.
package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/kozaktomas/face-registry/internal/index"
	"github.com/kozaktomas/face-registry/internal/registry"
)

// Extractor produces a single normalized face embedding from raw image bytes.
type Extractor interface {
	Extract(ctx context.Context, data []byte) ([]float32, error)
	Dimension() int
}

// Options carries the default search parameters.
type Options struct {
	TopK                int
	SimilarityThreshold float64
}

// Candidate is one ranked search hit.
type Candidate struct {
	Name               string  `json:"name"`
	RegistrationNumber string  `json:"registration_number"`
	Similarity         float64 `json:"similarity_score"`
	Distance           float64 `json:"distance"`
}

// SearchResult holds the ranked candidates for one query image.
type SearchResult struct {
	Candidates []Candidate `json:"candidates"`
	TopK       int         `json:"top_k"`
	Threshold  float64     `json:"threshold"`
}

// Engine implements the registration and search flows.
type Engine struct {
	extractor Extractor
	registry  *registry.Registry
	index     index.Index
	opts      Options
}

// New creates an engine. The registry must wrap the same index.
func New(extractor Extractor, reg *registry.Registry, idx index.Index, opts Options) *Engine {
	return &Engine{
		extractor: extractor,
		registry:  reg,
		index:     idx,
		opts:      opts,
	}
}

// Register extracts the face from the image and stores the identity.
func (e *Engine) Register(ctx context.Context, name, registrationNumber string, image []byte) (*index.Record, error) {
	embedding, err := e.extractor.Extract(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("extract face: %w", err)
	}

	rec, err := e.registry.Register(ctx, name, registrationNumber, embedding)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Search extracts the face from the image and returns candidates above the
// similarity threshold, best first. topK falls back to the engine default
// when non-positive and is capped at 100. A negative threshold means unset
// and falls back to the default; zero is a valid value that admits every
// candidate within topK.
func (e *Engine) Search(ctx context.Context, image []byte, topK int, threshold float64) (*SearchResult, error) {
	if topK <= 0 {
		topK = e.opts.TopK
	}
	if topK > 100 {
		topK = 100
	}
	if threshold < 0 {
		threshold = e.opts.SimilarityThreshold
	}

	embedding, err := e.extractor.Extract(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("extract face: %w", err)
	}

	matches, err := e.index.QueryByVector(ctx, embedding, topK)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	candidates := make([]Candidate, 0, len(matches))
	for _, m := range matches {
		score := Score(m.Distance)
		if score < threshold {
			continue
		}
		candidates = append(candidates, Candidate{
			Name:               m.Record.Name,
			RegistrationNumber: m.Record.RegistrationNumber,
			Similarity:         score,
			Distance:           m.Distance,
		})
	}

	// The index orders by distance already; re-sorting pins down ties so
	// equal scores come out in registration number order.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Similarity != candidates[j].Similarity {
			return candidates[i].Similarity > candidates[j].Similarity
		}
		return candidates[i].RegistrationNumber < candidates[j].RegistrationNumber
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	return &SearchResult{
		Candidates: candidates,
		TopK:       topK,
		Threshold:  threshold,
	}, nil
}

// FindByName returns all registered identities matching the name,
// diacritic and case insensitive.
func (e *Engine) FindByName(ctx context.Context, name string) ([]index.Record, error) {
	return e.registry.FindByName(ctx, name)
}

// Stats reports the state of the underlying index.
func (e *Engine) Stats(ctx context.Context) (index.Stats, error) {
	return e.index.Stats(ctx)
}

// Clear removes every registered identity.
func (e *Engine) Clear(ctx context.Context) error {
	if err := e.index.Drop(ctx); err != nil {
		return fmt.Errorf("drop index: %w", err)
	}
	return nil
}
