// Package local implements the similarity index on an in-process HNSW graph
// with optional file persistence. Records are the source of truth: they are
// written to disk as a gob file with a JSON metadata sidecar, and the graph
// is rebuilt from them on load.
package local

import (
	"bytes"
	"context"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/coder/hnsw"
	"github.com/google/uuid"

	"github.com/kozaktomas/face-registry/internal/index"
)

// HNSW parameters for face embeddings.
const (
	// maxNeighbors (M) is the maximum number of neighbors per node.
	// Higher values improve recall but increase memory and build time.
	maxNeighbors = 16

	// searchMultiplier is the factor to request more candidates from HNSW
	// to make up for entries deleted from the record map.
	searchMultiplier = 3
)

const metadataVersion = 1

// metadata validates a persisted index against the current configuration.
type metadata struct {
	Dimension int       `json:"dimension"`
	Count     int       `json:"count"`
	SavedAt   time.Time `json:"saved_at"`
	Version   int       `json:"version"`
}

// Index is a file-backed HNSW similarity index.
type Index struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[string]
	records map[string]*index.Record
	dim     int
	path    string // empty disables persistence
}

var _ index.Index = (*Index)(nil)

// New creates a local index for embeddings of the given dimension.
// If path is non-empty and a persisted index exists there, it is loaded;
// a dimension mismatch with the persisted file fails with ErrInconsistent.
func New(dim int, path string) (*Index, error) {
	idx := &Index{
		records: make(map[string]*index.Record),
		dim:     dim,
		path:    path,
	}

	if path == "" {
		return idx, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return idx, nil // no index file yet, starts empty
	}

	if err := idx.load(); err != nil {
		return nil, err
	}
	return idx, nil
}

// newGraph creates an empty HNSW graph with cosine distance.
func newGraph() *hnsw.Graph[string] {
	g := hnsw.NewGraph[string]()
	g.M = maxNeighbors
	g.Ml = 1.0 / float64(maxNeighbors) // Standard HNSW formula
	g.Distance = hnsw.CosineDistance
	return g
}

// Insert stores a record and returns its assigned ID.
func (idx *Index) Insert(ctx context.Context, rec index.Record) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", index.ErrUnavailable, err)
	}
	if len(rec.Embedding) != idx.dim {
		return "", &index.DimensionMismatchError{Expected: idx.dim, Actual: len(rec.Embedding)}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	rec.ID = uuid.NewString()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	if idx.graph == nil {
		idx.graph = newGraph()
	}
	idx.graph.Add(hnsw.MakeNode(rec.ID, rec.Embedding))
	idx.records[rec.ID] = &rec

	return rec.ID, nil
}

// QueryByVector returns up to k nearest records by ascending cosine distance.
func (idx *Index) QueryByVector(ctx context.Context, embedding []float32, k int) ([]index.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", index.ErrUnavailable, err)
	}
	if len(embedding) != idx.dim {
		return nil, &index.DimensionMismatchError{Expected: idx.dim, Actual: len(embedding)}
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.graph == nil || len(idx.records) == 0 {
		return nil, nil
	}

	// Oversample so deleted entries filtered below do not shrink the result.
	neighbors := idx.graph.Search(embedding, k*searchMultiplier)

	matches := make([]index.Match, 0, k)
	for _, n := range neighbors {
		rec, ok := idx.records[n.Key]
		if !ok {
			continue // deleted
		}
		matches = append(matches, index.Match{
			Record: *rec,
			// Exact distance from the node vector; the graph's internal
			// ordering is approximate.
			Distance: index.CosineDistance(embedding, n.Value),
		})
		if len(matches) == k {
			break
		}
	}

	return matches, nil
}

// QueryByMetadata returns all records whose field matches value.
func (idx *Index) QueryByMetadata(ctx context.Context, field, value string) ([]index.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", index.ErrUnavailable, err)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var out []index.Record
	switch field {
	case index.FieldRegistrationNumber:
		for _, rec := range idx.records {
			if rec.RegistrationNumber == value {
				out = append(out, *rec)
			}
		}
	case index.FieldName:
		want := index.NormalizeName(value)
		for _, rec := range idx.records {
			if index.NormalizeName(rec.Name) == want {
				out = append(out, *rec)
			}
		}
	default:
		return nil, fmt.Errorf("%w: %q", index.ErrUnsupportedField, field)
	}

	return out, nil
}

// Delete removes a record from the index.
// HNSW doesn't support true deletion, but removing the record effectively
// removes it from results since queries filter by lookup.
func (idx *Index) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", index.ErrUnavailable, err)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.records, id)
	return nil
}

// Count returns the number of stored records.
func (idx *Index) Count(ctx context.Context) (int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.records), nil
}

// Drop removes all records and resets the graph.
func (idx *Index) Drop(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", index.ErrUnavailable, err)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.graph = nil
	idx.records = make(map[string]*index.Record)

	if idx.path != "" {
		// Best-effort cleanup of persisted files.
		_ = os.Remove(idx.path)
		_ = os.Remove(idx.path + ".meta")
	}
	return nil
}

// Stats returns backend information.
func (idx *Index) Stats(ctx context.Context) (index.Stats, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return index.Stats{
		Backend:      "local",
		Dimension:    idx.dim,
		TotalRecords: len(idx.records),
	}, nil
}

// Save persists the records and metadata to disk. No-op without a path.
func (idx *Index) Save() error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.path == "" {
		return nil
	}

	if len(idx.records) == 0 {
		// Remove existing files if index is empty (best-effort cleanup).
		_ = os.Remove(idx.path)
		_ = os.Remove(idx.path + ".meta")
		return nil
	}

	records := make([]index.Record, 0, len(idx.records))
	for _, rec := range idx.records {
		records = append(records, *rec)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(records); err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	if err := os.WriteFile(idx.path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write index file: %w", err)
	}

	meta := metadata{
		Dimension: idx.dim,
		Count:     len(records),
		SavedAt:   time.Now().UTC(),
		Version:   metadataVersion,
	}
	metaData, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(idx.path+".meta", metaData, 0600); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}

	return nil
}

// Close saves the index when persistence is configured.
func (idx *Index) Close() error {
	return idx.Save()
}

// load reads records and metadata from disk and rebuilds the graph.
func (idx *Index) load() error {
	metaData, err := os.ReadFile(idx.path + ".meta")
	if err != nil {
		return fmt.Errorf("failed to read metadata file: %w", err)
	}
	var meta metadata
	if err := json.Unmarshal(metaData, &meta); err != nil {
		return fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	if meta.Dimension != idx.dim {
		return &index.DimensionMismatchError{Expected: idx.dim, Actual: meta.Dimension}
	}

	data, err := os.ReadFile(idx.path)
	if err != nil {
		return fmt.Errorf("failed to read index file: %w", err)
	}
	var records []index.Record
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&records); err != nil {
		return fmt.Errorf("failed to decode records: %w", err)
	}

	g := newGraph()
	idx.records = make(map[string]*index.Record, len(records))
	for i := range records {
		rec := &records[i]
		if len(rec.Embedding) != idx.dim {
			return &index.DimensionMismatchError{Expected: idx.dim, Actual: len(rec.Embedding)}
		}
		g.Add(hnsw.MakeNode(rec.ID, rec.Embedding))
		idx.records[rec.ID] = rec
	}
	idx.graph = g

	return nil
}
