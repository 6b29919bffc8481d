// Package mock provides an in-memory similarity index for testing.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/face-registry/internal/index"
)

// Index is a brute-force in-memory implementation of index.Index with
// error injection for failure-path tests.
type Index struct {
	mu      sync.RWMutex
	records map[string]*index.Record
	nextID  int

	// Error injection
	InsertError          error
	QueryByVectorError   error
	QueryByMetadataError error
	DeleteError          error
	CountError           error
	DropError            error
}

var _ index.Index = (*Index)(nil)

// New creates a new mock index.
func New() *Index {
	return &Index{records: make(map[string]*index.Record)}
}

// Insert stores a record with a sequential ID.
func (m *Index) Insert(ctx context.Context, rec index.Record) (string, error) {
	if m.InsertError != nil {
		return "", m.InsertError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	rec.ID = fmt.Sprintf("id-%d", m.nextID)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	m.records[rec.ID] = &rec
	return rec.ID, nil
}

// QueryByVector scans all records and returns the k nearest by cosine distance.
func (m *Index) QueryByVector(ctx context.Context, embedding []float32, k int) ([]index.Match, error) {
	if m.QueryByVectorError != nil {
		return nil, m.QueryByVectorError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]index.Match, 0, len(m.records))
	for _, rec := range m.records {
		matches = append(matches, index.Match{
			Record:   *rec,
			Distance: index.CosineDistance(embedding, rec.Embedding),
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// QueryByMetadata returns all records whose field matches value.
func (m *Index) QueryByMetadata(ctx context.Context, field, value string) ([]index.Record, error) {
	if m.QueryByMetadataError != nil {
		return nil, m.QueryByMetadataError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []index.Record
	switch field {
	case index.FieldRegistrationNumber:
		for _, rec := range m.records {
			if rec.RegistrationNumber == value {
				out = append(out, *rec)
			}
		}
	case index.FieldName:
		want := index.NormalizeName(value)
		for _, rec := range m.records {
			if index.NormalizeName(rec.Name) == want {
				out = append(out, *rec)
			}
		}
	default:
		return nil, fmt.Errorf("%w: %q", index.ErrUnsupportedField, field)
	}
	return out, nil
}

// Delete removes a record by ID.
func (m *Index) Delete(ctx context.Context, id string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}

// Count returns the number of stored records.
func (m *Index) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

// Drop removes all records.
func (m *Index) Drop(ctx context.Context) error {
	if m.DropError != nil {
		return m.DropError
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[string]*index.Record)
	return nil
}

// Stats returns backend information.
func (m *Index) Stats(ctx context.Context) (index.Stats, error) {
	if m.CountError != nil {
		return index.Stats{}, m.CountError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return index.Stats{Backend: "mock", TotalRecords: len(m.records)}, nil
}

// Close is a no-op.
func (m *Index) Close() error { return nil }

// Records returns a snapshot of all stored records, for assertions.
func (m *Index) Records() []index.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]index.Record, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, *rec)
	}
	return out
}
