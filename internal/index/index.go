// Package index defines the similarity index contract shared by the
// file-backed HNSW backend (local mode) and the Postgres/pgvector backend
// (remote mode). The index stores identity records with their face
// embeddings and answers nearest-neighbor queries under cosine distance.
package index

import (
	"context"
	"time"
)

// Metadata fields accepted by QueryByMetadata.
const (
	FieldRegistrationNumber = "registration_number"
	FieldName               = "name"
)

// Record is a registered identity as stored in the index.
type Record struct {
	ID                 string
	Name               string
	RegistrationNumber string
	Embedding          []float32
	CreatedAt          time.Time
}

// Match is a single nearest-neighbor result. Distance is the raw cosine
// distance in [0, 2]; 0 means identical vectors.
type Match struct {
	Record   Record
	Distance float64
}

// Stats describes the current state of an index backend.
type Stats struct {
	Backend      string `json:"backend"`
	Dimension    int    `json:"dimension"`
	TotalRecords int    `json:"total_records"`
}

// Index is the contract for vector storage and search.
//
// All implementations must be safe for concurrent use. No ranking policy
// beyond distance order is applied here; thresholding and tie-breaking are
// the matching engine's responsibility.
type Index interface {
	// Insert stores a record and returns its assigned ID.
	Insert(ctx context.Context, rec Record) (string, error)

	// QueryByVector returns up to k nearest records ordered by ascending
	// cosine distance.
	QueryByVector(ctx context.Context, embedding []float32, k int) ([]Match, error)

	// QueryByMetadata returns all records whose field matches value.
	// FieldRegistrationNumber matches exactly; FieldName matches after
	// normalization (case folded, diacritics stripped).
	QueryByMetadata(ctx context.Context, field, value string) ([]Record, error)

	// Delete removes a record by ID. No error if the ID does not exist.
	Delete(ctx context.Context, id string) error

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Drop removes all records and resets the backend.
	Drop(ctx context.Context) error

	// Stats returns backend information for the info endpoint.
	Stats(ctx context.Context) (Stats, error)

	// Close releases resources held by the index.
	Close() error
}
