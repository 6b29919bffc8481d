package local

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/kozaktomas/face-registry/internal/index"
)

const testDim = 4

// unit returns a normalized copy of v.
func unit(v []float32) []float32 {
	return index.Normalize(v)
}

func insertIdentity(t *testing.T, idx *Index, name, regnum string, emb []float32) string {
	t.Helper()
	id, err := idx.Insert(context.Background(), index.Record{
		Name:               name,
		RegistrationNumber: regnum,
		Embedding:          emb,
	})
	if err != nil {
		t.Fatalf("Insert(%s): %v", regnum, err)
	}
	return id
}

func TestInsertAndQueryByVector(t *testing.T) {
	idx, err := New(testDim, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	a := unit([]float32{1, 0, 0, 0})
	b := unit([]float32{0.9, 0.1, 0, 0})
	c := unit([]float32{0, 0, 1, 0})

	insertIdentity(t, idx, "Alice", "EMP001", a)
	insertIdentity(t, idx, "Bob", "EMP002", b)
	insertIdentity(t, idx, "Carol", "EMP003", c)

	matches, err := idx.QueryByVector(context.Background(), a, 3)
	if err != nil {
		t.Fatalf("QueryByVector: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(matches))
	}
	if matches[0].Record.RegistrationNumber != "EMP001" {
		t.Errorf("nearest match = %s, want EMP001", matches[0].Record.RegistrationNumber)
	}
	if matches[0].Distance > 1e-6 {
		t.Errorf("self distance = %f, want ~0", matches[0].Distance)
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Distance < matches[i-1].Distance {
			t.Errorf("matches not ordered by distance: %f before %f", matches[i-1].Distance, matches[i].Distance)
		}
	}
}

func TestQueryByVectorRespectsK(t *testing.T) {
	idx, _ := New(testDim, "")
	insertIdentity(t, idx, "Alice", "EMP001", unit([]float32{1, 0, 0, 0}))
	insertIdentity(t, idx, "Bob", "EMP002", unit([]float32{0, 1, 0, 0}))
	insertIdentity(t, idx, "Carol", "EMP003", unit([]float32{0, 0, 1, 0}))

	matches, err := idx.QueryByVector(context.Background(), unit([]float32{1, 1, 0, 0}), 2)
	if err != nil {
		t.Fatalf("QueryByVector: %v", err)
	}
	if len(matches) > 2 {
		t.Errorf("expected at most 2 matches, got %d", len(matches))
	}
}

func TestQueryByVectorEmptyIndex(t *testing.T) {
	idx, _ := New(testDim, "")
	matches, err := idx.QueryByVector(context.Background(), unit([]float32{1, 0, 0, 0}), 5)
	if err != nil {
		t.Fatalf("QueryByVector on empty index: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected no matches, got %d", len(matches))
	}
}

func TestQueryByMetadata(t *testing.T) {
	idx, _ := New(testDim, "")
	insertIdentity(t, idx, "Jan Novák", "EMP001", unit([]float32{1, 0, 0, 0}))
	insertIdentity(t, idx, "Bob", "EMP002", unit([]float32{0, 1, 0, 0}))

	recs, err := idx.QueryByMetadata(context.Background(), index.FieldRegistrationNumber, "EMP001")
	if err != nil {
		t.Fatalf("QueryByMetadata: %v", err)
	}
	if len(recs) != 1 || recs[0].Name != "Jan Novák" {
		t.Errorf("unexpected records: %+v", recs)
	}

	// Name lookup is case and diacritic insensitive.
	recs, err = idx.QueryByMetadata(context.Background(), index.FieldName, "jan novak")
	if err != nil {
		t.Fatalf("QueryByMetadata by name: %v", err)
	}
	if len(recs) != 1 || recs[0].RegistrationNumber != "EMP001" {
		t.Errorf("unexpected records: %+v", recs)
	}

	recs, err = idx.QueryByMetadata(context.Background(), index.FieldRegistrationNumber, "MISSING")
	if err != nil {
		t.Fatalf("QueryByMetadata: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("expected no records, got %d", len(recs))
	}

	if _, err := idx.QueryByMetadata(context.Background(), "bogus", "x"); !errors.Is(err, index.ErrUnsupportedField) {
		t.Errorf("expected ErrUnsupportedField, got %v", err)
	}
}

func TestDeleteFiltersResults(t *testing.T) {
	idx, _ := New(testDim, "")
	id := insertIdentity(t, idx, "Alice", "EMP001", unit([]float32{1, 0, 0, 0}))
	insertIdentity(t, idx, "Bob", "EMP002", unit([]float32{0, 1, 0, 0}))

	if err := idx.Delete(context.Background(), id); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	matches, err := idx.QueryByVector(context.Background(), unit([]float32{1, 0, 0, 0}), 5)
	if err != nil {
		t.Fatalf("QueryByVector: %v", err)
	}
	for _, m := range matches {
		if m.Record.ID == id {
			t.Error("deleted record returned from query")
		}
	}

	count, _ := idx.Count(context.Background())
	if count != 1 {
		t.Errorf("Count = %d, want 1", count)
	}
}

func TestDimensionMismatch(t *testing.T) {
	idx, _ := New(testDim, "")

	_, err := idx.Insert(context.Background(), index.Record{
		Name:               "Alice",
		RegistrationNumber: "EMP001",
		Embedding:          []float32{1, 0}, // wrong dimension
	})
	var dm *index.DimensionMismatchError
	if !errors.As(err, &dm) {
		t.Fatalf("expected DimensionMismatchError, got %v", err)
	}
	if !errors.Is(err, index.ErrInconsistent) {
		t.Error("dimension mismatch should unwrap to ErrInconsistent")
	}

	if _, err := idx.QueryByVector(context.Background(), []float32{1, 0}, 5); !errors.Is(err, index.ErrInconsistent) {
		t.Errorf("expected ErrInconsistent from query, got %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faces.index")

	idx, err := New(testDim, path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	insertIdentity(t, idx, "Alice", "EMP001", unit([]float32{1, 0, 0, 0}))
	insertIdentity(t, idx, "Bob", "EMP002", unit([]float32{0, 1, 0, 0}))
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	loaded, err := New(testDim, path)
	if err != nil {
		t.Fatalf("New (load): %v", err)
	}
	count, _ := loaded.Count(context.Background())
	if count != 2 {
		t.Fatalf("loaded Count = %d, want 2", count)
	}

	matches, err := loaded.QueryByVector(context.Background(), unit([]float32{1, 0, 0, 0}), 1)
	if err != nil {
		t.Fatalf("QueryByVector after load: %v", err)
	}
	if len(matches) != 1 || matches[0].Record.RegistrationNumber != "EMP001" {
		t.Errorf("unexpected matches after load: %+v", matches)
	}
	if math.Abs(matches[0].Distance) > 1e-6 {
		t.Errorf("self distance after load = %f, want ~0", matches[0].Distance)
	}
}

func TestLoadDimensionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faces.index")

	idx, _ := New(testDim, path)
	insertIdentity(t, idx, "Alice", "EMP001", unit([]float32{1, 0, 0, 0}))
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	_, err := New(testDim+1, path)
	if !errors.Is(err, index.ErrInconsistent) {
		t.Errorf("expected ErrInconsistent loading with wrong dimension, got %v", err)
	}
}

func TestDropResetsIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faces.index")

	idx, _ := New(testDim, path)
	insertIdentity(t, idx, "Alice", "EMP001", unit([]float32{1, 0, 0, 0}))
	if err := idx.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := idx.Drop(context.Background()); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	count, _ := idx.Count(context.Background())
	if count != 0 {
		t.Errorf("Count after Drop = %d, want 0", count)
	}

	// A fresh open must not resurrect dropped data.
	reopened, err := New(testDim, path)
	if err != nil {
		t.Fatalf("New after Drop: %v", err)
	}
	count, _ = reopened.Count(context.Background())
	if count != 0 {
		t.Errorf("reopened Count = %d, want 0", count)
	}
}
