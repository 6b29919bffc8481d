// Package registry enforces identity uniqueness and metadata integrity on
// top of the similarity index. The index itself offers no transactional
// guarantee across a metadata check and an insert, so the registry
// serializes that window per registration number with an in-process lock
// arena.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kozaktomas/face-registry/internal/index"
)

// ErrDuplicateRegistration indicates the registration number is already
// taken. User error; not retryable.
var ErrDuplicateRegistration = errors.New("registration number already registered")

// Registry performs validated, uniqueness-checked identity registration.
type Registry struct {
	index index.Index

	mu    sync.Mutex
	locks map[string]*entry
}

// entry is a reference-counted lock for one registration number. Counting
// lets the arena drop locks nobody is waiting on instead of growing forever.
type entry struct {
	mu   sync.Mutex
	refs int
}

// New creates a registry over the given index.
func New(idx index.Index) *Registry {
	return &Registry{
		index: idx,
		locks: make(map[string]*entry),
	}
}

// lock acquires the per-registration-number mutex and returns its release
// function. Distinct numbers never contend.
func (r *Registry) lock(registrationNumber string) func() {
	r.mu.Lock()
	e, ok := r.locks[registrationNumber]
	if !ok {
		e = &entry{}
		r.locks[registrationNumber] = e
	}
	e.refs++
	r.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		r.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(r.locks, registrationNumber)
		}
		r.mu.Unlock()
	}
}

// Register validates the identity, confirms the registration number is free
// and stores the embedding. The check and the insert run under the
// per-number lock; a check that does not complete authoritatively aborts
// the registration without inserting.
func (r *Registry) Register(ctx context.Context, name, registrationNumber string, embedding []float32) (*index.Record, error) {
	name, err := ValidateName(name)
	if err != nil {
		return nil, err
	}
	registrationNumber, err = ValidateRegistrationNumber(registrationNumber)
	if err != nil {
		return nil, err
	}

	unlock := r.lock(registrationNumber)
	defer unlock()

	existing, err := r.index.QueryByMetadata(ctx, index.FieldRegistrationNumber, registrationNumber)
	if err != nil {
		return nil, fmt.Errorf("uniqueness check for %s: %w", registrationNumber, err)
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateRegistration, registrationNumber)
	}

	rec := index.Record{
		Name:               name,
		RegistrationNumber: registrationNumber,
		Embedding:          embedding,
	}
	id, err := r.index.Insert(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("insert identity %s: %w", registrationNumber, err)
	}
	rec.ID = id

	return &rec, nil
}

// FindByName returns all identities matching the name, diacritic and case
// insensitive.
func (r *Registry) FindByName(ctx context.Context, name string) ([]index.Record, error) {
	return r.index.QueryByMetadata(ctx, index.FieldName, name)
}
