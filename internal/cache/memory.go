package cache

import (
	"context"
	"sort"
	"sync"

	"github.com/sembly/semcall/pkg/artifact"
)

// MemoryStore is a Store that lives entirely in process memory. It backs
// tests and deployments that disable persistence.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[artifact.Fingerprint]*artifact.Artifact
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[artifact.Fingerprint]*artifact.Artifact)}
}

// Get retrieves an entry by fingerprint. Returns ErrNotFound when absent.
func (s *MemoryStore) Get(_ context.Context, fp artifact.Fingerprint) (*artifact.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.entries[fp]
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

// Put stores an entry.
func (s *MemoryStore) Put(_ context.Context, a *artifact.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[a.Fingerprint] = a
	return nil
}

// Delete removes one entry. Deleting an absent entry is not an error.
func (s *MemoryStore) Delete(_ context.Context, fp artifact.Fingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, fp)
	return nil
}

// Clear removes every entry.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[artifact.Fingerprint]*artifact.Artifact)
	return nil
}

// List returns every stored artifact sorted by creation time then
// fingerprint.
func (s *MemoryStore) List(_ context.Context) ([]*artifact.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	artifacts := make([]*artifact.Artifact, 0, len(s.entries))
	for _, a := range s.entries {
		artifacts = append(artifacts, a)
	}
	sort.Slice(artifacts, func(i, j int) bool {
		if artifacts[i].CreatedAtMs != artifacts[j].CreatedAtMs {
			return artifacts[i].CreatedAtMs < artifacts[j].CreatedAtMs
		}
		return artifacts[i].Fingerprint < artifacts[j].Fingerprint
	})
	return artifacts, nil
}
