package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sembly/semcall/pkg/artifact"
)

// DiskStore persists one JSON file per fingerprint under a directory.
// Writes go to a temp file in the same directory and are renamed into place,
// so a crash mid-write never leaves a corrupt entry a later reader could
// misinterpret as valid.
type DiskStore struct {
	dir string
}

// NewDiskStore creates the store directory if needed.
func NewDiskStore(dir string) (*DiskStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("cache directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	return &DiskStore{dir: dir}, nil
}

// Dir returns the store directory.
func (s *DiskStore) Dir() string { return s.dir }

func (s *DiskStore) path(fp artifact.Fingerprint) string {
	return filepath.Join(s.dir, string(fp)+".json")
}

// Get reads an entry by fingerprint. Returns ErrNotFound when absent and a
// wrapped error for unreadable or corrupt entries.
func (s *DiskStore) Get(_ context.Context, fp artifact.Fingerprint) (*artifact.Artifact, error) {
	data, err := os.ReadFile(s.path(fp))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry %s: %w", fp.Short(), err)
	}
	a, err := artifact.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("corrupt cache entry %s: %w", fp.Short(), err)
	}
	return a, nil
}

// Put writes an entry atomically: temp file in the same directory, fsync,
// then rename.
func (s *DiskStore) Put(_ context.Context, a *artifact.Artifact) error {
	data, err := artifact.Encode(a)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "."+string(a.Fingerprint)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", a.Fingerprint.Short(), err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write cache entry %s: %w", a.Fingerprint.Short(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync cache entry %s: %w", a.Fingerprint.Short(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close cache entry %s: %w", a.Fingerprint.Short(), err)
	}
	if err := os.Rename(tmpName, s.path(a.Fingerprint)); err != nil {
		return fmt.Errorf("failed to finalize cache entry %s: %w", a.Fingerprint.Short(), err)
	}
	return nil
}

// Delete removes one entry. Deleting an absent entry is not an error.
func (s *DiskStore) Delete(_ context.Context, fp artifact.Fingerprint) error {
	err := os.Remove(s.path(fp))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete cache entry %s: %w", fp.Short(), err)
	}
	return nil
}

// Clear removes every entry file. Temp files from in-flight writes are left
// alone; they are invisible to readers.
func (s *DiskStore) Clear(_ context.Context) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to clear cache entry %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// List returns every stored artifact sorted by creation time then
// fingerprint. Corrupt entries are skipped.
func (s *DiskStore) List(_ context.Context) ([]*artifact.Artifact, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}

	var artifacts []*artifact.Artifact
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue
		}
		a, err := artifact.Decode(data)
		if err != nil {
			continue
		}
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
