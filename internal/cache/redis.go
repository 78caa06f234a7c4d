package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/sembly/semcall/pkg/artifact"
)

// RedisStore shares one compilation cache between processes through Redis,
// so a fleet of workers running the same source compiles each call site
// once. Entries are stored as hashes; all keys are namespaced so multiple
// deployments can coexist on a single Redis server.
//
// Key pattern: semcall:{namespace}:artifact:{fingerprint}
type RedisStore struct {
	rdb       *redis.Client
	namespace string
}

// NewRedisStore creates a Redis-backed store. The namespace must not be
// empty; it isolates this deployment's entries.
func NewRedisStore(opts *redis.Options, namespace string) (*RedisStore, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace cannot be empty")
	}
	return &RedisStore{rdb: redis.NewClient(opts), namespace: namespace}, nil
}

// Close closes the Redis connection. Implements io.Closer.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// ArtifactKey returns the Redis key for one cache entry.
func ArtifactKey(namespace string, fp artifact.Fingerprint) string {
	return fmt.Sprintf("semcall:%s:artifact:%s", namespace, fp)
}

func (s *RedisStore) pattern() string {
	return fmt.Sprintf("semcall:%s:artifact:*", s.namespace)
}

// Get retrieves an entry by fingerprint. Returns ErrNotFound when absent.
func (s *RedisStore) Get(ctx context.Context, fp artifact.Fingerprint) (*artifact.Artifact, error) {
	hash, err := s.rdb.HGetAll(ctx, ArtifactKey(s.namespace, fp)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact from Redis: %w", err)
	}
	// HGetAll returns an empty map for non-existent keys
	if len(hash) == 0 {
		return nil, ErrNotFound
	}
	a, err := artifact.FromHash(hash)
	if err != nil {
		return nil, fmt.Errorf("corrupt Redis cache entry %s: %w", fp.Short(), err)
	}
	return a, nil
}

// Put writes an entry. HSet replaces the hash fields in one round trip, and
// readers key off the presence of the complete hash, so a concurrent Get
// observes either the old entry or the new one. Writing the same artifact
// twice is safe.
func (s *RedisStore) Put(ctx context.Context, a *artifact.Artifact) error {
	hash, err := artifact.ToHash(a)
	if err != nil {
		return err
	}
	if err := s.rdb.HSet(ctx, ArtifactKey(s.namespace, a.Fingerprint), hash).Err(); err != nil {
		return fmt.Errorf("failed to write artifact to Redis: %w", err)
	}
	return nil
}

// Delete removes one entry. Deleting an absent entry is not an error.
func (s *RedisStore) Delete(ctx context.Context, fp artifact.Fingerprint) error {
	if err := s.rdb.Del(ctx, ArtifactKey(s.namespace, fp)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to delete artifact from Redis: %w", err)
	}
	return nil
}

// Clear removes every entry in the namespace, iterating with SCAN so the
// server is never blocked.
func (s *RedisStore) Clear(ctx context.Context) error {
	iter := s.rdb.Scan(ctx, 0, s.pattern(), 0).Iterator()
	for iter.Next(ctx) {
		if err := s.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to clear Redis cache entry: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan Redis cache: %w", err)
	}
	return nil
}

// List returns every stored artifact in the namespace sorted by creation
// time then fingerprint. Corrupt entries are skipped.
func (s *RedisStore) List(ctx context.Context) ([]*artifact.Artifact, error) {
	var artifacts []*artifact.Artifact

	iter := s.rdb.Scan(ctx, 0, s.pattern(), 0).Iterator()
	for iter.Next(ctx) {
		hash, err := s.rdb.HGetAll(ctx, iter.Val()).Result()
		if err != nil || len(hash) == 0 {
			continue
		}
		a, err := artifact.FromHash(hash)
		if err != nil {
			continue
		}
		artifacts = append(artifacts, a)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan Redis cache: %w", err)
	}

	sort.Slice(artifacts, func(i, j int) bool {
		if artifacts[i].CreatedAtMs != artifacts[j].CreatedAtMs {
			return artifacts[i].CreatedAtMs < artifacts[j].CreatedAtMs
		}
		return artifacts[i].Fingerprint < artifacts[j].Fingerprint
	})
	return artifacts, nil
}
