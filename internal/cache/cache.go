// Package cache implements the compilation cache: a fingerprint-to-artifact
// store with at-most-one-compilation-in-flight-per-fingerprint semantics,
// durable persistence behind a pluggable Store, and crash-safe writes.
//
// The fingerprint-to-artifact map and its persistent mirror are the only
// shared mutable state in semcall. All mutation is confined here, behind a
// per-fingerprint flight group, so unrelated fingerprints compile fully in
// parallel.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/sembly/semcall/pkg/artifact"
)

// ErrNotFound is returned by stores when no entry exists for a fingerprint.
var ErrNotFound = errors.New("artifact not found")

// Store is the persistent fingerprint-to-artifact mirror. Put must be
// atomic: a crash mid-write must never leave a partial entry that a later
// Get could misinterpret as valid. Implementations must be safe for
// concurrent use.
type Store interface {
	Get(ctx context.Context, fp artifact.Fingerprint) (*artifact.Artifact, error)
	Put(ctx context.Context, a *artifact.Artifact) error
	Delete(ctx context.Context, fp artifact.Fingerprint) error
	Clear(ctx context.Context) error
	List(ctx context.Context) ([]*artifact.Artifact, error)
}

// CompileFunc invokes the external compiler collaborator. The cache treats
// it as opaque, possibly slow, and possibly non-deterministic; it is called
// at most once per fingerprint per compilation attempt.
type CompileFunc func(ctx context.Context) (*artifact.Artifact, error)

// Cache combines an in-process artifact map with a persistent store.
// When the store becomes unavailable the cache degrades to in-memory-only
// operation for the process lifetime instead of failing calls.
type Cache struct {
	store  Store
	logger *slog.Logger

	flight singleflight.Group

	mu  sync.RWMutex
	mem map[artifact.Fingerprint]*artifact.Artifact

	degraded atomic.Bool
}

// New creates a cache over the given store. A nil store means in-memory-only
// caching from the start. A nil logger falls back to slog.Default().
func New(store Store, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		store:  store,
		logger: logger,
		mem:    make(map[artifact.Fingerprint]*artifact.Artifact),
	}
}

// GetOrCompile returns the artifact for fp, compiling it if absent.
//
// Concurrent callers for the same fingerprint share a single compilation:
// the first caller triggers compile, the rest suspend until it completes and
// then observe the identical artifact. A caller whose context is cancelled
// while waiting abandons its own call only; the shared compilation keeps
// running for the remaining waiters (and for the cache itself). If compile
// fails, the pending entry is discarded, the error is propagated to every
// current waiter, and the next call retries compilation.
//
// Every newly compiled artifact is validated against spec before it is
// admitted; a structurally invalid artifact is a compilation failure and is
// never stored.
func (c *Cache) GetOrCompile(ctx context.Context, fp artifact.Fingerprint, spec *artifact.ParamSpec, compile CompileFunc) (*artifact.Artifact, error) {
	if a := c.lookup(fp); a != nil {
		return a, nil
	}

	// compilation must survive abandonment by individual waiters, so it
	// runs on a context detached from the initiating caller's cancellation
	compileCtx := context.WithoutCancel(ctx)

	ch := c.flight.DoChan(string(fp), func() (interface{}, error) {
		if a := c.lookup(fp); a != nil {
			return a, nil
		}
		if a := c.fetch(compileCtx, fp, spec); a != nil {
			c.admit(compileCtx, a, false)
			return a, nil
		}

		a, err := compile(compileCtx)
		if err != nil {
			return nil, err
		}
		if err := a.Validate(spec); err != nil {
			return nil, fmt.Errorf("compiler returned structurally invalid artifact for %s: %w", fp.Short(), err)
		}
		if a.Fingerprint != fp {
			return nil, fmt.Errorf("compiler returned artifact owned by %s, expected %s", a.Fingerprint.Short(), fp.Short())
		}
		c.admit(compileCtx, a, true)
		return a, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*artifact.Artifact), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Get returns the artifact for fp without compiling, consulting memory then
// the store. Returns ErrNotFound when absent.
func (c *Cache) Get(ctx context.Context, fp artifact.Fingerprint) (*artifact.Artifact, error) {
	if a := c.lookup(fp); a != nil {
		return a, nil
	}
	if c.store == nil || c.degraded.Load() {
		return nil, ErrNotFound
	}
	return c.store.Get(ctx, fp)
}

// Evict removes one fingerprint from memory and the store. It is safe to run
// concurrently with in-flight reads: callers already holding the artifact
// are unaffected.
func (c *Cache) Evict(ctx context.Context, fp artifact.Fingerprint) error {
	c.mu.Lock()
	delete(c.mem, fp)
	c.mu.Unlock()

	if c.store == nil || c.degraded.Load() {
		return nil
	}
	if err := c.store.Delete(ctx, fp); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to evict %s: %w", fp.Short(), err)
	}
	return nil
}

// Clear removes every entry from memory and the store.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.mem = make(map[artifact.Fingerprint]*artifact.Artifact)
	c.mu.Unlock()

	if c.store == nil || c.degraded.Load() {
		return nil
	}
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear cache store: %w", err)
	}
	return nil
}

// Degraded reports whether the cache has fallen back to in-memory-only
// operation after a store failure.
func (c *Cache) Degraded() bool {
	return c.degraded.Load()
}

func (c *Cache) lookup(fp artifact.Fingerprint) *artifact.Artifact {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mem[fp]
}

// fetch consults the persistent store for an artifact compiled by an earlier
// process. A store failure degrades the cache; a stored artifact that no
// longer passes validation is discarded so compilation can replace it.
func (c *Cache) fetch(ctx context.Context, fp artifact.Fingerprint, spec *artifact.ParamSpec) *artifact.Artifact {
	if c.store == nil || c.degraded.Load() {
		return nil
	}
	a, err := c.store.Get(ctx, fp)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		c.degrade(err)
		return nil
	}
	if err := a.Validate(spec); err != nil {
		c.logger.Warn("discarding invalid cached artifact", "fingerprint", fp.Short(), "error", err)
		_ = c.store.Delete(ctx, fp)
		return nil
	}
	return a
}

// admit places a validated artifact into memory and, when persist is set,
// mirrors it to the store. Store failures degrade the cache but never fail
// the call that produced the artifact.
func (c *Cache) admit(ctx context.Context, a *artifact.Artifact, persist bool) {
	c.mu.Lock()
	c.mem[a.Fingerprint] = a
	c.mu.Unlock()

	if !persist || c.store == nil || c.degraded.Load() {
		return
	}
	if err := c.store.Put(ctx, a); err != nil {
		c.degrade(err)
	}
}

func (c *Cache) degrade(err error) {
	if c.degraded.CompareAndSwap(false, true) {
		c.logger.Warn("cache store unavailable, degrading to in-memory-only caching for the process lifetime", "error", err)
	}
}
