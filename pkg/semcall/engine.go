package semcall

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sembly/semcall/internal/cache"
	"github.com/sembly/semcall/internal/compile"
	"github.com/sembly/semcall/internal/config"
	"github.com/sembly/semcall/internal/extract"
	"github.com/sembly/semcall/internal/fingerprint"
	"github.com/sembly/semcall/internal/llm"
	"github.com/sembly/semcall/internal/logging"
	"github.com/sembly/semcall/internal/render"
	"github.com/sembly/semcall/pkg/artifact"
	"github.com/sembly/semcall/pkg/callsite"
)

// Compiler translates a call site's code context into a prompt artifact.
// Compilation is treated as expensive and non-deterministic; the cache
// guarantees it runs at most once per live fingerprint.
type Compiler interface {
	Compile(ctx context.Context, cs *callsite.CallSite, cc *callsite.CodeContext, fp artifact.Fingerprint) (*artifact.Artifact, error)
}

// Inferencer answers a rendered prompt with raw model output.
type Inferencer interface {
	Infer(ctx context.Context, prompt artifact.RenderedPrompt) (string, error)
}

// Engine owns the resolution pipeline shared by every semantic call in a
// process: call-site registry, extraction, fingerprinting, the artifact
// cache, and the two model collaborators.
type Engine struct {
	extractor      *extract.Extractor
	cache          *cache.Cache
	compiler       Compiler
	inferencer     Inferencer
	compileTimeout time.Duration
	logger         *slog.Logger

	store cache.Store
	sites sync.Map // callsite key string -> *site
}

// site is the per-call-site resolution record. Extraction and
// fingerprinting run once per site per process; source edits are picked up
// by the next process, which extracts fresh. The fields are written only
// inside once.Do and published through resolved, so readers outside the
// resolving goroutine (Sites) must check resolved first.
type site struct {
	once     sync.Once
	resolved atomic.Bool
	cc       *callsite.CodeContext
	fp       artifact.Fingerprint
	err      error
}

// Option customizes an Engine
type Option func(*Engine)

// WithLogger replaces the logger built from the config's logging section
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithCompiler replaces the default LLM-backed compiler
func WithCompiler(c Compiler) Option {
	return func(e *Engine) { e.compiler = c }
}

// WithInferencer replaces the default chat-completions inferencer
func WithInferencer(i Inferencer) Option {
	return func(e *Engine) { e.inferencer = i }
}

// New builds an Engine from configuration. Omitted config sections get
// their defaults, so a hand-built Config works without going through
// config.Load. The cache backend is opened here; a redis backend that
// cannot be reached fails construction rather than degrading silently.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	cfg.ApplyDefaults()

	e := &Engine{
		extractor:      extract.New(cfg.Compile.ExtraDirs...),
		compileTimeout: cfg.Compile.Timeout.Std(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.New("semcall", cfg.Logging.Level)
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	e.store = store
	e.cache = cache.New(store, e.logger)

	if e.compiler == nil || e.inferencer == nil {
		if cfg.Models == nil {
			return nil, fmt.Errorf("models configuration is required unless both compiler and inferencer are injected")
		}
	}
	if e.compiler == nil {
		client := llm.NewClient(cfg.Models.BaseURL, cfg.APIKey(), cfg.Models.Compiler)
		e.compiler = compile.New(client, e.logger)
	}
	if e.inferencer == nil {
		client := llm.NewClient(cfg.Models.BaseURL, cfg.APIKey(), cfg.Models.Runtime)
		e.inferencer = &chatInferencer{client: client}
	}

	return e, nil
}

func openStore(cfg *config.Config) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case "redis":
		redisOpts, err := redis.ParseURL(cfg.Cache.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid cache.redis_url: %w", err)
		}
		return cache.NewRedisStore(redisOpts, cfg.Cache.Namespace)
	case "memory":
		return cache.NewMemoryStore(), nil
	default:
		return cache.NewDiskStore(cfg.Cache.Dir)
	}
}

// Close releases the cache backend if it holds external connections
func (e *Engine) Close() error {
	if closer, ok := e.store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Degraded reports whether the cache has fallen back to memory-only
// operation after a persistence failure.
func (e *Engine) Degraded() bool {
	return e.cache.Degraded()
}

// SiteInfo describes one call site the engine has resolved this process
type SiteInfo struct {
	Site        string
	Fingerprint artifact.Fingerprint
}

// Sites lists the call sites resolved so far, sorted by site identity
func (e *Engine) Sites() []SiteInfo {
	var infos []SiteInfo
	e.sites.Range(func(k, v interface{}) bool {
		s := v.(*site)
		if s.resolved.Load() && s.err == nil {
			infos = append(infos, SiteInfo{Site: k.(string), Fingerprint: s.fp})
		}
		return true
	})
	sort.Slice(infos, func(i, j int) bool { return infos[i].Site < infos[j].Site })
	return infos
}

// resolve extracts and fingerprints the call site, memoizing the result for
// the life of the process.
func (e *Engine) resolve(key callsite.Key, spec *artifact.ParamSpec, ret *artifact.TypeDescriptor) (*callsite.CodeContext, artifact.Fingerprint, error) {
	entry, _ := e.sites.LoadOrStore(key.String(), &site{})
	s := entry.(*site)
	s.once.Do(func() {
		defer s.resolved.Store(true)
		s.cc, s.err = e.extractor.Extract(key, spec, ret)
		if s.err != nil {
			return
		}
		s.fp = fingerprint.Context(s.cc)
		e.logger.Debug("resolved call site", "call_site", key.String(), "fingerprint", s.fp.Short(),
			"container", s.cc.ContainerKind, "types", len(s.cc.Types), "directives", len(s.cc.Directives))
	})
	return s.cc, s.fp, s.err
}

// dispatch runs the full pipeline up to raw model output. Every error is
// wrapped with the stage it came from.
func (e *Engine) dispatch(ctx context.Context, key callsite.Key, spec *artifact.ParamSpec, b *render.Bindings, ret *artifact.TypeDescriptor) (string, error) {
	cc, fp, err := e.resolve(key, spec, ret)
	if err != nil {
		return "", &ExtractionError{Site: key.String(), Err: err}
	}

	cs := &callsite.CallSite{Key: key, Params: spec, Return: ret}
	a, err := e.cache.GetOrCompile(ctx, fp, spec, func(compileCtx context.Context) (*artifact.Artifact, error) {
		if e.compileTimeout > 0 {
			var cancel context.CancelFunc
			compileCtx, cancel = context.WithTimeout(compileCtx, e.compileTimeout)
			defer cancel()
		}
		return e.compiler.Compile(compileCtx, cs, cc, fp)
	})
	if err != nil {
		return "", &CompileError{Site: key.String(), Err: err}
	}

	prompt, err := render.Prompt(a, spec, b)
	if err != nil {
		return "", &RenderError{Site: key.String(), Err: err}
	}

	raw, err := e.inferencer.Infer(ctx, prompt)
	if err != nil {
		return "", &InferenceError{Site: key.String(), Err: err}
	}
	return raw, nil
}

// chatInferencer is the default runtime collaborator: the rendered system
// and user prompts go out as one chat-completions exchange.
type chatInferencer struct {
	client *llm.Client
}

func (i *chatInferencer) Infer(ctx context.Context, prompt artifact.RenderedPrompt) (string, error) {
	return i.client.Chat(ctx, []llm.Message{
		{Role: "system", Content: prompt.System},
		{Role: "user", Content: prompt.User},
	})
}
