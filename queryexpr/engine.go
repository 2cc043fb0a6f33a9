package queryexpr

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// UnknownPolicy decides what the converter does with a descriptor whose method
// is not in the catalog.
type UnknownPolicy int

const (
	// UnknownSkip logs a warning and drops the descriptor; the rest of the batch converts.
	UnknownSkip UnknownPolicy = iota
	// UnknownFail aborts the conversion with an UNKNOWN_METHOD error.
	UnknownFail
)

func (p UnknownPolicy) String() string {
	if p == UnknownFail {
		return "fail"
	}
	return "skip"
}

// ParseUnknownPolicy maps "skip" or "fail" to a policy. An empty string is skip.
func ParseUnknownPolicy(s string) (UnknownPolicy, error) {
	switch s {
	case "", "skip":
		return UnknownSkip, nil
	case "fail":
		return UnknownFail, nil
	default:
		return UnknownSkip, errors.Newf("unknown-method policy must be \"skip\" or \"fail\", got %q", s)
	}
}

// Engine ties a catalog to the textual evaluator and the structural converter.
// An Engine is immutable after NewEngine and safe for concurrent use.
type Engine struct {
	catalog   *Catalog
	unknown   UnknownPolicy
	namespace string
	logger    *zap.SugaredLogger
}

// engineConfig holds configuration set via functional options.
type engineConfig struct {
	catalog   *Catalog
	unknown   UnknownPolicy
	namespace string
	logger    *zap.SugaredLogger
}

// Option configures an Engine during construction.
type Option func(*engineConfig)

// WithCatalog replaces the default method catalog.
func WithCatalog(c *Catalog) Option {
	return func(cfg *engineConfig) {
		cfg.catalog = c
	}
}

// WithUnknownPolicy sets how the converter treats unknown methods.
func WithUnknownPolicy(p UnknownPolicy) Option {
	return func(cfg *engineConfig) {
		cfg.unknown = p
	}
}

// WithNamespace sets the qualifier accepted before a call, as in Query.limit(10).
func WithNamespace(name string) Option {
	return func(cfg *engineConfig) {
		cfg.namespace = name
	}
}

// WithLogger sets the logger used for conversion warnings.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(cfg *engineConfig) {
		cfg.logger = l
	}
}

// NewEngine creates an engine. Defaults: DefaultCatalog(), UnknownSkip,
// namespace "Query", and a no-op logger.
func NewEngine(opts ...Option) *Engine {
	cfg := &engineConfig{
		unknown:   UnknownSkip,
		namespace: "Query",
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.catalog == nil {
		cfg.catalog = DefaultCatalog()
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop().Sugar()
	}
	return &Engine{
		catalog:   cfg.catalog,
		unknown:   cfg.unknown,
		namespace: cfg.namespace,
		logger:    cfg.logger,
	}
}

// Catalog returns the engine's method catalog.
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// UnknownPolicy returns the engine's unknown-method policy.
func (e *Engine) UnknownPolicy() UnknownPolicy {
	return e.unknown
}
