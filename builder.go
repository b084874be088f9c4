package goAuthClient

import (
	"log/slog"
	"time"

	"github.com/MrEthical07/goAuthClient/storage"
	"github.com/redis/go-redis/v9"
)

// Builder assembles a [Client]. It is single-use: a second Build returns
// ErrBuilderUsed.
type Builder struct {
	config    Config
	backend   storage.Backend
	redis     redis.UniversalClient
	auditSink AuditSink
	logger    *slog.Logger
	scheduler Scheduler
	now       func() time.Time

	built bool
}

// New returns a builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration. cfg is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBackend sets the persistence backend. It takes precedence over WithRedis.
func (b *Builder) WithBackend(backend storage.Backend) *Builder {
	b.backend = backend
	return b
}

// WithRedis persists the session in Redis through client. The client stays owned by
// the caller.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAuditSink receives audit events when Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the structured logger shared by every component.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithScheduler sets the scheduler used for the expiry watch and delayed redirects.
func (b *Builder) WithScheduler(scheduler Scheduler) *Builder {
	b.scheduler = scheduler
	return b
}

// WithClock overrides the time source used for expiry checks.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the request latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the components. The session context
// is returned uninitialized; call Client.Session().Init before serving.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b.built = true

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	scheduler := b.scheduler
	if scheduler == nil {
		scheduler = SystemScheduler{}
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	backend := b.backend
	if backend == nil && b.redis != nil {
		backend = storage.NewRedisBackend(b.redis)
	}
	if backend == nil {
		backend = storage.NewMemoryBackend(storage.WithMemoryClock(now))
	}

	metrics := NewMetrics(cfg.Metrics)
	audit := newAuditDispatcher(cfg.Audit, b.auditSink)

	store := NewSessionStore(backend, cfg.Storage,
		WithStoreClock(now),
		WithStoreLeeway(cfg.Token.Leeway),
	)
	session := NewSessionContext(store,
		WithSessionLogger(logger),
		WithSessionScheduler(scheduler),
		WithSessionMetrics(metrics),
		WithExpiryWatch(cfg.Token.WatchExpiry),
		withSessionAudit(audit),
	)
	authenticator := NewAuthenticator(session, cfg.Transport,
		WithAuthenticatorLogger(logger),
		WithAuthenticatorMetrics(metrics),
	)

	return &Client{
		config:        cfg,
		backend:       backend,
		store:         store,
		session:       session,
		authenticator: authenticator,
		gate:          NewAccessGate(cfg.Routes, metrics),
		metrics:       metrics,
		audit:         audit,
		logger:        logger,
		scheduler:     scheduler,
	}, nil
}
