package kinauth

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hearthchat/kinauth/password"
	"github.com/hearthchat/kinauth/session"
)

// Builder assembles a Service from configuration and dependencies.
//
// Builder instances are intended to be configured during initialization and
// then discarded; Build may be called at most once.
type Builder struct {
	config Config

	redis     redis.UniversalClient
	store     session.Store
	directory UserDirectory
	auditSink AuditSink

	now func() time.Time

	built bool
}

// New returns a Builder seeded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
		now:    time.Now,
	}
}

// WithConfig replaces the whole configuration tree.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the Redis client backing the session store. Ignored when
// WithSessionStore is also set.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithSessionStore supplies a custom session store, overriding WithRedis.
func (b *Builder) WithSessionStore(store session.Store) *Builder {
	b.store = store
	return b
}

// WithDirectory supplies the user directory. Required.
func (b *Builder) WithDirectory(dir UserDirectory) *Builder {
	b.directory = dir
	return b
}

// WithAuditSink supplies the audit sink. Defaults to NoOpSink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles counter collection.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithClock overrides the time source. Intended for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	if now != nil {
		b.now = now
	}
	return b
}

// Build validates the configuration and wires the Service.
func (b *Builder) Build() (*Service, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	if b.directory == nil {
		return nil, errors.New("user directory required")
	}

	store := b.store
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("redis client or session store required")
		}
		store = session.NewRedisStore(b.redis, cfg.Session.RedisPrefix)
	}

	sessions := session.NewManager(store, session.Config{
		TokenBytes:   cfg.Session.TokenBytes,
		DefaultTTL:   cfg.Session.DefaultTTL,
		RememberTTL:  cfg.Session.RememberTTL,
		StoreTimeout: cfg.Session.StoreTimeout,
	})

	hasher, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	var dispatcher *auditDispatcher
	if cfg.Audit.Enabled {
		dispatcher = newAuditDispatcher(b.auditSink, cfg.Audit, b.now)
	}

	var counters *Metrics
	if cfg.Metrics.Enabled {
		counters = NewMetrics(cfg.Metrics)
	}

	b.built = true

	return &Service{
		config:    cfg,
		directory: b.directory,
		sessions:  sessions,
		hasher:    hasher,
		policy:    password.NewPolicy(cfg.Password.MinLength),
		lockouts: &lockoutMachine{
			dir: b.directory,
			cfg: cfg.Lockout,
			now: b.now,
		},
		audit:   dispatcher,
		metrics: counters,
		now:     b.now,
	}, nil
}
