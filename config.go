package kinauth

import (
	"errors"
	"time"
)

// Config defines all tunables of the identity layer. Zero values are filled
// in by [defaultConfig]; [Builder.Build] rejects configurations that validate
// as unsafe or contradictory.
type Config struct {
	Lockout  LockoutConfig
	Session  SessionConfig
	Password PasswordConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

// LockoutConfig tunes the per-account failed-attempt state machine.
type LockoutConfig struct {
	// MaxAttempts is the consecutive-failure threshold that locks the
	// account.
	MaxAttempts int
	// LockDuration is how long an account stays locked once triggered.
	LockDuration time.Duration
	// CounterResetAfter is the cool-down window: how long after a lock has
	// expired the stale failure counter is forgiven. Merely waiting out the
	// lock does not reset it.
	CounterResetAfter time.Duration
	// UpdateRetries bounds the conditional-update retry loop under
	// contention before the attempt fails closed.
	UpdateRetries int
}

// SessionConfig tunes token issuance and the session store round-trips.
type SessionConfig struct {
	// TokenBytes is the entropy of each session token before URL-safe
	// encoding. Values below 32 are rejected.
	TokenBytes int
	// DefaultTTL is the session lifetime for an ordinary login.
	DefaultTTL time.Duration
	// RememberTTL is the session lifetime when the caller asked to be
	// remembered across browser restarts.
	RememberTTL time.Duration
	// RedisPrefix namespaces session keys in the Redis-backed store.
	RedisPrefix string
	// StoreTimeout bounds every backing-store round-trip so a stalled
	// store surfaces as a failure instead of hanging the caller.
	StoreTimeout time.Duration
}

// PasswordConfig holds the Argon2id parameters and the policy length floor.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	// MinLength is the policy's minimum password length.
	MinLength int
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events instead of blocking when the buffer is
	// saturated; dropped counts are observable via [Service.AuditDropped].
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

func defaultConfig() Config {
	return Config{
		Lockout: LockoutConfig{
			MaxAttempts:       5,
			LockDuration:      15 * time.Minute,
			CounterResetAfter: time.Hour,
			UpdateRetries:     4,
		},
		Session: SessionConfig{
			TokenBytes:   32,
			DefaultTTL:   24 * time.Hour,
			RememberTTL:  30 * 24 * time.Hour,
			RedisPrefix:  "ka",
			StoreTimeout: 3 * time.Second,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
			MinLength:   8,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	// All fields are values; a shallow copy is a deep copy.
	return cfg
}

func validateConfig(cfg Config) error {
	if cfg.Lockout.MaxAttempts < 1 {
		return errors.New("lockout: MaxAttempts must be at least 1")
	}
	if cfg.Lockout.LockDuration <= 0 {
		return errors.New("lockout: LockDuration must be positive")
	}
	if cfg.Lockout.CounterResetAfter < 0 {
		return errors.New("lockout: CounterResetAfter must not be negative")
	}
	if cfg.Lockout.UpdateRetries < 1 {
		return errors.New("lockout: UpdateRetries must be at least 1")
	}
	if cfg.Session.TokenBytes < 32 {
		return errors.New("session: TokenBytes must be at least 32")
	}
	if cfg.Session.DefaultTTL <= 0 || cfg.Session.RememberTTL <= 0 {
		return errors.New("session: TTLs must be positive")
	}
	if cfg.Session.RememberTTL < cfg.Session.DefaultTTL {
		return errors.New("session: RememberTTL must not undercut DefaultTTL")
	}
	if cfg.Session.StoreTimeout <= 0 {
		return errors.New("session: StoreTimeout must be positive")
	}
	if cfg.Password.MinLength < 8 {
		return errors.New("password: MinLength must be at least 8")
	}
	if cfg.Audit.Enabled && cfg.Audit.BufferSize < 1 {
		return errors.New("audit: BufferSize must be at least 1 when enabled")
	}
	return nil
}
