package session

import (
	"context"
	"fmt"
	"time"

	"github.com/hearthchat/kinauth/internal"
)

// Config tunes the Manager. Zero fields take the documented defaults.
type Config struct {
	// TokenBytes is CSPRNG entropy per token; minimum and default 32.
	TokenBytes int
	// DefaultTTL is the lifetime of an ordinary session (default 24h).
	DefaultTTL time.Duration
	// RememberTTL is the lifetime of a remembered session (default 720h).
	RememberTTL time.Duration
	// StoreTimeout bounds each store round-trip (default 3s).
	StoreTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.TokenBytes < 32 {
		c.TokenBytes = 32
	}
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = 24 * time.Hour
	}
	if c.RememberTTL <= 0 {
		c.RememberTTL = 30 * 24 * time.Hour
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = 3 * time.Second
	}
	return c
}

// Manager issues, validates, and revokes session tokens against a [Store].
// It holds no session state of its own and is safe for concurrent use.
type Manager struct {
	store Store
	cfg   Config
	now   func() time.Time
}

// NewManager wraps store with the given config.
func NewManager(store Store, cfg Config) *Manager {
	return &Manager{
		store: store,
		cfg:   cfg.withDefaults(),
		now:   time.Now,
	}
}

// Create generates a fresh token, persists the row, and returns the session.
// A persistence failure returns an error and no token; the caller must treat
// that as a failed authentication even if the password already checked out.
func (m *Manager) Create(ctx context.Context, userID int64, remember bool) (*Session, error) {
	token, err := internal.NewSessionToken(m.cfg.TokenBytes)
	if err != nil {
		return nil, err
	}

	ttl := m.cfg.DefaultTTL
	if remember {
		ttl = m.cfg.RememberTTL
	}

	now := m.now()
	sess := &Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	ctx, cancel := m.storeCtx(ctx)
	defer cancel()
	if err := m.store.Insert(ctx, sess); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	return sess, nil
}

// Validate reports whether token names a live session: a row exists and its
// expiry is strictly in the future. Unknown and malformed tokens are a
// normal false, not an error; only store failures return err.
func (m *Manager) Validate(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	ctx, cancel := m.storeCtx(ctx)
	defer cancel()
	sess, err := m.store.FindByToken(ctx, token)
	if err != nil {
		return false, err
	}
	if sess == nil {
		return false, nil
	}
	return !sess.Expired(m.now()), nil
}

// Lookup returns the live session for token, or (nil, nil) when the token is
// unknown or expired.
func (m *Manager) Lookup(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, nil
	}

	ctx, cancel := m.storeCtx(ctx)
	defer cancel()
	sess, err := m.store.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.Expired(m.now()) {
		return nil, nil
	}
	return sess, nil
}

// Revoke deletes the token's row and reports whether one was removed.
// Revoking an absent token is (false, nil): nothing to do, not a failure.
func (m *Manager) Revoke(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	ctx, cancel := m.storeCtx(ctx)
	defer cancel()
	return m.store.DeleteByToken(ctx, token)
}

// RevokeAllForUser removes every session of userID when the store supports
// it, returning the number of rows removed. Stores without [UserPurger]
// report (0, nil).
func (m *Manager) RevokeAllForUser(ctx context.Context, userID int64) (int, error) {
	purger, ok := m.store.(UserPurger)
	if !ok {
		return 0, nil
	}

	ctx, cancel := m.storeCtx(ctx)
	defer cancel()
	return purger.DeleteByUser(ctx, userID)
}

func (m *Manager) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, m.cfg.StoreTimeout)
}
