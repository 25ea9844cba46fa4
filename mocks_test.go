package kinauth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hearthchat/kinauth/session"
)

// fakeClock is a settable time source shared by a test's collaborators.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// memoryDirectory is a mutex-guarded UserDirectory with optional injected
// failure. UpdateLockout performs a real compare-and-swap under the lock.
type memoryDirectory struct {
	mu     sync.Mutex
	users  map[int64]*User
	nextID int64
	fail   error
}

func newMemoryDirectory() *memoryDirectory {
	return &memoryDirectory{users: make(map[int64]*User)}
}

func (d *memoryDirectory) failWith(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail = err
}

func (d *memoryDirectory) FindByID(ctx context.Context, id int64) (*User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail != nil {
		return nil, d.fail
	}
	u, ok := d.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (d *memoryDirectory) FindByUsername(ctx context.Context, username string) (*User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail != nil {
		return nil, d.fail
	}
	for _, u := range d.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (d *memoryDirectory) Save(ctx context.Context, u *User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail != nil {
		return d.fail
	}
	if u.ID == 0 {
		for _, existing := range d.users {
			if existing.Username == u.Username {
				return errors.New("unique constraint violated: username")
			}
		}
		d.nextID++
		u.ID = d.nextID
	}
	cp := *u
	d.users[u.ID] = &cp
	return nil
}

func (d *memoryDirectory) ListByRole(ctx context.Context, role Role) ([]*User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail != nil {
		return nil, d.fail
	}
	var out []*User
	for _, u := range d.users {
		if u.Role == role {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (d *memoryDirectory) CountUsers(ctx context.Context) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail != nil {
		return 0, d.fail
	}
	return int64(len(d.users)), nil
}

func (d *memoryDirectory) UpdateLockout(ctx context.Context, userID int64, expectAttempts int, next LockoutState) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail != nil {
		return false, d.fail
	}
	u, ok := d.users[userID]
	if !ok || u.FailedLoginAttempts != expectAttempts {
		return false, nil
	}
	u.FailedLoginAttempts = next.Attempts
	u.LockedUntil = next.LockedUntil
	return true, nil
}

// lockout reads the current lockout fields for assertions.
func (d *memoryDirectory) lockout(t *testing.T, userID int64) LockoutState {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[userID]
	if !ok {
		t.Fatalf("no user %d in directory", userID)
	}
	return LockoutState{Attempts: u.FailedLoginAttempts, LockedUntil: u.LockedUntil}
}

// memoryStore is an in-memory session.Store with UserPurger support and
// injected failure. Expiry filtering is left to the manager.
type memoryStore struct {
	mu   sync.Mutex
	rows map[string]*session.Session
	fail error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{rows: make(map[string]*session.Session)}
}

func (s *memoryStore) failWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

func (s *memoryStore) Insert(ctx context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	cp := *sess
	s.rows[sess.Token] = &cp
	return nil
}

func (s *memoryStore) FindByToken(ctx context.Context, token string) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	sess, ok := s.rows[token]
	if !ok {
		return nil, nil
	}
	cp := *sess
	return &cp, nil
}

func (s *memoryStore) DeleteByToken(ctx context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return false, s.fail
	}
	_, ok := s.rows[token]
	delete(s.rows, token)
	return ok, nil
}

func (s *memoryStore) DeleteByUser(ctx context.Context, userID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return 0, s.fail
	}
	removed := 0
	for token, sess := range s.rows {
		if sess.UserID == userID {
			delete(s.rows, token)
			removed++
		}
	}
	return removed, nil
}

func (s *memoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// memoryBag is a map-backed SessionBag.
type memoryBag struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryBag() *memoryBag {
	return &memoryBag{data: make(map[string]string)}
}

func (b *memoryBag) Get(key string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.data[key]
	return v, ok
}

func (b *memoryBag) Set(key, value string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = value
}

func (b *memoryBag) Delete(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, key)
}

func (b *memoryBag) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = make(map[string]string)
}

func (b *memoryBag) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// testHarness bundles a built Service with its collaborators.
type testHarness struct {
	svc   *Service
	dir   *memoryDirectory
	store *memoryStore
	clock *fakeClock
	sink  *ChannelSink
}

// fastPasswordConfig keeps Argon2 cheap in tests while staying above the
// hasher's floors.
func fastPasswordConfig() PasswordConfig {
	return PasswordConfig{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
		MinLength:   8,
	}
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	dir := newMemoryDirectory()
	store := newMemoryStore()
	clock := newFakeClock()
	sink := NewChannelSink(64)

	cfg := defaultConfig()
	cfg.Password = fastPasswordConfig()
	// Synchronous enough for assertions: never drop, tiny buffer.
	cfg.Audit.BufferSize = 64

	svc, err := New().
		WithConfig(cfg).
		WithDirectory(dir).
		WithSessionStore(store).
		WithAuditSink(sink).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(svc.Close)

	return &testHarness{svc: svc, dir: dir, store: store, clock: clock, sink: sink}
}

// mustCreateUser seeds an account through the public API.
func (h *testHarness) mustCreateUser(t *testing.T, username, password string, role Role) *User {
	t.Helper()
	u, err := h.svc.CreateUser(context.Background(), CreateUserRequest{
		Username:    username,
		Password:    password,
		DisplayName: username,
		Role:        role,
	})
	if err != nil {
		t.Fatalf("CreateUser(%q): %v", username, err)
	}
	return u
}

// waitAudit drains sink events until one matches eventType or the deadline
// passes.
func (h *testHarness) waitAudit(t *testing.T, eventType string) AuditEvent {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-h.sink.Events():
			if ev.EventType == eventType {
				return ev
			}
		case <-deadline:
			t.Fatalf("no %q audit event observed", eventType)
		}
	}
}
