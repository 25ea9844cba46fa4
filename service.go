package kinauth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/hearthchat/kinauth/password"
	"github.com/hearthchat/kinauth/session"
)

// Service is the authentication facade. It owns no transport concerns: the
// HTTP shell passes in a SessionBag and renders whatever errors come back.
// All methods are safe for concurrent use.
type Service struct {
	config    Config
	directory UserDirectory
	sessions  *session.Manager
	hasher    *password.Argon2
	policy    *password.Policy
	lockouts  *lockoutMachine
	audit     *auditDispatcher
	metrics   *Metrics
	now       func() time.Time
}

// Authenticate verifies username/password, drives the lockout state machine,
// and on success creates a session and writes the user id and token into bag.
//
// Failures are deliberately coarse: unknown usernames, wrong passwords, and
// backing-store faults all surface as [ErrInvalidCredentials] (possibly with
// an attempts-remaining hint), so callers cannot probe which usernames exist.
// Locked accounts get [LockedError] without the password ever being checked.
func (s *Service) Authenticate(ctx context.Context, bag SessionBag, username, plaintext string, remember bool) (*LoginResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	u, err := s.directory.FindByUsername(ctx, username)
	if err != nil {
		return nil, s.loginStoreFailure(username, 0, err)
	}
	if u == nil {
		s.inc(MetricLoginFailure)
		s.emit(AuditEvent{
			EventType: AuditLoginFailure,
			Username:  username,
			Error:     "unknown username",
		})
		return nil, ErrInvalidCredentials
	}

	hadAttempts := u.FailedLoginAttempts
	if err := s.lockouts.gate(ctx, u); err != nil {
		var locked *LockedError
		if errors.As(err, &locked) {
			s.inc(MetricLoginLocked)
			s.emit(AuditEvent{
				EventType: AuditLoginLocked,
				UserID:    u.ID,
				Username:  u.Username,
				Error:     locked.Error(),
			})
			return nil, err
		}
		return nil, s.loginStoreFailure(u.Username, u.ID, err)
	}
	if hadAttempts > 0 && u.FailedLoginAttempts == 0 {
		s.inc(MetricLockoutCounterReset)
		s.emit(AuditEvent{
			EventType: AuditLockoutCounterReset,
			UserID:    u.ID,
			Username:  u.Username,
			Success:   true,
		})
	}

	ok, verr := s.hasher.Verify(plaintext, u.PasswordHash)
	if verr != nil {
		// Malformed digest in the directory. Treated exactly like a wrong
		// password so the response stays uniform.
		ok = false
	}
	if !ok {
		ferr := s.lockouts.recordFailure(ctx, u)

		var tooMany *TooManyAttemptsError
		var locked *LockedError
		switch {
		case errors.As(ferr, &tooMany):
			s.inc(MetricLoginFailure)
			s.inc(MetricLockoutTriggered)
			s.emit(AuditEvent{
				EventType: AuditLoginFailure,
				UserID:    u.ID,
				Username:  u.Username,
				Error:     "wrong password",
			})
			s.emit(AuditEvent{
				EventType: AuditLockoutTriggered,
				UserID:    u.ID,
				Username:  u.Username,
				Error:     tooMany.Error(),
			})
			return nil, ferr
		case errors.As(ferr, &locked):
			// Lost the race to a concurrent failure that locked first.
			s.inc(MetricLoginLocked)
			s.emit(AuditEvent{
				EventType: AuditLoginLocked,
				UserID:    u.ID,
				Username:  u.Username,
				Error:     locked.Error(),
			})
			return nil, ferr
		case errors.Is(ferr, ErrStoreUnavailable):
			return nil, s.loginStoreFailure(u.Username, u.ID, ferr)
		default:
			s.inc(MetricLoginFailure)
			s.emit(AuditEvent{
				EventType: AuditLoginFailure,
				UserID:    u.ID,
				Username:  u.Username,
				Error:     "wrong password",
			})
			return nil, ferr
		}
	}

	if err := s.lockouts.recordSuccess(ctx, u); err != nil {
		return nil, s.loginStoreFailure(u.Username, u.ID, err)
	}

	sess, err := s.sessions.Create(ctx, u.ID, remember)
	if err != nil {
		s.inc(MetricStoreFailure)
		s.emit(AuditEvent{
			EventType: AuditLoginFailure,
			UserID:    u.ID,
			Username:  u.Username,
			Error:     err.Error(),
		})
		log.Printf("kinauth: session create for user %d failed: %v", u.ID, err)
		return nil, fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
	}

	if bag != nil {
		bag.Set(BagKeyUserID, strconv.FormatInt(u.ID, 10))
		bag.Set(BagKeySessionToken, sess.Token)
		if remember {
			bag.Set(BagKeyPersist, "1")
		} else {
			bag.Delete(BagKeyPersist)
		}
	}

	s.inc(MetricLoginSuccess)
	s.inc(MetricSessionCreated)
	s.emit(AuditEvent{
		EventType: AuditLoginSuccess,
		UserID:    u.ID,
		Username:  u.Username,
		Success:   true,
		Metadata:  map[string]string{"remember": strconv.FormatBool(remember)},
	})

	return &LoginResult{UserID: u.ID, Token: sess.Token, ExpiresAt: sess.ExpiresAt}, nil
}

// CreateUser validates the password against policy before anything else (no
// hashing work for rejected passwords), enforces username uniqueness, and
// persists the new account. When the directory is empty the new account is
// the bootstrap administrator regardless of req.Role.
func (s *Service) CreateUser(ctx context.Context, req CreateUserRequest) (*User, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	if ok, reason := s.policy.Validate(req.Password); !ok {
		s.emit(AuditEvent{
			EventType: AuditUserCreateFailure,
			Username:  req.Username,
			Error:     reason,
		})
		return nil, &PolicyError{Reason: reason}
	}

	count, err := s.directory.CountUsers(ctx)
	if err != nil {
		return nil, storeFailure(err)
	}

	role := req.Role
	if count == 0 {
		role = RoleAdminParent
	} else if !role.Valid() {
		return nil, ErrRoleInvalid
	}

	existing, err := s.directory.FindByUsername(ctx, req.Username)
	if err != nil {
		return nil, storeFailure(err)
	}
	if existing != nil {
		s.emit(AuditEvent{
			EventType: AuditUserCreateFailure,
			Username:  req.Username,
			Error:     ErrUsernameTaken.Error(),
		})
		return nil, ErrUsernameTaken
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Username:     req.Username,
		DisplayName:  req.DisplayName,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.directory.Save(ctx, u); err != nil {
		return nil, storeFailure(err)
	}

	s.inc(MetricUserCreated)
	s.emit(AuditEvent{
		EventType: AuditUserCreated,
		UserID:    u.ID,
		Username:  u.Username,
		Success:   true,
		Metadata:  map[string]string{"role": string(u.Role)},
	})
	return u, nil
}

// Logout revokes the bag's session token and clears the bag. The bag is
// cleared even when the store cannot be reached, so the local request is
// always logged out; the bool reports whether a server-side row was removed.
func (s *Service) Logout(ctx context.Context, bag SessionBag) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}

	var token string
	var userID int64
	if bag != nil {
		token, _ = bag.Get(BagKeySessionToken)
		if raw, ok := bag.Get(BagKeyUserID); ok {
			userID, _ = strconv.ParseInt(raw, 10, 64)
		}
		bag.Clear()
	}
	if token == "" {
		return false, nil
	}

	removed, err := s.sessions.Revoke(ctx, token)
	if err != nil {
		s.inc(MetricStoreFailure)
		log.Printf("kinauth: session revoke for user %d failed: %v", userID, err)
		return false, storeFailure(err)
	}

	if removed {
		s.inc(MetricSessionRevoked)
	}
	s.inc(MetricLogout)
	s.emit(AuditEvent{
		EventType: AuditLogout,
		UserID:    userID,
		Success:   true,
		Metadata:  map[string]string{"revoked": strconv.FormatBool(removed)},
	})
	return removed, nil
}

// ValidateSession reports whether token names a live, unexpired session.
// Store faults return an error and callers must treat the session as invalid.
func (s *Service) ValidateSession(ctx context.Context, token string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	ok, err := s.sessions.Validate(ctx, token)
	if err != nil {
		s.inc(MetricStoreFailure)
		return false, storeFailure(err)
	}
	return ok, nil
}

// CurrentUser resolves the bag to a live User. A bag whose session token no
// longer validates, or whose user id no longer resolves to a record, is
// cleared and reported as [ErrNotAuthenticated]; a stale bag must not keep
// granting access.
func (s *Service) CurrentUser(ctx context.Context, bag SessionBag) (*User, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if bag == nil {
		return nil, ErrNotAuthenticated
	}

	raw, ok := bag.Get(BagKeyUserID)
	if !ok {
		return nil, ErrNotAuthenticated
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		bag.Clear()
		return nil, ErrNotAuthenticated
	}

	if token, ok := bag.Get(BagKeySessionToken); ok {
		live, err := s.sessions.Validate(ctx, token)
		if err != nil {
			s.inc(MetricStoreFailure)
			return nil, storeFailure(err)
		}
		if !live {
			bag.Clear()
			return nil, ErrNotAuthenticated
		}
	}

	u, err := s.directory.FindByID(ctx, id)
	if err != nil {
		return nil, storeFailure(err)
	}
	if u == nil {
		bag.Clear()
		return nil, ErrNotAuthenticated
	}
	return u, nil
}

// ChangePassword verifies the current password, applies the policy to the new
// one, rejects reuse, rehashes, and revokes every session belonging to the
// user so stolen tokens die with the old password.
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	if err := s.ready(); err != nil {
		return err
	}

	u, err := s.directory.FindByID(ctx, userID)
	if err != nil {
		return storeFailure(err)
	}
	if u == nil {
		return ErrUserNotFound
	}

	ok, err := s.hasher.Verify(current, u.PasswordHash)
	if err != nil || !ok {
		s.emit(AuditEvent{
			EventType: AuditPasswordChangeFail,
			UserID:    u.ID,
			Username:  u.Username,
			Error:     "current password rejected",
		})
		return ErrInvalidCredentials
	}

	if ok, reason := s.policy.Validate(next); !ok {
		return &PolicyError{Reason: reason}
	}
	if same, _ := s.hasher.Verify(next, u.PasswordHash); same {
		return ErrPasswordReuse
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	if err := s.directory.Save(ctx, u); err != nil {
		return storeFailure(err)
	}

	purged, err := s.sessions.RevokeAllForUser(ctx, userID)
	if err != nil {
		s.inc(MetricStoreFailure)
		log.Printf("kinauth: session purge for user %d failed: %v", userID, err)
		return fmt.Errorf("%w: %v", ErrSessionPurgeFailed, err)
	}

	s.inc(MetricPasswordChanged)
	if purged > 0 {
		s.inc(MetricSessionPurged)
	}
	s.emit(AuditEvent{
		EventType: AuditPasswordChanged,
		UserID:    u.ID,
		Username:  u.Username,
		Success:   true,
	})
	s.emit(AuditEvent{
		EventType: AuditSessionsPurged,
		UserID:    u.ID,
		Username:  u.Username,
		Success:   true,
		Metadata:  map[string]string{"count": strconv.Itoa(purged)},
	})
	return nil
}

// HasAnyUser reports whether the directory holds at least one account. It is
// the setup-flow switch: a false answer lets the shell offer bootstrap admin
// creation, so a store fault answers true rather than exposing that flow.
func (s *Service) HasAnyUser(ctx context.Context) bool {
	if s == nil || s.directory == nil {
		return true
	}
	count, err := s.directory.CountUsers(ctx)
	if err != nil {
		log.Printf("kinauth: user count failed: %v", err)
		return true
	}
	return count > 0
}

// UsersByRole lists accounts holding role, in the directory's order.
func (s *Service) UsersByRole(ctx context.Context, role Role) ([]*User, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, ErrRoleInvalid
	}
	users, err := s.directory.ListByRole(ctx, role)
	if err != nil {
		return nil, storeFailure(err)
	}
	return users, nil
}

// MetricsSnapshot returns current counter values, or nil when metrics are
// disabled.
func (s *Service) MetricsSnapshot() *MetricsSnapshot {
	if s == nil || s.metrics == nil {
		return nil
	}
	snap := s.metrics.Snapshot()
	return &snap
}

// AuditDropped reports audit events discarded under backpressure.
func (s *Service) AuditDropped() uint64 {
	if s == nil {
		return 0
	}
	return s.audit.Dropped()
}

// Close drains and stops the audit dispatcher. The Service must not be used
// afterwards.
func (s *Service) Close() {
	if s == nil {
		return
	}
	s.audit.close()
}

func (s *Service) ready() error {
	if s == nil || s.directory == nil || s.sessions == nil || s.hasher == nil {
		return ErrServiceNotReady
	}
	return nil
}

// loginStoreFailure records a backing-store fault on the login path and
// returns the uniform credential error. The real cause goes to audit and the
// operational log only.
func (s *Service) loginStoreFailure(username string, userID int64, err error) error {
	s.inc(MetricStoreFailure)
	s.inc(MetricLoginFailure)
	s.emit(AuditEvent{
		EventType: AuditLoginFailure,
		UserID:    userID,
		Username:  username,
		Error:     err.Error(),
	})
	log.Printf("kinauth: login aborted by store failure: %v", err)
	return ErrInvalidCredentials
}

func (s *Service) inc(id MetricID) {
	if s.metrics != nil {
		s.metrics.Inc(id)
	}
}

func (s *Service) emit(event AuditEvent) {
	if s.audit != nil {
		s.audit.emit(event)
	}
}
