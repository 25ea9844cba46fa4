package kinauth

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredentials covers both unknown username and wrong
	// password. The message is deliberately identical for the two cases so
	// callers cannot enumerate usernames.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrAccountLocked is matched (via errors.Is) by [LockedError] and
	// [TooManyAttemptsError].
	ErrAccountLocked = errors.New("account locked")
	// ErrUsernameTaken reports a duplicate username on create.
	ErrUsernameTaken = errors.New("username already exists")
	// ErrPasswordPolicy is matched by [PolicyError].
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrRoleInvalid reports an unknown role on create or update.
	ErrRoleInvalid = errors.New("role must be one of: admin-parent, user-parent, child")
	// ErrSessionCreationFailed is returned when the password check passed
	// but the session row could not be persisted. Partial success is not an
	// outcome; the login as a whole fails.
	ErrSessionCreationFailed = errors.New("failed to create session")
	// ErrSessionPurgeFailed is returned when sessions could not be revoked
	// after a password change.
	ErrSessionPurgeFailed = errors.New("session invalidation failed")
	// ErrStoreUnavailable wraps backing-store failures. Callers on the
	// authentication path never see it directly; it is folded into
	// ErrInvalidCredentials (fail closed) and surfaced through audit/logs.
	ErrStoreUnavailable = errors.New("backing store unavailable")
	// ErrNotAuthenticated signals a missing or dangling request session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrUserNotFound is returned by account-management operations that
	// take an explicit user id (never by Authenticate).
	ErrUserNotFound = errors.New("user not found")
	// ErrPasswordReuse rejects a password change to the current password.
	ErrPasswordReuse = errors.New("new password must be different from current password")
	// ErrServiceNotReady indicates use of a Service that was not built
	// through [Builder.Build].
	ErrServiceNotReady = errors.New("service not initialized")
)

// LockedError is returned for an authentication attempt against an account
// whose lock window has not yet elapsed. The password is never consulted and
// the failure counter is not advanced.
type LockedError struct {
	RetryAfter time.Duration
}

// Minutes is RetryAfter rounded up to whole minutes, as shown to the user.
func (e *LockedError) Minutes() int {
	return int((e.RetryAfter + time.Minute - 1) / time.Minute)
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("Account is locked. Try again in %d minutes", e.Minutes())
}

// Is reports a match against [ErrAccountLocked].
func (e *LockedError) Is(target error) bool { return target == ErrAccountLocked }

// TooManyAttemptsError is returned by the attempt that crosses the failure
// threshold and triggers the lock.
type TooManyAttemptsError struct {
	LockDuration time.Duration
}

func (e *TooManyAttemptsError) Error() string {
	return fmt.Sprintf("Too many failed attempts. Account locked for %d minutes", int(e.LockDuration/time.Minute))
}

// Is reports a match against [ErrAccountLocked].
func (e *TooManyAttemptsError) Is(target error) bool { return target == ErrAccountLocked }

// AttemptsRemainingError is a wrong-password failure below the lockout
// threshold.
type AttemptsRemainingError struct {
	Remaining int
}

func (e *AttemptsRemainingError) Error() string {
	return fmt.Sprintf("Invalid username or password. %d attempts remaining", e.Remaining)
}

// Is reports a match against [ErrInvalidCredentials].
func (e *AttemptsRemainingError) Is(target error) bool { return target == ErrInvalidCredentials }

// PolicyError carries the user-displayable reason from the password policy.
type PolicyError struct {
	Reason string
}

func (e *PolicyError) Error() string { return e.Reason }

// Is reports a match against [ErrPasswordPolicy].
func (e *PolicyError) Is(target error) bool { return target == ErrPasswordPolicy }

func storeFailure(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
