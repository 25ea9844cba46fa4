package kinauth

import (
	"context"
	"time"
)

// lockoutMachine drives the failed-attempt counter and lock window for a user
// record. All state transitions go through UserDirectory.UpdateLockout, a
// compare-and-swap on the attempt counter, so two concurrent login failures
// can never both observe the same counter value and under-count.
type lockoutMachine struct {
	dir UserDirectory
	cfg LockoutConfig
	now func() time.Time
}

// gate is the pre-password check. It rejects users inside an active lock
// window and lazily zeroes counters whose lock expired more than
// CounterResetAfter ago. The stale LockedUntil timestamp is kept on reset so
// the record still shows when the last lock ended; it is cleared only by a
// successful login.
func (m *lockoutMachine) gate(ctx context.Context, u *User) error {
	now := m.now()

	if u.LockedUntil != nil && now.Before(*u.LockedUntil) {
		return &LockedError{RetryAfter: u.LockedUntil.Sub(now)}
	}

	if u.FailedLoginAttempts > 0 && u.LockedUntil != nil &&
		now.After(u.LockedUntil.Add(m.cfg.CounterResetAfter)) {
		for i := 0; i <= m.cfg.UpdateRetries; i++ {
			ok, err := m.dir.UpdateLockout(ctx, u.ID, u.FailedLoginAttempts, LockoutState{
				Attempts:    0,
				LockedUntil: u.LockedUntil,
			})
			if err != nil {
				return storeFailure(err)
			}
			if ok {
				u.FailedLoginAttempts = 0
				return nil
			}
			fresh, err := m.reload(ctx, u)
			if err != nil {
				return err
			}
			if fresh.LockedUntil != nil && m.now().Before(*fresh.LockedUntil) {
				return &LockedError{RetryAfter: fresh.LockedUntil.Sub(m.now())}
			}
			*u = *fresh
			if u.FailedLoginAttempts == 0 {
				// A concurrent attempt already reset the counter.
				return nil
			}
		}
		return storeFailure(ErrStoreUnavailable)
	}

	return nil
}

// recordFailure increments the attempt counter and, on reaching the limit,
// opens a lock window. The returned error is always non-nil: either the
// attempts-remaining hint, the just-locked notice, or a lock raced in by a
// concurrent attempt.
func (m *lockoutMachine) recordFailure(ctx context.Context, u *User) error {
	for i := 0; i <= m.cfg.UpdateRetries; i++ {
		attempts := u.FailedLoginAttempts + 1
		next := LockoutState{Attempts: attempts, LockedUntil: u.LockedUntil}

		locking := attempts >= m.cfg.MaxAttempts
		if locking {
			until := m.now().Add(m.cfg.LockDuration)
			next.LockedUntil = &until
		}

		ok, err := m.dir.UpdateLockout(ctx, u.ID, u.FailedLoginAttempts, next)
		if err != nil {
			return storeFailure(err)
		}
		if ok {
			u.FailedLoginAttempts = next.Attempts
			u.LockedUntil = next.LockedUntil
			if locking {
				return &TooManyAttemptsError{LockDuration: m.cfg.LockDuration}
			}
			return &AttemptsRemainingError{Remaining: m.cfg.MaxAttempts - attempts}
		}

		fresh, err := m.reload(ctx, u)
		if err != nil {
			return err
		}
		if fresh.LockedUntil != nil && m.now().Before(*fresh.LockedUntil) {
			// A concurrent failure already locked the account; do not
			// stack additional increments on top.
			return &LockedError{RetryAfter: fresh.LockedUntil.Sub(m.now())}
		}
		*u = *fresh
	}
	return storeFailure(ErrStoreUnavailable)
}

// recordSuccess clears the counter and any expired lock after a verified
// password. Store failures here fail the login: a success that cannot be
// persisted would leave the counter poised to lock on the next typo.
func (m *lockoutMachine) recordSuccess(ctx context.Context, u *User) error {
	for i := 0; i <= m.cfg.UpdateRetries; i++ {
		ok, err := m.dir.UpdateLockout(ctx, u.ID, u.FailedLoginAttempts, LockoutState{})
		if err != nil {
			return storeFailure(err)
		}
		if ok {
			u.FailedLoginAttempts = 0
			u.LockedUntil = nil
			return nil
		}
		fresh, err := m.reload(ctx, u)
		if err != nil {
			return err
		}
		*u = *fresh
		if u.FailedLoginAttempts == 0 && u.LockedUntil == nil {
			return nil
		}
	}
	return storeFailure(ErrStoreUnavailable)
}

func (m *lockoutMachine) reload(ctx context.Context, u *User) (*User, error) {
	fresh, err := m.dir.FindByID(ctx, u.ID)
	if err != nil {
		return nil, storeFailure(err)
	}
	if fresh == nil {
		return nil, storeFailure(ErrUserNotFound)
	}
	return fresh, nil
}
