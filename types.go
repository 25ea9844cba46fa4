package kinauth

import (
	"context"
	"time"
)

// Role is the single role carried by every user account. Exactly one role per
// user; there is no separate role table or permission mask.
type Role string

const (
	// RoleAdminParent administers accounts and settings. The first user
	// created in an empty directory is always an admin-parent.
	RoleAdminParent Role = "admin-parent"
	// RoleUserParent is a non-administrating parent account.
	RoleUserParent Role = "user-parent"
	// RoleChild is a supervised child account.
	RoleChild Role = "child"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdminParent, RoleUserParent, RoleChild:
		return true
	}
	return false
}

// User is the identity record owned by the [UserDirectory]. ID is assigned by
// the directory on first save and immutable afterwards, as is Username.
// FailedLoginAttempts and LockedUntil are mutated only through
// [UserDirectory.UpdateLockout]; a nil LockedUntil means the account is not
// and has not recently been locked.
type User struct {
	ID           int64
	Username     string
	DisplayName  string
	PasswordHash string
	Role         Role

	FailedLoginAttempts int
	LockedUntil         *time.Time
}

// LockoutState is the pair of lockout fields written atomically by
// [UserDirectory.UpdateLockout].
type LockoutState struct {
	Attempts    int
	LockedUntil *time.Time
}

// UserDirectory is the user-record store that callers must implement to
// integrate kinauth with their database. Lookups return (nil, nil) when no
// record matches; an error always means the store itself failed.
//
// UpdateLockout is a conditional update: it persists next only if the row's
// current failed-attempt counter still equals expectAttempts, and reports
// whether the write was applied. On SQL this is a single
// "UPDATE ... WHERE id = ? AND failed_login_attempts = ?". The lockout state
// machine relies on it so that two concurrent wrong-password attempts can
// never both claim the same increment.
type UserDirectory interface {
	FindByID(ctx context.Context, id int64) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)

	// Save inserts u when u.ID is zero (assigning the new ID on u) and
	// updates the full record otherwise.
	Save(ctx context.Context, u *User) error

	ListByRole(ctx context.Context, role Role) ([]*User, error)
	CountUsers(ctx context.Context) (int64, error)

	UpdateLockout(ctx context.Context, userID int64, expectAttempts int, next LockoutState) (bool, error)
}

// SessionBag is the caller's request-scoped session: an opaque key/value bag
// (typically a signed cookie) whose wire representation kinauth does not
// define. The facade writes the user id and session token into it on login;
// the authorization gate reads the user id back out on later requests.
type SessionBag interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
	Clear()
}

// Keys kinauth reads and writes in the [SessionBag].
const (
	// BagKeyUserID holds the authenticated user's id, base-10 encoded.
	BagKeyUserID = "user_id"
	// BagKeySessionToken holds the opaque session token.
	BagKeySessionToken = "session_token"
	// BagKeyPersist is set to "1" when the caller should keep the bag
	// across browser restarts (the "remember me" flag).
	BagKeyPersist = "persist"
)

// LoginResult is returned by [Service.Authenticate] on success.
type LoginResult struct {
	UserID    int64
	Token     string
	ExpiresAt time.Time
}

// CreateUserRequest is the input for [Service.CreateUser]. Username,
// Password, and Role are required; Role is ignored for the bootstrap user,
// which is always created as [RoleAdminParent].
type CreateUserRequest struct {
	Username    string
	Password    string
	DisplayName string
	Role        Role
}
