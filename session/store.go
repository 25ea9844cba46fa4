package session

import (
	"context"
	"errors"
)

// ErrStoreUnavailable wraps backend failures so callers can distinguish
// "no such row" (a normal nil result) from "the store itself failed".
var ErrStoreUnavailable = errors.New("session store unavailable")

// Store is the session-record collaborator. Insert persists a new row,
// FindByToken returns (nil, nil) for an unknown token, and DeleteByToken
// reports whether a row was actually removed — deleting an absent token is
// "nothing to do", not an error.
type Store interface {
	Insert(ctx context.Context, sess *Session) error
	FindByToken(ctx context.Context, token string) (*Session, error)
	DeleteByToken(ctx context.Context, token string) (bool, error)
}

// UserPurger is an optional Store extension used to revoke every session of
// one user at once (password change, account disablement).
type UserPurger interface {
	DeleteByUser(ctx context.Context, userID int64) (int, error)
}
