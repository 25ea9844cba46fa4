package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hearthchat/kinauth"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL,
	failed_login_attempts INTEGER NOT NULL DEFAULT 0,
	locked_until INTEGER
);
CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);
`

// SQLite is a kinauth.UserDirectory backed by a SQLite database. locked_until
// is stored as unix seconds, NULL when the account carries no lock history.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at dsn and applies the schema.
func OpenSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open user db: %w", err)
	}
	// SQLite allows one writer; serializing through a single connection
	// turns SQLITE_BUSY into queueing.
	db.SetMaxOpenConns(1)

	s, err := NewSQLite(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLite wraps an already-open database and applies the schema.
func NewSQLite(db *sql.DB) (*SQLite, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create users table: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

const userColumns = "id, username, display_name, password_hash, role, failed_login_attempts, locked_until"

func (s *SQLite) FindByID(ctx context.Context, id int64) (*kinauth.User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return scanUser(row)
}

func (s *SQLite) FindByUsername(ctx context.Context, username string) (*kinauth.User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = ?", username)
	return scanUser(row)
}

// Save inserts when u.ID is zero, assigning the generated id on u, and
// otherwise rewrites the full record.
func (s *SQLite) Save(ctx context.Context, u *kinauth.User) error {
	locked := lockedParam(u.LockedUntil)

	if u.ID == 0 {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO users (username, display_name, password_hash, role, failed_login_attempts, locked_until)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			u.Username, u.DisplayName, u.PasswordHash, string(u.Role), u.FailedLoginAttempts, locked)
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		u.ID = id
		return nil
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE users
		 SET display_name = ?, password_hash = ?, role = ?, failed_login_attempts = ?, locked_until = ?
		 WHERE id = ?`,
		u.DisplayName, u.PasswordHash, string(u.Role), u.FailedLoginAttempts, locked, u.ID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// ListByRole returns accounts holding role, ordered by display name then
// username for stable rendering.
func (s *SQLite) ListByRole(ctx context.Context, role kinauth.Role) ([]*kinauth.User, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE role = ? ORDER BY display_name, username",
		string(role))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []*kinauth.User
	for rows.Next() {
		u, err := scanUserRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *SQLite) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// UpdateLockout is the conditional update the lockout state machine builds
// on: the write lands only if the stored counter still equals expectAttempts,
// so concurrent failures serialize instead of overwriting each other.
func (s *SQLite) UpdateLockout(ctx context.Context, userID int64, expectAttempts int, next kinauth.LockoutState) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET failed_login_attempts = ?, locked_until = ?
		 WHERE id = ? AND failed_login_attempts = ?`,
		next.Attempts, lockedParam(next.LockedUntil), userID, expectAttempts)
	if err != nil {
		return false, fmt.Errorf("update lockout: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update lockout: %w", err)
	}
	return n > 0, nil
}

func lockedParam(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row *sql.Row) (*kinauth.User, error) {
	u, err := scanUserRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func scanUserRow(row rowScanner) (*kinauth.User, error) {
	var u kinauth.User
	var role string
	var locked sql.NullInt64
	if err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &u.PasswordHash, &role,
		&u.FailedLoginAttempts, &locked); err != nil {
		return nil, err
	}
	u.Role = kinauth.Role(role)
	if locked.Valid {
		t := time.Unix(locked.Int64, 0).UTC()
		u.LockedUntil = &t
	}
	return &u, nil
}
