package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDatabaseUnavailable wraps any database failure.
var ErrDatabaseUnavailable = errors.New("session database unavailable")

// DB is the subset of *pgxpool.Pool and *pgx.Conn used by [PostgresStore].
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Schema creates the session_data table used by [PostgresStore].
const Schema = `
CREATE TABLE IF NOT EXISTS session_data (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	role       TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS session_data_user_id_idx ON session_data (user_id);
`

// PostgresStore implements the durable record operations over a session_data
// table. Expired rows are treated as absent.
type PostgresStore struct {
	db      DB
	ttl     time.Duration
	sliding bool
	now     func() time.Time
}

// NewPostgresStore creates a [PostgresStore]. ttl and sliding behave as in
// [NewStore].
func NewPostgresStore(db DB, ttl time.Duration, sliding bool) *PostgresStore {
	if ttl < 0 {
		ttl = 0
	}
	return &PostgresStore{
		db:      db,
		ttl:     ttl,
		sliding: sliding && ttl > 0,
		now:     time.Now,
	}
}

// WithClock sets the clock used for CreatedAt defaults and expiry checks. A
// nil now keeps the current clock.
func (s *PostgresStore) WithClock(now func() time.Time) *PostgresStore {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *PostgresStore) expiry(now time.Time) *time.Time {
	if s.ttl == 0 {
		return nil
	}
	t := now.Add(s.ttl)
	return &t
}

// Migrate applies [Schema].
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseUnavailable, err)
	}
	return nil
}

// Register inserts rec, replacing any row with the same id.
func (s *PostgresStore) Register(ctx context.Context, rec *Record) error {
	if rec == nil || rec.SessionID == "" || rec.UserID == "" {
		return ErrRecordInvalid
	}
	now := s.now()
	if rec.CreatedAt == 0 {
		rec.CreatedAt = now.Unix()
	}

	query := `
		INSERT INTO session_data (id, user_id, role, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET user_id = EXCLUDED.user_id, role = EXCLUDED.role,
		    created_at = EXCLUDED.created_at, expires_at = EXCLUDED.expires_at
	`
	_, err := s.db.Exec(ctx, query, rec.SessionID, rec.UserID, rec.Role, time.Unix(rec.CreatedAt, 0).UTC(), s.expiry(now))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseUnavailable, err)
	}
	return nil
}

// Exists reports whether a live row is stored for sessionID. With sliding
// expiration the check is an UPDATE of expires_at on the live row only.
func (s *PostgresStore) Exists(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}
	now := s.now()

	if s.sliding {
		query := `UPDATE session_data SET expires_at = $2 WHERE id = $1 AND (expires_at IS NULL OR expires_at > $3)`
		tag, err := s.db.Exec(ctx, query, sessionID, s.expiry(now), now)
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrDatabaseUnavailable, err)
		}
		return tag.RowsAffected() > 0, nil
	}

	query := `SELECT EXISTS(SELECT 1 FROM session_data WHERE id = $1 AND (expires_at IS NULL OR expires_at > $2))`
	var exists bool
	if err := s.db.QueryRow(ctx, query, sessionID, now).Scan(&exists); err != nil {
		return false, fmt.Errorf("%w: %v", ErrDatabaseUnavailable, err)
	}
	return exists, nil
}

// Get returns the live record for sessionID.
func (s *PostgresStore) Get(ctx context.Context, sessionID string) (*Record, error) {
	query := `
		SELECT user_id, role, created_at
		FROM session_data
		WHERE id = $1 AND (expires_at IS NULL OR expires_at > $2)
	`

	var (
		rec       Record
		createdAt time.Time
	)
	err := s.db.QueryRow(ctx, query, sessionID, s.now()).Scan(&rec.UserID, &rec.Role, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseUnavailable, err)
	}
	rec.SessionID = sessionID
	rec.CreatedAt = createdAt.Unix()
	return &rec, nil
}

// Delete removes the row for sessionID. Deleting a missing row is not an error.
func (s *PostgresStore) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM session_data WHERE id = $1`, sessionID); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseUnavailable, err)
	}
	return nil
}

// DeleteAllForUser removes every row of userID and returns how many live
// sessions were revoked.
func (s *PostgresStore) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	query := `
		WITH removed AS (
			DELETE FROM session_data WHERE user_id = $1 RETURNING expires_at
		)
		SELECT count(*) FROM removed WHERE expires_at IS NULL OR expires_at > $2
	`
	var n int
	if err := s.db.QueryRow(ctx, query, userID, s.now()).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseUnavailable, err)
	}
	return n, nil
}

// ActiveSessionIDs returns the live session ids of userID.
func (s *PostgresStore) ActiveSessionIDs(ctx context.Context, userID string) ([]string, error) {
	query := `
		SELECT coalesce(array_agg(id ORDER BY created_at), '{}')
		FROM session_data
		WHERE user_id = $1 AND (expires_at IS NULL OR expires_at > $2)
	`
	var ids []string
	if err := s.db.QueryRow(ctx, query, userID, s.now()).Scan(&ids); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseUnavailable, err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// PurgeExpired deletes rows whose expiry has passed.
func (s *PostgresStore) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM session_data WHERE expires_at IS NOT NULL AND expires_at <= $1`, s.now())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseUnavailable, err)
	}
	return tag.RowsAffected(), nil
}
