package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	id        string
	userID    string
	role      string
	createdAt time.Time
	expiresAt *time.Time
}

func (r fakeRow) live(now time.Time) bool {
	return r.expiresAt == nil || r.expiresAt.After(now)
}

// fakeDB interprets the handful of statements issued by PostgresStore.
type fakeDB struct {
	mu   sync.Mutex
	rows map[string]fakeRow
	err  error
}

func newFakeDB() *fakeDB {
	return &fakeDB{rows: map[string]fakeRow{}}
}

type scanRow struct {
	values []any
	err    error
}

func (r scanRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("scan: want %d values, got %d", len(r.values), len(dest))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *bool:
			*p = r.values[i].(bool)
		case *string:
			*p = r.values[i].(string)
		case *int:
			*p = r.values[i].(int)
		case *time.Time:
			*p = r.values[i].(time.Time)
		case *[]string:
			*p = r.values[i].([]string)
		default:
			return fmt.Errorf("scan: unsupported dest %T", d)
		}
	}
	return nil
}

func (db *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.err != nil {
		return pgconn.CommandTag{}, db.err
	}

	switch {
	case strings.Contains(sql, "CREATE TABLE"):
		return pgconn.NewCommandTag("CREATE TABLE"), nil
	case strings.Contains(sql, "INSERT INTO session_data"):
		db.rows[args[0].(string)] = fakeRow{
			id:        args[0].(string),
			userID:    args[1].(string),
			role:      args[2].(string),
			createdAt: args[3].(time.Time),
			expiresAt: args[4].(*time.Time),
		}
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	case strings.Contains(sql, "UPDATE session_data SET expires_at"):
		id, now := args[0].(string), args[2].(time.Time)
		row, ok := db.rows[id]
		if !ok || !row.live(now) {
			return pgconn.NewCommandTag("UPDATE 0"), nil
		}
		row.expiresAt = args[1].(*time.Time)
		db.rows[id] = row
		return pgconn.NewCommandTag("UPDATE 1"), nil
	case strings.Contains(sql, "DELETE FROM session_data WHERE id"):
		id := args[0].(string)
		if _, ok := db.rows[id]; !ok {
			return pgconn.NewCommandTag("DELETE 0"), nil
		}
		delete(db.rows, id)
		return pgconn.NewCommandTag("DELETE 1"), nil
	case strings.Contains(sql, "expires_at <= $1"):
		now := args[0].(time.Time)
		n := 0
		for id, row := range db.rows {
			if !row.live(now) {
				delete(db.rows, id)
				n++
			}
		}
		return pgconn.NewCommandTag(fmt.Sprintf("DELETE %d", n)), nil
	}
	return pgconn.CommandTag{}, fmt.Errorf("fakeDB: unexpected exec %q", sql)
}

func (db *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.err != nil {
		return scanRow{err: db.err}
	}

	switch {
	case strings.Contains(sql, "SELECT EXISTS"):
		row, ok := db.rows[args[0].(string)]
		return scanRow{values: []any{ok && row.live(args[1].(time.Time))}}
	case strings.Contains(sql, "SELECT user_id, role, created_at"):
		row, ok := db.rows[args[0].(string)]
		if !ok || !row.live(args[1].(time.Time)) {
			return scanRow{err: pgx.ErrNoRows}
		}
		return scanRow{values: []any{row.userID, row.role, row.createdAt}}
	case strings.Contains(sql, "WITH removed"):
		uid, now := args[0].(string), args[1].(time.Time)
		n := 0
		for id, row := range db.rows {
			if row.userID != uid {
				continue
			}
			if row.live(now) {
				n++
			}
			delete(db.rows, id)
		}
		return scanRow{values: []any{n}}
	case strings.Contains(sql, "array_agg"):
		uid, now := args[0].(string), args[1].(time.Time)
		ids := []string{}
		for id, row := range db.rows {
			if row.userID == uid && row.live(now) {
				ids = append(ids, id)
			}
		}
		sort.Strings(ids)
		return scanRow{values: []any{ids}}
	}
	return scanRow{err: fmt.Errorf("fakeDB: unexpected query %q", sql)}
}

func newPostgresStoreTest(ttl time.Duration, sliding bool) (*PostgresStore, *fakeDB, *time.Time) {
	db := newFakeDB()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewPostgresStore(db, ttl, sliding).WithClock(func() time.Time { return now })
	return store, db, &now
}

func TestPostgresStoreLifecycle(t *testing.T) {
	store, _, now := newPostgresStoreTest(time.Hour, false)
	ctx := context.Background()

	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Register(ctx, &Record{SessionID: "abc", UserID: "7", Role: "User"}))

	ok, err := store.Exists(ctx, "abc")
	require.NoError(t, err)
	require.True(t, ok)

	rec, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	require.Equal(t, "7", rec.UserID)
	require.Equal(t, "User", rec.Role)
	require.Equal(t, "abc", rec.SessionID)
	require.Equal(t, now.Unix(), rec.CreatedAt)

	require.NoError(t, store.Delete(ctx, "abc"))
	require.NoError(t, store.Delete(ctx, "abc"))

	ok, err = store.Exists(ctx, "abc")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = store.Get(ctx, "abc")
	require.ErrorIs(t, err, ErrRecordNotFound)
}

func TestPostgresStoreExpiryAndSliding(t *testing.T) {
	store, _, now := newPostgresStoreTest(time.Minute, true)
	ctx := context.Background()

	require.NoError(t, store.Register(ctx, &Record{SessionID: "abc", UserID: "7"}))

	*now = now.Add(40 * time.Second)
	ok, err := store.Exists(ctx, "abc")
	require.NoError(t, err)
	require.True(t, ok)

	*now = now.Add(40 * time.Second)
	ok, err = store.Exists(ctx, "abc")
	require.NoError(t, err)
	require.True(t, ok, "sliding refresh should keep the record alive")

	*now = now.Add(2 * time.Minute)
	ok, err = store.Exists(ctx, "abc")
	require.NoError(t, err)
	require.False(t, ok)

	purged, err := store.PurgeExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, purged)
}

func TestPostgresStoreUserOperations(t *testing.T) {
	store, _, _ := newPostgresStoreTest(0, false)
	ctx := context.Background()

	for _, sid := range []string{"s1", "s2"} {
		require.NoError(t, store.Register(ctx, &Record{SessionID: sid, UserID: "7"}))
	}
	require.NoError(t, store.Register(ctx, &Record{SessionID: "o1", UserID: "8"}))

	ids, err := store.ActiveSessionIDs(ctx, "7")
	require.NoError(t, err)
	require.Equal(t, []string{"s1", "s2"}, ids)

	n, err := store.DeleteAllForUser(ctx, "7")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	ids, err = store.ActiveSessionIDs(ctx, "7")
	require.NoError(t, err)
	require.Empty(t, ids)

	ok, err := store.Exists(ctx, "o1")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestPostgresStoreErrors(t *testing.T) {
	store, db, _ := newPostgresStoreTest(time.Hour, false)
	ctx := context.Background()

	require.ErrorIs(t, store.Register(ctx, &Record{UserID: "7"}), ErrRecordInvalid)

	db.err = errors.New("connection refused")
	_, err := store.Exists(ctx, "abc")
	require.ErrorIs(t, err, ErrDatabaseUnavailable)
	require.ErrorIs(t, store.Register(ctx, &Record{SessionID: "abc", UserID: "7"}), ErrDatabaseUnavailable)
	require.ErrorIs(t, store.Delete(ctx, "abc"), ErrDatabaseUnavailable)
	_, err = store.Get(ctx, "abc")
	require.ErrorIs(t, err, ErrDatabaseUnavailable)
	_, err = store.DeleteAllForUser(ctx, "7")
	require.ErrorIs(t, err, ErrDatabaseUnavailable)
}
