package directory

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// DB is the subset of *pgxpool.Pool and *pgx.Conn used by [Postgres].
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres implements [Directory] over the users and packages tables.
type Postgres struct {
	db DB
}

func NewPostgres(db DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) FindByUsername(ctx context.Context, username string) (*Account, error) {
	query := `
		SELECT u.id, u.username, coalesce(u.email, ''), pk.name, u.role, u.password_hash, u.active, u.created_at
		FROM users u
		JOIN packages pk ON pk.id = u.package_id
		WHERE lower(u.username) = lower($1)
	`

	var (
		acc Account
		id  int64
	)
	err := p.db.QueryRow(ctx, query, username).Scan(
		&id, &acc.Username, &acc.Email, &acc.Package, &acc.Role, &acc.PasswordHash, &acc.Active, &acc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	acc.ID = strconv.FormatInt(id, 10)
	return &acc, nil
}

func (p *Postgres) DefaultPackage(ctx context.Context) (*Package, error) {
	query := `SELECT id, name, is_default FROM packages WHERE is_default ORDER BY id LIMIT 1`
	return p.queryPackage(ctx, query)
}

func (p *Postgres) PackageByID(ctx context.Context, id int64) (*Package, error) {
	query := `SELECT id, name, is_default FROM packages WHERE id = $1`
	return p.queryPackage(ctx, query, id)
}

func (p *Postgres) queryPackage(ctx context.Context, query string, args ...any) (*Package, error) {
	var pkg Package
	err := p.db.QueryRow(ctx, query, args...).Scan(&pkg.ID, &pkg.Name, &pkg.Default)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPackageNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	return &pkg, nil
}

// Create inserts the account. The username uniqueness check is the table's
// unique index on lower(username), so concurrent provisioning of the same
// name yields exactly one row.
func (p *Postgres) Create(ctx context.Context, in AccountInput, passwordHash string) (*Account, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO users (username, email, package_id, role, password_hash, active, created_at)
		SELECT $1, nullif($2, ''), pk.id, $4, $5, $6, $7
		FROM packages pk
		WHERE pk.name = $3
		RETURNING id
	`

	createdAt := time.Now().UTC()
	var id int64
	err := p.db.QueryRow(ctx, query, in.Username, in.Email, in.Package, in.Role, passwordHash, in.Active, createdAt).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, ErrPackageNotFound
		case errors.As(err, &pgErr) && pgErr.Code == uniqueViolation:
			return nil, ErrAccountExists
		default:
			return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
		}
	}

	return &Account{
		ID:           strconv.FormatInt(id, 10),
		Username:     in.Username,
		Email:        in.Email,
		Package:      in.Package,
		Role:         in.Role,
		PasswordHash: passwordHash,
		Active:       in.Active,
		CreatedAt:    createdAt,
	}, nil
}

// Schema creates the tables used by [Postgres].
const Schema = `
CREATE TABLE IF NOT EXISTS packages (
	id         BIGSERIAL PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	is_default BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE TABLE IF NOT EXISTS users (
	id            BIGSERIAL PRIMARY KEY,
	username      TEXT NOT NULL,
	email         TEXT,
	package_id    BIGINT NOT NULL REFERENCES packages (id),
	role          TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	active        BOOLEAN NOT NULL DEFAULT TRUE,
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS users_username_lower_idx ON users (lower(username));
`

// Migrate applies [Schema] and seeds a default package when none exists.
func (p *Postgres) Migrate(ctx context.Context, defaultPackage string) error {
	if _, err := p.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	if defaultPackage == "" {
		return nil
	}
	seed := `
		INSERT INTO packages (name, is_default)
		SELECT $1, TRUE
		WHERE NOT EXISTS (SELECT 1 FROM packages WHERE is_default)
		ON CONFLICT (name) DO NOTHING
	`
	if _, err := p.db.Exec(ctx, seed, defaultPackage); err != nil {
		return fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	return nil
}
