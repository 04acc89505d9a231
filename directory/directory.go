package directory

import (
	"context"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrAccountExists        = errors.New("account already exists")
	ErrPackageNotFound      = errors.New("package not found")
	ErrDirectoryUnavailable = errors.New("directory unavailable")
)

// Account is a provisioned identity.
type Account struct {
	ID           string
	Username     string
	Email        string
	Package      string
	Role         string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
}

// Package is a billing package an account is subscribed to.
type Package struct {
	ID      int64
	Name    string
	Default bool
}

// AccountInput describes an account to provision. Password is the plaintext
// password and is only validated here; directories store the hash passed to
// Create.
type AccountInput struct {
	Username string
	Email    string
	Package  string
	Role     string
	Password string
	Active   bool
}

func (in AccountInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Username, validation.Required, validation.Length(1, 255)),
		validation.Field(&in.Email, validation.Length(6, 255), is.Email),
		validation.Field(&in.Package, validation.Required, validation.Length(1, 64)),
		validation.Field(&in.Role, validation.Required, validation.Length(1, 64)),
		validation.Field(&in.Password, validation.Required, validation.Length(6, 64)),
	)
}

// LooksLikeEmail reports whether s validates as an email address.
func LooksLikeEmail(s string) bool {
	if s == "" {
		return false
	}
	return validation.Validate(s, is.Email) == nil
}

// Directory resolves and provisions accounts.
type Directory interface {
	// FindByUsername returns ErrAccountNotFound when no account matches.
	FindByUsername(ctx context.Context, username string) (*Account, error)
	DefaultPackage(ctx context.Context) (*Package, error)
	// PackageByID returns ErrPackageNotFound when no package matches.
	PackageByID(ctx context.Context, id int64) (*Package, error)
	// Create provisions in with passwordHash. It returns ErrAccountExists
	// when the username is taken and ErrPackageNotFound for an unknown
	// package.
	Create(ctx context.Context, in AccountInput, passwordHash string) (*Account, error)
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
