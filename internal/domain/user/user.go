package user

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
)

var (
	ErrIDRequired          = errors.New("user: id is required")
	ErrInvalidID           = errors.New("user: id must be 3-32 characters of a-z A-Z 0-9 . _ -")
	ErrPasswordHashMissing = errors.New("user: password hash is required")
	ErrUsernameTaken       = errors.New("user: username already taken")
	ErrNotFound            = errors.New("user: not found")
)

// ID is the user's unique, immutable identifier (the username).
type ID string

// idPattern deliberately excludes the pair key separator used by the chat
// domain, so a joined pair key can always be split back unambiguously.
var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,32}$`)

// ValidID reports whether raw is an acceptable user id.
func ValidID(raw string) bool {
	return idPattern.MatchString(raw)
}

// User is a registered account. Identity is immutable after registration
// and accounts are never deleted.
type User struct {
	ID           ID
	PasswordHash string
	CreatedAt    time.Time
}

// Repository stores users. Save must fail with ErrUsernameTaken when the
// id is already registered.
type Repository interface {
	ByID(ctx context.Context, id ID) (*User, error)
	Exists(ctx context.Context, id ID) (bool, error)
	Save(ctx context.Context, user *User) error
}

// New validates and builds a user record.
func New(id ID, passwordHash string, now time.Time) (*User, error) {
	trimmed := strings.TrimSpace(string(id))
	if trimmed == "" {
		return nil, ErrIDRequired
	}
	if !ValidID(trimmed) {
		return nil, ErrInvalidID
	}
	if strings.TrimSpace(passwordHash) == "" {
		return nil, ErrPasswordHashMissing
	}
	if now.IsZero() {
		now = time.Now()
	}
	return &User{
		ID:           ID(trimmed),
		PasswordHash: passwordHash,
		CreatedAt:    now.UTC(),
	}, nil
}
