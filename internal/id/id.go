// Package id defines the opaque identifiers and the validated username type
// shared by every other package in this module.
package id

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// UserID is an opaque player identifier. The zero value is not a valid ID.
type UserID uuid.UUID

// NewUserID generates a fresh random UserID.
func NewUserID() UserID {
	return UserID(uuid.New())
}

// ParseUserID parses s, failing if it is not a well-formed UUID.
func ParseUserID(s string) (UserID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, fmt.Errorf("invalid user id %q: %w", s, err)
	}
	return UserID(u), nil
}

func (u UserID) String() string {
	return uuid.UUID(u).String()
}

// Bytes returns the raw 16-byte UUID representation, for hashing.
func (u UserID) Bytes() []byte {
	uu := uuid.UUID(u)
	return uu[:]
}

// IsZero reports whether u is the unset zero value.
func (u UserID) IsZero() bool {
	return u == UserID{}
}

// SessionID is an opaque session identifier.
type SessionID uuid.UUID

// NewSessionID generates a fresh random SessionID.
func NewSessionID() SessionID {
	return SessionID(uuid.New())
}

// ParseSessionID parses s, failing if it is not a well-formed UUID.
func ParseSessionID(s string) (SessionID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return SessionID{}, fmt.Errorf("invalid session id %q: %w", s, err)
	}
	return SessionID(u), nil
}

func (s SessionID) String() string {
	return uuid.UUID(s).String()
}

// IsZero reports whether s is the unset zero value.
func (s SessionID) IsZero() bool {
	return s == SessionID{}
}

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,20}$`)

// Username is a validated player handle. The only way to construct one is
// ParseUsername — a bare string never satisfies this type.
type Username struct {
	value string
}

// ParseUsername validates s against the 3-20 char alphanumeric/underscore/hyphen rule.
func ParseUsername(s string) (Username, error) {
	if !usernamePattern.MatchString(s) {
		return Username{}, fmt.Errorf("username %q must match %s", s, usernamePattern.String())
	}
	return Username{value: s}, nil
}

func (u Username) String() string {
	return u.value
}
