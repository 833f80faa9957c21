package auth

import (
	"errors"
	"time"
)

var (
	// ErrNoRecord is returned by a Store when nothing matches the key.
	ErrNoRecord = errors.New("record not found")
	// ErrRecordExists is returned by a Store when a user email is already taken.
	ErrRecordExists = errors.New("record already exists")

	ErrInvalidEmail         = errors.New("invalid email address")
	ErrWeakPassword         = errors.New("password must be at least 6 characters")
	ErrEmailTaken           = errors.New("email already in use")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionExpired       = errors.New("session expired")
	ErrVerificationNotFound = errors.New("verification code not found")
	ErrVerificationExpired  = errors.New("verification code expired")
)

// User is a registered account.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  []byte    `json:"-"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Session binds an opaque bearer token to a user until ExpiresAt.
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}

// Verification is a pending email verification code.
type Verification struct {
	Code      string
	UserID    string
	ExpiresAt time.Time
}

// Grant is returned by a successful sign-up or sign-in.
type Grant struct {
	Token     string    `json:"token"`
	User      User      `json:"user"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// EventKind names an authentication state change.
type EventKind string

const (
	EventSignedUp         EventKind = "signed_up"
	EventSignedIn         EventKind = "signed_in"
	EventSignedOut        EventKind = "signed_out"
	EventVerificationSent EventKind = "verification_sent"
	EventEmailVerified    EventKind = "email_verified"
)

// Event is one entry of the stream returned by Service.Watch.
type Event struct {
	Kind EventKind `json:"kind"`
	User User      `json:"user"`
	At   time.Time `json:"at"`
}

// Store persists accounts, sessions and verification codes.
// Lookups return ErrNoRecord when nothing matches; CreateUser returns
// ErrRecordExists for a taken email.
type Store interface {
	CreateUser(u User) error
	UpdateUser(u User) error
	UserByID(id string) (User, error)
	UserByEmail(email string) (User, error)

	SaveSession(s Session) error
	Session(token string) (Session, error)
	DeleteSession(token string) error

	SaveVerification(v Verification) error
	TakeVerification(code string) (Verification, error)
}
