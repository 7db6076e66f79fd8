package domain

import (
	"errors"
	"net/mail"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/comitanigiacomo/kanso-streak-engine/internal/core/streak"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters long")
	ErrInvalidTimezone    = errors.New("invalid timezone (must be an IANA name)")
	ErrInvalidGraceHour   = errors.New("grace hour must be between 0 and 23")
)

const (
	DefaultTimezone = "UTC"
	passwordCost    = 12
)

type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Timezone     string    `json:"timezone" db:"timezone"`
	GraceHour    int       `json:"grace_hour" db:"grace_hour"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

func NewUser(id, email string) (*User, error) {
	email = strings.TrimSpace(email)

	if !isValidEmail(email) {
		return nil, ErrInvalidEmail
	}

	now := time.Now().UTC()
	return &User{
		ID:        id,
		Email:     strings.ToLower(email),
		Timezone:  DefaultTimezone,
		GraceHour: streak.DefaultGraceHour,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (u *User) SetPassword(plainPassword string) error {
	if utf8.RuneCountInString(plainPassword) < 8 {
		return ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plainPassword), passwordCost)
	if err != nil {
		return err
	}

	u.PasswordHash = string(hash)
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (u *User) CheckPassword(plainPassword string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plainPassword))
}

var absentUserHash = sync.OnceValue(func() []byte {
	hash, _ := bcrypt.GenerateFromPassword([]byte("no account has this password"), passwordCost)
	return hash
})

// CheckAbsentPassword does the bcrypt work of CheckPassword for a login
// whose email matched no account. It always fails.
func CheckAbsentPassword(plainPassword string) error {
	_ = bcrypt.CompareHashAndPassword(absentUserHash(), []byte(plainPassword))
	return ErrInvalidCredentials
}

func isValidEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

// SetProfile changes where the user's day starts. Unlike the streak
// engine, which falls back to UTC, unknown zones are rejected here.
func (u *User) SetProfile(timezone string, graceHour int) error {
	timezone = strings.TrimSpace(timezone)
	if timezone == "" || timezone == "Local" {
		return ErrInvalidTimezone
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return ErrInvalidTimezone
	}
	if graceHour < 0 || graceHour > 23 {
		return ErrInvalidGraceHour
	}

	u.Timezone = timezone
	u.GraceHour = graceHour
	u.UpdatedAt = time.Now().UTC()
	return nil
}
