package core

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

const (
	Credit TransactionKind = "credit"
	Debit  TransactionKind = "debit"
)

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// MaxDescriptionLength bounds transaction descriptions.
const MaxDescriptionLength = 200

type (
	TransactionKind string

	Role string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	User struct {
		ID           int64
		Name         string
		Email        string
		PasswordHash string
		Role         Role
		CreatedAt    time.Time
	}

	Transaction struct {
		ID          int64
		UserID      int64
		Amount      Money
		Kind        TransactionKind
		Description string
		CreatedAt   time.Time
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrAmountOverflow   = errors.New("amount total overflows")
	ErrInvalidKind      = errors.New("invalid transaction kind")
	ErrInvalidRole      = errors.New("invalid role")
	ErrInvalidEmail     = errors.New("invalid email")
	ErrEmptyName        = errors.New("empty name")
	ErrMissingUser      = errors.New("transaction has no user")
	ErrDescriptionLong  = errors.New("description too long (max 200 characters)")
	ErrMissingTimestamp = errors.New("transaction has no timestamp")
)

// Valid reports whether k is credit or debit.
func (k TransactionKind) Valid() bool {
	switch k {
	case Credit, Debit:
		return true
	default:
		return false
	}
}

// ParseTransactionKind normalises user input into a TransactionKind.
func ParseTransactionKind(s string) (TransactionKind, error) {
	k := TransactionKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", ErrInvalidKind
	}
	return k, nil
}

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// ParseRole normalises user input into a Role. An empty string is a member.
func ParseRole(s string) (Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return RoleMember, nil
	}
	r := Role(s)
	if !r.Valid() {
		return "", ErrInvalidRole
	}
	return r, nil
}

// NormalizeEmail lower-cases and trims an address so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsAdmin returns true for accounts created with the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return ErrEmptyName
	}
	if _, err := mail.ParseAddress(u.Email); err != nil || u.Email != NormalizeEmail(u.Email) {
		return ErrInvalidEmail
	}
	if !u.Role.Valid() {
		return ErrInvalidRole
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents < 0 || m.Cents > maxAmountCents {
		return ErrInvalidAmount
	}
	return nil
}


func (t Transaction) Validate() error {
	if t.UserID == 0 {
		return ErrMissingUser
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if len([]rune(t.Description)) > MaxDescriptionLength {
		return ErrDescriptionLong
	}
	if t.CreatedAt.IsZero() {
		return ErrMissingTimestamp
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t as observed in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// AddDays returns d shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// In returns the start of d's day in loc.
func (d Date) In(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
}
