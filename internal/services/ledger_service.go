package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/auth"
	"ledger/internal/core"
	"ledger/internal/ledger"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrIncorrectPassword  = errors.New("current password is incorrect")
	ErrPasswordMismatch   = errors.New("new passwords do not match")
	ErrEmptyPassword      = errors.New("new password cannot be empty")
	ErrAdminProtected     = errors.New("admin accounts cannot be deleted")
)

// NewUser is the input for account creation.
type NewUser struct {
	Name     string
	Email    string
	Password string
	Role     core.Role
}

// LedgerService orchestrates account and transaction operations.
type LedgerService struct {
	store  ledger.Store
	hasher auth.Hasher
	events EventPublisher
	now    func() time.Time
}

func NewLedgerService(store ledger.Store, hasher auth.Hasher, events EventPublisher) *LedgerService {
	return &LedgerService{
		store:  store,
		hasher: hasher,
		events: events,
		now:    time.Now,
	}
}

// CreateUser hashes the password and stores the account with its role.
func (s *LedgerService) CreateUser(ctx context.Context, in NewUser) (core.User, error) {
	if in.Role == "" {
		in.Role = core.RoleMember
	}
	u := core.User{
		Name:  strings.TrimSpace(in.Name),
		Email: core.NormalizeEmail(in.Email),
		Role:  in.Role,
	}
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return core.User{}, err
	}
	u.PasswordHash = hash
	u.CreatedAt = s.now().UTC()

	created, err := s.store.CreateUser(ctx, u)
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	slog.InfoContext(ctx, "User created", "id", created.ID, "role", created.Role)
	return created, nil
}

// EnsureAdmin creates the bootstrap admin unless the email is already
// registered, in which case the existing account is returned unchanged.
func (s *LedgerService) EnsureAdmin(ctx context.Context, name, email, password string) (core.User, bool, error) {
	u, err := s.CreateUser(ctx, NewUser{Name: name, Email: email, Password: password, Role: core.RoleAdmin})
	if err == nil {
		return u, true, nil
	}
	if !errors.Is(err, ledger.ErrEmailTaken) {
		return core.User{}, false, err
	}
	existing, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return core.User{}, false, fmt.Errorf("lookup admin: %w", err)
	}
	return existing, false, nil
}

// DeleteUser removes a member account and all of its transactions.
func (s *LedgerService) DeleteUser(ctx context.Context, id int64) error {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if u.IsAdmin() {
		return ErrAdminProtected
	}
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	publish(ctx, s.events, amqp.NewLedgerEvent(amqp.EventUserDeleted, id))
	return nil
}

func (s *LedgerService) GetUser(ctx context.Context, id int64) (core.User, error) {
	return s.store.GetUser(ctx, id)
}

func (s *LedgerService) ListUsers(ctx context.Context) ([]core.User, error) {
	return s.store.ListUsers(ctx)
}

// UserSummaries returns every user with lifetime transaction totals.
func (s *LedgerService) UserSummaries(ctx context.Context) ([]core.UserSummary, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]core.UserSummary, 0, len(users))
	for _, u := range users {
		count, credit, debit, err := s.store.UserTotals(ctx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("totals for user %d: %w", u.ID, err)
		}
		out = append(out, core.UserSummary{User: u, Transactions: count, TotalCredit: credit, TotalDebit: debit})
	}
	return out, nil
}

// AddTransaction records a credit or debit with a server-assigned timestamp.
func (s *LedgerService) AddTransaction(ctx context.Context, userID int64, amount core.Money, kind core.TransactionKind, description string) (core.Transaction, error) {
	t := core.Transaction{
		UserID:      userID,
		Amount:      amount,
		Kind:        kind,
		Description: strings.TrimSpace(description),
		CreatedAt:   s.now().UTC(),
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	created, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	ev := amqp.NewLedgerEvent(amqp.EventTransactionCreated, userID)
	ev.TransactionID = created.ID
	ev.AmountCents = created.Amount.Cents
	ev.Kind = string(created.Kind)
	publish(ctx, s.events, ev)
	return created, nil
}

// DeleteTransaction removes txID only if it is owned by userID.
func (s *LedgerService) DeleteTransaction(ctx context.Context, userID, txID int64) error {
	if err := s.store.DeleteTransaction(ctx, userID, txID); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	ev := amqp.NewLedgerEvent(amqp.EventTransactionDeleted, userID)
	ev.TransactionID = txID
	publish(ctx, s.events, ev)
	return nil
}

func (s *LedgerService) ListTransactions(ctx context.Context, userID int64) ([]core.Transaction, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return s.store.ListTransactions(ctx, userID)
}

// Authenticate verifies credentials. Unknown emails and bad passwords are indistinguishable.
func (s *LedgerService) Authenticate(ctx context.Context, email, password string) (core.User, error) {
	u, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, ledger.ErrNotFound) {
		return core.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if !s.hasher.Check(u.PasswordHash, password) {
		return core.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// ChangePassword replaces the password after checking the current one.
func (s *LedgerService) ChangePassword(ctx context.Context, userID int64, current, next, confirm string) error {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	switch {
	case !s.hasher.Check(u.PasswordHash, current):
		return ErrIncorrectPassword
	case next != confirm:
		return ErrPasswordMismatch
	case next == "":
		return ErrEmptyPassword
	}
	hash, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	if err := s.store.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	slog.InfoContext(ctx, "Password changed", "user_id", userID)
	return nil
}
