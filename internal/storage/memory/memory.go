package memory

import (
	"context"
	"sync"
	"time"

	"ledger/internal/core"
	"ledger/internal/ledger"
)

// Store keeps users and transactions in process memory.
type Store struct {
	mu     sync.Mutex
	users  []core.User
	txs    []core.Transaction
	nextID int64
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// Ping always succeeds; the store has no connection to lose.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) CreateUser(_ context.Context, u core.User) (core.User, error) {
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return core.User{}, ledger.ErrEmailTaken
		}
	}
	u.ID = s.id()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	s.users = append(s.users, u)
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return core.User{}, ledger.ErrNotFound
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	email = core.NormalizeEmail(email)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return core.User{}, ledger.ErrNotFound
}

func (s *Store) ListUsers(_ context.Context) ([]core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.User(nil), s.users...), nil
}

func (s *Store) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.users {
		if s.users[i].ID == id {
			s.users[i].PasswordHash = hash
			return nil
		}
	}
	return ledger.ErrNotFound
}

// DeleteUser drops the user and their transactions under one lock.
func (s *Store) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i, u := range s.users {
		if u.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ledger.ErrNotFound
	}
	s.users = append(s.users[:idx], s.users[idx+1:]...)
	kept := s.txs[:0]
	for _, t := range s.txs {
		if t.UserID != id {
			kept = append(kept, t)
		}
	}
	s.txs = kept
	return nil
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	for _, u := range s.users {
		if u.ID == t.UserID {
			found = true
			break
		}
	}
	if !found {
		return core.Transaction{}, ledger.ErrNotFound
	}
	t.ID = s.id()
	s.txs = append(s.txs, t)
	return t, nil
}

func (s *Store) ListTransactions(_ context.Context, userID int64) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.txs {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) FindTransactions(_ context.Context, userID int64, from, to time.Time) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.txs {
		if t.UserID == userID && !t.CreatedAt.Before(from) && t.CreatedAt.Before(to) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, txID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.txs {
		if t.ID == txID && t.UserID == userID {
			s.txs = append(s.txs[:i], s.txs[i+1:]...)
			return nil
		}
	}
	return ledger.ErrNotFound
}

func (s *Store) UserTotals(_ context.Context, userID int64) (int64, core.Money, core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		count         int64
		credit, debit core.Money
	)
	for _, t := range s.txs {
		if t.UserID != userID {
			continue
		}
		count++
		var err error
		if t.Kind == core.Credit {
			credit, err = credit.CheckedAdd(t.Amount)
		} else {
			debit, err = debit.CheckedAdd(t.Amount)
		}
		if err != nil {
			return 0, core.Money{}, core.Money{}, err
		}
	}
	return count, credit, debit, nil
}
