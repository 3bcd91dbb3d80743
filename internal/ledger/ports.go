package ledger

import (
	"context"
	"errors"
	"time"

	"ledger/internal/core"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrEmailTaken = errors.New("email already registered")
)

// Ports for ledger storage adapters.
type (
	// TransactionFinder is the read-only view the statement engine depends on.
	TransactionFinder interface {
		// FindTransactions returns the user's transactions created in [from, to),
		// in creation order.
		FindTransactions(ctx context.Context, userID int64, from, to time.Time) ([]core.Transaction, error)
	}

	UserStore interface {
		CreateUser(ctx context.Context, u core.User) (core.User, error)
		GetUser(ctx context.Context, id int64) (core.User, error)
		GetUserByEmail(ctx context.Context, email string) (core.User, error)
		ListUsers(ctx context.Context) ([]core.User, error)
		UpdatePasswordHash(ctx context.Context, id int64, hash string) error
		// DeleteUser removes the user together with all of their transactions.
		DeleteUser(ctx context.Context, id int64) error
	}

	TransactionStore interface {
		TransactionFinder
		CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		ListTransactions(ctx context.Context, userID int64) ([]core.Transaction, error)
		// DeleteTransaction removes txID only when it belongs to userID.
		DeleteTransaction(ctx context.Context, userID, txID int64) error
		UserTotals(ctx context.Context, userID int64) (count int64, credit, debit core.Money, err error)
	}

	// Store is the full ledger persistence surface.
	Store interface {
		UserStore
		TransactionStore
	}
)
