package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"ledger/internal/core"
	"ledger/internal/ledger"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// timestampLayout is fixed-width UTC so text comparison orders like time.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

type SQLiteRepository struct {
	db *sql.DB
}

var _ ledger.Store = (*SQLiteRepository)(nil)

func dsn(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection serialises every write; the ledger has a single operator.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn(dbPath)); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.ParseInLocation(timestampLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (core.User, error) {
	var (
		u       core.User
		role    string
		created string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &created); err != nil {
		return core.User{}, err
	}
	u.Role = core.Role(role)
	ts, err := parseTimestamp(created)
	if err != nil {
		return core.User{}, err
	}
	u.CreatedAt = ts
	return u, nil
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t       core.Transaction
		kind    string
		created string
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.Amount.Cents, &kind, &t.Description, &created); err != nil {
		return core.Transaction{}, err
	}
	t.Kind = core.TransactionKind(kind)
	ts, err := parseTimestamp(created)
	if err != nil {
		return core.Transaction{}, err
	}
	t.CreatedAt = ts
	return t, nil
}

const userColumns = `id, name, email, password_hash, role, created_at`

const transactionColumns = `id, user_id, amount_cents, kind, description, created_at`

// CreateUser implements ledger.UserStore
func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, role, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.Name, u.Email, u.PasswordHash, string(u.Role), formatTimestamp(u.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, ledger.ErrEmailTaken
		}
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("read user id: %w", err)
	}
	u.ID = id

	slog.InfoContext(ctx, "User saved to SQLite", "id", u.ID, "role", u.Role)
	return u, nil
}

// GetUser implements ledger.UserStore
func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

// GetUserByEmail implements ledger.UserStore
func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, core.NormalizeEmail(email))
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// ListUsers implements ledger.UserStore
func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdatePasswordHash implements ledger.UserStore
func (r *SQLiteRepository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, hash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return expectOne(res)
}

// DeleteUser implements ledger.UserStore. Transactions go in the same SQL
// transaction so the pair is removed atomically even without the FK cascade.
func (r *SQLiteRepository) DeleteUser(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	removed, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE user_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user transactions: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if err := expectOne(res); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	n, _ := removed.RowsAffected()
	slog.InfoContext(ctx, "User deleted from SQLite", "id", id, "transactions_removed", n)
	return nil
}

// CreateTransaction implements ledger.TransactionStore
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if _, err := r.GetUser(ctx, t.UserID); err != nil {
		return core.Transaction{}, err
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (user_id, amount_cents, kind, description, created_at) VALUES (?, ?, ?, ?, ?)`,
		t.UserID, t.Amount.Cents, string(t.Kind), t.Description, formatTimestamp(t.CreatedAt))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("read transaction id: %w", err)
	}
	t.ID = id
	t.CreatedAt = t.CreatedAt.UTC()

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"user_id", t.UserID,
		"kind", t.Kind,
		"amount_cents", t.Amount.Cents)
	return t, nil
}

// ListTransactions implements ledger.TransactionStore
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID int64) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = ? ORDER BY id`, userID)
}

// FindTransactions implements ledger.TransactionFinder
func (r *SQLiteRepository) FindTransactions(ctx context.Context, userID int64, from, to time.Time) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE user_id = ? AND created_at >= ? AND created_at < ?
		 ORDER BY id`,
		userID, formatTimestamp(from), formatTimestamp(to))
}

func (r *SQLiteRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// DeleteTransaction implements ledger.TransactionStore
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, txID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, txID, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if err := expectOne(res); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Transaction deleted from SQLite", "id", txID, "user_id", userID)
	return nil
}

// UserTotals implements ledger.TransactionStore
func (r *SQLiteRepository) UserTotals(ctx context.Context, userID int64) (int64, core.Money, core.Money, error) {
	var count, credit, debit int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN kind = 'credit' THEN amount_cents ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN kind = 'debit' THEN amount_cents ELSE 0 END), 0)
		FROM transactions WHERE user_id = ?`, userID).Scan(&count, &credit, &debit)
	if err != nil {
		return 0, core.Money{}, core.Money{}, fmt.Errorf("user totals: %w", err)
	}
	return count, core.Money{Cents: credit}, core.Money{Cents: debit}, nil
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}
