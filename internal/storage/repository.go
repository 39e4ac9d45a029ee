// Package storage persists users, their linked OAuth providers, and their
// expenses in SQLite.
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

	"kharcha/internal/core"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// User is an authenticated account. ID is the tenant-isolation key for all
// expense operations.
type User struct {
	ID        string
	Email     string
	CreatedAt time.Time
}

// ExportItem is a pending-export expense together with its owner.
type ExportItem struct {
	UserID  string
	Expense core.Expense
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// The pragma goes in the DSN so every pooled connection enforces
	// foreign keys, not just the one that happened to run a PRAGMA.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
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

// CreateExpense inserts a new record for the user, assigning the ID and
// CreatedAt. The input is assumed validated.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, userID string, in core.ExpenseInput) (core.Expense, error) {
	e := core.Expense{
		ID:            uuid.NewString(),
		Name:          in.Name,
		Amount:        in.Amount,
		Category:      in.Category,
		PaymentMethod: in.PaymentMethod,
		Date:          in.Date.UTC(),
		CreatedAt:     time.Now().UTC(),
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (id, user_id, name, amount_paise, category, payment_method, spent_on, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, userID, e.Name, e.Amount.Paise, string(e.Category), string(e.PaymentMethod), e.Date, e.CreatedAt)
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"expense_id", e.ID,
		"user_id", userID,
		"amount_paise", e.Amount.Paise,
		"category", e.Category)
	return e, nil
}

// UpdateExpense overwrites the mutable fields of an existing record. ID and
// CreatedAt never change. Updated rows are re-queued for export.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, userID, expenseID string, in core.ExpenseInput) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE expenses
		SET name = ?, amount_paise = ?, category = ?, payment_method = ?, spent_on = ?, exported = 0
		WHERE id = ? AND user_id = ?`,
		in.Name, in.Amount.Paise, string(in.Category), string(in.PaymentMethod), in.Date.UTC(),
		expenseID, userID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update expense %s: %w", expenseID, ErrNotFound)
	}
	return nil
}

// DeleteExpense removes a record. Deleting an id that does not exist is a
// no-op so retries after a lost response stay harmless.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, userID, expenseID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND user_id = ?`, expenseID, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}

// ListExpenses returns the user's full expense set ordered by date
// descending, then insertion time descending.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID string) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, amount_paise, category, payment_method, spent_on, created_at
		FROM expenses
		WHERE user_id = ?
		ORDER BY spent_on DESC, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var (
			e        core.Expense
			category string
			method   string
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.Amount.Paise, &category, &method, &e.Date, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Category = core.Category(category)
		e.PaymentMethod = core.PaymentMethod(method)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

// CreateUser inserts a new account for the email.
func (r *SQLiteRepository) CreateUser(ctx context.Context, email string) (User, error) {
	u := User{
		ID:        uuid.NewString(),
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, created_at) VALUES (?, ?, ?)`,
		u.ID, u.Email, u.CreatedAt)
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// FindUserByEmail looks an account up by email. Returns ErrNotFound when no
// account exists.
func (r *SQLiteRepository) FindUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, created_at FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Email, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

// FindUserByProvider resolves the account linked to a provider credential.
func (r *SQLiteRepository) FindUserByProvider(ctx context.Context, provider, providerUserID string) (User, error) {
	var u User
	err := r.db.QueryRowContext(ctx, `
		SELECT u.id, u.email, u.created_at
		FROM users u
		JOIN linked_providers lp ON lp.user_id = u.id
		WHERE lp.provider = ? AND lp.provider_user_id = ?`,
		provider, providerUserID).
		Scan(&u.ID, &u.Email, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("find user by provider: %w", err)
	}
	return u, nil
}

// LinkProvider attaches a provider credential to an account. Linking the
// same credential twice is a no-op.
func (r *SQLiteRepository) LinkProvider(ctx context.Context, userID, provider, providerUserID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO linked_providers (user_id, provider, provider_user_id, linked_at)
		VALUES (?, ?, ?, ?)`,
		userID, provider, providerUserID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("link provider: %w", err)
	}
	return nil
}

// LinkedProviders lists the provider names attached to an account.
func (r *SQLiteRepository) LinkedProviders(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT provider FROM linked_providers WHERE user_id = ? ORDER BY linked_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list linked providers: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan provider: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PendingExportExpenses returns up to limit expenses not yet pushed to the
// report spreadsheet, oldest first.
func (r *SQLiteRepository) PendingExportExpenses(ctx context.Context, limit int) ([]ExportItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, id, name, amount_paise, category, payment_method, spent_on, created_at
		FROM expenses
		WHERE exported = 0
		ORDER BY created_at
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending export expenses: %w", err)
	}
	defer rows.Close()

	var out []ExportItem
	for rows.Next() {
		var (
			item     ExportItem
			category string
			method   string
		)
		e := &item.Expense
		if err := rows.Scan(&item.UserID, &e.ID, &e.Name, &e.Amount.Paise, &category, &method, &e.Date, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending expense: %w", err)
		}
		e.Category = core.Category(category)
		e.PaymentMethod = core.PaymentMethod(method)
		out = append(out, item)
	}
	return out, rows.Err()
}

// MarkExported records a successful export.
func (r *SQLiteRepository) MarkExported(ctx context.Context, expenseID string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET exported = 1 WHERE id = ?`, expenseID); err != nil {
		return fmt.Errorf("mark expense exported: %w", err)
	}
	return nil
}

// MarkExportError counts a failed export attempt. The row stays pending and
// is retried on the next tick.
func (r *SQLiteRepository) MarkExportError(ctx context.Context, expenseID string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET export_errors = export_errors + 1 WHERE id = ?`, expenseID); err != nil {
		return fmt.Errorf("mark expense export error: %w", err)
	}
	slog.WarnContext(ctx, "Expense export attempt failed", "expense_id", expenseID)
	return nil
}
