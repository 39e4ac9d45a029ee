// Package services orchestrates expense operations across SQLite, the
// snapshot hub, and AMQP.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"kharcha/internal/amqp"
	"kharcha/internal/core"
	"kharcha/internal/storage"
)

var (
	// ErrUserIDRequired is returned when an operation is attempted without
	// an authenticated user id. This is a caller bug, not a backend fault.
	ErrUserIDRequired = errors.New("user id is required")

	// ErrOperationFailed wraps backend failures (database, broker) so
	// callers can distinguish them from validation problems.
	ErrOperationFailed = errors.New("operation failed")
)

// CancelFunc tears down a subscription. Safe to call more than once.
type CancelFunc func()

// ExpenseService is the single gateway for expense reads, writes, and live
// snapshot subscriptions. All operations are scoped to one user.
type ExpenseService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
	hub        *snapshotHub
}

func NewExpenseService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *ExpenseService {
	return &ExpenseService{
		storage:    storage,
		amqpClient: amqpClient,
		hub:        newSnapshotHub(),
	}
}

// AddExpense validates and saves a new expense, then pushes a fresh
// snapshot to the user's subscribers.
func (s *ExpenseService) AddExpense(ctx context.Context, userID string, in core.ExpenseInput) (core.Expense, error) {
	if userID == "" {
		return core.Expense{}, ErrUserIDRequired
	}
	if ferrs := in.Validate(time.Now().UTC()); ferrs != nil {
		return core.Expense{}, ferrs
	}

	e, err := s.storage.CreateExpense(ctx, userID, in)
	if err != nil {
		return core.Expense{}, fmt.Errorf("%w: save expense: %w", ErrOperationFailed, err)
	}

	s.refresh(ctx, userID)
	s.publishChange(ctx, userID, e.ID, amqp.OpCreated)
	return e, nil
}

// UpdateExpense validates and overwrites an existing expense's mutable
// fields. The id and creation time never change.
func (s *ExpenseService) UpdateExpense(ctx context.Context, userID, expenseID string, in core.ExpenseInput) error {
	if userID == "" {
		return ErrUserIDRequired
	}
	if ferrs := in.Validate(time.Now().UTC()); ferrs != nil {
		return ferrs
	}

	if err := s.storage.UpdateExpense(ctx, userID, expenseID, in); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: update expense: %w", ErrOperationFailed, err)
	}

	s.refresh(ctx, userID)
	s.publishChange(ctx, userID, expenseID, amqp.OpUpdated)
	return nil
}

// DeleteExpense removes an expense. Deleting an id that is already gone
// succeeds, so a retried delete does not surface an error.
func (s *ExpenseService) DeleteExpense(ctx context.Context, userID, expenseID string) error {
	if userID == "" {
		return ErrUserIDRequired
	}

	if err := s.storage.DeleteExpense(ctx, userID, expenseID); err != nil {
		return fmt.Errorf("%w: delete expense: %w", ErrOperationFailed, err)
	}

	s.refresh(ctx, userID)
	s.publishChange(ctx, userID, expenseID, amqp.OpDeleted)
	return nil
}

// ListExpenses returns the user's expenses, newest first.
func (s *ExpenseService) ListExpenses(ctx context.Context, userID string) ([]core.Expense, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}

	list, err := s.storage.ListExpenses(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list expenses: %w", ErrOperationFailed, err)
	}
	return list, nil
}

// Subscribe opens a live snapshot stream for the user. The current
// snapshot is delivered immediately, and every subsequent change delivers
// the full updated set. Slow consumers skip intermediate snapshots but
// always see the latest one. The stream ends when cancel is called or ctx
// is done. On error the returned cancel is a no-op, safe to call.
func (s *ExpenseService) Subscribe(ctx context.Context, userID string) (<-chan []core.Expense, CancelFunc, error) {
	if userID == "" {
		return nil, func() {}, ErrUserIDRequired
	}

	snapshot, err := s.storage.ListExpenses(ctx, userID)
	if err != nil {
		return nil, func() {}, fmt.Errorf("%w: load initial snapshot: %w", ErrOperationFailed, err)
	}

	ch, unsubscribe := s.hub.subscribe(userID)
	s.hub.broadcast(userID, snapshot)

	go func() {
		<-ctx.Done()
		unsubscribe()
	}()

	slog.InfoContext(ctx, "Expense subscription opened", "user_id", userID)
	return ch, CancelFunc(unsubscribe), nil
}

// RefreshUser reloads the user's expenses and rebroadcasts them. Called
// when another instance announces a change over AMQP.
func (s *ExpenseService) RefreshUser(ctx context.Context, userID string) error {
	if s.hub.subscriberCount(userID) == 0 {
		return nil
	}
	s.refresh(ctx, userID)
	return nil
}

func (s *ExpenseService) refresh(ctx context.Context, userID string) {
	if s.hub.subscriberCount(userID) == 0 {
		return
	}

	snapshot, err := s.storage.ListExpenses(ctx, userID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to reload snapshot for subscribers",
			"user_id", userID, "error", err)
		return
	}
	s.hub.broadcast(userID, snapshot)
}

func (s *ExpenseService) publishChange(ctx context.Context, userID, expenseID, op string) {
	if s.amqpClient == nil {
		return
	}

	// The write already succeeded locally, so a broker hiccup must not
	// fail the request.
	if err := s.amqpClient.PublishExpenseChanged(ctx, userID, expenseID, op); err != nil {
		slog.ErrorContext(ctx, "Failed to publish change event",
			"user_id", userID, "expense_id", expenseID, "op", op, "error", err)
	}
}

// Close closes both storage and AMQP connections.
func (s *ExpenseService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close expense service: %v", errs)
	}

	return nil
}
