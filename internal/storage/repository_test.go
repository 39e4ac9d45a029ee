package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"kharcha/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedUser(t *testing.T, repo *SQLiteRepository, email string) string {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), email)
	require.NoError(t, err)
	return u.ID
}

func testInput(name string) core.ExpenseInput {
	return core.ExpenseInput{
		Name:          name,
		Amount:        core.Money{Paise: 12500},
		Category:      core.CategoryFood,
		PaymentMethod: core.PaymentUPI,
		Date:          time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
	}
}

func TestCreateAndListExpenses(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	user := seedUser(t, repo, "dev@example.com")

	created, err := repo.CreateExpense(ctx, user, testInput("Lunch"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	list, err := repo.ListExpenses(ctx, user)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
	assert.Equal(t, "Lunch", list[0].Name)
	assert.Equal(t, int64(12500), list[0].Amount.Paise)
	assert.Equal(t, core.CategoryFood, list[0].Category)
	assert.Equal(t, core.PaymentUPI, list[0].PaymentMethod)
}

func TestCreateExpenseRequiresExistingUser(t *testing.T) {
	repo := newTestRepository(t)

	// user_id references users(id); an unknown owner must be rejected on
	// every pooled connection, not just the first.
	for i := 0; i < 5; i++ {
		_, err := repo.CreateExpense(context.Background(), "ghost", testInput("Lunch"))
		require.Error(t, err)
	}
}

func TestListExpensesOrderedByDateDescending(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	user := seedUser(t, repo, "dev@example.com")

	older := testInput("Older")
	older.Date = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	newer := testInput("Newer")
	newer.Date = time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)

	_, err := repo.CreateExpense(ctx, user, older)
	require.NoError(t, err)
	_, err = repo.CreateExpense(ctx, user, newer)
	require.NoError(t, err)

	list, err := repo.ListExpenses(ctx, user)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Newer", list[0].Name)
	assert.Equal(t, "Older", list[1].Name)
}

func TestListExpensesIsolatedPerUser(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	owner := seedUser(t, repo, "owner@example.com")
	other := seedUser(t, repo, "other@example.com")

	_, err := repo.CreateExpense(ctx, owner, testInput("Mine"))
	require.NoError(t, err)

	list, err := repo.ListExpenses(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUpdateExpense(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	user := seedUser(t, repo, "dev@example.com")

	created, err := repo.CreateExpense(ctx, user, testInput("Groceries"))
	require.NoError(t, err)

	updated := testInput("Groceries and more")
	updated.Amount = core.Money{Paise: 99900}
	updated.PaymentMethod = core.PaymentCash
	require.NoError(t, repo.UpdateExpense(ctx, user, created.ID, updated))

	list, err := repo.ListExpenses(ctx, user)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Groceries and more", list[0].Name)
	assert.Equal(t, int64(99900), list[0].Amount.Paise)
	assert.Equal(t, core.PaymentCash, list[0].PaymentMethod)
	assert.Equal(t, created.ID, list[0].ID)
	assert.Equal(t, created.CreatedAt.Unix(), list[0].CreatedAt.Unix())
}

func TestUpdateExpenseWrongUser(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	owner := seedUser(t, repo, "owner@example.com")
	other := seedUser(t, repo, "other@example.com")

	created, err := repo.CreateExpense(ctx, owner, testInput("Groceries"))
	require.NoError(t, err)

	err = repo.UpdateExpense(ctx, other, created.ID, testInput("Hijacked"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteExpenseIdempotent(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	user := seedUser(t, repo, "dev@example.com")

	created, err := repo.CreateExpense(ctx, user, testInput("Taxi"))
	require.NoError(t, err)

	require.NoError(t, repo.DeleteExpense(ctx, user, created.ID))
	require.NoError(t, repo.DeleteExpense(ctx, user, created.ID))
	require.NoError(t, repo.DeleteExpense(ctx, user, "never-existed"))

	list, err := repo.ListExpenses(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUserAndProviderLinking(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	u, err := repo.CreateUser(ctx, "dev@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, u.ID)

	_, err = repo.FindUserByProvider(ctx, "google", "g-123")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.LinkProvider(ctx, u.ID, "google", "g-123"))
	require.NoError(t, repo.LinkProvider(ctx, u.ID, "google", "g-123"))
	require.NoError(t, repo.LinkProvider(ctx, u.ID, "github", "gh-456"))

	found, err := repo.FindUserByProvider(ctx, "google", "g-123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)
	assert.Equal(t, "dev@example.com", found.Email)

	byEmail, err := repo.FindUserByEmail(ctx, "dev@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	providers, err := repo.LinkedProviders(ctx, u.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"google", "github"}, providers)
}

func TestPendingExportLifecycle(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	user := seedUser(t, repo, "dev@example.com")

	first, err := repo.CreateExpense(ctx, user, testInput("First"))
	require.NoError(t, err)
	second, err := repo.CreateExpense(ctx, user, testInput("Second"))
	require.NoError(t, err)

	pending, err := repo.PendingExportExpenses(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, user, pending[0].UserID)

	require.NoError(t, repo.MarkExported(ctx, first.ID))

	pending, err = repo.PendingExportExpenses(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].Expense.ID)

	// Editing a row re-queues it for export.
	require.NoError(t, repo.UpdateExpense(ctx, user, first.ID, testInput("First edited")))
	pending, err = repo.PendingExportExpenses(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	require.NoError(t, repo.MarkExportError(ctx, second.ID))
	pending, err = repo.PendingExportExpenses(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}
