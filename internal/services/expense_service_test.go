package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"kharcha/internal/core"
	"kharcha/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *ExpenseService {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	svc := NewExpenseService(repo, nil)
	t.Cleanup(func() { svc.Close() })
	return svc
}

func seedUser(t *testing.T, svc *ExpenseService, email string) string {
	t.Helper()
	u, err := svc.storage.CreateUser(context.Background(), email)
	require.NoError(t, err)
	return u.ID
}

func validInput() core.ExpenseInput {
	return core.ExpenseInput{
		Name:          "Auto rickshaw",
		Amount:        core.Money{Paise: 4500},
		Category:      core.CategoryTransport,
		PaymentMethod: core.PaymentCash,
		Date:          time.Now().UTC().Truncate(24 * time.Hour),
	}
}

func receiveSnapshot(t *testing.T, ch <-chan []core.Expense) []core.Expense {
	t.Helper()
	select {
	case snapshot, ok := <-ch:
		require.True(t, ok, "subscription channel closed unexpectedly")
		return snapshot
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func TestAddExpenseRequiresUserID(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.AddExpense(context.Background(), "", validInput())
	assert.ErrorIs(t, err, ErrUserIDRequired)

	assert.ErrorIs(t, svc.UpdateExpense(context.Background(), "", "id", validInput()), ErrUserIDRequired)
	assert.ErrorIs(t, svc.DeleteExpense(context.Background(), "", "id"), ErrUserIDRequired)

	_, err = svc.ListExpenses(context.Background(), "")
	assert.ErrorIs(t, err, ErrUserIDRequired)

	_, _, err = svc.Subscribe(context.Background(), "")
	assert.ErrorIs(t, err, ErrUserIDRequired)
}

func TestSubscribeWithoutUserIDReturnsNoopCancel(t *testing.T) {
	svc := newTestService(t)

	ch, cancel, err := svc.Subscribe(context.Background(), "")
	assert.ErrorIs(t, err, ErrUserIDRequired)
	assert.Nil(t, ch)

	// The cancel handle must be callable even on the error path.
	require.NotNil(t, cancel)
	cancel()
	cancel()
}

func TestAddExpenseRejectsInvalidInput(t *testing.T) {
	svc := newTestService(t)
	user := seedUser(t, svc, "dev@example.com")

	in := validInput()
	in.Name = "x"

	_, err := svc.AddExpense(context.Background(), user, in)
	require.Error(t, err)

	var ferrs core.FieldErrors
	require.ErrorAs(t, err, &ferrs)
	assert.Contains(t, ferrs, "name")

	list, err := svc.ListExpenses(context.Background(), user)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAddThenList(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	user := seedUser(t, svc, "dev@example.com")

	created, err := svc.AddExpense(ctx, user, validInput())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	list, err := svc.ListExpenses(ctx, user)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
}

func TestSubscribeDeliversInitialAndUpdatedSnapshots(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	user := seedUser(t, svc, "dev@example.com")

	seeded, err := svc.AddExpense(ctx, user, validInput())
	require.NoError(t, err)

	ch, cancel, err := svc.Subscribe(ctx, user)
	require.NoError(t, err)
	defer cancel()

	initial := receiveSnapshot(t, ch)
	require.Len(t, initial, 1)
	assert.Equal(t, seeded.ID, initial[0].ID)

	second, err := svc.AddExpense(ctx, user, validInput())
	require.NoError(t, err)

	next := receiveSnapshot(t, ch)
	require.Len(t, next, 2)
	ids := []string{next[0].ID, next[1].ID}
	assert.Contains(t, ids, second.ID)
}

func TestSubscribeLatestWins(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	user := seedUser(t, svc, "dev@example.com")

	ch, cancel, err := svc.Subscribe(ctx, user)
	require.NoError(t, err)
	defer cancel()

	// Three writes without a read in between. The reader must see the
	// final state, not a stale intermediate snapshot.
	for i := 0; i < 3; i++ {
		_, err := svc.AddExpense(ctx, user, validInput())
		require.NoError(t, err)
	}

	snapshot := receiveSnapshot(t, ch)
	assert.Len(t, snapshot, 3)
}

func TestSubscribeCancelStopsDelivery(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	user := seedUser(t, svc, "dev@example.com")

	ch, cancel, err := svc.Subscribe(ctx, user)
	require.NoError(t, err)

	receiveSnapshot(t, ch)
	cancel()
	cancel() // second cancel is a no-op

	// Drain until the channel reports closed.
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-time.After(2 * time.Second):
			t.Fatal("channel not closed after cancel")
		}
	}
}

func TestSubscriptionsAreIsolatedPerUser(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	userA := seedUser(t, svc, "a@example.com")
	userB := seedUser(t, svc, "b@example.com")

	chA, cancelA, err := svc.Subscribe(ctx, userA)
	require.NoError(t, err)
	defer cancelA()
	chB, cancelB, err := svc.Subscribe(ctx, userB)
	require.NoError(t, err)
	defer cancelB()

	receiveSnapshot(t, chA)
	receiveSnapshot(t, chB)

	_, err = svc.AddExpense(ctx, userA, validInput())
	require.NoError(t, err)

	snapshot := receiveSnapshot(t, chA)
	assert.Len(t, snapshot, 1)

	select {
	case got := <-chB:
		t.Fatalf("second user received another user's snapshot: %v", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDeleteExpenseIdempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	user := seedUser(t, svc, "dev@example.com")

	created, err := svc.AddExpense(ctx, user, validInput())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteExpense(ctx, user, created.ID))
	require.NoError(t, svc.DeleteExpense(ctx, user, created.ID))
}

func TestUpdateExpenseNotFound(t *testing.T) {
	svc := newTestService(t)
	user := seedUser(t, svc, "dev@example.com")

	err := svc.UpdateExpense(context.Background(), user, "missing", validInput())
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestRefreshUserWithoutSubscribers(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.RefreshUser(context.Background(), "user-1"))
}
