package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/montazh-backend/internal/models"
	"github.com/ignatzorin/montazh-backend/internal/pkg/apperror"
)

func TestCreateOrder_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	start := time.Now().Add(24 * time.Hour)

	cases := map[string]func(in *CreateOrderInput){
		"empty title":       func(in *CreateOrderInput) { in.Title = "   " },
		"unknown category":  func(in *CreateOrderInput) { in.Category = "gardening" },
		"budget too low":    func(in *CreateOrderInput) { in.Budget = decimal.NewFromInt(2999) },
		"bad payment":       func(in *CreateOrderInput) { in.PaymentMethod = "barter" },
		"missing address":   func(in *CreateOrderInput) { in.Address = "" },
		"half coordinates":  func(in *CreateOrderInput) { lat := 55.7; in.Latitude = &lat },
		"end before start":  func(in *CreateOrderInput) { end := start.Add(-time.Hour); in.EndDate = &end },
		"missing startDate": func(in *CreateOrderInput) { in.StartDate = time.Time{} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validOrderInput(start)
			mutate(&in)
			_, err := env.orders.CreateOrder(ctx, uuid.New(), in)
			assert.True(t, apperror.IsValidation(err), err)
		})
	}

	t.Run("negotiable budget skips minimum", func(t *testing.T) {
		in := validOrderInput(start)
		in.BudgetType = models.BudgetNegotiable
		in.Budget = decimal.Zero
		order, err := env.orders.CreateOrder(ctx, uuid.New(), in)
		require.NoError(t, err)
		assert.Nil(t, order.ExecutorID)
	})
}

func TestCreateOrder_ModerationGate(t *testing.T) {
	env := newTestEnv(t)
	env.orders.settings.ModerationAutoApprove = false
	ctx := context.Background()

	order, err := env.orders.CreateOrder(ctx, uuid.New(), validOrderInput(time.Now().Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPendingModeration, order.Status)

	_, err = env.responses.Create(ctx, order.ID, env.executor(t, 1000, 0))
	assert.True(t, apperror.IsIllegalState(err))

	approved, err := env.orders.ApproveOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPublished, approved.Status)

	_, err = env.orders.ApproveOrder(ctx, order.ID)
	assert.True(t, apperror.IsIllegalState(err))
}

func TestUpdateOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.publishedOrder(t)

	_, err := env.orders.UpdateOrder(ctx, order.ID, order.CustomerID, OrderPatch{})
	assert.True(t, apperror.IsValidation(err))

	title := "  Монтаж розеток  "
	updated, err := env.orders.UpdateOrder(ctx, order.ID, order.CustomerID, OrderPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Монтаж розеток", updated.Title)

	low := decimal.NewFromInt(100)
	_, err = env.orders.UpdateOrder(ctx, order.ID, order.CustomerID, OrderPatch{Budget: &low})
	assert.True(t, apperror.IsValidation(err))
	assert.True(t, env.order(t, order.ID).Budget.Equal(dec(12000)))

	_, err = env.orders.UpdateOrder(ctx, order.ID, uuid.New(), OrderPatch{Title: &title})
	assert.True(t, apperror.IsIllegalState(err))
}

func TestCancelOrder_RefundsPendingBids(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.publishedOrder(t)
	first := env.executor(t, 150, 0)
	second := env.executor(t, 200, 0)

	_, err := env.responses.Create(ctx, order.ID, first)
	require.NoError(t, err)
	_, err = env.responses.Create(ctx, order.ID, second)
	require.NoError(t, err)

	cancelled, err := env.orders.CancelOrder(ctx, order.ID, order.CustomerID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	requireOrderInvariants(t, cancelled)

	assert.True(t, env.balance(t, first).Amount.Equal(dec(150)))
	assert.True(t, env.balance(t, second).Amount.Equal(dec(200)))
	for _, executor := range []uuid.UUID{first, second} {
		assert.Equal(t, models.ResponseStatusCancelled, env.response(t, order.ID, executor).Status)
		refunds := env.transactions(t, executor, models.TransactionRefund)
		require.Len(t, refunds, 1)
		assert.True(t, refunds[0].CashDelta.Equal(dec(150)))
	}
	assert.Equal(t, 2, env.notifier.count(models.EventResponseRefunded))
}

func TestCancelOrder_RefundGoesToCashEvenIfPaidWithBonus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.publishedOrder(t)
	executor := env.executor(t, 0, 150)

	_, err := env.responses.Create(ctx, order.ID, executor)
	require.NoError(t, err)
	_, err = env.orders.CancelOrder(ctx, order.ID, order.CustomerID)
	require.NoError(t, err)

	balance := env.balance(t, executor)
	assert.True(t, balance.Amount.Equal(dec(150)))
	assert.True(t, balance.BonusAmount.IsZero())
}

func TestCancelOrder_OnlyOwnerAndOnlyPublished(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.publishedOrder(t)

	_, err := env.orders.CancelOrder(ctx, order.ID, uuid.New())
	assert.True(t, apperror.IsIllegalState(err))

	_, err = env.orders.CancelOrder(ctx, order.ID, order.CustomerID)
	require.NoError(t, err)
	_, err = env.orders.CancelOrder(ctx, order.ID, order.CustomerID)
	assert.True(t, apperror.IsIllegalState(err))
}

func TestSelectExecutor_AcceptsWinnerRejectsSiblings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.publishedOrder(t)
	winner := env.executor(t, 1000, 0)
	loser := env.executor(t, 1000, 0)

	_, err := env.responses.Create(ctx, order.ID, winner)
	require.NoError(t, err)
	_, err = env.responses.Create(ctx, order.ID, loser)
	require.NoError(t, err)

	selected, err := env.orders.SelectExecutor(ctx, order.ID, order.CustomerID, winner)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusInProgress, selected.Status)
	require.NotNil(t, selected.ExecutorID)
	assert.Equal(t, winner, *selected.ExecutorID)

	assert.Equal(t, models.ResponseStatusAccepted, env.response(t, order.ID, winner).Status)
	assert.Equal(t, models.ResponseStatusRejected, env.response(t, order.ID, loser).Status)

	// Проигравший не получает возврат.
	assert.True(t, env.balance(t, loser).Amount.Equal(dec(850)))
	assert.Empty(t, env.transactions(t, loser, models.TransactionRefund))

	_, err = env.orders.SelectExecutor(ctx, order.ID, order.CustomerID, loser)
	assert.True(t, apperror.IsIllegalState(err))
}

func TestSelectExecutor_ConcurrentSelectionAndCancel(t *testing.T) {
	ctx := context.Background()

	for round := 0; round < 20; round++ {
		env := newTestEnv(t)
		order := env.publishedOrder(t)
		first := env.executor(t, 1000, 0)
		second := env.executor(t, 1000, 0)
		for _, executor := range []uuid.UUID{first, second} {
			_, err := env.responses.Create(ctx, order.ID, executor)
			require.NoError(t, err)
		}

		calls := []func() error{
			func() error {
				_, err := env.orders.SelectExecutor(ctx, order.ID, order.CustomerID, first)
				return err
			},
			func() error {
				_, err := env.orders.SelectExecutor(ctx, order.ID, order.CustomerID, second)
				return err
			},
			func() error {
				_, err := env.orders.CancelOrder(ctx, order.ID, order.CustomerID)
				return err
			},
		}

		var (
			wg   sync.WaitGroup
			errs = make([]error, len(calls))
		)
		for i, call := range calls {
			wg.Add(1)
			go func(i int, call func() error) {
				defer wg.Done()
				errs[i] = call()
			}(i, call)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.True(t, apperror.IsIllegalState(err) || apperror.IsConflict(err), "неожиданная ошибка: %v", err)
		}
		require.Equal(t, 1, succeeded, "раунд %d: %v", round, errs)

		final := env.order(t, order.ID)
		requireOrderInvariants(t, final)

		accepted, refunds := 0, 0
		for _, executor := range []uuid.UUID{first, second} {
			if env.response(t, order.ID, executor).Status == models.ResponseStatusAccepted {
				accepted++
			}
			refunds += len(env.transactions(t, executor, models.TransactionRefund))

			rec, err := env.payments.Reconcile(ctx, executor)
			require.NoError(t, err)
			assert.True(t, rec.Consistent)
		}

		switch final.Status {
		case models.OrderStatusCancelled:
			assert.Equal(t, 0, accepted)
			assert.Equal(t, 2, refunds)
			assert.NoError(t, errs[2])
		case models.OrderStatusInProgress:
			assert.Equal(t, 1, accepted)
			assert.Equal(t, 0, refunds)
			assert.Error(t, errs[2])
		default:
			t.Fatalf("неожиданный статус заказа %s", final.Status)
		}
	}
}

func TestSelectExecutor_Rejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.publishedOrder(t)
	executor := env.executor(t, 1000, 0)
	_, err := env.responses.Create(ctx, order.ID, executor)
	require.NoError(t, err)

	_, err = env.orders.SelectExecutor(ctx, order.ID, uuid.New(), executor)
	assert.True(t, apperror.IsIllegalState(err))

	_, err = env.orders.SelectExecutor(ctx, order.ID, order.CustomerID, uuid.New())
	assert.True(t, apperror.IsNotFound(err))

	assert.Equal(t, models.OrderStatusPublished, env.order(t, order.ID).Status)
}

func TestSelectExecutor_ComfortFee(t *testing.T) {
	ctx := context.Background()
	future := time.Now().Add(30 * 24 * time.Hour)

	t.Run("insufficient funds keeps order published", func(t *testing.T) {
		env := newTestEnv(t)
		order := env.publishedOrder(t)
		comfort := env.executor(t, 300, 199)
		env.subscribe(t, comfort, models.TariffComfort, &future)
		other := env.executor(t, 1000, 0)

		resp, err := env.responses.Create(ctx, order.ID, comfort)
		require.NoError(t, err)
		assert.True(t, resp.CommissionPaid.IsZero())
		_, err = env.responses.Create(ctx, order.ID, other)
		require.NoError(t, err)

		_, err = env.orders.SelectExecutor(ctx, order.ID, order.CustomerID, comfort)
		require.Error(t, err)
		assert.True(t, apperror.IsInsufficientFunds(err))

		current := env.order(t, order.ID)
		assert.Equal(t, models.OrderStatusPublished, current.Status)
		assert.Nil(t, current.ExecutorID)
		assert.Equal(t, models.ResponseStatusPending, env.response(t, order.ID, comfort).Status)
		assert.Equal(t, models.ResponseStatusPending, env.response(t, order.ID, other).Status)
		assert.True(t, env.balance(t, comfort).Total().Equal(dec(499)))
	})

	t.Run("fee charged once on selection", func(t *testing.T) {
		env := newTestEnv(t)
		order := env.publishedOrder(t)
		comfort := env.executor(t, 400, 100)
		env.subscribe(t, comfort, models.TariffComfort, &future)

		_, err := env.responses.Create(ctx, order.ID, comfort)
		require.NoError(t, err)
		_, err = env.orders.SelectExecutor(ctx, order.ID, order.CustomerID, comfort)
		require.NoError(t, err)

		balance := env.balance(t, comfort)
		assert.True(t, balance.Total().IsZero())
		resp := env.response(t, order.ID, comfort)
		assert.True(t, resp.SelectionFeePaid.Equal(dec(500)))
		fees := env.transactions(t, comfort, models.TransactionOrderFee)
		require.Len(t, fees, 1)
		assert.True(t, fees[0].Amount.Equal(dec(-500)))
	})
}

func TestCancelWork_ReturnsOrderToPublication(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	future := time.Now().Add(30 * 24 * time.Hour)
	order := env.publishedOrder(t)
	comfort := env.executor(t, 600, 0)
	env.subscribe(t, comfort, models.TariffComfort, &future)
	sibling := env.executor(t, 1000, 0)

	_, err := env.responses.Create(ctx, order.ID, comfort)
	require.NoError(t, err)
	_, err = env.responses.Create(ctx, order.ID, sibling)
	require.NoError(t, err)
	_, err = env.orders.SelectExecutor(ctx, order.ID, order.CustomerID, comfort)
	require.NoError(t, err)
	require.Equal(t, models.ResponseStatusRejected, env.response(t, order.ID, sibling).Status)

	reopened, err := env.orders.CancelWork(ctx, order.ID, comfort, "заболел")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPublished, reopened.Status)
	assert.Nil(t, reopened.ExecutorID)
	assert.Nil(t, reopened.WorkStartedAt)

	assert.Equal(t, models.ResponseStatusCancelled, env.response(t, order.ID, comfort).Status)
	restored := env.response(t, order.ID, sibling)
	assert.Equal(t, models.ResponseStatusPending, restored.Status)
	assert.Nil(t, restored.RejectedAt)

	assert.True(t, env.balance(t, sibling).Amount.Equal(dec(850)))
	assert.True(t, env.balance(t, comfort).Amount.Equal(dec(100)))
	assert.Empty(t, env.transactions(t, sibling, models.TransactionRefund))
	assert.Equal(t, 1, env.notifier.count(models.EventWorkCancelled))

	// Заказ снова можно отдать восстановленному исполнителю.
	_, err = env.orders.SelectExecutor(ctx, order.ID, order.CustomerID, sibling)
	require.NoError(t, err)
}

func TestStartWork_SecondCallAlreadyStarted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.publishedOrder(t)
	executor := env.executor(t, 1000, 0)
	_, err := env.responses.Create(ctx, order.ID, executor)
	require.NoError(t, err)

	_, err = env.orders.StartWork(ctx, order.ID, executor)
	assert.True(t, apperror.IsIllegalState(err))

	_, err = env.orders.SelectExecutor(ctx, order.ID, order.CustomerID, executor)
	require.NoError(t, err)

	_, err = env.orders.StartWork(ctx, order.ID, uuid.New())
	assert.True(t, apperror.IsIllegalState(err))

	started, err := env.orders.StartWork(ctx, order.ID, executor)
	require.NoError(t, err)
	require.NotNil(t, started.WorkStartedAt)
	first := *started.WorkStartedAt

	_, err = env.orders.StartWork(ctx, order.ID, executor)
	assert.True(t, apperror.IsAlreadyStarted(err))
	assert.Equal(t, first, *env.order(t, order.ID).WorkStartedAt)
}

func TestCompleteOrder_ClosesAndCounts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.publishedOrder(t)
	executor := env.executor(t, 1000, 0)
	_, err := env.responses.Create(ctx, order.ID, executor)
	require.NoError(t, err)
	_, err = env.orders.SelectExecutor(ctx, order.ID, order.CustomerID, executor)
	require.NoError(t, err)

	_, err = env.orders.CompleteOrder(ctx, order.ID, order.CustomerID)
	assert.True(t, apperror.IsIllegalState(err))

	completed, err := env.orders.CompleteOrder(ctx, order.ID, executor)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, completed.Status)
	assert.NotNil(t, completed.ClosedAt)
	assert.Equal(t, executor, *completed.ExecutorID)

	customerStats, err := env.store.Stats().Get(ctx, order.CustomerID)
	require.NoError(t, err)
	assert.Equal(t, 1, customerStats.CompletedAsCustomer)
	executorStats, err := env.store.Stats().Get(ctx, executor)
	require.NoError(t, err)
	assert.Equal(t, 1, executorStats.CompletedAsExecutor)

	_, err = env.orders.CompleteOrder(ctx, order.ID, executor)
	assert.True(t, apperror.IsIllegalState(err))

	archived, err := env.orders.ArchiveOrder(ctx, order.ID, order.CustomerID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusArchived, archived.Status)
	assert.NotNil(t, archived.ExecutorID)
}

func TestArchiveOrder_RequiresClosedOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.publishedOrder(t)

	_, err := env.orders.ArchiveOrder(ctx, order.ID, order.CustomerID)
	assert.True(t, apperror.IsIllegalState(err))

	_, err = env.orders.CancelOrder(ctx, order.ID, order.CustomerID)
	require.NoError(t, err)
	archived, err := env.orders.ArchiveOrder(ctx, order.ID, order.CustomerID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusArchived, archived.Status)
}

func TestAutoCloseExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer := uuid.New()

	expired, err := env.orders.CreateOrder(ctx, customer, validOrderInput(time.Now().Add(-time.Hour)))
	require.NoError(t, err)
	withBid, err := env.orders.CreateOrder(ctx, customer, validOrderInput(time.Now().Add(-time.Hour)))
	require.NoError(t, err)
	_, err = env.responses.Create(ctx, withBid.ID, env.executor(t, 1000, 0))
	require.NoError(t, err)
	upcoming := env.publishedOrder(t)

	closed, err := env.orders.AutoCloseExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	assert.Equal(t, models.OrderStatusCancelled, env.order(t, expired.ID).Status)
	assert.Equal(t, models.OrderStatusPublished, env.order(t, withBid.ID).Status)
	assert.Equal(t, models.OrderStatusPublished, env.order(t, upcoming.ID).Status)

	closed, err = env.orders.AutoCloseExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, closed)
}

func TestListCustomerOrders(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer := uuid.New()
	for i := 0; i < 3; i++ {
		_, err := env.orders.CreateOrder(ctx, customer, validOrderInput(time.Now().Add(time.Hour)))
		require.NoError(t, err)
	}
	env.publishedOrder(t)

	list, err := env.orders.ListCustomerOrders(ctx, customer, 2, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = env.orders.ListCustomerOrders(ctx, customer, 0, 0)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}
