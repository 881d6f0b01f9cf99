package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/montazh-backend/internal/models"
	"github.com/ignatzorin/montazh-backend/internal/pkg/apperror"
)

func TestCreateResponse_StandardBidChargesFee(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.publishedOrder(t)
	executor := env.executor(t, 200, 0)

	resp, err := env.responses.Create(ctx, order.ID, executor)
	require.NoError(t, err)

	assert.Equal(t, models.ResponseStatusPending, resp.Status)
	assert.Equal(t, models.TariffStandard, resp.TariffType)
	assert.True(t, resp.CommissionPaid.Equal(dec(150)))

	balance := env.balance(t, executor)
	assert.True(t, balance.Amount.Equal(dec(50)), balance.Amount.String())
	assert.True(t, balance.BonusAmount.IsZero())

	fees := env.transactions(t, executor, models.TransactionResponseFee)
	require.Len(t, fees, 1)
	assert.True(t, fees[0].Amount.Equal(dec(-150)))
	assert.Equal(t, order.ID, *fees[0].OrderID)

	assert.Equal(t, 1, env.notifier.count(models.EventResponseCreated))
	assert.Equal(t, 1, env.notifier.count(models.EventLowBalance))
}

func TestCreateResponse_InsufficientFundsLeavesNoTrace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.publishedOrder(t)
	executor := env.executor(t, 0, 100)

	_, err := env.responses.Create(ctx, order.ID, executor)
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientFunds(err))

	balance := env.balance(t, executor)
	assert.True(t, balance.Amount.IsZero())
	assert.True(t, balance.BonusAmount.Equal(dec(100)))

	_, err = env.store.Responses().GetByOrderAndExecutor(ctx, order.ID, executor)
	assert.Error(t, err)
	assert.Empty(t, env.transactions(t, executor, models.TransactionResponseFee))
}

func TestCreateResponse_BonusSpentBeforeCash(t *testing.T) {
	env := newTestEnv(t)
	order := env.publishedOrder(t)
	executor := env.executor(t, 100, 100)

	_, err := env.responses.Create(context.Background(), order.ID, executor)
	require.NoError(t, err)

	balance := env.balance(t, executor)
	assert.True(t, balance.BonusAmount.IsZero())
	assert.True(t, balance.Amount.Equal(dec(50)))

	fee := env.transactions(t, executor, models.TransactionResponseFee)[0]
	assert.True(t, fee.BonusDelta.Equal(dec(-100)))
	assert.True(t, fee.CashDelta.Equal(dec(-50)))
}

func TestCreateResponse_DuplicateIsConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.publishedOrder(t)
	executor := env.executor(t, 1000, 0)

	_, err := env.responses.Create(ctx, order.ID, executor)
	require.NoError(t, err)

	_, err = env.responses.Create(ctx, order.ID, executor)
	require.Error(t, err)
	assert.True(t, apperror.IsConflict(err))
	assert.True(t, env.balance(t, executor).Amount.Equal(dec(850)))
}

func TestCreateResponse_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("own order", func(t *testing.T) {
		env := newTestEnv(t)
		order := env.publishedOrder(t)
		env.profiles.Put(models.ExecutorProfile{UserID: order.CustomerID, ProfileCompleted: true, IsActive: true})
		env.fund(t, order.CustomerID, 1000, 0)

		_, err := env.responses.Create(ctx, order.ID, order.CustomerID)
		assert.True(t, apperror.IsIllegalState(err))
	})

	t.Run("incomplete profile", func(t *testing.T) {
		env := newTestEnv(t)
		order := env.publishedOrder(t)
		executor := uuid.New()
		env.profiles.Put(models.ExecutorProfile{UserID: executor, ProfileCompleted: false, IsActive: true})

		_, err := env.responses.Create(ctx, order.ID, executor)
		assert.True(t, apperror.IsIllegalState(err))
	})

	t.Run("unknown profile", func(t *testing.T) {
		env := newTestEnv(t)
		order := env.publishedOrder(t)

		_, err := env.responses.Create(ctx, order.ID, uuid.New())
		assert.True(t, apperror.IsIllegalState(err))
	})

	t.Run("order not published", func(t *testing.T) {
		env := newTestEnv(t)
		order := env.publishedOrder(t)
		_, err := env.orders.CancelOrder(ctx, order.ID, order.CustomerID)
		require.NoError(t, err)

		_, err = env.responses.Create(ctx, order.ID, env.executor(t, 1000, 0))
		assert.True(t, apperror.IsIllegalState(err))
	})

	t.Run("missing order", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.responses.Create(ctx, uuid.New(), env.executor(t, 1000, 0))
		assert.True(t, apperror.IsNotFound(err))
	})
}

func TestCreateResponse_PaidTariffs(t *testing.T) {
	ctx := context.Background()
	future := time.Now().Add(24 * time.Hour)
	past := time.Now().Add(-time.Hour)

	cases := []struct {
		name       string
		tariff     models.TariffType
		expiresAt  *time.Time
		wantTariff models.TariffType
		wantCash   int64
	}{
		{"comfort bids for free", models.TariffComfort, &future, models.TariffComfort, 0},
		{"active premium bids for free", models.TariffPremium, &future, models.TariffPremium, 0},
		{"expired premium pays standard fee", models.TariffPremium, &past, models.TariffStandard, -150},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			order := env.publishedOrder(t)
			executor := env.executor(t, 1000, 0)
			env.subscribe(t, executor, tc.tariff, tc.expiresAt)

			resp, err := env.responses.Create(ctx, order.ID, executor)
			require.NoError(t, err)
			assert.Equal(t, tc.wantTariff, resp.TariffType)
			assert.True(t, env.balance(t, executor).Amount.Equal(dec(1000+tc.wantCash)))
		})
	}
}

func TestCreateResponse_ConcurrentBidsNeverOverdraw(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	executor := env.executor(t, 300, 0)

	const bids = 8
	orders := make([]*models.Order, bids)
	for i := range orders {
		orders[i] = env.publishedOrder(t)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for _, o := range orders {
		wg.Add(1)
		go func(orderID uuid.UUID) {
			defer wg.Done()
			if _, err := env.responses.Create(ctx, orderID, executor); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}(o.ID)
	}
	wg.Wait()

	assert.Equal(t, 2, success)
	assert.True(t, env.balance(t, executor).Amount.IsZero())
}

func TestCreateResponse_ConcurrentDuplicatesCreateOne(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.publishedOrder(t)
	executor := env.executor(t, 5000, 0)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = env.responses.Create(ctx, order.ID, executor)
		}()
	}
	wg.Wait()

	list, err := env.store.Responses().ListByOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.True(t, env.balance(t, executor).Amount.Equal(dec(4850)))
}

func TestListForOrder_Visibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.publishedOrder(t)
	first := env.executor(t, 1000, 0)
	second := env.executor(t, 1000, 0)

	_, err := env.responses.Create(ctx, order.ID, first)
	require.NoError(t, err)
	_, err = env.responses.Create(ctx, order.ID, second)
	require.NoError(t, err)

	all, err := env.responses.ListForOrder(ctx, order.ID, order.CustomerID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	own, err := env.responses.ListForOrder(ctx, order.ID, first)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, first, own[0].ExecutorID)

	none, err := env.responses.ListForOrder(ctx, order.ID, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCanAffordBid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	poor := env.executor(t, 0, 149)
	ok, err := env.responses.CanAffordBid(ctx, poor)
	require.NoError(t, err)
	assert.False(t, ok)

	rich := env.executor(t, 50, 100)
	ok, err = env.responses.CanAffordBid(ctx, rich)
	require.NoError(t, err)
	assert.True(t, ok)

	future := time.Now().Add(time.Hour)
	env.subscribe(t, poor, models.TariffPremium, &future)
	ok, err = env.responses.CanAffordBid(ctx, poor)
	require.NoError(t, err)
	assert.True(t, ok)
}
