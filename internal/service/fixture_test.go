package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	domain "github.com/ignatzorin/montazh-backend/internal/domain/repository"
	"github.com/ignatzorin/montazh-backend/internal/models"
	"github.com/ignatzorin/montazh-backend/internal/repository/memory"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.Event
}

func (n *recordingNotifier) Notify(_ context.Context, ev models.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) count(kind models.EventKind) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, ev := range n.events {
		if ev.Kind == kind {
			c++
		}
	}
	return c
}

type testEnv struct {
	store     *memory.Store
	profiles  *memory.Profiles
	reviews   *memory.Reviews
	notifier  *recordingNotifier
	settings  Settings
	ledger    *Ledger
	tariffs   *TariffResolver
	responses *ResponseService
	orders    *OrderService
	payments  *PaymentService
	reviewSvc *ReviewService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	e := &testEnv{
		store:    memory.NewStore(),
		profiles: memory.NewProfiles(),
		reviews:  memory.NewReviews(),
		notifier: &recordingNotifier{},
		settings: DefaultSettings(),
		ledger:   NewLedger(),
	}
	e.tariffs = NewTariffResolver(e.settings)
	e.responses = NewResponseService(e.store, e.profiles, e.tariffs, e.ledger, e.notifier, e.settings)
	e.orders = NewOrderService(e.store, e.responses, e.tariffs, e.ledger, e.notifier, nil, e.settings)
	e.payments = NewPaymentService(e.store, e.ledger, e.tariffs, e.notifier, e.settings)
	e.reviewSvc = NewReviewService(e.reviews, e.store.Orders())
	return e
}

// executor создаёт исполнителя с заполненным профилем и начальным балансом.
func (e *testEnv) executor(t *testing.T, cash, bonus int64) uuid.UUID {
	t.Helper()
	id := uuid.New()
	e.profiles.Put(models.ExecutorProfile{UserID: id, ProfileCompleted: true, IsActive: true})
	e.fund(t, id, cash, bonus)
	return id
}

func (e *testEnv) fund(t *testing.T, id uuid.UUID, cash, bonus int64) {
	t.Helper()
	err := e.store.WithinTx(context.Background(), func(tx domain.Tx) error {
		if cash > 0 {
			if _, _, err := e.ledger.Credit(context.Background(), tx.Ledger(), Posting{
				AccountID: id, Amount: decimal.NewFromInt(cash), Type: models.TransactionTopUp,
			}); err != nil {
				return err
			}
		}
		if bonus > 0 {
			if _, _, err := e.ledger.CreditBonus(context.Background(), tx.Ledger(), Posting{
				AccountID: id, Amount: decimal.NewFromInt(bonus), Type: models.TransactionTopUp,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func (e *testEnv) subscribe(t *testing.T, id uuid.UUID, tariff models.TariffType, expiresAt *time.Time) {
	t.Helper()
	require.NoError(t, e.store.Subscriptions().Save(context.Background(), &models.Subscription{
		UserID:              id,
		TariffType:          tariff,
		ExpiresAt:           expiresAt,
		SpecializationSlots: specializationSlots(tariff),
	}))
}

func (e *testEnv) balance(t *testing.T, id uuid.UUID) *models.Balance {
	t.Helper()
	b, err := e.store.Ledger().GetBalance(context.Background(), id)
	require.NoError(t, err)
	return b
}

func (e *testEnv) order(t *testing.T, id uuid.UUID) *models.Order {
	t.Helper()
	o, err := e.orders.GetOrder(context.Background(), id)
	require.NoError(t, err)
	return o
}

func (e *testEnv) response(t *testing.T, orderID, executorID uuid.UUID) *models.Response {
	t.Helper()
	r, err := e.store.Responses().GetByOrderAndExecutor(context.Background(), orderID, executorID)
	require.NoError(t, err)
	return r
}

func (e *testEnv) transactions(t *testing.T, id uuid.UUID, kind models.TransactionType) []models.Transaction {
	t.Helper()
	all, err := e.store.Ledger().AllTransactions(context.Background(), id)
	require.NoError(t, err)
	var out []models.Transaction
	for _, tx := range all {
		if tx.Type == kind {
			out = append(out, tx)
		}
	}
	return out
}

func validOrderInput(start time.Time) CreateOrderInput {
	return CreateOrderInput{
		Category:      models.CategoryAirConditioner,
		Title:         "Установка сплит-системы",
		Description:   "Две внутренние части, трасса 5 м",
		Region:        "Москва",
		Address:       "ул. Ленина, 1",
		StartDate:     start,
		Budget:        decimal.NewFromInt(12000),
		BudgetType:    models.BudgetFixed,
		PaymentMethod: models.PaymentCash,
	}
}

// publishedOrder создаёт опубликованный заказ нового заказчика.
func (e *testEnv) publishedOrder(t *testing.T) *models.Order {
	t.Helper()
	order, err := e.orders.CreateOrder(context.Background(), uuid.New(), validOrderInput(time.Now().Add(48*time.Hour)))
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusPublished, order.Status)
	return order
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

// requireOrderInvariants проверяет связь статуса заказа с executor_id и closed_at.
// Архивный заказ сохраняет исполнителя для истории.
func requireOrderInvariants(t *testing.T, o *models.Order) {
	t.Helper()
	if o.Status != models.OrderStatusArchived {
		require.Equal(t, o.Status.HasExecutor(), o.ExecutorID != nil, "executor_id при статусе %s", o.Status)
	}
	require.Equal(t, o.Status.IsClosed(), o.ClosedAt != nil, "closed_at при статусе %s", o.Status)
}
