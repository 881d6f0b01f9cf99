package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/montazh-backend/internal/models"
)

// Ошибки хранилища, общие для всех реализаций.
var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrResponseNotFound     = errors.New("response not found")
	ErrResponseExists       = errors.New("response already exists for order and executor")
	ErrStaleOrder           = errors.New("order status changed concurrently")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrDuplicatePayment     = errors.New("external payment already applied")
	ErrReviewExists         = errors.New("review already exists")
	ErrProfileNotFound      = errors.New("executor profile not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrSerialization        = errors.New("transaction serialization failure")
)

// OrderRepository хранилище заказов.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// GetForUpdate читает заказ с блокировкой строки до конца транзакции.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// Update сохраняет изменяемые поля, только если статус в хранилище равен expected.
	// Иначе возвращает ErrStaleOrder.
	Update(ctx context.Context, order *models.Order, expected models.OrderStatus) error
	ListExpiredWithoutResponses(ctx context.Context, now time.Time, limit int) ([]models.Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]models.Order, error)
}

// ResponseRepository хранилище откликов.
type ResponseRepository interface {
	// Create возвращает ErrResponseExists при повторном отклике того же исполнителя.
	Create(ctx context.Context, response *models.Response) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Response, error)
	GetByOrderAndExecutor(ctx context.Context, orderID, executorID uuid.UUID) (*models.Response, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Response, error)
	ListByExecutor(ctx context.Context, executorID uuid.UUID, limit, offset int) ([]models.Response, error)
	CountByOrder(ctx context.Context, orderID uuid.UUID) (int, error)
	UpdateStatus(ctx context.Context, response *models.Response) error
}

// LedgerRepository хранилище балансов и журнала операций.
type LedgerRepository interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (*models.Balance, error)
	// GetBalanceForUpdate создаёт пустой баланс при отсутствии и блокирует строку.
	GetBalanceForUpdate(ctx context.Context, userID uuid.UUID) (*models.Balance, error)
	SaveBalance(ctx context.Context, balance *models.Balance) error
	// AppendTransaction возвращает ErrDuplicatePayment при повторе внешнего платежа.
	AppendTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransactionByExternalID(ctx context.Context, externalID string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error)
	// AllTransactions возвращает журнал в порядке записи.
	AllTransactions(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error)
}

// SubscriptionRepository хранилище тарифных подписок.
type SubscriptionRepository interface {
	// Get возвращает nil, nil если подписки нет.
	Get(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	Save(ctx context.Context, sub *models.Subscription) error
}

// StatsRepository счётчики завершённых заказов.
type StatsRepository interface {
	IncrementCompleted(ctx context.Context, customerID, executorID uuid.UUID) error
	Get(ctx context.Context, userID uuid.UUID) (*models.ParticipantStats, error)
}

// Tx набор репозиториев, привязанных к одной транзакции.
type Tx interface {
	Orders() OrderRepository
	Responses() ResponseRepository
	Ledger() LedgerRepository
	Subscriptions() SubscriptionRepository
	Stats() StatsRepository
}

// UnitOfWork даёт доступ к репозиториям вне транзакции и запускает транзакции.
// Внутри fn нужно использовать только репозитории из tx.
type UnitOfWork interface {
	Tx
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// ProfileRepository чтение профилей исполнителей (владелец — подсистема пользователей).
type ProfileRepository interface {
	GetExecutorProfile(ctx context.Context, userID uuid.UUID) (*models.ExecutorProfile, error)
}

// ReviewRepository хранилище отзывов (владелец — подсистема отзывов).
type ReviewRepository interface {
	// Create возвращает ErrReviewExists при повторном отзыве.
	Create(ctx context.Context, review *models.Review) error
	// GetByOrderAndReviewer возвращает nil, nil если отзыва нет.
	GetByOrderAndReviewer(ctx context.Context, orderID, reviewerID uuid.UUID) (*models.Review, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Review, error)
}

// NotificationRepository хранилище уведомлений.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}
