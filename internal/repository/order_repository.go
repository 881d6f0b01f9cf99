package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	domain "github.com/ignatzorin/montazh-backend/internal/domain/repository"
	"github.com/ignatzorin/montazh-backend/internal/models"
	"github.com/ignatzorin/montazh-backend/internal/repository/common"
)

// OrderRepository отвечает за работу с заказами.
type OrderRepository struct {
	db sqlx.ExtContext
}

// NewOrderRepository создаёт новый экземпляр.
func NewOrderRepository(db sqlx.ExtContext) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create сохраняет новый заказ.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (
			id, customer_id, executor_id, category, title, description, region, address,
			latitude, longitude, start_date, end_date, budget, budget_type, payment_method,
			attachments, status, work_started_at, closed_at, created_at, updated_at
		) VALUES (
			:id, :customer_id, :executor_id, :category, :title, :description, :region, :address,
			:latitude, :longitude, :start_date, :end_date, :budget, :budget_type, :payment_method,
			:attachments, :status, :work_started_at, :closed_at, :created_at, :updated_at
		)
	`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, order); err != nil {
		return fmt.Errorf("order repository: create %w", err)
	}
	return nil
}

// GetByID возвращает заказ по идентификатору.
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := common.GetByID[models.Order](ctx, r.db, "orders", id, domain.ErrOrderNotFound, "")
	if err != nil {
		return nil, fmt.Errorf("order repository: get by id %w", err)
	}
	return order, nil
}

// GetForUpdate возвращает заказ и блокирует строку до конца транзакции.
func (r *OrderRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := common.GetByID[models.Order](ctx, r.db, "orders", id, domain.ErrOrderNotFound, "FOR UPDATE")
	if err != nil {
		return nil, fmt.Errorf("order repository: get for update %w", err)
	}
	return order, nil
}

// Update сохраняет изменяемые поля заказа при условии, что статус не изменился.
func (r *OrderRepository) Update(ctx context.Context, order *models.Order, expected models.OrderStatus) error {
	order.UpdatedAt = time.Now()
	query := `
		UPDATE orders SET
			executor_id = $3, title = $4, description = $5, region = $6, address = $7,
			latitude = $8, longitude = $9, start_date = $10, end_date = $11, budget = $12,
			budget_type = $13, payment_method = $14, attachments = $15, status = $16,
			work_started_at = $17, closed_at = $18, updated_at = $19
		WHERE id = $1 AND status = $2
	`
	res, err := r.db.ExecContext(ctx, query,
		order.ID, expected,
		order.ExecutorID, order.Title, order.Description, order.Region, order.Address,
		order.Latitude, order.Longitude, order.StartDate, order.EndDate, order.Budget,
		order.BudgetType, order.PaymentMethod, order.Attachments, order.Status,
		order.WorkStartedAt, order.ClosedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("order repository: update %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("order repository: update rows affected %w", err)
	}
	if affected == 0 {
		return domain.ErrStaleOrder
	}
	return nil
}

// ListExpiredWithoutResponses возвращает опубликованные заказы с прошедшей датой начала и без откликов.
func (r *OrderRepository) ListExpiredWithoutResponses(ctx context.Context, now time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	query := `
		SELECT o.* FROM orders o
		WHERE o.status = $1 AND o.start_date < $2
		  AND NOT EXISTS (SELECT 1 FROM responses r WHERE r.order_id = o.id)
		ORDER BY o.start_date
		LIMIT $3
	`
	if err := sqlx.SelectContext(ctx, r.db, &orders, query, models.OrderStatusPublished, now, limit); err != nil {
		return nil, fmt.Errorf("order repository: list expired %w", err)
	}
	return orders, nil
}

// ListByCustomer возвращает заказы заказчика, новые первыми.
func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]models.Order, error) {
	var orders []models.Order
	query := `SELECT * FROM orders WHERE customer_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	if err := sqlx.SelectContext(ctx, r.db, &orders, query, customerID, limit, offset); err != nil {
		return nil, fmt.Errorf("order repository: list by customer %w", err)
	}
	return orders, nil
}
