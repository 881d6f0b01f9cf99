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

const responsesOrderExecutorKey = "responses_order_executor_key"

// ResponseRepository отвечает за работу с откликами.
type ResponseRepository struct {
	db sqlx.ExtContext
}

// NewResponseRepository создаёт новый экземпляр.
func NewResponseRepository(db sqlx.ExtContext) *ResponseRepository {
	return &ResponseRepository{db: db}
}

// Create сохраняет отклик. Уникальность (order_id, executor_id) гарантирует индекс.
func (r *ResponseRepository) Create(ctx context.Context, response *models.Response) error {
	query := `
		INSERT INTO responses (
			id, order_id, executor_id, commission_paid, selection_fee_paid, tariff_type, status,
			accepted_at, rejected_at, cancelled_at, created_at, updated_at
		) VALUES (
			:id, :order_id, :executor_id, :commission_paid, :selection_fee_paid, :tariff_type, :status,
			:accepted_at, :rejected_at, :cancelled_at, :created_at, :updated_at
		)
	`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, response); err != nil {
		if common.IsUniqueViolation(err, responsesOrderExecutorKey) {
			return domain.ErrResponseExists
		}
		return fmt.Errorf("response repository: create %w", err)
	}
	return nil
}

// GetByID возвращает отклик по идентификатору.
func (r *ResponseRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Response, error) {
	response, err := common.GetByID[models.Response](ctx, r.db, "responses", id, domain.ErrResponseNotFound, "")
	if err != nil {
		return nil, fmt.Errorf("response repository: get by id %w", err)
	}
	return response, nil
}

// GetByOrderAndExecutor возвращает отклик исполнителя на заказ.
func (r *ResponseRepository) GetByOrderAndExecutor(ctx context.Context, orderID, executorID uuid.UUID) (*models.Response, error) {
	query := `SELECT * FROM responses WHERE order_id = $1 AND executor_id = $2`
	response, err := common.GetOptional[models.Response](ctx, r.db, query, orderID, executorID)
	if err != nil {
		return nil, fmt.Errorf("response repository: get by order and executor %w", err)
	}
	if response == nil {
		return nil, domain.ErrResponseNotFound
	}
	return response, nil
}

// ListByOrder возвращает отклики на заказ в порядке создания.
func (r *ResponseRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Response, error) {
	var responses []models.Response
	query := `SELECT * FROM responses WHERE order_id = $1 ORDER BY created_at, id`
	if err := sqlx.SelectContext(ctx, r.db, &responses, query, orderID); err != nil {
		return nil, fmt.Errorf("response repository: list by order %w", err)
	}
	return responses, nil
}

// ListByExecutor возвращает отклики исполнителя, новые первыми.
func (r *ResponseRepository) ListByExecutor(ctx context.Context, executorID uuid.UUID, limit, offset int) ([]models.Response, error) {
	var responses []models.Response
	query := `SELECT * FROM responses WHERE executor_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	if err := sqlx.SelectContext(ctx, r.db, &responses, query, executorID, limit, offset); err != nil {
		return nil, fmt.Errorf("response repository: list by executor %w", err)
	}
	return responses, nil
}

// CountByOrder возвращает количество откликов на заказ.
func (r *ResponseRepository) CountByOrder(ctx context.Context, orderID uuid.UUID) (int, error) {
	var count int
	if err := sqlx.GetContext(ctx, r.db, &count, `SELECT COUNT(*) FROM responses WHERE order_id = $1`, orderID); err != nil {
		return 0, fmt.Errorf("response repository: count by order %w", err)
	}
	return count, nil
}

// UpdateStatus сохраняет статус отклика, его отметки времени и плату за выбор.
// tariff_type и commission_paid после создания не меняются.
func (r *ResponseRepository) UpdateStatus(ctx context.Context, response *models.Response) error {
	response.UpdatedAt = time.Now()
	query := `
		UPDATE responses SET
			status = $2, selection_fee_paid = $3, accepted_at = $4, rejected_at = $5,
			cancelled_at = $6, updated_at = $7
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		response.ID, response.Status, response.SelectionFeePaid, response.AcceptedAt,
		response.RejectedAt, response.CancelledAt, response.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("response repository: update status %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return domain.ErrResponseNotFound
	}
	return nil
}
