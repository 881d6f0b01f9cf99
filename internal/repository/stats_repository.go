package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/montazh-backend/internal/models"
	"github.com/ignatzorin/montazh-backend/internal/repository/common"
)

// StatsRepository ведёт счётчики завершённых заказов.
type StatsRepository struct {
	db sqlx.ExtContext
}

// NewStatsRepository создаёт новый экземпляр.
func NewStatsRepository(db sqlx.ExtContext) *StatsRepository {
	return &StatsRepository{db: db}
}

// IncrementCompleted увеличивает счётчики заказчика и исполнителя.
func (r *StatsRepository) IncrementCompleted(ctx context.Context, customerID, executorID uuid.UUID) error {
	query := `
		INSERT INTO participant_stats (user_id, completed_as_customer, completed_as_executor)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			completed_as_customer = participant_stats.completed_as_customer + EXCLUDED.completed_as_customer,
			completed_as_executor = participant_stats.completed_as_executor + EXCLUDED.completed_as_executor,
			updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, customerID, 1, 0); err != nil {
		return fmt.Errorf("stats repository: increment customer %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, executorID, 0, 1); err != nil {
		return fmt.Errorf("stats repository: increment executor %w", err)
	}
	return nil
}

// Get возвращает счётчики пользователя, нулевые если записей нет.
func (r *StatsRepository) Get(ctx context.Context, userID uuid.UUID) (*models.ParticipantStats, error) {
	stats, err := common.GetOptional[models.ParticipantStats](ctx, r.db, `SELECT * FROM participant_stats WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("stats repository: get %w", err)
	}
	if stats == nil {
		return &models.ParticipantStats{UserID: userID}, nil
	}
	return stats, nil
}
