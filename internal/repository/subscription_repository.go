package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/montazh-backend/internal/models"
	"github.com/ignatzorin/montazh-backend/internal/repository/common"
)

// SubscriptionRepository хранит тарифные подписки исполнителей.
type SubscriptionRepository struct {
	db sqlx.ExtContext
}

// NewSubscriptionRepository создаёт новый экземпляр.
func NewSubscriptionRepository(db sqlx.ExtContext) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Get возвращает подписку или nil, если её нет.
func (r *SubscriptionRepository) Get(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	sub, err := common.GetOptional[models.Subscription](ctx, r.db, `SELECT * FROM subscriptions WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("subscription repository: get %w", err)
	}
	return sub, nil
}

// Save создаёт или обновляет подписку.
func (r *SubscriptionRepository) Save(ctx context.Context, sub *models.Subscription) error {
	query := `
		INSERT INTO subscriptions (user_id, tariff_type, expires_at, specialization_slots, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			tariff_type = EXCLUDED.tariff_type,
			expires_at = EXCLUDED.expires_at,
			specialization_slots = EXCLUDED.specialization_slots,
			updated_at = NOW()
		RETURNING updated_at
	`
	if err := sqlx.GetContext(ctx, r.db, &sub.UpdatedAt, query, sub.UserID, sub.TariffType, sub.ExpiresAt, sub.SpecializationSlots); err != nil {
		return fmt.Errorf("subscription repository: save %w", err)
	}
	return nil
}
