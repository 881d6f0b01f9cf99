package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	domain "github.com/ignatzorin/montazh-backend/internal/domain/repository"
	"github.com/ignatzorin/montazh-backend/internal/models"
	"github.com/ignatzorin/montazh-backend/internal/repository/common"
)

// ProfileRepository читает профили исполнителей, которые ведёт сервис пользователей.
type ProfileRepository struct {
	db *sqlx.DB
}

func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetExecutorProfile возвращает профиль исполнителя.
func (r *ProfileRepository) GetExecutorProfile(ctx context.Context, userID uuid.UUID) (*models.ExecutorProfile, error) {
	profile, err := common.GetOptional[models.ExecutorProfile](ctx, r.db,
		`SELECT user_id, profile_completed, is_active FROM executor_profiles WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("profile repository: get executor profile %w", err)
	}
	if profile == nil {
		return nil, domain.ErrProfileNotFound
	}
	return profile, nil
}
