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

const reviewsOrderReviewerKey = "reviews_order_reviewer_key"

type ReviewRepository struct {
	db *sqlx.DB
}

func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create создаёт отзыв.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	query := `
		INSERT INTO reviews (order_id, reviewer_id, reviewed_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		review.OrderID, review.ReviewerID, review.ReviewedID, review.Rating, review.Comment,
	).Scan(&review.ID, &review.CreatedAt)
	if err != nil {
		if common.IsUniqueViolation(err, reviewsOrderReviewerKey) {
			return domain.ErrReviewExists
		}
		return fmt.Errorf("review repository: create %w", err)
	}
	return nil
}

// GetByOrderAndReviewer проверяет, оставлял ли пользователь отзыв на заказ.
func (r *ReviewRepository) GetByOrderAndReviewer(ctx context.Context, orderID, reviewerID uuid.UUID) (*models.Review, error) {
	review, err := common.GetOptional[models.Review](ctx, r.db,
		`SELECT * FROM reviews WHERE order_id = $1 AND reviewer_id = $2`, orderID, reviewerID)
	if err != nil {
		return nil, fmt.Errorf("review repository: get by order and reviewer %w", err)
	}
	return review, nil
}

// ListByOrder возвращает отзывы по заказу.
func (r *ReviewRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Review, error) {
	var reviews []models.Review
	err := r.db.SelectContext(ctx, &reviews, `SELECT * FROM reviews WHERE order_id = $1 ORDER BY created_at`, orderID)
	return reviews, err
}
