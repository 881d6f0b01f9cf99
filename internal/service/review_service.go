package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	domain "github.com/ignatzorin/montazh-backend/internal/domain/repository"
	"github.com/ignatzorin/montazh-backend/internal/logger"
	"github.com/ignatzorin/montazh-backend/internal/models"
	"github.com/ignatzorin/montazh-backend/internal/pkg/apperror"
	"github.com/ignatzorin/montazh-backend/internal/validation"
)

type OrderRepoForReview interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

// ReviewEligibility ответ на вопрос «может ли пользователь оставить отзыв».
type ReviewEligibility struct {
	Eligible   bool       `json:"eligible"`
	Reason     string     `json:"reason,omitempty"`
	RevieweeID *uuid.UUID `json:"reviewee_id,omitempty"`
}

type ReviewService struct {
	repo   domain.ReviewRepository
	orders OrderRepoForReview
}

func NewReviewService(repo domain.ReviewRepository, orders OrderRepoForReview) *ReviewService {
	return &ReviewService{repo: repo, orders: orders}
}

// CanReview проверяет право на отзыв: заказ завершён, пользователь участник, отзыва ещё нет.
// Адресат отзыва всегда второй участник заказа.
func (s *ReviewService) CanReview(ctx context.Context, orderID, userID uuid.UUID) (*ReviewEligibility, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	if order.Status != models.OrderStatusCompleted {
		return &ReviewEligibility{Reason: "отзыв можно оставить только после завершения заказа"}, nil
	}

	reviewee, ok := counterparty(order, userID)
	if !ok {
		return &ReviewEligibility{Reason: "вы не участник этого заказа"}, nil
	}

	existing, err := s.repo.GetByOrderAndReviewer(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &ReviewEligibility{Reason: "вы уже оставили отзыв на этот заказ"}, nil
	}

	return &ReviewEligibility{Eligible: true, RevieweeID: &reviewee}, nil
}

// CreateReview создаёт отзыв после завершения заказа.
func (s *ReviewService) CreateReview(ctx context.Context, orderID, reviewerID uuid.UUID, rating int, comment *string) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, apperror.Validation("рейтинг должен быть от 1 до 5")
	}
	if err := validation.ValidateReviewComment(comment); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	if comment != nil {
		trimmed := strings.TrimSpace(*comment)
		comment = &trimmed
	}

	eligibility, err := s.CanReview(ctx, orderID, reviewerID)
	if err != nil {
		return nil, err
	}
	if !eligibility.Eligible {
		return nil, apperror.IllegalState(eligibility.Reason)
	}

	review := &models.Review{
		OrderID:    orderID,
		ReviewerID: reviewerID,
		ReviewedID: *eligibility.RevieweeID,
		Rating:     rating,
		Comment:    comment,
	}
	if err := s.repo.Create(ctx, review); err != nil {
		return nil, mapRepoError(err)
	}

	logger.Order(orderID).WithField("reviewer_id", reviewerID).Info("отзыв создан")
	return review, nil
}

// ListByOrder возвращает отзывы по заказу.
func (s *ReviewService) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Review, error) {
	return s.repo.ListByOrder(ctx, orderID)
}

func counterparty(order *models.Order, userID uuid.UUID) (uuid.UUID, bool) {
	if order.ExecutorID == nil {
		return uuid.Nil, false
	}
	switch userID {
	case order.CustomerID:
		return *order.ExecutorID, true
	case *order.ExecutorID:
		return order.CustomerID, true
	}
	return uuid.Nil, false
}
