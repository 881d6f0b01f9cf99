package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	domain "github.com/ignatzorin/montazh-backend/internal/domain/repository"
	"github.com/ignatzorin/montazh-backend/internal/logger"
	"github.com/ignatzorin/montazh-backend/internal/models"
	"github.com/ignatzorin/montazh-backend/internal/pkg/apperror"
)

// ResponseService ведёт отклики исполнителей на заказы.
// Переходы accept/reject/cancel/restore вызываются только из OrderService.
type ResponseService struct {
	uow      domain.UnitOfWork
	profiles domain.ProfileRepository
	tariffs  *TariffResolver
	ledger   *Ledger
	notifier Notifier

	lowBalanceThreshold decimal.Decimal
	now                 func() time.Time
}

func NewResponseService(
	uow domain.UnitOfWork,
	profiles domain.ProfileRepository,
	tariffs *TariffResolver,
	ledger *Ledger,
	notifier Notifier,
	settings Settings,
) *ResponseService {
	return &ResponseService{
		uow:                 uow,
		profiles:            profiles,
		tariffs:             tariffs,
		ledger:              ledger,
		notifier:            notifier,
		lowBalanceThreshold: settings.StandardBidFee,
		now:                 time.Now,
	}
}

// Create создаёт отклик исполнителя и списывает плату за отклик по тарифу.
func (s *ResponseService) Create(ctx context.Context, orderID, executorID uuid.UUID) (*models.Response, error) {
	if err := s.checkExecutor(ctx, executorID); err != nil {
		return nil, err
	}

	var (
		response *models.Response
		events   []models.Event
	)
	err := s.uow.WithinTx(ctx, func(tx domain.Tx) error {
		order, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != models.OrderStatusPublished {
			return apperror.IllegalState("заказ не принимает отклики")
		}
		if order.CustomerID == executorID {
			return apperror.IllegalState("нельзя откликнуться на собственный заказ")
		}

		if _, err := tx.Responses().GetByOrderAndExecutor(ctx, orderID, executorID); err == nil {
			return apperror.ErrDuplicateResponse
		} else if !errors.Is(err, domain.ErrResponseNotFound) {
			return err
		}

		sub, err := tx.Subscriptions().Get(ctx, executorID)
		if err != nil {
			return err
		}
		pricing := s.tariffs.Resolve(sub)

		commission := decimal.Zero
		if pricing.BidFee.IsPositive() {
			_, balance, err := s.ledger.Debit(ctx, tx.Ledger(), Posting{
				AccountID:   executorID,
				Amount:      pricing.BidFee,
				Type:        models.TransactionResponseFee,
				Description: fmt.Sprintf("Отклик на заказ «%s»", order.Title),
				OrderID:     &order.ID,
			})
			if err != nil {
				return err
			}
			commission = pricing.BidFee
			events = append(events, s.lowBalanceEvents(balance)...)
		}

		now := s.now()
		response = &models.Response{
			ID:               uuid.New(),
			OrderID:          order.ID,
			ExecutorID:       executorID,
			CommissionPaid:   commission,
			SelectionFeePaid: decimal.Zero,
			TariffType:       pricing.Tariff,
			Status:           models.ResponseStatusPending,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := tx.Responses().Create(ctx, response); err != nil {
			return err
		}

		events = append(events, models.Event{
			Kind:        models.EventResponseCreated,
			RecipientID: order.CustomerID,
			Payload: map[string]any{
				"order_id":    order.ID,
				"response_id": response.ID,
				"executor_id": executorID,
			},
		})
		return nil
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	logger.Order(orderID).WithFields(logrus.Fields{
		"response_id": response.ID,
		"executor_id": executorID,
		"tariff":      response.TariffType,
		"commission":  response.CommissionPaid.StringFixed(2),
	}).Info("отклик создан")

	emit(ctx, s.notifier, events)
	return response, nil
}

func (s *ResponseService) checkExecutor(ctx context.Context, executorID uuid.UUID) error {
	profile, err := s.profiles.GetExecutorProfile(ctx, executorID)
	if errors.Is(err, domain.ErrProfileNotFound) {
		return apperror.IllegalState("профиль исполнителя не найден")
	}
	if err != nil {
		return err
	}
	if !profile.ProfileCompleted {
		return apperror.IllegalState("заполните профиль исполнителя, чтобы откликаться на заказы")
	}
	if !profile.IsActive {
		return apperror.IllegalState("профиль исполнителя не активен")
	}
	return nil
}

// ListForOrder возвращает отклики на заказ: заказчику все, исполнителю только свой.
func (s *ResponseService) ListForOrder(ctx context.Context, orderID, viewerID uuid.UUID) ([]models.Response, error) {
	order, err := s.uow.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if order.CustomerID == viewerID {
		list, err := s.uow.Responses().ListByOrder(ctx, orderID)
		return list, mapRepoError(err)
	}

	own, err := s.uow.Responses().GetByOrderAndExecutor(ctx, orderID, viewerID)
	if errors.Is(err, domain.ErrResponseNotFound) {
		return []models.Response{}, nil
	}
	if err != nil {
		return nil, mapRepoError(err)
	}
	return []models.Response{*own}, nil
}

// ListMine возвращает отклики исполнителя.
func (s *ResponseService) ListMine(ctx context.Context, executorID uuid.UUID, limit, offset int) ([]models.Response, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.uow.Responses().ListByExecutor(ctx, executorID, limit, offset)
}

// CanAffordBid сообщает, хватит ли исполнителю средств на следующий отклик.
func (s *ResponseService) CanAffordBid(ctx context.Context, executorID uuid.UUID) (bool, error) {
	return s.tariffs.CanAffordBid(ctx, s.uow, executorID)
}

func (s *ResponseService) accept(ctx context.Context, tx domain.Tx, r *models.Response) error {
	return s.transition(ctx, tx, r, models.ResponseStatusAccepted)
}

func (s *ResponseService) reject(ctx context.Context, tx domain.Tx, r *models.Response) error {
	return s.transition(ctx, tx, r, models.ResponseStatusRejected)
}

func (s *ResponseService) cancel(ctx context.Context, tx domain.Tx, r *models.Response) error {
	return s.transition(ctx, tx, r, models.ResponseStatusCancelled)
}

// restore возвращает отклонённый отклик в ожидание без повторной платы.
func (s *ResponseService) restore(ctx context.Context, tx domain.Tx, r *models.Response) error {
	return s.transition(ctx, tx, r, models.ResponseStatusPending)
}

func (s *ResponseService) transition(ctx context.Context, tx domain.Tx, r *models.Response, next models.ResponseStatus) error {
	if !r.Status.CanTransitionTo(next) {
		return apperror.IllegalState(fmt.Sprintf("недопустимый переход отклика: %s -> %s", r.Status, next))
	}

	now := s.now()
	switch next {
	case models.ResponseStatusAccepted:
		r.AcceptedAt = &now
	case models.ResponseStatusRejected:
		r.RejectedAt = &now
	case models.ResponseStatusCancelled:
		r.CancelledAt = &now
	case models.ResponseStatusPending:
		r.RejectedAt = nil
	}
	r.Status = next

	return tx.Responses().UpdateStatus(ctx, r)
}

func (s *ResponseService) lowBalanceEvents(balance *models.Balance) []models.Event {
	if balance == nil || !balance.Total().LessThan(s.lowBalanceThreshold) {
		return nil
	}
	return []models.Event{{
		Kind:        models.EventLowBalance,
		RecipientID: balance.UserID,
		Payload: map[string]any{
			"amount":       balance.Amount.StringFixed(2),
			"bonus_amount": balance.BonusAmount.StringFixed(2),
		},
	}}
}
