package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	domain "github.com/ignatzorin/montazh-backend/internal/domain/repository"
	"github.com/ignatzorin/montazh-backend/internal/goroutine"
	"github.com/ignatzorin/montazh-backend/internal/logger"
	"github.com/ignatzorin/montazh-backend/internal/models"
	"github.com/ignatzorin/montazh-backend/internal/pkg/apperror"
	"github.com/ignatzorin/montazh-backend/internal/validation"
)

const expiredSweepBatch = 100

// AttachmentCleaner удаляет файлы заказа после его завершения.
type AttachmentCleaner interface {
	RemoveOrderAttachments(ctx context.Context, orderID uuid.UUID, files []string) error
}

// CreateOrderInput данные нового заказа.
type CreateOrderInput struct {
	Category      string
	Title         string
	Description   string
	Region        string
	Address       string
	Latitude      *float64
	Longitude     *float64
	StartDate     time.Time
	EndDate       *time.Time
	Budget        decimal.Decimal
	BudgetType    models.BudgetType
	PaymentMethod models.PaymentMethod
	Attachments   []string
}

// OrderPatch частичное изменение заказа. nil означает «не менять».
type OrderPatch struct {
	Title         *string
	Description   *string
	Region        *string
	Address       *string
	StartDate     *time.Time
	EndDate       *time.Time
	Budget        *decimal.Decimal
	BudgetType    *models.BudgetType
	PaymentMethod *models.PaymentMethod
}

// IsEmpty сообщает, что в патче нет ни одного поля.
func (p OrderPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Region == nil && p.Address == nil &&
		p.StartDate == nil && p.EndDate == nil && p.Budget == nil && p.BudgetType == nil &&
		p.PaymentMethod == nil
}

func (p OrderPatch) apply(o *models.Order) {
	if p.Title != nil {
		o.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		o.Description = strings.TrimSpace(*p.Description)
	}
	if p.Region != nil {
		o.Region = strings.TrimSpace(*p.Region)
	}
	if p.Address != nil {
		o.Address = strings.TrimSpace(*p.Address)
	}
	if p.StartDate != nil {
		o.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		end := *p.EndDate
		o.EndDate = &end
	}
	if p.Budget != nil {
		o.Budget = *p.Budget
	}
	if p.BudgetType != nil {
		o.BudgetType = *p.BudgetType
	}
	if p.PaymentMethod != nil {
		o.PaymentMethod = *p.PaymentMethod
	}
}

// OrderService жизненный цикл заказа: публикация, выбор исполнителя, работа, закрытие.
type OrderService struct {
	uow         domain.UnitOfWork
	responses   *ResponseService
	tariffs     *TariffResolver
	ledger      *Ledger
	notifier    Notifier
	attachments AttachmentCleaner
	settings    Settings
	now         func() time.Time
}

func NewOrderService(
	uow domain.UnitOfWork,
	responses *ResponseService,
	tariffs *TariffResolver,
	ledger *Ledger,
	notifier Notifier,
	attachments AttachmentCleaner,
	settings Settings,
) *OrderService {
	return &OrderService{
		uow:         uow,
		responses:   responses,
		tariffs:     tariffs,
		ledger:      ledger,
		notifier:    notifier,
		attachments: attachments,
		settings:    settings,
		now:         time.Now,
	}
}

// CreateOrder создаёт заказ. При выключенной автомодерации заказ ждёт одобрения.
func (s *OrderService) CreateOrder(ctx context.Context, customerID uuid.UUID, in CreateOrderInput) (*models.Order, error) {
	now := s.now()
	order := &models.Order{
		ID:            uuid.New(),
		CustomerID:    customerID,
		Category:      strings.TrimSpace(in.Category),
		Title:         strings.TrimSpace(in.Title),
		Description:   strings.TrimSpace(in.Description),
		Region:        strings.TrimSpace(in.Region),
		Address:       strings.TrimSpace(in.Address),
		Latitude:      in.Latitude,
		Longitude:     in.Longitude,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
		Budget:        in.Budget,
		BudgetType:    in.BudgetType,
		PaymentMethod: in.PaymentMethod,
		Attachments:   append([]string{}, in.Attachments...),
		Status:        models.OrderStatusPublished,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if order.BudgetType == "" {
		order.BudgetType = models.BudgetFixed
	}
	if !s.settings.ModerationAutoApprove {
		order.Status = models.OrderStatusPendingModeration
	}

	if err := s.validateOrder(order); err != nil {
		return nil, err
	}

	if err := s.uow.Orders().Create(ctx, order); err != nil {
		return nil, mapRepoError(err)
	}

	logger.Order(order.ID).WithFields(logrus.Fields{
		"customer_id": customerID,
		"status":      order.Status,
	}).Info("заказ создан")
	return order, nil
}

func (s *OrderService) validateOrder(o *models.Order) error {
	for _, check := range []error{
		validation.ValidateOrderTitle(o.Title),
		validation.ValidateOrderDescription(o.Description),
		validation.ValidateLocation(o.Region, o.Address),
		validation.ValidateAttachments(o.Attachments),
	} {
		if check != nil {
			return apperror.Validation(check.Error())
		}
	}
	if _, ok := models.ValidCategories[o.Category]; !ok {
		return apperror.Validation("неизвестная категория работ")
	}
	if (o.Latitude == nil) != (o.Longitude == nil) {
		return apperror.Validation("координаты задаются парой")
	}
	if o.Latitude != nil && (*o.Latitude < -90 || *o.Latitude > 90 || *o.Longitude < -180 || *o.Longitude > 180) {
		return apperror.Validation("некорректные координаты")
	}
	if o.StartDate.IsZero() {
		return apperror.Validation("укажите дату начала работ")
	}
	if o.EndDate != nil && o.EndDate.Before(o.StartDate) {
		return apperror.Validation("дата окончания раньше даты начала")
	}
	if _, ok := models.ValidPaymentMethods[o.PaymentMethod]; !ok {
		return apperror.Validation("неизвестный способ оплаты")
	}
	if o.Budget.IsNegative() {
		return apperror.Validation("бюджет не может быть отрицательным")
	}
	switch o.BudgetType {
	case models.BudgetFixed:
		if o.Budget.LessThan(s.settings.MinOrderBudget) {
			return apperror.Validation(fmt.Sprintf("минимальный бюджет заказа %s", s.settings.MinOrderBudget.StringFixed(0)))
		}
	case models.BudgetNegotiable:
	default:
		return apperror.Validation("неизвестный вид бюджета")
	}
	return nil
}

// ApproveOrder публикует заказ после модерации.
func (s *OrderService) ApproveOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := s.uow.WithinTx(ctx, func(tx domain.Tx) error {
		var err error
		order, err = tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != models.OrderStatusPendingModeration {
			return apperror.IllegalState("заказ не ожидает модерации")
		}
		order.Status = models.OrderStatusPublished
		return tx.Orders().Update(ctx, order, models.OrderStatusPendingModeration)
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	logger.Order(orderID).Info("заказ одобрен модератором")
	return order, nil
}

// UpdateOrder применяет патч к заказу, пока он не взят в работу.
func (s *OrderService) UpdateOrder(ctx context.Context, orderID, customerID uuid.UUID, patch OrderPatch) (*models.Order, error) {
	if patch.IsEmpty() {
		return nil, apperror.Validation("нет полей для изменения")
	}

	var order *models.Order
	err := s.uow.WithinTx(ctx, func(tx domain.Tx) error {
		var err error
		order, err = tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.CustomerID != customerID {
			return apperror.IllegalState("заказ принадлежит другому заказчику")
		}
		expected := order.Status
		if expected != models.OrderStatusPublished && expected != models.OrderStatusPendingModeration {
			return apperror.IllegalState("заказ нельзя изменить в текущем статусе")
		}

		patch.apply(order)
		if err := s.validateOrder(order); err != nil {
			return err
		}
		return tx.Orders().Update(ctx, order, expected)
	})
	if err != nil {
		return nil, mapRepoError(err)
	}
	return order, nil
}

// SelectExecutor выбирает исполнителя из ожидающих откликов.
// Плата за выбор (COMFORT), назначение, принятие победителя и отклонение остальных
// выполняются в одной транзакции.
func (s *OrderService) SelectExecutor(ctx context.Context, orderID, customerID, executorID uuid.UUID) (*models.Order, error) {
	var (
		order  *models.Order
		events []models.Event
	)
	err := s.uow.WithinTx(ctx, func(tx domain.Tx) error {
		var err error
		order, err = tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.CustomerID != customerID {
			return apperror.IllegalState("выбрать исполнителя может только владелец заказа")
		}
		if order.Status != models.OrderStatusPublished {
			return apperror.IllegalState("исполнителя можно выбрать только для опубликованного заказа")
		}

		responses, err := tx.Responses().ListByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		var winner *models.Response
		for i := range responses {
			if responses[i].ExecutorID == executorID {
				winner = &responses[i]
				break
			}
		}
		if winner == nil {
			return apperror.ErrResponseNotFound
		}
		if winner.Status != models.ResponseStatusPending {
			return apperror.IllegalState("отклик исполнителя не ожидает решения")
		}

		fee := s.tariffs.SelectionFeeFor(winner.TariffType)
		if fee.IsPositive() && winner.SelectionFeePaid.IsZero() {
			_, balance, err := s.ledger.Debit(ctx, tx.Ledger(), Posting{
				AccountID:   executorID,
				Amount:      fee,
				Type:        models.TransactionOrderFee,
				Description: fmt.Sprintf("Выбор исполнителем заказа «%s»", order.Title),
				OrderID:     &order.ID,
			})
			if err != nil {
				return err
			}
			winner.SelectionFeePaid = fee
			events = append(events, s.responses.lowBalanceEvents(balance)...)
		}

		order.ExecutorID = &executorID
		order.Status = models.OrderStatusInProgress
		if err := tx.Orders().Update(ctx, order, models.OrderStatusPublished); err != nil {
			return err
		}

		if err := s.responses.accept(ctx, tx, winner); err != nil {
			return err
		}
		events = append(events, responseEvent(models.EventResponseAccepted, order, winner))

		for i := range responses {
			r := &responses[i]
			if r.ID == winner.ID || r.Status != models.ResponseStatusPending {
				continue
			}
			if err := s.responses.reject(ctx, tx, r); err != nil {
				return err
			}
			events = append(events, responseEvent(models.EventResponseRejected, order, r))
		}
		return nil
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	logger.Order(orderID).WithField("executor_id", executorID).Info("исполнитель выбран")
	emit(ctx, s.notifier, events)
	return order, nil
}

// StartWork отмечает начало работ назначенным исполнителем. Повторный вызов даёт ErrAlreadyStarted.
func (s *OrderService) StartWork(ctx context.Context, orderID, executorID uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := s.uow.WithinTx(ctx, func(tx domain.Tx) error {
		var err error
		order, err = tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := requireAssigned(order, executorID); err != nil {
			return err
		}
		if order.IsWorkStarted() {
			return apperror.ErrAlreadyStarted
		}
		now := s.now()
		order.WorkStartedAt = &now
		return tx.Orders().Update(ctx, order, models.OrderStatusInProgress)
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	logger.Order(orderID).WithField("executor_id", executorID).Info("работа начата")
	s.notifier.Notify(ctx, models.Event{
		Kind:        models.EventWorkStarted,
		RecipientID: order.CustomerID,
		Payload:     map[string]any{"order_id": order.ID, "executor_id": executorID},
	})
	return order, nil
}

// CancelWork возвращает заказ в публикацию после отказа исполнителя.
// Отклик исполнителя отменяется, отклонённые отклики других исполнителей снова ожидают решения.
func (s *OrderService) CancelWork(ctx context.Context, orderID, executorID uuid.UUID, reason string) (*models.Order, error) {
	if err := validation.ValidateCancelReason(reason); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	reason = strings.TrimSpace(reason)

	var (
		order  *models.Order
		events []models.Event
	)
	err := s.uow.WithinTx(ctx, func(tx domain.Tx) error {
		var err error
		order, err = tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := requireAssigned(order, executorID); err != nil {
			return err
		}

		order.Status = models.OrderStatusPublished
		order.ExecutorID = nil
		order.WorkStartedAt = nil
		if err := tx.Orders().Update(ctx, order, models.OrderStatusInProgress); err != nil {
			return err
		}

		responses, err := tx.Responses().ListByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		for i := range responses {
			r := &responses[i]
			switch {
			case r.ExecutorID == executorID:
				if err := s.responses.cancel(ctx, tx, r); err != nil {
					return err
				}
			case r.Status == models.ResponseStatusRejected:
				if err := s.responses.restore(ctx, tx, r); err != nil {
					return err
				}
				events = append(events, responseEvent(models.EventResponseRestored, order, r))
			}
		}

		events = append(events, models.Event{
			Kind:        models.EventWorkCancelled,
			RecipientID: order.CustomerID,
			Payload:     map[string]any{"order_id": order.ID, "executor_id": executorID, "reason": reason},
		})
		return nil
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	logger.Order(orderID).WithFields(logrus.Fields{
		"executor_id": executorID,
		"reason":      reason,
	}).Info("исполнитель отказался от заказа")
	emit(ctx, s.notifier, events)
	return order, nil
}

// CompleteOrder завершает заказ назначенным исполнителем.
func (s *OrderService) CompleteOrder(ctx context.Context, orderID, executorID uuid.UUID) (*models.Order, error) {
	var (
		order  *models.Order
		events []models.Event
	)
	err := s.uow.WithinTx(ctx, func(tx domain.Tx) error {
		var err error
		order, err = tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := requireAssigned(order, executorID); err != nil {
			return err
		}

		now := s.now()
		order.Status = models.OrderStatusCompleted
		order.ClosedAt = &now
		if err := tx.Orders().Update(ctx, order, models.OrderStatusInProgress); err != nil {
			return err
		}

		responses, err := tx.Responses().ListByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		for i := range responses {
			r := &responses[i]
			if r.Status != models.ResponseStatusPending {
				continue
			}
			if err := s.responses.reject(ctx, tx, r); err != nil {
				return err
			}
			events = append(events, responseEvent(models.EventResponseRejected, order, r))
		}

		if err := tx.Stats().IncrementCompleted(ctx, order.CustomerID, executorID); err != nil {
			return err
		}

		events = append(events, models.Event{
			Kind:        models.EventOrderCompleted,
			RecipientID: order.CustomerID,
			Payload:     map[string]any{"order_id": order.ID, "executor_id": executorID},
		})
		return nil
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	logger.Order(orderID).WithField("executor_id", executorID).Info("заказ завершён")
	s.cleanupAttachments(order)
	emit(ctx, s.notifier, events)
	return order, nil
}

func (s *OrderService) cleanupAttachments(order *models.Order) {
	if s.attachments == nil {
		return
	}
	orderID := order.ID
	files := append([]string{}, order.Attachments...)
	goroutine.SafeGo(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := s.attachments.RemoveOrderAttachments(ctx, orderID, files); err != nil {
			logger.Order(orderID).WithError(err).Warn("не удалось удалить вложения заказа")
		}
	})
}

// CancelOrder отменяет опубликованный заказ и возвращает плату за ожидающие отклики.
func (s *OrderService) CancelOrder(ctx context.Context, orderID, customerID uuid.UUID) (*models.Order, error) {
	var (
		order  *models.Order
		events []models.Event
	)
	err := s.uow.WithinTx(ctx, func(tx domain.Tx) error {
		var err error
		order, err = tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.CustomerID != customerID {
			return apperror.IllegalState("отменить заказ может только его владелец")
		}
		events, err = s.cancelPublished(ctx, tx, order, "Возврат платы за отклик: заказ отменён заказчиком")
		return err
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	logger.Order(orderID).Info("заказ отменён заказчиком")
	emit(ctx, s.notifier, events)
	return order, nil
}

// cancelPublished отменяет заказ внутри транзакции: возвращает плату за ожидающие отклики на денежный баланс.
func (s *OrderService) cancelPublished(ctx context.Context, tx domain.Tx, order *models.Order, refundDescription string) ([]models.Event, error) {
	if order.Status != models.OrderStatusPublished {
		return nil, apperror.IllegalState("отменить можно только опубликованный заказ")
	}

	now := s.now()
	order.Status = models.OrderStatusCancelled
	order.ClosedAt = &now
	if err := tx.Orders().Update(ctx, order, models.OrderStatusPublished); err != nil {
		return nil, err
	}

	responses, err := tx.Responses().ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	var events []models.Event
	for i := range responses {
		r := &responses[i]
		if r.Status != models.ResponseStatusPending {
			continue
		}
		if r.CommissionPaid.IsPositive() {
			if _, _, err := s.ledger.Credit(ctx, tx.Ledger(), Posting{
				AccountID:   r.ExecutorID,
				Amount:      r.CommissionPaid,
				Type:        models.TransactionRefund,
				Description: refundDescription,
				OrderID:     &order.ID,
			}); err != nil {
				return nil, err
			}
		}
		if err := s.responses.cancel(ctx, tx, r); err != nil {
			return nil, err
		}
		ev := responseEvent(models.EventResponseRefunded, order, r)
		ev.Payload["refund"] = r.CommissionPaid.StringFixed(2)
		events = append(events, ev)
	}

	events = append(events, models.Event{
		Kind:        models.EventOrderCancelled,
		RecipientID: order.CustomerID,
		Payload:     map[string]any{"order_id": order.ID},
	})
	return events, nil
}

// AutoCloseExpired отменяет опубликованные заказы без откликов, у которых прошла дата начала.
// Ошибка по одному заказу не останавливает обход.
func (s *OrderService) AutoCloseExpired(ctx context.Context) (int, error) {
	expired, err := s.uow.Orders().ListExpiredWithoutResponses(ctx, s.now(), expiredSweepBatch)
	if err != nil {
		return 0, mapRepoError(err)
	}

	closed := 0
	for _, candidate := range expired {
		if err := ctx.Err(); err != nil {
			return closed, err
		}
		ok, err := s.closeExpired(ctx, candidate.ID)
		if err != nil {
			logger.Order(candidate.ID).WithError(err).Warn("не удалось закрыть просроченный заказ")
			continue
		}
		if ok {
			closed++
		}
	}
	if closed > 0 {
		logger.Log.WithField("closed", closed).Info("просроченные заказы закрыты")
	}
	return closed, nil
}

func (s *OrderService) closeExpired(ctx context.Context, orderID uuid.UUID) (bool, error) {
	closed := false
	var events []models.Event
	err := s.uow.WithinTx(ctx, func(tx domain.Tx) error {
		order, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != models.OrderStatusPublished || !order.StartDate.Before(s.now()) {
			return nil
		}
		count, err := tx.Responses().CountByOrder(ctx, orderID)
		if err != nil || count > 0 {
			return err
		}
		events, err = s.cancelPublished(ctx, tx, order, "Возврат платы за отклик: заказ просрочен")
		closed = err == nil
		return err
	})
	if err != nil {
		return false, mapRepoError(err)
	}
	emit(ctx, s.notifier, events)
	return closed, nil
}

// ArchiveOrder переносит закрытый заказ в архив.
func (s *OrderService) ArchiveOrder(ctx context.Context, orderID, customerID uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := s.uow.WithinTx(ctx, func(tx domain.Tx) error {
		var err error
		order, err = tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.CustomerID != customerID {
			return apperror.IllegalState("архивировать заказ может только его владелец")
		}
		expected := order.Status
		if !expected.CanTransitionTo(models.OrderStatusArchived) {
			return apperror.IllegalState("архивировать можно только завершённый или отменённый заказ")
		}
		order.Status = models.OrderStatusArchived
		return tx.Orders().Update(ctx, order, expected)
	})
	if err != nil {
		return nil, mapRepoError(err)
	}
	return order, nil
}

// GetOrder возвращает заказ.
func (s *OrderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.uow.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return order, nil
}

// ListCustomerOrders возвращает заказы заказчика.
func (s *OrderService) ListCustomerOrders(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]models.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.uow.Orders().ListByCustomer(ctx, customerID, limit, offset)
}

func requireAssigned(order *models.Order, executorID uuid.UUID) error {
	if order.Status != models.OrderStatusInProgress {
		return apperror.IllegalState("заказ не находится в работе")
	}
	if !order.IsAssignedTo(executorID) {
		return apperror.IllegalState("вы не назначены исполнителем этого заказа")
	}
	return nil
}

func responseEvent(kind models.EventKind, order *models.Order, r *models.Response) models.Event {
	return models.Event{
		Kind:        kind,
		RecipientID: r.ExecutorID,
		Payload: map[string]any{
			"order_id":    order.ID,
			"response_id": r.ID,
			"title":       order.Title,
		},
	}
}
