package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domain "github.com/ignatzorin/montazh-backend/internal/domain/repository"
	"github.com/ignatzorin/montazh-backend/internal/logger"
	"github.com/ignatzorin/montazh-backend/internal/models"
	"github.com/ignatzorin/montazh-backend/internal/pkg/apperror"
)

// PaymentService баланс исполнителя, расчёты платёжного шлюза и подписки.
type PaymentService struct {
	uow      domain.UnitOfWork
	ledger   *Ledger
	tariffs  *TariffResolver
	notifier Notifier
	settings Settings
	now      func() time.Time
}

func NewPaymentService(uow domain.UnitOfWork, ledger *Ledger, tariffs *TariffResolver, notifier Notifier, settings Settings) *PaymentService {
	return &PaymentService{
		uow:      uow,
		ledger:   ledger,
		tariffs:  tariffs,
		notifier: notifier,
		settings: settings,
		now:      time.Now,
	}
}

// GetBalance возвращает баланс пользователя.
func (s *PaymentService) GetBalance(ctx context.Context, userID uuid.UUID) (*models.Balance, error) {
	return s.uow.Ledger().GetBalance(ctx, userID)
}

// ListTransactions возвращает историю транзакций.
func (s *PaymentService) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.uow.Ledger().ListTransactions(ctx, userID, limit, offset)
}

// ProcessExternalTopUp зачисляет оплату от шлюза. Повтор с тем же externalPaymentID
// возвращает исходную запись журнала и не меняет баланс.
func (s *PaymentService) ProcessExternalTopUp(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, externalPaymentID string) (*models.Transaction, error) {
	externalPaymentID = strings.TrimSpace(externalPaymentID)
	if externalPaymentID == "" {
		return nil, apperror.Validation("не указан идентификатор платежа")
	}
	if !amount.IsPositive() {
		return nil, apperror.Validation("сумма должна быть положительной")
	}

	if existing, err := s.findPayment(ctx, accountID, externalPaymentID, models.TransactionTopUp); err != nil || existing != nil {
		return existing, err
	}

	var tx *models.Transaction
	err := s.uow.WithinTx(ctx, func(dtx domain.Tx) error {
		var err error
		tx, _, err = s.ledger.Credit(ctx, dtx.Ledger(), Posting{
			AccountID:         accountID,
			Amount:            amount,
			Type:              models.TransactionTopUp,
			Description:       "Пополнение баланса",
			ExternalPaymentID: &externalPaymentID,
		})
		return err
	})
	if errors.Is(err, domain.ErrDuplicatePayment) {
		return s.findPayment(ctx, accountID, externalPaymentID, models.TransactionTopUp)
	}
	if err != nil {
		return nil, mapRepoError(err)
	}

	s.notifier.Notify(ctx, models.Event{
		Kind:        models.EventBalanceToppedUp,
		RecipientID: accountID,
		Payload:     map[string]any{"amount": amount.StringFixed(2), "transaction_id": tx.ID},
	})
	return tx, nil
}

// ProcessExternalSubscriptionPurchase активирует подписку, оплаченную через шлюз.
// Баланс не меняется; в журнал пишется запись SUBSCRIPTION с нулевой суммой.
func (s *PaymentService) ProcessExternalSubscriptionPurchase(ctx context.Context, accountID uuid.UUID, tariff models.TariffType, externalPaymentID string) (*models.Subscription, error) {
	externalPaymentID = strings.TrimSpace(externalPaymentID)
	if externalPaymentID == "" {
		return nil, apperror.Validation("не указан идентификатор платежа")
	}
	if !tariff.IsPaid() {
		return nil, apperror.Validation("тариф не продаётся")
	}

	if existing, err := s.findPayment(ctx, accountID, externalPaymentID, models.TransactionSubscription); err != nil {
		return nil, err
	} else if existing != nil {
		return s.uow.Subscriptions().Get(ctx, accountID)
	}

	var sub *models.Subscription
	err := s.uow.WithinTx(ctx, func(tx domain.Tx) error {
		if _, err := s.ledger.Record(ctx, tx.Ledger(), Posting{
			AccountID:         accountID,
			Type:              models.TransactionSubscription,
			Description:       fmt.Sprintf("Оплата тарифа %s через платёжный шлюз", tariff),
			ExternalPaymentID: &externalPaymentID,
		}); err != nil {
			return err
		}
		var err error
		sub, err = s.activate(ctx, tx, accountID, tariff)
		return err
	})
	if errors.Is(err, domain.ErrDuplicatePayment) {
		if _, err := s.findPayment(ctx, accountID, externalPaymentID, models.TransactionSubscription); err != nil {
			return nil, err
		}
		return s.uow.Subscriptions().Get(ctx, accountID)
	}
	if err != nil {
		return nil, mapRepoError(err)
	}

	s.notifySubscription(ctx, sub)
	return sub, nil
}

// findPayment ищет уже проведённый платёж шлюза. Платёж другого вида или другого счёта
// с тем же идентификатором считается конфликтом.
func (s *PaymentService) findPayment(ctx context.Context, accountID uuid.UUID, externalPaymentID string, want models.TransactionType) (*models.Transaction, error) {
	existing, err := s.uow.Ledger().GetTransactionByExternalID(ctx, externalPaymentID)
	if errors.Is(err, domain.ErrTransactionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if existing.UserID != accountID {
		return nil, apperror.Conflict("платёж уже зачислен на другой счёт")
	}
	if existing.Type != want {
		return nil, apperror.Conflict("идентификатор платежа уже использован для другой операции")
	}
	logger.Account(accountID).WithField("external_payment_id", externalPaymentID).Info("повторное уведомление о платеже")
	return existing, nil
}

// PurchaseSubscription оплачивает тариф с баланса (сначала бонусы) и продлевает подписку.
func (s *PaymentService) PurchaseSubscription(ctx context.Context, accountID uuid.UUID, tariff models.TariffType) (*models.Subscription, error) {
	price, err := s.priceOf(tariff)
	if err != nil {
		return nil, err
	}

	var sub *models.Subscription
	err = s.uow.WithinTx(ctx, func(tx domain.Tx) error {
		if price.IsPositive() {
			if _, _, err := s.ledger.Debit(ctx, tx.Ledger(), Posting{
				AccountID:   accountID,
				Amount:      price,
				Type:        models.TransactionSubscription,
				Description: fmt.Sprintf("Оплата тарифа %s", tariff),
			}); err != nil {
				return err
			}
		}
		var err error
		sub, err = s.activate(ctx, tx, accountID, tariff)
		return err
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	s.notifySubscription(ctx, sub)
	return sub, nil
}

func (s *PaymentService) priceOf(tariff models.TariffType) (decimal.Decimal, error) {
	switch tariff {
	case models.TariffComfort:
		return s.settings.ComfortPrice, nil
	case models.TariffPremium:
		return s.settings.PremiumPrice, nil
	}
	return decimal.Zero, apperror.Validation("тариф не продаётся")
}

// activate продлевает текущий тариф от даты окончания или начинает новый период с текущего момента.
func (s *PaymentService) activate(ctx context.Context, tx domain.Tx, accountID uuid.UUID, tariff models.TariffType) (*models.Subscription, error) {
	current, err := tx.Subscriptions().Get(ctx, accountID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	start := now
	if current != nil && current.TariffType == tariff && current.ExpiresAt != nil && current.ExpiresAt.After(now) {
		start = *current.ExpiresAt
	}
	expires := start.Add(s.settings.SubscriptionPeriod)

	sub := &models.Subscription{
		UserID:              accountID,
		TariffType:          tariff,
		ExpiresAt:           &expires,
		SpecializationSlots: specializationSlots(tariff),
	}
	if err := tx.Subscriptions().Save(ctx, sub); err != nil {
		return nil, err
	}

	logger.Account(accountID).WithField("tariff", tariff).Infof("подписка действует до %s", expires.Format(time.RFC3339))
	return sub, nil
}

func (s *PaymentService) notifySubscription(ctx context.Context, sub *models.Subscription) {
	s.notifier.Notify(ctx, models.Event{
		Kind:        models.EventSubscriptionSaved,
		RecipientID: sub.UserID,
		Payload:     map[string]any{"tariff": sub.TariffType, "expires_at": sub.ExpiresAt},
	})
}

// GrantWelcomeBonus однократно начисляет приветственный бонус.
func (s *PaymentService) GrantWelcomeBonus(ctx context.Context, accountID uuid.UUID) (*models.Balance, error) {
	if !s.settings.WelcomeBonus.IsPositive() {
		return nil, apperror.IllegalState("приветственный бонус отключён")
	}

	var balance *models.Balance
	err := s.uow.WithinTx(ctx, func(tx domain.Tx) error {
		current, err := tx.Ledger().GetBalanceForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if current.WelcomeBonusGranted {
			return apperror.Conflict("приветственный бонус уже начислен")
		}

		_, balance, err = s.ledger.CreditBonus(ctx, tx.Ledger(), Posting{
			AccountID:   accountID,
			Amount:      s.settings.WelcomeBonus,
			Type:        models.TransactionTopUp,
			Description: "Приветственный бонус",
		})
		if err != nil {
			return err
		}
		balance.WelcomeBonusGranted = true
		return tx.Ledger().SaveBalance(ctx, balance)
	})
	if err != nil {
		return nil, mapRepoError(err)
	}
	return balance, nil
}

// Reconcile сверяет баланс с журналом операций.
func (s *PaymentService) Reconcile(ctx context.Context, accountID uuid.UUID) (*Reconciliation, error) {
	var result *Reconciliation
	err := s.uow.WithinTx(ctx, func(tx domain.Tx) error {
		var err error
		result, err = s.ledger.Reconcile(ctx, tx.Ledger(), accountID)
		return err
	})
	if err != nil {
		return nil, mapRepoError(err)
	}
	return result, nil
}

// SubscriptionView подписка и действующие по ней цены.
type SubscriptionView struct {
	Subscription *models.Subscription `json:"subscription"`
	Pricing      Pricing              `json:"pricing"`
}

// GetSubscription возвращает подписку пользователя и цены по ней.
func (s *PaymentService) GetSubscription(ctx context.Context, userID uuid.UUID) (*SubscriptionView, error) {
	sub, err := s.uow.Subscriptions().Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &SubscriptionView{Subscription: sub, Pricing: s.tariffs.Resolve(sub)}, nil
}
