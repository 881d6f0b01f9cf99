package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Balance представляет баланс исполнителя: деньги и бонусы.
type Balance struct {
	UserID              uuid.UUID       `db:"user_id" json:"user_id"`
	Amount              decimal.Decimal `db:"amount" json:"amount"`
	BonusAmount         decimal.Decimal `db:"bonus_amount" json:"bonus_amount"`
	WelcomeBonusGranted bool            `db:"welcome_bonus_granted" json:"welcome_bonus_granted"`
	UpdatedAt           time.Time       `db:"updated_at" json:"updated_at"`
}

// Total возвращает суммарный доступный баланс.
func (b *Balance) Total() decimal.Decimal {
	return b.Amount.Add(b.BonusAmount)
}

// Transaction неизменяемая запись об изменении баланса.
// Amount = CashDelta + BonusDelta.
type Transaction struct {
	ID                uuid.UUID       `db:"id" json:"id"`
	UserID            uuid.UUID       `db:"user_id" json:"user_id"`
	Amount            decimal.Decimal `db:"amount" json:"amount"`
	CashDelta         decimal.Decimal `db:"cash_delta" json:"cash_delta"`
	BonusDelta        decimal.Decimal `db:"bonus_delta" json:"bonus_delta"`
	Type              TransactionType `db:"type" json:"type"`
	Description       string          `db:"description" json:"description"`
	OrderID           *uuid.UUID      `db:"order_id" json:"order_id,omitempty"`
	ExternalPaymentID *string         `db:"external_payment_id" json:"external_payment_id,omitempty"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
}

// Subscription тарифная подписка исполнителя.
type Subscription struct {
	UserID              uuid.UUID  `db:"user_id" json:"user_id"`
	TariffType          TariffType `db:"tariff_type" json:"tariff_type"`
	ExpiresAt           *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	SpecializationSlots int        `db:"specialization_slots" json:"specialization_slots"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// IsActiveAt сообщает, действует ли подписка в момент now.
func (s *Subscription) IsActiveAt(now time.Time) bool {
	return s.ExpiresAt == nil || now.Before(*s.ExpiresAt)
}

// Notification сохранённое уведомление пользователя.
type Notification struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	IsRead    bool            `db:"is_read" json:"is_read"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// EventKind тип события движка для рассылки уведомлений.
type EventKind string

const (
	EventResponseCreated   EventKind = "response.created"
	EventResponseAccepted  EventKind = "response.accepted"
	EventResponseRejected  EventKind = "response.rejected"
	EventResponseRefunded  EventKind = "response.refunded"
	EventResponseRestored  EventKind = "response.restored"
	EventWorkStarted       EventKind = "order.work_started"
	EventWorkCancelled     EventKind = "order.work_cancelled"
	EventOrderCompleted    EventKind = "order.completed"
	EventOrderCancelled    EventKind = "order.cancelled"
	EventLowBalance        EventKind = "balance.low"
	EventBalanceToppedUp   EventKind = "balance.topped_up"
	EventSubscriptionSaved EventKind = "subscription.activated"
)

// Event сообщение для внешнего диспетчера уведомлений.
type Event struct {
	Kind        EventKind      `json:"kind"`
	RecipientID uuid.UUID      `json:"recipient_id"`
	Payload     map[string]any `json:"payload"`
}
