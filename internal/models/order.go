package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Order описывает заказ на монтажные работы.
type Order struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	CustomerID    uuid.UUID       `db:"customer_id" json:"customer_id"`
	ExecutorID    *uuid.UUID      `db:"executor_id" json:"executor_id,omitempty"`
	Category      string          `db:"category" json:"category"`
	Title         string          `db:"title" json:"title"`
	Description   string          `db:"description" json:"description"`
	Region        string          `db:"region" json:"region"`
	Address       string          `db:"address" json:"address"`
	Latitude      *float64        `db:"latitude" json:"latitude,omitempty"`
	Longitude     *float64        `db:"longitude" json:"longitude,omitempty"`
	StartDate     time.Time       `db:"start_date" json:"start_date"`
	EndDate       *time.Time      `db:"end_date" json:"end_date,omitempty"`
	Budget        decimal.Decimal `db:"budget" json:"budget"`
	BudgetType    BudgetType      `db:"budget_type" json:"budget_type"`
	PaymentMethod PaymentMethod   `db:"payment_method" json:"payment_method"`
	Attachments   pq.StringArray  `db:"attachments" json:"attachments"`
	Status        OrderStatus     `db:"status" json:"status"`
	WorkStartedAt *time.Time      `db:"work_started_at" json:"work_started_at,omitempty"`
	ClosedAt      *time.Time      `db:"closed_at" json:"closed_at,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// IsWorkStarted сообщает, начал ли исполнитель работу.
func (o *Order) IsWorkStarted() bool {
	return o.WorkStartedAt != nil
}

// IsAssignedTo проверяет, что заказ назначен указанному исполнителю.
func (o *Order) IsAssignedTo(executorID uuid.UUID) bool {
	return o.ExecutorID != nil && *o.ExecutorID == executorID
}

// Response описывает отклик исполнителя на заказ.
type Response struct {
	ID               uuid.UUID       `db:"id" json:"id"`
	OrderID          uuid.UUID       `db:"order_id" json:"order_id"`
	ExecutorID       uuid.UUID       `db:"executor_id" json:"executor_id"`
	CommissionPaid   decimal.Decimal `db:"commission_paid" json:"commission_paid"`
	SelectionFeePaid decimal.Decimal `db:"selection_fee_paid" json:"selection_fee_paid"`
	TariffType       TariffType      `db:"tariff_type" json:"tariff_type"`
	Status           ResponseStatus  `db:"status" json:"status"`
	AcceptedAt       *time.Time      `db:"accepted_at" json:"accepted_at,omitempty"`
	RejectedAt       *time.Time      `db:"rejected_at" json:"rejected_at,omitempty"`
	CancelledAt      *time.Time      `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// ParticipantStats хранит счётчики завершённых заказов пользователя.
type ParticipantStats struct {
	UserID              uuid.UUID `db:"user_id" json:"user_id"`
	CompletedAsCustomer int       `db:"completed_as_customer" json:"completed_as_customer"`
	CompletedAsExecutor int       `db:"completed_as_executor" json:"completed_as_executor"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// Review отзыв участника заказа о контрагенте.
type Review struct {
	ID         uuid.UUID `db:"id" json:"id"`
	OrderID    uuid.UUID `db:"order_id" json:"order_id"`
	ReviewerID uuid.UUID `db:"reviewer_id" json:"reviewer_id"`
	ReviewedID uuid.UUID `db:"reviewed_id" json:"reviewed_id"`
	Rating     int       `db:"rating" json:"rating"`
	Comment    *string   `db:"comment" json:"comment,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ExecutorProfile минимальный срез профиля исполнителя, нужный для откликов.
type ExecutorProfile struct {
	UserID           uuid.UUID `db:"user_id" json:"user_id"`
	ProfileCompleted bool      `db:"profile_completed" json:"profile_completed"`
	IsActive         bool      `db:"is_active" json:"is_active"`
}
