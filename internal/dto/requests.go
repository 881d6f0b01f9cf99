package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateOrderRequest тело POST /orders.
type CreateOrderRequest struct {
	Category      string          `json:"category" binding:"required"`
	Title         string          `json:"title" binding:"required"`
	Description   string          `json:"description"`
	Region        string          `json:"region" binding:"required"`
	Address       string          `json:"address" binding:"required"`
	Latitude      *float64        `json:"latitude"`
	Longitude     *float64        `json:"longitude"`
	StartDate     time.Time       `json:"start_date" binding:"required"`
	EndDate       *time.Time      `json:"end_date"`
	Budget        decimal.Decimal `json:"budget"`
	BudgetType    string          `json:"budget_type"`
	PaymentMethod string          `json:"payment_method" binding:"required"`
	Attachments   []string        `json:"attachments"`
}

// UpdateOrderRequest тело PATCH /orders/:id. Отсутствующие поля не меняются.
type UpdateOrderRequest struct {
	Title         *string          `json:"title"`
	Description   *string          `json:"description"`
	Region        *string          `json:"region"`
	Address       *string          `json:"address"`
	StartDate     *time.Time       `json:"start_date"`
	EndDate       *time.Time       `json:"end_date"`
	Budget        *decimal.Decimal `json:"budget"`
	BudgetType    *string          `json:"budget_type"`
	PaymentMethod *string          `json:"payment_method"`
}

// SelectExecutorRequest тело POST /orders/:id/select.
type SelectExecutorRequest struct {
	ExecutorID string `json:"executor_id" binding:"required,uuid"`
}

// CancelWorkRequest тело POST /orders/:id/cancel-work.
type CancelWorkRequest struct {
	Reason string `json:"reason"`
}

// PurchaseSubscriptionRequest тело POST /subscriptions.
type PurchaseSubscriptionRequest struct {
	Tariff string `json:"tariff" binding:"required"`
}

// CreateReviewRequest тело POST /orders/:id/reviews.
type CreateReviewRequest struct {
	Rating  int     `json:"rating"`
	Comment *string `json:"comment"`
}

// TopUpWebhookRequest уведомление платёжного шлюза о пополнении.
type TopUpWebhookRequest struct {
	AccountID         string          `json:"account_id" binding:"required,uuid"`
	Amount            decimal.Decimal `json:"amount"`
	ExternalPaymentID string          `json:"external_payment_id" binding:"required"`
}

// SubscriptionWebhookRequest уведомление платёжного шлюза об оплате тарифа.
type SubscriptionWebhookRequest struct {
	AccountID         string `json:"account_id" binding:"required,uuid"`
	Tariff            string `json:"tariff" binding:"required"`
	ExternalPaymentID string `json:"external_payment_id" binding:"required"`
}
