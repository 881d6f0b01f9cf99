package models

// OrderStatus статус заказа.
type OrderStatus string

// Статусы заказа. PendingModeration — внешний шлюз модерации до публикации.
const (
	OrderStatusPendingModeration OrderStatus = "pending_moderation"
	OrderStatusPublished         OrderStatus = "published"
	OrderStatusInProgress        OrderStatus = "in_progress"
	OrderStatusCompleted         OrderStatus = "completed"
	OrderStatusCancelled         OrderStatus = "cancelled"
	OrderStatusArchived          OrderStatus = "archived"
)

// orderTransitions описывает допустимые переходы заказа.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPendingModeration: {OrderStatusPublished},
	OrderStatusPublished:         {OrderStatusInProgress, OrderStatusCancelled},
	OrderStatusInProgress:        {OrderStatusPublished, OrderStatusCompleted},
	OrderStatusCompleted:         {OrderStatusArchived},
	OrderStatusCancelled:         {OrderStatusArchived},
	OrderStatusArchived:          {},
}

// CanTransitionTo проверяет, разрешён ли переход заказа в новый статус.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsClosed возвращает true для статусов, при которых заполняется closed_at.
func (s OrderStatus) IsClosed() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// HasExecutor возвращает true для статусов, при которых у заказа есть исполнитель.
func (s OrderStatus) HasExecutor() bool {
	return s == OrderStatusInProgress || s == OrderStatusCompleted
}

// ResponseStatus статус отклика исполнителя.
type ResponseStatus string

const (
	ResponseStatusPending   ResponseStatus = "pending"
	ResponseStatusAccepted  ResponseStatus = "accepted"
	ResponseStatusRejected  ResponseStatus = "rejected"
	ResponseStatusCancelled ResponseStatus = "cancelled"
)

var responseTransitions = map[ResponseStatus][]ResponseStatus{
	ResponseStatusPending:   {ResponseStatusAccepted, ResponseStatusRejected, ResponseStatusCancelled},
	ResponseStatusAccepted:  {ResponseStatusCancelled},
	ResponseStatusRejected:  {ResponseStatusPending},
	ResponseStatusCancelled: {},
}

// CanTransitionTo проверяет, разрешён ли переход отклика в новый статус.
func (s ResponseStatus) CanTransitionTo(next ResponseStatus) bool {
	for _, allowed := range responseTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TariffType тарифный план исполнителя.
type TariffType string

const (
	TariffStandard TariffType = "standard"
	TariffComfort  TariffType = "comfort"
	TariffPremium  TariffType = "premium"
)

// IsValid проверяет, что тариф известен.
func (t TariffType) IsValid() bool {
	switch t {
	case TariffStandard, TariffComfort, TariffPremium:
		return true
	}
	return false
}

// IsPaid возвращает true для тарифов, которые покупаются отдельно.
func (t TariffType) IsPaid() bool {
	return t == TariffComfort || t == TariffPremium
}

// TransactionType тип записи в журнале операций.
type TransactionType string

const (
	TransactionTopUp        TransactionType = "top_up"
	TransactionResponseFee  TransactionType = "response_fee"
	TransactionOrderFee     TransactionType = "order_fee"
	TransactionSubscription TransactionType = "subscription"
	TransactionRefund       TransactionType = "refund"
)

// BudgetType вид бюджета заказа.
type BudgetType string

const (
	BudgetFixed      BudgetType = "fixed"
	BudgetNegotiable BudgetType = "negotiable"
)

// PaymentMethod способ оплаты работ заказчиком.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentInvoice  PaymentMethod = "invoice"
)

// ValidPaymentMethods список допустимых способов оплаты.
var ValidPaymentMethods = map[PaymentMethod]struct{}{
	PaymentCash:     {},
	PaymentCard:     {},
	PaymentTransfer: {},
	PaymentInvoice:  {},
}

// Категории монтажных работ.
const (
	CategoryAirConditioner = "air_conditioner"
	CategoryElectrical     = "electrical"
	CategoryPlumbing       = "plumbing"
	CategoryFurniture      = "furniture"
	CategoryDoorsWindows   = "doors_windows"
	CategoryAppliances     = "appliances"
	CategorySecurity       = "security_systems"
	CategoryOther          = "other"
)

// ValidCategories список допустимых категорий заказа.
var ValidCategories = map[string]struct{}{
	CategoryAirConditioner: {},
	CategoryElectrical:     {},
	CategoryPlumbing:       {},
	CategoryFurniture:      {},
	CategoryDoorsWindows:   {},
	CategoryAppliances:     {},
	CategorySecurity:       {},
	CategoryOther:          {},
}
