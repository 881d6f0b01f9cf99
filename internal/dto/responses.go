package dto

import "github.com/shopspring/decimal"

// ErrorResponse стандартный ответ с ошибкой.
type ErrorResponse struct {
	Error     string           `json:"error"`
	Code      string           `json:"code,omitempty"`
	Required  *decimal.Decimal `json:"required,omitempty"`
	Available *decimal.Decimal `json:"available,omitempty"`
}

// ListResponse страница списка.
type ListResponse[T any] struct {
	Items  []T `json:"items"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// NewListResponse не отдаёт null вместо пустого списка.
func NewListResponse[T any](items []T, limit, offset int) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Limit: limit, Offset: offset}
}

// CanBidResponse ответ GET /balance/can-bid.
type CanBidResponse struct {
	CanBid bool `json:"can_bid"`
}
