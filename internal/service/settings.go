package service

import (
	"time"

	"github.com/shopspring/decimal"
)

// Settings параметры площадки, влияющие на заказы, тарифы и баланс.
type Settings struct {
	MinOrderBudget        decimal.Decimal
	StandardBidFee        decimal.Decimal
	ComfortSelectionFee   decimal.Decimal
	ComfortPrice          decimal.Decimal
	PremiumPrice          decimal.Decimal
	SubscriptionPeriod    time.Duration
	WelcomeBonus          decimal.Decimal
	ModerationAutoApprove bool
}

// DefaultSettings значения по умолчанию.
func DefaultSettings() Settings {
	return Settings{
		MinOrderBudget:        decimal.NewFromInt(3000),
		StandardBidFee:        decimal.NewFromInt(150),
		ComfortSelectionFee:   decimal.NewFromInt(500),
		ComfortPrice:          decimal.NewFromInt(990),
		PremiumPrice:          decimal.NewFromInt(2990),
		SubscriptionPeriod:    30 * 24 * time.Hour,
		WelcomeBonus:          decimal.NewFromInt(1000),
		ModerationAutoApprove: true,
	}
}
