package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domain "github.com/ignatzorin/montazh-backend/internal/domain/repository"
	"github.com/ignatzorin/montazh-backend/internal/models"
)

// Pricing стоимость участия исполнителя при его текущем тарифе.
type Pricing struct {
	Tariff       models.TariffType `json:"tariff"`
	BidFee       decimal.Decimal   `json:"bid_fee"`
	SelectionFee decimal.Decimal   `json:"selection_fee"`
	Unlimited    bool              `json:"unlimited"`
}

// TariffResolver вычисляет плату за отклик и за выбор исполнителя.
type TariffResolver struct {
	standardBidFee      decimal.Decimal
	comfortSelectionFee decimal.Decimal
	now                 func() time.Time
}

func NewTariffResolver(settings Settings) *TariffResolver {
	return &TariffResolver{
		standardBidFee:      settings.StandardBidFee,
		comfortSelectionFee: settings.ComfortSelectionFee,
		now:                 time.Now,
	}
}

// Resolve возвращает цены для подписки. nil означает отсутствие подписки.
// Истёкший PREMIUM тарифицируется как STANDARD.
func (r *TariffResolver) Resolve(sub *models.Subscription) Pricing {
	standard := Pricing{
		Tariff:       models.TariffStandard,
		BidFee:       r.standardBidFee,
		SelectionFee: decimal.Zero,
	}
	if sub == nil {
		return standard
	}

	switch sub.TariffType {
	case models.TariffComfort:
		return Pricing{
			Tariff:       models.TariffComfort,
			BidFee:       decimal.Zero,
			SelectionFee: r.comfortSelectionFee,
		}
	case models.TariffPremium:
		if sub.IsActiveAt(r.now()) {
			return Pricing{
				Tariff:       models.TariffPremium,
				BidFee:       decimal.Zero,
				SelectionFee: decimal.Zero,
				Unlimited:    true,
			}
		}
	}
	return standard
}

// SelectionFeeFor плата за выбор по тарифу, зафиксированному в отклике.
func (r *TariffResolver) SelectionFeeFor(tariff models.TariffType) decimal.Decimal {
	if tariff == models.TariffComfort {
		return r.comfortSelectionFee
	}
	return decimal.Zero
}

// CanAffordBid проверяет, хватает ли исполнителю средств на отклик.
func (r *TariffResolver) CanAffordBid(ctx context.Context, tx domain.Tx, executorID uuid.UUID) (bool, error) {
	sub, err := tx.Subscriptions().Get(ctx, executorID)
	if err != nil {
		return false, err
	}
	pricing := r.Resolve(sub)
	if !pricing.BidFee.IsPositive() {
		return true, nil
	}

	balance, err := tx.Ledger().GetBalance(ctx, executorID)
	if err != nil {
		return false, err
	}
	return balance.Total().GreaterThanOrEqual(pricing.BidFee), nil
}

// specializationSlots количество специализаций, доступных на тарифе.
func specializationSlots(tariff models.TariffType) int {
	switch tariff {
	case models.TariffComfort:
		return 3
	case models.TariffPremium:
		return 5
	default:
		return 1
	}
}
