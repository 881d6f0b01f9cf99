package service

import (
	"context"

	"github.com/ignatzorin/montazh-backend/internal/models"
)

// Notifier принимает события после фиксации транзакции.
// Доставка асинхронная; ошибки доставки не возвращаются вызывающему.
type Notifier interface {
	Notify(ctx context.Context, event models.Event)
}

// NopNotifier отбрасывает события.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, models.Event) {}

func emit(ctx context.Context, n Notifier, events []models.Event) {
	for _, ev := range events {
		n.Notify(ctx, ev)
	}
}
