package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/montazh-backend/internal/goroutine"
	"github.com/ignatzorin/montazh-backend/internal/logger"
	"github.com/ignatzorin/montazh-backend/internal/models"
)

// Broadcaster доставляет событие пользователю (WebSocket hub).
type Broadcaster interface {
	BroadcastToUser(userID uuid.UUID, event string, data any) error
}

// Dispatcher асинхронно рассылает события движка. Ошибки только логируются.
type Dispatcher struct {
	broadcaster Broadcaster
	recovery    *goroutine.RecoveryHandler
}

// NewDispatcher создаёт диспетчер. recovery может быть nil, тогда используется общий обработчик.
func NewDispatcher(broadcaster Broadcaster, recovery *goroutine.RecoveryHandler) *Dispatcher {
	if recovery == nil {
		recovery = goroutine.DefaultRecoveryHandler
	}
	return &Dispatcher{broadcaster: broadcaster, recovery: recovery}
}

// Notify ставит событие в доставку и сразу возвращает управление.
func (d *Dispatcher) Notify(_ context.Context, event models.Event) {
	if event.RecipientID == uuid.Nil {
		return
	}
	d.recovery.SafeGo(func() {
		if err := d.broadcaster.BroadcastToUser(event.RecipientID, string(event.Kind), event.Payload); err != nil {
			logger.Log.WithFields(logrus.Fields{
				"event":        event.Kind,
				"recipient_id": event.RecipientID,
			}).WithError(err).Warn("не удалось доставить уведомление")
		}
	})
}
