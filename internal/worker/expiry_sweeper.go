package worker

import (
	"context"
	"time"

	"github.com/ignatzorin/montazh-backend/internal/logger"
)

// ExpiredCloser закрывает просроченные заказы без откликов.
type ExpiredCloser interface {
	AutoCloseExpired(ctx context.Context) (int, error)
}

// ExpirySweeper периодически закрывает просроченные заказы.
type ExpirySweeper struct {
	closer   ExpiredCloser
	interval time.Duration
}

func NewExpirySweeper(closer ExpiredCloser, interval time.Duration) *ExpirySweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &ExpirySweeper{closer: closer, interval: interval}
}

// Run выполняет первый проход сразу, затем по таймеру до отмены ctx.
func (w *ExpirySweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logger.Log.WithField("interval", w.interval.String()).Info("запущена очистка просроченных заказов")
	for {
		w.sweep(ctx)
		select {
		case <-ctx.Done():
			logger.Log.Info("очистка просроченных заказов остановлена")
			return
		case <-ticker.C:
		}
	}
}

func (w *ExpirySweeper) sweep(ctx context.Context) {
	closed, err := w.closer.AutoCloseExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.Log.WithError(err).Error("ошибка закрытия просроченных заказов")
		}
		return
	}
	if closed > 0 {
		logger.Log.WithField("closed", closed).Debug("проход очистки завершён")
	}
}
