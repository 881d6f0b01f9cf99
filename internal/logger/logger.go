package logger

import (
	"github.com/sirupsen/logrus"
)

// Log глобальный логгер. До вызова Init пишет в текстовом формате на уровне Info.
var Log = logrus.New()

// Init инициализирует структурированный логгер.
func Init(level string) {
	Log = logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	// Используем JSON формат для production, text для development
	Log.SetFormatter(&logrus.JSONFormatter{})
}

// SetTextFormatter устанавливает текстовый формат логов (для development).
func SetTextFormatter() {
	Log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

// Order возвращает запись с полями заказа.
func Order(orderID interface{}) *logrus.Entry {
	return Log.WithField("order_id", orderID)
}

// Account возвращает запись с полями счёта исполнителя.
func Account(userID interface{}) *logrus.Entry {
	return Log.WithField("account_id", userID)
}
