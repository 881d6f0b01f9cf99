package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// WebhookSecretHeader заголовок с общим секретом платёжного шлюза.
const WebhookSecretHeader = "X-Webhook-Secret"

// WebhookSecret пропускает только запросы с верным секретом шлюза.
// Пустой secret закрывает маршрут полностью.
func WebhookSecret(secret string) gin.HandlerFunc {
	expected := []byte(secret)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader(WebhookSecretHeader))
		if len(expected) == 0 || subtle.ConstantTimeCompare(got, expected) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "неверная подпись шлюза"})
			return
		}
		c.Next()
	}
}
