package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/montazh-backend/internal/dto"
	"github.com/ignatzorin/montazh-backend/internal/http/handlers/common"
	"github.com/ignatzorin/montazh-backend/internal/models"
	"github.com/ignatzorin/montazh-backend/internal/service"
)

// WebhookHandler принимает уведомления платёжного шлюза.
// Повторная доставка того же платежа отвечает 200 с исходным результатом.
type WebhookHandler struct {
	payments *service.PaymentService
}

func NewWebhookHandler(payments *service.PaymentService) *WebhookHandler {
	return &WebhookHandler{payments: payments}
}

// TopUp POST /webhooks/payments/top-up
func (h *WebhookHandler) TopUp(c *gin.Context) {
	var req dto.TopUpWebhookRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}
	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		common.RespondBadRequest(c, common.ErrInvalidUUID.Error())
		return
	}

	tx, err := h.payments.ProcessExternalTopUp(c.Request.Context(), accountID, req.Amount, req.ExternalPaymentID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

// Subscription POST /webhooks/payments/subscription
func (h *WebhookHandler) Subscription(c *gin.Context) {
	var req dto.SubscriptionWebhookRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}
	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		common.RespondBadRequest(c, common.ErrInvalidUUID.Error())
		return
	}

	sub, err := h.payments.ProcessExternalSubscriptionPurchase(c.Request.Context(), accountID, models.TariffType(req.Tariff), req.ExternalPaymentID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}
