package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func serve(method, path, route string, h gin.HandlerFunc, body string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Handle(method, route, h)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPaymentHandler_GetBalance_Unauthorized(t *testing.T) {
	handler := &PaymentHandler{payments: nil}
	w := serve(http.MethodGet, "/balance", "/balance", handler.GetBalance, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPaymentHandler_ListTransactions_Unauthorized(t *testing.T) {
	handler := &PaymentHandler{payments: nil}
	w := serve(http.MethodGet, "/balance/transactions", "/balance/transactions", handler.ListTransactions, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOrderHandler_CreateOrder_Unauthorized(t *testing.T) {
	handler := &OrderHandler{orders: nil}
	w := serve(http.MethodPost, "/orders", "/orders", handler.CreateOrder, `{}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOrderHandler_GetOrder_InvalidID(t *testing.T) {
	handler := &OrderHandler{orders: nil}
	w := serve(http.MethodGet, "/orders/not-a-uuid", "/orders/:id", handler.GetOrder, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookHandler_TopUp_BadBody(t *testing.T) {
	handler := &WebhookHandler{payments: nil}
	w := serve(http.MethodPost, "/webhooks/payments/top-up", "/webhooks/payments/top-up", handler.TopUp, `{"account_id":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWSHandler_RequiresToken(t *testing.T) {
	handler := NewWSHandler(nil, nil, nil)
	w := serve(http.MethodGet, "/ws", "/ws", handler.Handle, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthHandler_Memory(t *testing.T) {
	w := serve(http.MethodGet, "/health", "/health", NewHealthHandler(nil).Health, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "memory")
}
