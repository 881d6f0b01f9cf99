package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/montazh-backend/internal/config"
	"github.com/ignatzorin/montazh-backend/internal/dto"
	"github.com/ignatzorin/montazh-backend/internal/http/handlers"
	"github.com/ignatzorin/montazh-backend/internal/http/middleware"
	"github.com/ignatzorin/montazh-backend/internal/models"
	"github.com/ignatzorin/montazh-backend/internal/repository/memory"
	"github.com/ignatzorin/montazh-backend/internal/service"
)

const testWebhookSecret = "test-webhook-secret"

type noopNotifier struct{}

func (noopNotifier) Notify(_ context.Context, _ models.Event) {}

type testServer struct {
	engine   *gin.Engine
	tokens   *service.TokenManager
	profiles *memory.Profiles
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	profiles := memory.NewProfiles()
	settings := service.DefaultSettings()
	ledger := service.NewLedger()
	tariffs := service.NewTariffResolver(settings)
	notifier := noopNotifier{}

	responses := service.NewResponseService(store, profiles, tariffs, ledger, notifier, settings)
	orders := service.NewOrderService(store, responses, tariffs, ledger, notifier, nil, settings)
	payments := service.NewPaymentService(store, ledger, tariffs, notifier, settings)
	reviews := service.NewReviewService(memory.NewReviews(), store.Orders())
	notifications := service.NewNotificationService(memory.NewNotifications())
	tokens := service.NewTokenManager("router-test-secret", time.Hour)

	cfg := &config.Config{
		Env:             "test",
		WebhookSecret:   testWebhookSecret,
		RateLimitLimit:  100,
		RateLimitPeriod: time.Minute,
	}

	engine := SetupRouter(cfg, Handlers{
		Orders:        handlers.NewOrderHandler(orders),
		Responses:     handlers.NewResponseHandler(responses),
		Payments:      handlers.NewPaymentHandler(payments),
		Webhooks:      handlers.NewWebhookHandler(payments),
		Reviews:       handlers.NewReviewHandler(reviews),
		Notifications: handlers.NewNotificationHandler(notifications),
		WS:            handlers.NewWSHandler(nil, tokens, nil),
		Health:        handlers.NewHealthHandler(nil),
	}, tokens)

	return &testServer{engine: engine, tokens: tokens, profiles: profiles}
}

func (s *testServer) token(t *testing.T, userID uuid.UUID, role string) string {
	t.Helper()
	tok, err := s.tokens.IssueAccess(userID, role)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) executor(t *testing.T) uuid.UUID {
	t.Helper()
	id := uuid.New()
	s.profiles.Put(models.ExecutorProfile{UserID: id, ProfileCompleted: true, IsActive: true})
	return id
}

func (s *testServer) topUp(t *testing.T, accountID uuid.UUID, amount int64) *httptest.ResponseRecorder {
	t.Helper()
	return s.do(t, http.MethodPost, "/api/webhooks/payments/top-up", "", map[string]any{
		"account_id":          accountID.String(),
		"amount":              decimal.NewFromInt(amount),
		"external_payment_id": uuid.NewString(),
	}, middleware.WebhookSecretHeader, testWebhookSecret)
}

func (s *testServer) createOrder(t *testing.T, customerToken string) models.Order {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/orders", customerToken, map[string]any{
		"category":       models.CategoryAirConditioner,
		"title":          "Монтаж кондиционера",
		"region":         "Москва",
		"address":        "ул. Тверская, 7",
		"start_date":     time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339),
		"budget":         "15000",
		"budget_type":    string(models.BudgetFixed),
		"payment_method": string(models.PaymentCard),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var order models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	return order
}

func decodeBalance(t *testing.T, w *httptest.ResponseRecorder) models.Balance {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var b models.Balance
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	return b
}

func TestRouter_HealthAndAuth(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/balance", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/balance", "garbage", nil).Code)

	tok := s.token(t, uuid.New(), service.RoleCustomer)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/orders/not-a-uuid", tok, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/orders/"+uuid.NewString(), tok, nil).Code)
}

func TestRouter_WebhookRequiresSecret(t *testing.T) {
	s := newTestServer(t)
	body := map[string]any{
		"account_id":          uuid.NewString(),
		"amount":              "100",
		"external_payment_id": "pay-1",
	}

	w := s.do(t, http.MethodPost, "/api/webhooks/payments/top-up", "", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/webhooks/payments/top-up", "", body, middleware.WebhookSecretHeader, "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_BidAndSelectFlow(t *testing.T) {
	s := newTestServer(t)

	customerID := uuid.New()
	customerTok := s.token(t, customerID, service.RoleCustomer)
	order := s.createOrder(t, customerTok)
	assert.Equal(t, models.OrderStatusPublished, order.Status)

	executorID := s.executor(t)
	executorTok := s.token(t, executorID, service.RoleExecutor)
	require.Equal(t, http.StatusOK, s.topUp(t, executorID, 300).Code)

	bidPath := "/api/orders/" + order.ID.String() + "/responses"
	w := s.do(t, http.MethodPost, bidPath, executorTok, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp models.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.ResponseStatusPending, resp.Status)
	assert.True(t, resp.CommissionPaid.Equal(decimal.NewFromInt(150)))

	balance := decodeBalance(t, s.do(t, http.MethodGet, "/api/balance", executorTok, nil))
	assert.True(t, balance.Amount.Equal(decimal.NewFromInt(150)))

	w = s.do(t, http.MethodPost, bidPath, executorTok, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/orders/"+order.ID.String()+"/select", customerTok, map[string]string{
		"executor_id": executorID.String(),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var selected models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &selected))
	assert.Equal(t, models.OrderStatusInProgress, selected.Status)
	require.NotNil(t, selected.ExecutorID)
	assert.Equal(t, executorID, *selected.ExecutorID)
}

func TestRouter_InsufficientFundsCarriesAmounts(t *testing.T) {
	s := newTestServer(t)

	order := s.createOrder(t, s.token(t, uuid.New(), service.RoleCustomer))
	executorID := s.executor(t)
	require.Equal(t, http.StatusOK, s.topUp(t, executorID, 100).Code)

	w := s.do(t, http.MethodPost, "/api/orders/"+order.ID.String()+"/responses", s.token(t, executorID, service.RoleExecutor), nil)
	require.Equal(t, http.StatusPaymentRequired, w.Code)

	var body dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "INSUFFICIENT_FUNDS", body.Code)
	require.NotNil(t, body.Required)
	require.NotNil(t, body.Available)
	assert.True(t, body.Required.Equal(decimal.NewFromInt(150)))
	assert.True(t, body.Available.Equal(decimal.NewFromInt(100)))
}

func TestRouter_ApproveRequiresStaffRole(t *testing.T) {
	s := newTestServer(t)

	customerTok := s.token(t, uuid.New(), service.RoleCustomer)
	order := s.createOrder(t, customerTok)
	path := "/api/orders/" + order.ID.String() + "/approve"

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, path, customerTok, nil).Code)

	// Автомодерация уже опубликовала заказ.
	modTok := s.token(t, uuid.New(), service.RoleModerator)
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, path, modTok, nil).Code)
}

func TestRouter_WelcomeBonusOnce(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, s.executor(t), service.RoleExecutor)

	balance := decodeBalance(t, s.do(t, http.MethodPost, "/api/balance/welcome-bonus", tok, nil))
	assert.True(t, balance.BonusAmount.Equal(decimal.NewFromInt(1000)))
	assert.True(t, balance.WelcomeBonusGranted)

	w := s.do(t, http.MethodPost, "/api/balance/welcome-bonus", tok, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}
