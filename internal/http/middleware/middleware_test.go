package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type stubTokens struct {
	userID uuid.UUID
	role   string
	err    error
}

func (s stubTokens) ParseAccess(string) (uuid.UUID, string, error) {
	return s.userID, s.role, s.err
}

func perform(r *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func ok(c *gin.Context) { c.Status(http.StatusOK) }

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	userID := uuid.New()

	r := gin.New()
	r.GET("/me", AuthMiddleware(stubTokens{userID: userID, role: "executor"}), func(c *gin.Context) {
		assert.Equal(t, userID, c.MustGet(ContextUserIDKey))
		assert.Equal(t, "executor", c.GetString(ContextRoleKey))
		c.Status(http.StatusOK)
	})
	r.GET("/bad", AuthMiddleware(stubTokens{err: errors.New("expired")}), ok)

	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer x"}).Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodGet, "/me", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodGet, "/me", map[string]string{"Authorization": "Basic x"}).Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodGet, "/bad", map[string]string{"Authorization": "Bearer x"}).Code)
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := stubTokens{userID: uuid.New(), role: "customer"}

	r := gin.New()
	r.GET("/staff", AuthMiddleware(tokens), RequireRole("moderator", "admin"), ok)
	r.GET("/any", AuthMiddleware(tokens), RequireRole("customer", "executor"), ok)

	auth := map[string]string{"Authorization": "Bearer x"}
	assert.Equal(t, http.StatusForbidden, perform(r, http.MethodGet, "/staff", auth).Code)
	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/any", auth).Code)
}

func TestWebhookSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.POST("/hook", WebhookSecret("s3cret"), ok)
	r.POST("/closed", WebhookSecret(""), ok)

	assert.Equal(t, http.StatusOK, perform(r, http.MethodPost, "/hook", map[string]string{WebhookSecretHeader: "s3cret"}).Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodPost, "/hook", map[string]string{WebhookSecretHeader: "nope"}).Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodPost, "/hook", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodPost, "/closed", map[string]string{WebhookSecretHeader: ""}).Code)
}

func TestUUIDValidator(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/orders/:id", UUIDValidator("id"), ok)

	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/orders/"+uuid.NewString(), nil).Code)
	assert.Equal(t, http.StatusBadRequest, perform(r, http.MethodGet, "/orders/42", nil).Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/bid", RateLimitMiddleware(2, 0), ok)

	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/bid", nil).Code)
	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/bid", nil).Code)
	w := perform(r, http.MethodGet, "/bid", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(CORSMiddleware([]string{"http://localhost:3000"}))
	r.GET("/x", ok)

	w := perform(r, http.MethodGet, "/x", map[string]string{"Origin": "http://localhost:3000"})
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	w = perform(r, http.MethodGet, "/x", map[string]string{"Origin": "http://evil.example"})
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = perform(r, http.MethodOptions, "/x", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
