package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/montazh-backend/internal/config"
	"github.com/ignatzorin/montazh-backend/internal/http/handlers"
	"github.com/ignatzorin/montazh-backend/internal/http/middleware"
	"github.com/ignatzorin/montazh-backend/internal/service"
)

// Handlers набор HTTP хэндлеров приложения.
type Handlers struct {
	Orders        *handlers.OrderHandler
	Responses     *handlers.ResponseHandler
	Payments      *handlers.PaymentHandler
	Webhooks      *handlers.WebhookHandler
	Reviews       *handlers.ReviewHandler
	Notifications *handlers.NotificationHandler
	WS            *handlers.WSHandler
	Health        *handlers.HealthHandler
}

func SetupRouter(cfg *config.Config, h Handlers, tokens middleware.AccessTokenParser) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)

	api := r.Group("/api")
	api.GET("/ws", h.WS.Handle)

	// Платёжный шлюз: общий секрет вместо JWT.
	webhooks := api.Group("/webhooks/payments")
	webhooks.Use(middleware.WebhookSecret(cfg.WebhookSecret))
	webhooks.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit*10, cfg.RateLimitPeriod))
	{
		webhooks.POST("/top-up", h.Webhooks.TopUp)
		webhooks.POST("/subscription", h.Webhooks.Subscription)
	}

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokens))

	bidLimit := middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod)
	id := middleware.UUIDValidator("id")
	staff := middleware.RequireRole(service.RoleModerator, service.RoleAdmin)

	{
		protected.POST("/orders", h.Orders.CreateOrder)
		protected.GET("/orders/my", h.Orders.ListMyOrders)
		protected.GET("/orders/:id", id, h.Orders.GetOrder)
		protected.PATCH("/orders/:id", id, h.Orders.UpdateOrder)
		protected.POST("/orders/:id/cancel", id, h.Orders.CancelOrder)
		protected.POST("/orders/:id/select", id, h.Orders.SelectExecutor)
		protected.POST("/orders/:id/start", id, h.Orders.StartWork)
		protected.POST("/orders/:id/cancel-work", id, h.Orders.CancelWork)
		protected.POST("/orders/:id/complete", id, h.Orders.CompleteOrder)
		protected.POST("/orders/:id/archive", id, h.Orders.ArchiveOrder)
		protected.POST("/orders/:id/approve", id, staff, h.Orders.ApproveOrder)

		protected.POST("/orders/:id/responses", id, bidLimit, h.Responses.CreateResponse)
		protected.GET("/orders/:id/responses", id, h.Responses.ListOrderResponses)
		protected.GET("/responses/my", h.Responses.ListMyResponses)

		protected.GET("/orders/:id/reviews", id, h.Reviews.ListOrderReviews)
		protected.GET("/orders/:id/reviews/eligibility", id, h.Reviews.CanLeaveReview)
		protected.POST("/orders/:id/reviews", id, h.Reviews.CreateReview)

		protected.GET("/balance", h.Payments.GetBalance)
		protected.GET("/balance/transactions", h.Payments.ListTransactions)
		protected.GET("/balance/reconcile", h.Payments.Reconcile)
		protected.GET("/balance/can-bid", h.Responses.CanBid)
		protected.POST("/balance/welcome-bonus", h.Payments.GrantWelcomeBonus)

		protected.POST("/subscriptions", h.Payments.PurchaseSubscription)
		protected.GET("/subscriptions/me", h.Payments.GetSubscription)

		protected.GET("/notifications", h.Notifications.ListNotifications)
		protected.GET("/notifications/unread/count", h.Notifications.CountUnread)
		protected.PUT("/notifications/:id/read", id, h.Notifications.MarkAsRead)
	}

	return r
}
