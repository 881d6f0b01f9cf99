package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/montazh-backend/internal/config"
	"github.com/ignatzorin/montazh-backend/internal/db"
	domain "github.com/ignatzorin/montazh-backend/internal/domain/repository"
	httpHandlers "github.com/ignatzorin/montazh-backend/internal/http/handlers"
	httpRouter "github.com/ignatzorin/montazh-backend/internal/http/router"
	"github.com/ignatzorin/montazh-backend/internal/logger"
	"github.com/ignatzorin/montazh-backend/internal/models"
	"github.com/ignatzorin/montazh-backend/internal/notify"
	"github.com/ignatzorin/montazh-backend/internal/repository"
	"github.com/ignatzorin/montazh-backend/internal/repository/memory"
	"github.com/ignatzorin/montazh-backend/internal/service"
	"github.com/ignatzorin/montazh-backend/internal/storage"
	"github.com/ignatzorin/montazh-backend/internal/worker"
	"github.com/ignatzorin/montazh-backend/internal/ws"
)

// repositories хранилища, выбранные драйвером STORAGE_DRIVER.
type repositories struct {
	uow           domain.UnitOfWork
	profiles      domain.ProfileRepository
	reviews       domain.ReviewRepository
	notifications domain.NotificationRepository
}

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	logger.Init(cfg.LogLevel)
	if cfg.Env == "development" {
		logger.SetTextFormatter()
	}

	var (
		dbConn *sqlx.DB
		repos  repositories
	)
	switch cfg.StorageDriver {
	case "memory":
		logger.Log.Warn("main: данные хранятся в памяти и пропадут после остановки")
		profiles := memory.NewProfiles()
		for _, id := range cfg.MemoryExecutors {
			profiles.Put(models.ExecutorProfile{UserID: id, ProfileCompleted: true, IsActive: true})
		}
		logger.Log.WithField("executors", len(cfg.MemoryExecutors)).Info("main: профили исполнителей загружены в память")
		repos = repositories{
			uow:           memory.NewStore(),
			profiles:      profiles,
			reviews:       memory.NewReviews(),
			notifications: memory.NewNotifications(),
		}
	default:
		dbConn, err = db.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("main: ошибка подключения к базе: %v", err)
		}
		defer safeClose(dbConn)

		if err := db.RunMigrations(dbConn); err != nil {
			log.Fatalf("main: ошибка миграций: %v", err)
		}
		repos = repositories{
			uow:           repository.NewStore(dbConn),
			profiles:      repository.NewProfileRepository(dbConn),
			reviews:       repository.NewReviewRepository(dbConn),
			notifications: repository.NewNotificationRepository(dbConn),
		}
	}

	attachments, err := storage.NewAttachmentStorage(cfg.AttachmentsPath)
	if err != nil {
		log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret, 24*time.Hour)
	notificationService := service.NewNotificationService(repos.notifications)

	// Вебсокеты.
	hub := ws.NewHub(ctx)
	hub.SetNotificationSaver(notificationService)
	go hub.Run()

	dispatcher := notify.NewDispatcher(hub, nil)

	// Сервисы движка.
	settings := service.Settings(cfg.Marketplace)
	ledger := service.NewLedger()
	tariffs := service.NewTariffResolver(settings)
	responseService := service.NewResponseService(repos.uow, repos.profiles, tariffs, ledger, dispatcher, settings)
	orderService := service.NewOrderService(repos.uow, responseService, tariffs, ledger, dispatcher, attachments, settings)
	paymentService := service.NewPaymentService(repos.uow, ledger, tariffs, dispatcher, settings)
	reviewService := service.NewReviewService(repos.reviews, repos.uow.Orders())

	sweeper := worker.NewExpirySweeper(orderService, cfg.ExpirySweepInterval)
	go sweeper.Run(ctx)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, httpRouter.Handlers{
		Orders:        httpHandlers.NewOrderHandler(orderService),
		Responses:     httpHandlers.NewResponseHandler(responseService),
		Payments:      httpHandlers.NewPaymentHandler(paymentService),
		Webhooks:      httpHandlers.NewWebhookHandler(paymentService),
		Reviews:       httpHandlers.NewReviewHandler(reviewService),
		Notifications: httpHandlers.NewNotificationHandler(notificationService),
		WS:            httpHandlers.NewWSHandler(hub, tokenManager, cfg.AllowedOrigins),
		Health:        httpHandlers.NewHealthHandler(dbConn),
	}, tokenManager)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.WithError(err).Error("main: ошибка остановки http сервера")
		}
	}()

	logger.Log.WithField("port", cfg.HTTPPort).WithField("storage", cfg.StorageDriver).Info("main: HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
