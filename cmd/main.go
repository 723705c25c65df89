package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/julienschmidt/httprouter"

	"AccessBridgePlatform/internal/consumer"
	"AccessBridgePlatform/internal/directory"
	"AccessBridgePlatform/internal/handler"
	"AccessBridgePlatform/internal/issuer"
	"AccessBridgePlatform/internal/locator"
	"AccessBridgePlatform/internal/lockvendor"
	"AccessBridgePlatform/internal/messaging"
	accessmetrics "AccessBridgePlatform/internal/metrics"
	"AccessBridgePlatform/internal/notifier"
	"AccessBridgePlatform/internal/orchestrator"
	"AccessBridgePlatform/internal/policy"
	"AccessBridgePlatform/internal/session"
	"AccessBridgePlatform/internal/worker"
	"AccessBridgePlatform/pkg/config"
	"AccessBridgePlatform/pkg/health"
	"AccessBridgePlatform/pkg/logger"
	pkg_metrics "AccessBridgePlatform/pkg/metrics"
	pkg_rabbitmq "AccessBridgePlatform/pkg/rabbitmq"
)

const (
	serviceName    = "access-bridge"
	serviceVersion = "v1.0.0"
)

func main() {
	// Переменные окружения из .env, если файл есть рядом
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(findConfigPath())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(cfg.Environment, cfg.Logger.Level, serviceName)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = appLogger.Sync()
	}()

	appLogger.Info("Starting access bridge",
		logger.String("version", serviceVersion),
		logger.String("environment", cfg.Environment))

	if err := pkg_metrics.InitializeOpenTelemetry(serviceName); err != nil {
		appLogger.Error("Failed to initialize tracing", logger.Error(err))
	}
	baseMetrics := pkg_metrics.NewMetrics(serviceName)
	pipelineMetrics := accessmetrics.NewAccessMetrics(serviceName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Сессии вендоров: клиенты сами служат источниками токенов
	sessions := session.NewManager(appLogger)
	lockClient := lockvendor.NewClient(cfg.LockVendor, sessions, appLogger)
	messagingClient := messaging.NewClient(cfg.Messaging, sessions, appLogger)
	sessions.Register(session.ProviderLock, lockClient)
	sessions.Register(session.ProviderMessaging, messagingClient)

	// Компоненты конвейера выдачи кодов
	lockDirectory := directory.New(lockClient, appLogger)
	codeIssuer := issuer.New(lockClient, issuer.StrategyFromConfig(cfg.Issuer), cfg.Issuer.MaxAttempts, appLogger)
	codeLocator := locator.New(lockClient, appLogger)
	accessPolicy := policy.NewResolver(cfg.Access)

	codeNotifier, err := notifier.New(messagingClient, cfg.Notifier.DisplayTimezone, appLogger)
	if err != nil {
		appLogger.Error("Failed to initialize notifier", logger.Error(err))
		os.Exit(1)
	}

	orch := orchestrator.New(accessPolicy, lockDirectory, codeIssuer, codeLocator, codeNotifier,
		pipelineMetrics, appLogger)

	// Опциональный брокер: публикация итогов и прием событий из очередей
	var outcomes *consumer.OutcomePublisher
	var rabbitConn *pkg_rabbitmq.Connection
	rabbitConfig := pkg_rabbitmq.NewConfig()
	rabbitConfig.URL = cfg.RabbitMQ.URL
	rabbitConfig.Exchange = cfg.RabbitMQ.Exchange

	if cfg.RabbitMQ.Enabled {
		rabbitConn, err = pkg_rabbitmq.Connect(ctx, rabbitConfig)
		if err != nil {
			appLogger.Error("Failed to connect to RabbitMQ", logger.Error(err))
			os.Exit(1)
		}
		defer rabbitConn.Close()

		producer := pkg_rabbitmq.NewProducer(rabbitConn, rabbitConfig)
		outcomes = consumer.NewOutcomePublisher(producer, cfg.RabbitMQ.OutcomeQueue, appLogger)
	}

	// Пул обработчиков: события вебхуков и брокера сходятся здесь
	pool, err := worker.NewPool(workerConfig(cfg.Worker), func(taskCtx context.Context, task *worker.Task) {
		processTask(taskCtx, task, orch, outcomes, appLogger)
	}, appLogger)
	if err != nil {
		appLogger.Error("Failed to create worker pool", logger.Error(err))
		os.Exit(1)
	}
	pool.Start(ctx)

	if rabbitConn != nil {
		rabbitConsumer := pkg_rabbitmq.NewConsumer(rabbitConn, rabbitConfig, appLogger)
		bookingConsumer := consumer.NewBookingConsumer(rabbitConsumer, pool, pipelineMetrics, appLogger)
		bookingConsumer.Register(cfg.RabbitMQ.CreatedQueue, cfg.RabbitMQ.CancelledQueue)
		go func() {
			if err := bookingConsumer.Start(ctx); err != nil && ctx.Err() == nil {
				appLogger.Error("Booking consumer stopped", logger.Error(err))
			}
		}()
	}

	// Проверки здоровья зависимостей
	checker := health.NewChecker(serviceVersion)
	checker.Register("lock_vendor", lockClient.HealthCheck)
	checker.Register("messaging", messagingClient.HealthCheck)

	// HTTP сервер: вебхуки, health и метрики
	router := httprouter.New()
	webhooks := handler.New(pool, pipelineMetrics, appLogger)
	webhooks.Register(router)
	router.Handler(http.MethodGet, "/health", health.Handler(checker))
	router.Handler(http.MethodGet, "/ready", health.ReadyHandler())
	router.Handler(http.MethodGet, "/live", health.LiveHandler())
	router.Handler(http.MethodGet, "/metrics", baseMetrics.GetHandler())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      baseMetrics.Middleware(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		appLogger.Info("HTTP server listening", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("HTTP server failed", logger.Error(err))
			cancel()
		}
	}()

	// Ожидание сигнала остановки
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		appLogger.Info("Shutdown signal received", logger.String("signal", sig.String()))
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP server shutdown failed", logger.Error(err))
	}
	cancel()
	if err := pool.Stop(shutdownCtx); err != nil {
		appLogger.Error("Worker pool shutdown failed", logger.Error(err))
	}

	appLogger.Info("Access bridge stopped")
}

// processTask обрабатывает одну задачу пула и публикует итог
func processTask(
	ctx context.Context,
	task *worker.Task,
	orch *orchestrator.Orchestrator,
	outcomes *consumer.OutcomePublisher,
	appLogger logger.Logger,
) {
	taskLogger := appLogger.With(
		logger.String("task_id", task.ID),
		logger.String("kind", string(task.Kind)),
		logger.String("source", task.Source))

	switch task.Kind {
	case worker.TaskCreated:
		if task.Created == nil {
			taskLogger.Error("Created task carries no event")
			return
		}
		result, err := orch.HandleCreated(ctx, *task.Created)
		if err != nil {
			taskLogger.Error("Booking handling failed", logger.Error(err))
			return
		}
		if outcomes != nil {
			outcomes.PublishCreated(ctx, result)
		}
	case worker.TaskCancelled:
		if task.Cancelled == nil {
			taskLogger.Error("Cancelled task carries no event")
			return
		}
		result, err := orch.HandleCancelled(ctx, *task.Cancelled)
		if err != nil {
			taskLogger.Error("Cancellation handling failed", logger.Error(err))
			return
		}
		if outcomes != nil {
			outcomes.PublishCancelled(ctx, result)
		}
	default:
		taskLogger.Warn("Unknown task kind")
	}
}

// workerConfig строит конфигурацию пула из конфигурации приложения
func workerConfig(cfg config.WorkerConfig) *worker.Config {
	shutdownTimeout, _ := config.ParseDuration(cfg.ShutdownTimeout, 30*time.Second)
	return &worker.Config{
		WorkerCount:     cfg.WorkerCount,
		QueueSize:       cfg.QueueSize,
		ShutdownTimeout: shutdownTimeout,
	}
}

// findConfigPath ищет config.yaml: переменная окружения,
// затем текущая директория и ее родители
func findConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}

	wd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := wd
	for i := 0; i < 5; i++ {
		candidate := filepath.Join(dir, "config", "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		dir = filepath.Dir(dir)
	}

	return ""
}
