package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinic-scheduling/config"
	deliveryHttp "clinic-scheduling/internal/delivery/http"
	"clinic-scheduling/internal/delivery/http/handler"
	"clinic-scheduling/internal/delivery/http/middleware"
	"clinic-scheduling/internal/infrastructure/cache"
	"clinic-scheduling/internal/infrastructure/database"
	"clinic-scheduling/internal/repository"
	"clinic-scheduling/internal/service"
	"clinic-scheduling/internal/usecase"
	"clinic-scheduling/pkg/jwt"
	"clinic-scheduling/pkg/validator"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App holds all dependencies for the application
type App struct {
	Config      *config.Config
	Log         *logrus.Logger
	DB          *gorm.DB
	RedisClient *redis.Client
	Server      *http.Server
}

// New creates a new App instance with all dependencies initialized
func New(cfg *config.Config) (*App, error) {
	log := NewLogger(cfg.App)
	app := &App{Config: cfg, Log: log}

	db, err := database.NewPostgresConnection(cfg.DB, cfg.App, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db
	log.Info("Database connected successfully")

	redisClient, err := cache.NewRedisClient(context.Background(), cfg.Redis, log)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	app.RedisClient = redisClient
	log.Info("Redis connected successfully")

	app.Server = initializeServer(cfg, log, db, redisClient)

	return app, nil
}

// NewLogger configures the standard logrus logger from the app config.
func NewLogger(cfg config.AppConfig) *logrus.Logger {
	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	return log
}

// initializeServer creates and configures the HTTP server
func initializeServer(cfg *config.Config, log *logrus.Logger, db *gorm.DB, redisClient *redis.Client) *http.Server {
	jwtService := jwt.NewJWTService(cfg.JWT)
	customValidator := validator.NewValidator()
	txm := database.NewTxManager(db)

	// Initialize repositories
	userRepo := repository.NewUserRepository()
	doctorProfileRepo := repository.NewDoctorProfileRepository()
	appointmentRepo := repository.NewAppointmentRepository()
	auditLogRepo := repository.NewAuditLogRepository()

	// Initialize services
	tokenStore := service.NewTokenStore(redisClient, log)
	slotLocker := service.NewSlotLocker(redisClient, log, cfg.Slot.LockTTL)
	auditService := service.NewAuditService(log, auditLogRepo)

	// Initialize usecases
	authUsecase := usecase.NewAuthUsecase(txm, log, userRepo, jwtService, tokenStore, auditService)
	userUsecase := usecase.NewUserUsecase(txm, log, userRepo, doctorProfileRepo, appointmentRepo, auditService, tokenStore)
	doctorUsecase := usecase.NewDoctorUsecase(txm, log, doctorProfileRepo)
	appointmentUsecase := usecase.NewAppointmentUsecase(txm, log, appointmentRepo, userRepo, doctorProfileRepo, auditService, slotLocker, cfg.App.Location)
	auditLogUsecase := usecase.NewAuditLogUsecase(txm, log, auditLogRepo)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authUsecase, customValidator)
	userHandler := handler.NewUserHandler(userUsecase, customValidator)
	doctorHandler := handler.NewDoctorHandler(doctorUsecase, appointmentUsecase)
	appointmentHandler := handler.NewAppointmentHandler(appointmentUsecase, customValidator)
	auditLogHandler := handler.NewAuditLogHandler(auditLogUsecase)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService, tokenStore, log)
	corsMiddleware := middleware.NewCORSMiddleware(cfg.App.CORSOrigin)
	loggingMiddleware := middleware.NewLoggingMiddleware(log)

	router := deliveryHttp.NewRouter(
		authHandler,
		userHandler,
		doctorHandler,
		appointmentHandler,
		auditLogHandler,
		authMiddleware,
		corsMiddleware,
		loggingMiddleware,
	)

	return &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.App.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Seed connects to the database and ensures roles and the administrator exist.
func Seed(ctx context.Context, cfg *config.Config) error {
	log := NewLogger(cfg.App)

	db, err := database.NewPostgresConnection(cfg.DB, cfg.App, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app := &App{Config: cfg, Log: log, DB: db}
	defer app.Close()

	seeder := usecase.NewSeedUsecase(database.NewTxManager(db), log, repository.NewRoleRepository(), repository.NewUserRepository())
	if err := seeder.Seed(ctx, cfg.Admin); err != nil {
		return fmt.Errorf("failed to seed: %w", err)
	}

	log.Info("Seed completed")
	return nil
}

// Run starts the HTTP server and handles graceful shutdown
func (app *App) Run() {
	go func() {
		app.Log.Infof("Server starting on port %s", app.Config.App.Port)
		app.Log.Infof("Environment: %s, timezone: %s", app.Config.App.Env, app.Config.App.Timezone)
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	app.waitForShutdown()
}

// waitForShutdown blocks until an interrupt signal is received
func (app *App) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.Server.Shutdown(ctx); err != nil {
		app.Log.Errorf("Server forced to shutdown: %v", err)
	}

	app.Close()

	app.Log.Info("Server shutdown complete")
}

// Close closes all connections (database, redis, etc.)
func (app *App) Close() {
	if app.DB != nil {
		if sqlDB, err := app.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	if app.RedisClient != nil {
		_ = app.RedisClient.Close()
	}
}
