package main

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/tokotrack/tokotrack-backend/internal/alert"
	"github.com/tokotrack/tokotrack-backend/internal/auth"
	"github.com/tokotrack/tokotrack-backend/internal/config"
	"github.com/tokotrack/tokotrack-backend/internal/modules/catalog"
	"github.com/tokotrack/tokotrack-backend/internal/modules/inventory"
	"github.com/tokotrack/tokotrack-backend/internal/modules/sales"
	"github.com/tokotrack/tokotrack-backend/internal/scheduler"
	"github.com/tokotrack/tokotrack-backend/pkg/logger"
)

func main() {
	log := logger.Must(logger.New())
	defer log.Sync()

	cfg, err := config.Load("")
	if err != nil {
		log.Fatal("loading config", zap.Error(err))
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("opening database", zap.Error(err))
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal("pinging database", zap.Error(err))
	}
	log.Info("connected to database")

	// ── Alert pipeline ──────────────────────────────────────
	var notifier alert.Notifier = alert.NopNotifier{}
	if cfg.Alerts.WebhookURL != "" {
		notifier = alert.NewWebhookNotifier(cfg.Alerts.WebhookURL)
	}
	dispatcher := alert.NewDispatcher(notifier, logger.Named(log, "alert"), cfg.Alerts.QueueSize)
	defer dispatcher.Close()

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)

	// ── Auth & tenant context ───────────────────────────────
	authRepo := auth.NewPostgresRepository(db)
	authService := auth.NewService(authRepo, cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	auth.NewHandler(authService).RegisterRoutes(router)

	// ── Store-scoped modules ────────────────────────────────
	catalogRepo := catalog.NewPostgresRepository(db)
	catalogService := catalog.NewService(catalogRepo)

	inventoryRepo := inventory.NewPostgresRepository(db)
	inventoryService := inventory.NewService(inventoryRepo)

	salesRepo := sales.NewPostgresRepository(db)
	salesService := sales.NewService(salesRepo, dispatcher, logger.Named(log, "sales"))

	router.Group(func(r chi.Router) {
		r.Use(auth.RequireStore(cfg.Auth.JWTSecret))
		catalog.NewHandler(catalogService).RegisterRoutes(r)
		inventory.NewHandler(inventoryService).RegisterRoutes(r)
		sales.NewHandler(salesService).RegisterRoutes(r)
	})

	// ── Overdue-debt scan ───────────────────────────────────
	sched := scheduler.New(salesRepo, cfg.Scheduler.DebtScanSchedule, logger.Named(log, "scheduler"))
	sched.Start()
	defer sched.Stop()

	log.Info("tokotrack api listening", zap.String("port", cfg.Server.Port))
	if err := http.ListenAndServe(":"+cfg.Server.Port, router); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
