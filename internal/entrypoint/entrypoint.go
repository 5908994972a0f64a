package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/bookswap/internal/audit"
	"github.com/openshelf/bookswap/internal/config"
	"github.com/openshelf/bookswap/internal/database"
	auditrepo "github.com/openshelf/bookswap/internal/database/audit"
	"github.com/openshelf/bookswap/internal/database/catalog"
	"github.com/openshelf/bookswap/internal/database/holdings"
	"github.com/openshelf/bookswap/internal/database/users"
	"github.com/openshelf/bookswap/internal/exchange"
	http_controllers "github.com/openshelf/bookswap/internal/http"
	"github.com/openshelf/bookswap/internal/scheduler"
	"github.com/openshelf/bookswap/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Call shutdown callback first (e.g., to stop task queue)
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Bookswap v%s", version)

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	// Repositories
	catalogRepo := catalog.NewRepository(db.DB)
	holdingsRepo := holdings.NewRepository(db.DB)
	usersRepo := users.NewRepository(db.DB)
	auditRepo := auditrepo.NewRepository(db.DB)

	// Services
	auditService := audit.NewService(auditRepo)
	engine := exchange.NewService(db.DB, catalogRepo, holdingsRepo, usersRepo, auditService, cfg.Exchange.MaxTxRetries)

	// Initialize task queue if enabled
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	var cleanupScheduler *scheduler.AuditCleanupScheduler
	if cfg.Tasks.Enabled {
		taskCfg := tasks.Config{
			Workers:         cfg.Tasks.Workers,
			ReleaseAfter:    cfg.Tasks.ReleaseAfter,
			CleanupInterval: cfg.Tasks.CleanupInterval,
		}

		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewPruneAuditLogQueue(auditService),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		cleanupScheduler = scheduler.NewAuditCleanupScheduler(
			taskClient,
			cfg.Audit.CleanupSchedule,
			cfg.Audit.RetentionDays,
		)
		if err := cleanupScheduler.Start(taskCtx); err != nil {
			log.Printf("WARNING: failed to start audit cleanup scheduler: %v", err)
		}
	}

	// Build router configuration with all dependencies
	routerCfg := http_controllers.RouterConfig{
		Identity: usersRepo,
		Books:    http_controllers.NewBooksController(catalogRepo, holdingsRepo),
		Exchange: http_controllers.NewExchangeController(engine, holdingsRepo),
		Users:    http_controllers.NewUsersController(usersRepo, holdingsRepo, engine, auditService),
		Audit:    http_controllers.NewAuditController(auditService),
		Health:   http_controllers.NewHealthController(db, version),
	}

	router := http_controllers.NewRouter(routerCfg)

	// Shutdown callback for graceful cleanup
	onShutdown := func(ctx context.Context) {
		if cleanupScheduler != nil {
			cleanupScheduler.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}
