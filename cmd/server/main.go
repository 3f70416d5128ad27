package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rentbook/internal/database"
	"rentbook/internal/router"
	"rentbook/internal/services"
	"rentbook/internal/storage"
	"rentbook/pkg/config"
	"rentbook/pkg/jwt"
	"rentbook/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	// 加载配置
	cfg := config.GetConfig()

	// 初始化日志
	if err := logger.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	appLogger := logger.GetLogger()
	appLogger.Info("Starting rentbook server...")

	// 业务时区决定"今天"
	services.SetLocation(cfg.Location())

	// 初始化数据库
	if err := database.Initialize(cfg); err != nil {
		appLogger.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			appLogger.Error("Failed to close database:", err)
		}
		if err := database.CloseLocker(); err != nil {
			appLogger.Error("Failed to close Redis:", err)
		}
	}()

	db := database.GetDB()
	if err := database.Migrate(db); err != nil {
		appLogger.Fatalf("Failed to migrate database: %v", err)
	}

	jwtManager := jwt.GetJWTManager()

	// 执行种子数据初始化
	if err := seedData(db, jwtManager, cfg); err != nil {
		appLogger.Fatalf("Failed to initialize seed data: %v", err)
	}

	store, err := storage.NewFileStore(cfg.Storage.Root)
	if err != nil {
		appLogger.Fatalf("Failed to initialize document storage: %v", err)
	}

	// 设置Gin模式
	gin.SetMode(cfg.Server.Mode)

	hub := services.NewNotificationHub()
	rules := services.NewNotificationRules(db, database.GetLocker(), hub, cfg.Scheduler.LockTTL)

	// 启动通知调度器（在路由初始化前）
	if cfg.Scheduler.Enabled {
		scheduler := services.NewNotificationScheduler(rules, cfg.Scheduler.CronSpec, cfg.Location(), cfg.Scheduler.LockTTL)
		if err := scheduler.Start(); err != nil {
			appLogger.Errorf("Failed to start notification scheduler: %v", err)
			// 不影响主服务启动
		} else {
			defer scheduler.Stop()
		}
	}

	r, err := router.SetupRouter(router.Dependencies{
		Config:     cfg,
		DB:         db,
		JWTManager: jwtManager,
		Store:      store,
		Hub:        hub,
		Rules:      rules,
	})
	if err != nil {
		appLogger.Fatalf("Failed to setup router: %v", err)
	}

	// 启动服务器；WebSocket 长连接不设置写超时
	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	appLogger.Infof("Server started on port %s", cfg.Server.Port)

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	// 先关闭推送连接，Shutdown 不会等待被劫持的 WebSocket 连接
	hub.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown:", err)
	}
	appLogger.Info("Server exited")
}
