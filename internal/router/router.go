package router

import (
	"fmt"

	"rentbook/internal/handlers"
	"rentbook/internal/metrics"
	"rentbook/internal/middleware"
	"rentbook/internal/models"
	"rentbook/internal/services"
	"rentbook/internal/storage"
	"rentbook/pkg/config"
	"rentbook/pkg/jwt"
	"rentbook/pkg/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Dependencies 路由依赖
type Dependencies struct {
	Config     *config.Config
	DB         *gorm.DB
	JWTManager *jwt.JWTManager
	Store      storage.Store
	Hub        *services.NotificationHub
	Rules      *services.NotificationRules
}

// SetupRouter 设置路由
func SetupRouter(deps Dependencies) (*gin.Engine, error) {
	handlers.RegisterValidation()

	router := gin.New()

	// 中间件
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.SetupCORS(&deps.Config.CORS))
	if deps.Config.Metrics.Enabled {
		router.Use(metrics.Middleware())
		router.GET(deps.Config.Metrics.Path, gin.WrapH(metrics.Handler()))
	}

	router.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "not found")
	})

	systemHandler := handlers.NewSystemHandler(deps.DB)
	router.GET("/health", systemHandler.Health)

	if err := registerRoutes(router, deps); err != nil {
		return nil, err
	}
	return router, nil
}

// 注册所有 API 路由
func registerRoutes(router *gin.Engine, deps Dependencies) error {
	cfg := deps.Config
	db := deps.DB

	authLimiter, err := middleware.NewLimiter(cfg.RateLimit.Auth)
	if err != nil {
		return fmt.Errorf("invalid auth rate limit %q: %w", cfg.RateLimit.Auth, err)
	}
	rateLimit := middleware.RateLimit(authLimiter)

	userService := services.NewUserService(db, deps.JWTManager)
	auth := middleware.NewAuthMiddleware(userService, services.NewAccessResolver(db), deps.JWTManager)
	login := auth.RequireLogin()

	api := router.Group(cfg.Server.APIPrefix)

	// 认证
	authHandler := handlers.NewAuthHandler(userService)
	api.POST("/users/register", rateLimit, authHandler.Register)
	api.GET("/users/me", login, authHandler.Me)
	api.POST("/token", rateLimit, authHandler.Token)
	api.POST("/token/refresh", rateLimit, authHandler.TokenRefresh)

	// 房源
	apartmentHandler := handlers.NewApartmentHandler(services.NewApartmentService(db, deps.Store))
	apartments := api.Group("/apartments", login)
	{
		apartments.GET("", apartmentHandler.List)
		apartments.POST("", apartmentHandler.Create)
		apartments.GET("/:id", apartmentHandler.Get)
		apartments.PUT("/:id", apartmentHandler.Update)
		apartments.PATCH("/:id", apartmentHandler.Update)
		apartments.DELETE("/:id", apartmentHandler.Delete)
	}

	// 租客
	tenantHandler := handlers.NewTenantHandler(services.NewTenantService(db, deps.Store))
	tenants := api.Group("/tenants", login)
	{
		tenants.GET("", tenantHandler.List)
		tenants.POST("", tenantHandler.Create)
		tenants.GET("/:id", tenantHandler.Get)
		tenants.PUT("/:id", tenantHandler.Update)
		tenants.PATCH("/:id", tenantHandler.Update)
		tenants.DELETE("/:id", tenantHandler.Delete)
	}

	// 账单
	paymentHandler := handlers.NewPaymentHandler(services.NewPaymentService(db, deps.Hub))
	payments := api.Group("/payments", login)
	{
		payments.GET("", paymentHandler.List)
		payments.POST("", paymentHandler.Create)
		payments.GET("/:id", paymentHandler.Get)
		payments.PUT("/:id", paymentHandler.Update)
		payments.PATCH("/:id", paymentHandler.Update)
		payments.DELETE("/:id", paymentHandler.Delete)
		payments.POST("/:id/mark_paid", paymentHandler.MarkPaid)
		payments.POST("/:id/mark_unpaid", paymentHandler.MarkUnpaid)
	}

	// 文档
	documentHandler := handlers.NewDocumentHandler(services.NewDocumentService(db, deps.Store), cfg.Server.APIPrefix, cfg.Storage.MaxUploadSize)
	documents := api.Group("/documents", login)
	{
		documents.GET("", documentHandler.List)
		documents.POST("", documentHandler.Create)
		documents.GET("/:id", documentHandler.Get)
		documents.PUT("/:id", documentHandler.Update)
		documents.PATCH("/:id", documentHandler.Update)
		documents.DELETE("/:id", documentHandler.Delete)
		documents.GET("/:id/download", documentHandler.Download)
	}

	// 通知；stream 通过 ?token= 自行认证
	notificationHandler := handlers.NewNotificationHandler(services.NewNotificationService(db), deps.Rules)
	streamHandler := handlers.NewNotificationStreamHandler(auth, deps.Hub, cfg.CORS.AllowOrigins)
	api.GET("/notifications/stream", streamHandler.Stream)
	notifications := api.Group("/notifications", login)
	{
		notifications.GET("", notificationHandler.List)
		notifications.GET("/unread_count", notificationHandler.UnreadCount)
		notifications.POST("/mark_all_as_read", notificationHandler.MarkAllAsRead)
		notifications.POST("/sweep", auth.RequireRole(models.RoleAdmin), notificationHandler.Sweep)
		notifications.GET("/:id", notificationHandler.Get)
		notifications.PUT("/:id", notificationHandler.Update)
		notifications.PATCH("/:id", notificationHandler.Update)
		notifications.DELETE("/:id", notificationHandler.Delete)
		notifications.POST("/:id/mark_as_read", notificationHandler.MarkAsRead)
	}

	// 租客历史
	historyHandler := handlers.NewTenantHistoryHandler(services.NewTenantHistoryService(db))
	history := api.Group("/tenant-history", login)
	{
		history.GET("", historyHandler.List)
		history.GET("/summary", historyHandler.Summary)
		history.GET("/:id", historyHandler.Get)
	}

	// 会计授权
	delegationHandler := handlers.NewAccountantOwnerHandler(services.NewAccountantOwnerService(db))
	delegations := api.Group("/accountant-owners", login)
	{
		delegations.GET("", delegationHandler.List)
		delegations.POST("", delegationHandler.Create)
		delegations.GET("/:id", delegationHandler.Get)
		delegations.PUT("/:id", delegationHandler.Update)
		delegations.PATCH("/:id", delegationHandler.Update)
		delegations.DELETE("/:id", delegationHandler.Delete)
	}

	return nil
}
