package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/crc-dev/volreg-api/api/swagger"
	"github.com/crc-dev/volreg-api/internal/eligibility"
	"github.com/crc-dev/volreg-api/internal/handler"
	"github.com/crc-dev/volreg-api/internal/middleware"
	"github.com/crc-dev/volreg-api/internal/models"
	"github.com/crc-dev/volreg-api/internal/repository"
	"github.com/crc-dev/volreg-api/internal/service"
	"github.com/crc-dev/volreg-api/pkg/cache"
	"github.com/crc-dev/volreg-api/pkg/config"
	"github.com/crc-dev/volreg-api/pkg/database"
	"github.com/crc-dev/volreg-api/pkg/logger"
	corsmiddleware "github.com/crc-dev/volreg-api/pkg/middleware/cors"
	reqidmiddleware "github.com/crc-dev/volreg-api/pkg/middleware/requestid"
)

// @title Volunteer Registry API
// @version 1.0.0
// @description Clinical trial volunteer registry with derived eligibility status
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}

	validate := validator.New()
	engine := eligibility.New(cfg.Eligibility.MaxAge, cfg.Eligibility.Washout)

	volunteerRepo := repository.NewVolunteerRepository(db)
	studyRepo := repository.NewStudyRepository(db)
	participationRepo := repository.NewParticipationRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		SingleSession:      cfg.JWT.SingleSession,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	volunteerSvc := service.NewVolunteerService(volunteerRepo, participationRepo, studyRepo, engine, validate, logr)
	studySvc := service.NewStudyService(studyRepo, participationRepo, validate, logr)
	participationSvc := service.NewParticipationService(participationRepo, volunteerRepo, studyRepo, engine, validate, logr)
	importSvc := service.NewImportService(volunteerRepo, studyRepo, participationRepo, logr)
	auditSvc := service.NewAuditService(auditRepo, logr)
	dashboardSvc := service.NewDashboardService(volunteerRepo, participationRepo, engine, cacheRepo, logr, cfg.Dashboard.CacheTTL)
	metricsSvc := service.NewMetricsService()

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	volunteerHandler := handler.NewVolunteerHandler(volunteerSvc, participationSvc, dashboardSvc)
	studyHandler := handler.NewStudyHandler(studySvc, dashboardSvc)
	participationHandler := handler.NewParticipationHandler(participationSvc, dashboardSvc)
	importHandler := handler.NewImportHandler(importSvc, dashboardSvc, cfg.Import)
	auditHandler := handler.NewAuditHandler(auditSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc, metricsSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))

	protected.POST("/auth/logout", authHandler.Logout)
	protected.POST("/auth/change-password", authHandler.ChangePassword)
	protected.GET("/auth/me", authHandler.Me)

	protected.GET("/volunteers", volunteerHandler.List)
	protected.GET("/volunteers/:id", volunteerHandler.Get)
	protected.GET("/volunteers/:id/participations", volunteerHandler.ListParticipations)
	protected.GET("/studies", studyHandler.List)
	protected.GET("/studies/:id", studyHandler.Get)
	protected.GET("/audit-logs", auditHandler.List)
	protected.GET("/audit-logs/:id", auditHandler.Get)
	protected.GET("/dashboard", dashboardHandler.Summary)

	staff := protected.Group("")
	staff.Use(middleware.RequireStaff())

	staff.POST("/volunteers", volunteerHandler.Create)
	staff.PATCH("/volunteers/:id", volunteerHandler.Update)
	staff.DELETE("/volunteers/:id", volunteerHandler.Delete)
	staff.POST("/volunteers/:id/participations", volunteerHandler.AddParticipation)
	staff.PATCH("/participations/:id", participationHandler.Update)
	staff.POST("/studies", studyHandler.Create)
	staff.PATCH("/studies/:id", studyHandler.Update)
	staff.DELETE("/studies/:id", studyHandler.Delete)
	staff.POST("/imports/volunteers", importHandler.Upload)

	// The change history only ever grows. Every mutating verb on it is
	// answered with 405 so clients learn the rule from the API itself.
	protected.POST("/audit-logs", auditHandler.RejectMutation)
	protected.PUT("/audit-logs/:id", auditHandler.RejectMutation)
	protected.PATCH("/audit-logs/:id", auditHandler.RejectMutation)
	protected.DELETE("/audit-logs/:id", auditHandler.RejectMutation)

	admin := protected.Group("/users")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	admin.GET("", userHandler.List)
	admin.GET("/:id", userHandler.Get)
	admin.POST("", userHandler.Create)
	admin.PUT("/:id", userHandler.Update)
	admin.DELETE("/:id", userHandler.Delete)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
