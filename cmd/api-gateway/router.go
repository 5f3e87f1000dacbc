package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/meal-checkin-api/api/swagger"
	"github.com/noah-isme/meal-checkin-api/internal/handler"
	"github.com/noah-isme/meal-checkin-api/internal/middleware"
	"github.com/noah-isme/meal-checkin-api/pkg/config"
	"github.com/noah-isme/meal-checkin-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/meal-checkin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/meal-checkin-api/pkg/middleware/requestid"
)

func newRouter(cfg *config.Config, logr *zap.Logger, deps *services) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = cfg.Roster.MaxFileSizeBytes
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics, cfg.APIPrefix+"/metrics"))
	r.Use(middleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(deps.metrics, readinessChecks(deps))
	kioskHandler := handler.NewKioskHandler(deps.checkIns, deps.students, deps.photos)
	photoHandler := handler.NewPhotoHandler(deps.photos)
	authHandler := handler.NewAuthHandler(deps.auth)
	applicantHandler := handler.NewApplicantHandler(deps.applicants, deps.roster)
	studentHandler := handler.NewStudentHandler(deps.students)
	checkInHandler := handler.NewCheckInHandler(deps.checkIns, deps.reports)
	backupHandler := handler.NewBackupHandler(deps.backups)
	maintenanceHandler := handler.NewMaintenanceHandler(deps.maint)

	api := r.Group(cfg.APIPrefix)
	api.GET("/health", metricsHandler.Health)
	api.GET("/ready", metricsHandler.Ready)
	if deps.metrics != nil {
		api.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		api.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	kiosk := api.Group("/kiosk")
	kiosk.POST("/check", kioskHandler.CheckIn)
	kiosk.GET("/checkins/today", kioskHandler.Today)
	kiosk.POST("/students/lookup", kioskHandler.Lookup)
	kiosk.POST("/register", kioskHandler.Register)
	kiosk.POST("/change-pin", kioskHandler.ChangePIN)
	kiosk.POST("/photos", kioskHandler.UploadPhoto)
	api.GET("/photos", photoHandler.Serve)

	requireAdmin := middleware.JWT(deps.auth)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/init", authHandler.Init)
	auth.GET("/me", requireAdmin, authHandler.Me)
	auth.PUT("/password", requireAdmin, middleware.Audit(logr, "admin.password"), authHandler.ChangePassword)
	auth.PUT("/username", requireAdmin, middleware.Audit(logr, "admin.username"), authHandler.ChangeUsername)

	admin := api.Group("/admin", requireAdmin)

	applicants := admin.Group("/applicants")
	applicants.GET("", applicantHandler.List)
	applicants.POST("", applicantHandler.Add)
	applicants.POST("/upload", middleware.Audit(logr, "applicants.upload"), applicantHandler.Upload)
	applicants.DELETE("/:studentId", applicantHandler.Remove)

	students := admin.Group("/students")
	students.GET("", studentHandler.List)
	students.POST("", studentHandler.Create)
	students.PUT("/:studentId", studentHandler.Update)
	students.DELETE("/:studentId", middleware.Audit(logr, "students.delete"), studentHandler.Delete)

	checkIns := admin.Group("/checkins")
	checkIns.GET("", checkInHandler.List)
	checkIns.GET("/summary", checkInHandler.Summary)
	checkIns.GET("/export", checkInHandler.Export)
	checkIns.DELETE("/:id", middleware.Audit(logr, "checkins.cancel"), checkInHandler.Cancel)

	backups := admin.Group("/backups")
	backups.GET("", backupHandler.List)
	backups.POST("", backupHandler.Create)
	backups.DELETE("/:filename", middleware.Audit(logr, "backups.delete"), backupHandler.Delete)
	backups.POST("/:filename/restore", middleware.Audit(logr, "backups.restore"), backupHandler.Restore)

	admin.DELETE("/data", middleware.Audit(logr, "data.reset"), maintenanceHandler.Reset)

	return r
}
