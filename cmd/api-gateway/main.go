package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/meal-checkin-api/internal/handler"
	"github.com/noah-isme/meal-checkin-api/internal/repository"
	"github.com/noah-isme/meal-checkin-api/internal/service"
	"github.com/noah-isme/meal-checkin-api/pkg/cache"
	"github.com/noah-isme/meal-checkin-api/pkg/config"
	"github.com/noah-isme/meal-checkin-api/pkg/database"
	"github.com/noah-isme/meal-checkin-api/pkg/jobs"
	"github.com/noah-isme/meal-checkin-api/pkg/logger"
	"github.com/noah-isme/meal-checkin-api/pkg/period"
	"github.com/noah-isme/meal-checkin-api/pkg/storage"
	"github.com/noah-isme/meal-checkin-api/pkg/studentid"
)

// @title Meal Check-In API
// @version 1.0.0
// @description NFC kiosk check-in and admin dashboard backend for school meal service
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 10 * time.Second

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

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	redisClient := connectCache(ctx, cfg, logr)
	if redisClient != nil {
		defer redisClient.Close()
	}

	deps, err := buildServices(cfg, logr, db, redisClient)
	if err != nil {
		return err
	}

	if created, err := deps.auth.EnsureDefaultAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	} else if created {
		logr.Info("default admin created", zap.String("username", cfg.Admin.Username))
	}

	queue := jobs.NewQueue("backups", jobs.QueueConfig{
		Workers:    1,
		BufferSize: 8,
		MaxRetries: 2,
		RetryDelay: 5 * time.Second,
		Logger:     logr,
	})
	queue.Handle(service.JobBackupStartup, deps.backups.JobHandler(service.BackupKindStartup))
	queue.Handle(service.JobBackupScheduled, deps.backups.JobHandler(service.BackupKindScheduled))
	queue.Start(ctx)
	defer queue.Stop()

	if cfg.Backups.OnStartup {
		if _, err := queue.Enqueue(service.JobBackupStartup); err != nil {
			logr.Warn("startup backup not queued", zap.Error(err))
		}
	}
	if err := queue.Schedule(service.JobBackupScheduled, cfg.Backups.Interval); err != nil {
		logr.Warn("scheduled backups disabled", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newRouter(cfg, logr, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("driver", cfg.Database.Driver))
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
		logr.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logr.Info("server stopped")
	return nil
}

// connectCache returns nil when caching is disabled or redis is unreachable; the check-in log is then served uncached.
func connectCache(ctx context.Context, cfg *config.Config, logr *zap.Logger) *redis.Client {
	if !cfg.Cache.Enabled {
		return nil
	}
	client, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, cache disabled", zap.Error(err))
		return nil
	}
	return client
}

type services struct {
	db         *sqlx.DB
	cacheRepo  *repository.CacheRepository
	cached     bool
	metrics    *service.MetricsService
	auth       *service.AuthService
	checkIns   *service.CheckInService
	reports    *service.ReportService
	students   *service.StudentService
	applicants *service.ApplicantService
	roster     *service.RosterService
	backups    *service.BackupService
	photos     *service.PhotoService
	maint      *service.MaintenanceService
}

func buildServices(cfg *config.Config, logr *zap.Logger, db *sqlx.DB, redisClient *redis.Client) (*services, error) {
	var metrics *service.MetricsService
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService()
	}

	validate := studentid.NewValidator()
	clock := period.NewClock(cfg.Location(), nil)

	studentRepo := repository.NewStudentRepository(db)
	applicantRepo := repository.NewApplicantRepository(db)
	checkInRepo := repository.NewCheckInRepository(db)
	adminRepo := repository.NewAdminRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.CheckInTTL, logr, redisClient != nil)

	photoFiles, err := storage.NewLocalStorage(cfg.Photos.Dir)
	if err != nil {
		return nil, fmt.Errorf("photo storage: %w", err)
	}
	photos := service.NewPhotoService(photoFiles, storage.NewSignedURLSigner(cfg.Photos.SignedURLSecret, cfg.Photos.SignedURLTTL),
		clock, logr, service.PhotoConfig{MaxFileSizeBytes: cfg.Photos.MaxFileSizeBytes, URLPath: cfg.APIPrefix + "/photos"})

	backupFiles, err := storage.NewLocalStorage(cfg.Backups.Dir)
	if err != nil {
		return nil, fmt.Errorf("backup storage: %w", err)
	}
	backupName := "meal.db"
	if cfg.Database.Driver != config.DriverPostgres && cfg.Database.Path != "" {
		backupName = filepath.Base(cfg.Database.Path)
	}

	checkIns := service.NewCheckInService(studentRepo, applicantRepo, checkInRepo, photos, cacheSvc, metrics, clock, validate, logr)

	return &services{
		db:         db,
		cacheRepo:  cacheRepo,
		cached:     redisClient != nil,
		metrics:    metrics,
		auth: service.NewAuthService(adminRepo, validate, logr, service.AuthConfig{
			AccessTokenSecret: cfg.JWT.Secret,
			AccessTokenExpiry: cfg.JWT.Expiration,
			Issuer:            cfg.JWT.Issuer,
		}),
		checkIns:   checkIns,
		reports:    service.NewReportService(checkIns, logr),
		students:   service.NewStudentService(studentRepo, cacheSvc, validate, logr),
		applicants: service.NewApplicantService(applicantRepo, clock, validate, logr),
		roster:     service.NewRosterService(applicantRepo, metrics, clock, logr, cfg.Roster.MaxFileSizeBytes),
		backups: service.NewBackupService(repository.NewBackupRepository(db), backupFiles, cacheSvc, metrics, clock, logr,
			service.BackupConfig{DatabaseName: backupName, MaxFiles: cfg.Backups.MaxFiles}),
		photos: photos,
		maint:  service.NewMaintenanceService(repository.NewMaintenanceRepository(db), cacheSvc, logr),
	}, nil
}

func readinessChecks(deps *services) map[string]handler.Pinger {
	checks := map[string]handler.Pinger{"database": deps.db}
	if deps.cached {
		checks["redis"] = handler.PingerFunc(deps.cacheRepo.Ping)
	}
	return checks
}
