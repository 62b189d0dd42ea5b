package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	_ "github.com/noah-isme/sma-bulletin-api/api/swagger"
	"github.com/noah-isme/sma-bulletin-api/internal/grading"
	"github.com/noah-isme/sma-bulletin-api/internal/handler"
	"github.com/noah-isme/sma-bulletin-api/internal/middleware"
	"github.com/noah-isme/sma-bulletin-api/internal/repository"
	"github.com/noah-isme/sma-bulletin-api/internal/service"
	"github.com/noah-isme/sma-bulletin-api/pkg/cache"
	"github.com/noah-isme/sma-bulletin-api/pkg/config"
	"github.com/noah-isme/sma-bulletin-api/pkg/database"
	"github.com/noah-isme/sma-bulletin-api/pkg/events"
	"github.com/noah-isme/sma-bulletin-api/pkg/jobs"
	"github.com/noah-isme/sma-bulletin-api/pkg/lock"
	"github.com/noah-isme/sma-bulletin-api/pkg/logger"
	"github.com/noah-isme/sma-bulletin-api/pkg/storage"
)

// @title SMA Bulletin API
// @version 1.0.0
// @description Report card generation: per-student bulletins, class ranking, annual promotion decisions.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, continuing without cache and with in-process locks", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	publisher, err := events.Connect(cfg.NATS, logr)
	if err != nil {
		logr.Sugar().Warnw("nats unavailable, bulletin events disabled", "error", err)
		publisher = nil
	}
	defer publisher.Close()

	rulesFile, err := config.LoadRules(cfg.Bulletin.RulesFile)
	if err != nil {
		logr.Sugar().Fatalw("failed to load grading rules", "error", err)
	}
	rules, err := service.NewGradingRules(rulesFile)
	if err != nil {
		logr.Sugar().Fatalw("invalid grading rules", "error", err)
	}
	tiePolicy, err := grading.ParseTiePolicy(cfg.Bulletin.TiePolicy)
	if err != nil {
		logr.Sugar().Fatalw("invalid tie policy", "error", err)
	}

	lockOpts := lock.Options{TTL: cfg.Bulletin.LockTTL, Wait: cfg.Bulletin.LockWait}
	var locker lock.Locker = lock.NewLocalLocker(lockOpts)
	if redisClient != nil {
		locker = lock.NewRedisLocker(redisClient, lockOpts)
	}

	files, err := storage.NewLocalStorage(cfg.Bulletin.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare document storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Bulletin.SignedURLSecret, cfg.Bulletin.SignedURLTTL)

	metrics := service.NewMetricsService()
	bulletinRepo := repository.NewBulletinRepository(db)
	academicRepo := repository.NewAcademicRepository(db)
	rosterRepo := repository.NewRosterRepository(db)
	jobRepo := repository.NewGenerationJobRepository(db)
	cacheSvc := service.NewCacheService(repository.NewCacheRepository(redisClient, logr), metrics, cfg.Bulletin.PreviewCacheTTL, logr, redisClient != nil)

	renderSvc := service.NewRenderService(bulletinRepo, academicRepo, rosterRepo, files, signer, publisher, metrics,
		service.RenderConfig{APIPrefix: cfg.APIPrefix, SchoolName: cfg.Bulletin.SchoolName}, logr, nil)
	renderQueue := jobs.NewQueue("bulletin-render", renderSvc.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Bulletin.RenderWorkers,
		BufferSize: 256,
		MaxRetries: cfg.Bulletin.RenderRetries,
		RetryDelay: 2 * time.Second,
		Logger:     logr,
	})
	renderQueue.Start(ctx)
	defer renderQueue.Stop()
	if err := metrics.TrackQueueDepth("bulletin-render", renderQueue.Depth); err != nil {
		logr.Sugar().Warnw("queue depth gauge not registered", "queue", "bulletin-render", "error", err)
	}

	bulletinSvc := service.NewBulletinService(service.BulletinDependencies{
		Grades:       repository.NewGradeRepository(db),
		Coefficients: repository.NewCoefficientRepository(db),
		Attendance:   repository.NewAttendanceRepository(db),
		Roster:       rosterRepo,
		Academic:     academicRepo,
		Bulletins:    bulletinRepo,
		Tx: func(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
			return database.WithTx(ctx, db, fn)
		},
		Locker:  locker,
		Rules:   rules,
		Cache:   cacheSvc,
		Metrics: metrics,
		Events:  publisher,
		Renders: renderQueue,
		Logger:  logr,
	}, service.BulletinServiceConfig{
		Workers:        cfg.Bulletin.Workers,
		PeriodCount:    cfg.Bulletin.PeriodCount,
		TiePolicy:      tiePolicy,
		MinEvaluations: cfg.Bulletin.MinEvaluations,
		PreviewTTL:     cfg.Bulletin.PreviewCacheTTL,
		RenderEnabled:  cfg.Bulletin.RenderEnabled,
	})

	worker := service.NewGenerationWorker(jobRepo, bulletinSvc, 3, logr)
	generationQueue := jobs.NewQueue("bulletin-generation", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Bulletin.JobWorkers,
		BufferSize: 64,
		MaxRetries: 3,
		RetryDelay: 5 * time.Second,
		Logger:     logr,
	})
	generationQueue.Start(ctx)
	defer generationQueue.Stop()
	if err := metrics.TrackQueueDepth("bulletin-generation", generationQueue.Depth); err != nil {
		logr.Sugar().Warnw("queue depth gauge not registered", "queue", "bulletin-generation", "error", err)
	}

	jobSvc := service.NewGenerationJobService(jobRepo, generationQueue, nil, logr)
	jobSvc.RecoverQueued(ctx)

	checks := map[string]handler.Pinger{"postgres": db.PingContext}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	router := newRouter(cfg, logr, metrics, middleware.NewTokenVerifier(cfg.JWT.Secret), routeHandlers{
		bulletins: handler.NewBulletinHandler(bulletinSvc, jobSvc, renderSvc),
		exports:   handler.NewExportHandler(renderSvc),
		metrics:   handler.NewMetricsHandler(metrics, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("graceful shutdown failed", "error", err)
	}
}
