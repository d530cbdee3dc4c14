// Package main runs the audience interaction HTTP server with WebSocket push
// and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/crowdcue/backend/config"
	"github.com/crowdcue/backend/internal/analytics"
	"github.com/crowdcue/backend/internal/auth"
	"github.com/crowdcue/backend/internal/events"
	"github.com/crowdcue/backend/internal/export"
	"github.com/crowdcue/backend/internal/intake"
	"github.com/crowdcue/backend/internal/livestate"
	"github.com/crowdcue/backend/internal/middleware"
	"github.com/crowdcue/backend/internal/moderation"
	"github.com/crowdcue/backend/internal/polls"
	"github.com/crowdcue/backend/internal/realtime"
	"github.com/crowdcue/backend/internal/reconciler"
	"github.com/crowdcue/backend/internal/sessions"
	"github.com/crowdcue/backend/internal/sheetsync"
	"github.com/crowdcue/backend/internal/submissions"
	"github.com/crowdcue/backend/internal/worker"
	"github.com/crowdcue/backend/pkg/database"
	"github.com/crowdcue/backend/pkg/docstore"
	"github.com/crowdcue/backend/pkg/queue"
	"github.com/crowdcue/backend/pkg/redis"
	"github.com/crowdcue/backend/pkg/response"
	"github.com/crowdcue/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	store := docstore.NewPostgres(pool)

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			SnapshotsBucket: cfg.AWS.SnapshotsBucket,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)

	// Auth
	authRepo := auth.NewRepository(store)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Events
	eventRepo := events.NewRepository(store)
	eventHandler := events.NewHandler(eventRepo, s3Client)

	// Sessions
	sessionRepo := sessions.NewRepository(store)
	sessionHandler := sessions.NewHandler(sessionRepo)
	if err := sessionRepo.BackfillLinks(ctx, logger); err != nil {
		logger.Warn("session link backfill failed", zap.Error(err))
	}

	// Live state projection
	projector := livestate.NewProjector(store)
	livestateHandler := livestate.NewHandler(projector)

	// Spreadsheet sync
	dispatcher := sheetsync.NewDispatcher(cfg.Sheets.DispatchTimeout, logger)
	sheetProxy := sheetsync.NewProxy(cfg.Sheets.AllowedPrefix, nil, logger)

	// Submissions: public intake + moderation
	subRepo := submissions.NewRepository(store)
	intakeService := intake.NewService(sessionRepo, subRepo, eventRepo, dispatcher, logger)
	intakeHandler := intake.NewHandler(intakeService, hub)
	// Archive jobs are only produced when something consumes them.
	var jobQueue *queue.Queue
	if s3Client != nil {
		jobQueue = queue.NewQueue(rdb.Client, logger)
	}
	moderationService := moderation.NewService(subRepo, eventRepo, projector, dispatcher, logger)
	moderationHandler := moderation.NewHandler(moderationService, hub, jobQueue, logger)

	// Polls
	pollRepo := polls.NewRepository(store)
	pollService := polls.NewService(pollRepo, eventRepo, projector, dispatcher, logger)
	pollHandler := polls.NewHandler(pollService, hub)

	// CSV export over the in-process projection
	exportHandler := export.NewHandler(projector, logger)

	// Analytics
	analyticsHandler := analytics.NewHandler(eventRepo, subRepo, pollRepo)

	// Peak audience tracking rides on room membership changes.
	hub.SetAudienceChangeHandler(func(eventID string, count int) {
		_ = eventRepo.UpdatePeakAudience(context.Background(), eventID, count)
	})

	// One moderation watcher per event room with at least one client. The
	// watcher refetches on a cadence and pushes the view only when it
	// structurally changed.
	watchers := newWatcherSet(cfg.Reconciler.Interval, subRepo.ListByEvent, hub, logger)
	hub.SetPresenceHandlers(watchers.Start, watchers.Stop)

	jwtValidate := func(token string) (userID, role string, err error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return "", "", err
		}
		return claims.UserID, claims.Role, nil
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Public audience surface: session config, question intake, active poll,
	// voting, live snapshot, CSV feed, spreadsheet proxy.
	router.GET("/sessions/:id", sessionHandler.GetByID)
	router.POST("/sessions/:id/submissions", intakeHandler.Submit)
	router.GET("/events/:id/polls/active", pollHandler.GetActive)
	router.POST("/polls/:id/votes", pollHandler.Vote)
	router.GET("/events/:id/live", livestateHandler.Get)
	router.GET("/live/qa.csv", exportHandler.LiveQA)
	router.POST("/sheets/proxy", sheetProxy.Forward)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/users", middleware.RequireRole("admin"), authHandler.List)

		// Events
		api.GET("/events", eventHandler.List)
		api.POST("/events", eventHandler.Create)
		api.GET("/events/:id", eventHandler.GetByID)
		api.PATCH("/events/:id/sheet-config", eventHandler.UpdateSheetConfig)
		api.DELETE("/events/:id", middleware.RequireRole("admin"), eventHandler.Delete)
		api.GET("/events/:id/analytics", analyticsHandler.GetByEvent)
		api.GET("/events/:id/snapshot", eventHandler.DownloadSnapshot)

		// Sessions
		api.POST("/events/:id/sessions", sessionHandler.Create)
		api.GET("/events/:id/sessions", sessionHandler.ListByEvent)
		api.PATCH("/sessions/:id", sessionHandler.Update)
		api.DELETE("/sessions/:id", sessionHandler.Delete)

		// Moderation
		api.GET("/events/:id/submissions", moderationHandler.ListByEvent)
		api.GET("/sessions/:id/submissions", moderationHandler.ListBySession)
		api.PATCH("/submissions/:id/approve", moderationHandler.Approve)
		api.PATCH("/submissions/:id/reject", moderationHandler.Reject)
		api.PATCH("/submissions/:id/queue", moderationHandler.Queue)
		api.PATCH("/submissions/:id/next", moderationHandler.SetNext)
		api.PATCH("/submissions/:id/active", moderationHandler.SetActive)
		api.PATCH("/submissions/:id/done", moderationHandler.MarkDone)
		api.PATCH("/submissions/:id/order", moderationHandler.SetQueueOrder)
		api.PATCH("/submissions/:id/annotate", moderationHandler.Annotate)
		api.POST("/events/:id/submissions/reset", moderationHandler.Reset)
		api.DELETE("/submissions/:id", moderationHandler.Delete)

		// Polls
		api.POST("/events/:id/polls", pollHandler.Create)
		api.GET("/events/:id/polls", pollHandler.ListByEvent)
		api.POST("/polls/:id/activate", pollHandler.Activate)
		api.POST("/polls/:id/deactivate", pollHandler.Deactivate)
		api.DELETE("/polls/:id", pollHandler.Delete)

		// Live state source selection for the CSV feed
		api.PATCH("/events/:id/live/source", livestateHandler.SelectSource)
	}

	// WebSocket (optional token in query; anonymous audience allowed)
	router.GET("/ws", realtime.ServeWs(hub, logger, jwtValidate))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background worker (snapshot CSV archive to S3)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if s3Client != nil {
		snapshotWorker := worker.NewSnapshotArchiver(projector, s3Client, jobQueue, eventRepo, logger)
		go snapshotWorker.Run(workerCtx)
		logger.Info("snapshot worker started")
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	watchers.StopAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

// watcherSet manages one reconciler watcher per open event room.
type watcherSet struct {
	interval time.Duration
	list     reconciler.ListFunc
	hub      *realtime.Hub
	logger   *zap.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func newWatcherSet(interval time.Duration, list reconciler.ListFunc, hub *realtime.Hub, logger *zap.Logger) *watcherSet {
	return &watcherSet{
		interval: interval,
		list:     list,
		hub:      hub,
		logger:   logger,
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Start launches a watcher for the event if one is not already running.
func (ws *watcherSet) Start(eventID string) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if _, ok := ws.cancels[eventID]; ok {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	ws.cancels[eventID] = cancel
	w := reconciler.NewWatcher(eventID, ws.interval, ws.list, func(p reconciler.Projection) {
		ws.hub.BroadcastToEvent(eventID, "moderation_view", p)
	}, ws.logger)
	go w.Run(ctx)
	ws.logger.Debug("moderation watcher started", zap.String("event_id", eventID))
}

// Stop cancels the event's watcher if running.
func (ws *watcherSet) Stop(eventID string) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if cancel, ok := ws.cancels[eventID]; ok {
		cancel()
		delete(ws.cancels, eventID)
		ws.logger.Debug("moderation watcher stopped", zap.String("event_id", eventID))
	}
}

// StopAll cancels every running watcher.
func (ws *watcherSet) StopAll() {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	for id, cancel := range ws.cancels {
		cancel()
		delete(ws.cancels, id)
	}
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
