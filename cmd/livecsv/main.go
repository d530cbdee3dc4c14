// Package main runs the standalone live CSV feed. It serves only the
// spreadsheet-facing endpoint so the feed can be deployed and scaled apart
// from the main API. It reads live state straight from Postgres when a
// database is reachable, and falls back to the main API over REST when only
// STORE_API_URL is configured.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/crowdcue/backend/config"
	"github.com/crowdcue/backend/internal/export"
	"github.com/crowdcue/backend/internal/livestate"
	"github.com/crowdcue/backend/internal/models"
	"github.com/crowdcue/backend/pkg/database"
	"github.com/crowdcue/backend/pkg/docstore"
	"github.com/crowdcue/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()

	var source export.Source
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err == nil {
		defer pool.Close()
		source = livestate.NewProjector(docstore.NewPostgres(pool))
		logger.Info("live csv reading from postgres")
	} else {
		apiURL := os.Getenv("STORE_API_URL")
		if apiURL == "" {
			logger.Fatal("no data source: postgres unreachable and STORE_API_URL unset", zap.Error(err))
		}
		source = &restSource{
			baseURL: apiURL,
			apiKey:  os.Getenv("STORE_API_KEY"),
			client:  &http.Client{Timeout: 10 * time.Second},
		}
		logger.Info("live csv reading from main api", zap.String("url", apiURL))
	}

	exportHandler := export.NewHandler(source, logger)

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	router.GET("/live/qa.csv", exportHandler.LiveQA)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("live csv listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("live csv stopped")
}

// restSource reads live state from the main API's public endpoint.
type restSource struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func (r *restSource) Get(ctx context.Context, eventID string) (*models.LiveState, error) {
	url := fmt.Sprintf("%s/events/%s/live", r.baseURL, eventID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: live state fetch: %v", models.ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: live state for event %s", models.ErrNotFound, eventID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: live state fetch status %d", models.ErrUpstream, resp.StatusCode)
	}
	var body struct {
		Success bool              `json:"success"`
		Data    *models.LiveState `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode live state: %v", models.ErrUpstream, err)
	}
	if body.Data == nil {
		return nil, fmt.Errorf("%w: live state for event %s", models.ErrNotFound, eventID)
	}
	return body.Data, nil
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
