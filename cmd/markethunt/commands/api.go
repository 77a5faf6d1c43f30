package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/markethunt/backend/internal/api"
	"github.com/wonny/markethunt/backend/internal/api/handlers"
	"github.com/wonny/markethunt/backend/internal/metrics"
	"github.com/wonny/markethunt/backend/internal/rebalance"
	"github.com/wonny/markethunt/backend/internal/scheduler/jobs"
	"github.com/wonny/markethunt/backend/pkg/config"
	"github.com/wonny/markethunt/backend/pkg/logger"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버와 거래일 캐시 스케줄러를 시작합니다.

Endpoints:
  GET  /health                  - Health check (DB 포함)
  GET  /api/rebalance/calendar  - 저장된 거래일 기준 리밸런싱 날짜
  POST /api/rebalance/calendar  - 요청 본문의 거래일 기준 리밸런싱 날짜
  GET  /api/scheduler/jobs      - 스케줄 작업 목록 (다음 실행 시각, 통계)
  GET  /api/scheduler/jobs/{name}/history - 작업 실행 이력
  GET  /metrics                 - Prometheus (METRICS_ENABLED=true)

Scheduled jobs:
  trading_dates_warm  - 평일 18:30 거래일 캐시 갱신 (시작 시 1회 실행)

Example:
  go run ./cmd/markethunt api
  go run ./cmd/markethunt api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Override port if flag is set
	if apiPort != "" {
		cfg.Port = apiPort
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing API server")

	// 3. Metrics
	if cfg.MetricsEnabled {
		metrics.Init(nil)
	}

	// 4. Default selection (fail fast on a bad REBALANCE_FREQUENCY / REBALANCE_DATE)
	freq, policy, err := resolveSelection(cfg, "", "")
	if err != nil {
		return fmt.Errorf("rebalance defaults: %w", err)
	}

	// 5. Price store + trading date cache
	st, err := openStore(ctx, cfg, "", log)
	if err != nil {
		return err
	}
	defer st.Close()

	// 6. Scheduler
	sched, err := newScheduler(st.source, log)
	if err != nil {
		return err
	}

	// 7. Service, handler, router, server
	service := rebalance.NewService(st.source, log)
	calendarHandler := handlers.NewCalendarHandler(service, handlers.CalendarDefaults{
		Frequency: freq,
		Policy:    policy,
	}, log)
	router := api.NewRouter(calendarHandler, api.RouterOptions{
		RateLimit:      cfg.API.RateLimit,
		RateBurst:      cfg.API.RateBurst,
		MetricsEnabled: cfg.MetricsEnabled,
		DB:             st.db,
		Jobs:           sched,
	}, log)
	server := api.New(cfg, log, router)

	sched.Start()
	defer sched.Stop()

	if err := sched.RunJob(jobs.TradingDatesWarmJobName); err != nil {
		log.WithError(err).Warn("Initial cache warm failed to start")
	}

	// 8. Start server with graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	log.WithFields(map[string]interface{}{
		"addr":      server.Addr(),
		"frequency": freq.String(),
		"date":      policy.String(),
	}).Info("API server started successfully")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
