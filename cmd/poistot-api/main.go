// Poistot API — приём пакетов от каталогизаторов и сбор результатов.
//
// API:
//   - POST /api/v1/jobs — создаёт пакет и ставит tasks в очередь
//   - GET  /api/v1/jobs[/{id}[/results]] — состояние пакетов
//
// В том же процессе работает сборщик результатов из очереди результатов.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/shaiso/Poistot/internal/api"
	"github.com/shaiso/Poistot/internal/config"
	"github.com/shaiso/Poistot/internal/jobs"
	"github.com/shaiso/Poistot/internal/mq"
	"github.com/shaiso/Poistot/internal/repo"
	"github.com/shaiso/Poistot/internal/session"
	"github.com/shaiso/Poistot/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

var startTime = time.Now()

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "poistot-api",
		Short:         "LOW tag removal job API",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	rootCmd.Flags().StringVar(&configPath, "config", "", "Path to TOML config file")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.ValidateAPI(); err != nil {
		return err
	}

	// Инициализируем structured logging
	logger := telemetry.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("starting poistot-api", "version", version)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)

	// Подключаемся к базе данных
	pool, err := repo.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()
	if err := repo.Migrate(ctx, pool); err != nil {
		return err
	}
	logger.Info("connected to database")

	jobRepo := repo.NewJobRepo(pool)

	// RabbitMQ
	mqConn, err := mq.NewConnection(cfg.AMQP.URL, logger)
	if err != nil {
		return fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	defer mqConn.Close()

	topo := mq.Topology{TaskQueue: cfg.AMQP.TaskQueue, ResultQueue: cfg.AMQP.ResultQueue}
	if err := mq.SetupTopology(ctx, mqConn, topo); err != nil {
		return fmt.Errorf("setup topology: %w", err)
	}

	submitter := jobs.NewSubmitter(jobs.SubmitterConfig{
		Store:     jobRepo,
		Publisher: mq.NewPublisher(mqConn, topo, logger),
		Logger:    logger,
	})

	collector := jobs.NewCollector(jobs.CollectorConfig{
		Conn:    mqConn,
		Queue:   topo.ResultQueue,
		Store:   jobRepo,
		Metrics: metrics,
		Logger:  logger,
	})
	if err := collector.Start(ctx); err != nil {
		return fmt.Errorf("start result collector: %w", err)
	}

	codec, err := session.NewCodec(cfg.Session.SecretKey)
	if err != nil {
		return err
	}

	// Создаём API handler
	handler := api.NewHandler(api.Config{
		Submitter: submitter,
		Jobs:      jobRepo,
		Sessions:  codec,
		Logger:    logger,
	})

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Регистрируем API маршруты
	handler.RegisterRoutes(mux)

	server := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.API.Port),
		Handler: mux,
	}

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	collector.Stop()

	logger.Info("stopped")
	return nil
}
