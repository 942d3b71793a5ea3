// Poistot Worker — удаляет LOW-теги библиотек из записей сводного каталога.
//
// Worker:
//   - Получает tasks из RabbitMQ по одной (prefetch 1)
//   - Выдерживает паузу между tasks и ждёт доступности каталога
//   - Определяет запись, удаляет LOW/SID и сохраняет её в каталоге
//   - Публикует результат в очередь результатов
//
// Workers масштабируются горизонтально.
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

	"github.com/shaiso/Poistot/internal/catalog"
	"github.com/shaiso/Poistot/internal/config"
	"github.com/shaiso/Poistot/internal/jobs"
	"github.com/shaiso/Poistot/internal/mq"
	"github.com/shaiso/Poistot/internal/orchestrator"
	"github.com/shaiso/Poistot/internal/repo"
	"github.com/shaiso/Poistot/internal/resolve"
	"github.com/shaiso/Poistot/internal/session"
	"github.com/shaiso/Poistot/internal/telemetry"
	"github.com/shaiso/Poistot/internal/transform"
	"github.com/shaiso/Poistot/internal/worker"
	"github.com/shaiso/Poistot/internal/xserver"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "poistot-worker",
		Short:         "LOW tag removal worker",
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
	if err := cfg.ValidateWorker(); err != nil {
		return err
	}

	// Инициализируем structured logging
	logger := telemetry.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("starting poistot-worker", "version", version)

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)

	// DB pool: пакеты компонентов
	pool, err := repo.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()
	if err := repo.Migrate(ctx, pool); err != nil {
		return err
	}
	logger.Info("database connected")

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
	publisher := mq.NewPublisher(mqConn, topo, logger)
	logger.Info("RabbitMQ connected")

	// Каталог
	timeout := cfg.Catalog.RequestTimeoutDuration()
	index := xserver.NewClient(xserver.Config{
		BaseURL: cfg.Catalog.XServerURL,
		Base:    cfg.Catalog.XServerBase,
		Timeout: timeout,
	})
	anonymous := catalog.NewClient(catalog.Config{
		Endpoint: cfg.Catalog.APIURL,
		Timeout:  timeout,
	})

	resolver := resolve.New(resolve.Config{
		Searcher: index,
		Loader:   anonymous,
		Indexes: resolve.Indexes{
			LocalID:   cfg.Catalog.LocalIDIndex,
			CrossRef:  cfg.Catalog.CrossRefIndex,
			Component: cfg.Catalog.ComponentIndex,
		},
		Logger: logger,
	})

	submitter := jobs.NewSubmitter(jobs.SubmitterConfig{
		Store:     repo.NewJobRepo(pool),
		Publisher: publisher,
		Logger:    logger,
	})

	transforms := transform.DefaultRegistry()
	logger.Info("record operations registered", "operations", transforms.Names())

	orch := orchestrator.New(orchestrator.Config{
		Resolver:         resolver,
		Transformer:      transforms,
		Submitter:        submitter,
		HostNamespace:    cfg.Catalog.HostNamespace,
		ProtectedClasses: cfg.Catalog.ProtectedClasses,
		Logger:           logger,
	})

	codec, err := session.NewCodec(cfg.Session.SecretKey)
	if err != nil {
		return err
	}

	// Создаём worker
	w := worker.New(worker.Config{
		Conn:      mqConn,
		Queue:     topo.TaskQueue,
		Prefetch:  cfg.AMQP.Prefetch,
		Processor: orch,
		Publisher: publisher,
		Sessions:  codec,
		NewClient: func(creds session.Credentials) orchestrator.CatalogClient {
			return anonymous.WithCredentials(catalog.Credentials{
				Username: creds.Username,
				Password: creds.Password,
			})
		},
		Health:              catalog.NewHealthChecker(cfg.Catalog.HealthURL, timeout),
		HealthRetryInterval: cfg.Worker.HealthRetryIntervalDuration(),
		HealthMaxAttempts:   cfg.Worker.HealthMaxAttempts,
		MinTaskInterval:     cfg.Worker.MinTaskIntervalDuration(),
		SlowProcessingWait:  cfg.Worker.SlowProcessingWaitDuration(),
		Metrics:             metrics,
		Logger:              logger,
	})

	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if !mqConn.IsConnected() {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("amqp disconnected"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.Worker.Port),
		Handler: mux,
	}

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	// Останавливаем worker: текущая task будет доставлена повторно
	w.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)

	logger.Info("poistot-worker stopped")
	return nil
}
