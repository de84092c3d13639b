package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/annel0/pilotsim/internal/api"
	"github.com/annel0/pilotsim/internal/auth"
	"github.com/annel0/pilotsim/internal/catalog"
	"github.com/annel0/pilotsim/internal/config"
	"github.com/annel0/pilotsim/internal/eventbus"
	"github.com/annel0/pilotsim/internal/logging"
	"github.com/annel0/pilotsim/internal/metrics"
	"github.com/annel0/pilotsim/internal/observability"
	"github.com/annel0/pilotsim/internal/storage"
	"github.com/annel0/pilotsim/internal/world"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "configs/pilotsim.yml", "путь к файлу конфигурации")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	if err := logging.InitDefaultLogger(logging.Options{
		Level: cfg.Log.Level,
		Dir:   cfg.Log.Dir,
		JSON:  cfg.Log.JSON,
	}); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	if err := run(cfg); err != nil {
		logging.Error("❌ %v", err)
		logging.CloseDefaultLogger()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	logging.Info("🚀 Запуск симуляции пилотов %s", version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === ТРАССИРОВКА ===
	if cfg.Telemetry.Enabled {
		shutdown, err := observability.InitTelemetry(ctx, cfg.Telemetry.ServiceName, version)
		if err != nil {
			logging.Warn("трассировка отключена: %v", err)
		} else {
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdown(sctx)
			}()
			logging.Info("🔭 Трассировка OpenTelemetry включена")
		}
	}

	// === КАТАЛОГ ===
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("каталог: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	// === ШИНА СОБЫТИЙ ===
	var bus eventbus.EventBus
	if cfg.EventBus.URL != "" {
		js, err := eventbus.NewJetStreamBus(cfg.EventBus.URL, cfg.EventBus.Stream,
			time.Duration(cfg.EventBus.Retention)*time.Hour)
		if err != nil {
			return fmt.Errorf("шина событий: %w", err)
		}
		bus = js
		logging.Info("📡 События публикуются в NATS JetStream %s", cfg.EventBus.URL)
	} else {
		bus = eventbus.NewMemoryBus(1024)
		logging.Info("📡 Шина событий в памяти")
	}
	defer bus.Close()

	if _, err := eventbus.StartLoggingListener(ctx, bus); err != nil {
		return fmt.Errorf("журнал событий: %w", err)
	}
	go eventbus.NewMetricsExporter(bus, reg).Run(ctx)

	var history api.History
	if cfg.Archive.MongoURI != "" {
		archive, err := eventbus.NewArchive(eventbus.ArchiveConfig{
			URI:        cfg.Archive.MongoURI,
			Database:   cfg.Archive.Database,
			Collection: cfg.Archive.Collection,
		})
		if err != nil {
			return fmt.Errorf("архив событий: %w", err)
		}
		defer func() {
			cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = archive.Close(cctx)
		}()
		if err := archive.Attach(ctx, bus); err != nil {
			return fmt.Errorf("архив событий: %w", err)
		}
		history = archive
		logging.Info("🗄️ Архив событий MongoDB: %s/%s", cfg.Archive.Database, cfg.Archive.Collection)
	}

	webhooks := api.NewOutboundWebhookManager()
	if _, err := webhooks.Attach(ctx, bus); err != nil {
		return fmt.Errorf("webhooks: %w", err)
	}

	// === ХРАНИЛИЩЕ СНИМКОВ ===
	repo, err := storage.Open(cfg.Storage)
	if err != nil {
		return fmt.Errorf("хранилище снимков: %w", err)
	}
	defer repo.Close()
	saver := storage.NewSaver(repo, time.Duration(cfg.Storage.Interval*float64(time.Second)), cfg.Storage.Keep)
	go saver.Run(ctx)
	logging.Info("💾 Хранилище снимков: %s", cfg.Storage.Backend)

	// === МЕТРИКИ ===
	simMetrics := metrics.NewSim(reg)
	process := metrics.NewProcess(reg)
	go process.Run(ctx, 15*time.Second)

	// === МИР ===
	w, err := world.New(world.Options{
		Config:  cfg,
		Catalog: cat,
		Bus:     bus,
		Metrics: simMetrics,
		Saver:   saver,
	})
	if err != nil {
		return fmt.Errorf("мир: %w", err)
	}
	worldDone := make(chan struct{})
	go func() {
		defer close(worldDone)
		_ = w.Run(ctx)
	}()

	// === REST API ===
	issuer, err := auth.NewIssuer(cfg.Auth)
	if err != nil {
		return fmt.Errorf("авторизация: %w", err)
	}
	if cfg.Auth.JWTSecret == "" {
		token, err := issuer.Issue("admin", true)
		if err == nil {
			logging.Warn("🔐 jwt_secret не задан, токен администратора действует до перезапуска: %s", token)
		}
	}

	restPort := cfg.Server.GetRESTPort()
	rest := api.NewRestServer(api.Config{
		Port:       fmt.Sprintf(":%d", restPort),
		World:      w,
		Issuer:     issuer,
		Snapshots:  repo,
		History:    history,
		Process:    process,
		Webhooks:   webhooks,
		Registerer: reg,
		Gatherer:   reg,
	})
	errCh := make(chan error, 2)
	go func() { errCh <- rest.Start() }()

	metricsSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.GetMetricsPort()),
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("сервер метрик: %w", err)
		}
	}()

	logging.Info("✅ Симуляция запущена в системе %s", w.System())
	logging.Info("   🌐 REST API: http://localhost:%d", restPort)
	logging.Info("   📊 Метрики: http://localhost:%d/metrics", cfg.Server.GetMetricsPort())

	select {
	case <-ctx.Done():
		logging.Info("📡 Получен сигнал завершения")
	case err := <-errCh:
		if err != nil {
			logging.Error("❌ %v", err)
		}
		stop()
	}

	// === GRACEFUL SHUTDOWN ===
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := rest.Stop(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки REST API: %v", err)
	}
	_ = metricsSrv.Shutdown(shutdownCtx)

	<-worldDone
	w.FlushEvents(shutdownCtx)
	if err := saver.Flush(shutdownCtx); err != nil {
		logging.Error("❌ Не удалось сохранить последний снимок: %v", err)
	}
	webhooks.Wait()

	logging.Info("👋 Симуляция остановлена на кадре %d", w.Frame())
	return nil
}
