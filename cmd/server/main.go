package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/annel0/blockverse/internal/api"
	"github.com/annel0/blockverse/internal/cache"
	"github.com/annel0/blockverse/internal/codec"
	"github.com/annel0/blockverse/internal/config"
	"github.com/annel0/blockverse/internal/engine"
	"github.com/annel0/blockverse/internal/eventbus"
	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/observability"
	"github.com/annel0/blockverse/internal/storage"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
	"github.com/annel0/blockverse/internal/world/block/implementations"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML-конфигурации (по умолчанию $BLOCKVERSE_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка чтения конфигурации: %v", err)
	}

	logging.SetLogDir(cfg.Logging.Dir)
	logging.SetConsoleLevel(logging.ParseLevel(cfg.Logging.Level))
	logging.GetLoggerManager().SetComponentLevels(cfg.Logging.Components)
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logging.Error("❌ Сервер остановлен с ошибкой: %v", err)
		logging.CloseDefaultLogger()
		os.Exit(1)
	}
	logging.Info("✅ Сервер остановлен")
}

func run(ctx context.Context, cfg *config.Config) error {
	logging.Info("🎮 Запуск Blockverse: seed=%d генератор=%s тик=%v", cfg.World.Seed, cfg.World.Generator, cfg.World.TickInterval())

	if cfg.Telemetry.Enabled {
		shutdown, err := observability.InitTelemetry(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Endpoint)
		if err != nil {
			logging.Warn("OpenTelemetry не инициализирован: %v", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	registry := implementations.NewDefaultRegistry()
	if cfg.World.BlocksFile != "" {
		if err := block.LoadDeclarations(registry, cfg.World.BlocksFile); err != nil {
			return fmt.Errorf("объявления блоков: %w", err)
		}
	}

	// Реплика получает мир от хоста: без генератора, хранилища и сохранения
	worldOpts := world.Options{Registry: registry}
	var (
		saver *storage.Saver
		extra map[string]func() any
	)
	if cfg.Streaming.Authority {
		store, storeExtra, err := openStore(cfg, reg)
		if err != nil {
			return err
		}
		defer store.Close()
		saver = storage.NewSaver(store, storage.NewMetrics(reg))
		extra = storeExtra
		worldOpts.Generator = newGenerator(cfg.World)
		worldOpts.Source = saver
	} else {
		logging.Info("Узел работает репликой: генерация и хранилище отключены")
	}
	w := world.New(worldOpts)

	var bus eventbus.EventBus
	if cfg.Replication.Enabled {
		opened, err := openBus(cfg.EventBus)
		if err != nil {
			return err
		}
		bus = opened
		defer bus.Close()

		if _, err := eventbus.StartLoggingListener(bus); err != nil {
			logging.Warn("LoggingListener: %v", err)
		}
		exporter := eventbus.NewMetricsExporter(bus, reg)
		exporter.Start()
		defer exporter.Stop()
	}

	eng := engine.New(engine.Options{
		World:        w,
		Streaming:    cfg.Streaming,
		Pipeline:     cfg.Mesh,
		Bus:          bus,
		Source:       cfg.Replication.Source,
		Compress:     cfg.Replication.Compress,
		InboxSize:    cfg.Replication.InboxSize,
		Saver:        saver,
		TickInterval: cfg.World.TickInterval(),
		SaveInterval: cfg.World.SaveInterval(),
		Registerer:   reg,
	})

	server := api.NewRestServer(api.Config{
		Port:     ":" + strconv.Itoa(cfg.Server.GetRESTPort()),
		Engine:   eng,
		Bus:      bus,
		Registry: reg,
		Extra:    extra,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return eng.Run(gctx)
	})
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	logging.Info("📡 REST API: :%d, хранилище: %s, репликация: %v", cfg.Server.GetRESTPort(), cfg.Storage.Backend, cfg.Replication.Enabled)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// openStore открывает хранилище чанков и, если включён, Redis-кеш перед ним
func openStore(cfg *config.Config, reg prometheus.Registerer) (storage.ChunkStore, map[string]func() any, error) {
	var store storage.ChunkStore
	switch cfg.Storage.Backend {
	case "memory":
		store = storage.NewMemoryStore()
	default:
		bs, err := storage.NewBadgerStore(cfg.Storage.DataPath, codec.MustZstd())
		if err != nil {
			return nil, nil, err
		}
		store = bs
	}

	if !cfg.Cache.Enabled {
		return store, nil, nil
	}
	rc, err := cache.NewRedisChunkCache(cfg.Cache.Config, store, cache.NewMetrics(reg))
	if err != nil {
		// Без кеша сервер работает, только медленнее
		logging.Warn("Redis недоступен, кеш чанков отключён: %v", err)
		return store, nil, nil
	}
	return rc, map[string]func() any{"cache": func() any { return rc.Stats() }}, nil
}

func openBus(cfg config.EventBusConfig) (eventbus.EventBus, error) {
	if cfg.URL == "" {
		return eventbus.NewMemoryBus(1024), nil
	}
	bus, err := eventbus.NewJetStreamBus(cfg.URL, cfg.Stream, cfg.RetentionDuration())
	if err != nil {
		return nil, fmt.Errorf("NATS JetStream: %w", err)
	}
	return bus, nil
}

func newGenerator(cfg config.WorldConfig) world.Generator {
	switch cfg.Generator {
	case "flat":
		return world.FlatGenerator{
			Height: cfg.FlatHeight,
			Fill:   block.Of(block.StoneBlockID),
			Top:    block.Of(block.GrassBlockID),
		}
	case "empty":
		return world.EmptyGenerator{}
	default:
		return world.NewTerrainGenerator(cfg.Seed)
	}
}
