package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gobwas/ws"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/sikandarmalik/fintech-trading-dashboard/cmd/streamer/internal/gateway"
	"github.com/sikandarmalik/fintech-trading-dashboard/cmd/streamer/internal/hub"
	"github.com/sikandarmalik/fintech-trading-dashboard/cmd/streamer/internal/protocol"
	"github.com/sikandarmalik/fintech-trading-dashboard/cmd/streamer/internal/simulator"
	"github.com/sikandarmalik/fintech-trading-dashboard/cmd/streamer/internal/sink"
	"github.com/sikandarmalik/fintech-trading-dashboard/cmd/streamer/internal/storage"
	"github.com/sikandarmalik/fintech-trading-dashboard/pkg/config"
	"github.com/sikandarmalik/fintech-trading-dashboard/pkg/models"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	logger, err := config.NewLogger(cfg.App)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	ctx := context.Background()

	// Persistence (bar store + instrument catalog)
	pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
	if err != nil {
		logger.Fatal("Failed to create Postgres pool", zap.Error(err))
	}
	defer pool.Close()

	barStore := storage.NewPostgresStore(pool)
	if err := barStore.Migrate(ctx); err != nil {
		logger.Fatal("Failed to migrate schema", zap.Error(err))
	}
	for _, ticker := range cfg.Simulator.Tickers {
		if _, err := barStore.EnsureInstrument(ctx, ticker); err != nil {
			logger.Fatal("Failed to register instrument", zap.String("ticker", ticker), zap.Error(err))
		}
	}

	// Snapshot cache
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	cache := storage.NewRedisCache(rdb)
	defer cache.Close()

	// Simulator core
	params := simulator.Params{
		Volatility:   cfg.Simulator.Volatility,
		Wick:         cfg.Simulator.Wick,
		SeedPriceMin: cfg.Simulator.SeedPriceMin,
		SeedPriceMax: cfg.Simulator.SeedPriceMax,
		VolumeMin:    cfg.Simulator.VolumeMin,
		VolumeMax:    cfg.Simulator.VolumeMax,
	}
	rnd := simulator.NewRealRand(time.Now().UnixNano())
	gen := simulator.NewTickGenerator(params, rnd, simulator.RealClock{})
	pub := simulator.NewPublisher(logger)
	sim := simulator.New(logger, barStore, pub, gen)

	if err := sim.Initialize(ctx); err != nil {
		logger.Fatal("Failed to initialize simulator", zap.Error(err))
	}

	// Subscription registry
	validTickers := make(map[string]bool)
	for _, t := range sim.Tickers() {
		validTickers[t] = true
	}
	wsHub := hub.NewHub(cache, logger, validTickers)

	// Listener wiring: hub fan-out, snapshot cache, optional Kafka mirror.
	pub.Subscribe(wsHub.Route)
	pub.Subscribe(func(update models.PriceUpdate) {
		frame, err := protocol.EncodeTicker(update)
		if err != nil {
			return
		}
		if err := cache.SetSnapshot(ctx, update.Ticker, frame); err != nil {
			logger.Warn("Failed to cache snapshot", zap.String("ticker", update.Ticker), zap.Error(err))
		}
	})

	var tickSink *sink.KafkaSink
	if len(cfg.Kafka.Brokers) > 0 {
		writer := &kafka.Writer{
			Addr:         kafka.TCP(cfg.Kafka.Brokers...),
			Topic:        cfg.Kafka.Topic,
			Balancer:     &kafka.LeastBytes{},
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			Async:        true, // Write non-blocking (fire and forget handled by buffer)
		}
		tickSink = sink.NewKafkaSink(logger, writer)
		pub.Subscribe(tickSink.Publish)
		logger.Info("Kafka tick mirror enabled", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	// Websocket endpoint
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			return
		}
		client := gateway.NewClient(conn, wsHub, logger)
		client.Start()
	})

	srv := &http.Server{Addr: cfg.App.Port, Handler: mux}
	go func() {
		logger.Info("Server Started", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("HTTP Error", zap.Error(err))
		}
	}()

	interval := time.Duration(cfg.Simulator.IntervalMs) * time.Millisecond
	if err := sim.Start(interval); err != nil {
		logger.Fatal("Failed to start simulation", zap.Error(err))
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("Shutdown signal received")
	sim.Stop()
	if tickSink != nil {
		if err := tickSink.Close(); err != nil {
			logger.Error("Error closing Kafka writer", zap.Error(err))
		}
	}
	srv.Shutdown(context.Background())
	logger.Info("Shutdown Complete")
}
