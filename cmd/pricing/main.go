// 定价服务入口
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/wyfcoding/energypricing/internal/pricing/application"
	"github.com/wyfcoding/energypricing/internal/pricing/infrastructure/messaging"
	"github.com/wyfcoding/energypricing/internal/pricing/infrastructure/persistence/mysql"
	redisrepo "github.com/wyfcoding/energypricing/internal/pricing/infrastructure/persistence/redis"
	"github.com/wyfcoding/energypricing/internal/pricing/interfaces/consumer"
	pricinghttp "github.com/wyfcoding/energypricing/internal/pricing/interfaces/http"
	"github.com/wyfcoding/energypricing/pkg/cache"
	"github.com/wyfcoding/energypricing/pkg/config"
	"github.com/wyfcoding/energypricing/pkg/db"
	"github.com/wyfcoding/energypricing/pkg/logger"
	"github.com/wyfcoding/energypricing/pkg/metrics"
	"github.com/wyfcoding/energypricing/pkg/middleware"
	"github.com/wyfcoding/energypricing/pkg/mq"
	"github.com/wyfcoding/energypricing/pkg/ratelimit"
)

const (
	outboxRelayInterval = time.Second
	outboxRelayBatch    = 100
)

func main() {
	configPath := flag.String("config", "configs/pricing.toml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "Starting pricing service",
		"service", cfg.ServiceName,
		"version", cfg.Version,
		"environment", cfg.Environment,
	)

	m := metrics.New(cfg.ServiceName)
	if err := m.Register(); err != nil {
		logger.Error(ctx, "Failed to register metrics", "error", err)
		os.Exit(1)
	}

	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		logger.Error(ctx, "Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if cfg.Environment == "dev" {
		if err := database.AutoMigrate(
			&mysql.PriceModel{},
			&mysql.PricingResultModel{},
			&messaging.OutboxMessage{},
		); err != nil {
			logger.Error(ctx, "Failed to migrate database", "error", err)
			os.Exit(1)
		}
	}

	redisCache, err := cache.New(cache.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxPoolSize:  cfg.Redis.MaxPoolSize,
		ConnTimeout:  cfg.Redis.ConnTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		logger.Error(ctx, "Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisCache.Close()

	kafkaCfg := mq.KafkaConfig{
		Brokers:        cfg.Kafka.Brokers,
		GroupID:        cfg.Kafka.GroupID,
		SessionTimeout: cfg.Kafka.SessionTimeout,
		MaxRetries:     cfg.Kafka.MaxRetries,
		RetryBackoff:   cfg.Kafka.RetryBackoff,
	}
	producer, err := mq.NewProducer(kafkaCfg)
	if err != nil {
		logger.Error(ctx, "Failed to create Kafka producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	repo := mysql.NewPricingRepository(database.DB)
	pricingCache := redisrepo.NewPricingCache(redisCache.Client())
	publisher := messaging.NewOutboxEventPublisher(database.DB, producer, m)
	publisher.StartRelay(ctx, outboxRelayInterval, outboxRelayBatch)

	defaults := application.Defaults{
		LatticeSteps:    cfg.Pricing.LatticeSteps,
		MonteCarloPaths: cfg.Pricing.MonteCarloPaths,
		Workers:         cfg.Pricing.MonteCarloWorkers,
		RiskFreeRate:    cfg.Pricing.DefaultRiskFreeRate,
	}
	commandSvc := application.NewPricingCommandService(repo, pricingCache, publisher, m, defaults)
	querySvc := application.NewPricingQueryService(repo, pricingCache, defaults)

	priceConsumer, err := mq.NewConsumer(kafkaCfg, consumer.MarketPriceTopic)
	if err != nil {
		logger.Error(ctx, "Failed to create Kafka consumer", "error", err)
		os.Exit(1)
	}
	defer priceConsumer.Close()
	consumer.NewMarketPriceHandler(commandSvc).Subscribe(ctx, priceConsumer)

	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(
		middleware.GinRecoveryMiddleware(),
		middleware.GinLoggingMiddleware(),
		middleware.GinCORSMiddleware(),
		middleware.GinMetricsMiddleware(m),
		middleware.RateLimitMiddleware(
			ratelimit.NewRedisRateLimiter(redisCache.Client()),
			ratelimit.PerSecond(cfg.HTTP.RateLimit),
		),
	)
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": cfg.ServiceName})
	})
	pricinghttp.NewPricingHandler(commandSvc, querySvc).RegisterRoutes(&engine.RouterGroup)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info(gCtx, "HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.Metrics.Enabled {
		// 指标端口随进程退出，不参与优雅关闭
		go func() {
			if err := metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
				logger.Error(ctx, "Metrics server exited", "error", err)
			}
		}()
	}

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info(shutdownCtx, "Shutting down HTTP server")
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(context.Background(), "Service exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info(context.Background(), "Pricing service stopped")
}
