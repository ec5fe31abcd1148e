package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nimasrn/ride-settlement/internal/config"
	gateway "github.com/nimasrn/ride-settlement/internal/gateways"
	"github.com/nimasrn/ride-settlement/internal/processor"
	"github.com/nimasrn/ride-settlement/internal/repository"
	"github.com/nimasrn/ride-settlement/internal/services"
	"github.com/nimasrn/ride-settlement/pkg/logger"
	"github.com/nimasrn/ride-settlement/pkg/pg"
	"github.com/nimasrn/ride-settlement/pkg/prom"
	"github.com/nimasrn/ride-settlement/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var providerWeights = map[string]int{"primary": 100, "secondary": 80, "backup": 60}

func main() {
	defer logger.Sync()

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	cfg := config.Get()
	logger.Info("starting settlement processor", "version", version, "commit", commit, "date", date, "config", cfg.String())

	db, err := pg.CreateReadWrite(cfg.PostgresRead(), cfg.PostgresWrite(), cfg.IsDev())
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("default", cfg.RedisUniversalKeyPrefix, cfg.RedisOptions("default"))
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	gw, closeGateway, err := newGateway(cfg)
	if err != nil {
		logger.Error("failed to create gateway", "error", err)
		return
	}
	defer closeGateway()

	paymentService := services.NewPaymentService(repository.NewPaymentRepository(db), nil)

	// One attempt fewer than the stream allows, so the last delivery fails
	// the payment instead of dead-lettering it.
	idempotencyConfig := processor.DefaultIdempotencyConfig()
	idempotencyConfig.MaxRetries = max(cfg.SettlementQueueMaxRetries-1, 1)
	idempotencyService := processor.NewIdempotencyService(redisAdap, idempotencyConfig)

	settlement := processor.NewSettlementProcessor(gw, paymentService, idempotencyService, cfg.PaymentCurrency)
	service, err := processor.NewProcessorService(redisAdap, processor.Config{
		Queue:     cfg.SettlementQueue(),
		Consumers: cfg.SettlementConsumers,
		Workers:   cfg.SettlementWorkers,
	}, settlement)
	if err != nil {
		logger.Error("failed to create the processor", "error", err)
		return
	}

	if cfg.MetricsAddr != "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		if err := prom.Create(hostname, cfg.AppEnv, cfg.PromNamespace); err != nil {
			logger.Error("failed to create prometheus metrics", "error", err)
			return
		}
		go prom.ListenAndServer(cfg.MetricsAddr, cfg.MetricsURI)
	}

	if err := service.Start(); err != nil {
		logger.Error("failed to start processor", "error", err)
		return
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	service.Stop()
}

// newGateway prefers Razorpay when credentials are configured and falls back
// to the HTTP provider pool otherwise.
func newGateway(cfg *config.Config) (gateway.Gateway, func(), error) {
	if cfg.RazorpayKeyID != "" {
		logger.Info("settling through razorpay")
		return gateway.NewRazorpay(cfg.RazorpayKeyID, cfg.RazorpayKeySecret), func() {}, nil
	}

	var providers []gateway.ProviderConfig
	for name, url := range cfg.GatewayURLs() {
		providers = append(providers, gateway.ProviderConfig{Name: name, URL: url, Weight: providerWeights[name]})
	}
	client, err := gateway.NewClient(&gateway.Config{
		Providers:               providers,
		Timeout:                 cfg.GatewayTimeout,
		MaxRetries:              3,
		RetryDelay:              100 * time.Millisecond,
		MaxConns:                1000,
		ReadBufferSize:          4096,
		WriteBufferSize:         4096,
		HealthCheckInterval:     30 * time.Second,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   60 * time.Second,
	})
	if err != nil {
		return nil, nil, err
	}
	return client, func() { _ = client.Close() }, nil
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.HasPrefix(v, "--env=") {
			path := strings.TrimPrefix(v, "--env=")
			if _, err := os.Stat(path); err != nil {
				logger.Error("failed to open the passed env file", "error", err)
				return ""
			}
			return path
		}
	}
	return ""
}
