package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nimasrn/ride-settlement/internal/config"
	"github.com/nimasrn/ride-settlement/internal/handlers"
	"github.com/nimasrn/ride-settlement/internal/queue"
	"github.com/nimasrn/ride-settlement/internal/repository"
	"github.com/nimasrn/ride-settlement/internal/services"
	xhttp "github.com/nimasrn/ride-settlement/pkg/http"
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

func main() {
	defer logger.Sync()

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	cfg := config.Get()
	logger.Info("starting api", "version", version, "commit", commit, "date", date, "config", cfg.String())

	opts := xhttp.DefaultServerOption
	opts.ReadBufferSize = cfg.HttpServerReadBufferSize
	opts.WriteBufferSize = cfg.HttpServerWriteBufferSize
	s := xhttp.NewServer(opts)
	s.Use(xhttp.RecoverMiddleware)
	s.Use(xhttp.RequestIDMiddleware)
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(cfg.HttpRequestTimeout))

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

	q, err := queue.NewQueue(redisAdap, cfg.SettlementQueue())
	if err != nil {
		logger.Error("failed creating settlement queue", "error", err)
		return
	}
	settlements := queue.NewSettlementQueue(q)

	rideRepo := repository.NewRideRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	ledgerRepo := repository.NewWalletTransactionRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	summaryRepo := repository.NewSummaryRepository(db)

	// services
	bookingService := services.NewBookingService(db, rideRepo, bookingRepo, walletRepo, paymentRepo, summaryRepo,
		services.WithConflictRetries(cfg.BookingConflictRetries),
		services.WithSettlementPublisher(settlements),
	)
	rideService := services.NewRideService(db, rideRepo, bookingRepo, bookingService)
	walletService := services.NewWalletService(db, walletRepo, ledgerRepo)
	paymentService := services.NewPaymentService(paymentRepo, settlements)
	summaryService := services.NewSummaryService(summaryRepo)

	// v1 handlers
	g := s.Router.Group("/api/v1")
	handlers.RegisterBookingRoutes(g, handlers.NewBookingHandler(bookingService),
		handlers.IdempotencyMiddleware(redisAdap, cfg.IdempotencyTTL))
	handlers.RegisterRideRoutes(g, handlers.NewRideHandler(rideService))
	handlers.RegisterWalletRoutes(g, handlers.NewWalletHandler(walletService))
	handlers.RegisterSummaryRoutes(g, handlers.NewSummaryHandler(summaryService, paymentService))
	handlers.RegisterHealthRoutes(g, handlers.NewHealthHandler(map[string]handlers.Pinger{
		"postgres": db,
		"redis":    redisAdap,
	}))

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := s.ListenAndServe(cfg.HttpListenAddr); err != nil {
			logger.Error("error in running http-server", "error", err)
			c <- syscall.SIGTERM
		}
	}()

	<-c
	s.Shutdown()
	if err := redis.Close("default"); err != nil {
		logger.Warn("failed to close redis", "error", err)
	}
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
