package main

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config of the mock processor, read from the environment.
type Config struct {
	Port        string        `env:"PORT,default=8081"`
	SuccessRate float64       `env:"SUCCESS_RATE,default=0.95"`
	PendingRate float64       `env:"PENDING_RATE,default=0.1"`
	SettleDelay time.Duration `env:"SETTLE_DELAY,default=2s"`
	MinDelay    time.Duration `env:"MIN_DELAY,default=50ms"`
	MaxDelay    time.Duration `env:"MAX_DELAY,default=500ms"`
}

type Handler struct {
	processor *MockProcessor
}

func NewHandler(processor *MockProcessor) *Handler {
	return &Handler{processor: processor}
}

func (h *Handler) Capture(c *gin.Context) {
	var req CaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	if !req.Amount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		return
	}

	resp := h.processor.Capture(&req)
	status := http.StatusOK
	if resp.Status == StatusPending {
		status = http.StatusAccepted
	}
	c.JSON(status, resp)
}

func (h *Handler) GetPayment(c *gin.Context) {
	resp, ok := h.processor.Status(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) HealthCheck(c *gin.Context) {
	success, pending := h.processor.Rates()
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"provider_id":  h.processor.providerID,
		"timestamp":    time.Now(),
		"success_rate": success,
		"pending_rate": pending,
	})
}

// UpdateConfig changes the simulated outcome rates at runtime.
func (h *Handler) UpdateConfig(c *gin.Context) {
	var req struct {
		SuccessRate *float64 `json:"success_rate"`
		PendingRate *float64 `json:"pending_rate"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	for _, r := range []*float64{req.SuccessRate, req.PendingRate} {
		if r != nil && (*r < 0 || *r > 1) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "rates must be between 0 and 1"})
			return
		}
	}

	h.processor.SetRates(req.SuccessRate, req.PendingRate)
	success, pending := h.processor.Rates()
	log.Info().Float64("success_rate", success).Float64("pending_rate", pending).Msg("configuration updated")
	c.JSON(http.StatusOK, gin.H{"success_rate": success, "pending_rate": pending})
}

func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request processed")
	})

	v1 := router.Group("/api/v1")
	{
		v1.POST("/payments/capture", handler.Capture)
		v1.GET("/payments/:id", handler.GetPayment)
		v1.PUT("/config", handler.UpdateConfig)
	}
	router.GET("/health", handler.HealthCheck)

	return router
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	log.Info().
		Str("port", cfg.Port).
		Float64("success_rate", cfg.SuccessRate).
		Float64("pending_rate", cfg.PendingRate).
		Dur("settle_delay", cfg.SettleDelay).
		Msg("starting mock payment processor")

	processor := NewMockProcessor(cfg, rand.New(rand.NewSource(time.Now().UnixNano())))
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      SetupRouter(NewHandler(processor)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}
}
