package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/nimasrn/ride-settlement/internal/queue"
	"github.com/nimasrn/ride-settlement/pkg/logger"
	"github.com/nimasrn/ride-settlement/pkg/pg"
	"github.com/nimasrn/ride-settlement/pkg/redis"
	"github.com/pkg/errors"
)

var config *Config

// Config holds every configuration value of the service binaries. Nothing
// else reads the environment directly.
type Config struct {
	AppEnv  string `env:"APP_ENV,default=dev"`
	AppName string `env:"APP_NAME,default=ride_settlement"`

	HttpListenAddr            string        `env:"HTTP_LISTEN_ADDR,default=:8080"`
	HttpRequestTimeout        time.Duration `env:"HTTP_REQUEST_TIMEOUT,default=5s"`
	HttpServerReadBufferSize  int           `env:"HTTP_SERVER_READ_BUFFER_SIZE,default=16384"`
	HttpServerWriteBufferSize int           `env:"HTTP_SERVER_WRITE_BUFFER_SIZE,default=16384"`

	PostgresReadHost     string `env:"POSTGRES_READ_HOST"`
	PostgresReadPort     string `env:"POSTGRES_READ_PORT,default=5432"`
	PostgresReadUser     string `env:"POSTGRES_READ_USER"`
	PostgresReadPassword string `env:"POSTGRES_READ_PASSWORD"`
	PostgresReadDatabase string `env:"POSTGRES_READ_DBNAME"`

	PostgresWriteHost     string `env:"POSTGRES_WRITE_HOST"`
	PostgresWritePort     string `env:"POSTGRES_WRITE_PORT,default=5432"`
	PostgresWriteUser     string `env:"POSTGRES_WRITE_USER"`
	PostgresWritePassword string `env:"POSTGRES_WRITE_PASSWORD"`
	PostgresWriteDatabase string `env:"POSTGRES_WRITE_DBNAME"`

	RedisAddr               string `env:"REDIS_ADDR,default=localhost:6379"`
	RedisUsername           string `env:"REDIS_USER"`
	RedisPassword           string `env:"REDIS_PASS"`
	RedisDatabase           int    `env:"REDIS_DATABASE"`
	RedisUniversalKeyPrefix string `env:"REDIS_UNIVERSAL_KEY_PREFIX"`

	PromNamespace string `env:"PROM_NAMESPACE,default=ride"`
	MetricsAddr   string `env:"METRICS_ADDR"`
	MetricsURI    string `env:"METRICS_URI,default=/metrics"`

	BookingConflictRetries int           `env:"BOOKING_CONFLICT_RETRIES,default=16"`
	IdempotencyTTL         time.Duration `env:"IDEMPOTENCY_TTL,default=24h"`

	SettlementQueueName              string        `env:"SETTLEMENT_QUEUE_NAME,default=settlements"`
	SettlementQueueConsumerGroup     string        `env:"SETTLEMENT_QUEUE_CONSUMER_GROUP,default=settlement-processors"`
	SettlementQueueConsumerName      string        `env:"SETTLEMENT_QUEUE_CONSUMER_NAME,default=processor"`
	SettlementQueueMaxRetries        int           `env:"SETTLEMENT_QUEUE_MAX_RETRIES,default=5"`
	SettlementQueueVisibilityTimeout time.Duration `env:"SETTLEMENT_QUEUE_VISIBILITY_TIMEOUT,default=30s"`
	SettlementQueuePollInterval      time.Duration `env:"SETTLEMENT_QUEUE_POLL_INTERVAL,default=500ms"`
	SettlementQueueBatchSize         int64         `env:"SETTLEMENT_QUEUE_BATCH_SIZE,default=10"`
	SettlementQueueMaxLen            int64         `env:"SETTLEMENT_QUEUE_MAX_LEN,default=100000"`
	SettlementQueueEnableDLQ         bool          `env:"SETTLEMENT_QUEUE_ENABLE_DLQ,default=true"`
	SettlementConsumers              int           `env:"SETTLEMENT_CONSUMERS,default=2"`
	SettlementWorkers                int           `env:"SETTLEMENT_WORKERS,default=10"`

	PaymentCurrency     string        `env:"PAYMENT_CURRENCY,default=INR"`
	GatewayPrimaryUrl   string        `env:"GATEWAY_PRIMARY_URL"`
	GatewaySecondaryUrl string        `env:"GATEWAY_SECONDARY_URL"`
	GatewayBackupUrl    string        `env:"GATEWAY_BACKUP_URL"`
	GatewayTimeout      time.Duration `env:"GATEWAY_TIMEOUT,default=5s"`
	RazorpayKeyID       string        `env:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret   string        `env:"RAZORPAY_KEY_SECRET"`
}

func Load(path string) error {
	if path != "" {
		logger.Info("loading env file", "path", path)
		if err := godotenv.Load(path); err != nil {
			return errors.Wrapf(err, "failed to load configuration file %s", path)
		}
	}

	c := &Config{}
	if _, err := env.UnmarshalFromEnviron(c); err != nil {
		return errors.Wrap(err, "failed to map env variables to configuration")
	}
	if err := c.Validate(); err != nil {
		return err
	}

	config = c
	return nil
}

func Get() *Config {
	if config == nil {
		logger.Panic("config is not initialized")
	}
	return config
}

func (c *Config) Validate() error {
	if c.BookingConflictRetries < 0 {
		return errors.New("BOOKING_CONFLICT_RETRIES must not be negative")
	}
	if c.IdempotencyTTL <= 0 {
		return errors.New("IDEMPOTENCY_TTL must be positive")
	}
	if c.SettlementQueueName == "" {
		return errors.New("SETTLEMENT_QUEUE_NAME is required")
	}
	if (c.RazorpayKeyID == "") != (c.RazorpayKeySecret == "") {
		return errors.New("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET must be set together")
	}
	return nil
}

func (c *Config) IsDev() bool {
	return strings.EqualFold(c.AppEnv, "dev")
}

func (c *Config) PostgresRead() pg.Config {
	return pg.Config{
		User:     c.PostgresReadUser,
		Host:     c.PostgresReadHost,
		Port:     c.PostgresReadPort,
		Password: c.PostgresReadPassword,
		Database: c.PostgresReadDatabase,
	}
}

func (c *Config) PostgresWrite() pg.Config {
	return pg.Config{
		User:     c.PostgresWriteUser,
		Host:     c.PostgresWriteHost,
		Port:     c.PostgresWritePort,
		Password: c.PostgresWritePassword,
		Database: c.PostgresWriteDatabase,
	}
}

func (c *Config) RedisOptions(clientName string) *redis.Options {
	return &redis.Options{
		Addrs:      []string{c.RedisAddr},
		ClientName: clientName,
		DB:         c.RedisDatabase,
		Username:   c.RedisUsername,
		Password:   c.RedisPassword,
	}
}

func (c *Config) SettlementQueue() queue.QueueConfig {
	return queue.QueueConfig{
		Name:              c.SettlementQueueName,
		ConsumerGroup:     c.SettlementQueueConsumerGroup,
		ConsumerName:      c.SettlementQueueConsumerName,
		MaxRetries:        c.SettlementQueueMaxRetries,
		VisibilityTimeout: c.SettlementQueueVisibilityTimeout,
		PollInterval:      c.SettlementQueuePollInterval,
		BatchSize:         c.SettlementQueueBatchSize,
		MaxLen:            c.SettlementQueueMaxLen,
		EnableDLQ:         c.SettlementQueueEnableDLQ,
	}
}

// GatewayURLs returns the configured payment provider endpoints keyed by role.
func (c *Config) GatewayURLs() map[string]string {
	urls := make(map[string]string, 3)
	for name, u := range map[string]string{
		"primary":   c.GatewayPrimaryUrl,
		"secondary": c.GatewaySecondaryUrl,
		"backup":    c.GatewayBackupUrl,
	} {
		if u != "" {
			urls[name] = u
		}
	}
	return urls
}

func (c *Config) String() string {
	return fmt.Sprintf("env=%s http=%s queue=%s currency=%s", c.AppEnv, c.HttpListenAddr, c.SettlementQueueName, c.PaymentCurrency)
}
