package processor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/ride-settlement/pkg/logger"
	"github.com/nimasrn/ride-settlement/pkg/redis"
)

var (
	ErrAlreadyProcessed   = errors.New("settlement already processed")
	ErrLockAcquireFailed  = errors.New("failed to acquire settlement lock")
	ErrMaxRetriesExceeded = errors.New("maximum settlement attempts exceeded")
)

type IdempotencyConfig struct {
	LockTTL      time.Duration
	ProcessedTTL time.Duration
	MaxRetries   int
	KeyPrefix    string
}

func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		LockTTL:      30 * time.Second,
		ProcessedTTL: 24 * time.Hour,
		MaxRetries:   5,
		KeyPrefix:    "settlement:",
	}
}

// IdempotencyService guards settlement of a single payment: one worker at a
// time, a bounded number of attempts, and a processed marker once the
// payment reached a final state. It also remembers the gateway reference of
// an in-flight capture so a retry can look it up instead of charging twice.
type IdempotencyService struct {
	redis  redis.RedisAdapter
	config IdempotencyConfig
}

func NewIdempotencyService(redisAdapter redis.RedisAdapter, config IdempotencyConfig) *IdempotencyService {
	return &IdempotencyService{redis: redisAdapter, config: config}
}

type ProcessingContext struct {
	Key        string
	RetryCount int
	IsRetry    bool
	// Reference is the provider transaction id of an earlier attempt, if any.
	Reference string

	token        string
	lockAcquired bool
}

func (s *IdempotencyService) lockKey(key string) string      { return s.config.KeyPrefix + "lock:" + key }
func (s *IdempotencyService) retryKey(key string) string     { return s.config.KeyPrefix + "attempts:" + key }
func (s *IdempotencyService) processedKey(key string) string { return s.config.KeyPrefix + "done:" + key }
func (s *IdempotencyService) refKey(key string) string       { return s.config.KeyPrefix + "ref:" + key }

func (s *IdempotencyService) AcquireProcessingLock(ctx context.Context, key string) (*ProcessingContext, error) {
	processed, err := s.IsProcessed(ctx, key)
	if err != nil {
		logger.Warn("failed to check processed marker", "key", key, "error", err)
	} else if processed {
		return nil, ErrAlreadyProcessed
	}

	retryCount, err := s.GetRetryCount(ctx, key)
	if err != nil {
		logger.Warn("failed to read attempt counter", "key", key, "error", err)
	}
	if retryCount >= s.config.MaxRetries {
		return nil, fmt.Errorf("%w: key=%s, attempts=%d", ErrMaxRetriesExceeded, key, retryCount)
	}

	token := uuid.NewString()
	acquired, err := s.redis.SetNX(s.lockKey(key), []byte(token), s.config.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLockAcquireFailed, err)
	}
	if !acquired {
		return nil, ErrLockAcquireFailed
	}

	pc := &ProcessingContext{
		Key:          key,
		RetryCount:   retryCount,
		IsRetry:      retryCount > 0,
		token:        token,
		lockAcquired: true,
	}
	if ref, err := s.redis.Get(s.refKey(key)); err == nil {
		pc.Reference = string(ref)
	}

	logger.Debug("settlement lock acquired", "key", key, "attempts", retryCount, "reference", pc.Reference)
	return pc, nil
}

// RememberReference stores the provider transaction id for later attempts.
func (s *IdempotencyService) RememberReference(ctx context.Context, pc *ProcessingContext, ref string) error {
	if err := s.redis.Set(s.refKey(pc.Key), []byte(ref), s.config.ProcessedTTL); err != nil {
		return fmt.Errorf("failed to store reference: %w", err)
	}
	pc.Reference = ref
	return nil
}

func (s *IdempotencyService) MarkSuccess(ctx context.Context, pc *ProcessingContext) error {
	if err := s.redis.Set(s.processedKey(pc.Key), []byte("1"), s.config.ProcessedTTL); err != nil {
		return fmt.Errorf("failed to mark as processed: %w", err)
	}

	for _, k := range []string{s.retryKey(pc.Key), s.refKey(pc.Key)} {
		if err := s.redis.Del(k); err != nil {
			logger.Warn("failed to clean up settlement key", "key", k, "error", err)
		}
	}
	return s.ReleaseLock(ctx, pc)
}

// MarkFailure counts the attempt and frees the lock for the next delivery.
func (s *IdempotencyService) MarkFailure(ctx context.Context, pc *ProcessingContext, reason error) error {
	n, err := s.redis.Incr(s.retryKey(pc.Key), s.config.ProcessedTTL)
	if err != nil {
		logger.Error("failed to increment attempt counter", "key", pc.Key, "error", err)
	} else {
		pc.RetryCount = int(n)
	}

	logger.Warn("settlement attempt failed", "key", pc.Key, "attempts", pc.RetryCount, "max_retries", s.config.MaxRetries, "reason", reason)
	return s.ReleaseLock(ctx, pc)
}

func (s *IdempotencyService) ReleaseLock(ctx context.Context, pc *ProcessingContext) error {
	if pc == nil || !pc.lockAcquired {
		return nil
	}
	// Only our own token is deleted; an expired lock may belong to another worker by now.
	if _, err := s.redis.CompareAndDelete(s.lockKey(pc.Key), []byte(pc.token)); err != nil {
		logger.Warn("failed to release settlement lock", "key", pc.Key, "error", err)
		return err
	}
	pc.lockAcquired = false
	return nil
}

func (s *IdempotencyService) GetRetryCount(ctx context.Context, key string) (int, error) {
	raw, err := s.redis.Get(s.retryKey(key))
	if err != nil {
		if errors.Is(err, redis.NilError) {
			return 0, nil
		}
		return 0, err
	}
	n, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, fmt.Errorf("corrupt attempt counter for %s: %w", key, err)
	}
	return n, nil
}

func (s *IdempotencyService) IsProcessed(ctx context.Context, key string) (bool, error) {
	n, err := s.redis.Exist(s.processedKey(key))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
