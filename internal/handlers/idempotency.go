package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	xhttp "github.com/nimasrn/ride-settlement/pkg/http"
	"github.com/nimasrn/ride-settlement/pkg/logger"
	"github.com/nimasrn/ride-settlement/pkg/redis"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"

	idempotencyKeyPrefix = "idempotency:booking:"
	maxIdempotencyKeyLen = 255
)

// storedResponse is what gets cached under an Idempotency-Key. A zero Status
// marks a request that is still being handled.
type storedResponse struct {
	Fingerprint string          `json:"fingerprint"`
	Status      int             `json:"status"`
	Body        json.RawMessage `json:"body,omitempty"`
}

// IdempotencyMiddleware replays the first response given to a request
// carrying an Idempotency-Key header. Requests without the header pass
// straight through. Server errors and 409 conflicts are not cached so the
// client can retry with the same key.
func IdempotencyMiddleware(cache redis.RedisAdapter, ttl time.Duration) xhttp.MiddlewareFunc {
	return func(next xhttp.RequestHandler) xhttp.RequestHandler {
		return func(ctx *xhttp.RequestCtx) {
			key := string(ctx.Request.Header.Peek(HeaderIdempotencyKey))
			if key == "" {
				next(ctx)
				return
			}
			if len(key) > maxIdempotencyKeyLen {
				xhttp.WriteError(ctx, xhttp.StatusBadRequest, "Idempotency-Key is too long")
				return
			}

			cacheKey := idempotencyKeyPrefix + key
			fp := fingerprint(ctx)

			marker, _ := json.Marshal(storedResponse{Fingerprint: fp})
			acquired, err := cache.SetNX(cacheKey, marker, ttl)
			if err != nil {
				logger.Error("idempotency cache unavailable", "key", key, "error", err)
				xhttp.WriteError(ctx, xhttp.StatusServiceUnavailable, xhttp.StatusText(xhttp.StatusServiceUnavailable))
				return
			}
			if !acquired {
				replay(ctx, cache, cacheKey, fp)
				return
			}

			next(ctx)

			status := ctx.Response.StatusCode()
			if !cacheable(status) {
				if err := cache.Del(cacheKey); err != nil {
					logger.Warn("failed to drop idempotency marker", "key", key, "error", err)
				}
				return
			}
			stored, _ := json.Marshal(storedResponse{
				Fingerprint: fp,
				Status:      status,
				Body:        append(json.RawMessage(nil), ctx.Response.Body()...),
			})
			if err := cache.Set(cacheKey, stored, ttl); err != nil {
				logger.Warn("failed to cache idempotent response", "key", key, "error", err)
			}
		}
	}
}

func replay(ctx *xhttp.RequestCtx, cache redis.RedisAdapter, cacheKey, fp string) {
	raw, err := cache.Get(cacheKey)
	if err != nil {
		if errors.Is(err, redis.NilError) {
			xhttp.WriteError(ctx, xhttp.StatusConflict, "request with this Idempotency-Key is in progress")
			return
		}
		logger.Error("idempotency cache unavailable", "error", err)
		xhttp.WriteError(ctx, xhttp.StatusServiceUnavailable, xhttp.StatusText(xhttp.StatusServiceUnavailable))
		return
	}

	var stored storedResponse
	if err := json.Unmarshal(raw, &stored); err != nil {
		logger.Error("corrupt idempotency entry", "key", cacheKey, "error", err)
		xhttp.WriteError(ctx, xhttp.StatusInternalServerError, xhttp.StatusText(xhttp.StatusInternalServerError))
		return
	}
	switch {
	case stored.Fingerprint != fp:
		xhttp.WriteError(ctx, xhttp.StatusUnprocessableEntity, "Idempotency-Key was used with a different request")
	case stored.Status == 0:
		xhttp.WriteError(ctx, xhttp.StatusConflict, "request with this Idempotency-Key is in progress")
	default:
		ctx.SetStatusCode(stored.Status)
		ctx.SetContentType("application/json")
		ctx.Response.Header.Set(HeaderReplayed, "true")
		ctx.SetBody(stored.Body)
	}
}

func cacheable(status int) bool {
	return status < xhttp.StatusInternalServerError && status != xhttp.StatusConflict
}

func fingerprint(ctx *xhttp.RequestCtx) string {
	h := sha256.New()
	h.Write(ctx.Method())
	h.Write(ctx.Path())
	h.Write(ctx.PostBody())
	return hex.EncodeToString(h.Sum(nil))
}
