package xhttp

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/ride-settlement/pkg/logger"
	"github.com/valyala/fasthttp"
)

const (
	slowThreshold   = 500 * time.Millisecond
	HeaderRequestID = "X-Request-Id"
)

var skipPaths = []string{"/api/v1/health", "/health", "/metrics"}

type MiddlewareFunc func(next RequestHandler) RequestHandler
type RequestCtx = fasthttp.RequestCtx
type RequestHandler = fasthttp.RequestHandler

func TimeoutMiddleware(timeout time.Duration) MiddlewareFunc {
	return func(next RequestHandler) RequestHandler {
		return fasthttp.TimeoutWithCodeHandler(next, timeout, `{"error":"request timeout"}`, StatusRequestTimeout)
	}
}

func CompressMiddleware(level int) MiddlewareFunc {
	return func(next RequestHandler) RequestHandler {
		return fasthttp.CompressHandlerBrotliLevel(next, level, level)
	}
}

func RecoverMiddleware(next RequestHandler) RequestHandler {
	return func(ctx *RequestCtx) {
		defer func() {
			if v := recover(); v != nil {
				panicked(ctx, v)
			}
		}()
		next(ctx)
	}
}

func panicked(ctx *RequestCtx, v interface{}) {
	logger.Error("[xhttp] panic recovered", "error", v, "path", string(ctx.Path()), "request_id", requestID(ctx))
	WriteError(ctx, StatusInternalServerError, StatusText(StatusInternalServerError))
}

// RequestIDMiddleware makes sure every request and its response carry an
// X-Request-Id, generating one when the client sent none.
func RequestIDMiddleware(next RequestHandler) RequestHandler {
	return func(ctx *RequestCtx) {
		rid := requestID(ctx)
		if rid == "" {
			rid = uuid.NewString()
			ctx.Request.Header.Set(HeaderRequestID, rid)
		}
		ctx.SetUserValue(HeaderRequestID, rid)
		next(ctx)
		ctx.Response.Header.Set(HeaderRequestID, rid)
	}
}

func RequestLoggerMiddleware(next RequestHandler) RequestHandler {
	return func(ctx *RequestCtx) {
		path := string(ctx.Path())
		if shouldSkip(path) {
			next(ctx)
			return
		}

		start := time.Now()
		next(ctx)
		latency := time.Since(start)
		status := ctx.Response.StatusCode()

		fields := []any{
			"status", status,
			"method", string(ctx.Method()),
			"path", path,
			"latency", latency.String(),
			"bytes_in", len(ctx.PostBody()),
			"bytes_out", len(ctx.Response.Body()),
			"ip", ctx.RemoteIP().String(),
			"request_id", requestID(ctx),
		}

		switch {
		case status >= 500:
			logger.Error("http_request", fields...)
		case status >= 400 || latency > slowThreshold:
			logger.Warn("http_request", fields...)
		default:
			logger.Info("http_request", fields...)
		}
	}
}

func shouldSkip(p string) bool {
	for _, sp := range skipPaths {
		if strings.HasPrefix(p, sp) {
			return true
		}
	}
	return false
}

func requestID(ctx *RequestCtx) string {
	return string(ctx.Request.Header.Peek(HeaderRequestID))
}
