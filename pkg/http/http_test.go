package xhttp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func request(h RequestHandler, method, path, body string) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	if body != "" {
		ctx.Request.SetBodyString(body)
	}
	h(ctx)
	return ctx
}

func errorOf(t *testing.T, ctx *fasthttp.RequestCtx) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &body))
	return body["error"]
}

func TestEngine_MiddlewareOrder(t *testing.T) {
	e := CreateServer()
	var order []string
	mark := func(name string) MiddlewareFunc {
		return func(next RequestHandler) RequestHandler {
			return func(ctx *RequestCtx) {
				order = append(order, name)
				next(ctx)
			}
		}
	}
	e.Use(mark("first"))
	e.Use(mark("second"))
	e.GET("/ping", func(ctx *RequestCtx) { WriteJSON(ctx, StatusOK, map[string]string{"status": "ok"}) })

	ctx := request(e.Handler(), "GET", "/ping", "")
	assert.Equal(t, StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, "application/json", string(ctx.Response.Header.ContentType()))
}

func TestRouter_NotFoundAndMethodNotAllowed(t *testing.T) {
	e := CreateServer()
	e.POST("/things", func(ctx *RequestCtx) {})

	ctx := request(e.Handler(), "GET", "/missing", "")
	assert.Equal(t, StatusNotFound, ctx.Response.StatusCode())
	assert.Equal(t, "Not Found", errorOf(t, ctx))

	ctx = request(e.Handler(), "GET", "/things", "")
	assert.Equal(t, StatusMethodNotAllowed, ctx.Response.StatusCode())
}

func TestRecoverMiddleware(t *testing.T) {
	h := RecoverMiddleware(func(ctx *RequestCtx) { panic("boom") })
	ctx := request(h, "GET", "/", "")
	assert.Equal(t, StatusInternalServerError, ctx.Response.StatusCode())
	assert.Equal(t, "Internal Server Error", errorOf(t, ctx))
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(func(ctx *RequestCtx) { seen = requestID(ctx) })

	ctx := request(h, "GET", "/", "")
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, string(ctx.Response.Header.Peek(HeaderRequestID)))

	ctx = &fasthttp.RequestCtx{}
	ctx.Request.Header.Set("x-request-id", "abc")
	h(ctx)
	assert.Equal(t, "abc", seen)
	assert.Equal(t, "abc", string(ctx.Response.Header.Peek(HeaderRequestID)))
}

func TestReadJSON(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}
	ctx := &fasthttp.RequestCtx{}
	assert.ErrorIs(t, ReadJSON(ctx, &v), ErrEmptyBody)

	ctx.Request.SetBodyString(`{"name":"x"}`)
	require.NoError(t, ReadJSON(ctx, &v))
	assert.Equal(t, "x", v.Name)

	ctx.Request.SetBodyString(`{`)
	assert.Error(t, ReadJSON(ctx, &v))
}

func TestStatusText(t *testing.T) {
	assert.Equal(t, "Conflict", StatusText(StatusConflict))
}
