package xhttp

import (
	"github.com/fasthttp/router"
)

type Router = router.Router

func NewRouter() *Router {
	return router.New()
}

// CreateDefaultRouter returns a router that answers unknown paths and
// methods with a JSON 404/405.
func CreateDefaultRouter() *Router {
	r := NewRouter()
	r.RedirectTrailingSlash = true
	r.SaveMatchedRoutePath = true
	r.HandleOPTIONS = false
	r.HandleMethodNotAllowed = true
	r.NotFound = NotFoundHandler
	r.MethodNotAllowed = MethodNotAllowedHandler
	r.PanicHandler = func(ctx *RequestCtx, v interface{}) {
		panicked(ctx, v)
	}
	return r
}

func NotFoundHandler(ctx *RequestCtx) {
	WriteError(ctx, StatusNotFound, StatusText(StatusNotFound))
}

func MethodNotAllowedHandler(ctx *RequestCtx) {
	WriteError(ctx, StatusMethodNotAllowed, StatusText(StatusMethodNotAllowed))
}
