package xhttp

import (
	"net"
	"time"

	"github.com/nimasrn/ride-settlement/pkg/logger"
	"github.com/valyala/fasthttp"
)

type Server = fasthttp.Server

type ServerOption struct {
	Name string

	// Idle keep-alive connections are closed after this long; leaving them
	// open for too long ends in too many open files under load.
	IdleTimeout time.Duration

	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// MaxRequestBodySize guards against oversized payloads.
	MaxRequestBodySize int

	ReadBufferSize  int // also caps the header size
	WriteBufferSize int

	Concurrency   int
	MaxConnsPerIP int
}

var DefaultServerOption = ServerOption{
	Name:               "ride-settlement",
	IdleTimeout:        10 * time.Second,
	ReadTimeout:        2500 * time.Millisecond,
	WriteTimeout:       2500 * time.Millisecond,
	MaxRequestBodySize: 1 << 20,
	ReadBufferSize:     4096,
	WriteBufferSize:    4096,
	Concurrency:        30_000,
	MaxConnsPerIP:      10_000,
}

type Engine struct {
	*Router
	*Server
	middle  []MiddlewareFunc
	handler RequestHandler
}

func newServer(o ServerOption) *fasthttp.Server {
	return &fasthttp.Server{
		Name:                         o.Name,
		Concurrency:                  o.Concurrency,
		ReadBufferSize:               o.ReadBufferSize,
		WriteBufferSize:              o.WriteBufferSize,
		ReadTimeout:                  o.ReadTimeout,
		WriteTimeout:                 o.WriteTimeout,
		IdleTimeout:                  o.IdleTimeout,
		MaxConnsPerIP:                o.MaxConnsPerIP,
		MaxRequestBodySize:           o.MaxRequestBodySize,
		TCPKeepalive:                 true,
		DisablePreParseMultipartForm: true,
		NoDefaultServerHeader:        true,
		NoDefaultContentType:         true,
		CloseOnShutdown:              true,
		Logger:                       logger.GetLogger(),
		ErrorHandler: func(ctx *RequestCtx, err error) {
			logger.Warn("[xhttp] request error", "error", err)
			WriteError(ctx, StatusBadRequest, err.Error())
		},
	}
}

func NewServer(options ServerOption) *Engine {
	return &Engine{
		Server: newServer(options),
		Router: CreateDefaultRouter(),
	}
}

func CreateServer() *Engine {
	return NewServer(DefaultServerOption)
}

// Use appends a middleware; the first one added runs outermost.
func (e *Engine) Use(middleware MiddlewareFunc) {
	e.middle = append(e.middle, middleware)
	e.handler = nil
}

// Handler returns the router wrapped in the registered middleware.
func (e *Engine) Handler() RequestHandler {
	if e.handler != nil {
		return e.handler
	}
	h := e.Router.Handler
	for i := len(e.middle) - 1; i >= 0; i-- {
		h = e.middle[i](h)
	}
	e.handler = h
	return h
}

func (e *Engine) DoRouting() {
	for method, paths := range e.Router.List() {
		for _, p := range paths {
			logger.Debug("[xhttp] route registered", "method", method, "path", p)
		}
	}
	e.Server.Handler = e.Handler()
}

func (e *Engine) ListenAndServe(addr string) error {
	e.DoRouting()
	logger.Info("[xhttp] server is listening", "addr", addr)
	return e.Server.ListenAndServe(addr)
}

func (e *Engine) Serve(ln net.Listener) error {
	e.DoRouting()
	return e.Server.Serve(ln)
}

// Shutdown stops accepting connections and waits for active ones to finish.
func (e *Engine) Shutdown() {
	logger.Info("[xhttp] server is shutting down")
	if err := e.Server.Shutdown(); err != nil {
		logger.Error("[xhttp] error while shutting down", "error", err)
	}
}
