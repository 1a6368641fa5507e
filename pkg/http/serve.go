package xhttp

import (
	"os"
	"os/signal"
	"reflect"
	"runtime"
	"slices"
	"syscall"
	"time"

	"github.com/nimasrn/crowdfund/pkg/logger"
	"github.com/valyala/fasthttp"
)

type Server = fasthttp.Server

type ServerOption struct {
	Name string

	// idle keep-alive connections are closed after this long
	IdleTimeout time.Duration

	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// campaign images and KYC documents arrive as multipart bodies,
	// so this must stay above the upload limits enforced by the handlers
	MaxRequestBodySize int

	ReadBufferSize  int
	WriteBufferSize int

	Concurrency   int
	MaxConnsPerIP int
}

func DefaultServerOption() ServerOption {
	return ServerOption{
		Name:               "crowdfund",
		IdleTimeout:        10 * time.Second,
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       10 * time.Second,
		MaxRequestBodySize: 10 * 1024 * 1024,
		ReadBufferSize:     8 * 1024,
		WriteBufferSize:    8 * 1024,
		Concurrency:        30_000,
		MaxConnsPerIP:      1_000,
	}
}

type Engine struct {
	*Router
	*Server
	option ServerOption
	middle []MiddlewareFunc
}

func newServer(options ServerOption) *fasthttp.Server {
	return &fasthttp.Server{
		Handler: func(ctx *RequestCtx) {
			NotFoundHandler(ctx)
		},
		ErrorHandler: func(ctx *RequestCtx, err error) {
			logger.Warn("[xhttp] request error", "error", err)
		},
		Name:                  options.Name,
		Concurrency:           options.Concurrency,
		ReadBufferSize:        options.ReadBufferSize,
		WriteBufferSize:       options.WriteBufferSize,
		ReadTimeout:           options.ReadTimeout,
		WriteTimeout:          options.WriteTimeout,
		IdleTimeout:           options.IdleTimeout,
		MaxConnsPerIP:         options.MaxConnsPerIP,
		MaxRequestBodySize:    options.MaxRequestBodySize,
		TCPKeepalive:          true,
		NoDefaultServerHeader: true,
		NoDefaultContentType:  true,
		CloseOnShutdown:       true,
		Logger:                logger.GetLogger(),
	}
}

func NewServer(options ServerOption) *Engine {
	return &Engine{
		Server: newServer(options),
		Router: CreateDefaultRouter(),
		option: options,
	}
}

func CreateServer() *Engine {
	return NewServer(DefaultServerOption())
}

func (e *Engine) ListenAndServe(addr string) error {
	if err := e.DoRouting(); err != nil {
		return err
	}
	e.Server.Logger.Printf("[xhttp] server is listening on %s", addr)
	return e.Server.ListenAndServe(addr)
}

// DoRouting installs the router as the server handler wrapped by the
// registered middleware. The first middleware passed to Use runs first.
func (e *Engine) DoRouting() error {
	for method, route := range e.Router.List() {
		for _, r := range route {
			e.Server.Logger.Printf("[xhttp] method: %s, path: %s", method, r)
		}
	}
	e.Server.Handler = e.Handler()
	return nil
}

// Handler returns the router wrapped by the middleware chain.
func (e *Engine) Handler() RequestHandler {
	h := e.Router.Handler
	chain := slices.Clone(e.middle)
	slices.Reverse(chain)
	for i, m := range chain {
		h = m(h)
		logger.Debug("[xhttp] middleware registered", "index", i+1, "name", runtime.FuncForPC(reflect.ValueOf(m).Pointer()).Name())
	}
	return h
}

// CloseOnSignal shuts the server down on SIGINT, SIGTERM or SIGQUIT. The
// returned channel is closed once the shutdown has finished.
func (e *Engine) CloseOnSignal() <-chan struct{} {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	return e.closeOn(sig)
}

func (e *Engine) closeOn(sig <-chan os.Signal) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s := <-sig
		e.Server.Logger.Printf("[xhttp] received %v", s)
		e.Shutdown()
	}()
	return done
}

// Use adds middleware to the end of the chain.
func (e *Engine) Use(middleware MiddlewareFunc) {
	e.middle = append(e.middle, middleware)
}

// Shutdown gracefully shuts down the server without interrupting any active connections.
func (e *Engine) Shutdown() {
	e.Server.Logger.Printf("[xhttp] server is shutting down, process id: %d", os.Getpid())
	if err := e.Server.Shutdown(); err != nil {
		e.Server.Logger.Printf("[xhttp] error while shutting down: %v", err)
	}
}
