package xhttp

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/crowdfund/pkg/logger"
	"github.com/valyala/fasthttp"
)

const slowThreshold = 500 * time.Millisecond

const HeaderRequestID = "X-Request-Id"

var skipPaths = []string{"/api/v1/health", "/metrics", "/uploads"}

type MiddlewareFunc func(next RequestHandler) RequestHandler
type RequestCtx = fasthttp.RequestCtx
type RequestHandler = fasthttp.RequestHandler

// LatencyObserver receives the outcome of every logged request.
type LatencyObserver func(method string, status int, latency time.Duration)

func TimeoutMiddleware(timeout time.Duration) MiddlewareFunc {
	return func(next RequestHandler) RequestHandler {
		return fasthttp.TimeoutWithCodeHandler(next, timeout, StatusText(StatusRequestTimeout), StatusRequestTimeout)
	}
}

func RecoverMiddleware(next RequestHandler) RequestHandler {
	return func(ctx *RequestCtx) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("[xhttp] panic recovered", "error", err, "path", string(ctx.Path()))
				ctx.ResetBody()
				errorJSON(ctx, StatusInternalServerError, StatusText(StatusInternalServerError))
			}
		}()
		next(ctx)
	}
}

// RequestIDMiddleware echoes the caller's request id or assigns a new one.
func RequestIDMiddleware(next RequestHandler) RequestHandler {
	return func(ctx *RequestCtx) {
		rid := requestID(ctx)
		if rid == "" {
			rid = uuid.NewString()
			ctx.Request.Header.Set(HeaderRequestID, rid)
		}
		ctx.Response.Header.Set(HeaderRequestID, rid)
		next(ctx)
	}
}

func CORSMiddleware(allowOrigin string) MiddlewareFunc {
	return func(next RequestHandler) RequestHandler {
		return func(ctx *RequestCtx) {
			ctx.Response.Header.Set("Access-Control-Allow-Origin", allowOrigin)
			ctx.Response.Header.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-Id")
			ctx.Response.Header.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			if ctx.IsOptions() {
				ctx.SetStatusCode(StatusNoContent)
				return
			}
			next(ctx)
		}
	}
}

func RequestLoggerMiddleware(observe LatencyObserver) MiddlewareFunc {
	return func(next RequestHandler) RequestHandler {
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
			method := string(ctx.Method())
			if observe != nil {
				observe(method, status, latency)
			}

			fields := []interface{}{
				"status", status,
				"method", method,
				"path", path,
				"latency", latency.String(),
				"bytes_in", len(ctx.PostBody()),
				"bytes_out", len(ctx.Response.Body()),
				"ip", ctx.RemoteIP().String(),
				"ua", string(ctx.Request.Header.UserAgent()),
				"request_id", requestID(ctx),
			}

			lg := logger.GetLogger()
			switch {
			case status >= 500:
				lg.Error("http_request", fields...)
			case status >= 400 || latency > slowThreshold:
				lg.Warn("http_request", fields...)
			default:
				lg.Info("http_request", fields...)
			}
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

func requestID(ctx *fasthttp.RequestCtx) string {
	if v := ctx.Request.Header.Peek(HeaderRequestID); len(v) > 0 {
		return string(v)
	}
	return ""
}
