package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fasthttp/router"
	"github.com/nimasrn/crowdfund/internal/model"
	"github.com/nimasrn/crowdfund/internal/services"
	xhttp "github.com/nimasrn/crowdfund/pkg/http"
	"github.com/nimasrn/crowdfund/pkg/logger"
)

type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (*model.User, error)
}

// Counter increments a windowed counter and returns the new value.
type Counter interface {
	IncrWindow(key string, ttl time.Duration) (int64, error)
}

// Middleware wraps route handlers. fasthttp/router has no per-group
// middleware, so routes opt in one by one.
type Middleware struct {
	auth    Authenticator
	counter Counter
	limit   int64
	window  time.Duration
}

func NewMiddleware(auth Authenticator, counter Counter, limit int, window time.Duration) *Middleware {
	return &Middleware{
		auth:    auth,
		counter: counter,
		limit:   int64(limit),
		window:  window,
	}
}

func bearerToken(ctx *xhttp.RequestCtx) string {
	h := string(ctx.Request.Header.Peek("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// Auth rejects requests without a valid session token.
func (m *Middleware) Auth(next xhttp.RequestHandler) xhttp.RequestHandler {
	return func(ctx *xhttp.RequestCtx) {
		raw := bearerToken(ctx)
		if raw == "" {
			writeError(ctx, xhttp.StatusUnauthorized, "missing bearer token")
			return
		}
		user, err := m.auth.Authenticate(ctx, raw)
		if err != nil {
			writeServiceError(ctx, err)
			return
		}
		ctx.SetUserValue(userKey, user)
		next(ctx)
	}
}

// OptionalAuth attaches the user when a valid token is sent and otherwise
// lets the request through anonymously. A blocked user is still refused.
func (m *Middleware) OptionalAuth(next xhttp.RequestHandler) xhttp.RequestHandler {
	return func(ctx *xhttp.RequestCtx) {
		if raw := bearerToken(ctx); raw != "" {
			user, err := m.auth.Authenticate(ctx, raw)
			switch {
			case err == nil:
				ctx.SetUserValue(userKey, user)
			case !isUnauthorized(err):
				writeServiceError(ctx, err)
				return
			}
		}
		next(ctx)
	}
}

// Admin is Auth plus a role check.
func (m *Middleware) Admin(next xhttp.RequestHandler) xhttp.RequestHandler {
	return m.Auth(RequireAdmin(next))
}

func RequireAdmin(next xhttp.RequestHandler) xhttp.RequestHandler {
	return func(ctx *xhttp.RequestCtx) {
		if !currentUser(ctx).IsAdmin() {
			writeServiceError(ctx, services.ErrNotAdmin)
			return
		}
		next(ctx)
	}
}

// RateLimit allows m.limit requests per client IP and route per window.
// Counter failures let the request through.
func (m *Middleware) RateLimit(next xhttp.RequestHandler) xhttp.RequestHandler {
	return func(ctx *xhttp.RequestCtx) {
		if m.counter == nil || m.limit <= 0 {
			next(ctx)
			return
		}
		route, _ := ctx.UserValue(router.MatchedRoutePathParam).(string)
		if route == "" {
			route = string(ctx.Path())
		}
		key := fmt.Sprintf("ratelimit:%s:%s:%s", ctx.Method(), route, ctx.RemoteIP().String())

		n, err := m.counter.IncrWindow(key, m.window)
		if err != nil {
			logger.Warn("rate limit counter unavailable", "key", key, "error", err)
			next(ctx)
			return
		}
		if n > m.limit {
			ctx.Response.Header.Set("Retry-After", fmt.Sprintf("%d", int(m.window.Seconds())))
			writeServiceError(ctx, services.ErrRateLimited)
			return
		}
		next(ctx)
	}
}

func isUnauthorized(err error) bool {
	return errors.Is(err, services.ErrUnauthorized)
}
