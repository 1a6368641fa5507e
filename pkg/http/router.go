package xhttp

import (
	"github.com/fasthttp/router"
)

type Router = router.Router
type Group = router.Group

// NewRouter returns a new Router
func NewRouter() *Router {
	return router.New()
}

// CreateDefaultRouter returns a router with trailing-slash redirects and JSON
// 404/405 responses.
func CreateDefaultRouter() *Router {
	r := NewRouter()
	r.RedirectFixedPath = true
	r.RedirectTrailingSlash = true
	r.SaveMatchedRoutePath = true
	r.NotFound = NotFoundHandler
	r.MethodNotAllowed = MethodNotAllowedHandler
	r.HandleOPTIONS = true
	r.HandleMethodNotAllowed = true
	return r
}

func NotFoundHandler(ctx *RequestCtx) {
	errorJSON(ctx, StatusNotFound, StatusText(StatusNotFound))
}

func MethodNotAllowedHandler(ctx *RequestCtx) {
	errorJSON(ctx, StatusMethodNotAllowed, StatusText(StatusMethodNotAllowed))
}

func errorJSON(ctx *RequestCtx, status int, msg string) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBodyString(`{"error":"` + msg + `"}`)
}
