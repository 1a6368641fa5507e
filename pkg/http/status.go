package xhttp

import "github.com/valyala/fasthttp"

const (
	StatusOK                  = fasthttp.StatusOK
	StatusCreated             = fasthttp.StatusCreated
	StatusAccepted            = fasthttp.StatusAccepted
	StatusNoContent           = fasthttp.StatusNoContent
	StatusBadRequest          = fasthttp.StatusBadRequest
	StatusUnauthorized        = fasthttp.StatusUnauthorized
	StatusForbidden           = fasthttp.StatusForbidden
	StatusNotFound            = fasthttp.StatusNotFound
	StatusMethodNotAllowed    = fasthttp.StatusMethodNotAllowed
	StatusRequestTimeout      = fasthttp.StatusRequestTimeout
	StatusConflict            = fasthttp.StatusConflict
	StatusRequestEntityTooBig = fasthttp.StatusRequestEntityTooLarge
	StatusTooManyRequests     = fasthttp.StatusTooManyRequests
	StatusInternalServerError = fasthttp.StatusInternalServerError
	StatusServiceUnavailable  = fasthttp.StatusServiceUnavailable
)

func StatusText(code int) string {
	return fasthttp.StatusMessage(code)
}
