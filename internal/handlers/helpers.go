package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"github.com/nimasrn/crowdfund/internal/model"
	"github.com/nimasrn/crowdfund/internal/services"
	xhttp "github.com/nimasrn/crowdfund/pkg/http"
	"github.com/nimasrn/crowdfund/pkg/logger"
)

const userKey = "user"

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type actionRequest struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	if len(body) == 0 {
		return errors.New("empty body")
	}
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, errorResponse{Error: msg})
}

func writeBadJSON(ctx *xhttp.RequestCtx, err error) {
	writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
}

// writeServiceError maps a service error onto its HTTP status. Anything that
// does not wrap a known kind is logged and reported as a 500.
func writeServiceError(ctx *xhttp.RequestCtx, err error) {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(ctx, xhttp.StatusBadRequest, errorResponse{Error: ve.Error(), Fields: ve.Fields})
	case errors.Is(err, services.ErrInvalidInput):
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrUnauthorized):
		writeError(ctx, xhttp.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrForbidden):
		writeError(ctx, xhttp.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrNotFound):
		writeError(ctx, xhttp.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrConflict):
		writeError(ctx, xhttp.StatusConflict, err.Error())
	case errors.Is(err, services.ErrRateLimited):
		writeError(ctx, xhttp.StatusTooManyRequests, err.Error())
	default:
		logger.Error("request failed",
			"method", string(ctx.Method()),
			"path", string(ctx.Path()),
			"request_id", string(ctx.Request.Header.Peek(xhttp.HeaderRequestID)),
			"error", err)
		writeError(ctx, xhttp.StatusInternalServerError, "internal server error")
	}
}

func invalidField(field, msg string) error {
	return &services.ValidationError{Fields: map[string]string{field: msg}}
}

// currentUser returns the user stored by the auth middleware, or nil.
func currentUser(ctx *xhttp.RequestCtx) *model.User {
	u, _ := ctx.UserValue(userKey).(*model.User)
	return u
}

func pathInt64(ctx *xhttp.RequestCtx, name string) (int64, error) {
	v := fmt.Sprint(ctx.UserValue(name))
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, invalidField(name, "must be a positive integer")
	}
	return id, nil
}

func pathString(ctx *xhttp.RequestCtx, name string) string {
	s, _ := ctx.UserValue(name).(string)
	return s
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return strings.TrimSpace(string(ctx.QueryArgs().Peek(key)))
}

func queryPage(ctx *xhttp.RequestCtx) model.Page {
	var p model.Page
	if n, err := strconv.Atoi(query(ctx, "limit")); err == nil {
		p.Limit = n
	}
	if n, err := strconv.Atoi(query(ctx, "offset")); err == nil {
		p.Offset = n
	}
	return p.Normalize()
}

func queryBool(ctx *xhttp.RequestCtx, key string) *bool {
	v := query(ctx, key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

func queryInt64(ctx *xhttp.RequestCtx, key string) *int64 {
	v := query(ctx, key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

func queryTime(ctx *xhttp.RequestCtx, key string) *time.Time {
	v := query(ctx, key)
	if v == "" {
		return nil
	}
	t, err := parseTime(v)
	if err != nil {
		return nil
	}
	return &t
}

func parseTime(s string) (time.Time, error) {
	// Accept RFC3339 or YYYY-MM-DD
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func formValue(form *multipart.Form, key string) string {
	if vs := form.Value[key]; len(vs) > 0 {
		return strings.TrimSpace(vs[0])
	}
	return ""
}

// formUpload reads an optional file field. It returns nil when the field is absent.
func formUpload(form *multipart.Form, key string, maxSize int64) (*model.Upload, error) {
	files := form.File[key]
	if len(files) == 0 {
		return nil, nil
	}
	fh := files[0]
	if fh.Size > maxSize {
		return nil, invalidField(key, fmt.Sprintf("must be at most %d bytes", maxSize))
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", key, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", key, err)
	}
	return &model.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
