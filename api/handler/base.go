package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/auction/api/transport"
	"github.com/fastygo/auction/domain"
	"github.com/fastygo/auction/internal/middleware"
	"github.com/fastygo/auction/pkg/httpcontext"
	appLogger "github.com/fastygo/auction/pkg/logger"
)

type baseHandler struct {
	adapter *httpcontext.Adapter
	logger  *zap.Logger
}

func newBaseHandler(adapter *httpcontext.Adapter, logger *zap.Logger) baseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return baseHandler{adapter: adapter, logger: logger}
}

func (h baseHandler) requestContext(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	if h.adapter != nil {
		return h.adapter.Attach(ctx)
	}
	return context.WithCancel(context.Background())
}

func (h baseHandler) respondJSON(ctx *fasthttp.RequestCtx, status int, payload transport.Envelope) {
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	body, _ := json.Marshal(payload)
	ctx.SetBody(body)
}

func (h baseHandler) respondSuccess(ctx *fasthttp.RequestCtx, status int, data interface{}) {
	h.respondJSON(ctx, status, transport.NewSuccess(data, nil))
}

func (h baseHandler) respondError(ctx *fasthttp.RequestCtx, err error) {
	status, code := mapError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", string(ctx.Method())),
			zap.String("path", string(ctx.Path())),
			zap.Error(err))
		message = "internal error"
	}
	h.respondJSON(ctx, status, transport.NewError(code, message, nil))
}

// log returns the handler logger enriched with the request id.
func (h baseHandler) log(stdCtx context.Context) *zap.Logger {
	return appLogger.WithRequestID(stdCtx, h.logger)
}

// decode parses the JSON body into dst and answers 400 when it cannot.
func (h baseHandler) decode(ctx *fasthttp.RequestCtx, dst interface{}) bool {
	if err := json.Unmarshal(ctx.PostBody(), dst); err != nil {
		h.respondError(ctx, domain.Detail(domain.ErrInvalidPayload, "invalid payload"))
		return false
	}
	return true
}

func (h baseHandler) identity(ctx *fasthttp.RequestCtx) (domain.Identity, bool) {
	caller := middleware.IdentityFrom(ctx)
	if caller.ID == "" {
		h.respondError(ctx, domain.Detail(domain.ErrUnauthorized, "missing user id"))
		return caller, false
	}
	return caller, true
}

// actingFor resolves the caller and checks it may act on behalf of id.
func (h baseHandler) actingFor(ctx *fasthttp.RequestCtx, id string) (domain.Identity, bool) {
	caller, ok := h.identity(ctx)
	if !ok {
		return caller, false
	}
	if !caller.CanActFor(id) {
		h.respondError(ctx, domain.ErrForbidden)
		return caller, false
	}
	return caller, true
}

func pathValue(ctx *fasthttp.RequestCtx, name string) string {
	value, _ := ctx.UserValue(name).(string)
	return value
}

// mapError turns a domain error into a status and the stable reason code.
func mapError(err error) (int, string) {
	code := string(domain.ReasonOf(err))
	status := http.StatusInternalServerError
	switch {
	case domain.IsDomainError(err, domain.ErrCodeUnauthorized):
		status = http.StatusUnauthorized
	case domain.IsDomainError(err, domain.ErrCodeForbidden):
		status = http.StatusForbidden
	case domain.IsDomainError(err, domain.ErrCodeInvalid):
		status = http.StatusBadRequest
	case domain.IsDomainError(err, domain.ErrCodeNotFound):
		status = http.StatusNotFound
	case domain.IsDomainError(err, domain.ErrCodeConflict):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError || code == "" {
		code = string(domain.ErrCodeInternal)
	}
	return status, code
}

var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

// parseTime accepts the layouts above; an empty value means "unset".
func parseTime(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return &parsed, nil
		}
	}
	return nil, domain.Detail(domain.ErrInvalidSpec, "invalid "+field)
}
