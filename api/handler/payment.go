package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/auction/api/transport"
	"github.com/fastygo/auction/pkg/httpcontext"
	settlementUC "github.com/fastygo/auction/usecase/settlement"
)

type PaymentHandler struct {
	baseHandler
	uc *settlementUC.UseCase
}

func NewPaymentHandler(uc *settlementUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Create payment
// @Tags payments
// @Router /api/v1/payments [post]
func (h *PaymentHandler) Create(ctx *fasthttp.RequestCtx) {
	caller, ok := h.identity(ctx)
	if !ok {
		return
	}

	var req transport.PaymentRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	payment, err := h.uc.CreatePayment(stdCtx, req.ItemID, caller.ID, req.Method)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, payment)
}

// @Summary Confirm payment (provider callback)
// @Tags payments
// @Router /api/v1/payments/{id}/confirm [post]
func (h *PaymentHandler) Confirm(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	payment, err := h.uc.ConfirmPayment(stdCtx, pathValue(ctx, "id"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, payment)
}

// @Summary Fail payment
// @Tags payments
// @Router /api/v1/payments/{id}/fail [post]
func (h *PaymentHandler) Fail(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	payment, err := h.uc.FailPayment(stdCtx, pathValue(ctx, "id"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, payment)
}

// @Summary Payment status of an item
// @Tags payments
// @Router /api/v1/payments/status/{itemId} [get]
func (h *PaymentHandler) Status(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	itemID := pathValue(ctx, "itemId")
	status, err := h.uc.PaymentStatus(stdCtx, itemID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]string{
		"item_id": itemID,
		"status":  string(status),
	})
}
