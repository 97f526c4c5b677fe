package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/auction/domain"
	"github.com/fastygo/auction/pkg/httpcontext"
	accountUC "github.com/fastygo/auction/usecase/account"
	auctionUC "github.com/fastygo/auction/usecase/auction"
	settlementUC "github.com/fastygo/auction/usecase/settlement"
)

type AdminHandler struct {
	baseHandler
	auction    *auctionUC.UseCase
	settlement *settlementUC.UseCase
	account    *accountUC.UseCase
}

func NewAdminHandler(
	auction *auctionUC.UseCase,
	settlement *settlementUC.UseCase,
	account *accountUC.UseCase,
	adapter *httpcontext.Adapter,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		baseHandler: newBaseHandler(adapter, logger),
		auction:     auction,
		settlement:  settlement,
		account:     account,
	}
}

// @Summary Delete user, seller or item
// @Tags admin
// @Router /api/v1/admin/{kind}/{id} [delete]
func (h *AdminHandler) Delete(ctx *fasthttp.RequestCtx) {
	target, err := domain.ParseDeleteTarget(pathValue(ctx, "kind"), pathValue(ctx, "id"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.auction.Delete(stdCtx, target); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.log(stdCtx).Info("entity deleted",
		zap.String("kind", string(target.Kind())),
		zap.String("id", target.TargetID()))
	h.respondSuccess(ctx, http.StatusOK, map[string]string{
		"kind": string(target.Kind()),
		"id":   target.TargetID(),
	})
}

// @Summary Flush cache
// @Tags admin
// @Router /api/v1/admin/cache/flush [post]
func (h *AdminHandler) FlushCache(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	flushed := h.account.FlushCache(stdCtx)
	h.respondSuccess(ctx, http.StatusOK, map[string]bool{"flushed": flushed})
}

// @Summary Reconcile paid payments
// @Tags admin
// @Router /api/v1/admin/reconcile [post]
func (h *AdminHandler) Reconcile(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	report, err := h.settlement.ReconcilePayments(stdCtx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, report)
}
