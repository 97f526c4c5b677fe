package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/auction/api/transport"
	"github.com/fastygo/auction/pkg/httpcontext"
	catalogUC "github.com/fastygo/auction/usecase/catalog"
)

type CatalogHandler struct {
	baseHandler
	uc *catalogUC.UseCase
}

func NewCatalogHandler(uc *catalogUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Seller home
// @Tags catalog
// @Router /api/v1/sellers/{id}/home [get]
func (h *CatalogHandler) SellerHome(ctx *fasthttp.RequestCtx) {
	sellerID := pathValue(ctx, "id")
	if _, ok := h.actingFor(ctx, sellerID); !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	home, err := h.uc.SellerHome(stdCtx, sellerID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, home)
}

// @Summary User home
// @Tags catalog
// @Router /api/v1/users/{id}/home [get]
func (h *CatalogHandler) UserHome(ctx *fasthttp.RequestCtx) {
	userID := pathValue(ctx, "id")
	if _, ok := h.actingFor(ctx, userID); !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	home, err := h.uc.UserHome(stdCtx, userID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, home)
}

// @Summary Open listing
// @Tags catalog
// @Router /api/v1/items [get]
func (h *CatalogHandler) OpenListing(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	listing, err := h.uc.OpenListing(stdCtx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK, transport.NewSuccess(listing, transport.Page{Count: len(listing.Items), Limit: catalogUC.MaxListing}))
}
