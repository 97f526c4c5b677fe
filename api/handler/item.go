package handler

import (
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/auction/api/transport"
	"github.com/fastygo/auction/domain"
	"github.com/fastygo/auction/pkg/httpcontext"
	auctionUC "github.com/fastygo/auction/usecase/auction"
)

type ItemHandler struct {
	baseHandler
	uc *auctionUC.UseCase
}

func NewItemHandler(uc *auctionUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *ItemHandler {
	return &ItemHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Create item
// @Tags items
// @Router /api/v1/items [post]
func (h *ItemHandler) CreateItem(ctx *fasthttp.RequestCtx) {
	caller, ok := h.identity(ctx)
	if !ok {
		return
	}

	var req transport.CreateItemRequest
	if !h.decode(ctx, &req) {
		return
	}
	spec, err := itemSpec(req)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	item, err := h.uc.CreateItem(stdCtx, caller.ID, spec)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.log(stdCtx).Info("item created", zap.String("item_id", item.ID), zap.String("seller_id", caller.ID))
	h.respondSuccess(ctx, http.StatusCreated, item)
}

// @Summary Edit item before its first bid
// @Tags items
// @Router /api/v1/items/{id} [put]
func (h *ItemHandler) UpdateItem(ctx *fasthttp.RequestCtx) {
	caller, ok := h.identity(ctx)
	if !ok {
		return
	}

	var req transport.UpdateItemRequest
	if !h.decode(ctx, &req) {
		return
	}
	patch, err := itemPatch(req)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	item, err := h.uc.UpdateItem(stdCtx, caller.ID, pathValue(ctx, "id"), patch)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, item)
}

// @Summary Item detail
// @Tags items
// @Router /api/v1/items/{id} [get]
func (h *ItemHandler) ViewItem(ctx *fasthttp.RequestCtx) {
	caller, ok := h.identity(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	contact := string(ctx.QueryArgs().Peek("email"))
	view, err := h.uc.ViewItem(stdCtx, pathValue(ctx, "id"), caller.ID, contact)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, view)
}

// @Summary Place bid
// @Tags items
// @Router /api/v1/items/{id}/bids [post]
func (h *ItemHandler) PlaceBid(ctx *fasthttp.RequestCtx) {
	caller, ok := h.identity(ctx)
	if !ok {
		return
	}

	var req transport.BidRequest
	if !h.decode(ctx, &req) {
		return
	}
	price, err := domain.ParseMoney(req.Price)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	name := req.BidderName
	if name == "" {
		name = caller.Name
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	item, err := h.uc.PlaceBid(stdCtx, pathValue(ctx, "id"), auctionUC.Bid{
		BidderID:   caller.ID,
		BidderName: name,
		Price:      price,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, item)
}

// @Summary Close auction and sell to the high bidder
// @Tags items
// @Router /api/v1/items/{id}/sell [post]
func (h *ItemHandler) Sell(ctx *fasthttp.RequestCtx) {
	caller, ok := h.identity(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	item, err := h.uc.CloseAndSell(stdCtx, caller.ID, pathValue(ctx, "id"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.log(stdCtx).Info("item sold",
		zap.String("item_id", item.ID),
		zap.String("seller_id", caller.ID),
		zap.String("buyer_id", item.BuyerID))
	h.respondSuccess(ctx, http.StatusOK, item)
}

// @Summary Deactivate item
// @Tags items
// @Router /api/v1/items/{id}/deactivate [post]
func (h *ItemHandler) Deactivate(ctx *fasthttp.RequestCtx) {
	caller, ok := h.identity(ctx)
	if !ok {
		return
	}
	sellerID := caller.ID
	if caller.Role == domain.RoleAdmin {
		sellerID = ""
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	item, err := h.uc.DeactivateItem(stdCtx, pathValue(ctx, "id"), sellerID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, item)
}

func itemSpec(req transport.CreateItemRequest) (domain.ItemSpec, error) {
	if req.BasePrice == nil {
		return domain.ItemSpec{}, domain.Detail(domain.ErrInvalidSpec, "base price is required")
	}
	basePrice, err := domain.ParseMoney(*req.BasePrice)
	if err != nil {
		return domain.ItemSpec{}, err
	}
	date, err := parseTime("date", req.Date)
	if err != nil {
		return domain.ItemSpec{}, err
	}
	start, err := parseTime("start_time", req.StartTime)
	if err != nil {
		return domain.ItemSpec{}, err
	}
	end, err := parseTime("end_time", req.EndTime)
	if err != nil {
		return domain.ItemSpec{}, err
	}
	return domain.ItemSpec{
		Name:      req.Name,
		BasePrice: basePrice,
		Category:  req.Type,
		ImageURL:  req.ImageURL,
		Date:      date,
		StartTime: start,
		EndTime:   end,
	}, nil
}

func itemPatch(req transport.UpdateItemRequest) (domain.ItemPatch, error) {
	patch := domain.ItemPatch{
		Name:     req.Name,
		Category: req.Type,
		ImageURL: req.ImageURL,
	}
	if req.BasePrice != nil {
		price, err := domain.ParseMoney(*req.BasePrice)
		if err != nil {
			return patch, err
		}
		patch.BasePrice = &price
	}

	times := []struct {
		field string
		raw   *string
		dst   **time.Time
	}{
		{"date", req.Date, &patch.Date},
		{"start_time", req.StartTime, &patch.StartTime},
		{"end_time", req.EndTime, &patch.EndTime},
	}
	for _, tf := range times {
		if tf.raw == nil {
			continue
		}
		parsed, err := parseTime(tf.field, *tf.raw)
		if err != nil {
			return patch, err
		}
		if parsed == nil {
			return patch, domain.Detail(domain.ErrInvalidSpec, tf.field+" must not be blank")
		}
		*tf.dst = parsed
	}
	return patch, nil
}
