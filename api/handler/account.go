package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/auction/api/transport"
	"github.com/fastygo/auction/domain"
	"github.com/fastygo/auction/pkg/httpcontext"
	accountUC "github.com/fastygo/auction/usecase/account"
)

type AccountHandler struct {
	baseHandler
	uc *accountUC.UseCase
}

func NewAccountHandler(uc *accountUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Register seller
// @Tags accounts
// @Router /api/v1/sellers [post]
func (h *AccountHandler) RegisterSeller(ctx *fasthttp.RequestCtx) {
	var req transport.RegisterSellerRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	seller, err := h.uc.RegisterSeller(stdCtx, accountUC.SellerInput{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Subscription: domain.Subscription(req.Subscription),
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, seller)
}

// @Summary Register user
// @Tags accounts
// @Router /api/v1/users [post]
func (h *AccountHandler) RegisterUser(ctx *fasthttp.RequestCtx) {
	var req transport.RegisterUserRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	user, err := h.uc.RegisterUser(stdCtx, accountUC.UserInput{Name: req.Name, Email: req.Email})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, user)
}

// @Summary Update seller subscription
// @Tags accounts
// @Router /api/v1/sellers/{id}/subscription [put]
func (h *AccountHandler) UpdateSubscription(ctx *fasthttp.RequestCtx) {
	sellerID := pathValue(ctx, "id")
	if _, ok := h.actingFor(ctx, sellerID); !ok {
		return
	}

	var req transport.SubscriptionRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	seller, err := h.uc.UpdateSubscription(stdCtx, sellerID, domain.Subscription(req.Subscription))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, seller)
}

// @Summary Edit seller profile
// @Tags accounts
// @Router /api/v1/sellers/{id} [put]
func (h *AccountHandler) UpdateSeller(ctx *fasthttp.RequestCtx) {
	sellerID := pathValue(ctx, "id")
	if _, ok := h.actingFor(ctx, sellerID); !ok {
		return
	}

	var req transport.ProfileRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	seller, err := h.uc.UpdateSeller(stdCtx, sellerID, profilePatch(req))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, seller)
}

// @Summary Edit user profile
// @Tags accounts
// @Router /api/v1/users/{id} [put]
func (h *AccountHandler) UpdateUser(ctx *fasthttp.RequestCtx) {
	userID := pathValue(ctx, "id")
	if _, ok := h.actingFor(ctx, userID); !ok {
		return
	}

	var req transport.ProfileRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	user, err := h.uc.UpdateUser(stdCtx, userID, profilePatch(req))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, user)
}

func profilePatch(req transport.ProfileRequest) domain.ProfilePatch {
	return domain.ProfilePatch{Name: req.Name, Email: req.Email, Phone: req.Phone}
}

// @Summary Like item
// @Tags accounts
// @Router /api/v1/items/{id}/like [post]
func (h *AccountHandler) LikeItem(ctx *fasthttp.RequestCtx) {
	caller, ok := h.identity(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	itemID := pathValue(ctx, "id")
	if err := h.uc.LikeItem(stdCtx, domain.EntityKind(caller.Role), caller.ID, itemID); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]string{"item_id": itemID})
}
