package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap/zaptest"

	apiHandler "github.com/fastygo/auction/api/handler"
	"github.com/fastygo/auction/internal/infrastructure/monitor"
	"github.com/fastygo/auction/internal/middleware"
	"github.com/fastygo/auction/pkg/httpcontext"
	"github.com/fastygo/auction/repository/memory"
	"github.com/fastygo/auction/usecase"
	accountUC "github.com/fastygo/auction/usecase/account"
	auctionUC "github.com/fastygo/auction/usecase/auction"
	catalogUC "github.com/fastygo/auction/usecase/catalog"
	settlementUC "github.com/fastygo/auction/usecase/settlement"
)

const secret = "router-test-secret"

type envelope struct {
	Status string          `json:"status"`
	Code   string          `json:"code"`
	Data   json.RawMessage `json:"data"`
}

type api struct {
	t       *testing.T
	handler fasthttp.RequestHandler
}

func newAPI(t *testing.T) *api {
	t.Helper()
	logger := zaptest.NewLogger(t)
	store := memory.New()
	cache := usecase.NewCache(nil, time.Hour, nil, logger)

	auction := auctionUC.New(store.Items(), store.Sellers(), store.Users(), cache, logger)
	settlement := settlementUC.New(store.Items(), store.Payments(), cache, logger)
	catalog := catalogUC.New(store.Items(), store.Sellers(), store.Users(), cache, logger)
	account := accountUC.New(store.Sellers(), store.Users(), cache, logger)

	mon := monitor.New(monitor.Options{Store: store, StoreDriver: "memory"}, logger)
	mon.Refresh()

	adapter := httpcontext.NewAdapter(time.Second)
	r := New(Handlers{
		Account: apiHandler.NewAccountHandler(account, adapter, logger),
		Catalog: apiHandler.NewCatalogHandler(catalog, adapter, logger),
		Item:    apiHandler.NewItemHandler(auction, adapter, logger),
		Payment: apiHandler.NewPaymentHandler(settlement, adapter, logger),
		Admin:   apiHandler.NewAdminHandler(auction, settlement, account, adapter, logger),
		Health:  apiHandler.NewHealthHandler(mon, adapter, logger),
	}, middleware.JWTAuth(secret, logger))

	return &api{t: t, handler: r.Handler}
}

func (a *api) token(id, name, role string) string {
	a.t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": id,
		"name":    name,
		"role":    role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(a.t, err)
	return signed
}

func (a *api) do(method, path, token string, body interface{}) (int, envelope) {
	a.t.Helper()
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	if token != "" {
		ctx.Request.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		ctx.Request.SetBody(raw)
	}

	a.handler(ctx)

	var env envelope
	if len(ctx.Response.Body()) > 0 {
		require.NoError(a.t, json.Unmarshal(ctx.Response.Body(), &env))
	}
	return ctx.Response.StatusCode(), env
}

func (a *api) id(env envelope) string {
	a.t.Helper()
	var out struct {
		ID string `json:"id"`
	}
	require.NoError(a.t, json.Unmarshal(env.Data, &out))
	require.NotEmpty(a.t, out.ID)
	return out.ID
}

func TestAuctionFlow(t *testing.T) {
	a := newAPI(t)

	status, env := a.do(http.MethodPost, "/api/v1/sellers", "", map[string]string{"name": "Ada", "email": "ada@example.com"})
	require.Equal(t, http.StatusCreated, status)
	sellerID := a.id(env)

	status, env = a.do(http.MethodPost, "/api/v1/users", "", map[string]string{"name": "Bob"})
	require.Equal(t, http.StatusCreated, status)
	userID := a.id(env)

	sellerToken := a.token(sellerID, "Ada", "seller")
	userToken := a.token(userID, "Bob", "user")

	status, env = a.do(http.MethodPost, "/api/v1/items", sellerToken, map[string]interface{}{"name": "clock", "base_price": "100"})
	require.Equal(t, http.StatusCreated, status)
	itemID := a.id(env)

	status, env = a.do(http.MethodPost, "/api/v1/items/"+itemID+"/bids", userToken, map[string]interface{}{"price": 100})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "BID_TOO_LOW", env.Code)

	status, env = a.do(http.MethodPost, "/api/v1/items/"+itemID+"/bids", userToken, map[string]interface{}{"price": "150.50"})
	require.Equal(t, http.StatusOK, status)
	var bid struct {
		CurrentPrice  float64 `json:"current_price"`
		CurrentBidder string  `json:"current_bidder"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &bid))
	assert.Equal(t, 150.5, bid.CurrentPrice)
	assert.Equal(t, "Bob", bid.CurrentBidder)

	status, env = a.do(http.MethodPost, "/api/v1/payments", userToken, map[string]string{"item_id": itemID})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "ITEM_NOT_SOLD", env.Code)

	status, _ = a.do(http.MethodPost, "/api/v1/items/"+itemID+"/sell", sellerToken, nil)
	require.Equal(t, http.StatusOK, status)

	status, env = a.do(http.MethodPost, "/api/v1/items/"+itemID+"/bids", userToken, map[string]interface{}{"price": 500})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "ITEM_SOLD", env.Code)

	status, env = a.do(http.MethodPost, "/api/v1/payments", userToken, map[string]string{"item_id": itemID, "method": "card"})
	require.Equal(t, http.StatusCreated, status)
	paymentID := a.id(env)

	status, _ = a.do(http.MethodPost, "/api/v1/payments/"+paymentID+"/confirm", userToken, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = a.do(http.MethodPost, "/api/v1/payments/"+paymentID+"/confirm", userToken, nil)
	require.Equal(t, http.StatusOK, status)

	status, env = a.do(http.MethodGet, "/api/v1/payments/status/"+itemID, userToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, fmt.Sprintf(`{"item_id":%q,"status":"paid"}`, itemID), string(env.Data))

	status, env = a.do(http.MethodGet, "/api/v1/users/"+userID+"/home", userToken, nil)
	require.Equal(t, http.StatusOK, status)
	var home struct {
		Purchased []struct {
			ID   string `json:"id"`
			Paid bool   `json:"paid"`
		} `json:"purchased"`
		Source string `json:"source"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &home))
	require.Len(t, home.Purchased, 1)
	assert.Equal(t, itemID, home.Purchased[0].ID)
	assert.True(t, home.Purchased[0].Paid)
	assert.Equal(t, "db", home.Source)
}

func TestAccessControl(t *testing.T) {
	a := newAPI(t)

	_, env := a.do(http.MethodPost, "/api/v1/sellers", "", map[string]string{"name": "Ada", "email": "ada@example.com"})
	sellerID := a.id(env)
	_, env = a.do(http.MethodPost, "/api/v1/sellers", "", map[string]string{"name": "Eve", "email": "eve@example.com"})
	otherID := a.id(env)

	status, _ := a.do(http.MethodGet, "/api/v1/items", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = a.do(http.MethodPost, "/api/v1/items", a.token(sellerID, "Ada", "user"), map[string]interface{}{"name": "x", "base_price": 1})
	assert.Equal(t, http.StatusForbidden, status)

	status, env = a.do(http.MethodGet, "/api/v1/sellers/"+sellerID+"/home", a.token(otherID, "Eve", "seller"), nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", env.Code)

	status, _ = a.do(http.MethodGet, "/api/v1/sellers/"+sellerID+"/home", a.token(sellerID, "Ada", "seller"), nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = a.do(http.MethodDelete, "/api/v1/admin/seller/"+sellerID, a.token(sellerID, "Ada", "seller"), nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestAdminEndpoints(t *testing.T) {
	a := newAPI(t)
	admin := a.token("00000000-0000-0000-0000-000000000001", "root", "admin")

	_, env := a.do(http.MethodPost, "/api/v1/sellers", "", map[string]string{"name": "Ada", "email": "ada@example.com"})
	sellerID := a.id(env)
	sellerToken := a.token(sellerID, "Ada", "seller")
	_, env = a.do(http.MethodPost, "/api/v1/items", sellerToken, map[string]interface{}{"name": "clock", "base_price": 10})
	itemID := a.id(env)

	status, env := a.do(http.MethodDelete, "/api/v1/admin/widget/"+sellerID, admin, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_ENTITY_KIND", env.Code)

	status, env = a.do(http.MethodDelete, "/api/v1/admin/seller/not-an-id", admin, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_IDENTIFIER", env.Code)

	status, _ = a.do(http.MethodDelete, "/api/v1/admin/seller/"+sellerID, admin, nil)
	require.Equal(t, http.StatusOK, status)

	status, env = a.do(http.MethodGet, "/api/v1/items/"+itemID, admin, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "ITEM_NOT_FOUND", env.Code)

	status, env = a.do(http.MethodPost, "/api/v1/admin/cache/flush", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"flushed":true}`, string(env.Data))

	status, env = a.do(http.MethodPost, "/api/v1/admin/reconcile", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"scanned":0,"repaired":0,"failed":[]}`, string(env.Data))
}

func TestBadPayloads(t *testing.T) {
	a := newAPI(t)
	_, env := a.do(http.MethodPost, "/api/v1/sellers", "", map[string]string{"name": "Ada", "email": "ada@example.com"})
	sellerID := a.id(env)
	sellerToken := a.token(sellerID, "Ada", "seller")

	status, env := a.do(http.MethodPost, "/api/v1/items", sellerToken, map[string]interface{}{"name": "x", "base_price": "1.001"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_AMOUNT", env.Code)

	status, env = a.do(http.MethodPost, "/api/v1/items", sellerToken, map[string]interface{}{"name": "x", "base_price": 1, "end_time": "tomorrow"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_SPEC", env.Code)

	status, env = a.do(http.MethodPost, "/api/v1/items", sellerToken, map[string]interface{}{"name": "clock"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_SPEC", env.Code)

	status, env = a.do(http.MethodPost, "/api/v1/sellers", "", "not an object")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_PAYLOAD", env.Code)
}

func TestEditEndpoints(t *testing.T) {
	a := newAPI(t)

	_, env := a.do(http.MethodPost, "/api/v1/sellers", "", map[string]string{"name": "Ada", "email": "ada@example.com"})
	sellerID := a.id(env)
	_, env = a.do(http.MethodPost, "/api/v1/sellers", "", map[string]string{"name": "Eve", "email": "eve@example.com"})
	otherID := a.id(env)
	_, env = a.do(http.MethodPost, "/api/v1/users", "", map[string]string{"name": "Bob"})
	userID := a.id(env)

	sellerToken := a.token(sellerID, "Ada", "seller")
	userToken := a.token(userID, "Bob", "user")

	_, env = a.do(http.MethodPost, "/api/v1/items", sellerToken, map[string]interface{}{"name": "clock", "base_price": "100"})
	itemID := a.id(env)

	status, env := a.do(http.MethodPut, "/api/v1/items/"+itemID, a.token(otherID, "Eve", "seller"), map[string]interface{}{"name": "mine"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "NOT_OWNER", env.Code)

	status, env = a.do(http.MethodPut, "/api/v1/items/"+itemID, sellerToken, map[string]interface{}{"name": "wall clock", "base_price": "120"})
	require.Equal(t, http.StatusOK, status)
	var item struct {
		Name         string  `json:"name"`
		BasePrice    float64 `json:"base_price"`
		CurrentPrice float64 `json:"current_price"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &item))
	assert.Equal(t, "wall clock", item.Name)
	assert.Equal(t, 120.0, item.BasePrice)
	assert.Equal(t, 120.0, item.CurrentPrice)

	status, env = a.do(http.MethodPut, "/api/v1/items/"+itemID, sellerToken, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_PAYLOAD", env.Code)

	status, _ = a.do(http.MethodPost, "/api/v1/items/"+itemID+"/bids", userToken, map[string]interface{}{"price": 150})
	require.Equal(t, http.StatusOK, status)

	status, env = a.do(http.MethodPut, "/api/v1/items/"+itemID, sellerToken, map[string]interface{}{"base_price": "10"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "BIDS_PLACED", env.Code)

	status, env = a.do(http.MethodPut, "/api/v1/sellers/"+sellerID, sellerToken, map[string]string{"name": "Ada L", "phone": "555-0100"})
	require.Equal(t, http.StatusOK, status)
	var seller struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &seller))
	assert.Equal(t, "Ada L", seller.Name)
	assert.Equal(t, "555-0100", seller.Phone)

	status, env = a.do(http.MethodPut, "/api/v1/sellers/"+sellerID, sellerToken, map[string]string{"email": "eve@example.com"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "DUPLICATE", env.Code)

	status, env = a.do(http.MethodPut, "/api/v1/sellers/"+otherID, sellerToken, map[string]string{"name": "Mallory"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", env.Code)

	status, env = a.do(http.MethodPut, "/api/v1/users/"+userID, userToken, map[string]string{"email": "Bob@Example.com"})
	require.Equal(t, http.StatusOK, status)
	var user struct {
		Email string `json:"email"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.Equal(t, "bob@example.com", user.Email)

	status, env = a.do(http.MethodPut, "/api/v1/users/"+userID, userToken, map[string]string{"phone": "555-0100"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_PAYLOAD", env.Code)
}

func TestHealth(t *testing.T) {
	a := newAPI(t)
	status, env := a.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, status)

	var payload struct {
		Services monitor.Status `json:"services"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, monitor.StateUp, payload.Services.Store)
	assert.Equal(t, monitor.StateDisabled, payload.Services.Redis)
}
