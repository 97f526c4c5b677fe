package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/auction/api/handler"
	"github.com/fastygo/auction/domain"
	"github.com/fastygo/auction/internal/middleware"
)

type Handlers struct {
	Account *apiHandler.AccountHandler
	Catalog *apiHandler.CatalogHandler
	Item    *apiHandler.ItemHandler
	Payment *apiHandler.PaymentHandler
	Admin   *apiHandler.AdminHandler
	Health  *apiHandler.HealthHandler
}

func New(handlers Handlers, authMiddleware middleware.Middleware) *router.Router {
	r := router.New()

	authed := func(h fasthttp.RequestHandler, roles ...domain.Role) fasthttp.RequestHandler {
		if len(roles) == 0 {
			return middleware.Chain(h, authMiddleware)
		}
		return middleware.Chain(h, authMiddleware, middleware.RequireRole(roles...))
	}

	r.GET("/health", handlers.Health.Check)

	// Registration
	r.POST("/api/v1/sellers", handlers.Account.RegisterSeller)
	r.POST("/api/v1/users", handlers.Account.RegisterUser)

	// Aggregates
	r.GET("/api/v1/sellers/{id}/home", authed(handlers.Catalog.SellerHome, domain.RoleSeller, domain.RoleAdmin))
	r.PUT("/api/v1/sellers/{id}", authed(handlers.Account.UpdateSeller, domain.RoleSeller, domain.RoleAdmin))
	r.PUT("/api/v1/sellers/{id}/subscription", authed(handlers.Account.UpdateSubscription, domain.RoleSeller, domain.RoleAdmin))
	r.PUT("/api/v1/users/{id}", authed(handlers.Account.UpdateUser, domain.RoleUser, domain.RoleAdmin))
	r.GET("/api/v1/users/{id}/home", authed(handlers.Catalog.UserHome, domain.RoleUser, domain.RoleAdmin))

	// Items
	r.GET("/api/v1/items", authed(handlers.Catalog.OpenListing))
	r.POST("/api/v1/items", authed(handlers.Item.CreateItem, domain.RoleSeller))
	r.GET("/api/v1/items/{id}", authed(handlers.Item.ViewItem))
	r.PUT("/api/v1/items/{id}", authed(handlers.Item.UpdateItem, domain.RoleSeller))
	r.POST("/api/v1/items/{id}/bids", authed(handlers.Item.PlaceBid, domain.RoleUser))
	r.POST("/api/v1/items/{id}/sell", authed(handlers.Item.Sell, domain.RoleSeller))
	r.POST("/api/v1/items/{id}/deactivate", authed(handlers.Item.Deactivate, domain.RoleSeller, domain.RoleAdmin))
	r.POST("/api/v1/items/{id}/like", authed(handlers.Account.LikeItem, domain.RoleSeller, domain.RoleUser))

	// Settlement
	r.POST("/api/v1/payments", authed(handlers.Payment.Create, domain.RoleUser))
	r.POST("/api/v1/payments/{id}/confirm", authed(handlers.Payment.Confirm))
	r.POST("/api/v1/payments/{id}/fail", authed(handlers.Payment.Fail))
	r.GET("/api/v1/payments/status/{itemId}", authed(handlers.Payment.Status))

	// Admin
	r.DELETE("/api/v1/admin/{kind}/{id}", authed(handlers.Admin.Delete, domain.RoleAdmin))
	r.POST("/api/v1/admin/cache/flush", authed(handlers.Admin.FlushCache, domain.RoleAdmin))
	r.POST("/api/v1/admin/reconcile", authed(handlers.Admin.Reconcile, domain.RoleAdmin))

	return r
}
