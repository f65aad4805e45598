// Package router maps HTTP routes to handlers. Registration is split per
// area so each wiring site lists exactly the handlers it needs.
package router

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/marketplace-api/internal/handler"
	"github.com/iliyamo/marketplace-api/internal/middleware"
)

// RegisterRoutes registers the operational endpoints: health, Prometheus
// metrics and the static file tree backing uploaded images.
func RegisterRoutes(e *echo.Echo, db *sql.DB, uploadDir string) {
	e.GET("/healthz", handler.Health(db))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.Static("/storage", uploadDir)
}

// RegisterAuth registers the session lifecycle. Login and the token
// exchange carry their own token handling; logout runs behind the auth
// middleware so the claims to revoke are already validated.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, auth echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login)
	g.GET("/checktoken", a.CheckToken)
	g.POST("/logout", a.Logout, auth)
}

// RegisterUsers registers the account endpoints. Registration is the only
// unauthenticated write in the API; everything else runs behind auth, and
// the moderation endpoints additionally require a superuser.
func RegisterUsers(e *echo.Echo, u *handler.UserHandler, auth echo.MiddlewareFunc) {
	e.POST("/v1/users", u.Store)

	g := e.Group("/v1", auth)
	g.GET("/users", u.Index)
	g.PUT("/users", u.Update) // always the caller's own profile
	g.POST("/users/upload-photo", u.UploadPhoto)
	g.GET("/users/:id", u.Show)
	g.DELETE("/users/:id", u.Destroy)

	super := e.Group("/v1", auth, middleware.RequireSuper())
	super.POST("/users/:id/ban", u.Ban)
	super.POST("/users/:id/change-role", u.ChangeRole)
	super.GET("/admin/users", u.IndexAdmin)
}

// RegisterChat registers the chat registry and message ledger. Every
// route requires a session; per-chat access is enforced inside the
// handlers so a missing chat and a foreign chat are indistinguishable.
func RegisterChat(e *echo.Echo, ch *handler.ChatHandler, m *handler.MessageHandler, auth echo.MiddlewareFunc) {
	g := e.Group("/v1", auth)

	g.GET("/chats", ch.Index)
	g.GET("/chats/:id", ch.Show)
	g.POST("/chats", ch.Store)
	g.PUT("/chats/:id", ch.Update)
	g.DELETE("/chats/:id", ch.Destroy)

	g.GET("/messages", m.Index)
	g.GET("/messages/:id", m.Show)
	g.POST("/messages", m.Store)
	g.PUT("/messages/:id", m.Update)
	g.DELETE("/messages/:id", m.Destroy)
}

// RegisterCatalog registers products, categories and the raw link table.
// Browsing is public (the product listing optionally behind the response
// cache); every mutation requires a session.
func RegisterCatalog(e *echo.Echo, p *handler.ProductHandler, cat *handler.CategoryHandler, links *handler.ProductCategoryHandler, auth echo.MiddlewareFunc, cache echo.MiddlewareFunc) {
	if cache == nil {
		cache = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	e.GET("/v1/products", p.Index, cache)
	e.GET("/v1/products/:id", p.Show)
	e.GET("/v1/categories", cat.Index)
	e.GET("/v1/categories/:id", cat.Show)

	g := e.Group("/v1", auth)
	g.POST("/products", p.Store)
	g.PUT("/products/:id", p.Update)
	g.DELETE("/products/:id", p.Destroy)
	g.GET("/user-products", p.UserProducts)

	g.POST("/categories", cat.Store)
	g.PUT("/categories/:id", cat.Update)
	g.DELETE("/categories/:id", cat.Destroy)
	g.GET("/product-categories", links.Index)
	g.GET("/product-categories/:id", links.Show)
	g.POST("/product-categories", links.Store)
	g.PUT("/product-categories/:id", links.Update)
	g.DELETE("/product-categories/:id", links.Destroy)
}
