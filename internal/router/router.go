// Package router registers the HTTP routes on an echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-inventory-ledger/internal/handler"
	"github.com/iliyamo/hotel-inventory-ledger/internal/middleware"
	"github.com/iliyamo/hotel-inventory-ledger/internal/model"
)

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers register/login under /v1/auth and the
// authenticated /v1/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", limiter)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)

	auth := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleStaff),
	)
	auth.GET("/me", a.Me)
}
