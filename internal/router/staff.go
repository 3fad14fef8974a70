package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-inventory-ledger/internal/handler"
	"github.com/iliyamo/hotel-inventory-ledger/internal/middleware"
	"github.com/iliyamo/hotel-inventory-ledger/internal/model"
)

// Cache groups the response cache middleware: reads go through Read, every
// write route runs Invalidate.
type Cache struct {
	Read       echo.MiddlewareFunc
	Invalidate echo.MiddlewareFunc
}

// RegisterStaff registers the front desk endpoints under /v1.  Every route
// requires a valid JWT with the ADMIN or STAFF role.
func RegisterStaff(e *echo.Echo, b *handler.BookingHandler, inv *handler.InventoryHandler, jwtSecret string, limiter echo.MiddlewareFunc, cache Cache) {
	g := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleStaff),
		limiter,
	)

	// ---- Bookings ----
	g.POST("/bookings", b.Create, cache.Invalidate)
	g.GET("/bookings", b.List)
	g.GET("/bookings/active", b.Active)
	g.GET("/bookings/upcoming", b.Upcoming)
	g.GET("/bookings/guest", b.ByGuest)
	g.GET("/bookings/number/:number", b.GetByNumber)
	g.GET("/bookings/:id", b.Get)
	g.POST("/bookings/:id/assign", b.Assign, cache.Invalidate)
	g.POST("/bookings/:id/cancel", b.Cancel, cache.Invalidate)
	g.POST("/bookings/:id/checkout", b.Checkout, cache.Invalidate)
	g.POST("/bookings/:id/payments", b.AddPayment)
	g.POST("/bookings/:id/charges", b.AddCharge)

	// ---- Inventory and rooms ----
	g.GET("/inventory", inv.Inventory, cache.Read)
	g.GET("/rooms/:id", inv.GetRoom, cache.Read)
	g.GET("/hotels/:hotel_id/rooms", inv.ListRooms, cache.Read)
	g.GET("/hotels/:hotel_id/room-types/:room_type", inv.GetRoomType, cache.Read)
}
