package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-inventory-ledger/internal/handler"
	"github.com/iliyamo/hotel-inventory-ledger/internal/middleware"
	"github.com/iliyamo/hotel-inventory-ledger/internal/model"
)

// RegisterAdmin registers the ADMIN-only endpoints that shape hotel
// capacity.  All of them drop cached reads on success.
func RegisterAdmin(e *echo.Echo, inv *handler.InventoryHandler, jwtSecret string, cache Cache) {
	g := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.POST("/hotels", inv.CreateHotel, cache.Invalidate)
	g.PUT("/hotels/:hotel_id/room-types/:room_type", inv.UpsertRoomType, cache.Invalidate)
	g.POST("/rooms", inv.CreateRoom, cache.Invalidate)
	g.DELETE("/rooms/:id", inv.DeleteRoom, cache.Invalidate)
}
