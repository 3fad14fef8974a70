package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-inventory-ledger/internal/booking"
	"github.com/iliyamo/hotel-inventory-ledger/internal/catalog"
	"github.com/iliyamo/hotel-inventory-ledger/internal/inventory"
	"github.com/iliyamo/hotel-inventory-ledger/internal/logger"
	"github.com/iliyamo/hotel-inventory-ledger/internal/model"
)

// InventoryHandler serves ledger reads, the room catalog and the admin
// endpoints that create capacity.
type InventoryHandler struct {
	bookings *booking.Service
	catalog  *catalog.Catalog
	boot     *inventory.Bootstrapper
	timeout  time.Duration
	log      *zap.Logger
}

func NewInventoryHandler(bookings *booking.Service, cat *catalog.Catalog, boot *inventory.Bootstrapper, timeout time.Duration, log *zap.Logger) *InventoryHandler {
	if bookings == nil || cat == nil || boot == nil {
		panic("nil dependency passed to NewInventoryHandler")
	}
	return &InventoryHandler{bookings: bookings, catalog: cat, boot: boot, timeout: timeout, log: logger.OrNop(log)}
}

// Inventory lists per-night rows filtered by hotel_id, room_type, from and
// to (YYYY-MM-DD, to exclusive).
func (h *InventoryHandler) Inventory(c echo.Context) error {
	q := booking.InventoryQuery{HotelID: c.QueryParam("hotel_id"), RoomType: c.QueryParam("room_type")}
	var err error
	if q.From, err = parseDate(c.QueryParam("from")); err != nil {
		return fail(c, h.log, err)
	}
	if q.To, err = parseDate(c.QueryParam("to")); err != nil {
		return fail(c, h.log, err)
	}
	ctx, cancel := withTimeout(c, h.timeout)
	defer cancel()
	rows, err := h.bookings.GetRoomInventory(ctx, q)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": rows, "count": len(rows)})
}

func (h *InventoryHandler) GetRoom(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.timeout)
	defer cancel()
	room, err := h.catalog.GetRoom(ctx, c.Param("id"))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, room)
}

func (h *InventoryHandler) ListRooms(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.timeout)
	defer cancel()
	rooms, err := h.catalog.ListRooms(ctx, c.Param("hotel_id"), c.QueryParam("room_type"),
		model.RoomStatus(strings.ToLower(c.QueryParam("status"))))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": rooms, "count": len(rooms)})
}

func (h *InventoryHandler) GetRoomType(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.timeout)
	defer cancel()
	rt, err := h.catalog.GetRoomType(ctx, c.Param("hotel_id"), c.Param("room_type"))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, rt)
}

type hotelReq struct {
	Name       string `json:"name" validate:"required"`
	FloorCount int    `json:"floor_count" validate:"required,min=1"`
}

func (h *InventoryHandler) CreateHotel(c echo.Context) error {
	var req hotelReq
	if err := bindValid(c, &req); err != nil {
		return fail(c, h.log, err)
	}
	ctx, cancel := withTimeout(c, h.timeout)
	defer cancel()
	hotel, err := h.boot.CreateHotel(ctx, inventory.HotelInput{Name: req.Name, FloorCount: req.FloorCount})
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, hotel)
}

// UpsertRoomType takes the room type attributes as the body; the hotel
// and type come from the path.
func (h *InventoryHandler) UpsertRoomType(c echo.Context) error {
	var attrs model.RoomAttributes
	if err := c.Bind(&attrs); err != nil {
		return fail(c, h.log, echo.NewHTTPError(http.StatusBadRequest, "invalid body"))
	}
	ctx, cancel := withTimeout(c, h.timeout)
	defer cancel()
	rt, err := h.boot.UpsertRoomType(ctx, inventory.RoomTypeInput{
		HotelID:        c.Param("hotel_id"),
		RoomType:       c.Param("room_type"),
		RoomAttributes: attrs,
	})
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, rt)
}

type roomCreateReq struct {
	HotelID          string   `json:"hotel_id" validate:"required"`
	RoomNumber       string   `json:"room_number" validate:"required"`
	Floor            int      `json:"floor" validate:"required,min=1"`
	RoomType         string   `json:"room_type" validate:"required"`
	Images           []string `json:"images"`
	MaintenanceNotes string   `json:"maintenance_notes"`
	model.RoomAttributes
}

// CreateRoom adds a room and seeds a year of capacity for its type.
func (h *InventoryHandler) CreateRoom(c echo.Context) error {
	var req roomCreateReq
	if err := bindValid(c, &req); err != nil {
		return fail(c, h.log, err)
	}
	ctx, cancel := withTimeout(c, 4*h.timeout)
	defer cancel()
	room, err := h.boot.CreateRoom(ctx, inventory.RoomInput{
		HotelID:          req.HotelID,
		RoomNumber:       req.RoomNumber,
		Floor:            req.Floor,
		RoomType:         req.RoomType,
		Images:           req.Images,
		MaintenanceNotes: req.MaintenanceNotes,
		RoomAttributes:   req.RoomAttributes,
	})
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, room)
}

func (h *InventoryHandler) DeleteRoom(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.timeout)
	defer cancel()
	if err := h.boot.DeleteRoom(ctx, c.Param("id")); err != nil {
		return fail(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
