package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-inventory-ledger/internal/booking"
	"github.com/iliyamo/hotel-inventory-ledger/internal/logger"
	"github.com/iliyamo/hotel-inventory-ledger/internal/model"
	"github.com/iliyamo/hotel-inventory-ledger/internal/repository"
)

// BookingHandler serves the booking lifecycle endpoints.
type BookingHandler struct {
	svc     *booking.Service
	timeout time.Duration
	log     *zap.Logger
}

func NewBookingHandler(svc *booking.Service, timeout time.Duration, log *zap.Logger) *BookingHandler {
	if svc == nil {
		panic("nil booking service passed to NewBookingHandler")
	}
	return &BookingHandler{svc: svc, timeout: timeout, log: logger.OrNop(log)}
}

type guestReq struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	Country   string `json:"country"`
	IDType    string `json:"id_type"`
	IDNumber  string `json:"id_number"`
}

type roomReq struct {
	RoomType      string `json:"room_type" validate:"required"`
	NumberOfRooms int    `json:"number_of_rooms" validate:"required,min=1"`
}

type createBookingReq struct {
	HotelID         string    `json:"hotel_id" validate:"required"`
	Guest           guestReq  `json:"guest" validate:"required"`
	Rooms           []roomReq `json:"room_type_bookings" validate:"required,min=1,dive"`
	CheckInDate     string    `json:"check_in_date" validate:"required,datetime=2006-01-02"`
	CheckOutDate    string    `json:"check_out_date" validate:"required,datetime=2006-01-02"`
	NumberOfGuests  int       `json:"number_of_guests" validate:"min=0"`
	BookingSource   string    `json:"booking_source"`
	RatePlan        string    `json:"rate_plan"`
	SpecialRequests string    `json:"special_requests"`
}

// Create books rooms and returns the CONFIRMED booking with 201.
func (h *BookingHandler) Create(c echo.Context) error {
	var req createBookingReq
	if err := bindValid(c, &req); err != nil {
		return fail(c, h.log, err)
	}
	in := booking.CreateInput{
		HotelID:         req.HotelID,
		Guest:           model.Guest(req.Guest),
		NumberOfGuests:  req.NumberOfGuests,
		Source:          model.BookingSource(strings.ToLower(req.BookingSource)),
		RatePlan:        req.RatePlan,
		SpecialRequests: req.SpecialRequests,
		Actor:           actor(c),
	}
	var err error
	if in.CheckIn, err = parseDate(req.CheckInDate); err != nil {
		return fail(c, h.log, err)
	}
	if in.CheckOut, err = parseDate(req.CheckOutDate); err != nil {
		return fail(c, h.log, err)
	}
	for _, r := range req.Rooms {
		in.Rooms = append(in.Rooms, booking.RoomRequest{RoomType: r.RoomType, NumberOfRooms: r.NumberOfRooms})
	}

	ctx, cancel := withTimeout(c, h.timeout)
	defer cancel()
	b, err := h.svc.CreateBooking(ctx, in)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// Get accepts a booking ID or booking number.
func (h *BookingHandler) Get(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.timeout)
	defer cancel()
	b, err := h.svc.GetBooking(ctx, c.Param("id"))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) GetByNumber(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.timeout)
	defer cancel()
	b, err := h.svc.GetBookingByNumber(ctx, c.Param("number"))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, b)
}

// List filters bookings by hotel_id, room_id, room_type, status (comma
// separated), payment_status, check_in_from, check_in_to, limit and offset.
func (h *BookingHandler) List(c echo.Context) error {
	f := repository.BookingFilter{
		HotelID:       c.QueryParam("hotel_id"),
		RoomID:        c.QueryParam("room_id"),
		RoomType:      c.QueryParam("room_type"),
		GuestEmail:    c.QueryParam("email"),
		PaymentStatus: model.PaymentStatus(strings.ToUpper(c.QueryParam("payment_status"))),
	}
	for _, s := range strings.Split(c.QueryParam("status"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			f.Statuses = append(f.Statuses, model.BookingStatus(strings.ToUpper(s)))
		}
	}
	var err error
	if f.CheckInFrom, err = parseDate(c.QueryParam("check_in_from")); err != nil {
		return fail(c, h.log, err)
	}
	if f.CheckInTo, err = parseDate(c.QueryParam("check_in_to")); err != nil {
		return fail(c, h.log, err)
	}
	if f.Limit, err = queryInt(c, "limit", booking.DefaultListLimit); err != nil {
		return fail(c, h.log, err)
	}
	if f.Offset, err = queryInt(c, "offset", 0); err != nil {
		return fail(c, h.log, err)
	}

	ctx, cancel := withTimeout(c, h.timeout)
	defer cancel()
	items, err := h.svc.ListBookings(ctx, f)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items), "limit": f.Limit, "offset": f.Offset})
}

func (h *BookingHandler) ByGuest(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.timeout)
	defer cancel()
	items, err := h.svc.BookingsByGuest(ctx, c.QueryParam("email"))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

func (h *BookingHandler) Active(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.timeout)
	defer cancel()
	items, err := h.svc.ActiveBookings(ctx, c.QueryParam("hotel_id"))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

func (h *BookingHandler) Upcoming(c echo.Context) error {
	days, err := queryInt(c, "days", 7)
	if err != nil {
		return fail(c, h.log, err)
	}
	ctx, cancel := withTimeout(c, h.timeout)
	defer cancel()
	items, err := h.svc.UpcomingBookings(ctx, c.QueryParam("hotel_id"), days)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

type assignReq struct {
	Assignments []struct {
		RoomType string   `json:"room_type" validate:"required"`
		RoomIDs  []string `json:"room_ids" validate:"required,min=1,dive,required"`
	} `json:"assignments" validate:"required,min=1,dive"`
}

// Assign checks the guest in to the given rooms.
func (h *BookingHandler) Assign(c echo.Context) error {
	var req assignReq
	if err := bindValid(c, &req); err != nil {
		return fail(c, h.log, err)
	}
	assignments := make([]booking.Assignment, 0, len(req.Assignments))
	for _, a := range req.Assignments {
		assignments = append(assignments, booking.Assignment{RoomType: a.RoomType, RoomIDs: a.RoomIDs})
	}
	ctx, cancel := withTimeout(c, h.timeout)
	defer cancel()
	b, err := h.svc.AssignRooms(ctx, c.Param("id"), assignments, actor(c))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) Cancel(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.timeout)
	defer cancel()
	ok, err := h.svc.CancelBooking(ctx, c.Param("id"), actor(c))
	if err != nil {
		return fail(c, h.log, err)
	}
	return h.afterTransition(c, ok)
}

func (h *BookingHandler) Checkout(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.timeout)
	defer cancel()
	ok, err := h.svc.CheckoutBooking(ctx, c.Param("id"), actor(c))
	if err != nil {
		return fail(c, h.log, err)
	}
	return h.afterTransition(c, ok)
}

// afterTransition returns the booking as stored after a status change.
func (h *BookingHandler) afterTransition(c echo.Context, ok bool) error {
	ctx, cancel := withTimeout(c, h.timeout)
	defer cancel()
	b, err := h.svc.GetBooking(ctx, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusOK, echo.Map{"success": ok})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": ok, "booking": b})
}

type paymentReq struct {
	Method          string  `json:"payment_method" validate:"required,oneof=cash card bank_transfer online"`
	Amount          float64 `json:"amount" validate:"required,gt=0"`
	TransactionID   string  `json:"transaction_id"`
	TransactionDate string  `json:"transaction_date" validate:"omitempty,datetime=2006-01-02"`
	Notes           string  `json:"notes"`
}

func (h *BookingHandler) AddPayment(c echo.Context) error {
	var req paymentReq
	if err := bindValid(c, &req); err != nil {
		return fail(c, h.log, err)
	}
	when, err := parseDate(req.TransactionDate)
	if err != nil {
		return fail(c, h.log, err)
	}
	ctx, cancel := withTimeout(c, h.timeout)
	defer cancel()
	b, err := h.svc.AddPayment(ctx, c.Param("id"), booking.PaymentInput{
		Method:          req.Method,
		Amount:          req.Amount,
		TransactionID:   req.TransactionID,
		TransactionDate: when,
		Notes:           req.Notes,
	}, actor(c))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, b)
}

type chargeReq struct {
	Description string  `json:"description" validate:"required"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	ChargeType  string  `json:"charge_type" validate:"required,oneof=minibar room_service laundry spa restaurant other"`
	ChargeDate  string  `json:"charge_date" validate:"omitempty,datetime=2006-01-02"`
	Notes       string  `json:"notes"`
}

func (h *BookingHandler) AddCharge(c echo.Context) error {
	var req chargeReq
	if err := bindValid(c, &req); err != nil {
		return fail(c, h.log, err)
	}
	when, err := parseDate(req.ChargeDate)
	if err != nil {
		return fail(c, h.log, err)
	}
	ctx, cancel := withTimeout(c, h.timeout)
	defer cancel()
	b, err := h.svc.AddRoomCharge(ctx, c.Param("id"), booking.ChargeInput{
		Description: req.Description,
		Amount:      req.Amount,
		ChargeType:  req.ChargeType,
		ChargeDate:  when,
		Notes:       req.Notes,
	}, actor(c))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, b)
}
