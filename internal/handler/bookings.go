package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-storefront/internal/service"
)

// BookingHandler serves the customer booking endpoints.  All routes sit
// behind JWTAuth; the caller identity comes from the token.
type BookingHandler struct {
	Bookings *service.BookingService
}

func NewBookingHandler(b *service.BookingService) *BookingHandler {
	return &BookingHandler{Bookings: b}
}

type submitReq struct {
	ShowID        uint64   `json:"show_id" validate:"required,gt=0"`
	SelectedSeats []string `json:"selected_seats" validate:"required,min=1,dive,required"`
	PaymentMethod string   `json:"payment_method" validate:"max=32"`
	// TotalAmount is accepted for compatibility and ignored; the total is
	// always computed from the seat tiers.
	TotalAmount *int64 `json:"total_amount,omitempty"`
}

// Submit handles POST /v1/bookings.  On success it returns 201 with the
// booking and a confirmation message.  Seat conflicts return 409 with the
// contested seats; nothing from the request is reserved in that case.
func (h *BookingHandler) Submit(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return respondError(c, err)
	}
	var req submitReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Bookings.Submit(ctx, caller, service.BookingRequest{
		ShowID:        req.ShowID,
		Seats:         req.SelectedSeats,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"booking": b,
		"message": fmt.Sprintf("Booking confirmed: %s (total %d)", strings.Join(b.Seats, ", "), b.TotalAmount),
	})
}

// ListMine handles GET /v1/my-bookings.
func (h *BookingHandler) ListMine(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return respondError(c, err)
	}
	list, err := h.Bookings.ListMine(c.Request().Context(), caller)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": list})
}

// Get handles GET /v1/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	d, err := h.Bookings.Get(c.Request().Context(), caller, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// Cancel handles DELETE /v1/bookings/:id (also POST /v1/bookings/:id/cancel).
// Cancelling an already cancelled booking is a 200 with
// already_cancelled=true.
func (h *BookingHandler) Cancel(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Bookings.Cancel(ctx, caller, id)
	if err != nil {
		return respondError(c, err)
	}
	msg := "Booking cancelled"
	if res.AlreadyCancelled {
		msg = "Booking was already cancelled"
	}
	return c.JSON(http.StatusOK, echo.Map{
		"booking":           res.Booking,
		"already_cancelled": res.AlreadyCancelled,
		"message":           msg,
	})
}
