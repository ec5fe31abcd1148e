package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/nimasrn/ride-settlement/internal/model"
	xhttp "github.com/nimasrn/ride-settlement/pkg/http"
	"github.com/shopspring/decimal"
)

type BookingService interface {
	AcceptRide(ctx context.Context, req model.AcceptRideRequest) (*model.AcceptRideResult, error)
	CancelBooking(ctx context.Context, bookingID int64) (*model.CancelBookingResult, error)
	GetBooking(ctx context.Context, id int64) (*model.RideBooking, error)
}

type BookingHandler struct {
	svc BookingService
}

// RegisterBookingRoutes mounts the booking endpoints. Accepting a ride goes
// through idem so a retried request replays the first answer.
func RegisterBookingRoutes(g *router.Group, h *BookingHandler, idem xhttp.MiddlewareFunc) {
	accept := xhttp.RequestHandler(h.AcceptRide)
	if idem != nil {
		accept = idem(accept)
	}
	g.POST("/bookings", accept)
	g.GET("/bookings/{id}", h.GetBooking)
	g.POST("/bookings/{id}/cancel", h.CancelBooking)
}

func NewBookingHandler(svc BookingService) *BookingHandler {
	return &BookingHandler{svc: svc}
}

type acceptRideRequest struct {
	RideID         int64           `json:"rideId"`
	UserID         int64           `json:"userId"`
	NumPersons     int             `json:"numPersons"`
	PaymentMode    string          `json:"paymentMode"`
	PickupLocation string          `json:"pickupLocation"`
	DropLocation   string          `json:"dropLocation"`
	DistanceKm     decimal.Decimal `json:"distanceKm"`
}

func (h *BookingHandler) AcceptRide(ctx *xhttp.RequestCtx) {
	var req acceptRideRequest
	if err := xhttp.ReadJSON(ctx, &req); err != nil {
		xhttp.WriteError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	res, err := h.svc.AcceptRide(ctx, model.AcceptRideRequest{
		RideID:         req.RideID,
		UserID:         req.UserID,
		NumPersons:     req.NumPersons,
		PaymentMode:    req.PaymentMode,
		PickupLocation: req.PickupLocation,
		DropLocation:   req.DropLocation,
		DistanceKm:     req.DistanceKm,
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusOK, res)
}

func (h *BookingHandler) GetBooking(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		xhttp.WriteError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}
	booking, err := h.svc.GetBooking(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusOK, booking)
}

func (h *BookingHandler) CancelBooking(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		xhttp.WriteError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}
	res, err := h.svc.CancelBooking(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusOK, res)
}
