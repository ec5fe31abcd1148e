package handlers

import (
	"context"
	"time"

	"github.com/fasthttp/router"
	"github.com/nimasrn/ride-settlement/internal/model"
	xhttp "github.com/nimasrn/ride-settlement/pkg/http"
	"github.com/shopspring/decimal"
)

type RideService interface {
	CreateRide(ctx context.Context, p model.RideCreateRequest) (*model.Ride, error)
	GetRide(ctx context.Context, id int64) (*model.Ride, error)
	StartRide(ctx context.Context, id int64) (*model.Ride, error)
	CompleteRide(ctx context.Context, id int64) (*model.Ride, error)
	CancelRide(ctx context.Context, id int64) (*model.Ride, error)
}

type RideHandler struct {
	svc RideService
}

func RegisterRideRoutes(g *router.Group, h *RideHandler) {
	g.POST("/rides", h.CreateRide)
	g.GET("/rides/{id}", h.GetRide)
	g.POST("/rides/{id}/start", h.transition(h.svc.StartRide))
	g.POST("/rides/{id}/complete", h.transition(h.svc.CompleteRide))
	g.POST("/rides/{id}/cancel", h.transition(h.svc.CancelRide))
}

func NewRideHandler(svc RideService) *RideHandler {
	return &RideHandler{svc: svc}
}

type createRideRequest struct {
	DriverID      int64           `json:"driverId"`
	VehicleID     int64           `json:"vehicleId"`
	TotalSeats    int             `json:"totalSeats"`
	PricePerSeat  decimal.Decimal `json:"pricePerSeat"`
	DistanceKm    decimal.Decimal `json:"distanceKm"`
	DepartureTime time.Time       `json:"departureTime"`
}

func (h *RideHandler) CreateRide(ctx *xhttp.RequestCtx) {
	var req createRideRequest
	if err := xhttp.ReadJSON(ctx, &req); err != nil {
		xhttp.WriteError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	ride, err := h.svc.CreateRide(ctx, model.RideCreateRequest{
		DriverID:      req.DriverID,
		VehicleID:     req.VehicleID,
		TotalSeats:    req.TotalSeats,
		PricePerSeat:  req.PricePerSeat,
		DistanceKm:    req.DistanceKm,
		DepartureTime: req.DepartureTime,
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusCreated, ride)
}

func (h *RideHandler) GetRide(ctx *xhttp.RequestCtx) {
	h.transition(h.svc.GetRide)(ctx)
}

// transition adapts a ride operation keyed by the {id} path parameter.
func (h *RideHandler) transition(op func(ctx context.Context, id int64) (*model.Ride, error)) xhttp.RequestHandler {
	return func(ctx *xhttp.RequestCtx) {
		id, err := pathInt64(ctx, "id")
		if err != nil {
			xhttp.WriteError(ctx, xhttp.StatusBadRequest, err.Error())
			return
		}
		ride, err := op(ctx, id)
		if err != nil {
			writeServiceError(ctx, err)
			return
		}
		xhttp.WriteJSON(ctx, xhttp.StatusOK, ride)
	}
}
