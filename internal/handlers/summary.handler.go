package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/nimasrn/ride-settlement/internal/model"
	xhttp "github.com/nimasrn/ride-settlement/pkg/http"
)

type SummaryService interface {
	Get(ctx context.Context, userID int64) (*model.UserTransactionSummary, error)
}

type PaymentService interface {
	Get(ctx context.Context, id int64) (*model.Payment, error)
}

type SummaryHandler struct {
	summaries SummaryService
	payments  PaymentService
}

func RegisterSummaryRoutes(g *router.Group, h *SummaryHandler) {
	g.GET("/summaries/{userId}", h.GetSummary)
	g.GET("/payments/{id}", h.GetPayment)
}

func NewSummaryHandler(summaries SummaryService, payments PaymentService) *SummaryHandler {
	return &SummaryHandler{summaries: summaries, payments: payments}
}

func (h *SummaryHandler) GetSummary(ctx *xhttp.RequestCtx) {
	userID, err := pathInt64(ctx, "userId")
	if err != nil {
		xhttp.WriteError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}
	summary, err := h.summaries.Get(ctx, userID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusOK, summary)
}

func (h *SummaryHandler) GetPayment(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		xhttp.WriteError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}
	payment, err := h.payments.Get(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusOK, payment)
}
