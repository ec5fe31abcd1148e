package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/nimasrn/ride-settlement/internal/model"
	"github.com/nimasrn/ride-settlement/internal/services"
	xhttp "github.com/nimasrn/ride-settlement/pkg/http"
	"github.com/shopspring/decimal"
)

const defaultStatementLimit = 50

type WalletService interface {
	OpenWallet(ctx context.Context, userID int64) (*model.Wallet, error)
	GetWallet(ctx context.Context, userID int64) (*model.Wallet, error)
	TopUp(ctx context.Context, userID int64, amount decimal.Decimal, paymentMethod string) (*model.WalletTransaction, error)
	Statement(ctx context.Context, userID int64, limit, offset int) ([]*model.WalletTransaction, int64, error)
	VerifyLedger(ctx context.Context, userID int64) (*services.LedgerReport, error)
}

type WalletHandler struct {
	svc WalletService
}

func RegisterWalletRoutes(g *router.Group, h *WalletHandler) {
	g.POST("/wallets", h.OpenWallet)
	g.GET("/wallets/{userId}", h.GetWallet)
	g.POST("/wallets/{userId}/topup", h.TopUp)
	g.GET("/wallets/{userId}/transactions", h.Statement)
	g.GET("/wallets/{userId}/verify", h.VerifyLedger)
}

func NewWalletHandler(svc WalletService) *WalletHandler {
	return &WalletHandler{svc: svc}
}

type openWalletRequest struct {
	UserID int64 `json:"userId"`
}

type topUpRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"paymentMethod"`
}

type statementResponse struct {
	Items []*model.WalletTransaction `json:"items"`
	Total int64                      `json:"total"`
}

func (h *WalletHandler) OpenWallet(ctx *xhttp.RequestCtx) {
	var req openWalletRequest
	if err := xhttp.ReadJSON(ctx, &req); err != nil {
		xhttp.WriteError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	wallet, err := h.svc.OpenWallet(ctx, req.UserID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusCreated, wallet)
}

func (h *WalletHandler) GetWallet(ctx *xhttp.RequestCtx) {
	userID, err := pathInt64(ctx, "userId")
	if err != nil {
		xhttp.WriteError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}
	wallet, err := h.svc.GetWallet(ctx, userID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusOK, wallet)
}

func (h *WalletHandler) TopUp(ctx *xhttp.RequestCtx) {
	userID, err := pathInt64(ctx, "userId")
	if err != nil {
		xhttp.WriteError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}
	var req topUpRequest
	if err := xhttp.ReadJSON(ctx, &req); err != nil {
		xhttp.WriteError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	txn, err := h.svc.TopUp(ctx, userID, req.Amount, req.PaymentMethod)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusCreated, txn)
}

func (h *WalletHandler) Statement(ctx *xhttp.RequestCtx) {
	userID, err := pathInt64(ctx, "userId")
	if err != nil {
		xhttp.WriteError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}
	items, total, err := h.svc.Statement(ctx, userID, queryInt(ctx, "limit", defaultStatementLimit), queryInt(ctx, "offset", 0))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusOK, statementResponse{Items: items, Total: total})
}

// VerifyLedger answers 200 with the report either way; a mismatch is a
// finding about the data, not a failed request.
func (h *WalletHandler) VerifyLedger(ctx *xhttp.RequestCtx) {
	userID, err := pathInt64(ctx, "userId")
	if err != nil {
		xhttp.WriteError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}
	report, err := h.svc.VerifyLedger(ctx, userID)
	if err != nil && report == nil {
		writeServiceError(ctx, err)
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusOK, report)
}
