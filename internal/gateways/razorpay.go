package gateway

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/nimasrn/ride-settlement/pkg/logger"
	"github.com/nimasrn/ride-settlement/pkg/prom"
	"github.com/razorpay/razorpay-go"
	"github.com/shopspring/decimal"
)

const razorpayProvider = "razorpay"

// orderAPI is the slice of the razorpay order resource used here.
type orderAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	Fetch(orderID string, queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// Razorpay captures through Razorpay orders. The receipt carries our
// reference so a retried capture can be matched up on the dashboard.
type Razorpay struct {
	orders orderAPI
}

var _ Gateway = (*Razorpay)(nil)

func NewRazorpay(keyID, keySecret string) *Razorpay {
	client := razorpay.NewClient(keyID, keySecret)
	return &Razorpay{orders: client.Order}
}

func (r *Razorpay) Name() string { return razorpayProvider }

func (r *Razorpay) Capture(ctx context.Context, req *CaptureRequest) (*CaptureResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := map[string]interface{}{
		"amount":   toSubunits(req.Amount),
		"currency": req.Currency,
		"receipt":  req.Reference,
		"notes": map[string]interface{}{
			"payment_id": strconv.FormatInt(req.PaymentID, 10),
			"booking_id": strconv.FormatInt(req.BookingID, 10),
		},
	}

	start := time.Now()
	order, err := r.orders.Create(data, nil)
	prom.ObserveGatewayDuration(razorpayProvider, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	resp, err := orderResponse(order)
	if err != nil {
		return nil, err
	}
	resp.Reference = req.Reference
	logger.Info("razorpay order created", "reference", req.Reference, "order_id", resp.TransactionID, "status", string(resp.Status))
	return resp, nil
}

func (r *Razorpay) Status(ctx context.Context, transactionID string) (*CaptureResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	order, err := r.orders.Fetch(transactionID, nil, nil)
	prom.ObserveGatewayDuration(razorpayProvider, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order %s: %w", transactionID, err)
	}
	return orderResponse(order)
}

func orderResponse(order map[string]interface{}) (*CaptureResponse, error) {
	id, _ := order["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("razorpay order response has no id")
	}
	receipt, _ := order["receipt"].(string)
	status, _ := order["status"].(string)

	resp := &CaptureResponse{
		TransactionID: id,
		Reference:     receipt,
		Status:        orderStatus(status),
		Provider:      razorpayProvider,
		ProcessedAt:   time.Now().UTC(),
	}
	if created, ok := order["created_at"].(float64); ok {
		resp.ProcessedAt = time.Unix(int64(created), 0).UTC()
	}
	return resp, nil
}

// orderStatus maps razorpay order states: created and attempted orders
// are still waiting for the customer.
func orderStatus(s string) CaptureStatus {
	switch s {
	case "paid":
		return CaptureCaptured
	case "created", "attempted":
		return CapturePending
	default:
		return CaptureDeclined
	}
}

// toSubunits converts a major-unit amount to paise, rounding half up.
func toSubunits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
