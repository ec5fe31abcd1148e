package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNoAvailableProviders = errors.New("no available providers")
	ErrInvalidCapture       = errors.New("invalid capture request")
)

type CaptureStatus string

const (
	CaptureCaptured CaptureStatus = "CAPTURED"
	CaptureDeclined CaptureStatus = "DECLINED"
	CapturePending  CaptureStatus = "PENDING"
)

// Gateway is the payment processor as seen by settlement. It is a black box:
// it takes an amount and answers with a provider transaction id and a status.
type Gateway interface {
	Capture(ctx context.Context, req *CaptureRequest) (*CaptureResponse, error)
	Status(ctx context.Context, transactionID string) (*CaptureResponse, error)
	Name() string
}

type CaptureRequest struct {
	Reference string          `json:"reference"`
	PaymentID int64           `json:"payment_id"`
	BookingID int64           `json:"booking_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
}

func (r *CaptureRequest) Validate() error {
	if r.Reference == "" {
		return errors.Join(ErrInvalidCapture, errors.New("reference is required"))
	}
	if !r.Amount.IsPositive() {
		return errors.Join(ErrInvalidCapture, errors.New("amount must be positive"))
	}
	if r.Currency == "" {
		return errors.Join(ErrInvalidCapture, errors.New("currency is required"))
	}
	return nil
}

type CaptureResponse struct {
	TransactionID string        `json:"transaction_id"`
	Reference     string        `json:"reference"`
	Status        CaptureStatus `json:"status"`
	ErrorCode     string        `json:"error_code,omitempty"`
	ErrorMsg      string        `json:"error_message,omitempty"`
	Provider      string        `json:"provider"`
	ProcessedAt   time.Time     `json:"processed_at"`
}

// Final reports whether the capture reached a terminal state.
func (r *CaptureResponse) Final() bool {
	return r.Status == CaptureCaptured || r.Status == CaptureDeclined
}
