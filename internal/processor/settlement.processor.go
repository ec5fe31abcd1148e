package processor

import (
	"context"
	"errors"
	"strconv"

	gateway "github.com/nimasrn/ride-settlement/internal/gateways"
	"github.com/nimasrn/ride-settlement/internal/model"
	"github.com/nimasrn/ride-settlement/internal/queue"
	"github.com/nimasrn/ride-settlement/internal/services"
	"github.com/nimasrn/ride-settlement/pkg/logger"
	"github.com/nimasrn/ride-settlement/pkg/prom"
)

var ErrCapturePending = errors.New("capture still pending at gateway")

type PaymentSettler interface {
	Settle(ctx context.Context, paymentID int64, status model.PaymentStatus, providerTxnID string) (*model.Payment, error)
}

// SettlementProcessor settles payments collected outside the booking
// transaction. Razor Pay payments are captured through the gateway; cash is
// collected by the driver and left Pending.
type SettlementProcessor struct {
	gateway     gateway.Gateway
	payments    PaymentSettler
	idempotency *IdempotencyService
	currency    string
}

func NewSettlementProcessor(gw gateway.Gateway, payments PaymentSettler, idempotency *IdempotencyService, currency string) *SettlementProcessor {
	return &SettlementProcessor{
		gateway:     gw,
		payments:    payments,
		idempotency: idempotency,
		currency:    currency,
	}
}

func (p *SettlementProcessor) GetType() string {
	return "settlement"
}

// Process returns nil to ack the message. An error leaves it pending so the
// queue redelivers it, and dead-letters it once redeliveries run out.
func (p *SettlementProcessor) Process(ctx context.Context, msg *queue.Message) error {
	event, err := queue.DecodeSettlement(msg)
	if err != nil {
		logger.Error("invalid settlement message", "message_id", msg.ID, "error", err)
		return err
	}

	switch event.PaymentMode {
	case model.PaymentModeRazorPay:
	case model.PaymentModeCash:
		logger.Info("cash payment left for driver collection", "payment_id", event.PaymentID, "booking_id", event.BookingID)
		prom.IncSettlement(string(event.PaymentMode), "deferred")
		return nil
	default:
		logger.Warn("settlement event for inline payment ignored", "payment_id", event.PaymentID, "mode", string(event.PaymentMode))
		return nil
	}

	key := strconv.FormatInt(event.PaymentID, 10)
	pc, err := p.idempotency.AcquireProcessingLock(ctx, key)
	switch {
	case errors.Is(err, ErrAlreadyProcessed):
		logger.Info("payment already settled, skipping", "payment_id", event.PaymentID)
		return nil
	case errors.Is(err, ErrMaxRetriesExceeded):
		return p.giveUp(ctx, event)
	case err != nil:
		return err
	}
	defer p.idempotency.ReleaseLock(ctx, pc)

	res, err := p.capture(ctx, event, pc)
	if err != nil {
		_ = p.idempotency.MarkFailure(ctx, pc, err)
		return err
	}
	if res.TransactionID != "" && res.TransactionID != pc.Reference {
		if err := p.idempotency.RememberReference(ctx, pc, res.TransactionID); err != nil {
			logger.Warn("failed to remember capture reference", "payment_id", event.PaymentID, "error", err)
		}
	}
	if !res.Final() {
		_ = p.idempotency.MarkFailure(ctx, pc, ErrCapturePending)
		return ErrCapturePending
	}

	status := model.PaymentStatusCompleted
	if res.Status == gateway.CaptureDeclined {
		status = model.PaymentStatusFailed
	}

	if _, err := p.payments.Settle(ctx, event.PaymentID, status, res.TransactionID); err != nil {
		if !errors.Is(err, services.ErrPaymentNotPending) {
			_ = p.idempotency.MarkFailure(ctx, pc, err)
			return err
		}
		logger.Warn("payment no longer pending, capture outcome not applied",
			"payment_id", event.PaymentID, "capture_status", string(res.Status), "provider_txn_id", res.TransactionID)
	}

	if err := p.idempotency.MarkSuccess(ctx, pc); err != nil {
		logger.Error("failed to mark settlement processed", "payment_id", event.PaymentID, "error", err)
	}
	prom.IncSettlement(string(event.PaymentMode), string(status))
	logger.Info("payment settled through gateway",
		"payment_id", event.PaymentID, "status", string(status), "provider", res.Provider, "attempts", pc.RetryCount+1)
	return nil
}

// capture asks the gateway for the outcome of an earlier attempt when one is
// known, and submits a new capture otherwise.
func (p *SettlementProcessor) capture(ctx context.Context, event model.SettlementEvent, pc *ProcessingContext) (*gateway.CaptureResponse, error) {
	if pc.Reference != "" {
		return p.gateway.Status(ctx, pc.Reference)
	}
	return p.gateway.Capture(ctx, &gateway.CaptureRequest{
		Reference: "settlement-" + pc.Key,
		PaymentID: event.PaymentID,
		BookingID: event.BookingID,
		Amount:    event.Amount,
		Currency:  p.currency,
	})
}

func (p *SettlementProcessor) giveUp(ctx context.Context, event model.SettlementEvent) error {
	logger.Error("settlement attempts exhausted, failing payment", "payment_id", event.PaymentID)
	_, err := p.payments.Settle(ctx, event.PaymentID, model.PaymentStatusFailed, "")
	if err != nil && !errors.Is(err, services.ErrPaymentNotPending) {
		return err
	}
	prom.IncSettlement(string(event.PaymentMode), string(model.PaymentStatusFailed))
	return nil
}
