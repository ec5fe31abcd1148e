package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/nimasrn/ride-settlement/internal/model"
	"github.com/nimasrn/ride-settlement/internal/repository"
	"github.com/nimasrn/ride-settlement/pkg/logger"
)

type PaymentService struct {
	payments  PaymentRepository
	publisher SettlementPublisher
}

func NewPaymentService(payments PaymentRepository, publisher SettlementPublisher) *PaymentService {
	return &PaymentService{
		payments:  payments,
		publisher: publisher,
	}
}

func (s *PaymentService) Get(ctx context.Context, id int64) (*model.Payment, error) {
	payment, err := s.payments.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return payment, nil
}

// Settle records the gateway outcome of a pending payment. Settling again
// with the same outcome is a no-op; any other change of a settled payment
// is refused with ErrPaymentNotPending.
func (s *PaymentService) Settle(ctx context.Context, paymentID int64, status model.PaymentStatus, providerTxnID string) (*model.Payment, error) {
	if status != model.PaymentStatusCompleted && status != model.PaymentStatusFailed {
		return nil, invalid(fmt.Errorf("cannot settle payment as %q", status))
	}

	var ref *string
	if providerTxnID != "" {
		ref = &providerTxnID
	}

	err := s.payments.UpdateStatus(ctx, paymentID, model.PaymentStatusPending, status, ref)
	if err != nil && !errors.Is(err, repository.ErrConcurrentUpdate) {
		return nil, fmt.Errorf("settle payment: %w", err)
	}

	payment, getErr := s.Get(ctx, paymentID)
	if getErr != nil {
		return nil, getErr
	}

	if err != nil {
		sameRef := payment.ProviderTransactionID == nil && ref == nil ||
			payment.ProviderTransactionID != nil && ref != nil && *payment.ProviderTransactionID == *ref
		if payment.Status == status && sameRef {
			return payment, nil
		}
		return nil, ErrPaymentNotPending
	}

	logger.Info("payment settled", "payment_id", paymentID, "status", status, "provider_txn_id", providerTxnID)
	return payment, nil
}

// Reconcile re-publishes settlement events for gateway payments still
// Pending, up to limit of them. Cash stays Pending until the driver collects
// it, and wallet payments settle inline, so neither is listed. It returns how
// many were published.
func (s *PaymentService) Reconcile(ctx context.Context, limit int) (int, error) {
	if s.publisher == nil {
		return 0, errors.New("no settlement publisher configured")
	}

	pending, err := s.payments.ListByStatus(ctx, model.PaymentStatusPending, limit, model.PaymentModeRazorPay)
	if err != nil {
		return 0, fmt.Errorf("list pending payments: %w", err)
	}

	published := 0
	for _, p := range pending {
		if p.PaymentMode != model.PaymentModeRazorPay {
			continue
		}
		event := model.SettlementEvent{
			PaymentID:   p.ID,
			BookingID:   p.BookingID,
			UserID:      p.UserID,
			Amount:      p.Amount,
			PaymentMode: p.PaymentMode,
			CreatedAt:   p.PaymentDate,
		}
		if err := s.publisher.PublishSettlement(ctx, event); err != nil {
			return published, fmt.Errorf("publish payment %d: %w", p.ID, err)
		}
		published++
	}

	logger.Info("pending payments republished", "count", published)
	return published, nil
}
