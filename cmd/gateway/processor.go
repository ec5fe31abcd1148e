package main

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type CaptureStatus string

const (
	StatusCaptured CaptureStatus = "CAPTURED"
	StatusDeclined CaptureStatus = "DECLINED"
	StatusPending  CaptureStatus = "PENDING"
)

type CaptureRequest struct {
	Reference string          `json:"reference" binding:"required"`
	PaymentID int64           `json:"payment_id" binding:"required"`
	BookingID int64           `json:"booking_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency" binding:"required"`
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

var declineReasons = []struct{ code, msg string }{
	{"CARD_DECLINED", "The issuing bank declined the payment"},
	{"INSUFFICIENT_FUNDS", "The payer does not have enough funds"},
	{"RISK_REJECTED", "The payment was flagged by risk checks"},
	{"EXPIRED_INSTRUMENT", "The payment instrument has expired"},
}

// MockProcessor simulates a card processor. Captures are deduplicated by
// reference, and a pending capture resolves on the first status lookup
// after its settle delay.
type MockProcessor struct {
	mu          sync.Mutex
	successRate float64
	pendingRate float64
	settleDelay time.Duration
	minDelay    time.Duration
	maxDelay    time.Duration
	providerID  string
	rng         *rand.Rand

	byReference map[string]*CaptureResponse
	byID        map[string]*CaptureResponse
}

func NewMockProcessor(cfg Config, rng *rand.Rand) *MockProcessor {
	return &MockProcessor{
		successRate: cfg.SuccessRate,
		pendingRate: cfg.PendingRate,
		settleDelay: cfg.SettleDelay,
		minDelay:    cfg.MinDelay,
		maxDelay:    cfg.MaxDelay,
		providerID:  "MOCK_PROCESSOR_" + uuid.NewString()[:8],
		rng:         rng,
		byReference: make(map[string]*CaptureResponse),
		byID:        make(map[string]*CaptureResponse),
	}
}

// Capture returns the stored outcome when the reference was seen before.
func (m *MockProcessor) Capture(req *CaptureRequest) CaptureResponse {
	m.mu.Lock()
	if prev, ok := m.byReference[req.Reference]; ok {
		m.mu.Unlock()
		log.Info().Str("reference", req.Reference).Str("transaction_id", prev.TransactionID).Msg("duplicate capture")
		return *prev
	}
	delay := m.randomDelay()
	m.mu.Unlock()

	time.Sleep(delay)

	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.byReference[req.Reference]; ok {
		return *prev
	}

	resp := &CaptureResponse{
		TransactionID: "pay_" + uuid.NewString(),
		Reference:     req.Reference,
		Provider:      m.providerID,
		ProcessedAt:   time.Now(),
	}
	if m.rng.Float64() < m.pendingRate {
		resp.Status = StatusPending
	} else {
		m.resolve(resp)
	}
	m.byReference[req.Reference] = resp
	m.byID[resp.TransactionID] = resp

	log.Info().
		Str("reference", req.Reference).
		Int64("payment_id", req.PaymentID).
		Str("amount", req.Amount.String()).
		Str("status", string(resp.Status)).
		Dur("delay", delay).
		Msg("capture processed")
	return *resp
}

// Status looks a capture up by transaction id or by reference.
func (m *MockProcessor) Status(id string) (CaptureResponse, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	resp, ok := m.byID[id]
	if !ok {
		resp, ok = m.byReference[id]
	}
	if !ok {
		return CaptureResponse{}, false
	}
	if resp.Status == StatusPending && time.Since(resp.ProcessedAt) >= m.settleDelay {
		m.resolve(resp)
		resp.ProcessedAt = time.Now()
	}
	return *resp, true
}

func (m *MockProcessor) resolve(resp *CaptureResponse) {
	if m.rng.Float64() < m.successRate {
		resp.Status = StatusCaptured
		resp.ErrorCode, resp.ErrorMsg = "", ""
		return
	}
	reason := declineReasons[m.rng.Intn(len(declineReasons))]
	resp.Status = StatusDeclined
	resp.ErrorCode, resp.ErrorMsg = reason.code, reason.msg
}

func (m *MockProcessor) SetRates(success, pending *float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if success != nil {
		m.successRate = *success
	}
	if pending != nil {
		m.pendingRate = *pending
	}
}

func (m *MockProcessor) Rates() (success, pending float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.successRate, m.pendingRate
}

func (m *MockProcessor) randomDelay() time.Duration {
	delta := m.maxDelay - m.minDelay
	if delta <= 0 {
		return m.minDelay
	}
	return m.minDelay + time.Duration(m.rng.Int63n(int64(delta)))
}
