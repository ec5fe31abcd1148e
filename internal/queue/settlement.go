package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/nimasrn/ride-settlement/internal/model"
)

const settlementEventType = "payment.settlement"

// SettlementQueue carries payments collected outside the booking
// transaction to the settlement processor.
type SettlementQueue struct {
	*Queue
}

func NewSettlementQueue(q *Queue) *SettlementQueue {
	return &SettlementQueue{Queue: q}
}

func (q *SettlementQueue) PublishSettlement(ctx context.Context, event model.SettlementEvent) error {
	_, err := q.PublishJSON(ctx, event, map[string]string{
		"type":       settlementEventType,
		"payment_id": strconv.FormatInt(event.PaymentID, 10),
		"mode":       string(event.PaymentMode),
	})
	return err
}

// DecodeSettlement reads a settlement event out of a queue message.
func DecodeSettlement(msg *Message) (model.SettlementEvent, error) {
	var event model.SettlementEvent
	if t, ok := msg.Metadata["type"]; ok && t != settlementEventType {
		return event, fmt.Errorf("unexpected message type %q", t)
	}
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return event, fmt.Errorf("decode settlement event: %w", err)
	}
	if event.PaymentID <= 0 {
		return event, fmt.Errorf("settlement event without payment id")
	}
	return event, nil
}
