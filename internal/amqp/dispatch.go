package amqp

import (
	"context"
	"fmt"
)

// Handler receives decoded ledger events.
type Handler interface {
	LedgerChanged(ctx context.Context, msg *LedgerChangedMessage) error
	EMIDue(ctx context.Context, msg *EMIDueMessage) error
}

// Dispatch adapts h to Consume. Bodies that do not decode and unknown
// routing keys are reported as ErrMalformed so the delivery is dropped.
func Dispatch(h Handler) func(ctx context.Context, routingKey string, body []byte) error {
	return func(ctx context.Context, routingKey string, body []byte) error {
		switch routingKey {
		case RouteLedgerChanged:
			msg, err := LedgerChangedMessageFromJSON(body)
			if err != nil || msg.Entity == "" || msg.ID == "" {
				return fmt.Errorf("%w: %s: %v", ErrMalformed, routingKey, err)
			}
			return h.LedgerChanged(ctx, msg)
		case RouteEMIDue:
			msg, err := EMIDueMessageFromJSON(body)
			if err != nil || msg.ID == "" {
				return fmt.Errorf("%w: %s: %v", ErrMalformed, routingKey, err)
			}
			return h.EMIDue(ctx, msg)
		default:
			return fmt.Errorf("%w: unknown routing key %q", ErrMalformed, routingKey)
		}
	}
}
