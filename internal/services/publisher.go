// Package services orchestrates the ledger use cases across storage, caches
// and the event publisher.
package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"kharcha/internal/core"
	"kharcha/internal/log"
)

// Publisher announces ledger writes and EMI reminders. *amqp.Client
// implements it; a nil Publisher disables events.
type Publisher interface {
	PublishLedgerChanged(ctx context.Context, entity, id, op string) error
	PublishEMIDue(ctx context.Context, e core.EMI) error
}

// Entities named in ledger change events.
const (
	EntityTransaction = "transaction"
	EntityCategory    = "category"
	EntityEMI         = "emi"
	EntityBudget      = "budget"
)

// Clock supplies "now" in the user's time zone.
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

// SystemClock reads the wall clock in loc (time.Local when nil).
func SystemClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return Clock{Now: time.Now, Location: loc}
}

func (c Clock) now() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	return now().In(loc)
}

func (c Clock) today() core.Date {
	return core.DateOf(c.now())
}

func newID() string {
	return uuid.NewString()
}

// publishChange publishes a ledger change. Failures are logged and
// swallowed: the write has already been stored.
func publishChange(ctx context.Context, p Publisher, logger *log.Logger, entity, id, op string) {
	if p == nil {
		logger.DebugContext(ctx, "Publisher not available, skipping ledger event",
			log.FieldEntity, entity, log.FieldID, id)
		return
	}
	if err := p.PublishLedgerChanged(ctx, entity, id, op); err != nil {
		logger.ErrorContext(ctx, "Failed to publish ledger event",
			log.FieldEntity, entity, log.FieldID, id, log.FieldOperation, op, log.FieldError, err)
	}
}

func componentLogger(l *log.Logger, component string) *log.Logger {
	if l == nil {
		l = log.New(log.DefaultConfig())
	}
	return l.WithComponent(component)
}
