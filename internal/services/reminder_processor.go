package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"kharcha/internal/core"
	"kharcha/internal/emi"
	"kharcha/internal/log"
	"kharcha/internal/store"
)

// ReminderProcessor publishes emi.due reminders for installments that have
// come due. It remembers when each EMI was last reminded so the policy can
// suppress repeats.
type ReminderProcessor struct {
	emis      store.EMIRepository
	publisher Publisher
	policy    ReminderPolicy
	clock     Clock
	logger    *log.Logger

	mu           sync.Mutex
	lastReminded map[string]time.Time
}

// NewReminderProcessor builds a processor. Without a publisher, reminders
// are only logged. A nil policy means OncePolicy.
func NewReminderProcessor(emis store.EMIRepository, publisher Publisher, policy ReminderPolicy, clock Clock, logger *log.Logger) *ReminderProcessor {
	if policy == nil {
		policy = OncePolicy{}
	}
	return &ReminderProcessor{
		emis:         emis,
		publisher:    publisher,
		policy:       policy,
		clock:        clock,
		logger:       componentLogger(logger, log.ComponentReminder),
		lastReminded: make(map[string]time.Time),
	}
}

// ProcessDue scans every EMI once and returns how many reminders were sent.
// A failed publish is logged and retried on the next scan.
func (p *ReminderProcessor) ProcessDue(ctx context.Context) (int, error) {
	if p.emis == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}
	emis, err := p.emis.ListEMIs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list emis: %w", err)
	}

	now := p.clock.now()
	p.logger.InfoContext(ctx, "Scanning EMIs for due installments",
		log.FieldCount, len(emis),
		log.FieldDate, core.DateOf(now).String())

	p.mu.Lock()
	defer p.mu.Unlock()

	seen := make(map[string]bool, len(emis))
	sent := 0
	for _, e := range emis {
		seen[e.ID] = true
		if !emi.IsDue(e, now) {
			continue
		}
		if !p.policy.ShouldRemind(p.lastReminded[e.ID], now, e.NextDueDate) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if err := p.remind(ctx, e); err != nil {
			p.logger.ErrorContext(ctx, "Failed to publish EMI reminder",
				log.NewFields().WithEMI(e).WithError(err).ToSlice()...)
			continue
		}
		p.lastReminded[e.ID] = now
		sent++
	}
	for id := range p.lastReminded {
		if !seen[id] {
			delete(p.lastReminded, id)
		}
	}

	p.logger.InfoContext(ctx, "EMI reminder scan complete",
		"reminded", sent,
		"total_checked", len(emis))
	return sent, nil
}

func (p *ReminderProcessor) remind(ctx context.Context, e core.EMI) error {
	if p.publisher == nil {
		p.logger.WarnContext(ctx, "EMI installment due", log.NewFields().WithEMI(e).ToSlice()...)
		return nil
	}
	return p.publisher.PublishEMIDue(ctx, e)
}

// Run scans immediately and then every interval until ctx is done.
func (p *ReminderProcessor) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := p.ProcessDue(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.ErrorContext(ctx, "EMI reminder scan failed", log.FieldError, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
