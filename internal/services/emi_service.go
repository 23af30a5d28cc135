package services

import (
	"context"
	"fmt"

	"kharcha/internal/amqp"
	"kharcha/internal/cache"
	"kharcha/internal/core"
	"kharcha/internal/emi"
	"kharcha/internal/log"
	"kharcha/internal/store"
)

// ScheduleView is an amortization table with its column totals.
type ScheduleView struct {
	EMI           core.EMI          `json:"emi"`
	Installments  []emi.Installment `json:"installments"`
	TotalPaid     core.Money        `json:"total_paid"`
	TotalInterest core.Money        `json:"total_interest"`
}

// EMIService turns EMI form input into stored loans and tracks payments.
type EMIService struct {
	repo      store.EMIRepository
	publisher Publisher
	schedules cache.Cache[[]emi.Installment]
	clock     Clock
	logger    *log.Logger
}

// NewEMIService wires an EMI service. schedules may be nil.
func NewEMIService(repo store.EMIRepository, publisher Publisher, schedules cache.Cache[[]emi.Installment], clock Clock, logger *log.Logger) *EMIService {
	return &EMIService{
		repo:      repo,
		publisher: publisher,
		schedules: schedules,
		clock:     clock,
		logger:    componentLogger(logger, log.ComponentEMI),
	}
}

// Quote previews the derived figures for a form without storing anything.
// The name field is not required.
func (s *EMIService) Quote(f emi.Form) (emi.Quotation, error) {
	terms, errs := emi.ParseTerms(f.Principal, f.InterestRate, f.Tenure, f.StartDate, s.clock.today())
	if len(errs) > 0 {
		return emi.Quotation{}, errs
	}
	return emi.Quote(terms)
}

func (s *EMIService) List(ctx context.Context) ([]core.EMI, error) {
	emis, err := s.repo.ListEMIs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list emis: %w", err)
	}
	return emis, nil
}

func (s *EMIService) Get(ctx context.Context, id string) (core.EMI, error) {
	return s.repo.GetEMI(ctx, id)
}

// Create validates the form and stores a new active EMI.
func (s *EMIService) Create(ctx context.Context, f emi.Form) (core.EMI, error) {
	name, terms, err := emi.ParseForm(f, s.clock.today())
	if err != nil {
		return core.EMI{}, err
	}
	e, err := emi.New(newID(), name, terms)
	if err != nil {
		return core.EMI{}, err
	}
	if err := s.repo.CreateEMI(ctx, e); err != nil {
		return core.EMI{}, fmt.Errorf("save emi: %w", err)
	}
	s.logger.InfoContext(ctx, "EMI created", log.NewFields().WithEMI(e).ToSlice()...)
	publishChange(ctx, s.publisher, s.logger, EntityEMI, e.ID, amqp.OpCreated)
	return e, nil
}

// Revise applies edited terms to an existing EMI. Payment progress is kept.
func (s *EMIService) Revise(ctx context.Context, id string, f emi.Form) (core.EMI, error) {
	name, terms, err := emi.ParseForm(f, s.clock.today())
	if err != nil {
		return core.EMI{}, err
	}
	prior, err := s.repo.GetEMI(ctx, id)
	if err != nil {
		return core.EMI{}, err
	}
	e, err := emi.Revise(prior, name, terms)
	if err != nil {
		return core.EMI{}, err
	}
	if err := s.repo.UpdateEMI(ctx, e); err != nil {
		return core.EMI{}, fmt.Errorf("update emi: %w", err)
	}
	if s.schedules != nil {
		s.schedules.Delete(scheduleKey(prior))
	}
	s.logger.InfoContext(ctx, "EMI revised", log.NewFields().WithEMI(e).ToSlice()...)
	publishChange(ctx, s.publisher, s.logger, EntityEMI, id, amqp.OpUpdated)
	return e, nil
}

// RecordPayment applies a payment of amount, given as typed by the user.
func (s *EMIService) RecordPayment(ctx context.Context, id, amount string) (core.EMI, error) {
	m, err := core.ParseAmount(amount)
	if err != nil {
		return core.EMI{}, core.FieldErrors{"amount": "Please enter a valid amount greater than zero"}
	}
	prior, err := s.repo.GetEMI(ctx, id)
	if err != nil {
		return core.EMI{}, err
	}
	e, err := emi.ApplyPayment(prior, m)
	if err != nil {
		return core.EMI{}, err
	}
	if err := s.repo.UpdateEMI(ctx, e); err != nil {
		return core.EMI{}, fmt.Errorf("update emi: %w", err)
	}
	s.logger.InfoContext(ctx, "EMI payment recorded",
		log.NewFields().WithEMI(e).WithOperation(log.OpPayment).ToSlice()...)
	publishChange(ctx, s.publisher, s.logger, EntityEMI, id, amqp.OpUpdated)
	return e, nil
}

// Schedule returns the amortization table of a stored EMI.
func (s *EMIService) Schedule(ctx context.Context, id string) (ScheduleView, error) {
	e, err := s.repo.GetEMI(ctx, id)
	if err != nil {
		return ScheduleView{}, err
	}
	key := scheduleKey(e)
	rows, ok := s.cachedSchedule(key)
	if !ok {
		rows, err = emi.Schedule(emi.TermsOf(e))
		if err != nil {
			return ScheduleView{}, err
		}
		if s.schedules != nil {
			s.schedules.Set(key, rows)
		}
	}
	paid, interest := emi.ScheduleTotals(rows)
	return ScheduleView{EMI: e, Installments: rows, TotalPaid: paid, TotalInterest: interest}, nil
}

func (s *EMIService) cachedSchedule(key string) ([]emi.Installment, bool) {
	if s.schedules == nil {
		return nil, false
	}
	return s.schedules.Get(key)
}

// scheduleKey names a schedule by the terms it was computed from, so a
// table computed for terms a revision has since replaced is never served.
func scheduleKey(e core.EMI) string {
	return fmt.Sprintf("%s|%s|%s|%d|%s", e.ID, e.Principal, e.InterestRate, e.Tenure, e.StartDate)
}

// Due lists the active EMIs whose next installment is due on or before today.
func (s *EMIService) Due(ctx context.Context) ([]core.EMI, error) {
	emis, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock.now()
	var due []core.EMI
	for _, e := range emis {
		if emi.IsDue(e, now) {
			due = append(due, e)
		}
	}
	return due, nil
}
