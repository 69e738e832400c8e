// Package service orchestrates year-end form generation: it resolves payer
// and recipient records and payment aggregates from the ledger, delegates to
// the matching form generator, and runs roster-wide bulk generation with
// partial-failure accounting.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/csg33k/taxforms/internal/adapters/forms"
	"github.com/csg33k/taxforms/internal/adapters/forms/layout"
	"github.com/csg33k/taxforms/internal/domain"
	"github.com/csg33k/taxforms/internal/ports"
)

// SkipReasonCanceled marks roster records that were never scheduled because
// the caller aborted the run.
const SkipReasonCanceled = "run canceled"

// Config tunes one Service instance.
type Config struct {
	// Workers bounds bulk-run concurrency. Zero means 4.
	Workers int
	// Strict1099Threshold promotes the below-$600 warning to a blocking
	// error for single-form generation. Bulk runs always skip
	// below-threshold recipients regardless.
	Strict1099Threshold bool
	// DefaultTaxYear overrides the default of the prior calendar year.
	DefaultTaxYear int
}

// Service owns the three generators and the ledger collaborator. Stateless
// across calls; safe for concurrent use.
type Service struct {
	ledger ports.Ledger
	nec    *forms.Form1099
	misc   *forms.Form1099
	w2     *forms.W2
	cfg    Config
	log    *slog.Logger
	now    func() time.Time
}

// New constructs a Service. log may be nil.
func New(ledger ports.Ledger, cfg Config, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &Service{
		ledger: ledger,
		nec:    forms.NewNEC(log),
		misc:   forms.NewMISC(log),
		w2:     forms.NewW2(log),
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

// FormRequest identifies one preview/generate call.
type FormRequest struct {
	FormType    domain.FormType
	RecipientID int64
	// CompanyID explicitly selects the payer. Zero falls back to the
	// recipient's own company, then to the default/first company.
	CompanyID int64
	// TaxYear zero means the prior calendar year.
	TaxYear int
	// Payments/Wages override the ledger-derived facts when non-nil.
	Payments *domain.PaymentFacts
	Wages    *domain.WageFacts
	Options  forms.Options
}

// ── Single-form operations ───────────────────────────────────────────────────

// Preview resolves records and aggregates, then delegates to the matching
// generator's preview. Nothing is mutated or persisted.
func (s *Service) Preview(ctx context.Context, req FormRequest) (*domain.FormPreview, error) {
	payer, rcpt, year, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	switch req.FormType {
	case domain.Form1099NEC, domain.Form1099MISC:
		facts, err := s.paymentFacts(ctx, req, rcpt, year)
		if err != nil {
			return nil, err
		}
		return s.gen1099(req.FormType).Preview(payer, rcpt, year, facts)
	case domain.FormW2:
		facts, err := s.wageFacts(ctx, req, rcpt, year)
		if err != nil {
			return nil, err
		}
		return s.w2.Preview(payer, rcpt, year, facts)
	default:
		return nil, fmt.Errorf("unknown form type %q", req.FormType)
	}
}

// Generate resolves records and aggregates, then produces the binary form.
// Validation failures come back in the outcome; the error return is reserved
// for resolution and infrastructure failures.
func (s *Service) Generate(ctx context.Context, req FormRequest) (*domain.GeneratedForm, domain.ValidationOutcome, error) {
	payer, rcpt, year, err := s.resolve(ctx, req)
	if err != nil {
		return nil, domain.ValidationOutcome{}, err
	}
	opts := req.Options
	opts.StrictThreshold = opts.StrictThreshold || s.cfg.Strict1099Threshold

	switch req.FormType {
	case domain.Form1099NEC, domain.Form1099MISC:
		facts, err := s.paymentFacts(ctx, req, rcpt, year)
		if err != nil {
			return nil, domain.ValidationOutcome{}, err
		}
		return s.gen1099(req.FormType).Generate(payer, rcpt, year, facts, opts)
	case domain.FormW2:
		facts, err := s.wageFacts(ctx, req, rcpt, year)
		if err != nil {
			return nil, domain.ValidationOutcome{}, err
		}
		return s.w2.Generate(payer, rcpt, year, facts, opts)
	default:
		return nil, domain.ValidationOutcome{}, fmt.Errorf("unknown form type %q", req.FormType)
	}
}

// ── Resolution ───────────────────────────────────────────────────────────────

func (s *Service) resolve(ctx context.Context, req FormRequest) (payer, rcpt *domain.PartyRecord, year int, err error) {
	rcpt, err = s.ledger.GetParty(ctx, req.RecipientID)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("resolve recipient %d: %w", req.RecipientID, err)
	}
	switch {
	case req.CompanyID != 0:
		payer, err = s.ledger.GetParty(ctx, req.CompanyID)
		if err != nil {
			err = fmt.Errorf("resolve payer %d: %w", req.CompanyID, err)
		}
	case rcpt.CompanyID != 0:
		payer, err = s.ledger.GetParty(ctx, rcpt.CompanyID)
		if err != nil {
			err = fmt.Errorf("resolve recipient's company %d: %w", rcpt.CompanyID, err)
		}
	default:
		payer, err = s.ledger.DefaultOrFirstCompany(ctx)
		if err != nil {
			err = fmt.Errorf("resolve default company: %w", err)
		}
	}
	if err != nil {
		return nil, nil, 0, err
	}
	return payer, rcpt, s.taxYear(req.TaxYear), nil
}

func (s *Service) taxYear(requested int) int {
	if requested != 0 {
		return requested
	}
	if s.cfg.DefaultTaxYear != 0 {
		return s.cfg.DefaultTaxYear
	}
	return s.now().Year() - 1
}

func (s *Service) gen1099(form domain.FormType) *forms.Form1099 {
	if form == domain.Form1099MISC {
		return s.misc
	}
	return s.nec
}

func yearRange(year int) (time.Time, time.Time) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 23, 59, 59, 0, time.UTC)
	return start, end
}

// paymentFacts returns the explicit facts from the request, or aggregates
// the year's expense payments into the form's primary box.
func (s *Service) paymentFacts(ctx context.Context, req FormRequest, rcpt *domain.PartyRecord, year int) (domain.PaymentFacts, error) {
	if req.Payments != nil {
		return *req.Payments, nil
	}
	start, end := yearRange(year)
	total, err := s.ledger.PaymentTotal(ctx, rcpt.ID, start, end, ports.KindExpense)
	if err != nil {
		return domain.PaymentFacts{}, fmt.Errorf("aggregate payments for %d: %w", rcpt.ID, err)
	}
	if req.FormType == domain.Form1099MISC {
		return domain.PaymentFacts{OtherIncomeCents: total}, nil
	}
	return domain.PaymentFacts{NonemployeeCompCents: total}, nil
}

// wageFacts returns explicit facts, or derives them from the payroll
// aggregate plus the employee's stored withholding metadata.
func (s *Service) wageFacts(ctx context.Context, req FormRequest, employee *domain.PartyRecord, year int) (domain.WageFacts, error) {
	if req.Wages != nil {
		return *req.Wages, nil
	}
	start, end := yearRange(year)
	wages, err := s.ledger.PaymentTotal(ctx, employee.ID, start, end, ports.KindPayroll)
	if err != nil {
		return domain.WageFacts{}, fmt.Errorf("aggregate wages for %d: %w", employee.ID, err)
	}
	return s.deriveWages(employee, wages, year), nil
}

func (s *Service) deriveWages(employee *domain.PartyRecord, wagesCents int64, year int) domain.WageFacts {
	lay, ok := layout.ForYear(domain.FormW2, year)
	if !ok {
		// No layout means generation will fail with ErrNoLayout anyway;
		// fall back to the default-year constants for derivation.
		lay, _ = layout.ForYear(domain.FormW2, layout.DefaultYear)
	}
	facts := forms.CalculateTaxes(wagesCents, lay)
	if meta := employee.Withholding; meta != nil {
		facts.FederalWithheldCents = int64(float64(wagesCents) * meta.FederalRate)
		if meta.State != "" && meta.StateRate > 0 {
			facts.States = []domain.StateTaxRow{{
				State:         meta.State,
				IncomeCents:   wagesCents,
				WithheldCents: int64(float64(wagesCents) * meta.StateRate),
			}}
		}
	}
	return facts
}
