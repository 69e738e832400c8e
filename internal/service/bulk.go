package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/csg33k/taxforms/internal/adapters/forms"
	"github.com/csg33k/taxforms/internal/adapters/forms/layout"
	"github.com/csg33k/taxforms/internal/domain"
	"github.com/csg33k/taxforms/internal/ports"
)

// recordResult is the outcome of one roster record; exactly one field is set.
type recordResult struct {
	generated *domain.GeneratedRecord
	skipped   *domain.SkippedRecord
	failed    *domain.FailedRecord
}

func generatedResult(id int64, form *domain.GeneratedForm) recordResult {
	return recordResult{generated: &domain.GeneratedRecord{RecordID: id, Form: form}}
}

func skippedResult(id int64, reason string) recordResult {
	return recordResult{skipped: &domain.SkippedRecord{RecordID: id, Reason: reason}}
}

func failedResult(id int64, errs []string) recordResult {
	return recordResult{failed: &domain.FailedRecord{RecordID: id, Errors: errs}}
}

// BulkGenerate1099NEC runs 1099-NEC generation over every contractor of a
// company. Recipients paid under the filing threshold are skipped; one
// record's failure never aborts the run.
func (s *Service) BulkGenerate1099NEC(ctx context.Context, companyID int64, taxYear int, opts forms.Options) (*domain.BulkRunResult, error) {
	year := s.taxYear(taxYear)
	lay, ok := layout.ForYear(domain.Form1099NEC, year)
	if !ok {
		return nil, fmt.Errorf("%w: %s TY%d", forms.ErrNoLayout, domain.Form1099NEC, year)
	}
	payer, err := s.resolveCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	roster, err := s.ledger.ListRoster(ctx, payer.ID, domain.RoleContractor)
	if err != nil {
		return nil, fmt.Errorf("list contractors for %d: %w", payer.ID, err)
	}

	start, end := yearRange(year)
	result := s.runBulk(ctx, domain.Form1099NEC, year, roster, func(ctx context.Context, rec *domain.PartyRecord) recordResult {
		total, err := s.ledger.PaymentTotal(ctx, rec.ID, start, end, ports.KindExpense)
		if err != nil {
			return failedResult(rec.ID, []string{fmt.Sprintf("aggregate payments: %v", err)})
		}
		if total < lay.FilingThresholdCents {
			return skippedResult(rec.ID, fmt.Sprintf("below $600 filing threshold (paid $%.2f)", float64(total)/100))
		}
		facts := domain.PaymentFacts{NonemployeeCompCents: total}
		form, out, err := s.nec.Generate(payer, rec, year, facts, opts)
		if err != nil {
			return failedResult(rec.ID, []string{err.Error()})
		}
		if form == nil {
			return failedResult(rec.ID, out.Errors)
		}
		return generatedResult(rec.ID, form)
	})
	return result, nil
}

// BulkGenerateW2 runs W-2 generation over every employee of a company.
// wageOverrides supplies explicit wage facts per employee id; everyone else
// is derived from the payroll aggregate, and employees with no wages for the
// year are skipped.
func (s *Service) BulkGenerateW2(ctx context.Context, companyID int64, taxYear int, wageOverrides map[int64]domain.WageFacts, opts forms.Options) (*domain.BulkRunResult, error) {
	year := s.taxYear(taxYear)
	if _, ok := layout.ForYear(domain.FormW2, year); !ok {
		return nil, fmt.Errorf("%w: %s TY%d", forms.ErrNoLayout, domain.FormW2, year)
	}
	employer, err := s.resolveCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	roster, err := s.ledger.ListRoster(ctx, employer.ID, domain.RoleEmployee)
	if err != nil {
		return nil, fmt.Errorf("list employees for %d: %w", employer.ID, err)
	}

	start, end := yearRange(year)
	result := s.runBulk(ctx, domain.FormW2, year, roster, func(ctx context.Context, rec *domain.PartyRecord) recordResult {
		facts, ok := wageOverrides[rec.ID]
		if !ok {
			wages, err := s.ledger.PaymentTotal(ctx, rec.ID, start, end, ports.KindPayroll)
			if err != nil {
				return failedResult(rec.ID, []string{fmt.Sprintf("aggregate wages: %v", err)})
			}
			if wages <= 0 {
				return skippedResult(rec.ID, fmt.Sprintf("no wages for tax year %d", year))
			}
			facts = s.deriveWages(rec, wages, year)
		}
		form, out, err := s.w2.Generate(employer, rec, year, facts, opts)
		if err != nil {
			return failedResult(rec.ID, []string{err.Error()})
		}
		if form == nil {
			return failedResult(rec.ID, out.Errors)
		}
		return generatedResult(rec.ID, form)
	})
	return result, nil
}

func (s *Service) resolveCompany(ctx context.Context, companyID int64) (*domain.PartyRecord, error) {
	if companyID != 0 {
		p, err := s.ledger.GetParty(ctx, companyID)
		if err != nil {
			return nil, fmt.Errorf("resolve company %d: %w", companyID, err)
		}
		return p, nil
	}
	p, err := s.ledger.DefaultOrFirstCompany(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve default company: %w", err)
	}
	return p, nil
}

// runBulk fans roster records out to a bounded worker pool and collects the
// three result buckets. Cancellation stops scheduling new records — the
// remainder land in skipped — while in-flight records run to completion on a
// detached context and are still counted. A panicking record is recorded as
// failed; it never takes the run down.
func (s *Service) runBulk(ctx context.Context, form domain.FormType, year int, roster []domain.PartyRecord, process func(context.Context, *domain.PartyRecord) recordResult) *domain.BulkRunResult {
	result := &domain.BulkRunResult{
		RunID:     uuid.NewString(),
		FormType:  form,
		TaxYear:   year,
		Generated: []domain.GeneratedRecord{},
		Skipped:   []domain.SkippedRecord{},
		Errors:    []domain.FailedRecord{},
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, s.cfg.Workers)
	)
	// In-flight records must complete even if the caller cancels.
	detached := context.WithoutCancel(ctx)

	collect := func(r recordResult) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case r.generated != nil:
			result.Generated = append(result.Generated, *r.generated)
		case r.skipped != nil:
			result.Skipped = append(result.Skipped, *r.skipped)
		case r.failed != nil:
			result.Errors = append(result.Errors, *r.failed)
		}
	}

	for i := range roster {
		rec := &roster[i]
		// Checked before the select so cancellation wins over a free slot.
		if ctx.Err() != nil {
			collect(skippedResult(rec.ID, SkipReasonCanceled))
			continue
		}
		select {
		case <-ctx.Done():
			collect(skippedResult(rec.ID, SkipReasonCanceled))
			continue
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					s.log.Error("record processing panicked", "form", string(form), "recordId", rec.ID, "panic", r)
					collect(failedResult(rec.ID, []string{fmt.Sprintf("internal error: %v", r)}))
				}
			}()
			res := process(detached, rec)
			if res.failed != nil {
				s.log.Warn("record failed in bulk run", "form", string(form), "recordId", rec.ID, "errors", res.failed.Errors)
			}
			collect(res)
		}()
	}
	wg.Wait()

	result.Summary = domain.BulkSummary{
		Total:     len(roster),
		Generated: len(result.Generated),
		Skipped:   len(result.Skipped),
		Errored:   len(result.Errors),
	}
	return result
}
