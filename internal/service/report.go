package service

import (
	"context"
	"fmt"

	"github.com/csg33k/taxforms/internal/adapters/forms/layout"
	"github.com/csg33k/taxforms/internal/domain"
	"github.com/csg33k/taxforms/internal/ports"
	"github.com/csg33k/taxforms/internal/taxid"
)

// Summary classifies a company's roster for a tax year: who is 1099-eligible
// (paid at or above the filing threshold), who has W-2 wages, which of those
// records lack a tax ID or a complete address, and the filing deadline.
func (s *Service) Summary(ctx context.Context, companyID int64, taxYear int) (*domain.YearSummary, error) {
	year := s.taxYear(taxYear)
	lay, ok := layout.ForYear(domain.Form1099NEC, year)
	if !ok {
		return nil, fmt.Errorf("no payroll constants for TY%d", year)
	}
	company, err := s.resolveCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	start, end := yearRange(year)

	summary := &domain.YearSummary{
		CompanyID:      company.ID,
		TaxYear:        year,
		FilingDeadline: layout.FilingDeadline(year),
	}

	contractors, err := s.ledger.ListRoster(ctx, company.ID, domain.RoleContractor)
	if err != nil {
		return nil, fmt.Errorf("list contractors: %w", err)
	}
	for i := range contractors {
		rec := &contractors[i]
		total, err := s.ledger.PaymentTotal(ctx, rec.ID, start, end, ports.KindExpense)
		if err != nil {
			return nil, fmt.Errorf("aggregate payments for %d: %w", rec.ID, err)
		}
		if total < lay.FilingThresholdCents {
			continue
		}
		addGroupMember(&summary.NEC, rec, total)
	}

	employees, err := s.ledger.ListRoster(ctx, company.ID, domain.RoleEmployee)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	for i := range employees {
		rec := &employees[i]
		wages, err := s.ledger.PaymentTotal(ctx, rec.ID, start, end, ports.KindPayroll)
		if err != nil {
			return nil, fmt.Errorf("aggregate wages for %d: %w", rec.ID, err)
		}
		if wages <= 0 {
			continue
		}
		addGroupMember(&summary.W2, rec, wages)
	}
	return summary, nil
}

func addGroupMember(g *domain.SummaryGroup, rec *domain.PartyRecord, cents int64) {
	g.Count++
	g.TotalCents += cents
	if !hasValidTaxID(rec) {
		g.MissingTaxID = append(g.MissingTaxID, rec.ID)
	}
	if !taxid.ValidateAddress(rec.Address).Complete {
		g.MissingAddress = append(g.MissingAddress, rec.ID)
	}
}

// MissingInfo filters a company's roster down to the records that could not
// be filed as-is, annotating each with the fields it lacks. role restricts
// the scan; empty means contractors and employees both.
func (s *Service) MissingInfo(ctx context.Context, companyID int64, role domain.Role) ([]domain.MissingInfo, error) {
	company, err := s.resolveCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	roles := []domain.Role{role}
	if role == "" {
		roles = []domain.Role{domain.RoleContractor, domain.RoleEmployee}
	}

	var out []domain.MissingInfo
	for _, r := range roles {
		roster, err := s.ledger.ListRoster(ctx, company.ID, r)
		if err != nil {
			return nil, fmt.Errorf("list %s roster: %w", r, err)
		}
		for i := range roster {
			rec := &roster[i]
			missing := missingFields(rec)
			if len(missing) == 0 {
				continue
			}
			out = append(out, domain.MissingInfo{
				RecordID: rec.ID,
				Name:     rec.Name,
				Role:     rec.Role,
				Missing:  missing,
			})
		}
	}
	return out, nil
}

func missingFields(rec *domain.PartyRecord) []string {
	var missing []string
	if !hasValidTaxID(rec) {
		missing = append(missing, "tax ID")
	}
	if addr := taxid.ValidateAddress(rec.Address); !addr.Complete {
		for _, f := range addr.Missing {
			missing = append(missing, "address "+f)
		}
	}
	// Only W-2s need the structured name split.
	if rec.Role == domain.RoleEmployee {
		if rec.Names == nil || rec.Names.First == "" || rec.Names.Last == "" {
			missing = append(missing, "first/last name split")
		}
	}
	return missing
}

func hasValidTaxID(rec *domain.PartyRecord) bool {
	kind := rec.TaxIDKind
	if kind == "" {
		kind = domain.KindSSN
	}
	return taxid.ValidateTaxID(rec.TaxID, kind).Valid
}
