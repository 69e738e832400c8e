package forms

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/csg33k/taxforms/internal/adapters/forms/layout"
	"github.com/csg33k/taxforms/internal/domain"
	"github.com/csg33k/taxforms/internal/taxid"
)

// W2 generates Wage and Tax Statement forms.
type W2 struct {
	log *slog.Logger
}

// NewW2 returns a W-2 generator.
func NewW2(log *slog.Logger) *W2 {
	if log == nil {
		log = slog.Default()
	}
	return &W2{log: log}
}

// FormType reports domain.FormW2.
func (g *W2) FormType() domain.FormType { return domain.FormW2 }

// validate runs the W-2 rule set: employer EIN, employee SSN, complete
// addresses, a structured name split, a positive wage figure, and the
// withholding reconciliation warnings.
func (g *W2) validate(employer, employee *domain.PartyRecord, facts domain.WageFacts, lay *layout.Layout) domain.ValidationOutcome {
	var out domain.ValidationOutcome
	validateParty(&out, employer, "Employer", domain.KindEIN)
	validateParty(&out, employee, "Employee", domain.KindSSN)
	if employee.Names == nil || employee.Names.First == "" || employee.Names.Last == "" {
		out.AddError("Employee name must be split into first and last name")
	}
	if facts.WagesCents <= 0 {
		out.AddError("wage figure is required and must be greater than zero")
	} else {
		reconcileWages(&out, &facts, lay)
	}
	return out
}

// Preview validates and returns a display-only report with masked
// identifiers. Never touches a template resource.
func (g *W2) Preview(employer, employee *domain.PartyRecord, year int, facts domain.WageFacts) (*domain.FormPreview, error) {
	lay, ok := layout.ForYear(domain.FormW2, year)
	if !ok {
		return nil, fmt.Errorf("%w: %s TY%d", ErrNoLayout, domain.FormW2, year)
	}
	out := g.validate(employer, employee, facts, lay)

	data := map[string]string{
		"employerName":      employer.Name,
		"employerEin":       taxid.MaskTaxID(employer.TaxID, domain.KindEIN),
		"employerAddress":   taxid.FormatAddress(employer.Address),
		"employeeName":      employee.Name,
		"employeeSsn":       taxid.MaskTaxID(employee.TaxID, domain.KindSSN),
		"employeeAddress":   taxid.FormatAddress(employee.Address),
		"box1Wages":         dollars(facts.WagesCents),
		"box2FedWithheld":   dollars(facts.FederalWithheldCents),
		"box3SsWages":       dollars(facts.SocialSecurityWagesCents),
		"box4SsTax":         dollars(facts.SocialSecurityTaxCents),
		"box5MedicareWages": dollars(facts.MedicareWagesCents),
		"box6MedicareTax":   dollars(facts.MedicareTaxCents),
	}

	return &domain.FormPreview{
		FormType: domain.FormW2,
		TaxYear:  year,
		Valid:    out.Valid(),
		Errors:   out.Errors,
		Warnings: out.Warnings,
		Data:     data,
	}, nil
}

// Generate validates, then fills and serializes the W-2. Fail-closed unless
// opts.IgnoreErrors; the error return is infrastructure-only.
func (g *W2) Generate(employer, employee *domain.PartyRecord, year int, facts domain.WageFacts, opts Options) (*domain.GeneratedForm, domain.ValidationOutcome, error) {
	lay, ok := layout.ForYear(domain.FormW2, year)
	if !ok {
		return nil, domain.ValidationOutcome{}, fmt.Errorf("%w: %s TY%d", ErrNoLayout, domain.FormW2, year)
	}
	out := g.validate(employer, employee, facts, lay)
	if !out.Valid() && !opts.IgnoreErrors {
		return nil, out, nil
	}

	f := newFiller(lay, g.log)
	f.header("FORM W-2  WAGE AND TAX STATEMENT", "Copy B — To Be Filed With Employee's Tax Return")
	f.trySet(layout.CalendarYear, strconv.Itoa(year))
	f.trySet(layout.W2BoxASSN, formatted(employee.TaxID, domain.KindSSN))
	f.trySet(layout.W2BoxBEIN, formatted(employer.TaxID, domain.KindEIN))
	f.trySet(layout.W2BoxCEmployer, employer.Name+" — "+taxid.FormatAddress(employer.Address))
	f.trySet(layout.W2BoxDControl, employee.ControlNumber)
	f.trySet(layout.W2BoxEEmployeeName, employeeDisplayName(employee))
	f.trySet(layout.W2BoxFEmployeeAddr, taxid.FormatAddress(employee.Address))

	f.trySet(layout.W2Box1Wages, centsToDisplay(facts.WagesCents))
	f.trySet(layout.W2Box2FedWithheld, centsToDisplay(facts.FederalWithheldCents))
	f.trySet(layout.W2Box3SSWages, centsToDisplay(cappedSSWages(facts, lay)))
	f.trySet(layout.W2Box4SSTax, centsToDisplay(facts.SocialSecurityTaxCents))
	f.trySet(layout.W2Box5MedWages, centsToDisplay(medicareWages(facts)))
	f.trySet(layout.W2Box6MedTax, centsToDisplay(facts.MedicareTaxCents))
	if facts.SocialSecurityTipsCents > 0 {
		f.trySet(layout.W2Box7SSTips, centsToDisplay(facts.SocialSecurityTipsCents))
	}
	if facts.AllocatedTipsCents > 0 {
		f.trySet(layout.W2Box8AllocTips, centsToDisplay(facts.AllocatedTipsCents))
	}
	if facts.DependentCareCents > 0 {
		f.trySet(layout.W2Box10DepCare, centsToDisplay(facts.DependentCareCents))
	}
	if facts.DeferredCompCents > 0 {
		f.trySet(layout.W2Box12aDeferred, "D "+centsToDisplay(facts.DeferredCompCents))
	}

	stateKeys := [2][4]layout.BoxKey{
		{layout.W2Box15State1, layout.W2Box15StateID1, layout.W2Box16StateWages1, layout.W2Box17StateTax1},
		{layout.W2Box15State2, layout.W2Box15StateID2, layout.W2Box16StateWages2, layout.W2Box17StateTax2},
	}
	for i, row := range facts.States {
		if i >= 2 {
			g.log.Warn("more than two W-2 state rows; extra rows dropped", "states", len(facts.States))
			break
		}
		stateID := row.PayerStateID
		if stateID == "" {
			stateID = employer.StateID(row.State)
		}
		f.trySet(stateKeys[i][0], row.State)
		f.trySet(stateKeys[i][1], stateID)
		f.trySet(stateKeys[i][2], centsToDisplay(row.IncomeCents))
		f.trySet(stateKeys[i][3], centsToDisplay(row.WithheldCents))
	}

	localKeys := [2][3]layout.BoxKey{
		{layout.W2Box18LocalWages1, layout.W2Box19LocalTax1, layout.W2Box20Locality1},
		{layout.W2Box18LocalWages2, layout.W2Box19LocalTax2, layout.W2Box20Locality2},
	}
	for i, row := range facts.Locals {
		if i >= 2 {
			g.log.Warn("more than two W-2 locality rows; extra rows dropped", "localities", len(facts.Locals))
			break
		}
		f.trySet(localKeys[i][0], centsToDisplay(row.WagesCents))
		f.trySet(localKeys[i][1], centsToDisplay(row.WithheldCents))
		f.trySet(localKeys[i][2], row.Locality)
	}
	f.footer(employer.Name)

	content, err := f.output(opts.flatten())
	if err != nil {
		return nil, out, err
	}
	return &domain.GeneratedForm{
		FormType:            domain.FormW2,
		TaxYear:             year,
		Content:             content,
		Size:                len(content),
		ContentType:         domain.PDFContentType,
		FileName:            fileName(domain.FormW2, year, employee.Name),
		RecipientName:       employee.Name,
		HeadlineAmountCents: facts.WagesCents,
		Warnings:            out.Warnings,
	}, out, nil
}

func cappedSSWages(facts domain.WageFacts, lay *layout.Layout) int64 {
	w := facts.SocialSecurityWagesCents
	if w == 0 {
		w = facts.WagesCents
	}
	if w > lay.SSWageBaseCents {
		w = lay.SSWageBaseCents
	}
	return w
}

func medicareWages(facts domain.WageFacts) int64 {
	if facts.MedicareWagesCents != 0 {
		return facts.MedicareWagesCents
	}
	return facts.WagesCents
}

func employeeDisplayName(e *domain.PartyRecord) string {
	n := e.Names
	if n == nil {
		return e.Name
	}
	parts := []string{n.First}
	if n.Middle != "" {
		parts = append(parts, n.Middle[:1]+".")
	}
	parts = append(parts, n.Last)
	if n.Suffix != "" {
		parts = append(parts, n.Suffix)
	}
	return strings.Join(parts, " ")
}
