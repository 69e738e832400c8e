package forms

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/csg33k/taxforms/internal/adapters/forms/layout"
	"github.com/csg33k/taxforms/internal/domain"
	"github.com/csg33k/taxforms/internal/taxid"
)

// Form1099 generates 1099-NEC or 1099-MISC forms depending on its variant.
// The two variants share validation and differ only in which amount boxes
// they report and where the layout places them.
type Form1099 struct {
	form domain.FormType
	log  *slog.Logger
}

// NewNEC returns a 1099-NEC generator.
func NewNEC(log *slog.Logger) *Form1099 {
	if log == nil {
		log = slog.Default()
	}
	return &Form1099{form: domain.Form1099NEC, log: log}
}

// NewMISC returns a 1099-MISC generator.
func NewMISC(log *slog.Logger) *Form1099 {
	if log == nil {
		log = slog.Default()
	}
	return &Form1099{form: domain.Form1099MISC, log: log}
}

// FormType reports the variant this generator produces.
func (g *Form1099) FormType() domain.FormType { return g.form }

// reportable returns the variant's income total (withholding excluded).
func (g *Form1099) reportable(facts domain.PaymentFacts) int64 {
	if g.form == domain.Form1099NEC {
		return facts.NonemployeeCompCents
	}
	return facts.RentsCents + facts.RoyaltiesCents + facts.OtherIncomeCents
}

// validate runs the full rule set for one payer/recipient/amount triple.
func (g *Form1099) validate(payer, rcpt *domain.PartyRecord, facts domain.PaymentFacts, lay *layout.Layout, strict bool) domain.ValidationOutcome {
	var out domain.ValidationOutcome
	validateParty(&out, payer, "Payer", domain.KindEIN)
	validateParty(&out, rcpt, "Recipient", "")
	amountChecks(&out, g.reportable(facts), lay, strict)
	return out
}

// Preview validates and returns a display-only report. It never touches a
// template resource and exposes identifiers masked to their last 4 digits.
func (g *Form1099) Preview(payer, rcpt *domain.PartyRecord, year int, facts domain.PaymentFacts) (*domain.FormPreview, error) {
	lay, ok := layout.ForYear(g.form, year)
	if !ok {
		return nil, fmt.Errorf("%w: %s TY%d", ErrNoLayout, g.form, year)
	}
	out := g.validate(payer, rcpt, facts, lay, false)

	rcptKind := rcpt.TaxIDKind
	if rcptKind == "" {
		rcptKind = domain.KindSSN
	}
	data := map[string]string{
		"payerName":        payer.Name,
		"payerTin":         taxid.MaskTaxID(payer.TaxID, domain.KindEIN),
		"payerAddress":     taxid.FormatAddress(payer.Address),
		"recipientName":    rcpt.Name,
		"recipientTin":     taxid.MaskTaxID(rcpt.TaxID, rcptKind),
		"recipientAddress": taxid.FormatAddress(rcpt.Address),
		"federalWithheld":  dollars(facts.FederalWithheldCents),
		"total":            dollars(g.reportable(facts)),
	}
	if g.form == domain.Form1099NEC {
		data["box1NonemployeeComp"] = dollars(facts.NonemployeeCompCents)
	} else {
		data["box1Rents"] = dollars(facts.RentsCents)
		data["box2Royalties"] = dollars(facts.RoyaltiesCents)
		data["box3OtherIncome"] = dollars(facts.OtherIncomeCents)
	}

	return &domain.FormPreview{
		FormType: g.form,
		TaxYear:  year,
		Valid:    out.Valid(),
		Errors:   out.Errors,
		Warnings: out.Warnings,
		Data:     data,
	}, nil
}

// Generate validates, then fills and serializes the form. When validation
// fails and opts.IgnoreErrors is unset it returns before touching the layout
// drawing path (fail-closed). The error return is reserved for
// infrastructure failures; validation problems live in the outcome.
func (g *Form1099) Generate(payer, rcpt *domain.PartyRecord, year int, facts domain.PaymentFacts, opts Options) (*domain.GeneratedForm, domain.ValidationOutcome, error) {
	lay, ok := layout.ForYear(g.form, year)
	if !ok {
		return nil, domain.ValidationOutcome{}, fmt.Errorf("%w: %s TY%d", ErrNoLayout, g.form, year)
	}
	out := g.validate(payer, rcpt, facts, lay, opts.StrictThreshold)
	if !out.Valid() && !opts.IgnoreErrors {
		return nil, out, nil
	}

	f := newFiller(lay, g.log)
	f.header(fmt.Sprintf("FORM %s  %s", g.form, formTitle(g.form)), "Copy B — For Recipient")
	f.trySet(layout.CalendarYear, strconv.Itoa(year))
	f.trySet(layout.PayerName, payer.Name)
	f.trySet(layout.PayerAddress, taxid.FormatAddress(payer.Address))
	f.trySet(layout.PayerPhone, payer.Phone)
	f.trySet(layout.PayerTIN, formatted(payer.TaxID, domain.KindEIN))
	rcptKind := rcpt.TaxIDKind
	if rcptKind == "" {
		rcptKind = domain.KindSSN
	}
	f.trySet(layout.RecipientTIN, formatted(rcpt.TaxID, rcptKind))
	f.trySet(layout.RecipientName, rcpt.Name)
	f.trySet(layout.RecipientAddress, taxid.FormatAddress(rcpt.Address))
	f.trySet(layout.AccountNumber, rcpt.ControlNumber)

	if g.form == domain.Form1099NEC {
		f.trySet(layout.NECBox1Compensation, centsToDisplay(facts.NonemployeeCompCents))
		if facts.FederalWithheldCents > 0 {
			f.trySet(layout.NECBox4FedWithheld, centsToDisplay(facts.FederalWithheldCents))
		}
		g.fillStateRows(f, payer, facts.States,
			[2]layout.BoxKey{layout.NECBox5StateTax1, layout.NECBox5StateTax2},
			[2]layout.BoxKey{layout.NECBox6StateID1, layout.NECBox6StateID2},
			[2]layout.BoxKey{layout.NECBox7StateIncome1, layout.NECBox7StateIncome2})
	} else {
		if facts.RentsCents > 0 {
			f.trySet(layout.MISCBox1Rents, centsToDisplay(facts.RentsCents))
		}
		if facts.RoyaltiesCents > 0 {
			f.trySet(layout.MISCBox2Royalties, centsToDisplay(facts.RoyaltiesCents))
		}
		if facts.OtherIncomeCents > 0 {
			f.trySet(layout.MISCBox3OtherIncome, centsToDisplay(facts.OtherIncomeCents))
		}
		if facts.FederalWithheldCents > 0 {
			f.trySet(layout.MISCBox4FedWithheld, centsToDisplay(facts.FederalWithheldCents))
		}
		g.fillStateRows(f, payer, facts.States,
			[2]layout.BoxKey{layout.MISCBox16StateTax1, layout.MISCBox16StateTax2},
			[2]layout.BoxKey{layout.MISCBox17StateID1, layout.MISCBox17StateID2},
			[2]layout.BoxKey{layout.MISCBox18StateIncome1, layout.MISCBox18StateIncome2})
	}
	f.footer(payer.Name)

	content, err := f.output(opts.flatten())
	if err != nil {
		return nil, out, err
	}
	return &domain.GeneratedForm{
		FormType:            g.form,
		TaxYear:             year,
		Content:             content,
		Size:                len(content),
		ContentType:         domain.PDFContentType,
		FileName:            fileName(g.form, year, rcpt.Name),
		RecipientName:       rcpt.Name,
		HeadlineAmountCents: g.reportable(facts),
		Warnings:            out.Warnings,
	}, out, nil
}

// fillStateRows writes up to two state tax rows. Rows beyond what this
// year's revision prints are dropped by trySet.
func (g *Form1099) fillStateRows(f *filler, payer *domain.PartyRecord, rows []domain.StateTaxRow, tax, id, income [2]layout.BoxKey) {
	for i, row := range rows {
		if i >= 2 {
			g.log.Warn("more than two state rows; extra rows dropped",
				"form", string(g.form), "states", len(rows))
			return
		}
		if row.WithheldCents > 0 {
			f.trySet(tax[i], centsToDisplay(row.WithheldCents))
		}
		stateID := row.PayerStateID
		if stateID == "" {
			stateID = payer.StateID(row.State)
		}
		f.trySet(id[i], fmt.Sprintf("%s / %s", row.State, stateID))
		if row.IncomeCents > 0 {
			f.trySet(income[i], centsToDisplay(row.IncomeCents))
		}
	}
}

func formTitle(form domain.FormType) string {
	if form == domain.Form1099NEC {
		return "NONEMPLOYEE COMPENSATION"
	}
	return "MISCELLANEOUS INFORMATION"
}

// formatted returns the canonical dashed form of an identifier when it
// validates, or the raw input otherwise. Filed documents carry the full
// identifier; masking is preview-only.
func formatted(raw string, kind domain.TaxIDKind) string {
	if r := taxid.ValidateTaxID(raw, kind); r.Valid {
		return r.Formatted
	}
	return raw
}
