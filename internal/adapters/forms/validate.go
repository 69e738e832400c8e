package forms

import (
	"errors"
	"fmt"
	"math"

	"github.com/csg33k/taxforms/internal/adapters/forms/layout"
	"github.com/csg33k/taxforms/internal/domain"
	"github.com/csg33k/taxforms/internal/taxid"
)

// ErrNoLayout means no field map exists for the requested form and tax year.
// It is an infrastructure failure, not a data-validation error, and aborts
// the whole operation.
var ErrNoLayout = errors.New("no form layout for tax year")

// reconcileTolCents is how far a supplied withholding figure may drift from
// the computed one before a reconciliation warning fires.
const reconcileTolCents = 100

// BelowThresholdWarning is the exact warning attached when a 1099 amount is
// under the filing threshold. The bulk runner and strict mode key off it.
const BelowThresholdWarning = "amount is below $600 threshold"

// validateParty collects the name, tax ID, and address problems for one side
// of a form. label is "Payer", "Recipient", "Employer", or "Employee".
// wantKind forces the identifier kind (payers must hold an EIN); empty means
// the record's declared kind, defaulting to SSN.
func validateParty(out *domain.ValidationOutcome, p *domain.PartyRecord, label string, wantKind domain.TaxIDKind) {
	if p.Name == "" {
		out.AddError(fmt.Sprintf("%s name is required", label))
	}

	kind := wantKind
	if kind == "" {
		kind = p.TaxIDKind
		if kind == "" {
			kind = domain.KindSSN
		}
	}
	if taxid.Normalize(p.TaxID) == "" {
		out.AddError(fmt.Sprintf("%s Tax ID: %s is required", label, kind))
	} else if r := taxid.ValidateTaxID(p.TaxID, kind); !r.Valid {
		out.AddError(fmt.Sprintf("%s Tax ID: %s", label, r.Err))
	}

	if addr := taxid.ValidateAddress(p.Address); !addr.Complete {
		for _, field := range addr.Missing {
			out.AddError(fmt.Sprintf("%s address is missing %s", label, field))
		}
	}
}

// amountChecks applies the shared 1099 amount rules: at least one positive
// box, the $600 filing-threshold warning, and the implausibly-large sanity
// warning.
func amountChecks(out *domain.ValidationOutcome, total int64, lay *layout.Layout, strict bool) {
	if total <= 0 {
		out.AddError("at least one amount box must be greater than zero")
		return
	}
	if total < lay.FilingThresholdCents {
		if strict {
			out.AddError(BelowThresholdWarning)
		} else {
			out.AddWarning(BelowThresholdWarning)
		}
	}
	if total > lay.SanityCapCents {
		out.AddWarning(fmt.Sprintf("amount %s exceeds $10,000,000; verify before filing", dollars(total)))
	}
}

// CalculateTaxes derives social-security and medicare wage and tax figures
// from gross wages, applying the year's statutory wage base and rates.
func CalculateTaxes(wagesCents int64, lay *layout.Layout) domain.WageFacts {
	ssWages := wagesCents
	if ssWages > lay.SSWageBaseCents {
		ssWages = lay.SSWageBaseCents
	}
	return domain.WageFacts{
		WagesCents:               wagesCents,
		SocialSecurityWagesCents: ssWages,
		SocialSecurityTaxCents:   roundRate(ssWages, lay.SSRate),
		MedicareWagesCents:       wagesCents,
		MedicareTaxCents:         roundRate(wagesCents, lay.MedicareRate),
	}
}

// reconcileWages applies the W-2 numeric reconciliation rules. Mismatches
// are warnings only: callers may intentionally override computed withholding.
func reconcileWages(out *domain.ValidationOutcome, facts *domain.WageFacts, lay *layout.Layout) {
	ssWages := facts.SocialSecurityWagesCents
	if ssWages == 0 {
		ssWages = facts.WagesCents
	}
	if ssWages > lay.SSWageBaseCents {
		out.AddWarning(fmt.Sprintf("social security wages exceed the %d wage base (%s) and are capped",
			lay.TaxYear, dollars(lay.SSWageBaseCents)))
		ssWages = lay.SSWageBaseCents
	}

	if facts.SocialSecurityTaxCents != 0 {
		expected := roundRate(ssWages, lay.SSRate)
		if diff(facts.SocialSecurityTaxCents, expected) > reconcileTolCents {
			out.AddWarning(fmt.Sprintf("social security tax %s does not match 6.2%% of capped wages (expected %s)",
				dollars(facts.SocialSecurityTaxCents), dollars(expected)))
		}
	}

	medWages := facts.MedicareWagesCents
	if medWages == 0 {
		medWages = facts.WagesCents
	}
	if facts.MedicareTaxCents != 0 {
		expected := roundRate(medWages, lay.MedicareRate)
		if diff(facts.MedicareTaxCents, expected) > reconcileTolCents {
			out.AddWarning(fmt.Sprintf("medicare tax %s does not match 1.45%% of medicare wages (expected %s)",
				dollars(facts.MedicareTaxCents), dollars(expected)))
		}
	}
}

func roundRate(cents int64, rate float64) int64 {
	return int64(math.Round(float64(cents) * rate))
}

func diff(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}
