package forms_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csg33k/taxforms/internal/adapters/forms"
	"github.com/csg33k/taxforms/internal/adapters/forms/layout"
	"github.com/csg33k/taxforms/internal/domain"
)

func validPayer() *domain.PartyRecord {
	return &domain.PartyRecord{
		ID:        1,
		Role:      domain.RoleCompany,
		Name:      "Acme Consulting LLC",
		TaxID:     "12-3456789",
		TaxIDKind: domain.KindEIN,
		Address:   domain.Address{Street: "100 Main St", City: "Springfield", State: "IL", ZIP: "62701"},
		Phone:     "800-555-1234",
	}
}

func validRecipient() *domain.PartyRecord {
	return &domain.PartyRecord{
		ID:        2,
		CompanyID: 1,
		Role:      domain.RoleContractor,
		Name:      "John Smith",
		TaxID:     "123-45-6789",
		TaxIDKind: domain.KindSSN,
		Address:   domain.Address{Street: "9 Elm Ave", City: "Springfield", State: "IL", ZIP: "62702"},
	}
}

func validEmployee() *domain.PartyRecord {
	e := validRecipient()
	e.Role = domain.RoleEmployee
	e.Names = &domain.NameParts{First: "John", Last: "Smith"}
	return e
}

// ── CalculateTaxes ───────────────────────────────────────────────────────────

func TestCalculateTaxes(t *testing.T) {
	lay, ok := layout.ForYear(domain.FormW2, 2024)
	require.True(t, ok)

	got := forms.CalculateTaxes(5_000_000, lay) // $50,000
	assert.EqualValues(t, 310_000, got.SocialSecurityTaxCents, "$3,100.00")
	assert.EqualValues(t, 72_500, got.MedicareTaxCents, "$725.00")
	assert.EqualValues(t, 5_000_000, got.SocialSecurityWagesCents)
	assert.EqualValues(t, 5_000_000, got.MedicareWagesCents)
}

func TestCalculateTaxes_CapsAtWageBase(t *testing.T) {
	lay, _ := layout.ForYear(domain.FormW2, 2024)
	got := forms.CalculateTaxes(20_000_000, lay) // $200,000 > base
	assert.EqualValues(t, lay.SSWageBaseCents, got.SocialSecurityWagesCents)
	assert.EqualValues(t, 1_045_320, got.SocialSecurityTaxCents) // 6.2% of $168,600
	assert.EqualValues(t, 20_000_000, got.MedicareWagesCents)    // medicare is uncapped
}

// ── 1099-NEC ─────────────────────────────────────────────────────────────────

func TestNEC_Generate_EndToEnd(t *testing.T) {
	gen := forms.NewNEC(nil)
	facts := domain.PaymentFacts{NonemployeeCompCents: 75_000} // $750.00

	form, out, err := gen.Generate(validPayer(), validRecipient(), 2024, facts, forms.Options{})
	require.NoError(t, err)
	require.True(t, out.Valid(), "errors: %v", out.Errors)
	require.NotNil(t, form)

	assert.Empty(t, out.Warnings)
	assert.True(t, bytes.HasPrefix(form.Content, []byte("%PDF")), "content is not a PDF")
	assert.Equal(t, len(form.Content), form.Size)
	assert.Equal(t, domain.PDFContentType, form.ContentType)
	assert.Equal(t, "1099-NEC_2024_John_Smith.pdf", form.FileName)
	assert.EqualValues(t, 75_000, form.HeadlineAmountCents)
}

func TestNEC_BelowThreshold_WarnsButGenerates(t *testing.T) {
	gen := forms.NewNEC(nil)
	facts := domain.PaymentFacts{NonemployeeCompCents: 40_000} // $400.00

	prev, err := gen.Preview(validPayer(), validRecipient(), 2024, facts)
	require.NoError(t, err)
	assert.True(t, prev.Valid)
	assert.Contains(t, prev.Warnings, forms.BelowThresholdWarning)

	form, out, err := gen.Generate(validPayer(), validRecipient(), 2024, facts, forms.Options{})
	require.NoError(t, err)
	require.NotNil(t, form)
	assert.Contains(t, out.Warnings, forms.BelowThresholdWarning)
	assert.Contains(t, form.Warnings, forms.BelowThresholdWarning)
}

func TestNEC_StrictThreshold_Blocks(t *testing.T) {
	gen := forms.NewNEC(nil)
	facts := domain.PaymentFacts{NonemployeeCompCents: 40_000}

	form, out, err := gen.Generate(validPayer(), validRecipient(), 2024, facts, forms.Options{StrictThreshold: true})
	require.NoError(t, err)
	assert.Nil(t, form)
	assert.False(t, out.Valid())
	assert.Contains(t, out.Errors, forms.BelowThresholdWarning)
}

func TestNEC_MissingTaxID_FailsClosed(t *testing.T) {
	gen := forms.NewNEC(nil)
	rcpt := validRecipient()
	rcpt.TaxID = ""

	form, out, err := gen.Generate(validPayer(), rcpt, 2024, domain.PaymentFacts{NonemployeeCompCents: 75_000}, forms.Options{})
	require.NoError(t, err)
	assert.Nil(t, form, "no buffer may be produced on validation failure")
	require.False(t, out.Valid())

	found := false
	for _, e := range out.Errors {
		if strings.Contains(e, "Tax ID: SSN is required") {
			found = true
		}
	}
	assert.True(t, found, "errors: %v", out.Errors)
}

func TestNEC_IgnoreErrors_Overrides(t *testing.T) {
	gen := forms.NewNEC(nil)
	rcpt := validRecipient()
	rcpt.Address = domain.Address{}

	form, out, err := gen.Generate(validPayer(), rcpt, 2024, domain.PaymentFacts{NonemployeeCompCents: 75_000}, forms.Options{IgnoreErrors: true})
	require.NoError(t, err)
	assert.False(t, out.Valid())
	require.NotNil(t, form, "IgnoreErrors must still produce output")
	assert.True(t, bytes.HasPrefix(form.Content, []byte("%PDF")))
}

func TestNEC_NoPositiveAmount(t *testing.T) {
	gen := forms.NewNEC(nil)
	form, out, err := gen.Generate(validPayer(), validRecipient(), 2024, domain.PaymentFacts{}, forms.Options{})
	require.NoError(t, err)
	assert.Nil(t, form)
	assert.Contains(t, out.Errors, "at least one amount box must be greater than zero")
}

func TestNEC_UnknownYear_IsInfrastructureError(t *testing.T) {
	gen := forms.NewNEC(nil)
	_, _, err := gen.Generate(validPayer(), validRecipient(), 1999, domain.PaymentFacts{NonemployeeCompCents: 75_000}, forms.Options{})
	require.ErrorIs(t, err, forms.ErrNoLayout)
}

func TestNEC_Preview_IsIdempotentAndMasked(t *testing.T) {
	gen := forms.NewNEC(nil)
	facts := domain.PaymentFacts{NonemployeeCompCents: 123_456}

	a, err := gen.Preview(validPayer(), validRecipient(), 2024, facts)
	require.NoError(t, err)
	b, err := gen.Preview(validPayer(), validRecipient(), 2024, facts)
	require.NoError(t, err)

	assert.Equal(t, a, b, "preview must be deterministic")
	assert.Equal(t, "***-**-6789", a.Data["recipientTin"])
	assert.Equal(t, "**-***6789", a.Data["payerTin"])
	assert.Equal(t, "$1234.56", a.Data["box1NonemployeeComp"])
}

// ── 1099-MISC ────────────────────────────────────────────────────────────────

func TestMISC_Generate_UsesItsOwnBoxes(t *testing.T) {
	gen := forms.NewMISC(nil)
	facts := domain.PaymentFacts{RentsCents: 120_000, RoyaltiesCents: 5_000}

	form, out, err := gen.Generate(validPayer(), validRecipient(), 2024, facts, forms.Options{})
	require.NoError(t, err)
	require.True(t, out.Valid(), "errors: %v", out.Errors)
	require.NotNil(t, form)
	assert.Equal(t, domain.Form1099MISC, form.FormType)
	assert.EqualValues(t, 125_000, form.HeadlineAmountCents)
}

func TestMISC_NECAmountDoesNotCount(t *testing.T) {
	gen := forms.NewMISC(nil)
	// Nonemployee comp belongs on the NEC, not here.
	facts := domain.PaymentFacts{NonemployeeCompCents: 500_000}
	form, out, err := gen.Generate(validPayer(), validRecipient(), 2024, facts, forms.Options{})
	require.NoError(t, err)
	assert.Nil(t, form)
	assert.False(t, out.Valid())
}

// ── W-2 ──────────────────────────────────────────────────────────────────────

func TestW2_Generate_EndToEnd(t *testing.T) {
	gen := forms.NewW2(nil)
	lay, _ := layout.ForYear(domain.FormW2, 2024)
	facts := forms.CalculateTaxes(5_000_000, lay)
	facts.FederalWithheldCents = 600_000

	form, out, err := gen.Generate(validPayer(), validEmployee(), 2024, facts, forms.Options{})
	require.NoError(t, err)
	require.True(t, out.Valid(), "errors: %v", out.Errors)
	require.NotNil(t, form)
	assert.Empty(t, out.Warnings)
	assert.True(t, bytes.HasPrefix(form.Content, []byte("%PDF")))
	assert.Equal(t, "W-2_2024_John_Smith.pdf", form.FileName)
}

func TestW2_ReconciliationMismatch_IsWarningNotError(t *testing.T) {
	gen := forms.NewW2(nil)
	facts := domain.WageFacts{
		WagesCents:             5_000_000,
		SocialSecurityTaxCents: 310_000 + 150, // $1.50 off: outside tolerance
	}
	prev, err := gen.Preview(validPayer(), validEmployee(), 2024, facts)
	require.NoError(t, err)
	assert.True(t, prev.Valid, "mismatch must not block")
	require.NotEmpty(t, prev.Warnings)
	assert.Contains(t, prev.Warnings[0], "social security tax")
}

func TestW2_ReconciliationWithinTolerance_NoWarning(t *testing.T) {
	gen := forms.NewW2(nil)
	facts := domain.WageFacts{
		WagesCents:             5_000_000,
		SocialSecurityTaxCents: 310_000 + 99, // under $1 tolerance
		MedicareTaxCents:       72_500 - 99,
	}
	prev, err := gen.Preview(validPayer(), validEmployee(), 2024, facts)
	require.NoError(t, err)
	assert.Empty(t, prev.Warnings)
}

func TestW2_MedicareMismatchWarns(t *testing.T) {
	gen := forms.NewW2(nil)
	facts := domain.WageFacts{
		WagesCents:       5_000_000,
		MedicareTaxCents: 80_000,
	}
	prev, err := gen.Preview(validPayer(), validEmployee(), 2024, facts)
	require.NoError(t, err)
	assert.True(t, prev.Valid)
	require.NotEmpty(t, prev.Warnings)
	assert.Contains(t, prev.Warnings[0], "medicare tax")
}

func TestW2_WageBaseExceeded_Warns(t *testing.T) {
	gen := forms.NewW2(nil)
	facts := domain.WageFacts{WagesCents: 20_000_000}
	prev, err := gen.Preview(validPayer(), validEmployee(), 2024, facts)
	require.NoError(t, err)
	assert.True(t, prev.Valid)
	require.NotEmpty(t, prev.Warnings)
	assert.Contains(t, prev.Warnings[0], "wage base")
}

func TestW2_RequiresNameSplit(t *testing.T) {
	gen := forms.NewW2(nil)
	employee := validEmployee()
	employee.Names = nil

	form, out, err := gen.Generate(validPayer(), employee, 2024, domain.WageFacts{WagesCents: 5_000_000}, forms.Options{})
	require.NoError(t, err)
	assert.Nil(t, form)
	assert.Contains(t, out.Errors, "Employee name must be split into first and last name")
}

func TestW2_MissingWages(t *testing.T) {
	gen := forms.NewW2(nil)
	_, out, err := gen.Generate(validPayer(), validEmployee(), 2024, domain.WageFacts{}, forms.Options{})
	require.NoError(t, err)
	assert.Contains(t, out.Errors, "wage figure is required and must be greater than zero")
}

// ── Options ──────────────────────────────────────────────────────────────────

func TestGenerate_FlattenFalseStillProducesPDF(t *testing.T) {
	gen := forms.NewNEC(nil)
	noFlatten := false
	form, _, err := gen.Generate(validPayer(), validRecipient(), 2024, domain.PaymentFacts{NonemployeeCompCents: 75_000}, forms.Options{Flatten: &noFlatten})
	require.NoError(t, err)
	require.NotNil(t, form)
	assert.True(t, bytes.HasPrefix(form.Content, []byte("%PDF")))
}
