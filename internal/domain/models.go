package domain

import "time"

// FormType identifies which year-end form a generator produces.
type FormType string

const (
	Form1099NEC  FormType = "1099-NEC"
	Form1099MISC FormType = "1099-MISC"
	FormW2       FormType = "W-2"
)

// TaxIDKind distinguishes the two 9-digit identifier formats.
type TaxIDKind string

const (
	KindSSN TaxIDKind = "SSN"
	KindEIN TaxIDKind = "EIN"
)

// Role tags a PartyRecord with how the bookkeeping layer classifies it.
type Role string

const (
	RoleCompany    Role = "company"
	RoleContractor Role = "contractor"
	RoleEmployee   Role = "employee"
)

// Address is a US mailing address. Completeness (all four parts present,
// 2-letter state, 5-digit or ZIP+4 code) is judged by taxid.ValidateAddress.
type Address struct {
	Street string
	City   string
	State  string
	ZIP    string
}

// NameParts is the structured first/middle/last split required on a W-2.
type NameParts struct {
	First  string
	Middle string
	Last   string
	Suffix string
}

// StateRegistration pairs a state with the payer's registration number there.
type StateRegistration struct {
	State string
	ID    string
}

// WithholdingMeta is optional payroll metadata stored on an employee record,
// used when deriving WageFacts from a ledger aggregate.
type WithholdingMeta struct {
	FederalRate float64 // e.g. 0.12
	StateRate   float64
	State       string
}

// PartyRecord is a payer/company or recipient/payee/employee as handed to the
// core by the persistence layer. The core treats it as a read-only value.
type PartyRecord struct {
	ID        int64
	CompanyID int64 // owning company for recipients; 0 for companies
	Role      Role

	Name      string
	TaxID     string
	TaxIDKind TaxIDKind
	Address   Address
	Phone     string

	// W-2 extras
	Names         *NameParts
	ControlNumber string
	StateIDs      []StateRegistration
	Withholding   *WithholdingMeta

	CreatedAt time.Time
	UpdatedAt time.Time
}

// StateID returns the party's registration number for a state, or "".
func (p *PartyRecord) StateID(state string) string {
	for _, r := range p.StateIDs {
		if r.State == state {
			return r.ID
		}
	}
	return ""
}

// StateTaxRow is one state income/withholding pair. Up to two per form.
type StateTaxRow struct {
	State         string
	PayerStateID  string
	IncomeCents   int64
	WithheldCents int64
}

// LocalTaxRow is one locality wage/withholding pair on a W-2. Up to two.
type LocalTaxRow struct {
	Locality      string
	WagesCents    int64
	WithheldCents int64
}

// PaymentFacts carries the box amounts for a 1099-NEC or 1099-MISC.
// All amounts are integer cents. Immutable once passed to a generator.
type PaymentFacts struct {
	NonemployeeCompCents int64 // NEC box 1
	RentsCents           int64 // MISC box 1
	RoyaltiesCents       int64 // MISC box 2
	OtherIncomeCents     int64 // MISC box 3
	FederalWithheldCents int64
	States               []StateTaxRow
}

// Total returns the sum of the reportable income boxes (withholding excluded).
func (f PaymentFacts) Total() int64 {
	return f.NonemployeeCompCents + f.RentsCents + f.RoyaltiesCents + f.OtherIncomeCents
}

// WageFacts carries the box amounts for a W-2, in cents.
type WageFacts struct {
	WagesCents               int64 // box 1
	FederalWithheldCents     int64 // box 2
	SocialSecurityWagesCents int64 // box 3
	SocialSecurityTaxCents   int64 // box 4
	MedicareWagesCents       int64 // box 5
	MedicareTaxCents         int64 // box 6
	SocialSecurityTipsCents  int64 // box 7
	AllocatedTipsCents       int64 // box 8
	DependentCareCents       int64 // box 10
	DeferredCompCents        int64 // box 12, code D
	States                   []StateTaxRow
	Locals                   []LocalTaxRow
}

// ValidationOutcome separates blocking errors from informational warnings.
type ValidationOutcome struct {
	Errors   []string
	Warnings []string
}

func (v *ValidationOutcome) AddError(msg string)   { v.Errors = append(v.Errors, msg) }
func (v *ValidationOutcome) AddWarning(msg string) { v.Warnings = append(v.Warnings, msg) }

// Valid reports whether generation may proceed: true iff Errors is empty.
func (v *ValidationOutcome) Valid() bool { return len(v.Errors) == 0 }

// FormPreview is the non-mutating dry-run result. Data holds only masked
// identifiers, formatted addresses, and display-string amounts.
type FormPreview struct {
	FormType FormType          `json:"formType"`
	TaxYear  int               `json:"taxYear"`
	Valid    bool              `json:"isValid"`
	Errors   []string          `json:"errors"`
	Warnings []string          `json:"warnings"`
	Data     map[string]string `json:"data"`
}

// PDFContentType is the content type of every generated form.
const PDFContentType = "application/pdf"

// GeneratedForm is a filled, serialized form ready for download.
type GeneratedForm struct {
	FormType            FormType `json:"formType"`
	TaxYear             int      `json:"taxYear"`
	Content             []byte   `json:"-"`
	Size                int      `json:"size"`
	ContentType         string   `json:"contentType"`
	FileName            string   `json:"fileName"`
	RecipientName       string   `json:"recipientName"`
	HeadlineAmountCents int64    `json:"headlineAmountCents"`
	Warnings            []string `json:"warnings"`
}

// GeneratedRecord ties a generated form back to its roster record.
type GeneratedRecord struct {
	RecordID int64          `json:"recordId"`
	Form     *GeneratedForm `json:"form"`
}

// SkippedRecord explains why a roster record produced no form.
type SkippedRecord struct {
	RecordID int64  `json:"recordId"`
	Reason   string `json:"reason"`
}

// FailedRecord carries the validation errors for one roster record.
type FailedRecord struct {
	RecordID int64    `json:"recordId"`
	Errors   []string `json:"errors"`
}

// BulkSummary counts are computed only after every record has been attempted.
type BulkSummary struct {
	Total     int `json:"total"`
	Generated int `json:"generatedCount"`
	Skipped   int `json:"skippedCount"`
	Errored   int `json:"errorCount"`
}

// BulkRunResult partitions a roster run: every input record id appears in
// exactly one of Generated, Skipped, or Errors.
type BulkRunResult struct {
	RunID     string            `json:"runId"`
	FormType  FormType          `json:"formType"`
	TaxYear   int               `json:"taxYear"`
	Generated []GeneratedRecord `json:"generated"`
	Skipped   []SkippedRecord   `json:"skipped"`
	Errors    []FailedRecord    `json:"errors"`
	Summary   BulkSummary       `json:"summary"`
}

// SummaryGroup aggregates one class of recipients in a year summary.
type SummaryGroup struct {
	Count          int     `json:"count"`
	TotalCents     int64   `json:"totalCents"`
	MissingTaxID   []int64 `json:"missingTaxId"`
	MissingAddress []int64 `json:"missingAddress"`
}

// YearSummary classifies a company's roster for a tax year.
type YearSummary struct {
	CompanyID      int64        `json:"companyId"`
	TaxYear        int          `json:"taxYear"`
	NEC            SummaryGroup `json:"eligible1099"`
	W2             SummaryGroup `json:"w2Wages"`
	FilingDeadline time.Time    `json:"filingDeadline"`
}

// MissingInfo annotates a roster record with the fields it lacks.
type MissingInfo struct {
	RecordID int64    `json:"recordId"`
	Name     string   `json:"name"`
	Role     Role     `json:"role"`
	Missing  []string `json:"missing"`
}
