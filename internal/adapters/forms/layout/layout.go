// Package layout defines the per-year box layouts for the printable 1099-NEC,
// 1099-MISC, and W-2 forms, plus the payroll constants that change with each
// tax year. The tables here are the single point of change when a form
// revision moves a box; generators never hard-code positions.
//
// Coordinates are millimeters on a portrait Letter page.
package layout

import (
	"sort"
	"time"

	"github.com/csg33k/taxforms/internal/domain"
)

// BoxKey is the logical name of a form box, stable across form-year
// revisions even when the printed position moves.
type BoxKey string

// Keys shared by every form variant.
const (
	PayerName        BoxKey = "payer_name"
	PayerAddress     BoxKey = "payer_address"
	PayerPhone       BoxKey = "payer_phone"
	PayerTIN         BoxKey = "payer_tin"
	RecipientTIN     BoxKey = "recipient_tin"
	RecipientName    BoxKey = "recipient_name"
	RecipientAddress BoxKey = "recipient_address"
	AccountNumber    BoxKey = "account_number"
	CalendarYear     BoxKey = "calendar_year"
)

// 1099-NEC keys.
const (
	NECBox1Compensation BoxKey = "nec_box1_nonemployee_comp"
	NECBox4FedWithheld  BoxKey = "nec_box4_fed_withheld"
	NECBox5StateTax1    BoxKey = "nec_box5_state_tax_1"
	NECBox5StateTax2    BoxKey = "nec_box5_state_tax_2"
	NECBox6StateID1     BoxKey = "nec_box6_state_payer_id_1"
	NECBox6StateID2     BoxKey = "nec_box6_state_payer_id_2"
	NECBox7StateIncome1 BoxKey = "nec_box7_state_income_1"
	NECBox7StateIncome2 BoxKey = "nec_box7_state_income_2"
)

// 1099-MISC keys.
const (
	MISCBox1Rents         BoxKey = "misc_box1_rents"
	MISCBox2Royalties     BoxKey = "misc_box2_royalties"
	MISCBox3OtherIncome   BoxKey = "misc_box3_other_income"
	MISCBox4FedWithheld   BoxKey = "misc_box4_fed_withheld"
	MISCBox16StateTax1    BoxKey = "misc_box16_state_tax_1"
	MISCBox16StateTax2    BoxKey = "misc_box16_state_tax_2"
	MISCBox17StateID1     BoxKey = "misc_box17_state_payer_id_1"
	MISCBox17StateID2     BoxKey = "misc_box17_state_payer_id_2"
	MISCBox18StateIncome1 BoxKey = "misc_box18_state_income_1"
	MISCBox18StateIncome2 BoxKey = "misc_box18_state_income_2"
)

// W-2 keys.
const (
	W2BoxASSN          BoxKey = "w2_box_a_ssn"
	W2BoxBEIN          BoxKey = "w2_box_b_ein"
	W2BoxCEmployer     BoxKey = "w2_box_c_employer"
	W2BoxDControl      BoxKey = "w2_box_d_control"
	W2BoxEEmployeeName BoxKey = "w2_box_e_employee_name"
	W2BoxFEmployeeAddr BoxKey = "w2_box_f_employee_addr"
	W2Box1Wages        BoxKey = "w2_box1_wages"
	W2Box2FedWithheld  BoxKey = "w2_box2_fed_withheld"
	W2Box3SSWages      BoxKey = "w2_box3_ss_wages"
	W2Box4SSTax        BoxKey = "w2_box4_ss_tax"
	W2Box5MedWages     BoxKey = "w2_box5_medicare_wages"
	W2Box6MedTax       BoxKey = "w2_box6_medicare_tax"
	W2Box7SSTips       BoxKey = "w2_box7_ss_tips"
	W2Box8AllocTips    BoxKey = "w2_box8_allocated_tips"
	W2Box10DepCare     BoxKey = "w2_box10_dependent_care"
	W2Box12aDeferred   BoxKey = "w2_box12a_deferred_comp"
	W2Box15State1      BoxKey = "w2_box15_state_1"
	W2Box15State2      BoxKey = "w2_box15_state_2"
	W2Box15StateID1    BoxKey = "w2_box15_state_id_1"
	W2Box15StateID2    BoxKey = "w2_box15_state_id_2"
	W2Box16StateWages1 BoxKey = "w2_box16_state_wages_1"
	W2Box16StateWages2 BoxKey = "w2_box16_state_wages_2"
	W2Box17StateTax1   BoxKey = "w2_box17_state_tax_1"
	W2Box17StateTax2   BoxKey = "w2_box17_state_tax_2"
	W2Box18LocalWages1 BoxKey = "w2_box18_local_wages_1"
	W2Box18LocalWages2 BoxKey = "w2_box18_local_wages_2"
	W2Box19LocalTax1   BoxKey = "w2_box19_local_tax_1"
	W2Box19LocalTax2   BoxKey = "w2_box19_local_tax_2"
	W2Box20Locality1   BoxKey = "w2_box20_locality_1"
	W2Box20Locality2   BoxKey = "w2_box20_locality_2"
)

// Locator positions one box value on the page. Label is the printed caption
// drawn above the value so the rendered form is self-describing.
type Locator struct {
	X, Y  float64
	W, H  float64
	Size  float64
	Align string // "L" or "R"
	Style string // "" or "B"
	Label string
}

// Layout is the complete field map for one form variant in one tax year,
// together with that year's payroll constants.
type Layout struct {
	Form    domain.FormType
	TaxYear int
	Boxes   map[BoxKey]Locator

	FilingThresholdCents int64
	SSWageBaseCents      int64
	SSRate               float64
	MedicareRate         float64
	SanityCapCents       int64
}

// Lookup returns the locator for a box, with ok=false when this year's
// revision does not carry the box. A miss is never an error: the filler
// skips the box and continues.
func (l *Layout) Lookup(key BoxKey) (Locator, bool) {
	loc, ok := l.Boxes[key]
	return loc, ok
}

// FilingDeadline is the January 31 deadline for filing year-end forms for
// the given tax year (i.e. January 31 of the following year).
func FilingDeadline(taxYear int) time.Time {
	return time.Date(taxYear+1, time.January, 31, 0, 0, 0, 0, time.UTC)
}

// DefaultYear is the layout used when no exact year table exists.
const DefaultYear = 2024

var registry = map[domain.FormType]map[int]*Layout{
	domain.Form1099NEC: {
		2022: nec(2022),
		2023: nec(2023),
		2024: nec(2024),
		2025: nec(2025),
	},
	domain.Form1099MISC: {
		2022: misc(2022),
		2023: misc(2023),
		2024: misc(2024),
		2025: misc(2025),
	},
	domain.FormW2: {
		2022: w2(2022),
		2023: w2(2023),
		2024: w2(2024),
		2025: w2(2025),
	},
}

// ForYear returns the layout for a form and tax year. ok is false when no
// table exists for that year; callers treat that as a hard infrastructure
// error rather than falling back silently.
func ForYear(form domain.FormType, year int) (*Layout, bool) {
	byYear, ok := registry[form]
	if !ok {
		return nil, false
	}
	l, ok := byYear[year]
	return l, ok
}

// Supported returns the tax years with layout tables, ascending.
func Supported() []int {
	seen := map[int]bool{}
	for _, byYear := range registry {
		for y := range byYear {
			seen[y] = true
		}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// ── Per-year constants ───────────────────────────────────────────────────────

// The filing threshold has been $600 since 1954; the wage base moves yearly.
const filingThresholdCents = 60_000
const sanityCapCents = 1_000_000_000 // $10,000,000

func wageBaseCents(year int) int64 {
	switch year {
	case 2022:
		return 14_700_000
	case 2023:
		return 16_020_000
	case 2024:
		return 16_860_000
	case 2025:
		return 17_610_000
	default:
		return 16_860_000
	}
}

func constants(l *Layout, year int) *Layout {
	l.TaxYear = year
	l.FilingThresholdCents = filingThresholdCents
	l.SSWageBaseCents = wageBaseCents(year)
	l.SSRate = 0.062
	l.MedicareRate = 0.0145
	l.SanityCapCents = sanityCapCents
	return l
}

// ── Locator helpers ──────────────────────────────────────────────────────────

func text(x, y, w float64, label string) Locator {
	return Locator{X: x, Y: y, W: w, H: 5, Size: 9, Align: "L", Label: label}
}

func amount(x, y, w float64, label string) Locator {
	return Locator{X: x, Y: y, W: w, H: 5, Size: 9, Align: "R", Label: label}
}

func heading(x, y, w float64, label string) Locator {
	return Locator{X: x, Y: y, W: w, H: 6, Size: 10, Align: "L", Style: "B", Label: label}
}

// ── 1099-NEC ─────────────────────────────────────────────────────────────────

func nec(year int) *Layout {
	boxes := map[BoxKey]Locator{
		PayerName:        heading(14, 34, 90, "PAYER'S name, street address, city, state, ZIP"),
		PayerAddress:     text(14, 41, 90, ""),
		PayerPhone:       text(14, 48, 90, ""),
		PayerTIN:         text(14, 60, 42, "PAYER'S TIN"),
		RecipientTIN:     text(60, 60, 44, "RECIPIENT'S TIN"),
		RecipientName:    heading(14, 72, 90, "RECIPIENT'S name"),
		RecipientAddress: text(14, 80, 90, "Street address, city, state, ZIP"),
		AccountNumber:    text(14, 94, 90, "Account number"),
		CalendarYear:     Locator{X: 150, Y: 22, W: 40, H: 8, Size: 14, Align: "R", Style: "B", Label: ""},

		NECBox1Compensation: amount(112, 40, 78, "1  Nonemployee compensation"),
		NECBox4FedWithheld:  amount(112, 54, 78, "4  Federal income tax withheld"),
		NECBox5StateTax1:    amount(112, 68, 38, "5  State tax withheld"),
		NECBox6StateID1:     text(154, 68, 36, "6  State/Payer's state no."),
		NECBox7StateIncome1: amount(112, 82, 38, "7  State income"),
	}
	// The second state row joined the printed revision in 2023.
	if year >= 2023 {
		boxes[NECBox5StateTax2] = amount(112, 75, 38, "")
		boxes[NECBox6StateID2] = text(154, 75, 36, "")
		boxes[NECBox7StateIncome2] = amount(112, 89, 38, "")
	}
	return constants(&Layout{Form: domain.Form1099NEC, Boxes: boxes}, year)
}

// ── 1099-MISC ────────────────────────────────────────────────────────────────

func misc(year int) *Layout {
	boxes := map[BoxKey]Locator{
		PayerName:        heading(14, 34, 90, "PAYER'S name, street address, city, state, ZIP"),
		PayerAddress:     text(14, 41, 90, ""),
		PayerPhone:       text(14, 48, 90, ""),
		PayerTIN:         text(14, 60, 42, "PAYER'S TIN"),
		RecipientTIN:     text(60, 60, 44, "RECIPIENT'S TIN"),
		RecipientName:    heading(14, 72, 90, "RECIPIENT'S name"),
		RecipientAddress: text(14, 80, 90, "Street address, city, state, ZIP"),
		AccountNumber:    text(14, 94, 90, "Account number"),
		CalendarYear:     Locator{X: 150, Y: 22, W: 40, H: 8, Size: 14, Align: "R", Style: "B", Label: ""},

		MISCBox1Rents:       amount(112, 40, 78, "1  Rents"),
		MISCBox2Royalties:   amount(112, 50, 78, "2  Royalties"),
		MISCBox3OtherIncome: amount(112, 60, 78, "3  Other income"),
		MISCBox4FedWithheld: amount(112, 70, 78, "4  Federal income tax withheld"),

		MISCBox16StateTax1:    amount(112, 84, 38, "16  State tax withheld"),
		MISCBox17StateID1:     text(154, 84, 36, "17  State/Payer's state no."),
		MISCBox18StateIncome1: amount(112, 98, 38, "18  State income"),
	}
	if year >= 2023 {
		boxes[MISCBox16StateTax2] = amount(112, 91, 38, "")
		boxes[MISCBox17StateID2] = text(154, 91, 36, "")
		boxes[MISCBox18StateIncome2] = amount(112, 105, 38, "")
	}
	return constants(&Layout{Form: domain.Form1099MISC, Boxes: boxes}, year)
}

// ── W-2 ──────────────────────────────────────────────────────────────────────

func w2(year int) *Layout {
	boxes := map[BoxKey]Locator{
		W2BoxASSN:          text(14, 30, 60, "a  Employee's social security number"),
		W2BoxBEIN:          text(14, 42, 60, "b  Employer identification number (EIN)"),
		W2BoxCEmployer:     text(14, 54, 90, "c  Employer's name, address, and ZIP code"),
		W2BoxDControl:      text(14, 74, 60, "d  Control number"),
		W2BoxEEmployeeName: heading(14, 86, 90, "e  Employee's first name and initial, last name"),
		W2BoxFEmployeeAddr: text(14, 94, 90, "f  Employee's address and ZIP code"),
		CalendarYear:       Locator{X: 150, Y: 18, W: 40, H: 8, Size: 14, Align: "R", Style: "B", Label: ""},

		W2Box1Wages:       amount(112, 30, 38, "1  Wages, tips, other comp."),
		W2Box2FedWithheld: amount(154, 30, 36, "2  Federal income tax withheld"),
		W2Box3SSWages:     amount(112, 42, 38, "3  Social security wages"),
		W2Box4SSTax:       amount(154, 42, 36, "4  Social security tax withheld"),
		W2Box5MedWages:    amount(112, 54, 38, "5  Medicare wages and tips"),
		W2Box6MedTax:      amount(154, 54, 36, "6  Medicare tax withheld"),
		W2Box7SSTips:      amount(112, 66, 38, "7  Social security tips"),
		W2Box8AllocTips:   amount(154, 66, 36, "8  Allocated tips"),
		W2Box10DepCare:    amount(112, 78, 38, "10  Dependent care benefits"),
		W2Box12aDeferred:  amount(154, 78, 36, "12a  D — elective deferrals"),

		W2Box15State1:      text(14, 112, 16, "15  State"),
		W2Box15StateID1:    text(32, 112, 40, "Employer's state ID number"),
		W2Box16StateWages1: amount(76, 112, 34, "16  State wages"),
		W2Box17StateTax1:   amount(114, 112, 34, "17  State income tax"),
		W2Box18LocalWages1: amount(14, 126, 34, "18  Local wages"),
		W2Box19LocalTax1:   amount(52, 126, 34, "19  Local income tax"),
		W2Box20Locality1:   text(90, 126, 40, "20  Locality name"),

		W2Box15State2:      text(14, 119, 16, ""),
		W2Box15StateID2:    text(32, 119, 40, ""),
		W2Box16StateWages2: amount(76, 119, 34, ""),
		W2Box17StateTax2:   amount(114, 119, 34, ""),
		W2Box18LocalWages2: amount(14, 133, 34, ""),
		W2Box19LocalTax2:   amount(52, 133, 34, ""),
		W2Box20Locality2:   text(90, 133, 40, ""),
	}
	return constants(&Layout{Form: domain.FormW2, Boxes: boxes}, year)
}
