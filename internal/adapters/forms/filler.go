// Package forms generates filled 1099-NEC, 1099-MISC, and W-2 PDFs from
// payer/recipient records and payment or wage facts. Each generator validates
// first, then draws onto the per-year layout from the layout package. One
// page is produced per form.
package forms

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/csg33k/taxforms/internal/adapters/forms/layout"
	"github.com/csg33k/taxforms/internal/domain"
)

// Options control a single Generate call.
type Options struct {
	// IgnoreErrors proceeds to fill the form even when validation found
	// blocking errors. Default is fail-closed.
	IgnoreErrors bool
	// Flatten produces a non-editable rendering. nil means true.
	Flatten *bool
	// StrictThreshold promotes the below-$600 warning to a blocking error.
	StrictThreshold bool
}

func (o Options) flatten() bool { return o.Flatten == nil || *o.Flatten }

// filler draws a single form page. Boxes are addressed by logical key; a box
// absent from this year's layout is skipped, never an error, since printed
// revisions differ across tax years.
type filler struct {
	pdf *fpdf.Fpdf
	lay *layout.Layout
	log *slog.Logger
}

func newFiller(lay *layout.Layout, log *slog.Logger) *filler {
	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(12, 12, 12)
	pdf.SetAutoPageBreak(false, 12)
	pdf.AddPage()
	return &filler{pdf: pdf, lay: lay, log: log}
}

// trySet writes value into the named box. Returns false (after a debug log)
// when the box is not present in this layout revision; it never fails.
func (f *filler) trySet(key layout.BoxKey, value string) bool {
	loc, ok := f.lay.Lookup(key)
	if !ok {
		f.log.Debug("box not present in layout revision; skipping",
			"form", string(f.lay.Form), "taxYear", f.lay.TaxYear, "box", string(key))
		return false
	}
	if value == "" {
		return true
	}
	if loc.Label != "" {
		f.pdf.SetFont("Helvetica", "", 6)
		f.pdf.SetTextColor(90, 90, 90)
		f.pdf.SetXY(loc.X, loc.Y-3.2)
		f.pdf.CellFormat(loc.W, 3, loc.Label, "", 0, "L", false, 0, "")
		f.pdf.SetTextColor(0, 0, 0)
	}
	f.pdf.SetFont("Helvetica", loc.Style, loc.Size)
	f.pdf.SetXY(loc.X, loc.Y)
	f.pdf.CellFormat(loc.W, loc.H, value, "", 0, loc.Align, false, 0, "")
	return true
}

// header draws the title bar shared by all three forms.
func (f *filler) header(title, copyLine string) {
	pageW, _ := f.pdf.GetPageSize()
	marginL, marginT, marginR, _ := f.pdf.GetMargins()
	contentW := pageW - marginL - marginR

	f.pdf.SetFillColor(30, 30, 30)
	f.pdf.Rect(marginL, marginT, contentW, 10, "F")
	f.pdf.SetTextColor(255, 255, 255)
	f.pdf.SetFont("Helvetica", "B", 11)
	f.pdf.SetXY(marginL+2, marginT+1.5)
	f.pdf.CellFormat(contentW-4, 7, title, "", 0, "L", false, 0, "")
	f.pdf.SetFont("Helvetica", "", 9)
	f.pdf.CellFormat(0, 7, copyLine, "", 1, "R", false, 0, "")
	f.pdf.SetTextColor(0, 0, 0)
}

// footer draws the bottom identity line.
func (f *filler) footer(payerName string) {
	pageW, pageH := f.pdf.GetPageSize()
	marginL, _, marginR, marginB := f.pdf.GetMargins()
	contentW := pageW - marginL - marginR

	f.pdf.SetXY(marginL, pageH-marginB-6)
	f.pdf.SetFont("Helvetica", "I", 7.5)
	f.pdf.SetTextColor(130, 130, 130)
	f.pdf.CellFormat(contentW/2, 5, fmt.Sprintf("Form %s  TY %d", f.lay.Form, f.lay.TaxYear), "", 0, "L", false, 0, "")
	f.pdf.CellFormat(contentW/2, 5, payerName, "", 0, "R", false, 0, "")
	f.pdf.SetTextColor(0, 0, 0)
}

// output serializes the page. Flattening locks the document down to
// print-only so the rendering cannot be edited afterwards.
func (f *filler) output(flatten bool) ([]byte, error) {
	if flatten {
		f.pdf.SetProtection(fpdf.CnProtectPrint, "", "")
	}
	var buf bytes.Buffer
	if err := f.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("serialize %s: %w", f.lay.Form, err)
	}
	return buf.Bytes(), nil
}

// ── Display helpers ──────────────────────────────────────────────────────────

// centsToDisplay converts an integer cent value to a "0.00"-style string.
func centsToDisplay(cents int64) string {
	return fmt.Sprintf("%.2f", float64(cents)/100)
}

func dollars(cents int64) string { return "$" + centsToDisplay(cents) }

// sanitizeName reduces a recipient name to a filename-safe token.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "recipient"
	}
	return b.String()
}

// fileName builds the suggested download name: {FormType}_{TaxYear}_{Name}.pdf
func fileName(form domain.FormType, year int, recipient string) string {
	return fmt.Sprintf("%s_%d_%s.pdf", form, year, sanitizeName(recipient))
}
