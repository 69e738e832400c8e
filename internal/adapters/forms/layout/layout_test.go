package layout_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/csg33k/taxforms/internal/adapters/forms/layout"
	"github.com/csg33k/taxforms/internal/domain"
)

// Every supported year must carry the boxes the generators always fill.
func TestLayoutStructure_AllYears(t *testing.T) {
	required := map[domain.FormType][]layout.BoxKey{
		domain.Form1099NEC: {
			layout.PayerName, layout.PayerTIN, layout.RecipientTIN,
			layout.RecipientName, layout.RecipientAddress,
			layout.NECBox1Compensation, layout.NECBox4FedWithheld,
		},
		domain.Form1099MISC: {
			layout.PayerName, layout.PayerTIN, layout.RecipientTIN,
			layout.MISCBox1Rents, layout.MISCBox2Royalties,
			layout.MISCBox3OtherIncome, layout.MISCBox4FedWithheld,
		},
		domain.FormW2: {
			layout.W2BoxASSN, layout.W2BoxBEIN, layout.W2BoxCEmployer,
			layout.W2BoxEEmployeeName, layout.W2BoxFEmployeeAddr,
			layout.W2Box1Wages, layout.W2Box2FedWithheld,
			layout.W2Box3SSWages, layout.W2Box4SSTax,
			layout.W2Box5MedWages, layout.W2Box6MedTax,
		},
	}
	for form, keys := range required {
		for _, year := range layout.Supported() {
			t.Run(fmt.Sprintf("%s_TY%d", form, year), func(t *testing.T) {
				l, ok := layout.ForYear(form, year)
				if !ok {
					t.Fatalf("ForYear(%s, %d) returned ok=false", form, year)
				}
				for _, key := range keys {
					loc, ok := l.Lookup(key)
					if !ok {
						t.Errorf("box %q missing", key)
						continue
					}
					if loc.W <= 0 || loc.H <= 0 || loc.Size <= 0 {
						t.Errorf("box %q has degenerate geometry %+v", key, loc)
					}
				}
			})
		}
	}
}

func TestForYear_MissIsExplicit(t *testing.T) {
	if _, ok := layout.ForYear(domain.Form1099NEC, 1999); ok {
		t.Error("TY1999 should have no layout")
	}
	if _, ok := layout.ForYear(domain.FormType("1042-S"), 2024); ok {
		t.Error("unknown form should have no layout")
	}
}

// The 2022 printed revision carries a single state row; 2023+ carry two.
func TestSecondStateRow_ByRevision(t *testing.T) {
	l2022, _ := layout.ForYear(domain.Form1099NEC, 2022)
	if _, ok := l2022.Lookup(layout.NECBox5StateTax2); ok {
		t.Error("TY2022 NEC should not carry a second state row")
	}
	l2023, _ := layout.ForYear(domain.Form1099NEC, 2023)
	if _, ok := l2023.Lookup(layout.NECBox5StateTax2); !ok {
		t.Error("TY2023 NEC should carry a second state row")
	}
}

func TestPayrollConstants(t *testing.T) {
	wantBase := map[int]int64{
		2022: 14_700_000,
		2023: 16_020_000,
		2024: 16_860_000,
		2025: 17_610_000,
	}
	for year, base := range wantBase {
		l, ok := layout.ForYear(domain.FormW2, year)
		if !ok {
			t.Fatalf("no W-2 layout for %d", year)
		}
		if l.SSWageBaseCents != base {
			t.Errorf("TY%d wage base = %d, want %d", year, l.SSWageBaseCents, base)
		}
		if l.FilingThresholdCents != 60_000 {
			t.Errorf("TY%d threshold = %d, want 60000", year, l.FilingThresholdCents)
		}
		if l.SSRate != 0.062 || l.MedicareRate != 0.0145 {
			t.Errorf("TY%d rates = %v/%v", year, l.SSRate, l.MedicareRate)
		}
	}
}

func TestFilingDeadline(t *testing.T) {
	got := layout.FilingDeadline(2024)
	want := time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("FilingDeadline(2024) = %v, want %v", got, want)
	}
}
