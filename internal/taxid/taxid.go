// Package taxid validates and formats US tax identifiers and mailing
// addresses. Everything here is pure and deterministic; nothing touches a
// form template or the ledger.
package taxid

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/csg33k/taxforms/internal/domain"
)

// einPrefixes is the set of 2-digit prefixes the IRS has assigned.
// Source: IRS "How EINs are assigned" campus/internet prefix table.
var einPrefixes = map[string]bool{
	"01": true, "02": true, "03": true, "04": true, "05": true, "06": true,
	"10": true, "11": true, "12": true, "13": true, "14": true, "15": true,
	"16": true, "20": true, "21": true, "22": true, "23": true, "24": true,
	"25": true, "26": true, "27": true, "30": true, "31": true, "32": true,
	"33": true, "34": true, "35": true, "36": true, "37": true, "38": true,
	"39": true, "40": true, "41": true, "42": true, "43": true, "44": true,
	"45": true, "46": true, "47": true, "48": true, "50": true, "51": true,
	"52": true, "53": true, "54": true, "55": true, "56": true, "57": true,
	"58": true, "59": true, "60": true, "61": true, "62": true, "63": true,
	"64": true, "65": true, "66": true, "67": true, "68": true, "71": true,
	"72": true, "73": true, "74": true, "75": true, "76": true, "77": true,
	"80": true, "81": true, "82": true, "83": true, "84": true, "85": true,
	"86": true, "87": true, "88": true, "90": true, "91": true, "92": true,
	"93": true, "94": true, "95": true, "98": true, "99": true,
}

var zipRe = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
var stateRe = regexp.MustCompile(`^[A-Za-z]{2}$`)

// Result is the outcome of a single identifier validation.
type Result struct {
	Valid     bool
	Formatted string // canonical form when Valid
	Err       string // human-readable reason when !Valid
}

// Normalize strips separators and spaces, keeping digits only.
func Normalize(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateSSN checks a Social Security Number. Area numbers 000, 666 and
// 900-999 are never issued and are rejected. Canonical form is DDD-DD-DDDD.
func ValidateSSN(raw string) Result {
	digits := Normalize(raw)
	if len(digits) != 9 {
		return Result{Err: "SSN must have exactly 9 digits"}
	}
	area := digits[:3]
	switch {
	case area == "000":
		return Result{Err: "SSN area number 000 is never issued"}
	case area == "666":
		return Result{Err: "SSN area number 666 is never issued"}
	case area >= "900":
		return Result{Err: "SSN area numbers 900-999 are never issued"}
	}
	return Result{Valid: true, Formatted: digits[:3] + "-" + digits[3:5] + "-" + digits[5:]}
}

// ValidateEIN checks an Employer Identification Number. The first two digits
// must be an assigned IRS prefix. Canonical form is DD-DDDDDDD.
func ValidateEIN(raw string) Result {
	digits := Normalize(raw)
	if len(digits) != 9 {
		return Result{Err: "EIN must have exactly 9 digits"}
	}
	if !einPrefixes[digits[:2]] {
		return Result{Err: fmt.Sprintf("EIN prefix %s is not assigned by the IRS", digits[:2])}
	}
	return Result{Valid: true, Formatted: digits[:2] + "-" + digits[2:]}
}

// ValidateTaxID dispatches on kind.
func ValidateTaxID(raw string, kind domain.TaxIDKind) Result {
	switch kind {
	case domain.KindSSN:
		return ValidateSSN(raw)
	case domain.KindEIN:
		return ValidateEIN(raw)
	default:
		return Result{Err: fmt.Sprintf("unknown tax ID kind %q", string(kind))}
	}
}

// AddressResult reports address completeness with each problem named.
type AddressResult struct {
	Complete bool
	Missing  []string
}

// ValidateAddress requires street, city, a 2-letter state (case-insensitive)
// and a 5-digit or ZIP+4 postal code.
func ValidateAddress(a domain.Address) AddressResult {
	var missing []string
	if strings.TrimSpace(a.Street) == "" {
		missing = append(missing, "street")
	}
	if strings.TrimSpace(a.City) == "" {
		missing = append(missing, "city")
	}
	if !stateRe.MatchString(strings.TrimSpace(a.State)) {
		missing = append(missing, "state")
	}
	if !zipRe.MatchString(strings.TrimSpace(a.ZIP)) {
		missing = append(missing, "zip")
	}
	return AddressResult{Complete: len(missing) == 0, Missing: missing}
}

// FormatAddress renders a one-line display address. Parts that are absent
// are simply omitted.
func FormatAddress(a domain.Address) string {
	parts := make([]string, 0, 3)
	if s := strings.TrimSpace(a.Street); s != "" {
		parts = append(parts, s)
	}
	if c := strings.TrimSpace(a.City); c != "" {
		parts = append(parts, c)
	}
	tail := strings.TrimSpace(strings.ToUpper(strings.TrimSpace(a.State)) + " " + strings.TrimSpace(a.ZIP))
	if tail != "" {
		parts = append(parts, tail)
	}
	return strings.Join(parts, ", ")
}

// MaskTaxID shows only the last four digits: ***-**-NNNN for SSNs,
// **-***NNNN for EINs. Never panics; short or empty input degrades to
// "Not provided". Preview-only — masked values must never reach a filed form.
func MaskTaxID(raw string, kind domain.TaxIDKind) string {
	digits := Normalize(raw)
	if digits == "" {
		return "Not provided"
	}
	last4 := digits
	if len(digits) > 4 {
		last4 = digits[len(digits)-4:]
	}
	if kind == domain.KindEIN {
		return "**-***" + last4
	}
	return "***-**-" + last4
}
