// Package handlers exposes the form-generation core over a JSON HTTP API.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/csg33k/taxforms/internal/adapters/forms"
	"github.com/csg33k/taxforms/internal/domain"
	"github.com/csg33k/taxforms/internal/ports"
	"github.com/csg33k/taxforms/internal/service"
)

type Handler struct {
	store ports.PartyStore
	svc   *service.Service
}

func New(store ports.PartyStore, svc *service.Service) *Handler {
	return &Handler{store: store, svc: svc}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /parties", h.createParty)
	mux.HandleFunc("GET /parties/{id}", h.getParty)
	mux.HandleFunc("PUT /parties/{id}", h.updateParty)
	mux.HandleFunc("DELETE /parties/{id}", h.deleteParty)
	mux.HandleFunc("POST /parties/{id}/transactions", h.addTransaction)
	mux.HandleFunc("POST /forms/preview", h.previewForm)
	mux.HandleFunc("POST /forms/generate", h.generateForm)
	mux.HandleFunc("POST /companies/{id}/bulk/1099-nec", h.bulkNEC)
	mux.HandleFunc("POST /companies/{id}/bulk/w2", h.bulkW2)
	mux.HandleFunc("GET /companies/{id}/forms/summary", h.yearSummary)
	mux.HandleFunc("GET /companies/{id}/forms/missing-info", h.missingInfo)
	return mux
}

// ── Parties ───────────────────────────────────────────────────────────────────

// partyPayload is the JSON shape for party create/update.
type partyPayload struct {
	CompanyID int64  `json:"companyId"`
	Role      string `json:"role"`
	Name      string `json:"name"`
	TaxID     string `json:"taxId"`
	TaxIDKind string `json:"taxIdKind"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZIP       string `json:"zip"`
	Phone     string `json:"phone"`

	FirstName     string `json:"firstName"`
	MiddleName    string `json:"middleName"`
	LastName      string `json:"lastName"`
	Suffix        string `json:"suffix"`
	ControlNumber string `json:"controlNumber"`

	FederalRate      float64 `json:"federalRate"`
	StateRate        float64 `json:"stateRate"`
	WithholdingState string  `json:"withholdingState"`

	StateIDs []struct {
		State string `json:"state"`
		ID    string `json:"id"`
	} `json:"stateIds"`
}

func (p *partyPayload) toRecord() *domain.PartyRecord {
	rec := &domain.PartyRecord{
		CompanyID: p.CompanyID,
		Role:      domain.Role(p.Role),
		Name:      p.Name,
		TaxID:     p.TaxID,
		TaxIDKind: domain.TaxIDKind(p.TaxIDKind),
		Address:   domain.Address{Street: p.Street, City: p.City, State: p.State, ZIP: p.ZIP},
		Phone:     p.Phone,

		ControlNumber: p.ControlNumber,
	}
	if p.FirstName != "" || p.LastName != "" {
		rec.Names = &domain.NameParts{
			First: p.FirstName, Middle: p.MiddleName, Last: p.LastName, Suffix: p.Suffix,
		}
	}
	if p.FederalRate > 0 || p.StateRate > 0 {
		rec.Withholding = &domain.WithholdingMeta{
			FederalRate: p.FederalRate, StateRate: p.StateRate, State: p.WithholdingState,
		}
	}
	for _, s := range p.StateIDs {
		rec.StateIDs = append(rec.StateIDs, domain.StateRegistration{State: s.State, ID: s.ID})
	}
	return rec
}

func (h *Handler) createParty(w http.ResponseWriter, r *http.Request) {
	var payload partyPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	rec := payload.toRecord()
	if rec.Role == "" || rec.Name == "" {
		http.Error(w, "role and name are required", 400)
		return
	}
	if err := h.store.CreateParty(r.Context(), rec); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": rec.ID})
}

func (h *Handler) getParty(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid id", 400)
		return
	}
	rec, err := h.store.GetParty(r.Context(), id)
	if err != nil {
		status(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) updateParty(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid id", 400)
		return
	}
	// Fetch first to preserve CreatedAt.
	existing, err := h.store.GetParty(r.Context(), id)
	if err != nil {
		status(w, err)
		return
	}
	var payload partyPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	rec := payload.toRecord()
	rec.ID = existing.ID
	rec.CreatedAt = existing.CreatedAt
	if err := h.store.UpdateParty(r.Context(), rec); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) deleteParty(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid id", 400)
		return
	}
	if err := h.store.DeleteParty(r.Context(), id); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid id", 400)
		return
	}
	var payload struct {
		Kind        string    `json:"kind"`
		AmountCents int64     `json:"amountCents"`
		OccurredAt  time.Time `json:"occurredAt"`
		Memo        string    `json:"memo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	kind := ports.TransactionKind(payload.Kind)
	if kind != ports.KindExpense && kind != ports.KindPayroll {
		http.Error(w, "kind must be expense or payroll", 400)
		return
	}
	if payload.OccurredAt.IsZero() {
		payload.OccurredAt = time.Now()
	}
	txID, err := h.store.AddTransaction(r.Context(), id, kind, payload.AmountCents, payload.OccurredAt, payload.Memo)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": txID})
}

// ── Forms ─────────────────────────────────────────────────────────────────────

// formPayload is the JSON shape for preview and generate.
type formPayload struct {
	FormType    string `json:"formType"`
	RecipientID int64  `json:"recipientId"`
	CompanyID   int64  `json:"companyId"`
	TaxYear     int    `json:"taxYear"`

	IgnoreErrors bool  `json:"ignoreErrors"`
	Flatten      *bool `json:"flatten"`

	Payments *domain.PaymentFacts `json:"payments"`
	Wages    *domain.WageFacts    `json:"wages"`
}

func (p *formPayload) toRequest() service.FormRequest {
	return service.FormRequest{
		FormType:    domain.FormType(p.FormType),
		RecipientID: p.RecipientID,
		CompanyID:   p.CompanyID,
		TaxYear:     p.TaxYear,
		Payments:    p.Payments,
		Wages:       p.Wages,
		Options: forms.Options{
			IgnoreErrors: p.IgnoreErrors,
			Flatten:      p.Flatten,
		},
	}
}

func (h *Handler) previewForm(w http.ResponseWriter, r *http.Request) {
	var payload formPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	preview, err := h.svc.Preview(r.Context(), payload.toRequest())
	if err != nil {
		status(w, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (h *Handler) generateForm(w http.ResponseWriter, r *http.Request) {
	var payload formPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	form, outcome, err := h.svc.Generate(r.Context(), payload.toRequest())
	if err != nil {
		status(w, err)
		return
	}
	if form == nil {
		writeJSON(w, http.StatusUnprocessableEntity, outcome)
		return
	}
	w.Header().Set("Content-Type", form.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, form.FileName))
	w.Write(form.Content)
}

// ── Bulk runs ─────────────────────────────────────────────────────────────────

type bulkPayload struct {
	TaxYear      int   `json:"taxYear"`
	IgnoreErrors bool  `json:"ignoreErrors"`
	Flatten      *bool `json:"flatten"`

	// W-2 only: explicit wage facts per employee id.
	WageOverrides map[int64]domain.WageFacts `json:"wageOverrides"`
}

func (p *bulkPayload) options() forms.Options {
	return forms.Options{IgnoreErrors: p.IgnoreErrors, Flatten: p.Flatten}
}

func (h *Handler) bulkNEC(w http.ResponseWriter, r *http.Request) {
	companyID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid id", 400)
		return
	}
	var payload bulkPayload
	if err := decodeOptional(r, &payload); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	result, err := h.svc.BulkGenerate1099NEC(r.Context(), companyID, payload.TaxYear, payload.options())
	if err != nil {
		status(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) bulkW2(w http.ResponseWriter, r *http.Request) {
	companyID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid id", 400)
		return
	}
	var payload bulkPayload
	if err := decodeOptional(r, &payload); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	result, err := h.svc.BulkGenerateW2(r.Context(), companyID, payload.TaxYear, payload.WageOverrides, payload.options())
	if err != nil {
		status(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ── Reports ───────────────────────────────────────────────────────────────────

func (h *Handler) yearSummary(w http.ResponseWriter, r *http.Request) {
	companyID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid id", 400)
		return
	}
	year, _ := strconv.Atoi(r.URL.Query().Get("year"))
	summary, err := h.svc.Summary(r.Context(), companyID, year)
	if err != nil {
		status(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) missingInfo(w http.ResponseWriter, r *http.Request) {
	companyID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid id", 400)
		return
	}
	role := domain.Role(r.URL.Query().Get("role"))
	switch role {
	case "", domain.RoleContractor, domain.RoleEmployee:
	default:
		http.Error(w, "role must be contractor or employee", 400)
		return
	}
	missing, err := h.svc.MissingInfo(r.Context(), companyID, role)
	if err != nil {
		status(w, err)
		return
	}
	if missing == nil {
		missing = []domain.MissingInfo{}
	}
	writeJSON(w, http.StatusOK, missing)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func pathID(r *http.Request, key string) (int64, error) {
	return strconv.ParseInt(r.PathValue(key), 10, 64)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// decodeOptional tolerates an empty request body.
func decodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// status maps resolution and layout failures to HTTP codes.
func status(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ports.ErrNotFound), errors.Is(err, ports.ErrNoCompany):
		http.Error(w, err.Error(), 404)
	case errors.Is(err, forms.ErrNoLayout):
		http.Error(w, err.Error(), 400)
	default:
		http.Error(w, err.Error(), 500)
	}
}
