package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csg33k/taxforms/internal/domain"
	"github.com/csg33k/taxforms/internal/handlers"
	"github.com/csg33k/taxforms/internal/ports"
	"github.com/csg33k/taxforms/internal/service"
)

type fakeStore struct {
	parties  map[int64]*domain.PartyRecord
	payments map[int64]map[ports.TransactionKind]int64
	nextID   int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		parties:  map[int64]*domain.PartyRecord{},
		payments: map[int64]map[ports.TransactionKind]int64{},
		nextID:   1,
	}
}

func (f *fakeStore) GetParty(_ context.Context, id int64) (*domain.PartyRecord, error) {
	p, ok := f.parties[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) DefaultOrFirstCompany(_ context.Context) (*domain.PartyRecord, error) {
	for _, p := range f.parties {
		if p.Role == domain.RoleCompany {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ports.ErrNoCompany
}

func (f *fakeStore) PaymentTotal(_ context.Context, recipientID int64, _, _ time.Time, kind ports.TransactionKind) (int64, error) {
	return f.payments[recipientID][kind], nil
}

func (f *fakeStore) ListRoster(_ context.Context, companyID int64, role domain.Role) ([]domain.PartyRecord, error) {
	var out []domain.PartyRecord
	for _, p := range f.parties {
		if p.CompanyID == companyID && p.Role == role {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateParty(_ context.Context, p *domain.PartyRecord) error {
	p.ID = f.nextID
	f.nextID++
	f.parties[p.ID] = p
	return nil
}

func (f *fakeStore) UpdateParty(_ context.Context, p *domain.PartyRecord) error {
	f.parties[p.ID] = p
	return nil
}

func (f *fakeStore) DeleteParty(_ context.Context, id int64) error {
	delete(f.parties, id)
	return nil
}

func (f *fakeStore) AddTransaction(_ context.Context, partyID int64, kind ports.TransactionKind, amountCents int64, _ time.Time, _ string) (int64, error) {
	if f.payments[partyID] == nil {
		f.payments[partyID] = map[ports.TransactionKind]int64{}
	}
	f.payments[partyID][kind] += amountCents
	id := f.nextID
	f.nextID++
	return id, nil
}

func newServer(t *testing.T) (*fakeStore, http.Handler) {
	t.Helper()
	store := newFakeStore()
	store.parties[1] = &domain.PartyRecord{
		ID: 1, Role: domain.RoleCompany, Name: "Acme Consulting LLC",
		TaxID: "12-3456789", TaxIDKind: domain.KindEIN,
		Address: domain.Address{Street: "100 Main St", City: "Springfield", State: "IL", ZIP: "62701"},
	}
	store.nextID = 2
	svc := service.New(store, service.Config{DefaultTaxYear: 2024}, nil)
	return store, handlers.New(store, svc).Routes()
}

func addContractor(store *fakeStore, id int64, name, ssn string, paidCents int64) {
	store.parties[id] = &domain.PartyRecord{
		ID: id, CompanyID: 1, Role: domain.RoleContractor, Name: name,
		TaxID: ssn, TaxIDKind: domain.KindSSN,
		Address: domain.Address{Street: "9 Elm Ave", City: "Springfield", State: "IL", ZIP: "62702"},
	}
	store.payments[id] = map[ports.TransactionKind]int64{ports.KindExpense: paidCents}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPreviewForm(t *testing.T) {
	store, h := newServer(t)
	addContractor(store, 2, "John Smith", "123-45-6789", 75_000)

	rec := do(t, h, "POST", "/forms/preview", `{"formType":"1099-NEC","recipientId":2}`)
	require.Equal(t, 200, rec.Code)

	var preview domain.FormPreview
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &preview))
	assert.True(t, preview.Valid)
	assert.Equal(t, "$750.00", preview.Data["box1NonemployeeComp"])
	assert.Equal(t, "***-**-6789", preview.Data["recipientTin"])
}

func TestGenerateForm_Download(t *testing.T) {
	store, h := newServer(t)
	addContractor(store, 2, "John Smith", "123-45-6789", 75_000)

	rec := do(t, h, "POST", "/forms/generate", `{"formType":"1099-NEC","recipientId":2}`)
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `attachment; filename="1099-NEC_2024_John_Smith.pdf"`)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))
}

func TestGenerateForm_ValidationFailureIs422(t *testing.T) {
	store, h := newServer(t)
	addContractor(store, 2, "John Smith", "", 75_000) // no tax ID

	rec := do(t, h, "POST", "/forms/generate", `{"formType":"1099-NEC","recipientId":2}`)
	require.Equal(t, 422, rec.Code)

	var outcome domain.ValidationOutcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	assert.NotEmpty(t, outcome.Errors)
}

func TestGenerateForm_UnknownRecipientIs404(t *testing.T) {
	_, h := newServer(t)
	rec := do(t, h, "POST", "/forms/generate", `{"formType":"1099-NEC","recipientId":99}`)
	assert.Equal(t, 404, rec.Code)
}

func TestBulkNEC(t *testing.T) {
	store, h := newServer(t)
	addContractor(store, 2, "Above", "123-45-6789", 75_000)
	addContractor(store, 3, "Below", "234-56-7890", 40_000)

	rec := do(t, h, "POST", "/companies/1/bulk/1099-nec", `{}`)
	require.Equal(t, 200, rec.Code)

	var result domain.BulkRunResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Summary.Total)
	assert.Equal(t, 1, result.Summary.Generated)
	assert.Equal(t, 1, result.Summary.Skipped)
}

func TestBulkNEC_EmptyBodyAllowed(t *testing.T) {
	_, h := newServer(t)
	rec := do(t, h, "POST", "/companies/1/bulk/1099-nec", "")
	assert.Equal(t, 200, rec.Code)
}

func TestMissingInfo_EmptyRosterIsEmptyArray(t *testing.T) {
	_, h := newServer(t)
	rec := do(t, h, "GET", "/companies/1/forms/missing-info", "")
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestMissingInfo_RejectsUnknownRole(t *testing.T) {
	_, h := newServer(t)
	rec := do(t, h, "GET", "/companies/1/forms/missing-info?role=vendor", "")
	assert.Equal(t, 400, rec.Code)
}

func TestPartyCRUD(t *testing.T) {
	_, h := newServer(t)

	rec := do(t, h, "POST", "/parties", `{
		"companyId": 1, "role": "contractor", "name": "New Person",
		"taxId": "123-45-6789", "taxIdKind": "SSN",
		"street": "1 Oak St", "city": "Springfield", "state": "IL", "zip": "62704"
	}`)
	require.Equal(t, 201, rec.Code)
	var created struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotZero(t, created.ID)

	rec = do(t, h, "GET", "/parties/2", "")
	require.Equal(t, 200, rec.Code)
	var got domain.PartyRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "New Person", got.Name)

	rec = do(t, h, "POST", "/parties/2/transactions", `{"kind":"expense","amountCents":100000}`)
	require.Equal(t, 201, rec.Code)

	rec = do(t, h, "DELETE", "/parties/2", "")
	assert.Equal(t, 204, rec.Code)

	rec = do(t, h, "GET", "/parties/2", "")
	assert.Equal(t, 404, rec.Code)
}

func TestAddTransaction_RejectsUnknownKind(t *testing.T) {
	store, h := newServer(t)
	addContractor(store, 2, "John Smith", "123-45-6789", 0)
	rec := do(t, h, "POST", "/parties/2/transactions", `{"kind":"refund","amountCents":100}`)
	assert.Equal(t, 400, rec.Code)
}
