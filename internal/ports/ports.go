package ports

import (
	"context"
	"errors"
	"time"

	"github.com/csg33k/taxforms/internal/domain"
)

// ErrNotFound is returned by Ledger lookups when no record matches.
var ErrNotFound = errors.New("record not found")

// ErrNoCompany is returned when no default company can be resolved.
var ErrNoCompany = errors.New("no company on file")

// TransactionKind selects which ledger entries a PaymentTotal sums.
type TransactionKind string

const (
	KindExpense TransactionKind = "expense"
	KindPayroll TransactionKind = "payroll"
)

// Ledger is the persistence collaborator the tax form core consumes.
// The request/auth layer and all CRUD around it live outside this module.
type Ledger interface {
	// GetParty fetches a payer or recipient record. ErrNotFound on miss.
	GetParty(ctx context.Context, id int64) (*domain.PartyRecord, error)

	// DefaultOrFirstCompany resolves the fallback payer. ErrNoCompany when
	// the caller has no companies at all.
	DefaultOrFirstCompany(ctx context.Context) (*domain.PartyRecord, error)

	// PaymentTotal sums ledger entries of the given kind paid to a recipient
	// within [start, end], in cents.
	PaymentTotal(ctx context.Context, recipientID int64, start, end time.Time, kind TransactionKind) (int64, error)

	// ListRoster returns a company's recipients with the given role.
	ListRoster(ctx context.Context, companyID int64, role domain.Role) ([]domain.PartyRecord, error)
}

// PartyStore is the write side the HTTP layer needs on top of Ledger.
type PartyStore interface {
	Ledger

	CreateParty(ctx context.Context, p *domain.PartyRecord) error
	UpdateParty(ctx context.Context, p *domain.PartyRecord) error
	DeleteParty(ctx context.Context, id int64) error

	// AddTransaction records one payment and returns its id.
	AddTransaction(ctx context.Context, partyID int64, kind TransactionKind, amountCents int64, occurredAt time.Time, memo string) (int64, error)
}
