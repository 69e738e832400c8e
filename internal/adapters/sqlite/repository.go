package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/csg33k/taxforms/internal/domain"
	"github.com/csg33k/taxforms/internal/ports"
)

// Repository is the SQLite implementation of ports.Ledger, plus the write
// operations the HTTP layer needs for managing parties and transactions.
type Repository struct {
	db *sql.DB
}

// New opens the SQLite database. Call EnsureSchema before first use.
func New(dsn string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error { return r.db.Close() }

// EnsureSchema creates the tables if they do not exist yet. Amounts are
// stored as integer cents.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS parties (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			company_id        INTEGER NOT NULL DEFAULT 0,
			role              TEXT    NOT NULL,
			name              TEXT    NOT NULL,
			tax_id            TEXT    NOT NULL DEFAULT '',
			tax_id_kind       TEXT    NOT NULL DEFAULT '',
			street            TEXT    NOT NULL DEFAULT '',
			city              TEXT    NOT NULL DEFAULT '',
			state             TEXT    NOT NULL DEFAULT '',
			zip               TEXT    NOT NULL DEFAULT '',
			phone             TEXT    NOT NULL DEFAULT '',
			first_name        TEXT    NOT NULL DEFAULT '',
			middle_name       TEXT    NOT NULL DEFAULT '',
			last_name         TEXT    NOT NULL DEFAULT '',
			suffix            TEXT    NOT NULL DEFAULT '',
			control_number    TEXT    NOT NULL DEFAULT '',
			fed_rate          REAL    NOT NULL DEFAULT 0,
			state_rate        REAL    NOT NULL DEFAULT 0,
			withholding_state TEXT    NOT NULL DEFAULT '',
			created_at        TIMESTAMP NOT NULL,
			updated_at        TIMESTAMP NOT NULL
		);
		CREATE TABLE IF NOT EXISTS party_state_ids (
			party_id        INTEGER NOT NULL REFERENCES parties(id) ON DELETE CASCADE,
			state           TEXT    NOT NULL,
			registration_id TEXT    NOT NULL,
			PRIMARY KEY (party_id, state)
		);
		CREATE TABLE IF NOT EXISTS transactions (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			party_id     INTEGER NOT NULL REFERENCES parties(id) ON DELETE CASCADE,
			kind         TEXT    NOT NULL,
			amount_cents INTEGER NOT NULL,
			occurred_at  TIMESTAMP NOT NULL,
			memo         TEXT    NOT NULL DEFAULT '',
			created_at   TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_party_kind
			ON transactions (party_id, kind, occurred_at);
		CREATE INDEX IF NOT EXISTS idx_parties_company_role
			ON parties (company_id, role)`)
	return err
}

// ── Parties ───────────────────────────────────────────────────────────────────

func (r *Repository) CreateParty(ctx context.Context, p *domain.PartyRecord) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	names := namesOrZero(p.Names)
	wh := withholdingOrZero(p.Withholding)
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO parties (
			company_id, role, name, tax_id, tax_id_kind,
			street, city, state, zip, phone,
			first_name, middle_name, last_name, suffix,
			control_number, fed_rate, state_rate, withholding_state,
			created_at, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.CompanyID, p.Role, p.Name, p.TaxID, p.TaxIDKind,
		p.Address.Street, p.Address.City, p.Address.State, p.Address.ZIP, p.Phone,
		names.First, names.Middle, names.Last, names.Suffix,
		p.ControlNumber, wh.FederalRate, wh.StateRate, wh.State,
		now, now,
	)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	p.ID = id
	return r.replaceStateIDs(ctx, p.ID, p.StateIDs)
}

func (r *Repository) GetParty(ctx context.Context, id int64) (*domain.PartyRecord, error) {
	p, err := r.scanParty(r.db.QueryRowContext(ctx, partySelect+` WHERE id=?`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadStateIDs(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// DefaultOrFirstCompany returns the oldest company row. Single-company
// installs never set company ids explicitly, so "first" is the default.
func (r *Repository) DefaultOrFirstCompany(ctx context.Context) (*domain.PartyRecord, error) {
	p, err := r.scanParty(r.db.QueryRowContext(ctx,
		partySelect+` WHERE role=? ORDER BY id LIMIT 1`, domain.RoleCompany))
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, ports.ErrNoCompany
		}
		return nil, err
	}
	if err := r.loadStateIDs(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Repository) ListRoster(ctx context.Context, companyID int64, role domain.Role) ([]domain.PartyRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		partySelect+` WHERE company_id=? AND role=? ORDER BY name, id`, companyID, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []domain.PartyRecord
	for rows.Next() {
		p, err := r.scanParty(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range list {
		if err := r.loadStateIDs(ctx, &list[i]); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func (r *Repository) UpdateParty(ctx context.Context, p *domain.PartyRecord) error {
	p.UpdatedAt = time.Now()
	names := namesOrZero(p.Names)
	wh := withholdingOrZero(p.Withholding)
	_, err := r.db.ExecContext(ctx, `
		UPDATE parties
		SET company_id=?, role=?, name=?, tax_id=?, tax_id_kind=?,
		    street=?, city=?, state=?, zip=?, phone=?,
		    first_name=?, middle_name=?, last_name=?, suffix=?,
		    control_number=?, fed_rate=?, state_rate=?, withholding_state=?,
		    updated_at=?
		WHERE id=?`,
		p.CompanyID, p.Role, p.Name, p.TaxID, p.TaxIDKind,
		p.Address.Street, p.Address.City, p.Address.State, p.Address.ZIP, p.Phone,
		names.First, names.Middle, names.Last, names.Suffix,
		p.ControlNumber, wh.FederalRate, wh.StateRate, wh.State,
		p.UpdatedAt, p.ID,
	)
	if err != nil {
		return err
	}
	return r.replaceStateIDs(ctx, p.ID, p.StateIDs)
}

func (r *Repository) DeleteParty(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM parties WHERE id=?`, id)
	return err
}

// ── Transactions ──────────────────────────────────────────────────────────────

// AddTransaction records one payment to a party. kind is "expense" for
// contractor payments and "payroll" for wages.
func (r *Repository) AddTransaction(ctx context.Context, partyID int64, kind ports.TransactionKind, amountCents int64, occurredAt time.Time, memo string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (party_id, kind, amount_cents, occurred_at, memo, created_at)
		VALUES (?,?,?,?,?,?)`,
		partyID, kind, amountCents, occurredAt, memo, time.Now())
	if err != nil {
		return 0, err
	}
	id, _ := res.LastInsertId()
	return id, nil
}

func (r *Repository) PaymentTotal(ctx context.Context, recipientID int64, start, end time.Time, kind ports.TransactionKind) (int64, error) {
	var total sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT SUM(amount_cents) FROM transactions
		WHERE party_id=? AND kind=? AND occurred_at >= ? AND occurred_at <= ?`,
		recipientID, kind, start, end).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Int64, nil
}

// ── Scanning ──────────────────────────────────────────────────────────────────

const partySelect = `
	SELECT id, company_id, role, name, tax_id, tax_id_kind,
	       street, city, state, zip, phone,
	       first_name, middle_name, last_name, suffix,
	       control_number, fed_rate, state_rate, withholding_state,
	       created_at, updated_at
	FROM parties`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *Repository) scanParty(row rowScanner) (*domain.PartyRecord, error) {
	p := &domain.PartyRecord{}
	var names domain.NameParts
	var wh domain.WithholdingMeta
	err := row.Scan(
		&p.ID, &p.CompanyID, &p.Role, &p.Name, &p.TaxID, &p.TaxIDKind,
		&p.Address.Street, &p.Address.City, &p.Address.State, &p.Address.ZIP, &p.Phone,
		&names.First, &names.Middle, &names.Last, &names.Suffix,
		&p.ControlNumber, &wh.FederalRate, &wh.StateRate, &wh.State,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan party: %w", err)
	}
	if names != (domain.NameParts{}) {
		p.Names = &names
	}
	if wh != (domain.WithholdingMeta{}) {
		p.Withholding = &wh
	}
	return p, nil
}

func (r *Repository) loadStateIDs(ctx context.Context, p *domain.PartyRecord) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT state, registration_id FROM party_state_ids
		WHERE party_id=? ORDER BY state`, p.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var reg domain.StateRegistration
		if err := rows.Scan(&reg.State, &reg.ID); err != nil {
			return err
		}
		p.StateIDs = append(p.StateIDs, reg)
	}
	return rows.Err()
}

func (r *Repository) replaceStateIDs(ctx context.Context, partyID int64, regs []domain.StateRegistration) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM party_state_ids WHERE party_id=?`, partyID); err != nil {
		return err
	}
	for _, reg := range regs {
		if _, err := r.db.ExecContext(ctx, `
			INSERT INTO party_state_ids (party_id, state, registration_id)
			VALUES (?,?,?)`, partyID, reg.State, reg.ID); err != nil {
			return err
		}
	}
	return nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func namesOrZero(n *domain.NameParts) domain.NameParts {
	if n == nil {
		return domain.NameParts{}
	}
	return *n
}

func withholdingOrZero(w *domain.WithholdingMeta) domain.WithholdingMeta {
	if w == nil {
		return domain.WithholdingMeta{}
	}
	return *w
}
