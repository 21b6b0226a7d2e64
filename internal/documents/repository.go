package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-retail/internal/platform/db"
	"github.com/odyssey-erp/odyssey-retail/internal/shared"
)

// ReferenceConstraint is the unique index guarding per-tenant references.
const ReferenceConstraint = "documents_tenant_reference_key"

// IssuedReferenceConstraint guards document_references, which keeps every
// issued reference after its document is deleted.
const IssuedReferenceConstraint = "document_references_pkey"

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides PostgreSQL backed reads.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the writes that run inside a caller-owned transaction.
type TxRepository interface {
	InsertHeader(ctx context.Context, doc Document) (DocumentID, error)
	InsertLine(ctx context.Context, line Line) (LineID, error)
	GetForUpdate(ctx context.Context, tenantID int64, id DocumentID) (Document, error)
	UpdateStatus(ctx context.Context, tenantID int64, id DocumentID, status Status, stockApplied bool) error
	UpdateHeader(ctx context.Context, tenantID int64, id DocumentID, patch HeaderPatch) error
	ApplyPayment(ctx context.Context, p Payment, status Status) error
	InsertPayment(ctx context.Context, p Payment) (int64, error)
	DeleteLines(ctx context.Context, id DocumentID) error
	DeleteHeader(ctx context.Context, tenantID int64, id DocumentID) error
}

type txRepo struct {
	tx pgx.Tx
}

// NewTxRepository binds the document writes to tx.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepo{tx: tx}
}

const headerColumns = `id, tenant_id, reference, kind, document_date, counterparty_id, payment_method, status,
	subtotal, discount_pct, discount_amount, tax_pct, tax_amount, total_amount, amount_paid, amount_due,
	notes, stock_applied, created_by, created_at, updated_at`

const lineColumns = `id, document_id, line_no, product_id, quantity, unit_price, discount_pct, discount_amount,
	tax_pct, tax_amount, line_total`

func scanHeader(row pgx.Row) (Document, error) {
	var doc Document
	err := row.Scan(
		&doc.ID, &doc.TenantID, &doc.Reference, &doc.Kind, &doc.Date, &doc.CounterpartyID,
		&doc.PaymentMethod, &doc.Status, &doc.Subtotal, &doc.DiscountPct, &doc.DiscountAmount,
		&doc.TaxPct, &doc.TaxAmount, &doc.Total, &doc.AmountPaid, &doc.AmountDue,
		&doc.Notes, &doc.StockApplied, &doc.CreatedBy, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

func loadLines(ctx context.Context, q querier, id DocumentID) ([]Line, error) {
	rows, err := q.Query(ctx, `SELECT `+lineColumns+` FROM document_lines WHERE document_id = $1 ORDER BY line_no`, id)
	if err != nil {
		return nil, fmt.Errorf("query lines: %w", err)
	}
	defer rows.Close()
	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.DocumentID, &l.LineNo, &l.ProductID, &l.Quantity, &l.UnitPrice,
			&l.DiscountPct, &l.DiscountAmount, &l.TaxPct, &l.TaxAmount, &l.Total); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func getDocument(ctx context.Context, q querier, tenantID int64, id DocumentID, forUpdate bool) (Document, error) {
	sql := `SELECT ` + headerColumns + ` FROM documents WHERE tenant_id = $1 AND id = $2`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	doc, err := scanHeader(q.QueryRow(ctx, sql, tenantID, id))
	if err != nil {
		return Document{}, err
	}
	doc.Lines, err = loadLines(ctx, q, id)
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Get returns a committed document with its lines.
func (r *Repository) Get(ctx context.Context, tenantID int64, id DocumentID) (Document, error) {
	return getDocument(ctx, r.pool, tenantID, id, false)
}

// List returns one page of document headers, newest first, and the total
// number of matches.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Document, int, error) {
	where := []string{"tenant_id = $1"}
	args := []any{filter.TenantID}
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		where = append(where, fmt.Sprintf("kind = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM documents WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}

	page := shared.NewPagination(filter.Page, filter.PerPage, total)
	args = append(args, page.PerPage, page.Offset())
	sql := fmt.Sprintf(`SELECT %s FROM documents WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		headerColumns, clause, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()
	var docs []Document
	for rows.Next() {
		doc, err := scanHeader(rows)
		if err != nil {
			return nil, 0, err
		}
		docs = append(docs, doc)
	}
	return docs, total, rows.Err()
}

// Payments returns the payments recorded against a document.
func (r *Repository) Payments(ctx context.Context, tenantID int64, id DocumentID) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.document_id, p.amount, p.method, p.paid_at, p.recorded_by
FROM document_payments p JOIN documents d ON d.id = p.document_id
WHERE d.tenant_id = $1 AND p.document_id = $2 ORDER BY p.paid_at, p.id`, tenantID, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.DocumentID, &p.Amount, &p.Method, &p.PaidAt, &p.RecordedBy); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (t *txRepo) InsertHeader(ctx context.Context, doc Document) (DocumentID, error) {
	var id DocumentID
	err := t.tx.QueryRow(ctx, `INSERT INTO documents (tenant_id, reference, kind, document_date, counterparty_id,
	payment_method, status, subtotal, discount_pct, discount_amount, tax_pct, tax_amount, total_amount,
	amount_paid, amount_due, notes, stock_applied, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
RETURNING id`,
		doc.TenantID, doc.Reference, doc.Kind, doc.Date, doc.CounterpartyID, doc.PaymentMethod, doc.Status,
		doc.Subtotal, doc.DiscountPct, doc.DiscountAmount, doc.TaxPct, doc.TaxAmount, doc.Total,
		doc.AmountPaid, doc.AmountDue, doc.Notes, doc.StockApplied, doc.CreatedBy,
	).Scan(&id)
	if err != nil {
		if db.UniqueViolation(err, ReferenceConstraint) {
			return 0, fmt.Errorf("%w: %s", ErrReferenceConflict, doc.Reference)
		}
		return 0, fmt.Errorf("insert document: %w", err)
	}
	_, err = t.tx.Exec(ctx, `INSERT INTO document_references (tenant_id, reference, document_id, kind)
VALUES ($1,$2,$3,$4)`, doc.TenantID, doc.Reference, id, doc.Kind)
	if err != nil {
		if db.UniqueViolation(err, IssuedReferenceConstraint) {
			return 0, fmt.Errorf("%w: %s was issued before", ErrReferenceConflict, doc.Reference)
		}
		return 0, fmt.Errorf("record reference: %w", err)
	}
	return id, nil
}

func (t *txRepo) InsertLine(ctx context.Context, line Line) (LineID, error) {
	var id LineID
	err := t.tx.QueryRow(ctx, `INSERT INTO document_lines (document_id, line_no, product_id, quantity, unit_price,
	discount_pct, discount_amount, tax_pct, tax_amount, line_total)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
RETURNING id`,
		line.DocumentID, line.LineNo, line.ProductID, line.Quantity, line.UnitPrice,
		line.DiscountPct, line.DiscountAmount, line.TaxPct, line.TaxAmount, line.Total,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert line %d: %w", line.LineNo, err)
	}
	return id, nil
}

func (t *txRepo) GetForUpdate(ctx context.Context, tenantID int64, id DocumentID) (Document, error) {
	return getDocument(ctx, t.tx, tenantID, id, true)
}

func (t *txRepo) UpdateStatus(ctx context.Context, tenantID int64, id DocumentID, status Status, stockApplied bool) error {
	tag, err := t.tx.Exec(ctx, `UPDATE documents SET status = $3, stock_applied = $4, updated_at = NOW()
WHERE tenant_id = $1 AND id = $2`, tenantID, id, status, stockApplied)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) UpdateHeader(ctx context.Context, tenantID int64, id DocumentID, patch HeaderPatch) error {
	tag, err := t.tx.Exec(ctx, `UPDATE documents SET
	notes = COALESCE($3, notes),
	document_date = COALESCE($4, document_date),
	payment_method = COALESCE($5, payment_method),
	updated_at = NOW()
WHERE tenant_id = $1 AND id = $2`, tenantID, id, patch.Notes, patch.Date, patch.PaymentMethod)
	if err != nil {
		return fmt.Errorf("update header: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ApplyPayment adds p.Amount to amount_paid and recomputes amount_due.
func (t *txRepo) ApplyPayment(ctx context.Context, p Payment, status Status) error {
	tag, err := t.tx.Exec(ctx, `UPDATE documents SET
	amount_paid = amount_paid + $2,
	amount_due = total_amount - (amount_paid + $2),
	status = $3,
	updated_at = NOW()
WHERE id = $1`, p.DocumentID, p.Amount, status)
	if err != nil {
		return fmt.Errorf("apply payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO document_payments (document_id, amount, method, paid_at, recorded_by)
VALUES ($1,$2,$3,$4,$5) RETURNING id`, p.DocumentID, p.Amount, p.Method, p.PaidAt, p.RecordedBy).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert payment: %w", err)
	}
	return id, nil
}

func (t *txRepo) DeleteLines(ctx context.Context, id DocumentID) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM document_lines WHERE document_id = $1`, id); err != nil {
		return fmt.Errorf("delete lines: %w", err)
	}
	return nil
}

// DeleteHeader removes the document row. Its document_references row stays.
func (t *txRepo) DeleteHeader(ctx context.Context, tenantID int64, id DocumentID) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM document_payments WHERE document_id = $1`, id); err != nil {
		return fmt.Errorf("delete payments: %w", err)
	}
	tag, err := t.tx.Exec(ctx, `DELETE FROM documents WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
