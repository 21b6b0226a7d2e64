package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-retail/internal/platform/db"
)

// Repository persists stock data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txLedger struct {
	tx pgx.Tx
}

// NewTxLedger binds ledger writes to tx.
func NewTxLedger(tx pgx.Tx) TxLedger {
	return &txLedger{tx: tx}
}

// WithTx runs fn in a ReadCommitted transaction for standalone adjustments.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxLedger) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txLedger{tx: tx})
	})
}

func (t *txLedger) ApplyDelta(ctx context.Context, tenantID, productID, delta int64) (int64, error) {
	var qty int64
	err := t.tx.QueryRow(ctx, `UPDATE products SET quantity = quantity + $3, updated_at = NOW()
WHERE tenant_id = $1 AND id = $2
RETURNING quantity`, tenantID, productID, delta).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrProductNotFound
		}
		return 0, err
	}
	return qty, nil
}

func (t *txLedger) InsertMovement(ctx context.Context, m Movement) (int64, error) {
	var docID *int64
	if m.DocumentID != 0 {
		docID = &m.DocumentID
	}
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO stock_movements (tenant_id, product_id, document_id, reference, delta,
	balance_after, reason, note, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
		m.TenantID, m.ProductID, docID, m.Reference, m.Delta, m.BalanceAfter, m.Reason, m.Note, m.CreatedBy,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// OnHand returns the current stock level of a product.
func (r *Repository) OnHand(ctx context.Context, tenantID, productID int64) (StockLevel, error) {
	var lvl StockLevel
	err := r.pool.QueryRow(ctx, `SELECT id, sku, name, quantity FROM products WHERE tenant_id = $1 AND id = $2`,
		tenantID, productID).Scan(&lvl.ProductID, &lvl.SKU, &lvl.Name, &lvl.OnHand)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StockLevel{}, ErrProductNotFound
		}
		return StockLevel{}, err
	}
	return lvl, nil
}

// Movements returns the stock card of a product, oldest first.
func (r *Repository) Movements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT id, tenant_id, product_id, COALESCE(document_id, 0), reference, delta,
	balance_after, reason, note, created_by, created_at
FROM stock_movements
WHERE tenant_id = $1 AND product_id = $2
	AND ($3::timestamptz IS NULL OR created_at >= $3)
	AND ($4::timestamptz IS NULL OR created_at <= $4)
ORDER BY created_at, id
LIMIT $5`, filter.TenantID, filter.ProductID, nullTime(filter.From), nullTime(filter.To), limit)
	if err != nil {
		return nil, fmt.Errorf("query movements: %w", err)
	}
	defer rows.Close()
	var out []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.TenantID, &m.ProductID, &m.DocumentID, &m.Reference, &m.Delta,
			&m.BalanceAfter, &m.Reason, &m.Note, &m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

const conservationSQL = `SELECT p.id, p.opening_quantity, COALESCE(SUM(m.delta), 0)::bigint, p.quantity
FROM products p
LEFT JOIN stock_movements m ON m.product_id = p.id AND m.tenant_id = p.tenant_id
WHERE p.tenant_id = $1`

// Conservation reports opening, movement sum and on-hand for one product.
func (r *Repository) Conservation(ctx context.Context, tenantID, productID int64) (ConservationReport, error) {
	var rep ConservationReport
	err := r.pool.QueryRow(ctx, conservationSQL+` AND p.id = $2 GROUP BY p.id`, tenantID, productID).
		Scan(&rep.ProductID, &rep.Opening, &rep.Movements, &rep.OnHand)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ConservationReport{}, ErrProductNotFound
		}
		return ConservationReport{}, err
	}
	return rep, nil
}

// Imbalances returns every product of the tenant whose quantity disagrees
// with its movements.
func (r *Repository) Imbalances(ctx context.Context, tenantID int64) ([]ConservationReport, error) {
	rows, err := r.pool.Query(ctx, conservationSQL+`
GROUP BY p.id
HAVING p.opening_quantity + COALESCE(SUM(m.delta), 0) <> p.quantity
ORDER BY p.id`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ConservationReport
	for rows.Next() {
		var rep ConservationReport
		if err := rows.Scan(&rep.ProductID, &rep.Opening, &rep.Movements, &rep.OnHand); err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

// RecordAlert stores a negative stock alert. The current quantity is re-read
// so the row reflects the balance when the alert is processed.
func (r *Repository) RecordAlert(ctx context.Context, alert NegativeStockAlert) (int64, error) {
	var docID *int64
	if alert.DocumentID != 0 {
		docID = &alert.DocumentID
	}
	var current int64
	err := r.pool.QueryRow(ctx, `INSERT INTO stock_alerts (tenant_id, product_id, document_id, reference, on_hand_at_write, on_hand_now, detected_at)
SELECT $1, p.id, $3, $4, $5, p.quantity, $6
FROM products p
WHERE p.tenant_id = $1 AND p.id = $2
RETURNING on_hand_now`, alert.TenantID, alert.ProductID, docID, alert.Reference, alert.OnHand, alert.DetectedAt).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrProductNotFound
		}
		return 0, fmt.Errorf("record stock alert: %w", err)
	}
	return current, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
