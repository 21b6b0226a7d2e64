package masterdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-retail/internal/platform/db"
	"github.com/odyssey-erp/odyssey-retail/internal/shared"
)

// repo implements Repository interface
type repo struct {
	db *pgxpool.Pool
}

// NewRepository creates a new master data repository
func NewRepository(db *pgxpool.Pool) Repository {
	return &repo{db: db}
}

const productColumns = `id, tenant_id, sku, name, unit_price, quantity, opening_quantity, is_active, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.TenantID, &p.SKU, &p.Name, &p.UnitPrice, &p.Quantity, &p.OpeningQuantity,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

const counterpartyColumns = `id, tenant_id, kind, code, name, is_fallback, created_at`

func scanCounterparty(row pgx.Row) (Counterparty, error) {
	var c Counterparty
	err := row.Scan(&c.ID, &c.TenantID, &c.Kind, &c.Code, &c.Name, &c.IsFallback, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Counterparty{}, ErrNotFound
	}
	return c, err
}

// Product operations
func (r *repo) ProductsByIDs(ctx context.Context, tenantID int64, ids []int64) (map[int64]Product, error) {
	out := make(map[int64]Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+productColumns+` FROM products
WHERE tenant_id = $1 AND id = ANY($2) AND is_active`, tenantID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (r *repo) GetProduct(ctx context.Context, tenantID, id int64) (Product, error) {
	return scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE tenant_id = $1 AND id = $2`, tenantID, id))
}

func (r *repo) ListProducts(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	var total int
	search := "%" + filters.Search + "%"
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE tenant_id = $1 AND (sku ILIKE $2 OR name ILIKE $2)`,
		filters.TenantID, search).Scan(&total); err != nil {
		return nil, 0, err
	}
	page := shared.NewPagination(filters.Page, filters.Limit, total)
	rows, err := r.db.Query(ctx, `SELECT `+productColumns+` FROM products
WHERE tenant_id = $1 AND (sku ILIKE $2 OR name ILIKE $2)
ORDER BY name LIMIT $3 OFFSET $4`, filters.TenantID, search, page.PerPage, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

// CreateProduct inserts a product; its starting quantity becomes the opening
// balance used by stock conservation checks.
func (r *repo) CreateProduct(ctx context.Context, product Product) (Product, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO products (tenant_id, sku, name, unit_price, quantity, opening_quantity, is_active)
VALUES ($1, $2, $3, $4, $5, $5, TRUE)
RETURNING id, opening_quantity, is_active, created_at, updated_at`,
		product.TenantID, product.SKU, product.Name, product.UnitPrice, product.Quantity,
	).Scan(&product.ID, &product.OpeningQuantity, &product.IsActive, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		if db.UniqueViolation(err, "") {
			return Product{}, fmt.Errorf("%w: %s", ErrDuplicate, product.SKU)
		}
		return Product{}, err
	}
	return product, nil
}

// UpdateProduct changes descriptive fields. Quantity belongs to the ledger.
func (r *repo) UpdateProduct(ctx context.Context, product Product) error {
	tag, err := r.db.Exec(ctx, `UPDATE products SET name = $3, unit_price = $4, is_active = $5, updated_at = NOW()
WHERE tenant_id = $1 AND id = $2`, product.TenantID, product.ID, product.Name, product.UnitPrice, product.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Counterparty operations
func (r *repo) Counterparty(ctx context.Context, tenantID, id int64) (Counterparty, error) {
	return scanCounterparty(r.db.QueryRow(ctx, `SELECT `+counterpartyColumns+` FROM counterparties
WHERE tenant_id = $1 AND id = $2`, tenantID, id))
}

func (r *repo) Fallback(ctx context.Context, tenantID int64, kind CounterpartyKind) (Counterparty, error) {
	c, err := scanCounterparty(r.db.QueryRow(ctx, `SELECT `+counterpartyColumns+` FROM counterparties
WHERE tenant_id = $1 AND kind = $2 AND is_fallback
ORDER BY id LIMIT 1`, tenantID, kind))
	if errors.Is(err, ErrNotFound) {
		return Counterparty{}, fmt.Errorf("%w: %s", ErrNoFallback, kind)
	}
	return c, err
}

func (r *repo) ListCounterparties(ctx context.Context, filters ListFilters, kind CounterpartyKind) ([]Counterparty, int, error) {
	var total int
	search := "%" + filters.Search + "%"
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM counterparties
WHERE tenant_id = $1 AND ($2 = '' OR kind = $2) AND (code ILIKE $3 OR name ILIKE $3)`,
		filters.TenantID, string(kind), search).Scan(&total); err != nil {
		return nil, 0, err
	}
	page := shared.NewPagination(filters.Page, filters.Limit, total)
	rows, err := r.db.Query(ctx, `SELECT `+counterpartyColumns+` FROM counterparties
WHERE tenant_id = $1 AND ($2 = '' OR kind = $2) AND (code ILIKE $3 OR name ILIKE $3)
ORDER BY name LIMIT $4 OFFSET $5`, filters.TenantID, string(kind), search, page.PerPage, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Counterparty
	for rows.Next() {
		c, err := scanCounterparty(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *repo) CreateCounterparty(ctx context.Context, cp Counterparty) (Counterparty, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO counterparties (tenant_id, kind, code, name, is_fallback)
VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		cp.TenantID, cp.Kind, cp.Code, cp.Name, cp.IsFallback).Scan(&cp.ID, &cp.CreatedAt)
	if err != nil {
		if db.UniqueViolation(err, "") {
			return Counterparty{}, fmt.Errorf("%w: %s", ErrDuplicate, cp.Code)
		}
		return Counterparty{}, err
	}
	return cp, nil
}
