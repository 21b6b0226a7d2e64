package masterdata

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ListFilters represents standard list page filters
type ListFilters struct {
	TenantID int64
	Page     int
	Limit    int
	Search   string
}

// CounterpartyKind distinguishes customers from suppliers.
type CounterpartyKind string

const (
	CounterpartyCustomer CounterpartyKind = "CUSTOMER"
	CounterpartySupplier CounterpartyKind = "SUPPLIER"
)

// Product represents a product entity
type Product struct {
	ID              int64           `json:"id"`
	TenantID        int64           `json:"tenant_id"`
	SKU             string          `json:"sku" validate:"required,max=64"`
	Name            string          `json:"name" validate:"required,max=200"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Quantity        int64           `json:"quantity"`
	OpeningQuantity int64           `json:"opening_quantity"`
	IsActive        bool            `json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Counterparty is a customer or supplier.
type Counterparty struct {
	ID         int64            `json:"id"`
	TenantID   int64            `json:"tenant_id"`
	Kind       CounterpartyKind `json:"kind" validate:"required,oneof=CUSTOMER SUPPLIER"`
	Code       string           `json:"code" validate:"required,max=64"`
	Name       string           `json:"name" validate:"required,max=200"`
	IsFallback bool             `json:"is_fallback"`
	CreatedAt  time.Time        `json:"created_at"`
}

// Lookup answers the existence questions asked while validating documents.
type Lookup interface {
	ProductsByIDs(ctx context.Context, tenantID int64, ids []int64) (map[int64]Product, error)
	Counterparty(ctx context.Context, tenantID, id int64) (Counterparty, error)
	Fallback(ctx context.Context, tenantID int64, kind CounterpartyKind) (Counterparty, error)
}

// Repository interface for master data operations
type Repository interface {
	Lookup
	ListProducts(ctx context.Context, filters ListFilters) ([]Product, int, error)
	GetProduct(ctx context.Context, tenantID, id int64) (Product, error)
	CreateProduct(ctx context.Context, product Product) (Product, error)
	UpdateProduct(ctx context.Context, product Product) error
	ListCounterparties(ctx context.Context, filters ListFilters, kind CounterpartyKind) ([]Counterparty, int, error)
	CreateCounterparty(ctx context.Context, cp Counterparty) (Counterparty, error)
}

var (
	// ErrNotFound indicates the record does not exist for the tenant.
	ErrNotFound = errors.New("masterdata: not found")
	// ErrNoFallback indicates the tenant has no fallback counterparty.
	ErrNoFallback = errors.New("masterdata: fallback counterparty not configured")
	// ErrDuplicate indicates a code or sku already in use.
	ErrDuplicate = errors.New("masterdata: duplicate code")
)
