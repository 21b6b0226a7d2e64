package masterdata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-retail/internal/shared"
)

type memRepo struct {
	products       map[int64]Product
	counterparties map[int64]Counterparty
	nextID         int64
}

func newMemRepo() *memRepo {
	return &memRepo{products: map[int64]Product{}, counterparties: map[int64]Counterparty{}}
}

func (m *memRepo) ProductsByIDs(_ context.Context, tenantID int64, ids []int64) (map[int64]Product, error) {
	out := map[int64]Product{}
	for _, id := range ids {
		if p, ok := m.products[id]; ok && p.TenantID == tenantID && p.IsActive {
			out[id] = p
		}
	}
	return out, nil
}

func (m *memRepo) Counterparty(_ context.Context, tenantID, id int64) (Counterparty, error) {
	cp, ok := m.counterparties[id]
	if !ok || cp.TenantID != tenantID {
		return Counterparty{}, ErrNotFound
	}
	return cp, nil
}

func (m *memRepo) Fallback(_ context.Context, tenantID int64, kind CounterpartyKind) (Counterparty, error) {
	for _, cp := range m.counterparties {
		if cp.TenantID == tenantID && cp.Kind == kind && cp.IsFallback {
			return cp, nil
		}
	}
	return Counterparty{}, ErrNoFallback
}

func (m *memRepo) ListProducts(_ context.Context, filters ListFilters) ([]Product, int, error) {
	var out []Product
	for _, p := range m.products {
		if p.TenantID == filters.TenantID {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

func (m *memRepo) GetProduct(_ context.Context, tenantID, id int64) (Product, error) {
	p, ok := m.products[id]
	if !ok || p.TenantID != tenantID {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (m *memRepo) CreateProduct(_ context.Context, product Product) (Product, error) {
	for _, p := range m.products {
		if p.TenantID == product.TenantID && p.SKU == product.SKU {
			return Product{}, fmt.Errorf("%w: %s", ErrDuplicate, product.SKU)
		}
	}
	m.nextID++
	product.ID = m.nextID
	product.OpeningQuantity = product.Quantity
	product.IsActive = true
	m.products[product.ID] = product
	return product, nil
}

func (m *memRepo) UpdateProduct(_ context.Context, product Product) error {
	p, ok := m.products[product.ID]
	if !ok || p.TenantID != product.TenantID {
		return ErrNotFound
	}
	p.Name, p.UnitPrice, p.IsActive = product.Name, product.UnitPrice, product.IsActive
	m.products[p.ID] = p
	return nil
}

func (m *memRepo) ListCounterparties(_ context.Context, filters ListFilters, kind CounterpartyKind) ([]Counterparty, int, error) {
	var out []Counterparty
	for _, cp := range m.counterparties {
		if cp.TenantID == filters.TenantID && (kind == "" || cp.Kind == kind) {
			out = append(out, cp)
		}
	}
	return out, len(out), nil
}

func (m *memRepo) CreateCounterparty(_ context.Context, cp Counterparty) (Counterparty, error) {
	m.nextID++
	cp.ID = m.nextID
	m.counterparties[cp.ID] = cp
	return cp, nil
}

type bumpCounter struct {
	bumps map[int64]int
	err   error
}

func (b *bumpCounter) Bump(_ context.Context, tenantID int64) error {
	if b.bumps == nil {
		b.bumps = map[int64]int{}
	}
	b.bumps[tenantID]++
	return b.err
}

func TestCreateProductRecordsOpeningQuantityAndInvalidates(t *testing.T) {
	repo := newMemRepo()
	bumps := &bumpCounter{}
	svc := NewService(repo, bumps, nil)

	p, err := svc.CreateProduct(context.Background(), Product{
		TenantID: 1, SKU: "SKU-1", Name: "Coffee", UnitPrice: decimal.NewFromInt(100), Quantity: 12,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(12), p.OpeningQuantity)
	assert.Equal(t, 1, bumps.bumps[1])

	_, err = svc.CreateProduct(context.Background(), Product{TenantID: 1, SKU: "SKU-1", Name: "Again"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Equal(t, 1, bumps.bumps[1])
}

func TestCreateProductValidation(t *testing.T) {
	svc := NewService(newMemRepo(), nil, nil)

	_, err := svc.CreateProduct(context.Background(), Product{TenantID: 1, Name: "No sku"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateProduct(context.Background(), Product{TenantID: 1, SKU: "S", Name: "Neg", UnitPrice: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBumpFailureDoesNotFailWrite(t *testing.T) {
	svc := NewService(newMemRepo(), &bumpCounter{err: errors.New("redis down")}, nil)

	_, err := svc.CreateCounterparty(context.Background(), Counterparty{TenantID: 1, Kind: CounterpartyCustomer, Code: "C1", Name: "Kedai"})
	require.NoError(t, err)
}

func TestCreateCounterpartyRejectsUnknownKind(t *testing.T) {
	svc := NewService(newMemRepo(), nil, nil)

	_, err := svc.CreateCounterparty(context.Background(), Counterparty{TenantID: 1, Kind: "VENDOR", Code: "V", Name: "V"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetProductRejectsInvalidID(t *testing.T) {
	svc := NewService(newMemRepo(), nil, nil)

	_, err := svc.GetProduct(context.Background(), 1, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func newTestRouter(svc *Service) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := shared.ContextWithRequest(req.Context(), shared.RequestContext{TenantID: 1, ActorID: 42})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).MountRoutes(r)
	return r
}

func TestHandlerProductLifecycle(t *testing.T) {
	router := newTestRouter(NewService(newMemRepo(), nil, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/products",
		strings.NewReader(`{"sku":"SKU-9","name":"Mug","unit_price":"45.00","quantity":3}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"opening_quantity":3`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/products",
		strings.NewReader(`{"sku":"SKU-9","name":"Mug"}`)))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "DUPLICATE")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/77", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/products/1",
		strings.NewReader(`{"sku":"SKU-9","name":"Big Mug","unit_price":"50","is_active":false}`)))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHandlerCounterparties(t *testing.T) {
	router := newTestRouter(NewService(newMemRepo(), nil, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/counterparties",
		strings.NewReader(`{"kind":"SUPPLIER","code":"S1","name":"PT Kopi"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/counterparties",
		strings.NewReader(`{"kind":"SUPPLIER","code":"S2"}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/counterparties?kind=CUSTOMER", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"data":[]`)
}
