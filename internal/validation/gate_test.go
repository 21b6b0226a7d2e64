package validation

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-retail/internal/documents"
	"github.com/odyssey-erp/odyssey-retail/internal/masterdata"
	"github.com/odyssey-erp/odyssey-retail/internal/shared"
)

type stubLookup struct {
	products map[int64]masterdata.Product
	parties  map[int64]masterdata.Counterparty
}

func (s stubLookup) ProductsByIDs(_ context.Context, _ int64, ids []int64) (map[int64]masterdata.Product, error) {
	out := map[int64]masterdata.Product{}
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (s stubLookup) Counterparty(_ context.Context, _ int64, id int64) (masterdata.Counterparty, error) {
	cp, ok := s.parties[id]
	if !ok {
		return masterdata.Counterparty{}, masterdata.ErrNotFound
	}
	return cp, nil
}

func (s stubLookup) Fallback(_ context.Context, _ int64, kind masterdata.CounterpartyKind) (masterdata.Counterparty, error) {
	if kind == masterdata.CounterpartyCustomer {
		return masterdata.Counterparty{ID: 100, Kind: kind, IsFallback: true}, nil
	}
	return masterdata.Counterparty{ID: 200, Kind: kind, IsFallback: true}, nil
}

func newStub() stubLookup {
	return stubLookup{
		products: map[int64]masterdata.Product{
			1: {ID: 1, UnitPrice: decimal.NewFromInt(100)},
			2: {ID: 2, UnitPrice: decimal.NewFromInt(50)},
		},
		parties: map[int64]masterdata.Counterparty{
			10: {ID: 10, Kind: masterdata.CounterpartyCustomer},
			20: {ID: 20, Kind: masterdata.CounterpartySupplier},
		},
	}
}

var rc = shared.RequestContext{TenantID: 1, ActorID: 1}

func decode(t *testing.T, body string) Proposal {
	t.Helper()
	var p Proposal
	require.NoError(t, json.Unmarshal([]byte(body), &p))
	return p
}

func TestCheckAcceptsNumbersAndStrings(t *testing.T) {
	gate := NewGate(newStub(), nil)
	p := decode(t, `{"counterparty_id":10,"payment_method":"CASH","tax_pct":"15",
		"lines":[{"product_id":1,"quantity":"2","unit_price":100,"discount_pct":10},{"product_id":2,"quantity":1}]}`)

	res, err := gate.Check(context.Background(), rc, documents.KindSales, p)
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.CounterpartyID)
	assert.False(t, res.Substituted)
	require.Len(t, res.Lines, 2)
	assert.Equal(t, int64(2), res.Lines[0].Quantity)
	assert.True(t, decimal.NewFromInt(50).Equal(res.Lines[1].UnitPrice), "price defaults to product price")
	assert.Equal(t, []int{0, 1}, res.Accepted)
	assert.Empty(t, res.Dropped)
}

func TestCheckDropsUnknownProducts(t *testing.T) {
	gate := NewGate(newStub(), nil)
	p := decode(t, `{"counterparty_id":10,"payment_method":"CARD",
		"lines":[{"product_id":1,"quantity":1},{"product_id":77,"quantity":1},{"product_id":2,"quantity":3}]}`)

	res, err := gate.Check(context.Background(), rc, documents.KindSales, p)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, res.Accepted)
	assert.Equal(t, []int{1}, res.Dropped)
	assert.Equal(t, 2, res.Lines[1].Index)
}

func TestCheckRejectsWhenNoValidItems(t *testing.T) {
	gate := NewGate(newStub(), nil)
	p := decode(t, `{"payment_method":"CASH","lines":[{"product_id":77,"quantity":1}]}`)
	_, err := gate.Check(context.Background(), rc, documents.KindSales, p)
	require.ErrorIs(t, err, ErrNoValidItems)

	p = decode(t, `{"payment_method":"CASH","lines":[]}`)
	_, err = gate.Check(context.Background(), rc, documents.KindSales, p)
	require.ErrorIs(t, err, ErrNoValidItems)
}

func TestCheckRejectsMalformedLines(t *testing.T) {
	gate := NewGate(newStub(), nil)
	cases := map[string]string{
		"non numeric":  `{"product_id":1,"quantity":"abc"}`,
		"fractional":   `{"product_id":1,"quantity":1.5}`,
		"zero":         `{"product_id":1,"quantity":0}`,
		"negative":     `{"product_id":1,"quantity":-2}`,
		"missing qty":  `{"product_id":1}`,
		"neg price":    `{"product_id":1,"quantity":1,"unit_price":-1}`,
		"bad discount": `{"product_id":1,"quantity":1,"discount_pct":"x"}`,
	}
	for name, line := range cases {
		t.Run(name, func(t *testing.T) {
			p := decode(t, `{"payment_method":"CASH","lines":[{"product_id":2,"quantity":1},`+line+`]}`)
			_, err := gate.Check(context.Background(), rc, documents.KindSales, p)
			require.ErrorIs(t, err, ErrInvalidLineData)
			assert.Contains(t, err.Error(), "line 1")
		})
	}
}

func TestCheckPurchaseRequiresUnitPrice(t *testing.T) {
	gate := NewGate(newStub(), nil)
	p := decode(t, `{"counterparty_id":20,"payment_method":"CREDIT","lines":[{"product_id":1,"quantity":5}]}`)
	_, err := gate.Check(context.Background(), rc, documents.KindPurchase, p)
	require.ErrorIs(t, err, ErrInvalidLineData)
}

func TestCheckSubstitutesFallbackCounterparty(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	gate := NewGate(newStub(), logger)

	p := decode(t, `{"counterparty_id":999,"payment_method":"CASH","lines":[{"product_id":1,"quantity":1}]}`)
	res, err := gate.Check(context.Background(), rc, documents.KindSales, p)
	require.NoError(t, err)
	assert.True(t, res.Substituted)
	assert.Equal(t, int64(100), res.CounterpartyID)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "counterparty substituted")

	// a supplier id on an invoice is not a customer
	p = decode(t, `{"counterparty_id":20,"payment_method":"CASH","lines":[{"product_id":1,"quantity":1}]}`)
	res, err = gate.Check(context.Background(), rc, documents.KindSales, p)
	require.NoError(t, err)
	assert.Equal(t, int64(100), res.CounterpartyID)

	p = decode(t, `{"payment_method":"CASH","lines":[{"product_id":1,"quantity":1,"unit_price":3}]}`)
	res, err = gate.Check(context.Background(), rc, documents.KindPurchase, p)
	require.NoError(t, err)
	assert.Equal(t, int64(200), res.CounterpartyID)
}

func TestCheckClampsPercentages(t *testing.T) {
	gate := NewGate(newStub(), nil)
	p := decode(t, `{"counterparty_id":10,"payment_method":"CASH","discount_pct":-5,"tax_pct":150,
		"lines":[{"product_id":1,"quantity":1,"discount_pct":120,"tax_pct":-1}]}`)
	res, err := gate.Check(context.Background(), rc, documents.KindSales, p)
	require.NoError(t, err)
	assert.True(t, res.DiscountPct.IsZero())
	assert.Equal(t, "100", res.TaxPct.String())
	assert.Equal(t, "100", res.Lines[0].DiscountPct.String())
	assert.True(t, res.Lines[0].TaxPct.IsZero())
}

func TestCheckHeaderValidation(t *testing.T) {
	gate := NewGate(newStub(), nil)
	cases := []string{
		`{"payment_method":"BARTER","lines":[{"product_id":1,"quantity":1}]}`,
		`{"payment_method":"CASH","date":"31/01/2024","lines":[{"product_id":1,"quantity":1}]}`,
		`{"payment_method":"CASH","status":"APPROVED","lines":[{"product_id":1,"quantity":1}]}`,
		`{"payment_method":"CASH","amount_paid":-1,"lines":[{"product_id":1,"quantity":1}]}`,
	}
	for _, body := range cases {
		_, err := gate.Check(context.Background(), rc, documents.KindSales, decode(t, body))
		assert.ErrorIs(t, err, ErrInvalidHeader, body)
	}
}

func TestNumericUnmarshal(t *testing.T) {
	var v struct {
		A Numeric `json:"a"`
		B Numeric `json:"b"`
		C Numeric `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":12.50,"b":" 3 ","c":null}`), &v))
	assert.Equal(t, Numeric("12.50"), v.A)
	assert.Equal(t, Numeric("3"), v.B)
	assert.True(t, v.C.Empty())
	require.Error(t, json.Unmarshal([]byte(`{"a":true}`), &v))
}
