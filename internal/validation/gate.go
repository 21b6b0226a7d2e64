// Package validation checks document proposals against master data before
// anything is written.
package validation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-retail/internal/documents"
	"github.com/odyssey-erp/odyssey-retail/internal/masterdata"
	"github.com/odyssey-erp/odyssey-retail/internal/money"
	"github.com/odyssey-erp/odyssey-retail/internal/shared"
)

var (
	// ErrInvalidHeader indicates a malformed document header.
	ErrInvalidHeader = errors.New("validation: invalid document header")
	// ErrInvalidLineData indicates a line with unusable quantity, price or percentage.
	ErrInvalidLineData = errors.New("validation: invalid line data")
	// ErrNoValidItems indicates every line was dropped.
	ErrNoValidItems = errors.New("validation: no valid items")
)

// RawLine is one line as submitted.
type RawLine struct {
	ProductID   int64   `json:"product_id"`
	Quantity    Numeric `json:"quantity"`
	UnitPrice   Numeric `json:"unit_price,omitempty" jsonschema_description:"Defaults to the product price on invoices; required on purchases"`
	DiscountPct Numeric `json:"discount_pct,omitempty"`
	TaxPct      Numeric `json:"tax_pct,omitempty"`
}

// Proposal is a document as submitted, before any referential check.
type Proposal struct {
	CounterpartyID int64     `json:"counterparty_id,omitempty" jsonschema_description:"Customer for invoices, supplier for purchases. Unknown ids fall back to the tenant default"`
	Date           string    `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PaymentMethod  string    `json:"payment_method" validate:"required,oneof=CASH CARD BANK_TRANSFER CREDIT"`
	Status         string    `json:"status,omitempty" validate:"omitempty,uppercase"`
	DiscountPct    Numeric   `json:"discount_pct,omitempty"`
	TaxPct         Numeric   `json:"tax_pct,omitempty"`
	AmountPaid     Numeric   `json:"amount_paid,omitempty"`
	Notes          string    `json:"notes,omitempty" validate:"max=1000"`
	Lines          []RawLine `json:"lines" jsonschema_description:"Lines naming unknown products are dropped"`
}

// AcceptedLine is a line that passed every check, with parsed values.
type AcceptedLine struct {
	Index       int
	ProductID   int64
	Quantity    int64
	UnitPrice   decimal.Decimal
	DiscountPct decimal.Decimal
	TaxPct      decimal.Decimal
}

// Result is a proposal that may be persisted.
type Result struct {
	Kind           documents.Kind
	CounterpartyID int64
	Substituted    bool
	Date           time.Time
	PaymentMethod  documents.PaymentMethod
	Status         documents.Status
	DiscountPct    decimal.Decimal
	TaxPct         decimal.Decimal
	AmountPaid     decimal.Decimal
	Notes          string
	Lines          []AcceptedLine
	// Accepted and Dropped hold input line indices.
	Accepted []int
	Dropped  []int
}

// Gate validates proposals.
type Gate struct {
	lookup    masterdata.Lookup
	validator *validator.Validate
	logger    *slog.Logger
}

// NewGate builds a Gate.
func NewGate(lookup masterdata.Lookup, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{lookup: lookup, validator: validator.New(), logger: logger}
}

// Check validates p for kind. Lines naming unknown products are dropped and
// an unknown counterparty is replaced by the tenant fallback; neither is an
// error. Any malformed line rejects the whole proposal.
func (g *Gate) Check(ctx context.Context, rc shared.RequestContext, kind documents.Kind, p Proposal) (Result, error) {
	if !kind.Valid() {
		return Result{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidHeader, kind)
	}
	if err := g.validator.Struct(p); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}
	res := Result{
		Kind:          kind,
		PaymentMethod: documents.PaymentMethod(p.PaymentMethod),
		Status:        documents.Status(p.Status),
		Notes:         p.Notes,
	}
	if res.Status != "" && !documents.ValidInitialStatus(kind, res.Status) {
		return Result{}, fmt.Errorf("%w: %s cannot start as %s", ErrInvalidHeader, kind, res.Status)
	}
	if p.Date != "" {
		d, err := time.Parse(time.DateOnly, p.Date)
		if err != nil {
			return Result{}, fmt.Errorf("%w: date: %v", ErrInvalidHeader, err)
		}
		res.Date = d
	}

	var err error
	if res.DiscountPct, err = headerPercent("discount_pct", p.DiscountPct); err != nil {
		return Result{}, err
	}
	if res.TaxPct, err = headerPercent("tax_pct", p.TaxPct); err != nil {
		return Result{}, err
	}
	if res.AmountPaid, err = p.AmountPaid.Decimal(); err != nil || res.AmountPaid.IsNegative() {
		return Result{}, fmt.Errorf("%w: amount_paid must be a non-negative number", ErrInvalidHeader)
	}

	lines := make([]AcceptedLine, 0, len(p.Lines))
	for i, raw := range p.Lines {
		line, err := parseLine(i, raw, kind)
		if err != nil {
			return Result{}, err
		}
		lines = append(lines, line)
	}

	if res.CounterpartyID, res.Substituted, err = g.resolveCounterparty(ctx, rc, kind, p.CounterpartyID); err != nil {
		return Result{}, err
	}

	ids := make([]int64, 0, len(lines))
	seen := make(map[int64]struct{}, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.ProductID]; ok || l.ProductID <= 0 {
			continue
		}
		seen[l.ProductID] = struct{}{}
		ids = append(ids, l.ProductID)
	}
	products, err := g.lookup.ProductsByIDs(ctx, rc.TenantID, ids)
	if err != nil {
		return Result{}, fmt.Errorf("validation: load products: %w", err)
	}

	for i, l := range lines {
		product, ok := products[l.ProductID]
		if !ok {
			res.Dropped = append(res.Dropped, i)
			continue
		}
		if p.Lines[i].UnitPrice.Empty() {
			l.UnitPrice = product.UnitPrice
		}
		res.Lines = append(res.Lines, l)
		res.Accepted = append(res.Accepted, i)
	}
	if len(res.Dropped) > 0 {
		g.logger.Info("proposal lines dropped",
			slog.Int64("tenant_id", rc.TenantID),
			slog.String("kind", string(kind)),
			slog.Any("dropped", res.Dropped))
	}
	if len(res.Lines) == 0 {
		return Result{}, ErrNoValidItems
	}
	return res, nil
}

func (g *Gate) resolveCounterparty(ctx context.Context, rc shared.RequestContext, kind documents.Kind, id int64) (int64, bool, error) {
	want := masterdata.CounterpartyCustomer
	if kind == documents.KindPurchase {
		want = masterdata.CounterpartySupplier
	}
	if id > 0 {
		cp, err := g.lookup.Counterparty(ctx, rc.TenantID, id)
		switch {
		case err == nil && cp.Kind == want:
			return cp.ID, false, nil
		case err != nil && !errors.Is(err, masterdata.ErrNotFound):
			return 0, false, fmt.Errorf("validation: load counterparty: %w", err)
		}
	}
	fallback, err := g.lookup.Fallback(ctx, rc.TenantID, want)
	if err != nil {
		return 0, false, fmt.Errorf("validation: %w", err)
	}
	g.logger.Warn("counterparty substituted",
		slog.Int64("tenant_id", rc.TenantID),
		slog.Int64("requested_id", id),
		slog.Int64("fallback_id", fallback.ID),
		slog.String("kind", string(want)))
	return fallback.ID, true, nil
}

func headerPercent(field string, n Numeric) (decimal.Decimal, error) {
	v, err := n.Decimal()
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", ErrInvalidHeader, field, err)
	}
	return money.ClampPercent(v), nil
}

func parseLine(i int, raw RawLine, kind documents.Kind) (AcceptedLine, error) {
	fail := func(format string, args ...any) (AcceptedLine, error) {
		return AcceptedLine{}, fmt.Errorf("%w: line %d: %s", ErrInvalidLineData, i, fmt.Sprintf(format, args...))
	}
	if raw.Quantity.Empty() {
		return fail("quantity required")
	}
	qty, err := raw.Quantity.Decimal()
	if err != nil {
		return fail("quantity %q is not a number", raw.Quantity)
	}
	if !qty.IsInteger() || !qty.IsPositive() {
		return fail("quantity %s must be a positive integer", qty)
	}
	if !qty.LessThanOrEqual(decimal.NewFromInt(1 << 53)) {
		return fail("quantity %s too large", qty)
	}
	line := AcceptedLine{Index: i, ProductID: raw.ProductID, Quantity: qty.IntPart()}

	if raw.UnitPrice.Empty() && kind == documents.KindPurchase {
		return fail("unit price required")
	}
	if line.UnitPrice, err = raw.UnitPrice.Decimal(); err != nil {
		return fail("unit price %q is not a number", raw.UnitPrice)
	}
	if line.UnitPrice.IsNegative() {
		return fail("unit price %s must be >= 0", line.UnitPrice)
	}
	if line.DiscountPct, err = raw.DiscountPct.Decimal(); err != nil {
		return fail("discount %q is not a number", raw.DiscountPct)
	}
	if line.TaxPct, err = raw.TaxPct.Decimal(); err != nil {
		return fail("tax %q is not a number", raw.TaxPct)
	}
	line.DiscountPct = money.ClampPercent(line.DiscountPct)
	line.TaxPct = money.ClampPercent(line.TaxPct)
	return line, nil
}
