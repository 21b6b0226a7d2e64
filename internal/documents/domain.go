// Package documents persists sales invoices and purchases as one header
// table plus line items, and owns their status workflows.
package documents

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Kind discriminates invoices from purchases.
type Kind string

const (
	KindSales    Kind = "SALES"
	KindPurchase Kind = "PURCHASE"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindSales || k == KindPurchase
}

// StockSign is the direction a document of this kind moves stock: sales
// consume, purchases receive.
func (k Kind) StockSign() int64 {
	if k == KindSales {
		return -1
	}
	return 1
}

// Status is a document lifecycle status. The permitted set depends on Kind.
type Status string

const (
	StatusDraft         Status = "DRAFT"
	StatusPending       Status = "PENDING"
	StatusUnpaid        Status = "UNPAID"
	StatusPartiallyPaid Status = "PARTIALLY_PAID"
	StatusPaid          Status = "PAID"
	StatusApproved      Status = "APPROVED"
	StatusOrdered       Status = "ORDERED"
	StatusCompleted     Status = "COMPLETED"
	StatusCancelled     Status = "CANCELLED"
	StatusRefunded      Status = "REFUNDED"
	StatusReturned      Status = "RETURNED"
)

// PaymentMethod records how a document is settled.
type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "CASH"
	PaymentCard         PaymentMethod = "CARD"
	PaymentBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentCredit       PaymentMethod = "CREDIT"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentBankTransfer, PaymentCredit:
		return true
	}
	return false
}

// DocumentID is the generated primary key of a document header.
type DocumentID int64

// LineID is the generated primary key of a line item.
type LineID int64

// Document is an invoice or purchase header with its lines.
type Document struct {
	ID             DocumentID
	TenantID       int64
	Reference      string
	Kind           Kind
	Date           time.Time
	CounterpartyID int64
	PaymentMethod  PaymentMethod
	Status         Status
	Subtotal       decimal.Decimal
	DiscountPct    decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxPct         decimal.Decimal
	TaxAmount      decimal.Decimal
	Total          decimal.Decimal
	AmountPaid     decimal.Decimal
	AmountDue      decimal.Decimal
	Notes          string
	StockApplied   bool
	CreatedBy      int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Lines          []Line
}

// Locked reports whether header fields may no longer change.
func (d Document) Locked() bool {
	return d.Status == StatusCompleted || IsTerminal(d.Kind, d.Status)
}

// Line is one product row of a document.
type Line struct {
	ID             LineID
	DocumentID     DocumentID
	LineNo         int
	ProductID      int64
	Quantity       int64
	UnitPrice      decimal.Decimal
	DiscountPct    decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxPct         decimal.Decimal
	TaxAmount      decimal.Decimal
	Total          decimal.Decimal
}

// HeaderPatch carries the editable header fields. Nil fields are untouched.
type HeaderPatch struct {
	Notes         *string
	Date          *time.Time
	PaymentMethod *PaymentMethod
}

// Empty reports whether the patch changes nothing.
func (p HeaderPatch) Empty() bool {
	return p.Notes == nil && p.Date == nil && p.PaymentMethod == nil
}

// Payment is a settlement recorded against an invoice.
type Payment struct {
	ID         int64
	DocumentID DocumentID
	Amount     decimal.Decimal
	Method     PaymentMethod
	PaidAt     time.Time
	RecordedBy int64
}

// ListFilter narrows document listings.
type ListFilter struct {
	TenantID int64
	Kind     Kind
	Status   Status
	Page     int
	PerPage  int
}

var (
	// ErrNotFound indicates the document does not exist for the tenant.
	ErrNotFound = errors.New("documents: not found")
	// ErrDocumentLocked indicates a mutation on a completed or closed document.
	ErrDocumentLocked = errors.New("documents: document locked")
	// ErrInvalidTransition indicates a status change outside the workflow.
	ErrInvalidTransition = errors.New("documents: invalid status transition")
	// ErrCannotDeleteCompleted indicates deletion of a completed document.
	ErrCannotDeleteCompleted = errors.New("documents: cannot delete completed document")
	// ErrReferenceConflict indicates the reference is already taken.
	ErrReferenceConflict = errors.New("documents: reference already exists")
)
