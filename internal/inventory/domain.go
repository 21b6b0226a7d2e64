package inventory

import (
	"errors"
	"time"
)

// MovementReason classifies why on-hand quantity changed.
type MovementReason string

const (
	ReasonSale       MovementReason = "SALE"
	ReasonPurchase   MovementReason = "PURCHASE"
	ReasonReversal   MovementReason = "REVERSAL"
	ReasonAdjustment MovementReason = "ADJUSTMENT"
)

// Adjustment is one signed change to a product's on-hand quantity.
type Adjustment struct {
	TenantID   int64
	ProductID  int64
	Delta      int64
	DocumentID int64
	Reference  string
	Reason     MovementReason
	Note       string
	ActorID    int64
}

// Movement is a stock_movements row.
type Movement struct {
	ID           int64
	TenantID     int64
	ProductID    int64
	DocumentID   int64
	Reference    string
	Delta        int64
	BalanceAfter int64
	Reason       MovementReason
	Note         string
	CreatedBy    int64
	CreatedAt    time.Time
}

// StockLevel summarises a product's current quantity.
type StockLevel struct {
	ProductID int64  `json:"product_id"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	OnHand    int64  `json:"on_hand"`
}

// MovementFilter narrows stock card queries.
type MovementFilter struct {
	TenantID  int64
	ProductID int64
	From      time.Time
	To        time.Time
	Limit     int
}

// ConservationReport compares on-hand against opening plus movements.
type ConservationReport struct {
	ProductID int64 `json:"product_id"`
	Opening   int64 `json:"opening"`
	Movements int64 `json:"movements"`
	OnHand    int64 `json:"on_hand"`
}

// Balanced reports whether opening + movements equals on-hand.
func (r ConservationReport) Balanced() bool {
	return r.Opening+r.Movements == r.OnHand
}

var (
	// ErrProductNotFound indicates the product does not exist for the tenant.
	ErrProductNotFound = errors.New("inventory: product not found")
	// ErrInvalidQuantity indicates a zero delta.
	ErrInvalidQuantity = errors.New("inventory: quantity must be non zero")
	// ErrInsufficientStock is returned when negative stock is rejected.
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
)

// NegativeStockAlert reports a product left below zero by a committed write.
type NegativeStockAlert struct {
	TenantID   int64     `json:"tenant_id"`
	ProductID  int64     `json:"product_id"`
	OnHand     int64     `json:"on_hand"`
	DocumentID int64     `json:"document_id,omitempty"`
	Reference  string    `json:"reference,omitempty"`
	DetectedAt time.Time `json:"detected_at"`
}
