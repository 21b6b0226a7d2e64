package inventory

import (
	"context"
	"fmt"
	"log/slog"
)

// TxLedger is the transaction-bound storage the ledger writes through.
type TxLedger interface {
	// ApplyDelta adds delta to the product quantity in one statement and
	// returns the resulting quantity.
	ApplyDelta(ctx context.Context, tenantID, productID, delta int64) (int64, error)
	InsertMovement(ctx context.Context, m Movement) (int64, error)
}

// LedgerConfig groups ledger policy.
type LedgerConfig struct {
	// RejectInsufficient fails adjustments that leave a negative quantity.
	RejectInsufficient bool
}

// Ledger applies stock deltas and records one movement per call.
type Ledger struct {
	logger             *slog.Logger
	rejectInsufficient bool
}

// NewLedger builds a Ledger.
func NewLedger(logger *slog.Logger, cfg LedgerConfig) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{logger: logger, rejectInsufficient: cfg.RejectInsufficient}
}

// Adjust applies adj exactly once through tx. A negative result is permitted
// unless the ledger rejects insufficient stock, in which case the caller's
// transaction must be rolled back.
func (l *Ledger) Adjust(ctx context.Context, tx TxLedger, adj Adjustment) (Movement, error) {
	if adj.Delta == 0 {
		return Movement{}, ErrInvalidQuantity
	}
	qty, err := tx.ApplyDelta(ctx, adj.TenantID, adj.ProductID, adj.Delta)
	if err != nil {
		return Movement{}, fmt.Errorf("adjust product %d: %w", adj.ProductID, err)
	}
	if qty < 0 {
		if l.rejectInsufficient {
			return Movement{}, fmt.Errorf("%w: product %d would be %d", ErrInsufficientStock, adj.ProductID, qty)
		}
		l.logger.Warn("stock below zero",
			slog.Int64("tenant_id", adj.TenantID),
			slog.Int64("product_id", adj.ProductID),
			slog.Int64("on_hand", qty),
			slog.String("reference", adj.Reference))
	}
	m := Movement{
		TenantID:     adj.TenantID,
		ProductID:    adj.ProductID,
		DocumentID:   adj.DocumentID,
		Reference:    adj.Reference,
		Delta:        adj.Delta,
		BalanceAfter: qty,
		Reason:       adj.Reason,
		Note:         adj.Note,
		CreatedBy:    adj.ActorID,
	}
	m.ID, err = tx.InsertMovement(ctx, m)
	if err != nil {
		return Movement{}, fmt.Errorf("record movement for product %d: %w", adj.ProductID, err)
	}
	return m, nil
}
