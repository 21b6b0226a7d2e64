package fulfillment

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/odyssey-retail/internal/documents"
	"github.com/odyssey-erp/odyssey-retail/internal/inventory"
	"github.com/odyssey-erp/odyssey-retail/internal/platform/db"
)

// Scope exposes the transaction-bound stores of one atomic unit.
type Scope interface {
	Documents() documents.TxRepository
	Stock() inventory.TxLedger
}

// UnitOfWork runs fn in one atomic scope. When fn returns an error nothing
// it wrote survives.
type UnitOfWork interface {
	Within(ctx context.Context, fn func(ctx context.Context, scope Scope) error) error
}

// PgUnitOfWork is a UnitOfWork over one PostgreSQL transaction.
type PgUnitOfWork struct {
	pool    db.Beginner
	timeout time.Duration
}

// NewPgUnitOfWork builds a unit of work. A positive timeout bounds each scope.
func NewPgUnitOfWork(pool db.Beginner, timeout time.Duration) *PgUnitOfWork {
	return &PgUnitOfWork{pool: pool, timeout: timeout}
}

type pgScope struct {
	docs  documents.TxRepository
	stock inventory.TxLedger
}

func (s pgScope) Documents() documents.TxRepository { return s.docs }
func (s pgScope) Stock() inventory.TxLedger         { return s.stock }

// Within implements UnitOfWork.
func (u *PgUnitOfWork) Within(ctx context.Context, fn func(context.Context, Scope) error) error {
	if u.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}
	return db.WithTx(ctx, u.pool, func(tx pgx.Tx) error {
		return fn(ctx, pgScope{
			docs:  documents.NewTxRepository(tx),
			stock: inventory.NewTxLedger(tx),
		})
	})
}
