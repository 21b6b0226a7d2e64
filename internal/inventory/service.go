package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/odyssey-erp/odyssey-retail/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxLedger) error) error
	OnHand(ctx context.Context, tenantID, productID int64) (StockLevel, error)
	Movements(ctx context.Context, filter MovementFilter) ([]Movement, error)
	Conservation(ctx context.Context, tenantID, productID int64) (ConservationReport, error)
	Imbalances(ctx context.Context, tenantID int64) ([]ConservationReport, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// AlertPort receives negative stock notifications after commit.
type AlertPort interface {
	NegativeStock(ctx context.Context, alert NegativeStockAlert) error
}

// Service exposes stock reads and manual adjustments.
type Service struct {
	repo   RepositoryPort
	ledger *Ledger
	audit  AuditPort
	alerts AlertPort
	logger *slog.Logger
}

// NewService builds Service. audit and alerts may be nil.
func NewService(repo RepositoryPort, ledger *Ledger, audit AuditPort, alerts AlertPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, ledger: ledger, audit: audit, alerts: alerts, logger: logger}
}

// AdjustmentInput describes a manual stock correction.
type AdjustmentInput struct {
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	Delta     int64  `json:"delta" validate:"required,ne=0"`
	Note      string `json:"note" validate:"max=500"`
}

// StockLevel returns the on-hand quantity of a product.
func (s *Service) StockLevel(ctx context.Context, rc shared.RequestContext, productID int64) (StockLevel, error) {
	return s.repo.OnHand(ctx, rc.TenantID, productID)
}

// StockCard lists the movements of a product.
func (s *Service) StockCard(ctx context.Context, rc shared.RequestContext, filter MovementFilter) ([]Movement, error) {
	if filter.ProductID == 0 {
		return nil, errors.New("inventory: product required")
	}
	filter.TenantID = rc.TenantID
	if _, err := s.repo.OnHand(ctx, rc.TenantID, filter.ProductID); err != nil {
		return nil, err
	}
	return s.repo.Movements(ctx, filter)
}

// CheckConservation verifies one product, or every product when productID
// is zero, and returns the reports that do not balance.
func (s *Service) CheckConservation(ctx context.Context, tenantID, productID int64) ([]ConservationReport, error) {
	if productID == 0 {
		return s.repo.Imbalances(ctx, tenantID)
	}
	rep, err := s.repo.Conservation(ctx, tenantID, productID)
	if err != nil {
		return nil, err
	}
	if rep.Balanced() {
		return nil, nil
	}
	return []ConservationReport{rep}, nil
}

// PostAdjustment applies a manual correction in its own transaction.
func (s *Service) PostAdjustment(ctx context.Context, rc shared.RequestContext, input AdjustmentInput) (Movement, error) {
	if input.ProductID == 0 {
		return Movement{}, errors.New("inventory: product required")
	}
	if input.Delta == 0 {
		return Movement{}, ErrInvalidQuantity
	}
	var mv Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxLedger) error {
		var err error
		mv, err = s.ledger.Adjust(ctx, tx, Adjustment{
			TenantID:  rc.TenantID,
			ProductID: input.ProductID,
			Delta:     input.Delta,
			Reason:    ReasonAdjustment,
			Note:      input.Note,
			ActorID:   rc.ActorID,
		})
		return err
	})
	if err != nil {
		return Movement{}, err
	}
	if s.audit != nil {
		err := s.audit.Record(ctx, shared.AuditLog{
			TenantID: rc.TenantID,
			ActorID:  rc.ActorID,
			Action:   fmt.Sprintf("inventory:%s", ReasonAdjustment),
			Entity:   "product",
			EntityID: strconv.FormatInt(input.ProductID, 10),
			Meta: map[string]any{
				"delta":         input.Delta,
				"balance_after": mv.BalanceAfter,
				"note":          input.Note,
			},
		})
		if err != nil {
			s.logger.Error("audit record failed",
				slog.String("action", "inventory:adjustment"),
				slog.Int64("product_id", input.ProductID),
				slog.Any("error", err))
		}
	}
	if mv.BalanceAfter < 0 && s.alerts != nil {
		err := s.alerts.NegativeStock(ctx, NegativeStockAlert{
			TenantID:   mv.TenantID,
			ProductID:  mv.ProductID,
			OnHand:     mv.BalanceAfter,
			DetectedAt: time.Now().UTC(),
		})
		if err != nil {
			s.logger.Error("negative stock alert failed",
				slog.Int64("product_id", mv.ProductID),
				slog.Any("error", err))
		}
	}
	return mv, nil
}
