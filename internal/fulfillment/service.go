// Package fulfillment coordinates document writes and their stock effects
// inside one atomic scope.
package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-retail/internal/documents"
	"github.com/odyssey-erp/odyssey-retail/internal/inventory"
	"github.com/odyssey-erp/odyssey-retail/internal/money"
	"github.com/odyssey-erp/odyssey-retail/internal/numbering"
	"github.com/odyssey-erp/odyssey-retail/internal/shared"
	"github.com/odyssey-erp/odyssey-retail/internal/validation"
)

// DefaultReferenceAttempts bounds reference generation retries.
const DefaultReferenceAttempts = 5

// DocumentReader reads committed documents.
type DocumentReader interface {
	Get(ctx context.Context, tenantID int64, id documents.DocumentID) (documents.Document, error)
	List(ctx context.Context, filter documents.ListFilter) ([]documents.Document, int, error)
	Payments(ctx context.Context, tenantID int64, id documents.DocumentID) ([]documents.Payment, error)
}

// Gate validates proposals against master data.
type Gate interface {
	Check(ctx context.Context, rc shared.RequestContext, kind documents.Kind, p validation.Proposal) (validation.Result, error)
}

// ReferenceSource issues candidate references.
type ReferenceSource interface {
	NextReference(kind documents.Kind, now time.Time) string
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// AlertPort receives negative stock notifications after commit.
type AlertPort = inventory.AlertPort

// Recorder receives domain metrics.
type Recorder interface {
	DocumentCreated(kind string, dropped int, substituted bool)
	ReferenceRetry()
	Reversal(kind, status string)
	NegativeStock(count int)
	TxFailed(operation string)
}

// Config groups coordinator settings.
type Config struct {
	ReferenceMaxAttempts int
}

// Dependencies wires the coordinator. Audit, Alerts and Metrics are optional.
type Dependencies struct {
	Gate       Gate
	UnitOfWork UnitOfWork
	Documents  DocumentReader
	Ledger     *inventory.Ledger
	References ReferenceSource
	Clock      numbering.Clock
	Audit      AuditPort
	Alerts     AlertPort
	Metrics    Recorder
	Logger     *slog.Logger
}

// Service is the transaction coordinator.
type Service struct {
	gate     Gate
	uow      UnitOfWork
	docs     DocumentReader
	ledger   *inventory.Ledger
	refs     ReferenceSource
	clock    numbering.Clock
	audit    AuditPort
	alerts   AlertPort
	metrics  Recorder
	logger   *slog.Logger
	attempts int
}

// NewService builds the coordinator.
func NewService(deps Dependencies, cfg Config) *Service {
	s := &Service{
		gate:     deps.Gate,
		uow:      deps.UnitOfWork,
		docs:     deps.Documents,
		ledger:   deps.Ledger,
		refs:     deps.References,
		clock:    deps.Clock,
		audit:    deps.Audit,
		alerts:   deps.Alerts,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		attempts: cfg.ReferenceMaxAttempts,
	}
	if s.attempts <= 0 {
		s.attempts = DefaultReferenceAttempts
	}
	if s.clock == nil {
		s.clock = numbering.SystemClock{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.metrics == nil {
		s.metrics = noopRecorder{}
	}
	return s
}

// Outcome is a committed document plus what the gate did to the proposal.
type Outcome struct {
	Document                documents.Document
	AcceptedLineIndices     []int
	DroppedLineIndices      []int
	CounterpartySubstituted bool
}

// PaymentInput is a settlement against an invoice.
type PaymentInput struct {
	Amount decimal.Decimal
	Method documents.PaymentMethod
	PaidAt time.Time
}

// CreateInvoice validates, prices and persists a sales invoice, consuming
// stock for every accepted line.
func (s *Service) CreateInvoice(ctx context.Context, rc shared.RequestContext, p validation.Proposal) (Outcome, error) {
	return s.create(ctx, rc, documents.KindSales, p)
}

// CreatePurchase validates, prices and persists a purchase, receiving stock
// for every accepted line.
func (s *Service) CreatePurchase(ctx context.Context, rc shared.RequestContext, p validation.Proposal) (Outcome, error) {
	return s.create(ctx, rc, documents.KindPurchase, p)
}

func movementReason(kind documents.Kind) inventory.MovementReason {
	if kind == documents.KindSales {
		return inventory.ReasonSale
	}
	return inventory.ReasonPurchase
}

func operationName(kind documents.Kind) string {
	if kind == documents.KindSales {
		return "create_invoice"
	}
	return "create_purchase"
}

func defaultStatus(kind documents.Kind, totals money.Totals) documents.Status {
	if kind == documents.KindPurchase {
		return documents.StatusPending
	}
	return documents.SettlementStatus(totals.Total, totals.AmountPaid)
}

func (s *Service) create(ctx context.Context, rc shared.RequestContext, kind documents.Kind, p validation.Proposal) (Outcome, error) {
	res, err := s.gate.Check(ctx, rc, kind, p)
	if err != nil {
		return Outcome{}, err
	}

	inputs := make([]money.LineInput, 0, len(res.Lines))
	for _, l := range res.Lines {
		inputs = append(inputs, money.LineInput{
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			DiscountPct: l.DiscountPct,
			TaxPct:      l.TaxPct,
		})
	}
	totals, err := money.Document(money.DocumentInput{
		Lines:       inputs,
		DiscountPct: res.DiscountPct,
		TaxPct:      res.TaxPct,
		AmountPaid:  res.AmountPaid,
	})
	if err != nil {
		return Outcome{}, err
	}
	if totals.AmountPaid.GreaterThan(totals.Total) {
		return Outcome{}, fmt.Errorf("%w: paid %s exceeds total %s", ErrInvalidPayment, totals.AmountPaid, totals.Total)
	}

	now := s.clock.Now()
	status := res.Status
	if status == "" {
		status = defaultStatus(kind, totals)
	}
	date := res.Date
	if date.IsZero() {
		date = now.Truncate(24 * time.Hour)
	}
	doc := documents.Document{
		TenantID:       rc.TenantID,
		Kind:           kind,
		Date:           date,
		CounterpartyID: res.CounterpartyID,
		PaymentMethod:  res.PaymentMethod,
		Status:         status,
		Subtotal:       totals.Subtotal,
		DiscountPct:    res.DiscountPct,
		DiscountAmount: totals.DiscountAmount,
		TaxPct:         res.TaxPct,
		TaxAmount:      totals.TaxAmount,
		Total:          totals.Total,
		AmountPaid:     totals.AmountPaid,
		AmountDue:      totals.AmountDue,
		Notes:          res.Notes,
		StockApplied:   true,
		CreatedBy:      rc.ActorID,
	}
	lines := make([]documents.Line, 0, len(res.Lines))
	for i, l := range res.Lines {
		amounts := totals.Lines[i]
		lines = append(lines, documents.Line{
			LineNo:         i + 1,
			ProductID:      l.ProductID,
			Quantity:       l.Quantity,
			UnitPrice:      l.UnitPrice,
			DiscountPct:    l.DiscountPct,
			DiscountAmount: amounts.DiscountAmount,
			TaxPct:         l.TaxPct,
			TaxAmount:      amounts.TaxAmount,
			Total:          amounts.Total,
		})
	}

	var (
		id        documents.DocumentID
		negatives []inventory.NegativeStockAlert
	)
	for attempt := 1; ; attempt++ {
		doc.Reference = s.refs.NextReference(kind, now)
		negatives = nil
		err = s.uow.Within(ctx, func(ctx context.Context, scope Scope) error {
			var err error
			id, err = scope.Documents().InsertHeader(ctx, doc)
			if err != nil {
				return err
			}
			for _, line := range lines {
				line.DocumentID = id
				if _, err := scope.Documents().InsertLine(ctx, line); err != nil {
					return err
				}
				mv, err := s.ledger.Adjust(ctx, scope.Stock(), inventory.Adjustment{
					TenantID:   rc.TenantID,
					ProductID:  line.ProductID,
					Delta:      kind.StockSign() * line.Quantity,
					DocumentID: int64(id),
					Reference:  doc.Reference,
					Reason:     movementReason(kind),
					ActorID:    rc.ActorID,
				})
				if err != nil {
					return err
				}
				negatives = appendNegative(negatives, mv, now)
			}
			return nil
		})
		if !errors.Is(err, documents.ErrReferenceConflict) || attempt >= s.attempts {
			break
		}
		s.metrics.ReferenceRetry()
		s.logger.Warn("reference collision, retrying",
			slog.String("reference", doc.Reference),
			slog.Int("attempt", attempt))
	}
	if err != nil {
		if errors.Is(err, documents.ErrReferenceConflict) {
			err = fmt.Errorf("%w: %d attempts: %w", ErrReferenceExhausted, s.attempts, err)
		}
		return Outcome{}, s.scopeFailure(operationName(kind), err)
	}

	s.metrics.DocumentCreated(string(kind), len(res.Dropped), res.Substituted)
	s.recordAudit(ctx, rc, "document:create", id, map[string]any{
		"reference":   doc.Reference,
		"kind":        kind,
		"status":      doc.Status,
		"total":       doc.Total.String(),
		"lines":       len(lines),
		"dropped":     res.Dropped,
		"substituted": res.Substituted,
	})
	s.raiseAlerts(ctx, negatives)
	s.logger.Info("document created",
		slog.Int64("tenant_id", rc.TenantID),
		slog.String("reference", doc.Reference),
		slog.String("kind", string(kind)),
		slog.Int("lines", len(lines)),
		slog.Int("dropped", len(res.Dropped)))

	out := Outcome{
		AcceptedLineIndices:     res.Accepted,
		DroppedLineIndices:      res.Dropped,
		CounterpartySubstituted: res.Substituted,
	}
	out.Document, err = s.readBack(ctx, rc, id, doc.Reference)
	if err != nil {
		return Outcome{}, err
	}
	return out, nil
}

// UpdateDocumentStatus moves a document along its workflow. Entering a
// reversal status undoes the document's stock effect in the same scope.
func (s *Service) UpdateDocumentStatus(ctx context.Context, rc shared.RequestContext, id documents.DocumentID, to documents.Status) (documents.Document, error) {
	var (
		from      documents.Status
		kind      documents.Kind
		reference string
		reversed  bool
		negatives []inventory.NegativeStockAlert
	)
	err := s.uow.Within(ctx, func(ctx context.Context, scope Scope) error {
		doc, err := scope.Documents().GetForUpdate(ctx, rc.TenantID, id)
		if err != nil {
			return err
		}
		from, kind, reference = doc.Status, doc.Kind, doc.Reference
		if !documents.ValidStatus(doc.Kind, to) {
			return fmt.Errorf("%w: %s is not a %s status", ErrInvalidTransition, to, doc.Kind)
		}
		if err := documents.CheckTransition(doc.Kind, doc.Status, to); err != nil {
			return err
		}
		applied := doc.StockApplied
		if documents.IsReversal(doc.Kind, to) && applied {
			negatives, err = s.reverse(ctx, scope, rc, doc)
			if err != nil {
				return err
			}
			applied = false
			reversed = true
		}
		return scope.Documents().UpdateStatus(ctx, rc.TenantID, id, to, applied)
	})
	if err != nil {
		return documents.Document{}, s.scopeFailure("update_status", err)
	}

	if reversed {
		s.metrics.Reversal(string(kind), string(to))
	}
	s.recordAudit(ctx, rc, "document:status", id, map[string]any{
		"from":     from,
		"to":       to,
		"reversed": reversed,
	})
	s.raiseAlerts(ctx, negatives)
	return s.readBack(ctx, rc, id, reference)
}

// DeleteDocument removes a non-completed document with its lines, reversing
// its stock effect first when one is still applied.
func (s *Service) DeleteDocument(ctx context.Context, rc shared.RequestContext, id documents.DocumentID) error {
	var (
		reference string
		reversed  bool
		negatives []inventory.NegativeStockAlert
	)
	err := s.uow.Within(ctx, func(ctx context.Context, scope Scope) error {
		doc, err := scope.Documents().GetForUpdate(ctx, rc.TenantID, id)
		if err != nil {
			return err
		}
		reference = doc.Reference
		if err := documents.CanDelete(doc.Status); err != nil {
			return err
		}
		if doc.StockApplied {
			if negatives, err = s.reverse(ctx, scope, rc, doc); err != nil {
				return err
			}
			reversed = true
		}
		if err := scope.Documents().DeleteLines(ctx, id); err != nil {
			return err
		}
		return scope.Documents().DeleteHeader(ctx, rc.TenantID, id)
	})
	if err != nil {
		return s.scopeFailure("delete_document", err)
	}
	s.recordAudit(ctx, rc, "document:delete", id, map[string]any{
		"reference": reference,
		"reversed":  reversed,
	})
	s.raiseAlerts(ctx, negatives)
	return nil
}

// UpdateDocument applies a header patch. Completed and closed documents are
// locked.
func (s *Service) UpdateDocument(ctx context.Context, rc shared.RequestContext, id documents.DocumentID, patch documents.HeaderPatch) (documents.Document, error) {
	if patch.Empty() {
		return documents.Document{}, fmt.Errorf("%w: nothing to update", ErrInvalidPatch)
	}
	if patch.PaymentMethod != nil && !patch.PaymentMethod.Valid() {
		return documents.Document{}, fmt.Errorf("%w: payment method %q", ErrInvalidPatch, *patch.PaymentMethod)
	}
	var reference string
	err := s.uow.Within(ctx, func(ctx context.Context, scope Scope) error {
		doc, err := scope.Documents().GetForUpdate(ctx, rc.TenantID, id)
		if err != nil {
			return err
		}
		reference = doc.Reference
		if doc.Locked() {
			return fmt.Errorf("%w: %s is %s", ErrDocumentLocked, doc.Reference, doc.Status)
		}
		return scope.Documents().UpdateHeader(ctx, rc.TenantID, id, patch)
	})
	if err != nil {
		return documents.Document{}, s.scopeFailure("update_document", err)
	}
	s.recordAudit(ctx, rc, "document:update", id, map[string]any{
		"notes":          patch.Notes != nil,
		"date":           patch.Date != nil,
		"payment_method": patch.PaymentMethod != nil,
	})
	return s.readBack(ctx, rc, id, reference)
}

// RecordPayment settles part or all of an invoice and advances its status.
func (s *Service) RecordPayment(ctx context.Context, rc shared.RequestContext, id documents.DocumentID, in PaymentInput) (documents.Document, error) {
	if !in.Amount.IsPositive() {
		return documents.Document{}, fmt.Errorf("%w: amount must be positive", ErrInvalidPayment)
	}
	if in.Method != "" && !in.Method.Valid() {
		return documents.Document{}, fmt.Errorf("%w: payment method %q", ErrInvalidPayment, in.Method)
	}
	amount := in.Amount.Round(money.Places)
	var (
		target    documents.Status
		reference string
	)
	err := s.uow.Within(ctx, func(ctx context.Context, scope Scope) error {
		doc, err := scope.Documents().GetForUpdate(ctx, rc.TenantID, id)
		if err != nil {
			return err
		}
		reference = doc.Reference
		if doc.Kind != documents.KindSales {
			return fmt.Errorf("%w: payments apply to invoices only", ErrInvalidPayment)
		}
		paid := doc.AmountPaid.Add(amount)
		if paid.GreaterThan(doc.Total) {
			return fmt.Errorf("%w: %s exceeds amount due %s", ErrInvalidPayment, amount, doc.AmountDue)
		}
		target = documents.SettlementStatus(doc.Total, paid)
		if target != doc.Status {
			if err := documents.CheckTransition(doc.Kind, doc.Status, target); err != nil {
				return err
			}
		} else if doc.Locked() {
			return fmt.Errorf("%w: %s is %s", ErrDocumentLocked, doc.Reference, doc.Status)
		}
		p := documents.Payment{
			DocumentID: id,
			Amount:     amount,
			Method:     in.Method,
			PaidAt:     in.PaidAt,
			RecordedBy: rc.ActorID,
		}
		if p.Method == "" {
			p.Method = doc.PaymentMethod
		}
		if p.PaidAt.IsZero() {
			p.PaidAt = s.clock.Now()
		}
		if _, err := scope.Documents().InsertPayment(ctx, p); err != nil {
			return err
		}
		return scope.Documents().ApplyPayment(ctx, p, target)
	})
	if err != nil {
		return documents.Document{}, s.scopeFailure("record_payment", err)
	}
	s.recordAudit(ctx, rc, "document:payment", id, map[string]any{
		"amount": amount.String(),
		"status": target,
	})
	return s.readBack(ctx, rc, id, reference)
}

// Get returns a committed document with its lines.
func (s *Service) Get(ctx context.Context, rc shared.RequestContext, id documents.DocumentID) (documents.Document, error) {
	return s.docs.Get(ctx, rc.TenantID, id)
}

// List returns one page of documents.
func (s *Service) List(ctx context.Context, rc shared.RequestContext, filter documents.ListFilter) ([]documents.Document, shared.Pagination, error) {
	filter.TenantID = rc.TenantID
	docs, total, err := s.docs.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return docs, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// Payments lists the payments recorded against a document.
func (s *Service) Payments(ctx context.Context, rc shared.RequestContext, id documents.DocumentID) ([]documents.Payment, error) {
	if _, err := s.docs.Get(ctx, rc.TenantID, id); err != nil {
		return nil, err
	}
	return s.docs.Payments(ctx, rc.TenantID, id)
}

// reverse applies the inverse of every line's stock effect.
func (s *Service) reverse(ctx context.Context, scope Scope, rc shared.RequestContext, doc documents.Document) ([]inventory.NegativeStockAlert, error) {
	var negatives []inventory.NegativeStockAlert
	now := s.clock.Now()
	for _, line := range doc.Lines {
		mv, err := s.ledger.Adjust(ctx, scope.Stock(), inventory.Adjustment{
			TenantID:   rc.TenantID,
			ProductID:  line.ProductID,
			Delta:      -doc.Kind.StockSign() * line.Quantity,
			DocumentID: int64(doc.ID),
			Reference:  doc.Reference,
			Reason:     inventory.ReasonReversal,
			ActorID:    rc.ActorID,
		})
		if err != nil {
			return nil, err
		}
		negatives = appendNegative(negatives, mv, now)
	}
	return negatives, nil
}

func appendNegative(list []inventory.NegativeStockAlert, mv inventory.Movement, now time.Time) []inventory.NegativeStockAlert {
	if mv.BalanceAfter >= 0 {
		return list
	}
	return append(list, inventory.NegativeStockAlert{
		TenantID:   mv.TenantID,
		ProductID:  mv.ProductID,
		OnHand:     mv.BalanceAfter,
		DocumentID: mv.DocumentID,
		Reference:  mv.Reference,
		DetectedAt: now,
	})
}

// readBack loads a document after its scope committed. A failure here must
// not be reported as retryable.
func (s *Service) readBack(ctx context.Context, rc shared.RequestContext, id documents.DocumentID, reference string) (documents.Document, error) {
	doc, err := s.docs.Get(ctx, rc.TenantID, id)
	if err != nil {
		s.logger.Error("committed document read back failed",
			slog.Int64("document_id", int64(id)),
			slog.String("reference", reference),
			slog.Any("error", err))
		return documents.Document{}, &CommittedReadError{ID: id, Reference: reference, Err: err}
	}
	return doc, nil
}

// scopeFailure classifies an error from a rolled back scope.
func (s *Service) scopeFailure(operation string, err error) error {
	s.metrics.TxFailed(operation)
	if isPassThrough(err) {
		return err
	}
	s.logger.Error("fulfillment scope rolled back",
		slog.String("operation", operation),
		slog.Any("error", err))
	return fmt.Errorf("%w: %s: %w", ErrPersistenceFailure, operation, err)
}

func (s *Service) recordAudit(ctx context.Context, rc shared.RequestContext, action string, id documents.DocumentID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		TenantID: rc.TenantID,
		ActorID:  rc.ActorID,
		Action:   action,
		Entity:   "document",
		EntityID: strconv.FormatInt(int64(id), 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Error("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

// raiseAlerts publishes negative stock alerts. Failures are logged; the
// write they describe is already committed.
func (s *Service) raiseAlerts(ctx context.Context, alerts []inventory.NegativeStockAlert) {
	if len(alerts) == 0 {
		return
	}
	s.metrics.NegativeStock(len(alerts))
	if s.alerts == nil {
		return
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, alert := range alerts {
		alert := alert
		g.Go(func() error {
			if err := s.alerts.NegativeStock(gctx, alert); err != nil {
				return fmt.Errorf("product %d: %w", alert.ProductID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("negative stock alert failed", slog.Any("error", err))
	}
}

type noopRecorder struct{}

func (noopRecorder) DocumentCreated(string, int, bool) {}
func (noopRecorder) ReferenceRetry()                   {}
func (noopRecorder) Reversal(string, string)           {}
func (noopRecorder) NegativeStock(int)                 {}
func (noopRecorder) TxFailed(string)                   {}
