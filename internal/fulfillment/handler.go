package fulfillment

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-retail/internal/documents"
	"github.com/odyssey-erp/odyssey-retail/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-retail/internal/shared"
	"github.com/odyssey-erp/odyssey-retail/internal/validation"
)

//go:generate mockgen -source=handler.go -destination=mock_service_test.go -package=fulfillment

// DocumentService is the coordinator surface used by the HTTP layer.
type DocumentService interface {
	CreateInvoice(ctx context.Context, rc shared.RequestContext, p validation.Proposal) (Outcome, error)
	CreatePurchase(ctx context.Context, rc shared.RequestContext, p validation.Proposal) (Outcome, error)
	UpdateDocumentStatus(ctx context.Context, rc shared.RequestContext, id documents.DocumentID, to documents.Status) (documents.Document, error)
	DeleteDocument(ctx context.Context, rc shared.RequestContext, id documents.DocumentID) error
	UpdateDocument(ctx context.Context, rc shared.RequestContext, id documents.DocumentID, patch documents.HeaderPatch) (documents.Document, error)
	RecordPayment(ctx context.Context, rc shared.RequestContext, id documents.DocumentID, in PaymentInput) (documents.Document, error)
	Get(ctx context.Context, rc shared.RequestContext, id documents.DocumentID) (documents.Document, error)
	List(ctx context.Context, rc shared.RequestContext, filter documents.ListFilter) ([]documents.Document, shared.Pagination, error)
	Payments(ctx context.Context, rc shared.RequestContext, id documents.DocumentID) ([]documents.Payment, error)
}

var _ DocumentService = (*Service)(nil)

// IdempotencyPort guards create endpoints against replays.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, tenantID int64, key, module string) error
	Delete(ctx context.Context, tenantID int64, key, module string) error
}

// IdempotencyHeader carries the client supplied replay key.
const IdempotencyHeader = "Idempotency-Key"

// Handler exposes the coordinator over JSON.
type Handler struct {
	logger      *slog.Logger
	service     DocumentService
	idempotency IdempotencyPort
	validator   *validator.Validate
}

// NewHandler constructs the handler. idempotency may be nil.
func NewHandler(logger *slog.Logger, service DocumentService, idempotency IdempotencyPort) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, idempotency: idempotency, validator: validator.New()}
}

var problemMappings = []httpx.Mapping{
	{Target: ErrCommittedReadFailed, Status: http.StatusInternalServerError, Title: "Committed Read Failed", Code: "COMMITTED_READ_FAILED"},
	{Target: ErrInvalidLineData, Status: http.StatusUnprocessableEntity, Title: "Invalid Line Data", Code: "INVALID_LINE_DATA"},
	{Target: ErrInvalidHeader, Status: http.StatusUnprocessableEntity, Title: "Invalid Header", Code: "INVALID_HEADER"},
	{Target: ErrInvalidPercentage, Status: http.StatusUnprocessableEntity, Title: "Invalid Percentage", Code: "INVALID_PERCENTAGE"},
	{Target: ErrNoValidItems, Status: http.StatusUnprocessableEntity, Title: "No Valid Items", Code: "NO_VALID_ITEMS"},
	{Target: ErrInvalidPayment, Status: http.StatusUnprocessableEntity, Title: "Invalid Payment", Code: "INVALID_PAYMENT"},
	{Target: ErrInvalidPatch, Status: http.StatusUnprocessableEntity, Title: "Invalid Patch", Code: "INVALID_PATCH"},
	{Target: ErrDocumentLocked, Status: http.StatusConflict, Title: "Document Locked", Code: "DOCUMENT_LOCKED"},
	{Target: ErrInvalidTransition, Status: http.StatusConflict, Title: "Invalid Transition", Code: "INVALID_TRANSITION"},
	{Target: ErrCannotDeleteCompleted, Status: http.StatusConflict, Title: "Cannot Delete Completed", Code: "CANNOT_DELETE_COMPLETED"},
	{Target: ErrInsufficientStock, Status: http.StatusConflict, Title: "Insufficient Stock", Code: "INSUFFICIENT_STOCK"},
	{Target: shared.ErrIdempotencyConflict, Status: http.StatusConflict, Title: "Duplicate Request", Code: "DUPLICATE_REQUEST"},
	{Target: ErrNotFound, Status: http.StatusNotFound, Title: "Not Found", Code: "NOT_FOUND"},
	{Target: ErrReferenceExhausted, Status: http.StatusServiceUnavailable, Title: "Reference Exhausted", Code: "REFERENCE_EXHAUSTED"},
	{Target: ErrNoFallback, Status: http.StatusServiceUnavailable, Title: "Fallback Counterparty Missing", Code: "FALLBACK_MISSING"},
	{Target: ErrPersistenceFailure, Status: http.StatusServiceUnavailable, Title: "Persistence Failure", Code: "PERSISTENCE_FAILURE"},
}

// MountRoutes registers document routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/invoices", h.createInvoice)
	r.Post("/purchases", h.createPurchase)
	r.Post("/invoices/{id}/payments", h.recordPayment)
	r.Get("/documents", h.list)
	r.Get("/documents/{id}", h.get)
	r.Get("/documents/{id}/payments", h.payments)
	r.Patch("/documents/{id}", h.update)
	r.Post("/documents/{id}/status", h.updateStatus)
	r.Delete("/documents/{id}", h.delete)
	r.Get("/schema/{kind}", h.schema)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrPersistenceFailure) || errors.Is(err, ErrReferenceExhausted) || errors.Is(err, ErrCommittedReadFailed) {
		h.logger.Error("document request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	} else {
		h.logger.Info("document request rejected", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondMapped(w, err, problemMappings)
}

func documentID(r *http.Request) (documents.DocumentID, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, httpx.ErrValidation
	}
	return documents.DocumentID(id), nil
}

func requestContext(r *http.Request) shared.RequestContext {
	rc, _ := shared.RequestFromContext(r.Context())
	return rc
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, "invoice", h.service.CreateInvoice)
}

func (h *Handler) createPurchase(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, "purchase", h.service.CreatePurchase)
}

type createFunc func(context.Context, shared.RequestContext, validation.Proposal) (Outcome, error)

func (h *Handler) create(w http.ResponseWriter, r *http.Request, module string, fn createFunc) {
	var p validation.Proposal
	if err := httpx.DecodeJSON(r, &p); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
		return
	}
	rc := requestContext(r)

	key := r.Header.Get(IdempotencyHeader)
	if key != "" && h.idempotency != nil {
		if err := h.idempotency.CheckAndInsert(r.Context(), rc.TenantID, key, module); err != nil {
			h.fail(w, r, err)
			return
		}
	}

	out, err := fn(r.Context(), rc, p)
	if err != nil {
		// A committed document keeps its key so a replay cannot create it twice.
		if key != "" && h.idempotency != nil && !errors.Is(err, ErrCommittedReadFailed) {
			if derr := h.idempotency.Delete(context.WithoutCancel(r.Context()), rc.TenantID, key, module); derr != nil {
				h.logger.Warn("idempotency key release failed", slog.String("key", key), slog.Any("error", derr))
			}
		}
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toOutcomeResponse(out))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	doc, err := h.service.Get(r.Context(), requestContext(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := documents.ListFilter{
		Kind:   documents.Kind(q.Get("kind")),
		Status: documents.Status(q.Get("status")),
	}
	if filter.Kind != "" && !filter.Kind.Valid() {
		h.fail(w, r, httpx.ErrValidation)
		return
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PerPage, _ = strconv.Atoi(q.Get("per_page"))

	docs, page, err := h.service.List(r.Context(), requestContext(r), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data := make([]documentResponse, 0, len(docs))
	for _, d := range docs {
		data = append(data, toDocumentResponse(d))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": data, "pagination": page})
}

func (h *Handler) payments(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	payments, err := h.service.Payments(r.Context(), requestContext(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]paymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, toPaymentResponse(p))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// PatchRequest is the body of PATCH /documents/{id}.
type PatchRequest struct {
	Notes         *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
	Date          *string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PaymentMethod *string `json:"payment_method,omitempty" validate:"omitempty,oneof=CASH CARD BANK_TRANSFER CREDIT"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req PatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	patch := documents.HeaderPatch{Notes: req.Notes}
	if req.Date != nil {
		d, _ := time.Parse(time.DateOnly, *req.Date)
		patch.Date = &d
	}
	if req.PaymentMethod != nil {
		m := documents.PaymentMethod(*req.PaymentMethod)
		patch.PaymentMethod = &m
	}
	doc, err := h.service.UpdateDocument(r.Context(), requestContext(r), id, patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDocumentResponse(doc))
}

// StatusRequest is the body of POST /documents/{id}/status.
type StatusRequest struct {
	Status string `json:"status" validate:"required,uppercase"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req StatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	doc, err := h.service.UpdateDocumentStatus(r.Context(), requestContext(r), id, documents.Status(req.Status))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDocumentResponse(doc))
}

// PaymentRequest is the body of POST /invoices/{id}/payments.
type PaymentRequest struct {
	Amount validation.Numeric `json:"amount"`
	Method string             `json:"method,omitempty" validate:"omitempty,oneof=CASH CARD BANK_TRANSFER CREDIT"`
	PaidAt *time.Time         `json:"paid_at,omitempty"`
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req PaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	amount, err := req.Amount.Decimal()
	if err != nil || req.Amount.Empty() {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", "amount must be a number")
		return
	}
	in := PaymentInput{Amount: amount, Method: documents.PaymentMethod(req.Method)}
	if req.PaidAt != nil {
		in.PaidAt = req.PaidAt.UTC()
	}
	doc, err := h.service.RecordPayment(r.Context(), requestContext(r), id, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.service.DeleteDocument(r.Context(), requestContext(r), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type lineResponse struct {
	ID             int64           `json:"id"`
	LineNo         int             `json:"line_no"`
	ProductID      int64           `json:"product_id"`
	Quantity       int64           `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	DiscountPct    decimal.Decimal `json:"discount_pct"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxPct         decimal.Decimal `json:"tax_pct"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	Total          decimal.Decimal `json:"line_total"`
}

type documentResponse struct {
	ID             int64           `json:"id"`
	Reference      string          `json:"reference"`
	Kind           string          `json:"kind"`
	Date           string          `json:"date"`
	CounterpartyID int64           `json:"counterparty_id"`
	PaymentMethod  string          `json:"payment_method"`
	Status         string          `json:"status"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountPct    decimal.Decimal `json:"discount_pct"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxPct         decimal.Decimal `json:"tax_pct"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	Total          decimal.Decimal `json:"total_amount"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	AmountDue      decimal.Decimal `json:"amount_due"`
	Notes          string          `json:"notes,omitempty"`
	StockApplied   bool            `json:"stock_applied"`
	CreatedBy      int64           `json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Items          []lineResponse  `json:"items,omitempty"`
}

type outcomeResponse struct {
	Document                documentResponse `json:"document"`
	Items                   []lineResponse   `json:"items"`
	DroppedLineIndices      []int            `json:"dropped_line_indices"`
	CounterpartySubstituted bool             `json:"counterparty_substituted"`
}

type paymentResponse struct {
	ID     int64           `json:"id"`
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method"`
	PaidAt time.Time       `json:"paid_at"`
}

func toLineResponse(l documents.Line) lineResponse {
	return lineResponse{
		ID:             int64(l.ID),
		LineNo:         l.LineNo,
		ProductID:      l.ProductID,
		Quantity:       l.Quantity,
		UnitPrice:      l.UnitPrice,
		DiscountPct:    l.DiscountPct,
		DiscountAmount: l.DiscountAmount,
		TaxPct:         l.TaxPct,
		TaxAmount:      l.TaxAmount,
		Total:          l.Total,
	}
}

func toDocumentResponse(d documents.Document) documentResponse {
	resp := documentResponse{
		ID:             int64(d.ID),
		Reference:      d.Reference,
		Kind:           string(d.Kind),
		Date:           d.Date.Format(time.DateOnly),
		CounterpartyID: d.CounterpartyID,
		PaymentMethod:  string(d.PaymentMethod),
		Status:         string(d.Status),
		Subtotal:       d.Subtotal,
		DiscountPct:    d.DiscountPct,
		DiscountAmount: d.DiscountAmount,
		TaxPct:         d.TaxPct,
		TaxAmount:      d.TaxAmount,
		Total:          d.Total,
		AmountPaid:     d.AmountPaid,
		AmountDue:      d.AmountDue,
		Notes:          d.Notes,
		StockApplied:   d.StockApplied,
		CreatedBy:      d.CreatedBy,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
	for _, l := range d.Lines {
		resp.Items = append(resp.Items, toLineResponse(l))
	}
	return resp
}

func toOutcomeResponse(o Outcome) outcomeResponse {
	doc := toDocumentResponse(o.Document)
	items := doc.Items
	if items == nil {
		items = []lineResponse{}
	}
	doc.Items = nil
	dropped := o.DroppedLineIndices
	if dropped == nil {
		dropped = []int{}
	}
	return outcomeResponse{
		Document:                doc,
		Items:                   items,
		DroppedLineIndices:      dropped,
		CounterpartySubstituted: o.CounterpartySubstituted,
	}
}

func toPaymentResponse(p documents.Payment) paymentResponse {
	return paymentResponse{ID: p.ID, Amount: p.Amount, Method: string(p.Method), PaidAt: p.PaidAt}
}
