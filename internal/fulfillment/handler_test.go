package fulfillment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/odyssey-erp/odyssey-retail/internal/documents"
	"github.com/odyssey-erp/odyssey-retail/internal/shared"
	"github.com/odyssey-erp/odyssey-retail/internal/validation"
)

func newTestRouter(t *testing.T, svc DocumentService, idem IdempotencyPort) http.Handler {
	t.Helper()
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc, idem)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithRequest(req.Context(), testRC)))
		})
	})
	h.MountRoutes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func sampleDocument() documents.Document {
	return documents.Document{
		ID:            7,
		TenantID:      1,
		Reference:     "INV-20261019-AAAAAA",
		Kind:          documents.KindSales,
		Date:          testNow,
		PaymentMethod: documents.PaymentCash,
		Status:        documents.StatusUnpaid,
		Total:         decimal.RequireFromString("264.5"),
		AmountDue:     decimal.RequireFromString("264.5"),
		StockApplied:  true,
		Lines: []documents.Line{
			{ID: 1, LineNo: 1, ProductID: 1, Quantity: 2, UnitPrice: decimal.NewFromInt(100)},
		},
	}
}

func TestHandlerCreateInvoice(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := NewMockDocumentService(ctrl)
	svc.EXPECT().
		CreateInvoice(gomock.Any(), testRC, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ shared.RequestContext, p validation.Proposal) (Outcome, error) {
			assert.Equal(t, int64(10), p.CounterpartyID)
			require.Len(t, p.Lines, 2)
			assert.Equal(t, validation.Numeric("2"), p.Lines[0].Quantity)
			assert.Equal(t, validation.Numeric("1.5"), p.Lines[1].DiscountPct)
			return Outcome{Document: sampleDocument(), DroppedLineIndices: []int{1}, CounterpartySubstituted: true}, nil
		})

	body := `{"counterparty_id":10,"payment_method":"CASH","lines":[{"product_id":1,"quantity":2},{"product_id":9,"quantity":"1","discount_pct":"1.5"}]}`
	rec := do(t, newTestRouter(t, svc, nil), http.MethodPost, "/invoices", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var got struct {
		Document struct {
			Reference string `json:"reference"`
			Total     string `json:"total_amount"`
		} `json:"document"`
		Items                   []json.RawMessage `json:"items"`
		DroppedLineIndices      []int             `json:"dropped_line_indices"`
		CounterpartySubstituted bool              `json:"counterparty_substituted"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "INV-20261019-AAAAAA", got.Document.Reference)
	assert.Equal(t, "264.5", got.Document.Total)
	assert.Len(t, got.Items, 1)
	assert.Equal(t, []int{1}, got.DroppedLineIndices)
	assert.True(t, got.CounterpartySubstituted)
}

func TestHandlerMapsErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "no valid items", err: ErrNoValidItems, status: http.StatusUnprocessableEntity, code: "NO_VALID_ITEMS"},
		{name: "line data", err: fmt.Errorf("%w: line 0", ErrInvalidLineData), status: http.StatusUnprocessableEntity, code: "INVALID_LINE_DATA"},
		{name: "insufficient stock", err: ErrInsufficientStock, status: http.StatusConflict, code: "INSUFFICIENT_STOCK"},
		{name: "persistence", err: fmt.Errorf("%w: create_invoice: boom", ErrPersistenceFailure), status: http.StatusServiceUnavailable, code: "PERSISTENCE_FAILURE"},
		{name: "no fallback", err: fmt.Errorf("validation: %w", ErrNoFallback), status: http.StatusServiceUnavailable, code: "FALLBACK_MISSING"},
		{name: "exhausted", err: ErrReferenceExhausted, status: http.StatusServiceUnavailable, code: "REFERENCE_EXHAUSTED"},
		{name: "committed read", err: &CommittedReadError{ID: 7, Reference: "INV-20261019-AAAAAA", Err: ErrNotFound}, status: http.StatusInternalServerError, code: "COMMITTED_READ_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			svc := NewMockDocumentService(ctrl)
			svc.EXPECT().CreateInvoice(gomock.Any(), gomock.Any(), gomock.Any()).Return(Outcome{}, tt.err)

			rec := do(t, newTestRouter(t, svc, nil), http.MethodPost, "/invoices", `{"payment_method":"CASH","lines":[]}`)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestHandlerRejectsUnknownFields(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := NewMockDocumentService(ctrl)

	rec := do(t, newTestRouter(t, svc, nil), http.MethodPost, "/purchases", `{"payment_method":"CASH","lines":[],"grand_total":5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerIdempotencyReleasesKeyOnFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := NewMockDocumentService(ctrl)
	idem := NewMockIdempotencyPort(ctrl)

	gomock.InOrder(
		idem.EXPECT().CheckAndInsert(gomock.Any(), int64(1), "req-1", "purchase").Return(nil),
		svc.EXPECT().CreatePurchase(gomock.Any(), gomock.Any(), gomock.Any()).Return(Outcome{}, ErrInvalidHeader),
		idem.EXPECT().Delete(gomock.Any(), int64(1), "req-1", "purchase").Return(nil),
	)
	rec := do(t, newTestRouter(t, svc, idem), http.MethodPost, "/purchases", `{"payment_method":"CASH","lines":[]}`, IdempotencyHeader, "req-1")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandlerIdempotencyKeepsKeyForCommittedDocument(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := NewMockDocumentService(ctrl)
	idem := NewMockIdempotencyPort(ctrl)

	gomock.InOrder(
		idem.EXPECT().CheckAndInsert(gomock.Any(), int64(1), "req-2", "invoice").Return(nil),
		svc.EXPECT().CreateInvoice(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(Outcome{}, &CommittedReadError{ID: 7, Reference: "INV-20261019-AAAAAA", Err: context.DeadlineExceeded}),
	)
	idem.EXPECT().Delete(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	rec := do(t, newTestRouter(t, svc, idem), http.MethodPost, "/invoices", `{"payment_method":"CASH","lines":[]}`, IdempotencyHeader, "req-2")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "COMMITTED_READ_FAILED")
	assert.Contains(t, rec.Body.String(), "INV-20261019-AAAAAA")
}

func TestHandlerIdempotencyReleaseOutlivesRequest(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := NewMockDocumentService(ctrl)
	idem := NewMockIdempotencyPort(ctrl)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gomock.InOrder(
		idem.EXPECT().CheckAndInsert(gomock.Any(), int64(1), "req-3", "invoice").Return(nil),
		svc.EXPECT().CreateInvoice(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(context.Context, shared.RequestContext, validation.Proposal) (Outcome, error) {
				cancel()
				return Outcome{}, fmt.Errorf("%w: create_invoice: %w", ErrPersistenceFailure, context.Canceled)
			}),
		idem.EXPECT().Delete(gomock.Any(), int64(1), "req-3", "invoice").
			DoAndReturn(func(ctx context.Context, _ int64, _, _ string) error {
				assert.NoError(t, ctx.Err(), "key release must not inherit the request cancellation")
				return ctx.Err()
			}),
	)

	req := httptest.NewRequest(http.MethodPost, "/invoices", strings.NewReader(`{"payment_method":"CASH","lines":[]}`)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(IdempotencyHeader, "req-3")
	rec := httptest.NewRecorder()
	newTestRouter(t, svc, idem).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandlerIdempotencyReplayConflicts(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := NewMockDocumentService(ctrl)
	idem := NewMockIdempotencyPort(ctrl)
	idem.EXPECT().CheckAndInsert(gomock.Any(), int64(1), "req-1", "invoice").Return(shared.ErrIdempotencyConflict)

	rec := do(t, newTestRouter(t, svc, idem), http.MethodPost, "/invoices", `{"payment_method":"CASH","lines":[]}`, IdempotencyHeader, "req-1")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "DUPLICATE_REQUEST")
}

func TestHandlerUpdateStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := NewMockDocumentService(ctrl)
	doc := sampleDocument()
	doc.Status = documents.StatusCancelled
	svc.EXPECT().UpdateDocumentStatus(gomock.Any(), testRC, documents.DocumentID(7), documents.StatusCancelled).Return(doc, nil)
	svc.EXPECT().UpdateDocumentStatus(gomock.Any(), testRC, documents.DocumentID(8), documents.StatusPaid).Return(documents.Document{}, ErrDocumentLocked)

	router := newTestRouter(t, svc, nil)
	rec := do(t, router, http.MethodPost, "/documents/7/status", `{"status":"CANCELLED"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"CANCELLED"`)

	rec = do(t, router, http.MethodPost, "/documents/8/status", `{"status":"PAID"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "DOCUMENT_LOCKED")

	rec = do(t, router, http.MethodPost, "/documents/abc/status", `{"status":"PAID"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerPatchDocument(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := NewMockDocumentService(ctrl)
	svc.EXPECT().
		UpdateDocument(gomock.Any(), testRC, documents.DocumentID(7), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ shared.RequestContext, _ documents.DocumentID, patch documents.HeaderPatch) (documents.Document, error) {
			require.NotNil(t, patch.Date)
			assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), *patch.Date)
			assert.Nil(t, patch.Notes)
			return sampleDocument(), nil
		})

	router := newTestRouter(t, svc, nil)
	rec := do(t, router, http.MethodPatch, "/documents/7", `{"date":"2026-10-01"}`)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodPatch, "/documents/7", `{"payment_method":"BARTER"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandlerRecordPayment(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := NewMockDocumentService(ctrl)
	svc.EXPECT().
		RecordPayment(gomock.Any(), testRC, documents.DocumentID(7), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ shared.RequestContext, _ documents.DocumentID, in PaymentInput) (documents.Document, error) {
			assert.True(t, in.Amount.Equal(decimal.RequireFromString("100.25")))
			assert.Equal(t, documents.PaymentCard, in.Method)
			return sampleDocument(), nil
		})

	router := newTestRouter(t, svc, nil)
	rec := do(t, router, http.MethodPost, "/invoices/7/payments", `{"amount":"100.25","method":"CARD"}`)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodPost, "/invoices/7/payments", `{"method":"CARD"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandlerGetListDelete(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := NewMockDocumentService(ctrl)
	svc.EXPECT().Get(gomock.Any(), testRC, documents.DocumentID(7)).Return(sampleDocument(), nil)
	svc.EXPECT().Get(gomock.Any(), testRC, documents.DocumentID(99)).Return(documents.Document{}, ErrNotFound)
	svc.EXPECT().
		List(gomock.Any(), testRC, documents.ListFilter{Kind: documents.KindSales, Page: 2, PerPage: 10}).
		Return([]documents.Document{sampleDocument()}, shared.NewPagination(2, 10, 11), nil)
	svc.EXPECT().DeleteDocument(gomock.Any(), testRC, documents.DocumentID(7)).Return(nil)
	svc.EXPECT().DeleteDocument(gomock.Any(), testRC, documents.DocumentID(8)).Return(ErrCannotDeleteCompleted)

	router := newTestRouter(t, svc, nil)

	rec := do(t, router, http.MethodGet, "/documents/7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"date":"2026-10-19"`)

	rec = do(t, router, http.MethodGet, "/documents/99", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodGet, "/documents?kind=SALES&page=2&per_page=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_pages":2`)

	rec = do(t, router, http.MethodGet, "/documents?kind=RENTAL", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodDelete, "/documents/7", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodDelete, "/documents/8", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlerSchema(t *testing.T) {
	ctrl := gomock.NewController(t)
	router := newTestRouter(t, NewMockDocumentService(ctrl), nil)

	rec := do(t, router, http.MethodGet, "/schema/invoice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var schema map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &schema))
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "lines")
	assert.Contains(t, props, "payment_method")

	rec = do(t, router, http.MethodGet, "/schema/refund", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
