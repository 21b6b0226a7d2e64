package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-retail/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-retail/internal/shared"
)

// Handler wires HTTP endpoints for stock reads and adjustments.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

var problemMappings = []httpx.Mapping{
	{Target: ErrProductNotFound, Status: http.StatusNotFound, Title: "Product Not Found", Code: "PRODUCT_NOT_FOUND"},
	{Target: ErrInvalidQuantity, Status: http.StatusUnprocessableEntity, Title: "Invalid Quantity", Code: "INVALID_QUANTITY"},
	{Target: ErrInsufficientStock, Status: http.StatusConflict, Title: "Insufficient Stock", Code: "INSUFFICIENT_STOCK"},
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/products/{id}/stock", h.handleStock)
	r.Get("/products/{id}/movements", h.handleMovements)
	r.Post("/products/{id}/adjustments", h.handleAdjustment)
	r.Get("/stock/conservation", h.handleConservation)
}

func productID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, httpx.ErrValidation
	}
	return id, nil
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if !errors.Is(err, httpx.ErrValidation) && !errors.Is(err, ErrProductNotFound) {
		h.logger.Error("inventory request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondMapped(w, err, problemMappings)
}

func (h *Handler) handleStock(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rc, _ := shared.RequestFromContext(r.Context())
	lvl, err := h.service.StockLevel(r.Context(), rc, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, lvl)
}

type movementResponse struct {
	ID           int64     `json:"id"`
	DocumentID   int64     `json:"document_id,omitempty"`
	Reference    string    `json:"reference,omitempty"`
	Delta        int64     `json:"delta"`
	BalanceAfter int64     `json:"balance_after"`
	Reason       string    `json:"reason"`
	Note         string    `json:"note,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func toMovementResponse(m Movement) movementResponse {
	return movementResponse{
		ID:           m.ID,
		DocumentID:   m.DocumentID,
		Reference:    m.Reference,
		Delta:        m.Delta,
		BalanceAfter: m.BalanceAfter,
		Reason:       string(m.Reason),
		Note:         m.Note,
		CreatedAt:    m.CreatedAt,
	}
}

func (h *Handler) handleMovements(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	filter := MovementFilter{ProductID: id}
	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		if filter.From, err = time.Parse(time.DateOnly, v); err != nil {
			h.fail(w, r, httpx.ErrValidation)
			return
		}
	}
	if v := q.Get("to"); v != "" {
		to, err := time.Parse(time.DateOnly, v)
		if err != nil {
			h.fail(w, r, httpx.ErrValidation)
			return
		}
		filter.To = to.Add(24*time.Hour - time.Nanosecond)
	}
	if v := q.Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	rc, _ := shared.RequestFromContext(r.Context())
	movements, err := h.service.StockCard(r.Context(), rc, filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]movementResponse, 0, len(movements))
	for _, m := range movements {
		out = append(out, toMovementResponse(m))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"product_id": id, "movements": out})
}

func (h *Handler) handleAdjustment(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var input AdjustmentInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
		return
	}
	input.ProductID = id
	if err := h.validator.Struct(input); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	rc, _ := shared.RequestFromContext(r.Context())
	mv, err := h.service.PostAdjustment(r.Context(), rc, input)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toMovementResponse(mv))
}

func (h *Handler) handleConservation(w http.ResponseWriter, r *http.Request) {
	var productID int64
	if v := r.URL.Query().Get("product_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			h.fail(w, r, httpx.ErrValidation)
			return
		}
		productID = id
	}
	rc, _ := shared.RequestFromContext(r.Context())
	reports, err := h.service.CheckConservation(r.Context(), rc.TenantID, productID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if reports == nil {
		reports = []ConservationReport{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"balanced": len(reports) == 0, "imbalances": reports})
}
