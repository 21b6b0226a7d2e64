package masterdata

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-retail/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-retail/internal/shared"
)

// Handler exposes products and counterparties over JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the master data handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

var problemMappings = []httpx.Mapping{
	{Target: ErrNotFound, Status: http.StatusNotFound, Title: "Not Found", Code: "NOT_FOUND"},
	{Target: ErrDuplicate, Status: http.StatusConflict, Title: "Duplicate", Code: "DUPLICATE"},
	{Target: ErrValidation, Status: http.StatusUnprocessableEntity, Title: "Validation Failed", Code: "VALIDATION_FAILED"},
}

// MountRoutes registers master data routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Post("/products", h.createProduct)
	r.Get("/products/{id}", h.getProduct)
	r.Put("/products/{id}", h.updateProduct)
	r.Get("/counterparties", h.listCounterparties)
	r.Post("/counterparties", h.createCounterparty)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	h.logger.Warn("masterdata request failed", slog.Any("error", err))
	httpx.RespondMapped(w, err, problemMappings)
}

func listFilters(r *http.Request, tenantID int64) ListFilters {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("per_page"))
	return ListFilters{TenantID: tenantID, Page: page, Limit: limit, Search: q.Get("q")}
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	rc, _ := shared.RequestFromContext(r.Context())
	filters := listFilters(r, rc.TenantID)
	products, total, err := h.service.ListProducts(r.Context(), filters)
	if err != nil {
		h.fail(w, err)
		return
	}
	if products == nil {
		products = []Product{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"data":       products,
		"pagination": shared.NewPagination(filters.Page, filters.Limit, total),
	})
}

type productRequest struct {
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int64           `json:"quantity"`
	IsActive  *bool           `json:"is_active"`
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
		return
	}
	rc, _ := shared.RequestFromContext(r.Context())
	p, err := h.service.CreateProduct(r.Context(), Product{
		TenantID:  rc.TenantID,
		SKU:       req.SKU,
		Name:      req.Name,
		UnitPrice: req.UnitPrice,
		Quantity:  req.Quantity,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	rc, _ := shared.RequestFromContext(r.Context())
	p, err := h.service.GetProduct(r.Context(), rc.TenantID, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
		return
	}
	rc, _ := shared.RequestFromContext(r.Context())
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	p := Product{ID: id, TenantID: rc.TenantID, SKU: req.SKU, Name: req.Name, UnitPrice: req.UnitPrice, IsActive: active}
	if err := h.service.UpdateProduct(r.Context(), p); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listCounterparties(w http.ResponseWriter, r *http.Request) {
	rc, _ := shared.RequestFromContext(r.Context())
	filters := listFilters(r, rc.TenantID)
	kind := CounterpartyKind(r.URL.Query().Get("kind"))
	items, total, err := h.service.ListCounterparties(r.Context(), filters, kind)
	if err != nil {
		h.fail(w, err)
		return
	}
	if items == nil {
		items = []Counterparty{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"data":       items,
		"pagination": shared.NewPagination(filters.Page, filters.Limit, total),
	})
}

func (h *Handler) createCounterparty(w http.ResponseWriter, r *http.Request) {
	var cp Counterparty
	if err := httpx.DecodeJSON(r, &cp); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
		return
	}
	rc, _ := shared.RequestFromContext(r.Context())
	cp.TenantID = rc.TenantID
	created, err := h.service.CreateCounterparty(r.Context(), cp)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}
