package masterdata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
)

// Invalidator drops cached lookups after a write.
type Invalidator interface {
	Bump(ctx context.Context, tenantID int64) error
}

// Service exposes product and counterparty maintenance.
type Service struct {
	repo      Repository
	cache     Invalidator
	validator *validator.Validate
	logger    *slog.Logger
}

// NewService builds the master data service. cache may be nil.
func NewService(repo Repository, cache Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, validator: validator.New(), logger: logger}
}

// ErrValidation wraps struct validation failures.
var ErrValidation = errors.New("masterdata: invalid input")

func (s *Service) invalidate(ctx context.Context, tenantID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx, tenantID); err != nil {
		s.logger.Warn("masterdata cache bump failed", slog.Int64("tenant_id", tenantID), slog.Any("error", err))
	}
}

func (s *Service) ListProducts(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	return s.repo.ListProducts(ctx, filters)
}

func (s *Service) GetProduct(ctx context.Context, tenantID, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, ErrNotFound
	}
	return s.repo.GetProduct(ctx, tenantID, id)
}

func (s *Service) validateProduct(product Product) error {
	if err := s.validator.Struct(product); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if product.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: unit price must be >= 0", ErrValidation)
	}
	return nil
}

// CreateProduct registers a product with its opening quantity.
func (s *Service) CreateProduct(ctx context.Context, product Product) (Product, error) {
	if err := s.validateProduct(product); err != nil {
		return Product{}, err
	}
	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return Product{}, err
	}
	s.invalidate(ctx, product.TenantID)
	return created, nil
}

// UpdateProduct changes name, price and active flag.
func (s *Service) UpdateProduct(ctx context.Context, product Product) error {
	if product.ID <= 0 {
		return ErrNotFound
	}
	if err := s.validateProduct(product); err != nil {
		return err
	}
	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		return err
	}
	s.invalidate(ctx, product.TenantID)
	return nil
}

func (s *Service) ListCounterparties(ctx context.Context, filters ListFilters, kind CounterpartyKind) ([]Counterparty, int, error) {
	return s.repo.ListCounterparties(ctx, filters, kind)
}

// CreateCounterparty registers a customer or supplier.
func (s *Service) CreateCounterparty(ctx context.Context, cp Counterparty) (Counterparty, error) {
	if err := s.validator.Struct(cp); err != nil {
		return Counterparty{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	created, err := s.repo.CreateCounterparty(ctx, cp)
	if err != nil {
		return Counterparty{}, err
	}
	s.invalidate(ctx, cp.TenantID)
	return created, nil
}
