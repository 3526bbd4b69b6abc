package supplier

import (
	"context"
	"fmt"
	"time"

	"bartally/internal/core/apperror"
	"bartally/internal/core/id"
	"bartally/internal/core/numerator"
	"bartally/internal/domain"
)

// Service provides business logic for the Supplier catalog.
// Uses composition with domain.CatalogService for common CRUD operations.
type Service struct {
	*domain.CatalogService[*Supplier]
	repo      Repository
	numerator numerator.Generator
}

// NewService creates a new Supplier service.
// In Database-per-Tenant, TxManager is obtained from context.
func NewService(
	repo Repository,
	numerator numerator.Generator,
) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Supplier]{
		Repo:       repo,
		TxManager:  nil, // Will be obtained from context
		Numerator:  numerator,
		EntityName: "supplier",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		numerator:      numerator,
	}

	base.Hooks().OnBeforeCreate(svc.prepareForCreate)
	base.Hooks().OnBeforeUpdate(svc.prepareForUpdate)

	return svc
}

// prepareForCreate handles code generation and uniqueness checks.
func (s *Service) prepareForCreate(ctx context.Context, sup *Supplier) error {
	if sup.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("SUP"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		sup.Code = code
	}

	return s.checkVATUnique(ctx, sup)
}

// prepareForUpdate handles uniqueness checks.
func (s *Service) prepareForUpdate(ctx context.Context, sup *Supplier) error {
	return s.checkVATUnique(ctx, sup)
}

func (s *Service) checkVATUnique(ctx context.Context, sup *Supplier) error {
	if sup.VATNumber == nil || *sup.VATNumber == "" {
		return nil
	}
	exists, err := s.vatExists(ctx, *sup.VATNumber, sup.ID)
	if err != nil {
		return err
	}
	if exists {
		return apperror.NewConflict("supplier with this VAT number already exists").
			WithDetail("vat_number", sup.VATNumber)
	}
	return nil
}

// FindByVATNumber retrieves a supplier by VAT registration.
func (s *Service) FindByVATNumber(ctx context.Context, vat string) (*Supplier, error) {
	return s.repo.FindByVATNumber(ctx, vat)
}

func (s *Service) vatExists(ctx context.Context, vat string, excludeID id.ID) (bool, error) {
	existing, err := s.repo.FindByVATNumber(ctx, vat)
	if err != nil {
		if apperror.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return existing.ID != excludeID, nil
}
