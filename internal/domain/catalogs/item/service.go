package item

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"bartally/internal/core/apperror"
	"bartally/internal/core/id"
	"bartally/internal/core/numerator"
	"bartally/internal/domain"
	"bartally/internal/domain/uom"
)

// measureDefaults are filled in for fields the caller left at zero.
// They mirror the house standards most hotel bars run on: 70cl spirit
// bottles with 35ml shots, 11-gallon kegs, 24-bottle cases, litre juice
// bottles poured at 200ml.
var measureDefaults = map[uom.Scheme]struct {
	unitsPerContainer int64
	containerML       string
	servingML         string
}{
	uom.SchemeShots:    {unitsPerContainer: 20},
	uom.SchemeBottle:   {unitsPerContainer: 1},
	uom.SchemeKeg:      {unitsPerContainer: 88},
	uom.SchemeCase:     {unitsPerContainer: 24},
	uom.SchemeBulk:     {containerML: "700", servingML: "35"},
	uom.SchemeCaseBulk: {unitsPerContainer: 12, containerML: "1000", servingML: "200"},
}

// Service provides business logic for the Item catalog.
// Uses composition with domain.CatalogService for common CRUD operations.
type Service struct {
	*domain.CatalogService[*Item]
	repo      Repository
	numerator numerator.Generator
}

// NewService creates a new Item service.
// In Database-per-Tenant, TxManager is obtained from context.
func NewService(
	repo Repository,
	numerator numerator.Generator,
) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Item]{
		Repo:       repo,
		TxManager:  nil, // Will be obtained from context
		Numerator:  numerator,
		EntityName: "item",
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

// prepareForCreate handles code generation, measure defaults and uniqueness.
func (s *Service) prepareForCreate(ctx context.Context, it *Item) error {
	if it.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("ITM"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		it.Code = code
	}

	if !it.IsFolder {
		if err := applyMeasureDefaults(it); err != nil {
			return err
		}
	}

	return s.checkUnique(ctx, it)
}

// prepareForUpdate handles uniqueness checks.
func (s *Service) prepareForUpdate(ctx context.Context, it *Item) error {
	return s.checkUnique(ctx, it)
}

func (s *Service) checkUnique(ctx context.Context, it *Item) error {
	if it.SKU != nil && *it.SKU != "" {
		if exists, err := s.skuExists(ctx, *it.SKU, it.ID); err != nil {
			return err
		} else if exists {
			return apperror.NewConflict("item with this SKU already exists").
				WithDetail("sku", it.SKU)
		}
	}

	if it.Barcode != nil && *it.Barcode != "" {
		if exists, err := s.barcodeExists(ctx, *it.Barcode, it.ID); err != nil {
			return err
		} else if exists {
			return apperror.NewConflict("item with this barcode already exists").
				WithDetail("barcode", it.Barcode)
		}
	}

	return nil
}

// applyMeasureDefaults fills zero-valued measure fields from the scheme
// defaults. Wine is always pinned to whole-bottle counting.
func applyMeasureDefaults(it *Item) error {
	scheme, err := it.Scheme()
	if err != nil {
		return err
	}

	def, ok := measureDefaults[scheme]
	if !ok {
		return nil
	}

	if it.UnitsPerContainer == 0 {
		it.UnitsPerContainer = def.unitsPerContainer
	}
	if scheme == uom.SchemeBottle {
		it.UnitsPerContainer = 1
	}
	if it.ContainerML.IsZero() && def.containerML != "" {
		it.ContainerML, _ = decimal.NewFromString(def.containerML)
	}
	if it.ServingML.IsZero() && def.servingML != "" {
		it.ServingML, _ = decimal.NewFromString(def.servingML)
	}

	return nil
}

// --- Entity-specific methods ---

// FindBySKU retrieves an item by SKU.
func (s *Service) FindBySKU(ctx context.Context, sku string) (*Item, error) {
	return s.repo.FindBySKU(ctx, sku)
}

// FindByBarcode retrieves an item by barcode.
func (s *Service) FindByBarcode(ctx context.Context, barcode string) (*Item, error) {
	return s.repo.FindByBarcode(ctx, barcode)
}

// ListActive retrieves all active non-folder items.
func (s *Service) ListActive(ctx context.Context) ([]*Item, error) {
	return s.repo.ListActive(ctx)
}

// FindByCategory retrieves items of one category.
func (s *Service) FindByCategory(ctx context.Context, category string, filter domain.ListFilter) (domain.ListResult[*Item], error) {
	if !uom.Category(category).Valid() {
		return domain.ListResult[*Item]{}, apperror.NewValidation("invalid category").
			WithDetail("category", category)
	}
	return s.repo.FindByCategory(ctx, category, filter)
}

func (s *Service) skuExists(ctx context.Context, sku string, excludeID id.ID) (bool, error) {
	existing, err := s.repo.FindBySKU(ctx, sku)
	if err != nil {
		if apperror.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return existing.ID != excludeID, nil
}

func (s *Service) barcodeExists(ctx context.Context, barcode string, excludeID id.ID) (bool, error) {
	existing, err := s.repo.FindByBarcode(ctx, barcode)
	if err != nil {
		if apperror.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return existing.ID != excludeID, nil
}
