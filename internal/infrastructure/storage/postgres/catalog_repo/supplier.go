package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"bartally/internal/core/apperror"
	"bartally/internal/domain/catalogs/supplier"
	"bartally/internal/infrastructure/storage/postgres"
)

const supplierTable = "cat_suppliers"

// SupplierRepo implements supplier.Repository.
type SupplierRepo struct {
	*BaseCatalogRepo[*supplier.Supplier]
}

// NewSupplierRepo creates a new supplier repository.
func NewSupplierRepo() *SupplierRepo {
	return &SupplierRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[*supplier.Supplier](
			supplierTable,
			postgres.ExtractDBColumns[supplier.Supplier](),
			func() *supplier.Supplier { return &supplier.Supplier{} },
		),
	}
}

// FindByVATNumber retrieves a supplier by VAT registration.
func (r *SupplierRepo) FindByVATNumber(ctx context.Context, vat string) (*supplier.Supplier, error) {
	q := r.baseSelect(ctx).
		Where(squirrel.Eq{"vat_number": vat}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	sp, err := r.FindOne(ctx, q)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("supplier", vat)
		}
		return nil, err
	}
	return sp, nil
}

var _ supplier.Repository = (*SupplierRepo)(nil)
