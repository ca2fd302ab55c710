package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "magnate/internal/errors"
	"magnate/internal/models"
	"magnate/internal/money"
	"magnate/internal/pagination"
)

// productService manages marketplace listings. Products are what the bot
// demand simulator spends its budget on, so pricing and stock levels are a
// company's main levers for tick income.
type productService struct {
	db       *gorm.DB
	accounts AccountServicer
}

// NewProductService creates a new ProductServicer.
func NewProductService(db *gorm.DB, accounts AccountServicer) ProductServicer {
	return &productService{db: db, accounts: accounts}
}

// CreateProduct lists a new product for a company the actor owns.
func (s *productService) CreateProduct(actorID, companyID, name string, price int64, quality int, stock int64) (*models.Product, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "product name is required")
	}
	if price <= 0 || !money.Valid(price) {
		return nil, apperrors.ErrInvalidAmount
	}
	if quality < 1 || quality > 5 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "quality must be between 1 and 5")
	}
	if stock < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "stock cannot be negative")
	}

	company, err := s.requireOwnedCompany(actorID, companyID)
	if err != nil {
		return nil, err
	}

	product := &models.Product{
		CompanyID: company.ID,
		Name:      name,
		Price:     price,
		Quality:   quality,
		Stock:     stock,
		IsActive:  true,
	}
	if err := s.db.Create(product).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return product, nil
}

// RestockProduct adds inventory to a listing.
func (s *productService) RestockProduct(actorID, productID string, quantity int64) (*models.Product, error) {
	if quantity <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "quantity must be positive")
	}

	product, err := s.loadProduct(productID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireOwnedCompany(actorID, product.CompanyID); err != nil {
		return nil, err
	}

	product.Stock += quantity
	if err := s.db.Model(product).Update("stock", product.Stock).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return product, nil
}

// SetProductActive toggles whether the demand simulator considers a listing.
func (s *productService) SetProductActive(actorID, productID string, active bool) (*models.Product, error) {
	product, err := s.loadProduct(productID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireOwnedCompany(actorID, product.CompanyID); err != nil {
		return nil, err
	}

	product.IsActive = active
	if err := s.db.Model(product).Update("is_active", active).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return product, nil
}

// ListCompanyProducts returns a company's listings, newest first.
func (s *productService) ListCompanyProducts(companyID string, page pagination.PageRequest) (*pagination.PageResponse[models.Product], error) {
	page.Defaults()

	if _, err := s.accounts.GetCompanyByID(companyID); err != nil {
		return nil, err
	}

	base := s.db.Model(&models.Product{}).Where("company_id = ?", companyID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var products []models.Product
	if err := base.Order("created_at DESC").
		Scopes(pagination.Paginate(page)).Find(&products).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(products, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func (s *productService) requireOwnedCompany(actorID, companyID string) (*models.Company, error) {
	company, err := s.accounts.GetCompanyByID(companyID)
	if err != nil {
		return nil, err
	}
	if company.OwnerID != actorID {
		return nil, apperrors.ErrPermissionDenied
	}
	return company, nil
}

func (s *productService) loadProduct(productID string) (*models.Product, error) {
	var product models.Product
	if err := s.db.First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &product, nil
}
