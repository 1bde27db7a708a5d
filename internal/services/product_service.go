package services

import (
	"context"

	"resell/internal/models"
	"resell/internal/repositories"
)

// ProductService manages the catalog that bids refer to.
type ProductService struct {
	repo repositories.ProductRepository
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository) *ProductService {
	return &ProductService{
		repo: repo,
	}
}

// GetAllProducts retrieves all products with their variants.
func (s *ProductService) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	return s.repo.GetAll(ctx)
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// GetVariant retrieves one tradable variant.
func (s *ProductService) GetVariant(ctx context.Context, id string) (*models.ItemVariant, error) {
	return s.repo.GetVariant(ctx, id)
}

// CreateProduct creates a new product and its variants. Admin only.
func (s *ProductService) CreateProduct(ctx context.Context, caller Caller, product *models.Product) error {
	if err := caller.requireAdmin("product", ""); err != nil {
		return err
	}
	if err := validateInput(product); err != nil {
		return err
	}
	return s.repo.Create(ctx, product)
}

// UpdateProduct updates the descriptive fields of a product. Admin only.
func (s *ProductService) UpdateProduct(ctx context.Context, caller Caller, product *models.Product) error {
	if err := caller.requireAdmin("product", product.ID); err != nil {
		return err
	}
	if err := validateInput(product); err != nil {
		return err
	}
	return s.repo.Update(ctx, product)
}

// DeleteProduct deletes a product by its ID. Admin only.
func (s *ProductService) DeleteProduct(ctx context.Context, caller Caller, id string) error {
	if err := caller.requireAdmin("product", id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
