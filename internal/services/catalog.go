package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"kasir/internal/models"
	"kasir/internal/money"

	"github.com/rs/zerolog"
)

// ProductRepository is the product storage used by the catalog.
type ProductRepository interface {
	GetProduct(ctx context.Context, storeID, id int64) (*models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	UpdateProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, storeID, id int64) error
	ProductInUse(ctx context.Context, id int64) (bool, error)
}

// ValidationError carries field messages back to the form.
type ValidationError struct {
	State models.FormState
}

func (e *ValidationError) Error() string {
	var fields []string
	for f := range e.State.Errors {
		fields = append(fields, f)
	}
	return "invalid fields: " + strings.Join(fields, ", ")
}

// CatalogService, manages the products of a store and their images.
type CatalogService struct {
	repo   ProductRepository
	images ImageStore
	log    zerolog.Logger
}

func NewCatalogService(repo ProductRepository, images ImageStore, log zerolog.Logger) *CatalogService {
	return &CatalogService{
		repo:   repo,
		images: images,
		log:    log.With().Str("component", "catalog").Logger(),
	}
}

// CreateProduct validates the form, stores the optional image and inserts
// the product.
func (cs *CatalogService) CreateProduct(ctx context.Context, storeID int64, form models.ProductForm, image *multipart.FileHeader) (*models.Product, error) {
	p := &models.Product{StoreID: storeID}
	if err := applyForm(p, form); err != nil {
		return nil, err
	}

	if image != nil {
		url, err := cs.saveImage(image)
		if err != nil {
			return nil, err
		}
		p.ImageURL = url
	}

	if err := cs.repo.CreateProduct(ctx, p); err != nil {
		cs.removeImage(p.ImageURL)
		return nil, err
	}
	cs.log.Info().Int64("product", p.ID).Int64("store", storeID).Msg("product created")
	return p, nil
}

// UpdateProduct applies the form to an existing product. A new image replaces
// the previous one, which is then deleted.
func (cs *CatalogService) UpdateProduct(ctx context.Context, storeID, id int64, form models.ProductForm, image *multipart.FileHeader) (*models.Product, error) {
	p, err := cs.repo.GetProduct(ctx, storeID, id)
	if err != nil {
		return nil, err
	}
	if err := applyForm(p, form); err != nil {
		return nil, err
	}

	oldImage := p.ImageURL
	if image != nil {
		url, err := cs.saveImage(image)
		if err != nil {
			return nil, err
		}
		p.ImageURL = url
	}

	if err := cs.repo.UpdateProduct(ctx, p); err != nil {
		if p.ImageURL != oldImage {
			cs.removeImage(p.ImageURL)
		}
		return nil, err
	}
	if p.ImageURL != oldImage {
		cs.removeImage(oldImage)
	}
	cs.log.Info().Int64("product", p.ID).Int64("store", storeID).Msg("product updated")
	return p, nil
}

// DeleteProduct removes a product that no invoice line references.
func (cs *CatalogService) DeleteProduct(ctx context.Context, storeID, id int64) error {
	p, err := cs.repo.GetProduct(ctx, storeID, id)
	if err != nil {
		return err
	}
	used, err := cs.repo.ProductInUse(ctx, id)
	if err != nil {
		return err
	}
	if used {
		return fmt.Errorf("product %d: %w", id, ErrProductInUse)
	}
	if err := cs.repo.DeleteProduct(ctx, storeID, id); err != nil {
		return err
	}
	cs.removeImage(p.ImageURL)
	cs.log.Info().Int64("product", id).Int64("store", storeID).Msg("product deleted")
	return nil
}

func (cs *CatalogService) saveImage(fh *multipart.FileHeader) (string, error) {
	if cs.images == nil {
		return "", nil
	}
	url, err := cs.images.Save(fh)
	if errors.Is(err, ErrImageType) || errors.Is(err, ErrImageTooLarge) {
		var state models.FormState
		state.AddError("image", err.Error())
		return "", &ValidationError{State: state}
	}
	if err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	return url, nil
}

func (cs *CatalogService) removeImage(url string) {
	if cs.images == nil || url == "" {
		return
	}
	if err := cs.images.Remove(url); err != nil {
		cs.log.Warn().Err(err).Str("image", url).Msg("failed to remove image")
	}
}

func applyForm(p *models.Product, form models.ProductForm) error {
	var state models.FormState

	price, err := money.Parse(form.Price)
	if err != nil {
		state.AddError("price", "Harga tidak valid")
	}
	if form.Quantity == nil || *form.Quantity < 0 {
		state.AddError("quantity", "Jumlah tidak boleh negatif")
	}
	name := strings.TrimSpace(form.Name)
	if name == "" {
		state.AddError("name", "Nama produk wajib diisi")
	}
	if state.HasErrors() {
		state.Message = "Periksa kembali isian produk."
		return &ValidationError{State: state}
	}

	p.RegistrationCode = strings.TrimSpace(form.RegistrationCode)
	p.Name = name
	p.Description = strings.TrimSpace(form.Description)
	p.Price = price
	p.Quantity = *form.Quantity
	return nil
}
