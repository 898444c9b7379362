package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"kasir/internal/models"
	"kasir/internal/money"
	"kasir/internal/services"

	"github.com/gin-gonic/gin"
)

// ProductsPage, the searchable product catalog.
func (h *Handler) ProductsPage(c *gin.Context) {
	store := currentStore(c)
	ctx := c.Request.Context()
	query := strings.TrimSpace(c.Query("query"))
	current := pageParam(c)

	products, err := h.db.FetchFilteredProducts(ctx, store.ID, query, current)
	if err != nil {
		h.serverError(c, err, "failed to load products")
		return
	}
	total, err := h.db.FetchProductsPages(ctx, store.ID, query)
	if err != nil {
		h.serverError(c, err, "failed to count products")
		return
	}

	c.HTML(http.StatusOK, "products.html", h.page(c, "Produk", gin.H{
		"products":   products,
		"pagination": models.Page{Current: current, Total: total, Query: query},
	}))
}

// CreateProductPage, the empty product form.
func (h *Handler) CreateProductPage(c *gin.Context) {
	c.HTML(http.StatusOK, "product_form.html", h.page(c, "Tambah Produk", gin.H{
		"form":   models.ProductForm{},
		"action": "/dashboard/products/create",
	}))
}

// HandleCreateProduct, validates and stores a new product.
func (h *Handler) HandleCreateProduct(c *gin.Context) {
	var form models.ProductForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderProductForm(c, http.StatusUnprocessableEntity, "Tambah Produk", "/dashboard/products/create", form, "",
			formState(err, "Gagal membuat produk. Periksa kembali isian."))
		return
	}

	image, ok := h.uploadedImage(c)
	if !ok {
		return
	}

	p, err := h.catalog.CreateProduct(c.Request.Context(), currentStore(c).ID, form, image)
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		h.renderProductForm(c, http.StatusUnprocessableEntity, "Tambah Produk", "/dashboard/products/create", form, "", verr.State)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("failed to create product")
		h.renderProductForm(c, http.StatusInternalServerError, "Tambah Produk", "/dashboard/products/create", form, "",
			models.FormState{Message: "Kesalahan database: gagal membuat produk."})
		return
	}

	h.flash(c, "Produk "+p.Name+" ditambahkan.")
	c.Redirect(http.StatusSeeOther, "/dashboard/products")
}

// EditProductPage, the product form filled with stored values.
func (h *Handler) EditProductPage(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		h.NotFound(c)
		return
	}
	p, err := h.db.GetProduct(c.Request.Context(), currentStore(c).ID, id)
	if err != nil {
		h.handleLookupError(c, err, "failed to load product")
		return
	}

	c.HTML(http.StatusOK, "product_form.html", h.page(c, "Ubah Produk", gin.H{
		"form":     models.FormFromProduct(*p, money.Plain(p.Price)),
		"action":   editAction(id),
		"imageURL": p.ImageURL,
	}))
}

// HandleUpdateProduct, applies the edit form.
func (h *Handler) HandleUpdateProduct(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		h.NotFound(c)
		return
	}
	store := currentStore(c)
	current, err := h.db.GetProduct(c.Request.Context(), store.ID, id)
	if err != nil {
		h.handleLookupError(c, err, "failed to load product")
		return
	}

	var form models.ProductForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderProductForm(c, http.StatusUnprocessableEntity, "Ubah Produk", editAction(id), form, current.ImageURL,
			formState(err, "Gagal mengubah produk. Periksa kembali isian."))
		return
	}

	image, ok := h.uploadedImage(c)
	if !ok {
		return
	}

	p, err := h.catalog.UpdateProduct(c.Request.Context(), store.ID, id, form, image)
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		h.renderProductForm(c, http.StatusUnprocessableEntity, "Ubah Produk", editAction(id), form, current.ImageURL, verr.State)
		return
	case errors.Is(err, models.ErrNotFound):
		h.NotFound(c)
		return
	case err != nil:
		h.log.Error().Err(err).Int64("product", id).Msg("failed to update product")
		h.renderProductForm(c, http.StatusInternalServerError, "Ubah Produk", editAction(id), form, current.ImageURL,
			models.FormState{Message: "Kesalahan database: gagal mengubah produk."})
		return
	}

	h.flash(c, "Produk "+p.Name+" diperbarui.")
	c.Redirect(http.StatusSeeOther, "/dashboard/products")
}

// HandleDeleteProduct, removes a product that was never sold.
func (h *Handler) HandleDeleteProduct(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		h.NotFound(c)
		return
	}

	err := h.catalog.DeleteProduct(c.Request.Context(), currentStore(c).ID, id)
	switch {
	case errors.Is(err, models.ErrNotFound):
		h.NotFound(c)
		return
	case errors.Is(err, models.ErrProductInUse):
		h.flash(c, "Produk tidak dapat dihapus karena sudah tercatat di faktur penjualan.")
	case err != nil:
		h.log.Error().Err(err).Int64("product", id).Msg("failed to delete product")
		h.flash(c, "Kesalahan database: gagal menghapus produk.")
	default:
		h.flash(c, "Produk dihapus.")
	}
	c.Redirect(http.StatusSeeOther, "/dashboard/products")
}

func (h *Handler) renderProductForm(c *gin.Context, status int, title, action string, form models.ProductForm, imageURL string, state models.FormState) {
	c.HTML(status, "product_form.html", h.page(c, title, gin.H{
		"form":     form,
		"action":   action,
		"imageURL": imageURL,
		"state":    state,
	}))
}

// uploadedImage returns the optional "image" file. A malformed upload renders
// an error and reports false.
func (h *Handler) uploadedImage(c *gin.Context) (*multipart.FileHeader, bool) {
	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, true
	}
	if err != nil {
		c.HTML(http.StatusBadRequest, "error.html", h.page(c, "Unggahan Gagal", gin.H{
			"message": "Berkas gambar tidak dapat dibaca.",
		}))
		return nil, false
	}
	if fh.Filename == "" || fh.Size == 0 {
		return nil, true
	}
	return fh, true
}

func editAction(id int64) string {
	return "/dashboard/products/" + strconv.FormatInt(id, 10) + "/edit"
}
