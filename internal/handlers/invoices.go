package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"kasir/internal/models"
	"kasir/internal/money"
	"kasir/internal/services"
	"kasir/internal/session"

	"github.com/gin-gonic/gin"
)

const checkoutPath = "/dashboard/sale-invoices/create"

// SaleInvoicesPage, the invoice history.
func (h *Handler) SaleInvoicesPage(c *gin.Context) {
	store := currentStore(c)
	ctx := c.Request.Context()
	query := strings.TrimSpace(c.Query("query"))
	current := pageParam(c)

	invoices, err := h.db.FetchFilteredSaleInvoices(ctx, store.ID, query, current)
	if err != nil {
		h.serverError(c, err, "failed to load sale invoices")
		return
	}
	total, err := h.db.FetchSaleInvoicesPages(ctx, store.ID, query)
	if err != nil {
		h.serverError(c, err, "failed to count sale invoices")
		return
	}

	c.HTML(http.StatusOK, "invoices.html", h.page(c, "Faktur Penjualan", gin.H{
		"invoices":   invoices,
		"pagination": models.Page{Current: current, Total: total, Query: query},
	}))
}

// CreateSaleInvoicePage, the product picker next to the session cart.
func (h *Handler) CreateSaleInvoicePage(c *gin.Context) {
	h.renderCheckout(c, http.StatusOK, "")
}

func (h *Handler) renderCheckout(c *gin.Context, status int, message string) {
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

	sess := session.FromContext(c)
	c.HTML(status, "invoice_create.html", h.page(c, "Buat Faktur Penjualan", gin.H{
		"products":   products,
		"pagination": models.Page{Current: current, Total: total, Query: query},
		"cart":       h.cartService.Summary(sess),
		"message":    message,
	}))
}

// HandleCreateSaleInvoice submits the session cart as one invoice. The cart is
// reset only after the invoice is committed.
func (h *Handler) HandleCreateSaleInvoice(c *gin.Context) {
	store := currentStore(c)
	sess := session.FromContext(c)

	inv, err := h.invoices.CreateSaleInvoice(c.Request.Context(), store, h.cartService.GetCart(sess))
	switch {
	case errors.Is(err, services.ErrEmptyCart):
		h.renderCheckout(c, http.StatusUnprocessableEntity, "Keranjang masih kosong.")
		return
	case errors.Is(err, services.ErrInsufficientStock):
		h.renderCheckout(c, http.StatusConflict, "Stok produk tidak mencukupi. Periksa kembali jumlah di keranjang.")
		return
	case errors.Is(err, models.ErrNotFound):
		h.renderCheckout(c, http.StatusConflict, "Produk di keranjang sudah tidak tersedia. Hapus dari keranjang lalu coba lagi.")
		return
	case errors.Is(err, money.ErrOverflow):
		h.renderCheckout(c, http.StatusUnprocessableEntity, "Total faktur melebihi batas.")
		return
	case err != nil:
		h.renderCheckout(c, http.StatusInternalServerError, "Kesalahan database: gagal membuat faktur penjualan.")
		return
	}

	if err := h.cartService.ClearCart(c.Request.Context(), sess); err != nil {
		h.log.Error().Err(err).Int64("invoice", inv.ID).Msg("invoice created but cart not cleared")
	}
	h.flash(c, "Faktur penjualan #"+strconv.FormatInt(inv.ID, 10)+" dibuat.")
	c.Redirect(http.StatusSeeOther, "/dashboard/sale-invoices")
}

// SaleInvoiceDetailPage, one invoice with its lines.
func (h *Handler) SaleInvoiceDetailPage(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		h.NotFound(c)
		return
	}
	ctx := c.Request.Context()

	inv, err := h.db.GetSaleInvoice(ctx, currentStore(c).ID, id)
	if err != nil {
		h.handleLookupError(c, err, "failed to load sale invoice")
		return
	}
	lines, err := h.db.FetchInvoiceProducts(ctx, inv.ID)
	if err != nil {
		h.serverError(c, err, "failed to load invoice lines")
		return
	}
	inv.Lines = lines

	c.HTML(http.StatusOK, "invoice_detail.html", h.page(c, "Detail Faktur", gin.H{
		"invoice": inv,
	}))
}

// HandleDeleteSaleInvoice, removes an invoice and its lines.
func (h *Handler) HandleDeleteSaleInvoice(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		h.NotFound(c)
		return
	}

	err := h.invoices.DeleteSaleInvoice(c.Request.Context(), currentStore(c).ID, id)
	switch {
	case errors.Is(err, models.ErrNotFound):
		h.NotFound(c)
		return
	case err != nil:
		h.log.Error().Err(err).Int64("invoice", id).Msg("failed to delete sale invoice")
		h.flash(c, "Kesalahan database: gagal menghapus faktur penjualan.")
	default:
		h.flash(c, "Faktur penjualan dihapus.")
	}
	c.Redirect(http.StatusSeeOther, "/dashboard/sale-invoices")
}

// --- Cart actions ---

// CartJSON, the session cart with count and total.
func (h *Handler) CartJSON(c *gin.Context) {
	c.JSON(http.StatusOK, h.cartService.Summary(session.FromContext(c)))
}

// CartAdd, puts a product into the cart with quantity 1.
func (h *Handler) CartAdd(c *gin.Context) {
	productID, ok := productIDField(c)
	if !ok {
		h.cartResponse(c, http.StatusBadRequest, "Produk tidak valid.")
		return
	}
	err := h.cartService.AddToCart(c.Request.Context(), session.FromContext(c), currentStore(c).ID, productID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		h.cartResponse(c, http.StatusNotFound, "Produk tidak ditemukan.")
	case errors.Is(err, services.ErrInsufficientStock):
		h.cartResponse(c, http.StatusConflict, "Stok produk habis.")
	case errors.Is(err, money.ErrOverflow):
		h.cartResponse(c, http.StatusUnprocessableEntity, "Total keranjang melebihi batas.")
	case err != nil:
		h.cartResponse(c, http.StatusInternalServerError, "Keranjang tidak dapat disimpan.")
	default:
		h.cartResponse(c, http.StatusOK, "")
	}
}

// CartIncrement, +1 up to the stocked quantity.
func (h *Handler) CartIncrement(c *gin.Context) {
	h.cartItemAction(c, h.cartService.IncrementItem)
}

// CartDecrement, -1 down to 1.
func (h *Handler) CartDecrement(c *gin.Context) {
	h.cartItemAction(c, h.cartService.DecrementItem)
}

// CartRemove, drops the line of the product.
func (h *Handler) CartRemove(c *gin.Context) {
	h.cartItemAction(c, h.cartService.RemoveFromCart)
}

// CartReset, empties the cart.
func (h *Handler) CartReset(c *gin.Context) {
	if err := h.cartService.ClearCart(c.Request.Context(), session.FromContext(c)); err != nil {
		h.cartResponse(c, http.StatusInternalServerError, "Keranjang tidak dapat disimpan.")
		return
	}
	h.cartResponse(c, http.StatusOK, "")
}

type cartItemFunc func(ctx context.Context, sess *session.Session, productID int64) error

func (h *Handler) cartItemAction(c *gin.Context, fn cartItemFunc) {
	productID, ok := productIDField(c)
	if !ok {
		h.cartResponse(c, http.StatusBadRequest, "Produk tidak valid.")
		return
	}
	err := fn(c.Request.Context(), session.FromContext(c), productID)
	switch {
	case errors.Is(err, money.ErrOverflow):
		h.cartResponse(c, http.StatusUnprocessableEntity, "Total keranjang melebihi batas.")
	case err != nil:
		h.cartResponse(c, http.StatusInternalServerError, "Keranjang tidak dapat disimpan.")
	default:
		h.cartResponse(c, http.StatusOK, "")
	}
}

// cartResponse answers JSON clients with the cart and everyone else with a
// redirect back to the checkout page.
func (h *Handler) cartResponse(c *gin.Context, status int, message string) {
	sess := session.FromContext(c)
	if strings.Contains(c.GetHeader("Accept"), "application/json") {
		body := gin.H{"cart": h.cartService.Summary(sess)}
		if message != "" {
			body["error"] = message
		}
		c.JSON(status, body)
		return
	}
	if message != "" {
		h.flash(c, message)
	}
	c.Redirect(http.StatusSeeOther, checkoutReturn(c))
}

// checkoutReturn keeps the picker's search and page across cart actions.
func checkoutReturn(c *gin.Context) string {
	ret := c.PostForm("return")
	if strings.HasPrefix(ret, checkoutPath) && !strings.Contains(ret, "//") {
		return ret
	}
	return checkoutPath
}

func productIDField(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.PostForm("product_id"), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}
