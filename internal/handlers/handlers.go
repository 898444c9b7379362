package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"kasir/internal/models"
	"kasir/internal/services"
	"kasir/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// DBInterface, the read side of the database used by the pages.
type DBInterface interface {
	// Product methods
	FetchFilteredProducts(ctx context.Context, storeID int64, query string, page int) ([]models.Product, error)
	FetchProductsPages(ctx context.Context, storeID int64, query string) (int, error)
	GetProduct(ctx context.Context, storeID, id int64) (*models.Product, error)
	// User and store methods
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetStoreByUserID(ctx context.Context, userID string) (*models.Store, error)
	// Sale invoice methods
	FetchFilteredSaleInvoices(ctx context.Context, storeID int64, query string, page int) ([]models.SaleInvoiceRow, error)
	FetchSaleInvoicesPages(ctx context.Context, storeID int64, query string) (int, error)
	GetSaleInvoice(ctx context.Context, storeID, id int64) (*models.SaleInvoice, error)
	FetchInvoiceProducts(ctx context.Context, invoiceID int64) ([]models.InvoiceProduct, error)
	// Dashboard methods
	FetchCardData(ctx context.Context, storeID int64, now time.Time) (models.CardData, error)
	FetchLatestInvoiceLines(ctx context.Context, storeID int64) ([]models.LatestInvoiceLine, error)
	Ping(ctx context.Context) error
}

// Handler, serves the dashboard pages.
type Handler struct {
	db          DBInterface
	sessions    session.Store
	sessionTTL  time.Duration
	catalog     *services.CatalogService
	invoices    *services.InvoiceService
	cartService *services.CartService
	security    *services.SecurityLogger
	log         zerolog.Logger
	now         func() time.Time
}

// Options wires the handler's collaborators.
type Options struct {
	DB         DBInterface
	Sessions   session.Store
	SessionTTL time.Duration
	Catalog    *services.CatalogService
	Invoices   *services.InvoiceService
	Cart       *services.CartService
	Security   *services.SecurityLogger
	Log        zerolog.Logger
}

// NewHandler, creates a Handler.
func NewHandler(opts Options) *Handler {
	return &Handler{
		db:          opts.DB,
		sessions:    opts.Sessions,
		sessionTTL:  opts.SessionTTL,
		catalog:     opts.Catalog,
		invoices:    opts.Invoices,
		cartService: opts.Cart,
		security:    opts.Security,
		log:         opts.Log.With().Str("component", "http").Logger(),
		now:         time.Now,
	}
}

const storeKey = "kasir.store"

// currentStore returns the store loaded by AuthMiddleware.
func currentStore(c *gin.Context) models.Store {
	if v, ok := c.Get(storeKey); ok {
		if st, ok := v.(models.Store); ok {
			return st
		}
	}
	return models.Store{}
}

// page builds the common template data.
func (h *Handler) page(c *gin.Context, title string, data gin.H) gin.H {
	sess := session.FromContext(c)
	out := gin.H{
		"title":     title,
		"store":     currentStore(c),
		"path":      c.Request.URL.Path,
		"cartCount": sess.Cart.Count(),
	}
	if msg := sess.PopFlash(); msg != "" {
		out["flash"] = msg
		h.saveSession(c, sess)
	}
	for k, v := range data {
		out[k] = v
	}
	return out
}

// flash stores a one-shot message shown on the next page.
func (h *Handler) flash(c *gin.Context, msg string) {
	sess := session.FromContext(c)
	sess.Flash = msg
	h.saveSession(c, sess)
}

func (h *Handler) saveSession(c *gin.Context, sess *session.Session) {
	if err := h.sessions.Save(c.Request.Context(), sess); err != nil {
		h.log.Error().Err(err).Str("session", sess.ID).Msg("failed to save session")
	}
}

// pageParam reads ?page=, defaulting to 1.
func pageParam(c *gin.Context) int {
	p, err := strconv.Atoi(c.Query("page"))
	if err != nil || p < 1 {
		return 1
	}
	return p
}

// idParam reads the :id path segment.
func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// NotFound renders the 404 page.
func (h *Handler) NotFound(c *gin.Context) {
	c.HTML(http.StatusNotFound, "not_found.html", h.page(c, "Tidak Ditemukan", nil))
}

// serverError logs err and renders the generic error page.
func (h *Handler) serverError(c *gin.Context, err error, msg string) {
	_ = c.Error(err)
	h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg(msg)
	c.HTML(http.StatusInternalServerError, "error.html", h.page(c, "Terjadi Kesalahan", gin.H{
		"message": "Terjadi kesalahan pada server. Silakan coba lagi.",
	}))
}

// handleLookupError renders 404 for missing rows and 500 otherwise.
func (h *Handler) handleLookupError(c *gin.Context, err error, msg string) {
	if errors.Is(err, models.ErrNotFound) {
		h.NotFound(c)
		return
	}
	h.serverError(c, err, msg)
}

// Healthz reports whether the database answers.
func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
