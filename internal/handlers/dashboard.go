package handlers

import (
	"net/http"

	"kasir/internal/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// DashboardPage, summary cards and the latest sold lines.
func (h *Handler) DashboardPage(c *gin.Context) {
	store := currentStore(c)

	var (
		card   models.CardData
		latest []models.LatestInvoiceLine
	)
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		var err error
		card, err = h.db.FetchCardData(ctx, store.ID, h.now())
		return err
	})
	g.Go(func() error {
		var err error
		latest, err = h.db.FetchLatestInvoiceLines(ctx, store.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		h.serverError(c, err, "failed to load dashboard")
		return
	}

	c.HTML(http.StatusOK, "dashboard.html", h.page(c, "Dashboard", gin.H{
		"card":   card,
		"latest": latest,
	}))
}

// StorePage, details of the signed-in user's store.
func (h *Handler) StorePage(c *gin.Context) {
	c.HTML(http.StatusOK, "store.html", h.page(c, "Toko", nil))
}
