package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"kasir/internal/cart"
	"kasir/internal/metrics"
	"kasir/internal/models"

	"github.com/rs/zerolog"
)

var (
	ErrNotFound          = models.ErrNotFound
	ErrEmptyCart         = models.ErrEmptyCart
	ErrInsufficientStock = models.ErrInsufficientStock
	ErrProductInUse      = models.ErrProductInUse
)

const receiptTimeout = 30 * time.Second

// InvoiceRepository persists sale invoices atomically.
type InvoiceRepository interface {
	CreateSaleInvoiceTx(ctx context.Context, inv *models.SaleInvoice) error
	DeleteSaleInvoiceTx(ctx context.Context, storeID, id int64) error
}

// ReceiptSender delivers the receipt of a committed invoice.
type ReceiptSender interface {
	SendInvoiceReceipt(ctx context.Context, store models.Store, inv models.SaleInvoice) error
}

// InvoiceService, turns a cart into a persisted sale invoice.
type InvoiceService struct {
	repo     InvoiceRepository
	receipts ReceiptSender
	metrics  *metrics.Metrics
	log      zerolog.Logger
	now      func() time.Time

	pending sync.WaitGroup
}

// NewInvoiceService; receipts and m may be nil.
func NewInvoiceService(repo InvoiceRepository, receipts ReceiptSender, m *metrics.Metrics, log zerolog.Logger) *InvoiceService {
	return &InvoiceService{
		repo:     repo,
		receipts: receipts,
		metrics:  m,
		log:      log.With().Str("component", "invoice").Logger(),
		now:      time.Now,
	}
}

// CreateSaleInvoice totals the cart and writes the invoice with one line per
// cart item in a single transaction. The cart itself is left to the caller to
// reset once this returns without error.
func (s *InvoiceService) CreateSaleInvoice(ctx context.Context, store models.Store, items cart.Cart) (models.SaleInvoice, error) {
	if items.Empty() {
		s.metrics.InvoiceFailed(metrics.ReasonEmptyCart)
		return models.SaleInvoice{}, ErrEmptyCart
	}

	total, err := items.Total()
	if err != nil {
		s.metrics.InvoiceFailed(metrics.ReasonAmountOutOfRange)
		return models.SaleInvoice{}, fmt.Errorf("create sale invoice: %w", err)
	}

	inv := models.SaleInvoice{
		StoreID:     store.ID,
		UserID:      store.UserID,
		InvoiceDate: s.now().UTC(),
		TotalAmount: total,
		Lines:       make([]models.InvoiceProduct, 0, len(items)),
	}
	for _, item := range items {
		// Total above already proved every line fits
		lineTotal, _ := item.LineTotal()
		inv.Lines = append(inv.Lines, models.InvoiceProduct{
			ProductID:   item.ID,
			ProductName: item.Product.Name,
			Quantity:    item.Quantity,
			UnitPrice:   item.Product.Price,
			TotalPrice:  lineTotal,
		})
	}

	if err := s.repo.CreateSaleInvoiceTx(ctx, &inv); err != nil {
		reason := metrics.ReasonPersistence
		switch {
		case errors.Is(err, ErrInsufficientStock):
			reason = metrics.ReasonInsufficientStock
		case errors.Is(err, ErrNotFound):
			reason = metrics.ReasonUnknownProduct
		}
		s.metrics.InvoiceFailed(reason)
		s.log.Error().Err(err).Int64("store", store.ID).Int("lines", len(inv.Lines)).Msg("sale invoice not created")
		return models.SaleInvoice{}, fmt.Errorf("create sale invoice: %w", err)
	}

	s.metrics.InvoiceCreated(inv.TotalAmount)
	s.log.Info().Int64("invoice", inv.ID).Int64("store", store.ID).Int64("total", inv.TotalAmount).Msg("sale invoice created")
	s.sendReceipt(ctx, store, inv)
	return inv, nil
}

// DeleteSaleInvoice removes an invoice and its lines.
func (s *InvoiceService) DeleteSaleInvoice(ctx context.Context, storeID, id int64) error {
	if err := s.repo.DeleteSaleInvoiceTx(ctx, storeID, id); err != nil {
		return fmt.Errorf("delete sale invoice: %w", err)
	}
	s.log.Info().Int64("invoice", id).Int64("store", storeID).Msg("sale invoice deleted")
	return nil
}

func (s *InvoiceService) sendReceipt(ctx context.Context, store models.Store, inv models.SaleInvoice) {
	if s.receipts == nil {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), receiptTimeout)
		defer cancel()
		if err := s.receipts.SendInvoiceReceipt(rctx, store, inv); err != nil {
			s.log.Warn().Err(err).Int64("invoice", inv.ID).Msg("receipt not delivered")
		}
	}()
}

// Wait blocks until receipts already dispatched have finished.
func (s *InvoiceService) Wait() {
	s.pending.Wait()
}
