package database

import (
	"context"
	"fmt"
	"time"

	"kasir/internal/models"

	"golang.org/x/sync/errgroup"
)

// LatestInvoiceLimit, how many recent lines the dashboard shows.
const LatestInvoiceLimit = 5

// FetchCardData runs the four summary aggregates of the store concurrently.
// now fixes the day used for today's revenue.
func (s *SQLDatabase) FetchCardData(ctx context.Context, storeID int64, now time.Time) (models.CardData, error) {
	var card models.CardData

	now = now.UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.db.QueryRowContext(gctx,
			`SELECT COUNT(*) FROM sale_invoices WHERE store_id = $1`, storeID,
		).Scan(&card.NumberOfInvoices)
	})
	g.Go(func() error {
		return s.db.QueryRowContext(gctx, `
			SELECT COALESCE(SUM(ip.quantity), 0)
			FROM invoice_products ip
			JOIN sale_invoices si ON si.id = ip.invoice_id
			WHERE si.store_id = $1
		`, storeID).Scan(&card.UnitsSold)
	})
	g.Go(func() error {
		return s.db.QueryRowContext(gctx,
			`SELECT COALESCE(SUM(total_amount), 0) FROM sale_invoices WHERE store_id = $1`, storeID,
		).Scan(&card.TotalRevenue)
	})
	g.Go(func() error {
		return s.db.QueryRowContext(gctx, `
			SELECT COALESCE(SUM(total_amount), 0)
			FROM sale_invoices
			WHERE store_id = $1 AND invoice_date >= $2 AND invoice_date < $3
		`, storeID, dayStart, dayEnd).Scan(&card.TodayRevenue)
	})

	if err := g.Wait(); err != nil {
		return models.CardData{}, fmt.Errorf("failed to fetch card data: %w", err)
	}
	return card, nil
}

// FetchLatestInvoiceLines, the most recently sold lines of the store.
func (s *SQLDatabase) FetchLatestInvoiceLines(ctx context.Context, storeID int64) ([]models.LatestInvoiceLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ip.invoice_id, p.name, p.image_url, p.description, ip.total_price
		FROM invoice_products ip
		JOIN sale_invoices si ON si.id = ip.invoice_id
		JOIN products p ON p.id = ip.product_id
		WHERE si.store_id = $1
		ORDER BY si.invoice_date DESC, ip.id DESC
		LIMIT $2
	`, storeID, LatestInvoiceLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest invoice lines: %w", err)
	}
	defer rows.Close()

	lines := []models.LatestInvoiceLine{}
	for rows.Next() {
		var l models.LatestInvoiceLine
		if err := rows.Scan(&l.InvoiceID, &l.Name, &l.ImageURL, &l.Description, &l.TotalPrice); err != nil {
			return nil, fmt.Errorf("failed to scan invoice line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return lines, nil
}
