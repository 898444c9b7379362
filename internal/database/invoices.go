package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"kasir/internal/models"
	"kasir/internal/money"
)

// CreateSaleInvoiceTx writes the invoice header and all of its lines in one
// transaction. Either every row is committed or none is. The stock of each
// product is re-read inside the transaction and a line asking for more than is
// stocked aborts the whole invoice.
func (s *SQLDatabase) CreateSaleInvoiceTx(ctx context.Context, inv *models.SaleInvoice) error {
	if len(inv.Lines) == 0 {
		return models.ErrEmptyCart
	}

	lineTotals := make([]int64, len(inv.Lines))
	for i, l := range inv.Lines {
		want, err := money.Mul(l.UnitPrice, l.Quantity)
		if err != nil {
			return fmt.Errorf("line for product %d: %w", l.ProductID, err)
		}
		if l.TotalPrice != want {
			return fmt.Errorf("line for product %d: total %d does not match %d x %d",
				l.ProductID, l.TotalPrice, l.Quantity, l.UnitPrice)
		}
		lineTotals[i] = l.TotalPrice
	}
	total, err := money.Sum(lineTotals...)
	if err != nil {
		return fmt.Errorf("invoice total: %w", err)
	}
	if inv.InvoiceDate.IsZero() {
		inv.InvoiceDate = time.Now()
	}
	inv.InvoiceDate = inv.InvoiceDate.UTC()
	inv.TotalAmount = total

	// ids are copied onto inv only once the transaction has committed
	var invoiceID int64
	lineIDs := make([]int64, len(inv.Lines))
	err = s.execTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO sale_invoices (store_id, user_id, invoice_date, total_amount)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, inv.StoreID, inv.UserID, inv.InvoiceDate, inv.TotalAmount).Scan(&invoiceID)
		if err != nil {
			return fmt.Errorf("failed to insert sale invoice: %w", err)
		}

		for i, line := range inv.Lines {
			var stock int
			err := tx.QueryRowContext(ctx,
				`SELECT quantity FROM products WHERE id = $1 AND store_id = $2`,
				line.ProductID, inv.StoreID,
			).Scan(&stock)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("product %d: %w", line.ProductID, ErrNotFound)
			}
			if err != nil {
				return fmt.Errorf("failed to read stock: %w", err)
			}
			if line.Quantity > stock {
				return fmt.Errorf("product %d: %d requested, %d in stock: %w",
					line.ProductID, line.Quantity, stock, models.ErrInsufficientStock)
			}

			err = tx.QueryRowContext(ctx, `
				INSERT INTO invoice_products (invoice_id, product_id, quantity, unit_price, total_price)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING id
			`, invoiceID, line.ProductID, line.Quantity, line.UnitPrice, line.TotalPrice).Scan(&lineIDs[i])
			if err != nil {
				return fmt.Errorf("failed to insert invoice line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	inv.ID = invoiceID
	for i := range inv.Lines {
		inv.Lines[i].InvoiceID = invoiceID
		inv.Lines[i].ID = lineIDs[i]
	}
	return nil
}

// DeleteSaleInvoiceTx removes an invoice of the store together with its lines.
func (s *SQLDatabase) DeleteSaleInvoiceTx(ctx context.Context, storeID, id int64) error {
	return s.execTx(ctx, func(tx *sql.Tx) error {
		var found int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM sale_invoices WHERE id = $1 AND store_id = $2`, id, storeID,
		).Scan(&found)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("sale invoice %d: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to get sale invoice: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM invoice_products WHERE invoice_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete invoice lines: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM sale_invoices WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete sale invoice: %w", err)
		}
		return nil
	})
}

// FetchFilteredSaleInvoices, one page of the store's invoices, newest first,
// whose date text contains query. Each row carries the units sold.
func (s *SQLDatabase) FetchFilteredSaleInvoices(ctx context.Context, storeID int64, query string, page int) ([]models.SaleInvoiceRow, error) {
	q := fmt.Sprintf(`
		SELECT si.id, si.invoice_date, COALESCE(SUM(ip.quantity), 0), si.total_amount
		FROM sale_invoices si
		LEFT JOIN invoice_products ip ON ip.invoice_id = si.id
		WHERE si.store_id = $1 AND CAST(si.invoice_date AS TEXT) %s $2
		GROUP BY si.id, si.invoice_date, si.total_amount
		ORDER BY si.invoice_date DESC, si.id DESC
		LIMIT $3 OFFSET $4
	`, s.dialect.like)

	rows, err := s.db.QueryContext(ctx, q, storeID, likePattern(query), ItemsPerPage, offset(page))
	if err != nil {
		return nil, fmt.Errorf("failed to query sale invoices: %w", err)
	}
	defer rows.Close()

	invoices := []models.SaleInvoiceRow{}
	for rows.Next() {
		var (
			r  models.SaleInvoiceRow
			at dbTime
		)
		if err := rows.Scan(&r.ID, &at, &r.Quantity, &r.TotalAmount); err != nil {
			return nil, fmt.Errorf("failed to scan sale invoice: %w", err)
		}
		r.InvoiceDate = at.Time
		invoices = append(invoices, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return invoices, nil
}

// FetchSaleInvoicesPages, the number of invoice pages matching query.
func (s *SQLDatabase) FetchSaleInvoicesPages(ctx context.Context, storeID int64, query string) (int, error) {
	q := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM sale_invoices
		WHERE store_id = $1 AND CAST(invoice_date AS TEXT) %s $2
	`, s.dialect.like)

	var count int64
	if err := s.db.QueryRowContext(ctx, q, storeID, likePattern(query)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sale invoices: %w", err)
	}
	return pages(count), nil
}

// GetSaleInvoice returns the invoice header of the store by id.
func (s *SQLDatabase) GetSaleInvoice(ctx context.Context, storeID, id int64) (*models.SaleInvoice, error) {
	var (
		inv models.SaleInvoice
		at  dbTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, store_id, user_id, invoice_date, total_amount
		FROM sale_invoices
		WHERE id = $1 AND store_id = $2
	`, id, storeID).Scan(&inv.ID, &inv.StoreID, &inv.UserID, &at, &inv.TotalAmount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sale invoice %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sale invoice: %w", err)
	}
	inv.InvoiceDate = at.Time
	return &inv, nil
}

// FetchInvoiceProducts, the lines of an invoice joined with product names.
func (s *SQLDatabase) FetchInvoiceProducts(ctx context.Context, invoiceID int64) ([]models.InvoiceProduct, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ip.id, ip.invoice_id, ip.product_id, p.name, ip.quantity, ip.unit_price, ip.total_price
		FROM invoice_products ip
		JOIN products p ON p.id = ip.product_id
		WHERE ip.invoice_id = $1
		ORDER BY ip.id
	`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoice lines: %w", err)
	}
	defer rows.Close()

	lines := []models.InvoiceProduct{}
	for rows.Next() {
		var l models.InvoiceProduct
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.ProductID, &l.ProductName, &l.Quantity, &l.UnitPrice, &l.TotalPrice); err != nil {
			return nil, fmt.Errorf("failed to scan invoice line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return lines, nil
}
