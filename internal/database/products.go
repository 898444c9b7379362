package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"kasir/internal/models"
)

const productColumns = `id, store_id, registration_code, image_url, name, description, price, quantity`

func scanProduct(row interface{ Scan(...any) error }) (models.Product, error) {
	var p models.Product
	err := row.Scan(
		&p.ID,
		&p.StoreID,
		&p.RegistrationCode,
		&p.ImageURL,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.Quantity,
	)
	return p, err
}

// FetchFilteredProducts, one page of the store's products whose name or
// description contains query, case-insensitively, ordered by name.
func (s *SQLDatabase) FetchFilteredProducts(ctx context.Context, storeID int64, query string, page int) ([]models.Product, error) {
	q := fmt.Sprintf(`
		SELECT %s
		FROM products
		WHERE store_id = $1 AND (name %s $2 OR description %s $2)
		ORDER BY name, id
		LIMIT $3 OFFSET $4
	`, productColumns, s.dialect.like, s.dialect.like)

	rows, err := s.db.QueryContext(ctx, q, storeID, likePattern(query), ItemsPerPage, offset(page))
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return products, nil
}

// FetchProductsPages, the number of product pages matching query.
func (s *SQLDatabase) FetchProductsPages(ctx context.Context, storeID int64, query string) (int, error) {
	q := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM products
		WHERE store_id = $1 AND (name %s $2 OR description %s $2)
	`, s.dialect.like, s.dialect.like)

	var count int64
	if err := s.db.QueryRowContext(ctx, q, storeID, likePattern(query)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return pages(count), nil
}

// FetchAvailableProducts, every product of the store with stock left, for the
// checkout picker.
func (s *SQLDatabase) FetchAvailableProducts(ctx context.Context, storeID int64) ([]models.Product, error) {
	q := `SELECT ` + productColumns + `
		FROM products
		WHERE store_id = $1 AND quantity > 0
		ORDER BY name, id`

	rows, err := s.db.QueryContext(ctx, q, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// GetProduct returns a product of the store by id.
func (s *SQLDatabase) GetProduct(ctx context.Context, storeID, id int64) (*models.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND store_id = $2`

	p, err := scanProduct(s.db.QueryRowContext(ctx, q, id, storeID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

// CreateProduct inserts p and sets its ID.
func (s *SQLDatabase) CreateProduct(ctx context.Context, p *models.Product) error {
	q := `
		INSERT INTO products (store_id, registration_code, image_url, name, description, price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, q,
		p.StoreID, p.RegistrationCode, p.ImageURL, p.Name, p.Description, p.Price, p.Quantity,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

// UpdateProduct overwrites every editable column of p.
func (s *SQLDatabase) UpdateProduct(ctx context.Context, p *models.Product) error {
	q := `
		UPDATE products
		SET registration_code = $1, image_url = $2, name = $3, description = $4, price = $5, quantity = $6
		WHERE id = $7 AND store_id = $8
	`
	res, err := s.db.ExecContext(ctx, q,
		p.RegistrationCode, p.ImageURL, p.Name, p.Description, p.Price, p.Quantity, p.ID, p.StoreID,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return expectAffected(res, "product", p.ID)
}

// DeleteProduct removes a product of the store.
func (s *SQLDatabase) DeleteProduct(ctx context.Context, storeID, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1 AND store_id = $2`, id, storeID)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return expectAffected(res, "product", id)
}

// ProductInUse reports whether any invoice line references the product.
func (s *SQLDatabase) ProductInUse(ctx context.Context, id int64) (bool, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM invoice_products WHERE product_id = $1`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check product usage: %w", err)
	}
	return n > 0, nil
}

func expectAffected(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return nil
}
