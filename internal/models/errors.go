package models

import "errors"

var (
	// ErrNotFound, a lookup by id matched nothing.
	ErrNotFound = errors.New("not found")
	// ErrEmptyCart, an invoice was submitted without lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInsufficientStock, a line asks for more than is stocked.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrProductInUse, the product is referenced by invoice lines.
	ErrProductInUse = errors.New("product is referenced by sale invoices")
)
