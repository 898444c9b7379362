package models

import "time"

// SaleInvoice, a completed checkout. TotalAmount always equals the sum of the
// line total prices.
type SaleInvoice struct {
	ID          int64            `json:"id"`
	StoreID     int64            `json:"store_id"`
	UserID      string           `json:"user_id"`
	InvoiceDate time.Time        `json:"invoice_date"`
	TotalAmount int64            `json:"total_amount"`
	Lines       []InvoiceProduct `json:"lines,omitempty"`
}

// InvoiceProduct, one line of a sale invoice. UnitPrice is captured at sale
// time; TotalPrice = Quantity * UnitPrice.
type InvoiceProduct struct {
	ID          int64  `json:"id"`
	InvoiceID   int64  `json:"invoice_id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	TotalPrice  int64  `json:"total_price"`
}

// SaleInvoiceRow, a row of the invoice history table.
type SaleInvoiceRow struct {
	ID          int64     `json:"id"`
	InvoiceDate time.Time `json:"invoice_date"`
	Quantity    int       `json:"quantity"`
	TotalAmount int64     `json:"total_amount"`
}

// LatestInvoiceLine, a recently sold line shown on the dashboard.
type LatestInvoiceLine struct {
	InvoiceID   int64  `json:"invoice_id"`
	Name        string `json:"name"`
	ImageURL    string `json:"image_url"`
	Description string `json:"description"`
	TotalPrice  int64  `json:"total_price"`
}

// CardData, the summary cards of the dashboard.
type CardData struct {
	NumberOfInvoices int64 `json:"number_of_invoices"`
	UnitsSold        int64 `json:"units_sold"`
	TotalRevenue     int64 `json:"total_revenue"`
	TodayRevenue     int64 `json:"today_revenue"`
}
