package models

// Product, a catalog entry owned by a store. Price is kept in minor units.
type Product struct {
	ID               int64  `json:"id" db:"id"`
	StoreID          int64  `json:"store_id" db:"store_id"`
	RegistrationCode string `json:"registration_code" db:"registration_code"`
	ImageURL         string `json:"image_url" db:"image_url"`
	Name             string `json:"name" db:"name"`
	Description      string `json:"description" db:"description"`
	Price            int64  `json:"price" db:"price"`
	Quantity         int    `json:"quantity" db:"quantity"`
}

// SoldOut reports whether nothing is left in stock.
func (p Product) SoldOut() bool {
	return p.Quantity <= 0
}

// ProductForm, the create/edit product form. Price is the raw decimal text
// typed by the user and is converted to minor units by the catalog service.
type ProductForm struct {
	RegistrationCode string `form:"registration_code" binding:"max=500"`
	Name             string `form:"name" binding:"required,min=2,max=100"`
	Description      string `form:"description" binding:"max=1000"`
	Price            string `form:"price" binding:"required"`
	Quantity         *int   `form:"quantity" binding:"required,min=0"`
}

// FormFromProduct fills an edit form with the stored values.
func FormFromProduct(p Product, price string) ProductForm {
	qty := p.Quantity
	return ProductForm{
		RegistrationCode: p.RegistrationCode,
		Name:             p.Name,
		Description:      p.Description,
		Price:            price,
		Quantity:         &qty,
	}
}
