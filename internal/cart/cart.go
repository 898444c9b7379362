// Package cart holds the line items a user intends to sell before the sale
// invoice is created. Every operation takes the whole cart and returns the
// whole next cart; the input slice is never modified.
package cart

import (
	"fmt"

	"kasir/internal/models"
	"kasir/internal/money"
)

// Item, one cart line. ID is the product id and keys the line.
type Item struct {
	ID       int64          `json:"id"`
	Product  models.Product `json:"product"`
	Quantity int            `json:"quantity"`
}

// LineTotal returns the snapshot price times the quantity.
func (i Item) LineTotal() (int64, error) {
	return money.Mul(i.Product.Price, i.Quantity)
}

// Cart, the ordered list of lines.
type Cart []Item

// Add appends product with quantity 1. Adding a product that is already in
// the cart returns the cart unchanged; use Increment for repeat additions.
func Add(c Cart, p models.Product) Cart {
	if c.Index(p.ID) >= 0 {
		return c.clone()
	}
	next := make(Cart, len(c), len(c)+1)
	copy(next, c)
	return append(next, Item{ID: p.ID, Product: p, Quantity: 1})
}

// Increment raises the quantity of the line for productID by one while it is
// below the snapshot stock.
func Increment(c Cart, productID int64) Cart {
	next := c.clone()
	for i, item := range next {
		if item.ID == productID && item.Quantity < item.Product.Quantity {
			next[i].Quantity++
		}
	}
	return next
}

// Decrement lowers the quantity of the line for productID by one while it is
// above 1. Dropping a line is done with Remove.
func Decrement(c Cart, productID int64) Cart {
	next := c.clone()
	for i, item := range next {
		if item.ID == productID && item.Quantity > 1 {
			next[i].Quantity--
		}
	}
	return next
}

// Remove drops the line for productID.
func Remove(c Cart, productID int64) Cart {
	next := make(Cart, 0, len(c))
	for _, item := range c {
		if item.ID != productID {
			next = append(next, item)
		}
	}
	return next
}

// RemoveAt drops the line at position index. Out of range is a no-op.
// Prefer Remove: positions shift when the cart changes between render and
// submit.
func RemoveAt(c Cart, index int) Cart {
	if index < 0 || index >= len(c) {
		return c.clone()
	}
	next := make(Cart, 0, len(c)-1)
	next = append(next, c[:index]...)
	return append(next, c[index+1:]...)
}

// Reset returns an empty cart.
func Reset() Cart {
	return Cart{}
}

// Index returns the position of the line for productID, or -1.
func (c Cart) Index(productID int64) int {
	for i, item := range c {
		if item.ID == productID {
			return i
		}
	}
	return -1
}

// Total returns the sum of the line totals, or money.ErrOverflow when it does
// not fit in an int64.
func (c Cart) Total() (int64, error) {
	lines := make([]int64, 0, len(c))
	for _, item := range c {
		lt, err := item.LineTotal()
		if err != nil {
			return 0, fmt.Errorf("product %d: %w", item.ID, err)
		}
		lines = append(lines, lt)
	}
	return money.Sum(lines...)
}

// Count returns the number of units across all lines.
func (c Cart) Count() int {
	n := 0
	for _, item := range c {
		n += item.Quantity
	}
	return n
}

// Empty reports whether the cart has no lines.
func (c Cart) Empty() bool {
	return len(c) == 0
}

func (c Cart) clone() Cart {
	next := make(Cart, len(c))
	copy(next, c)
	return next
}
