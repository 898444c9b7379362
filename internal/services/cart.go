package services

import (
	"context"
	"fmt"

	"kasir/internal/cart"
	"kasir/internal/models"
	"kasir/internal/money"
	"kasir/internal/session"

	"github.com/rs/zerolog"
)

// ProductLookup resolves the product snapshot that enters the cart.
type ProductLookup interface {
	GetProduct(ctx context.Context, storeID, id int64) (*models.Product, error)
}

// CartService, applies cart actions to the session cart and persists the
// session after each one.
type CartService struct {
	products ProductLookup
	sessions session.Store
	log      zerolog.Logger
}

func NewCartService(products ProductLookup, sessions session.Store, log zerolog.Logger) *CartService {
	return &CartService{
		products: products,
		sessions: sessions,
		log:      log.With().Str("component", "cart").Logger(),
	}
}

// CartSummary, the cart as served to the checkout page script.
type CartSummary struct {
	Items          cart.Cart `json:"items"`
	Count          int       `json:"count"`
	Total          int64     `json:"total"`
	TotalFormatted string    `json:"total_formatted"`
}

// GetCart returns the cart of the session.
func (cs *CartService) GetCart(sess *session.Session) cart.Cart {
	if sess.Cart == nil {
		return cart.Reset()
	}
	return sess.Cart
}

// AddToCart snapshots the product of the store into the cart. Sold out
// products are refused with ErrInsufficientStock.
func (cs *CartService) AddToCart(ctx context.Context, sess *session.Session, storeID, productID int64) error {
	p, err := cs.products.GetProduct(ctx, storeID, productID)
	if err != nil {
		return err
	}
	if p.SoldOut() {
		return fmt.Errorf("product %d: %w", productID, ErrInsufficientStock)
	}
	return cs.applyChecked(ctx, sess, cart.Add(cs.GetCart(sess), *p))
}

// IncrementItem raises the quantity of a line up to its snapshot stock.
func (cs *CartService) IncrementItem(ctx context.Context, sess *session.Session, productID int64) error {
	return cs.applyChecked(ctx, sess, cart.Increment(cs.GetCart(sess), productID))
}

// DecrementItem lowers the quantity of a line down to 1.
func (cs *CartService) DecrementItem(ctx context.Context, sess *session.Session, productID int64) error {
	return cs.apply(ctx, sess, cart.Decrement(cs.GetCart(sess), productID))
}

// RemoveFromCart drops the line of the product.
func (cs *CartService) RemoveFromCart(ctx context.Context, sess *session.Session, productID int64) error {
	return cs.apply(ctx, sess, cart.Remove(cs.GetCart(sess), productID))
}

// ClearCart empties the cart.
func (cs *CartService) ClearCart(ctx context.Context, sess *session.Session) error {
	return cs.apply(ctx, sess, cart.Reset())
}

// GetCartCount returns the number of units in the cart.
func (cs *CartService) GetCartCount(sess *session.Session) int {
	return cs.GetCart(sess).Count()
}

// Summary returns the cart with its count and total.
func (cs *CartService) Summary(sess *session.Session) CartSummary {
	c := cs.GetCart(sess)
	total, err := c.Total()
	if err != nil {
		cs.log.Error().Err(err).Str("session", sess.ID).Msg("cart total out of range")
	}
	return CartSummary{
		Items:          c,
		Count:          c.Count(),
		Total:          total,
		TotalFormatted: money.Format(total),
	}
}

// applyChecked refuses a cart whose total no longer fits in minor units and
// keeps the previous one.
func (cs *CartService) applyChecked(ctx context.Context, sess *session.Session, next cart.Cart) error {
	if _, err := next.Total(); err != nil {
		return fmt.Errorf("cart total: %w", err)
	}
	return cs.apply(ctx, sess, next)
}

func (cs *CartService) apply(ctx context.Context, sess *session.Session, next cart.Cart) error {
	prev := sess.Cart
	sess.Cart = next
	if err := cs.sessions.Save(ctx, sess); err != nil {
		sess.Cart = prev
		cs.log.Error().Err(err).Str("session", sess.ID).Msg("failed to save cart")
		return fmt.Errorf("save cart: %w", err)
	}
	cs.log.Debug().Str("session", sess.ID).Int("lines", len(next)).Int("units", next.Count()).Msg("cart updated")
	return nil
}
