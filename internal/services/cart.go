package services

import (
	"context"
	"errors"

	"github.com/farmmarket/apiserver/types"
)

// ErrInvalidQuantity is returned when an add-to-cart request carries a
// quantity below one. Non-positive quantities are rejected, not clamped.
var ErrInvalidQuantity = errors.New("quantity must be a positive integer")

// CartRepository defines persistence operations for cart lines.
type CartRepository interface {
	Items(ctx context.Context, userID int) ([]types.CartLine, error)
	AddItem(ctx context.Context, userID, productID, quantity int) error
	RemoveItem(ctx context.Context, userID, productID int) error
}

// ProductGetter is the slice of the product repository the cart needs.
type ProductGetter interface {
	Get(ctx context.Context, id int) (types.Product, error)
}

// CartService encapsulates cart use-cases.
type CartService struct {
	repo     CartRepository
	products ProductGetter
}

func NewCartService(repo CartRepository, products ProductGetter) *CartService {
	return &CartService{repo: repo, products: products}
}

// Items returns the user's cart resolved against live product data.
func (s *CartService) Items(ctx context.Context, userID int) ([]types.CartLine, error) {
	return s.repo.Items(ctx, userID)
}

// AddItem merges quantity into the user's cart line for the product,
// creating the line when absent, and returns the resolved cart. The product
// must exist; store.ErrNotFound propagates when it does not.
func (s *CartService) AddItem(ctx context.Context, userID, productID, quantity int) ([]types.CartLine, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	if _, err := s.products.Get(ctx, productID); err != nil {
		return nil, err
	}

	if err := s.repo.AddItem(ctx, userID, productID, quantity); err != nil {
		return nil, err
	}
	return s.repo.Items(ctx, userID)
}

// RemoveItem drops the product's line from the cart, if present, and
// returns the resolved cart. Removing an absent product is a no-op.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID int) ([]types.CartLine, error) {
	if err := s.repo.RemoveItem(ctx, userID, productID); err != nil {
		return nil, err
	}
	return s.repo.Items(ctx, userID)
}
