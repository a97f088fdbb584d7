package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/farmmarket/apiserver/types"
)

// CartRepository persists cart lines. Carts are modeled as their own table
// keyed by (user_id, product_id) rather than as an array embedded in the
// user record, so a cart mutation never rewrites the whole user.
type CartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) *CartRepository {
	return &CartRepository{db: db}
}

// Items returns the user's cart resolved against current product data,
// oldest line first. An empty cart yields an empty slice.
func (r *CartRepository) Items(ctx context.Context, userID int) ([]types.CartLine, error) {
	const query = `
		SELECT p.id, p.farmer_id, p.name, p.description, p.category, p.price, p.unit, p.image_url, p.quantity_available, p.date_listed, ci.quantity
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = $1
		ORDER BY ci.added_at`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]types.CartLine, 0)
	for rows.Next() {
		var line types.CartLine
		if err := rows.Scan(
			&line.Product.ID,
			&line.Product.FarmerID,
			&line.Product.Name,
			&line.Product.Description,
			&line.Product.Category,
			&line.Product.Price,
			&line.Product.Unit,
			&line.Product.ImageURL,
			&line.Product.QuantityAvailable,
			&line.Product.DateListed,
			&line.Quantity,
		); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return lines, nil
}

// AddItem inserts a cart line or, when a line for the product already
// exists, accumulates its quantity. The upsert is a single statement, so
// two concurrent adds for the same product compound instead of one
// overwriting the other.
func (r *CartRepository) AddItem(ctx context.Context, userID, productID, quantity int) error {
	const query = `
		INSERT INTO cart_items (user_id, product_id, quantity, added_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`
	_, err := r.db.ExecContext(ctx, query, userID, productID, quantity, time.Now())
	return err
}

// RemoveItem deletes the cart line for the product. Removing a product that
// is not in the cart is a no-op.
func (r *CartRepository) RemoveItem(ctx context.Context, userID, productID int) error {
	const query = `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`
	_, err := r.db.ExecContext(ctx, query, userID, productID)
	return err
}
