package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/farmmarket/apiserver/types"
)

// ProductRepository handles persistence for products.
type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Get(ctx context.Context, id int) (types.Product, error) {
	const query = `
		SELECT id, farmer_id, name, description, category, price, unit, image_url, quantity_available, date_listed
		FROM products
		WHERE id = $1`
	var product types.Product
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&product.ID,
		&product.FarmerID,
		&product.Name,
		&product.Description,
		&product.Category,
		&product.Price,
		&product.Unit,
		&product.ImageURL,
		&product.QuantityAvailable,
		&product.DateListed,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Product{}, ErrNotFound
		}
		return types.Product{}, err
	}
	return product, nil
}

func (r *ProductRepository) Create(ctx context.Context, product types.Product) (types.Product, error) {
	product.DateListed = time.Now()
	if product.Unit == "" {
		product.Unit = "kg"
	}
	if product.ImageURL == "" {
		product.ImageURL = types.DefaultImageURL
	}

	const query = `
		INSERT INTO products (farmer_id, name, description, category, price, unit, image_url, quantity_available, date_listed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		product.FarmerID,
		product.Name,
		product.Description,
		product.Category,
		product.Price,
		product.Unit,
		product.ImageURL,
		product.QuantityAvailable,
		product.DateListed,
	).Scan(&product.ID); err != nil {
		return types.Product{}, err
	}
	return product, nil
}

// SetImageURL records the storage key of an uploaded product image.
func (r *ProductRepository) SetImageURL(ctx context.Context, id int, imageURL string) error {
	const query = `UPDATE products SET image_url = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, imageURL, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
