package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

var cartColumns = []string{
	"id", "farmer_id", "name", "description", "category", "price", "unit",
	"image_url", "quantity_available", "date_listed", "quantity",
}

func TestCartRepository_AddItem_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// Accumulation happens inside a single upsert statement; two concurrent
	// adds therefore compound at the database rather than racing in Go.
	mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT (user_id, product_id)`)).
		WithArgs(1, 7, 3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewCartRepository(db)
	require.NoError(t, repo.AddItem(context.Background(), 1, 7, 3))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_RemoveItem_AbsentIsNoop(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM cart_items`)).
		WithArgs(1, 7).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewCartRepository(db)
	require.NoError(t, repo.RemoveItem(context.Background(), 1, 7))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_Items_ResolvesProducts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	listed := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`JOIN products p ON p.id = ci.product_id`)).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(cartColumns).
			AddRow(7, 2, "tomatoes", "vine ripened", "Vegetable", 3.5, "kg", "images/default-product.jpg", 100, listed, 3))

	repo := NewCartRepository(db)
	lines, err := repo.Items(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, 7, lines[0].Product.ID)
	require.Equal(t, "tomatoes", lines[0].Product.Name)
	require.Equal(t, 3.5, lines[0].Product.Price)
	require.Equal(t, 3, lines[0].Quantity)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_Items_EmptyCart(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM cart_items`)).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(cartColumns))

	repo := NewCartRepository(db)
	lines, err := repo.Items(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, lines)
	require.Empty(t, lines)
	require.NoError(t, mock.ExpectationsWereMet())
}
