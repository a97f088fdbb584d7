package types

import "time"

// Product categories accepted by the catalog.
var ProductCategories = []string{"Vegetable", "Fruit", "Grain", "Dairy", "Other"}

// ValidCategory reports whether category is one of the known product categories.
func ValidCategory(category string) bool {
	for _, c := range ProductCategories {
		if c == category {
			return true
		}
	}
	return false
}

// DefaultImageURL is used when a product is listed without an image upload.
const DefaultImageURL = "images/default-product.jpg"

// Product is a listing created by a farmer.
type Product struct {
	// ID is the unique identifier of the product.
	ID int `json:"id" db:"id"`

	// FarmerID references the user who listed the product.
	FarmerID int `json:"farmer_id" db:"farmer_id"`

	// Name is the product's display name.
	Name string `json:"name" db:"name"`

	// Description is the seller-provided description.
	Description string `json:"description" db:"description"`

	// Category is one of ProductCategories.
	Category string `json:"category" db:"category"`

	// Price is the unit price.
	Price float64 `json:"price" db:"price"`

	// Unit is the sale unit, e.g. "kg", "dozen", "litre".
	Unit string `json:"unit" db:"unit"`

	// ImageURL points at the product image. When an image has been uploaded
	// to object storage this is the storage key; otherwise DefaultImageURL.
	ImageURL string `json:"image_url" db:"image_url"`

	// QuantityAvailable is the stock the farmer has on offer.
	QuantityAvailable int `json:"quantity_available" db:"quantity_available"`

	// DateListed is the timestamp when the product was listed.
	DateListed time.Time `json:"date_listed" db:"date_listed"`
}
