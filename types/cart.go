package types

// CartLine is one entry of a user's cart, resolved against the current
// product record at read time. Product details are never stored on the line
// itself, so price changes are always reflected live.
type CartLine struct {
	// Product is the referenced product, expanded at read time.
	Product Product `json:"product"`

	// Quantity is the number of units in the cart. Always positive; at most
	// one line exists per (user, product) pair.
	Quantity int `json:"quantity"`
}
