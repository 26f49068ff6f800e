package product

// PriceRow is the sellable price and stock for one (product, variant) key,
// read from whichever table owns it. VariantID is empty for legacy
// single-price products.
type PriceRow struct {
	ProductID string
	VariantID string
	Price     string
	Stock     int
}

// Quote is what the resolver hands to order intake.
type Quote struct {
	ProductID string
	VariantID string
	UnitPrice int64 // minor units
	Stock     int
	Available bool
}
