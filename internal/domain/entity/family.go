package entity

// Family is a derived grouping of two or more products that share a base
// identity (same product line, differing only in packaging, format or
// weight). Families are recomputed on every read; they are a view over the
// catalog, never stored.
type Family struct {
	FamilyKey string    `json:"familyKey"`
	Base      Product   `json:"base"`     // representative carrying the shared display fields
	Variants  []Product `json:"variants"` // members, each retaining its own SKU, price and format
	MinPrice  float64   `json:"minPrice"`
	MaxPrice  float64   `json:"maxPrice"`
}

// FamilyIssue reports a field expected to be shared across a family's
// variants that diverges. Divergence is surfaced, not silently merged.
type FamilyIssue struct {
	FamilyKey string `json:"familyKey"`
	Field     string `json:"field"`
	SKU       string `json:"sku"`
	Value     string `json:"value"`
	BaseValue string `json:"baseValue"`
}
