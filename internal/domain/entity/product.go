// Package entity contains the core business objects of the project.
package entity

import (
	"time"
)

// ProductStatus represents the publication state of a catalog item.
type ProductStatus string

const (
	StatusActive   ProductStatus = "active"
	StatusDraft    ProductStatus = "draft"
	StatusArchived ProductStatus = "archived"
)

// Known categories. The set is open: operators may introduce new ones
// through the CSV import without a code change.
const (
	CategoryCoffee       = "coffee"
	CategorySubscription = "subscription"
	CategoryGiftSet      = "gift-set"
	CategoryEquipment    = "equipment"
)

// ImageRole describes how a product image is used on the storefront.
type ImageRole string

const (
	ImageThumbnail ImageRole = "thumbnail"
	ImageMain      ImageRole = "main"
	ImageGallery   ImageRole = "gallery"
)

// ProductImage is a single image attached to a product.
type ProductImage struct {
	URL   string    `json:"url"`
	Role  ImageRole `json:"role"`
	Order int       `json:"order"`
}

// Product represents a single catalog item.
//
// SKU is the stable identity and is unique (case-sensitive) within a catalog
// snapshot. Category determines which optional field groups are meaningful
// (e.g. RoastLevel only applies to coffee) but the type does not enforce
// that; it is a presentation concern.
type Product struct {
	SKU                string         `json:"sku"`
	Name               string         `json:"productName"`
	Category           string         `json:"category"`
	Status             ProductStatus  `json:"status"`
	Price              float64        `json:"price"`
	OriginalPrice      float64        `json:"originalPrice,omitempty"` // strike-through comparison price
	Format             string         `json:"format,omitempty"`
	Weight             string         `json:"weight,omitempty"`
	RoastLevel         string         `json:"roastLevel,omitempty"`
	Origin             []string       `json:"origin,omitempty"`
	TastingNotes       []string       `json:"tastingNotes"`
	Featured           bool           `json:"featured"`
	InStock            bool           `json:"inStock"`
	ShippingFirst      float64        `json:"shippingFirst,omitempty"`      // shipping cost for the first unit
	ShippingAdditional float64        `json:"shippingAdditional,omitempty"` // shipping cost for each additional unit
	Images             []ProductImage `json:"images,omitempty"`
	CreatedAt          time.Time      `json:"createdAt,omitempty"`
	UpdatedAt          time.Time      `json:"updatedAt,omitempty"`
}

// Clone returns a deep copy of the product.
func (p Product) Clone() Product {
	out := p
	out.Origin = append([]string(nil), p.Origin...)
	out.TastingNotes = append([]string(nil), p.TastingNotes...)
	out.Images = append([]ProductImage(nil), p.Images...)

	return out
}

// Equal reports whether two products match on every semantic field.
// Timestamps are excluded: they record when a row was touched, not what it says.
func (p Product) Equal(other Product) bool {
	if p.SKU != other.SKU ||
		p.Name != other.Name ||
		p.Category != other.Category ||
		p.Status != other.Status ||
		p.Price != other.Price ||
		p.OriginalPrice != other.OriginalPrice ||
		p.Format != other.Format ||
		p.Weight != other.Weight ||
		p.RoastLevel != other.RoastLevel ||
		p.Featured != other.Featured ||
		p.InStock != other.InStock ||
		p.ShippingFirst != other.ShippingFirst ||
		p.ShippingAdditional != other.ShippingAdditional {
		return false
	}

	if !equalStrings(p.Origin, other.Origin) || !equalStrings(p.TastingNotes, other.TastingNotes) {
		return false
	}

	if len(p.Images) != len(other.Images) {
		return false
	}
	for i := range p.Images {
		if p.Images[i] != other.Images[i] {
			return false
		}
	}

	return true
}

// CloneCatalog returns a deep copy of an ordered product list.
func CloneCatalog(products []Product) []Product {
	out := make([]Product, len(products))
	for i, p := range products {
		out[i] = p.Clone()
	}

	return out
}

// EqualCatalogs reports whether two catalogs hold the same products in the same order.
func EqualCatalogs(a, b []Product) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}

	return true
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
