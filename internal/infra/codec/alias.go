// Package codec round-trips the product catalog to and from its persisted
// tabular text form, and normalizes loosely-typed operator-authored rows
// into canonical products.
package codec

import (
	"strings"
	"unicode"
)

// Columns is the canonical column set in encoding order. Decode accepts
// legacy aliases; encode always emits exactly these names in this order.
var Columns = []string{
	ColSKU,
	ColName,
	ColCategory,
	ColStatus,
	ColPrice,
	ColOriginalPrice,
	ColFormat,
	ColWeight,
	ColRoastLevel,
	ColOrigin,
	ColTastingNotes,
	ColFeatured,
	ColInStock,
	ColShippingFirst,
	ColShippingAdditional,
	ColImages,
	ColCreatedAt,
	ColUpdatedAt,
}

const (
	ColSKU                = "sku"
	ColName               = "productName"
	ColCategory           = "category"
	ColStatus             = "status"
	ColPrice              = "price"
	ColOriginalPrice      = "originalPrice"
	ColFormat             = "format"
	ColWeight             = "weight"
	ColRoastLevel         = "roastLevel"
	ColOrigin             = "origin"
	ColTastingNotes       = "tastingNotes"
	ColFeatured           = "featured"
	ColInStock            = "inStock"
	ColShippingFirst      = "shippingFirst"
	ColShippingAdditional = "shippingAdditional"
	ColImages             = "images"
	ColCreatedAt          = "createdAt"
	ColUpdatedAt          = "updatedAt"
)

// legacyAliases maps folded legacy header names to canonical columns. Keys
// are folded (lowercased, non-alphanumerics stripped), so "SHIPPINGFIRST",
// "Shipping First" and "shipping_first" all resolve the same way.
var legacyAliases = map[string]string{
	"name":           ColName,
	"title":          ColName,
	"product":        ColName,
	"roast":          ColRoastLevel,
	"notes":          ColTastingNotes,
	"stock":          ColInStock,
	"instock":        ColInStock,
	"compareatprice": ColOriginalPrice,
	"wasprice":       ColOriginalPrice,
	"image":          ColImages,
	"imageurl":       ColImages,
}

// canonicalByFold indexes the canonical columns by their folded form.
var canonicalByFold = func() map[string]string {
	m := make(map[string]string, len(Columns))
	for _, col := range Columns {
		m[foldHeader(col)] = col
	}

	return m
}()

// ResolveColumn maps a raw header name (canonical, legacy or differently
// cased) to its canonical column name. Unknown headers are returned folded
// so callers can still carry them through without inventing meaning.
func ResolveColumn(raw string) string {
	folded := foldHeader(raw)
	if canonical, ok := canonicalByFold[folded]; ok {
		return canonical
	}
	if canonical, ok := legacyAliases[folded]; ok {
		return canonical
	}

	return folded
}

func foldHeader(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}

	return b.String()
}
