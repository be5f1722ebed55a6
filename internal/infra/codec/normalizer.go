package codec

import (
	"strconv"
	"strings"
	"time"

	"roastery/internal/domain/entity"
	domainerrors "roastery/internal/domain/errors"

	"github.com/pkg/errors"
)

// requiredColumns must be present and non-empty on every row.
var requiredColumns = []string{ColSKU, ColName, ColCategory, ColPrice}

// NormalizeRow converts a raw, loosely-typed tabular record into a
// canonical product. It is a pure function used identically for CSV import
// and for decoding the persisted catalog.
//
// Raw keys may be canonical or legacy header names; they are resolved
// through the alias table first. Failure is a *domainerrors.ValidationError
// listing the missing required fields, or naming the malformed one.
func NormalizeRow(raw map[string]string) (entity.Product, error) {
	row := make(map[string]string, len(raw))
	for k, v := range raw {
		row[ResolveColumn(k)] = strings.TrimSpace(v)
	}

	var missing []string
	for _, col := range requiredColumns {
		if row[col] == "" {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return entity.Product{}, domainerrors.NewValidationError(missing, "")
	}

	price, err := ParseMoney(row[ColPrice])
	if err != nil {
		return entity.Product{}, domainerrors.NewValidationError(nil, "invalid price: "+err.Error())
	}

	originalPrice := price
	if row[ColOriginalPrice] != "" {
		originalPrice, err = ParseMoney(row[ColOriginalPrice])
		if err != nil {
			return entity.Product{}, domainerrors.NewValidationError(nil, "invalid originalPrice: "+err.Error())
		}
	}

	shippingFirst, err := parseOptionalMoney(row[ColShippingFirst])
	if err != nil {
		return entity.Product{}, domainerrors.NewValidationError(nil, "invalid shippingFirst: "+err.Error())
	}
	shippingAdditional, err := parseOptionalMoney(row[ColShippingAdditional])
	if err != nil {
		return entity.Product{}, domainerrors.NewValidationError(nil, "invalid shippingAdditional: "+err.Error())
	}

	featured, err := ParseBool(row[ColFeatured], false)
	if err != nil {
		return entity.Product{}, domainerrors.NewValidationError(nil, "invalid featured: "+err.Error())
	}
	inStock, err := ParseBool(row[ColInStock], true)
	if err != nil {
		return entity.Product{}, domainerrors.NewValidationError(nil, "invalid inStock: "+err.Error())
	}

	product := entity.Product{
		SKU:                row[ColSKU],
		Name:               row[ColName],
		Category:           strings.ToLower(row[ColCategory]),
		Status:             normalizeStatus(row[ColStatus]),
		Price:              price,
		OriginalPrice:      originalPrice,
		Format:             row[ColFormat],
		Weight:             row[ColWeight],
		RoastLevel:         row[ColRoastLevel],
		Origin:             SplitList(row[ColOrigin]),
		TastingNotes:       SplitList(row[ColTastingNotes]),
		Featured:           featured,
		InStock:            inStock,
		ShippingFirst:      shippingFirst,
		ShippingAdditional: shippingAdditional,
		Images:             parseImages(row[ColImages]),
		CreatedAt:          parseTimestamp(row[ColCreatedAt]),
		UpdatedAt:          parseTimestamp(row[ColUpdatedAt]),
	}
	if product.TastingNotes == nil {
		product.TastingNotes = []string{}
	}

	return product, nil
}

// ParseMoney parses an operator-authored money value. Currency symbols and
// thousands separators are tolerated; the result must be a non-negative
// number.
func ParseMoney(raw string) (float64, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "NT$")
	cleaned = strings.Trim(cleaned, "$€£¥ ")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return 0, errors.Errorf("empty money value %q", raw)
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, errors.Errorf("unparsable money value %q", raw)
	}
	if value < 0 {
		return 0, errors.Errorf("negative money value %q", raw)
	}

	return value, nil
}

func parseOptionalMoney(raw string) (float64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}

	return ParseMoney(raw)
}

// ParseBool parses the tolerant boolean set {true,false,yes,no,1,0,on,""}
// case-insensitively. Empty input yields the field's default.
func ParseBool(raw string, defaultValue bool) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return defaultValue, nil
	case "true", "yes", "1", "on":
		return true, nil
	case "false", "no", "0":
		return false, nil
	default:
		return false, errors.Errorf("unrecognized boolean value %q", raw)
	}
}

// SplitList splits a comma-separated value into a trimmed, order-preserving,
// deduplicated list. Empty input yields nil.
func SplitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var out []string
	for _, part := range strings.Split(raw, ",") {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}

	return out
}

// JoinList is the inverse of SplitList for encoding.
func JoinList(items []string) string {
	return strings.Join(items, ", ")
}

func normalizeStatus(raw string) entity.ProductStatus {
	switch strings.ToLower(raw) {
	case string(entity.StatusDraft):
		return entity.StatusDraft
	case string(entity.StatusArchived):
		return entity.StatusArchived
	default:
		// Unknown or empty statuses default to active so a half-edited row
		// never silently disappears from the storefront.
		return entity.StatusActive
	}
}

// parseImages decodes the persisted image list: ";"-separated entries of
// "url|role", order implied by position. Entries with no role default to
// gallery; the first entry defaults to main.
func parseImages(raw string) []entity.ProductImage {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var images []entity.ProductImage
	for i, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		url := part
		role := entity.ImageGallery
		if i == 0 {
			role = entity.ImageMain
		}
		if idx := strings.LastIndex(part, "|"); idx >= 0 {
			url = strings.TrimSpace(part[:idx])
			switch entity.ImageRole(strings.ToLower(strings.TrimSpace(part[idx+1:]))) {
			case entity.ImageThumbnail:
				role = entity.ImageThumbnail
			case entity.ImageMain:
				role = entity.ImageMain
			case entity.ImageGallery:
				role = entity.ImageGallery
			}
		}
		if url == "" {
			continue
		}

		images = append(images, entity.ProductImage{URL: url, Role: role, Order: len(images)})
	}

	return images
}

// encodeImages joins images into ";"-separated "url|role" entries. Position
// in the encoded string is the only order carried; stored Order values are
// not serialized and are reassigned by position on decode.
func encodeImages(images []entity.ProductImage) string {
	if len(images) == 0 {
		return ""
	}

	parts := make([]string, 0, len(images))
	for _, img := range images {
		parts = append(parts, img.URL+"|"+string(img.Role))
	}

	return strings.Join(parts, ";")
}

func parseTimestamp(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	// RFC3339 first, then the date-only form operators tend to type.
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts
	}
	if ts, err := time.Parse("2006-01-02", raw); err == nil {
		return ts
	}

	return time.Time{}
}

func encodeTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}

	return ts.UTC().Format(time.RFC3339)
}
