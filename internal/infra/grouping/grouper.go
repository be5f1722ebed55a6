// Package grouping reconstructs product families from the flat catalog.
package grouping

import (
	"regexp"
	"strings"

	"roastery/internal/domain/entity"
	"roastery/internal/domain/service"
)

// weightPattern matches weight/size variant tokens such as "250g", "1kg",
// "12oz" or "2lb".
var weightPattern = regexp.MustCompile(`^\d+(\.\d+)?(g|kg|oz|lb|lbs)$`)

// packPattern matches count variant tokens such as "12-pack", "x6" or "6pk".
var packPattern = regexp.MustCompile(`^(x\d+|\d+(pack|pk|ct))$`)

// formatTokens are packaging/format words stripped off the tail of a
// product name when deriving its base identity.
var formatTokens = map[string]struct{}{
	"bag": {}, "box": {}, "tin": {}, "refill": {},
	"ground": {}, "wholebean": {}, "whole": {}, "bean": {}, "beans": {},
	"pods": {}, "capsules": {},
}

// skuSuffixTokens are trailing SKU segments that encode a variant rather
// than an identity.
var skuSuffixTokens = map[string]struct{}{
	"wb": {}, "gr": {}, "pd": {}, "cap": {}, "bag": {}, "box": {}, "tin": {},
}

type grouper struct{}

// New creates the deterministic family grouper.
func New() service.FamilyGrouper {
	return grouper{}
}

// Group partitions products into families of two or more variants sharing a
// base key, plus leftover singles. Singles are never synthesized into
// degenerate one-member families. The representative of a family is picked
// by a fixed precedence (featured, then cheapest, then first by insertion
// order), so repeated calls on the same input are idempotent.
func (grouper) Group(products []entity.Product) ([]entity.Family, []entity.Product, []entity.FamilyIssue) {
	type candidate struct {
		key     string
		members []entity.Product
	}

	var order []string
	byKey := make(map[string]*candidate)
	for _, p := range products {
		key := BaseKey(p)
		group, ok := byKey[key]
		if !ok {
			group = &candidate{key: key}
			byKey[key] = group
			order = append(order, key)
		}
		group.members = append(group.members, p)
	}

	var families []entity.Family
	var leftover []entity.Product
	var issues []entity.FamilyIssue

	for _, key := range order {
		group := byKey[key]
		if len(group.members) < 2 {
			leftover = append(leftover, group.members...)

			continue
		}

		base := pickRepresentative(group.members)
		family := entity.Family{
			FamilyKey: group.key,
			Base:      base,
			Variants:  group.members,
			MinPrice:  group.members[0].Price,
			MaxPrice:  group.members[0].Price,
		}
		for _, member := range group.members {
			if member.Price < family.MinPrice {
				family.MinPrice = member.Price
			}
			if member.Price > family.MaxPrice {
				family.MaxPrice = member.Price
			}
			issues = append(issues, divergence(group.key, base, member)...)
		}

		families = append(families, family)
	}

	return families, leftover, issues
}

// BaseKey derives the stable grouping key for a product: its category plus
// its SKU with known format/weight/packaging suffixes stripped. SKUs with no
// variant suffix fall back to the stripped name, so hand-numbered catalogs
// still group. Name divergence inside a SKU-keyed group stays visible as a
// validation issue instead of splitting the family.
func BaseKey(p entity.Product) string {
	identity := baseSKU(p.SKU)
	if identity == strings.ToLower(p.SKU) {
		if name := baseName(p.Name); name != "" {
			identity = name
		}
	}

	return strings.ToLower(p.Category) + "|" + identity
}

// baseName strips trailing variant tokens (weights, pack counts, packaging
// words, parenthesized qualifiers) off a product name and folds the rest.
func baseName(name string) string {
	lowered := strings.ToLower(name)

	// Drop a trailing parenthesized qualifier such as "(250g)".
	if idx := strings.LastIndex(lowered, "("); idx > 0 && strings.HasSuffix(strings.TrimSpace(lowered), ")") {
		lowered = lowered[:idx]
	}

	fields := strings.FieldsFunc(lowered, func(r rune) bool {
		return r == ' ' || r == '-' || r == ',' || r == '/'
	})

	for len(fields) > 0 {
		last := fields[len(fields)-1]
		if !isVariantToken(last) {
			// "pack of 6": the trailing number was consumed as a variant
			// token only when preceded by "pack of".
			break
		}
		fields = fields[:len(fields)-1]
		if len(fields) >= 2 && fields[len(fields)-1] == "of" && fields[len(fields)-2] == "pack" {
			fields = fields[:len(fields)-2]
		}
	}

	return strings.Join(fields, " ")
}

func isVariantToken(token string) bool {
	if weightPattern.MatchString(token) || packPattern.MatchString(token) {
		return true
	}
	if _, ok := formatTokens[token]; ok {
		return true
	}
	// A bare trailing number is a pack count or size ("Gift Box 3").
	if token != "" && strings.IndexFunc(token, func(r rune) bool { return r < '0' || r > '9' }) < 0 {
		return true
	}

	return false
}

// baseSKU strips trailing variant segments ("-250G", "-WB", "-12") off a SKU.
func baseSKU(sku string) string {
	segments := strings.Split(sku, "-")
	for len(segments) > 1 {
		last := strings.ToLower(segments[len(segments)-1])
		_, isFormat := skuSuffixTokens[last]
		if !isFormat && !weightPattern.MatchString(last) && !packPattern.MatchString(last) && !allDigits(last) {
			break
		}
		segments = segments[:len(segments)-1]
	}

	return strings.ToLower(strings.Join(segments, "-"))
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

// pickRepresentative applies the fixed tie-break: featured beats
// non-featured, then the cheaper product, then earlier insertion order.
func pickRepresentative(members []entity.Product) entity.Product {
	best := members[0]
	for _, member := range members[1:] {
		if member.Featured != best.Featured {
			if member.Featured {
				best = member
			}

			continue
		}
		if member.Price < best.Price {
			best = member
		}
	}

	return best
}

// divergence reports family-wide fields on which a variant disagrees with
// the representative. Disagreement is surfaced, never silently merged.
func divergence(key string, base, member entity.Product) []entity.FamilyIssue {
	if member.SKU == base.SKU {
		return nil
	}

	var issues []entity.FamilyIssue
	add := func(field, value, baseValue string) {
		if value != baseValue {
			issues = append(issues, entity.FamilyIssue{
				FamilyKey: key,
				Field:     field,
				SKU:       member.SKU,
				Value:     value,
				BaseValue: baseValue,
			})
		}
	}

	add("productName", baseName(member.Name), baseName(base.Name))
	add("roastLevel", member.RoastLevel, base.RoastLevel)
	add("origin", strings.Join(member.Origin, ","), strings.Join(base.Origin, ","))
	add("tastingNotes", strings.Join(member.TastingNotes, ","), strings.Join(base.TastingNotes, ","))

	return issues
}
