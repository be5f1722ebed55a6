package service

import (
	"roastery/internal/domain/entity"
)

// FamilyGrouper partitions a flat product list into families of two or more
// variants sharing a base identity, plus leftover singles. Grouping is a
// derived view and must be deterministic: repeated calls on the same input
// yield the same families.
type FamilyGrouper interface {
	Group(products []entity.Product) ([]entity.Family, []entity.Product, []entity.FamilyIssue)
}
