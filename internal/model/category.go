package model

import "time"

// DeletedCategoryName is the placeholder shown when a statistics row refers
// to a category that has since been soft-deleted.
const DeletedCategoryName = "(deleted)"

// Category represents a user-defined transaction category.
type Category struct {
	CreatedAt time.Time
	DeletedAt *time.Time
	Name      string
	Color     string
	ID        int64
	IsIncome  bool
}

// IsDeleted reports whether the category has been soft-deleted. Deleted
// categories are skipped when resolving display names for aggregation.
func (c *Category) IsDeleted() bool {
	return c.DeletedAt != nil
}
