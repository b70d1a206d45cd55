package option

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// QueryOption mutates a gorm statement before execution.
type QueryOption interface {
	Apply(*gorm.DB) *gorm.DB
}

type optionFunc func(*gorm.DB) *gorm.DB

func (f optionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

// WithQuerySortBy sanitizes caller-supplied sort parameters against an
// allow-list and returns an ORDER BY clause, empty when rejected.
func WithQuerySortBy(sortBy, orderBy string, allowed map[string]bool) string {
	column := strings.TrimSpace(sortBy)
	if column == "" || !allowed[column] {
		return ""
	}

	direction := "ASC"
	if strings.EqualFold(strings.TrimSpace(orderBy), "desc") {
		direction = "DESC"
	}
	return fmt.Sprintf("%s %s", column, direction)
}

// WithSortBy orders the result set by the given clause when non-empty.
func WithSortBy(order string) QueryOption {
	return optionFunc(func(db *gorm.DB) *gorm.DB {
		if order == "" {
			return db
		}
		return db.Order(order)
	})
}

// WithPage applies limit/offset pagination. Page numbering starts at 1.
func WithPage(page, perPage int) QueryOption {
	return optionFunc(func(db *gorm.DB) *gorm.DB {
		if perPage <= 0 {
			return db
		}
		if page < 1 {
			page = 1
		}
		return db.Limit(perPage).Offset((page - 1) * perPage)
	})
}

// WithPreload eager-loads the named associations.
func WithPreload(relations ...string) QueryOption {
	return optionFunc(func(db *gorm.DB) *gorm.DB {
		for _, relation := range relations {
			db = db.Preload(relation)
		}
		return db
	})
}
