package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mesa/internal/accountcontext"
	"gorm.io/gorm"
)

// ListQuery mirrors the item repository's filtered listing shape.
type ListQuery struct {
	Filters map[string]any
	Labels  map[string]int64
	Strict  bool
	Sort    string
	Page    int
	PerPage int
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, order *Order) error
	Update(ctx context.Context, db *gorm.DB, order *Order) error
	DeleteByID(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	FindByID(ctx context.Context, db *gorm.DB, scope accountcontext.Scope, id snowflake.ID) (*Order, error)
	Find(ctx context.Context, db *gorm.DB, scope accountcontext.Scope, q ListQuery) ([]Order, error)

	CreateLines(ctx context.Context, db *gorm.DB, lines []OrderItem) error
	DeleteLinesByOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) error
}
