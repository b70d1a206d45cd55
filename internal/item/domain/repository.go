package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mesa/internal/accountcontext"
	"gorm.io/gorm"
)

// ListQuery is the repository-level shape of a filtered listing. Labels maps
// custom-field labels to definition ids so the filter engine can join them;
// Strict makes unrecognized filter keys an error instead of a no-op.
type ListQuery struct {
	Filters map[string]any
	Labels  map[string]int64
	Strict  bool
	Sort    string
	Page    int
	PerPage int
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, item *Item) error
	Update(ctx context.Context, db *gorm.DB, item *Item) error
	DeleteByID(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	FindByID(ctx context.Context, db *gorm.DB, scope accountcontext.Scope, id snowflake.ID) (*Item, error)
	Find(ctx context.Context, db *gorm.DB, scope accountcontext.Scope, q ListQuery) ([]Item, error)
	ReplaceTags(ctx context.Context, db *gorm.DB, item *Item, tags []Tag) error
	ClearTags(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	CreateType(ctx context.Context, db *gorm.DB, itemType *ItemType) error
	FindTypeByID(ctx context.Context, db *gorm.DB, scope accountcontext.Scope, id snowflake.ID) (*ItemType, error)
	FindTypes(ctx context.Context, db *gorm.DB, scope accountcontext.Scope) ([]ItemType, error)

	CreateTag(ctx context.Context, db *gorm.DB, tag *Tag) error
	FindTagsByIDs(ctx context.Context, db *gorm.DB, scope accountcontext.Scope, ids []snowflake.ID) ([]Tag, error)
	FindTags(ctx context.Context, db *gorm.DB, scope accountcontext.Scope) ([]Tag, error)
}
