// Package repository implements the item domain repository on gorm.
package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mesa/internal/accountcontext"
	"github.com/smallbiznis/mesa/internal/item/domain"
	"github.com/smallbiznis/mesa/internal/meta"
	"github.com/smallbiznis/mesa/pkg/db/option"
	"github.com/smallbiznis/mesa/pkg/filter"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

// Provide builds the repository for dependency injection.
func Provide() domain.Repository { return &repo{} }

func (r *repo) Create(ctx context.Context, db *gorm.DB, item *domain.Item) error {
	return db.WithContext(ctx).Omit(clause.Associations).Create(item).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, item *domain.Item) error {
	return db.WithContext(ctx).Omit(clause.Associations).Save(item).Error
}

func (r *repo) DeleteByID(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Delete(&domain.Item{}, "id = ?", id).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, scope accountcontext.Scope, id snowflake.ID) (*domain.Item, error) {
	var item domain.Item
	stmt := db.WithContext(ctx).
		Preload("ItemType").
		Preload("Tags")
	stmt = scope.Apply(stmt, "items")
	if err := stmt.First(&item, "items.id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, scope accountcontext.Scope, q domain.ListQuery) ([]domain.Item, error) {
	stmt := db.WithContext(ctx).Model(&domain.Item{})
	stmt = scope.Apply(stmt, "items")

	var err error
	if q.Strict {
		stmt, err = filter.ApplyStrict(stmt, meta.Items(), q.Filters, q.Labels)
		if err != nil {
			return nil, err
		}
	} else {
		stmt = filter.Apply(stmt, meta.Items(), q.Filters, q.Labels)
	}

	stmt = option.WithSortBy(q.Sort).Apply(stmt)
	stmt = option.WithPage(q.Page, q.PerPage).Apply(stmt)
	stmt = option.WithPreload("ItemType", "Tags").Apply(stmt)

	var items []domain.Item
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ReplaceTags(ctx context.Context, db *gorm.DB, item *domain.Item, tags []domain.Tag) error {
	return db.WithContext(ctx).Model(item).Association("Tags").Replace(tags)
}

func (r *repo) ClearTags(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec("DELETE FROM item_tags WHERE item_id = ?", id).Error
}

func (r *repo) CreateType(ctx context.Context, db *gorm.DB, itemType *domain.ItemType) error {
	return db.WithContext(ctx).Create(itemType).Error
}

func (r *repo) FindTypeByID(ctx context.Context, db *gorm.DB, scope accountcontext.Scope, id snowflake.ID) (*domain.ItemType, error) {
	var itemType domain.ItemType
	stmt := scope.Apply(db.WithContext(ctx), "item_types")
	if err := stmt.First(&itemType, "item_types.id = ?", id).Error; err != nil {
		return nil, err
	}
	return &itemType, nil
}

func (r *repo) FindTypes(ctx context.Context, db *gorm.DB, scope accountcontext.Scope) ([]domain.ItemType, error) {
	var types []domain.ItemType
	stmt := scope.Apply(db.WithContext(ctx), "item_types")
	if err := stmt.Order("name ASC").Find(&types).Error; err != nil {
		return nil, err
	}
	return types, nil
}

func (r *repo) CreateTag(ctx context.Context, db *gorm.DB, tag *domain.Tag) error {
	return db.WithContext(ctx).Create(tag).Error
}

func (r *repo) FindTagsByIDs(ctx context.Context, db *gorm.DB, scope accountcontext.Scope, ids []snowflake.ID) ([]domain.Tag, error) {
	var tags []domain.Tag
	stmt := scope.Apply(db.WithContext(ctx), "tags")
	if err := stmt.Where("tags.id IN ?", ids).Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

func (r *repo) FindTags(ctx context.Context, db *gorm.DB, scope accountcontext.Scope) ([]domain.Tag, error) {
	var tags []domain.Tag
	stmt := scope.Apply(db.WithContext(ctx), "tags")
	if err := stmt.Order("name ASC").Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}
