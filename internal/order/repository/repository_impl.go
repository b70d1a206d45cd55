// Package repository implements the order domain repository on gorm.
package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mesa/internal/accountcontext"
	"github.com/smallbiznis/mesa/internal/meta"
	"github.com/smallbiznis/mesa/internal/order/domain"
	"github.com/smallbiznis/mesa/pkg/db/option"
	"github.com/smallbiznis/mesa/pkg/filter"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

// Provide builds the repository for dependency injection.
func Provide() domain.Repository { return &repo{} }

func (r *repo) Create(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Omit(clause.Associations).Save(order).Error
}

func (r *repo) DeleteByID(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Delete(&domain.Order{}, "id = ?", id).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, scope accountcontext.Scope, id snowflake.ID) (*domain.Order, error) {
	var order domain.Order
	stmt := db.WithContext(ctx).
		Preload("Table").
		Preload("OrderItems").
		Preload("OrderItems.Item")
	stmt = scope.Apply(stmt, "orders")
	if err := stmt.First(&order, "orders.id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, scope accountcontext.Scope, q domain.ListQuery) ([]domain.Order, error) {
	stmt := db.WithContext(ctx).Model(&domain.Order{})
	stmt = scope.Apply(stmt, "orders")

	var err error
	if q.Strict {
		stmt, err = filter.ApplyStrict(stmt, meta.Orders(), q.Filters, q.Labels)
		if err != nil {
			return nil, err
		}
	} else {
		stmt = filter.Apply(stmt, meta.Orders(), q.Filters, q.Labels)
	}

	stmt = option.WithSortBy(q.Sort).Apply(stmt)
	stmt = option.WithPage(q.Page, q.PerPage).Apply(stmt)
	stmt = option.WithPreload("Table", "OrderItems", "OrderItems.Item").Apply(stmt)

	var orders []domain.Order
	if err := stmt.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repo) CreateLines(ctx context.Context, db *gorm.DB, lines []domain.OrderItem) error {
	if len(lines) == 0 {
		return nil
	}
	return db.WithContext(ctx).Omit(clause.Associations).Create(&lines).Error
}

func (r *repo) DeleteLinesByOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) error {
	return db.WithContext(ctx).Delete(&domain.OrderItem{}, "order_id = ?", orderID).Error
}
