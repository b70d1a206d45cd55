// Package repository implements the account domain repository on gorm.
package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mesa/internal/account/domain"
	"gorm.io/gorm"
)

type repo struct{}

// Provide builds the repository for dependency injection.
func Provide() domain.Repository { return &repo{} }

func (r *repo) Create(ctx context.Context, db *gorm.DB, account *domain.Account) error {
	return db.WithContext(ctx).Create(account).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Account, error) {
	var account domain.Account
	if err := db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repo) FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Account, error) {
	var account domain.Account
	if err := db.WithContext(ctx).First(&account, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repo) Find(ctx context.Context, db *gorm.DB) ([]domain.Account, error) {
	var accounts []domain.Account
	if err := db.WithContext(ctx).Order("created_at ASC").Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}
