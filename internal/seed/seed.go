// Package seed bootstraps the default tenant on startup.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/mesa/internal/account/domain"
	"gorm.io/gorm"
)

const (
	defaultAccountName = "Main"
	defaultAccountSlug = "main"
)

// EnsureDefaultAccount creates the default account when none exists yet.
// A non-zero accountID pins its id so self-hosted installs can reference it
// from configuration; reruns are no-ops.
func EnsureDefaultAccount(db *gorm.DB, accountID int64) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var account accountdomain.Account
		err := tx.WithContext(ctx).Where("slug = ?", defaultAccountSlug).First(&account).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		id := snowflake.ID(accountID)
		if id == 0 {
			id = node.Generate()
		}
		now := time.Now().UTC()
		account = accountdomain.Account{
			ID:        id,
			Name:      defaultAccountName,
			Slug:      defaultAccountSlug,
			IsDefault: true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.WithContext(ctx).Create(&account).Error
	})
}
