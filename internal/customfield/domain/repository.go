package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mesa/internal/accountcontext"
	"gorm.io/gorm"
)

// Repository persists definitions, options and values. Methods take the
// executing handle explicitly so multi-step writes share one transaction.
type Repository interface {
	Create(ctx context.Context, db *gorm.DB, field *CustomField) error
	Update(ctx context.Context, db *gorm.DB, field *CustomField) error
	DeleteByID(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	FindByID(ctx context.Context, db *gorm.DB, scope accountcontext.Scope, id snowflake.ID) (*CustomField, error)
	Find(ctx context.Context, db *gorm.DB, scope accountcontext.Scope, req ListRequest) ([]CustomField, error)
	FindDuplicate(ctx context.Context, db *gorm.DB, accountID snowflake.ID, targetModel, name, label string, excludeID snowflake.ID) (*CustomField, error)

	CreateOptions(ctx context.Context, db *gorm.DB, options []CustomFieldOption) error
	UpdateOptionLabel(ctx context.Context, db *gorm.DB, fieldID snowflake.ID, value, label string) error
	DeleteOptionsByValue(ctx context.Context, db *gorm.DB, fieldID snowflake.ID, values []string) error
	DeleteOptionsByField(ctx context.Context, db *gorm.DB, fieldID snowflake.ID) error

	// UpsertValues applies a batch keyed by (target_id, custom_field_id):
	// existing rows are updated, new rows inserted.
	UpsertValues(ctx context.Context, db *gorm.DB, rows []CustomFieldValue) error
	FindValuesByField(ctx context.Context, db *gorm.DB, fieldID snowflake.ID, targetIDs []snowflake.ID) ([]CustomFieldValue, error)
	FindLoadedValues(ctx context.Context, db *gorm.DB, scope accountcontext.Scope, targetModel string, targetIDs []snowflake.ID) ([]LoadedValue, error)
	DeleteValuesByTarget(ctx context.Context, db *gorm.DB, targetID snowflake.ID) error
	DeleteValuesByField(ctx context.Context, db *gorm.DB, fieldID snowflake.ID) error

	// TargetIDs lists the ids of every row of targetModel visible to scope.
	TargetIDs(ctx context.Context, db *gorm.DB, scope accountcontext.Scope, targetModel string) ([]snowflake.ID, error)
	LabelMap(ctx context.Context, db *gorm.DB, scope accountcontext.Scope, targetModel string) (map[string]int64, error)

	// TouchTarget bumps the target entity's updated_at after a merge.
	TouchTarget(ctx context.Context, db *gorm.DB, targetModel string, targetID snowflake.ID) error
}
