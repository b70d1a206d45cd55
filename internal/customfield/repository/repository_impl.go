package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mesa/internal/accountcontext"
	"github.com/smallbiznis/mesa/internal/customfield/domain"
	"github.com/smallbiznis/mesa/pkg/db/option"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, field *domain.CustomField) error {
	return db.WithContext(ctx).Create(field).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, field *domain.CustomField) error {
	return db.WithContext(ctx).Model(&domain.CustomField{}).
		Where("id = ?", field.ID).
		Updates(map[string]any{
			"name":          field.Name,
			"label":         field.Label,
			"default_value": field.DefaultValue,
			"field_type":    field.FieldType,
			"updated_at":    field.UpdatedAt,
		}).Error
}

func (r *repo) DeleteByID(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.CustomField{}).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, scope accountcontext.Scope, id snowflake.ID) (*domain.CustomField, error) {
	var field domain.CustomField
	stmt := scope.Apply(db.WithContext(ctx), "custom_fields").
		Preload("Options").
		Where("custom_fields.id = ?", id)
	if err := stmt.First(&field).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &field, nil
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, scope accountcontext.Scope, req domain.ListRequest) ([]domain.CustomField, error) {
	var fields []domain.CustomField
	stmt := scope.Apply(db.WithContext(ctx).Model(&domain.CustomField{}), "custom_fields").
		Preload("Options")

	if req.TargetModel != "" {
		stmt = stmt.Where("custom_fields.target_model = ?", req.TargetModel)
	}
	if req.FieldType != "" {
		stmt = stmt.Where("custom_fields.field_type = ?", req.FieldType)
	}

	stmt = option.WithSortBy(option.WithQuerySortBy(req.SortBy, req.OrderBy, map[string]bool{
		"created_at": true,
		"updated_at": true,
		"label":      true,
		"name":       true,
	})).Apply(stmt)

	if err := stmt.Find(&fields).Error; err != nil {
		return nil, err
	}
	return fields, nil
}

func (r *repo) FindDuplicate(ctx context.Context, db *gorm.DB, accountID snowflake.ID, targetModel, name, label string, excludeID snowflake.ID) (*domain.CustomField, error) {
	var field domain.CustomField
	stmt := db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Where("target_model = ?", targetModel).
		Where("name = ? OR label = ?", name, label)
	if excludeID != 0 {
		stmt = stmt.Where("id != ?", excludeID)
	}
	if err := stmt.First(&field).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &field, nil
}

func (r *repo) CreateOptions(ctx context.Context, db *gorm.DB, options []domain.CustomFieldOption) error {
	if len(options) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&options).Error
}

func (r *repo) UpdateOptionLabel(ctx context.Context, db *gorm.DB, fieldID snowflake.ID, value, label string) error {
	return db.WithContext(ctx).Model(&domain.CustomFieldOption{}).
		Where("custom_field_id = ? AND value = ?", fieldID, value).
		Updates(map[string]any{"label": label, "updated_at": time.Now().UTC()}).Error
}

func (r *repo) DeleteOptionsByValue(ctx context.Context, db *gorm.DB, fieldID snowflake.ID, values []string) error {
	if len(values) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Where("custom_field_id = ? AND value IN ?", fieldID, values).
		Delete(&domain.CustomFieldOption{}).Error
}

func (r *repo) DeleteOptionsByField(ctx context.Context, db *gorm.DB, fieldID snowflake.ID) error {
	return db.WithContext(ctx).
		Where("custom_field_id = ?", fieldID).
		Delete(&domain.CustomFieldOption{}).Error
}

func (r *repo) UpsertValues(ctx context.Context, db *gorm.DB, rows []domain.CustomFieldValue) error {
	if len(rows) == 0 {
		return nil
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "target_id"}, {Name: "custom_field_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rows).Error
}

func (r *repo) FindValuesByField(ctx context.Context, db *gorm.DB, fieldID snowflake.ID, targetIDs []snowflake.ID) ([]domain.CustomFieldValue, error) {
	var rows []domain.CustomFieldValue
	stmt := db.WithContext(ctx).Where("custom_field_id = ?", fieldID)
	if len(targetIDs) > 0 {
		stmt = stmt.Where("target_id IN ?", targetIDs)
	}
	if err := stmt.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) FindLoadedValues(ctx context.Context, db *gorm.DB, scope accountcontext.Scope, targetModel string, targetIDs []snowflake.ID) ([]domain.LoadedValue, error) {
	if len(targetIDs) == 0 {
		return nil, nil
	}
	var rows []domain.LoadedValue
	stmt := db.WithContext(ctx).
		Table("custom_field_values").
		Select("custom_field_values.target_id, custom_fields.label, custom_fields.field_type, custom_field_values.value").
		Joins("INNER JOIN custom_fields ON custom_fields.id = custom_field_values.custom_field_id").
		Where("custom_fields.target_model = ?", targetModel).
		Where("custom_field_values.target_id IN ?", targetIDs)
	stmt = scope.Apply(stmt, "custom_fields")
	if err := stmt.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) DeleteValuesByTarget(ctx context.Context, db *gorm.DB, targetID snowflake.ID) error {
	return db.WithContext(ctx).
		Where("target_id = ?", targetID).
		Delete(&domain.CustomFieldValue{}).Error
}

func (r *repo) DeleteValuesByField(ctx context.Context, db *gorm.DB, fieldID snowflake.ID) error {
	return db.WithContext(ctx).
		Where("custom_field_id = ?", fieldID).
		Delete(&domain.CustomFieldValue{}).Error
}

func (r *repo) TargetIDs(ctx context.Context, db *gorm.DB, scope accountcontext.Scope, targetModel string) ([]snowflake.ID, error) {
	// targetModel doubles as the table name; only the declared models are
	// ever interpolated.
	if !domain.TargetModels[targetModel] {
		return nil, domain.ErrInvalidTargetModel
	}
	var ids []snowflake.ID
	stmt := scope.Apply(db.WithContext(ctx).Table(targetModel), targetModel)
	if err := stmt.Pluck(targetModel+".id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) LabelMap(ctx context.Context, db *gorm.DB, scope accountcontext.Scope, targetModel string) (map[string]int64, error) {
	var rows []struct {
		ID    int64
		Label string
	}
	stmt := scope.Apply(db.WithContext(ctx).Model(&domain.CustomField{}), "custom_fields").
		Select("custom_fields.id, custom_fields.label")
	if targetModel != "" {
		stmt = stmt.Where("custom_fields.target_model = ?", targetModel)
	}
	if err := stmt.Scan(&rows).Error; err != nil {
		return nil, err
	}
	labels := make(map[string]int64, len(rows))
	for _, row := range rows {
		labels[row.Label] = row.ID
	}
	return labels, nil
}

func (r *repo) TouchTarget(ctx context.Context, db *gorm.DB, targetModel string, targetID snowflake.ID) error {
	if !domain.TargetModels[targetModel] {
		return domain.ErrInvalidTargetModel
	}
	return db.WithContext(ctx).Table(targetModel).
		Where("id = ?", targetID).
		Update("updated_at", time.Now().UTC()).Error
}
