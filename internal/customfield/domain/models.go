// Package domain contains the custom-field aggregate: per-account, per-entity
// typed attribute definitions, their option sets, and the sparse value rows
// attached to target entities.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// FieldType enumerates the supported attribute types.
type FieldType string

const (
	FieldTypeText        FieldType = "text"
	FieldTypeNumber      FieldType = "number"
	FieldTypeDate        FieldType = "date"
	FieldTypeBoolean     FieldType = "boolean"
	FieldTypeSelect      FieldType = "select"
	FieldTypeMultiSelect FieldType = "multiselect"
)

// HasOptions reports whether the type carries an option set.
func (t FieldType) HasOptions() bool {
	return t == FieldTypeSelect || t == FieldTypeMultiSelect
}

func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeText, FieldTypeNumber, FieldTypeDate, FieldTypeBoolean, FieldTypeSelect, FieldTypeMultiSelect:
		return true
	default:
		return false
	}
}

// TargetModels are the entity tables a definition may extend.
var TargetModels = map[string]bool{
	"items":  true,
	"orders": true,
	"rooms":  true,
	"tables": true,
	"users":  true,
}

// CustomField is a user-defined attribute definition. Label is the externally
// visible key used in filters and serialized output; Name is the internal
// identifier. (name, target_model) and (label, target_model) are unique per
// account.
type CustomField struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	AccountID    snowflake.ID `gorm:"column:account_id;not null;index" json:"account_id"`
	Name         string       `gorm:"type:text;not null" json:"name"`
	Label        string       `gorm:"type:text;not null;index" json:"label"`
	DefaultValue *string      `gorm:"column:default_value;type:text" json:"default_value"`
	FieldType    FieldType    `gorm:"column:field_type;type:text;not null" json:"field_type"`
	TargetModel  string       `gorm:"column:target_model;type:text;not null" json:"target_model"`

	Options []CustomFieldOption `gorm:"foreignKey:CustomFieldID" json:"options"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (CustomField) TableName() string { return "custom_fields" }

// OptionValues returns the allowed value set of a select/multiselect field.
func (f *CustomField) OptionValues() []string {
	values := make([]string, 0, len(f.Options))
	for _, option := range f.Options {
		values = append(values, option.Value)
	}
	return values
}

// CustomFieldOption is one allowed value of a select/multiselect definition.
// Value is unique within the owning definition's option set.
type CustomFieldOption struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	CustomFieldID snowflake.ID `gorm:"column:custom_field_id;not null;index" json:"custom_field_id"`
	Label         string       `gorm:"type:text;not null" json:"label"`
	Value         string       `gorm:"type:text;not null" json:"value"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (CustomFieldOption) TableName() string { return "custom_field_options" }

// CustomFieldValue is the sparse attribute storage: at most one row per
// (target_id, custom_field_id). Value holds the scalar string form, or a
// serialized JSON array for multiselect fields.
type CustomFieldValue struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	TargetID      snowflake.ID `gorm:"column:target_id;not null;uniqueIndex:ux_values_target_field,priority:1" json:"target_id"`
	CustomFieldID snowflake.ID `gorm:"column:custom_field_id;not null;uniqueIndex:ux_values_target_field,priority:2" json:"custom_field_id"`
	Value         *string      `gorm:"type:text;index" json:"value"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (CustomFieldValue) TableName() string { return "custom_field_values" }

// LoadedValue is a value row joined with its definition, as consumed by the
// serialization loader.
type LoadedValue struct {
	TargetID  snowflake.ID
	Label     string
	FieldType FieldType
	Value     *string
}
